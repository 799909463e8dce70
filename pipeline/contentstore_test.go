package pipeline

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestContentStoreRoundTrip(t *testing.T) {
	store := NewContentStore(newFakeContents())
	ctx := context.Background()

	id, err := store.Put(ctx, "Subjective: cough for three days.", "")
	require.NoError(t, err)

	body, err := store.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Subjective: cough for three days.", body)
}

func TestContentStoreEditKeepsID(t *testing.T) {
	store := NewContentStore(newFakeContents())
	ctx := context.Background()

	id, err := store.Put(ctx, "first draft", "")
	require.NoError(t, err)
	edited, err := store.Put(ctx, "second draft", id)
	require.NoError(t, err)

	assert.Equal(t, id, edited)
	body, err := store.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "second draft", body)
}

func TestContentStoreUnknownExistingIDCreatesNew(t *testing.T) {
	store := NewContentStore(newFakeContents())
	ctx := context.Background()
	missing := primitive.NewObjectID().Hex()

	for _, existing := range []string{missing, "not-an-object-id"} {
		id, err := store.Put(ctx, "body", existing)
		require.NoError(t, err)
		assert.NotEqual(t, existing, id)
	}
}

func TestContentStoreDistinctBodiesGetDistinctIDs(t *testing.T) {
	store := NewContentStore(newFakeContents())
	ctx := context.Background()

	a, err := store.Put(ctx, "same", "")
	require.NoError(t, err)
	b, err := store.Put(ctx, "same", "")
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
}

func TestContentStoreGetMissing(t *testing.T) {
	store := NewContentStore(newFakeContents())

	_, err := store.Get(context.Background(), primitive.NewObjectID().Hex())
	assert.ErrorIs(t, err, ErrContentNotFound)

	_, err = store.Get(context.Background(), "zzz")
	assert.ErrorIs(t, err, ErrContentNotFound)
}
