package pipeline

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"

	"github.com/kushalk47/aarogya-api/databases"
	"github.com/kushalk47/aarogya-api/models"
)

// ContentStore keeps long report bodies outside the medical record
type ContentStore struct {
	contents databases.ReportContentDatabase
	now      func() time.Time
}

// NewContentStore returns a store writing through contents
func NewContentStore(contents databases.ReportContentDatabase) *ContentStore {
	return &ContentStore{contents: contents, now: time.Now}
}

// Put stores content and returns its content id. When existingID resolves, the
// body is replaced in place and the id is unchanged; otherwise a new document
// with a new id is created.
func (s *ContentStore) Put(ctx context.Context, content, existingID string) (string, error) {
	now := s.now().UTC()
	if existingID != "" {
		if oid, err := primitive.ObjectIDFromHex(existingID); err == nil {
			res, err := s.contents.UpdateOne(ctx, bson.M{"_id": oid}, bson.M{
				"$set": bson.M{"content": content, "last_updated": now},
			})
			if err != nil {
				return "", err
			}
			if res != nil && res.MatchedCount > 0 {
				return existingID, nil
			}
		}
		zap.S().Warnw("report content to edit does not exist, storing as new content", "content_id", existingID)
	}

	doc := &models.ReportContent{
		ID:        primitive.NewObjectID(),
		Content:   content,
		CreatedAt: now,
	}
	if _, err := s.contents.InsertOne(ctx, doc); err != nil {
		return "", err
	}
	return doc.ID.Hex(), nil
}

// Get returns the body stored under contentID or ErrContentNotFound
func (s *ContentStore) Get(ctx context.Context, contentID string) (string, error) {
	oid, err := primitive.ObjectIDFromHex(contentID)
	if err != nil {
		return "", ErrContentNotFound
	}
	doc, err := s.contents.FindOne(ctx, bson.M{"_id": oid})
	if errors.Is(err, mongo.ErrNoDocuments) {
		return "", ErrContentNotFound
	}
	if err != nil {
		return "", err
	}
	return doc.Content, nil
}
