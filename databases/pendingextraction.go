package databases

// go generate: mockery --name PendingExtractionDatabase

import (
	"context"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/kushalk47/aarogya-api/models"
)

const pendingExtractionName = "pending_extractions"

// PendingExtractionDatabase contains the methods to use with the pending extraction database
type PendingExtractionDatabase interface {
	Find(ctx context.Context, filter interface{}, opts ...*options.FindOptions) ([]models.PendingExtraction, error)
	InsertOne(ctx context.Context, pending *models.PendingExtraction) (InsertOneResultHelper, error)
	UpdateOne(ctx context.Context, filter interface{}, update interface{}, opts ...*options.UpdateOptions) (*mongo.UpdateResult, error)
}

type pendingExtractionDatabase struct {
	db DatabaseHelper
}

// NewPendingExtractionDatabase initializes a new instance of pending extraction database with the provided db connection
func NewPendingExtractionDatabase(db DatabaseHelper) PendingExtractionDatabase {
	return &pendingExtractionDatabase{
		db: db,
	}
}

func (p *pendingExtractionDatabase) Find(ctx context.Context, filter interface{}, opts ...*options.FindOptions) ([]models.PendingExtraction, error) {
	var pending []models.PendingExtraction
	curr, err := p.db.Collection(pendingExtractionName).Find(ctx, filter, opts...)
	if err != nil {
		return nil, err
	}
	defer curr.Close(ctx)
	err = curr.All(ctx, &pending)
	if err != nil {
		return nil, err
	}
	return pending, nil
}

func (p *pendingExtractionDatabase) InsertOne(ctx context.Context, pending *models.PendingExtraction) (InsertOneResultHelper, error) {
	return p.db.Collection(pendingExtractionName).InsertOne(ctx, pending)
}

func (p *pendingExtractionDatabase) UpdateOne(ctx context.Context, filter interface{}, update interface{}, opts ...*options.UpdateOptions) (*mongo.UpdateResult, error) {
	return p.db.Collection(pendingExtractionName).UpdateOne(ctx, filter, update, opts...)
}
