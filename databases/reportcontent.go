package databases

// go generate: mockery --name ReportContentDatabase

import (
	"context"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/kushalk47/aarogya-api/models"
)

const reportContentName = "report_contents"

// ReportContentDatabase contains the methods to use with the report content database
type ReportContentDatabase interface {
	FindOne(ctx context.Context, filter interface{}, opts ...*options.FindOneOptions) (*models.ReportContent, error)
	InsertOne(ctx context.Context, content *models.ReportContent) (InsertOneResultHelper, error)
	UpdateOne(ctx context.Context, filter interface{}, update interface{}, opts ...*options.UpdateOptions) (*mongo.UpdateResult, error)
}

type reportContentDatabase struct {
	db DatabaseHelper
}

// NewReportContentDatabase initializes a new instance of report content database with the provided db connection
func NewReportContentDatabase(db DatabaseHelper) ReportContentDatabase {
	return &reportContentDatabase{
		db: db,
	}
}

func (r *reportContentDatabase) FindOne(ctx context.Context, filter interface{}, opts ...*options.FindOneOptions) (*models.ReportContent, error) {
	content := &models.ReportContent{}
	err := r.db.Collection(reportContentName).FindOne(ctx, filter, opts...).Decode(&content)
	if err != nil {
		return nil, err
	}
	return content, nil
}

func (r *reportContentDatabase) InsertOne(ctx context.Context, content *models.ReportContent) (InsertOneResultHelper, error) {
	return r.db.Collection(reportContentName).InsertOne(ctx, content)
}

func (r *reportContentDatabase) UpdateOne(ctx context.Context, filter interface{}, update interface{}, opts ...*options.UpdateOptions) (*mongo.UpdateResult, error) {
	return r.db.Collection(reportContentName).UpdateOne(ctx, filter, update, opts...)
}
