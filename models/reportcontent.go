package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ReportContent holds the structure for the report_contents collection in mongo.
// The hex of ID is the content_id referenced by ReportRef.
type ReportContent struct {
	ID          primitive.ObjectID `json:"_id" bson:"_id,omitempty"`
	Content     string             `json:"content" bson:"content"`
	CreatedAt   time.Time          `json:"created_at" bson:"created_at"`
	LastUpdated *time.Time         `json:"last_updated,omitempty" bson:"last_updated,omitempty"`
}

// ReportDisplay pairs a report entry with its resolved body
type ReportDisplay struct {
	ReportRef `bson:",inline"`
	Content   string `json:"description" bson:"description"`
}
