package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Pending extraction statuses
const (
	ExtractionPending = "pending"
	ExtractionDone    = "done"
	ExtractionFailed  = "failed"
)

// PendingExtraction holds the structure for the pending_extractions collection.
// A document is written when a report body was saved but its entities could
// not be extracted and merged, so the merge can be retried later.
type PendingExtraction struct {
	ID        primitive.ObjectID `json:"_id" bson:"_id,omitempty"`
	PatientID string             `json:"patient_id" bson:"patient_id"`
	DoctorID  string             `json:"doctor_id" bson:"doctor_id"`
	ContentID string             `json:"content_id" bson:"content_id"`
	Status    string             `json:"status" bson:"status"`
	Attempts  int                `json:"attempts" bson:"attempts"`
	LastError string             `json:"last_error,omitempty" bson:"last_error,omitempty"`
	CreatedAt time.Time          `json:"created_at" bson:"created_at"`
	UpdatedAt time.Time          `json:"updated_at" bson:"updated_at"`
}
