package databases

// go generate: mockery --name MedicalRecordDatabase

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/kushalk47/aarogya-api/models"
)

const medicalRecordName = "medical_records"

// MedicalRecordDatabase contains the methods to use with the medical record database
type MedicalRecordDatabase interface {
	FindOne(ctx context.Context, filter interface{}, opts ...*options.FindOneOptions) (*models.MedicalRecord, error)
	InsertOne(ctx context.Context, record *models.MedicalRecord) (InsertOneResultHelper, error)
	UpdateOne(ctx context.Context, filter interface{}, update interface{}, opts ...*options.UpdateOptions) (*mongo.UpdateResult, error)
	EnsureIndexes(ctx context.Context) error
}

type medicalRecordDatabase struct {
	db DatabaseHelper
}

// NewMedicalRecordDatabase initializes a new instance of medical record database with the provided db connection
func NewMedicalRecordDatabase(db DatabaseHelper) MedicalRecordDatabase {
	return &medicalRecordDatabase{
		db: db,
	}
}

func (m *medicalRecordDatabase) FindOne(ctx context.Context, filter interface{}, opts ...*options.FindOneOptions) (*models.MedicalRecord, error) {
	record := &models.MedicalRecord{}
	err := m.db.Collection(medicalRecordName).FindOne(ctx, filter, opts...).Decode(&record)
	if err != nil {
		return nil, err
	}
	return record, nil
}

func (m *medicalRecordDatabase) InsertOne(ctx context.Context, record *models.MedicalRecord) (InsertOneResultHelper, error) {
	return m.db.Collection(medicalRecordName).InsertOne(ctx, record)
}

func (m *medicalRecordDatabase) UpdateOne(ctx context.Context, filter interface{}, update interface{}, opts ...*options.UpdateOptions) (*mongo.UpdateResult, error) {
	return m.db.Collection(medicalRecordName).UpdateOne(ctx, filter, update, opts...)
}

// EnsureIndexes makes patient_id unique so a racing first write for a patient
// fails with a duplicate key instead of creating a second record
func (m *medicalRecordDatabase) EnsureIndexes(ctx context.Context) error {
	_, err := m.db.Collection(medicalRecordName).CreateIndex(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "patient_id", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	return err
}
