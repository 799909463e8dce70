package databases

// go generate: mockery --name PatientDatabase

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const patientName = "patients"

// PatientDatabase contains the methods to use with the patient database. Patient
// profiles are read schemaless since registration and profile edits write
// overlapping shapes.
type PatientDatabase interface {
	FindOne(ctx context.Context, filter interface{}, opts ...*options.FindOneOptions) (bson.M, error)
	Find(ctx context.Context, filter interface{}, opts ...*options.FindOptions) ([]bson.M, error)
}

type patientDatabase struct {
	db DatabaseHelper
}

// NewPatientDatabase initializes a new instance of patient database with the provided db connection
func NewPatientDatabase(db DatabaseHelper) PatientDatabase {
	return &patientDatabase{
		db: db,
	}
}

func (p *patientDatabase) FindOne(ctx context.Context, filter interface{}, opts ...*options.FindOneOptions) (bson.M, error) {
	patient := bson.M{}
	err := p.db.Collection(patientName).FindOne(ctx, filter, opts...).Decode(&patient)
	if err != nil {
		return nil, err
	}
	return patient, nil
}

func (p *patientDatabase) Find(ctx context.Context, filter interface{}, opts ...*options.FindOptions) ([]bson.M, error) {
	var patients []bson.M
	curr, err := p.db.Collection(patientName).Find(ctx, filter, opts...)
	if err != nil {
		return nil, err
	}
	defer curr.Close(ctx)
	err = curr.All(ctx, &patients)
	if err != nil {
		return nil, err
	}
	return patients, nil
}
