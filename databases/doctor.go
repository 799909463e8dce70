package databases

// go generate: mockery --name DoctorDatabase

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const doctorName = "doctors"

// DoctorDatabase contains the methods to use with the doctor database
type DoctorDatabase interface {
	FindOne(ctx context.Context, filter interface{}, opts ...*options.FindOneOptions) (bson.M, error)
}

type doctorDatabase struct {
	db DatabaseHelper
}

// NewDoctorDatabase initializes a new instance of doctor database with the provided db connection
func NewDoctorDatabase(db DatabaseHelper) DoctorDatabase {
	return &doctorDatabase{
		db: db,
	}
}

func (d *doctorDatabase) FindOne(ctx context.Context, filter interface{}, opts ...*options.FindOneOptions) (bson.M, error) {
	doctor := bson.M{}
	err := d.db.Collection(doctorName).FindOne(ctx, filter, opts...).Decode(&doctor)
	if err != nil {
		return nil, err
	}
	return doctor, nil
}
