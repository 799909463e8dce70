package databases

// go generate: mockery --name AppointmentDatabase

import (
	"context"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/kushalk47/aarogya-api/models"
)

const appointmentName = "appointments"

// AppointmentDatabase contains the methods to use with the appointment database
type AppointmentDatabase interface {
	FindOne(ctx context.Context, filter interface{}, opts ...*options.FindOneOptions) (*models.Appointment, error)
	Find(ctx context.Context, filter interface{}, opts ...*options.FindOptions) ([]models.Appointment, error)
	InsertOne(ctx context.Context, appointment *models.Appointment) (InsertOneResultHelper, error)
	UpdateOne(ctx context.Context, filter interface{}, update interface{}, opts ...*options.UpdateOptions) (*mongo.UpdateResult, error)
}

type appointmentDatabase struct {
	db DatabaseHelper
}

// NewAppointmentDatabase initializes a new instance of appointment database with the provided db connection
func NewAppointmentDatabase(db DatabaseHelper) AppointmentDatabase {
	return &appointmentDatabase{
		db: db,
	}
}

func (a *appointmentDatabase) FindOne(ctx context.Context, filter interface{}, opts ...*options.FindOneOptions) (*models.Appointment, error) {
	appointment := &models.Appointment{}
	err := a.db.Collection(appointmentName).FindOne(ctx, filter, opts...).Decode(&appointment)
	if err != nil {
		return nil, err
	}
	return appointment, nil
}

func (a *appointmentDatabase) Find(ctx context.Context, filter interface{}, opts ...*options.FindOptions) ([]models.Appointment, error) {
	var appointments []models.Appointment
	curr, err := a.db.Collection(appointmentName).Find(ctx, filter, opts...)
	if err != nil {
		return nil, err
	}
	defer curr.Close(ctx)
	err = curr.All(ctx, &appointments)
	if err != nil {
		return nil, err
	}
	return appointments, nil
}

func (a *appointmentDatabase) InsertOne(ctx context.Context, appointment *models.Appointment) (InsertOneResultHelper, error) {
	return a.db.Collection(appointmentName).InsertOne(ctx, appointment)
}

func (a *appointmentDatabase) UpdateOne(ctx context.Context, filter interface{}, update interface{}, opts ...*options.UpdateOptions) (*mongo.UpdateResult, error) {
	return a.db.Collection(appointmentName).UpdateOne(ctx, filter, update, opts...)
}
