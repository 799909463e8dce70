package pipeline

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"github.com/kushalk47/aarogya-api/databases"
	"github.com/kushalk47/aarogya-api/models"
)

// ContextLoader assembles a PatientContext from the document store
type ContextLoader struct {
	patients databases.PatientDatabase
	doctors  databases.DoctorDatabase
	records  databases.MedicalRecordDatabase
	contents *ContentStore
}

// NewContextLoader returns a loader reading from the given collections
func NewContextLoader(patients databases.PatientDatabase, doctors databases.DoctorDatabase, records databases.MedicalRecordDatabase, contents *ContentStore) *ContextLoader {
	return &ContextLoader{
		patients: patients,
		doctors:  doctors,
		records:  records,
		contents: contents,
	}
}

// Load reads the patient profile, the medical record and every report body
// the record references. A patient without a record gets an empty one.
func (l *ContextLoader) Load(ctx context.Context, patientID string) (PatientContext, error) {
	patient, err := findByID(ctx, l.patients.FindOne, patientID)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return PatientContext{}, ErrPatientNotFound
	}
	if err != nil {
		return PatientContext{}, err
	}

	record, err := l.records.FindOne(ctx, bson.M{"patient_id": patientID})
	if errors.Is(err, mongo.ErrNoDocuments) {
		record = models.NewMedicalRecord(patientID)
	} else if err != nil {
		return PatientContext{}, err
	}

	return PatientContext{
		Patient: patient,
		Record:  record,
		Reports: l.ResolveReports(ctx, record),
	}, nil
}

// LoadDoctor reads a doctor profile by id
func (l *ContextLoader) LoadDoctor(ctx context.Context, doctorID string) (bson.M, error) {
	doctor, err := findByID(ctx, l.doctors.FindOne, doctorID)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrDoctorNotFound
	}
	return doctor, err
}

// ResolveReports pairs each report entry with its body. Entries whose body
// cannot be read are logged and left out.
func (l *ContextLoader) ResolveReports(ctx context.Context, record *models.MedicalRecord) []models.ReportDisplay {
	if record == nil {
		return []models.ReportDisplay{}
	}
	out := make([]models.ReportDisplay, 0, len(record.Reports))
	for _, ref := range record.Reports {
		body, err := l.contents.Get(ctx, ref.ContentID)
		if err != nil {
			if errors.Is(err, ErrContentNotFound) {
				err = fmt.Errorf("%w: %s", ErrBrokenReference, ref.ContentID)
			}
			zap.S().Warnw("skipping report entry",
				"patient_id", record.PatientID,
				"report_id", ref.ReportID,
				"content_id", ref.ContentID,
				"error", err)
			continue
		}
		out = append(out, models.ReportDisplay{ReportRef: ref, Content: body})
	}
	return out
}

type findOneFunc func(ctx context.Context, filter interface{}, opts ...*options.FindOneOptions) (bson.M, error)

func findByID(ctx context.Context, find findOneFunc, id string) (bson.M, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, mongo.ErrNoDocuments
	}
	return find(ctx, bson.M{"_id": oid})
}
