package pipeline

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/kushalk47/aarogya-api/models"
)

func TestFormatPatientContextPlaceholders(t *testing.T) {
	out := FormatPatientContext(PatientContext{
		Patient: bson.M{"_id": "p1"},
		Record:  models.NewMedicalRecord("p1"),
	})

	assert.Contains(t, out, "Patient ID: p1\n")
	assert.Contains(t, out, "Name: N/A\n")
	assert.Contains(t, out, "Email: N/A\n")
	assert.Contains(t, out, "Address: N/A, N/A, N/A, N/A, N/A\n")
	assert.Contains(t, out, "Allergies: None\n")
	assert.Contains(t, out, "Family Medical History: None provided.\n")
	assert.Contains(t, out, "Current Medications: None\n")
	assert.Contains(t, out, "Reports: None\n")
	assert.Contains(t, out, "Immunizations: None\n")
}

func TestFormatPatientContextMixedEntries(t *testing.T) {
	record := models.NewMedicalRecord("p1")
	record.CurrentMedications = []models.Entry{
		models.TextEntry("Aspirin daily"),
		models.DocumentEntry(bson.M{"name": "Metformin", "dosage": "500mg"}),
	}
	record.Diagnoses = []models.Entry{models.DocumentEntry(bson.M{"disease": "Hypertension", "year": int32(2022)})}
	record.Immunizations = []models.Entry{models.DocumentEntry(bson.M{
		"name": "Flu Shot",
		"date": primitive.NewDateTimeFromTime(time.Date(2024, 10, 5, 0, 0, 0, 0, time.UTC)),
	})}

	out := FormatPatientContext(PatientContext{Record: record})

	assert.Contains(t, out, "- Aspirin daily\n")
	assert.Contains(t, out, "- Metformin (500mg, N/A)\n")
	assert.Contains(t, out, "- Hypertension (Year: 2022)\n")
	assert.Contains(t, out, "- Flu Shot on 2024-10-05 by N/A. Lot: N/A\n")
}

func TestFormatPatientContextIsDeterministic(t *testing.T) {
	pc := PatientContext{
		Patient: bson.M{
			"_id":     primitive.NewObjectID(),
			"name":    bson.M{"first": "Asha", "last": "Rao"},
			"address": bson.M{"city": "Pune"},
		},
		Record: models.NewMedicalRecord("p1"),
		Reports: []models.ReportDisplay{{
			ReportRef: models.ReportRef{ReportType: "Blood Test", Date: time.Date(2024, 1, 10, 9, 0, 0, 0, time.UTC)},
			Content:   "Cholesterol slightly elevated.",
		}},
	}

	first := FormatPatientContext(pc)

	assert.Equal(t, first, FormatPatientContext(pc))
	assert.Contains(t, first, "Name: Asha Rao\n")
	assert.Contains(t, first, "Address: N/A, Pune, N/A, N/A, N/A\n")
	assert.Contains(t, first, "- Blood Test on 2024-01-10: Cholesterol slightly elevated.\n")
}

func TestFormatPatientContextEmpty(t *testing.T) {
	assert.Equal(t, "No patient data available.", FormatPatientContext(PatientContext{}))
	assert.Contains(t, FormatPatientContext(PatientContext{Patient: bson.M{"_id": "x"}}), "No medical record details available.")
}

func TestFormatDoctor(t *testing.T) {
	out := FormatDoctor(bson.M{
		"name":      bson.M{"first": "Alice", "last": "Smith"},
		"specialty": "General Practitioner",
		"email":     "alice@example.com",
	})

	assert.Equal(t, "Doctor Name: Dr. Alice Smith\nSpecialty: General Practitioner\nContact: N/A | alice@example.com", out)
	assert.Equal(t, "No doctor data available.", FormatDoctor(nil))
}

func TestContextLoaderSkipsBrokenReferences(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	good, err := f.store.Put(ctx, "ECG normal sinus rhythm.", "")
	require.NoError(t, err)

	record := models.NewMedicalRecord("")
	record.Reports = []models.ReportRef{
		{ReportID: "r1", ReportType: "ECG", ContentID: good},
		{ReportID: "r2", ReportType: "X-Ray", ContentID: primitive.NewObjectID().Hex()},
		{ReportID: "r3", ReportType: "Legacy", ContentID: "not-an-id"},
	}
	f.seed(record)

	pc, err := f.loader.Load(ctx, f.patientID)

	require.NoError(t, err)
	require.Len(t, pc.Reports, 1)
	assert.Equal(t, "r1", pc.Reports[0].ReportID)
	assert.Equal(t, "ECG normal sinus rhythm.", pc.Reports[0].Content)
	assert.Len(t, pc.Record.Reports, 3)
}

func TestContextLoaderDefaultsMissingRecord(t *testing.T) {
	f := newFixture()

	pc, err := f.loader.Load(context.Background(), f.patientID)

	require.NoError(t, err)
	require.NotNil(t, pc.Record)
	assert.Equal(t, f.patientID, pc.Record.PatientID)
	assert.Empty(t, pc.Reports)
	assert.Equal(t, "asha@example.com", pc.Patient["email"])
}

func TestContextLoaderUnknownIDs(t *testing.T) {
	f := newFixture()

	_, err := f.loader.Load(context.Background(), primitive.NewObjectID().Hex())
	assert.ErrorIs(t, err, ErrPatientNotFound)

	_, err = f.loader.Load(context.Background(), "bogus")
	assert.ErrorIs(t, err, ErrPatientNotFound)

	_, err = f.loader.LoadDoctor(context.Background(), primitive.NewObjectID().Hex())
	assert.ErrorIs(t, err, ErrDoctorNotFound)
}

func TestNormalize(t *testing.T) {
	oid := primitive.NewObjectID()
	when := time.Date(2024, 3, 1, 12, 30, 0, 0, time.UTC)

	out := Normalize(bson.M{
		"_id":   oid,
		"at":    when,
		"dt":    primitive.NewDateTimeFromTime(when),
		"tags":  primitive.A{"a", oid},
		"inner": primitive.D{{Key: "k", Value: when}},
		"n":     int32(7),
	})

	assert.Equal(t, map[string]interface{}{
		"_id":   oid.Hex(),
		"at":    "2024-03-01T12:30:00Z",
		"dt":    "2024-03-01T12:30:00Z",
		"tags":  []interface{}{"a", oid.Hex()},
		"inner": map[string]interface{}{"k": "2024-03-01T12:30:00Z"},
		"n":     int32(7),
	}, out)
}
