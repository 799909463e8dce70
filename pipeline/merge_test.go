package pipeline

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/kushalk47/aarogya-api/models"
)

func TestMergeCommonColdIntoEmptyRecord(t *testing.T) {
	set, err := ParseExtraction(commonColdJSON)
	require.NoError(t, err)

	next := Merge(models.NewMedicalRecord("p1"), set)

	require.Len(t, next.Diagnoses, 1)
	assert.Equal(t, bson.M{"disease": "Common Cold", "year": 2024, "diagnosis_date": "2024-03-01"}, next.Diagnoses[0].Fields)
	assert.Empty(t, next.CurrentMedications)
	assert.Empty(t, next.Allergies)
	assert.Empty(t, next.ConsultationHistory)
	assert.Empty(t, next.Immunizations)
	assert.Empty(t, next.Prescriptions)
	assert.Equal(t, "p1", next.PatientID)
}

func TestMergeTwiceDuplicatesEntries(t *testing.T) {
	set := models.NewExtractedEntitySet()
	set.Medications = []models.Medication{{Name: "Amoxicillin", Dosage: "500mg"}}
	set.Diagnoses = []models.Diagnosis{{Disease: "Sinusitis"}}

	once := Merge(models.NewMedicalRecord("p1"), set)
	twice := Merge(once, set)

	assert.Len(t, once.CurrentMedications, 1)
	assert.Len(t, twice.CurrentMedications, 2)
	assert.Len(t, twice.Diagnoses, 2)
	assert.Equal(t, twice.CurrentMedications[0], twice.CurrentMedications[1])
}

func TestMergeAllergiesAreASetUnion(t *testing.T) {
	record := models.NewMedicalRecord("p1")
	record.Allergies = []string{"Penicillin"}
	set := models.NewExtractedEntitySet()
	set.Allergies = []string{"Penicillin", "Dust", "penicillin", "Dust"}

	next := Merge(record, set)

	assert.Equal(t, []string{"Penicillin", "Dust", "penicillin"}, next.Allergies)
}

func TestMergeKeepsLegacyStringEntries(t *testing.T) {
	record := models.NewMedicalRecord("p1")
	record.CurrentMedications = []models.Entry{models.TextEntry("Metformin 500mg")}
	set := models.NewExtractedEntitySet()
	set.Medications = []models.Medication{{Name: "Lisinopril"}}

	next := Merge(record, set)

	require.Len(t, next.CurrentMedications, 2)
	assert.Equal(t, "Metformin 500mg", next.CurrentMedications[0].Text)
	assert.Equal(t, "Lisinopril", next.CurrentMedications[1].Fields["name"])
}

func TestMergeDoesNotModifyInput(t *testing.T) {
	record := models.NewMedicalRecord("p1")
	set := models.NewExtractedEntitySet()
	set.Allergies = []string{"Pollen"}
	set.Immunizations = []models.Immunization{{Vaccine: "Flu"}}

	_ = Merge(record, set)

	assert.Empty(t, record.Allergies)
	assert.Empty(t, record.Immunizations)
}

func TestMergeIntoRecordCreatesMissingRecord(t *testing.T) {
	f := newFixture()
	set, err := ParseExtraction(commonColdJSON)
	require.NoError(t, err)

	next, err := f.merger.MergeIntoRecord(context.Background(), f.patientID, set)

	require.NoError(t, err)
	assert.Equal(t, int64(1), next.Version)
	stored := f.records.get(f.patientID)
	require.NotNil(t, stored)
	assert.Len(t, stored.Diagnoses, 1)
	assert.False(t, stored.ID.IsZero())
}

func TestMergeIntoRecordBumpsVersion(t *testing.T) {
	f := newFixture()
	existing := models.NewMedicalRecord("")
	existing.Allergies = []string{"Penicillin"}
	f.seed(existing)
	set := models.NewExtractedEntitySet()
	set.Allergies = []string{"Dust"}

	_, err := f.merger.MergeIntoRecord(context.Background(), f.patientID, set)
	require.NoError(t, err)
	_, err = f.merger.MergeIntoRecord(context.Background(), f.patientID, set)
	require.NoError(t, err)

	stored := f.records.get(f.patientID)
	assert.Equal(t, int64(2), stored.Version)
	assert.Equal(t, []string{"Penicillin", "Dust"}, stored.Allergies)
}

func TestMergeIntoRecordRetriesAfterConflict(t *testing.T) {
	f := newFixture()
	f.seed(models.NewMedicalRecord(""))
	f.records.conflicts = 1
	set := models.NewExtractedEntitySet()
	set.Diagnoses = []models.Diagnosis{{Disease: "Asthma"}}

	_, err := f.merger.MergeIntoRecord(context.Background(), f.patientID, set)

	require.NoError(t, err)
	assert.Equal(t, 2, f.records.updates)
	assert.Len(t, f.records.get(f.patientID).Diagnoses, 1)
}

func TestMergeIntoRecordGivesUpAfterRepeatedConflicts(t *testing.T) {
	f := newFixture()
	f.seed(models.NewMedicalRecord(""))
	f.records.conflicts = maxMergeAttempts
	set := models.NewExtractedEntitySet()
	set.Diagnoses = []models.Diagnosis{{Disease: "Asthma"}}

	_, err := f.merger.MergeIntoRecord(context.Background(), f.patientID, set)

	assert.ErrorIs(t, err, ErrConflict)
	assert.Empty(t, f.records.get(f.patientID).Diagnoses)
}

func TestMergeIntoRecordKeepsFieldsItDoesNotOwn(t *testing.T) {
	f := newFixture()
	existing := models.NewMedicalRecord("")
	existing.FamilyMedicalHistory = "Father: type 2 diabetes"
	existing.Allergies = []string{"Dust"}
	existing.Extra = bson.M{"blood_type": "O+"}
	f.seed(existing)
	set := models.NewExtractedEntitySet()
	set.Allergies = []string{"Pollen"}

	_, err := f.merger.MergeIntoRecord(context.Background(), f.patientID, set)
	require.NoError(t, err)

	assert.NotContains(t, f.records.lastSet, "blood_type")
	assert.NotContains(t, f.records.lastSet, "family_medical_history")
	assert.NotContains(t, f.records.lastSet, "_id")
	stored := f.records.get(f.patientID)
	assert.Equal(t, "O+", stored.Extra["blood_type"])
	assert.Equal(t, "Father: type 2 diabetes", stored.FamilyMedicalHistory)
	assert.Equal(t, []string{"Dust", "Pollen"}, stored.Allergies)
	assert.Equal(t, int64(1), stored.Version)
}

func TestVersionFilterMatchesLegacyRecords(t *testing.T) {
	legacy := models.NewMedicalRecord("p1")
	filter := versionFilter(legacy)
	assert.Contains(t, filter, "$or")

	legacy.Version = 4
	assert.Equal(t, int64(4), versionFilter(legacy)["version"])
}
