package pipeline

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"

	"github.com/kushalk47/aarogya-api/databases"
	"github.com/kushalk47/aarogya-api/models"
)

const maxMergeAttempts = 3

// Merge returns the next record state after adding set to record. Every list
// category is appended to without deduplication; allergies are a
// case-sensitive set union. record is not modified; a nil record merges into
// an empty one.
func Merge(record *models.MedicalRecord, set models.ExtractedEntitySet) *models.MedicalRecord {
	if record == nil {
		record = models.NewMedicalRecord("")
	}
	next := record.Clone()
	for _, m := range set.Medications {
		next.CurrentMedications = append(next.CurrentMedications, m.Entry())
	}
	for _, d := range set.Diagnoses {
		next.Diagnoses = append(next.Diagnoses, d.Entry())
	}
	for _, c := range set.Consultations {
		next.ConsultationHistory = append(next.ConsultationHistory, c.Entry())
	}
	for _, i := range set.Immunizations {
		next.Immunizations = append(next.Immunizations, i.Entry())
	}
	next.Allergies = unionStrings(next.Allergies, set.Allergies)
	return next
}

func unionStrings(current, extra []string) []string {
	seen := make(map[string]struct{}, len(current)+len(extra))
	out := make([]string, 0, len(current)+len(extra))
	for _, s := range current {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	for _, s := range extra {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}

// RecordMerger applies changes to the single medical record of a patient.
// Writes are conditional on the version that was read; a lost race is retried
// from a fresh read a bounded number of times.
type RecordMerger struct {
	records databases.MedicalRecordDatabase
	now     func() time.Time
}

// NewRecordMerger returns a merger writing through records
func NewRecordMerger(records databases.MedicalRecordDatabase) *RecordMerger {
	return &RecordMerger{records: records, now: time.Now}
}

// MergeIntoRecord merges set into the patient's record, creating the record
// when the patient has none yet
func (m *RecordMerger) MergeIntoRecord(ctx context.Context, patientID string, set models.ExtractedEntitySet) (*models.MedicalRecord, error) {
	return m.Update(ctx, patientID, func(r *models.MedicalRecord) *models.MedicalRecord {
		return Merge(r, set)
	})
}

// Update reads the patient's record, applies mutate and writes back the fields
// the pipeline owns. Any other field on the stored document is left as is.
// mutate must be a pure function of its input since it may run again after a
// conflict.
func (m *RecordMerger) Update(ctx context.Context, patientID string, mutate func(*models.MedicalRecord) *models.MedicalRecord) (*models.MedicalRecord, error) {
	for attempt := 1; attempt <= maxMergeAttempts; attempt++ {
		current, err := m.records.FindOne(ctx, bson.M{"patient_id": patientID})
		fresh := false
		if errors.Is(err, mongo.ErrNoDocuments) {
			current = models.NewMedicalRecord(patientID)
			fresh = true
		} else if err != nil {
			return nil, err
		}

		next := mutate(current.Clone())
		next.PatientID = patientID
		next.Version = current.Version + 1
		now := m.now().UTC()
		next.UpdatedAt = &now

		if fresh {
			next.ID = primitive.NewObjectID()
			_, err := m.records.InsertOne(ctx, next)
			if mongo.IsDuplicateKeyError(err) {
				zap.S().Infow("medical record created concurrently, retrying merge",
					"patient_id", patientID,
					"attempt", attempt)
				continue
			}
			if err != nil {
				return nil, err
			}
			return next, nil
		}

		res, err := m.records.UpdateOne(ctx, versionFilter(current), recordUpdate(next))
		if err != nil {
			return nil, err
		}
		if res == nil || res.MatchedCount == 0 {
			zap.S().Infow("medical record changed since read, retrying merge",
				"patient_id", patientID,
				"version", current.Version,
				"attempt", attempt)
			continue
		}
		return next, nil
	}
	zap.S().Warnw("giving up on medical record update", "patient_id", patientID, "attempts", maxMergeAttempts)
	return nil, ErrConflict
}

// recordUpdate sets the lists the pipeline maintains plus the version stamp
func recordUpdate(r *models.MedicalRecord) bson.M {
	return bson.M{"$set": bson.M{
		"patient_id":           r.PatientID,
		"current_medications":  r.CurrentMedications,
		"diagnoses":            r.Diagnoses,
		"prescriptions":        r.Prescriptions,
		"consultation_history": r.ConsultationHistory,
		"reports":              r.Reports,
		"allergies":            r.Allergies,
		"immunizations":        r.Immunizations,
		"version":              r.Version,
		"updated_at":           r.UpdatedAt,
	}}
}

// versionFilter matches the record only if it still carries the version that
// was read. Records written before versioning have no version field.
func versionFilter(r *models.MedicalRecord) bson.M {
	if r.Version == 0 {
		return bson.M{
			"_id": r.ID,
			"$or": bson.A{
				bson.M{"version": bson.M{"$exists": false}},
				bson.M{"version": int64(0)},
			},
		}
	}
	return bson.M{"_id": r.ID, "version": r.Version}
}
