package pipeline

import (
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/kushalk47/aarogya-api/models"
)

// Normalize converts stored values into primitives that are safe to embed in a
// prompt or hand to encoding/json. Object ids become hex strings, timestamps
// become RFC 3339 strings, and documents and arrays are converted recursively.
func Normalize(v interface{}) interface{} {
	switch t := v.(type) {
	case nil:
		return nil
	case primitive.ObjectID:
		return t.Hex()
	case time.Time:
		return t.UTC().Format(time.RFC3339)
	case *time.Time:
		if t == nil {
			return nil
		}
		return t.UTC().Format(time.RFC3339)
	case primitive.DateTime:
		return t.Time().UTC().Format(time.RFC3339)
	case primitive.Timestamp:
		return time.Unix(int64(t.T), 0).UTC().Format(time.RFC3339)
	case bson.M:
		return normalizeMap(t)
	case map[string]interface{}:
		return normalizeMap(t)
	case primitive.D:
		return normalizeMap(t.Map())
	case primitive.A:
		return normalizeSlice(t)
	case []interface{}:
		return normalizeSlice(t)
	case []string:
		out := make([]interface{}, len(t))
		for i, s := range t {
			out[i] = s
		}
		return out
	case models.Entry:
		if t.IsDocument() {
			return normalizeMap(t.Fields)
		}
		return t.Text
	case []models.Entry:
		out := make([]interface{}, len(t))
		for i, e := range t {
			out[i] = Normalize(e)
		}
		return out
	default:
		return v
	}
}

func normalizeMap(m map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(m))
	for k, v := range m {
		out[k] = Normalize(v)
	}
	return out
}

func normalizeSlice(s []interface{}) []interface{} {
	out := make([]interface{}, len(s))
	for i, v := range s {
		out[i] = Normalize(v)
	}
	return out
}

// NormalizeRecord renders a medical record as a plain document
func NormalizeRecord(r *models.MedicalRecord) map[string]interface{} {
	if r == nil {
		return map[string]interface{}{}
	}
	reports := make([]interface{}, 0, len(r.Reports))
	for _, ref := range r.Reports {
		reports = append(reports, map[string]interface{}{
			"report_id":   ref.ReportID,
			"report_type": ref.ReportType,
			"date":        Normalize(ref.Date),
			"content_id":  ref.ContentID,
		})
	}
	out := map[string]interface{}{
		"patient_id":             r.PatientID,
		"current_medications":    Normalize(r.CurrentMedications),
		"diagnoses":              Normalize(r.Diagnoses),
		"prescriptions":          Normalize(r.Prescriptions),
		"consultation_history":   Normalize(r.ConsultationHistory),
		"allergies":              Normalize(r.Allergies),
		"immunizations":          Normalize(r.Immunizations),
		"family_medical_history": r.FamilyMedicalHistory,
		"reports":                reports,
	}
	return out
}
