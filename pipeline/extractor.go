package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.uber.org/zap"

	"github.com/kushalk47/aarogya-api/generation"
	"github.com/kushalk47/aarogya-api/models"
)

// The five categories the extractor asks for, in prompt order
const (
	categoryMedications   = "medications"
	categoryDiagnoses     = "diagnoses"
	categoryAllergies     = "allergies"
	categoryConsultations = "consultations"
	categoryImmunizations = "immunizations"
)

// Extractor pulls structured clinical entities out of report text
type Extractor struct {
	gen generation.Generator
}

// NewExtractor returns an extractor using gen
func NewExtractor(gen generation.Generator) *Extractor {
	return &Extractor{gen: gen}
}

// Extract asks the generator for the entities mentioned in reportText. A failed
// call returns *ExtractionError and unparseable output *MalformedOutputError;
// neither is ever turned into an empty set. A single wrong-typed category is
// logged and replaced with an empty list.
func (e *Extractor) Extract(ctx context.Context, reportText string, pc PatientContext, doctor bson.M) (models.ExtractedEntitySet, error) {
	if strings.TrimSpace(reportText) == "" {
		return models.NewExtractedEntitySet(), nil
	}

	raw, err := e.gen.Generate(ctx, extractionPrompt(reportText, pc, doctor))
	if err != nil {
		return models.ExtractedEntitySet{}, &ExtractionError{Err: err}
	}
	return ParseExtraction(raw)
}

// ParseExtraction turns raw generated text into an entity set
func ParseExtraction(raw string) (models.ExtractedEntitySet, error) {
	cleaned := stripCodeFences(raw)

	var doc map[string]interface{}
	if err := json.Unmarshal([]byte(cleaned), &doc); err != nil {
		zap.S().Errorw("extraction output is not valid JSON", "error", err, "raw", raw)
		return models.ExtractedEntitySet{}, &MalformedOutputError{Raw: raw, Err: err}
	}
	if doc == nil {
		err := fmt.Errorf("expected a JSON object, got null")
		zap.S().Errorw("extraction output is not a JSON object", "raw", raw)
		return models.ExtractedEntitySet{}, &MalformedOutputError{Raw: raw, Err: err}
	}

	set := models.NewExtractedEntitySet()
	for _, item := range category(doc, categoryMedications) {
		if m, ok := item.(map[string]interface{}); ok {
			set.Medications = append(set.Medications, models.Medication{
				Name:      firstString(m, "name", "medication"),
				Dosage:    stringAt(m, "dosage"),
				Frequency: stringAt(m, "frequency"),
				StartDate: stringAt(m, "start_date"),
				EndDate:   stringAt(m, "end_date"),
				Notes:     stringAt(m, "notes"),
			})
		} else if s, ok := item.(string); ok && strings.TrimSpace(s) != "" {
			set.Medications = append(set.Medications, models.Medication{Name: s})
		} else {
			skipElement(categoryMedications, item)
		}
	}
	for _, item := range category(doc, categoryDiagnoses) {
		if m, ok := item.(map[string]interface{}); ok {
			year, _ := intAt(m, "year")
			set.Diagnoses = append(set.Diagnoses, models.Diagnosis{
				Disease:       firstString(m, "disease", "name", "diagnosis"),
				Year:          year,
				DiagnosisDate: stringAt(m, "diagnosis_date"),
				Notes:         stringAt(m, "notes"),
			})
		} else if s, ok := item.(string); ok && strings.TrimSpace(s) != "" {
			set.Diagnoses = append(set.Diagnoses, models.Diagnosis{Disease: s})
		} else {
			skipElement(categoryDiagnoses, item)
		}
	}
	for _, item := range category(doc, categoryAllergies) {
		if s, ok := item.(string); ok && strings.TrimSpace(s) != "" {
			set.Allergies = append(set.Allergies, strings.TrimSpace(s))
		} else {
			skipElement(categoryAllergies, item)
		}
	}
	for _, item := range category(doc, categoryConsultations) {
		if m, ok := item.(map[string]interface{}); ok {
			set.Consultations = append(set.Consultations, models.Consultation{
				Date:          stringAt(m, "date"),
				Notes:         stringAt(m, "notes"),
				Diagnosis:     stringAt(m, "diagnosis"),
				FollowupDate:  stringAt(m, "followup_date"),
				DoctorID:      stringAt(m, "doctor_id"),
				AppointmentID: stringAt(m, "appointment_id"),
			})
		} else if s, ok := item.(string); ok && strings.TrimSpace(s) != "" {
			set.Consultations = append(set.Consultations, models.Consultation{Notes: s})
		} else {
			skipElement(categoryConsultations, item)
		}
	}
	for _, item := range category(doc, categoryImmunizations) {
		if m, ok := item.(map[string]interface{}); ok {
			set.Immunizations = append(set.Immunizations, models.Immunization{
				Vaccine:        firstString(m, "vaccine", "name"),
				Date:           stringAt(m, "date"),
				LotNumber:      stringAt(m, "lot_number"),
				AdministeredBy: stringAt(m, "administered_by"),
				Notes:          stringAt(m, "notes"),
			})
		} else if s, ok := item.(string); ok && strings.TrimSpace(s) != "" {
			set.Immunizations = append(set.Immunizations, models.Immunization{Vaccine: s})
		} else {
			skipElement(categoryImmunizations, item)
		}
	}
	return set, nil
}

// category returns the list stored under key. An absent key is an empty list;
// a present key of the wrong type is logged and also treated as empty.
func category(doc map[string]interface{}, key string) []interface{} {
	v, ok := doc[key]
	if !ok || v == nil {
		return nil
	}
	list, ok := v.([]interface{})
	if !ok {
		zap.S().Warnw("extraction category is not a list, using empty list",
			"category", key,
			"value", v)
		return nil
	}
	return list
}

func skipElement(key string, item interface{}) {
	zap.S().Warnw("skipping unusable extraction element", "category", key, "value", item)
}

// stripCodeFences removes a markdown fence around the payload and any prose
// before the first brace or after the last one
func stripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```")
		s = strings.TrimPrefix(s, "json")
		s = strings.TrimPrefix(s, "JSON")
	}
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "```")
	s = strings.TrimSpace(s)

	if !strings.HasPrefix(s, "{") {
		if i := strings.Index(s, "{"); i >= 0 {
			s = s[i:]
		}
	}
	if !strings.HasSuffix(s, "}") {
		if i := strings.LastIndex(s, "}"); i >= 0 {
			s = s[:i+1]
		}
	}
	return s
}

func extractionPrompt(reportText string, pc PatientContext, doctor bson.M) string {
	patientJSON, _ := json.MarshalIndent(Normalize(pc.Patient), "", "  ")
	recordJSON, _ := json.MarshalIndent(NormalizeRecord(pc.Record), "", "  ")
	doctorJSON, _ := json.MarshalIndent(Normalize(doctor), "", "  ")

	var b strings.Builder
	b.WriteString("You are an expert medical assistant. Read the medical report below and extract the clinical entities it mentions.\n")
	b.WriteString("Only extract information that is new or updated compared to the existing medical record shown for reference.\n\n")
	b.WriteString("Extract these categories:\n")
	b.WriteString("- medications: objects with name, dosage, frequency, start_date (YYYY-MM-DD), end_date (YYYY-MM-DD or null), notes\n")
	b.WriteString("- diagnoses: objects with disease, year (YYYY), diagnosis_date (YYYY-MM-DD or null), notes\n")
	b.WriteString("- allergies: plain strings\n")
	b.WriteString("- consultations: objects with date (YYYY-MM-DD), notes, diagnosis, followup_date (YYYY-MM-DD or null)\n")
	b.WriteString("- immunizations: objects with vaccine, date (YYYY-MM-DD), lot_number, administered_by, notes\n\n")
	fmt.Fprintf(&b, "Answer with a single JSON object whose keys are %q, %q, %q, %q and %q. ",
		categoryMedications, categoryDiagnoses, categoryAllergies, categoryConsultations, categoryImmunizations)
	b.WriteString("Use an empty list [] for any category the report does not mention. ")
	b.WriteString("Do not write any text before or after the JSON object.\n\n")
	b.WriteString("Reference context (do not copy into the output):\n---\n")
	fmt.Fprintf(&b, "Patient Information:\n%s\n\nMedical Record:\n%s\n\nDoctor Information:\n%s\n---\n\n", patientJSON, recordJSON, doctorJSON)
	fmt.Fprintf(&b, "Medical Report Text to Parse:\n---\n%s\n---\n\nJSON Output:", reportText)
	return b.String()
}
