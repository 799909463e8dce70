package models

import "go.mongodb.org/mongo-driver/bson"

// ExtractedEntitySet is the normalized result of one extraction call. It is
// never persisted as is; it is merged into a MedicalRecord and discarded.
type ExtractedEntitySet struct {
	Medications   []Medication   `json:"medications"`
	Diagnoses     []Diagnosis    `json:"diagnoses"`
	Allergies     []string       `json:"allergies"`
	Consultations []Consultation `json:"consultations"`
	Immunizations []Immunization `json:"immunizations"`
}

// NewExtractedEntitySet returns a set with every category empty but non-nil
func NewExtractedEntitySet() ExtractedEntitySet {
	return ExtractedEntitySet{
		Medications:   []Medication{},
		Diagnoses:     []Diagnosis{},
		Allergies:     []string{},
		Consultations: []Consultation{},
		Immunizations: []Immunization{},
	}
}

// Empty reports whether no category holds an entity
func (s ExtractedEntitySet) Empty() bool {
	return len(s.Medications) == 0 && len(s.Diagnoses) == 0 && len(s.Allergies) == 0 &&
		len(s.Consultations) == 0 && len(s.Immunizations) == 0
}

// Medication is an extracted current medication
type Medication struct {
	Name      string `json:"name"`
	Dosage    string `json:"dosage,omitempty"`
	Frequency string `json:"frequency,omitempty"`
	StartDate string `json:"start_date,omitempty"`
	EndDate   string `json:"end_date,omitempty"`
	Notes     string `json:"notes,omitempty"`
}

// Entry converts the medication to its stored document shape
func (m Medication) Entry() Entry {
	return DocumentEntry(compact(bson.M{
		"name":       m.Name,
		"dosage":     m.Dosage,
		"frequency":  m.Frequency,
		"start_date": m.StartDate,
		"end_date":   m.EndDate,
		"notes":      m.Notes,
	}))
}

// Diagnosis is an extracted diagnosis
type Diagnosis struct {
	Disease       string `json:"disease"`
	Year          int    `json:"year,omitempty"`
	DiagnosisDate string `json:"diagnosis_date,omitempty"`
	Notes         string `json:"notes,omitempty"`
}

// Entry converts the diagnosis to its stored document shape
func (d Diagnosis) Entry() Entry {
	fields := compact(bson.M{
		"disease":        d.Disease,
		"diagnosis_date": d.DiagnosisDate,
		"notes":          d.Notes,
	})
	if d.Year != 0 {
		fields["year"] = d.Year
	}
	return DocumentEntry(fields)
}

// Consultation is an extracted consultation
type Consultation struct {
	Date          string `json:"date,omitempty"`
	Notes         string `json:"notes,omitempty"`
	Diagnosis     string `json:"diagnosis,omitempty"`
	FollowupDate  string `json:"followup_date,omitempty"`
	DoctorID      string `json:"doctor_id,omitempty"`
	AppointmentID string `json:"appointment_id,omitempty"`
}

// Entry converts the consultation to its stored document shape
func (c Consultation) Entry() Entry {
	return DocumentEntry(compact(bson.M{
		"date":           c.Date,
		"notes":          c.Notes,
		"diagnosis":      c.Diagnosis,
		"followup_date":  c.FollowupDate,
		"doctor_id":      c.DoctorID,
		"appointment_id": c.AppointmentID,
	}))
}

// Immunization is an extracted immunization
type Immunization struct {
	Vaccine        string `json:"vaccine"`
	Date           string `json:"date,omitempty"`
	LotNumber      string `json:"lot_number,omitempty"`
	AdministeredBy string `json:"administered_by,omitempty"`
	Notes          string `json:"notes,omitempty"`
}

// Entry converts the immunization to its stored document shape
func (i Immunization) Entry() Entry {
	return DocumentEntry(compact(bson.M{
		"vaccine":         i.Vaccine,
		"date":            i.Date,
		"lot_number":      i.LotNumber,
		"administered_by": i.AdministeredBy,
		"notes":           i.Notes,
	}))
}

// compact drops empty string fields so stored documents only carry what the
// report actually mentioned
func compact(m bson.M) bson.M {
	for k, v := range m {
		if s, ok := v.(string); ok && s == "" {
			delete(m, k)
		}
	}
	return m
}
