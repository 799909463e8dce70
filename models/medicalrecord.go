package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MedicalRecord holds the structure for the medical_records collection in mongo.
// There is exactly one record per patient, keyed by PatientID.
type MedicalRecord struct {
	ID                   primitive.ObjectID `json:"_id,omitempty" bson:"_id,omitempty"`
	PatientID            string             `json:"patient_id" bson:"patient_id"`
	CurrentMedications   []Entry            `json:"current_medications" bson:"current_medications"`
	Diagnoses            []Entry            `json:"diagnoses" bson:"diagnoses"`
	Prescriptions        []Entry            `json:"prescriptions" bson:"prescriptions"`
	ConsultationHistory  []Entry            `json:"consultation_history" bson:"consultation_history"`
	Reports              []ReportRef        `json:"reports" bson:"reports"`
	Allergies            []string           `json:"allergies" bson:"allergies"`
	Immunizations        []Entry            `json:"immunizations" bson:"immunizations"`
	FamilyMedicalHistory string             `json:"family_medical_history,omitempty" bson:"family_medical_history,omitempty"`
	Version              int64              `json:"version" bson:"version"`
	UpdatedAt            *time.Time         `json:"updated_at,omitempty" bson:"updated_at,omitempty"`

	// Extra keeps top-level fields written by other tools so they survive a
	// decode and re-encode
	Extra bson.M `json:"-" bson:",inline"`
}

// NewMedicalRecord returns an empty record for the given patient with every
// list initialised, matching what the registration flow writes.
func NewMedicalRecord(patientID string) *MedicalRecord {
	return &MedicalRecord{
		PatientID:           patientID,
		CurrentMedications:  []Entry{},
		Diagnoses:           []Entry{},
		Prescriptions:       []Entry{},
		ConsultationHistory: []Entry{},
		Reports:             []ReportRef{},
		Allergies:           []string{},
		Immunizations:       []Entry{},
	}
}

// Clone returns a copy whose slices can be appended to without touching r
func (r *MedicalRecord) Clone() *MedicalRecord {
	if r == nil {
		return nil
	}
	c := *r
	c.CurrentMedications = append([]Entry{}, r.CurrentMedications...)
	c.Diagnoses = append([]Entry{}, r.Diagnoses...)
	c.Prescriptions = append([]Entry{}, r.Prescriptions...)
	c.ConsultationHistory = append([]Entry{}, r.ConsultationHistory...)
	c.Reports = append([]ReportRef{}, r.Reports...)
	c.Allergies = append([]string{}, r.Allergies...)
	c.Immunizations = append([]Entry{}, r.Immunizations...)
	if r.UpdatedAt != nil {
		t := *r.UpdatedAt
		c.UpdatedAt = &t
	}
	if r.Extra != nil {
		c.Extra = make(bson.M, len(r.Extra))
		for k, v := range r.Extra {
			c.Extra[k] = v
		}
	}
	return &c
}

// HasReportContent reports whether a report entry already points at contentID
func (r *MedicalRecord) HasReportContent(contentID string) bool {
	for _, ref := range r.Reports {
		if ref.ContentID == contentID {
			return true
		}
	}
	return false
}

// ReportRef is the lightweight pointer stored in a record. The body lives in
// the report_contents collection under ContentID.
type ReportRef struct {
	ReportID   string    `json:"report_id" bson:"report_id"`
	ReportType string    `json:"report_type" bson:"report_type"`
	Date       time.Time `json:"date" bson:"date"`
	ContentID  string    `json:"content_id" bson:"content_id"`
}
