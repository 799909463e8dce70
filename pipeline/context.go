package pipeline

import (
	"fmt"
	"strings"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/kushalk47/aarogya-api/models"
)

// PatientContext is the per-request snapshot handed to every generation prompt.
// It is built fresh for each request and never written back.
type PatientContext struct {
	Patient bson.M
	Record  *models.MedicalRecord
	Reports []models.ReportDisplay
}

// FormatPatientContext renders the patient profile and record as a fixed,
// labelled text block. Absent values print a placeholder so the same input
// always yields the same text. Only resolved reports are listed.
func FormatPatientContext(pc PatientContext) string {
	if len(pc.Patient) == 0 && pc.Record == nil {
		return "No patient data available."
	}

	var b strings.Builder
	if len(pc.Patient) > 0 {
		writePatientInfo(&b, pc.Patient)
	}

	b.WriteString("\n--- Medical Record ---\n")
	if pc.Record == nil {
		b.WriteString("No medical record details available.\n")
		return b.String()
	}
	r := pc.Record

	if len(r.Allergies) > 0 {
		fmt.Fprintf(&b, "Allergies: %s\n", strings.Join(r.Allergies, ", "))
	} else {
		b.WriteString("Allergies: None\n")
	}
	fmt.Fprintf(&b, "Family Medical History: %s\n", orDefault(r.FamilyMedicalHistory, "None provided."))

	writeEntries(&b, "Current Medications", r.CurrentMedications, formatMedication)
	writeEntries(&b, "Diagnoses", r.Diagnoses, formatDiagnosis)
	writeEntries(&b, "Prescriptions", r.Prescriptions, formatPrescription)
	writeEntries(&b, "Consultation History", r.ConsultationHistory, formatConsultation)
	writeReports(&b, pc.Reports)
	writeEntries(&b, "Immunizations", r.Immunizations, formatImmunization)

	return b.String()
}

// FormatDoctor renders the clinician header used in report prompts
func FormatDoctor(doctor bson.M) string {
	if len(doctor) == 0 {
		return "No doctor data available."
	}
	first, last := personName(doctor)
	var b strings.Builder
	fmt.Fprintf(&b, "Doctor Name: Dr. %s\n", strings.TrimSpace(orDefault(first, placeholder)+" "+last))
	fmt.Fprintf(&b, "Specialty: %s\n", orDefault(stringAt(doctor, "specialty"), placeholder))
	fmt.Fprintf(&b, "Contact: %s | %s", orDefault(stringAt(doctor, "phone_number"), placeholder), orDefault(stringAt(doctor, "email"), placeholder))
	return b.String()
}

// PatientListEntry reduces a patient profile to the fields of the patient list
func PatientListEntry(doc bson.M) models.PatientListItem {
	first, last := personName(doc)
	return models.PatientListItem{
		ID:            stringAt(doc, "_id"),
		Email:         stringAt(doc, "email"),
		FirstName:     first,
		LastName:      last,
		ContactNumber: firstString(doc, "phone_number", "contact_number"),
	}
}

// personName reads a nested {first, last} name and falls back to flat fields
func personName(doc bson.M) (string, string) {
	first := stringAt(doc, "name", "first")
	if first == "" {
		first = stringAt(doc, "first_name")
	}
	last := stringAt(doc, "name", "last")
	if last == "" {
		last = stringAt(doc, "last_name")
	}
	if first == "" && last == "" {
		if full, ok := doc["name"].(string); ok {
			first = full
		}
	}
	return first, last
}

func writePatientInfo(b *strings.Builder, p bson.M) {
	fmt.Fprintf(b, "Patient ID: %s\n", orDefault(stringAt(p, "_id"), placeholder))

	first, last := personName(p)
	fmt.Fprintf(b, "Name: %s\n", strings.TrimSpace(orDefault(first, placeholder)+" "+last))
	fmt.Fprintf(b, "Email: %s\n", orDefault(stringAt(p, "email"), placeholder))
	fmt.Fprintf(b, "Age: %s\n", orDefault(stringAt(p, "age"), placeholder))
	fmt.Fprintf(b, "Gender: %s\n", orDefault(stringAt(p, "gender"), placeholder))
	fmt.Fprintf(b, "Phone: %s\n", orDefault(stringAt(p, "phone_number"), placeholder))
	fmt.Fprintf(b, "Address: %s, %s, %s, %s, %s\n",
		orDefault(stringAt(p, "address", "street"), placeholder),
		orDefault(stringAt(p, "address", "city"), placeholder),
		orDefault(stringAt(p, "address", "state"), placeholder),
		orDefault(stringAt(p, "address", "zip"), placeholder),
		orDefault(stringAt(p, "address", "country"), placeholder))
	if reg := stringAt(p, "registration_date"); reg != "" {
		fmt.Fprintf(b, "Registration Date: %s\n", reg)
	}
	if dob := stringAt(p, "date_of_birth"); dob != "" {
		fmt.Fprintf(b, "Date of Birth: %s\n", dob)
	}
}

func writeEntries(b *strings.Builder, label string, entries []models.Entry, format func(bson.M) string) {
	if len(entries) == 0 {
		fmt.Fprintf(b, "%s: None\n", label)
		return
	}
	fmt.Fprintf(b, "%s:\n", label)
	for _, e := range entries {
		if e.IsDocument() {
			fmt.Fprintf(b, "- %s\n", format(e.Fields))
		} else {
			fmt.Fprintf(b, "- %s\n", orDefault(e.Text, placeholder))
		}
	}
}

func writeReports(b *strings.Builder, reports []models.ReportDisplay) {
	if len(reports) == 0 {
		b.WriteString("Reports: None\n")
		return
	}
	b.WriteString("Reports:\n")
	for _, r := range reports {
		date := placeholder
		if !r.Date.IsZero() {
			date = r.Date.UTC().Format("2006-01-02")
		}
		fmt.Fprintf(b, "- %s on %s: %s\n", orDefault(r.ReportType, "Report"), date, orDefault(r.Content, "Content not available."))
	}
}

func formatMedication(m bson.M) string {
	return fmt.Sprintf("%s (%s, %s)",
		orDefault(firstString(m, "name", "medication", "drug"), placeholder),
		orDefault(stringAt(m, "dosage"), placeholder),
		orDefault(stringAt(m, "frequency"), placeholder))
}

func formatDiagnosis(m bson.M) string {
	return fmt.Sprintf("%s (Year: %s)",
		orDefault(firstString(m, "disease", "name", "diagnosis"), placeholder),
		orDefault(firstString(m, "year", "diagnosis_date"), placeholder))
}

func formatPrescription(m bson.M) string {
	s := fmt.Sprintf("%s (%s, %s)",
		orDefault(firstString(m, "medication", "name", "drug"), placeholder),
		orDefault(stringAt(m, "dosage"), placeholder),
		orDefault(firstString(m, "instructions", "frequency"), placeholder))
	if d := stringAt(m, "date"); d != "" {
		s += " on " + d
	}
	return s
}

func formatConsultation(m bson.M) string {
	s := fmt.Sprintf("%s: %s",
		orDefault(stringAt(m, "date"), placeholder),
		orDefault(firstString(m, "notes", "summary"), placeholder))
	if d := stringAt(m, "diagnosis"); d != "" {
		s += " (Diagnosis: " + d + ")"
	}
	if f := stringAt(m, "followup_date"); f != "" {
		s += " Follow-up: " + f
	}
	return s
}

func formatImmunization(m bson.M) string {
	return fmt.Sprintf("%s on %s by %s. Lot: %s",
		orDefault(firstString(m, "vaccine", "name"), "Vaccine"),
		orDefault(stringAt(m, "date"), placeholder),
		orDefault(stringAt(m, "administered_by"), placeholder),
		orDefault(stringAt(m, "lot_number"), placeholder))
}
