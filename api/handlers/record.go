package handlers

import (
	"net/http"

	"github.com/gorilla/mux"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/kushalk47/aarogya-api/api"
	"github.com/kushalk47/aarogya-api/config"
	"github.com/kushalk47/aarogya-api/databases"
	"github.com/kushalk47/aarogya-api/models"
	"github.com/kushalk47/aarogya-api/pipeline"
)

// Record exported for testing purposes
type Record struct {
	Loader   *pipeline.ContextLoader
	Patients databases.PatientDatabase
}

// RecordHandler returns the patient profile, medical record and resolved
// report bodies. "me" stands for the calling patient.
func (h Record) RecordHandler(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	patientID := mux.Vars(r)["patient_id"]
	if patientID == "me" {
		patientID = p.ID
	}
	if err := p.CanAccessPatient(patientID); err != nil {
		config.ErrorStatus("not allowed to access patient", http.StatusForbidden, w, err)
		return
	}

	pc, err := h.Loader.Load(r.Context(), patientID)
	if err != nil {
		config.ErrorStatus("failed to load patient", statusFor(err), w, err)
		return
	}

	patient, _ := pipeline.Normalize(pc.Patient).(map[string]interface{})
	delete(patient, "password")
	writeJSON(w, http.StatusOK, models.PatientRecordResponse{
		Patient:       patient,
		MedicalRecord: pc.Record,
		Reports:       pc.Reports,
	})
}

// PatientListHandler lists every registered patient for the calling doctor
func (h Record) PatientListHandler(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	if !p.IsDoctor() {
		config.ErrorStatus("only doctors can list patients", http.StatusForbidden, w, api.ErrForbidden)
		return
	}

	opts := options.Find().SetProjection(bson.M{
		"_id": 1, "email": 1, "name": 1, "first_name": 1, "last_name": 1, "phone_number": 1,
	})
	dbResp, err := h.Patients.Find(r.Context(), bson.M{}, opts)
	if err != nil {
		config.ErrorStatus("failed to get patients", http.StatusInternalServerError, w, err)
		return
	}
	patients := make([]models.PatientListItem, 0, len(dbResp))
	for _, doc := range dbResp {
		patients = append(patients, pipeline.PatientListEntry(doc))
	}
	writeJSON(w, http.StatusOK, patients)
}
