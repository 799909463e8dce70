package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/kushalk47/aarogya-api/api"
	"github.com/kushalk47/aarogya-api/config"
	"github.com/kushalk47/aarogya-api/databases"
	"github.com/kushalk47/aarogya-api/models"
	"github.com/kushalk47/aarogya-api/pipeline"
)

// Appointment exported for testing purposes
type Appointment struct {
	Booker   *pipeline.Booker
	DB       databases.AppointmentDatabase
	Notifier *Notifier
}

// CreateAppointmentHandler books an appointment for the calling patient and
// notifies the doctor
func (a Appointment) CreateAppointmentHandler(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	if !p.IsPatient() {
		config.ErrorStatus("only patients can book appointments", http.StatusForbidden, w, api.ErrForbidden)
		return
	}

	var req models.AppointmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		config.ErrorStatus("failed to decode request", http.StatusBadRequest, w, err)
		return
	}
	defer r.Body.Close()
	if req.DoctorID == "" {
		config.ErrorStatus("doctor_id is required", http.StatusBadRequest, w, pipeline.ErrDoctorNotFound)
		return
	}

	appointment, err := a.Booker.Book(r.Context(), p.ID, req)
	if err != nil {
		config.ErrorStatus("failed to book appointment", statusFor(err), w, err)
		return
	}
	if a.Notifier != nil {
		a.Notifier.Notify(appointment.DoctorID, models.NewAppointmentBookedEvent(appointment))
	}
	writeJSON(w, http.StatusCreated, appointment)
}

// DoctorAppointmentsHandler lists the calling doctor's open appointments, most
// urgent first
func (a Appointment) DoctorAppointmentsHandler(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	if !p.IsDoctor() {
		config.ErrorStatus("only doctors can list appointments", http.StatusForbidden, w, api.ErrForbidden)
		return
	}

	dbResp, err := a.DB.Find(r.Context(), bson.M{
		"doctor_id": p.ID,
		"status":    bson.M{"$in": []string{models.AppointmentScheduled, models.AppointmentReadyForCall}},
	})
	if err != nil {
		config.ErrorStatus("failed to get appointments", http.StatusInternalServerError, w, err)
		return
	}
	// the frontend expects a list, never null
	if len(dbResp) == 0 {
		dbResp = []models.Appointment{}
	}
	pipeline.SortByTriage(dbResp)
	writeJSON(w, http.StatusOK, dbResp)
}

// SetCallLinkHandler stores the meeting link for one of the calling doctor's
// appointments and marks it ready for the call
func (a Appointment) SetCallLinkHandler(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	if !p.IsDoctor() {
		config.ErrorStatus("only doctors can set call links", http.StatusForbidden, w, api.ErrForbidden)
		return
	}

	var req models.CallLinkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		config.ErrorStatus("failed to decode request", http.StatusBadRequest, w, err)
		return
	}
	defer r.Body.Close()
	link := strings.TrimSpace(req.MeetLink)
	if link == "" {
		config.ErrorStatus("gmeet_link is required", http.StatusBadRequest, w, pipeline.ErrEmptyInput)
		return
	}

	appointment, ok := a.ownedAppointment(w, r, p)
	if !ok {
		return
	}
	_, err := a.DB.UpdateOne(r.Context(), bson.M{"_id": appointment.ID}, bson.M{
		"$set": bson.M{"status": models.AppointmentReadyForCall, "gmeet_link": link},
	})
	if err != nil {
		config.ErrorStatus("failed to set call link", http.StatusInternalServerError, w, err)
		return
	}
	writeJSON(w, http.StatusOK, models.CallLinkResponse{
		Message:  "Call link saved and appointment status updated.",
		MeetLink: link,
	})
}

// CompleteAppointmentHandler marks one of the calling doctor's appointments as
// completed
func (a Appointment) CompleteAppointmentHandler(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	if !p.IsDoctor() {
		config.ErrorStatus("only doctors can complete appointments", http.StatusForbidden, w, api.ErrForbidden)
		return
	}

	appointment, ok := a.ownedAppointment(w, r, p)
	if !ok {
		return
	}
	_, err := a.DB.UpdateOne(r.Context(), bson.M{"_id": appointment.ID}, bson.M{
		"$set": bson.M{"status": models.AppointmentCompleted, "completed_at": time.Now().UTC()},
	})
	if err != nil {
		config.ErrorStatus("failed to complete appointment", http.StatusInternalServerError, w, err)
		return
	}
	writeJSON(w, http.StatusOK, models.MessageResponse{Message: "Appointment marked as completed."})
}

// ownedAppointment loads the appointment named in the path, answering 404 when
// it does not exist or belongs to another doctor
func (a Appointment) ownedAppointment(w http.ResponseWriter, r *http.Request, p api.Principal) (*models.Appointment, bool) {
	id := mux.Vars(r)["appointment_id"]
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		config.ErrorStatus("invalid appointment id", http.StatusBadRequest, w, err)
		return nil, false
	}
	appointment, err := a.DB.FindOne(r.Context(), bson.M{"_id": oid, "doctor_id": p.ID})
	if errors.Is(err, mongo.ErrNoDocuments) {
		config.ErrorStatus("appointment not found or does not belong to this doctor", http.StatusNotFound, w, err)
		return nil, false
	}
	if err != nil {
		config.ErrorStatus("failed to get appointment", http.StatusInternalServerError, w, err)
		return nil, false
	}
	return appointment, true
}
