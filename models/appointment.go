package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Appointment statuses
const (
	AppointmentScheduled    = "Scheduled"
	AppointmentReadyForCall = "ReadyForCall"
	AppointmentCompleted    = "Completed"
)

// Appointment holds the structure for the appointments collection in mongo
type Appointment struct {
	ID                primitive.ObjectID `json:"_id" bson:"_id,omitempty"`
	PatientID         string             `json:"patient_id" bson:"patient_id"`
	DoctorID          string             `json:"doctor_id" bson:"doctor_id"`
	AppointmentTime   time.Time          `json:"appointment_time" bson:"appointment_time"`
	Reason            string             `json:"reason,omitempty" bson:"reason,omitempty"`
	PatientNotes      string             `json:"patient_notes,omitempty" bson:"patient_notes,omitempty"`
	Status            string             `json:"status" bson:"status"`
	MeetLink          string             `json:"gmeet_link,omitempty" bson:"gmeet_link,omitempty"`
	PredictedSeverity SeverityLabel      `json:"predicted_severity" bson:"predicted_severity"`
	CreatedAt         time.Time          `json:"created_at" bson:"created_at"`
	CompletedAt       *time.Time         `json:"completed_at,omitempty" bson:"completed_at,omitempty"`
}

// AppointmentRequest is the body accepted by the booking endpoint
type AppointmentRequest struct {
	DoctorID        string `json:"doctor_id"`
	AppointmentDate string `json:"appointment_date"`
	AppointmentTime string `json:"appointment_time"`
	Reason          string `json:"reason"`
	PatientNotes    string `json:"patient_notes"`
}

// CallLinkRequest carries the meeting link a doctor attaches to an appointment
type CallLinkRequest struct {
	MeetLink string `json:"gmeet_link"`
}

// CallLinkResponse confirms a stored meeting link
type CallLinkResponse struct {
	Message  string `json:"message"`
	MeetLink string `json:"gmeet_link"`
}

// AppointmentBookedEvent is pushed to the booked doctor's notification feed
type AppointmentBookedEvent struct {
	Type              string        `json:"type"`
	AppointmentID     string        `json:"appointment_id"`
	PatientID         string        `json:"patient_id"`
	PredictedSeverity SeverityLabel `json:"predicted_severity"`
	AppointmentTime   time.Time     `json:"appointment_time"`
}

// NewAppointmentBookedEvent describes a freshly booked appointment
func NewAppointmentBookedEvent(a *Appointment) AppointmentBookedEvent {
	return AppointmentBookedEvent{
		Type:              "appointment_booked",
		AppointmentID:     a.ID.Hex(),
		PatientID:         a.PatientID,
		PredictedSeverity: a.PredictedSeverity,
		AppointmentTime:   a.AppointmentTime,
	}
}
