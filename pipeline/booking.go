package pipeline

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/kushalk47/aarogya-api/databases"
	"github.com/kushalk47/aarogya-api/models"
)

// ErrInvalidAppointmentTime is returned when the requested date or time cannot be parsed
var ErrInvalidAppointmentTime = errors.New("invalid appointment date or time, expected YYYY-MM-DD and HH:MM")

const appointmentLayout = "2006-01-02 15:04"

// Booker creates appointments and attaches a triage label to each one
type Booker struct {
	loader       *ContextLoader
	classifier   *SeverityClassifier
	appointments databases.AppointmentDatabase
	now          func() time.Time
}

// NewBooker returns a booker
func NewBooker(loader *ContextLoader, classifier *SeverityClassifier, appointments databases.AppointmentDatabase) *Booker {
	return &Booker{
		loader:       loader,
		classifier:   classifier,
		appointments: appointments,
		now:          time.Now,
	}
}

// Book stores a new appointment for patientID. Classification never blocks
// the booking; an unavailable model leaves the label Unknown.
func (b *Booker) Book(ctx context.Context, patientID string, req models.AppointmentRequest) (*models.Appointment, error) {
	at, err := time.ParseInLocation(appointmentLayout,
		strings.TrimSpace(req.AppointmentDate)+" "+strings.TrimSpace(req.AppointmentTime), time.UTC)
	if err != nil {
		return nil, ErrInvalidAppointmentTime
	}
	if _, err := b.loader.LoadDoctor(ctx, req.DoctorID); err != nil {
		return nil, err
	}
	pc, err := b.loader.Load(ctx, patientID)
	if err != nil {
		return nil, err
	}

	appointment := &models.Appointment{
		ID:                primitive.NewObjectID(),
		PatientID:         patientID,
		DoctorID:          req.DoctorID,
		AppointmentTime:   at,
		Reason:            req.Reason,
		PatientNotes:      req.PatientNotes,
		Status:            models.AppointmentScheduled,
		PredictedSeverity: b.classifier.ClassifySeverity(ctx, pc, req.Reason, req.PatientNotes),
		CreatedAt:         b.now().UTC(),
	}
	if _, err := b.appointments.InsertOne(ctx, appointment); err != nil {
		return nil, err
	}
	return appointment, nil
}

// SortByTriage orders appointments most urgent first, then by time
func SortByTriage(appointments []models.Appointment) {
	sort.SliceStable(appointments, func(i, j int) bool {
		ri, rj := appointments[i].PredictedSeverity.Rank(), appointments[j].PredictedSeverity.Rank()
		if ri != rj {
			return ri < rj
		}
		return appointments[i].AppointmentTime.Before(appointments[j].AppointmentTime)
	})
}
