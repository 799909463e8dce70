package handlers_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/kushalk47/aarogya-api/api"
	"github.com/kushalk47/aarogya-api/api/handlers"
	"github.com/kushalk47/aarogya-api/models"
)

func withPrincipal(p api.Principal, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		next.ServeHTTP(w, r.WithContext(api.WithPrincipal(r.Context(), p)))
	})
}

func TestNotifier_DeliversToConnectedDoctor(t *testing.T) {
	n := handlers.NewNotifier()
	doctor := api.Principal{ID: "doc-1", UserType: api.UserTypeDoctor}
	srv := httptest.NewServer(withPrincipal(doctor, n))
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	defer conn.Close()
	require.Eventually(t, func() bool { return n.Connections("doc-1") == 1 }, time.Second, 10*time.Millisecond)

	at := time.Date(2025, 6, 1, 10, 15, 0, 0, time.UTC)
	appointment := &models.Appointment{
		ID:                primitive.NewObjectID(),
		PatientID:         "p-1",
		DoctorID:          "doc-1",
		AppointmentTime:   at,
		PredictedSeverity: models.SeverityVerySerious,
	}
	n.Notify("doc-2", models.NewAppointmentBookedEvent(appointment))
	n.Notify("doc-1", models.NewAppointmentBookedEvent(appointment))

	var got models.AppointmentBookedEvent
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(time.Second)))
	require.NoError(t, conn.ReadJSON(&got))
	assert.Equal(t, "appointment_booked", got.Type)
	assert.Equal(t, appointment.ID.Hex(), got.AppointmentID)
	assert.Equal(t, "p-1", got.PatientID)
	assert.Equal(t, models.SeverityVerySerious, got.PredictedSeverity)
	assert.True(t, got.AppointmentTime.Equal(at))

	conn.Close()
	assert.Eventually(t, func() bool { return n.Connections("doc-1") == 0 }, time.Second, 10*time.Millisecond)
}

func TestNotifier_DropsSocketThatMissesWriteDeadline(t *testing.T) {
	n := handlers.NewNotifier()
	n.WriteTimeout = time.Nanosecond
	doctor := api.Principal{ID: "doc-1", UserType: api.UserTypeDoctor}
	srv := httptest.NewServer(withPrincipal(doctor, n))
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	defer conn.Close()
	require.Eventually(t, func() bool { return n.Connections("doc-1") == 1 }, time.Second, 10*time.Millisecond)

	done := make(chan struct{})
	go func() {
		n.Notify("doc-1", models.AppointmentBookedEvent{Type: "appointment_booked"})
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("notify blocked on the socket")
	}
	assert.Equal(t, 0, n.Connections("doc-1"))
}

func TestNotifier_RejectsPatients(t *testing.T) {
	n := handlers.NewNotifier()
	req := httptest.NewRequest("GET", "/api/v1/notifications/ws", nil)
	req = req.WithContext(api.WithPrincipal(req.Context(), api.Principal{ID: "p-1", UserType: api.UserTypePatient}))
	rr := httptest.NewRecorder()

	n.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusForbidden, rr.Code)
	assert.Equal(t, 0, n.Connections("p-1"))
}
