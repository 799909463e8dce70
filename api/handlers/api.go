package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/kushalk47/aarogya-api/api"
	"github.com/kushalk47/aarogya-api/config"
	"github.com/kushalk47/aarogya-api/databases"
	"github.com/kushalk47/aarogya-api/generation"
	"github.com/kushalk47/aarogya-api/models"
	"github.com/kushalk47/aarogya-api/pipeline"
)

// App stores the router and db connection, so it can be reused
type App struct {
	Router    *mux.Router
	Config    config.Config
	Generator generation.Generator
	Notifier  *Notifier
	Services  *Services

	client   databases.ClientHelper
	dbHelper databases.DatabaseHelper
}

// Services bundles the collections and pipeline components shared by the
// handlers and the extraction retry job
type Services struct {
	Patients     databases.PatientDatabase
	Doctors      databases.DoctorDatabase
	Records      databases.MedicalRecordDatabase
	Appointments databases.AppointmentDatabase
	Pending      databases.PendingExtractionDatabase

	Contents  *pipeline.ContentStore
	Loader    *pipeline.ContextLoader
	Assistant *pipeline.Assistant
	Processor *pipeline.ReportProcessor
	Booker    *pipeline.Booker
}

// NewServices wires the pipeline on top of db using gen for every model call
func NewServices(db databases.DatabaseHelper, gen generation.Generator, maxAttempts int) *Services {
	s := &Services{
		Patients:     databases.NewPatientDatabase(db),
		Doctors:      databases.NewDoctorDatabase(db),
		Records:      databases.NewMedicalRecordDatabase(db),
		Appointments: databases.NewAppointmentDatabase(db),
		Pending:      databases.NewPendingExtractionDatabase(db),
	}
	s.Contents = pipeline.NewContentStore(databases.NewReportContentDatabase(db))
	s.Loader = pipeline.NewContextLoader(s.Patients, s.Doctors, s.Records, s.Contents)
	s.Assistant = pipeline.NewAssistant(gen)
	s.Processor = pipeline.NewReportProcessor(s.Loader, s.Contents, pipeline.NewExtractor(gen),
		pipeline.NewRecordMerger(s.Records), s.Pending, maxAttempts)
	s.Booker = pipeline.NewBooker(s.Loader, pipeline.NewSeverityClassifier(gen), s.Appointments)
	return s
}

// New creates a new mux router and all the routes
func (a *App) New() *mux.Router {
	if a.Generator == nil {
		a.Generator = generation.Unavailable()
	}
	if a.Services == nil {
		a.Services = NewServices(a.dbHelper, a.Generator, a.Config.ExtractionMaxAttempt)
	}
	if a.Notifier == nil {
		a.Notifier = NewNotifier()
	}
	s := a.Services

	g := api.NewGuard(s.Patients, s.Doctors, a.tokenTTL())
	timeout := api.TimeoutMiddleware(a.requestTimeout())
	protect := func(h http.HandlerFunc) http.Handler {
		return g.Middleware(timeout(h))
	}

	ap := Appointment{Booker: s.Booker, DB: s.Appointments, Notifier: a.Notifier}
	rep := Report{Loader: s.Loader, Assistant: s.Assistant, Processor: s.Processor, Contents: s.Contents}
	chat := Chat{Loader: s.Loader, Assistant: s.Assistant}
	rec := Record{Loader: s.Loader, Patients: s.Patients}

	r := mux.NewRouter()
	r.Use(api.LoggingMiddleware)

	// healthchex
	r.HandleFunc("/health", healthCheckHandler)

	apiCreate := r.PathPrefix("/api/v1").Subrouter()

	apiCreate.Handle("/auth/token", g.Middleware(http.HandlerFunc(g.CreateToken))).Methods("POST")
	apiCreate.Handle("/auth/logout", g.Middleware(http.HandlerFunc(g.RevokeToken))).Methods("DELETE")

	apiCreate.Handle("/appointments", protect(ap.CreateAppointmentHandler)).Methods("POST")
	apiCreate.Handle("/doctor/appointments", protect(ap.DoctorAppointmentsHandler)).Methods("GET")
	apiCreate.Handle("/appointments/{appointment_id}/call-link", protect(ap.SetCallLinkHandler)).Methods("POST")
	apiCreate.Handle("/appointments/{appointment_id}/complete", protect(ap.CompleteAppointmentHandler)).Methods("POST")
	apiCreate.Handle("/patients", protect(rec.PatientListHandler)).Methods("GET")

	apiCreate.Handle("/patients/{patient_id}/record", protect(rec.RecordHandler)).Methods("GET")
	apiCreate.Handle("/patients/{patient_id}/chat", protect(chat.ChatHandler)).Methods("POST")
	apiCreate.Handle("/patients/{patient_id}/reports/format", protect(rep.FormatReportHandler)).Methods("POST")
	apiCreate.Handle("/patients/{patient_id}/reports", protect(rep.SaveReportHandler)).Methods("POST")
	apiCreate.Handle("/report-contents/{content_id}", protect(rep.ReportContentHandler)).Methods("GET")
	apiCreate.Handle("/wellness", protect(chat.WellnessHandler)).Methods("GET")

	// the websocket upgrade hijacks the connection so it skips the timeout
	apiCreate.Handle("/notifications/ws", g.Middleware(a.Notifier)).Methods("GET")

	return r
}

// Initialize is invoked by main to connect with the database and create a router
func (a *App) Initialize() error {
	client, err := databases.NewClient(&a.Config)
	if err != nil {
		// if we fail to create a new database client, then kill the pod
		zap.S().With(err).Error("failed to create new client")
		return err
	}
	a.client = client
	a.dbHelper = databases.NewDatabase(&a.Config, client)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	err = client.Connect(ctx)
	if err != nil {
		// if we fail to connect to the database, then kill the pod
		zap.S().With(err).Error("failed to connect to database")
		return err
	}
	zap.S().Info("aarogya-api has connected to the database")

	if a.Generator == nil {
		a.Generator = generation.NewClient(&a.Config)
	}
	a.Services = NewServices(a.dbHelper, a.Generator, a.Config.ExtractionMaxAttempt)
	if err := a.Services.Records.EnsureIndexes(ctx); err != nil {
		zap.S().Warnw("failed to ensure medical record indexes", "error", err)
	}

	// initialize api router
	a.initializeRoutes()
	return nil
}

// Close disconnects from the database
func (a *App) Close(ctx context.Context) error {
	if a.client == nil {
		return nil
	}
	return a.client.Disconnect(ctx)
}

func (a *App) initializeRoutes() {
	a.Router = a.New()
}

func (a *App) tokenTTL() time.Duration {
	if a.Config.TokenTTL > 0 {
		return a.Config.TokenTTL
	}
	return 10 * time.Minute
}

func (a *App) requestTimeout() time.Duration {
	if a.Config.RequestTimeout > 0 {
		return a.Config.RequestTimeout
	}
	return 90 * time.Second
}

func healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	b, _ := json.Marshal(models.HealthCheckResponse{
		Alive: true,
	})
	_, _ = io.WriteString(w, string(b))
}

// principal reads the authenticated caller, answering 401 when it is missing
func principal(w http.ResponseWriter, r *http.Request) (api.Principal, bool) {
	p, ok := api.PrincipalFromContext(r.Context())
	if !ok {
		config.ErrorStatus("unauthorized", http.StatusUnauthorized, w, api.ErrForbidden)
	}
	return p, ok
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	b, err := json.Marshal(v)
	if err != nil {
		config.ErrorStatus("failed to marshal response", http.StatusInternalServerError, w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(b)
}

// writeFailure answers a failed model-backed call with a generic message and
// the caller's input echoed back
func writeFailure(w http.ResponseWriter, err error, message, input string) {
	zap.S().Errorw(message, "error", err)
	writeJSON(w, statusFor(err), models.FailureResponse{Error: message, Input: input})
}

func statusFor(err error) int {
	var failure *generation.Failure
	switch {
	case errors.Is(err, pipeline.ErrEmptyInput), errors.Is(err, pipeline.ErrInvalidAppointmentTime):
		return http.StatusBadRequest
	case errors.Is(err, api.ErrForbidden), errors.Is(err, pipeline.ErrContentNotOwned):
		return http.StatusForbidden
	case errors.Is(err, pipeline.ErrPatientNotFound), errors.Is(err, pipeline.ErrDoctorNotFound),
		errors.Is(err, pipeline.ErrContentNotFound):
		return http.StatusNotFound
	case errors.Is(err, pipeline.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, generation.ErrUnavailable):
		return http.StatusServiceUnavailable
	case errors.As(err, &failure):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}
