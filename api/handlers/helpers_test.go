package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/mock"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/kushalk47/aarogya-api/api"
	"github.com/kushalk47/aarogya-api/databases/mocks"
	"github.com/kushalk47/aarogya-api/generation"
	"github.com/kushalk47/aarogya-api/pipeline"
)

// testEnv holds one patient and one doctor behind mocked collections
type testEnv struct {
	patientID string
	doctorID  string

	patients     *mocks.PatientDatabase
	doctors      *mocks.DoctorDatabase
	records      *mocks.MedicalRecordDatabase
	contents     *mocks.ReportContentDatabase
	appointments *mocks.AppointmentDatabase
	pending      *mocks.PendingExtractionDatabase

	store  *pipeline.ContentStore
	loader *pipeline.ContextLoader
}

func newTestEnv() *testEnv {
	patientOID := primitive.NewObjectID()
	doctorOID := primitive.NewObjectID()
	e := &testEnv{
		patientID:    patientOID.Hex(),
		doctorID:     doctorOID.Hex(),
		patients:     &mocks.PatientDatabase{},
		doctors:      &mocks.DoctorDatabase{},
		records:      &mocks.MedicalRecordDatabase{},
		contents:     &mocks.ReportContentDatabase{},
		appointments: &mocks.AppointmentDatabase{},
		pending:      &mocks.PendingExtractionDatabase{},
	}
	e.patients.On("FindOne", mock.Anything, bson.M{"_id": patientOID}).Return(bson.M{
		"_id":      patientOID,
		"name":     bson.M{"first": "Asha", "last": "Rao"},
		"email":    "asha@example.com",
		"password": "$2a$10$hash",
	}, nil)
	e.patients.On("FindOne", mock.Anything, mock.Anything).Return(nil, mongo.ErrNoDocuments)
	e.doctors.On("FindOne", mock.Anything, bson.M{"_id": doctorOID}).Return(bson.M{
		"_id":       doctorOID,
		"name":      bson.M{"first": "Vikram", "last": "Shah"},
		"specialty": "General Medicine",
	}, nil)
	e.doctors.On("FindOne", mock.Anything, mock.Anything).Return(nil, mongo.ErrNoDocuments)

	e.store = pipeline.NewContentStore(e.contents)
	e.loader = pipeline.NewContextLoader(e.patients, e.doctors, e.records, e.store)
	return e
}

func (e *testEnv) noRecord() {
	e.records.On("FindOne", mock.Anything, mock.Anything).Return(nil, mongo.ErrNoDocuments)
}

func (e *testEnv) patient() api.Principal {
	return api.Principal{ID: e.patientID, UserType: api.UserTypePatient}
}

func (e *testEnv) doctor() api.Principal {
	return api.Principal{ID: e.doctorID, UserType: api.UserTypeDoctor}
}

func reply(text string) generation.Generator {
	return generation.GeneratorFunc(func(context.Context, string) (string, error) {
		return text, nil
	})
}

func failing(err error) generation.Generator {
	return generation.GeneratorFunc(func(context.Context, string) (string, error) {
		return "", err
	})
}

func newRequest(method, url string, body interface{}, p *api.Principal, vars map[string]string) *http.Request {
	var buf bytes.Buffer
	if body != nil {
		json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, url, &buf)
	if p != nil {
		req = req.WithContext(api.WithPrincipal(req.Context(), *p))
	}
	if vars != nil {
		req = mux.SetURLVars(req, vars)
	}
	return req
}

func serve(h http.HandlerFunc, req *http.Request) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

var errNoDocuments = mongo.ErrNoDocuments
