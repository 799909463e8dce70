package pipeline

import (
	"context"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/kushalk47/aarogya-api/databases"
	"github.com/kushalk47/aarogya-api/generation"
	"github.com/kushalk47/aarogya-api/models"
)

// scriptedGenerator answers prompts from a queue and records every prompt
type scriptedGenerator struct {
	mu      sync.Mutex
	replies []reply
	prompts []string
}

type reply struct {
	text string
	err  error
}

func newScripted(replies ...reply) *scriptedGenerator {
	return &scriptedGenerator{replies: replies}
}

func (g *scriptedGenerator) Generate(_ context.Context, prompt string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.prompts = append(g.prompts, prompt)
	if len(g.replies) == 0 {
		return "", &generation.Failure{Category: generation.CategoryEmptyResponse}
	}
	r := g.replies[0]
	g.replies = g.replies[1:]
	return r.text, r.err
}

func (g *scriptedGenerator) calls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.prompts)
}

type fakeRecords struct {
	mu        sync.Mutex
	docs      map[string]*models.MedicalRecord
	conflicts int
	updates   int
	lastSet   bson.M
}

func newFakeRecords(records ...*models.MedicalRecord) *fakeRecords {
	f := &fakeRecords{docs: map[string]*models.MedicalRecord{}}
	for _, r := range records {
		f.docs[r.PatientID] = r.Clone()
	}
	return f
}

func (f *fakeRecords) get(patientID string) *models.MedicalRecord {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.docs[patientID].Clone()
}

func (f *fakeRecords) FindOne(_ context.Context, filter interface{}, _ ...*options.FindOneOptions) (*models.MedicalRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id, _ := filter.(bson.M)["patient_id"].(string)
	r, ok := f.docs[id]
	if !ok {
		return nil, mongo.ErrNoDocuments
	}
	return r.Clone(), nil
}

func (f *fakeRecords) InsertOne(_ context.Context, record *models.MedicalRecord) (databases.InsertOneResultHelper, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.docs[record.PatientID]; ok {
		return nil, mongo.WriteException{WriteErrors: mongo.WriteErrors{{Code: 11000, Message: "duplicate key"}}}
	}
	f.docs[record.PatientID] = record.Clone()
	return nil, nil
}

// UpdateOne applies a version-filtered $set the way the collection would,
// leaving fields outside the update untouched
func (f *fakeRecords) UpdateOne(_ context.Context, filter interface{}, update interface{}, _ ...*options.UpdateOptions) (*mongo.UpdateResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updates++
	set := update.(bson.M)["$set"].(bson.M)
	f.lastSet = set
	if f.conflicts > 0 {
		f.conflicts--
		return &mongo.UpdateResult{}, nil
	}
	patientID, _ := set["patient_id"].(string)
	stored, ok := f.docs[patientID]
	if !ok {
		return &mongo.UpdateResult{}, nil
	}
	want, versioned := filter.(bson.M)["version"].(int64)
	if (versioned && stored.Version != want) || (!versioned && stored.Version != 0) {
		return &mongo.UpdateResult{}, nil
	}

	next := stored.Clone()
	for k, v := range set {
		switch k {
		case "patient_id":
			next.PatientID = v.(string)
		case "current_medications":
			next.CurrentMedications = v.([]models.Entry)
		case "diagnoses":
			next.Diagnoses = v.([]models.Entry)
		case "prescriptions":
			next.Prescriptions = v.([]models.Entry)
		case "consultation_history":
			next.ConsultationHistory = v.([]models.Entry)
		case "immunizations":
			next.Immunizations = v.([]models.Entry)
		case "reports":
			next.Reports = v.([]models.ReportRef)
		case "allergies":
			next.Allergies = v.([]string)
		case "version":
			next.Version = v.(int64)
		case "updated_at":
			next.UpdatedAt = v.(*time.Time)
		default:
			if next.Extra == nil {
				next.Extra = bson.M{}
			}
			next.Extra[k] = v
		}
	}
	f.docs[patientID] = next.Clone()
	return &mongo.UpdateResult{MatchedCount: 1, ModifiedCount: 1}, nil
}

func (f *fakeRecords) EnsureIndexes(context.Context) error {
	return nil
}

type fakeContents struct {
	mu   sync.Mutex
	docs map[primitive.ObjectID]*models.ReportContent
}

func newFakeContents() *fakeContents {
	return &fakeContents{docs: map[primitive.ObjectID]*models.ReportContent{}}
}

func (f *fakeContents) FindOne(_ context.Context, filter interface{}, _ ...*options.FindOneOptions) (*models.ReportContent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id, _ := filter.(bson.M)["_id"].(primitive.ObjectID)
	doc, ok := f.docs[id]
	if !ok {
		return nil, mongo.ErrNoDocuments
	}
	c := *doc
	return &c, nil
}

func (f *fakeContents) InsertOne(_ context.Context, content *models.ReportContent) (databases.InsertOneResultHelper, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c := *content
	f.docs[content.ID] = &c
	return nil, nil
}

func (f *fakeContents) UpdateOne(_ context.Context, filter interface{}, update interface{}, _ ...*options.UpdateOptions) (*mongo.UpdateResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id, _ := filter.(bson.M)["_id"].(primitive.ObjectID)
	doc, ok := f.docs[id]
	if !ok {
		return &mongo.UpdateResult{}, nil
	}
	set := update.(bson.M)["$set"].(bson.M)
	doc.Content = set["content"].(string)
	return &mongo.UpdateResult{MatchedCount: 1, ModifiedCount: 1}, nil
}

type fakeProfiles struct {
	docs map[primitive.ObjectID]bson.M
}

func newFakeProfiles(docs ...bson.M) *fakeProfiles {
	f := &fakeProfiles{docs: map[primitive.ObjectID]bson.M{}}
	for _, d := range docs {
		f.docs[d["_id"].(primitive.ObjectID)] = d
	}
	return f
}

func (f *fakeProfiles) FindOne(_ context.Context, filter interface{}, _ ...*options.FindOneOptions) (bson.M, error) {
	id, _ := filter.(bson.M)["_id"].(primitive.ObjectID)
	doc, ok := f.docs[id]
	if !ok {
		return nil, mongo.ErrNoDocuments
	}
	return doc, nil
}

func (f *fakeProfiles) Find(context.Context, interface{}, ...*options.FindOptions) ([]bson.M, error) {
	out := make([]bson.M, 0, len(f.docs))
	for _, d := range f.docs {
		out = append(out, d)
	}
	return out, nil
}

type fakePending struct {
	mu    sync.Mutex
	items []models.PendingExtraction
}

func (f *fakePending) Find(_ context.Context, filter interface{}, _ ...*options.FindOptions) ([]models.PendingExtraction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	m := filter.(bson.M)
	limit := m["attempts"].(bson.M)["$lt"].(int)
	var out []models.PendingExtraction
	for _, it := range f.items {
		if it.Status == m["status"] && it.Attempts < limit {
			out = append(out, it)
		}
	}
	return out, nil
}

func (f *fakePending) InsertOne(_ context.Context, pending *models.PendingExtraction) (databases.InsertOneResultHelper, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p := *pending
	p.ID = primitive.NewObjectID()
	f.items = append(f.items, p)
	return nil, nil
}

func (f *fakePending) UpdateOne(_ context.Context, filter interface{}, update interface{}, _ ...*options.UpdateOptions) (*mongo.UpdateResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := filter.(bson.M)["_id"].(primitive.ObjectID)
	set := update.(bson.M)["$set"].(bson.M)
	for i := range f.items {
		if f.items[i].ID == id {
			f.items[i].Status = set["status"].(string)
			f.items[i].Attempts = set["attempts"].(int)
			f.items[i].LastError = set["last_error"].(string)
			return &mongo.UpdateResult{MatchedCount: 1}, nil
		}
	}
	return &mongo.UpdateResult{}, nil
}

type fakeAppointments struct {
	items []models.Appointment
}

func (f *fakeAppointments) FindOne(context.Context, interface{}, ...*options.FindOneOptions) (*models.Appointment, error) {
	return nil, mongo.ErrNoDocuments
}

func (f *fakeAppointments) Find(context.Context, interface{}, ...*options.FindOptions) ([]models.Appointment, error) {
	return f.items, nil
}

func (f *fakeAppointments) InsertOne(_ context.Context, appointment *models.Appointment) (databases.InsertOneResultHelper, error) {
	f.items = append(f.items, *appointment)
	return nil, nil
}

func (f *fakeAppointments) UpdateOne(context.Context, interface{}, interface{}, ...*options.UpdateOptions) (*mongo.UpdateResult, error) {
	return &mongo.UpdateResult{}, nil
}

// fixture bundles the fakes behind one patient and one doctor
type fixture struct {
	patientID string
	doctorID  string
	patients  *fakeProfiles
	doctors   *fakeProfiles
	records   *fakeRecords
	contents  *fakeContents
	pending   *fakePending
	store     *ContentStore
	loader    *ContextLoader
	merger    *RecordMerger
}

func newFixture() *fixture {
	patientOID := primitive.NewObjectID()
	doctorOID := primitive.NewObjectID()
	f := &fixture{
		patientID: patientOID.Hex(),
		doctorID:  doctorOID.Hex(),
		patients: newFakeProfiles(bson.M{
			"_id":   patientOID,
			"name":  bson.M{"first": "Asha", "last": "Rao"},
			"email": "asha@example.com",
		}),
		doctors: newFakeProfiles(bson.M{
			"_id":       doctorOID,
			"name":      bson.M{"first": "Vikram", "last": "Shah"},
			"specialty": "General Medicine",
		}),
		records:  newFakeRecords(),
		contents: newFakeContents(),
		pending:  &fakePending{},
	}
	f.store = NewContentStore(f.contents)
	f.loader = NewContextLoader(f.patients, f.doctors, f.records, f.store)
	f.merger = NewRecordMerger(f.records)
	return f
}

// seed stores r as the fixture patient's existing record
func (f *fixture) seed(r *models.MedicalRecord) {
	r.PatientID = f.patientID
	if r.ID.IsZero() {
		r.ID = primitive.NewObjectID()
	}
	f.records.mu.Lock()
	defer f.records.mu.Unlock()
	f.records.docs[f.patientID] = r.Clone()
}
