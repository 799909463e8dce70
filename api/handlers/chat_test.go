package handlers_test

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/kushalk47/aarogya-api/api/handlers"
	"github.com/kushalk47/aarogya-api/generation"
	"github.com/kushalk47/aarogya-api/models"
	"github.com/kushalk47/aarogya-api/pipeline"
)

func newChatHandler(e *testEnv, gen generation.Generator) handlers.Chat {
	return handlers.Chat{Loader: e.loader, Assistant: pipeline.NewAssistant(gen)}
}

func TestChat_ChatHandlerAsk(t *testing.T) {
	e := newTestEnv()
	e.noRecord()
	var prompt string
	h := newChatHandler(e, generation.GeneratorFunc(func(_ context.Context, p string) (string, error) {
		prompt = p
		return "No allergies are recorded.", nil
	}))

	d := e.doctor()
	req := newRequest("POST", "/", models.ChatRequest{Query: "Any allergies?"}, &d, map[string]string{"patient_id": e.patientID})
	rr := serve(h.ChatHandler, req)

	require.Equal(t, http.StatusOK, rr.Code)
	var got models.ChatResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &got))
	assert.Equal(t, models.ChatResponse{Action: models.ChatActionAsk, Response: "No allergies are recorded."}, got)
	assert.Contains(t, prompt, "Name: Asha Rao")
	assert.True(t, strings.Contains(prompt, "Query: Any allergies?"))
}

func TestChat_ChatHandlerSummarize(t *testing.T) {
	e := newTestEnv()
	e.noRecord()
	h := newChatHandler(e, reply("Healthy adult with no recorded history."))

	p := e.patient()
	req := newRequest("POST", "/", models.ChatRequest{Action: "Summarize"}, &p, map[string]string{"patient_id": e.patientID})
	rr := serve(h.ChatHandler, req)

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"action":"summarize"`)
}

func TestChat_ChatHandlerRejects(t *testing.T) {
	e := newTestEnv()
	e.noRecord()
	h := newChatHandler(e, reply("unused"))

	p := e.patient()
	rr := serve(h.ChatHandler, newRequest("POST", "/", models.ChatRequest{Query: "?"}, &p,
		map[string]string{"patient_id": primitive.NewObjectID().Hex()}))
	assert.Equal(t, http.StatusForbidden, rr.Code)

	d := e.doctor()
	vars := map[string]string{"patient_id": e.patientID}
	rr = serve(h.ChatHandler, newRequest("POST", "/", models.ChatRequest{Query: "?", Action: "diagnose"}, &d, vars))
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = serve(h.ChatHandler, newRequest("POST", "/", models.ChatRequest{Query: " "}, &d, vars))
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestChat_ChatHandlerGenerationFailure(t *testing.T) {
	e := newTestEnv()
	e.noRecord()
	h := newChatHandler(e, failing(&generation.Failure{Category: generation.CategoryRateLimit}))

	d := e.doctor()
	rr := serve(h.ChatHandler, newRequest("POST", "/", models.ChatRequest{Query: "Current medications?"}, &d,
		map[string]string{"patient_id": e.patientID}))

	require.Equal(t, http.StatusBadGateway, rr.Code)
	var got models.FailureResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &got))
	assert.Equal(t, "Current medications?", got.Input)
}

func TestChat_WellnessHandler(t *testing.T) {
	e := newTestEnv()
	e.noRecord()
	h := newChatHandler(e, reply("Diet Recommendations:\nMore vegetables.\nHealthy Habits:\nSleep early.\nThings to Avoid:\nFried food.\nExercise Plan:\nWalk daily."))

	p := e.patient()
	rr := serve(h.WellnessHandler, newRequest("GET", "/", nil, &p, nil))

	require.Equal(t, http.StatusOK, rr.Code)
	var got models.WellnessPlan
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &got))
	assert.Equal(t, models.WellnessPlan{
		Diet:     "More vegetables.",
		Habits:   "Sleep early.",
		Avoid:    "Fried food.",
		Exercise: "Walk daily.",
	}, got)

	d := e.doctor()
	rr = serve(h.WellnessHandler, newRequest("GET", "/", nil, &d, nil))
	assert.Equal(t, http.StatusForbidden, rr.Code)
}
