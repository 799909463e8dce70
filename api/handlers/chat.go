package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"github.com/kushalk47/aarogya-api/api"
	"github.com/kushalk47/aarogya-api/config"
	"github.com/kushalk47/aarogya-api/models"
	"github.com/kushalk47/aarogya-api/pipeline"
)

// Chat exported for testing purposes
type Chat struct {
	Loader    *pipeline.ContextLoader
	Assistant *pipeline.Assistant
}

// ChatHandler answers a question about the patient or summarizes the record
func (c Chat) ChatHandler(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	patientID := mux.Vars(r)["patient_id"]
	if err := p.CanAccessPatient(patientID); err != nil {
		config.ErrorStatus("not allowed to access patient", http.StatusForbidden, w, err)
		return
	}

	var req models.ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		config.ErrorStatus("failed to decode request", http.StatusBadRequest, w, err)
		return
	}
	defer r.Body.Close()
	action := strings.ToLower(strings.TrimSpace(req.Action))
	if action == "" {
		action = models.ChatActionAsk
	}
	if action != models.ChatActionAsk && action != models.ChatActionSummarize {
		config.ErrorStatus("unknown chat action", http.StatusBadRequest, w, errors.New(req.Action))
		return
	}

	pc, err := c.Loader.Load(r.Context(), patientID)
	if err != nil {
		config.ErrorStatus("failed to load patient", statusFor(err), w, err)
		return
	}

	var answer string
	if action == models.ChatActionSummarize {
		answer, err = c.Assistant.Summarize(r.Context(), pc)
	} else {
		answer, err = c.Assistant.Answer(r.Context(), pc, req.Query)
	}
	if err != nil {
		writeFailure(w, err, "Failed to get a response. Please try again.", req.Query)
		return
	}
	writeJSON(w, http.StatusOK, models.ChatResponse{Action: action, Response: answer})
}

// WellnessHandler generates a wellness plan for the calling patient
func (c Chat) WellnessHandler(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	if !p.IsPatient() {
		config.ErrorStatus("wellness plans are only available to patients", http.StatusForbidden, w, api.ErrForbidden)
		return
	}

	pc, err := c.Loader.Load(r.Context(), p.ID)
	if err != nil {
		config.ErrorStatus("failed to load patient", statusFor(err), w, err)
		return
	}
	plan, err := c.Assistant.WellnessPlan(r.Context(), pc)
	if err != nil {
		writeFailure(w, err, "Failed to generate a wellness plan. Please try again.", "")
		return
	}
	writeJSON(w, http.StatusOK, plan)
}
