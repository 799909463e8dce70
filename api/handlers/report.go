package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
	"go.mongodb.org/mongo-driver/bson"
	"go.uber.org/zap"

	"github.com/kushalk47/aarogya-api/api"
	"github.com/kushalk47/aarogya-api/config"
	"github.com/kushalk47/aarogya-api/models"
	"github.com/kushalk47/aarogya-api/pipeline"
)

// Report exported for testing purposes
type Report struct {
	Loader    *pipeline.ContextLoader
	Assistant *pipeline.Assistant
	Processor *pipeline.ReportProcessor
	Contents  *pipeline.ContentStore
}

// FormatReportHandler turns a doctor's dictated notes into report text
func (h Report) FormatReportHandler(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	if !p.IsDoctor() {
		config.ErrorStatus("only doctors can write reports", http.StatusForbidden, w, api.ErrForbidden)
		return
	}
	patientID := mux.Vars(r)["patient_id"]

	var req models.ReportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		config.ErrorStatus("failed to decode request", http.StatusBadRequest, w, err)
		return
	}
	defer r.Body.Close()

	pc, err := h.Loader.Load(r.Context(), patientID)
	if err != nil {
		config.ErrorStatus("failed to load patient", statusFor(err), w, err)
		return
	}
	doctor, err := h.Loader.LoadDoctor(r.Context(), p.ID)
	if err != nil {
		zap.S().Warnw("formatting report without doctor context", "doctor_id", p.ID, "error", err)
		doctor = bson.M{}
	}

	text, err := h.Assistant.FormatReport(r.Context(), req.TranscribedText, pc, doctor)
	if err != nil {
		writeFailure(w, err, "Failed to generate the report. Please try again.", req.TranscribedText)
		return
	}
	writeJSON(w, http.StatusOK, models.FormattedReportResponse{ReportText: text})
}

// SaveReportHandler stores a report body for the patient and merges the
// entities it mentions into the medical record
func (h Report) SaveReportHandler(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	if !p.IsDoctor() {
		config.ErrorStatus("only doctors can save reports", http.StatusForbidden, w, api.ErrForbidden)
		return
	}
	patientID := mux.Vars(r)["patient_id"]

	var req models.SaveReportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		config.ErrorStatus("failed to decode request", http.StatusBadRequest, w, err)
		return
	}
	defer r.Body.Close()

	res, err := h.Processor.SaveReport(r.Context(), patientID, p.ID, req.ReportContentText, req.ContentID, req.ReportType)
	if err != nil {
		writeFailure(w, err, "Failed to save the report. Please try again.", req.ReportContentText)
		return
	}
	writeJSON(w, http.StatusOK, models.SaveReportResponse{
		Message:          "Report saved successfully",
		ContentID:        res.ContentID,
		ReportID:         res.ReportID,
		ExtractionStatus: res.ExtractionStatus,
	})
}

// ReportContentHandler returns a stored report body. Patients may only read
// bodies their own record references.
func (h Report) ReportContentHandler(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	contentID := mux.Vars(r)["content_id"]

	if !p.IsDoctor() {
		pc, err := h.Loader.Load(r.Context(), p.ID)
		if err != nil {
			config.ErrorStatus("failed to load patient", statusFor(err), w, err)
			return
		}
		if !pc.Record.HasReportContent(contentID) {
			config.ErrorStatus("report does not belong to patient", http.StatusForbidden, w, api.ErrForbidden)
			return
		}
	}

	content, err := h.Contents.Get(r.Context(), contentID)
	if err != nil {
		config.ErrorStatus("failed to get report content", statusFor(err), w, err)
		return
	}
	writeJSON(w, http.StatusOK, models.ReportContentResponse{ContentID: contentID, Content: content})
}
