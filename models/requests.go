package models

// Chat actions
const (
	ChatActionAsk       = "ask"
	ChatActionSummarize = "summarize"
)

// ChatRequest is the body accepted by the chat endpoint
type ChatRequest struct {
	Query  string `json:"query"`
	Action string `json:"action"`
}

// ChatResponse is returned by the chat endpoint
type ChatResponse struct {
	Action   string `json:"action"`
	Response string `json:"response"`
}

// ReportRequest carries dictated notes to be formatted into a report
type ReportRequest struct {
	TranscribedText string `json:"transcribed_text"`
}

// FormattedReportResponse is returned by the report formatting endpoint
type FormattedReportResponse struct {
	ReportText string `json:"report_text"`
}

// SaveReportRequest carries an (optionally edited) report body to be stored.
// ContentID is set when an existing body is being edited in place.
type SaveReportRequest struct {
	ReportContentText string `json:"report_content_text"`
	ContentID         string `json:"content_id,omitempty"`
	ReportType        string `json:"report_type,omitempty"`
}

// SaveReportResponse is returned once a report body is stored. ExtractionStatus
// is "merged", "skipped", "pending_retry" or, when no retry is allowed, "failed".
type SaveReportResponse struct {
	Message          string `json:"message"`
	ContentID        string `json:"report_content_id"`
	ReportID         string `json:"report_id,omitempty"`
	ExtractionStatus string `json:"extraction_status"`
}

// FailureResponse is returned when a generation-backed operation fails. The
// caller's input is echoed back so nothing typed is lost.
type FailureResponse struct {
	Error string `json:"error"`
	Input string `json:"input,omitempty"`
}

// WellnessPlan holds the four sections of a generated wellness plan
type WellnessPlan struct {
	Diet     string `json:"diet"`
	Habits   string `json:"habits"`
	Avoid    string `json:"avoid"`
	Exercise string `json:"exercise"`
}

// PatientRecordResponse is returned by the record view
type PatientRecordResponse struct {
	Patient       map[string]interface{} `json:"patient"`
	MedicalRecord *MedicalRecord         `json:"medical_record"`
	Reports       []ReportDisplay        `json:"reports"`
}

// ReportContentResponse is returned by the report content endpoint
type ReportContentResponse struct {
	ContentID string `json:"content_id"`
	Content   string `json:"content"`
}

// MessageResponse is a plain confirmation body
type MessageResponse struct {
	Message string `json:"message"`
}

// PatientListItem is one row of the doctor's patient list
type PatientListItem struct {
	ID            string `json:"id"`
	Email         string `json:"email"`
	FirstName     string `json:"first_name"`
	LastName      string `json:"last_name"`
	ContactNumber string `json:"contact_number,omitempty"`
}
