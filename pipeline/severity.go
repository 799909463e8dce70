package pipeline

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/kushalk47/aarogya-api/generation"
	"github.com/kushalk47/aarogya-api/models"
)

// SeverityClassifier assigns a triage label to an appointment request
type SeverityClassifier struct {
	gen generation.Generator
}

// NewSeverityClassifier returns a classifier using gen
func NewSeverityClassifier(gen generation.Generator) *SeverityClassifier {
	return &SeverityClassifier{gen: gen}
}

// ClassifySeverity never fails. Any generation error or any answer that is not
// exactly one of the known labels after trimming yields SeverityUnknown.
func (s *SeverityClassifier) ClassifySeverity(ctx context.Context, pc PatientContext, reason, notes string) models.SeverityLabel {
	raw, err := s.gen.Generate(ctx, severityPrompt(pc, reason, notes))
	if err != nil {
		zap.S().Warnw("severity classification unavailable", "error", err)
		return models.SeverityUnknown
	}
	answer := strings.TrimSpace(raw)
	for _, l := range models.SeverityLabels {
		if answer == string(l) {
			return l
		}
	}
	zap.S().Infow("severity classifier returned an unrecognised label", "answer", raw)
	return models.SeverityUnknown
}

func severityPrompt(pc PatientContext, reason, notes string) string {
	var b strings.Builder
	b.WriteString("You are assisting with appointment triage. Based on the patient's medical record, ")
	b.WriteString("the reason for the appointment and the patient's own notes, classify how urgent the case is.\n")
	fmt.Fprintf(&b, "Return only one of these labels, exactly as written and with no other text: %q, %q or %q.\n\n",
		models.SeverityVerySerious, models.SeverityModerate, models.SeverityNormal)
	b.WriteString("Patient Medical Data:\n")
	b.WriteString(FormatPatientContext(pc))
	fmt.Fprintf(&b, "\nReason for appointment: %s\n", orDefault(reason, "Not provided"))
	fmt.Fprintf(&b, "Patient notes: %s\n", orDefault(notes, "Not provided"))
	b.WriteString("\nLabel:")
	return b.String()
}
