package models

// SeverityLabel is the coarse triage classification attached to an appointment
type SeverityLabel string

// The closed set of labels the classifier may return. SeverityUnknown means no
// classification could be obtained; it is never a diagnosis.
const (
	SeverityVerySerious SeverityLabel = "Very Serious"
	SeverityModerate    SeverityLabel = "Moderate"
	SeverityNormal      SeverityLabel = "Normal"
	SeverityUnknown     SeverityLabel = "Unknown"
)

// SeverityLabels lists the valid classifier answers in triage order
var SeverityLabels = []SeverityLabel{SeverityVerySerious, SeverityModerate, SeverityNormal}

// Rank orders labels for triage, most urgent first. Unrecognised values sort
// with SeverityUnknown.
func (s SeverityLabel) Rank() int {
	for i, l := range SeverityLabels {
		if s == l {
			return i
		}
	}
	return len(SeverityLabels)
}
