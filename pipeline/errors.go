package pipeline

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptyInput is returned before any generation call when the caller
	// supplied no text to work on
	ErrEmptyInput = errors.New("input text is empty")
	// ErrContentNotFound is returned when a content id does not resolve
	ErrContentNotFound = errors.New("report content not found")
	// ErrContentNotOwned is returned when an edit names a content id the
	// patient's record does not reference
	ErrContentNotOwned = errors.New("report content does not belong to patient")
	// ErrBrokenReference marks a report entry whose content id does not resolve
	ErrBrokenReference = errors.New("report reference does not resolve")
	// ErrPatientNotFound is returned when a patient id does not resolve
	ErrPatientNotFound = errors.New("patient not found")
	// ErrDoctorNotFound is returned when a doctor id does not resolve
	ErrDoctorNotFound = errors.New("doctor not found")
	// ErrConflict is returned when a record changed between read and write and
	// the bounded retries were exhausted
	ErrConflict = errors.New("medical record was modified concurrently")
)

// ExtractionError reports that the generation call behind an extraction failed
type ExtractionError struct {
	Err error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("entity extraction failed: %v", e.Err)
}

func (e *ExtractionError) Unwrap() error {
	return e.Err
}

// MalformedOutputError reports generated text that could not be read as the
// demanded JSON shape. Raw holds the offending text for diagnosis.
type MalformedOutputError struct {
	Raw string
	Err error
}

func (e *MalformedOutputError) Error() string {
	return fmt.Sprintf("generated output is not valid extraction JSON: %v", e.Err)
}

func (e *MalformedOutputError) Unwrap() error {
	return e.Err
}
