package pipeline

import (
	"fmt"

	"github.com/jonathan/ats-checker/internal/apperr"
	"github.com/jonathan/ats-checker/internal/sections"
)

// DetectorError fails a request when one detector errors, panics or returns
// an out-of-range score. A partial set of sections is never aggregated.
type DetectorError struct {
	Section sections.Kind
	Cause   error
	// Panic holds the recovered value when the detector panicked.
	Panic any
}

func (e *DetectorError) Error() string {
	if e.Panic != nil {
		return fmt.Sprintf("detector %s panicked: %v", e.Section, e.Panic)
	}
	return fmt.Sprintf("detector %s failed: %v", e.Section, e.Cause)
}

func (e *DetectorError) Unwrap() error {
	return e.Cause
}

// Category implements apperr.Categorized.
func (e *DetectorError) Category() apperr.Category {
	return apperr.CategoryInternal
}

// UpstreamExtractionError wraps a failure of the document extractor.
type UpstreamExtractionError struct {
	Filename string
	Cause    error
}

func (e *UpstreamExtractionError) Error() string {
	return fmt.Sprintf("could not extract text from %s: %v", e.Filename, e.Cause)
}

func (e *UpstreamExtractionError) Unwrap() error {
	return e.Cause
}

// Category implements apperr.Categorized.
func (e *UpstreamExtractionError) Category() apperr.Category {
	return apperr.CategoryUpstreamExtraction
}

// TransitionError reports a state change the state machine does not allow.
type TransitionError struct {
	From, To State
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("invalid state transition %s -> %s", e.From, e.To)
}

// Category implements apperr.Categorized.
func (e *TransitionError) Category() apperr.Category {
	return apperr.CategoryInternal
}
