package ingestion

import (
	"fmt"

	"github.com/jonathan/ats-checker/internal/apperr"
)

// EmptyInputError is returned when normalization leaves no non-blank line.
type EmptyInputError struct {
	Length int // length of the raw input in bytes
}

func (e *EmptyInputError) Error() string {
	return fmt.Sprintf("resume text is empty after normalization (%d raw bytes)", e.Length)
}

// Category implements apperr.Categorized.
func (e *EmptyInputError) Category() apperr.Category {
	return apperr.CategoryInput
}

// ExtractionError represents a document that could not be turned into text.
type ExtractionError struct {
	Filename string
	Message  string
	Cause    error
}

func (e *ExtractionError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("extraction error: %s: %s: %v", e.Filename, e.Message, e.Cause)
	}
	return fmt.Sprintf("extraction error: %s: %s", e.Filename, e.Message)
}

func (e *ExtractionError) Unwrap() error {
	return e.Cause
}

// Category implements apperr.Categorized.
func (e *ExtractionError) Category() apperr.Category {
	return apperr.CategoryUpstreamExtraction
}
