package augment

import (
	"context"
	"errors"
	"fmt"

	"github.com/jonathan/ats-checker/internal/apperr"
	"github.com/jonathan/ats-checker/internal/llm"
	"github.com/jonathan/ats-checker/internal/sections"
)

// Degraded reasons reported on results whose augmentation failed.
const (
	ReasonTimeout         = "ai_timeout"
	ReasonQuotaExceeded   = "ai_quota_exceeded"
	ReasonInvalidResponse = "ai_invalid_response"
	ReasonProvider        = "ai_provider_error"
	ReasonCanceled        = "ai_canceled"
)

// UnavailableError reports that augmentation could not complete for a
// request. The deterministic result is still valid.
type UnavailableError struct {
	Section sections.Kind
	Cause   error
}

func (e *UnavailableError) Error() string {
	return fmt.Sprintf("augmentation unavailable for %s: %v", e.Section, e.Cause)
}

func (e *UnavailableError) Unwrap() error {
	return e.Cause
}

// Category implements apperr.Categorized.
func (e *UnavailableError) Category() apperr.Category {
	return apperr.CategoryAugmentationUnavailable
}

// Reason returns a short machine readable cause.
func (e *UnavailableError) Reason() string {
	var invalid *InvalidResponseError
	switch {
	case errors.As(e.Cause, &invalid):
		return ReasonInvalidResponse
	case errors.Is(e.Cause, llm.ErrTimeout), errors.Is(e.Cause, context.DeadlineExceeded):
		return ReasonTimeout
	case errors.Is(e.Cause, llm.ErrQuotaExceeded):
		return ReasonQuotaExceeded
	case errors.Is(e.Cause, context.Canceled):
		return ReasonCanceled
	default:
		return ReasonProvider
	}
}

// InvalidResponseError is a model reply that is not the requested JSON.
type InvalidResponseError struct {
	Section sections.Kind
	Cause   error
}

func (e *InvalidResponseError) Error() string {
	return fmt.Sprintf("invalid ai reply for %s: %v", e.Section, e.Cause)
}

func (e *InvalidResponseError) Unwrap() error {
	return e.Cause
}
