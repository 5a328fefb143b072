package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"google.golang.org/api/googleapi"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/jonathan/ats-checker/internal/apperr"
)

// Failure kinds. Use errors.Is against an *Error to test for them.
var (
	ErrTimeout       = errors.New("ai request timed out")
	ErrQuotaExceeded = errors.New("ai quota exceeded")
	ErrProvider      = errors.New("ai provider error")
	ErrEmptyResponse = errors.New("ai returned no content")
)

// Error is a classified provider failure. Every Error means augmentation is
// unavailable for the request; none of them fail the analysis.
type Error struct {
	Kind     error
	Provider Provider
	Err      error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %v", e.Provider, e.Kind)
	}
	return fmt.Sprintf("%s: %v: %v", e.Provider, e.Kind, e.Err)
}

func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// Category implements apperr.Categorized.
func (e *Error) Category() apperr.Category {
	return apperr.CategoryAugmentationUnavailable
}

// Classify wraps err from provider into an *Error of the matching kind.
// Caller cancellation is returned as is.
func Classify(provider Provider, err error) error {
	if err == nil {
		return nil
	}
	var already *Error
	if errors.As(err, &already) {
		return err
	}
	if errors.Is(err, context.Canceled) {
		return err
	}

	kind := ErrProvider
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		kind = ErrTimeout
	case isQuota(err):
		kind = ErrQuotaExceeded
	case isTimeoutStatus(err):
		kind = ErrTimeout
	}
	return &Error{Kind: kind, Provider: provider, Err: err}
}

// Retryable reports whether another attempt could succeed. Quota errors and
// caller cancellation are final.
func Retryable(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, ErrQuotaExceeded) {
		return false
	}
	var gerr *googleapi.Error
	if errors.As(err, &gerr) && gerr.Code >= 400 && gerr.Code < 500 && gerr.Code != http.StatusRequestTimeout {
		return false
	}
	if s, ok := status.FromError(err); ok {
		switch s.Code() {
		case codes.InvalidArgument, codes.PermissionDenied, codes.Unauthenticated, codes.NotFound:
			return false
		}
	}
	return true
}

func isQuota(err error) bool {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		return gerr.Code == http.StatusTooManyRequests
	}
	if s, ok := status.FromError(err); ok {
		return s.Code() == codes.ResourceExhausted
	}
	return false
}

func isTimeoutStatus(err error) bool {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		return gerr.Code == http.StatusGatewayTimeout || gerr.Code == http.StatusRequestTimeout
	}
	if s, ok := status.FromError(err); ok {
		return s.Code() == codes.DeadlineExceeded
	}
	return false
}
