// Package apperr classifies errors raised by the analysis engine into the
// categories callers act on: bad input, broken configuration, upstream
// extraction failures and unavailable augmentation.
package apperr

import (
	"context"
	"errors"
	"net/http"
)

// Category is the coarse class of an engine error.
type Category string

const (
	CategoryInput                   Category = "input"
	CategoryConfiguration           Category = "configuration"
	CategoryUpstreamExtraction      Category = "upstream_extraction"
	CategoryAugmentationUnavailable Category = "augmentation_unavailable"
	CategoryUnknownSection          Category = "unknown_section"
	CategoryCanceled                Category = "canceled"
	CategoryInternal                Category = "internal"
)

// Categorized is implemented by every typed error that knows its category.
type Categorized interface {
	error
	Category() Category
}

// CategoryOf walks the error chain and returns the first category found.
// Context cancellation is reported as CategoryCanceled; anything else
// unclassified is internal.
func CategoryOf(err error) Category {
	if err == nil {
		return ""
	}

	var c Categorized
	if errors.As(err, &c) {
		return c.Category()
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return CategoryCanceled
	}

	return CategoryInternal
}

// IsFatal reports whether err must fail a request. Only unavailable
// augmentation is recovered locally.
func IsFatal(err error) bool {
	return err != nil && CategoryOf(err) != CategoryAugmentationUnavailable
}

// HTTPStatus returns the status a web layer should answer with for err.
func HTTPStatus(err error) int {
	switch CategoryOf(err) {
	case "":
		return http.StatusOK
	case CategoryInput, CategoryUnknownSection:
		return http.StatusBadRequest
	case CategoryUpstreamExtraction:
		return http.StatusUnprocessableEntity
	case CategoryAugmentationUnavailable:
		return http.StatusOK
	case CategoryCanceled:
		return 499
	default:
		return http.StatusInternalServerError
	}
}

// ExitCode maps err to a process exit status for the CLI.
func ExitCode(err error) int {
	switch CategoryOf(err) {
	case "", CategoryAugmentationUnavailable:
		return 0
	case CategoryInput, CategoryUnknownSection:
		return 2
	case CategoryUpstreamExtraction:
		return 3
	case CategoryConfiguration:
		return 78
	default:
		return 1
	}
}

// InputError reports a request the caller must fix, such as an unreadable
// file or an unknown output format.
type InputError struct {
	Message string
	Cause   error
}

func (e *InputError) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *InputError) Unwrap() error { return e.Cause }

// Category implements Categorized.
func (e *InputError) Category() Category { return CategoryInput }
