// Package llm wraps the generative model used to augment section analyses
// with written feedback.
package llm

import (
	"fmt"
	"math"
	"time"
)

// Provider names an LLM backend.
type Provider string

// ProviderGemini is the Google Gemini provider.
const ProviderGemini Provider = "gemini"

// DefaultModel is used when a request leaves the model empty.
const DefaultModel = "gemini-2.5-flash"

// ParseProvider maps a configured name to a Provider.
func ParseProvider(name string) (Provider, error) {
	switch Provider(name) {
	case ProviderGemini, "":
		return ProviderGemini, nil
	default:
		return "", fmt.Errorf("unsupported ai provider %q", name)
	}
}

// GenerateConfig holds the per-call generation parameters. They are passed
// to the provider unchanged.
type GenerateConfig struct {
	Model       string
	MaxTokens   int
	Temperature float64
	// JSON asks the provider for an application/json reply.
	JSON bool
}

// RetryConfig bounds how long and how often a call is attempted.
type RetryConfig struct {
	// Timeout applies to each attempt.
	Timeout    time.Duration
	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration
}

// DefaultRetryConfig returns the retry policy used when none is configured.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		Timeout:    20 * time.Second,
		MaxRetries: 2,
		BaseDelay:  500 * time.Millisecond,
		MaxDelay:   5 * time.Second,
	}
}

// Backoff returns the wait before retry number attempt (1-based): BaseDelay
// doubled per attempt and capped at MaxDelay.
func (c RetryConfig) Backoff(attempt int) time.Duration {
	if attempt < 1 || c.BaseDelay <= 0 {
		return 0
	}
	d := float64(c.BaseDelay) * math.Pow(2, float64(attempt-1))
	if c.MaxDelay > 0 && d > float64(c.MaxDelay) {
		return c.MaxDelay
	}
	return time.Duration(d)
}
