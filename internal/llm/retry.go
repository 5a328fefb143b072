package llm

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/jonathan/ats-checker/internal/metrics"
)

// RetryGenerator bounds each call to next with a timeout and retries
// transient failures with exponential backoff.
type RetryGenerator struct {
	next     Generator
	provider Provider
	cfg      RetryConfig
	metrics  *metrics.Metrics
	logger   *zap.Logger
	sleep    func(ctx context.Context, d time.Duration) error
}

// NewRetryGenerator wraps next. A nil logger discards output.
func NewRetryGenerator(next Generator, provider Provider, cfg RetryConfig, m *metrics.Metrics, logger *zap.Logger) *RetryGenerator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RetryGenerator{
		next:     next,
		provider: provider,
		cfg:      cfg,
		metrics:  m,
		logger:   logger,
		sleep:    sleepContext,
	}
}

// Generate calls the wrapped generator until it succeeds, returns a final
// error, or runs out of attempts. Failures are returned as *Error.
func (r *RetryGenerator) Generate(ctx context.Context, prompt string, cfg GenerateConfig) (string, error) {
	var lastErr error
	for attempt := 0; attempt <= r.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			r.metrics.CountRetry()
			delay := r.cfg.Backoff(attempt)
			r.logger.Debug("retrying ai request",
				zap.Int("attempt", attempt),
				zap.Duration("delay", delay),
				zap.Error(lastErr),
			)
			if err := r.sleep(ctx, delay); err != nil {
				return "", err
			}
		}

		text, err := r.attempt(ctx, prompt, cfg)
		if err == nil {
			return text, nil
		}
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		lastErr = Classify(r.provider, err)
		if !Retryable(lastErr) {
			return "", lastErr
		}
	}
	return "", lastErr
}

func (r *RetryGenerator) attempt(ctx context.Context, prompt string, cfg GenerateConfig) (string, error) {
	if r.cfg.Timeout <= 0 {
		return r.next.Generate(ctx, prompt, cfg)
	}
	attemptCtx, cancel := context.WithTimeout(ctx, r.cfg.Timeout)
	defer cancel()

	text, err := r.next.Generate(attemptCtx, prompt, cfg)
	if err != nil && ctx.Err() == nil && errors.Is(attemptCtx.Err(), context.DeadlineExceeded) {
		return "", &Error{Kind: ErrTimeout, Provider: r.provider, Err: err}
	}
	return text, err
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
