package llm

import (
	"context"
	"errors"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/googleapi"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/jonathan/ats-checker/internal/apperr"
)

type stubGenerator struct {
	calls atomic.Int32
	fn    func(ctx context.Context, call int32) (string, error)
}

func (s *stubGenerator) Generate(ctx context.Context, _ string, _ GenerateConfig) (string, error) {
	return s.fn(ctx, s.calls.Add(1))
}

func noSleep(r *RetryGenerator) *RetryGenerator {
	r.sleep = func(ctx context.Context, _ time.Duration) error { return ctx.Err() }
	return r
}

func TestParseProvider(t *testing.T) {
	p, err := ParseProvider("gemini")
	require.NoError(t, err)
	assert.Equal(t, ProviderGemini, p)

	p, err = ParseProvider("")
	require.NoError(t, err)
	assert.Equal(t, ProviderGemini, p)

	_, err = ParseProvider("watson")
	assert.Error(t, err)
}

func TestRetryConfig_Backoff(t *testing.T) {
	cfg := RetryConfig{BaseDelay: 100 * time.Millisecond, MaxDelay: 350 * time.Millisecond}

	assert.Equal(t, time.Duration(0), cfg.Backoff(0))
	assert.Equal(t, 100*time.Millisecond, cfg.Backoff(1))
	assert.Equal(t, 200*time.Millisecond, cfg.Backoff(2))
	assert.Equal(t, 350*time.Millisecond, cfg.Backoff(3))
	assert.Equal(t, time.Duration(0), RetryConfig{}.Backoff(2))
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{"deadline", context.DeadlineExceeded, ErrTimeout},
		{"http 429", &googleapi.Error{Code: http.StatusTooManyRequests}, ErrQuotaExceeded},
		{"grpc exhausted", status.Error(codes.ResourceExhausted, "quota"), ErrQuotaExceeded},
		{"grpc deadline", status.Error(codes.DeadlineExceeded, "slow"), ErrTimeout},
		{"http 504", &googleapi.Error{Code: http.StatusGatewayTimeout}, ErrTimeout},
		{"other", errors.New("boom"), ErrProvider},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Classify(ProviderGemini, tt.err)
			var llmErr *Error
			require.ErrorAs(t, err, &llmErr)
			assert.ErrorIs(t, err, tt.want)
			assert.ErrorIs(t, err, tt.err)
			assert.Equal(t, apperr.CategoryAugmentationUnavailable, apperr.CategoryOf(err))
		})
	}

	assert.NoError(t, Classify(ProviderGemini, nil))
	assert.Equal(t, context.Canceled, Classify(ProviderGemini, context.Canceled))
}

func TestRetryable(t *testing.T) {
	assert.True(t, Retryable(Classify(ProviderGemini, errors.New("boom"))))
	assert.True(t, Retryable(Classify(ProviderGemini, context.DeadlineExceeded)))
	assert.False(t, Retryable(Classify(ProviderGemini, &googleapi.Error{Code: 429})))
	assert.False(t, Retryable(Classify(ProviderGemini, &googleapi.Error{Code: 400})))
	assert.False(t, Retryable(Classify(ProviderGemini, status.Error(codes.PermissionDenied, "key"))))
	assert.False(t, Retryable(context.Canceled))
	assert.False(t, Retryable(nil))
}

func TestRetryGenerator_RetriesTransientFailures(t *testing.T) {
	stub := &stubGenerator{fn: func(_ context.Context, call int32) (string, error) {
		if call < 3 {
			return "", errors.New("unavailable")
		}
		return "ok", nil
	}}
	gen := noSleep(NewRetryGenerator(stub, ProviderGemini, RetryConfig{MaxRetries: 2}, nil, nil))

	text, err := gen.Generate(context.Background(), "p", GenerateConfig{})
	require.NoError(t, err)
	assert.Equal(t, "ok", text)
	assert.Equal(t, int32(3), stub.calls.Load())
}

func TestRetryGenerator_GivesUp(t *testing.T) {
	stub := &stubGenerator{fn: func(context.Context, int32) (string, error) {
		return "", errors.New("unavailable")
	}}
	gen := noSleep(NewRetryGenerator(stub, ProviderGemini, RetryConfig{MaxRetries: 1}, nil, nil))

	_, err := gen.Generate(context.Background(), "p", GenerateConfig{})
	assert.ErrorIs(t, err, ErrProvider)
	assert.Equal(t, int32(2), stub.calls.Load())
}

func TestRetryGenerator_QuotaIsFinal(t *testing.T) {
	stub := &stubGenerator{fn: func(context.Context, int32) (string, error) {
		return "", &googleapi.Error{Code: http.StatusTooManyRequests}
	}}
	gen := noSleep(NewRetryGenerator(stub, ProviderGemini, RetryConfig{MaxRetries: 3}, nil, nil))

	_, err := gen.Generate(context.Background(), "p", GenerateConfig{})
	assert.ErrorIs(t, err, ErrQuotaExceeded)
	assert.Equal(t, int32(1), stub.calls.Load())
}

func TestRetryGenerator_AttemptTimeout(t *testing.T) {
	stub := &stubGenerator{fn: func(ctx context.Context, _ int32) (string, error) {
		<-ctx.Done()
		return "", ctx.Err()
	}}
	gen := noSleep(NewRetryGenerator(stub, ProviderGemini, RetryConfig{Timeout: 10 * time.Millisecond}, nil, nil))

	_, err := gen.Generate(context.Background(), "p", GenerateConfig{})
	assert.ErrorIs(t, err, ErrTimeout)
}

func TestRetryGenerator_CallerCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	stub := &stubGenerator{fn: func(context.Context, int32) (string, error) {
		cancel()
		return "", errors.New("interrupted")
	}}
	gen := noSleep(NewRetryGenerator(stub, ProviderGemini, RetryConfig{MaxRetries: 3}, nil, nil))

	_, err := gen.Generate(ctx, "p", GenerateConfig{})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, int32(1), stub.calls.Load())
}

func TestExtractTextFromResponse_Empty(t *testing.T) {
	_, err := extractTextFromResponse(nil)
	assert.Error(t, err)
}
