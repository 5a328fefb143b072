package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/jonathan/ats-checker/internal/apperr"
	"github.com/jonathan/ats-checker/internal/augment"
	"github.com/jonathan/ats-checker/internal/config"
	"github.com/jonathan/ats-checker/internal/detectors"
	"github.com/jonathan/ats-checker/internal/ingestion"
	"github.com/jonathan/ats-checker/internal/llm"
	"github.com/jonathan/ats-checker/internal/schemas"
	"github.com/jonathan/ats-checker/internal/scoring"
	"github.com/jonathan/ats-checker/internal/sections"
	"github.com/jonathan/ats-checker/internal/types"
)

const resume = `Sam Patel
sam.patel@example.com | +44 161 496 0321 | Manchester, UK

Summary
Data engineer with six years of experience. Responsible for pipelines and reporting.

Experience
Data Engineer, Northwind Analytics
2019-03 - Present
- Responsible for ETL jobs
- Helped with dashboards for the sales team
- Built a streaming pipeline processing 5 million events per day

Education
BSc Mathematics, University of Manchester, 2018

Skills
Python, SQL, Airflow, Spark
`

const aiReply = `{"feedback": "Show outcomes, not duties.", "suggestions": ["Replace 'Responsible for' with a result"]}`

type stubGenerator struct {
	calls atomic.Int32
	fn    func(ctx context.Context) (string, error)
}

func (s *stubGenerator) Generate(ctx context.Context, _ string, _ llm.GenerateConfig) (string, error) {
	s.calls.Add(1)
	return s.fn(ctx)
}

type transitions struct {
	mu  sync.Mutex
	all []Transition
}

func (r *transitions) record(t Transition) {
	r.mu.Lock()
	r.all = append(r.all, t)
	r.mu.Unlock()
}

func (r *transitions) states() []State {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]State, len(r.all))
	for i, t := range r.all {
		out[i] = t.To
	}
	return out
}

func newEngine(t *testing.T, mutate func(*Options)) *Engine {
	t.Helper()
	cfg := config.Default()
	var ids atomic.Int32
	opts := Options{
		Config: &cfg,
		Now:    func() time.Time { return time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC) },
		NewID:  func() string { return fmt.Sprintf("id-%d", ids.Add(1)) },
	}
	if mutate != nil {
		mutate(&opts)
	}
	e, err := New(opts)
	require.NoError(t, err)
	t.Cleanup(e.Close)
	return e
}

func TestAnalyze_FullResult(t *testing.T) {
	e := newEngine(t, nil)

	result, err := e.Analyze(context.Background(), Request{Text: resume, Filename: "sam.txt"})
	require.NoError(t, err)

	assert.Len(t, result.Sections, len(sections.All()))
	for kind, s := range result.Sections {
		assert.Equal(t, kind, s.Section)
		assert.NoError(t, s.Validate())
		assert.Nil(t, s.AIContent)
	}
	assert.GreaterOrEqual(t, result.OverallScore.Score, 0.0)
	assert.LessOrEqual(t, result.OverallScore.Score, 100.0)
	assert.Equal(t, result.OverallScore.Score, result.OverallScore.Percentage)
	assert.Equal(t, scoring.GradeFor(result.OverallScore.Score), result.OverallScore.Grade)
	assert.Equal(t, "sam.txt", result.Filename)
	assert.Equal(t, "id-2", result.ID)
	assert.Len(t, result.Fingerprint, 64)
	assert.False(t, result.Degraded)
	assert.NotEmpty(t, result.Recommendations)
	assert.Len(t, result.Priorities, scoring.MaxPriorities)
	assert.LessOrEqual(t, len(result.ActionItems), scoring.MaxActionItems)
	require.NotNil(t, result.Keywords)
	assert.Equal(t, "role:general", result.Keywords.Source)

	payload, err := json.Marshal(result)
	require.NoError(t, err)
	assert.NoError(t, schemas.Validate(schemas.AnalysisResult, payload))
}

func TestAnalyze_Idempotent(t *testing.T) {
	e := newEngine(t, nil)
	ctx := context.Background()

	first, err := e.Analyze(ctx, Request{Text: resume, Filename: "a.txt", Keywords: []string{"Python", "spark"}})
	require.NoError(t, err)
	second, err := e.Analyze(ctx, Request{Text: resume + "\n\n", Filename: "b.txt", Keywords: []string{" SPARK", "python"}})
	require.NoError(t, err)

	assert.Equal(t, first.Fingerprint, second.Fingerprint)
	assert.Equal(t, first.OverallScore, second.OverallScore)
	assert.Equal(t, first.Sections, second.Sections)
	assert.Equal(t, "a.txt", first.Filename)
	assert.Equal(t, "b.txt", second.Filename)
	assert.Equal(t, int64(1), e.CacheStats().Computations)

	other, err := e.Analyze(ctx, Request{Text: resume, Keywords: []string{"python"}})
	require.NoError(t, err)
	assert.NotEqual(t, first.Fingerprint, other.Fingerprint)
}

func TestAnalyze_CachedEvidenceFollowsRawLayout(t *testing.T) {
	var rec transitions
	e := newEngine(t, func(o *Options) { o.OnTransition = rec.record })
	ctx := context.Background()

	_, err := e.Analyze(ctx, Request{Text: resume})
	require.NoError(t, err)

	shifted := "\n\n\n\n\n\n" + strings.ReplaceAll(resume, "\n", "\n   ")
	result, err := e.Analyze(ctx, Request{Text: shifted})
	require.NoError(t, err)
	assert.Equal(t, int64(1), e.CacheStats().Computations)

	checked := 0
	for _, s := range result.Sections {
		for _, f := range s.Findings {
			ev := f.Evidence
			if ev == nil {
				continue
			}
			require.LessOrEqual(t, ev.Offset+ev.Length, len(shifted), "rule %s", f.RuleID)
			got := strings.Join(strings.Fields(shifted[ev.Offset:ev.Offset+ev.Length]), " ")
			assert.Equal(t, ev.Text, got, "rule %s", f.RuleID)
			checked++
		}
	}
	assert.Positive(t, checked)

	// the cache hit is still aggregated in its own state
	states := rec.states()
	assert.Equal(t, []State{StateNormalizing, StateDetecting, StateAggregating, StateComplete}, states[len(states)-4:])
	assert.Equal(t, scoring.GradeFor(result.OverallScore.Score), result.OverallScore.Grade)
	assert.NotEmpty(t, result.Priorities)
}

func TestAnalyze_ConcurrentIdenticalRequestsComputeOnce(t *testing.T) {
	e := newEngine(t, nil)

	const callers = 16
	var wg sync.WaitGroup
	scores := make([]float64, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			r, err := e.Analyze(context.Background(), Request{Text: resume})
			if assert.NoError(t, err) {
				scores[i] = r.OverallScore.Score
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int64(1), e.CacheStats().Computations)
	for _, s := range scores {
		assert.Equal(t, scores[0], s)
	}
}

func TestAnalyze_EmptyInput(t *testing.T) {
	var rec transitions
	e := newEngine(t, func(o *Options) { o.OnTransition = rec.record })

	_, err := e.Analyze(context.Background(), Request{Text: " \n\t\u200b\n"})

	var empty *ingestion.EmptyInputError
	require.ErrorAs(t, err, &empty)
	assert.Equal(t, apperr.CategoryInput, apperr.CategoryOf(err))
	assert.Equal(t, []State{StateNormalizing}, rec.states())
}

func TestAnalyze_Transitions(t *testing.T) {
	tests := []struct {
		name  string
		ai    bool
		gen   llm.Generator
		want  []State
		check func(t *testing.T, r *types.AnalysisResult)
	}{
		{
			name: "deterministic",
			want: []State{StateNormalizing, StateDetecting, StateAggregating, StateComplete},
		},
		{
			name: "augmented",
			ai:   true,
			gen:  &stubGenerator{fn: func(context.Context) (string, error) { return aiReply, nil }},
			want: []State{StateNormalizing, StateDetecting, StateAggregating, StateAugmenting, StateComplete},
			check: func(t *testing.T, r *types.AnalysisResult) {
				assert.False(t, r.Degraded)
				augmented := 0
				for _, s := range r.Sections {
					if s.AIContent != nil {
						augmented++
						assert.Less(t, s.Score, augment.DefaultThreshold)
						assert.Equal(t, "Show outcomes, not duties.", s.AIContent.Feedback)
						assert.Equal(t, "gemini-2.5-flash", s.AIContent.Model)
					}
				}
				assert.Positive(t, augmented)
				assert.LessOrEqual(t, augmented, 5)
			},
		},
		{
			name: "no generator",
			ai:   true,
			want: []State{StateNormalizing, StateDetecting, StateAggregating, StateAugmenting, StateDegraded, StateComplete},
			check: func(t *testing.T, r *types.AnalysisResult) {
				assert.True(t, r.Degraded)
				assert.Equal(t, ReasonAINotConfigured, r.DegradedReason)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var rec transitions
			e := newEngine(t, func(o *Options) {
				o.OnTransition = rec.record
				o.Generator = tt.gen
			})

			r, err := e.Analyze(context.Background(), Request{Text: resume, AI: tt.ai})
			require.NoError(t, err)
			assert.Equal(t, tt.want, rec.states())
			if tt.check != nil {
				tt.check(t, r)
			}
		})
	}
}

func TestAnalyze_AITimeoutDegrades(t *testing.T) {
	blocking := &stubGenerator{fn: func(ctx context.Context) (string, error) {
		<-ctx.Done()
		return "", ctx.Err()
	}}
	gen := llm.NewRetryGenerator(blocking, llm.ProviderGemini, llm.RetryConfig{Timeout: 20 * time.Millisecond}, nil, nil)

	var rec transitions
	e := newEngine(t, func(o *Options) {
		o.Generator = gen
		o.OnTransition = rec.record
	})
	ctx := context.Background()

	plain, err := e.Analyze(ctx, Request{Text: resume})
	require.NoError(t, err)
	degraded, err := e.Analyze(ctx, Request{Text: resume, AI: true})
	require.NoError(t, err)

	assert.True(t, degraded.Degraded)
	assert.Equal(t, augment.ReasonTimeout, degraded.DegradedReason)
	assert.Equal(t, plain.OverallScore, degraded.OverallScore)
	assert.Equal(t, plain.Sections, degraded.Sections)
	assert.False(t, plain.Degraded, "degrading a copy leaves the cached result alone")
	assert.Contains(t, rec.states(), StateDegraded)
}

type failingDetector struct {
	kind   sections.Kind
	panics bool
}

func (d failingDetector) Kind() sections.Kind { return d.kind }

func (d failingDetector) Detect(*types.ResumeText, detectors.Params) (types.SectionAnalysis, error) {
	if d.panics {
		panic("index out of range")
	}
	return types.SectionAnalysis{}, errors.New("lexicon missing")
}

func TestAnalyze_DetectorFailureFailsRequest(t *testing.T) {
	tests := []struct {
		name   string
		panics bool
	}{
		{"error", false},
		{"panic", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newEngine(t, nil)
			require.NoError(t, e.Registry().Register(failingDetector{kind: sections.Teamwork, panics: tt.panics}))

			_, err := e.Analyze(context.Background(), Request{Text: resume})

			var detErr *DetectorError
			require.ErrorAs(t, err, &detErr)
			assert.Equal(t, sections.Teamwork, detErr.Section)
			assert.Equal(t, tt.panics, detErr.Panic != nil)
			assert.True(t, apperr.IsFatal(err))
			assert.Equal(t, 0, e.CacheStats().Entries)
		})
	}
}

func TestAnalyzeSection(t *testing.T) {
	e := newEngine(t, nil)

	r, err := e.AnalyzeSection(context.Background(), sections.ContactDetails, Request{Text: resume})
	require.NoError(t, err)
	require.Len(t, r.Sections, 1)

	contact := r.Sections[sections.ContactDetails]
	assert.InDelta(t, contact.Score*10, r.OverallScore.Score, 0.01)

	_, err = e.AnalyzeSection(context.Background(), "cover_letter", Request{Text: resume})
	var unknown *sections.UnknownSectionError
	assert.ErrorAs(t, err, &unknown)
}

func TestAnalyze_SectionSubset(t *testing.T) {
	e := newEngine(t, nil)

	r, err := e.Analyze(context.Background(), Request{
		Text:     resume,
		Sections: []sections.Kind{sections.WeakVerbs, sections.Dates, sections.WeakVerbs},
	})
	require.NoError(t, err)
	assert.Len(t, r.Sections, 2)

	weak, dates := r.Sections[sections.WeakVerbs], r.Sections[sections.Dates]
	want := types.Round2((weak.Ratio()*0.08 + dates.Ratio()*0.05) / 0.13 * 100)
	assert.InDelta(t, want, r.OverallScore.Score, 0.01)
}

func TestAnalyzeDocument(t *testing.T) {
	e := newEngine(t, nil)
	ctx := context.Background()

	ok := ingestion.ExtractorFunc(func(context.Context, string, []byte) (string, error) { return resume, nil })
	r, err := e.AnalyzeDocument(ctx, ok, "cv.txt", []byte("ignored"), Request{})
	require.NoError(t, err)
	assert.Equal(t, "cv.txt", r.Filename)

	failing := ingestion.ExtractorFunc(func(context.Context, string, []byte) (string, error) {
		return "", &ingestion.ExtractionError{Filename: "cv.pdf", Message: "unsupported content type"}
	})
	_, err = e.AnalyzeDocument(ctx, failing, "cv.pdf", nil, Request{})

	var upstream *UpstreamExtractionError
	require.ErrorAs(t, err, &upstream)
	assert.Equal(t, apperr.CategoryUpstreamExtraction, apperr.CategoryOf(err))
}

func TestAnalyze_CanceledContext(t *testing.T) {
	e := newEngine(t, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := e.Analyze(ctx, Request{Text: resume})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, e.CacheStats().Entries)
}

func TestAnalyze_Logs(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	e := newEngine(t, func(o *Options) { o.Logger = zap.New(core) })

	_, err := e.Analyze(context.Background(), Request{Text: resume, Filename: "sam.txt"})
	require.NoError(t, err)

	entries := logs.FilterMessage("analysis complete").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "sam.txt", fields["filename"])
	assert.Equal(t, "id-1", fields["request_id"])
	assert.Contains(t, fields, "grade")
}

func TestNew_InvalidConfig(t *testing.T) {
	_, err := New(Options{})
	assert.Equal(t, apperr.CategoryConfiguration, apperr.CategoryOf(err))

	cfg := config.Default()
	cfg.Weights["summary"] = 0.5
	_, err = New(Options{Config: &cfg})
	assert.Equal(t, apperr.CategoryConfiguration, apperr.CategoryOf(err))
}

func TestStateMachine(t *testing.T) {
	assert.True(t, StateAggregating.CanTransition(StateComplete))
	assert.True(t, StateAugmenting.CanTransition(StateDegraded))
	assert.False(t, StateAggregating.CanTransition(StateDegraded))
	assert.False(t, StateComplete.CanTransition(StateNormalizing))
	assert.True(t, StateComplete.Terminal())
	assert.False(t, StateDegraded.Terminal())

	tr := &tracker{state: StateDetecting}
	err := tr.to(StateComplete, "")
	var transErr *TransitionError
	assert.ErrorAs(t, err, &transErr)
}
