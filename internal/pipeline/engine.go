// Package pipeline orchestrates one resume analysis: normalization,
// parallel section detection, weighted aggregation and optional AI
// augmentation that degrades instead of failing.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/jonathan/ats-checker/internal/augment"
	"github.com/jonathan/ats-checker/internal/cache"
	"github.com/jonathan/ats-checker/internal/config"
	"github.com/jonathan/ats-checker/internal/detectors"
	"github.com/jonathan/ats-checker/internal/ingestion"
	"github.com/jonathan/ats-checker/internal/llm"
	"github.com/jonathan/ats-checker/internal/logger"
	"github.com/jonathan/ats-checker/internal/metrics"
	"github.com/jonathan/ats-checker/internal/scoring"
	"github.com/jonathan/ats-checker/internal/sections"
	"github.com/jonathan/ats-checker/internal/types"
)

// ReasonAINotConfigured is the degraded reason when AI was requested but
// the engine has no generator.
const ReasonAINotConfigured = "ai_not_configured"

const tracerName = "github.com/jonathan/ats-checker/internal/pipeline"

// Options configures an Engine. Config is required; everything else is
// optional.
type Options struct {
	Config *config.Config
	// Generator enables augmentation. Wrap it in llm.RetryGenerator for
	// timeouts and retries.
	Generator llm.Generator
	// Results caches deterministic results by fingerprint. When nil the
	// engine creates and owns one from Config.Cache.
	Results *cache.Cache[*types.AnalysisResult]
	// AIContent caches generated section content. Optional.
	AIContent    *cache.Cache[types.AIContent]
	Metrics      *metrics.Metrics
	Logger       *zap.Logger
	Tracer       trace.Tracer
	OnTransition TransitionFunc
	// Now and NewID override the clock and id source, for tests.
	Now   func() time.Time
	NewID func() string
}

// Request is one analysis request.
type Request struct {
	Text     string
	Filename string
	// Keywords are the job keywords; empty falls back to the role preset
	// for the keyword report and a neutral ATS keyword score.
	Keywords []string
	// AI requests augmentation of the weakest sections.
	AI bool
	// Sections restricts the analysis; empty means all. Weights are
	// renormalized over the chosen sections.
	Sections []sections.Kind
}

// Engine runs analyses. It is safe for concurrent use.
type Engine struct {
	opts       Options
	cfg        *config.Config
	registry   *detectors.Registry
	weights    scoring.Weights
	aggregator *scoring.Aggregator
	augmenter  *augment.Augmenter
	results    *cache.Cache[*types.AnalysisResult]
	ownsCache  bool
	metrics    *metrics.Metrics
	logger     *zap.Logger
	tracer     trace.Tracer
	now        func() time.Time
	newID      func() string
}

// New validates the configuration and builds the detectors, weights and
// caches.
func New(opts Options) (*Engine, error) {
	if opts.Config == nil {
		return nil, &config.Error{Message: "engine requires a configuration"}
	}
	cfg := opts.Config
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	registry, err := detectors.NewRegistry(cfg.Rules)
	if err != nil {
		return nil, &config.Error{Message: "invalid detector rules", Cause: err}
	}

	w, err := cfg.SectionWeights()
	if err != nil {
		return nil, &config.Error{Message: "invalid weights", Cause: err}
	}
	aggregator, err := scoring.NewAggregator(scoring.Weights(w))
	if err != nil {
		return nil, err
	}

	e := &Engine{
		opts:       opts,
		cfg:        cfg,
		registry:   registry,
		weights:    aggregator.Weights(),
		aggregator: aggregator,
		metrics:    opts.Metrics,
		logger:     opts.Logger,
		tracer:     opts.Tracer,
		now:        opts.Now,
		newID:      opts.NewID,
		results:    opts.Results,
	}
	if e.logger == nil {
		e.logger = zap.NewNop()
	}
	if e.tracer == nil {
		e.tracer = otel.Tracer(tracerName)
	}
	if e.now == nil {
		e.now = time.Now
	}
	if e.newID == nil {
		e.newID = uuid.NewString
	}
	if e.results == nil {
		e.results = cache.New[*types.AnalysisResult](cache.Options{
			Name:          "results",
			TTL:           cfg.Cache.TTL,
			SweepInterval: cfg.Cache.SweepInterval,
			Metrics:       opts.Metrics,
			Logger:        e.logger,
		})
		e.ownsCache = true
	}

	if opts.Generator != nil {
		provider, err := llm.ParseProvider(cfg.AI.Provider)
		if err != nil {
			return nil, &config.Error{Message: "invalid ai provider", Cause: err}
		}
		e.augmenter, err = augment.New(augment.Options{
			Generator: opts.Generator,
			Generate: llm.GenerateConfig{
				Model:       cfg.AI.Model,
				MaxTokens:   cfg.AI.MaxTokens,
				Temperature: cfg.AI.Temperature,
			},
			Provider:    provider,
			Threshold:   cfg.AI.ScoreThreshold,
			MaxSections: cfg.AI.MaxSections,
			Concurrency: cfg.AI.Concurrency,
			Dialect:     cfg.Rules.Dialect,
			Cache:       opts.AIContent,
			Logger:      e.logger,
		})
		if err != nil {
			return nil, err
		}
	}
	return e, nil
}

// Close releases caches the engine created itself.
func (e *Engine) Close() {
	if e.ownsCache {
		e.results.Close()
	}
}

// Registry exposes the detectors, for listing.
func (e *Engine) Registry() *detectors.Registry {
	return e.registry
}

// Weights returns a copy of the section weights.
func (e *Engine) Weights() scoring.Weights {
	return e.aggregator.Weights()
}

// CacheStats reports result cache activity.
func (e *Engine) CacheStats() cache.Stats {
	return e.results.Stats()
}

// AugmentationEnabled reports whether a generator is configured.
func (e *Engine) AugmentationEnabled() bool {
	return e.augmenter != nil
}

// AnalyzeSection analyzes a single section. The overall score then equals
// that section's score scaled to 100.
func (e *Engine) AnalyzeSection(ctx context.Context, kind sections.Kind, req Request) (*types.AnalysisResult, error) {
	req.Sections = []sections.Kind{kind}
	return e.Analyze(ctx, req)
}

// AnalyzeDocument extracts text from data and analyzes it.
func (e *Engine) AnalyzeDocument(ctx context.Context, extractor ingestion.Extractor, filename string, data []byte, req Request) (*types.AnalysisResult, error) {
	text, err := extractor.Extract(ctx, filename, data)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		e.metrics.CountAnalysis(metrics.OutcomeError)
		return nil, &UpstreamExtractionError{Filename: filename, Cause: err}
	}
	req.Text = text
	if req.Filename == "" {
		req.Filename = filename
	}
	return e.Analyze(ctx, req)
}

// Analyze runs one request through the state machine. Only AI failures are
// recovered: they yield a degraded result with deterministic scores intact.
func (e *Engine) Analyze(ctx context.Context, req Request) (*types.AnalysisResult, error) {
	requestID := e.newID()
	ctx, span := e.tracer.Start(ctx, "ats.analyze", trace.WithAttributes(
		attribute.String("ats.request_id", requestID),
		attribute.String("ats.filename", req.Filename),
		attribute.Bool("ats.ai", req.AI),
	))
	defer span.End()

	log := logger.WithFields(e.logger, logger.RequestFields(requestID, req.Filename, "")...)
	t := newTracker(ctx, requestID, e)
	t.logger = log

	result, err := e.run(ctx, t, req)
	if err != nil {
		t.fail(err)
		span.RecordError(err)
		e.metrics.CountAnalysis(metrics.OutcomeError)
		log.Info("analysis failed", zap.Error(err))
		return nil, err
	}

	outcome := metrics.OutcomeSuccess
	if result.Degraded {
		outcome = metrics.OutcomeDegraded
	}
	e.metrics.CountAnalysis(outcome)
	span.SetAttributes(
		attribute.Float64("ats.score", result.OverallScore.Score),
		attribute.String("ats.grade", result.OverallScore.Grade),
	)
	log.Info("analysis complete",
		zap.String(logger.FieldFingerprint, result.Fingerprint),
		zap.Float64("score", result.OverallScore.Score),
		zap.String("grade", result.OverallScore.Grade),
		zap.Bool("degraded", result.Degraded),
	)
	return result, nil
}

func (e *Engine) run(ctx context.Context, t *tracker, req Request) (*types.AnalysisResult, error) {
	if err := t.to(StateNormalizing, ""); err != nil {
		return nil, err
	}
	text, err := ingestion.Normalize(req.Text)
	if err != nil {
		return nil, err
	}
	kinds, aggregator, err := e.plan(req.Sections)
	if err != nil {
		return nil, err
	}
	keywords := canonicalKeywords(req.Keywords)
	fingerprint := e.fingerprint(text, kinds, keywords)

	if err := t.to(StateDetecting, ""); err != nil {
		return nil, err
	}
	// only detector output is cached; scoring runs per request
	base, err := e.results.GetOrCompute(ctx, fingerprint, func(ctx context.Context) (*types.AnalysisResult, error) {
		analyses, err := e.detect(ctx, text, kinds, detectors.Params{JobKeywords: keywords})
		if err != nil {
			return nil, err
		}
		return e.detected(text, fingerprint, analyses, keywords), nil
	})
	if err != nil {
		return nil, err
	}

	if err := t.to(StateAggregating, ""); err != nil {
		return nil, err
	}
	result, err := aggregate(base.WithEvidenceFrom(text), aggregator)
	if err != nil {
		return nil, err
	}
	result = result.WithFilename(req.Filename)

	if req.AI {
		result, err = e.augment(ctx, t, text, result)
		if err != nil {
			return nil, err
		}
	}

	if err := t.to(StateComplete, ""); err != nil {
		return nil, err
	}
	return result, nil
}

// plan resolves the requested sections and the aggregator for them.
func (e *Engine) plan(requested []sections.Kind) ([]sections.Kind, *scoring.Aggregator, error) {
	if len(requested) == 0 {
		return e.weights.Kinds(), e.aggregator, nil
	}

	seen := make(map[sections.Kind]bool, len(requested))
	kinds := make([]sections.Kind, 0, len(requested))
	for _, k := range requested {
		if _, err := e.registry.Get(k); err != nil {
			return nil, nil, err
		}
		if !seen[k] {
			seen[k] = true
			kinds = append(kinds, k)
		}
	}
	if len(kinds) == len(e.weights) && !slices.ContainsFunc(kinds, func(k sections.Kind) bool {
		_, weighted := e.weights[k]
		return !weighted
	}) {
		return e.weights.Kinds(), e.aggregator, nil
	}

	restricted, err := e.weights.Restrict(kinds)
	if err != nil {
		return nil, nil, err
	}
	aggregator, err := scoring.NewAggregator(restricted)
	if err != nil {
		return nil, nil, err
	}
	return restricted.Kinds(), aggregator, nil
}

func (e *Engine) fingerprint(text *types.ResumeText, kinds []sections.Kind, keywords []string) string {
	names := make([]string, len(kinds))
	for i, k := range kinds {
		names[i] = string(k)
	}
	return cache.Fingerprint(
		text.Text(),
		e.cfg.Rules.Version,
		e.cfg.Rules.Dialect,
		e.cfg.Rules.Role,
		strings.Join(names, ","),
		strings.Join(keywords, "\x1f"),
	)
}

// detect runs every detector in parallel. The first failure cancels the
// rest and fails the request.
func (e *Engine) detect(ctx context.Context, text *types.ResumeText, kinds []sections.Kind, params detectors.Params) (map[sections.Kind]types.SectionAnalysis, error) {
	results := make([]types.SectionAnalysis, len(kinds))
	g, gctx := errgroup.WithContext(ctx)
	for i, kind := range kinds {
		g.Go(func() (err error) {
			if err := gctx.Err(); err != nil {
				return err
			}
			defer func() {
				if r := recover(); r != nil {
					err = &DetectorError{Section: kind, Panic: r}
				}
			}()

			start := time.Now()
			analysis, runErr := e.registry.Run(kind, text, params)
			e.metrics.ObserveDetector(string(kind), time.Since(start))
			if runErr != nil {
				return &DetectorError{Section: kind, Cause: runErr}
			}
			if analysis.Section != kind {
				return &DetectorError{Section: kind, Cause: fmt.Errorf("returned section %q", analysis.Section)}
			}
			if err := analysis.Validate(); err != nil {
				return &DetectorError{Section: kind, Cause: err}
			}
			results[i] = analysis
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make(map[sections.Kind]types.SectionAnalysis, len(kinds))
	for _, a := range results {
		out[a.Section] = a
	}
	return out, nil
}

// detected builds the cacheable part of a result: everything the detectors
// produced, without scores derived from it.
func (e *Engine) detected(text *types.ResumeText, fingerprint string, analyses map[sections.Kind]types.SectionAnalysis, keywords []string) *types.AnalysisResult {
	return &types.AnalysisResult{
		ID:          e.newID(),
		Fingerprint: fingerprint,
		RuleVersion: e.cfg.Rules.Version,
		Sections:    analyses,
		Keywords:    e.registry.KeywordReport(text, detectors.Params{JobKeywords: keywords}),
		Timestamp:   e.now().UTC(),
	}
}

// aggregate fills the overall score and the advice derived from the section
// scores. result must not be shared.
func aggregate(result *types.AnalysisResult, aggregator *scoring.Aggregator) (*types.AnalysisResult, error) {
	overall, err := aggregator.Aggregate(result.Sections)
	if err != nil {
		return nil, err
	}
	priorities := scoring.Prioritize(result.Sections, scoring.MaxPriorities)
	result.OverallScore = overall
	result.Recommendations = scoring.Recommend(result.Sections, scoring.RecommendationThreshold)
	result.Priorities = priorities
	result.ActionItems = scoring.ActionItems(priorities, scoring.MaxActionItems)
	return result, nil
}

func (e *Engine) augment(ctx context.Context, t *tracker, text *types.ResumeText, result *types.AnalysisResult) (*types.AnalysisResult, error) {
	if err := t.to(StateAugmenting, ""); err != nil {
		return nil, err
	}

	if e.augmenter == nil {
		e.metrics.CountAugmentation(metrics.OutcomeSkipped)
		return e.degrade(t, result, ReasonAINotConfigured)
	}

	content, err := e.augmenter.Augment(ctx, text, result)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		reason := augment.ReasonProvider
		var unavailable *augment.UnavailableError
		if errors.As(err, &unavailable) {
			reason = unavailable.Reason()
		}
		t.logger.Warn("augmentation unavailable, returning deterministic result", zap.Error(err))
		e.metrics.CountAugmentation(metrics.OutcomeDegraded)
		return e.degrade(t, result, reason)
	}

	e.metrics.CountAugmentation(metrics.OutcomeSuccess)
	return result.WithAugmentation(content), nil
}

func (e *Engine) degrade(t *tracker, result *types.AnalysisResult, reason string) (*types.AnalysisResult, error) {
	if err := t.to(StateDegraded, reason); err != nil {
		return nil, err
	}
	return result.WithDegraded(reason), nil
}

// canonicalKeywords lowercases, trims, dedupes and sorts keywords so that
// equivalent lists share a fingerprint.
func canonicalKeywords(keywords []string) []string {
	out := make([]string, 0, len(keywords))
	for _, k := range keywords {
		k = strings.Join(strings.Fields(strings.ToLower(k)), " ")
		if k != "" {
			out = append(out, k)
		}
	}
	slices.Sort(out)
	return slices.Compact(out)
}
