package main

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/jonathan/ats-checker/internal/cache"
	"github.com/jonathan/ats-checker/internal/config"
	"github.com/jonathan/ats-checker/internal/fetch"
	"github.com/jonathan/ats-checker/internal/ingestion"
	"github.com/jonathan/ats-checker/internal/llm"
	"github.com/jonathan/ats-checker/internal/logger"
	"github.com/jonathan/ats-checker/internal/metrics"
	"github.com/jonathan/ats-checker/internal/pipeline"
	"github.com/jonathan/ats-checker/internal/types"
)

// maxJobKeywords caps the keywords taken from a job posting.
const maxJobKeywords = 40

// app bundles an engine with the resources it was built from.
type app struct {
	cfg     *config.Config
	engine  *pipeline.Engine
	logger  *zap.Logger
	closers []func()
}

// appOptions carries per-command overrides applied on top of the loaded config.
type appOptions struct {
	role     string
	ai       bool
	registry prometheus.Registerer
	// generator replaces the provider client, for tests.
	generator    llm.Generator
	onTransition pipeline.TransitionFunc
}

// loadConfig reads the config file and environment, then applies command
// line overrides.
func loadConfig(g *globalFlags, opts appOptions) (*config.Config, error) {
	cfg, err := config.Load(g.configPath)
	if err != nil {
		return nil, err
	}
	if g.logLevel != "" {
		cfg.Log.Level = g.logLevel
	}
	if g.logFormat != "" {
		cfg.Log.Format = g.logFormat
	}
	if opts.role != "" {
		cfg.Rules.Role = opts.role
	}
	if opts.ai {
		cfg.AI.Enabled = true
	}
	if g.apiKey != "" {
		cfg.AI.APIKey = g.apiKey
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// newApp wires logging, metrics, caches and the optional AI client into an engine.
func newApp(ctx context.Context, g *globalFlags, opts appOptions) (*app, error) {
	cfg, err := loadConfig(g, opts)
	if err != nil {
		return nil, err
	}

	log, err := logger.New(logger.Config{Level: cfg.Log.Level, Format: cfg.Log.Format})
	if err != nil {
		return nil, &config.Error{Message: "invalid logging configuration", Cause: err}
	}
	a := &app{cfg: cfg, logger: log}
	a.closers = append(a.closers, func() { _ = log.Sync() })

	var m *metrics.Metrics
	if opts.registry != nil {
		m = metrics.New(opts.registry)
	}

	var store cache.Store
	if cfg.Cache.RedisAddr != "" {
		redisStore, err := cache.NewRedisStore(ctx, cache.RedisConfig{
			Addr:     cfg.Cache.RedisAddr,
			Password: cfg.Cache.RedisPassword,
			DB:       cfg.Cache.RedisDB,
			Prefix:   cfg.Cache.RedisPrefix,
		})
		if err != nil {
			// the shared tier is an optimization; run with memory only
			log.Warn("redis cache unavailable, using memory only", zap.String("addr", cfg.Cache.RedisAddr), zap.Error(err))
		} else {
			store = redisStore
			a.closers = append(a.closers, func() { _ = redisStore.Close() })
		}
	}

	results := cache.New[*types.AnalysisResult](cache.Options{
		Name:          "results",
		TTL:           cfg.Cache.TTL,
		SweepInterval: cfg.Cache.SweepInterval,
		Store:         store,
		Metrics:       m,
		Logger:        log,
	})
	aiContent := cache.New[types.AIContent](cache.Options{
		Name:          "ai_content",
		TTL:           cfg.Cache.TTL,
		SweepInterval: cfg.Cache.SweepInterval,
		Metrics:       m,
		Logger:        log,
	})
	a.closers = append(a.closers, results.Close, aiContent.Close)

	generator, err := a.generator(ctx, opts, m)
	if err != nil {
		a.Close()
		return nil, err
	}

	a.engine, err = pipeline.New(pipeline.Options{
		Config:       cfg,
		Generator:    generator,
		Results:      results,
		AIContent:    aiContent,
		Metrics:      m,
		Logger:       log,
		OnTransition: opts.onTransition,
	})
	if err != nil {
		a.Close()
		return nil, err
	}
	a.closers = append(a.closers, a.engine.Close)
	return a, nil
}

// generator returns nil when augmentation is disabled.
func (a *app) generator(ctx context.Context, opts appOptions, m *metrics.Metrics) (llm.Generator, error) {
	if !a.cfg.AI.Enabled {
		return nil, nil
	}
	provider, err := llm.ParseProvider(a.cfg.AI.Provider)
	if err != nil {
		return nil, &config.Error{Message: "invalid ai provider", Cause: err}
	}

	next := opts.generator
	if next == nil {
		client, err := llm.NewGenerator(ctx, provider, a.cfg.AI.APIKey)
		if err != nil {
			return nil, fmt.Errorf("failed to create AI client: %w", err)
		}
		a.closers = append(a.closers, func() { _ = client.Close() })
		next = client
	}

	retry := llm.RetryConfig{
		Timeout:    a.cfg.AI.Timeout,
		MaxRetries: a.cfg.AI.MaxRetries,
		BaseDelay:  a.cfg.AI.BaseDelay,
		MaxDelay:   a.cfg.AI.MaxDelay,
	}
	return llm.NewRetryGenerator(next, provider, retry, m, a.logger), nil
}

// Close releases resources in reverse order of acquisition.
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

// jobKeywords loads the posting at source and returns the skills it mentions.
func (a *app) jobKeywords(ctx context.Context, source string, useBrowser bool) ([]string, error) {
	loader := ingestion.NewJobLoader(a.logger)
	if useBrowser {
		loader.Renderer = fetch.NewChromeRenderer(a.logger)
	}
	posting, err := loader.Load(ctx, source)
	if err != nil {
		return nil, err
	}
	text, err := ingestion.Normalize(posting.Text)
	if err != nil {
		return nil, err
	}

	keywords := a.engine.Registry().JobKeywords(text, maxJobKeywords)
	if len(keywords) == 0 {
		a.logger.Warn("job posting mentions no known skills", zap.String("source", source))
	}
	a.logger.Debug("keywords from job posting", zap.String("source", source), zap.Strings("keywords", keywords))
	return keywords, nil
}
