// Package metrics exposes Prometheus instruments for the analysis engine.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Outcome labels.
const (
	OutcomeSuccess  = "success"
	OutcomeError    = "error"
	OutcomeDegraded = "degraded"
	OutcomeSkipped  = "skipped"
)

// Metrics holds the engine instruments. A nil *Metrics is valid and records nothing.
type Metrics struct {
	DetectorDuration *prometheus.HistogramVec
	Analyses         *prometheus.CounterVec
	CacheLookups     *prometheus.CounterVec
	Augmentations    *prometheus.CounterVec
	AIRetries        prometheus.Counter
}

// New creates the instruments and registers them on reg. A nil reg leaves
// them unregistered.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		DetectorDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "ats_detector_duration_seconds",
				Help:    "Duration of a single section detector run in seconds",
				Buckets: []float64{.0001, .0005, .001, .005, .01, .05, .1},
			},
			[]string{"section"},
		),
		Analyses: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ats_analyses_total",
				Help: "Total number of analysis requests by outcome",
			},
			[]string{"outcome"},
		),
		CacheLookups: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ats_cache_lookups_total",
				Help: "Total number of cache lookups by cache and result",
			},
			[]string{"cache", "result"},
		),
		Augmentations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ats_augmentations_total",
				Help: "Total number of AI augmentation attempts by outcome",
			},
			[]string{"outcome"},
		),
		AIRetries: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "ats_ai_retries_total",
				Help: "Total number of retried AI generation calls",
			},
		),
	}

	if reg != nil {
		reg.MustRegister(m.DetectorDuration, m.Analyses, m.CacheLookups, m.Augmentations, m.AIRetries)
	}
	return m
}

// ObserveDetector records how long a detector took.
func (m *Metrics) ObserveDetector(section string, d time.Duration) {
	if m == nil {
		return
	}
	m.DetectorDuration.WithLabelValues(section).Observe(d.Seconds())
}

// CountAnalysis records a finished analysis.
func (m *Metrics) CountAnalysis(outcome string) {
	if m == nil {
		return
	}
	m.Analyses.WithLabelValues(outcome).Inc()
}

// CountCacheLookup records a hit or miss on the named cache.
func (m *Metrics) CountCacheLookup(cache string, hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.CacheLookups.WithLabelValues(cache, result).Inc()
}

// CountAugmentation records an augmentation outcome.
func (m *Metrics) CountAugmentation(outcome string) {
	if m == nil {
		return
	}
	m.Augmentations.WithLabelValues(outcome).Inc()
}

// CountRetry records one retried AI call.
func (m *Metrics) CountRetry() {
	if m == nil {
		return
	}
	m.AIRetries.Inc()
}
