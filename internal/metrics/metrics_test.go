package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Record(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.CountAnalysis(OutcomeSuccess)
	m.CountAnalysis(OutcomeSuccess)
	m.CountAnalysis(OutcomeDegraded)
	m.CountCacheLookup("results", true)
	m.CountCacheLookup("results", false)
	m.CountAugmentation(OutcomeError)
	m.CountRetry()
	m.ObserveDetector("dates", 2*time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.Analyses.WithLabelValues(OutcomeSuccess)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Analyses.WithLabelValues(OutcomeDegraded)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CacheLookups.WithLabelValues("results", "hit")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CacheLookups.WithLabelValues("results", "miss")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Augmentations.WithLabelValues(OutcomeError)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.AIRetries))

	families, err := reg.Gather()
	require.NoError(t, err)

	names := make([]string, 0, len(families))
	for _, f := range families {
		names = append(names, f.GetName())
	}
	assert.Contains(t, names, "ats_detector_duration_seconds")
	assert.Contains(t, names, "ats_analyses_total")
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.CountAnalysis(OutcomeSuccess)
		m.CountCacheLookup("results", true)
		m.CountAugmentation(OutcomeSkipped)
		m.CountRetry()
		m.ObserveDetector("dates", time.Millisecond)
	})
}

func TestNew_NilRegistererSkipsRegistration(t *testing.T) {
	a := New(nil)
	b := New(nil)
	assert.NotSame(t, a.Analyses, b.Analyses)
}
