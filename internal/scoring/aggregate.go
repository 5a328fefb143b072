// Package scoring combines per-section analyses into the overall score, the
// letter grade and the improvement plan.
package scoring

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/jonathan/ats-checker/internal/apperr"
	"github.com/jonathan/ats-checker/internal/sections"
	"github.com/jonathan/ats-checker/internal/types"
)

// WeightTolerance is the accepted deviation of a weight table from 1.0.
const WeightTolerance = 1e-6

// Weights maps each scored section to its share of the overall score.
type Weights map[sections.Kind]float64

// Validate checks that every weight is a non-negative number for a known
// section and that the table sums to 1.0.
func (w Weights) Validate() error {
	if len(w) == 0 {
		return &WeightConfigurationError{Problems: []string{"weight table is empty"}}
	}

	var problems []string
	sum := 0.0
	for _, kind := range w.Kinds() {
		v := w[kind]
		switch {
		case !kind.Valid():
			problems = append(problems, fmt.Sprintf("unknown section %q", kind))
		case math.IsNaN(v) || math.IsInf(v, 0):
			problems = append(problems, fmt.Sprintf("%s: weight is not a number", kind))
		case v < 0:
			problems = append(problems, fmt.Sprintf("%s: negative weight %.4f", kind, v))
		}
		sum += v
	}
	if math.Abs(sum-1.0) > WeightTolerance {
		problems = append(problems, fmt.Sprintf("weights sum to %.6f, want 1.0", sum))
	}

	if len(problems) > 0 {
		return &WeightConfigurationError{Problems: problems}
	}
	return nil
}

// Kinds returns the weighted sections in report order, followed by any
// unknown kinds sorted by name.
func (w Weights) Kinds() []sections.Kind {
	kinds := make([]sections.Kind, 0, len(w))
	for _, k := range sections.All() {
		if _, ok := w[k]; ok {
			kinds = append(kinds, k)
		}
	}
	var unknown []sections.Kind
	for k := range w {
		if !k.Valid() {
			unknown = append(unknown, k)
		}
	}
	sort.Slice(unknown, func(i, j int) bool { return unknown[i] < unknown[j] })
	return append(kinds, unknown...)
}

// Restrict returns the weights of kinds renormalized to sum to 1.0. It is
// used when only a subset of sections is analyzed.
func (w Weights) Restrict(kinds []sections.Kind) (Weights, error) {
	out := make(Weights, len(kinds))
	total := 0.0
	for _, k := range kinds {
		v, ok := w[k]
		if !ok {
			return nil, &WeightConfigurationError{Problems: []string{fmt.Sprintf("section %q has no weight", k)}}
		}
		out[k] = v
		total += v
	}
	if total <= 0 {
		return nil, &WeightConfigurationError{Problems: []string{"selected sections have zero total weight"}}
	}
	for k, v := range out {
		out[k] = v / total
	}
	return out, nil
}

// WeightConfigurationError reports an unusable weight table.
type WeightConfigurationError struct {
	Problems []string
}

func (e *WeightConfigurationError) Error() string {
	return "invalid weight configuration: " + strings.Join(e.Problems, "; ")
}

// Category implements apperr.Categorized.
func (e *WeightConfigurationError) Category() apperr.Category {
	return apperr.CategoryConfiguration
}

// Aggregator computes the overall score from section analyses.
type Aggregator struct {
	weights Weights
}

// NewAggregator validates weights and returns an Aggregator using them.
func NewAggregator(weights Weights) (*Aggregator, error) {
	if err := weights.Validate(); err != nil {
		return nil, err
	}
	w := make(Weights, len(weights))
	for k, v := range weights {
		w[k] = v
	}
	return &Aggregator{weights: w}, nil
}

// Weights returns a copy of the aggregator's weight table.
func (a *Aggregator) Weights() Weights {
	w := make(Weights, len(a.weights))
	for k, v := range a.weights {
		w[k] = v
	}
	return w
}

// Aggregate returns sum(score/max x weight) x 100 rounded to two decimals,
// with its letter grade. Every weighted section must be present; analyses
// of unweighted sections are ignored.
func (a *Aggregator) Aggregate(analyses map[sections.Kind]types.SectionAnalysis) (types.OverallScore, error) {
	var missing []string
	total := 0.0
	for _, kind := range a.weights.Kinds() {
		s, ok := analyses[kind]
		if !ok {
			missing = append(missing, fmt.Sprintf("section %q is weighted but was not analyzed", kind))
			continue
		}
		total += s.Ratio() * a.weights[kind]
	}
	if len(missing) > 0 {
		return types.OverallScore{}, &WeightConfigurationError{Problems: missing}
	}

	score := types.Round2(total * 100)
	return types.OverallScore{
		Score:      score,
		Percentage: score,
		Grade:      GradeFor(score),
	}, nil
}
