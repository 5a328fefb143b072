package types

import (
	"fmt"
	"maps"
	"math"
	"time"

	"github.com/jonathan/ats-checker/internal/sections"
)

// MaxSectionScore is the upper bound of every section score.
const MaxSectionScore = 10.0

// Severity grades a finding. Positive findings record strengths.
type Severity string

const (
	SeverityPositive Severity = "positive"
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// Span locates the evidence for a finding in the resume.
type Span struct {
	Line   int    `json:"line"`   // 1-based line number
	Offset int    `json:"offset"` // byte offset in the raw input
	Length int    `json:"length"` // byte length in the raw input
	Column int    `json:"column"` // byte offset of Text in the normalized line
	Text   string `json:"text"`
}

// Finding is one rule-attributed observation.
type Finding struct {
	RuleID   string   `json:"rule_id" yaml:"rule_id"`
	Message  string   `json:"message" yaml:"message"`
	Evidence *Span    `json:"evidence_span,omitempty" yaml:"evidence_span,omitempty"`
	Severity Severity `json:"severity" yaml:"severity"`
}

// AIContent is generated text attached to a section when augmentation succeeds.
type AIContent struct {
	Feedback    string   `json:"feedback" yaml:"feedback" mapstructure:"feedback"`
	Suggestions []string `json:"suggestions,omitempty" yaml:"suggestions,omitempty" mapstructure:"suggestions"`
	Rewrite     string   `json:"rewrite,omitempty" yaml:"rewrite,omitempty" mapstructure:"rewrite"`
	Model       string   `json:"model,omitempty" yaml:"model,omitempty" mapstructure:"-"`
}

// SectionAnalysis is the outcome of one detector.
type SectionAnalysis struct {
	Section   sections.Kind `json:"section_name" yaml:"section_name"`
	Score     float64       `json:"score" yaml:"score"`
	MaxScore  float64       `json:"max_score" yaml:"max_score"`
	Findings  []Finding     `json:"findings" yaml:"findings"`
	Rationale string        `json:"rationale" yaml:"rationale"`
	AIContent *AIContent    `json:"ai_content,omitempty" yaml:"ai_content,omitempty"`
}

// Validate checks the score bounds.
func (s SectionAnalysis) Validate() error {
	if s.MaxScore != MaxSectionScore {
		return fmt.Errorf("section %s: max score %.2f, want %.1f", s.Section, s.MaxScore, MaxSectionScore)
	}
	if math.IsNaN(s.Score) || s.Score < 0 || s.Score > s.MaxScore {
		return fmt.Errorf("section %s: score %.2f outside [0, %.1f]", s.Section, s.Score, s.MaxScore)
	}
	return nil
}

// Ratio returns score / max score.
func (s SectionAnalysis) Ratio() float64 {
	if s.MaxScore == 0 {
		return 0
	}
	return s.Score / s.MaxScore
}

// ClampScore bounds v to [0, MaxSectionScore] and rounds to two decimals.
func ClampScore(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > MaxSectionScore {
		v = MaxSectionScore
	}
	return Round2(v)
}

// Round2 rounds to two decimals.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// OverallScore is the weighted aggregate over all sections.
type OverallScore struct {
	Score      float64 `json:"score" yaml:"score"`
	Percentage float64 `json:"percentage" yaml:"percentage"`
	Grade      string  `json:"grade" yaml:"grade"`
}

// Recommendation is advice for a weak section.
type Recommendation struct {
	Section sections.Kind `json:"section" yaml:"section"`
	Score   float64       `json:"score" yaml:"score"`
	Message string        `json:"message" yaml:"message"`
}

// Priority ranks a section among the ones most worth improving.
type Priority struct {
	Rank    int           `json:"rank" yaml:"rank"`
	Section sections.Kind `json:"section" yaml:"section"`
	Score   float64       `json:"score" yaml:"score"`
}

// ActionItem is a prioritized task derived from a section score.
type ActionItem struct {
	Priority string        `json:"priority" yaml:"priority"` // URGENT, HIGH or MEDIUM
	Section  sections.Kind `json:"section" yaml:"section"`
	Action   string        `json:"action" yaml:"action"`
}

// KeywordReport summarizes keyword coverage against a job or role list.
type KeywordReport struct {
	Source          string   `json:"source" yaml:"source"`
	Total           int      `json:"total" yaml:"total"`
	Found           []string `json:"found" yaml:"found"`
	Missing         []string `json:"missing" yaml:"missing"`
	MatchPercentage float64  `json:"match_percentage" yaml:"match_percentage"`
	Competitiveness string   `json:"competitiveness" yaml:"competitiveness"`
}

// AnalysisResult is the response for one analysis request. Values are never
// modified after construction; the With* methods return copies.
type AnalysisResult struct {
	ID              string                            `json:"id" yaml:"id"`
	Filename        string                            `json:"filename" yaml:"filename"`
	Fingerprint     string                            `json:"fingerprint" yaml:"fingerprint"`
	RuleVersion     string                            `json:"rule_version" yaml:"rule_version"`
	OverallScore    OverallScore                      `json:"overall_score" yaml:"overall_score"`
	Sections        map[sections.Kind]SectionAnalysis `json:"section_analyses" yaml:"section_analyses"`
	Recommendations []Recommendation                  `json:"recommendations,omitempty" yaml:"recommendations,omitempty"`
	Priorities      []Priority                        `json:"improvement_priorities,omitempty" yaml:"improvement_priorities,omitempty"`
	ActionItems     []ActionItem                      `json:"action_items,omitempty" yaml:"action_items,omitempty"`
	Keywords        *KeywordReport                    `json:"keyword_report,omitempty" yaml:"keyword_report,omitempty"`
	Timestamp       time.Time                         `json:"timestamp" yaml:"timestamp"`
	Degraded        bool                              `json:"degraded" yaml:"degraded"`
	DegradedReason  string                            `json:"degraded_reason,omitempty" yaml:"degraded_reason,omitempty"`
}

// Section returns the analysis for kind.
func (r *AnalysisResult) Section(kind sections.Kind) (SectionAnalysis, bool) {
	s, ok := r.Sections[kind]
	return s, ok
}

// OrderedSections returns the analyses in report order.
func (r *AnalysisResult) OrderedSections() []SectionAnalysis {
	out := make([]SectionAnalysis, 0, len(r.Sections))
	for _, kind := range sections.All() {
		if s, ok := r.Sections[kind]; ok {
			out = append(out, s)
		}
	}
	return out
}

// WithFilename returns a copy carrying filename.
func (r *AnalysisResult) WithFilename(filename string) *AnalysisResult {
	out := *r
	out.Filename = filename
	return &out
}

// WithAugmentation returns a copy where each section in content carries its
// generated text. Scores are untouched.
func (r *AnalysisResult) WithAugmentation(content map[sections.Kind]AIContent) *AnalysisResult {
	out := *r
	out.Sections = maps.Clone(r.Sections)
	for kind, c := range content {
		s, ok := out.Sections[kind]
		if !ok {
			continue
		}
		s.AIContent = &c
		out.Sections[kind] = s
	}
	return &out
}

// WithEvidenceFrom returns a copy whose evidence offsets point into the raw
// input behind text. Results are cached by normalized text, so documents with
// a different raw layout share one result and each needs its own offsets.
func (r *AnalysisResult) WithEvidenceFrom(text *ResumeText) *AnalysisResult {
	out := *r
	out.Sections = make(map[sections.Kind]SectionAnalysis, len(r.Sections))
	for kind, s := range r.Sections {
		if len(s.Findings) > 0 {
			findings := make([]Finding, len(s.Findings))
			for i, f := range s.Findings {
				if f.Evidence != nil {
					span := rebase(*f.Evidence, text)
					f.Evidence = &span
				}
				findings[i] = f
			}
			s.Findings = findings
		}
		out.Sections[kind] = s
	}
	return &out
}

func rebase(span Span, text *ResumeText) Span {
	line, ok := text.Line(span.Line - 1)
	if !ok || span.Column < 0 || span.Column+len(span.Text) > len(line.Text) {
		return span
	}
	if line.Text[span.Column:span.Column+len(span.Text)] != span.Text {
		return span
	}
	span.Offset, span.Length = line.RawRange(span.Column, span.Column+len(span.Text))
	return span
}

// WithDegraded returns a copy flagged as degraded.
func (r *AnalysisResult) WithDegraded(reason string) *AnalysisResult {
	out := *r
	out.Degraded = true
	out.DegradedReason = reason
	return &out
}
