// Package sections defines the closed set of analysis dimensions a resume is scored on.
package sections

import (
	"fmt"
	"strings"

	"github.com/jonathan/ats-checker/internal/apperr"
)

// Kind identifies one analysis dimension.
type Kind string

const (
	Summary              Kind = "summary"
	Dates                Kind = "dates"
	WeakVerbs            Kind = "weak_verbs"
	QuantifiableImpact   Kind = "quantifiable_impact"
	Teamwork             Kind = "teamwork"
	Buzzwords            Kind = "buzzwords"
	UnnecessarySections  Kind = "unnecessary_sections"
	ContactDetails       Kind = "contact_details"
	LineByLine           Kind = "line_by_line"
	GrammarSpelling      Kind = "grammar_spelling"
	FormattingLayout     Kind = "formatting_layout"
	ATSKeywords          Kind = "ats_keywords"
	SkillsRelevance      Kind = "skills_relevance"
	AchievementsVsDuties Kind = "achievements_vs_responsibilities"
	EducationClarity     Kind = "education_clarity"
)

// all keeps the canonical report order.
var all = []Kind{
	Summary,
	ContactDetails,
	FormattingLayout,
	ATSKeywords,
	SkillsRelevance,
	AchievementsVsDuties,
	QuantifiableImpact,
	WeakVerbs,
	Buzzwords,
	Teamwork,
	Dates,
	GrammarSpelling,
	LineByLine,
	EducationClarity,
	UnnecessarySections,
}

var titles = map[Kind]string{
	Summary:              "Summary",
	Dates:                "Dates",
	WeakVerbs:            "Weak Verbs",
	QuantifiableImpact:   "Quantifiable Impact",
	Teamwork:             "Teamwork",
	Buzzwords:            "Buzzwords",
	UnnecessarySections:  "Unnecessary Sections",
	ContactDetails:       "Contact Details",
	LineByLine:           "Line by Line",
	GrammarSpelling:      "Grammar & Spelling",
	FormattingLayout:     "Formatting & Layout",
	ATSKeywords:          "ATS Keywords",
	SkillsRelevance:      "Skills Relevance",
	AchievementsVsDuties: "Achievements vs Responsibilities",
	EducationClarity:     "Education Clarity",
}

// All returns every kind in report order.
func All() []Kind {
	out := make([]Kind, len(all))
	copy(out, all)
	return out
}

// Title returns the human readable name of k.
func (k Kind) Title() string {
	if t, ok := titles[k]; ok {
		return t
	}
	return string(k)
}

// Valid reports whether k belongs to the closed set.
func (k Kind) Valid() bool {
	_, ok := titles[k]
	return ok
}

// Parse resolves a section name. Dashes, spaces and case are tolerated
// ("Weak Verbs", "weak-verbs").
func Parse(name string) (Kind, error) {
	normalized := strings.ToLower(strings.TrimSpace(name))
	normalized = strings.NewReplacer("-", "_", " ", "_").Replace(normalized)

	k := Kind(normalized)
	if !k.Valid() {
		return "", &UnknownSectionError{Name: name}
	}
	return k, nil
}

// ParseList resolves every name, failing on the first unknown one.
// Duplicates are dropped, order is preserved.
func ParseList(names []string) ([]Kind, error) {
	seen := make(map[Kind]bool, len(names))
	kinds := make([]Kind, 0, len(names))
	for _, name := range names {
		if strings.TrimSpace(name) == "" {
			continue
		}
		k, err := Parse(name)
		if err != nil {
			return nil, err
		}
		if seen[k] {
			continue
		}
		seen[k] = true
		kinds = append(kinds, k)
	}
	return kinds, nil
}

// UnknownSectionError is returned for names outside the closed set.
type UnknownSectionError struct {
	Name string
}

func (e *UnknownSectionError) Error() string {
	return fmt.Sprintf("unknown section %q", e.Name)
}

// Category implements apperr.Categorized.
func (e *UnknownSectionError) Category() apperr.Category {
	return apperr.CategoryUnknownSection
}
