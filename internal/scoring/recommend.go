package scoring

import (
	"fmt"
	"sort"

	"github.com/jonathan/ats-checker/internal/sections"
	"github.com/jonathan/ats-checker/internal/types"
)

// Improvement plan defaults.
const (
	RecommendationThreshold = 7.0
	MaxPriorities           = 5
	MaxActionItems          = 3
	urgentBelow             = 5.0
	highBelow               = 7.0
)

// Action item priorities.
const (
	PriorityUrgent = "URGENT"
	PriorityHigh   = "HIGH"
	PriorityMedium = "MEDIUM"
)

var advice = map[sections.Kind]string{
	sections.Summary:              "Enhance the summary with quantifiable achievements and action verbs",
	sections.ContactDetails:       "Add the missing contact details at the top of the resume",
	sections.FormattingLayout:     "Use standard section headings and a single-column layout",
	sections.ATSKeywords:          "Incorporate more of the job's keywords naturally",
	sections.SkillsRelevance:      "Add more relevant technical and soft skills",
	sections.AchievementsVsDuties: "Rewrite duties as achievements that state an outcome",
	sections.QuantifiableImpact:   "Quantify results with numbers, percentages or amounts",
	sections.WeakVerbs:            "Replace weak verbs with strong action verbs",
	sections.Buzzwords:            "Replace buzzwords with concrete evidence",
	sections.Teamwork:             "Show collaboration and leadership examples",
	sections.Dates:                "Use one date format throughout",
	sections.GrammarSpelling:      "Fix the spelling and grammar issues",
	sections.LineByLine:           "Tighten list items: open with a verb and keep lines short",
	sections.EducationClarity:     "State the degree, institution and graduation year",
	sections.UnnecessarySections:  "Remove hobbies, references and personal details",
}

// Advice returns the improvement hint for kind.
func Advice(kind sections.Kind) string {
	if a, ok := advice[kind]; ok {
		return a
	}
	return "Review this section"
}

// Recommend returns advice for every section scoring below threshold, in
// report order. A resume with no weak section gets a single general note.
func Recommend(analyses map[sections.Kind]types.SectionAnalysis, threshold float64) []types.Recommendation {
	var recs []types.Recommendation
	for _, kind := range sections.All() {
		s, ok := analyses[kind]
		if !ok || s.Score >= threshold {
			continue
		}
		recs = append(recs, types.Recommendation{Section: kind, Score: s.Score, Message: Advice(kind)})
	}
	if len(recs) == 0 && len(analyses) > 0 {
		recs = append(recs, types.Recommendation{Message: "Resume is well optimized; focus on continuous improvement"})
	}
	return recs
}

// Prioritize ranks the n lowest-scoring sections. Ties keep report order.
func Prioritize(analyses map[sections.Kind]types.SectionAnalysis, n int) []types.Priority {
	ordered := make([]types.SectionAnalysis, 0, len(analyses))
	for _, kind := range sections.All() {
		if s, ok := analyses[kind]; ok {
			ordered = append(ordered, s)
		}
	}
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].Score < ordered[j].Score })

	if n > len(ordered) {
		n = len(ordered)
	}
	out := make([]types.Priority, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, types.Priority{Rank: i + 1, Section: ordered[i].Section, Score: ordered[i].Score})
	}
	return out
}

// ActionItems turns the top priorities into tasks graded by urgency.
func ActionItems(priorities []types.Priority, limit int) []types.ActionItem {
	if limit > len(priorities) {
		limit = len(priorities)
	}
	items := make([]types.ActionItem, 0, limit)
	for _, p := range priorities[:limit] {
		level, verb := PriorityMedium, "Fine-tune"
		switch {
		case p.Score < urgentBelow:
			level, verb = PriorityUrgent, "Completely revise"
		case p.Score < highBelow:
			level, verb = PriorityHigh, "Improve"
		}
		items = append(items, types.ActionItem{
			Priority: level,
			Section:  p.Section,
			Action: fmt.Sprintf("%s the %s section (score %.1f/10): %s",
				verb, p.Section.Title(), p.Score, Advice(p.Section)),
		})
	}
	return items
}
