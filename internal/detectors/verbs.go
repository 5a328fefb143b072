package detectors

import (
	"fmt"

	"github.com/jonathan/ats-checker/internal/sections"
	"github.com/jonathan/ats-checker/internal/types"
)

// weakVerbAlternatives suggests a replacement for common weak verbs.
var weakVerbAlternatives = map[string]string{
	"helped":              "enabled",
	"helped with":         "drove",
	"assisted":            "facilitated",
	"worked on":           "developed",
	"participated in":     "contributed",
	"was involved in":     "delivered",
	"contributed to":      "drove",
	"supported":           "enabled",
	"was responsible for": "led",
	"made":                "built",
	"used":                "applied",
	"handled":             "managed",
	"did":                 "executed",
}

type weakVerbDetector struct{ rules *ruleSet }

func (d *weakVerbDetector) Kind() sections.Kind { return sections.WeakVerbs }

func (d *weakVerbDetector) Detect(text *types.ResumeText, _ Params) (types.SectionAnalysis, error) {
	b := newBuilder(sections.WeakVerbs)
	hits := 0
	for _, line := range text.Lines() {
		for _, m := range d.rules.weakVerbs.find(line.Tokens) {
			hits++
			alt, ok := weakVerbAlternatives[m.phrase.text]
			if !ok {
				alt = "led"
			}
			b.add("weak_verb", types.SeverityWarning, spanFor(line, m.phrase.text),
				fmt.Sprintf("Weak verb %q; prefer a strong action verb such as %q", m.phrase.text, alt))
		}
	}

	penalty := d.rules.tuning.WeakVerbPenalty
	if hits == 0 {
		b.add("none", types.SeverityPositive, nil, "No weak verbs found")
	}
	score := types.MaxSectionScore - float64(hits)*penalty
	return b.result(score, fmt.Sprintf("%d weak verb occurrence(s) at %.2f points each", hits, penalty)), nil
}

type buzzwordDetector struct{ rules *ruleSet }

func (d *buzzwordDetector) Kind() sections.Kind { return sections.Buzzwords }

// Detect counts each buzzword once per line.
func (d *buzzwordDetector) Detect(text *types.ResumeText, _ Params) (types.SectionAnalysis, error) {
	b := newBuilder(sections.Buzzwords)
	hits := 0
	for _, line := range text.Lines() {
		seen := make(map[string]bool)
		for _, m := range d.rules.buzzwords.find(line.Tokens) {
			if seen[m.phrase.text] {
				continue
			}
			seen[m.phrase.text] = true
			hits++
			b.add("buzzword", types.SeverityWarning, spanFor(line, m.phrase.text),
				fmt.Sprintf("Buzzword %q adds little; show the quality with a concrete result instead", m.phrase.text))
		}
	}

	penalty := d.rules.tuning.BuzzwordPenalty
	if hits == 0 {
		b.add("none", types.SeverityPositive, nil, "No buzzwords or clichés found")
	}
	score := types.MaxSectionScore - float64(hits)*penalty
	return b.result(score, fmt.Sprintf("%d buzzword(s) at %.2f points each", hits, penalty)), nil
}

type teamworkDetector struct{ rules *ruleSet }

func (d *teamworkDetector) Kind() sections.Kind { return sections.Teamwork }

// Detect credits each line that shows collaboration, up to the maximum score.
func (d *teamworkDetector) Detect(text *types.ResumeText, _ Params) (types.SectionAnalysis, error) {
	b := newBuilder(sections.Teamwork)
	t := d.rules.tuning
	lines := 0
	for _, line := range text.Lines() {
		if _, ok := headingOf(line.Text); ok {
			continue
		}
		matches := d.rules.teamwork.find(line.Tokens)
		if len(matches) == 0 {
			continue
		}
		lines++
		b.add("indicator", types.SeverityPositive, spanFor(line, matches[0].phrase.text),
			fmt.Sprintf("Collaboration shown through %q", matches[0].phrase.text))
	}

	if lines == 0 {
		b.add("missing", types.SeverityWarning, nil,
			"No evidence of teamwork; mention who you worked with, led or mentored")
	}
	score := t.TeamworkBase + float64(lines)*t.TeamworkIncrement
	return b.result(score, fmt.Sprintf("base %.1f plus %.1f for each of %d collaborative line(s)",
		t.TeamworkBase, t.TeamworkIncrement, lines)), nil
}
