package detectors

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/jonathan/ats-checker/internal/sections"
	"github.com/jonathan/ats-checker/internal/types"
)

var (
	sentenceEnd   = regexp.MustCompile(`[.!?]+(?:\s|$)`)
	degreePattern = regexp.MustCompile(`(?i)\b(?:bachelor'?s?|master'?s?|ph\.?\s?d|doctorate|mba|b\.?\s?tech|m\.?\s?tech|b\.?\s?sc|m\.?\s?sc|b\.?\s?e\b|m\.?\s?e\b|b\.?\s?a\b|m\.?\s?a\b|b\.?\s?com|m\.?\s?com|bca|mca|diploma|associate'?s?|degree|hnd|a-levels|gcse)`)
	schoolPattern = regexp.MustCompile(`(?i)\b(?:university|college|institute|school|academy|polytechnic|iit|nit)\b`)
	yearPattern   = regexp.MustCompile(`\b(?:19|20)\d{2}\b`)
)

var firstPerson = map[string]bool{"i": true, "me": true, "my": true, "i'm": true, "myself": true}

type summaryDetector struct{ rules *ruleSet }

func (d *summaryDetector) Kind() sections.Kind { return sections.Summary }

// Detect starts the summary at 5 and adjusts it for sentence count, length,
// action verbs, metrics, buzzwords and first-person voice.
func (d *summaryDetector) Detect(text *types.ResumeText, _ Params) (types.SectionAnalysis, error) {
	b := newBuilder(sections.Summary)
	blocks := splitBlocks(text.Lines())
	heading, ok := hasHeading(blocks, "summary")
	lines := linesUnder(blocks, "summary")
	if !ok || len(lines) == 0 {
		b.add("missing", types.SeverityCritical, nil, "No professional summary; add a 3-4 sentence profile at the top")
		return b.result(2, "no summary section"), nil
	}

	parts := make([]string, 0, len(lines))
	var tokens []string
	for _, l := range lines {
		parts = append(parts, l.Text)
		tokens = append(tokens, bodyTokens(l)...)
	}
	body := strings.Join(parts, " ")
	score := d.rules.tuning.NeutralScore
	var notes []string

	sentences := len(sentenceEnd.FindAllStringIndex(body, -1))
	if sentences == 0 {
		sentences = 1
	}
	switch {
	case sentences >= 3 && sentences <= 4:
		score++
		b.add("sentences", types.SeverityPositive, spanFor(*heading, ""), fmt.Sprintf("%d sentences, a good length", sentences))
	case sentences > 4:
		score--
		b.add("sentences", types.SeverityWarning, spanFor(*heading, ""), fmt.Sprintf("%d sentences; keep the summary to 3-4", sentences))
	}
	notes = append(notes, fmt.Sprintf("%d sentence(s)", sentences))

	if n := len(body); n < 100 || n > 600 {
		score--
		b.add("length", types.SeverityWarning, nil, fmt.Sprintf("Summary is %d characters; aim for 100-600", n))
	}

	strong := 0
	for _, tok := range tokens {
		if d.rules.strongVerbs.has(tok) {
			strong++
		}
	}
	score += min(2, 0.5*float64(strong))
	notes = append(notes, fmt.Sprintf("%d action verb(s)", strong))

	metrics := len(metricSpans(body))
	if metrics > 0 {
		b.add("metrics", types.SeverityPositive, nil, fmt.Sprintf("%d quantified claim(s)", metrics))
	}
	score += min(2, float64(metrics))

	buzz := d.rules.buzzwords.find(tokens)
	for _, m := range buzz {
		b.add("buzzword", types.SeverityWarning, nil, fmt.Sprintf("Buzzword %q in summary", m.phrase.text))
	}
	score -= min(2, 0.5*float64(len(buzz)))

	for _, tok := range tokens {
		if firstPerson[tok] {
			score -= 0.5
			b.add("first_person", types.SeverityInfo, nil, "Write the summary without first-person pronouns")
			break
		}
	}

	return b.result(score, "summary: "+strings.Join(notes, ", ")), nil
}

type educationDetector struct{ rules *ruleSet }

func (d *educationDetector) Kind() sections.Kind { return sections.EducationClarity }

// Detect awards heading (2), degree (4), institution (2) and year (2).
// Without an education heading the degree is searched document-wide.
func (d *educationDetector) Detect(text *types.ResumeText, _ Params) (types.SectionAnalysis, error) {
	b := newBuilder(sections.EducationClarity)
	blocks := splitBlocks(text.Lines())
	heading, ok := hasHeading(blocks, "education")
	lines := linesUnder(blocks, "education")
	score := 0.0

	if ok {
		score += 2
		b.add("heading", types.SeverityPositive, spanFor(*heading, ""), "Education section found")
	} else {
		b.add("missing_heading", types.SeverityWarning, nil, "No education heading")
		lines = text.Lines()
	}

	check := func(rule string, points float64, re *regexp.Regexp, found, missing string) {
		for _, l := range lines {
			if m := re.FindString(l.Text); m != "" {
				score += points
				b.add(rule, types.SeverityPositive, spanFor(l, m), found)
				return
			}
		}
		b.add("missing_"+rule, types.SeverityWarning, nil, missing)
	}
	check("degree", 4, degreePattern, "Degree stated", "State the degree or qualification earned")
	if ok {
		check("institution", 2, schoolPattern, "Institution named", "Name the institution")
		check("year", 2, yearPattern, "Graduation year given", "Add the graduation year")
	}

	return b.result(score, fmt.Sprintf("%.0f of 10 education clarity points", score)), nil
}
