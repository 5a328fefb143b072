package detectors

import (
	"fmt"
	"strings"

	"github.com/jonathan/ats-checker/internal/ingestion"
	"github.com/jonathan/ats-checker/internal/sections"
	"github.com/jonathan/ats-checker/internal/types"
)

// maxBareLineFindings limits the "add a metric" hints per report.
const maxBareLineFindings = 5

// achievementLike reports whether a line reads as an accomplishment: a list
// item or a line that opens with an action verb.
func (r *ruleSet) achievementLike(l types.Line) bool {
	if _, ok := headingOf(l.Text); ok {
		return false
	}
	if ingestion.IsBulletLine(l.Text) {
		return true
	}
	return len(l.Tokens) > 0 && looksLikeActionVerb(l.Tokens[0], r.strongVerbs)
}

type quantifiableDetector struct{ rules *ruleSet }

func (d *quantifiableDetector) Kind() sections.Kind { return sections.QuantifiableImpact }

// Detect credits every distinct metric found in achievement-like lines.
func (d *quantifiableDetector) Detect(text *types.ResumeText, _ Params) (types.SectionAnalysis, error) {
	b := newBuilder(sections.QuantifiableImpact)
	t := d.rules.tuning

	distinct := make(map[string]bool)
	candidates, bare := 0, 0
	for _, line := range text.Lines() {
		if !d.rules.achievementLike(line) {
			continue
		}
		candidates++

		spans := metricSpans(line.Text)
		if len(spans) == 0 {
			if bare < maxBareLineFindings {
				b.add("no_metric", types.SeverityInfo, spanFor(line, ""),
					"Add a measurable result (number, percentage or amount) to this line")
			}
			bare++
			continue
		}
		for _, sp := range spans {
			m := line.Text[sp[0]:sp[1]]
			key := strings.ToLower(strings.Join(strings.Fields(m), " "))
			if distinct[key] {
				continue
			}
			distinct[key] = true
			b.add("metric", types.SeverityPositive,
				spanAt(line, sp[0], sp[1]),
				fmt.Sprintf("Quantified result %q", m))
		}
	}

	if candidates == 0 {
		b.add("no_achievements", types.SeverityInfo, nil, "No achievement lines found to measure")
	}
	score := t.QuantifiableBase + float64(len(distinct))*t.QuantifiableIncrement
	return b.result(score, fmt.Sprintf("%d distinct metric(s) across %d achievement line(s)",
		len(distinct), candidates)), nil
}

type achievementsDetector struct{ rules *ruleSet }

func (d *achievementsDetector) Kind() sections.Kind { return sections.AchievementsVsDuties }

// Detect scores 2 + 8 x (achievement lines / candidate lines).
func (d *achievementsDetector) Detect(text *types.ResumeText, _ Params) (types.SectionAnalysis, error) {
	b := newBuilder(sections.AchievementsVsDuties)

	blocks := splitBlocks(text.Lines())
	body := make(map[int]bool)
	for _, l := range linesUnder(blocks, "experience", "projects") {
		body[l.Number] = true
	}

	total, achieved := 0, 0
	for _, line := range text.Lines() {
		tokens := bodyTokens(line)
		if _, ok := headingOf(line.Text); ok || len(tokens) < d.rules.tuning.MinBulletWords {
			continue
		}
		if !ingestion.IsBulletLine(line.Text) && !body[line.Number] {
			continue
		}
		total++

		duty := d.rules.duties.find(tokens)
		outcome := d.rules.achievements.find(tokens)
		switch {
		case len(duty) > 0:
			b.add("duty", types.SeverityWarning, spanFor(line, duty[0].phrase.text),
				fmt.Sprintf("%q describes a duty; state what changed because of your work", duty[0].phrase.text))
		case len(outcome) > 0 || len(metricSpans(line.Text)) > 0:
			achieved++
			b.add("achievement", types.SeverityPositive, spanFor(line, ""), "Line states an outcome")
		}
	}

	if total == 0 {
		b.add("no_lines", types.SeverityInfo, nil, "No experience lines found")
		return b.result(d.rules.tuning.NeutralScore, "no experience lines to classify"), nil
	}
	ratio := float64(achieved) / float64(total)
	if ratio < 0.5 {
		b.add("low_ratio", types.SeverityWarning, nil,
			fmt.Sprintf("Only %d of %d lines describe achievements", achieved, total))
	}
	return b.result(2+8*ratio, fmt.Sprintf("%d of %d line(s) are achievement-focused", achieved, total)), nil
}
