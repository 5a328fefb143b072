package detectors

import (
	"fmt"
	"sort"
	"strings"
	"unicode"

	"github.com/jonathan/ats-checker/internal/ingestion"
	"github.com/jonathan/ats-checker/internal/sections"
	"github.com/jonathan/ats-checker/internal/types"
)

// Formatting penalties and limits.
const (
	missingHeadingPenalty  = 1.5
	missingSummaryPenalty  = 0.5
	tableArtifactPenalty   = 0.5
	tableArtifactCap       = 2.0
	decorativePenalty      = 0.5
	decorativeCap          = 1.5
	allCapsPenalty         = 0.25
	allCapsCap             = 1.0
	documentLengthPenalty  = 1.5
	minDocumentWords       = 200
	maxDocumentWords       = 1000
	tablePipeThreshold     = 2
	allCapsMinWords        = 4
	verbFirstSkipThreshold = 2
)

var requiredHeadings = []string{"experience", "education", "skills"}

type formattingDetector struct{ rules *ruleSet }

func (d *formattingDetector) Kind() sections.Kind { return sections.FormattingLayout }

// Detect checks headings and layout artifacts that ATS parsers trip over.
func (d *formattingDetector) Detect(text *types.ResumeText, _ Params) (types.SectionAnalysis, error) {
	b := newBuilder(sections.FormattingLayout)
	lines := text.Lines()
	blocks := splitBlocks(lines)
	penalty := 0.0
	var notes []string

	for _, h := range requiredHeadings {
		if _, ok := hasHeading(blocks, h); !ok {
			penalty += missingHeadingPenalty
			b.add("missing_heading", types.SeverityCritical, nil,
				fmt.Sprintf("No %s heading; ATS parsers look for standard section titles", h))
			notes = append(notes, "no "+h+" heading")
		}
	}
	if _, ok := hasHeading(blocks, "summary"); !ok {
		penalty += missingSummaryPenalty
		b.add("missing_summary_heading", types.SeverityInfo, nil, "No summary or profile heading")
	}

	table, decorative, caps := 0.0, 0.0, 0.0
	for i, l := range lines {
		if i >= d.rules.headerLines && strings.Count(l.Text, "|") >= tablePipeThreshold {
			table += tableArtifactPenalty
			b.add("table", types.SeverityWarning, spanFor(l, "|"), "Table or column layout; ATS parsers may scramble it")
		}
		if sym := decorativeSymbol(l.Text); sym != "" {
			decorative += decorativePenalty
			b.add("decorative", types.SeverityWarning, spanFor(l, sym),
				fmt.Sprintf("Decorative symbol %q may not survive ATS parsing", sym))
		}
		if _, heading := headingOf(l.Text); !heading && isAllCaps(l.Text) && len(l.Tokens) >= allCapsMinWords {
			caps += allCapsPenalty
			b.add("all_caps", types.SeverityInfo, spanFor(l, ""), "Avoid long all-caps lines")
		}
	}
	penalty += min(table, tableArtifactCap) + min(decorative, decorativeCap) + min(caps, allCapsCap)

	words := text.WordCount()
	switch {
	case words < minDocumentWords:
		penalty += documentLengthPenalty
		b.add("too_short", types.SeverityWarning, nil,
			fmt.Sprintf("Resume has %d words; aim for %d-%d", words, minDocumentWords, maxDocumentWords))
		notes = append(notes, "too short")
	case words > maxDocumentWords:
		penalty += documentLengthPenalty
		b.add("too_long", types.SeverityWarning, nil,
			fmt.Sprintf("Resume has %d words; aim for %d-%d", words, minDocumentWords, maxDocumentWords))
		notes = append(notes, "too long")
	}

	if penalty == 0 {
		b.add("clean", types.SeverityPositive, nil, "Standard headings and a parser-friendly layout")
	}
	rationale := fmt.Sprintf("%.2f point(s) of layout penalties", penalty)
	if len(notes) > 0 {
		rationale += ": " + strings.Join(notes, ", ")
	}
	return b.result(types.MaxSectionScore-penalty, rationale), nil
}

// decorativeSymbol returns the first pictographic or dingbat rune in s.
func decorativeSymbol(s string) string {
	for _, r := range s {
		if unicode.Is(unicode.So, r) {
			return string(r)
		}
	}
	return ""
}

func isAllCaps(s string) bool {
	letters := 0
	for _, r := range s {
		if unicode.IsLetter(r) {
			if !unicode.IsUpper(r) {
				return false
			}
			letters++
		}
	}
	return letters > 0
}

type lineDetector struct{ rules *ruleSet }

func (d *lineDetector) Kind() sections.Kind { return sections.LineByLine }

// Detect applies per-line rules to list items and sentence-length lines.
// Each line starts at 10 and loses LineRulePenalty per rule it breaks; the
// section score is the mean over all checked lines.
func (d *lineDetector) Detect(text *types.ResumeText, _ Params) (types.SectionAnalysis, error) {
	b := newBuilder(sections.LineByLine)
	t := d.rules.tuning
	lines := text.Lines()

	markers := make(map[string]int)
	for _, l := range lines {
		if m := ingestion.BulletMarker(l.Text); m != "" {
			markers[m]++
		}
	}
	dominant := dominantMarker(markers)

	checked, total := 0, 0.0
	for i, l := range lines {
		if i < d.rules.headerLines && !ingestion.IsBulletLine(l.Text) {
			continue
		}
		if _, ok := headingOf(l.Text); ok {
			continue
		}
		bullet := ingestion.IsBulletLine(l.Text)
		tokens := bodyTokens(l)
		if !bullet && len(tokens) < 6 {
			continue
		}

		violations := 0
		if len(l.Text) > t.MaxLineLength {
			violations++
			b.add("too_long", types.SeverityWarning, spanFor(l, ""),
				fmt.Sprintf("Line %d has %d characters; keep lines under %d", l.Number, len(l.Text), t.MaxLineLength))
		}
		if bullet && len(tokens) < t.MinBulletWords {
			violations++
			b.add("too_short", types.SeverityInfo, spanFor(l, ""),
				fmt.Sprintf("Line %d is too short to show impact", l.Number))
		}
		if bullet && len(tokens) >= verbFirstSkipThreshold && !looksLikeActionVerb(tokens[0], d.rules.strongVerbs) {
			violations++
			b.add("verb_first", types.SeverityWarning, spanFor(l, ""),
				fmt.Sprintf("Line %d should open with an action verb, not %q", l.Number, tokens[0]))
		}
		if m := ingestion.BulletMarker(l.Text); m != "" && len(markers) > 1 && m != dominant {
			violations++
			b.add("bullet_marker", types.SeverityInfo, spanFor(l, m),
				fmt.Sprintf("Line %d uses %q while most lines use %q", l.Number, m, dominant))
		}

		checked++
		total += max(0, types.MaxSectionScore-float64(violations)*t.LineRulePenalty)
	}

	if checked == 0 {
		b.add("no_lines", types.SeverityInfo, nil, "No list items or sentences to review")
		return b.result(t.NeutralScore, "no lines to review"), nil
	}
	return b.result(total/float64(checked), fmt.Sprintf("mean line score over %d line(s)", checked)), nil
}

// dominantMarker picks the most used list marker, breaking ties by marker text.
func dominantMarker(counts map[string]int) string {
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if counts[keys[i]] != counts[keys[j]] {
			return counts[keys[i]] > counts[keys[j]]
		}
		return keys[i] < keys[j]
	})
	if len(keys) == 0 {
		return ""
	}
	return keys[0]
}

// unnecessaryHeadings are sections that cost space without helping the application.
var unnecessaryHeadings = map[string]string{
	"hobbies":    "Hobbies rarely help an application; use the space for achievements",
	"interests":  "Interests rarely help an application; use the space for achievements",
	"references": "References are provided on request; the section can go",
	"personal":   "Personal details are not needed and invite bias",
}

type unnecessaryDetector struct{ rules *ruleSet }

func (d *unnecessaryDetector) Kind() sections.Kind { return sections.UnnecessarySections }

// Detect penalizes sections and lines that do not belong on a resume.
func (d *unnecessaryDetector) Detect(text *types.ResumeText, _ Params) (types.SectionAnalysis, error) {
	b := newBuilder(sections.UnnecessarySections)
	seen := make(map[string]bool)
	count := 0

	for _, l := range text.Lines() {
		if name, ok := headingOf(l.Text); ok {
			if msg, bad := unnecessaryHeadings[name]; bad && !seen["heading:"+name] {
				seen["heading:"+name] = true
				count++
				b.add("section", types.SeverityWarning, spanFor(l, ""), msg)
			}
			continue
		}
		for _, m := range d.rules.personal.find(l.Tokens) {
			key := "marker:" + m.phrase.text
			if seen[key] {
				continue
			}
			seen[key] = true
			count++
			b.add("personal_data", types.SeverityWarning, spanFor(l, m.phrase.text),
				fmt.Sprintf("Remove %q; it is not relevant to the application", m.phrase.text))
		}
	}

	if count == 0 {
		b.add("none", types.SeverityPositive, nil, "No unnecessary sections found")
	}
	score := types.MaxSectionScore - float64(count)*d.rules.tuning.UnnecessarySectionPenalty
	return b.result(score, fmt.Sprintf("%d unnecessary item(s)", count)), nil
}
