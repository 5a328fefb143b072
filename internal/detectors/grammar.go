package detectors

import (
	"fmt"
	"math"
	"regexp"
	"strings"
	"unicode"

	"github.com/jonathan/ats-checker/internal/sections"
	"github.com/jonathan/ats-checker/internal/types"
)

var (
	lowercaseI = regexp.MustCompile(`(?:^|[\s(])(i)(?:[\s,.;:!?)]|'m|'ve|'d|'ll|$)`)
	wordToken  = regexp.MustCompile(`[A-Za-z][A-Za-z']+`)
)

type grammarDetector struct{ rules *ruleSet }

func (d *grammarDetector) Kind() sections.Kind { return sections.GrammarSpelling }

// Detect flags typos, dialect spelling variants, missing apostrophes,
// doubled words and nonstandard phrasing. The first GrammarPenaltyCap issues
// cost GrammarPenalty each; later ones cost GrammarPenalty x GrammarDecay.
func (d *grammarDetector) Detect(text *types.ResumeText, _ Params) (types.SectionAnalysis, error) {
	b := newBuilder(sections.GrammarSpelling)
	issues := 0
	flag := func(rule string, line types.Line, needle, message string) {
		issues++
		b.add(rule, types.SeverityWarning, spanFor(line, needle), message)
	}

	for _, line := range text.Lines() {
		if emailPattern.MatchString(line.Text) && len(line.Tokens) <= 6 {
			continue
		}

		for _, m := range lowercaseI.FindAllStringSubmatchIndex(line.Text, -1) {
			if strings.HasPrefix(line.Text[m[3]:], ".e") {
				continue
			}
			issues++
			b.add("lowercase_i", types.SeverityWarning,
				spanAt(line, m[2], m[3]),
				"Capitalize the pronoun \"I\"")
		}

		for _, m := range d.rules.nonStandard.find(line.Tokens) {
			flag("phrasing", line, m.phrase.text,
				fmt.Sprintf("%q is nonstandard; use %q", m.phrase.text, nonStandardPhrases[m.phrase.text]))
		}

		prev := ""
		for _, tok := range line.Tokens {
			switch {
			case tok == prev && isAlpha(tok) && len(tok) > 1:
				flag("doubled_word", line, tok+" "+tok, fmt.Sprintf("Repeated word %q", tok))
			case hasKey(d.rules.typos, tok):
				msg := fmt.Sprintf("Possible misspelling %q", tok)
				if fix := d.rules.typos[tok]; fix != "" {
					msg = fmt.Sprintf("Misspelling %q; use %q", tok, fix)
				}
				flag("spelling", line, tok, msg)
			case missingApostrophes[tok] != "":
				flag("apostrophe", line, tok, fmt.Sprintf("Missing apostrophe in %q; use %q", tok, missingApostrophes[tok]))
			case d.rules.dialect.variants[tok] != "":
				flag("dialect", line, tok, fmt.Sprintf("%q is a US spelling; %s English uses %q",
					tok, dialectLabel(d.rules.dialect.name), d.rules.dialect.variants[tok]))
			}
			prev = tok
		}

		if d.rules.vocabulary != nil {
			for _, w := range d.unknownWords(line.Text) {
				flag("vocabulary", line, w, fmt.Sprintf("Unrecognized word %q", w))
			}
		}
	}

	t := d.rules.tuning
	capped := math.Min(float64(issues), float64(t.GrammarPenaltyCap))
	over := math.Max(0, float64(issues-t.GrammarPenaltyCap))
	penalty := capped*t.GrammarPenalty + over*t.GrammarPenalty*t.GrammarDecay

	if issues == 0 {
		b.add("clean", types.SeverityPositive, nil, "No spelling or grammar issues found")
	}
	return b.result(types.MaxSectionScore-penalty,
		fmt.Sprintf("%d issue(s), %.2f point penalty (%s English)", issues, penalty, dialectLabel(d.rules.dialect.name))), nil
}

// unknownWords returns lowercase words in s missing from the vocabulary.
// Capitalized words are treated as proper nouns and skipped.
func (d *grammarDetector) unknownWords(s string) []string {
	var out []string
	for _, w := range wordToken.FindAllString(s, -1) {
		if len(w) < 3 || unicode.IsUpper([]rune(w)[0]) {
			continue
		}
		lw := strings.Trim(strings.ToLower(w), "'")
		if d.rules.vocabulary[lw] || d.rules.vocabulary[strings.TrimSuffix(lw, "'s")] {
			continue
		}
		if hasKey(d.rules.typos, lw) || d.rules.dialect.variants[lw] != "" || missingApostrophes[lw] != "" {
			continue
		}
		out = append(out, lw)
	}
	return out
}

func dialectLabel(name string) string {
	if name == "indian" {
		return "Indian"
	}
	return "UK"
}

func hasKey(m map[string]string, k string) bool {
	_, ok := m[k]
	return ok
}

func isAlpha(s string) bool {
	for _, r := range s {
		if !unicode.IsLetter(r) {
			return false
		}
	}
	return true
}
