package detectors

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/jonathan/ats-checker/internal/sections"
	"github.com/jonathan/ats-checker/internal/types"
)

const monthNames = `(?:jan(?:uary)?|feb(?:ruary)?|mar(?:ch)?|apr(?:il)?|may|june?|july?|aug(?:ust)?|sep(?:t(?:ember)?)?|oct(?:ober)?|nov(?:ember)?|dec(?:ember)?)`

// dateFormat is one recognized date style. Formats are tried in order and a
// match claims its bytes, so "2021-03" is not also read as the year "2021".
type dateFormat struct {
	name string
	re   *regexp.Regexp
}

var dateFormats = []dateFormat{
	{"YYYY-MM-DD", regexp.MustCompile(`\b(?:19|20)\d{2}-(?:0[1-9]|1[0-2])-(?:0[1-9]|[12]\d|3[01])\b`)},
	{"DD/MM/YYYY", regexp.MustCompile(`\b(?:0?[1-9]|[12]\d|3[01])[/.](?:0?[1-9]|1[0-2])[/.](?:19|20)\d{2}\b`)},
	{"DD Month YYYY", regexp.MustCompile(`(?i)\b(?:0?[1-9]|[12]\d|3[01])(?:st|nd|rd|th)?\s+` + monthNames + `\.?,?\s+(?:19|20)\d{2}\b`)},
	{"Month YYYY", regexp.MustCompile(`(?i)\b` + monthNames + `\.?,?\s+(?:19|20)\d{2}\b`)},
	{"Month 'YY", regexp.MustCompile(`(?i)\b` + monthNames + `\.?\s*'\d{2}\b`)},
	{"YYYY-MM", regexp.MustCompile(`\b(?:19|20)\d{2}[-/](?:0[1-9]|1[0-2])\b`)},
	{"MM/YYYY", regexp.MustCompile(`\b(?:0?[1-9]|1[0-2])[/-](?:19|20)\d{2}\b`)},
	{"YYYY", regexp.MustCompile(`\b(?:19|20)\d{2}\b`)},
}

type datesDetector struct{ rules *ruleSet }

func (d *datesDetector) Kind() sections.Kind { return sections.Dates }

// Detect penalizes each distinct date format beyond the first.
func (d *datesDetector) Detect(text *types.ResumeText, _ Params) (types.SectionAnalysis, error) {
	b := newBuilder(sections.Dates)
	t := d.rules.tuning

	type usage struct {
		count int
		first *types.Span
	}
	used := make(map[string]*usage)
	var order []string

	for _, line := range text.Lines() {
		if emailPattern.MatchString(line.Text) || findPhone(line.Text) != "" {
			continue
		}
		claimed := make([]bool, len(line.Text))
		for _, f := range dateFormats {
			for _, m := range f.re.FindAllStringIndex(line.Text, -1) {
				if overlaps(claimed, m[0], m[1]) {
					continue
				}
				for i := m[0]; i < m[1]; i++ {
					claimed[i] = true
				}
				u, ok := used[f.name]
				if !ok {
					u = &usage{first: spanAt(line, m[0], m[1])}
					used[f.name] = u
					order = append(order, f.name)
				}
				u.count++
			}
		}
	}

	if len(order) == 0 {
		b.add("none", types.SeverityWarning, nil, "No dates found; add start and end dates to each role")
		return b.result(t.NeutralScore, "no dates to compare"), nil
	}

	for _, name := range order {
		b.add("format", types.SeverityInfo, used[name].first,
			fmt.Sprintf("Date format %s used %d time(s)", name, used[name].count))
	}
	extra := len(order) - 1
	if extra > 0 {
		b.add("inconsistent", types.SeverityWarning, nil,
			fmt.Sprintf("Inconsistent date formats: %s; pick one", strings.Join(order, ", ")))
	} else {
		b.add("consistent", types.SeverityPositive, nil, fmt.Sprintf("All dates use %s", order[0]))
	}

	score := types.MaxSectionScore - float64(extra)*t.DateFormatPenalty
	return b.result(score, fmt.Sprintf("%d distinct date format(s)", len(order))), nil
}

func overlaps(claimed []bool, start, end int) bool {
	for i := start; i < end; i++ {
		if claimed[i] {
			return true
		}
	}
	return false
}
