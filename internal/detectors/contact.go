package detectors

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"github.com/jonathan/ats-checker/internal/sections"
	"github.com/jonathan/ats-checker/internal/types"
)

var (
	emailPattern    = regexp.MustCompile(`[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}`)
	phonePattern    = regexp.MustCompile(`\+?\(?\d[\d\s().-]{5,}\d`)
	dateLike        = regexp.MustCompile(`(?:19|20)\d{2}\s*[-/.]\s*(?:0?[1-9]|1[0-2]|(?:19|20)\d{2})\b|\b(?:0?[1-9]|1[0-2])[-/.](?:19|20)\d{2}\b`)
	locationPattern = regexp.MustCompile(`\b[A-Z][A-Za-z.'-]+(?:\s[A-Z][A-Za-z.'-]+)*,\s*[A-Z][A-Za-z]+(?:\s[A-Z][A-Za-z]+)*\b`)
	locationLabel   = regexp.MustCompile(`(?i)^(?:location|address|based in)\s*[:\-]?\s*\S+`)
	linkedinPattern = regexp.MustCompile(`(?i)linkedin\.com/in/[A-Za-z0-9_-]+`)
	githubPattern   = regexp.MustCompile(`(?i)github\.com/[A-Za-z0-9_-]+`)
)

// contactField is one of the four scored contact details.
type contactField struct {
	name     string
	severity types.Severity
	found    *types.Span
}

type contactDetector struct{ rules *ruleSet }

func (d *contactDetector) Kind() sections.Kind { return sections.ContactDetails }

// Detect checks name, email, phone and location; score = present/4 x 10.
// Name and location are read from the header lines, email and phone from
// anywhere in the document.
func (d *contactDetector) Detect(text *types.ResumeText, _ Params) (types.SectionAnalysis, error) {
	b := newBuilder(sections.ContactDetails)
	lines := text.Lines()
	n := min(len(lines), d.rules.headerLines)
	header := make([]types.Line, 0, n)
	header = append(header, lines[:n]...)
	header = append(header, linesUnder(splitBlocks(lines), "contact")...)

	fields := []*contactField{
		{name: "name", severity: types.SeverityWarning},
		{name: "email", severity: types.SeverityCritical},
		{name: "phone", severity: types.SeverityCritical},
		{name: "location", severity: types.SeverityWarning},
	}
	name, email, phone, location := fields[0], fields[1], fields[2], fields[3]

	for _, l := range header {
		if name.found == nil && isPersonName(l.Text) {
			name.found = spanFor(l, "")
			continue
		}
		if location.found == nil {
			if m := locationLabel.FindString(l.Text); m != "" {
				location.found = spanFor(l, "")
			} else if m := locationPattern.FindString(l.Text); m != "" && !strings.Contains(m, "@") {
				location.found = spanFor(l, m)
			}
		}
	}

	for _, l := range lines {
		if email.found == nil {
			if m := emailPattern.FindString(l.Text); m != "" {
				email.found = spanFor(l, m)
			}
		}
		if phone.found == nil {
			if m := findPhone(l.Text); m != "" {
				phone.found = spanFor(l, m)
			}
		}
		if m := linkedinPattern.FindString(l.Text); m != "" {
			b.add("linkedin", types.SeverityInfo, spanFor(l, m), "LinkedIn profile listed")
		}
		if m := githubPattern.FindString(l.Text); m != "" {
			b.add("github", types.SeverityInfo, spanFor(l, m), "GitHub profile listed")
		}
	}

	present := 0
	var missing []string
	for _, f := range fields {
		if f.found != nil {
			present++
			b.add("has_"+f.name, types.SeverityPositive, f.found, fmt.Sprintf("Contact %s found", f.name))
			continue
		}
		missing = append(missing, f.name)
		b.add("missing_"+f.name, f.severity, nil, fmt.Sprintf("Missing contact %s", f.name))
	}

	rationale := fmt.Sprintf("%d of %d contact details present", present, len(fields))
	if len(missing) > 0 {
		rationale += "; missing " + strings.Join(missing, ", ")
	}
	return b.result(float64(present)/float64(len(fields))*types.MaxSectionScore, rationale), nil
}

// isPersonName accepts 2-4 capitalized alphabetic words.
func isPersonName(s string) bool {
	if _, ok := headingOf(s); ok {
		return false
	}
	words := strings.Fields(s)
	if len(words) < 2 || len(words) > 4 {
		return false
	}
	for _, w := range words {
		runes := []rune(w)
		if !unicode.IsUpper(runes[0]) {
			return false
		}
		for _, r := range runes {
			if !unicode.IsLetter(r) && r != '.' && r != '-' && r != '\'' {
				return false
			}
		}
	}
	return true
}

// findPhone returns the first phone-like run with 7-15 digits. Shorter
// numbers need a '+' or parentheses to count, and date ranges never do.
func findPhone(s string) string {
	for _, m := range phonePattern.FindAllString(s, -1) {
		m = strings.TrimSpace(m)
		if dateLike.MatchString(m) {
			continue
		}
		digits := 0
		for _, r := range m {
			if unicode.IsDigit(r) {
				digits++
			}
		}
		if digits > 15 || digits < 7 {
			continue
		}
		if digits >= 10 || strings.ContainsAny(m, "+(") {
			return m
		}
	}
	return ""
}
