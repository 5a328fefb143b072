package detectors

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/jonathan/ats-checker/internal/ingestion"
	"github.com/jonathan/ats-checker/internal/sections"
	"github.com/jonathan/ats-checker/internal/types"
)

// Keyword report competitiveness thresholds, in percent.
const (
	highMatchPercent   = 30.0
	mediumMatchPercent = 15.0
)

type keywordMatch struct {
	keyword string
	line    *types.Line
}

// matchKeywords returns every keyword with the first line containing it.
func matchKeywords(lines []types.Line, keywords []string) []keywordMatch {
	out := make([]keywordMatch, 0, len(keywords))
	for _, kw := range keywords {
		m := keywordMatch{keyword: kw}
		kwTokens := ingestion.Tokenize(kw)
		for i := range lines {
			if containsKeyword(lines[i].Tokens, kwTokens) {
				m.line = &lines[i]
				break
			}
		}
		out = append(out, m)
	}
	return out
}

type keywordDetector struct{ rules *ruleSet }

func (d *keywordDetector) Kind() sections.Kind { return sections.ATSKeywords }

// Detect scores the share of job keywords present. Without a keyword list
// the section gets the neutral score.
func (d *keywordDetector) Detect(text *types.ResumeText, params Params) (types.SectionAnalysis, error) {
	b := newBuilder(sections.ATSKeywords)
	keywords := normalizeKeywords(params.JobKeywords)
	if len(keywords) == 0 {
		b.add("no_keywords", types.SeverityInfo, nil,
			"No job keywords supplied; pass the target job's keywords for a keyword match score")
		return b.result(d.rules.tuning.NeutralScore, "no job keywords supplied"), nil
	}

	found := 0
	for _, m := range matchKeywords(text.Lines(), keywords) {
		if m.line == nil {
			b.add("missing", types.SeverityWarning, nil, fmt.Sprintf("Missing keyword %q", m.keyword))
			continue
		}
		found++
		b.add("matched", types.SeverityPositive, spanFor(*m.line, m.keyword), fmt.Sprintf("Keyword %q found", m.keyword))
	}

	ratio := float64(found) / float64(len(keywords))
	return b.result(ratio*types.MaxSectionScore,
		fmt.Sprintf("%d of %d job keyword(s) found", found, len(keywords))), nil
}

// KeywordReport summarizes keyword coverage against the job keywords, or the
// configured role preset when none are given.
func (r *Registry) KeywordReport(text *types.ResumeText, params Params) *types.KeywordReport {
	keywords := normalizeKeywords(params.JobKeywords)
	source := "job"
	if len(keywords) == 0 {
		preset, _ := RoleKeywords(r.rules.role)
		keywords = normalizeKeywords(preset)
		source = "role:" + r.rules.role
	}

	report := &types.KeywordReport{
		Source:  source,
		Total:   len(keywords),
		Found:   []string{},
		Missing: []string{},
	}
	for _, m := range matchKeywords(text.Lines(), keywords) {
		if m.line != nil {
			report.Found = append(report.Found, m.keyword)
		} else {
			report.Missing = append(report.Missing, m.keyword)
		}
	}
	if report.Total > 0 {
		report.MatchPercentage = types.Round2(float64(len(report.Found)) / float64(report.Total) * 100)
	}
	switch {
	case report.MatchPercentage >= highMatchPercent:
		report.Competitiveness = "high"
	case report.MatchPercentage >= mediumMatchPercent:
		report.Competitiveness = "medium"
	default:
		report.Competitiveness = "low"
	}
	return report
}

var (
	skillSeparators = regexp.MustCompile(`\s*(?:[,;|\x{2022}\x{00b7}]|\s-\s)\s*`)
	skillLabel      = regexp.MustCompile(`^[A-Za-z][A-Za-z &/]{1,30}:\s*`)
)

type skillsDetector struct{ rules *ruleSet }

func (d *skillsDetector) Kind() sections.Kind { return sections.SkillsRelevance }

// Detect scores the skills section out of four components: item count (4),
// technical share (3), soft skills (2) and job relevance (1).
func (d *skillsDetector) Detect(text *types.ResumeText, params Params) (types.SectionAnalysis, error) {
	b := newBuilder(sections.SkillsRelevance)
	blocks := splitBlocks(text.Lines())
	heading, ok := hasHeading(blocks, "skills")
	if !ok {
		b.add("missing_section", types.SeverityCritical, nil, "No skills section found; add one for ATS parsing")
		return b.result(2, "no skills section"), nil
	}

	lines := linesUnder(blocks, "skills")
	items := skillItems(lines)
	if len(items) == 0 {
		b.add("empty_section", types.SeverityCritical, spanFor(*heading, ""), "Skills section is empty")
		return b.result(1, "skills section has no items"), nil
	}

	technical := 0
	for _, it := range items {
		if d.rules.technical.countDistinct(ingestion.Tokenize(it)) > 0 {
			technical++
		}
	}
	var allTokens []string
	for _, l := range lines {
		allTokens = append(allTokens, l.Tokens...)
	}
	soft := d.rules.soft.countDistinct(allTokens)

	countPts := tier(float64(len(items)), []float64{15, 10, 6, 1}, []float64{4, 3, 2, 1})
	techRatio := float64(technical) / float64(len(items))
	techPts := tier(techRatio, []float64{0.6, 0.4, 0.2}, []float64{3, 2, 1})
	softPts := tier(float64(soft), []float64{2, 1}, []float64{2, 1})

	relevancePts := 0.0
	keywords := normalizeKeywords(params.JobKeywords)
	if len(keywords) > 0 {
		matched := 0
		for _, m := range matchKeywords(lines, keywords) {
			if m.line != nil {
				matched++
			}
		}
		relevancePts = min(1, 2*float64(matched)/float64(len(keywords)))
		b.add("job_overlap", types.SeverityInfo, nil,
			fmt.Sprintf("%d of %d job keyword(s) appear in the skills section", matched, len(keywords)))
	} else if technical > 0 {
		relevancePts = 1
	}

	b.add("count", types.SeverityInfo, spanFor(*heading, ""), fmt.Sprintf("%d skill(s) listed", len(items)))
	if len(items) < 6 {
		b.add("few_skills", types.SeverityWarning, nil, "List at least six relevant skills")
	}
	if technical == 0 {
		b.add("no_technical", types.SeverityWarning, nil, "No recognized technical skills listed")
	}
	if soft == 0 {
		b.add("no_soft", types.SeverityInfo, nil, "Consider naming one or two soft skills")
	}

	score := countPts + techPts + softPts + relevancePts
	return b.result(score, fmt.Sprintf("%d item(s), %d technical, %d soft skill(s); %.1f+%.1f+%.1f+%.1f points",
		len(items), technical, soft, countPts, techPts, softPts, relevancePts)), nil
}

// skillItems splits skills lines into distinct items, dropping "Label:" prefixes.
func skillItems(lines []types.Line) []string {
	seen := make(map[string]bool)
	var items []string
	for _, l := range lines {
		body := skillLabel.ReplaceAllString(ingestion.StripBullet(l.Text), "")
		for _, part := range skillSeparators.Split(body, -1) {
			key := strings.ToLower(strings.TrimSpace(part))
			if key == "" || seen[key] {
				continue
			}
			seen[key] = true
			items = append(items, key)
		}
	}
	return items
}

// tier returns the points of the first threshold v reaches.
func tier(v float64, thresholds, points []float64) float64 {
	for i, th := range thresholds {
		if v >= th {
			return points[i]
		}
	}
	return 0
}
