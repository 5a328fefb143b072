// Package observability renders analysis results for the terminal and
// encodes them for machines.
package observability

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	"github.com/jonathan/ats-checker/internal/pipeline"
	"github.com/jonathan/ats-checker/internal/scoring"
	"github.com/jonathan/ats-checker/internal/sections"
	"github.com/jonathan/ats-checker/internal/types"
)

const (
	// boxWidth is the width of every printed box
	boxWidth = 72
	// maxItemsToShow caps lists inside boxes
	maxItemsToShow = 5
	barWidth       = 20
)

var (
	good    = color.New(color.FgGreen).SprintFunc()
	fair    = color.New(color.FgYellow).SprintFunc()
	poor    = color.New(color.FgRed).SprintFunc()
	dim     = color.New(color.Faint).SprintFunc()
	heading = color.New(color.Bold).SprintFunc()
)

// Printer writes human readable reports.
type Printer struct {
	out io.Writer
}

// NewPrinter creates a Printer writing to out.
func NewPrinter(out io.Writer) *Printer {
	return &Printer{out: out}
}

// printBox prints title and content inside a box. Content lines are
// truncated to the box width.
//
//nolint:errcheck // terminal output; errors are not recoverable
func (p *Printer) printBox(title string, content string) {
	border := strings.Repeat("─", boxWidth-2)
	fmt.Fprintf(p.out, "┌%s┐\n", border)
	fmt.Fprintf(p.out, "│ %s%s │\n", heading(title), pad(title))
	fmt.Fprintf(p.out, "├%s┤\n", border)

	for _, line := range strings.Split(content, "\n") {
		if visibleLen(line) > boxWidth-4 {
			line = truncateVisible(line, boxWidth-7) + "..."
		}
		fmt.Fprintf(p.out, "│ %s%s │\n", line, pad(line))
	}

	fmt.Fprintf(p.out, "└%s┘\n", border)
}

// PrintResult outputs the overall score, per-section scores and the
// prioritized advice.
func (p *Printer) PrintResult(result *types.AnalysisResult) {
	if result == nil {
		return
	}

	var sb strings.Builder
	if result.Filename != "" {
		fmt.Fprintf(&sb, "File:   %s\n", result.Filename)
	}
	fmt.Fprintf(&sb, "Score:  %s  Grade: %s\n",
		colorByPercent(fmt.Sprintf("%.2f/100", result.OverallScore.Score), result.OverallScore.Score),
		colorByPercent(result.OverallScore.Grade, result.OverallScore.Score))
	if result.Degraded {
		fmt.Fprintf(&sb, "%s\n", fair("AI feedback unavailable ("+result.DegradedReason+")"))
	}
	sb.WriteString(dim("Rules v" + result.RuleVersion + "  " + result.Timestamp.Format("2006-01-02 15:04 MST")))
	p.printBox("ATS ANALYSIS", sb.String())

	sb.Reset()
	for _, s := range result.OrderedSections() {
		fmt.Fprintf(&sb, "%-34s %s %s\n", s.Section.Title(), bar(s.Score), colorBySection(fmt.Sprintf("%5.2f", s.Score), s.Score))
	}
	p.printBox("SECTIONS", strings.TrimSuffix(sb.String(), "\n"))

	p.PrintActionItems(result.ActionItems)
	p.PrintKeywords(result.Keywords)
	p.PrintAIContent(result)
}

// PrintSectionDetail outputs one section with all of its findings.
func (p *Printer) PrintSectionDetail(s types.SectionAnalysis) {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Score: %s/10\n", colorBySection(fmt.Sprintf("%.2f", s.Score), s.Score))
	fmt.Fprintf(&sb, "%s\n", s.Rationale)
	for _, f := range s.Findings {
		marker := severityMarker(f.Severity)
		if f.Evidence != nil {
			fmt.Fprintf(&sb, "\n%s %s %s", marker, f.Message, dim(fmt.Sprintf("(line %d)", f.Evidence.Line)))
		} else {
			fmt.Fprintf(&sb, "\n%s %s", marker, f.Message)
		}
	}
	p.printBox(strings.ToUpper(s.Section.Title()), sb.String())
}

// PrintActionItems outputs the prioritized action items.
func (p *Printer) PrintActionItems(items []types.ActionItem) {
	if len(items) == 0 {
		return
	}

	var sb strings.Builder
	for i, item := range items {
		label := item.Priority
		switch item.Priority {
		case scoring.PriorityUrgent:
			label = poor(label)
		case scoring.PriorityHigh:
			label = fair(label)
		default:
			label = good(label)
		}
		fmt.Fprintf(&sb, "%d. [%s] %s\n", i+1, label, item.Action)
	}
	p.printBox("ACTION ITEMS", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintKeywords outputs the keyword coverage report.
func (p *Printer) PrintKeywords(report *types.KeywordReport) {
	if report == nil || report.Total == 0 {
		return
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Source: %s\n", report.Source)
	fmt.Fprintf(&sb, "Matched %d of %d (%.1f%%), competitiveness %s\n",
		len(report.Found), report.Total, report.MatchPercentage, report.Competitiveness)
	if len(report.Missing) > 0 {
		shown := report.Missing[:min(len(report.Missing), maxItemsToShow)]
		fmt.Fprintf(&sb, "Missing: %s", strings.Join(shown, ", "))
		if len(report.Missing) > maxItemsToShow {
			fmt.Fprintf(&sb, " ... and %d more", len(report.Missing)-maxItemsToShow)
		}
	}
	p.printBox("KEYWORDS", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintAIContent outputs generated feedback for every augmented section.
func (p *Printer) PrintAIContent(result *types.AnalysisResult) {
	for _, s := range result.OrderedSections() {
		if s.AIContent == nil {
			continue
		}
		var sb strings.Builder
		sb.WriteString(s.AIContent.Feedback)
		for _, suggestion := range s.AIContent.Suggestions {
			fmt.Fprintf(&sb, "\n  • %s", suggestion)
		}
		if s.AIContent.Rewrite != "" {
			fmt.Fprintf(&sb, "\nTry: %s", s.AIContent.Rewrite)
		}
		p.printBox("AI: "+strings.ToUpper(s.Section.Title()), sb.String())
	}
}

// PrintSections lists the section kinds with their weights.
//
//nolint:errcheck // terminal output
func (p *Printer) PrintSections(weights scoring.Weights) {
	for _, kind := range sections.All() {
		w, ok := weights[kind]
		weight := dim("unweighted")
		if ok {
			weight = fmt.Sprintf("%5.1f%%", w*100)
		}
		fmt.Fprintf(p.out, "%-34s %-34s %s\n", kind, kind.Title(), weight)
	}
}

// PrintTransition outputs one state change, for verbose mode.
//
//nolint:errcheck // terminal output
func (p *Printer) PrintTransition(t pipeline.Transition) {
	line := fmt.Sprintf("[%s] %s → %s", t.At.Format("15:04:05.000"), t.From, t.To)
	if t.Reason != "" {
		line += " (" + t.Reason + ")"
	}
	fmt.Fprintln(p.out, dim(line))
}

// PrintBatchSummary outputs one line per analyzed file and the mean score.
//
//nolint:errcheck // terminal output
func (p *Printer) PrintBatchSummary(rows []BatchRow) {
	var sb strings.Builder
	total, n := 0.0, 0
	for _, r := range rows {
		if r.Err != nil {
			fmt.Fprintf(&sb, "%-40s %s\n", r.Filename, poor("error: "+r.Err.Error()))
			continue
		}
		total += r.Score
		n++
		fmt.Fprintf(&sb, "%-40s %s %s\n", r.Filename,
			colorByPercent(fmt.Sprintf("%6.2f", r.Score), r.Score),
			colorByPercent(fmt.Sprintf("%-2s", r.Grade), r.Score))
	}
	if n > 0 {
		fmt.Fprintf(&sb, "\nMean score %.2f over %d file(s)", total/float64(n), n)
	}
	p.printBox("BATCH", strings.TrimSuffix(sb.String(), "\n"))
}

// BatchRow is one file of a batch run.
type BatchRow struct {
	Filename string
	Score    float64
	Grade    string
	Err      error
}

func bar(score float64) string {
	filled := int(score / types.MaxSectionScore * barWidth)
	filled = max(0, min(filled, barWidth))
	return colorBySection(strings.Repeat("█", filled), score) + dim(strings.Repeat("░", barWidth-filled))
}

func colorBySection(s string, score float64) string {
	return colorByPercent(s, score*10)
}

func colorByPercent(s string, pct float64) string {
	switch {
	case pct >= 70:
		return good(s)
	case pct >= 50:
		return fair(s)
	default:
		return poor(s)
	}
}

func severityMarker(s types.Severity) string {
	switch s {
	case types.SeverityPositive:
		return good("✓")
	case types.SeverityCritical:
		return poor("✗")
	case types.SeverityWarning:
		return fair("!")
	default:
		return dim("·")
	}
}
