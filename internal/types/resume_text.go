// Package types provides the data model shared by the analysis engine: the
// normalized resume text, findings, per-section analyses and the final result.
//
//nolint:revive // types is a standard Go package name pattern
package types

import "strings"

// Line is one normalized, non-blank line of a resume.
type Line struct {
	Number int      `json:"number"` // 1-based position among kept lines
	Offset int      `json:"offset"` // byte offset of the line start in the raw input
	Text   string   `json:"text"`
	Tokens []string `json:"tokens"`
	// Positions maps each byte of Text to the raw byte offset of the
	// character it came from, plus one entry for the raw end of the line. Nil means Text starts at
	// Offset and was copied unchanged.
	Positions []int `json:"-"`
}

// RawRange converts the byte range [start, end) of Text into an offset and
// length in the raw input.
func (l Line) RawRange(start, end int) (offset, length int) {
	if start < 0 {
		start = 0
	}
	if end < start {
		end = start
	}
	if len(l.Positions) != len(l.Text)+1 || end > len(l.Text) {
		return l.Offset + start, end - start
	}
	if start == end {
		return l.Positions[start], 0
	}
	// dropped characters before the next kept byte fall inside the range
	return l.Positions[start], l.Positions[end] - l.Positions[start]
}

// ResumeText is the normalized form of an extracted resume. It cannot be
// modified once built; accessors hand out copies so detectors running in
// parallel never share mutable state.
type ResumeText struct {
	lines []Line
}

// NewResumeText builds a ResumeText from already normalized lines.
func NewResumeText(lines []Line) *ResumeText {
	return &ResumeText{lines: copyLines(lines)}
}

// Lines returns a copy of all lines in document order.
func (r *ResumeText) Lines() []Line {
	if r == nil {
		return nil
	}
	return copyLines(r.lines)
}

// Len returns the number of lines.
func (r *ResumeText) Len() int {
	if r == nil {
		return 0
	}
	return len(r.lines)
}

// Line returns the i-th line (0-based).
func (r *ResumeText) Line(i int) (Line, bool) {
	if r == nil || i < 0 || i >= len(r.lines) {
		return Line{}, false
	}
	return copyLine(r.lines[i]), true
}

// Text joins the normalized lines with newlines.
func (r *ResumeText) Text() string {
	if r == nil {
		return ""
	}
	parts := make([]string, len(r.lines))
	for i, l := range r.lines {
		parts[i] = l.Text
	}
	return strings.Join(parts, "\n")
}

// Tokens returns every token of the document in order.
func (r *ResumeText) Tokens() []string {
	if r == nil {
		return nil
	}
	var out []string
	for _, l := range r.lines {
		out = append(out, l.Tokens...)
	}
	return out
}

// WordCount returns the total number of tokens.
func (r *ResumeText) WordCount() int {
	if r == nil {
		return 0
	}
	n := 0
	for _, l := range r.lines {
		n += len(l.Tokens)
	}
	return n
}

func copyLines(lines []Line) []Line {
	out := make([]Line, len(lines))
	for i, l := range lines {
		out[i] = copyLine(l)
	}
	return out
}

func copyLine(l Line) Line {
	tokens := make([]string, len(l.Tokens))
	copy(tokens, l.Tokens)
	l.Tokens = tokens
	if l.Positions != nil {
		l.Positions = append([]int(nil), l.Positions...)
	}
	return l
}
