// Package ingestion turns raw resume documents into normalized, tokenized text.
package ingestion

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/jonathan/ats-checker/internal/types"
)

// artifacts maps PDF-extraction artifacts to plain equivalents.
var artifacts = map[rune]string{
	// ligatures
	'\ufb00': "ff", '\ufb01': "fi", '\ufb02': "fl", '\ufb03': "ffi", '\ufb04': "ffl",
	// spaces and invisible characters
	'\u00a0': " ", '\u2007': " ", '\u202f': " ", '\u2028': " ", '\u2029': " ",
	'\u00ad': "", '\u200b': "", '\u200c': "", '\u200d': "", '\ufeff': "",
	// typographic punctuation
	'\u2018': "'", '\u2019': "'", '\u201c': "\"", '\u201d': "\"",
	'\u2013': "-", '\u2014': "-", '\u2212': "-",
	// symbol-font bullets
	'\uf0b7': "\u2022", '\u25aa': "\u2022", '\u25cf': "\u2022", '\u25e6': "\u2022", '\u2023': "\u2022",
}

// tokenInner holds the non-alphanumeric runes kept inside tokens
// ("c++", "c#", "node.js", "ci/cd", "e-commerce", "don't").
const tokenInner = "+#.-'/"

// bulletMarkers are the list markers recognized at the start of a line.
var bulletMarkers = []string{"- ", "* ", "\u2022 ", "\u00b7 ", "o ", "> "}

type rawLine struct {
	offset int
	text   string
}

// Normalize cleans raw extracted text into a ResumeText. Line endings are
// unified, control characters and PDF artifacts removed, whitespace collapsed
// and blank lines dropped. Each kept line remembers its byte offset in raw.
func Normalize(raw string) (*types.ResumeText, error) {
	var lines []types.Line
	for _, rl := range splitRawLines(raw) {
		cleaned, positions := cleanLine(rl.text)
		if cleaned == "" {
			continue
		}
		for i := range positions {
			positions[i] += rl.offset
		}
		lines = append(lines, types.Line{
			Number:    len(lines) + 1,
			Offset:    rl.offset,
			Text:      cleaned,
			Tokens:    Tokenize(cleaned),
			Positions: positions,
		})
	}

	if len(lines) == 0 {
		return nil, &EmptyInputError{Length: len(raw)}
	}

	return types.NewResumeText(lines), nil
}

// CleanText normalizes content and returns it as a single string with one
// line per kept line. Blank input yields an empty string.
func CleanText(content string) string {
	text, err := Normalize(content)
	if err != nil {
		return ""
	}
	return text.Text()
}

// splitRawLines splits on LF, CRLF, CR, form feed and vertical tab while
// tracking byte offsets. The separators are ASCII so byte scanning is safe on
// UTF-8 input.
func splitRawLines(raw string) []rawLine {
	var out []rawLine
	start := 0
	for i := 0; i < len(raw); i++ {
		switch raw[i] {
		case '\n', '\f', '\v':
			out = append(out, rawLine{offset: start, text: raw[start:i]})
			start = i + 1
		case '\r':
			out = append(out, rawLine{offset: start, text: raw[start:i]})
			if i+1 < len(raw) && raw[i+1] == '\n' {
				i++
			}
			start = i + 1
		}
	}
	if start < len(raw) {
		out = append(out, rawLine{offset: start, text: raw[start:]})
	}
	return out
}

// cleanLine cleans a single line: invalid UTF-8 and control characters
// removed, artifacts replaced, inner whitespace collapsed, ends trimmed. The
// second result maps every byte of the cleaned line to the offset in line of
// the character it came from, plus the offset where the last kept character
// ends.
func cleanLine(line string) (string, []int) {
	var (
		b         strings.Builder
		positions []int
		pending   = -1 // raw offset of a run of whitespace not yet written
		end       int
	)
	emit := func(r rune, at int) {
		n := utf8.RuneLen(r)
		b.WriteRune(r)
		for j := 0; j < n; j++ {
			positions = append(positions, at)
		}
	}

	for i := 0; i < len(line); {
		r, size := utf8.DecodeRuneInString(line[i:])
		at := i
		i += size
		if r == utf8.RuneError && size == 1 {
			continue
		}

		replacement, ok := artifacts[r]
		if !ok {
			replacement = string(r)
		}
		for _, c := range replacement {
			if c == '\t' {
				c = ' '
			}
			if unicode.IsControl(c) || unicode.Is(unicode.Co, c) {
				continue
			}
			if unicode.IsSpace(c) {
				if pending < 0 && b.Len() > 0 {
					pending = at
				}
				continue
			}
			if pending >= 0 {
				emit(' ', pending)
				pending = -1
			}
			emit(c, at)
			end = i
		}
	}

	if b.Len() == 0 {
		return "", nil
	}
	return b.String(), append(positions, end)
}

// Tokenize splits s into lowercase word tokens.
func Tokenize(s string) []string {
	fields := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && !strings.ContainsRune(tokenInner, r)
	})

	tokens := fields[:0]
	for _, f := range fields {
		f = strings.Trim(f, "-'./")
		if f != "" {
			tokens = append(tokens, f)
		}
	}
	return tokens
}

// BulletMarker returns the list marker line starts with, or "".
func BulletMarker(line string) string {
	trimmed := strings.TrimLeft(line, " \t")
	for _, marker := range bulletMarkers {
		if strings.HasPrefix(trimmed, marker) {
			return strings.TrimSpace(marker)
		}
	}
	return ""
}

// IsBulletLine checks if a line is a bullet list item.
func IsBulletLine(line string) bool {
	return BulletMarker(line) != ""
}

// StripBullet removes a leading list marker.
func StripBullet(line string) string {
	trimmed := strings.TrimLeft(line, " \t")
	for _, marker := range bulletMarkers {
		if strings.HasPrefix(trimmed, marker) {
			return strings.TrimSpace(trimmed[len(marker):])
		}
	}
	return trimmed
}
