package observability

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

var ansi = regexp.MustCompile(`\x1b\[[0-9;]*m`)

// visibleLen counts runes that take a terminal column.
func visibleLen(s string) int {
	return utf8.RuneCountInString(ansi.ReplaceAllString(s, ""))
}

// pad returns the spaces that fill s to the box content width.
func pad(s string) string {
	n := boxWidth - 4 - visibleLen(s)
	if n <= 0 {
		return ""
	}
	return strings.Repeat(" ", n)
}

// truncateVisible cuts s to n visible runes, dropping color codes.
func truncateVisible(s string, n int) string {
	plain := []rune(ansi.ReplaceAllString(s, ""))
	if len(plain) <= n {
		return string(plain)
	}
	return string(plain[:n])
}
