package core

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// referenceRE matches bracket-delimited reference markers like
// "[telegram 12:01]" together with trailing whitespace.
var referenceRE = regexp.MustCompile(`\[.*?\]\s*`)

// fenceRE matches inline code and code fence backticks.
var fenceRE = regexp.MustCompile("`{1,3}")

// newlineRE matches runs of line breaks.
var newlineRE = regexp.MustCompile(`[\r\n]+`)

// CleanText prepares message text for display: reference markers and
// backticks are removed, line breaks collapse to single spaces, and the
// result is trimmed and cut to maxLen characters. maxLen <= 0 disables the
// cut.
func CleanText(s string, maxLen int) string {
	if s == "" {
		return ""
	}
	s = referenceRE.ReplaceAllString(s, "")
	s = fenceRE.ReplaceAllString(s, "")
	s = newlineRE.ReplaceAllString(s, " ")
	s = strings.TrimSpace(s)
	return Truncate(s, maxLen)
}

// Truncate cuts s to at most n characters without splitting a rune.
// n <= 0 returns s unchanged.
func Truncate(s string, n int) string {
	if n <= 0 || utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n])
}

// Len returns the character length of s.
func Len(s string) int {
	return utf8.RuneCountInString(s)
}
