package util

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

func StripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

var reUnsafeFilename = regexp.MustCompile(`[\\/*?:"<>|]`)

// SafeFilename replaces characters that are illegal in file names with "_".
// It returns fallback when the result is blank or longer than max runes.
func SafeFilename(s, fallback string, max int) string {
	s = strings.TrimSpace(reUnsafeFilename.ReplaceAllString(s, "_"))
	if s == "" || utf8.RuneCountInString(s) > max {
		return fallback
	}
	return s
}

// Truncate cuts s to at most n runes, appending an ellipsis when it had to cut.
func Truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n]) + "…"
}
