// Package text provides the normalization, tokenization and noise filtering
// every other search component builds on. All functions are pure and safe for
// concurrent use.
package text

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// wordPattern matches Latin alphanumerics and the Arabic block.
var wordPattern = regexp.MustCompile(`[a-z0-9\x{0600}-\x{06FF}]+`)

// Normalize decomposes s, strips combining marks, lower-cases and trims it.
// Normalize(Normalize(s)) == Normalize(s).
func Normalize(s string) string {
	if s == "" {
		return ""
	}
	// transform.Chain keeps state, so each call gets its own.
	stripMarks := transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)))
	out, _, err := transform.String(stripMarks, s)
	if err != nil {
		out = s
	}
	return strings.TrimSpace(strings.ToLower(out))
}

// Tokenize returns the word-like runs of the normalized text, in order.
func Tokenize(s string) []string {
	return wordPattern.FindAllString(Normalize(s), -1)
}

// IsNumeric reports whether s is non-empty and made only of digits.
func IsNumeric(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}

// Len returns the length of s in runes.
func Len(s string) int {
	return len([]rune(s))
}
