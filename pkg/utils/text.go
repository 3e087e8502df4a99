// Package utils provides shared utilities for text, math, and logging.
package utils

import (
	"strings"
	"unicode"
)

// Truncate returns s truncated to maxLen characters, with "..." appended if truncated.
// If maxLen is 0 or negative, returns s unchanged.
func Truncate(s string, maxLen int) string {
	if maxLen <= 0 || len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}

// Tokenize lowercases s and splits it into alphanumeric terms. Punctuation and
// other symbols act as separators. Used by the keyword index and the re-ranker,
// so both sides must agree on the same tokenization.
func Tokenize(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
}

// CanonicalizeContent lowercases content and collapses all whitespace runs to a
// single space. Two documents with canonically-equal content are duplicates.
func CanonicalizeContent(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}
