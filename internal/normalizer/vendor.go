// Package normalizer canonicalizes raw vendor and description strings into
// stable identity keys, so "ACME Corp.", "Acme Corporation" and "ACME CORP"
// all group to the same vendor across classification and recurrence
// detection.
package normalizer

import (
	"strings"
	"unicode"
)

// UnknownVendor is the sentinel key returned for empty or whitespace-only
// vendor strings. Normalization never fails.
const UnknownVendor = "__unknown__"

// legal entity suffixes stripped from the tail of a vendor name.
var legalSuffixes = []string{
	"incorporated", "corporation", "company", "limited",
	"inc", "corp", "llc", "llp", "ltd", "plc", "gmbh", "co", "lp",
}

// Normalize returns the canonical vendor key for a raw vendor/description
// string: case-folded, punctuation stripped, legal suffixes removed,
// whitespace collapsed. Deterministic and pure; identical input always
// yields identical output.
func Normalize(raw string) string {
	var b strings.Builder
	b.Grow(len(raw))
	for _, r := range strings.ToLower(raw) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
		case unicode.IsSpace(r) || r == '-' || r == '_' || r == '/' || r == '&' || r == '+':
			b.WriteRune(' ')
		}
		// remaining punctuation is dropped entirely
	}

	words := strings.Fields(b.String())
	words = stripLegalSuffixes(words)
	if len(words) == 0 {
		return UnknownVendor
	}
	return strings.Join(words, " ")
}

// stripLegalSuffixes removes trailing legal-entity words, but never strips
// the vendor name down to nothing.
func stripLegalSuffixes(words []string) []string {
	for len(words) > 1 {
		last := words[len(words)-1]
		if !isLegalSuffix(last) {
			break
		}
		words = words[:len(words)-1]
	}
	return words
}

func isLegalSuffix(w string) bool {
	for _, s := range legalSuffixes {
		if w == s {
			return true
		}
	}
	return false
}
