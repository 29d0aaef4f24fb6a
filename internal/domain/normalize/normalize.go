// Package normalize produces comparison-ready forms of amounts, dates and
// descriptive text. It has no side effects; callers guard against nil or
// unparseable input before reaching this layer.
package normalize

import (
	"strings"
	"time"
	"unicode"

	"github.com/shopspring/decimal"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var foldDiacritics = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Amount rounds to two decimal places (currency minor unit).
func Amount(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// Date truncates to a calendar date in UTC, dropping any time component.
func Date(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// DayDiff returns the absolute difference in calendar days between two dates.
func DayDiff(a, b time.Time) int {
	diff := int(Date(a).Sub(Date(b)).Hours() / 24)
	if diff < 0 {
		diff = -diff
	}
	return diff
}

// Text lowercases, folds diacritics and collapses runs of whitespace so that
// "Fornecedor ABC  Lda" and "FORNECEDOR ABC LDA" compare equal.
func Text(s string) string {
	folded, _, err := transform.String(foldDiacritics, s)
	if err != nil {
		folded = s
	}
	return strings.Join(strings.Fields(strings.ToLower(folded)), " ")
}

// Tokens splits normalized text into comparison tokens, dropping
// single-character fragments that carry no signal.
func Tokens(s string) []string {
	parts := strings.Fields(Text(s))
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if len([]rune(p)) >= 2 {
			out = append(out, p)
		}
	}
	return out
}
