// Package textmatch implements the two-stage fuzzy similarity test
// used by the task store to suppress near-duplicate submissions. The
// cheap stage scores a token-level edit ratio; survivors are
// confirmed with a character-level sequence ratio. In both stages,
// similarity above the threshold means duplicate.
package textmatch

import (
	"strings"
	"unicode"

	"github.com/agnivade/levenshtein"
	"github.com/pmezard/go-difflib/difflib"
)

// Tokenize lowercases the input and splits it into word tokens.
func Tokenize(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
}

// normalize renders a string in tokenized, comparison-ready form.
func normalize(s string) string {
	return strings.Join(Tokenize(s), " ")
}

// TokenRatio scores the similarity of two strings over their
// normalized token forms, scaled 0-100. 100 means identical after
// tokenization.
func TokenRatio(a, b string) int {
	na, nb := normalize(a), normalize(b)
	if na == "" && nb == "" {
		return 100
	}
	longest := len([]rune(na))
	if l := len([]rune(nb)); l > longest {
		longest = l
	}
	if longest == 0 {
		return 100
	}
	dist := levenshtein.ComputeDistance(na, nb)
	return 100 * (longest - dist) / longest
}

// SequenceRatio scores character-level similarity of the normalized
// forms, 0-1, using difflib sequence matching.
func SequenceRatio(a, b string) float64 {
	na, nb := normalize(a), normalize(b)
	if na == "" && nb == "" {
		return 1.0
	}
	m := difflib.NewMatcher(explode(na), explode(nb))
	return m.Ratio()
}

// explode splits a string into per-rune elements for the matcher.
func explode(s string) []string {
	runes := []rune(s)
	out := make([]string, len(runes))
	for i, r := range runes {
		out[i] = string(r)
	}
	return out
}

// IsDuplicate reports whether candidate is a near-duplicate of
// existing at the given threshold (0-1). Stage one gates on the token
// ratio exceeding threshold*50; stage two confirms with the sequence
// ratio exceeding threshold.
func IsDuplicate(candidate, existing string, threshold float64) bool {
	if float64(TokenRatio(candidate, existing)) <= threshold*50 {
		return false
	}
	return SequenceRatio(candidate, existing) > threshold
}
