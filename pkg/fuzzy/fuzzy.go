// Package fuzzy scores string similarity on a 0..1 scale using Levenshtein distance.
package fuzzy

import (
	"slices"
	"strings"
	"unicode"

	"github.com/agnivade/levenshtein"
)

// Ratio returns 1 - distance/maxLen over the normalized strings.
// Two empty strings are identical.
func Ratio(a, b string) float64 {
	return ratio(Normalize(a), Normalize(b))
}

// TokenSetRatio compares the sorted token sets of a and b. The score is the
// best of the intersection against each side's full set, so a title that adds
// words to another still scores high.
func TokenSetRatio(a, b string) float64 {
	ta, tb := tokenSet(a), tokenSet(b)
	if len(ta) == 0 && len(tb) == 0 {
		return 1
	}
	if len(ta) == 0 || len(tb) == 0 {
		return 0
	}

	var inter, onlyA, onlyB []string
	for _, t := range ta {
		if slices.Contains(tb, t) {
			inter = append(inter, t)
		} else {
			onlyA = append(onlyA, t)
		}
	}
	for _, t := range tb {
		if !slices.Contains(ta, t) {
			onlyB = append(onlyB, t)
		}
	}

	base := strings.Join(inter, " ")
	withA := strings.TrimSpace(base + " " + strings.Join(onlyA, " "))
	withB := strings.TrimSpace(base + " " + strings.Join(onlyB, " "))

	best := ratio(withA, withB)
	if len(inter) > 0 {
		best = max(best, ratio(base, withA), ratio(base, withB))
	}
	return best
}

// Normalize lower-cases s, replaces punctuation with spaces, and collapses whitespace.
func Normalize(s string) string {
	return strings.Join(Tokens(s), " ")
}

// Tokens splits s into lower-cased alphanumeric tokens.
func Tokens(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

func tokenSet(s string) []string {
	tokens := Tokens(s)
	slices.Sort(tokens)
	return slices.Compact(tokens)
}

func ratio(a, b string) float64 {
	if a == b {
		return 1
	}
	la, lb := len([]rune(a)), len([]rune(b))
	longest := max(la, lb)
	if longest == 0 {
		return 1
	}
	d := levenshtein.ComputeDistance(a, b)
	return 1 - float64(d)/float64(longest)
}
