package fuzzy

import (
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"
)

// needleChars bounds how much of a phrase's normalized form Find searches
// for, so long titles still match text that wraps or truncates them.
const needleChars = 40

// Folded is text in Normalize form with a map back to original offsets.
type Folded struct {
	text    string
	offsets []int
}

// Fold lower-cases text and folds every run of non-alphanumeric runes into
// one space, remembering where each folded byte came from.
func Fold(text string) *Folded {
	var sb strings.Builder
	offsets := make([]int, 0, len(text))
	space := true

	for i, r := range text {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			lr := unicode.ToLower(r)
			sb.WriteRune(lr)
			for range utf8.RuneLen(lr) {
				offsets = append(offsets, i)
			}
			space = false
			continue
		}
		if !space {
			sb.WriteByte(' ')
			offsets = append(offsets, i)
			space = true
		}
	}
	return &Folded{text: sb.String(), offsets: offsets}
}

// String returns the folded text.
func (f *Folded) String() string {
	return f.text
}

// Find returns the original byte offset where phrase's leading words first
// appear, ignoring case and punctuation, or -1.
func (f *Folded) Find(phrase string) int {
	return f.FindAfter(phrase, 0)
}

// FindAfter is Find restricted to matches at or after original offset from.
func (f *Folded) FindAfter(phrase string, from int) int {
	needle := Needle(phrase)
	if needle == "" {
		return -1
	}

	start := sort.SearchInts(f.offsets, from)
	if start >= len(f.text) {
		return -1
	}

	i := strings.Index(f.text[start:], needle)
	if i < 0 {
		return -1
	}
	return f.offsets[start+i]
}

// Contains reports whether the whole normalized phrase appears in the text.
func (f *Folded) Contains(phrase string) bool {
	norm := Normalize(phrase)
	return norm != "" && strings.Contains(f.text, norm)
}

// Needle returns the leading words of phrase's normalized form, cut at a
// word boundary near the needle limit.
func Needle(phrase string) string {
	needle := Normalize(phrase)
	if len(needle) <= needleChars {
		return needle
	}
	if i := strings.LastIndexByte(needle[:needleChars], ' '); i > 0 {
		return needle[:i]
	}
	return needle[:needleChars]
}

// Locate is Fold(text).Find(phrase).
func Locate(text, phrase string) int {
	return Fold(text).Find(phrase)
}
