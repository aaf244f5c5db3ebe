// Package normalize converts raw extracted document text into canonical text.
// Canonical text separates pages with a form feed, carries no page-number
// artifacts or layout noise, and hashes identically for identical input.
package normalize

import (
	"crypto/sha256"
	"encoding/hex"
	"regexp"
	"strings"
	"unicode"
)

// PageBreak separates pages in canonical text.
const PageBreak = "\f"

// Result is the canonical form of a raw document.
type Result struct {
	Text  string `json:"text"`
	Hash  string `json:"hash"`
	Pages int    `json:"pages"`
}

var (
	pageMarker     = regexp.MustCompile(`(?mi)^[ \t]*\[\[page\s+\d+\]\][ \t]*$`)
	pageOfArtifact = regexp.MustCompile(`(?i)^page\s+\d+(\s+of\s+\d+)?$`)
	dashArtifact   = regexp.MustCompile(`^-\s*\d+\s*-$`)
	bareNumber     = regexp.MustCompile(`^\d{1,4}$`)
	spacedLetters  = regexp.MustCompile(`\b[A-Za-z](?: [A-Za-z]){2,}\b`)
	lineHyphen     = regexp.MustCompile(`(\p{L})-\n(\p{Ll})`)
	blankRuns      = regexp.MustCompile(`\n{3,}`)
	spaceRuns      = regexp.MustCompile(`[ \t]+`)
)

var replacer = strings.NewReplacer(
	"\r\n", "\n",
	"\r", "\n",
	"\u2018", "'", "\u2019", "'", "\u201a", "'", "\u201b", "'",
	"\u201c", `"`, "\u201d", `"`, "\u201e", `"`, "\u201f", `"`,
	"\u2010", "-", "\u2011", "-", "\u2012", "-", "\u2013", "-", "\u2014", "-", "\u2015", "-", "\u2212", "-",
	"\u00a0", " ", "\u2007", " ", "\u202f", " ", "\u3000", " ",
	"\u2026", "...",
	"\u00ad", "",
	"\u200b", "", "\u200c", "", "\u200d", "", "\ufeff", "",
)

// Normalize returns the canonical text of raw, with its hash and page count.
// Page boundaries in raw may be form feeds or [[page N]] markers.
func Normalize(raw string) Result {
	raw = pageMarker.ReplaceAllString(raw, PageBreak)
	raw = strings.TrimLeft(raw, " \t\r\n")
	raw = strings.TrimPrefix(raw, PageBreak)

	parts := strings.Split(raw, PageBreak)
	pages := make([]string, 0, len(parts))
	for _, p := range parts {
		pages = append(pages, normalizePage(p))
	}

	for len(pages) > 0 && pages[len(pages)-1] == "" {
		pages = pages[:len(pages)-1]
	}

	text := strings.Join(pages, PageBreak)
	return Result{
		Text:  text,
		Hash:  Hash(text),
		Pages: len(pages),
	}
}

// Hash returns the hex SHA-256 digest of text.
func Hash(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

// Pages splits canonical text into its pages.
func Pages(text string) []string {
	if text == "" {
		return nil
	}
	return strings.Split(text, PageBreak)
}

// PageOf returns the 1-based page containing byte offset in canonical text.
// Offsets outside the text are clamped.
func PageOf(text string, offset int) int {
	offset = max(0, min(offset, len(text)))
	return strings.Count(text[:offset], PageBreak) + 1
}

// AlphaCount returns the number of letters in s.
func AlphaCount(s string) int {
	n := 0
	for _, r := range s {
		if unicode.IsLetter(r) {
			n++
		}
	}
	return n
}

func normalizePage(page string) string {
	page = replacer.Replace(page)
	page = stripControl(page)

	lines := strings.Split(page, "\n")
	kept := make([]string, 0, len(lines))
	for _, line := range lines {
		// Letter-spaced words join before runs collapse; a wider gap
		// separates words.
		line = spacedLetters.ReplaceAllStringFunc(line, func(m string) string {
			return strings.ReplaceAll(m, " ", "")
		})
		line = strings.TrimSpace(spaceRuns.ReplaceAllString(line, " "))
		if isPageArtifact(line) {
			continue
		}
		kept = append(kept, line)
	}

	page = strings.Join(kept, "\n")
	page = lineHyphen.ReplaceAllString(page, "$1$2")
	page = blankRuns.ReplaceAllString(page, "\n\n")
	return strings.Trim(page, "\n ")
}

func isPageArtifact(line string) bool {
	return pageOfArtifact.MatchString(line) ||
		dashArtifact.MatchString(line) ||
		bareNumber.MatchString(line)
}

func stripControl(s string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '\n':
			return r
		case '\t':
			return ' '
		}
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, s)
}
