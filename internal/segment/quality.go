package segment

import (
	"regexp"
	"slices"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/JaimeStill/docket/pkg/fuzzy"
)

// Rejection reasons reported in Result.Rejected.
const (
	RejectShortTitle    = "short_title"
	RejectLowDensity    = "low_alpha_density"
	RejectFragment      = "fragment"
	RejectBoilerplate   = "boilerplate"
	RejectDuplicate     = "duplicate"
	RejectEndOfDocument = "end_of_document"
	RejectUngrounded    = "ungrounded"
)

// borderlineBand widens the density floor inside which artifact noise may
// tip a title into rejection.
const borderlineBand = 1.15

// boilerplateMaxTokens bounds how long a title may run and still be read as
// a procedural line.
const boilerplateMaxTokens = 8

var boilerplate = regexp.MustCompile(`^(?:` + strings.Join([]string{
	`call (?:meeting )?to order`,
	`roll call`,
	`pledge(?: of allegiance)?`,
	`salute to (?:the )?flag`,
	`invocation`,
	`moment of silence`,
	`adjourn(?:ment|ed)?`,
	`recess`,
	`approv(?:al|e) (?:of )?(?:the )?agenda`,
	`adoption of (?:the )?agenda`,
	`agenda (?:review|approval|changes)`,
	`public comments? (?:instructions|procedures|guidelines)`,
	`instructions for public comment`,
	`how to (?:participate|watch|submit)`,
	`determination of (?:a )?quorum`,
	`quorum call`,
	`announcements? of closed session`,
	`next meeting`,
}, "|") + `)\b`)

var (
	dotLeader    = regexp.MustCompile(`[ .·_]{4,}\s*\d*\s*$`)
	leaderToken  = regexp.MustCompile(`^[._\-·]{3,}$`)
	signatureRun = regexp.MustCompile(`_{4,}`)
)

var tailSignals = map[string]*regexp.Regexp{
	"attestation":   regexp.MustCompile(`(?i)\b(?:attest(?:ed)?|city clerk|town clerk|village clerk|county clerk|deputy clerk|board secretary|recording secretary)\b`),
	"certification": regexp.MustCompile(`(?i)\bcertif(?:y|ied|ication)\b`),
	"signature":     signatureRun,
	"posting":       regexp.MustCompile(`(?i)\b(?:posted|posting)\b[^\n]{0,80}\b(?:bulletin|board|website|notice|hall|entrance)\b`),
	"compliance":    regexp.MustCompile(`(?i)americans with disabilities|\bADA\b|reasonable accommodation|open meetings act|brown act|government code section|sunshine law`),
}

// tailCutoff returns the offset where a legal or attestation tail begins,
// or -1. At least two distinct signal kinds must appear in the final
// tailChars of text and in its second half; the earliest of them marks the
// cutoff. Posting and ADA notices in a short agenda's header never count.
func tailCutoff(text string, tailChars int) int {
	start := max(0, len(text)-tailChars, len(text)/2)
	tail := text[start:]

	cutoff := -1
	kinds := 0
	for _, re := range tailSignals {
		loc := re.FindStringIndex(tail)
		if loc == nil {
			continue
		}
		kinds++
		if cutoff < 0 || start+loc[0] < cutoff {
			cutoff = start + loc[0]
		}
	}

	if kinds < 2 {
		return -1
	}

	// Back up to the start of the line holding the first signal.
	if i := strings.LastIndexByte(text[:cutoff], '\n'); i >= 0 {
		return i + 1
	}
	return 0
}

func cleanTitle(title string) string {
	title = dotLeader.ReplaceAllString(title, "")
	title = strings.Join(strings.Fields(title), " ")
	return strings.TrimRight(title, " :;,-")
}

func alphaDensity(s string) float64 {
	var letters, visible int
	for _, r := range s {
		if unicode.IsSpace(r) {
			continue
		}
		visible++
		if unicode.IsLetter(r) {
			letters++
		}
	}
	if visible == 0 {
		return 0
	}
	return float64(letters) / float64(visible)
}

// artifactRatio is the share of tokens that look like layout noise: stray
// single characters and dot or underscore leaders.
func artifactRatio(s string) float64 {
	tokens := strings.Fields(s)
	if len(tokens) == 0 {
		return 0
	}
	var n int
	for _, t := range tokens {
		if utf8.RuneCountInString(t) == 1 && t != "a" && t != "A" && t != "&" || leaderToken.MatchString(t) {
			n++
		}
	}
	return float64(n) / float64(len(tokens))
}

func firstLetter(s string) (rune, bool) {
	for _, r := range s {
		if unicode.IsLetter(r) {
			return r, true
		}
	}
	return 0, false
}

func isBoilerplate(title string) bool {
	norm := fuzzy.Normalize(title)
	if len(strings.Fields(norm)) > boilerplateMaxTokens {
		return false
	}
	return boilerplate.MatchString(norm)
}

// reject returns the reason c fails the quality controls, or "".
func reject(c Candidate, th Thresholds) string {
	if utf8.RuneCountInString(c.Title) < th.MinTitleChars {
		return RejectShortTitle
	}

	density := alphaDensity(c.Title)
	if density < th.MinAlphaDensity {
		return RejectLowDensity
	}
	if density < th.MinAlphaDensity*borderlineBand && artifactRatio(c.Title) > th.MaxArtifactRatio {
		return RejectLowDensity
	}

	if c.Marker != "" {
		if r, ok := firstLetter(c.Title); ok && !unicode.IsUpper(r) {
			return RejectFragment
		}
	}

	if isBoilerplate(c.Title) {
		return RejectBoilerplate
	}
	return ""
}

// filter applies every quality control and returns the surviving
// candidates in their original order with rejection counts.
func filter(cands []Candidate, text string, th Thresholds, tailChars int) ([]Candidate, map[string]int) {
	rejected := make(map[string]int)
	cutoff := tailCutoff(text, tailChars)
	if cutoff >= 0 && !placedBefore(cands, cutoff) {
		cutoff = -1
	}

	kept := make([]Candidate, 0, len(cands))
	for _, c := range cands {
		c.Title = cleanTitle(c.Title)

		if c.Ungrounded {
			rejected[RejectUngrounded]++
			continue
		}

		if cutoff >= 0 && c.Offset >= cutoff {
			rejected[RejectEndOfDocument]++
			continue
		}

		if reason := reject(c, th); reason != "" {
			rejected[reason]++
			continue
		}

		if duplicateOf(kept, c.Title, th.DedupeThreshold) {
			rejected[RejectDuplicate]++
			continue
		}

		kept = append(kept, c)
	}

	return kept, rejected
}

// placedBefore reports whether any placed candidate starts before offset.
// A tail with no items ahead of it is a header.
func placedBefore(cands []Candidate, offset int) bool {
	for _, c := range cands {
		if c.Offset >= 0 && c.Offset < offset {
			return true
		}
	}
	return false
}

// duplicateOf reports whether title repeats a kept title. Titles whose
// numbers differ (dates, ordinance numbers) are never duplicates.
func duplicateOf(kept []Candidate, title string, threshold float64) bool {
	nums := numberTokens(title)
	for _, k := range kept {
		if !slices.Equal(numberTokens(k.Title), nums) {
			continue
		}
		if fuzzy.Ratio(k.Title, title) >= threshold {
			return true
		}
	}
	return false
}

func numberTokens(s string) []string {
	var out []string
	for _, t := range fuzzy.Tokens(s) {
		if strings.IndexFunc(t, unicode.IsDigit) >= 0 {
			out = append(out, t)
		}
	}
	return out
}
