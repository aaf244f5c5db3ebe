package votes

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/JaimeStill/docket/internal/agenda"
)

// Finding is what the deterministic parser read from an item's local text.
// Span is the matched text the outcome rests on.
type Finding struct {
	Outcome    agenda.Outcome
	Tally      *agenda.Tally
	Motion     *agenda.Motion
	Votes      []agenda.Vote
	Confidence float64
	Span       string
}

// Positive reports whether f found a disposition.
func (f Finding) Positive() bool {
	return f.Outcome != agenda.OutcomeUnknown || f.Tally != nil || len(f.Votes) > 0
}

// Pattern confidences.
const (
	confTally       = 0.95
	confRollCall    = 0.9
	confCarried     = 0.8
	confDisposition = 0.8
)

const memberName = `((?:[A-Z][A-Za-z'-]+)(?:\s+[A-Z][A-Za-z'-]+)?)`

const memberTitle = `(?:(?i:council\s*member|councilmember|council\s*woman|council\s*man|commissioner|alderman|alderperson|trustee|supervisor|vice\s+mayor|mayor|director|mr|mrs|ms|dr)\.?\s+)?`

// maxBodySize bounds a printed tally. Larger counts are document numbers.
const maxBodySize = 25

const outcomeVerb = `(?i)\b(passed|carried|approved|adopted|failed|defeated|denied|rejected)\b`

var (
	tallyRe = regexp.MustCompile(
		outcomeVerb + `(?:\s+unanimously)?,?\s+(?:(?:by|on)\s+(?:a\s+)?(?:(?:roll[-\s]call\s+)?vote\s+of\s+)?)?\(?(\d{1,2})\s*(?:-|to)\s*(\d{1,2})\b\)?`,
	)

	parenTallyRe = regexp.MustCompile(
		outcomeVerb + `([^.\n()]{0,40}?)\((\d{1,2})\s*(?:-|to)\s*(\d{1,2})\)`,
	)

	identifierRe = regexp.MustCompile(`(?i)(?:ordinance|resolution|contract|bill|file|item|number|no\.?|#)\s*$`)

	rollRe = regexp.MustCompile(
		`(?i)\b(ayes?|yeas?|yes|nays?|noes|no|abstain(?:ed|ing|s)?|absent)\s*:\s*([^;\n]*)`,
	)

	carriedRe = regexp.MustCompile(
		`(?i)\b(?:motion\s+(carried|passed|failed)|(unanimously)\s+(?:approved|adopted|passed|carried)|(?:carried|approved|adopted|passed)\s+(unanimously))\b`,
	)

	dispositionRe = regexp.MustCompile(
		`(?i)\b(?:(deferred|tabled|postponed)|(continued)\s+(?:to|until)\b)`,
	)

	moverRe = regexp.MustCompile(
		`(?:(?i:moved)\s+by|(?i:motion)(?:\s+(?i:was\s+made))?\s+by|(?i:motion)\s*:)\s*` + memberTitle + memberName,
	)

	seconderRe = regexp.MustCompile(
		`(?:(?i:seconded)\s+by|(?i:second(?:ed)?)\s*:)\s*` + memberTitle + memberName,
	)

	nameSplitRe = regexp.MustCompile(`\s*(?:,|\band\b|&)\s*`)
)

var outcomeVerbs = map[string]agenda.Outcome{
	"passed":   agenda.OutcomePassed,
	"carried":  agenda.OutcomePassed,
	"approved": agenda.OutcomePassed,
	"adopted":  agenda.OutcomePassed,
	"failed":   agenda.OutcomeFailed,
	"defeated": agenda.OutcomeFailed,
	"denied":   agenda.OutcomeFailed,
	"rejected": agenda.OutcomeFailed,
}

// Parse reads an outcome, tally, motion, and roll call from text. It never
// invents a tally: counts come only from a printed tally or a roll call.
func Parse(text string) Finding {
	f := Finding{Outcome: agenda.OutcomeUnknown}

	if verb, tally, span, ok := parseTally(text); ok {
		f.Outcome = outcomeVerbs[strings.ToLower(verb)]
		f.Tally = tally
		f.Confidence = confTally
		f.Span = span
	}

	if votes, tally, span := parseRollCall(text); len(votes) > 0 {
		f.Votes = votes
		if f.Tally == nil {
			f.Tally = tally
		}
		if f.Outcome == agenda.OutcomeUnknown {
			f.Outcome = agenda.OutcomeFailed
			if tally.Yes > tally.No {
				f.Outcome = agenda.OutcomePassed
			}
			f.Span = span
		}
		f.Confidence = max(f.Confidence, confRollCall)
	}

	if f.Outcome == agenda.OutcomeUnknown {
		if m := carriedRe.FindStringSubmatch(text); m != nil {
			f.Outcome = agenda.OutcomePassed
			if strings.EqualFold(m[1], "failed") {
				f.Outcome = agenda.OutcomeFailed
			}
			f.Confidence = confCarried
			f.Span = m[0]
		} else if m := dispositionRe.FindStringSubmatch(text); m != nil {
			f.Outcome = agenda.OutcomeDeferred
			if m[2] != "" {
				f.Outcome = agenda.OutcomeContinued
			}
			f.Confidence = confDisposition
			f.Span = m[0]
		}
	}

	var motion agenda.Motion
	if m := moverRe.FindStringSubmatch(text); m != nil {
		motion.Mover = m[1]
	}
	if m := seconderRe.FindStringSubmatch(text); m != nil {
		motion.Seconder = m[1]
	}
	if motion != (agenda.Motion{}) {
		f.Motion = &motion
	}

	return f
}

// parseTally reads a count printed right after an outcome verb ("passed
// 5-0", "approved by a vote of 4 to 1") or in parentheses shortly after it.
// Numbers labeled as ordinances, contracts, or files are not tallies.
func parseTally(text string) (string, *agenda.Tally, string, bool) {
	if m := tallyRe.FindStringSubmatch(text); m != nil {
		if t, ok := tallyOf(m[2], m[3]); ok {
			return m[1], t, m[0], true
		}
	}
	for _, m := range parenTallyRe.FindAllStringSubmatch(text, -1) {
		if identifierRe.MatchString(m[2]) {
			continue
		}
		if t, ok := tallyOf(m[3], m[4]); ok {
			return m[1], t, m[0], true
		}
	}
	return "", nil, "", false
}

func tallyOf(yesText, noText string) (*agenda.Tally, bool) {
	yes, _ := strconv.Atoi(yesText)
	no, _ := strconv.Atoi(noText)
	if yes+no == 0 || yes+no > maxBodySize {
		return nil, false
	}
	return &agenda.Tally{Yes: yes, No: no}, true
}

func parseRollCall(text string) ([]agenda.Vote, *agenda.Tally, string) {
	var (
		votes []agenda.Vote
		tally agenda.Tally
		spans []string
	)

	for _, m := range rollRe.FindAllStringSubmatch(text, -1) {
		value := rollValue(m[1])
		names := splitNames(m[2])
		if len(names) == 0 && !isNone(m[2]) {
			continue
		}
		spans = append(spans, strings.TrimSpace(m[0]))
		for _, name := range names {
			votes = append(votes, agenda.Vote{Member: name, Vote: value})
		}
		switch value {
		case "yes":
			tally.Yes += len(names)
		case "no":
			tally.No += len(names)
		case "abstain":
			tally.Abstain += len(names)
		default:
			tally.Absent += len(names)
		}
	}

	if len(votes) == 0 {
		return nil, nil, ""
	}
	return votes, &tally, strings.Join(spans, "; ")
}

func rollValue(label string) string {
	l := strings.ToLower(label)
	switch {
	case strings.HasPrefix(l, "aye"), strings.HasPrefix(l, "yea"), l == "yes":
		return "yes"
	case strings.HasPrefix(l, "nay"), l == "noes", l == "no":
		return "no"
	case strings.HasPrefix(l, "abstain"):
		return "abstain"
	}
	return "absent"
}

// splitNames returns the capitalized names in a roll-call list. Lists that
// read "none" yield nothing.
func splitNames(list string) []string {
	list = strings.TrimRight(strings.TrimSpace(list), ".")
	if isNone(list) {
		return nil
	}

	var names []string
	for _, part := range nameSplitRe.Split(list, -1) {
		part = strings.TrimSpace(part)
		if part == "" || part[0] < 'A' || part[0] > 'Z' {
			continue
		}
		names = append(names, part)
	}
	return names
}

func isNone(list string) bool {
	switch strings.ToLower(strings.TrimRight(strings.TrimSpace(list), ".")) {
	case "none", "0", "-":
		return true
	}
	return false
}
