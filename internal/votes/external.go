package votes

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/JaimeStill/docket/internal/agenda"
	"github.com/JaimeStill/docket/internal/legistar"
	"github.com/JaimeStill/docket/internal/ocr"
	"github.com/JaimeStill/docket/pkg/fuzzy"
)

// External-path confidences.
const (
	confExternal = 0.85
	confVerified = 0.98
)

// Record is one external vote record aligned to an item.
type Record struct {
	EventItemID int
	Title       string
	Score       float64
	Outcome     agenda.Outcome
	Tally       *agenda.Tally
	Motion      *agenda.Motion
	Votes       []agenda.Vote
}

// Positive reports whether the record carries a disposition.
func (r Record) Positive() bool {
	return r.Outcome != agenda.OutcomeUnknown || r.Tally != nil || len(r.Votes) > 0
}

// Align pairs items with external event items by token-set title similarity
// at or above threshold. Each event item is used at most once; the result is
// indexed like items and holds nil where nothing aligned.
func Align(items []agenda.Item, events []legistar.EventItem, threshold float64) []*Record {
	aligned := make([]*Record, len(items))
	used := make(map[int]bool, len(events))

	for i, it := range items {
		best, bestScore := -1, threshold
		for j, ev := range events {
			if used[j] || !ev.Agendized() {
				continue
			}
			score := fuzzy.TokenSetRatio(it.Title, ev.Title)
			if score >= bestScore && (best < 0 || score > bestScore) {
				best, bestScore = j, score
			}
		}
		if best < 0 {
			continue
		}
		used[best] = true
		aligned[i] = recordOf(events[best], bestScore)
	}
	return aligned
}

func recordOf(ev legistar.EventItem, score float64) *Record {
	r := &Record{
		EventItemID: ev.ID,
		Title:       ev.Title,
		Score:       score,
		Outcome:     agenda.Outcome(ev.Outcome()),
		Tally:       parseExternalTally(ev.Tally),
	}
	if ev.Mover != "" || ev.Seconder != "" {
		r.Motion = &agenda.Motion{Mover: ev.Mover, Seconder: ev.Seconder}
	}
	return r
}

var externalTallyRe = regexp.MustCompile(`^\s*(\d{1,3})\s*[:\-]\s*(\d{1,3})\s*$`)

// parseExternalTally reads a Legistar tally such as "5:0".
func parseExternalTally(s string) *agenda.Tally {
	m := externalTallyRe.FindStringSubmatch(s)
	if m == nil {
		return nil
	}
	yes, _ := strconv.Atoi(m[1])
	no, _ := strconv.Atoi(m[2])
	return &agenda.Tally{Yes: yes, No: no}
}

// withVotes attaches individual votes and, when the record has no tally,
// the tally they imply.
func (r *Record) withVotes(votes []legistar.Vote) {
	if len(votes) == 0 {
		return
	}

	var tally agenda.Tally
	r.Votes = make([]agenda.Vote, 0, len(votes))
	for _, v := range votes {
		value := legistar.VoteValue(v.ValueName)
		r.Votes = append(r.Votes, agenda.Vote{Member: v.PersonName, Vote: value})
		switch value {
		case "yes":
			tally.Yes++
		case "no":
			tally.No++
		case "abstain":
			tally.Abstain++
		default:
			tally.Absent++
		}
	}
	if r.Tally == nil {
		r.Tally = &tally
	}
}

func (r *Record) result(verified bool) agenda.Result {
	conf := confExternal
	if verified {
		conf = confVerified
	}
	return agenda.Result{
		Source:     agenda.SourceLegistar,
		Outcome:    r.Outcome,
		Tally:      r.Tally,
		Motion:     r.Motion,
		Votes:      r.Votes,
		Confidence: conf,
		Verified:   verified,
	}
}

// Anchor is the spatial check of an external record against the page
// layout.
type Anchor int

const (
	// AnchorNone means no vote block was found in the item's region.
	AnchorNone Anchor = iota
	// AnchorAgree means a vote block in the region matches the record.
	AnchorAgree
	// AnchorDisagree means a vote block in the region contradicts it.
	AnchorDisagree
)

// Region is the part of a document layout an item's text occupies: from its
// heading block to the next item's heading block.
type Region struct {
	Blocks []ocr.Block
	Page   int
}

// RegionOf returns the blocks between the heading of title on page and the
// heading of next, which may sit on a later page. An empty next runs to the
// end of the page. ok is false when the heading is not on the page.
func RegionOf(layout *ocr.Layout, page int, title, next string, nextPage int) (Region, bool) {
	pl := layout.Page(page)
	if pl == nil {
		return Region{}, false
	}

	start := headingBlock(pl.Blocks, title, 0)
	if start < 0 {
		return Region{}, false
	}

	region := Region{Page: page}
	if next == "" || nextPage < page {
		nextPage = page
	}

	for p := page; p <= nextPage; p++ {
		pl := layout.Page(p)
		if pl == nil {
			continue
		}
		from := 0
		if p == page {
			from = start + 1
		}
		to := len(pl.Blocks)
		if next != "" && p == nextPage {
			if i := headingBlock(pl.Blocks, next, from); i >= 0 {
				to = i
			}
		}
		if from < to {
			region.Blocks = append(region.Blocks, pl.Blocks[from:to]...)
		}
	}
	return region, true
}

func headingBlock(blocks []ocr.Block, title string, from int) int {
	needle := fuzzy.Needle(title)
	if needle == "" {
		return -1
	}
	for i := from; i < len(blocks); i++ {
		if fuzzy.Fold(blocks[i].Text).Contains(needle) {
			return i
		}
	}
	return -1
}

// Check looks for a vote block inside the region and compares it with r.
// The returned text is the block that decided the check.
func (r *Record) Check(region Region) (Anchor, string) {
	var disagreement string
	for _, b := range region.Blocks {
		f := Parse(b.Text)
		if !f.Positive() {
			continue
		}
		if agrees(r, f) {
			return AnchorAgree, b.Text
		}
		if disagreement == "" {
			disagreement = b.Text
		}
	}
	if disagreement != "" {
		return AnchorDisagree, disagreement
	}
	return AnchorNone, ""
}

func agrees(r *Record, f Finding) bool {
	if r.Tally != nil && f.Tally != nil {
		return r.Tally.Yes == f.Tally.Yes && r.Tally.No == f.Tally.No
	}
	if r.Outcome == agenda.OutcomeUnknown || f.Outcome == agenda.OutcomeUnknown {
		return false
	}
	return r.Outcome == f.Outcome
}

func describe(r *Record) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "event item %d (title score %.2f): %s", r.EventItemID, r.Score, r.Outcome)
	if r.Tally != nil {
		fmt.Fprintf(&sb, " %d-%d", r.Tally.Yes, r.Tally.No)
	}
	return sb.String()
}
