package votes

import (
	"unicode/utf8"

	"github.com/JaimeStill/docket/internal/agenda"
	"github.com/JaimeStill/docket/internal/normalize"
	"github.com/JaimeStill/docket/pkg/fuzzy"
)

// Span is an item's local text: from its heading to the next located
// heading. Start is -1 when the heading was not found.
type Span struct {
	Start int
	End   int
	Text  string
	Page  int
}

// Spans locates each item's heading in text, in item order, and returns the
// region each item owns. Regions are capped at limit bytes.
func Spans(text string, items []agenda.Item, limit int) []Span {
	folded := fuzzy.Fold(text)
	spans := make([]Span, len(items))

	cursor := 0
	for i, it := range items {
		off := folded.FindAfter(it.Title, cursor)
		if off < 0 {
			spans[i] = Span{Start: -1, End: -1}
			continue
		}
		spans[i] = Span{Start: off, Page: normalize.PageOf(text, off)}
		cursor = off + 1
	}

	next := len(text)
	for i := len(spans) - 1; i >= 0; i-- {
		if spans[i].Start < 0 {
			continue
		}
		end := min(next, spans[i].Start+limit)
		for end < len(text) && end > spans[i].Start && !utf8.RuneStart(text[end]) {
			end--
		}
		spans[i].End = end
		spans[i].Text = text[spans[i].Start:end]
		next = spans[i].Start
	}
	return spans
}
