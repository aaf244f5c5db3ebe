package segment

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/JaimeStill/docket/internal/agenda"
	"github.com/JaimeStill/docket/internal/legistar"
	"github.com/JaimeStill/docket/internal/normalize"
	"github.com/JaimeStill/docket/pkg/fuzzy"
)

type legistarStrategy struct {
	client legistar.Client
}

// NewLegistarStrategy reads structured items from the external agenda API.
func NewLegistarStrategy(client legistar.Client) Strategy {
	return &legistarStrategy{client: client}
}

func (s *legistarStrategy) Name() string          { return StrategyLegistar }
func (s *legistarStrategy) Source() agenda.Source { return agenda.SourceLegistar }

func (s *legistarStrategy) Available(caps Capabilities) bool {
	return caps.Legistar
}

func (s *legistarStrategy) Resolve(ctx context.Context, in Input) ([]Candidate, error) {
	items, err := s.client.EventItems(ctx, *in.Place.LegistarClient, *in.Meeting.ExternalID)
	if err != nil {
		return nil, fmt.Errorf("legistar items: %w", err)
	}

	items = slices.DeleteFunc(items, func(i legistar.EventItem) bool { return !i.Agendized() })
	slices.SortStableFunc(items, func(a, b legistar.EventItem) int {
		return a.AgendaSequence - b.AgendaSequence
	})

	cands := make([]Candidate, 0, len(items))
	for _, it := range items {
		c := Candidate{
			Marker: strings.TrimRight(strings.TrimSpace(it.AgendaNumber), "."),
			Title:  strings.TrimSpace(it.Title),
			Offset: -1,
		}
		if it.AgendaNote != nil {
			c.Description = strings.TrimSpace(*it.AgendaNote)
		}
		if off := locate(in.Text, c.Title); off >= 0 {
			c.Offset = off
			c.Page = normalize.PageOf(in.Text, off)
		}
		cands = append(cands, c)
	}
	return cands, nil
}

// locate returns the byte offset in text where title's leading words first
// appear, ignoring case and punctuation, or -1.
func locate(text, title string) int {
	return fuzzy.Locate(text, title)
}
