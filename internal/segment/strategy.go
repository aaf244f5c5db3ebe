// Package segment resolves a document's canonical text into ordered agenda
// item drafts. Strategies are tried in trust order and the first one that
// yields usable items wins; quality controls apply to every strategy.
package segment

import (
	"context"

	"github.com/JaimeStill/docket/internal/agenda"
	"github.com/JaimeStill/docket/internal/documents"
	"github.com/JaimeStill/docket/internal/places"
)

// Strategy names.
const (
	StrategyLegistar  = "legistar"
	StrategyHTML      = "html"
	StrategyInference = "inference"
)

// Input is everything a strategy may consult for one document.
type Input struct {
	Document *documents.Document
	Place    *places.Place
	Meeting  *places.Meeting
	Text     string
}

// Capabilities describe which sources exist for an input.
type Capabilities struct {
	Legistar  bool `json:"legistar"`
	HTML      bool `json:"html"`
	Inference bool `json:"inference"`
}

// CapabilitiesOf derives source capabilities from the place, meeting, and
// document. Inference availability depends on the engine and is supplied
// by the caller.
func CapabilitiesOf(in Input, inference bool) Capabilities {
	return Capabilities{
		Legistar: in.Place != nil && in.Place.LegistarClient != nil &&
			in.Meeting != nil && in.Meeting.ExternalID != nil,
		HTML:      in.Place != nil && in.Place.HTMLAgendas && in.Document != nil && in.Document.HTMLURL != nil,
		Inference: inference,
	}
}

// Strategy proposes candidates from one source.
type Strategy interface {
	Name() string
	Source() agenda.Source
	Available(caps Capabilities) bool
	Resolve(ctx context.Context, in Input) ([]Candidate, error)
}
