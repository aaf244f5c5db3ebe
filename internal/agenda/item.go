// Package agenda persists agenda items and enforces the source trust
// hierarchy on their derived outcome fields.
package agenda

import (
	"time"

	"github.com/google/uuid"
)

// Outcome is how the body disposed of an item.
type Outcome string

const (
	OutcomePassed    Outcome = "passed"
	OutcomeFailed    Outcome = "failed"
	OutcomeDeferred  Outcome = "deferred"
	OutcomeContinued Outcome = "continued"
	OutcomeUnknown   Outcome = "unknown"
)

// Valid reports whether o is a known outcome.
func (o Outcome) Valid() bool {
	switch o {
	case OutcomePassed, OutcomeFailed, OutcomeDeferred, OutcomeContinued, OutcomeUnknown:
		return true
	}
	return false
}

// Tally is a recorded vote count.
type Tally struct {
	Yes     int `json:"yes"`
	No      int `json:"no"`
	Abstain int `json:"abstain"`
	Absent  int `json:"absent"`
}

// Motion names who moved and seconded an item.
type Motion struct {
	Mover    string `json:"mover,omitempty"`
	Seconder string `json:"seconder,omitempty"`
}

// Vote is one member's recorded vote.
type Vote struct {
	Member string `json:"member"`
	Vote   string `json:"vote"`
}

// EvidenceKind identifies which verification path produced evidence.
type EvidenceKind string

const (
	EvidencePattern   EvidenceKind = "pattern"
	EvidenceExternal  EvidenceKind = "external"
	EvidenceSpatial   EvidenceKind = "spatial"
	EvidenceInference EvidenceKind = "inference"
)

// Evidence records one verification attempt, whether or not its result
// was persisted.
type Evidence struct {
	Kind       EvidenceKind `json:"kind"`
	Text       string       `json:"text,omitempty"`
	PageNumber *int         `json:"page_number,omitempty"`
	Detail     string       `json:"detail,omitempty"`
	Persisted  bool         `json:"persisted"`
	RecordedAt time.Time    `json:"recorded_at"`
}

// Item is a discrete agenda item. Outcome fields stay at their zero values
// (unknown, no tally, no votes) until a write with positive evidence lands.
type Item struct {
	ID                uuid.UUID  `json:"id"`
	DocumentID        uuid.UUID  `json:"document_id"`
	Order             int        `json:"order"`
	ParentOrder       *int       `json:"parent_order"`
	Marker            string     `json:"marker"`
	Title             string     `json:"title"`
	Description       string     `json:"description"`
	Classification    string     `json:"classification"`
	PageNumber        *int       `json:"page_number"`
	Source            Source     `json:"source"`
	Outcome           Outcome    `json:"outcome"`
	OutcomeSource     *Source    `json:"outcome_source"`
	Tally             *Tally     `json:"tally"`
	Motion            *Motion    `json:"motion"`
	Votes             []Vote     `json:"votes"`
	Confidence        float64    `json:"confidence"`
	Verified          bool       `json:"verified"`
	Evidence          []Evidence `json:"evidence"`
	LineageID         *uuid.UUID `json:"lineage_id"`
	LineageConfidence *float64   `json:"lineage_confidence"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

// Draft is a segmented item not yet persisted.
type Draft struct {
	Order          int    `json:"order"`
	ParentOrder    *int   `json:"parent_order"`
	Marker         string `json:"marker"`
	Title          string `json:"title"`
	Description    string `json:"description"`
	Classification string `json:"classification"`
	PageNumber     *int   `json:"page_number"`
	Source         Source `json:"source"`
}

// Result is a derived outcome ready to be written under Source.
type Result struct {
	Source     Source  `json:"source"`
	Outcome    Outcome `json:"outcome"`
	Tally      *Tally  `json:"tally,omitempty"`
	Motion     *Motion `json:"motion,omitempty"`
	Votes      []Vote  `json:"votes,omitempty"`
	Confidence float64 `json:"confidence"`
	Verified   bool    `json:"verified"`
}

// Positive reports whether r carries any evidence of a disposition.
func (r Result) Positive() bool {
	return r.Outcome != OutcomeUnknown || r.Tally != nil || len(r.Votes) > 0
}

// OutcomeCommand is a manual outcome entry.
type OutcomeCommand struct {
	Outcome Outcome `json:"outcome"`
	Tally   *Tally  `json:"tally"`
	Motion  *Motion `json:"motion"`
	Votes   []Vote  `json:"votes"`
	Note    string  `json:"note"`
}
