// Package lineage links agenda items that track the same issue across
// meetings of a place. Groups are recomputed in full under a system-wide
// lock and published as an immutable snapshot.
package lineage

import (
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrRecomputeInProgress rejects a recompute while another holds the lock.
	ErrRecomputeInProgress = errors.New("lineage recompute in progress")
	ErrNotFound            = errors.New("lineage not found")
)

// MapHTTPStatus maps lineage errors to HTTP status codes.
func MapHTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrRecomputeInProgress):
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

// Node is one agenda item considered for linking. PriorID is the lineage
// the item belonged to before this recompute.
type Node struct {
	ItemID     uuid.UUID
	DocumentID uuid.UUID
	MeetingID  uuid.UUID
	Title      string
	RecordDate time.Time
	PriorID    *uuid.UUID
}

// Member is an item's place in a group. Confidence is its strongest edge.
type Member struct {
	ItemID     uuid.UUID `json:"item_id"`
	DocumentID uuid.UUID `json:"document_id"`
	Confidence float64   `json:"confidence"`
}

// Group is a connected component spanning at least two documents.
// Members are ordered by item id.
type Group struct {
	LineageID     uuid.UUID `json:"lineage_id"`
	PlaceID       uuid.UUID `json:"place_id"`
	Members       []Member  `json:"members"`
	DocumentCount int       `json:"document_count"`
	Confidence    float64   `json:"confidence"`
	LowConfidence bool      `json:"low_confidence"`
}

// Snapshot is the result of one recompute for a place. It is never
// modified after publication.
type Snapshot struct {
	PlaceID    uuid.UUID `json:"place_id"`
	Groups     []Group   `json:"groups"`
	ComputedAt time.Time `json:"computed_at"`

	byItem map[uuid.UUID]int
}

func newSnapshot(placeID uuid.UUID, groups []Group, at time.Time) *Snapshot {
	s := &Snapshot{
		PlaceID:    placeID,
		Groups:     groups,
		ComputedAt: at,
		byItem:     make(map[uuid.UUID]int),
	}
	for i, g := range groups {
		for _, m := range g.Members {
			s.byItem[m.ItemID] = i
		}
	}
	return s
}

// Lookup returns the group holding itemID.
func (s *Snapshot) Lookup(itemID uuid.UUID) (*Group, bool) {
	i, ok := s.byItem[itemID]
	if !ok {
		return nil, false
	}
	return &s.Groups[i], true
}

// Summary is the compact form of a snapshot reported as a task result.
type Summary struct {
	PlaceID       uuid.UUID `json:"place_id"`
	Groups        int       `json:"groups"`
	Members       int       `json:"members"`
	LowConfidence int       `json:"low_confidence"`
}

// Summary counts groups, members, and low-confidence groups.
func (s *Snapshot) Summary() Summary {
	sum := Summary{PlaceID: s.PlaceID, Groups: len(s.Groups)}
	for _, g := range s.Groups {
		sum.Members += len(g.Members)
		if g.LowConfidence {
			sum.LowConfidence++
		}
	}
	return sum
}

// View is a persisted group with its members' titles and dates.
type View struct {
	LineageID     uuid.UUID    `json:"lineage_id"`
	PlaceID       uuid.UUID    `json:"place_id"`
	Confidence    float64      `json:"confidence"`
	LowConfidence bool         `json:"low_confidence"`
	MemberCount   int          `json:"member_count"`
	DocumentCount int          `json:"document_count"`
	UpdatedAt     time.Time    `json:"updated_at"`
	Members       []MemberView `json:"members"`
}

// MemberView is one member of a persisted group.
type MemberView struct {
	ItemID     uuid.UUID `json:"item_id"`
	DocumentID uuid.UUID `json:"document_id"`
	Title      string    `json:"title"`
	RecordDate time.Time `json:"record_date"`
	Confidence float64   `json:"confidence"`
}
