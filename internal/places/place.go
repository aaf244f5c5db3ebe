// Package places implements the jurisdiction domain: places, their ingestion
// capabilities, and the meetings whose records are ingested for them.
package places

import (
	"encoding/json"
	"slices"
	"time"

	"github.com/google/uuid"
)

// Mode scales segmentation quality thresholds for a place.
type Mode string

const (
	ModeBalanced   Mode = "balanced"
	ModeAggressive Mode = "aggressive"
	ModeRecall     Mode = "recall"
)

var modes = []Mode{ModeBalanced, ModeAggressive, ModeRecall}

// UnmarshalJSON validates that the decoded string is a known mode.
func (m *Mode) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw == "" {
		*m = ModeBalanced
		return nil
	}
	v := Mode(raw)
	if !slices.Contains(modes, v) {
		return ErrInvalidMode
	}
	*m = v
	return nil
}

// Place is a jurisdiction whose meeting records are ingested.
// A non-nil LegistarClient means the external agenda API covers the place.
type Place struct {
	ID               uuid.UUID `json:"id"`
	Name             string    `json:"name"`
	LegistarClient   *string   `json:"legistar_client"`
	HTMLAgendas      bool      `json:"html_agendas"`
	SegmentationMode Mode      `json:"segmentation_mode"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// Meeting is a single public meeting of a place.
// ExternalID is the external agenda API event id when known.
type Meeting struct {
	ID         uuid.UUID `json:"id"`
	PlaceID    uuid.UUID `json:"place_id"`
	ExternalID *string   `json:"external_id"`
	Name       string    `json:"name"`
	RecordDate time.Time `json:"record_date"`
	CreatedAt  time.Time `json:"created_at"`
}

// CreateCommand carries the data needed to register a place.
type CreateCommand struct {
	Name             string  `json:"name"`
	LegistarClient   *string `json:"legistar_client"`
	HTMLAgendas      bool    `json:"html_agendas"`
	SegmentationMode Mode    `json:"segmentation_mode"`
}

// UpdateCommand carries the data needed to update a place.
type UpdateCommand = CreateCommand

// MeetingCommand identifies a meeting for upsert. Meetings are matched on
// (place, external id) when ExternalID is set, otherwise on (place, date, name).
type MeetingCommand struct {
	PlaceID    uuid.UUID `json:"place_id"`
	ExternalID *string   `json:"external_id"`
	Name       string    `json:"name"`
	RecordDate time.Time `json:"record_date"`
}
