package agenda

import (
	"encoding/json"
	"fmt"
)

// Source identifies who produced an item or an outcome.
type Source string

const (
	SourceManual       Source = "manual"
	SourceLegistar     Source = "legistar"
	SourceLLMExtracted Source = "llm_extracted"
)

// Rank orders sources by trust. Unknown sources rank zero.
func (s Source) Rank() int {
	switch s {
	case SourceManual:
		return 3
	case SourceLegistar:
		return 2
	case SourceLLMExtracted:
		return 1
	}
	return 0
}

// Valid reports whether s is a known source.
func (s Source) Valid() bool {
	return s.Rank() > 0
}

func (s *Source) UnmarshalJSON(data []byte) error {
	var v string
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	if !Source(v).Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidSource, v)
	}
	*s = Source(v)
	return nil
}

// Decide reports whether a write under incoming may replace a value last
// written under current. A nil current means no value has been written.
// Equal trust may refresh its own value; lower trust never replaces higher.
func Decide(current *Source, incoming Source) bool {
	if !incoming.Valid() {
		return false
	}
	if current == nil {
		return true
	}
	return incoming.Rank() >= current.Rank()
}

// Outranks reports whether the item's outcome was written by a source more
// trusted than s.
func (i *Item) Outranks(s Source) bool {
	return !Decide(i.OutcomeSource, s)
}
