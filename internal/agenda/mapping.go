package agenda

import (
	"encoding/json"
	"fmt"

	"github.com/JaimeStill/docket/pkg/query"
	"github.com/JaimeStill/docket/pkg/repository"
)

var projection = query.
	NewProjectionMap("public", "agenda_items", "i").
	Project("id", "ID").
	Project("document_id", "DocumentID").
	Project("item_order", "Order").
	Project("parent_order", "ParentOrder").
	Project("marker", "Marker").
	Project("title", "Title").
	Project("description", "Description").
	Project("classification", "Classification").
	Project("page_number", "PageNumber").
	Project("source", "Source").
	Project("outcome", "Outcome").
	Project("outcome_source", "OutcomeSource").
	Project("tally", "Tally").
	Project("motion", "Motion").
	Project("votes", "Votes").
	Project("confidence", "Confidence").
	Project("verified", "Verified").
	Project("evidence", "Evidence").
	Project("lineage_id", "LineageID").
	Project("lineage_confidence", "LineageConfidence").
	Project("created_at", "CreatedAt").
	Project("updated_at", "UpdatedAt")

var defaultSort = query.SortField{Field: "Order"}

const itemColumns = `id, document_id, item_order, parent_order, marker, title, description,
	classification, page_number, source, outcome, outcome_source, tally, motion, votes,
	confidence, verified, evidence, lineage_id, lineage_confidence, created_at, updated_at`

func scanItem(s repository.Scanner) (Item, error) {
	var (
		it            Item
		outcomeSource *string
		tally, motion []byte
		votes, ev     []byte
	)

	err := s.Scan(
		&it.ID,
		&it.DocumentID,
		&it.Order,
		&it.ParentOrder,
		&it.Marker,
		&it.Title,
		&it.Description,
		&it.Classification,
		&it.PageNumber,
		&it.Source,
		&it.Outcome,
		&outcomeSource,
		&tally,
		&motion,
		&votes,
		&it.Confidence,
		&it.Verified,
		&ev,
		&it.LineageID,
		&it.LineageConfidence,
		&it.CreatedAt,
		&it.UpdatedAt,
	)
	if err != nil {
		return it, err
	}

	if outcomeSource != nil {
		src := Source(*outcomeSource)
		it.OutcomeSource = &src
	}

	if err := unmarshalOptional(tally, &it.Tally); err != nil {
		return it, fmt.Errorf("decode tally: %w", err)
	}
	if err := unmarshalOptional(motion, &it.Motion); err != nil {
		return it, fmt.Errorf("decode motion: %w", err)
	}
	if err := unmarshalOptional(votes, &it.Votes); err != nil {
		return it, fmt.Errorf("decode votes: %w", err)
	}
	if err := unmarshalOptional(ev, &it.Evidence); err != nil {
		return it, fmt.Errorf("decode evidence: %w", err)
	}

	if it.Votes == nil {
		it.Votes = []Vote{}
	}
	if it.Evidence == nil {
		it.Evidence = []Evidence{}
	}

	return it, nil
}

func unmarshalOptional(data []byte, dest any) error {
	if len(data) == 0 || string(data) == "null" {
		return nil
	}
	return json.Unmarshal(data, dest)
}

// jsonb encodes v for a JSONB parameter, mapping nil pointers to SQL NULL.
func jsonb[T any](v *T) (any, error) {
	if v == nil {
		return nil, nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

func jsonbList[T any](v []T) (string, error) {
	if v == nil {
		v = []T{}
	}
	data, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
