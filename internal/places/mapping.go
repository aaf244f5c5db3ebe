package places

import (
	"github.com/JaimeStill/docket/pkg/query"
	"github.com/JaimeStill/docket/pkg/repository"
)

var projection = query.
	NewProjectionMap("public", "places", "p").
	Project("id", "ID").
	Project("name", "Name").
	Project("legistar_client", "LegistarClient").
	Project("html_agendas", "HTMLAgendas").
	Project("segmentation_mode", "SegmentationMode").
	Project("created_at", "CreatedAt").
	Project("updated_at", "UpdatedAt")

var meetingProjection = query.
	NewProjectionMap("public", "meetings", "m").
	Project("id", "ID").
	Project("place_id", "PlaceID").
	Project("external_id", "ExternalID").
	Project("name", "Name").
	Project("record_date", "RecordDate").
	Project("created_at", "CreatedAt")

var defaultSort = query.SortField{Field: "Name"}

var meetingSort = query.SortField{Field: "RecordDate", Descending: true}

const placeColumns = "id, name, legistar_client, html_agendas, segmentation_mode, created_at, updated_at"

const meetingColumns = "id, place_id, external_id, name, record_date, created_at"

func scanPlace(s repository.Scanner) (Place, error) {
	var p Place
	err := s.Scan(
		&p.ID,
		&p.Name,
		&p.LegistarClient,
		&p.HTMLAgendas,
		&p.SegmentationMode,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	return p, err
}

func scanMeeting(s repository.Scanner) (Meeting, error) {
	var m Meeting
	err := s.Scan(
		&m.ID,
		&m.PlaceID,
		&m.ExternalID,
		&m.Name,
		&m.RecordDate,
		&m.CreatedAt,
	)
	return m, err
}
