package query_test

import (
	"strings"
	"testing"
	"time"

	"github.com/JaimeStill/docket/pkg/query"
)

func itemProjection() *query.ProjectionMap {
	return query.
		NewProjectionMap("public", "agenda_items", "a").
		Project("id", "ID").
		Project("title", "Title").
		Project("document_id", "DocumentID").
		Project("created_at", "CreatedAt")
}

func TestBuildPageNumbersParameters(t *testing.T) {
	search := "zoning"
	docID := "doc-1"

	sql, args := query.
		NewBuilder(itemProjection(), query.SortField{Field: "Title"}).
		WhereEquals("DocumentID", &docID).
		WhereSearch(&search, "Title").
		BuildPage(2, 10)

	want := "SELECT a.id, a.title, a.document_id, a.created_at FROM public.agenda_items a" +
		" WHERE a.document_id = $1 AND (a.title ILIKE $2) ORDER BY a.title ASC LIMIT 10 OFFSET 10"
	if sql != want {
		t.Errorf("sql:\n got %s\nwant %s", sql, want)
	}
	if len(args) != 2 || args[1] != "%zoning%" {
		t.Errorf("args: got %v", args)
	}
}

func TestWhereRange(t *testing.T) {
	from := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	sql, args := query.
		NewBuilder(itemProjection()).
		WhereRange("CreatedAt", &from, nil).
		BuildCount()

	if !strings.HasSuffix(sql, "WHERE a.created_at >= $1") {
		t.Errorf("sql: got %s", sql)
	}
	if len(args) != 1 {
		t.Errorf("args: got %d, want 1", len(args))
	}
}

func TestWhereEqualsNilIsNoop(t *testing.T) {
	var docID *string
	sql, args := query.NewBuilder(itemProjection()).WhereEquals("DocumentID", docID).BuildCount()
	if strings.Contains(sql, "WHERE") || len(args) != 0 {
		t.Errorf("expected no conditions, got %s %v", sql, args)
	}
}

func TestWhereCompareRejectsOperator(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected panic")
		}
	}()
	query.NewBuilder(itemProjection()).WhereCompare("Title", "; DROP", "x")
}

func TestParseSortFields(t *testing.T) {
	fields := query.ParseSortFields("title,-created_at")
	if len(fields) != 2 || fields[0].Descending || !fields[1].Descending {
		t.Errorf("got %+v", fields)
	}
}

func TestProjectionJoin(t *testing.T) {
	p := query.
		NewProjectionMap("public", "documents", "d").
		Project("id", "ID").
		Join("public", "meetings", "m", "JOIN", "m.id = d.meeting_id").
		Project("place_id", "PlaceID")

	sql, _ := query.NewBuilder(p).WhereEquals("PlaceID", "p1").Build()
	want := "SELECT d.id, m.place_id FROM public.documents d JOIN public.meetings m ON m.id = d.meeting_id WHERE m.place_id = $1"
	if sql != want {
		t.Errorf("sql:\n got %s\nwant %s", sql, want)
	}
}

func TestOrderByDropsUnknownFields(t *testing.T) {
	sql, _ := query.
		NewBuilder(itemProjection(), query.SortField{Field: "Title"}).
		OrderByFields(query.ParseSortFields("-created_at,id;DROP TABLE agenda_items")).
		Build()

	if !strings.HasSuffix(sql, "ORDER BY a.created_at DESC") {
		t.Errorf("sql: got %s", sql)
	}
	if strings.Contains(sql, "DROP") {
		t.Error("unmapped sort field reached the query")
	}
}

func TestOrderByFallsBackToDefault(t *testing.T) {
	sql, _ := query.
		NewBuilder(itemProjection(), query.SortField{Field: "Title"}).
		OrderByFields(query.ParseSortFields("bogus")).
		Build()

	if !strings.HasSuffix(sql, "ORDER BY a.title ASC") {
		t.Errorf("sql: got %s", sql)
	}
}

func TestSearchEscapesWildcards(t *testing.T) {
	search := "50%_off"
	_, args := query.NewBuilder(itemProjection()).WhereSearch(&search, "Title").BuildCount()

	if len(args) != 1 || args[0] != `%50\%\_off%` {
		t.Errorf("args: got %v", args)
	}
}
