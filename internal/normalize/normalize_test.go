package normalize_test

import (
	"strings"
	"testing"

	"github.com/JaimeStill/docket/internal/normalize"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{
			name: "spaced letters collapse",
			raw:  "A G E N D A\nRegular Meeting",
			want: "AGENDA\nRegular Meeting",
		},
		{
			name: "spaced words keep their gap",
			raw:  "A G E N D A  I T E M  1\nC I T Y  C O U N C I L",
			want: "AGENDA ITEM 1\nCITY COUNCIL",
		},
		{
			name: "page number artifacts removed",
			raw:  "Call to Order\nPage 3 of 12\n- 4 -\n7\nRoll Call",
			want: "Call to Order\nRoll Call",
		},
		{
			name: "line break hyphenation joined",
			raw:  "For consid-\neration of the budget",
			want: "For consideration of the budget",
		},
		{
			name: "unicode punctuation normalized",
			raw:  "“Parks” — Mayor’s report…",
			want: `"Parks" - Mayor's report...`,
		},
		{
			name: "control characters and whitespace",
			raw:  "Item\x00  one\t\there   \n\n\n\nItem two",
			want: "Item one here\n\nItem two",
		},
		{
			name: "item markers survive",
			raw:  "1. Approve minutes\n2. Budget",
			want: "1. Approve minutes\n2. Budget",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := normalize.Normalize(tt.raw)
			if got.Text != tt.want {
				t.Errorf("text:\n got %q\nwant %q", got.Text, tt.want)
			}
		})
	}
}

func TestNormalizePageMarkers(t *testing.T) {
	raw := "[[page 1]]\nAgenda\n[[page 2]]\nMinutes\n[[page 3]]\nAdjourn"
	got := normalize.Normalize(raw)

	if got.Pages != 3 {
		t.Fatalf("pages: got %d, want 3", got.Pages)
	}
	if got.Text != "Agenda\fMinutes\fAdjourn" {
		t.Errorf("text: got %q", got.Text)
	}
}

func TestNormalizeFormFeeds(t *testing.T) {
	got := normalize.Normalize("one\ftwo\f\f")
	if got.Pages != 2 {
		t.Errorf("pages: got %d, want 2", got.Pages)
	}
}

func TestNormalizeDeterministic(t *testing.T) {
	raw := "Regular  Meeting\fPage 2 of 2\nAdjourn—"
	a := normalize.Normalize(raw)
	b := normalize.Normalize(raw)

	if a != b {
		t.Errorf("non-deterministic: %+v vs %+v", a, b)
	}
	if len(a.Hash) != 64 {
		t.Errorf("hash length: got %d", len(a.Hash))
	}
	if normalize.Normalize(a.Text).Hash != a.Hash {
		t.Error("canonical text is not a fixed point")
	}
}

func TestPageOf(t *testing.T) {
	text := "first\fsecond\fthird"

	tests := []struct {
		offset int
		want   int
	}{
		{0, 1},
		{strings.Index(text, "second"), 2},
		{strings.Index(text, "third"), 3},
		{len(text) + 10, 3},
		{-5, 1},
	}

	for _, tt := range tests {
		if got := normalize.PageOf(text, tt.offset); got != tt.want {
			t.Errorf("PageOf(%d) = %d, want %d", tt.offset, got, tt.want)
		}
	}
}

func TestAlphaCount(t *testing.T) {
	if got := normalize.AlphaCount("5-0 vote, ok!"); got != 6 {
		t.Errorf("got %d, want 6", got)
	}
}
