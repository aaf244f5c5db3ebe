package formatting_test

import (
	"errors"
	"testing"

	"github.com/JaimeStill/docket/pkg/formatting"
)

type outcome struct {
	Outcome string `json:"outcome"`
	Yes     int    `json:"yes"`
}

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"direct", `{"outcome":"passed","yes":5}`},
		{"fenced", "```json\n{\"outcome\":\"passed\",\"yes\":5}\n```"},
		{"fenced no lang", "```\n{\"outcome\":\"passed\",\"yes\":5}\n```"},
		{"prose", `Here is the result: {"outcome":"passed","yes":5} as requested.`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := formatting.Parse[outcome](tt.content)
			if err != nil {
				t.Fatalf("Parse: %v", err)
			}
			if got.Outcome != "passed" || got.Yes != 5 {
				t.Errorf("got %+v", got)
			}
		})
	}
}

func TestParseArray(t *testing.T) {
	got, err := formatting.Parse[[]outcome](`items: [{"outcome":"failed"}]`)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(got) != 1 || got[0].Outcome != "failed" {
		t.Errorf("got %+v", got)
	}
}

func TestParseFailure(t *testing.T) {
	_, err := formatting.Parse[outcome]("no json here")
	if !errors.Is(err, formatting.ErrParseFailed) {
		t.Errorf("got %v, want ErrParseFailed", err)
	}
}
