package inference

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"testing"

	"github.com/JaimeStill/docket/pkg/retry"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		transient bool
	}{
		{"unreachable", &url.Error{Op: "Post", URL: "http://x", Err: errors.New("connection refused")}, true},
		{"server error", errors.New("HTTP 503: model loading"), true},
		{"rate limited", errors.New("status 429"), true},
		{"bad request", errors.New("HTTP 400: invalid model"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := classify(fmt.Errorf("chat call: %w", tt.err))
			if retry.IsTransient(err) != tt.transient {
				t.Errorf("transient = %v, want %v", retry.IsTransient(err), tt.transient)
			}
		})
	}
}

func TestComposePrompt(t *testing.T) {
	got := composePrompt(Request{System: "  Be brief. ", Prompt: "Summarize.", JSON: true})
	if !strings.HasPrefix(got, "Be brief.\n\nSummarize.") {
		t.Errorf("prompt = %q", got)
	}
	if !strings.HasSuffix(got, "JSON object.") {
		t.Error("json requests should ask for a JSON object")
	}
	if composePrompt(Request{Prompt: "p"}) != "p" {
		t.Error("prompt without system text should pass through")
	}
}
