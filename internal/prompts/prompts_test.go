package prompts_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"testing"

	"github.com/JaimeStill/docket/internal/prompts"
)

func TestStageUnmarshal(t *testing.T) {
	var s prompts.Stage
	if err := json.Unmarshal([]byte(`"verify_votes"`), &s); err != nil || s != prompts.StageVerifyVotes {
		t.Errorf("got %q, %v", s, err)
	}
	if err := json.Unmarshal([]byte(`"classify"`), &s); !errors.Is(err, prompts.ErrInvalidStage) {
		t.Errorf("error = %v, want ErrInvalidStage", err)
	}
}

func TestEveryStageHasDefaults(t *testing.T) {
	for _, stage := range prompts.Stages() {
		if text, err := prompts.DefaultInstructions(stage); err != nil || text == "" {
			t.Errorf("%s instructions: %q, %v", stage, text, err)
		}
		if text, err := prompts.Spec(stage); err != nil || !strings.Contains(text, "JSON") {
			t.Errorf("%s spec: %v", stage, err)
		}
	}
}

type overrideSystem struct {
	override string
}

func (o overrideSystem) Instructions(ctx context.Context, stage prompts.Stage) (string, error) {
	if o.override != "" {
		return o.override, nil
	}
	return prompts.DefaultInstructions(stage)
}

func TestCompose(t *testing.T) {
	got, err := prompts.Compose(context.Background(), overrideSystem{override: "Be terse."}, prompts.StageSummarize)
	if err != nil {
		t.Fatalf("Compose: %v", err)
	}
	if !strings.HasPrefix(got, "Be terse.\n\n") {
		t.Errorf("prompt should start with override: %q", got[:20])
	}
	if !strings.Contains(got, `"summary"`) {
		t.Error("prompt should include the response spec")
	}

	if _, err := prompts.Compose(context.Background(), overrideSystem{}, prompts.Stage("nope")); !errors.Is(err, prompts.ErrInvalidStage) {
		t.Errorf("error = %v, want ErrInvalidStage", err)
	}
}

func TestCommandValidate(t *testing.T) {
	long := strings.Repeat("x", prompts.MaxInstructionChars+1)

	tests := []struct {
		name string
		cmd  prompts.Command
		want error
	}{
		{"valid", prompts.Command{Name: " terse ", Stage: prompts.StageSummarize, Instructions: "Be brief."}, nil},
		{"blank name", prompts.Command{Name: "  ", Stage: prompts.StageSummarize, Instructions: "x"}, prompts.ErrInvalidPrompt},
		{"missing stage", prompts.Command{Name: "n", Instructions: "x"}, prompts.ErrInvalidStage},
		{"blank instructions", prompts.Command{Name: "n", Stage: prompts.StageSegment, Instructions: "\n"}, prompts.ErrInvalidPrompt},
		{"oversized", prompts.Command{Name: "n", Stage: prompts.StageSegment, Instructions: long}, prompts.ErrInvalidPrompt},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cmd.Validate()
			if !errors.Is(err, tt.want) {
				t.Errorf("error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestCommandValidateTrims(t *testing.T) {
	cmd := prompts.Command{Name: " terse ", Stage: prompts.StageSummarize, Instructions: " Be brief.\n"}
	if err := cmd.Validate(); err != nil {
		t.Fatal(err)
	}
	if cmd.Name != "terse" || cmd.Instructions != "Be brief." {
		t.Errorf("got %q / %q", cmd.Name, cmd.Instructions)
	}
}

func TestMapHTTPStatus(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{prompts.ErrNotFound, http.StatusNotFound},
		{prompts.ErrDuplicate, http.StatusConflict},
		{fmt.Errorf("%w: name is required", prompts.ErrInvalidPrompt), http.StatusBadRequest},
		{prompts.ErrInvalidStage, http.StatusBadRequest},
		{errors.New("db down"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		if got := prompts.MapHTTPStatus(tt.err); got != tt.want {
			t.Errorf("MapHTTPStatus(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}

func TestEffectiveComposed(t *testing.T) {
	spec, _ := prompts.Spec(prompts.StageVerifyVotes)
	eff := prompts.Effective{Stage: prompts.StageVerifyVotes, Instructions: "Read carefully.", Spec: spec}

	want, err := prompts.Compose(context.Background(), overrideSystem{override: "Read carefully."}, prompts.StageVerifyVotes)
	if err != nil {
		t.Fatal(err)
	}
	if eff.Composed() != want {
		t.Error("Composed should match Compose for the same instructions")
	}
}
