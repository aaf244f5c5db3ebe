package votes

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/JaimeStill/docket/internal/agenda"
	"github.com/JaimeStill/docket/internal/inference"
	"github.com/JaimeStill/docket/internal/prompts"
	"github.com/JaimeStill/docket/pkg/formatting"
	"github.com/JaimeStill/docket/pkg/fuzzy"
)

// ErrMalformedResponse marks an inference response that does not decode.
var ErrMalformedResponse = errors.New("malformed vote response")

// Generator is the engine surface the inference fallback uses.
type Generator interface {
	Enabled() bool
	Generate(ctx context.Context, req inference.Request) (inference.Response, error)
}

type voteResponse struct {
	Outcome  string        `json:"outcome"`
	Tally    *agenda.Tally `json:"tally"`
	Mover    string        `json:"mover"`
	Seconder string        `json:"seconder"`
	Votes    []agenda.Vote `json:"votes"`
	Evidence string        `json:"evidence"`
	// Confidence is the model's self-reported certainty.
	Confidence float64 `json:"confidence"`
}

// Inferred is a decoded and checked inference answer.
type Inferred struct {
	Result   agenda.Result
	Evidence string
	Grounded bool
}

func infer(ctx context.Context, engine Generator, system string, it agenda.Item, local string) (Inferred, error) {
	resp, err := engine.Generate(ctx, inference.Request{
		Operation: inference.OpVerifyVotes,
		System:    system,
		Prompt:    itemPrompt(it, local),
		JSON:      true,
	})
	if err != nil {
		return Inferred{}, err
	}

	parsed, err := formatting.Parse[voteResponse](resp.Text)
	if err != nil {
		return Inferred{}, fmt.Errorf("%w: %w", ErrMalformedResponse, err)
	}

	outcome := agenda.Outcome(strings.ToLower(strings.TrimSpace(parsed.Outcome)))
	if !outcome.Valid() {
		outcome = agenda.OutcomeUnknown
	}

	res := agenda.Result{
		Source:     agenda.SourceLLMExtracted,
		Outcome:    outcome,
		Tally:      parsed.Tally,
		Votes:      parsed.Votes,
		Confidence: min(1, max(0, parsed.Confidence)),
	}
	if parsed.Mover != "" || parsed.Seconder != "" {
		res.Motion = &agenda.Motion{Mover: parsed.Mover, Seconder: parsed.Seconder}
	}

	quote := strings.TrimSpace(parsed.Evidence)
	return Inferred{
		Result:   res,
		Evidence: quote,
		Grounded: quote != "" && fuzzy.Fold(local).Contains(quote),
	}, nil
}

func itemPrompt(it agenda.Item, local string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Agenda item: %s\n\n", it.Title)
	sb.WriteString(local)
	return sb.String()
}

func composeSystem(ctx context.Context, ps prompts.Instructor) (string, error) {
	return prompts.Compose(ctx, ps, prompts.StageVerifyVotes)
}
