package inference

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"regexp"
	"strings"

	"github.com/JaimeStill/go-agents/pkg/agent"
	gaconfig "github.com/JaimeStill/go-agents/pkg/config"

	"github.com/JaimeStill/docket/pkg/retry"
)

// AgentName identifies the engine's agent in go-agents configuration.
const AgentName = "docket-engine"

var transientStatus = regexp.MustCompile(`\b(?:429|5\d\d)\b`)

// Agent is a Backend over a go-agents agent with the ollama provider.
// Load builds the agent and pins the model in server memory; Generate runs
// through the agent's chat call.
type Agent struct {
	cfg       gaconfig.AgentConfig
	residency *residency
	agent     agent.Agent
}

// NewAgent creates an agent backend. The agent itself is built on Load.
func NewAgent(cfg *Config) *Agent {
	return &Agent{
		cfg:       cfg.AgentConfig(),
		residency: newResidency(cfg),
	}
}

// Load constructs the agent and asks the model server to keep the model
// resident. The engine calls Load at most once under its lock.
func (a *Agent) Load(ctx context.Context) error {
	ag, err := agent.New(&a.cfg)
	if err != nil {
		return fmt.Errorf("%w: create agent: %w", ErrBackend, err)
	}
	if err := a.residency.load(ctx); err != nil {
		return fmt.Errorf("load %s: %w", a.cfg.Model.Name, err)
	}
	a.agent = ag
	return nil
}

// Unload releases the model from server memory.
func (a *Agent) Unload(ctx context.Context) error {
	return a.residency.unload(ctx)
}

// Generate sends the composed prompt through the agent. System instructions
// lead the prompt.
func (a *Agent) Generate(ctx context.Context, req Request) (Response, error) {
	if a.agent == nil {
		return Response{}, fmt.Errorf("%w: generate before load", ErrBackend)
	}

	var opts []map[string]any
	if req.MaxTokens > 0 {
		opts = append(opts, map[string]any{"max_tokens": req.MaxTokens})
	}

	resp, err := a.agent.Chat(ctx, composePrompt(req), opts...)
	if err != nil {
		return Response{}, classify(fmt.Errorf("chat call: %w", err))
	}
	return Response{Text: resp.Content()}, nil
}

func composePrompt(req Request) string {
	var b strings.Builder
	if s := strings.TrimSpace(req.System); s != "" {
		b.WriteString(s)
		b.WriteString("\n\n")
	}
	b.WriteString(req.Prompt)
	if req.JSON {
		b.WriteString("\n\nRespond with a single JSON object.")
	}
	return b.String()
}

// classify marks unreachable servers and 429/5xx replies as transient.
func classify(err error) error {
	var urlErr *url.Error
	var netErr net.Error
	if errors.As(err, &urlErr) || errors.As(err, &netErr) || transientStatus.MatchString(err.Error()) {
		return retry.Transient(err)
	}
	return err
}
