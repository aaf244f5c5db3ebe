// Package inference provides the process-wide handle to the local generative
// model. The model is loaded at most once per process and every generation
// runs on a single execution slot.
package inference

import (
	"context"
	"time"
)

// Operation identifies the pipeline stage issuing a request. It selects the
// timeout budget.
type Operation string

const (
	OpSegment     Operation = "segment"
	OpVerifyVotes Operation = "verify_votes"
	OpSummarize   Operation = "summarize"
)

// Request is a bounded generation request.
type Request struct {
	Operation Operation
	System    string
	Prompt    string
	MaxTokens int
	JSON      bool
}

// Stats are optional token and timing figures reported by a backend.
type Stats struct {
	PromptTokens int           `json:"prompt_tokens"`
	OutputTokens int           `json:"output_tokens"`
	Duration     time.Duration `json:"duration"`
}

// Response is generated text plus optional stats. A nil Stats is normal.
type Response struct {
	Text  string
	Stats *Stats
}

// Backend is a model server. Load brings the model into memory; Generate
// must only be called after a successful Load.
type Backend interface {
	Load(ctx context.Context) error
	Generate(ctx context.Context, req Request) (Response, error)
}

// Unloader is implemented by backends that can release model memory.
type Unloader interface {
	Unload(ctx context.Context) error
}
