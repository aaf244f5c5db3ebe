package inference

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/JaimeStill/docket/pkg/retry"
)

// residency controls how long the Ollama server keeps the model in memory.
// The chat endpoint has no keep_alive field, so loading and unloading go
// through /api/generate with an empty prompt.
type residency struct {
	client    *http.Client
	baseURL   string
	model     string
	keepAlive string
}

type residencyRequest struct {
	Model     string `json:"model"`
	KeepAlive string `json:"keep_alive"`
	Stream    bool   `json:"stream"`
}

func newResidency(cfg *Config) *residency {
	return &residency{
		client:    &http.Client{},
		baseURL:   strings.TrimRight(cfg.BaseURL, "/"),
		model:     cfg.Model,
		keepAlive: cfg.KeepAlive,
	}
}

func (r *residency) load(ctx context.Context) error {
	return r.post(ctx, r.keepAlive)
}

func (r *residency) unload(ctx context.Context) error {
	return r.post(ctx, "0")
}

func (r *residency) post(ctx context.Context, keepAlive string) error {
	body, err := json.Marshal(residencyRequest{Model: r.model, KeepAlive: keepAlive})
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.baseURL+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return retry.Transient(fmt.Errorf("send request: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		err := fmt.Errorf("%w: status %d: %s", ErrBackend, resp.StatusCode, bytes.TrimSpace(msg))
		if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
			return retry.Transient(err)
		}
		return err
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}
