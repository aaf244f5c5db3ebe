package legistar

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"

	"golang.org/x/time/rate"

	"github.com/JaimeStill/docket/pkg/retry"
)

var (
	// ErrUnavailable marks an unreachable, slow, or failing API.
	ErrUnavailable = errors.New("legistar unavailable")
	// ErrMalformed marks a response that does not decode.
	ErrMalformed = errors.New("legistar response malformed")
	ErrNotFound  = errors.New("legistar resource not found")
)

// Client reads events and votes from the Legistar Web API.
type Client interface {
	EventItems(ctx context.Context, client, eventID string) ([]EventItem, error)
	Votes(ctx context.Context, client string, eventItemID int) ([]Vote, error)
}

type httpClient struct {
	http    *http.Client
	cfg     *Config
	limiter *rate.Limiter
	policy  retry.Policy
	logger  *slog.Logger
}

// New creates a rate-limited Legistar client.
func New(cfg *Config, logger *slog.Logger) Client {
	return &httpClient{
		http:    &http.Client{Timeout: cfg.TimeoutDuration()},
		cfg:     cfg,
		limiter: rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), cfg.Burst),
		policy: retry.Policy{
			MaxAttempts: cfg.RetryAttempts,
			Delay:       cfg.RetryDelayDuration(),
		},
		logger: logger.With("system", "legistar"),
	}
}

// EventItems returns an event's agenda items with agenda and minutes notes.
func (c *httpClient) EventItems(ctx context.Context, client, eventID string) ([]EventItem, error) {
	path := fmt.Sprintf("/%s/events/%s/eventitems", url.PathEscape(client), url.PathEscape(eventID))
	query := url.Values{
		"AgendaNote":  {"1"},
		"MinutesNote": {"1"},
	}

	var items []EventItem
	if err := c.get(ctx, path, query, &items); err != nil {
		return nil, fmt.Errorf("event %s items: %w", eventID, err)
	}
	return items, nil
}

// Votes returns the roll-call votes for one event item.
func (c *httpClient) Votes(ctx context.Context, client string, eventItemID int) ([]Vote, error) {
	path := fmt.Sprintf("/%s/eventitems/%s/votes", url.PathEscape(client), strconv.Itoa(eventItemID))

	var votes []Vote
	if err := c.get(ctx, path, nil, &votes); err != nil {
		return nil, fmt.Errorf("event item %d votes: %w", eventItemID, err)
	}
	return votes, nil
}

func (c *httpClient) get(ctx context.Context, path string, query url.Values, dst any) error {
	if query == nil {
		query = url.Values{}
	}
	if c.cfg.Token != "" {
		query.Set("token", c.cfg.Token)
	}
	target := c.cfg.BaseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	_, err := retry.Do(ctx, c.policy, func(ctx context.Context, attempt int) (struct{}, error) {
		if err := c.limiter.Wait(ctx); err != nil {
			return struct{}{}, err
		}
		return struct{}{}, c.fetch(ctx, target, dst)
	})
	if err != nil {
		c.logger.WarnContext(ctx, "legistar request failed", "path", path, "error", err)
	}
	return err
}

func (c *httpClient) fetch(ctx context.Context, target string, dst any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return retry.Transient(fmt.Errorf("%w: %w", ErrUnavailable, err))
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return ErrNotFound
	case resp.StatusCode >= 500, resp.StatusCode == http.StatusTooManyRequests:
		return retry.Transient(fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode))
	case resp.StatusCode != http.StatusOK:
		return fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 16<<20))
	if err != nil {
		return retry.Transient(fmt.Errorf("%w: read body: %w", ErrUnavailable, err))
	}
	if err := json.Unmarshal(body, dst); err != nil {
		return fmt.Errorf("%w: %w", ErrMalformed, err)
	}
	return nil
}
