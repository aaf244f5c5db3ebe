package documents

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/pdfcpu/pdfcpu/pkg/api"

	"github.com/JaimeStill/docket/pkg/retry"
)

type fetcher struct {
	client   *http.Client
	maxBytes int64
	policy   retry.Policy
}

func newFetcher(maxBytes int64) *fetcher {
	return &fetcher{
		client:   &http.Client{Timeout: 2 * time.Minute},
		maxBytes: maxBytes,
		policy:   retry.Policy{MaxAttempts: 3, Delay: 2 * time.Second},
	}
}

// fetch downloads a published record. Server errors are retried; anything
// else fails the document.
func (f *fetcher) fetch(ctx context.Context, target string) ([]byte, string, error) {
	type result struct {
		data        []byte
		contentType string
	}

	res, err := retry.Do(ctx, f.policy, func(ctx context.Context, attempt int) (result, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
		if err != nil {
			return result{}, fmt.Errorf("%w: %w", ErrNoSource, err)
		}

		resp, err := f.client.Do(req)
		if err != nil {
			return result{}, retry.Transient(fmt.Errorf("%w: %w", ErrNoSource, err))
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			err := fmt.Errorf("%w: status %d", ErrNoSource, resp.StatusCode)
			if resp.StatusCode >= 500 {
				return result{}, retry.Transient(err)
			}
			return result{}, err
		}

		data, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes+1))
		if err != nil {
			return result{}, retry.Transient(fmt.Errorf("%w: read: %w", ErrNoSource, err))
		}
		if int64(len(data)) > f.maxBytes {
			return result{}, ErrFileTooLarge
		}
		return result{data: data, contentType: resp.Header.Get("Content-Type")}, nil
	})
	if err != nil {
		return nil, "", err
	}
	return res.data, res.contentType, nil
}

func detectContentType(header string, data []byte) string {
	header = strings.TrimSpace(header)
	if header != "" && header != "application/octet-stream" {
		if i := strings.IndexByte(header, ';'); i >= 0 {
			header = strings.TrimSpace(header[:i])
		}
		return header
	}
	ct := http.DetectContentType(data)
	if i := strings.IndexByte(ct, ';'); i >= 0 {
		ct = ct[:i]
	}
	return ct
}

func pdfPageCount(logger *slog.Logger, data []byte) *int {
	if !bytes.HasPrefix(data, []byte("%PDF")) {
		return nil
	}

	count, err := api.PageCount(bytes.NewReader(data), nil)
	if err != nil {
		logger.Warn("failed to extract PDF page count", "error", err)
		return nil
	}

	return &count
}
