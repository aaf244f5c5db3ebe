package ocr

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/JaimeStill/document-context/pkg/config"
	"github.com/JaimeStill/document-context/pkg/document"
	"github.com/JaimeStill/document-context/pkg/image"
	"golang.org/x/sync/errgroup"

	"github.com/JaimeStill/docket/pkg/retry"
)

// Service rasterizes each page with ImageMagick and posts the image to an
// OCR service, which answers with the page's text blocks.
type Service struct {
	client      *http.Client
	url         string
	concurrency int
	maxPages    int
	policy      retry.Policy
}

type serviceResponse struct {
	Text   string  `json:"text"`
	Blocks []Block `json:"blocks"`
}

// NewService creates an OCR service client.
func NewService(cfg *Config) *Service {
	return &Service{
		client:      &http.Client{Timeout: cfg.TimeoutDuration()},
		url:         strings.TrimRight(cfg.URL, "/"),
		concurrency: cfg.Concurrency,
		maxPages:    cfg.MaxPages,
		policy: retry.Policy{
			MaxAttempts: cfg.RetryAttempts,
			Delay:       cfg.RetryDelayDuration(),
		},
	}
}

func (s *Service) Name() string { return ProviderService }

// Extract renders and recognizes pages concurrently. Page order is kept.
func (s *Service) Extract(ctx context.Context, data []byte) (*Output, error) {
	tempDir, err := os.MkdirTemp("", "docket-ocr-*")
	if err != nil {
		return nil, fmt.Errorf("create temp dir: %w", err)
	}
	defer os.RemoveAll(tempDir)

	pdfPath := filepath.Join(tempDir, "source.pdf")
	if err := os.WriteFile(pdfPath, data, 0600); err != nil {
		return nil, fmt.Errorf("write temp pdf: %w", err)
	}

	pdfDoc, err := document.OpenPDF(pdfPath)
	if err != nil {
		return nil, fmt.Errorf("%w: open pdf: %w", ErrMalformed, err)
	}
	defer pdfDoc.Close()

	allPages, err := pdfDoc.ExtractAllPages()
	if err != nil {
		return nil, fmt.Errorf("%w: extract pages: %w", ErrMalformed, err)
	}
	if s.maxPages > 0 && len(allPages) > s.maxPages {
		return nil, fmt.Errorf("%w: %d pages exceeds limit %d", ErrMalformed, len(allPages), s.maxPages)
	}

	renderer, err := image.NewImageMagickRenderer(config.DefaultImageConfig())
	if err != nil {
		return nil, fmt.Errorf("create renderer: %w", err)
	}

	texts := make([]string, len(allPages))
	layout := &Layout{Pages: make([]PageLayout, len(allPages))}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)

	for i, page := range allPages {
		number := i + 1
		g.Go(func() error {
			if gctx.Err() != nil {
				return gctx.Err()
			}

			img, err := page.ToImage(renderer, nil)
			if err != nil {
				return fmt.Errorf("render page %d: %w", number, err)
			}

			resp, err := s.recognize(gctx, img)
			if err != nil {
				return fmt.Errorf("recognize page %d: %w", number, err)
			}

			texts[i] = resp.Text
			if texts[i] == "" {
				texts[i] = blockText(resp.Blocks)
			}
			layout.Pages[i] = PageLayout{Number: number, Blocks: resp.Blocks}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	if strings.TrimSpace(strings.Join(texts, "")) == "" {
		return nil, ErrNoText
	}

	return &Output{Text: joinPages(texts), Pages: len(allPages), Layout: layout}, nil
}

func (s *Service) recognize(ctx context.Context, img []byte) (*serviceResponse, error) {
	return retry.Do(ctx, s.policy, func(ctx context.Context, attempt int) (*serviceResponse, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url+"/ocr", bytes.NewReader(img))
		if err != nil {
			return nil, fmt.Errorf("create request: %w", err)
		}
		req.Header.Set("Content-Type", "image/png")

		resp, err := s.client.Do(req)
		if err != nil {
			return nil, retry.Transient(fmt.Errorf("%w: %w", ErrUnavailable, err))
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			msg, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
			err := fmt.Errorf("%w: status %d: %s", ErrUnavailable, resp.StatusCode, bytes.TrimSpace(msg))
			if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
				return nil, retry.Transient(err)
			}
			return nil, err
		}

		var out serviceResponse
		if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
			return nil, fmt.Errorf("decode response: %w", err)
		}
		return &out, nil
	})
}

func blockText(blocks []Block) string {
	lines := make([]string, 0, len(blocks))
	for _, b := range blocks {
		lines = append(lines, b.Text)
	}
	return strings.Join(lines, "\n")
}
