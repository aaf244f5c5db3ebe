// Package ocr adapts document text extraction services. An Extractor turns
// PDF bytes into raw page text and, when the service reports it, a page
// layout of positioned text blocks.
package ocr

import (
	"context"
	"errors"
	"strings"
)

var (
	// ErrMalformed marks a document that cannot be parsed. Not retried.
	ErrMalformed = errors.New("malformed document")
	// ErrNoText marks a document that parsed but yielded no text.
	ErrNoText      = errors.New("no text extracted")
	ErrUnavailable = errors.New("ocr service unavailable")
)

// Block is a positioned run of text. Coordinates are fractions of the page
// width and height with the origin at the top left.
type Block struct {
	Text string  `json:"text"`
	X0   float64 `json:"x0"`
	Y0   float64 `json:"y0"`
	X1   float64 `json:"x1"`
	Y1   float64 `json:"y1"`
}

// PageLayout holds the text blocks of one page in reading order.
type PageLayout struct {
	Number int     `json:"number"`
	Blocks []Block `json:"blocks"`
}

// Layout is the positioned text of a document.
type Layout struct {
	Pages []PageLayout `json:"pages"`
}

// Page returns the layout for a 1-based page number, or nil.
func (l *Layout) Page(number int) *PageLayout {
	if l == nil {
		return nil
	}
	for i := range l.Pages {
		if l.Pages[i].Number == number {
			return &l.Pages[i]
		}
	}
	return nil
}

// Output is raw extracted text with pages separated by form feeds.
// Layout is nil when the extractor does not report positions.
type Output struct {
	Text   string
	Pages  int
	Layout *Layout
}

// Extractor converts document bytes to text.
type Extractor interface {
	Name() string
	Extract(ctx context.Context, data []byte) (*Output, error)
}

func joinPages(pages []string) string {
	return strings.Join(pages, "\f")
}
