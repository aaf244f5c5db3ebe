package ocr

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// Local extracts embedded text from born-digital PDFs with pdfcpu. It does
// not rasterize or recognize scanned pages and reports no layout.
type Local struct {
	maxPages int
}

// NewLocal creates a pdfcpu-backed extractor.
func NewLocal(cfg *Config) *Local {
	return &Local{maxPages: cfg.MaxPages}
}

func (l *Local) Name() string { return ProviderLocal }

// Extract reads the PDF and decodes each page's content stream. A panic in
// the parser aborts only this document.
func (l *Local) Extract(ctx context.Context, data []byte) (out *Output, err error) {
	defer func() {
		if r := recover(); r != nil {
			out, err = nil, fmt.Errorf("%w: parser panic: %v", ErrMalformed, r)
		}
	}()

	conf := model.NewDefaultConfiguration()
	pdf, err := api.ReadValidateAndOptimize(bytes.NewReader(data), conf)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformed, err)
	}

	count := pdf.PageCount
	if l.maxPages > 0 && count > l.maxPages {
		return nil, fmt.Errorf("%w: %d pages exceeds limit %d", ErrMalformed, count, l.maxPages)
	}

	pages := make([]string, count)
	chars := 0
	for n := 1; n <= count; n++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		pages[n-1] = pageText(pdf, n)
		chars += len(pages[n-1])
	}

	if chars == 0 {
		return nil, ErrNoText
	}

	return &Output{Text: joinPages(pages), Pages: count}, nil
}

func pageText(pdf *model.Context, n int) string {
	r, err := pdfcpu.ExtractPageContent(pdf, n)
	if err != nil || r == nil {
		return ""
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return ""
	}
	return decodeStream(data)
}

var (
	stringOperand = regexp.MustCompile(`\(((?:\\.|[^\\)])*)\)`)
	moveOperands  = regexp.MustCompile(`(-?[\d.]+)\s+(-?[\d.]+)\s+T[dD]$`)
)

// decodeStream walks content stream operators and emits shown strings.
// Line moves with a vertical offset and T*, ', " start a new line.
func decodeStream(data []byte) string {
	var sb strings.Builder
	newline := func() {
		if sb.Len() > 0 && !strings.HasSuffix(sb.String(), "\n") {
			sb.WriteByte('\n')
		}
	}

	for _, raw := range bytes.Split(data, []byte{'\n'}) {
		line := string(bytes.TrimSpace(raw))
		if line == "" {
			continue
		}

		switch {
		case strings.HasSuffix(line, "Tj"), strings.HasSuffix(line, "TJ"):
			for _, m := range stringOperand.FindAllStringSubmatch(line, -1) {
				sb.WriteString(unescape(m[1]))
			}
		case strings.HasSuffix(line, "'"), strings.HasSuffix(line, `"`):
			newline()
			for _, m := range stringOperand.FindAllStringSubmatch(line, -1) {
				sb.WriteString(unescape(m[1]))
			}
		case line == "T*", line == "ET":
			newline()
		case strings.HasSuffix(line, "Td"), strings.HasSuffix(line, "TD"):
			if m := moveOperands.FindStringSubmatch(line); m != nil && m[2] != "0" {
				newline()
			} else if sb.Len() > 0 {
				sb.WriteByte(' ')
			}
		}
	}

	return strings.TrimSpace(sb.String())
}

func unescape(s string) string {
	var sb strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c != '\\' || i+1 >= len(s) {
			sb.WriteByte(c)
			continue
		}
		i++
		switch s[i] {
		case 'n':
			sb.WriteByte('\n')
		case 'r':
			sb.WriteByte('\r')
		case 't':
			sb.WriteByte('\t')
		case 'b', 'f':
		case '0', '1', '2', '3', '4', '5', '6', '7':
			val := 0
			j := i
			for ; j < len(s) && j < i+3 && s[j] >= '0' && s[j] <= '7'; j++ {
				val = val*8 + int(s[j]-'0')
			}
			sb.WriteByte(byte(val))
			i = j - 1
		default:
			sb.WriteByte(s[i])
		}
	}
	return sb.String()
}
