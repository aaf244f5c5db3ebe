package segment

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/JaimeStill/docket/internal/agenda"
	"github.com/JaimeStill/docket/internal/normalize"
	"github.com/JaimeStill/docket/pkg/retry"
)

var hiddenStyle = regexp.MustCompile(`(?i)display\s*:\s*none|visibility\s*:\s*hidden`)

type htmlStrategy struct {
	client   *http.Client
	maxBytes int64
	policy   retry.Policy
}

// NewHTMLStrategy parses the HTML variant of an agenda. Its items come from
// the publisher's structured agenda and carry the external-record source.
func NewHTMLStrategy(cfg *Config) Strategy {
	return &htmlStrategy{
		client:   &http.Client{Timeout: cfg.HTMLTimeoutDuration()},
		maxBytes: cfg.HTMLMaxBytes,
		policy:   retry.Policy{MaxAttempts: 2, Delay: cfg.HTMLTimeoutDuration() / 10},
	}
}

func (s *htmlStrategy) Name() string          { return StrategyHTML }
func (s *htmlStrategy) Source() agenda.Source { return agenda.SourceLegistar }

func (s *htmlStrategy) Available(caps Capabilities) bool {
	return caps.HTML
}

func (s *htmlStrategy) Resolve(ctx context.Context, in Input) ([]Candidate, error) {
	data, err := s.fetch(ctx, *in.Document.HTMLURL)
	if err != nil {
		return nil, err
	}

	lines, err := HTMLLines(data)
	if err != nil {
		return nil, err
	}

	cands := ParseLines(strings.Join(lines, "\n"))
	for i := range cands {
		cands[i].Offset = -1
		cands[i].Page = 0
		if off := locate(in.Text, cands[i].Title); off >= 0 {
			cands[i].Offset = off
			cands[i].Page = normalize.PageOf(in.Text, off)
		}
	}
	return cands, nil
}

func (s *htmlStrategy) fetch(ctx context.Context, target string) ([]byte, error) {
	return retry.Do(ctx, s.policy, func(ctx context.Context, attempt int) ([]byte, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
		if err != nil {
			return nil, fmt.Errorf("html agenda request: %w", err)
		}

		resp, err := s.client.Do(req)
		if err != nil {
			return nil, retry.Transient(fmt.Errorf("html agenda: %w", err))
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			err := fmt.Errorf("html agenda: status %d", resp.StatusCode)
			if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
				return nil, retry.Transient(err)
			}
			return nil, err
		}

		data, err := io.ReadAll(io.LimitReader(resp.Body, s.maxBytes+1))
		if err != nil {
			return nil, retry.Transient(fmt.Errorf("html agenda read: %w", err))
		}
		if int64(len(data)) > s.maxBytes {
			return nil, fmt.Errorf("html agenda exceeds %d bytes", s.maxBytes)
		}
		return data, nil
	})
}

// HTMLLines flattens an HTML agenda into text lines, one per block. Ordered
// list items without a printed marker get one synthesized from their
// position and the list's type.
func HTMLLines(data []byte) ([]string, error) {
	doc, err := html.Parse(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("parse html agenda: %w", err)
	}

	var lines []string
	emit := func(s string) {
		if s = strings.Join(strings.Fields(s), " "); s != "" {
			lines = append(lines, s)
		}
	}

	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			emit(n.Data)
			return
		}
		if n.Type == html.ElementNode {
			if skipped(n) {
				return
			}
			switch n.DataAtom {
			case atom.Ol, atom.Ul:
				walkList(n, emit, walk)
				return
			case atom.Tr:
				emit(rowText(n))
				return
			case atom.P, atom.H1, atom.H2, atom.H3, atom.H4, atom.H5, atom.H6, atom.Dt, atom.Dd:
				emit(textOf(n, false))
				return
			case atom.Div, atom.Span, atom.Td, atom.Section, atom.Article:
				if !hasBlock(n) {
					emit(textOf(n, false))
					return
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	return lines, nil
}

func walkList(list *html.Node, emit func(string), walk func(*html.Node)) {
	ordered := list.DataAtom == atom.Ol
	kind := attr(list, "type")
	n := 1
	if v, err := strconv.Atoi(attr(list, "start")); err == nil {
		n = v
	}

	for li := list.FirstChild; li != nil; li = li.NextSibling {
		if li.Type != html.ElementNode || li.DataAtom != atom.Li || skipped(li) {
			continue
		}

		text := textOf(li, true)
		if ordered {
			if marker, _, _ := parseMarker(text, styleNone); marker == "" {
				text = listMarker(kind, n) + ". " + text
			}
		}
		emit(text)
		n++

		for c := li.FirstChild; c != nil; c = c.NextSibling {
			if c.Type == html.ElementNode && (c.DataAtom == atom.Ol || c.DataAtom == atom.Ul) {
				walk(c)
			}
		}
	}
}

func listMarker(kind string, n int) string {
	switch kind {
	case "A":
		return string(rune('A' + (n-1)%26))
	case "a":
		return string(rune('a' + (n-1)%26))
	case "i":
		return roman(n)
	case "I":
		return strings.ToUpper(roman(n))
	}
	return strconv.Itoa(n)
}

func roman(n int) string {
	numerals := []struct {
		v int
		s string
	}{{10, "x"}, {9, "ix"}, {5, "v"}, {4, "iv"}, {1, "i"}}

	var sb strings.Builder
	for _, num := range numerals {
		for n >= num.v {
			sb.WriteString(num.s)
			n -= num.v
		}
	}
	return sb.String()
}

func rowText(tr *html.Node) string {
	var cells []string
	for c := tr.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && (c.DataAtom == atom.Td || c.DataAtom == atom.Th) {
			if t := textOf(c, false); t != "" {
				cells = append(cells, t)
			}
		}
	}
	return strings.Join(cells, " ")
}

// textOf collects visible text under n. With skipLists, nested lists are
// left for their own lines.
func textOf(n *html.Node, skipLists bool) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			if t := strings.TrimSpace(n.Data); t != "" {
				if sb.Len() > 0 {
					sb.WriteByte(' ')
				}
				sb.WriteString(t)
			}
			return
		}
		if n.Type == html.ElementNode {
			if skipped(n) {
				return
			}
			if skipLists && (n.DataAtom == atom.Ol || n.DataAtom == atom.Ul) {
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return sb.String()
}

func hasBlock(n *html.Node) bool {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type != html.ElementNode {
			continue
		}
		switch c.DataAtom {
		case atom.P, atom.Div, atom.Ol, atom.Ul, atom.Li, atom.Table, atom.Tr,
			atom.H1, atom.H2, atom.H3, atom.H4, atom.H5, atom.H6, atom.Br, atom.Section:
			return true
		}
		if hasBlock(c) {
			return true
		}
	}
	return false
}

func skipped(n *html.Node) bool {
	switch n.DataAtom {
	case atom.Script, atom.Style, atom.Noscript, atom.Head, atom.Nav, atom.Template:
		return true
	}
	return hiddenStyle.MatchString(attr(n, "style"))
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}
