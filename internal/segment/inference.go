package segment

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/JaimeStill/docket/internal/agenda"
	"github.com/JaimeStill/docket/internal/inference"
	"github.com/JaimeStill/docket/internal/normalize"
	"github.com/JaimeStill/docket/internal/prompts"
	"github.com/JaimeStill/docket/pkg/formatting"
	"github.com/JaimeStill/docket/pkg/fuzzy"
)

// ErrMalformedResponse marks an inference response that does not decode.
var ErrMalformedResponse = errors.New("malformed segmentation response")

// promptReserve is the share of the context window kept for instructions
// and the carried heading.
const promptReserve = 1500

// Generator is the engine surface used by inference-backed stages.
// *inference.Engine satisfies it.
type Generator interface {
	Enabled() bool
	ContextChars() int
	Generate(ctx context.Context, req inference.Request) (inference.Response, error)
}

type inferenceStrategy struct {
	engine       Generator
	prompts      prompts.Instructor
	maxTextChars int
}

// NewInferenceStrategy segments with the local generative engine over
// bounded page windows.
func NewInferenceStrategy(engine Generator, ps prompts.Instructor, cfg *Config) Strategy {
	return &inferenceStrategy{
		engine:       engine,
		prompts:      ps,
		maxTextChars: cfg.MaxTextChars,
	}
}

func (s *inferenceStrategy) Name() string          { return StrategyInference }
func (s *inferenceStrategy) Source() agenda.Source { return agenda.SourceLLMExtracted }

func (s *inferenceStrategy) Available(caps Capabilities) bool {
	return caps.Inference
}

type segmentResponse struct {
	Items []struct {
		Marker       string `json:"marker"`
		Title        string `json:"title"`
		Description  string `json:"description"`
		Page         int    `json:"page"`
		ParentMarker string `json:"parent_marker"`
	} `json:"items"`
	LastHeading string `json:"last_heading"`
}

func (s *inferenceStrategy) Resolve(ctx context.Context, in Input) ([]Candidate, error) {
	system, err := prompts.Compose(ctx, s.prompts, prompts.StageSegment)
	if err != nil {
		return nil, err
	}

	text := truncate(in.Text, s.maxTextChars)
	budget := max(500, s.engine.ContextChars()-promptReserve)

	var (
		cands   []Candidate
		heading string
	)

	for _, w := range Windows(text, budget) {
		resp, err := s.engine.Generate(ctx, inference.Request{
			Operation: inference.OpSegment,
			System:    system,
			Prompt:    windowPrompt(w, heading),
			JSON:      true,
		})
		if err != nil {
			return nil, fmt.Errorf("segment pages %d-%d: %w", w.FirstPage, w.LastPage, err)
		}

		parsed, err := formatting.Parse[segmentResponse](resp.Text)
		if err != nil {
			return nil, fmt.Errorf("%w: pages %d-%d: %w", ErrMalformedResponse, w.FirstPage, w.LastPage, err)
		}

		folded := fuzzy.Fold(w.Text)
		for _, it := range parsed.Items {
			c := Candidate{
				Marker:       strings.TrimRight(strings.TrimSpace(it.Marker), "."),
				Title:        strings.TrimSpace(it.Title),
				Description:  strings.TrimSpace(it.Description),
				ParentMarker: strings.TrimSpace(it.ParentMarker),
				Offset:       -1,
			}

			if off := folded.Find(c.Title); off >= 0 {
				c.Offset = w.Start + off
				c.Page = normalize.PageOf(text, c.Offset)
			} else {
				c.Ungrounded = true
			}

			if c.ParentMarker == "" && heading != "" && c.Marker != heading && isSubMarker(c.Marker) {
				c.ParentMarker = heading
			}
			cands = append(cands, c)
		}

		if h := strings.TrimSpace(parsed.LastHeading); h != "" {
			heading = h
		}
	}

	return cands, nil
}

func windowPrompt(w Window, heading string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Pages %d to %d of the agenda.\n", w.FirstPage, w.LastPage)
	if heading != "" {
		fmt.Fprintf(&sb, "Open parent heading from the previous window: %s\n", heading)
	}
	sb.WriteString("\n")
	sb.WriteString(w.Text)
	return sb.String()
}

func isSubMarker(marker string) bool {
	if marker == "" {
		return false
	}
	_, style, _ := parseMarker(marker+". x", styleNumber)
	switch style {
	case styleSub, styleRoman, styleLetter, styleDotted:
		return true
	}
	return false
}

// Window is a run of whole pages, or part of one oversized page, bounded by
// the engine context.
type Window struct {
	Text      string
	Start     int
	FirstPage int
	LastPage  int
}

// Windows packs pages into windows of at most budget bytes. A page larger
// than budget is split on line boundaries.
func Windows(text string, budget int) []Window {
	var (
		windows []Window
		cur     Window
		offset  int
	)

	flush := func() {
		if strings.TrimSpace(cur.Text) != "" {
			windows = append(windows, cur)
		}
		cur = Window{}
	}

	for i, page := range strings.Split(text, normalize.PageBreak) {
		number := i + 1
		for _, chunk := range splitPage(page, budget) {
			if cur.Text != "" && len(cur.Text)+len(chunk.text)+1 > budget {
				flush()
			}
			if cur.Text == "" {
				cur.Start = offset + chunk.start
				cur.FirstPage = number
			} else if chunk.start == 0 {
				cur.Text += normalize.PageBreak
			}
			cur.Text += chunk.text
			cur.LastPage = number
		}
		offset += len(page) + len(normalize.PageBreak)
	}
	flush()

	return windows
}

type pageChunk struct {
	text  string
	start int
}

func splitPage(page string, budget int) []pageChunk {
	if len(page) <= budget {
		return []pageChunk{{text: page}}
	}

	var chunks []pageChunk
	start := 0
	for start < len(page) {
		end := min(len(page), start+budget)
		if end < len(page) {
			if nl := strings.LastIndexByte(page[start:end], '\n'); nl > 0 {
				end = start + nl + 1
			} else {
				for end > start && !utf8.RuneStart(page[end]) {
					end--
				}
			}
		}
		chunks = append(chunks, pageChunk{text: page[start:end], start: start})
		start = end
	}
	return chunks
}

func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	for limit > 0 && !utf8.RuneStart(s[limit]) {
		limit--
	}
	return s[:limit]
}
