package segment

import (
	"regexp"
	"strings"

	"github.com/JaimeStill/docket/internal/normalize"
)

// Candidate is an item proposed by a strategy before quality controls.
// Offset is the byte offset of the item in canonical text, or -1 when the
// strategy could not place it. Ungrounded marks generated titles that do
// not appear in the source text.
type Candidate struct {
	Marker       string
	Title        string
	Description  string
	Page         int
	ParentMarker string
	Offset       int
	Ungrounded   bool
}

type markerStyle int

const (
	styleNone markerStyle = iota
	styleNumber
	styleLetter
	styleDotted
	styleUpperRoman
	styleSub
	styleRoman
)

var (
	numberMarker = regexp.MustCompile(`^(?:item\s+)?(\d{1,3})[.)]\s+(.+)$`)
	dottedMarker = regexp.MustCompile(`^(\d{1,3}\.\d{1,2})\.?\s+(.+)$`)
	letterMarker = regexp.MustCompile(`^([A-Z])[.)]\s+(.+)$`)
	subMarker    = regexp.MustCompile(`^(\d{1,3}[a-z])[.)]\s+(.+)$`)
	upperRoman   = regexp.MustCompile(`^(X{0,3}(?:IX|IV|V?I{0,3}))\.\s+(.+)$`)
	romanMarker  = regexp.MustCompile(`^(x{0,1}(?:ix|iv|v?i{0,3}))[.)]\s+(.+)$`)
	lowerMarker  = regexp.MustCompile(`^([a-z])[.)]\s+(.+)$`)
	parenMarker  = regexp.MustCompile(`^\(([a-z0-9]{1,3})\)\s+(.+)$`)
)

const maxDescriptionChars = 600

// parseMarker splits a line into its marker, style, and title. A single
// I, V, or X is a roman numeral unless lettered items are already open.
func parseMarker(line string, top markerStyle) (string, markerStyle, string) {
	if m := dottedMarker.FindStringSubmatch(line); m != nil {
		return m[1], styleDotted, m[2]
	}
	if m := subMarker.FindStringSubmatch(line); m != nil {
		return m[1], styleSub, m[2]
	}
	if m := numberMarker.FindStringSubmatch(line); m != nil {
		return m[1], styleNumber, m[2]
	}
	if m := upperRoman.FindStringSubmatch(line); m != nil && m[1] != "" {
		if len(m[1]) > 1 || top != styleLetter {
			return m[1], styleUpperRoman, m[2]
		}
	}
	if m := letterMarker.FindStringSubmatch(line); m != nil {
		return m[1], styleLetter, m[2]
	}
	if m := romanMarker.FindStringSubmatch(line); m != nil && m[1] != "" {
		return m[1], styleRoman, m[2]
	}
	if m := lowerMarker.FindStringSubmatch(line); m != nil {
		return m[1], styleSub, m[2]
	}
	if m := parenMarker.FindStringSubmatch(line); m != nil {
		return m[1], styleSub, m[2]
	}
	return "", styleNone, line
}

// lineParser turns numbered agenda lines into candidates. The first
// top-level marker style seen defines level one; other styles nest under
// the open level-one item, which stays open across page breaks.
type lineParser struct {
	top      markerStyle
	parent   string
	current  *Candidate
	out      []Candidate
	descSize int
}

// ParseLines extracts numbered items from canonical text. Unnumbered lines
// following an item become its description.
func ParseLines(text string) []Candidate {
	p := &lineParser{}
	offset := 0
	for _, line := range strings.SplitAfter(text, "\n") {
		p.feed(text, offset, line)
		offset += len(line)
	}
	p.flush()
	return p.out
}

func (p *lineParser) feed(text string, offset int, raw string) {
	line := strings.TrimSpace(strings.ReplaceAll(raw, normalize.PageBreak, ""))
	if line == "" {
		p.flush()
		return
	}

	marker, style, title := parseMarker(line, p.top)
	if style == styleNone {
		if p.current != nil && p.descSize < maxDescriptionChars {
			if p.current.Description != "" {
				p.current.Description += " "
			}
			p.current.Description += line
			p.descSize += len(line)
		}
		return
	}

	p.flush()

	c := Candidate{
		Marker: marker,
		Title:  strings.TrimSpace(title),
		Page:   normalize.PageOf(text, offset+strings.Index(raw, line[:1])),
		Offset: offset,
	}

	switch style {
	case styleDotted:
		c.ParentMarker = marker[:strings.IndexByte(marker, '.')]
	case styleSub, styleRoman:
		if prefix := strings.TrimRight(marker, "abcdefghijklmnopqrstuvwxyz"); isNumeric(prefix) && prefix != marker {
			c.ParentMarker = prefix
		} else {
			c.ParentMarker = p.parent
		}
	default:
		if p.top == styleNone || style == p.top {
			p.top = style
			p.parent = marker
		} else {
			c.ParentMarker = p.parent
		}
	}

	p.current = &c
	p.descSize = 0
}

func (p *lineParser) flush() {
	if p.current == nil {
		return
	}
	p.current.Description = strings.TrimSpace(p.current.Description)
	p.out = append(p.out, *p.current)
	p.current = nil
}

func isNumeric(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
