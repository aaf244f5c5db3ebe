package formatting

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// ErrParseFailed is returned when content cannot be parsed as JSON directly,
// from a markdown code fence, or from the outermost object in surrounding prose.
var ErrParseFailed = errors.New("failed to parse response")

var jsonBlockRegex = regexp.MustCompile(`(?s)` + "```" + `(?:json)?\s*\n?(.*?)\n?` + "```")

// Parse attempts to unmarshal content as JSON into T.
// Generative model output often wraps JSON in a code fence or a sentence of
// prose, so Parse falls back to the fenced block and then to the span between
// the first '{' and the last '}'.
func Parse[T any](content string) (T, error) {
	var result T
	content = strings.TrimSpace(content)

	for _, candidate := range candidates(content) {
		var attempt T
		if err := json.Unmarshal([]byte(candidate), &attempt); err == nil {
			return attempt, nil
		}
	}

	return result, fmt.Errorf("%w: %s", ErrParseFailed, truncate(content, 200))
}

func candidates(content string) []string {
	out := []string{content}

	if m := jsonBlockRegex.FindStringSubmatch(content); len(m) >= 2 {
		out = append(out, strings.TrimSpace(m[1]))
	}

	start := strings.IndexAny(content, "{[")
	if start >= 0 {
		closer := "}"
		if content[start] == '[' {
			closer = "]"
		}
		if end := strings.LastIndex(content, closer); end > start {
			out = append(out, content[start:end+1])
		}
	}

	return out
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
