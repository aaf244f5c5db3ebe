// Package formatting parses and renders values that arrive as loose text:
// byte sizes from configuration and JSON objects from generative model output.
package formatting

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

const kib = 1024

// unit suffixes in ascending powers of 1024
var suffixes = []string{"B", "KB", "MB", "GB", "TB"}

var sizePattern = regexp.MustCompile(`^(\d+(?:\.\d+)?)\s*([A-Za-z]{0,3})$`)

// ParseBytes reads a size such as "50MB", "1.5 kb" or "4096".
// A bare number is a byte count. "K", "M", "G" and "T" are accepted as
// shorthand for their "B"-suffixed forms.
func ParseBytes(s string) (int64, error) {
	m := sizePattern.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return 0, fmt.Errorf("invalid byte size: %q", s)
	}

	value, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0, fmt.Errorf("invalid byte size %q: %w", s, err)
	}

	exp, ok := exponent(m[2])
	if !ok {
		return 0, fmt.Errorf("unknown byte size unit: %q", m[2])
	}

	return int64(value * math.Pow(kib, float64(exp))), nil
}

// FormatBytes renders n with the largest unit that keeps the value at or
// above one, rounded to precision decimal places.
func FormatBytes(n int64, precision int) string {
	precision = max(precision, 0)

	size := float64(n)
	exp := 0
	for math.Abs(size) >= kib && exp < len(suffixes)-1 {
		size /= kib
		exp++
	}

	if exp == 0 {
		return strconv.FormatInt(n, 10) + " B"
	}
	return strconv.FormatFloat(size, 'f', precision, 64) + " " + suffixes[exp]
}

func exponent(unit string) (int, bool) {
	unit = strings.ToUpper(unit)
	if unit == "" {
		return 0, true
	}
	if len(unit) == 1 && unit != "B" {
		unit += "B"
	}
	for i, s := range suffixes {
		if s == unit {
			return i, true
		}
	}
	return 0, false
}
