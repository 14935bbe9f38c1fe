package invoice

import (
	"encoding/json"
	"errors"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// leadingFloat matches the numeric prefix a lenient float parser accepts.
var leadingFloat = regexp.MustCompile(`^[+-]?(\d+\.?\d*|\.\d+)([eE][+-]?\d+)?`)

// ParseNumber normalizes a raw amount into a float. Strings may use either
// "1.234,56" or "1,234.56" grouping: when the last comma comes after the last
// dot, dots are thousands separators and the comma is the decimal point;
// otherwise commas are dropped. Trailing garbage after a numeric prefix is
// ignored. Returns nil for nil, blank, NaN or non-numeric input.
func ParseNumber(v interface{}) *float64 {
	switch n := v.(type) {
	case nil:
		return nil
	case float64:
		return finite(n)
	case float32:
		return finite(float64(n))
	case int:
		return ptr(float64(n))
	case int32:
		return ptr(float64(n))
	case int64:
		return ptr(float64(n))
	case json.Number:
		return parseNumericString(n.String())
	case string:
		return parseNumericString(n)
	case *string:
		if n == nil {
			return nil
		}
		return parseNumericString(*n)
	case *float64:
		if n == nil {
			return nil
		}
		return finite(*n)
	default:
		return nil
	}
}

func parseNumericString(s string) *float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}

	lastDot := strings.LastIndex(s, ".")
	lastComma := strings.LastIndex(s, ",")
	if lastComma > lastDot {
		s = strings.ReplaceAll(s, ".", "")
		s = strings.Replace(s, ",", ".", 1)
	} else {
		s = strings.ReplaceAll(s, ",", "")
	}

	prefix := leadingFloat.FindString(s)
	if prefix == "" {
		return nil
	}

	f, err := strconv.ParseFloat(prefix, 64)
	if err != nil && !errors.Is(err, strconv.ErrRange) {
		return nil
	}
	return ptr(f)
}

func finite(f float64) *float64 {
	if math.IsNaN(f) {
		return nil
	}
	return ptr(f)
}

func ptr(f float64) *float64 {
	return &f
}
