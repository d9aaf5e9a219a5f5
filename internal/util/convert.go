package util

import (
	"encoding/json"
	"strconv"
	"strings"
)

// ToString attempts to coerce v into a string.
//
// json.Number values return their literal text, so "99.50" stays "99.50".
func ToString(v any) (string, bool) {
	switch x := v.(type) {
	case string:
		return x, true
	case json.Number:
		return x.String(), true
	default:
		return "", false
	}
}

// ToFloat64 attempts to coerce v into a float64.
//
// When decoding JSON with json.Decoder.UseNumber(), numbers arrive as
// json.Number. Numeric strings are accepted as well.
func ToFloat64(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case int:
		return float64(x), true
	case int64:
		return float64(x), true
	case json.Number:
		f, err := x.Float64()
		if err != nil {
			return 0, false
		}
		return f, true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

// FormatFloat renders f with the fewest digits that round-trip,
// e.g. 45 -> "45", 99.5 -> "99.5".
func FormatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
