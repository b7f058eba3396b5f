package core

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// ToFloat64 converts a value of various numeric types to a float64. It
// returns the converted float64 and a boolean indicating whether the
// conversion was successful. Strings are trimmed before parsing.
func ToFloat64(v any) (float64, bool) {
	switch val := v.(type) {
	case int:
		return float64(val), true
	case int8:
		return float64(val), true
	case int16:
		return float64(val), true
	case int32:
		return float64(val), true
	case int64:
		return float64(val), true
	case uint:
		return float64(val), true
	case uint64:
		return float64(val), true
	case float32:
		return float64(val), true
	case float64:
		return val, true
	case json.Number:
		f, err := val.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(val), 64)
		return f, err == nil
	default:
		return 0, false
	}
}

// Stringify renders a cell value for text matching and string
// comparison. Nil renders as the empty string, never as "<nil>".
func Stringify(v any) string {
	if v == nil {
		return ""
	}
	switch val := v.(type) {
	case string:
		return val
	case json.Number:
		return val.String()
	}
	return fmt.Sprintf("%v", v)
}
