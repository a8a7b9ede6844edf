package core

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// ToNumber converts a loosely typed value (form field, stored JSON value)
// into a float64. Missing, non-numeric, NaN and infinite values yield def.
//
// Examples:
//
//	ToNumber("1200.50", 0) -> 1200.5
//	ToNumber(" 42 ", 0)    -> 42
//	ToNumber("12abc", 0)   -> 0
//	ToNumber(nil, 0)       -> 0
//	ToNumber(true, 0)      -> 0
func ToNumber(value any, def float64) float64 {
	var f float64
	switch v := value.(type) {
	case nil:
		return def
	case float64:
		f = v
	case float32:
		f = float64(v)
	case int:
		f = float64(v)
	case int8:
		f = float64(v)
	case int16:
		f = float64(v)
	case int32:
		f = float64(v)
	case int64:
		f = float64(v)
	case uint:
		f = float64(v)
	case uint8:
		f = float64(v)
	case uint16:
		f = float64(v)
	case uint32:
		f = float64(v)
	case uint64:
		f = float64(v)
	case json.Number:
		parsed, err := v.Float64()
		if err != nil {
			return def
		}
		f = parsed
	case string:
		s := strings.TrimSpace(v)
		if s == "" {
			return def
		}
		parsed, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return def
		}
		f = parsed
	case *float64:
		if v == nil {
			return def
		}
		f = *v
	default:
		return def
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return def
	}
	return f
}

// ToAge reads an age the way ToNumber reads money, then rounds it to the
// nearest whole year (25.5 -> 26). Values that cannot be an int come back
// as -1 so Profile.Validate rejects them.
func ToAge(value any) int {
	f := math.Round(ToNumber(value, 0))
	if f < math.MinInt32 || f > math.MaxInt32 {
		return -1
	}
	return int(f)
}
