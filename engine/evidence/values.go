package evidence

import "strconv"

// Row values arrive with different dynamic types depending on the source:
// the sqlite driver yields int64/float64/string, CSV loading yields
// coerced numerics, and packs decoded from JSON yield float64 for every
// number. These helpers fold those shapes into one view.

// AsInt returns v as an int64 when it is an integral numeric value.
func AsInt(v any) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int64:
		return n, true
	case float64:
		if n == float64(int64(n)) {
			return int64(n), true
		}
	case string:
		if i, err := strconv.ParseInt(n, 10, 64); err == nil {
			return i, true
		}
	}
	return 0, false
}

// AsFloat returns v as a float64 when it is any numeric value.
func AsFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case float64:
		return n, true
	case string:
		if f, err := strconv.ParseFloat(n, 64); err == nil {
			return f, true
		}
	}
	return 0, false
}

// AsString returns v as a string when it is one.
func AsString(v any) (string, bool) {
	s, ok := v.(string)
	return s, ok
}
