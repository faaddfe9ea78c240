package table

import (
	"math"
	"strconv"
	"strings"
	"time"
)

// IsNull reports whether v is a missing value (nil or a NaN float)
func IsNull(v any) bool {
	switch val := v.(type) {
	case nil:
		return true
	case float64:
		return math.IsNaN(val)
	}
	return false
}

// Float converts a numeric cell to float64. Strings, bools and nulls are not numeric.
func Float(v any) (float64, bool) {
	switch val := v.(type) {
	case float64:
		if math.IsNaN(val) {
			return 0, false
		}
		return val, true
	case int64:
		return float64(val), true
	case int:
		return float64(val), true
	}
	return 0, false
}

// Int converts a cell holding an integral number to int64
func Int(v any) (int64, bool) {
	switch val := v.(type) {
	case int64:
		return val, true
	case int:
		return int64(val), true
	case float64:
		if math.IsNaN(val) || math.IsInf(val, 0) || val != math.Trunc(val) {
			return 0, false
		}
		if val < math.MinInt64 || val >= math.MaxInt64 {
			return 0, false
		}
		return int64(val), true
	case string:
		s := strings.TrimSpace(val)
		if n, err := strconv.ParseInt(s, 10, 64); err == nil {
			return n, true
		}
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return Int(f)
		}
	}
	return 0, false
}

// Time returns the timestamp held by a cell
func Time(v any) (time.Time, bool) {
	t, ok := v.(time.Time)
	return t, ok
}

// Str returns the string held by a cell
func Str(v any) (string, bool) {
	s, ok := v.(string)
	return s, ok
}

// Truthy converts a cell to a boolean. Null is false, numbers are true when
// non-zero, strings go through strconv.ParseBool and any other non-empty
// string is true, nested values are true when non-empty.
func Truthy(v any) bool {
	switch val := v.(type) {
	case nil:
		return false
	case bool:
		return val
	case float64:
		return !math.IsNaN(val) && val != 0
	case int64:
		return val != 0
	case int:
		return val != 0
	case string:
		s := strings.TrimSpace(val)
		if b, err := strconv.ParseBool(s); err == nil {
			return b
		}
		return s != ""
	case time.Time:
		return true
	case map[string]any:
		return len(val) > 0
	case []any:
		return len(val) > 0
	}
	return false
}

// Hashable reports whether a cell can take part in distinct-value counting.
// Nested JSON objects and arrays cannot.
func Hashable(v any) bool {
	switch v.(type) {
	case map[string]any, []any:
		return false
	}
	return true
}

// key returns a comparison key for a hashable cell. Integral floats share
// their key with the equal int64 so 3 and 3.0 count as one value.
func key(v any) string {
	switch val := v.(type) {
	case nil:
		return "null"
	case float64:
		if math.IsNaN(val) {
			return "null"
		}
		if n, ok := Int(val); ok {
			return "n:" + strconv.FormatInt(n, 10)
		}
		return "n:" + strconv.FormatFloat(val, 'g', -1, 64)
	case int64:
		return "n:" + strconv.FormatInt(val, 10)
	case int:
		return "n:" + strconv.Itoa(val)
	case bool:
		return "b:" + strconv.FormatBool(val)
	case string:
		return "s:" + val
	case time.Time:
		return "t:" + strconv.FormatInt(val.UnixNano(), 10)
	}
	return "?"
}

// NullFraction returns the share of null cells in the column, or 0 for an empty column
func NullFraction(c *Column) float64 {
	if c.Len() == 0 {
		return 0
	}
	nulls := 0
	for _, v := range c.Values {
		if IsNull(v) {
			nulls++
		}
	}
	return float64(nulls) / float64(c.Len())
}

// Distinct counts distinct cells with all nulls counted as one value. ok is
// false when the column holds a nested value and cannot be evaluated.
func Distinct(c *Column) (n int, ok bool) {
	seen := make(map[string]struct{})
	for _, v := range c.Values {
		if !Hashable(v) {
			return 0, false
		}
		seen[key(v)] = struct{}{}
	}
	return len(seen), true
}

// Floats returns the numeric cells of a column, skipping nulls and non-numbers
func Floats(c *Column) []float64 {
	out := make([]float64, 0, c.Len())
	for _, v := range c.Values {
		if f, ok := Float(v); ok {
			out = append(out, f)
		}
	}
	return out
}
