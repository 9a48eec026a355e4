package condition

import (
	"reflect"
	"strings"
)

// Compare applies a field operator to the payload value and the declared
// value. Comparisons use total ordering on the declared value's type; a type
// mismatch between the two sides is a condition failure, never an error.
func Compare(actual any, operator string, expected any) bool {
	switch operator {
	case "eq":
		return equal(actual, expected)
	case "ne":
		return !equal(actual, expected)
	case "gt":
		cmp, ok := order(actual, expected)
		return ok && cmp > 0
	case "gte":
		cmp, ok := order(actual, expected)
		return ok && cmp >= 0
	case "lt":
		cmp, ok := order(actual, expected)
		return ok && cmp < 0
	case "lte":
		cmp, ok := order(actual, expected)
		return ok && cmp <= 0
	case "contains":
		return contains(actual, expected)
	}
	return false
}

func equal(a, b any) bool {
	if af, aok := toFloat(a); aok {
		bf, bok := toFloat(b)
		return bok && af == bf
	}
	// json payload values can be maps or slices; == on those panics
	return reflect.DeepEqual(a, b)
}

// order returns -1/0/1 for actual versus expected, or ok=false on a type
// mismatch.
func order(actual, expected any) (int, bool) {
	af, aok := toFloat(actual)
	bf, bok := toFloat(expected)
	if aok && bok {
		switch {
		case af < bf:
			return -1, true
		case af > bf:
			return 1, true
		}
		return 0, true
	}
	as, aok := actual.(string)
	bs, bok := expected.(string)
	if aok && bok {
		return strings.Compare(as, bs), true
	}
	return 0, false
}

func contains(actual, expected any) bool {
	switch v := actual.(type) {
	case string:
		s, ok := expected.(string)
		return ok && strings.Contains(v, s)
	case []any:
		for _, item := range v {
			if equal(item, expected) {
				return true
			}
		}
	case []string:
		s, ok := expected.(string)
		if !ok {
			return false
		}
		for _, item := range v {
			if item == s {
				return true
			}
		}
	}
	return false
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}
