package condition

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCompareOperators(t *testing.T) {
	tests := []struct {
		name     string
		actual   any
		operator string
		expected any
		want     bool
	}{
		{"eq numbers", float64(150), "eq", 150, true},
		{"eq strings", "a", "eq", "a", true},
		{"eq mismatch", "a", "eq", "b", false},
		{"ne", float64(150), "ne", 100, true},
		{"gt pass", float64(150), "gt", 100, true},
		{"gt fail", float64(150), "gt", 200, false},
		{"gt equal", float64(100), "gt", 100, false},
		{"gte equal", float64(100), "gte", 100, true},
		{"lt pass", float64(50), "lt", 100, true},
		{"lte equal", float64(100), "lte", 100, true},
		{"string ordering", "apple", "lt", "banana", true},
		{"contains substring", "hello world", "contains", "world", true},
		{"contains miss", "hello", "contains", "world", false},
		{"contains list", []any{"a", "b"}, "contains", "b", true},
		{"contains numeric list", []any{float64(1), float64(2)}, "contains", 2, true},
		{"eq object values", map[string]any{"city": "x"}, "eq", map[string]any{"city": "x"}, true},
		{"eq object mismatch", map[string]any{"city": "x"}, "eq", map[string]any{"city": "y"}, false},
		{"ne object values", map[string]any{"city": "x"}, "ne", map[string]any{"city": "y"}, true},
		{"contains object in list", []any{map[string]any{"city": "x"}}, "contains", map[string]any{"city": "x"}, true},
		{"eq slice values", []any{"a"}, "eq", []any{"a"}, true},
		{"type mismatch fails", "not-a-number", "gt", 100, false},
		{"mismatch fails not errors", float64(10), "contains", "x", false},
		{"unknown operator", float64(10), "almost", 10, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, Compare(tt.actual, tt.operator, tt.expected))
		})
	}
}
