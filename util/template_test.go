package util

import (
	"testing"

	"github.com/richarddahl/ruleflow/model"
	"github.com/stretchr/testify/require"
)

func testEvent() model.Event {
	return model.Event{
		EntityType: "order",
		Operation:  model.OPERATION_UPDATE,
		Timestamp:  1700000000,
		Payload: map[string]any{
			"id":           "o1",
			"total_amount": float64(150.5),
			"customer":     map[string]any{"name": "Acme", "tier": "gold"},
		},
	}
}

func TestRender(t *testing.T) {
	scenarios := []struct {
		name     string
		template string
		vars     map[string]string
		expected string
	}{
		{"payload field", "order {{payload.id}}", nil, "order o1"},
		{"nested payload field", "tier {{payload.customer.tier}}", nil, "tier gold"},
		{"event attributes", "{{entity_type}}/{{operation}}@{{timestamp}}", nil, "order/UPDATE@1700000000"},
		{"variable indirection", "hi {{who}}", map[string]string{"who": "{{payload.customer.name}}"}, "hi Acme"},
		{"unresolvable token", "x={{payload.missing}}!", nil, "x=!"},
		{"unknown var", "x={{nope}}!", nil, "x=!"},
		{"no tokens", "plain text", nil, "plain text"},
	}
	for _, scenario := range scenarios {
		t.Run(scenario.name, func(t *testing.T) {
			require.Equal(t, scenario.expected, Render(scenario.template, testEvent(), scenario.vars))
		})
	}
}

func TestLookupPath(t *testing.T) {
	payload := testEvent().Payload

	v, ok := LookupPath(payload, "id")
	require.True(t, ok)
	require.Equal(t, "o1", v)

	v, ok = LookupPath(payload, "customer.name")
	require.True(t, ok)
	require.Equal(t, "Acme", v)

	_, ok = LookupPath(payload, "customer.missing")
	require.False(t, ok)

	_, ok = LookupPath(nil, "id")
	require.False(t, ok)
}
