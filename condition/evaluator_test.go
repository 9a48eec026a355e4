package condition

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/richarddahl/ruleflow/model"
	"github.com/stretchr/testify/require"
)

type fakeQueryExecutor struct {
	result bool
	err    error
	delay  time.Duration
	calls  int
}

func (f *fakeQueryExecutor) Execute(ctx context.Context, queryId string, evalCtx map[string]any) (bool, error) {
	f.calls++
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return false, ctx.Err()
		}
	}
	return f.result, f.err
}

func testEvent(payload map[string]any) model.Event {
	return model.Event{
		EntityType: "order",
		Operation:  model.OPERATION_INSERT,
		Timestamp:  1000,
		Payload:    payload,
	}
}

func fieldCondition(order int, field string, operator string, value any) model.Condition {
	return model.Condition{
		Name:     field + "-" + operator,
		Type:     model.CONDITION_TYPE_FIELD_VALUE,
		Order:    order,
		Field:    field,
		Operator: operator,
		Value:    value,
	}
}

func TestEvaluateAndSemantics(t *testing.T) {
	ev := NewEvaluator(nil, nil, time.Second)
	def := model.WorkflowDefinition{
		Name: "wf",
		Conditions: []model.Condition{
			fieldCondition(1, "total_amount", "gt", 100),
			fieldCondition(2, "status", "eq", "missing"),
			fieldCondition(3, "total_amount", "lt", 1000),
		},
	}
	event := testEvent(map[string]any{"total_amount": float64(150), "status": "open"})

	passed, traces := ev.Evaluate(context.Background(), def, event)
	require.False(t, passed)
	// short circuit: trace covers the failing condition but not the third
	require.Len(t, traces, 2)
	require.True(t, traces[0].Passed)
	require.False(t, traces[1].Passed)
}

func TestEvaluateAllPass(t *testing.T) {
	ev := NewEvaluator(nil, nil, time.Second)
	def := model.WorkflowDefinition{
		Name: "wf",
		Conditions: []model.Condition{
			fieldCondition(1, "total_amount", "gt", 100),
		},
	}
	passed, traces := ev.Evaluate(context.Background(), def, testEvent(map[string]any{"total_amount": float64(150)}))
	require.True(t, passed)
	require.Len(t, traces, 1)
}

func TestEvaluateHonorsOrder(t *testing.T) {
	ev := NewEvaluator(nil, nil, time.Second)
	def := model.WorkflowDefinition{
		Name: "wf",
		Conditions: []model.Condition{
			fieldCondition(2, "b", "eq", "nope"),
			fieldCondition(1, "a", "eq", "nope"),
		},
	}
	passed, traces := ev.Evaluate(context.Background(), def, testEvent(map[string]any{"a": "x", "b": "y"}))
	require.False(t, passed)
	require.Len(t, traces, 1)
	require.Equal(t, 1, traces[0].Order)
}

func TestEvaluateMissingFieldFails(t *testing.T) {
	ev := NewEvaluator(nil, nil, time.Second)
	def := model.WorkflowDefinition{
		Name:       "wf",
		Conditions: []model.Condition{fieldCondition(1, "absent", "eq", "x")},
	}
	passed, traces := ev.Evaluate(context.Background(), def, testEvent(map[string]any{}))
	require.False(t, passed)
	require.Empty(t, traces[0].Error)
}

func TestEvaluateNestedField(t *testing.T) {
	ev := NewEvaluator(nil, nil, time.Second)
	def := model.WorkflowDefinition{
		Name:       "wf",
		Conditions: []model.Condition{fieldCondition(1, "customer.tier", "eq", "gold")},
	}
	event := testEvent(map[string]any{"customer": map[string]any{"tier": "gold"}})
	passed, _ := ev.Evaluate(context.Background(), def, event)
	require.True(t, passed)
}

func TestEvaluateObjectValuedField(t *testing.T) {
	ev := NewEvaluator(nil, nil, time.Second)
	def := model.WorkflowDefinition{
		Name:       "wf",
		Conditions: []model.Condition{fieldCondition(1, "address", "eq", map[string]any{"city": "x"})},
	}
	event := testEvent(map[string]any{"address": map[string]any{"city": "x"}})
	passed, traces := ev.Evaluate(context.Background(), def, event)
	require.True(t, passed)
	require.Empty(t, traces[0].Error)

	event = testEvent(map[string]any{"address": map[string]any{"city": "y"}})
	passed, _ = ev.Evaluate(context.Background(), def, event)
	require.False(t, passed)
}

func TestEvaluateTimeWindow(t *testing.T) {
	ev := NewEvaluator(nil, nil, time.Second)
	window := model.Condition{
		Name:        "business-hours",
		Type:        model.CONDITION_TYPE_TIME_BASED,
		WindowStart: 900,
		WindowEnd:   1000,
	}
	def := model.WorkflowDefinition{Name: "wf", Conditions: []model.Condition{window}}

	// timestamp 1000 is inside the inclusive window
	passed, _ := ev.Evaluate(context.Background(), def, testEvent(nil))
	require.True(t, passed)

	def.Conditions[0].WindowEnd = 999
	passed, _ = ev.Evaluate(context.Background(), def, testEvent(nil))
	require.False(t, passed)
}

func TestEvaluateRoleBased(t *testing.T) {
	ev := NewEvaluator(nil, nil, time.Second)
	role := model.Condition{
		Name:         "admin-only",
		Type:         model.CONDITION_TYPE_ROLE_BASED,
		RequiredRole: "admin",
	}
	def := model.WorkflowDefinition{Name: "wf", Conditions: []model.Condition{role}}

	passed, _ := ev.Evaluate(context.Background(), def, testEvent(map[string]any{"_actor_role": "admin"}))
	require.True(t, passed)

	passed, _ = ev.Evaluate(context.Background(), def, testEvent(map[string]any{"_actor_role": "viewer,admin"}))
	require.True(t, passed)

	passed, _ = ev.Evaluate(context.Background(), def, testEvent(map[string]any{"_actor_role": "viewer"}))
	require.False(t, passed)

	passed, _ = ev.Evaluate(context.Background(), def, testEvent(map[string]any{}))
	require.False(t, passed)
}

func TestEvaluateQueryMatch(t *testing.T) {
	query := model.Condition{
		Name:    "has-open-invoices",
		Type:    model.CONDITION_TYPE_QUERY_MATCH,
		QueryId: "q1",
	}
	def := model.WorkflowDefinition{Name: "wf", Conditions: []model.Condition{query}}

	exec := &fakeQueryExecutor{result: true}
	ev := NewEvaluator(exec, nil, time.Second)
	passed, traces := ev.Evaluate(context.Background(), def, testEvent(nil))
	require.True(t, passed)
	require.Equal(t, 1, exec.calls)
	require.Empty(t, traces[0].Error)

	exec = &fakeQueryExecutor{result: false}
	ev = NewEvaluator(exec, nil, time.Second)
	passed, _ = ev.Evaluate(context.Background(), def, testEvent(nil))
	require.False(t, passed)
}

func TestEvaluateQueryErrorFailsCondition(t *testing.T) {
	query := model.Condition{Name: "q", Type: model.CONDITION_TYPE_QUERY_MATCH, QueryId: "q1"}
	def := model.WorkflowDefinition{Name: "wf", Conditions: []model.Condition{query}}

	exec := &fakeQueryExecutor{err: errors.New("graph unavailable")}
	ev := NewEvaluator(exec, nil, time.Second)
	passed, traces := ev.Evaluate(context.Background(), def, testEvent(nil))
	require.False(t, passed)
	require.Contains(t, traces[0].Error, "graph unavailable")
}

func TestEvaluateQueryTimeoutFailsCondition(t *testing.T) {
	query := model.Condition{Name: "q", Type: model.CONDITION_TYPE_QUERY_MATCH, QueryId: "q1"}
	def := model.WorkflowDefinition{Name: "wf", Conditions: []model.Condition{query}}

	exec := &fakeQueryExecutor{result: true, delay: 500 * time.Millisecond}
	ev := NewEvaluator(exec, nil, 20*time.Millisecond)
	passed, traces := ev.Evaluate(context.Background(), def, testEvent(nil))
	require.False(t, passed)
	require.NotEmpty(t, traces[0].Error)
}

func TestEvaluateNoQueryExecutorFailsCondition(t *testing.T) {
	query := model.Condition{Name: "q", Type: model.CONDITION_TYPE_QUERY_MATCH, QueryId: "q1"}
	def := model.WorkflowDefinition{Name: "wf", Conditions: []model.Condition{query}}

	ev := NewEvaluator(nil, nil, time.Second)
	passed, traces := ev.Evaluate(context.Background(), def, testEvent(nil))
	require.False(t, passed)
	require.NotEmpty(t, traces[0].Error)
}
