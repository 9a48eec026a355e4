package matcher

import (
	"testing"

	"github.com/richarddahl/ruleflow/model"
	"github.com/stretchr/testify/require"
)

func orderEvent() model.Event {
	return model.Event{
		EntityType: "order",
		Operation:  model.OPERATION_INSERT,
		Timestamp:  1700000000,
		Payload:    map[string]any{"id": "o1", "total_amount": float64(150), "customer_id": "c1"},
	}
}

func definition(id string, triggers ...model.Trigger) model.WorkflowDefinition {
	return model.WorkflowDefinition{
		Id:       id,
		Name:     "wf-" + id,
		Status:   model.WORKFLOW_STATUS_ACTIVE,
		Triggers: triggers,
		Actions:  []model.Action{{Id: "a1", Type: model.ACTION_TYPE_NOTIFICATION, IsActive: true}},
	}
}

func trigger(priority int) model.Trigger {
	return model.Trigger{
		EntityType: "order",
		Operation:  model.OPERATION_INSERT,
		Priority:   priority,
		IsActive:   true,
	}
}

func TestMatchOrdersByPriority(t *testing.T) {
	defs := []model.WorkflowDefinition{
		definition("w1", trigger(5)),
		definition("w2", trigger(1)),
		definition("w3", trigger(3)),
	}
	matched := Match(orderEvent(), defs)
	require.Len(t, matched, 3)
	priorities := []int{matched[0].Trigger.Priority, matched[1].Trigger.Priority, matched[2].Trigger.Priority}
	require.Equal(t, []int{1, 3, 5}, priorities)
}

func TestMatchBreaksTiesByDefinitionId(t *testing.T) {
	defs := []model.WorkflowDefinition{
		definition("w9", trigger(1)),
		definition("w1", trigger(1)),
	}
	matched := Match(orderEvent(), defs)
	require.Len(t, matched, 2)
	require.Equal(t, "w1", matched[0].Definition.Id)
	require.Equal(t, "w9", matched[1].Definition.Id)
}

func TestMatchSkipsInactiveTrigger(t *testing.T) {
	tr := trigger(1)
	tr.IsActive = false
	matched := Match(orderEvent(), []model.WorkflowDefinition{definition("w1", tr)})
	require.Empty(t, matched)
}

func TestMatchSkipsNonExecutableDefinitions(t *testing.T) {
	inactive := definition("w1", trigger(1))
	inactive.Status = model.WORKFLOW_STATUS_INACTIVE

	noActions := definition("w2", trigger(1))
	noActions.Actions = nil

	noTriggers := definition("w3")

	matched := Match(orderEvent(), []model.WorkflowDefinition{inactive, noActions, noTriggers})
	require.Empty(t, matched)
}

func TestMatchRequiresEntityAndOperation(t *testing.T) {
	tr := trigger(1)
	tr.EntityType = "customer"
	matched := Match(orderEvent(), []model.WorkflowDefinition{definition("w1", tr)})
	require.Empty(t, matched)

	tr = trigger(1)
	tr.Operation = model.OPERATION_DELETE
	matched = Match(orderEvent(), []model.WorkflowDefinition{definition("w2", tr)})
	require.Empty(t, matched)
}

func TestMatchFieldConditions(t *testing.T) {
	tr := trigger(1)
	tr.FieldConditions = map[string]any{"customer_id": "c1", "total_amount": 150}
	matched := Match(orderEvent(), []model.WorkflowDefinition{definition("w1", tr)})
	require.Len(t, matched, 1)

	tr.FieldConditions = map[string]any{"customer_id": "someone-else"}
	matched = Match(orderEvent(), []model.WorkflowDefinition{definition("w2", tr)})
	require.Empty(t, matched)

	tr.FieldConditions = map[string]any{"missing_field": "x"}
	matched = Match(orderEvent(), []model.WorkflowDefinition{definition("w3", tr)})
	require.Empty(t, matched)
}

func TestMatchSameDefinitionMultipleTriggers(t *testing.T) {
	def := definition("w1", trigger(2), trigger(7))
	matched := Match(orderEvent(), []model.WorkflowDefinition{def})
	require.Len(t, matched, 2)
	require.Equal(t, 2, matched[0].Trigger.Priority)
	require.Equal(t, 7, matched[1].Trigger.Priority)
}
