package matcher

import (
	"reflect"
	"sort"

	"github.com/richarddahl/ruleflow/model"
)

// MatchedTrigger pairs a definition with the trigger of it that matched.
// Matching is per-trigger: one definition can match the same event through
// several triggers.
type MatchedTrigger struct {
	Definition model.WorkflowDefinition
	Trigger    model.Trigger
}

// Match returns the triggers interested in the event, ordered by trigger
// priority ascending with ties broken by definition id. Pure function over
// its inputs; definitions are a read-only snapshot.
func Match(event model.Event, definitions []model.WorkflowDefinition) []MatchedTrigger {
	var matched []MatchedTrigger
	for _, def := range definitions {
		if !def.IsExecutable() {
			continue
		}
		for _, trigger := range def.Triggers {
			if triggerMatches(trigger, event) {
				matched = append(matched, MatchedTrigger{Definition: def, Trigger: trigger})
			}
		}
	}
	sort.SliceStable(matched, func(i, j int) bool {
		if matched[i].Trigger.Priority != matched[j].Trigger.Priority {
			return matched[i].Trigger.Priority < matched[j].Trigger.Priority
		}
		return matched[i].Definition.Id < matched[j].Definition.Id
	})
	return matched
}

func triggerMatches(trigger model.Trigger, event model.Event) bool {
	if !trigger.IsActive {
		return false
	}
	if trigger.EntityType != event.EntityType || trigger.Operation != event.Operation {
		return false
	}
	// field_conditions are a cheap equality pre-filter ahead of full
	// condition evaluation.
	for field, expected := range trigger.FieldConditions {
		actual, ok := event.Payload[field]
		if !ok {
			return false
		}
		if !valueEqual(actual, expected) {
			return false
		}
	}
	return true
}

func valueEqual(a, b any) bool {
	if reflect.DeepEqual(a, b) {
		return true
	}
	// JSON decoding turns every number into float64, definitions may carry
	// ints. Compare numerically when both sides are numbers.
	af, aok := asFloat(a)
	bf, bok := asFloat(b)
	return aok && bok && af == bf
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}
