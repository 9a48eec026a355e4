package condition

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/richarddahl/ruleflow/logger"
	"github.com/richarddahl/ruleflow/model"
	"github.com/richarddahl/ruleflow/util"
	"go.uber.org/zap"
)

// QueryExecutor runs a stored query by id against the context of the
// triggering event. Results are best-effort; no transactional consistency
// with the event's originating write is assumed.
type QueryExecutor interface {
	Execute(ctx context.Context, queryId string, evalCtx map[string]any) (bool, error)
}

// RoleLookup resolves the role of an acting principal when the event payload
// does not carry it.
type RoleLookup interface {
	ResolveActorRole(ctx context.Context, payload map[string]any) (string, error)
}

type Evaluator struct {
	queryExecutor QueryExecutor
	roleLookup    RoleLookup
	queryTimeout  time.Duration
}

func NewEvaluator(queryExecutor QueryExecutor, roleLookup RoleLookup, queryTimeout time.Duration) *Evaluator {
	return &Evaluator{
		queryExecutor: queryExecutor,
		roleLookup:    roleLookup,
		queryTimeout:  queryTimeout,
	}
}

// Evaluate walks the definition's conditions in order. All conditions combine
// with AND semantics: the first failing condition short-circuits, but the
// trace still covers everything evaluated up to and including it.
func (e *Evaluator) Evaluate(ctx context.Context, definition model.WorkflowDefinition, event model.Event) (bool, []model.ConditionTrace) {
	conditions := make([]model.Condition, len(definition.Conditions))
	copy(conditions, definition.Conditions)
	sort.SliceStable(conditions, func(i, j int) bool {
		return conditions[i].Order < conditions[j].Order
	})
	traces := make([]model.ConditionTrace, 0, len(conditions))
	for _, cond := range conditions {
		start := time.Now()
		passed, err := e.evaluateOne(ctx, cond, event)
		trace := model.ConditionTrace{
			Name:      cond.Name,
			Type:      cond.Type,
			Order:     cond.Order,
			Passed:    passed,
			ElapsedMs: time.Since(start).Milliseconds(),
		}
		if err != nil {
			trace.Error = err.Error()
			logger.Error("condition evaluation error", zap.String("workflow", definition.Name), zap.String("condition", cond.Name), zap.Error(err))
		}
		traces = append(traces, trace)
		if !passed {
			return false, traces
		}
	}
	return true, traces
}

// evaluateOne never propagates an error as a pipeline failure: an evaluation
// error degrades to a failed condition with the error kept for audit.
func (e *Evaluator) evaluateOne(ctx context.Context, cond model.Condition, event model.Event) (bool, error) {
	switch cond.Type {
	case model.CONDITION_TYPE_FIELD_VALUE:
		return e.evaluateFieldValue(cond, event), nil
	case model.CONDITION_TYPE_TIME_BASED:
		return event.Timestamp >= cond.WindowStart && event.Timestamp <= cond.WindowEnd, nil
	case model.CONDITION_TYPE_ROLE_BASED:
		return e.evaluateRoleBased(ctx, cond, event)
	case model.CONDITION_TYPE_QUERY_MATCH:
		return e.evaluateQueryMatch(ctx, cond, event)
	}
	return false, fmt.Errorf("unknown condition type %s", cond.Type)
}

func (e *Evaluator) evaluateFieldValue(cond model.Condition, event model.Event) bool {
	actual, ok := util.LookupPath(event.Payload, cond.Field)
	if !ok {
		// missing field fails the condition, it never errors
		return false
	}
	return Compare(actual, cond.Operator, cond.Value)
}

func (e *Evaluator) evaluateRoleBased(ctx context.Context, cond model.Condition, event model.Event) (bool, error) {
	role, ok := event.Payload["_actor_role"].(string)
	if !ok {
		if e.roleLookup == nil {
			return false, nil
		}
		resolved, err := e.roleLookup.ResolveActorRole(ctx, event.Payload)
		if err != nil {
			return false, err
		}
		role = resolved
	}
	if role == cond.RequiredRole {
		return true, nil
	}
	// a principal holding several roles carries them comma separated
	for _, r := range strings.Split(role, ",") {
		if strings.TrimSpace(r) == cond.RequiredRole {
			return true, nil
		}
	}
	return false, nil
}

// evaluateQueryMatch delegates to the external query collaborator under a
// bounded timeout so a non-responding query fails the condition instead of
// stalling the event pipeline.
func (e *Evaluator) evaluateQueryMatch(ctx context.Context, cond model.Condition, event model.Event) (bool, error) {
	if e.queryExecutor == nil {
		return false, fmt.Errorf("no query executor configured for query %s", cond.QueryId)
	}
	qctx, cancel := context.WithTimeout(ctx, e.queryTimeout)
	defer cancel()

	type result struct {
		matched bool
		err     error
	}
	resultCh := make(chan result, 1)
	go func() {
		matched, err := e.queryExecutor.Execute(qctx, cond.QueryId, event.Payload)
		resultCh <- result{matched: matched, err: err}
	}()
	select {
	case res := <-resultCh:
		return res.matched, res.err
	case <-qctx.Done():
		return false, fmt.Errorf("query %s timed out: %w", cond.QueryId, qctx.Err())
	}
}
