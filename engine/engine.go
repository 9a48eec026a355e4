package engine

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/richarddahl/ruleflow/condition"
	"github.com/richarddahl/ruleflow/config"
	"github.com/richarddahl/ruleflow/definition"
	"github.com/richarddahl/ruleflow/executor"
	"github.com/richarddahl/ruleflow/logger"
	"github.com/richarddahl/ruleflow/matcher"
	"github.com/richarddahl/ruleflow/metrics"
	"github.com/richarddahl/ruleflow/model"
	"github.com/richarddahl/ruleflow/recipient"
	"github.com/richarddahl/ruleflow/recorder"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

// ErrDefinitionStoreUnavailable marks a pipeline failure that happened before
// any side effect; the event is safe to retry.
var ErrDefinitionStoreUnavailable = errors.New("definition store unreachable")

// EventSource is the ingestion side of the engine, satisfied by the listener.
type EventSource interface {
	Listen(ctx context.Context) <-chan model.Event
}

// Engine wires the pipeline stages together and coordinates per-event
// fan-out. All collaborator handles are held here explicitly; there is no
// package-level state.
type Engine struct {
	conf        config.EngineConfig
	definitions *definition.Service
	evaluator   *condition.Evaluator
	resolver    *recipient.Resolver
	registry    *executor.Registry
	recorder    *recorder.Service
	source      EventSource
	metrics     *metrics.Metrics
}

func New(conf config.EngineConfig, definitions *definition.Service, evaluator *condition.Evaluator,
	resolver *recipient.Resolver, registry *executor.Registry, recorderService *recorder.Service,
	source EventSource, m *metrics.Metrics) *Engine {
	if conf.Partitions <= 0 {
		conf.Partitions = 4
	}
	if conf.EvalConcurrency <= 0 {
		conf.EvalConcurrency = 8
	}
	if conf.ActionConcurrency <= 0 {
		conf.ActionConcurrency = 8
	}
	if conf.EventTimeout <= 0 {
		conf.EventTimeout = 60 * time.Second
	}
	return &Engine{
		conf:        conf,
		definitions: definitions,
		evaluator:   evaluator,
		resolver:    resolver,
		registry:    registry,
		recorder:    recorderService,
		source:      source,
		metrics:     m,
	}
}

// ProcessEvent runs the full pipeline for one event synchronously and is the
// entry point for ops tooling alongside the always-on listener path. Matched
// workflows evaluate concurrently under the evaluation pool; each fired
// workflow runs its actions under the per-run action pool.
func (e *Engine) ProcessEvent(ctx context.Context, event model.Event) (model.ExecutionSummary, error) {
	ctx, cancel := context.WithTimeout(ctx, e.conf.EventTimeout)
	defer cancel()

	summary := model.ExecutionSummary{EventId: event.ID()}
	snapshot, err := e.definitions.Snapshot(ctx)
	if err != nil {
		return summary, fmt.Errorf("%w: %v", ErrDefinitionStoreUnavailable, err)
	}
	matched := matcher.Match(event, snapshot)
	summary.Matched = len(matched)
	e.metrics.AddMatches(len(matched))
	if len(matched) == 0 {
		return summary, nil
	}

	// one run per definition per event, keeping the priority order of the
	// first matching trigger
	definitions := dedupeDefinitions(matched)

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.conf.EvalConcurrency)
	for _, def := range definitions {
		def := def
		g.Go(func() error {
			executionId, fired := e.runWorkflow(gctx, def, event)
			mu.Lock()
			defer mu.Unlock()
			if fired {
				summary.Fired++
				summary.ExecutionIds = append(summary.ExecutionIds, executionId)
			} else {
				summary.Skipped++
			}
			return nil
		})
	}
	g.Wait()
	return summary, nil
}

// runWorkflow evaluates conditions and, if the workflow fires, executes its
// actions and records the outcome. Returns the execution id and whether the
// workflow fired. A condition veto leaves no execution record; the trace is
// logged for audit instead.
func (e *Engine) runWorkflow(ctx context.Context, def model.WorkflowDefinition, event model.Event) (string, bool) {
	start := time.Now()
	passed, traces := e.evaluator.Evaluate(ctx, def, event)
	if !passed {
		e.metrics.IncCondition("failed")
		logger.Info("workflow vetoed by condition", zap.String("workflow", def.Name),
			zap.String("event", event.ID()), zap.Any("trace", traces))
		return "", false
	}
	e.metrics.IncCondition("passed")

	executionId, err := e.recorder.Create(ctx, def.Id, event.ID())
	if err != nil {
		if errors.Is(err, recorder.ErrAlreadyRecorded) {
			return executionId, false
		}
		logger.Error("failed to create execution record", zap.String("workflow", def.Name), zap.Error(err))
		return "", false
	}
	if err := e.recorder.Transition(ctx, executionId, model.EXECUTION_STATUS_RUNNING, recorder.Detail{}); err != nil {
		logger.Error("failed to start execution", zap.String("execution", executionId), zap.Error(err))
		return executionId, false
	}

	results := e.executeActions(ctx, def, event)
	detail := aggregate(traces, results)
	status := model.EXECUTION_STATUS_SUCCESS
	if detail.Err != "" {
		status = model.EXECUTION_STATUS_FAILED
	}
	if ctx.Err() != nil {
		status = model.EXECUTION_STATUS_FAILED
		if detail.Err == "" {
			detail.Err = "event processing deadline exceeded"
		} else {
			detail.Err = detail.Err + "; event processing deadline exceeded"
		}
	}
	// the terminal write must land even when the event deadline expired
	// mid-run, otherwise the record strands in RUNNING
	tctx, tcancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer tcancel()
	if err := e.recorder.Transition(tctx, executionId, status, detail); err != nil {
		logger.Error("failed to record execution outcome", zap.String("execution", executionId), zap.Error(err))
	}
	e.metrics.ObserveExecution(time.Since(start))
	logger.Info("workflow execution finished", zap.String("workflow", def.Name),
		zap.String("execution", executionId), zap.String("status", string(status)))
	return executionId, true
}

// executeActions runs the definition's active actions in order ascending.
// Recipients of one action execute concurrently under the bounded gate;
// failures stay isolated per (action, recipient) pair and never abort
// siblings.
func (e *Engine) executeActions(ctx context.Context, def model.WorkflowDefinition, event model.Event) []model.ActionResult {
	actions := make([]model.Action, 0, len(def.Actions))
	for _, action := range def.Actions {
		if action.IsActive {
			actions = append(actions, action)
		}
	}
	sort.SliceStable(actions, func(i, j int) bool { return actions[i].Order < actions[j].Order })

	sem := semaphore.NewWeighted(int64(e.conf.ActionConcurrency))
	var results []model.ActionResult
	for _, action := range actions {
		recipients, err := e.resolver.Resolve(ctx, def, action)
		if err != nil {
			results = append(results, model.ActionResult{
				ActionId:   action.Id,
				ActionType: action.Type,
				Error:      fmt.Sprintf("recipient resolution failed: %v", err),
			})
			e.metrics.IncActionResult(string(action.Type), "failed")
			continue
		}
		if len(recipients) == 0 {
			logger.Debug("no recipients resolved, skipping action",
				zap.String("workflow", def.Name), zap.String("action", action.Id))
			continue
		}
		actionResults := make([]model.ActionResult, len(recipients))
		var wg sync.WaitGroup
		for i, rcpt := range recipients {
			if err := sem.Acquire(ctx, 1); err != nil {
				actionResults[i] = model.ActionResult{
					ActionId:   action.Id,
					ActionType: action.Type,
					Recipient:  rcpt.Address,
					Error:      "cancelled before execution",
				}
				continue
			}
			wg.Add(1)
			go func(i int, rcpt recipient.Recipient) {
				defer wg.Done()
				defer sem.Release(1)
				actionResults[i] = e.registry.Execute(ctx, action, event, rcpt)
			}(i, rcpt)
		}
		wg.Wait()
		for _, res := range actionResults {
			if res.Success {
				e.metrics.IncActionResult(string(action.Type), "success")
			} else {
				e.metrics.IncActionResult(string(action.Type), "failed")
			}
		}
		results = append(results, actionResults...)
	}
	return results
}

// aggregate folds traces and per-(action, recipient) results into the record
// detail. Every failure is kept, not just the first.
func aggregate(traces []model.ConditionTrace, results []model.ActionResult) recorder.Detail {
	detail := recorder.Detail{
		Result: map[string]any{
			"conditions": traces,
			"actions":    results,
		},
	}
	var failures []string
	for _, res := range results {
		if !res.Success {
			failures = append(failures, fmt.Sprintf("action %s recipient %s: %s", res.ActionId, res.Recipient, res.Error))
		}
	}
	if len(failures) > 0 {
		detail.Err = strings.Join(failures, "; ")
	}
	return detail
}

func dedupeDefinitions(matched []matcher.MatchedTrigger) []model.WorkflowDefinition {
	seen := make(map[string]struct{}, len(matched))
	definitions := make([]model.WorkflowDefinition, 0, len(matched))
	for _, m := range matched {
		if _, ok := seen[m.Definition.Id]; ok {
			continue
		}
		seen[m.Definition.Id] = struct{}{}
		definitions = append(definitions, m.Definition)
	}
	return definitions
}
