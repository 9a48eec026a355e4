package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/richarddahl/ruleflow/logger"
	"github.com/richarddahl/ruleflow/model"
	"github.com/spaolacci/murmur3"
	"go.uber.org/zap"
)

// Run consumes the listener stream until ctx is cancelled. Events are
// partitioned across pipeline workers by the hash of their entity identity,
// so changes to the same entity are processed in arrival order while
// unrelated events proceed in parallel. One worker owns every execution
// record its events produce.
func (e *Engine) Run(ctx context.Context) error {
	if e.source == nil {
		return errors.New("engine has no event source")
	}
	events := e.source.Listen(ctx)
	partitions := make([]chan model.Event, e.conf.Partitions)
	var wg sync.WaitGroup
	for i := range partitions {
		partitions[i] = make(chan model.Event, 16)
		wg.Add(1)
		go e.worker(ctx, i, partitions[i], &wg)
	}
	for event := range events {
		idx := int(murmur3.Sum32([]byte(partitionKey(event)))) % len(partitions)
		select {
		case partitions[idx] <- event:
		case <-ctx.Done():
		}
	}
	for _, p := range partitions {
		close(p)
	}
	wg.Wait()
	logger.Info("engine stopped")
	return ctx.Err()
}

func (e *Engine) worker(ctx context.Context, id int, events <-chan model.Event, wg *sync.WaitGroup) {
	defer wg.Done()
	for event := range events {
		e.processWithRetry(ctx, id, event)
	}
}

// processWithRetry keeps retrying an event whose pipeline failed before any
// side effect (definition store unreachable). Ingestion on this partition
// pauses rather than silently dropping the event.
func (e *Engine) processWithRetry(ctx context.Context, worker int, event model.Event) {
	for {
		summary, err := e.ProcessEvent(ctx, event)
		if err == nil {
			logger.Debug("event processed", zap.Int("worker", worker), zap.String("event", event.ID()),
				zap.Int("matched", summary.Matched), zap.Int("fired", summary.Fired))
			return
		}
		if !errors.Is(err, ErrDefinitionStoreUnavailable) {
			logger.Error("event pipeline failed", zap.Int("worker", worker), zap.String("event", event.ID()), zap.Error(err))
			return
		}
		logger.Error("definition store unreachable, pausing partition", zap.Int("worker", worker), zap.Error(err))
		select {
		case <-time.After(5 * time.Second):
		case <-ctx.Done():
			return
		}
	}
}

func partitionKey(event model.Event) string {
	return fmt.Sprintf("%s:%v", event.EntityType, event.Payload["id"])
}
