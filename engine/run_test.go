package engine

import (
	"context"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/richarddahl/ruleflow/condition"
	"github.com/richarddahl/ruleflow/config"
	"github.com/richarddahl/ruleflow/definition"
	"github.com/richarddahl/ruleflow/executor"
	"github.com/richarddahl/ruleflow/model"
	"github.com/richarddahl/ruleflow/recipient"
	"github.com/richarddahl/ruleflow/recorder"
	"github.com/stretchr/testify/require"
)

type stubSource struct {
	events []model.Event
}

func (s stubSource) Listen(context.Context) <-chan model.Event {
	ch := make(chan model.Event, len(s.events))
	for _, event := range s.events {
		ch <- event
	}
	close(ch)
	return ch
}

func TestRunPreservesPerEntityOrder(t *testing.T) {
	defStore := definition.NewInMemoryStore()
	defStore.Save(model.WorkflowDefinition{
		Id:     "wf-seq",
		Name:   "sequence capture",
		Status: model.WORKFLOW_STATUS_ACTIVE,
		Triggers: []model.Trigger{
			{EntityType: "order", Operation: model.OPERATION_UPDATE, Priority: 1, IsActive: true},
		},
		Actions: []model.Action{
			{Id: "cap", Type: model.ACTION_TYPE_CUSTOM, IsActive: true,
				ExecutorType: "capture", RetryPolicy: model.RetryPolicy{MaxAttempts: 1, BackoffBaseMs: 1}},
		},
		Recipients: []model.RecipientSpec{
			{RecipientType: model.RECIPIENT_TYPE_USER, RecipientId: "u1"},
		},
	})

	var mu sync.Mutex
	seen := map[string][]float64{}
	registry := executor.NewRegistry(dropQueue{}, &recordingMail{}, time.Second)
	registry.RegisterCustom("capture", func(_ context.Context, _ map[string]any, event model.Event, _ recipient.Recipient) error {
		mu.Lock()
		defer mu.Unlock()
		id := event.Payload["id"].(string)
		seen[id] = append(seen[id], event.Payload["seq"].(float64))
		return nil
	})

	// interleave two entities so out-of-order processing would surface
	var events []model.Event
	for seq := 1; seq <= 20; seq++ {
		for _, id := range []string{"a", "b"} {
			events = append(events, model.Event{
				EntityType: "order",
				Operation:  model.OPERATION_UPDATE,
				Timestamp:  float64(seq),
				Payload:    map[string]any{"id": id, "seq": float64(seq)},
			})
		}
	}

	conf := config.EngineConfig{
		Partitions:        4,
		EvalConcurrency:   4,
		ActionConcurrency: 4,
		EventTimeout:      5 * time.Second,
	}
	eng := New(conf,
		definition.NewService(defStore, time.Minute),
		condition.NewEvaluator(nil, nil, time.Second),
		recipient.NewResolver(staticIdentity{"u1": "u1@x"}),
		registry,
		recorder.NewService(recorder.NewInMemoryStore(), 256),
		stubSource{events: events}, nil)

	require.NoError(t, eng.Run(context.Background()))

	mu.Lock()
	defer mu.Unlock()
	for _, id := range []string{"a", "b"} {
		require.Len(t, seen[id], 20)
		require.True(t, sort.Float64sAreSorted(seen[id]), "entity %s processed out of arrival order: %v", id, seen[id])
	}
}

func TestRunWithoutSource(t *testing.T) {
	eng := New(config.EngineConfig{},
		definition.NewService(definition.NewInMemoryStore(), time.Minute),
		condition.NewEvaluator(nil, nil, time.Second),
		recipient.NewResolver(staticIdentity{}),
		executor.NewRegistry(dropQueue{}, &recordingMail{}, time.Second),
		recorder.NewService(recorder.NewInMemoryStore(), 8),
		nil, nil)
	require.Error(t, eng.Run(context.Background()))
}
