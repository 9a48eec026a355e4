package executor

import (
	"context"
	"fmt"

	"github.com/richarddahl/ruleflow/model"
	"github.com/richarddahl/ruleflow/recipient"
)

var _ ActionExecutor = new(customExecutor)

// customExecutor dispatches by executor_type through the registry's custom
// function table.
type customExecutor struct {
	registry *Registry
}

func newCustomExecutor(registry *Registry) *customExecutor {
	return &customExecutor{registry: registry}
}

func (ex *customExecutor) Execute(ctx context.Context, action model.Action, event model.Event, rcpt recipient.Recipient) error {
	fn, ok := ex.registry.custom[action.ExecutorType]
	if !ok {
		return Permanent(fmt.Errorf("%w: %s", ErrExecutorNotRegistered, action.ExecutorType))
	}
	return fn(ctx, action.Config, event, rcpt)
}
