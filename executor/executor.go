package executor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/richarddahl/ruleflow/logger"
	"github.com/richarddahl/ruleflow/model"
	"github.com/richarddahl/ruleflow/recipient"
	"github.com/sethvargo/go-retry"
	"go.uber.org/zap"
)

// ErrExecutorNotRegistered marks a custom action whose executor type no one
// registered. This is a configuration error: fatal, never retried.
var ErrExecutorNotRegistered = errors.New("custom executor not registered")

// ActionExecutor performs one delivery of one action to one recipient. A
// returned error is retryable unless wrapped with Permanent.
type ActionExecutor interface {
	Execute(ctx context.Context, action model.Action, event model.Event, rcpt recipient.Recipient) error
}

// CustomFunc is a host-supplied executor invoked by executor_type name.
type CustomFunc func(ctx context.Context, config map[string]any, event model.Event, rcpt recipient.Recipient) error

// Registry dispatches actions to type-specific executors. The fixed variants
// are closed; the CUSTOM variant stays open through RegisterCustom for
// executors supplied by the embedding application.
type Registry struct {
	executors map[model.ActionType]ActionExecutor
	custom    map[string]CustomFunc
}

func NewRegistry(queue NotificationQueue, mail MailTransport, webhookTimeout time.Duration) *Registry {
	r := &Registry{
		executors: make(map[model.ActionType]ActionExecutor),
		custom:    make(map[string]CustomFunc),
	}
	r.executors[model.ACTION_TYPE_NOTIFICATION] = NewNotificationExecutor(queue)
	r.executors[model.ACTION_TYPE_EMAIL] = NewEmailExecutor(mail)
	r.executors[model.ACTION_TYPE_WEBHOOK] = NewWebhookExecutor(webhookTimeout)
	r.executors[model.ACTION_TYPE_CUSTOM] = newCustomExecutor(r)
	r.RegisterCustom("javascript", jsExecutorFunc)
	return r
}

// RegisterCustom binds an executor function to a custom executor_type name,
// replacing any previous binding of the same name.
func (r *Registry) RegisterCustom(executorType string, fn CustomFunc) {
	r.custom[executorType] = fn
}

// Execute runs the action against one recipient with the action's retry
// policy: exponential backoff from backoff_base_ms doubling per attempt,
// jittered ±20%, at most max_attempts attempts. Permanent errors stop
// immediately. On ctx expiry the current attempt finishes but no further
// attempt is scheduled.
func (r *Registry) Execute(ctx context.Context, action model.Action, event model.Event, rcpt recipient.Recipient) model.ActionResult {
	start := time.Now()
	result := model.ActionResult{
		ActionId:   action.Id,
		ActionType: action.Type,
		Recipient:  rcpt.Address,
	}
	exec, ok := r.executors[action.Type]
	if !ok {
		result.Error = fmt.Sprintf("no executor for action type %s", action.Type)
		result.ElapsedMs = time.Since(start).Milliseconds()
		return result
	}

	maxAttempts := action.RetryPolicy.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	base := time.Duration(action.RetryPolicy.BackoffBaseMs) * time.Millisecond
	if base <= 0 {
		base = 100 * time.Millisecond
	}
	backoff := retry.WithMaxRetries(uint64(maxAttempts-1),
		retry.WithJitterPercent(20, retry.NewExponential(base)))

	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		result.Attempts++
		execErr := exec.Execute(ctx, action, event, rcpt)
		if execErr == nil {
			return nil
		}
		if IsPermanent(execErr) {
			return execErr
		}
		logger.Warn("action attempt failed, will retry", zap.String("action", action.Id),
			zap.String("recipient", rcpt.Address), zap.Int("attempt", result.Attempts), zap.Error(execErr))
		return retry.RetryableError(execErr)
	})
	result.ElapsedMs = time.Since(start).Milliseconds()
	if err != nil {
		result.Error = err.Error()
		return result
	}
	result.Success = true
	return result
}

type permanentError struct {
	err error
}

func (p *permanentError) Error() string { return p.err.Error() }
func (p *permanentError) Unwrap() error { return p.err }

// Permanent wraps an error so the retry loop treats it as non-retryable.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

func IsPermanent(err error) bool {
	var p *permanentError
	return errors.As(err, &p)
}
