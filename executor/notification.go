package executor

import (
	"context"

	"github.com/richarddahl/ruleflow/logger"
	"github.com/richarddahl/ruleflow/model"
	"github.com/richarddahl/ruleflow/recipient"
	"github.com/richarddahl/ruleflow/util"
	"go.uber.org/zap"
)

// Notification is one rendered in-app delivery handed to the queue.
type Notification struct {
	To       string `json:"to"`
	Title    string `json:"title"`
	Message  string `json:"message"`
	Priority string `json:"priority,omitempty"`
}

// NotificationQueue is the delivery channel notifications are enqueued to.
// Enqueue success is delivery success for this action type.
type NotificationQueue interface {
	Push(ctx context.Context, n Notification) error
}

var _ ActionExecutor = new(notificationExecutor)

type notificationExecutor struct {
	queue NotificationQueue
}

func NewNotificationExecutor(queue NotificationQueue) *notificationExecutor {
	return &notificationExecutor{queue: queue}
}

func (ex *notificationExecutor) Execute(ctx context.Context, action model.Action, event model.Event, rcpt recipient.Recipient) error {
	n := Notification{
		To:       rcpt.Address,
		Title:    util.Render(action.Title, event, nil),
		Message:  util.Render(action.Message, event, nil),
		Priority: action.Priority,
	}
	if err := ex.queue.Push(ctx, n); err != nil {
		return err
	}
	logger.Debug("notification enqueued", zap.String("action", action.Id), zap.String("to", rcpt.Address))
	return nil
}
