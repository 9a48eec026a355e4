package agent

import (
	"context"

	"github.com/richarddahl/ruleflow/executor"
	"github.com/richarddahl/ruleflow/logger"
	"go.uber.org/zap"
)

// loopbackIdentity treats user ids as addresses and resolves no role or
// group members. Good enough for development; production hosts inject a real
// identity service.
type loopbackIdentity struct{}

func (loopbackIdentity) ResolveUser(_ context.Context, id string) (string, error) {
	return id, nil
}

func (loopbackIdentity) ResolveRoleMembers(_ context.Context, role string) ([]string, error) {
	return nil, nil
}

func (loopbackIdentity) ResolveGroupMembers(_ context.Context, group string) ([]string, error) {
	return nil, nil
}

type logMailTransport struct{}

func (logMailTransport) Send(_ context.Context, to string, subject string, body string) error {
	logger.Info("mail transport not configured, logging email", zap.String("to", to), zap.String("subject", subject))
	return nil
}

type logNotificationQueue struct{}

func (logNotificationQueue) Push(_ context.Context, n executor.Notification) error {
	logger.Info("notification queue not configured, logging notification", zap.String("to", n.To), zap.String("title", n.Title))
	return nil
}
