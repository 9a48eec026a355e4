package executor

import (
	"context"

	"github.com/richarddahl/ruleflow/logger"
	"github.com/richarddahl/ruleflow/model"
	"github.com/richarddahl/ruleflow/recipient"
	"github.com/richarddahl/ruleflow/util"
	"go.uber.org/zap"
)

// MailTransport is the external mail service. Transport-level errors are
// retryable by contract.
type MailTransport interface {
	Send(ctx context.Context, to string, subject string, body string) error
}

var _ ActionExecutor = new(emailExecutor)

type emailExecutor struct {
	transport MailTransport
}

func NewEmailExecutor(transport MailTransport) *emailExecutor {
	return &emailExecutor{transport: transport}
}

func (ex *emailExecutor) Execute(ctx context.Context, action model.Action, event model.Event, rcpt recipient.Recipient) error {
	subject := util.Render(action.Subject, event, action.Variables)
	body := util.Render(action.Template, event, action.Variables)
	if err := ex.transport.Send(ctx, rcpt.Address, subject, body); err != nil {
		return err
	}
	logger.Debug("email sent", zap.String("action", action.Id), zap.String("to", rcpt.Address))
	return nil
}
