package executor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/richarddahl/ruleflow/logger"
	"github.com/richarddahl/ruleflow/model"
	"github.com/richarddahl/ruleflow/recipient"
	"github.com/richarddahl/ruleflow/util"
	"go.uber.org/zap"
)

var _ ActionExecutor = new(webhookExecutor)

type webhookExecutor struct {
	client *http.Client
}

// NewWebhookExecutor posts rendered payloads with a bounded timeout. TLS
// verification stays on: the default transport is used as-is.
func NewWebhookExecutor(timeout time.Duration) *webhookExecutor {
	return &webhookExecutor{
		client: &http.Client{Timeout: timeout},
	}
}

func (ex *webhookExecutor) Execute(ctx context.Context, action model.Action, event model.Event, rcpt recipient.Recipient) error {
	body, err := ex.renderBody(action, event, rcpt)
	if err != nil {
		return Permanent(err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, action.Url, bytes.NewReader(body))
	if err != nil {
		return Permanent(err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := ex.client.Do(req)
	if err != nil {
		// network and timeout errors are retryable
		return err
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		logger.Debug("webhook delivered", zap.String("action", action.Id), zap.String("url", action.Url), zap.Int("status", resp.StatusCode))
		return nil
	case resp.StatusCode >= 500:
		return fmt.Errorf("webhook %s returned %d", action.Url, resp.StatusCode)
	default:
		// 4xx means the request itself is wrong; retrying cannot fix it
		return Permanent(fmt.Errorf("webhook %s returned %d", action.Url, resp.StatusCode))
	}
}

func (ex *webhookExecutor) renderBody(action model.Action, event model.Event, rcpt recipient.Recipient) ([]byte, error) {
	if action.PayloadTemplate != "" {
		return []byte(util.Render(action.PayloadTemplate, event, nil)), nil
	}
	return json.Marshal(map[string]any{
		"entity_type": event.EntityType,
		"operation":   event.Operation,
		"timestamp":   event.Timestamp,
		"payload":     event.Payload,
		"recipient":   rcpt.Address,
	})
}
