package executor

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/dop251/goja"
	"github.com/richarddahl/ruleflow/model"
	"github.com/richarddahl/ruleflow/recipient"
)

// jsExecutorFunc is the built-in "javascript" custom executor. The expression
// from the action config runs with $ bound to the event payload and
// $recipient to the delivery address; a thrown error or an expression
// evaluating to false fails the delivery.
func jsExecutorFunc(ctx context.Context, config map[string]any, event model.Event, rcpt recipient.Recipient) error {
	expression, _ := config["expression"].(string)
	if expression == "" {
		return Permanent(fmt.Errorf("javascript executor requires an expression"))
	}
	data, _ := json.Marshal(event.Payload)
	script := fmt.Sprintf("var $ = %s;\nvar $recipient = %q;\n", data, rcpt.Address)
	script = script + expression
	vm := goja.New()
	val, err := vm.RunString(script)
	if err != nil {
		return Permanent(fmt.Errorf("error executing javascript %w", err))
	}
	if b, ok := val.Export().(bool); ok && !b {
		return Permanent(fmt.Errorf("javascript expression evaluated to false"))
	}
	return nil
}
