package model

import "time"

type ExecutionStatus string

const EXECUTION_STATUS_PENDING ExecutionStatus = "PENDING"
const EXECUTION_STATUS_RUNNING ExecutionStatus = "RUNNING"
const EXECUTION_STATUS_SUCCESS ExecutionStatus = "SUCCESS"
const EXECUTION_STATUS_FAILED ExecutionStatus = "FAILED"

func (s ExecutionStatus) IsTerminal() bool {
	return s == EXECUTION_STATUS_SUCCESS || s == EXECUTION_STATUS_FAILED
}

// ExecutionRecord is the durable outcome of one workflow run against one
// triggering event. Immutable once terminal.
type ExecutionRecord struct {
	Id              string          `json:"id"`
	WorkflowId      string          `json:"workflow_id"`
	TriggerEventId  string          `json:"trigger_event_id"`
	Status          ExecutionStatus `json:"status"`
	ExecutedAt      time.Time       `json:"executed_at"`
	CompletedAt     *time.Time      `json:"completed_at,omitempty"`
	Result          map[string]any  `json:"result,omitempty"`
	Error           string          `json:"error,omitempty"`
	ExecutionTimeMs int64           `json:"execution_time_ms"`
}

// ConditionTrace is the audit trail of one condition evaluation.
type ConditionTrace struct {
	Name      string        `json:"name"`
	Type      ConditionType `json:"type"`
	Order     int           `json:"order"`
	Passed    bool          `json:"passed"`
	Error     string        `json:"error,omitempty"`
	ElapsedMs int64         `json:"elapsed_ms"`
}

// ActionResult is the outcome of one action attempt chain against one
// recipient. Failures are isolated per (action, recipient) pair.
type ActionResult struct {
	ActionId   string     `json:"action_id"`
	ActionType ActionType `json:"action_type"`
	Recipient  string     `json:"recipient,omitempty"`
	Attempts   int        `json:"attempts"`
	Success    bool       `json:"success"`
	Error      string     `json:"error,omitempty"`
	ElapsedMs  int64      `json:"elapsed_ms"`
}

// ExecutionSummary is returned from the synchronous ProcessEvent entry point.
type ExecutionSummary struct {
	EventId      string   `json:"event_id"`
	Matched      int      `json:"matched"`
	Fired        int      `json:"fired"`
	Skipped      int      `json:"skipped"`
	ExecutionIds []string `json:"execution_ids,omitempty"`
}
