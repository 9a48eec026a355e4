package model

type WorkflowStatus string

const WORKFLOW_STATUS_DRAFT WorkflowStatus = "DRAFT"
const WORKFLOW_STATUS_ACTIVE WorkflowStatus = "ACTIVE"
const WORKFLOW_STATUS_INACTIVE WorkflowStatus = "INACTIVE"

type ConditionType string

const CONDITION_TYPE_FIELD_VALUE ConditionType = "FIELD_VALUE"
const CONDITION_TYPE_TIME_BASED ConditionType = "TIME_BASED"
const CONDITION_TYPE_ROLE_BASED ConditionType = "ROLE_BASED"
const CONDITION_TYPE_QUERY_MATCH ConditionType = "QUERY_MATCH"

type ActionType string

const ACTION_TYPE_NOTIFICATION ActionType = "NOTIFICATION"
const ACTION_TYPE_EMAIL ActionType = "EMAIL"
const ACTION_TYPE_WEBHOOK ActionType = "WEBHOOK"
const ACTION_TYPE_CUSTOM ActionType = "CUSTOM"

type RecipientType string

const RECIPIENT_TYPE_USER RecipientType = "USER"
const RECIPIENT_TYPE_ROLE RecipientType = "ROLE"
const RECIPIENT_TYPE_GROUP RecipientType = "GROUP"

// WorkflowDefinition is the aggregate the engine matches events against. It is
// owned by the management API and read-only here; a matching pass operates on
// a snapshot and never sees in-place updates.
type WorkflowDefinition struct {
	Id         string          `json:"id"`
	Name       string          `json:"name"`
	Status     WorkflowStatus  `json:"status"`
	Version    int             `json:"version"`
	Triggers   []Trigger       `json:"triggers"`
	Conditions []Condition     `json:"conditions"`
	Actions    []Action        `json:"actions"`
	Recipients []RecipientSpec `json:"recipients"`
}

// IsExecutable reports whether the definition can ever match: Active status
// with at least one trigger and one action. Anything else never matches.
func (wd WorkflowDefinition) IsExecutable() bool {
	return wd.Status == WORKFLOW_STATUS_ACTIVE && len(wd.Triggers) > 0 && len(wd.Actions) > 0
}

type Trigger struct {
	EntityType      string         `json:"entity_type"`
	Operation       Operation      `json:"operation"`
	FieldConditions map[string]any `json:"field_conditions,omitempty"`
	Priority        int            `json:"priority"`
	IsActive        bool           `json:"is_active"`
}

// Condition is a tagged union over the condition variants; Type selects the
// variant and the matching field group carries its data.
type Condition struct {
	Name  string        `json:"name"`
	Type  ConditionType `json:"type"`
	Order int           `json:"order"`

	// FIELD_VALUE
	Field    string `json:"field,omitempty"`
	Operator string `json:"operator,omitempty"`
	Value    any    `json:"value,omitempty"`

	// TIME_BASED, inclusive window on event timestamp (epoch seconds)
	WindowStart float64 `json:"window_start,omitempty"`
	WindowEnd   float64 `json:"window_end,omitempty"`

	// ROLE_BASED
	RequiredRole string `json:"required_role,omitempty"`

	// QUERY_MATCH
	QueryId string `json:"query_id,omitempty"`
}

type RetryPolicy struct {
	MaxAttempts   int `json:"max_attempts"`
	BackoffBaseMs int `json:"backoff_base_ms"`
}

// Action is a tagged union over the action variants.
type Action struct {
	Id          string      `json:"id"`
	Type        ActionType  `json:"type"`
	Order       int         `json:"order"`
	IsActive    bool        `json:"is_active"`
	RetryPolicy RetryPolicy `json:"retry_policy"`

	// NOTIFICATION
	Title    string `json:"title,omitempty"`
	Message  string `json:"message,omitempty"`
	Priority string `json:"priority,omitempty"`

	// EMAIL
	Subject   string            `json:"subject,omitempty"`
	Template  string            `json:"template,omitempty"`
	Variables map[string]string `json:"variables,omitempty"`

	// WEBHOOK
	Url             string `json:"url,omitempty"`
	PayloadTemplate string `json:"payload_template,omitempty"`

	// CUSTOM
	ExecutorType string         `json:"executor_type,omitempty"`
	Config       map[string]any `json:"config,omitempty"`
}

// RecipientSpec targets either every action of the definition (ActionId nil)
// or exactly one action.
type RecipientSpec struct {
	RecipientType RecipientType `json:"recipient_type"`
	RecipientId   string        `json:"recipient_id"`
	ActionId      *string       `json:"action_id,omitempty"`
}
