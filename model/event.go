package model

import (
	"fmt"
	"strings"
)

type Operation string

const OPERATION_INSERT Operation = "INSERT"
const OPERATION_UPDATE Operation = "UPDATE"
const OPERATION_DELETE Operation = "DELETE"

func ToOperation(op string) (Operation, error) {
	switch {
	case strings.EqualFold(op, "insert"):
		return OPERATION_INSERT, nil
	case strings.EqualFold(op, "update"):
		return OPERATION_UPDATE, nil
	case strings.EqualFold(op, "delete"):
		return OPERATION_DELETE, nil
	}
	return "", fmt.Errorf("invalid operation %s", op)
}

// Event is an immutable change notification decoded at the listener boundary.
type Event struct {
	EntityType string         `json:"entity_type"`
	Operation  Operation      `json:"operation"`
	Timestamp  float64        `json:"timestamp"`
	Payload    map[string]any `json:"payload"`
	OldPayload map[string]any `json:"old_payload,omitempty"`
}

// Key identifies a logical event for duplicate suppression. Notifications are
// delivered at least once, so two events with the same key are the same fact.
func (e Event) Key() string {
	return fmt.Sprintf("%s:%v:%s:%f", e.EntityType, e.Payload["id"], e.Operation, e.Timestamp)
}

// ID is the stable trigger_event_id recorded against executions.
func (e Event) ID() string {
	return e.Key()
}
