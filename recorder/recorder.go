package recorder

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/richarddahl/ruleflow/logger"
	"github.com/richarddahl/ruleflow/model"
	"go.uber.org/zap"
)

// ErrAlreadyRecorded signals that an execution for the same
// (workflow, trigger_event_id) pair already exists. Duplicate event delivery
// stops here: the caller must not run the workflow again.
var ErrAlreadyRecorded = errors.New("execution already recorded")

var ErrNotFound = errors.New("execution record not found")

// Storage persists execution records. Implementations index records both by
// id and by (workflow_id, trigger_event_id).
type Storage interface {
	Save(ctx context.Context, record model.ExecutionRecord) error
	Get(ctx context.Context, id string) (*model.ExecutionRecord, error)
	GetByWorkflowEvent(ctx context.Context, workflowId string, triggerEventId string) (*model.ExecutionRecord, error)
}

// Detail carries the terminal outcome of a run: aggregated per-action results
// and the combined error text, if any.
type Detail struct {
	Result map[string]any
	Err    string
}

// Service owns the execution record lifecycle. A record is written by exactly
// one pipeline goroutine at a time; the service enforces the state machine
// and republishes every saved record to all update subscribers.
type Service struct {
	storage Storage
	buffer  int

	subscribersLock sync.RWMutex
	subscribers     []chan model.ExecutionRecord
}

func NewService(storage Storage, updatesBuffer int) *Service {
	if updatesBuffer <= 0 {
		updatesBuffer = 64
	}
	return &Service{
		storage: storage,
		buffer:  updatesBuffer,
	}
}

// Create records a new Pending execution, or returns the existing execution
// id with ErrAlreadyRecorded when this (workflow, event) pair was processed
// before.
func (s *Service) Create(ctx context.Context, workflowId string, triggerEventId string) (string, error) {
	existing, err := s.storage.GetByWorkflowEvent(ctx, workflowId, triggerEventId)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return "", err
	}
	if existing != nil {
		logger.Warn("duplicate execution suppressed", zap.String("workflow", workflowId),
			zap.String("event", triggerEventId), zap.String("execution", existing.Id))
		return existing.Id, ErrAlreadyRecorded
	}
	record := model.ExecutionRecord{
		Id:             uuid.NewString(),
		WorkflowId:     workflowId,
		TriggerEventId: triggerEventId,
		Status:         model.EXECUTION_STATUS_PENDING,
		ExecutedAt:     time.Now(),
	}
	if err := s.storage.Save(ctx, record); err != nil {
		return "", err
	}
	s.publish(record)
	return record.Id, nil
}

// Transition moves a record through Pending -> Running -> {Success, Failed}.
// A transition attempted from a terminal state is a no-op logged as a
// warning, which defends against double-processing of duplicate events.
func (s *Service) Transition(ctx context.Context, executionId string, status model.ExecutionStatus, detail Detail) error {
	record, err := s.storage.Get(ctx, executionId)
	if err != nil {
		return err
	}
	if record.Status.IsTerminal() {
		logger.Warn("transition from terminal state ignored", zap.String("execution", executionId),
			zap.String("from", string(record.Status)), zap.String("to", string(status)))
		return nil
	}
	if !canTransition(record.Status, status) {
		return errors.New("invalid transition " + string(record.Status) + " -> " + string(status))
	}
	record.Status = status
	if detail.Result != nil {
		record.Result = detail.Result
	}
	if detail.Err != "" {
		record.Error = detail.Err
	}
	if status.IsTerminal() {
		now := time.Now()
		record.CompletedAt = &now
		record.ExecutionTimeMs = now.Sub(record.ExecutedAt).Milliseconds()
	}
	if err := s.storage.Save(ctx, *record); err != nil {
		return err
	}
	s.publish(*record)
	return nil
}

func (s *Service) Get(ctx context.Context, executionId string) (*model.ExecutionRecord, error) {
	return s.storage.Get(ctx, executionId)
}

// Updates registers a new subscriber and streams every record saved from
// then on. Each subscriber gets its own channel; one that falls behind loses
// updates rather than stalling the recorder or its siblings.
func (s *Service) Updates() <-chan model.ExecutionRecord {
	s.subscribersLock.Lock()
	defer s.subscribersLock.Unlock()
	ch := make(chan model.ExecutionRecord, s.buffer)
	s.subscribers = append(s.subscribers, ch)
	return ch
}

func (s *Service) publish(record model.ExecutionRecord) {
	s.subscribersLock.RLock()
	defer s.subscribersLock.RUnlock()
	for _, ch := range s.subscribers {
		select {
		case ch <- record:
		default:
			logger.Warn("execution updates subscriber full, dropping update", zap.String("execution", record.Id))
		}
	}
}
