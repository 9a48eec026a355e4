package recorder

import (
	"context"
	"fmt"
	"sync"

	"github.com/richarddahl/ruleflow/model"
)

var _ Storage = new(InMemoryStore)

type InMemoryStore struct {
	mu      sync.RWMutex
	records map[string]model.ExecutionRecord
	byEvent map[string]string
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		records: make(map[string]model.ExecutionRecord),
		byEvent: make(map[string]string),
	}
}

func (s *InMemoryStore) Save(_ context.Context, record model.ExecutionRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[record.Id] = record
	s.byEvent[eventKey(record.WorkflowId, record.TriggerEventId)] = record.Id
	return nil
}

func (s *InMemoryStore) Get(_ context.Context, id string) (*model.ExecutionRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	record, ok := s.records[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &record, nil
}

func (s *InMemoryStore) GetByWorkflowEvent(_ context.Context, workflowId string, triggerEventId string) (*model.ExecutionRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byEvent[eventKey(workflowId, triggerEventId)]
	if !ok {
		return nil, ErrNotFound
	}
	record := s.records[id]
	return &record, nil
}

func eventKey(workflowId string, triggerEventId string) string {
	return fmt.Sprintf("%s:%s", workflowId, triggerEventId)
}
