package definition

import (
	"context"
	"sync"

	"github.com/richarddahl/ruleflow/model"
)

var _ Storage = new(InMemoryStore)

type InMemoryStore struct {
	mu          sync.RWMutex
	definitions map[string]model.WorkflowDefinition
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{definitions: make(map[string]model.WorkflowDefinition)}
}

func (s *InMemoryStore) Save(def model.WorkflowDefinition) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.definitions[def.Id] = def
}

func (s *InMemoryStore) Delete(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.definitions, id)
}

func (s *InMemoryStore) ListActiveDefinitions(_ context.Context) ([]model.WorkflowDefinition, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	definitions := make([]model.WorkflowDefinition, 0, len(s.definitions))
	for _, def := range s.definitions {
		if def.Status == model.WORKFLOW_STATUS_ACTIVE {
			definitions = append(definitions, def)
		}
	}
	return definitions, nil
}
