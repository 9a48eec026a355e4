package definition

import (
	"context"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/richarddahl/ruleflow/model"
)

const snapshotKey = "active-definitions"

// Storage is the read-only workflow definition store owned by the management
// API.
type Storage interface {
	ListActiveDefinitions(ctx context.Context) ([]model.WorkflowDefinition, error)
}

// Service serves point-in-time snapshots of the active definition set. A
// matching pass always works on one snapshot: definition updates become
// visible to subsequently ingested events only, never retroactively.
type Service struct {
	storage Storage
	cache   *cache.Cache
}

func NewService(storage Storage, ttl time.Duration) *Service {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &Service{
		storage: storage,
		cache:   cache.New(ttl, 2*ttl),
	}
}

// Snapshot returns the cached active definition set, refreshing it from the
// store once the TTL lapses.
func (s *Service) Snapshot(ctx context.Context) ([]model.WorkflowDefinition, error) {
	if cached, ok := s.cache.Get(snapshotKey); ok {
		return cached.([]model.WorkflowDefinition), nil
	}
	definitions, err := s.storage.ListActiveDefinitions(ctx)
	if err != nil {
		return nil, err
	}
	s.cache.SetDefault(snapshotKey, definitions)
	return definitions, nil
}

// Invalidate drops the cached snapshot so the next pass rereads the store.
func (s *Service) Invalidate() {
	s.cache.Delete(snapshotKey)
}
