package escalation

import (
	"context"
	"sync"
)

// MemoryStore keeps cases in process memory
type MemoryStore struct {
	mu    sync.Mutex
	cases map[string]*Case
}

// NewMemoryStore creates an empty in-memory case store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{cases: make(map[string]*Case)}
}

func (s *MemoryStore) Create(ctx context.Context, c *Case) (*Case, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.cases[c.ID]; ok {
		return existing.clone(), false, nil
	}
	s.cases[c.ID] = c.clone()
	return c.clone(), true, nil
}

func (s *MemoryStore) Get(ctx context.Context, id string) (*Case, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.cases[id]
	if !ok {
		return nil, ErrCaseNotFound
	}
	return c.clone(), nil
}

func (s *MemoryStore) Update(ctx context.Context, id string, fn func(*Case) bool) (*Case, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.cases[id]
	if !ok {
		return nil, false, ErrCaseNotFound
	}
	updated := current.clone()
	if !fn(updated) {
		return current.clone(), false, nil
	}
	updated.Version = current.Version + 1
	s.cases[id] = updated
	return updated.clone(), true, nil
}

func (s *MemoryStore) List(ctx context.Context) ([]*Case, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]*Case, 0, len(s.cases))
	for _, c := range s.cases {
		out = append(out, c.clone())
	}
	return out, nil
}
