package ledger

import (
	"context"
	"sort"
	"sync"
)

// MemoryStore keeps requests in process memory
type MemoryStore struct {
	mu       sync.Mutex
	requests map[string]*CompensationRequest
	byPlayer map[string][]string
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		requests: make(map[string]*CompensationRequest),
		byPlayer: make(map[string][]string),
	}
}

func (s *MemoryStore) Create(ctx context.Context, req *CompensationRequest) (*CompensationRequest, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.requests[req.ID]; ok {
		return existing.clone(), false, nil
	}

	stored := req.clone()
	s.requests[req.ID] = stored
	s.byPlayer[req.PlayerID] = append(s.byPlayer[req.PlayerID], req.ID)
	return stored.clone(), true, nil
}

func (s *MemoryStore) Get(ctx context.Context, id string) (*CompensationRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	req, ok := s.requests[id]
	if !ok {
		return nil, ErrNotFound
	}
	return req.clone(), nil
}

func (s *MemoryStore) CompareAndSetStatus(ctx context.Context, id string, from, to Status, mutate func(*CompensationRequest)) (*CompensationRequest, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	req, ok := s.requests[id]
	if !ok {
		return nil, false, ErrNotFound
	}
	if req.Status != from {
		return req.clone(), false, nil
	}

	updated := req.clone()
	updated.Status = to
	if mutate != nil {
		mutate(updated)
	}
	s.requests[id] = updated
	return updated.clone(), true, nil
}

func (s *MemoryStore) ListByPlayer(ctx context.Context, playerID string) ([]*CompensationRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids := s.byPlayer[playerID]
	out := make([]*CompensationRequest, 0, len(ids))
	for _, id := range ids {
		out = append(out, s.requests[id].clone())
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}
