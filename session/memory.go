package session

import (
	"context"
	"sync"
)

// MemoryStore keeps the pair in process memory.
type MemoryStore struct {
	mu   sync.RWMutex
	pair TokenPair
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Get(context.Context) (TokenPair, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.pair, nil
}

func (s *MemoryStore) Set(_ context.Context, pair TokenPair) error {
	s.mu.Lock()
	s.pair = pair
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) SetAccess(_ context.Context, access string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pair.Refresh == "" {
		return ErrNoSession
	}
	s.pair.Access = access
	return nil
}

func (s *MemoryStore) Clear(context.Context) error {
	s.mu.Lock()
	s.pair = TokenPair{}
	s.mu.Unlock()
	return nil
}
