package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/theimaginaryfoundation/flirtframe/opener"
)

// memoryStore keeps encoded snapshots so callers never share state with it.
type memoryStore struct {
	mu       sync.RWMutex
	sessions map[string][]byte
}

func newMemoryStore() *memoryStore {
	return &memoryStore{sessions: make(map[string][]byte)}
}

func (s *memoryStore) Save(ctx context.Context, id string, snap opener.SessionSnapshot) error {
	if err := validateID(id); err != nil {
		return err
	}
	b, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("memoryStore.Save: marshal: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sessions == nil {
		return ErrClosed
	}
	s.sessions[id] = b
	return nil
}

func (s *memoryStore) Load(ctx context.Context, id string) (*opener.SessionSnapshot, error) {
	if err := validateID(id); err != nil {
		return nil, err
	}

	s.mu.RLock()
	b, exists := s.sessions[id]
	closed := s.sessions == nil
	s.mu.RUnlock()
	if closed {
		return nil, ErrClosed
	}
	if !exists {
		return nil, nil
	}

	var snap opener.SessionSnapshot
	if err := json.Unmarshal(b, &snap); err != nil {
		return nil, fmt.Errorf("memoryStore.Load: unmarshal: %w", err)
	}
	return &snap, nil
}

func (s *memoryStore) Delete(ctx context.Context, id string) error {
	if err := validateID(id); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.sessions == nil {
		return ErrClosed
	}
	delete(s.sessions, id)
	return nil
}

func (s *memoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sessions = nil
	return nil
}
