package session

import (
	"context"
	"sync"
	"time"

	"github.com/Skotchmaster/account_service/internal/domain"
)

type memoryEntry struct {
	entry     Entry
	expiresAt time.Time
}

// MemoryStore is a process-local Store for single-instance runs and tests.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
	ttl     time.Duration
	now     func() time.Time
}

func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]memoryEntry),
		ttl:     ttl,
		now:     time.Now,
	}
}

func (s *MemoryStore) live(me memoryEntry) bool {
	return me.expiresAt.IsZero() || s.now().Before(me.expiresAt)
}

func (s *MemoryStore) Get(_ context.Context, userID string) (*Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	me, ok := s.entries[userID]
	if !ok || !s.live(me) {
		return nil, nil
	}
	e := me.entry
	return &e, nil
}

func (s *MemoryStore) Set(_ context.Context, e Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	me := memoryEntry{entry: e}
	if s.ttl > 0 {
		me.expiresAt = s.now().Add(s.ttl)
	}
	s.entries[e.UserID] = me
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, userID)
	return nil
}

func (s *MemoryStore) UpdateRole(_ context.Context, userID string, role domain.Role) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	me, ok := s.entries[userID]
	if !ok || !s.live(me) {
		return false, nil
	}
	me.entry.Role = role
	s.entries[userID] = me
	return true, nil
}
