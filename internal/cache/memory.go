package cache

import (
	"context"
	"sync"
	"time"
)

type memoryItem struct {
	entry     Entry
	expiresAt time.Time
}

type MemoryStore struct {
	mu    sync.RWMutex
	items map[string]memoryItem
	now   func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		items: make(map[string]memoryItem),
		now:   time.Now,
	}
}

func (s *MemoryStore) Get(_ context.Context, domain string) (*Entry, error) {
	s.mu.RLock()
	item, ok := s.items[domain]
	s.mu.RUnlock()

	if !ok || !s.now().Before(item.expiresAt) {
		return nil, ErrMiss
	}
	entry := item.entry
	return &entry, nil
}

func (s *MemoryStore) Set(_ context.Context, domain string, entry *Entry, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.items[domain] = memoryItem{entry: *entry, expiresAt: s.now().Add(ttl)}
	s.sweepLocked()
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, domain string) error {
	s.mu.Lock()
	delete(s.items, domain)
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) sweepLocked() {
	now := s.now()
	for k, item := range s.items {
		if !now.Before(item.expiresAt) {
			delete(s.items, k)
		}
	}
}
