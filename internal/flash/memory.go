package flash

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

type entry struct {
	msg     Message
	expires time.Time
}

// MemoryStore is an in-process Store. Expired entries are dropped on Put.
type MemoryStore struct {
	mu    sync.Mutex
	items map[string]entry
	ttl   time.Duration
	now   func() time.Time
}

// NewMemoryStore creates a MemoryStore keeping messages for ttl.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &MemoryStore{
		items: make(map[string]entry),
		ttl:   ttl,
		now:   time.Now,
	}
}

// WithClock overrides the time source.
func (s *MemoryStore) WithClock(now func() time.Time) *MemoryStore {
	s.now = now
	return s
}

func (s *MemoryStore) Put(_ context.Context, msg Message) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	for k, e := range s.items {
		if !e.expires.After(now) {
			delete(s.items, k)
		}
	}

	key := uuid.New().String()
	s.items[key] = entry{msg: msg, expires: now.Add(s.ttl)}
	return key, nil
}

func (s *MemoryStore) Pop(_ context.Context, key string) (*Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.items[key]
	if !ok {
		return nil, nil
	}
	delete(s.items, key)
	if !e.expires.After(s.now()) {
		return nil, nil
	}
	msg := e.msg
	return &msg, nil
}

// Len returns the number of stored entries.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}
