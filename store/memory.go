package store

import (
	"container/list"
	"context"
	"sync"
	"time"
)

// DefaultMemoryCapacity is the entry capacity used when none is configured.
const DefaultMemoryCapacity = 512

// MemoryStore is a bounded in-memory store with least-recently-used
// eviction. It has no expiration: entries live until evicted by capacity
// pressure or removed explicitly. It is the dependency-free fallback used
// when no remote store is configured.
type MemoryStore struct {
	mu       sync.Mutex
	capacity int
	order    *list.List // front = most recently used
	index    map[string]*list.Element
}

type memoryEntry struct {
	key   string
	value string
}

// NewMemoryStore creates a new in-memory store. A capacity of zero or less
// selects DefaultMemoryCapacity.
func NewMemoryStore(capacity int) *MemoryStore {
	if capacity <= 0 {
		capacity = DefaultMemoryCapacity
	}
	return &MemoryStore{
		capacity: capacity,
		order:    list.New(),
		index:    make(map[string]*list.Element, capacity),
	}
}

// Get retrieves a value and promotes it to most-recently-used.
func (s *MemoryStore) Get(_ context.Context, key string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	elem, ok := s.index[key]
	if !ok {
		return "", false
	}
	s.order.MoveToFront(elem)
	return elem.Value.(*memoryEntry).value, true
}

// Set stores a value, evicting the least-recently-used entry if the store
// is at capacity. The expiration argument is ignored: this backend has no
// expiration.
func (s *MemoryStore) Set(_ context.Context, key, value string, _ time.Duration) {
	if ValidateKey(key) != nil {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if elem, ok := s.index[key]; ok {
		elem.Value.(*memoryEntry).value = value
		s.order.MoveToFront(elem)
		return
	}

	if s.order.Len() >= s.capacity {
		oldest := s.order.Back()
		if oldest != nil {
			s.order.Remove(oldest)
			delete(s.index, oldest.Value.(*memoryEntry).key)
		}
	}

	s.index[key] = s.order.PushFront(&memoryEntry{key: key, value: value})
}

// Remove deletes a value unconditionally.
func (s *MemoryStore) Remove(_ context.Context, key string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if elem, ok := s.index[key]; ok {
		s.order.Remove(elem)
		delete(s.index, key)
	}
}

// Shutdown is a no-op: the store has no external resources.
func (s *MemoryStore) Shutdown(_ context.Context) error {
	return nil
}

// Len returns the current number of entries.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.order.Len()
}

// Ensure MemoryStore implements Store
var _ Store = (*MemoryStore)(nil)
