package cache

import (
	"container/list"
	"context"
	"sync"
	"time"
)

// MemoryCache is an in-process LRU implementation of Cache. It backs the
// service when no Valkey URL is configured and serves as the L1 of
// MultiLevelCache.
type MemoryCache struct {
	maxItems int
	items    map[string]*list.Element
	lru      *list.List
	mu       sync.Mutex
	now      func() time.Time
}

type memoryItem struct {
	key       string
	data      []byte
	expiresAt time.Time // zero means no expiry
}

// NewMemoryCache creates an LRU cache holding at most maxItems entries
func NewMemoryCache(maxItems int) *MemoryCache {
	if maxItems <= 0 {
		maxItems = 1000
	}
	return &MemoryCache{
		maxItems: maxItems,
		items:    make(map[string]*list.Element),
		lru:      list.New(),
		now:      time.Now,
	}
}

// Get retrieves a value and marks it most recently used
func (m *MemoryCache) Get(ctx context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	elem, found := m.items[key]
	if !found {
		return nil, nil
	}

	item := elem.Value.(*memoryItem)
	if m.expired(item) {
		m.removeElement(elem)
		return nil, nil
	}

	m.lru.MoveToFront(elem)
	return copyBytes(item.data), nil
}

// Set stores a value, evicting the least recently used entries when full
func (m *MemoryCache) Set(ctx context.Context, key string, value []byte, expiration time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var expiresAt time.Time
	if expiration > 0 {
		expiresAt = m.now().Add(expiration)
	}

	if elem, found := m.items[key]; found {
		item := elem.Value.(*memoryItem)
		item.data = copyBytes(value)
		item.expiresAt = expiresAt
		m.lru.MoveToFront(elem)
		return nil
	}

	elem := m.lru.PushFront(&memoryItem{
		key:       key,
		data:      copyBytes(value),
		expiresAt: expiresAt,
	})
	m.items[key] = elem

	for m.lru.Len() > m.maxItems {
		if oldest := m.lru.Back(); oldest != nil {
			m.removeElement(oldest)
		}
	}
	return nil
}

// Delete removes a key
func (m *MemoryCache) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if elem, found := m.items[key]; found {
		m.removeElement(elem)
	}
	return nil
}

// Exists checks for a live key without touching recency
func (m *MemoryCache) Exists(ctx context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	elem, found := m.items[key]
	if !found {
		return false, nil
	}
	return !m.expired(elem.Value.(*memoryItem)), nil
}

// Len returns the number of stored entries, expired ones included
func (m *MemoryCache) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.items)
}

// Close drops all entries
func (m *MemoryCache) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.items = make(map[string]*list.Element)
	m.lru = list.New()
	return nil
}

// Health always succeeds for the in-process cache
func (m *MemoryCache) Health(ctx context.Context) error {
	return nil
}

func (m *MemoryCache) expired(item *memoryItem) bool {
	return !item.expiresAt.IsZero() && !m.now().Before(item.expiresAt)
}

// removeElement removes an element from both the map and list (not thread-safe)
func (m *MemoryCache) removeElement(elem *list.Element) {
	item := elem.Value.(*memoryItem)
	delete(m.items, item.key)
	m.lru.Remove(elem)
}

func copyBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
