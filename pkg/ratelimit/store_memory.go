package ratelimit

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is an in-process Store.
//
// Entries are tracked in a map guarded by a single mutex; Increment holds the
// lock across the read and the write. The number of keys is bounded by MaxKeys:
// when a new key arrives at capacity, expired entries are purged first and only
// then the least recently used entries are evicted.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]*Entry
	maxKeys int
	lru     *lruList

	// onEvict is called with the number of entries evicted to make room.
	onEvict func(n int)
}

// MemoryStoreConfig configures a MemoryStore.
type MemoryStoreConfig struct {
	// MaxKeys is the maximum number of tracked keys (default 10000).
	MaxKeys int

	// OnEvict is called after LRU eviction with the number of evicted keys. Optional.
	OnEvict func(n int)
}

// NewMemoryStore creates a MemoryStore.
func NewMemoryStore(cfg MemoryStoreConfig) *MemoryStore {
	if cfg.MaxKeys <= 0 {
		cfg.MaxKeys = 10000
	}
	return &MemoryStore{
		entries: make(map[string]*Entry),
		maxKeys: cfg.MaxKeys,
		lru:     newLRUList(),
		onEvict: cfg.OnEvict,
	}
}

// Increment implements Store.
func (s *MemoryStore) Increment(_ context.Context, key string, limit int, window time.Duration, now time.Time) (Entry, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, exists := s.entries[key]
	if !exists || e.Expired(now) {
		if !exists && len(s.entries) >= s.maxKeys {
			s.makeRoom(now)
		}
		e = &Entry{Count: 1, ResetAt: now.Add(window)}
		s.entries[key] = e
		s.lru.touch(key)
		return *e, true, nil
	}

	s.lru.touch(key)
	if e.Count >= limit {
		return *e, false, nil
	}
	e.Count++
	return *e, true, nil
}

// Peek implements Store.
func (s *MemoryStore) Peek(_ context.Context, key string) (Entry, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[key]
	if !ok {
		return Entry{}, false, nil
	}
	return *e, true, nil
}

// Cleanup implements Store.
func (s *MemoryStore) Cleanup(_ context.Context, now time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.purgeExpired(now), nil
}

// KeyCount implements Store.
func (s *MemoryStore) KeyCount(_ context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.entries), nil
}

func (s *MemoryStore) purgeExpired(now time.Time) int {
	removed := 0
	for key, e := range s.entries {
		if e.Expired(now) {
			delete(s.entries, key)
			s.lru.remove(key)
			removed++
		}
	}
	return removed
}

// makeRoom must be called with mu held.
func (s *MemoryStore) makeRoom(now time.Time) {
	if s.purgeExpired(now) > 0 && len(s.entries) < s.maxKeys {
		return
	}

	evictCount := s.maxKeys / 10
	if evictCount < 1 {
		evictCount = 1
	}

	evicted := 0
	for evicted < evictCount && s.lru.tail != nil {
		key := s.lru.tail.key
		delete(s.entries, key)
		s.lru.remove(key)
		evicted++
	}

	if evicted > 0 && s.onEvict != nil {
		s.onEvict(evicted)
	}
}

// lruList is a doubly-linked list of keys ordered from most (head) to least (tail) recently used.
type lruList struct {
	head  *lruNode
	tail  *lruNode
	nodes map[string]*lruNode
}

type lruNode struct {
	key  string
	prev *lruNode
	next *lruNode
}

func newLRUList() *lruList {
	return &lruList{nodes: make(map[string]*lruNode)}
}

// touch moves key to the head, inserting it when absent.
func (l *lruList) touch(key string) {
	if node, ok := l.nodes[key]; ok {
		if node == l.head {
			return
		}
		l.unlink(node)
		l.pushFront(node)
		return
	}

	node := &lruNode{key: key}
	l.pushFront(node)
	l.nodes[key] = node
}

func (l *lruList) remove(key string) {
	node, ok := l.nodes[key]
	if !ok {
		return
	}
	l.unlink(node)
	delete(l.nodes, key)
}

func (l *lruList) pushFront(node *lruNode) {
	node.prev = nil
	node.next = l.head
	if l.head != nil {
		l.head.prev = node
	}
	l.head = node
	if l.tail == nil {
		l.tail = node
	}
}

func (l *lruList) unlink(node *lruNode) {
	if node.prev != nil {
		node.prev.next = node.next
	} else {
		l.head = node.next
	}
	if node.next != nil {
		node.next.prev = node.prev
	} else {
		l.tail = node.prev
	}
	node.prev = nil
	node.next = nil
}
