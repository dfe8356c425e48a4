package cache

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is a simple in-memory key-value store with expiration. It
// backs OAuth state and leases in tests and single-instance deployments.
type MemoryStore struct {
	mu    sync.RWMutex
	items map[string]*memoryItem
	now   func() time.Time
	done  chan struct{}
	once  sync.Once
}

type memoryItem struct {
	value      string
	expireTime time.Time
}

// NewMemoryStore creates a new in-memory store
func NewMemoryStore() *MemoryStore {
	store := &MemoryStore{
		items: make(map[string]*memoryItem),
		now:   time.Now,
		done:  make(chan struct{}),
	}

	// Start cleanup goroutine to remove expired items
	go store.cleanupExpired(5 * time.Minute)

	return store
}

// Set stores a key-value pair with expiration
func (ms *MemoryStore) Set(_ context.Context, key, value string, ttl time.Duration) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	ms.items[key] = &memoryItem{value: value, expireTime: ms.now().Add(ttl)}
	return nil
}

// Get retrieves a value by key
func (ms *MemoryStore) Get(_ context.Context, key string) (string, bool, error) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()

	item, ok := ms.live(key)
	if !ok {
		return "", false, nil
	}
	return item.value, true, nil
}

// Delete removes a key
func (ms *MemoryStore) Delete(_ context.Context, key string) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	delete(ms.items, key)
	return nil
}

// SetNX stores value only when key is absent or expired
func (ms *MemoryStore) SetNX(_ context.Context, key, value string, ttl time.Duration) (bool, error) {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	if _, ok := ms.live(key); ok {
		return false, nil
	}
	ms.items[key] = &memoryItem{value: value, expireTime: ms.now().Add(ttl)}
	return true, nil
}

// CompareAndDelete removes key only while it still holds value
func (ms *MemoryStore) CompareAndDelete(_ context.Context, key, value string) (bool, error) {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	item, ok := ms.live(key)
	if !ok || item.value != value {
		return false, nil
	}
	delete(ms.items, key)
	return true, nil
}

// Close stops the cleanup goroutine
func (ms *MemoryStore) Close() error {
	ms.once.Do(func() { close(ms.done) })
	return nil
}

// live returns the unexpired item for key. Callers hold the lock.
func (ms *MemoryStore) live(key string) (*memoryItem, bool) {
	item, exists := ms.items[key]
	if !exists || ms.now().After(item.expireTime) {
		return nil, false
	}
	return item, true
}

// cleanupExpired periodically removes expired items
func (ms *MemoryStore) cleanupExpired(every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ms.done:
			return
		case <-ticker.C:
			ms.mu.Lock()
			now := ms.now()
			for key, item := range ms.items {
				if now.After(item.expireTime) {
					delete(ms.items, key)
				}
			}
			ms.mu.Unlock()
		}
	}
}
