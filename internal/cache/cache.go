package cache

import (
	"log/slog"
	"sync/atomic"
	"time"
)

// Cleaner is implemented by caches that drop expired entries on demand.
type Cleaner interface {
	CleanExpired() int
}

// Memo caches values derived from a versioned source, such as aggregates of
// the ledger. A value computed for one version is never returned for another.
type Memo[T any] struct {
	slots  *slots[T]
	hits   atomic.Int64
	misses atomic.Int64
}

func NewMemo[T any](maxSize int, ttl time.Duration) *Memo[T] {
	return &Memo[T]{slots: newSlots[T](maxSize, ttl)}
}

// Get returns the cached value for key at version, computing and storing it
// on a miss.
func (m *Memo[T]) Get(version uint64, key string, compute func() T) T {
	if v, ok := m.slots.lookup(key, version); ok {
		m.hits.Add(1)
		return v
	}
	m.misses.Add(1)
	v := compute()
	m.slots.store(key, version, v)
	return v
}

// Stats reports hit and miss counts since creation.
func (m *Memo[T]) Stats() (hits, misses int64) {
	return m.hits.Load(), m.misses.Load()
}

func (m *Memo[T]) Size() int {
	return m.slots.size()
}

// CleanExpired drops entries past their ttl or superseded by a newer version.
func (m *Memo[T]) CleanExpired() int {
	return m.slots.prune()
}

// Manager periodically cleans registered caches.
type Manager struct {
	caches      []Cleaner
	stopCleanup chan struct{}
	cleanupDone chan struct{}
	started     bool
}

func NewManager() *Manager {
	return &Manager{
		stopCleanup: make(chan struct{}),
		cleanupDone: make(chan struct{}),
	}
}

// Register adds a cache; call before StartCleanup.
func (m *Manager) Register(cache Cleaner) {
	m.caches = append(m.caches, cache)
}

func (m *Manager) StartCleanup(interval time.Duration) {
	m.started = true
	go m.cleanup(interval)
}

func (m *Manager) cleanup(interval time.Duration) {
	defer close(m.cleanupDone)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			totalCleaned := 0
			for _, cache := range m.caches {
				totalCleaned += cache.CleanExpired()
			}
			if totalCleaned > 0 {
				slog.Debug("Cache cleanup", "removed", totalCleaned)
			}
		case <-m.stopCleanup:
			return
		}
	}
}

// Stop ends the cleanup goroutine and waits for it. Safe to call when
// cleanup was never started.
func (m *Manager) Stop() {
	if !m.started {
		return
	}
	m.started = false
	close(m.stopCleanup)
	<-m.cleanupDone
}
