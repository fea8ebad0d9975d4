package cache

import (
	"math"
	"sync"
	"time"
)

// slots keeps one value per named slot together with the ledger version it
// was computed from. A lookup at any other version misses. Past maxSize the
// slot read or written longest ago is dropped.
type slots[T any] struct {
	mu      sync.Mutex
	maxSize int
	ttl     time.Duration // zero keeps values until a newer version
	now     func() time.Time

	entries map[string]*slot[T]
	clock   uint64 // bumped on every access, orders slots by recency
	latest  uint64 // highest version stored so far
}

type slot[T any] struct {
	version  uint64
	value    T
	storedAt time.Time
	lastUse  uint64
}

func newSlots[T any](maxSize int, ttl time.Duration) *slots[T] {
	if maxSize <= 0 {
		maxSize = 1
	}
	return &slots[T]{
		maxSize: maxSize,
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[string]*slot[T]),
	}
}

func (s *slots[T]) lookup(name string, version uint64) (T, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var zero T
	e, ok := s.entries[name]
	if !ok || e.version != version {
		return zero, false
	}
	if s.expired(e, s.now()) {
		delete(s.entries, name)
		return zero, false
	}
	s.clock++
	e.lastUse = s.clock
	return e.value, true
}

// store records value for name at version. A value computed from an older
// snapshot never replaces one from a newer version.
func (s *slots[T]) store(name string, version uint64, value T) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if e, ok := s.entries[name]; ok && e.version > version {
		return
	}
	if version > s.latest {
		s.latest = version
	}
	s.clock++
	s.entries[name] = &slot[T]{version: version, value: value, storedAt: s.now(), lastUse: s.clock}
	for len(s.entries) > s.maxSize {
		s.evictLeastRecent()
	}
}

func (s *slots[T]) evictLeastRecent() {
	victim, oldest := "", uint64(math.MaxUint64)
	for name, e := range s.entries {
		if e.lastUse < oldest {
			victim, oldest = name, e.lastUse
		}
	}
	delete(s.entries, victim)
}

func (s *slots[T]) expired(e *slot[T], now time.Time) bool {
	return s.ttl > 0 && now.Sub(e.storedAt) > s.ttl
}

// prune drops slots past their ttl and slots computed from a version older
// than the latest one stored, which no reader will ask for again.
func (s *slots[T]) prune() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	removed := 0
	for name, e := range s.entries {
		if e.version < s.latest || s.expired(e, now) {
			delete(s.entries, name)
			removed++
		}
	}
	return removed
}

func (s *slots[T]) size() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}
