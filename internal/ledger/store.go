// Package ledger owns the ordered, in-memory collection of transactions.
//
// The store is the only place a transaction changes. New transactions are
// prepended, so List returns them newest-added first regardless of date.
package ledger

import (
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"

	"finwise/internal/core"
)

const maxIDAttempts = 5

type Store struct {
	mu      sync.RWMutex
	items   []core.Transaction
	ids     map[string]struct{}
	version uint64
	newID   func() string
}

// Option configures a Store.
type Option func(*Store)

// WithIDGenerator replaces the UUID generator, mostly for tests.
func WithIDGenerator(gen func() string) Option {
	return func(s *Store) {
		if gen != nil {
			s.newID = gen
		}
	}
}

// New creates a store holding seed in the given order (first element is the
// most recent). Seed transactions must have unique, non-empty ids and
// non-negative amounts.
func New(seed []core.Transaction, opts ...Option) (*Store, error) {
	s := &Store{
		items: make([]core.Transaction, 0, len(seed)),
		ids:   make(map[string]struct{}, len(seed)),
		newID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	for i, t := range seed {
		if strings.TrimSpace(t.ID) == "" {
			return nil, fmt.Errorf("seed transaction %d: empty id", i)
		}
		if _, dup := s.ids[t.ID]; dup {
			return nil, fmt.Errorf("seed transaction %d: duplicate id %q", i, t.ID)
		}
		if !t.Type.IsValid() {
			return nil, fmt.Errorf("seed transaction %q: unknown type %q", t.ID, t.Type)
		}
		if err := t.Amount.Validate(); err != nil {
			return nil, fmt.Errorf("seed transaction %q: %w", t.ID, err)
		}
		s.ids[t.ID] = struct{}{}
		s.items = append(s.items, t)
	}
	return s, nil
}

// Add validates in, assigns a fresh id and prepends the new unpaid
// transaction. On error the store is left untouched.
func (s *Store) Add(in core.NewTransaction) (core.Transaction, error) {
	if err := in.Validate(); err != nil {
		return core.Transaction{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	id, err := s.freshID()
	if err != nil {
		return core.Transaction{}, err
	}
	t := core.Transaction{
		ID:          id,
		Type:        in.Type,
		Amount:      in.Amount,
		Description: strings.TrimSpace(in.Description),
		Category:    strings.TrimSpace(in.Category),
		Date:        in.Date,
		Paid:        false,
	}
	s.items = append([]core.Transaction{t}, s.items...)
	s.ids[id] = struct{}{}
	s.version++
	return t, nil
}

func (s *Store) freshID() (string, error) {
	for i := 0; i < maxIDAttempts; i++ {
		id := s.newID()
		if id == "" {
			continue
		}
		if _, taken := s.ids[id]; !taken {
			return id, nil
		}
	}
	return "", fmt.Errorf("could not generate a unique transaction id after %d attempts", maxIDAttempts)
}

// TogglePaid flips the paid flag of the transaction with the given id and
// returns the updated record. Unknown ids yield core.ErrNotFound.
func (s *Store) TogglePaid(id string) (core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, t := range s.items {
		if t.ID == id {
			s.items[i] = t.WithPaid(!t.Paid)
			s.version++
			return s.items[i], nil
		}
	}
	return core.Transaction{}, fmt.Errorf("toggle paid %q: %w", id, core.ErrNotFound)
}

// Get returns the transaction with the given id.
func (s *Store) Get(id string) (core.Transaction, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, t := range s.items {
		if t.ID == id {
			return t, true
		}
	}
	return core.Transaction{}, false
}

// List returns a copy of the collection in insertion order, newest first.
func (s *Store) List() []core.Transaction {
	items, _ := s.Snapshot()
	return items
}

// Snapshot returns the collection together with the version it was taken at.
func (s *Store) Snapshot() ([]core.Transaction, uint64) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]core.Transaction, len(s.items))
	copy(out, s.items)
	return out, s.version
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

// Version increases by one on every successful mutation.
func (s *Store) Version() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.version
}
