package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"finwise/internal/core"
	"finwise/internal/ledger"
)

// SnapshotWriter persists the store one row per transaction.
type SnapshotWriter interface {
	SaveTransaction(ctx context.Context, t core.Transaction) error
	UpdatePaid(ctx context.Context, id string, paid bool) error
}

// EventPublisher announces store mutations to other processes.
type EventPublisher interface {
	PublishTransactionAdded(ctx context.Context, t core.Transaction) error
	PublishPaidToggled(ctx context.Context, t core.Transaction) error
}

// TransactionService is the command side of the dashboard. Every mutation
// goes through the in-memory ledger first; persistence and publication run
// afterwards and never undo a successful mutation.
type TransactionService struct {
	store     *ledger.Store
	snapshot  SnapshotWriter
	publisher EventPublisher
	closers   []func() error
	timeout   time.Duration
}

// NewTransactionService wires the ledger with its optional snapshot and
// publisher. Either may be nil.
func NewTransactionService(store *ledger.Store, snapshot SnapshotWriter, publisher EventPublisher) *TransactionService {
	return &TransactionService{
		store:     store,
		snapshot:  snapshot,
		publisher: publisher,
		timeout:   5 * time.Second,
	}
}

// OnClose registers a cleanup function run by Close, in registration order.
func (s *TransactionService) OnClose(fn func() error) {
	if fn != nil {
		s.closers = append(s.closers, fn)
	}
}

// AddTransaction validates and stores a new transaction.
func (s *TransactionService) AddTransaction(ctx context.Context, in core.NewTransaction) (core.Transaction, error) {
	t, err := s.store.Add(in)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("add transaction: %w", err)
	}

	if s.snapshot != nil {
		sctx, cancel := context.WithTimeout(ctx, s.timeout)
		err := s.snapshot.SaveTransaction(sctx, t)
		cancel()
		if err != nil {
			slog.ErrorContext(ctx, "Failed to persist transaction",
				"transaction_id", t.ID, "error", err)
		}
	}

	if s.publisher != nil {
		if err := s.publisher.PublishTransactionAdded(ctx, t); err != nil {
			slog.ErrorContext(ctx, "Failed to publish transaction event",
				"transaction_id", t.ID, "event", "added", "error", err)
		}
	}

	return t, nil
}

// TogglePaid flips the paid flag. Unknown ids return core.ErrNotFound.
func (s *TransactionService) TogglePaid(ctx context.Context, id string) (core.Transaction, error) {
	t, err := s.store.TogglePaid(id)
	if err != nil {
		return core.Transaction{}, err
	}

	if s.snapshot != nil {
		sctx, cancel := context.WithTimeout(ctx, s.timeout)
		err := s.snapshot.UpdatePaid(sctx, t.ID, t.Paid)
		cancel()
		if err != nil {
			slog.ErrorContext(ctx, "Failed to persist paid flag",
				"transaction_id", t.ID, "paid", t.Paid, "error", err)
		}
	}

	if s.publisher != nil {
		if err := s.publisher.PublishPaidToggled(ctx, t); err != nil {
			slog.ErrorContext(ctx, "Failed to publish transaction event",
				"transaction_id", t.ID, "event", "paid_toggled", "error", err)
		}
	}

	return t, nil
}

// List returns the transactions newest-added first.
func (s *TransactionService) List() []core.Transaction {
	return s.store.List()
}

// Snapshot returns the transactions with the store version they belong to.
func (s *TransactionService) Snapshot() ([]core.Transaction, uint64) {
	return s.store.Snapshot()
}

func (s *TransactionService) Get(id string) (core.Transaction, bool) {
	return s.store.Get(id)
}

// Close runs the registered cleanup functions and joins their errors.
func (s *TransactionService) Close() error {
	var errs []error
	for _, fn := range s.closers {
		if err := fn(); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("close transaction service: %w", errors.Join(errs...))
	}
	return nil
}
