package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"finwise/internal/amqp"
	"finwise/internal/core"
	"finwise/internal/sheets"
	"finwise/internal/storage"
)

// Repository is the part of the SQLite snapshot the worker reads.
type Repository interface {
	GetTransaction(ctx context.Context, id string) (storage.StoredTransaction, error)
	ListUnexported(ctx context.Context, limit int) ([]storage.StoredTransaction, error)
	MarkExported(ctx context.Context, id string, version int64) error
}

// ExportWorker mirrors the SQLite snapshot into the export sheet. Events
// from AMQP drive it; ProcessPending catches up on anything they missed.
type ExportWorker struct {
	repo      Repository
	exporter  sheets.TransactionExporter
	batchSize int
}

func NewExportWorker(repo Repository, exporter sheets.TransactionExporter, batchSize int) *ExportWorker {
	if batchSize <= 0 {
		batchSize = 50
	}
	return &ExportWorker{repo: repo, exporter: exporter, batchSize: batchSize}
}

// HandleEvent exports the row named by the event. The row is re-read from
// the database so stale or duplicated events are harmless.
func (w *ExportWorker) HandleEvent(ctx context.Context, event *amqp.TransactionEvent) error {
	slog.InfoContext(ctx, "Processing transaction event",
		"kind", event.Kind,
		"transaction_id", event.ID)

	st, err := w.repo.GetTransaction(ctx, event.ID)
	if errors.Is(err, core.ErrNotFound) {
		// Nothing to export; requeueing would loop forever.
		slog.WarnContext(ctx, "Event for unknown transaction dropped",
			"kind", event.Kind,
			"transaction_id", event.ID)
		return nil
	}
	if err != nil {
		return fmt.Errorf("get transaction from storage: %w", err)
	}

	if st.ExportedVersion >= st.Version {
		slog.DebugContext(ctx, "Transaction already exported",
			"transaction_id", st.ID,
			"version", st.Version)
		return nil
	}

	if event.Kind == amqp.EventPaidToggled && st.ExportedVersion > 0 {
		return w.exportPaid(ctx, st)
	}
	return w.export(ctx, st)
}

// ProcessPending exports up to one batch of rows that are behind, oldest
// first, and reports how many succeeded.
func (w *ExportWorker) ProcessPending(ctx context.Context) (int, error) {
	return w.processPending(ctx, w.batchSize)
}

// StartupCheck runs a larger catch-up pass when the worker starts.
func (w *ExportWorker) StartupCheck(ctx context.Context) error {
	n, err := w.processPending(ctx, w.batchSize*5)
	if err != nil {
		return fmt.Errorf("startup export check: %w", err)
	}
	slog.InfoContext(ctx, "Startup export check completed", "exported", n)
	return nil
}

func (w *ExportWorker) processPending(ctx context.Context, limit int) (int, error) {
	pending, err := w.repo.ListUnexported(ctx, limit)
	if err != nil {
		return 0, fmt.Errorf("list unexported transactions: %w", err)
	}
	if len(pending) == 0 {
		return 0, nil
	}

	slog.InfoContext(ctx, "Processing pending exports", "count", len(pending))

	exported := 0
	for _, st := range pending {
		if err := ctx.Err(); err != nil {
			return exported, err
		}
		if err := w.export(ctx, st); err != nil {
			slog.ErrorContext(ctx, "Failed to export transaction",
				"transaction_id", st.ID, "error", err)
			continue
		}
		exported++
	}
	return exported, nil
}

func (w *ExportWorker) exportPaid(ctx context.Context, st storage.StoredTransaction) error {
	err := w.exporter.UpdatePaid(ctx, st.ID, st.Paid)
	if errors.Is(err, core.ErrNotFound) {
		// Row missing from the sheet, write it whole.
		return w.export(ctx, st)
	}
	if err != nil {
		return fmt.Errorf("update paid in sheet: %w", err)
	}
	w.markExported(ctx, st)

	slog.InfoContext(ctx, "Exported paid flag",
		"transaction_id", st.ID,
		"paid", st.Paid,
		"version", st.Version)
	return nil
}

func (w *ExportWorker) export(ctx context.Context, st storage.StoredTransaction) error {
	ref, err := w.exporter.Export(ctx, st.Transaction)
	if err != nil {
		return fmt.Errorf("export to sheet: %w", err)
	}
	w.markExported(ctx, st)

	slog.InfoContext(ctx, "Exported transaction",
		"transaction_id", st.ID,
		"sheet_ref", ref,
		"version", st.Version,
		"amount_cents", st.Amount.Cents)
	return nil
}

func (w *ExportWorker) markExported(ctx context.Context, st storage.StoredTransaction) {
	// The export itself worked; a failed mark only causes a harmless re-export.
	if err := w.repo.MarkExported(ctx, st.ID, st.Version); err != nil {
		slog.ErrorContext(ctx, "Failed to mark as exported", "transaction_id", st.ID, "error", err)
	}
}
