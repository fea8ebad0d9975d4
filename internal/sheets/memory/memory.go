package memory

import (
	"context"
	"fmt"
	"sync"

	"finwise/internal/core"
	"finwise/internal/sheets"
)

var _ sheets.TransactionExporter = (*Exporter)(nil)

// Exporter keeps exported rows in memory, in export order.
type Exporter struct {
	mu    sync.Mutex
	rows  []core.Transaction
	index map[string]int
}

func New() *Exporter {
	return &Exporter{index: map[string]int{}}
}

// Export stores t and returns a synthetic row reference.
func (e *Exporter) Export(_ context.Context, t core.Transaction) (string, error) {
	if t.ID == "" {
		return "", fmt.Errorf("export: %w", core.ErrValidation)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if i, ok := e.index[t.ID]; ok {
		e.rows[i] = t
		return fmt.Sprintf("mem:%d", i+1), nil
	}
	e.rows = append(e.rows, t)
	e.index[t.ID] = len(e.rows) - 1
	return fmt.Sprintf("mem:%d", len(e.rows)), nil
}

func (e *Exporter) UpdatePaid(_ context.Context, id string, paid bool) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	i, ok := e.index[id]
	if !ok {
		return fmt.Errorf("update paid %s: %w", id, core.ErrNotFound)
	}
	e.rows[i].Paid = paid
	return nil
}

// Rows returns a copy of the exported rows.
func (e *Exporter) Rows() []core.Transaction {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]core.Transaction(nil), e.rows...)
}
