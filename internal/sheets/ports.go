package sheets

import (
	"context"

	"finwise/internal/core"
)

// Ports for outbound adapters.
type (
	// TransactionExporter mirrors ledger rows into an external sheet.
	TransactionExporter interface {
		// Export writes t, replacing the row with the same id when present.
		Export(ctx context.Context, t core.Transaction) (rowRef string, err error)
		// UpdatePaid rewrites only the paid column. Unknown ids return
		// core.ErrNotFound.
		UpdatePaid(ctx context.Context, id string, paid bool) error
	}
)
