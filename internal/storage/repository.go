package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"finwise/internal/core"

	_ "modernc.org/sqlite"
)

// SQLiteRepository keeps a snapshot of the ledger, one row per transaction.
// Rows are never deleted; seq preserves insertion order.
type SQLiteRepository struct {
	db            *sql.DB
	schemaVersion uint
}

// StoredTransaction is a transaction together with its export bookkeeping.
type StoredTransaction struct {
	core.Transaction
	Version         int64
	ExportedVersion int64
}

const selectColumns = `id, type, amount_cents, description, category, occurred_at, paid, version, exported_version`

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// One writer at a time.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if _, err := db.Exec(`PRAGMA busy_timeout = 5000`); err != nil {
		db.Close()
		return nil, fmt.Errorf("set busy timeout: %w", err)
	}

	version, err := RunMigrations(dbPath)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db, schemaVersion: version}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping checks the database connection.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *SQLiteRepository) SchemaVersion() uint {
	return r.schemaVersion
}

// SaveTransaction inserts t as the newest row.
func (r *SQLiteRepository) SaveTransaction(ctx context.Context, t core.Transaction) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO transactions (id, type, amount_cents, description, category, occurred_at, paid)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		t.ID, string(t.Type), t.Amount.Cents, t.Description, t.Category,
		t.Date.Format(time.RFC3339Nano), boolToInt(t.Paid))
	if err != nil {
		return fmt.Errorf("insert transaction %s: %w", t.ID, err)
	}

	slog.DebugContext(ctx, "Transaction saved to SQLite",
		"transaction_id", t.ID,
		"type", t.Type,
		"amount_cents", t.Amount.Cents)
	return nil
}

// UpdatePaid stores the paid flag and bumps the row version so the export
// worker picks the change up.
func (r *SQLiteRepository) UpdatePaid(ctx context.Context, id string, paid bool) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE transactions
		SET paid = ?, version = version + 1, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?`, boolToInt(paid), id)
	if err != nil {
		return fmt.Errorf("update paid %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update paid %s: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("update paid %s: %w", id, core.ErrNotFound)
	}
	return nil
}

// LoadAll returns every stored transaction, newest-added first.
func (r *SQLiteRepository) LoadAll(ctx context.Context) ([]core.Transaction, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+selectColumns+` FROM transactions ORDER BY seq DESC`)
	if err != nil {
		return nil, fmt.Errorf("load transactions: %w", err)
	}
	defer rows.Close()

	var out []core.Transaction
	for rows.Next() {
		st, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, st.Transaction)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transactions: %w", err)
	}
	return out, nil
}

// SeedIfEmpty stores seed when the table has no rows. seed is newest first,
// like the ledger, so it is inserted in reverse.
func (r *SQLiteRepository) SeedIfEmpty(ctx context.Context, seed []core.Transaction) (bool, error) {
	var count int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM transactions`).Scan(&count); err != nil {
		return false, fmt.Errorf("count transactions: %w", err)
	}
	if count > 0 {
		return false, nil
	}
	for i := len(seed) - 1; i >= 0; i-- {
		if err := r.SaveTransaction(ctx, seed[i]); err != nil {
			return false, fmt.Errorf("seed: %w", err)
		}
	}
	return true, nil
}

// GetTransaction returns a single row by id.
func (r *SQLiteRepository) GetTransaction(ctx context.Context, id string) (StoredTransaction, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+selectColumns+` FROM transactions WHERE id = ?`, id)
	st, err := scanTransaction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return StoredTransaction{}, fmt.Errorf("get transaction %s: %w", id, core.ErrNotFound)
	}
	if err != nil {
		return StoredTransaction{}, fmt.Errorf("get transaction %s: %w", id, err)
	}
	return st, nil
}

// ListUnexported returns rows whose latest version has not been exported,
// oldest first.
func (r *SQLiteRepository) ListUnexported(ctx context.Context, limit int) ([]StoredTransaction, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+selectColumns+` FROM transactions
		WHERE exported_version < version
		ORDER BY seq ASC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list unexported: %w", err)
	}
	defer rows.Close()

	var out []StoredTransaction
	for rows.Next() {
		st, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, st)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate unexported: %w", err)
	}
	return out, nil
}

// MarkExported records that version of the row reached the export target.
// Older versions never overwrite a newer mark.
func (r *SQLiteRepository) MarkExported(ctx context.Context, id string, version int64) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE transactions SET exported_version = ?
		WHERE id = ? AND exported_version < ?`, version, id, version)
	if err != nil {
		return fmt.Errorf("mark exported %s: %w", id, err)
	}
	slog.DebugContext(ctx, "Transaction marked as exported", "transaction_id", id, "version", version)
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTransaction(row rowScanner) (StoredTransaction, error) {
	var (
		st         StoredTransaction
		typ        string
		occurredAt string
		paid       int64
	)
	err := row.Scan(&st.ID, &typ, &st.Amount.Cents, &st.Description, &st.Category,
		&occurredAt, &paid, &st.Version, &st.ExportedVersion)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return StoredTransaction{}, err
		}
		return StoredTransaction{}, fmt.Errorf("scan transaction: %w", err)
	}
	st.Type = core.TransactionType(typ)
	st.Paid = paid != 0
	st.Date, err = time.Parse(time.RFC3339Nano, occurredAt)
	if err != nil {
		return StoredTransaction{}, fmt.Errorf("parse date of %s: %w", st.ID, err)
	}
	return st, nil
}

func boolToInt(b bool) int64 {
	if b {
		return 1
	}
	return 0
}
