package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"finwise/internal/core"
	ports "finwise/internal/sheets"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

// Ensure interface conformance
var _ ports.TransactionExporter = (*Client)(nil)

const defaultRowCacheTTL = 5 * time.Minute

// Options configures a Client.
type Options struct {
	SpreadsheetID string
	SheetName     string
	// Service account credentials: inline JSON takes precedence over the file.
	CredentialsJSON string
	CredentialsFile string
	RowCacheTTL     time.Duration
}

// Client writes transactions to one sheet, one row per transaction, keyed by
// the id in column A.
type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheetName     string

	// id -> 1-based row number, refreshed from column A when stale.
	cacheMu     sync.Mutex
	rowCache    map[string]int
	rowCount    int
	cacheExpiry time.Time
	cacheTTL    time.Duration
}

// New creates a Sheets client authenticated with a service account.
func New(ctx context.Context, opts Options) (*Client, error) {
	if strings.TrimSpace(opts.SpreadsheetID) == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}
	svc, err := newSheetsService(ctx, opts.CredentialsJSON, opts.CredentialsFile)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}
	return newClient(svc, opts), nil
}

func newClient(svc *gsheet.Service, opts Options) *Client {
	sheet := strings.TrimSpace(opts.SheetName)
	if sheet == "" {
		sheet = "Transactions"
	}
	ttl := opts.RowCacheTTL
	if ttl <= 0 {
		ttl = defaultRowCacheTTL
	}
	return &Client{
		svc:           svc,
		spreadsheetID: strings.TrimSpace(opts.SpreadsheetID),
		sheetName:     sheet,
		cacheTTL:      ttl,
	}
}

func newSheetsService(ctx context.Context, credentialsJSON, credentialsFile string) (*gsheet.Service, error) {
	credentialsJSON = strings.TrimSpace(credentialsJSON)
	credentialsFile = strings.TrimSpace(credentialsFile)
	if credentialsJSON == "" && credentialsFile == "" {
		credentialsFile = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	var creds []byte
	switch {
	case credentialsJSON != "":
		slog.InfoContext(ctx, "Using inline JSON credentials")
		creds = []byte(credentialsJSON)
	case credentialsFile != "":
		slog.InfoContext(ctx, "Reading credentials from file", "path", credentialsFile)
		b, err := os.ReadFile(credentialsFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		creds = b
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}

	service, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(creds),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return service, nil
}

// Export writes t to its row, appending a new row for unseen ids.
func (c *Client) Export(ctx context.Context, t core.Transaction) (string, error) {
	if t.ID == "" {
		return "", fmt.Errorf("export: %w", core.ErrValidation)
	}
	if c.svc == nil {
		return "", errors.New("sheets service not initialized")
	}

	row, rowCount, err := c.findRow(ctx, t.ID)
	if err != nil {
		return "", err
	}

	vr := &gsheet.ValueRange{Values: [][]any{rowValues(t)}}

	if row > 0 {
		rng := fmt.Sprintf("%s!A%d:G%d", c.sheetName, row, row)
		_, err := c.svc.Spreadsheets.Values.Update(c.spreadsheetID, rng, vr).
			ValueInputOption("USER_ENTERED").Context(ctx).Do()
		if err != nil {
			return "", fmt.Errorf("update %s: %w", rng, err)
		}
		return rng, nil
	}

	if rowCount == 0 {
		if err := c.writeHeader(ctx); err != nil {
			return "", err
		}
	}

	resp, err := c.svc.Spreadsheets.Values.Append(c.spreadsheetID, c.sheetName+"!A:G", vr).
		ValueInputOption("USER_ENTERED").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).Do()
	if err != nil {
		c.invalidateRowCache()
		return "", fmt.Errorf("append to %s: %w", c.sheetName, err)
	}

	ref := ""
	if resp.Updates != nil {
		ref = resp.Updates.UpdatedRange
	}
	if n, ok := rowNumberFromRange(ref); ok {
		c.rememberRow(t.ID, n)
	} else {
		c.invalidateRowCache()
	}
	return ref, nil
}

// UpdatePaid rewrites the paid column of the row holding id.
func (c *Client) UpdatePaid(ctx context.Context, id string, paid bool) error {
	if c.svc == nil {
		return errors.New("sheets service not initialized")
	}
	row, _, err := c.findRow(ctx, id)
	if err != nil {
		return err
	}
	if row == 0 {
		return fmt.Errorf("update paid %s: %w", id, core.ErrNotFound)
	}

	rng := fmt.Sprintf("%s!G%d", c.sheetName, row)
	vr := &gsheet.ValueRange{Values: [][]any{{paidCell(paid)}}}
	_, err = c.svc.Spreadsheets.Values.Update(c.spreadsheetID, rng, vr).
		ValueInputOption("USER_ENTERED").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("update %s: %w", rng, err)
	}
	return nil
}

func (c *Client) writeHeader(ctx context.Context) error {
	rng := c.sheetName + "!A1:G1"
	vr := &gsheet.ValueRange{Values: [][]any{headerRow()}}
	_, err := c.svc.Spreadsheets.Values.Update(c.spreadsheetID, rng, vr).
		ValueInputOption("RAW").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	c.cacheMu.Lock()
	if c.rowCount == 0 {
		c.rowCount = 1
	}
	c.cacheMu.Unlock()
	return nil
}

// findRow returns the row of id (0 when absent) and the number of used rows.
// A cache miss forces one refresh before reporting the id as absent.
func (c *Client) findRow(ctx context.Context, id string) (int, int, error) {
	c.cacheMu.Lock()
	if c.isCacheValid() {
		if row, ok := c.rowCache[id]; ok {
			n := c.rowCount
			c.cacheMu.Unlock()
			return row, n, nil
		}
	}
	c.cacheMu.Unlock()

	if err := c.refreshRowCache(ctx); err != nil {
		return 0, 0, err
	}

	c.cacheMu.Lock()
	defer c.cacheMu.Unlock()
	return c.rowCache[id], c.rowCount, nil
}

func (c *Client) refreshRowCache(ctx context.Context) error {
	rng := c.sheetName + "!A:A"
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("read %s: %w", rng, err)
	}
	index := indexRows(resp.Values)

	c.cacheMu.Lock()
	c.rowCache = index
	c.rowCount = len(resp.Values)
	c.cacheExpiry = time.Now().Add(c.cacheTTL)
	c.cacheMu.Unlock()

	slog.DebugContext(ctx, "Refreshed sheet row index", "sheet", c.sheetName, "rows", len(resp.Values))
	return nil
}

func (c *Client) rememberRow(id string, row int) {
	c.cacheMu.Lock()
	defer c.cacheMu.Unlock()
	if c.rowCache == nil {
		c.rowCache = map[string]int{}
	}
	c.rowCache[id] = row
	if row > c.rowCount {
		c.rowCount = row
	}
}

func (c *Client) invalidateRowCache() {
	c.cacheMu.Lock()
	c.cacheExpiry = time.Time{}
	c.cacheMu.Unlock()
}

// isCacheValid requires cacheMu.
func (c *Client) isCacheValid() bool {
	return c.rowCache != nil && time.Now().Before(c.cacheExpiry)
}
