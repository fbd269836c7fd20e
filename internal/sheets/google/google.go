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

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	ports "fintrack/internal/sheets"
)

const (
	defaultSheetName = "Transactions"
	defaultCacheTTL  = 30 * time.Second
	valueInputOption = "USER_ENTERED"
	lastColumn       = "I"
)

// Client mirrors transactions into one sheet of a spreadsheet. Column A holds
// the transaction ID; the ID to row mapping is cached for cacheValidDuration.
type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheetName     string

	// writeMu serializes writes so two upserts of a new ID cannot both append.
	writeMu sync.Mutex

	mu                 sync.RWMutex
	rowIndex           map[string]int
	cachedRowCount     int
	cacheExpiresAt     time.Time
	cacheValidDuration time.Duration
}

var _ ports.TransactionExporter = (*Client)(nil)

// New creates a Sheets client authenticated with a service account. See
// newSheetsService for the credential lookup order.
func New(ctx context.Context, spreadsheetID, sheetName string) (*Client, error) {
	spreadsheetID = strings.TrimSpace(spreadsheetID)
	if spreadsheetID == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}

	svc, err := newSheetsService(ctx)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}
	return newClient(svc, spreadsheetID, sheetName), nil
}

// NewFromEnv reads GOOGLE_SPREADSHEET_ID and GOOGLE_SHEET_NAME.
func NewFromEnv(ctx context.Context) (*Client, error) {
	return New(ctx, os.Getenv("GOOGLE_SPREADSHEET_ID"), os.Getenv("GOOGLE_SHEET_NAME"))
}

func newClient(svc *gsheet.Service, spreadsheetID, sheetName string) *Client {
	sheetName = strings.TrimSpace(sheetName)
	if sheetName == "" {
		sheetName = defaultSheetName
	}
	return &Client{
		svc:                svc,
		spreadsheetID:      spreadsheetID,
		sheetName:          sheetName,
		cacheValidDuration: defaultCacheTTL,
	}
}

// newSheetsService initializes a Sheets Service using Service Account credentials.
// Uses GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS.
func newSheetsService(ctx context.Context) (*gsheet.Service, error) {
	serviceAccountJSON := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_JSON"))
	serviceAccountFile := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_FILE"))
	if serviceAccountJSON == "" && serviceAccountFile == "" {
		serviceAccountFile = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	var credentialsJSON []byte
	switch {
	case serviceAccountJSON != "":
		slog.InfoContext(ctx, "Using inline JSON credentials")
		credentialsJSON = []byte(serviceAccountJSON)
	case serviceAccountFile != "":
		slog.InfoContext(ctx, "Reading credentials from file", "path", serviceAccountFile)
		var err error
		credentialsJSON, err = os.ReadFile(serviceAccountFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}

	service, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}

	slog.InfoContext(ctx, "Google Sheets service created", "credentials_size", len(credentialsJSON))
	return service, nil
}

// UpsertTransaction rewrites the row holding row.ID, or appends it after the
// last used row. An empty sheet gets the header first.
func (c *Client) UpsertTransaction(ctx context.Context, row ports.Row) error {
	if c.svc == nil {
		return errors.New("sheets service not initialized")
	}
	if strings.TrimSpace(row.ID) == "" {
		return errors.New("upsert transaction: missing id")
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	idx, count, err := c.lookup(ctx, row.ID)
	if err != nil {
		return err
	}

	if idx == 0 {
		if count == 0 {
			if err := c.writeRow(ctx, 1, headerValues()); err != nil {
				return fmt.Errorf("write header: %w", err)
			}
			count = 1
		}
		idx = count + 1
	}

	if err := c.writeRow(ctx, idx, row.Values()); err != nil {
		return fmt.Errorf("upsert transaction %s: %w", row.ID, err)
	}
	c.remember(row.ID, idx)

	slog.DebugContext(ctx, "Exported transaction row", "id", row.ID, "row", idx, "sheet", c.sheetName)
	return nil
}

// DeleteTransaction clears the row holding id.
func (c *Client) DeleteTransaction(ctx context.Context, id string) error {
	if c.svc == nil {
		return errors.New("sheets service not initialized")
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	idx, _, err := c.lookup(ctx, id)
	if err != nil {
		return err
	}
	if idx == 0 {
		slog.DebugContext(ctx, "Transaction row not in sheet, nothing to clear", "id", id)
		return nil
	}

	_, err = c.svc.Spreadsheets.Values.Clear(c.spreadsheetID, c.rowRange(idx), &gsheet.ClearValuesRequest{}).
		Context(ctx).Do()
	if err != nil {
		c.InvalidateRowCache()
		return fmt.Errorf("clear row %d in sheet %s: %w", idx, c.sheetName, err)
	}

	c.mu.Lock()
	delete(c.rowIndex, id)
	c.mu.Unlock()
	return nil
}

// InvalidateRowCache forces the next lookup to read column A again.
func (c *Client) InvalidateRowCache() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.rowIndex = nil
	c.cachedRowCount = 0
	c.cacheExpiresAt = time.Time{}
}

// lookup returns the 1-based row holding id (0 when absent) and the number of
// used rows.
func (c *Client) lookup(ctx context.Context, id string) (int, int, error) {
	c.mu.RLock()
	if c.rowIndex != nil && time.Now().Before(c.cacheExpiresAt) {
		idx, count := c.rowIndex[id], c.cachedRowCount
		c.mu.RUnlock()
		return idx, count, nil
	}
	c.mu.RUnlock()

	rng := fmt.Sprintf("%s!A:A", c.sheetName)
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return 0, 0, fmt.Errorf("read %s: %w", rng, err)
	}

	index := indexRows(resp.Values)

	c.mu.Lock()
	c.rowIndex = index
	c.cachedRowCount = len(resp.Values)
	c.cacheExpiresAt = time.Now().Add(c.cacheValidDuration)
	count := c.cachedRowCount
	c.mu.Unlock()

	return index[id], count, nil
}

func (c *Client) remember(id string, idx int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.rowIndex == nil {
		return
	}
	c.rowIndex[id] = idx
	if idx > c.cachedRowCount {
		c.cachedRowCount = idx
	}
}

func (c *Client) writeRow(ctx context.Context, idx int, values []any) error {
	vr := &gsheet.ValueRange{Values: [][]any{values}}
	_, err := c.svc.Spreadsheets.Values.Update(c.spreadsheetID, c.rowRange(idx), vr).
		ValueInputOption(valueInputOption).Context(ctx).Do()
	if err != nil {
		c.InvalidateRowCache()
		return fmt.Errorf("update row %d in sheet %s: %w", idx, c.sheetName, err)
	}
	return nil
}

func (c *Client) rowRange(idx int) string {
	return fmt.Sprintf("%s!A%d:%s%d", c.sheetName, idx, lastColumn, idx)
}

func headerValues() []any {
	out := make([]any, len(ports.Header))
	for i, h := range ports.Header {
		out[i] = h
	}
	return out
}
