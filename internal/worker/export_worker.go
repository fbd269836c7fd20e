package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"fintrack/internal/amqp"
	"fintrack/internal/core"
	"fintrack/internal/sheets"
	"fintrack/internal/storage"
)

// unknownCategory is the sheet label for a category that no longer resolves.
const unknownCategory = "Unknown"

// ExportStore is the storage surface the worker reads and acknowledges.
type ExportStore interface {
	GetExportRecord(ctx context.Context, id string) (storage.ExportRecord, error)
	PendingExports(ctx context.Context, limit int) ([]storage.ExportRecord, error)
	MarkExported(ctx context.Context, id string, version int64) error
}

// CategoryResolver looks up the display name of a transaction's category.
type CategoryResolver interface {
	GetVisibleCategory(ctx context.Context, ownerID, id string) (core.Category, error)
}

// ExportWorker mirrors transactions from SQLite into a sheet.
type ExportWorker struct {
	store      ExportStore
	categories CategoryResolver
	exporter   sheets.TransactionExporter
	batchSize  int
}

func NewExportWorker(store ExportStore, categories CategoryResolver, exporter sheets.TransactionExporter, batchSize int) *ExportWorker {
	if batchSize <= 0 {
		batchSize = DefaultSweeperConfig().BatchSize
	}
	return &ExportWorker{
		store:      store,
		categories: categories,
		exporter:   exporter,
		batchSize:  batchSize,
	}
}

// HandleEvent processes one change event. It matches amqp.Handler.
func (w *ExportWorker) HandleEvent(ctx context.Context, e *amqp.TransactionEvent) error {
	slog.InfoContext(ctx, "Processing transaction event",
		"id", e.ID,
		"owner_id", e.OwnerID,
		"action", e.Action)

	switch e.Action {
	case amqp.ActionDelete:
		if err := w.exporter.DeleteTransaction(ctx, e.ID); err != nil {
			return fmt.Errorf("delete exported row: %w", err)
		}
		slog.InfoContext(ctx, "Removed transaction from sheet", "id", e.ID)
		return nil

	case amqp.ActionUpsert:
		rec, err := w.store.GetExportRecord(ctx, e.ID)
		if errors.Is(err, core.ErrNotFound) {
			// deleted after the event was published; its delete event follows
			slog.InfoContext(ctx, "Transaction no longer exists, skipping export", "id", e.ID)
			return nil
		}
		if err != nil {
			return fmt.Errorf("get export record: %w", err)
		}
		return w.export(ctx, rec)

	default:
		return fmt.Errorf("unknown action: %s", e.Action)
	}
}

// ProcessPending exports up to one batch of transactions whose latest version
// has not reached the sheet. It returns how many rows were exported.
func (w *ExportWorker) ProcessPending(ctx context.Context) (int, error) {
	return w.processPending(ctx, w.batchSize)
}

// StartupCheck runs a larger sweep to recover events missed while the worker
// was down.
func (w *ExportWorker) StartupCheck(ctx context.Context) error {
	exported, err := w.processPending(ctx, w.batchSize*5)
	if err != nil {
		return fmt.Errorf("startup export check: %w", err)
	}
	if exported == 0 {
		slog.InfoContext(ctx, "No pending exports found on startup")
	}
	return nil
}

func (w *ExportWorker) processPending(ctx context.Context, limit int) (int, error) {
	pending, err := w.store.PendingExports(ctx, limit)
	if err != nil {
		return 0, fmt.Errorf("get pending exports: %w", err)
	}
	if len(pending) == 0 {
		return 0, nil
	}

	slog.InfoContext(ctx, "Processing pending exports", "count", len(pending))

	exported, failed := 0, 0
	for _, rec := range pending {
		if ctx.Err() != nil {
			return exported, ctx.Err()
		}
		if err := w.export(ctx, rec); err != nil {
			slog.ErrorContext(ctx, "Failed to export transaction", "id", rec.Transaction.ID, "error", err)
			failed++
			continue
		}
		exported++
	}

	slog.InfoContext(ctx, "Pending export sweep completed",
		"total", len(pending),
		"exported", exported,
		"errors", failed)

	return exported, nil
}

func (w *ExportWorker) export(ctx context.Context, rec storage.ExportRecord) error {
	tx := rec.Transaction
	row := sheets.NewRow(tx, w.categoryName(ctx, tx))

	if err := w.exporter.UpsertTransaction(ctx, row); err != nil {
		return fmt.Errorf("upsert exported row: %w", err)
	}

	if err := w.store.MarkExported(ctx, tx.ID, rec.Version); err != nil {
		// the row is in the sheet; the next sweep rewrites it idempotently
		slog.ErrorContext(ctx, "Failed to mark transaction as exported", "id", tx.ID, "error", err)
	}

	slog.InfoContext(ctx, "Exported transaction",
		"id", tx.ID,
		"version", rec.Version,
		"category", row.Category)
	return nil
}

func (w *ExportWorker) categoryName(ctx context.Context, tx core.Transaction) string {
	if tx.CategoryID == "" {
		return unknownCategory
	}
	cat, err := w.categories.GetVisibleCategory(ctx, tx.OwnerID, tx.CategoryID)
	if err != nil {
		if !errors.Is(err, core.ErrNotFound) {
			slog.WarnContext(ctx, "Failed to resolve category", "id", tx.ID, "category_id", tx.CategoryID, "error", err)
		}
		return unknownCategory
	}
	return cat.Name
}
