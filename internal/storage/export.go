package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"fintrack/internal/core"
)

// ExportRecord is a transaction together with the version the exporter must
// acknowledge once the row reached the sheet.
type ExportRecord struct {
	Transaction core.Transaction
	Version     int64
}

// GetExportRecord loads a transaction by ID regardless of owner.
func (r *SQLiteRepository) GetExportRecord(ctx context.Context, id string) (ExportRecord, error) {
	if r.db == nil {
		return ExportRecord{}, errors.New("get export record: db is nil")
	}

	row := r.db.QueryRowContext(ctx,
		`SELECT `+transactionColumns+`, version FROM transactions WHERE id = ?;`, id)
	rec, err := scanExportRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return ExportRecord{}, core.ErrNotFound
	}
	if err != nil {
		return ExportRecord{}, fmt.Errorf("get export record: %w", err)
	}
	return rec, nil
}

// PendingExports returns up to limit transactions whose latest version has not
// been exported, oldest update first.
func (r *SQLiteRepository) PendingExports(ctx context.Context, limit int) ([]ExportRecord, error) {
	if r.db == nil {
		return nil, errors.New("pending exports: db is nil")
	}
	if limit <= 0 {
		return []ExportRecord{}, nil
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT `+transactionColumns+`, version
		FROM transactions
		WHERE exported_version < version
		ORDER BY updated_at, rowid
		LIMIT ?;`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("pending exports: %w", err)
	}
	defer rows.Close()

	records := make([]ExportRecord, 0)
	for rows.Next() {
		rec, err := scanExportRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan export record: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("pending exports rows: %w", err)
	}
	return records, nil
}

// MarkExported records that version of transaction id reached the sheet. An
// older version never overwrites a newer acknowledgement.
func (r *SQLiteRepository) MarkExported(ctx context.Context, id string, version int64) error {
	if r.db == nil {
		return errors.New("mark exported: db is nil")
	}

	if _, err := r.db.ExecContext(ctx,
		`UPDATE transactions SET exported_version = ? WHERE id = ? AND exported_version < ?;`,
		version, id, version,
	); err != nil {
		return fmt.Errorf("mark exported: %w", err)
	}
	return nil
}

func scanExportRecord(row interface{ Scan(...any) error }) (ExportRecord, error) {
	var rec ExportRecord
	tx, err := scanTransaction(row, &rec.Version)
	if err != nil {
		return ExportRecord{}, err
	}
	rec.Transaction = tx
	return rec, nil
}
