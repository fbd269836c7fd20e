package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"fintrack/internal/core"
)

const transactionColumns = `id, user_id, name, amount, currency, category_id, note, occurred_at, type, created_at, updated_at`

// CreateTransaction inserts tx with a fresh ID and returns the stored row.
func (r *SQLiteRepository) CreateTransaction(ctx context.Context, tx core.Transaction) (core.Transaction, error) {
	if r.db == nil {
		return core.Transaction{}, errors.New("create transaction: db is nil")
	}

	now := r.timestamp()
	tx.ID = uuid.NewString()
	if _, err := r.db.ExecContext(ctx,
		`INSERT INTO transactions (`+transactionColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?);`,
		tx.ID, tx.OwnerID, strings.TrimSpace(tx.Name), tx.Amount, string(tx.Currency), tx.CategoryID,
		tx.Note, formatTime(tx.Date), string(tx.Type), now, now,
	); err != nil {
		return core.Transaction{}, fmt.Errorf("create transaction: %w", err)
	}

	return r.GetTransaction(ctx, tx.OwnerID, tx.ID)
}

// GetTransaction returns the transaction id when it belongs to ownerID.
func (r *SQLiteRepository) GetTransaction(ctx context.Context, ownerID, id string) (core.Transaction, error) {
	if r.db == nil {
		return core.Transaction{}, errors.New("get transaction: db is nil")
	}

	row := r.db.QueryRowContext(ctx,
		`SELECT `+transactionColumns+` FROM transactions WHERE id = ? AND user_id = ?;`,
		id, ownerID,
	)
	tx, err := scanTransaction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Transaction{}, core.ErrNotFound
	}
	if err != nil {
		return core.Transaction{}, fmt.Errorf("get transaction: %w", err)
	}
	return tx, nil
}

// UpdateTransaction rewrites every mutable field of tx and bumps its export
// version.
func (r *SQLiteRepository) UpdateTransaction(ctx context.Context, tx core.Transaction) (core.Transaction, error) {
	if r.db == nil {
		return core.Transaction{}, errors.New("update transaction: db is nil")
	}

	res, err := r.db.ExecContext(ctx,
		`UPDATE transactions
		SET name = ?, amount = ?, currency = ?, category_id = ?, note = ?, occurred_at = ?, type = ?,
			updated_at = ?, version = version + 1
		WHERE id = ? AND user_id = ?;`,
		strings.TrimSpace(tx.Name), tx.Amount, string(tx.Currency), tx.CategoryID, tx.Note,
		formatTime(tx.Date), string(tx.Type), r.timestamp(), tx.ID, tx.OwnerID,
	)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("update transaction: %w", err)
	}
	if err := affectedOne(res, "update transaction"); err != nil {
		return core.Transaction{}, err
	}

	return r.GetTransaction(ctx, tx.OwnerID, tx.ID)
}

func (r *SQLiteRepository) DeleteTransaction(ctx context.Context, ownerID, id string) error {
	if r.db == nil {
		return errors.New("delete transaction: db is nil")
	}

	res, err := r.db.ExecContext(ctx, `DELETE FROM transactions WHERE id = ? AND user_id = ?;`, id, ownerID)
	if err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	return affectedOne(res, "delete transaction")
}

// ListTransactions returns an owner's transactions in insertion order. A zero
// from or to leaves that side of the date range open.
func (r *SQLiteRepository) ListTransactions(ctx context.Context, ownerID string, from, to time.Time) ([]core.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE user_id = ?`
	args := []any{ownerID}
	if !from.IsZero() {
		query += ` AND occurred_at >= ?`
		args = append(args, formatTime(from))
	}
	if !to.IsZero() {
		query += ` AND occurred_at < ?`
		args = append(args, formatTime(to))
	}
	query += ` ORDER BY created_at, rowid;`

	return r.queryTransactions(ctx, "list transactions", query, args...)
}

// FindTransactions returns an owner's transactions dated in [from, to).
func (r *SQLiteRepository) FindTransactions(ctx context.Context, ownerID string, from, to time.Time, newestFirst bool) ([]core.Transaction, error) {
	order := `occurred_at, rowid`
	if newestFirst {
		order = `occurred_at DESC, rowid DESC`
	}

	return r.queryTransactions(ctx, "find transactions",
		`SELECT `+transactionColumns+`
		FROM transactions
		WHERE user_id = ? AND occurred_at >= ? AND occurred_at < ?
		ORDER BY `+order+`;`,
		ownerID, formatTime(from), formatTime(to),
	)
}

func (r *SQLiteRepository) queryTransactions(ctx context.Context, op, query string, args ...any) ([]core.Transaction, error) {
	if r.db == nil {
		return nil, fmt.Errorf("%s: db is nil", op)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	txs := make([]core.Transaction, 0)
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		txs = append(txs, tx)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s rows: %w", op, err)
	}
	return txs, nil
}

// scanTransaction reads transactionColumns followed by any extra destinations.
func scanTransaction(row interface{ Scan(...any) error }, extra ...any) (core.Transaction, error) {
	var (
		tx                         core.Transaction
		currency, typ              string
		occurred, created, updated string
	)
	dest := []any{&tx.ID, &tx.OwnerID, &tx.Name, &tx.Amount, &currency, &tx.CategoryID,
		&tx.Note, &occurred, &typ, &created, &updated}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return core.Transaction{}, err
	}
	tx.Currency = core.Currency(currency)
	tx.Type = core.TransactionType(typ)

	var err error
	if tx.Date, err = parseTime(occurred); err != nil {
		return core.Transaction{}, err
	}
	if tx.CreatedAt, err = parseTime(created); err != nil {
		return core.Transaction{}, err
	}
	if tx.UpdatedAt, err = parseTime(updated); err != nil {
		return core.Transaction{}, err
	}
	return tx, nil
}
