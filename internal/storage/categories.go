package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"fintrack/internal/core"
)

const categoryColumns = `id, name, emoji, type, is_default, user_id`

// SeedDefaultCategories inserts the built-in catalog in one transaction. It
// returns core.ErrAlreadyExists when any default category is already stored.
func (r *SQLiteRepository) SeedDefaultCategories(ctx context.Context) (int, error) {
	if r.db == nil {
		return 0, errors.New("seed default categories: db is nil")
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("seed default categories begin: %w", err)
	}
	defer tx.Rollback()

	var existing int
	if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM categories WHERE is_default = 1;`).Scan(&existing); err != nil {
		return 0, fmt.Errorf("count default categories: %w", err)
	}
	if existing > 0 {
		return 0, core.ErrAlreadyExists
	}

	now := r.timestamp()
	seeds := core.DefaultCategories()
	for _, s := range seeds {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO categories (id, name, emoji, type, is_default, user_id, created_at)
			VALUES (?, ?, ?, ?, 1, NULL, ?);`,
			uuid.NewString(), s.Name, s.Emoji, string(s.Type), now,
		); err != nil {
			return 0, fmt.Errorf("insert default category %s: %w", s.Name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("seed default categories commit: %w", err)
	}
	return len(seeds), nil
}

// FindVisibleCategories returns the default categories followed by those
// owned by ownerID.
func (r *SQLiteRepository) FindVisibleCategories(ctx context.Context, ownerID string) ([]core.Category, error) {
	if r.db == nil {
		return nil, errors.New("find visible categories: db is nil")
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT `+categoryColumns+`
		FROM categories
		WHERE is_default = 1 OR user_id = ?
		ORDER BY is_default DESC, created_at, rowid;`,
		ownerID,
	)
	if err != nil {
		return nil, fmt.Errorf("find visible categories: %w", err)
	}
	defer rows.Close()

	categories := make([]core.Category, 0)
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		categories = append(categories, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("find visible categories rows: %w", err)
	}
	return categories, nil
}

// GetVisibleCategory returns the category id when it is a default one or owned
// by ownerID.
func (r *SQLiteRepository) GetVisibleCategory(ctx context.Context, ownerID, id string) (core.Category, error) {
	if r.db == nil {
		return core.Category{}, errors.New("get category: db is nil")
	}

	row := r.db.QueryRowContext(ctx,
		`SELECT `+categoryColumns+` FROM categories WHERE id = ? AND (is_default = 1 OR user_id = ?);`,
		id, ownerID,
	)
	c, err := scanCategory(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Category{}, core.ErrNotFound
	}
	if err != nil {
		return core.Category{}, fmt.Errorf("get category: %w", err)
	}
	return c, nil
}

// CreateCategory stores c as a user category. The emoji defaults by type.
func (r *SQLiteRepository) CreateCategory(ctx context.Context, c core.Category) (core.Category, error) {
	if r.db == nil {
		return core.Category{}, errors.New("create category: db is nil")
	}

	c.ID = uuid.NewString()
	c.Name = strings.TrimSpace(c.Name)
	c.IsDefault = false
	if c.Emoji == "" {
		c.Emoji = core.DefaultEmoji(c.Type)
	}

	if _, err := r.db.ExecContext(ctx,
		`INSERT INTO categories (id, name, emoji, type, is_default, user_id, created_at)
		VALUES (?, ?, ?, ?, 0, ?, ?);`,
		c.ID, c.Name, c.Emoji, string(c.Type), c.OwnerID, r.timestamp(),
	); err != nil {
		return core.Category{}, fmt.Errorf("create category: %w", err)
	}
	return c, nil
}

// UpdateCategory rewrites name, emoji and type of a category owned by
// c.OwnerID. Default categories are never matched.
func (r *SQLiteRepository) UpdateCategory(ctx context.Context, c core.Category) (core.Category, error) {
	if r.db == nil {
		return core.Category{}, errors.New("update category: db is nil")
	}

	res, err := r.db.ExecContext(ctx,
		`UPDATE categories SET name = ?, emoji = ?, type = ?
		WHERE id = ? AND user_id = ? AND is_default = 0;`,
		strings.TrimSpace(c.Name), c.Emoji, string(c.Type), c.ID, c.OwnerID,
	)
	if err != nil {
		return core.Category{}, fmt.Errorf("update category: %w", err)
	}
	if err := affectedOne(res, "update category"); err != nil {
		return core.Category{}, err
	}
	return r.GetVisibleCategory(ctx, c.OwnerID, c.ID)
}

// DeleteCategory removes a category owned by ownerID. Transactions that
// reference it keep the dangling ID and resolve to the unknown category.
func (r *SQLiteRepository) DeleteCategory(ctx context.Context, ownerID, id string) error {
	if r.db == nil {
		return errors.New("delete category: db is nil")
	}

	res, err := r.db.ExecContext(ctx,
		`DELETE FROM categories WHERE id = ? AND user_id = ? AND is_default = 0;`,
		id, ownerID,
	)
	if err != nil {
		return fmt.Errorf("delete category: %w", err)
	}
	return affectedOne(res, "delete category")
}

func scanCategory(row interface{ Scan(...any) error }) (core.Category, error) {
	var (
		c     core.Category
		typ   string
		owner sql.NullString
	)
	if err := row.Scan(&c.ID, &c.Name, &c.Emoji, &typ, &c.IsDefault, &owner); err != nil {
		return core.Category{}, err
	}
	c.Type = core.TransactionType(typ)
	c.OwnerID = owner.String
	return c, nil
}
