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

const userColumns = `id, full_name, email, password_hash, verified, base_currency, theme, created_at, updated_at`

// CreateUser inserts u with a fresh ID. The email is stored lowercased and
// must be unique.
func (r *SQLiteRepository) CreateUser(ctx context.Context, u core.User) (core.User, error) {
	if r.db == nil {
		return core.User{}, errors.New("create user: db is nil")
	}

	now := r.timestamp()
	u.ID = uuid.NewString()
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	if u.BaseCurrency == "" {
		u.BaseCurrency = core.DefaultCurrency
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO users (`+userColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?);`,
		u.ID, strings.TrimSpace(u.FullName), u.Email, u.PasswordHash, u.Verified,
		string(u.BaseCurrency), u.Theme, now, now,
	)
	if err != nil {
		if isUniqueConstraintErr(err) {
			return core.User{}, core.ErrAlreadyExists
		}
		return core.User{}, fmt.Errorf("create user: %w", err)
	}

	return r.GetUserByID(ctx, u.ID)
}

func (r *SQLiteRepository) GetUserByID(ctx context.Context, id string) (core.User, error) {
	return r.getUser(ctx, "id = ?", id)
}

func (r *SQLiteRepository) GetUserByEmail(ctx context.Context, email string) (core.User, error) {
	return r.getUser(ctx, "email = ?", strings.ToLower(strings.TrimSpace(email)))
}

func (r *SQLiteRepository) getUser(ctx context.Context, where string, arg any) (core.User, error) {
	if r.db == nil {
		return core.User{}, errors.New("get user: db is nil")
	}

	row := r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE `+where+`;`, arg)
	u, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.User{}, core.ErrNotFound
	}
	if err != nil {
		return core.User{}, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

// UpdateUserPreferences sets the base currency and theme. Empty values leave
// the stored field unchanged.
func (r *SQLiteRepository) UpdateUserPreferences(ctx context.Context, id string, currency core.Currency, theme string) (core.User, error) {
	if r.db == nil {
		return core.User{}, errors.New("update user preferences: db is nil")
	}

	res, err := r.db.ExecContext(ctx,
		`UPDATE users
		SET base_currency = COALESCE(NULLIF(?, ''), base_currency),
			theme = COALESCE(NULLIF(?, ''), theme),
			updated_at = ?
		WHERE id = ?;`,
		string(currency), theme, r.timestamp(), id,
	)
	if err != nil {
		return core.User{}, fmt.Errorf("update user preferences: %w", err)
	}
	if err := affectedOne(res, "update user preferences"); err != nil {
		return core.User{}, err
	}

	return r.GetUserByID(ctx, id)
}

// UpdateUserProfile rewrites name, email and verification state.
func (r *SQLiteRepository) UpdateUserProfile(ctx context.Context, u core.User) (core.User, error) {
	if r.db == nil {
		return core.User{}, errors.New("update user profile: db is nil")
	}

	res, err := r.db.ExecContext(ctx,
		`UPDATE users SET full_name = ?, email = ?, verified = ?, updated_at = ? WHERE id = ?;`,
		strings.TrimSpace(u.FullName), strings.ToLower(strings.TrimSpace(u.Email)), u.Verified, r.timestamp(), u.ID,
	)
	if err != nil {
		if isUniqueConstraintErr(err) {
			return core.User{}, core.ErrAlreadyExists
		}
		return core.User{}, fmt.Errorf("update user profile: %w", err)
	}
	if err := affectedOne(res, "update user profile"); err != nil {
		return core.User{}, err
	}

	return r.GetUserByID(ctx, u.ID)
}

func (r *SQLiteRepository) UpdatePasswordHash(ctx context.Context, id, hash string) error {
	if r.db == nil {
		return errors.New("update password: db is nil")
	}

	res, err := r.db.ExecContext(ctx,
		`UPDATE users SET password_hash = ?, updated_at = ? WHERE id = ?;`,
		hash, r.timestamp(), id,
	)
	if err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	return affectedOne(res, "update password")
}

// MarkUserVerified flags the account as verified. Google sign-ins are
// verified by construction.
func (r *SQLiteRepository) MarkUserVerified(ctx context.Context, id string) error {
	if r.db == nil {
		return errors.New("mark user verified: db is nil")
	}

	res, err := r.db.ExecContext(ctx,
		`UPDATE users SET verified = 1, updated_at = ? WHERE id = ?;`,
		r.timestamp(), id,
	)
	if err != nil {
		return fmt.Errorf("mark user verified: %w", err)
	}
	return affectedOne(res, "mark user verified")
}

func scanUser(row interface{ Scan(...any) error }) (core.User, error) {
	var (
		u                core.User
		currency         string
		created, updated string
	)
	if err := row.Scan(&u.ID, &u.FullName, &u.Email, &u.PasswordHash, &u.Verified,
		&currency, &u.Theme, &created, &updated); err != nil {
		return core.User{}, err
	}
	u.BaseCurrency = core.Currency(currency)

	var err error
	if u.CreatedAt, err = parseTime(created); err != nil {
		return core.User{}, err
	}
	if u.UpdatedAt, err = parseTime(updated); err != nil {
		return core.User{}, err
	}
	return u, nil
}
