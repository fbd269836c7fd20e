package services

import (
	"context"
	"time"

	"fintrack/internal/amqp"
	"fintrack/internal/core"
)

// EventPublisher announces committed transaction writes.
type EventPublisher interface {
	PublishTransactionEvent(ctx context.Context, e *amqp.TransactionEvent) error
}

type TransactionStore interface {
	CreateTransaction(ctx context.Context, tx core.Transaction) (core.Transaction, error)
	GetTransaction(ctx context.Context, ownerID, id string) (core.Transaction, error)
	UpdateTransaction(ctx context.Context, tx core.Transaction) (core.Transaction, error)
	DeleteTransaction(ctx context.Context, ownerID, id string) error
	ListTransactions(ctx context.Context, ownerID string, from, to time.Time) ([]core.Transaction, error)
}

type CategoryStore interface {
	SeedDefaultCategories(ctx context.Context) (int, error)
	FindVisibleCategories(ctx context.Context, ownerID string) ([]core.Category, error)
	GetVisibleCategory(ctx context.Context, ownerID, id string) (core.Category, error)
	CreateCategory(ctx context.Context, c core.Category) (core.Category, error)
	UpdateCategory(ctx context.Context, c core.Category) (core.Category, error)
	DeleteCategory(ctx context.Context, ownerID, id string) error
}

type UserStore interface {
	CreateUser(ctx context.Context, u core.User) (core.User, error)
	GetUserByID(ctx context.Context, id string) (core.User, error)
	GetUserByEmail(ctx context.Context, email string) (core.User, error)
	UpdateUserPreferences(ctx context.Context, id string, currency core.Currency, theme string) (core.User, error)
	UpdateUserProfile(ctx context.Context, u core.User) (core.User, error)
	UpdatePasswordHash(ctx context.Context, id, hash string) error
	MarkUserVerified(ctx context.Context, id string) error
}
