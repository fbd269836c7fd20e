package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"strings"
	"time"

	"fintrack/internal/amqp"
	"fintrack/internal/analytics"
	"fintrack/internal/core"
)

// TransactionInput is a create or partial update request. Nil fields are
// absent from the request.
type TransactionInput struct {
	Name       *string  `json:"name"`
	Amount     *float64 `json:"amount"`
	Currency   *string  `json:"currency"`
	CategoryID *string  `json:"categoryId"`
	Note       *string  `json:"note"`
	Date       *string  `json:"date"`
	Type       *string  `json:"type"`
}

// TransactionService orchestrates transaction writes across SQLite and AMQP.
type TransactionService struct {
	store      TransactionStore
	categories CategoryStore
	events     EventPublisher
	now        func() time.Time
}

// NewTransactionService wires the stores. events may be nil, in which case no
// change events are published.
func NewTransactionService(store TransactionStore, categories CategoryStore, events EventPublisher) *TransactionService {
	return &TransactionService{
		store:      store,
		categories: categories,
		events:     events,
		now:        time.Now,
	}
}

func (s *TransactionService) Create(ctx context.Context, ownerID string, in TransactionInput) (core.Transaction, error) {
	if in.Name == nil || strings.TrimSpace(*in.Name) == "" {
		return core.Transaction{}, core.Invalid("Transaction name is required")
	}
	if in.Amount == nil {
		return core.Transaction{}, core.Invalid("Amount must be a positive number")
	}
	if in.Currency == nil || strings.TrimSpace(*in.Currency) == "" {
		return core.Transaction{}, invalidCurrency()
	}
	if in.CategoryID == nil {
		return core.Transaction{}, core.Invalid("A valid categoryId is required")
	}
	if in.Type == nil {
		return core.Transaction{}, invalidType()
	}

	tx := core.Transaction{OwnerID: ownerID, Date: s.now().UTC()}
	if err := s.apply(ctx, &tx, in); err != nil {
		return core.Transaction{}, err
	}
	if err := tx.Validate(); err != nil {
		return core.Transaction{}, err
	}

	created, err := s.store.CreateTransaction(ctx, tx)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("save transaction: %w", err)
	}

	s.publish(ctx, created, amqp.ActionUpsert)
	return created, nil
}

func (s *TransactionService) Update(ctx context.Context, ownerID, id string, in TransactionInput) (core.Transaction, error) {
	if in.Name != nil && strings.TrimSpace(*in.Name) == "" {
		return core.Transaction{}, core.Invalid("Transaction name cannot be empty")
	}

	tx, err := s.store.GetTransaction(ctx, ownerID, id)
	if err != nil {
		return core.Transaction{}, err
	}
	if err := s.apply(ctx, &tx, in); err != nil {
		return core.Transaction{}, err
	}
	if err := tx.Validate(); err != nil {
		return core.Transaction{}, err
	}

	updated, err := s.store.UpdateTransaction(ctx, tx)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("update transaction: %w", err)
	}

	s.publish(ctx, updated, amqp.ActionUpsert)
	return updated, nil
}

// apply copies the present fields of in onto tx, validating each one.
func (s *TransactionService) apply(ctx context.Context, tx *core.Transaction, in TransactionInput) error {
	if in.Name != nil {
		tx.Name = strings.TrimSpace(*in.Name)
	}
	if in.Amount != nil {
		a := *in.Amount
		if a < 0 || math.IsNaN(a) || math.IsInf(a, 0) {
			return core.Invalid("Amount must be a positive number")
		}
		tx.Amount = a
	}
	if in.Currency != nil && *in.Currency != "" {
		c := core.Currency(*in.Currency)
		if !c.Supported() {
			return invalidCurrency()
		}
		tx.Currency = c
	}
	if in.CategoryID != nil {
		id := strings.TrimSpace(*in.CategoryID)
		if id == "" {
			return core.Invalid("A valid categoryId is required")
		}
		if _, err := s.categories.GetVisibleCategory(ctx, tx.OwnerID, id); err != nil {
			if errors.Is(err, core.ErrNotFound) {
				return core.Invalid("A valid categoryId is required")
			}
			return fmt.Errorf("load category: %w", err)
		}
		tx.CategoryID = id
	}
	if in.Note != nil {
		tx.Note = strings.TrimSpace(*in.Note)
	}
	if in.Date != nil && *in.Date != "" {
		d, err := analytics.ParseAnchor(*in.Date, s.now())
		if err != nil {
			return core.Invalid("Date must be in ISO 8601 format")
		}
		tx.Date = d
	}
	if in.Type != nil {
		t, ok := core.ParseTransactionType(*in.Type)
		if !ok {
			return invalidType()
		}
		tx.Type = t
	}
	return nil
}

func (s *TransactionService) Delete(ctx context.Context, ownerID, id string) error {
	if err := s.store.DeleteTransaction(ctx, ownerID, id); err != nil {
		return err
	}

	s.publish(ctx, core.Transaction{ID: id, OwnerID: ownerID}, amqp.ActionDelete)
	return nil
}

func (s *TransactionService) Get(ctx context.Context, ownerID, id string) (core.Transaction, error) {
	return s.store.GetTransaction(ctx, ownerID, id)
}

// List returns every transaction of ownerID, or only those on the UTC day
// named by date when it is not empty.
func (s *TransactionService) List(ctx context.Context, ownerID, date string) ([]core.Transaction, error) {
	if date == "" {
		return s.store.ListTransactions(ctx, ownerID, time.Time{}, time.Time{})
	}

	d, err := analytics.ParseAnchor(date, s.now())
	if err != nil {
		return nil, core.Invalid("Invalid date query param. Use YYYY-MM-DD.")
	}
	day := analytics.CurrentRange(analytics.Daily, d)
	return s.store.ListTransactions(ctx, ownerID, day.Start, day.End)
}

// MonthSummary totals ownerID's transactions per UTC day of the given month.
// Only days with at least one transaction appear in the result.
func (s *TransactionService) MonthSummary(ctx context.Context, ownerID, year, month string) (core.MonthSummary, error) {
	y, yerr := strconv.Atoi(year)
	m, merr := strconv.Atoi(month)
	if yerr != nil || merr != nil || y < 1970 || m < 1 || m > 12 {
		return nil, core.Invalid("year and month query params are invalid")
	}

	start := time.Date(y, time.Month(m), 1, 0, 0, 0, 0, time.UTC)
	txs, err := s.store.ListTransactions(ctx, ownerID, start, start.AddDate(0, 1, 0))
	if err != nil {
		return nil, fmt.Errorf("list month transactions: %w", err)
	}

	summary := make(core.MonthSummary)
	for _, tx := range txs {
		key := tx.Date.UTC().Format("2006-01-02")
		day := summary[key]
		day.Add(tx.Type, tx.Amount)
		summary[key] = day
	}
	return summary, nil
}

func (s *TransactionService) publish(ctx context.Context, tx core.Transaction, action amqp.Action) {
	if s.events == nil {
		slog.DebugContext(ctx, "Event publisher not configured, skipping transaction event", "id", tx.ID)
		return
	}

	// the write is committed; a lost event is repaired by the export sweep
	if err := s.events.PublishTransactionEvent(ctx, amqp.NewTransactionEvent(tx.ID, tx.OwnerID, action)); err != nil {
		slog.ErrorContext(ctx, "Failed to publish transaction event",
			"id", tx.ID,
			"action", action,
			"error", err)
	}
}

func invalidCurrency() error {
	return core.Invalid("Currency must be one of: %s", strings.Join(core.SupportedCurrencyCodes(), ", "))
}

func invalidType() error {
	return core.Invalid("Transaction type must be one of: income, expense, savings")
}
