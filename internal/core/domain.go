package core

import (
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

const (
	Income  TransactionType = "income"
	Expense TransactionType = "expense"
	Savings TransactionType = "savings"
)

const (
	MaxCategoryNameLen    = 30
	MaxTransactionNameLen = 50
	MaxNoteLen            = 200
	MaxFullNameLen        = 50
)

type (
	TransactionType string

	Transaction struct {
		ID         string          `json:"_id"`
		OwnerID    string          `json:"userId"`
		Name       string          `json:"name"`
		Amount     float64         `json:"amount"`
		Currency   Currency        `json:"currency"`
		CategoryID string          `json:"categoryId"`
		Note       string          `json:"note"`
		Date       time.Time       `json:"date"`
		Type       TransactionType `json:"type"`
		CreatedAt  time.Time       `json:"createdAt"`
		UpdatedAt  time.Time       `json:"updatedAt"`
	}

	Category struct {
		ID        string          `json:"_id"`
		Name      string          `json:"name"`
		Emoji     string          `json:"emoji"`
		Type      TransactionType `json:"type"`
		IsDefault bool            `json:"isDefault"`
		OwnerID   string          `json:"userId,omitempty"` // empty for default categories
	}

	User struct {
		ID           string    `json:"id"`
		FullName     string    `json:"fullName"`
		Email        string    `json:"email"`
		PasswordHash string    `json:"-"`
		Verified     bool      `json:"verified"`
		BaseCurrency Currency  `json:"baseCurrency"`
		Theme        string    `json:"theme,omitempty"`
		CreatedAt    time.Time `json:"createdAt"`
		UpdatedAt    time.Time `json:"updatedAt"`
	}
)

var (
	ErrNotFound      = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")
)

// ValidationError carries a message that is safe to return to clients.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

// Invalid builds a ValidationError.
func Invalid(format string, args ...any) error {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}

// IsValidation reports whether err wraps a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// ParseTransactionType accepts the three known types, case-sensitive as stored.
func ParseTransactionType(s string) (TransactionType, bool) {
	switch t := TransactionType(s); t {
	case Income, Expense, Savings:
		return t, true
	}
	return "", false
}

func (t TransactionType) Valid() bool {
	_, ok := ParseTransactionType(string(t))
	return ok
}

func (tx Transaction) Validate() error {
	name := strings.TrimSpace(tx.Name)
	if name == "" {
		return Invalid("Transaction name is required")
	}
	if utf8.RuneCountInString(name) > MaxTransactionNameLen {
		return Invalid("Transaction name cannot exceed %d characters", MaxTransactionNameLen)
	}
	if tx.Amount < 0 {
		return Invalid("Amount must be a positive number")
	}
	if !tx.Currency.Supported() {
		return Invalid("Currency must be one of: %s", strings.Join(SupportedCurrencyCodes(), ", "))
	}
	if strings.TrimSpace(tx.CategoryID) == "" {
		return Invalid("A valid categoryId is required")
	}
	if utf8.RuneCountInString(tx.Note) > MaxNoteLen {
		return Invalid("Note cannot exceed %d characters", MaxNoteLen)
	}
	if tx.Date.IsZero() {
		return Invalid("Date must be in ISO 8601 format")
	}
	if !tx.Type.Valid() {
		return Invalid("Transaction type must be one of: income, expense, savings")
	}
	return nil
}

func (c Category) Validate() error {
	name := strings.TrimSpace(c.Name)
	if name == "" {
		return Invalid("Category name is required")
	}
	if utf8.RuneCountInString(name) > MaxCategoryNameLen {
		return Invalid("Category name cannot exceed %d characters", MaxCategoryNameLen)
	}
	if !c.Type.Valid() {
		return Invalid("Category type must be one of: income, expense, savings")
	}
	if !c.IsDefault && c.OwnerID == "" {
		return Invalid("userId is required for non-default categories")
	}
	return nil
}

func (u User) Validate() error {
	name := strings.TrimSpace(u.FullName)
	if name == "" {
		return Invalid("Full name is required")
	}
	if utf8.RuneCountInString(name) > MaxFullNameLen {
		return Invalid("Full name cannot exceed %d characters", MaxFullNameLen)
	}
	if !u.BaseCurrency.Supported() {
		return Invalid("Currency must be one of: %s", strings.Join(SupportedCurrencyCodes(), ", "))
	}
	return nil
}
