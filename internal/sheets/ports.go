package sheets

import (
	"context"
	"strconv"

	"fintrack/internal/core"
)

// Header is the first row of an export sheet. Column A holds the
// transaction ID and is used to locate rows.
var Header = []string{"ID", "Date", "Type", "Name", "Category", "Amount", "Currency", "Note", "Owner"}

// Row is one exported transaction.
type Row struct {
	ID       string
	Date     string
	Type     string
	Name     string
	Category string
	Amount   float64
	Currency string
	Note     string
	Owner    string
}

// NewRow flattens tx for export. categoryName is the resolved display name.
func NewRow(tx core.Transaction, categoryName string) Row {
	return Row{
		ID:       tx.ID,
		Date:     tx.Date.UTC().Format("2006-01-02"),
		Type:     string(tx.Type),
		Name:     tx.Name,
		Category: categoryName,
		Amount:   core.SafeAmount(tx.Amount),
		Currency: string(tx.Currency),
		Note:     tx.Note,
		Owner:    tx.OwnerID,
	}
}

// Values returns the cells of r in Header order.
func (r Row) Values() []any {
	return []any{r.ID, r.Date, r.Type, r.Name, r.Category, r.Amount, r.Currency, r.Note, r.Owner}
}

// Strings renders the cells as text, as a sheet would display them.
func (r Row) Strings() []string {
	return []string{r.ID, r.Date, r.Type, r.Name, r.Category,
		strconv.FormatFloat(r.Amount, 'f', -1, 64), r.Currency, r.Note, r.Owner}
}

// TransactionExporter mirrors transactions into an external sheet. Both
// operations are idempotent.
type TransactionExporter interface {
	// UpsertTransaction rewrites the row whose ID matches, or appends one.
	UpsertTransaction(ctx context.Context, row Row) error
	// DeleteTransaction clears the row for id. A missing row is not an error.
	DeleteTransaction(ctx context.Context, id string) error
}
