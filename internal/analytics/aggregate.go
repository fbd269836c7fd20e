package analytics

import (
	"sort"
	"time"

	"fintrack/internal/core"
)

// RecentLimit is the number of transactions echoed back in a dashboard.
const RecentLimit = 5

// Totals holds per-type sums over a set of transactions.
type Totals struct {
	Income  float64
	Expense float64
	Savings float64
}

func (t Totals) Balance() float64 {
	return t.Income - (t.Expense + t.Savings)
}

func (t Totals) of(typ core.TransactionType) float64 {
	switch typ {
	case core.Income:
		return t.Income
	case core.Expense:
		return t.Expense
	case core.Savings:
		return t.Savings
	}
	return 0
}

// SumByType adds every transaction's amount to the total of its type.
func SumByType(txs []core.Transaction) Totals {
	var t Totals
	for _, tx := range txs {
		amount := core.SafeAmount(tx.Amount)
		switch tx.Type {
		case core.Income:
			t.Income += amount
		case core.Expense:
			t.Expense += amount
		case core.Savings:
			t.Savings += amount
		}
	}
	return t
}

// CategoryIndex resolves category IDs to categories.
type CategoryIndex map[string]core.Category

func IndexCategories(cats []core.Category) CategoryIndex {
	idx := make(CategoryIndex, len(cats))
	for _, c := range cats {
		idx[c.ID] = c
	}
	return idx
}

// Resolve returns the name and emoji of id, or the unknown placeholders when
// the category no longer exists.
func (idx CategoryIndex) Resolve(id string) (name, emoji string) {
	c, ok := idx[id]
	if !ok {
		return core.UnknownCategoryName, core.UnknownCategoryEmoji
	}
	name, emoji = c.Name, c.Emoji
	if name == "" {
		name = core.UnknownCategoryName
	}
	if emoji == "" {
		emoji = core.UnknownCategoryEmoji
	}
	return name, emoji
}

type CategorySummaryRow struct {
	CategoryID            string               `json:"categoryId"`
	CategoryName          string               `json:"categoryName"`
	CategoryEmoji         string               `json:"categoryEmoji"`
	Type                  core.TransactionType `json:"type"`
	Amount                float64              `json:"amount"`
	Count                 int                  `json:"count"`
	PercentageOfTypeTotal float64              `json:"percentageOfTypeTotal"`
}

type categoryTypeKey struct {
	categoryID string
	typ        core.TransactionType
}

// SummarizeCategories groups txs by (category, type). Rows come back sorted by
// amount, largest first; equal amounts keep the order in which their group was
// first seen.
func SummarizeCategories(txs []core.Transaction, idx CategoryIndex, totals Totals) []CategorySummaryRow {
	positions := make(map[categoryTypeKey]int)
	rows := make([]CategorySummaryRow, 0)

	for _, tx := range txs {
		key := categoryTypeKey{categoryID: tx.CategoryID, typ: tx.Type}
		pos, ok := positions[key]
		if !ok {
			name, emoji := idx.Resolve(tx.CategoryID)
			rows = append(rows, CategorySummaryRow{
				CategoryID:    tx.CategoryID,
				CategoryName:  name,
				CategoryEmoji: emoji,
				Type:          tx.Type,
			})
			pos = len(rows) - 1
			positions[key] = pos
		}
		rows[pos].Amount += core.SafeAmount(tx.Amount)
		rows[pos].Count++
	}

	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].Amount > rows[j].Amount
	})

	for i := range rows {
		rows[i].PercentageOfTypeTotal = ratioPercent(rows[i].Amount, totals.of(rows[i].Type))
	}
	return rows
}

// BuildTrend distributes txs over the buckets of rng. Transactions whose key
// has no bucket are skipped.
func BuildTrend(p PeriodType, rng PeriodRange, txs []core.Transaction) []TrendPoint {
	buckets := SeedBuckets(p, rng)
	byKey := make(map[string]*Bucket, len(buckets))
	for i := range buckets {
		byKey[buckets[i].Key] = &buckets[i]
	}

	for _, tx := range txs {
		b, ok := byKey[BucketKey(p, tx.Date)]
		if !ok {
			continue
		}
		b.add(tx.Type, core.SafeAmount(tx.Amount))
	}

	points := make([]TrendPoint, 0, len(buckets))
	for _, b := range buckets {
		points = append(points, b.point())
	}
	return points
}

type TopCategory struct {
	CategoryID string  `json:"categoryId"`
	Name       string  `json:"name"`
	Emoji      string  `json:"emoji"`
	Amount     float64 `json:"amount"`
}

type Insights struct {
	TopExpenseCategory   *TopCategory `json:"topExpenseCategory"`
	SavingsRate          float64      `json:"savingsRate"`
	ExpenseVsPreviousPct float64      `json:"expenseVsPreviousPct"`
	NetFlow              float64      `json:"netFlow"`
}

// BuildInsights derives insights from already sorted category rows.
func BuildInsights(rows []CategorySummaryRow, current, previous Totals) Insights {
	ins := Insights{
		SavingsRate:          ratioPercent(current.Savings, current.Income),
		ExpenseVsPreviousPct: PercentChange(current.Expense, previous.Expense),
		NetFlow:              current.Balance(),
	}
	for _, r := range rows {
		if r.Type != core.Expense {
			continue
		}
		ins.TopExpenseCategory = &TopCategory{
			CategoryID: r.CategoryID,
			Name:       r.CategoryName,
			Emoji:      r.CategoryEmoji,
			Amount:     r.Amount,
		}
		break
	}
	return ins
}

type RecentTransaction struct {
	ID            string               `json:"_id"`
	Name          string               `json:"name"`
	Amount        float64              `json:"amount"`
	Currency      core.Currency        `json:"currency"`
	Type          core.TransactionType `json:"type"`
	Note          string               `json:"note"`
	Date          time.Time            `json:"date"`
	CategoryID    string               `json:"categoryId"`
	CategoryName  string               `json:"categoryName"`
	CategoryEmoji string               `json:"categoryEmoji"`
}

// RecentTransactions returns the first limit entries of txs, which the caller
// has already ordered newest first.
func RecentTransactions(txs []core.Transaction, idx CategoryIndex, limit int) []RecentTransaction {
	if limit < 0 {
		limit = 0
	}
	if len(txs) < limit {
		limit = len(txs)
	}
	out := make([]RecentTransaction, 0, limit)
	for _, tx := range txs[:limit] {
		name, emoji := idx.Resolve(tx.CategoryID)
		out = append(out, RecentTransaction{
			ID:            tx.ID,
			Name:          tx.Name,
			Amount:        tx.Amount,
			Currency:      tx.Currency,
			Type:          tx.Type,
			Note:          tx.Note,
			Date:          tx.Date,
			CategoryID:    tx.CategoryID,
			CategoryName:  name,
			CategoryEmoji: emoji,
		})
	}
	return out
}
