package analytics

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"fintrack/internal/core"
)

const isoMillis = "2006-01-02T15:04:05.000Z07:00"

// TransactionFinder returns an owner's transactions with Date in [from, to).
// When newestFirst is set the result is sorted by Date descending.
type TransactionFinder interface {
	FindTransactions(ctx context.Context, ownerID string, from, to time.Time, newestFirst bool) ([]core.Transaction, error)
}

// CategoryFinder returns the default categories plus those owned by ownerID.
type CategoryFinder interface {
	FindVisibleCategories(ctx context.Context, ownerID string) ([]core.Category, error)
}

// Query is the raw dashboard input as received from a client.
type Query struct {
	PeriodType string
	Date       string
}

// Request is a validated Query.
type Request struct {
	Period PeriodType
	Anchor time.Time
}

type Changes struct {
	IncomePct  float64 `json:"incomePct"`
	ExpensePct float64 `json:"expensePct"`
	SavingsPct float64 `json:"savingsPct"`
	BalancePct float64 `json:"balancePct"`
}

type Summary struct {
	PeriodType       PeriodType `json:"periodType"`
	Date             string     `json:"date"`
	RangeStart       string     `json:"rangeStart"`
	RangeEnd         string     `json:"rangeEnd"`
	Income           float64    `json:"income"`
	Expense          float64    `json:"expense"`
	Savings          float64    `json:"savings"`
	Balance          float64    `json:"balance"`
	TransactionCount int        `json:"transactionCount"`
	Changes          Changes    `json:"changes"`
}

type Dashboard struct {
	Summary            Summary              `json:"summary"`
	CategorySummary    []CategorySummaryRow `json:"categorySummary"`
	TrendSummary       []TrendPoint         `json:"trendSummary"`
	Insights           Insights             `json:"insights"`
	RecentTransactions []RecentTransaction  `json:"recentTransactions"`
}

// Service assembles dashboards from a transaction and a category store.
type Service struct {
	txs  TransactionFinder
	cats CategoryFinder
	now  func() time.Time
}

func NewService(txs TransactionFinder, cats CategoryFinder) *Service {
	return &Service{txs: txs, cats: cats, now: time.Now}
}

// Resolve validates q. Errors are ErrInvalidPeriodType or ErrInvalidDate.
func (s *Service) Resolve(q Query) (Request, error) {
	p, err := ParsePeriodType(q.PeriodType)
	if err != nil {
		return Request{}, err
	}
	anchor, err := ParseAnchor(q.Date, s.now())
	if err != nil {
		return Request{}, err
	}
	return Request{Period: p, Anchor: anchor}, nil
}

// Dashboard fetches the current period, the previous period and the visible
// categories concurrently, then aggregates them. The first failing fetch
// cancels the others and fails the whole call.
func (s *Service) Dashboard(ctx context.Context, ownerID string, q Query) (*Dashboard, error) {
	req, err := s.Resolve(q)
	if err != nil {
		return nil, err
	}

	rng := CurrentRange(req.Period, req.Anchor)
	prev := PreviousRange(req.Period, rng.Start)

	var (
		current  []core.Transaction
		previous []core.Transaction
		cats     []core.Category
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		current, err = s.txs.FindTransactions(gctx, ownerID, rng.Start, rng.End, true)
		if err != nil {
			return fmt.Errorf("fetch current transactions: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		previous, err = s.txs.FindTransactions(gctx, ownerID, prev.Start, prev.End, false)
		if err != nil {
			return fmt.Errorf("fetch previous transactions: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		cats, err = s.cats.FindVisibleCategories(gctx, ownerID)
		if err != nil {
			return fmt.Errorf("fetch categories: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	d := Assemble(req, current, previous, cats)

	slog.DebugContext(ctx, "Dashboard assembled",
		"owner_id", ownerID,
		"period_type", req.Period,
		"range_start", d.Summary.RangeStart,
		"transactions", len(current),
		"previous_transactions", len(previous),
		"categories", len(cats))

	return d, nil
}

// Assemble runs every aggregation pass over already fetched data. current must
// be ordered newest first.
func Assemble(req Request, current, previous []core.Transaction, cats []core.Category) *Dashboard {
	rng := CurrentRange(req.Period, req.Anchor)
	idx := IndexCategories(cats)

	totals := SumByType(current)
	prevTotals := SumByType(previous)
	rows := SummarizeCategories(current, idx, totals)

	return &Dashboard{
		Summary: Summary{
			PeriodType:       req.Period,
			Date:             req.Anchor.UTC().Format(dateKeyLayout),
			RangeStart:       rng.Start.Format(isoMillis),
			RangeEnd:         rng.End.Format(isoMillis),
			Income:           totals.Income,
			Expense:          totals.Expense,
			Savings:          totals.Savings,
			Balance:          totals.Balance(),
			TransactionCount: len(current),
			Changes: Changes{
				IncomePct:  PercentChange(totals.Income, prevTotals.Income),
				ExpensePct: PercentChange(totals.Expense, prevTotals.Expense),
				SavingsPct: PercentChange(totals.Savings, prevTotals.Savings),
				BalancePct: PercentChange(totals.Balance(), prevTotals.Balance()),
			},
		},
		CategorySummary:    rows,
		TrendSummary:       BuildTrend(req.Period, rng, current),
		Insights:           BuildInsights(rows, totals, prevTotals),
		RecentTransactions: RecentTransactions(current, idx, RecentLimit),
	}
}
