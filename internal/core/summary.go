package core

// DayTotals holds per-type sums for a single calendar day.
type DayTotals struct {
	Income  float64 `json:"income"`
	Expense float64 `json:"expense"`
	Savings float64 `json:"savings"`
}

// Add accumulates amount under the bucket for t. Unknown types are ignored.
func (d *DayTotals) Add(t TransactionType, amount float64) {
	amount = SafeAmount(amount)
	switch t {
	case Income:
		d.Income += amount
	case Expense:
		d.Expense += amount
	case Savings:
		d.Savings += amount
	}
}

// MonthSummary maps a YYYY-MM-DD key to the totals of that day.
type MonthSummary map[string]DayTotals
