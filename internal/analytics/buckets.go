package analytics

import (
	"fmt"
	"strconv"
	"time"

	"fintrack/internal/core"
)

const dateKeyLayout = "2006-01-02"

var (
	monthLabels   = [12]string{"Jan", "Feb", "Mar", "Apr", "May", "Jun", "Jul", "Aug", "Sep", "Oct", "Nov", "Dec"}
	weekdayLabels = [7]string{"Sun", "Mon", "Tue", "Wed", "Thu", "Fri", "Sat"}
)

// Bucket accumulates per-type amounts for one slot of a trend chart.
type Bucket struct {
	Key     string
	Label   string
	Income  float64
	Expense float64
	Savings float64
}

func (b *Bucket) add(t core.TransactionType, amount float64) {
	switch t {
	case core.Income:
		b.Income += amount
	case core.Expense:
		b.Expense += amount
	case core.Savings:
		b.Savings += amount
	}
}

// TrendPoint is the read-only view of a bucket.
type TrendPoint struct {
	Label   string  `json:"label"`
	Income  float64 `json:"income"`
	Expense float64 `json:"expense"`
	Savings float64 `json:"savings"`
	Balance float64 `json:"balance"`
}

func (b Bucket) point() TrendPoint {
	return TrendPoint{
		Label:   b.Label,
		Income:  b.Income,
		Expense: b.Expense,
		Savings: b.Savings,
		Balance: b.Income - (b.Expense + b.Savings),
	}
}

// SeedBuckets returns the empty, chronologically ordered buckets for rng.
func SeedBuckets(p PeriodType, rng PeriodRange) []Bucket {
	switch p {
	case Daily:
		buckets := make([]Bucket, 0, 24)
		for h := 0; h < 24; h++ {
			key := fmt.Sprintf("%02d", h)
			buckets = append(buckets, Bucket{Key: key, Label: key + ":00"})
		}
		return buckets
	case Yearly:
		buckets := make([]Bucket, 0, 12)
		for m := 0; m < 12; m++ {
			buckets = append(buckets, Bucket{Key: fmt.Sprintf("%02d", m+1), Label: monthLabels[m]})
		}
		return buckets
	}

	var buckets []Bucket
	for cursor := rng.Start.UTC(); cursor.Before(rng.End); {
		label := strconv.Itoa(cursor.Day())
		if p == Weekly {
			label = weekdayLabels[cursor.Weekday()]
		}
		buckets = append(buckets, Bucket{Key: cursor.Format(dateKeyLayout), Label: label})
		y, m, d := cursor.Date()
		cursor = time.Date(y, m, d+1, 0, 0, 0, 0, time.UTC)
	}
	return buckets
}

// BucketKey maps t to the key of the bucket it belongs to, using the same
// scheme as SeedBuckets.
func BucketKey(p PeriodType, t time.Time) string {
	t = t.UTC()
	switch p {
	case Daily:
		return fmt.Sprintf("%02d", t.Hour())
	case Yearly:
		return fmt.Sprintf("%02d", int(t.Month()))
	default:
		return t.Format(dateKeyLayout)
	}
}
