// Package analytics turns a snapshot of transactions into period summaries,
// trend series and period-over-period comparisons.
//
// Every calendar computation happens in UTC. Period boundaries are built from
// date components (time.Date normalizes overflowing days and months), so a
// monthly period is always first-of-month to first-of-next-month regardless of
// the month's length.
package analytics

import (
	"errors"
	"strings"
	"time"
)

type PeriodType string

const (
	Daily   PeriodType = "daily"
	Weekly  PeriodType = "weekly"
	Monthly PeriodType = "monthly"
	Yearly  PeriodType = "yearly"
)

var (
	ErrInvalidPeriodType = errors.New("periodType must be one of: daily, weekly, monthly, yearly")
	ErrInvalidDate       = errors.New("date must be a valid ISO date")
)

// PeriodRange is the half-open interval [Start, End).
type PeriodRange struct {
	Start time.Time
	End   time.Time
}

// Contains reports whether t falls inside the range.
func (r PeriodRange) Contains(t time.Time) bool {
	return !t.Before(r.Start) && t.Before(r.End)
}

// ParsePeriodType lowercases s and defaults to Monthly when s is empty.
func ParsePeriodType(s string) (PeriodType, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return Monthly, nil
	}
	switch p := PeriodType(s); p {
	case Daily, Weekly, Monthly, Yearly:
		return p, nil
	}
	return "", ErrInvalidPeriodType
}

var anchorLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04",
	"2006-01-02",
	"2006-01",
	"2006",
}

// ParseAnchor parses an ISO 8601 date or instant, including the reduced
// YYYY-MM and YYYY forms, which name the first day. Values without an offset
// are read as UTC. An empty string yields now.
func ParseAnchor(s string, now time.Time) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return now.UTC(), nil
	}
	for _, layout := range anchorLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, ErrInvalidDate
}

func startOfUTCDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// CurrentRange returns the period of type p containing the UTC day of anchor.
// Unknown types are treated as Yearly.
func CurrentRange(p PeriodType, anchor time.Time) PeriodRange {
	day := startOfUTCDay(anchor)
	y, m, d := day.Date()

	switch p {
	case Daily:
		return PeriodRange{Start: day, End: time.Date(y, m, d+1, 0, 0, 0, 0, time.UTC)}
	case Weekly:
		wd := int(day.Weekday())
		mondayOffset := 1 - wd
		if wd == 0 {
			mondayOffset = -6
		}
		start := time.Date(y, m, d+mondayOffset, 0, 0, 0, 0, time.UTC)
		sy, sm, sd := start.Date()
		return PeriodRange{Start: start, End: time.Date(sy, sm, sd+7, 0, 0, 0, 0, time.UTC)}
	case Monthly:
		return PeriodRange{
			Start: time.Date(y, m, 1, 0, 0, 0, 0, time.UTC),
			End:   time.Date(y, m+1, 1, 0, 0, 0, 0, time.UTC),
		}
	default:
		return PeriodRange{
			Start: time.Date(y, time.January, 1, 0, 0, 0, 0, time.UTC),
			End:   time.Date(y+1, time.January, 1, 0, 0, 0, 0, time.UTC),
		}
	}
}

// PreviousRange returns the period immediately before the one starting at
// currentStart. Its End is always currentStart.
func PreviousRange(p PeriodType, currentStart time.Time) PeriodRange {
	y, m, d := currentStart.UTC().Date()

	var start time.Time
	switch p {
	case Daily:
		start = time.Date(y, m, d-1, 0, 0, 0, 0, time.UTC)
	case Weekly:
		start = time.Date(y, m, d-7, 0, 0, 0, 0, time.UTC)
	case Monthly:
		start = time.Date(y, m-1, 1, 0, 0, 0, 0, time.UTC)
	default:
		start = time.Date(y-1, time.January, 1, 0, 0, 0, 0, time.UTC)
	}
	return PeriodRange{Start: start, End: currentStart}
}
