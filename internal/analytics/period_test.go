package analytics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func utc(y int, m time.Month, d, h, min int) time.Time {
	return time.Date(y, m, d, h, min, 0, 0, time.UTC)
}

func TestParsePeriodType(t *testing.T) {
	tests := []struct {
		in      string
		want    PeriodType
		wantErr bool
	}{
		{"", Monthly, false},
		{"daily", Daily, false},
		{"WEEKLY", Weekly, false},
		{" Monthly ", Monthly, false},
		{"yearly", Yearly, false},
		{"quarterly", "", true},
		{"day", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParsePeriodType(tt.in)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrInvalidPeriodType)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseAnchor(t *testing.T) {
	now := utc(2025, time.June, 1, 8, 0)

	tests := []struct {
		name    string
		in      string
		want    time.Time
		wantErr bool
	}{
		{name: "empty means now", in: "", want: now},
		{name: "rfc3339 utc", in: "2024-03-15T10:00:00Z", want: utc(2024, time.March, 15, 10, 0)},
		{name: "fractional seconds", in: "2024-03-15T10:00:00.000Z", want: utc(2024, time.March, 15, 10, 0)},
		{name: "offset converted to utc", in: "2024-03-15T23:30:00-05:00", want: utc(2024, time.March, 16, 4, 30)},
		{name: "no offset read as utc", in: "2024-03-15T10:00:00", want: utc(2024, time.March, 15, 10, 0)},
		{name: "date only", in: "2024-03-15", want: utc(2024, time.March, 15, 0, 0)},
		{name: "year and month", in: "2024-03", want: utc(2024, time.March, 1, 0, 0)},
		{name: "year only", in: "2024", want: utc(2024, time.January, 1, 0, 0)},
		{name: "month out of range", in: "2024-13", wantErr: true},
		{name: "garbage", in: "yesterday", wantErr: true},
		{name: "impossible date", in: "2024-02-30", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseAnchor(tt.in, now)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrInvalidDate)
				return
			}
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(got), "want %s, got %s", tt.want, got)
			assert.Equal(t, time.UTC, got.Location())
		})
	}
}

func TestCurrentRange(t *testing.T) {
	tests := []struct {
		name   string
		period PeriodType
		anchor time.Time
		start  time.Time
		end    time.Time
	}{
		{"daily", Daily, utc(2024, time.March, 15, 23, 59), utc(2024, time.March, 15, 0, 0), utc(2024, time.March, 16, 0, 0)},
		{"daily month rollover", Daily, utc(2024, time.January, 31, 12, 0), utc(2024, time.January, 31, 0, 0), utc(2024, time.February, 1, 0, 0)},
		{"weekly friday", Weekly, utc(2024, time.March, 15, 10, 0), utc(2024, time.March, 11, 0, 0), utc(2024, time.March, 18, 0, 0)},
		{"weekly monday", Weekly, utc(2024, time.March, 11, 0, 0), utc(2024, time.March, 11, 0, 0), utc(2024, time.March, 18, 0, 0)},
		{"weekly sunday belongs to previous monday", Weekly, utc(2024, time.March, 17, 22, 0), utc(2024, time.March, 11, 0, 0), utc(2024, time.March, 18, 0, 0)},
		{"weekly across year", Weekly, utc(2023, time.December, 31, 9, 0), utc(2023, time.December, 25, 0, 0), utc(2024, time.January, 1, 0, 0)},
		{"monthly", Monthly, utc(2024, time.March, 15, 10, 0), utc(2024, time.March, 1, 0, 0), utc(2024, time.April, 1, 0, 0)},
		{"monthly december", Monthly, utc(2023, time.December, 31, 23, 0), utc(2023, time.December, 1, 0, 0), utc(2024, time.January, 1, 0, 0)},
		{"yearly", Yearly, utc(2024, time.July, 4, 0, 0), utc(2024, time.January, 1, 0, 0), utc(2025, time.January, 1, 0, 0)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rng := CurrentRange(tt.period, tt.anchor)
			assert.True(t, tt.start.Equal(rng.Start), "start: want %s, got %s", tt.start, rng.Start)
			assert.True(t, tt.end.Equal(rng.End), "end: want %s, got %s", tt.end, rng.End)
			assert.True(t, rng.Contains(tt.anchor))
		})
	}
}

func TestCurrentRangeNonUTCAnchor(t *testing.T) {
	// 23:30 in New York on the 15th is already the 16th in UTC.
	ny := time.FixedZone("EST", -5*3600)
	anchor := time.Date(2024, time.March, 15, 23, 30, 0, 0, ny)

	rng := CurrentRange(Daily, anchor)
	assert.True(t, utc(2024, time.March, 16, 0, 0).Equal(rng.Start))
}

func TestRangeInvariants(t *testing.T) {
	anchors := []time.Time{
		utc(2024, time.February, 29, 12, 0),
		utc(2023, time.February, 1, 0, 0),
		utc(2024, time.December, 31, 23, 59),
		utc(2025, time.March, 30, 1, 0),
		utc(2000, time.January, 2, 5, 0),
	}

	for _, anchor := range anchors {
		for _, p := range []PeriodType{Daily, Weekly, Monthly, Yearly} {
			rng := CurrentRange(p, anchor)
			require.True(t, rng.Start.Before(rng.End), "%s %s: start must precede end", p, anchor)

			switch p {
			case Daily:
				assert.Equal(t, 24*time.Hour, rng.End.Sub(rng.Start))
			case Weekly:
				assert.Equal(t, 7*24*time.Hour, rng.End.Sub(rng.Start))
				assert.Equal(t, time.Monday, rng.Start.Weekday())
			case Monthly:
				assert.Equal(t, 1, rng.Start.Day())
				assert.True(t, rng.Start.AddDate(0, 1, 0).Equal(rng.End))
			case Yearly:
				assert.Equal(t, time.January, rng.Start.Month())
				assert.Equal(t, 1, rng.Start.Day())
				assert.Equal(t, rng.Start.Year()+1, rng.End.Year())
			}

			prev := PreviousRange(p, rng.Start)
			assert.True(t, prev.End.Equal(rng.Start), "%s %s: previous must end at current start", p, anchor)
			assert.True(t, prev.Start.Before(prev.End))
			assert.True(t, CurrentRange(p, prev.Start).Start.Equal(prev.Start), "%s %s: previous must be a whole period", p, anchor)
		}
	}
}

func TestPreviousRange(t *testing.T) {
	tests := []struct {
		name   string
		period PeriodType
		start  time.Time
		want   time.Time
	}{
		{"daily leap day", Daily, utc(2024, time.March, 1, 0, 0), utc(2024, time.February, 29, 0, 0)},
		{"weekly", Weekly, utc(2024, time.March, 11, 0, 0), utc(2024, time.March, 4, 0, 0)},
		{"monthly january", Monthly, utc(2024, time.January, 1, 0, 0), utc(2023, time.December, 1, 0, 0)},
		{"monthly march", Monthly, utc(2024, time.March, 1, 0, 0), utc(2024, time.February, 1, 0, 0)},
		{"yearly", Yearly, utc(2024, time.January, 1, 0, 0), utc(2023, time.January, 1, 0, 0)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			prev := PreviousRange(tt.period, tt.start)
			assert.True(t, tt.want.Equal(prev.Start), "want %s, got %s", tt.want, prev.Start)
			assert.True(t, tt.start.Equal(prev.End))
		})
	}
}

func TestMonthlyScenario(t *testing.T) {
	anchor := utc(2024, time.March, 15, 10, 0)

	rng := CurrentRange(Monthly, anchor)
	prev := PreviousRange(Monthly, rng.Start)

	assert.Equal(t, "2024-03-01T00:00:00Z", rng.Start.Format(time.RFC3339))
	assert.Equal(t, "2024-04-01T00:00:00Z", rng.End.Format(time.RFC3339))
	assert.Equal(t, "2024-02-01T00:00:00Z", prev.Start.Format(time.RFC3339))
	assert.Equal(t, "2024-03-01T00:00:00Z", prev.End.Format(time.RFC3339))
}
