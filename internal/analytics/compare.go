package analytics

import "math"

// PercentChange returns the signed change from previous to current in percent,
// rounded to two decimals. A zero previous value yields 0 when current is also
// zero and 100 otherwise.
func PercentChange(current, previous float64) float64 {
	if previous == 0 {
		if current == 0 {
			return 0
		}
		return 100
	}
	return round2((current - previous) / previous * 100)
}

// ratioPercent returns part/whole*100 rounded, or 0 when whole is not positive.
func ratioPercent(part, whole float64) float64 {
	if whole <= 0 {
		return 0
	}
	return round2(part / whole * 100)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
