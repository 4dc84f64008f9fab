/*
format.go - Human-readable output helpers

PURPOSE:
  Pure formatting functions shared by the HTTP layer and the CSV export.
  Durations follow the Dutch "<H>u <M>m" convention. Productivity
  percentages are guarded against zero-hours contracts in one place rather
  than at every call site.
*/
package engine

import (
	"fmt"
	"math"
)

// FormatDuration renders an hour count as "8u 30m". Negative values keep a
// single leading sign: FormatDuration(-1.25) == "-1u 15m".
func FormatDuration(hours float64) string {
	sign := ""
	if hours < 0 {
		sign = "-"
		hours = -hours
	}
	h := math.Floor(hours)
	m := math.Round((hours - h) * 60)
	if m >= 60 { // rounding can tip a value like 1.9999 over the hour
		h++
		m = 0
	}
	return fmt.Sprintf("%s%du %dm", sign, int(h), int(m))
}

// Format renders the quantity in the Dutch hours-and-minutes convention.
func (h Hours) Format() string { return FormatDuration(h.Float64()) }

// SafePercentage returns round(actual/expected*100) and true, or (0, false)
// when expected is zero. Callers must skip the productivity figure for
// zero-hours contracts instead of reporting NaN or infinity.
func SafePercentage(actual, expected Hours) (int, bool) {
	if expected.IsZero() {
		return 0, false
	}
	pct := actual.Float64() / expected.Float64() * 100
	return int(math.Round(pct)), true
}

// Productivity reports actual vs expected hours for a balance, guarded for
// zero-hours contracts.
func (b TimeBalance) Productivity() (int, bool) {
	return SafePercentage(b.ActualHours, b.ExpectedHours)
}
