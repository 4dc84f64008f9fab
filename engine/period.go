package engine

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// PERIOD - The evaluation window for balance calculation
// =============================================================================

// Period is a half-open evaluation window [Start, End). Balances are always
// computed for a period, typically one ISO week or one month.
type Period struct {
	Start time.Time
	End   time.Time
}

// NewPeriod validates and constructs a period.
func NewPeriod(start, end time.Time) (Period, error) {
	if end.Before(start) {
		return Period{}, ErrInvalidPeriod
	}
	return Period{Start: start, End: end}, nil
}

// Contains reports whether t falls within [Start, End).
func (p Period) Contains(t time.Time) bool {
	return !t.Before(p.Start) && t.Before(p.End)
}

// Days returns the period length in (fractional) days.
func (p Period) Days() decimal.Decimal {
	minutes := int64(p.End.Sub(p.Start) / time.Minute)
	return decimal.NewFromInt(minutes).Div(decimal.NewFromInt(24 * 60))
}

// Weeks returns the period length as a fraction of weeks. Expected contract
// hours scale proportionally: a 10-day period on a 40h/week contract expects
// 10/7 * 40 hours.
func (p Period) Weeks() decimal.Decimal {
	return p.Days().Div(decimal.NewFromInt(7))
}

func (p Period) String() string {
	return fmt.Sprintf("[%s, %s)", p.Start.Format("2006-01-02"), p.End.Format("2006-01-02"))
}

// WeekOf returns the ISO week (Monday 00:00 through next Monday) containing t,
// in t's location.
func WeekOf(t time.Time) Period {
	day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
	offset := (int(day.Weekday()) + 6) % 7 // Monday = 0
	start := day.AddDate(0, 0, -offset)
	return Period{Start: start, End: start.AddDate(0, 0, 7)}
}

// PreviousWeeks returns the n ISO weeks before p, oldest first.
func (p Period) PreviousWeeks(n int) []Period {
	weeks := make([]Period, 0, n)
	for i := n; i >= 1; i-- {
		start := p.Start.AddDate(0, 0, -7*i)
		weeks = append(weeks, Period{Start: start, End: start.AddDate(0, 0, 7)})
	}
	return weeks
}
