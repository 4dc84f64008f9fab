/*
balance.go - Period aggregation of classified entries

PURPOSE:
  Folds the classified entries of one person over one period into a single
  TimeBalance: expected vs actual hours, overtime/shortage, category
  breakdowns, and auto-break totals.

KEY RULES:
  expectedHours = contractHoursPerWeek * (period days / 7)
  actualHours   = sum of net durations (each entry counted exactly once)
  overtimeHours = max(0, actual - expected)     aggregate-level definition
  shortageHours = max(0, expected - actual)

  Category sums (weekend/evening/night/holiday) may legitimately overlap
  each other; they are breakdowns, not partitions of actualHours.

  Zero-hours contracts expect 0 hours and can never be short.

GUARANTEE:
  Pure and deterministic: the same entries and policy always produce the
  same balance.
*/
package engine

// AggregateBalance folds classified entries restricted to the period into a
// TimeBalance for one person.
func AggregateBalance(userID UserID, entries []ClassifiedEntry, policy LaborPolicy, period Period) TimeBalance {
	b := TimeBalance{
		UserID:                userID,
		Period:                period,
		ExpectedHours:         ZeroHours(),
		ActualHours:           ZeroHours(),
		OvertimeHours:         ZeroHours(),
		ShortageHours:         ZeroHours(),
		CompensationHours:     ZeroHours(),
		UsedCompensationHours: ZeroHours(),
		WeekendHours:          ZeroHours(),
		EveningHours:          ZeroHours(),
		NightHours:            ZeroHours(),
		HolidayHours:          ZeroHours(),
		AutoBreakDeducted:     ZeroHours(),
	}

	if !policy.IsZeroHours() {
		b.ExpectedHours = policy.ContractHoursPerWeek.Mul(period.Weeks())
	}

	for _, e := range entries {
		if !period.Contains(e.ClockIn) {
			continue
		}
		if e.Invalid {
			b.InvalidEntries++
			continue
		}

		b.ActualHours = b.ActualHours.Add(e.NetHours)
		b.AutoBreakDeducted = b.AutoBreakDeducted.Add(e.AutoBreakHours)

		if e.IsWeekend {
			b.WeekendHours = b.WeekendHours.Add(e.NetHours)
		}
		if e.IsEvening {
			b.EveningHours = b.EveningHours.Add(e.NetHours)
		}
		if e.IsNight {
			b.NightHours = b.NightHours.Add(e.NetHours)
		}
		if e.Holiday {
			b.HolidayHours = b.HolidayHours.Add(e.NetHours)
		}

		if isCompensationUsage(e.RawTimeEntry) {
			b.UsedCompensationHours = b.UsedCompensationHours.Add(e.NetHours)
		} else {
			b.CompensationHours = b.CompensationHours.Add(
				compensableHours(e, policy).Mul(policy.CompensationMultiplier))
		}
	}

	b.OvertimeHours = b.ActualHours.Sub(b.ExpectedHours).FloorZero()
	b.ShortageHours = b.ExpectedHours.Sub(b.ActualHours).FloorZero()
	return b
}

// WeeklySummary reduces a balance to the persisted per-week form used by the
// shortage streak detector.
func (b TimeBalance) WeeklySummary() WeeklyBalance {
	return WeeklyBalance{
		UserID:        b.UserID,
		WeekStart:     b.Period.Start,
		ExpectedHours: b.ExpectedHours,
		ActualHours:   b.ActualHours,
		ShortageHours: b.ShortageHours,
	}
}
