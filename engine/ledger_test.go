package engine_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/urenwerk/balance-engine/engine"
)

func classify(policy engine.LaborPolicy, entries ...engine.RawTimeEntry) []engine.ClassifiedEntry {
	return engine.ClassifyAll(entries, policy)
}

// weekdayPolicy disables the category toggles so only the overtime tag
// accrues. Keeps the arithmetic in these tests explicit.
func weekdayPolicy() engine.LaborPolicy {
	p := engine.DefaultPolicy()
	p.WeekendCompensation = false
	p.EveningCompensation = false
	p.NightCompensation = false
	p.HolidayCompensation = false
	return p
}

// =============================================================================
// ACCRUAL AND CONSERVATION
// =============================================================================

func TestSummarizeLedgerAccruesFromOvertimeTag(t *testing.T) {
	// GIVEN: two tagged overtime shifts of 4h at multiplier 1.5
	policy := weekdayPolicy()
	entries := classify(policy,
		overtimeShift("ot1", "u1", at(2026, time.June, 1, 18, 0), 4*time.Hour),
		overtimeShift("ot2", "u1", at(2026, time.June, 2, 18, 0), 4*time.Hour),
	)

	s := engine.SummarizeLedger("u1", entries, policy, engine.ZeroHours())

	assert.True(t, s.Earned.Equal(engine.HoursFromInt(12)), "earned %s", s.Earned.Value)
	assert.True(t, s.Used.IsZero())
	assert.True(t, s.Balance.Equal(engine.HoursFromInt(12)))
}

func TestSummarizeLedgerConservation(t *testing.T) {
	// GIVEN: a mixed history of accrual and usage
	// THEN: balance equals earned minus used, exactly
	policy := weekdayPolicy()
	entries := classify(policy,
		overtimeShift("ot1", "u1", at(2026, time.June, 1, 18, 0), 5*time.Hour),
		usageEntry("use1", "u1", at(2026, time.June, 3, 9, 0), 3*time.Hour),
		overtimeShift("ot2", "u1", at(2026, time.June, 4, 18, 0), 2*time.Hour),
		usageEntry("use2", "u1", at(2026, time.June, 5, 9, 0), 4*time.Hour),
	)

	s := engine.SummarizeLedger("u1", entries, policy, engine.ZeroHours())

	assert.True(t, s.Balance.Equal(s.Earned.Sub(s.Used)), "conservation violated")
	assert.True(t, s.Earned.Equal(engine.NewHours(10.5))) // (5+2) * 1.5
	assert.True(t, s.Used.Equal(engine.HoursFromInt(7)))
	assert.True(t, s.Balance.Equal(engine.NewHours(3.5)))
}

func TestSummarizeLedgerSkipsInvalidEntries(t *testing.T) {
	policy := weekdayPolicy()
	clockIn := at(2026, time.June, 1, 18, 0)
	clockOut := at(2026, time.June, 1, 9, 0)
	bad := engine.RawTimeEntry{ID: "bad", UserID: "u1", ClockIn: clockIn, ClockOut: &clockOut, WorkType: engine.WorkOvertime}

	s := engine.SummarizeLedger("u1", classify(policy, bad), policy, engine.ZeroHours())
	assert.True(t, s.Earned.IsZero())
}

// =============================================================================
// ACCRUAL CEILING
// =============================================================================

func TestSummarizeLedgerAccrualCeiling(t *testing.T) {
	// GIVEN: a 10h accrual cap and 8h of tagged overtime (12h at 1.5)
	// THEN: only the headroom is credited
	policy := weekdayPolicy()
	policy.MaxAccrualHours = engine.HoursFromInt(10)

	entries := classify(policy,
		overtimeShift("ot", "u1", at(2026, time.June, 1, 10, 0), 4*time.Hour),
		overtimeShift("ot2", "u1", at(2026, time.June, 2, 10, 0), 4*time.Hour),
	)
	s := engine.SummarizeLedger("u1", entries, policy, engine.ZeroHours())

	assert.True(t, s.Earned.Equal(engine.HoursFromInt(10)), "earned %s", s.Earned.Value)
	assert.True(t, s.Balance.Equal(engine.HoursFromInt(10)))
}

func TestSummarizeLedgerUsageReopensHeadroom(t *testing.T) {
	// GIVEN: accrual to the cap, then usage, then more overtime
	// THEN: later accrual refills the freed headroom - replay order matters
	policy := weekdayPolicy()
	policy.MaxAccrualHours = engine.HoursFromInt(10)

	entries := classify(policy,
		overtimeShift("ot1", "u1", at(2026, time.June, 1, 10, 0), 8*time.Hour), // 12h at cap -> 10
		usageEntry("use", "u1", at(2026, time.June, 3, 9, 0), 4*time.Hour),     // balance 6
		overtimeShift("ot2", "u1", at(2026, time.June, 4, 10, 0), 4*time.Hour), // 6h, headroom 4 -> +4
	)
	s := engine.SummarizeLedger("u1", entries, policy, engine.ZeroHours())

	assert.True(t, s.Earned.Equal(engine.HoursFromInt(14)), "earned %s", s.Earned.Value)
	assert.True(t, s.Used.Equal(engine.HoursFromInt(4)))
	assert.True(t, s.Balance.Equal(engine.HoursFromInt(10)), "balance may refill only to the cap")
}

func TestSummarizeLedgerNoCeilingWhenZero(t *testing.T) {
	// GIVEN: MaxAccrualHours zero means uncapped
	policy := weekdayPolicy()
	policy.MaxAccrualHours = engine.ZeroHours()

	entries := classify(policy,
		overtimeShift("ot", "u1", at(2026, time.June, 1, 10, 0), 4*time.Hour),
		overtimeShift("ot2", "u1", at(2026, time.June, 2, 10, 0), 4*time.Hour),
	)
	s := engine.SummarizeLedger("u1", entries, policy, engine.ZeroHours())
	assert.True(t, s.Earned.Equal(engine.HoursFromInt(12)), "12h exceeds the old cap; no clamp applies")
}

// =============================================================================
// LEGACY FREE-TEXT TAGGING
// =============================================================================

func TestSummarizeLedgerLegacyNotesBridge(t *testing.T) {
	// GIVEN: rows predating the WorkType enum, tagged only in free text
	policy := weekdayPolicy()

	legacyAccrual := shift("old1", "u1", at(2026, time.June, 1, 18, 0), 2*time.Hour, 0)
	legacyAccrual.WorkType = ""
	legacyAccrual.Notes = "Overuren project Alpha"

	legacyUsage := shift("old2", "u1", at(2026, time.June, 2, 9, 0), 1*time.Hour, 0)
	legacyUsage.WorkType = ""
	legacyUsage.Notes = "compensatie opgenomen"

	s := engine.SummarizeLedger("u1", classify(policy, legacyAccrual, legacyUsage), policy, engine.ZeroHours())

	assert.True(t, s.Earned.Equal(engine.HoursFromInt(3)), "earned %s", s.Earned.Value) // 2 * 1.5
	assert.True(t, s.Used.Equal(engine.HoursFromInt(1)))
}

func TestSummarizeLedgerEnumBeatsNotes(t *testing.T) {
	// GIVEN: an explicitly regular entry whose notes mention overtime
	// THEN: the enum wins; no accrual
	policy := weekdayPolicy()
	e := shift("e", "u1", at(2026, time.June, 1, 9, 0), 2*time.Hour, 0)
	e.WorkType = engine.WorkRegular
	e.Notes = "besproken overuren van vorige week"

	s := engine.SummarizeLedger("u1", classify(policy, e), policy, engine.ZeroHours())
	assert.True(t, s.Earned.IsZero())
}

// =============================================================================
// AVAILABILITY
// =============================================================================

func TestLedgerSummaryAvailability(t *testing.T) {
	// GIVEN: 12h banked with a 3h pending hold
	policy := weekdayPolicy()
	entries := classify(policy,
		overtimeShift("ot1", "u1", at(2026, time.June, 1, 10, 0), 4*time.Hour),
		overtimeShift("ot2", "u1", at(2026, time.June, 2, 10, 0), 4*time.Hour),
	)
	s := engine.SummarizeLedger("u1", entries, policy, engine.HoursFromInt(3))

	require.True(t, s.Balance.Equal(engine.HoursFromInt(12)))
	assert.True(t, s.Available().Equal(engine.HoursFromInt(9)))
	assert.True(t, s.MaxUsableHours().Equal(engine.HoursFromInt(8)), "single request capped at a workday")
	assert.True(t, s.CanUse())
}

func TestLedgerSummaryMaxUsableBelowWorkday(t *testing.T) {
	policy := weekdayPolicy()
	entries := classify(policy,
		overtimeShift("ot", "u1", at(2026, time.June, 1, 10, 0), 2*time.Hour), // 3h banked
	)
	s := engine.SummarizeLedger("u1", entries, policy, engine.ZeroHours())
	assert.True(t, s.MaxUsableHours().Equal(engine.HoursFromInt(3)))
}

func TestLedgerSummaryNothingUsableWhenOverheld(t *testing.T) {
	// GIVEN: pending holds exceeding the balance
	policy := weekdayPolicy()
	entries := classify(policy,
		overtimeShift("ot", "u1", at(2026, time.June, 1, 10, 0), 2*time.Hour),
	)
	s := engine.SummarizeLedger("u1", entries, policy, engine.HoursFromInt(5))

	assert.False(t, s.CanUse())
	assert.True(t, s.MaxUsableHours().IsZero(), "never negative")
}
