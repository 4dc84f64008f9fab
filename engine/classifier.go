/*
classifier.go - Temporal classification of clock sessions

PURPOSE:
  Converts one RawTimeEntry into classified, duration-bearing facts:
  weekend/evening/night flags from the clock-in time, the holiday flag as
  recorded by the holiday calendar, and the worked duration net of breaks.

CLASSIFICATION RULES:
  isWeekend: clock-in falls on Saturday or Sunday
  isEvening: clock-in local hour >= 18
  isNight:   clock-in local hour >= 22 or < 6 (overlaps evening by definition)

DURATION:
  gross = clockOut - clockIn (an open session contributes zero)
  net   = gross - logged breaks
  When no break was logged and gross exceeds the policy's auto-break
  threshold, the automatic break is deducted and reported separately so the
  person can see that manual break logging was skipped.

DATA ERRORS:
  A clock-out before clock-in is a data error. The entry contributes zero
  hours but is flagged Invalid and counted on the aggregate - it is never
  silently dropped.
*/
package engine

import "time"

// =============================================================================
// CLASSIFICATION THRESHOLDS
// =============================================================================

const (
	eveningStartHour = 18
	nightStartHour   = 22
	nightEndHour     = 6
)

// =============================================================================
// CLASSIFIER
// =============================================================================

// Classify derives the temporal categories and net duration for one entry.
// Pure: no side effects, deterministic for a given entry and policy.
func Classify(e RawTimeEntry, policy LaborPolicy) ClassifiedEntry {
	c := ClassifiedEntry{RawTimeEntry: e}

	wd := e.ClockIn.Weekday()
	c.IsWeekend = wd == time.Saturday || wd == time.Sunday
	hour := e.ClockIn.Hour()
	c.IsEvening = hour >= eveningStartHour
	c.IsNight = hour >= nightStartHour || hour < nightEndHour

	c.NetHours = ZeroHours()
	c.AutoBreakHours = ZeroHours()

	// Open session: contributes nothing until closed.
	if e.ClockOut == nil {
		return c
	}

	if e.ClockOut.Before(e.ClockIn) {
		c.Invalid = true
		return c
	}

	gross := HoursFromDuration(e.ClockOut.Sub(e.ClockIn))
	net := gross.Sub(HoursFromMinutes(e.TotalBreakMinutes))

	// Compensation usage is banked time being spent, not a worked shift;
	// no break is deducted from it.
	if e.TotalBreakMinutes == 0 && gross.GreaterThan(policy.AutoBreakAfter) &&
		policy.AutoBreakMinutes > 0 && !isCompensationUsage(e) {
		c.AutoBreakApplied = true
		c.AutoBreakHours = HoursFromMinutes(policy.AutoBreakMinutes)
		net = net.Sub(c.AutoBreakHours)
	}

	// A logged break longer than the session is another data artifact; the
	// entry simply contributes zero rather than negative hours.
	c.NetHours = net.FloorZero()
	return c
}

// ClassifyAll classifies a batch of entries with a single policy.
func ClassifyAll(entries []RawTimeEntry, policy LaborPolicy) []ClassifiedEntry {
	out := make([]ClassifiedEntry, len(entries))
	for i, e := range entries {
		out[i] = Classify(e, policy)
	}
	return out
}

// compensableHours returns the hours of an entry that accrue compensation
// under the policy: the full net duration for overtime-tagged work, or for
// work in a category whose compensation toggle is enabled. An entry accrues
// at most once even when categories overlap.
func compensableHours(e ClassifiedEntry, policy LaborPolicy) Hours {
	if e.Invalid || e.NetHours.IsZero() {
		return ZeroHours()
	}
	if isOvertimeEntry(e.RawTimeEntry) {
		return e.NetHours
	}
	switch {
	case e.Holiday && policy.HolidayCompensation:
		return e.NetHours
	case e.IsWeekend && policy.WeekendCompensation:
		return e.NetHours
	case e.IsNight && policy.NightCompensation:
		return e.NetHours
	case e.IsEvening && policy.EveningCompensation:
		return e.NetHours
	}
	return ZeroHours()
}
