/*
ledger.go - Compensation accrual and usage

PURPOSE:
  Computes the accrued-vs-used compensation balance from a person's entry
  history and answers "how much banked time can this person spend?".

ACCRUAL CEILING:
  Entries are replayed in clock-in order. Accrual that would push the banked
  balance above the policy ceiling is simply not credited; an existing
  balance above the ceiling is never force-reduced.

LOOKBACK:
  The scan is bounded: callers pass the most recent N entries (store query),
  not unbounded history. The ledger is restartable from any such window.

LEGACY TAGGING:
  WorkType is the authoritative tag. Older rows predate the enum and carry
  only free text; a narrow substring bridge ("overtime", "overuren",
  "compensatie") keeps those rows counted until the backfill migration
  completes. The bridge lives only in this file.
*/
package engine

import "strings"

// MaxSingleRequestHours caps one usage request at a nominal workday. Bulk
// requests are the mechanism for multi-day usage.
var MaxSingleRequestHours = HoursFromInt(8)

// DefaultLookbackEntries bounds the ledger scan.
const DefaultLookbackEntries = 500

// =============================================================================
// ENTRY TAGGING
// =============================================================================

// isOvertimeEntry reports whether the entry accrues compensation by tag.
func isOvertimeEntry(e RawTimeEntry) bool {
	if e.WorkType == WorkOvertime {
		return true
	}
	if e.WorkType != "" && e.WorkType != WorkRegular {
		return false
	}
	// Legacy rows: free-text bridge, see file header.
	notes := strings.ToLower(e.Notes)
	return strings.Contains(notes, "overtime") || strings.Contains(notes, "overuren")
}

// isCompensationUsage reports whether the entry spends banked time.
func isCompensationUsage(e RawTimeEntry) bool {
	if e.WorkType == WorkCompensationUsed {
		return true
	}
	if e.WorkType != "" && e.WorkType != WorkRegular {
		return false
	}
	return strings.Contains(strings.ToLower(e.Notes), "compensatie")
}

// =============================================================================
// LEDGER SUMMARY
// =============================================================================

// LedgerSummary is the computed compensation state for one person.
type LedgerSummary struct {
	UserID UserID

	// Earned is the compensation actually credited (post-ceiling).
	Earned Hours
	// Used is the compensation consumed by usage entries.
	Used Hours
	// Balance = Earned - Used, exactly.
	Balance Hours
	// Pending is held by not-yet-settled usage requests and reduces what a
	// new request may claim.
	Pending Hours
}

// CanUse reports whether any banked time is spendable.
func (s LedgerSummary) CanUse() bool { return s.Available().IsPositive() }

// Available is the balance net of pending holds.
func (s LedgerSummary) Available() Hours { return s.Balance.Sub(s.Pending) }

// MaxUsableHours is the ceiling for a single usage request: one nominal
// workday, or less when the balance is lower.
func (s LedgerSummary) MaxUsableHours() Hours {
	return s.Available().Min(MaxSingleRequestHours).FloorZero()
}

// =============================================================================
// LEDGER COMPUTATION
// =============================================================================

// SummarizeLedger replays classified entries (oldest first) into a
// compensation summary. Pure; pending holds are supplied by the caller from
// the request store.
func SummarizeLedger(userID UserID, entries []ClassifiedEntry, policy LaborPolicy, pending Hours) LedgerSummary {
	earned := ZeroHours()
	used := ZeroHours()

	for _, e := range entries {
		if e.Invalid {
			continue
		}
		if isCompensationUsage(e.RawTimeEntry) {
			used = used.Add(e.NetHours)
			continue
		}

		accrual := compensableHours(e, policy).Mul(policy.CompensationMultiplier)
		if accrual.IsZero() {
			continue
		}

		balance := earned.Sub(used)
		if !policy.MaxAccrualHours.IsZero() {
			headroom := policy.MaxAccrualHours.Sub(balance).FloorZero()
			accrual = accrual.Min(headroom)
		}
		earned = earned.Add(accrual)
	}

	return LedgerSummary{
		UserID:  userID,
		Earned:  earned,
		Used:    used,
		Balance: earned.Sub(used),
		Pending: pending,
	}
}
