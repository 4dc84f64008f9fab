/*
Package engine implements the time-balance and compensation computation core.

PURPOSE:
  This package contains the domain types and algorithms for turning raw
  clock-in/clock-out sessions into per-person balance sheets: worked hours
  against contract hours, overtime, shortage alerts, and the accrued-vs-used
  compensation ledger.

KEY CONCEPTS IN THIS FILE (types.go):
  - Hours: An hour quantity backed by decimal.Decimal (exact arithmetic)
  - RawTimeEntry: One immutable clock session as recorded by the clock
  - ClassifiedEntry: A raw entry enriched with temporal categories and net duration
  - TimeBalance: The computed aggregate for one person over one period
  - ShortageAlert / CompensationRequest: Outputs consumed by reporting and HR

DESIGN PRINCIPLES:
  1. Precision: Uses decimal.Decimal so ledger arithmetic is exact
  2. Purity: Balances are always derived fresh from entries + policy, never stored
  3. Explicit tagging: WorkType is a closed enum decided at entry creation

SEE ALSO:
  - classifier.go: Temporal classification and net duration
  - balance.go: Period aggregation
  - shortage.go: Shortage detection and escalation
  - ledger.go: Compensation accrual and usage
*/
package engine

import (
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// HOURS - Exact hour quantity
// =============================================================================

// Hours is a quantity of worked or banked time, in hours.
type Hours struct {
	Value decimal.Decimal
}

func NewHours(v float64) Hours        { return Hours{Value: decimal.NewFromFloat(v)} }
func HoursFromInt(v int) Hours        { return Hours{Value: decimal.NewFromInt(int64(v))} }
func HoursFromMinutes(min int) Hours  { return Hours{Value: decimal.NewFromInt(int64(min)).Div(decimal.NewFromInt(60))} }
func ZeroHours() Hours                { return Hours{Value: decimal.Zero} }

// HoursFromDuration converts a wall-clock duration to hours.
func HoursFromDuration(d time.Duration) Hours {
	return Hours{Value: decimal.NewFromInt(int64(d / time.Minute)).Div(decimal.NewFromInt(60))}
}

func (h Hours) Add(o Hours) Hours               { return Hours{Value: h.Value.Add(o.Value)} }
func (h Hours) Sub(o Hours) Hours               { return Hours{Value: h.Value.Sub(o.Value)} }
func (h Hours) Mul(s decimal.Decimal) Hours     { return Hours{Value: h.Value.Mul(s)} }
func (h Hours) Neg() Hours                      { return Hours{Value: h.Value.Neg()} }
func (h Hours) IsZero() bool                    { return h.Value.IsZero() }
func (h Hours) IsNegative() bool                { return h.Value.IsNegative() }
func (h Hours) IsPositive() bool                { return h.Value.IsPositive() }
func (h Hours) GreaterThan(o Hours) bool        { return h.Value.GreaterThan(o.Value) }
func (h Hours) GreaterOrEqual(o Hours) bool     { return h.Value.GreaterThanOrEqual(o.Value) }
func (h Hours) LessThan(o Hours) bool           { return h.Value.LessThan(o.Value) }
func (h Hours) Equal(o Hours) bool              { return h.Value.Equal(o.Value) }
func (h Hours) Float64() float64                { f, _ := h.Value.Float64(); return f }

func (h Hours) Min(o Hours) Hours {
	if h.LessThan(o) {
		return h
	}
	return o
}

func (h Hours) Max(o Hours) Hours {
	if h.GreaterThan(o) {
		return h
	}
	return o
}

// FloorZero clamps negative quantities to zero. Balance fields such as
// shortage and overtime are never reported negative.
func (h Hours) FloorZero() Hours {
	if h.IsNegative() {
		return ZeroHours()
	}
	return h
}

// =============================================================================
// IDENTIFIERS
// =============================================================================

type EntryID string
type UserID string
type RequestID string

// =============================================================================
// WORK TYPE - Closed set of entry tags, decided at clock-in
// =============================================================================

type WorkType string

const (
	WorkRegular          WorkType = "regular"
	WorkOvertime         WorkType = "overtime"
	WorkCompensationUsed WorkType = "compensation_used"
)

// =============================================================================
// RAW TIME ENTRY - One clock session
// =============================================================================

// RawTimeEntry is an immutable record of one clock session. It is created on
// clock-in, receives ClockOut exactly once on clock-out, and is later marked
// approved by the sign-off workflow. Entries are never deleted.
type RawTimeEntry struct {
	ID                EntryID
	UserID            UserID
	ClockIn           time.Time
	ClockOut          *time.Time // nil while the session is still open
	TotalBreakMinutes int        // manually logged break time
	WorkType          WorkType
	Approved          bool
	Holiday           bool // set by the holiday-calendar collaborator
	Location          string
	Notes             string
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// Open reports whether the session has not been clocked out yet.
// Open sessions contribute nothing to any balance until closed.
func (e RawTimeEntry) Open() bool { return e.ClockOut == nil }

// =============================================================================
// CLASSIFIED ENTRY - Raw entry + derived facts
// =============================================================================

// ClassifiedEntry augments a raw entry with its temporal categories and the
// net worked duration. Produced by Classify; never persisted.
type ClassifiedEntry struct {
	RawTimeEntry

	IsWeekend bool
	IsEvening bool
	IsNight   bool

	// Invalid marks a data error (clock-out before clock-in). The entry
	// contributes zero hours but stays visible so an administrator can fix it.
	Invalid bool

	// AutoBreakApplied is true when no break was logged and the statutory
	// automatic break was deducted instead.
	AutoBreakApplied bool
	AutoBreakHours   Hours

	// NetHours is the worked duration net of (manual or automatic) breaks.
	NetHours Hours
}

// =============================================================================
// TIME BALANCE - Computed aggregate for one person over one period
// =============================================================================

// TimeBalance is derived fresh from entries + policy for a requested window.
// It is never persisted as the source of truth; WeeklyBalance summaries exist
// only to feed the shortage streak detection.
type TimeBalance struct {
	UserID UserID
	Period Period

	ExpectedHours Hours
	ActualHours   Hours
	OvertimeHours Hours
	ShortageHours Hours

	CompensationHours     Hours // accrued within the period
	UsedCompensationHours Hours // consumed within the period

	WeekendHours Hours
	EveningHours Hours
	NightHours   Hours
	HolidayHours Hours

	// AutoBreakDeducted totals the automatically deducted breaks so the
	// person can see when manual break logging was skipped.
	AutoBreakDeducted Hours

	// InvalidEntries counts entries excluded as data errors.
	InvalidEntries int
}

// NetCompensation returns the period's compensation delta.
func (b TimeBalance) NetCompensation() Hours {
	return b.CompensationHours.Sub(b.UsedCompensationHours)
}

// IsShort reports whether the person worked fewer hours than contracted.
func (b TimeBalance) IsShort() bool { return b.ShortageHours.IsPositive() }

// WeeklyBalance is the persisted per-week summary used for streak detection.
type WeeklyBalance struct {
	UserID        UserID
	WeekStart     time.Time // Monday, midnight local
	ExpectedHours Hours
	ActualHours   Hours
	ShortageHours Hours
}

func (w WeeklyBalance) IsShort() bool { return w.ShortageHours.IsPositive() }

// =============================================================================
// SHORTAGE ALERT
// =============================================================================

type Severity string

const (
	SeverityWarning  Severity = "WARNING"
	SeverityCritical Severity = "CRITICAL"
)

type EscalationLevel string

const (
	EscalationLow    EscalationLevel = "LOW"
	EscalationMedium EscalationLevel = "MEDIUM"
	EscalationHigh   EscalationLevel = "HIGH"
)

// ShortageAlert is recomputed on every detector run; it is never mutated.
type ShortageAlert struct {
	UserID                UserID
	ShortageHours         Hours
	Severity              Severity
	ConsecutiveWeeksShort int
	EscalationLevel       EscalationLevel
	ActionRequired        bool
	AutoNotificationSent  bool
}

// =============================================================================
// COMPENSATION REQUEST
// =============================================================================

type RequestStatus string

const (
	StatusPending  RequestStatus = "pending"
	StatusApproved RequestStatus = "approved"
	StatusRejected RequestStatus = "rejected"
)

// CompensationRequest is a proposed or committed use of banked compensation
// time. State machine: pending -> approved (terminal) or pending -> rejected
// (terminal). No further transitions.
type CompensationRequest struct {
	ID     RequestID
	UserID UserID
	Date   time.Time
	Hours  Hours
	Type   string // reason category, free text

	Status           RequestStatus
	RequiresApproval bool

	// RemainingBalance is the projected balance after this request, computed
	// when the request is validated.
	RemainingBalance Hours

	ApprovedBy      *string
	ApprovedAt      *time.Time
	RejectionReason *string

	CreatedAt time.Time
	UpdatedAt time.Time
}
