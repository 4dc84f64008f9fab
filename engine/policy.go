/*
policy.go - Labor policy configuration

PURPOSE:
  A LaborPolicy is the ruleset that governs how raw clock sessions are valued:
  contract hours, overtime thresholds, compensation accrual, and auto-break
  deduction. Policies are resolved per contract type (fulltime, parttime,
  nuluren) and passed into the computation as immutable parameters - the
  engine itself holds no policy state.

NOTE ON CONSISTENCY:
  The engine does not enforce internal consistency between thresholds
  (e.g. weekly >= daily). Policy authors may configure values the engine
  will faithfully apply. Validation only rejects negative quantities.
*/
package engine

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// =============================================================================
// CONTRACT TYPES
// =============================================================================

type ContractType string

const (
	ContractFulltime ContractType = "fulltime"
	ContractParttime ContractType = "parttime"
	ContractNulUren  ContractType = "nuluren" // zero-hours contract
)

// =============================================================================
// LABOR POLICY
// =============================================================================

// LaborPolicy bundles the labor-rule parameters for one contract type.
type LaborPolicy struct {
	Name         string
	ContractType ContractType

	// ContractHoursPerWeek is the expected baseline. Zero for nuluren
	// contracts, which never trigger shortage.
	ContractHoursPerWeek Hours

	DailyOvertimeThreshold  Hours
	WeeklyOvertimeThreshold Hours

	// CompensationMultiplier converts overtime hours into banked
	// compensation hours (>= 1.0).
	CompensationMultiplier decimal.Decimal

	// MaxAccrualHours caps the banked compensation balance. New accrual
	// beyond the ceiling is not added; an existing balance is never
	// force-reduced.
	MaxAccrualHours Hours

	// AutoApprovalEnabled gates AutoApprovalThreshold: only when enabled do
	// usage requests at or below the threshold self-approve.
	AutoApprovalEnabled   bool
	AutoApprovalThreshold Hours

	// Per-category compensation toggles. When enabled, hours worked in the
	// category accrue compensation even without the overtime tag.
	WeekendCompensation bool
	EveningCompensation bool
	NightCompensation   bool
	HolidayCompensation bool

	// Auto-break deduction: when no manual break was logged and the gross
	// session exceeds AutoBreakAfter, AutoBreakMinutes are deducted.
	AutoBreakAfter   Hours
	AutoBreakMinutes int
}

// DefaultAutoBreak values follow the sampled company policy (30 minutes after
// 6 hours). Statutory variants belong in the policy file.
const (
	DefaultAutoBreakAfterHours = 6
	DefaultAutoBreakMinutes    = 30
)

// DefaultPolicy returns the fulltime baseline used when no policy file is
// configured.
func DefaultPolicy() LaborPolicy {
	return LaborPolicy{
		Name:                    "Fulltime standaard",
		ContractType:            ContractFulltime,
		ContractHoursPerWeek:    HoursFromInt(40),
		DailyOvertimeThreshold:  HoursFromInt(9),
		WeeklyOvertimeThreshold: HoursFromInt(40),
		CompensationMultiplier:  decimal.NewFromFloat(1.5),
		MaxAccrualHours:         HoursFromInt(80),
		AutoApprovalEnabled:     false,
		AutoApprovalThreshold:   HoursFromInt(4),
		WeekendCompensation:     true,
		EveningCompensation:     true,
		NightCompensation:       true,
		HolidayCompensation:     true,
		AutoBreakAfter:          HoursFromInt(DefaultAutoBreakAfterHours),
		AutoBreakMinutes:        DefaultAutoBreakMinutes,
	}
}

// IsZeroHours reports whether this is a nuluren contract.
func (p LaborPolicy) IsZeroHours() bool {
	return p.ContractType == ContractNulUren || p.ContractHoursPerWeek.IsZero()
}

// Validate rejects negative quantities and multipliers below zero. It does
// NOT check that weekly and daily thresholds are mutually consistent.
func (p LaborPolicy) Validate() error {
	checks := []struct {
		name string
		bad  bool
	}{
		{"contract_hours_per_week", p.ContractHoursPerWeek.IsNegative()},
		{"daily_overtime_threshold", p.DailyOvertimeThreshold.IsNegative()},
		{"weekly_overtime_threshold", p.WeeklyOvertimeThreshold.IsNegative()},
		{"compensation_multiplier", p.CompensationMultiplier.IsNegative()},
		{"max_accrual_hours", p.MaxAccrualHours.IsNegative()},
		{"auto_approval_threshold", p.AutoApprovalThreshold.IsNegative()},
		{"auto_break_after", p.AutoBreakAfter.IsNegative()},
		{"auto_break_minutes", p.AutoBreakMinutes < 0},
	}
	for _, c := range checks {
		if c.bad {
			return fmt.Errorf("policy %q: %s must be non-negative", p.Name, c.name)
		}
	}
	return nil
}
