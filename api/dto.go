/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication, decoupling the domain
  types from the external contract. Hour quantities are serialized as
  float64 plus a formatted "8u 30m" display string; the exact decimal stays
  internal.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

VALIDATION:
  Validation is done in handlers and the engine, not in DTOs. DTOs are pure
  data carriers.
*/
package api

import (
	"time"

	"github.com/urenwerk/balance-engine/engine"
)

// =============================================================================
// ENTRY TYPES
// =============================================================================

// ClockInRequest opens a new time entry.
type ClockInRequest struct {
	UserID   string `json:"user_id"`
	ClockIn  string `json:"clock_in"` // RFC3339; empty means now
	WorkType string `json:"work_type,omitempty"`
	Holiday  bool   `json:"holiday,omitempty"`
	Location string `json:"location,omitempty"`
	Notes    string `json:"notes,omitempty"`
}

// ClockOutRequest closes an entry.
type ClockOutRequest struct {
	ClockOut          string `json:"clock_out"` // RFC3339; empty means now
	TotalBreakMinutes int    `json:"total_break_minutes,omitempty"`
}

// EntryDTO represents one clock session.
type EntryDTO struct {
	ID                string  `json:"id"`
	UserID            string  `json:"user_id"`
	ClockIn           string  `json:"clock_in"`
	ClockOut          *string `json:"clock_out,omitempty"`
	TotalBreakMinutes int     `json:"total_break_minutes"`
	WorkType          string  `json:"work_type"`
	Approved          bool    `json:"approved"`
	Holiday           bool    `json:"holiday,omitempty"`
	Location          string  `json:"location,omitempty"`
	Notes             string  `json:"notes,omitempty"`
}

// =============================================================================
// BALANCE TYPES
// =============================================================================

// HoursDTO pairs the numeric quantity with its Dutch display form.
type HoursDTO struct {
	Hours   float64 `json:"hours"`
	Display string  `json:"display"`
}

// BalanceDTO is the computed time balance for one person over one period.
type BalanceDTO struct {
	UserID      string `json:"user_id"`
	PeriodStart string `json:"period_start"`
	PeriodEnd   string `json:"period_end"`

	Expected HoursDTO `json:"expected"`
	Actual   HoursDTO `json:"actual"`
	Overtime HoursDTO `json:"overtime"`
	Shortage HoursDTO `json:"shortage"`

	CompensationAccrued HoursDTO `json:"compensation_accrued"`
	CompensationUsed    HoursDTO `json:"compensation_used"`

	Weekend HoursDTO `json:"weekend"`
	Evening HoursDTO `json:"evening"`
	Night   HoursDTO `json:"night"`
	Holiday HoursDTO `json:"holiday"`

	AutoBreakDeducted HoursDTO `json:"auto_break_deducted"`
	InvalidEntries    int      `json:"invalid_entries"`

	// ProductivityPct is omitted for zero-hours contracts.
	ProductivityPct *int `json:"productivity_pct,omitempty"`
}

// =============================================================================
// LEDGER TYPES
// =============================================================================

// LedgerDTO is the compensation ledger view for one person.
type LedgerDTO struct {
	UserID         string   `json:"user_id"`
	Earned         HoursDTO `json:"earned"`
	Used           HoursDTO `json:"used"`
	Balance        HoursDTO `json:"balance"`
	Pending        HoursDTO `json:"pending"`
	Available      HoursDTO `json:"available"`
	MaxUsableHours HoursDTO `json:"max_usable_hours"`
	CanUse         bool     `json:"can_use"`
}

// =============================================================================
// REQUEST TYPES
// =============================================================================

// SubmitRequestDTO is a single-day compensation usage request.
type SubmitRequestDTO struct {
	Date   string  `json:"date"` // YYYY-MM-DD
	Hours  float64 `json:"hours"`
	Reason string  `json:"reason,omitempty"`
}

// SubmitBulkRequestDTO is a multi-day usage request, validated as a unit.
type SubmitBulkRequestDTO struct {
	Dates       []string `json:"dates"` // YYYY-MM-DD each
	HoursPerDay float64  `json:"hours_per_day"`
	Reason      string   `json:"reason,omitempty"`
}

// RejectRequestDTO carries the rejection reason.
type RejectRequestDTO struct {
	Reason string `json:"reason"`
}

// RequestDTO represents a compensation request.
type RequestDTO struct {
	ID               string   `json:"id"`
	UserID           string   `json:"user_id"`
	Date             string   `json:"date"`
	Hours            HoursDTO `json:"hours"`
	Status           string   `json:"status"`
	RequiresApproval bool     `json:"requires_approval"`
	RemainingBalance HoursDTO `json:"remaining_balance"`
	ApprovedBy       *string  `json:"approved_by,omitempty"`
	RejectionReason  *string  `json:"rejection_reason,omitempty"`
	CreatedAt        string   `json:"created_at"`
}

// BulkResultDTO is the response to a bulk request.
type BulkResultDTO struct {
	Requests         []RequestDTO `json:"requests"`
	TotalHours       HoursDTO     `json:"total_hours"`
	RemainingBalance HoursDTO     `json:"remaining_balance"`
}

// =============================================================================
// ALERT TYPES
// =============================================================================

// AlertDTO represents a shortage alert.
type AlertDTO struct {
	UserID                string   `json:"user_id"`
	Shortage              HoursDTO `json:"shortage"`
	Severity              string   `json:"severity"`
	ConsecutiveWeeksShort int      `json:"consecutive_weeks_short"`
	EscalationLevel       string   `json:"escalation_level"`
	ActionRequired        bool     `json:"action_required"`
}

// =============================================================================
// POLICY TYPES
// =============================================================================

// PolicyDTO summarizes a labor policy for display.
type PolicyDTO struct {
	Name                 string   `json:"name"`
	ContractType         string   `json:"contract_type"`
	ContractHoursPerWeek float64  `json:"contract_hours_per_week"`
	Multiplier           float64  `json:"compensation_multiplier"`
	MaxAccrualHours      float64  `json:"max_accrual_hours"`
	AutoApprovalEnabled  bool     `json:"auto_approval_enabled"`
	AutoApprovalUpTo     *float64 `json:"auto_approval_up_to,omitempty"`
}

// ErrorResponse is the standard error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details any    `json:"details,omitempty"`
}

// =============================================================================
// CONVERSION HELPERS
// =============================================================================

func toHoursDTO(h engine.Hours) HoursDTO {
	return HoursDTO{Hours: h.Float64(), Display: h.Format()}
}

func toEntryDTO(e engine.RawTimeEntry) EntryDTO {
	dto := EntryDTO{
		ID:                string(e.ID),
		UserID:            string(e.UserID),
		ClockIn:           e.ClockIn.Format(time.RFC3339),
		TotalBreakMinutes: e.TotalBreakMinutes,
		WorkType:          string(e.WorkType),
		Approved:          e.Approved,
		Holiday:           e.Holiday,
		Location:          e.Location,
		Notes:             e.Notes,
	}
	if e.ClockOut != nil {
		out := e.ClockOut.Format(time.RFC3339)
		dto.ClockOut = &out
	}
	return dto
}

func toBalanceDTO(b engine.TimeBalance) BalanceDTO {
	dto := BalanceDTO{
		UserID:              string(b.UserID),
		PeriodStart:         b.Period.Start.Format("2006-01-02"),
		PeriodEnd:           b.Period.End.Format("2006-01-02"),
		Expected:            toHoursDTO(b.ExpectedHours),
		Actual:              toHoursDTO(b.ActualHours),
		Overtime:            toHoursDTO(b.OvertimeHours),
		Shortage:            toHoursDTO(b.ShortageHours),
		CompensationAccrued: toHoursDTO(b.CompensationHours),
		CompensationUsed:    toHoursDTO(b.UsedCompensationHours),
		Weekend:             toHoursDTO(b.WeekendHours),
		Evening:             toHoursDTO(b.EveningHours),
		Night:               toHoursDTO(b.NightHours),
		Holiday:             toHoursDTO(b.HolidayHours),
		AutoBreakDeducted:   toHoursDTO(b.AutoBreakDeducted),
		InvalidEntries:      b.InvalidEntries,
	}
	if pct, ok := b.Productivity(); ok {
		dto.ProductivityPct = &pct
	}
	return dto
}

func toLedgerDTO(s engine.LedgerSummary) LedgerDTO {
	return LedgerDTO{
		UserID:         string(s.UserID),
		Earned:         toHoursDTO(s.Earned),
		Used:           toHoursDTO(s.Used),
		Balance:        toHoursDTO(s.Balance),
		Pending:        toHoursDTO(s.Pending),
		Available:      toHoursDTO(s.Available()),
		MaxUsableHours: toHoursDTO(s.MaxUsableHours()),
		CanUse:         s.CanUse(),
	}
}

func toRequestDTO(r engine.CompensationRequest) RequestDTO {
	return RequestDTO{
		ID:               string(r.ID),
		UserID:           string(r.UserID),
		Date:             r.Date.Format("2006-01-02"),
		Hours:            toHoursDTO(r.Hours),
		Status:           string(r.Status),
		RequiresApproval: r.RequiresApproval,
		RemainingBalance: toHoursDTO(r.RemainingBalance),
		ApprovedBy:       r.ApprovedBy,
		RejectionReason:  r.RejectionReason,
		CreatedAt:        r.CreatedAt.Format(time.RFC3339),
	}
}

func toRequestDTOs(requests []engine.CompensationRequest) []RequestDTO {
	dtos := make([]RequestDTO, len(requests))
	for i, r := range requests {
		dtos[i] = toRequestDTO(r)
	}
	return dtos
}

func toAlertDTO(a engine.ShortageAlert) AlertDTO {
	return AlertDTO{
		UserID:                string(a.UserID),
		Shortage:              toHoursDTO(a.ShortageHours),
		Severity:              string(a.Severity),
		ConsecutiveWeeksShort: a.ConsecutiveWeeksShort,
		EscalationLevel:       string(a.EscalationLevel),
		ActionRequired:        a.ActionRequired,
	}
}

func toPolicyDTO(p engine.LaborPolicy) PolicyDTO {
	dto := PolicyDTO{
		Name:                 p.Name,
		ContractType:         string(p.ContractType),
		ContractHoursPerWeek: p.ContractHoursPerWeek.Float64(),
		Multiplier:           p.CompensationMultiplier.InexactFloat64(),
		MaxAccrualHours:      p.MaxAccrualHours.Float64(),
		AutoApprovalEnabled:  p.AutoApprovalEnabled,
	}
	if p.AutoApprovalEnabled {
		upTo := p.AutoApprovalThreshold.Float64()
		dto.AutoApprovalUpTo = &upTo
	}
	return dto
}
