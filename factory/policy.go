/*
Package factory turns policy configuration files into engine.LaborPolicy
values.

PURPOSE:
  Labor rules differ per contract type (fulltime, parttime, nuluren) and are
  operated by HR, not by developers. This package parses a YAML document with
  one policy per contract type, fills in the company defaults, and validates
  the result before any computation sees it.

FILE FORMAT (YAML):
  policies:
    - name: "Fulltime standaard"
      contract_type: fulltime
      contract_hours_per_week: 40
      daily_overtime_threshold: 9
      weekly_overtime_threshold: 40
      compensation_multiplier: 1.5
      max_accrual_hours: 80
      auto_approval_enabled: false
      auto_approval_threshold: 4
      weekend_compensation: true
      evening_compensation: true
      night_compensation: true
      holiday_compensation: true
      auto_break_after_hours: 6
      auto_break_minutes: 30

RESOLUTION:
  Lookup is by contract type. An unknown contract type falls back to the
  fulltime policy; a set without a fulltime policy is rejected at load time
  so the fallback always exists.
*/
package factory

import (
	"fmt"
	"os"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/urenwerk/balance-engine/engine"
)

// =============================================================================
// POLICY FILE SCHEMA
// =============================================================================

// PolicyFile is the top-level YAML document.
type PolicyFile struct {
	Policies []PolicyYAML `yaml:"policies"`
}

// PolicyYAML is the serialized form of one labor policy. Pointer fields
// distinguish "absent, use the default" from an explicit zero.
type PolicyYAML struct {
	Name                    string   `yaml:"name"`
	ContractType            string   `yaml:"contract_type"`
	ContractHoursPerWeek    float64  `yaml:"contract_hours_per_week"`
	DailyOvertimeThreshold  float64  `yaml:"daily_overtime_threshold"`
	WeeklyOvertimeThreshold float64  `yaml:"weekly_overtime_threshold"`
	CompensationMultiplier  *float64 `yaml:"compensation_multiplier"`
	MaxAccrualHours         float64  `yaml:"max_accrual_hours"`
	AutoApprovalEnabled     bool     `yaml:"auto_approval_enabled"`
	AutoApprovalThreshold   float64  `yaml:"auto_approval_threshold"`
	WeekendCompensation     bool     `yaml:"weekend_compensation"`
	EveningCompensation     bool     `yaml:"evening_compensation"`
	NightCompensation       bool     `yaml:"night_compensation"`
	HolidayCompensation     bool     `yaml:"holiday_compensation"`
	AutoBreakAfterHours     *float64 `yaml:"auto_break_after_hours"`
	AutoBreakMinutes        *int     `yaml:"auto_break_minutes"`
}

// =============================================================================
// POLICY SET
// =============================================================================

// PolicySet resolves labor policies by contract type.
type PolicySet struct {
	byType map[engine.ContractType]engine.LaborPolicy
}

// DefaultPolicySet returns a set holding only the built-in fulltime baseline.
// Used when no policy file is configured.
func DefaultPolicySet() *PolicySet {
	p := engine.DefaultPolicy()
	return &PolicySet{byType: map[engine.ContractType]engine.LaborPolicy{
		engine.ContractFulltime: p,
	}}
}

// Resolve returns the policy for a contract type, falling back to fulltime
// for unknown types. The fulltime policy is guaranteed present by Load.
func (ps *PolicySet) Resolve(ct engine.ContractType) engine.LaborPolicy {
	if p, ok := ps.byType[ct]; ok {
		return p
	}
	return ps.byType[engine.ContractFulltime]
}

// All returns the configured policies, keyed by contract type.
func (ps *PolicySet) All() map[engine.ContractType]engine.LaborPolicy {
	out := make(map[engine.ContractType]engine.LaborPolicy, len(ps.byType))
	for k, v := range ps.byType {
		out[k] = v
	}
	return out
}

// =============================================================================
// LOADING
// =============================================================================

// Load reads and validates a policy file.
func Load(path string) (*PolicySet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read policy file: %w", err)
	}
	return Parse(data)
}

// Parse builds a PolicySet from YAML bytes.
func Parse(data []byte) (*PolicySet, error) {
	var file PolicyFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse policy file: %w", err)
	}
	if len(file.Policies) == 0 {
		return nil, fmt.Errorf("policy file defines no policies")
	}

	byType := make(map[engine.ContractType]engine.LaborPolicy, len(file.Policies))
	for _, py := range file.Policies {
		policy, err := toPolicy(py)
		if err != nil {
			return nil, err
		}
		if _, dup := byType[policy.ContractType]; dup {
			return nil, fmt.Errorf("duplicate policy for contract type %q", policy.ContractType)
		}
		byType[policy.ContractType] = policy
	}

	if _, ok := byType[engine.ContractFulltime]; !ok {
		return nil, fmt.Errorf("policy file must define a fulltime policy (fallback for unknown contract types)")
	}
	return &PolicySet{byType: byType}, nil
}

func toPolicy(py PolicyYAML) (engine.LaborPolicy, error) {
	ct := engine.ContractType(py.ContractType)
	switch ct {
	case engine.ContractFulltime, engine.ContractParttime, engine.ContractNulUren:
	default:
		return engine.LaborPolicy{}, fmt.Errorf("policy %q: unknown contract type %q", py.Name, py.ContractType)
	}

	multiplier := decimal.NewFromFloat(1.5)
	if py.CompensationMultiplier != nil {
		multiplier = decimal.NewFromFloat(*py.CompensationMultiplier)
	}
	breakAfter := engine.HoursFromInt(engine.DefaultAutoBreakAfterHours)
	if py.AutoBreakAfterHours != nil {
		breakAfter = engine.NewHours(*py.AutoBreakAfterHours)
	}
	breakMinutes := engine.DefaultAutoBreakMinutes
	if py.AutoBreakMinutes != nil {
		breakMinutes = *py.AutoBreakMinutes
	}

	p := engine.LaborPolicy{
		Name:                    py.Name,
		ContractType:            ct,
		ContractHoursPerWeek:    engine.NewHours(py.ContractHoursPerWeek),
		DailyOvertimeThreshold:  engine.NewHours(py.DailyOvertimeThreshold),
		WeeklyOvertimeThreshold: engine.NewHours(py.WeeklyOvertimeThreshold),
		CompensationMultiplier:  multiplier,
		MaxAccrualHours:         engine.NewHours(py.MaxAccrualHours),
		AutoApprovalEnabled:     py.AutoApprovalEnabled,
		AutoApprovalThreshold:   engine.NewHours(py.AutoApprovalThreshold),
		WeekendCompensation:     py.WeekendCompensation,
		EveningCompensation:     py.EveningCompensation,
		NightCompensation:       py.NightCompensation,
		HolidayCompensation:     py.HolidayCompensation,
		AutoBreakAfter:          breakAfter,
		AutoBreakMinutes:        breakMinutes,
	}
	if err := p.Validate(); err != nil {
		return engine.LaborPolicy{}, err
	}
	return p, nil
}
