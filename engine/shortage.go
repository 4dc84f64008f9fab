/*
shortage.go - Shortage detection and escalation

PURPOSE:
  Compares a person's aggregated balance against their contract hours and
  produces ShortageAlert records with severity and escalation derived from
  the consecutive-week shortfall streak.

RULES:
  severity  = CRITICAL when shortage >= 8h (a full missed workday), else WARNING
  streak    = current week + trailing consecutive short weeks in the history
  escalation= HIGH at streak >= 3, MEDIUM at >= 2, else LOW
  action    = required at streak >= 2

  A person with zero shortage produces no alert. Incomplete history is not
  an error: the streak simply reflects the weeks available.
*/
package engine

// CriticalShortageHours is a full missed workday.
var CriticalShortageHours = HoursFromInt(8)

// Streak thresholds for escalation.
const (
	escalationMediumWeeks = 2
	escalationHighWeeks   = 3
)

// DetectShortage evaluates one balance against the person's prior weekly
// balances, ordered oldest to newest (typically 12 weeks). Returns nil when
// there is no shortage.
func DetectShortage(current TimeBalance, history []WeeklyBalance) *ShortageAlert {
	if !current.IsShort() {
		return nil
	}

	streak := 1 // the current week
	for i := len(history) - 1; i >= 0; i-- {
		if !history[i].IsShort() {
			break
		}
		streak++
	}

	severity := SeverityWarning
	if current.ShortageHours.GreaterOrEqual(CriticalShortageHours) {
		severity = SeverityCritical
	}

	escalation := EscalationLow
	switch {
	case streak >= escalationHighWeeks:
		escalation = EscalationHigh
	case streak >= escalationMediumWeeks:
		escalation = EscalationMedium
	}

	return &ShortageAlert{
		UserID:                current.UserID,
		ShortageHours:         current.ShortageHours,
		Severity:              severity,
		ConsecutiveWeeksShort: streak,
		EscalationLevel:       escalation,
		ActionRequired:        streak >= escalationMediumWeeks,
	}
}

// DetectShortages runs the detector over many users. Alerts come back in
// input order; consumers sort by severity or escalation as needed.
func DetectShortages(balances []TimeBalance, history map[UserID][]WeeklyBalance) []ShortageAlert {
	var alerts []ShortageAlert
	for _, b := range balances {
		if alert := DetectShortage(b, history[b.UserID]); alert != nil {
			alerts = append(alerts, *alert)
		}
	}
	return alerts
}
