package engine_test

import (
	"testing"

	"github.com/urenwerk/balance-engine/engine"
)

// shortBalance builds a current-week balance with the given shortage.
func shortBalance(user string, shortage float64) engine.TimeBalance {
	return engine.TimeBalance{
		UserID:        engine.UserID(user),
		Period:        juneWeek(),
		ExpectedHours: engine.HoursFromInt(40),
		ActualHours:   engine.NewHours(40 - shortage),
		ShortageHours: engine.NewHours(shortage),
	}
}

// weekHistory builds trailing weekly balances, oldest first. Each bool marks
// whether that week was short.
func weekHistory(user string, short ...bool) []engine.WeeklyBalance {
	history := make([]engine.WeeklyBalance, len(short))
	start := juneWeek().Start.AddDate(0, 0, -7*len(short))
	for i, s := range short {
		shortage := engine.ZeroHours()
		if s {
			shortage = engine.HoursFromInt(4)
		}
		history[i] = engine.WeeklyBalance{
			UserID:        engine.UserID(user),
			WeekStart:     start.AddDate(0, 0, 7*i),
			ExpectedHours: engine.HoursFromInt(40),
			ShortageHours: shortage,
		}
	}
	return history
}

// =============================================================================
// DETECTION
// =============================================================================

func TestDetectShortageNoAlertWithoutShortage(t *testing.T) {
	// GIVEN: a balance meeting contract hours
	alert := engine.DetectShortage(shortBalance("u1", 0), nil)
	if alert != nil {
		t.Fatalf("expected no alert, got %+v", alert)
	}
}

func TestDetectShortageSeverity(t *testing.T) {
	// GIVEN: shortages below and at the full-workday threshold
	// THEN: severity flips to CRITICAL at exactly 8h
	cases := []struct {
		shortage float64
		want     engine.Severity
	}{
		{0.25, engine.SeverityWarning},
		{7.75, engine.SeverityWarning},
		{8, engine.SeverityCritical},
		{12, engine.SeverityCritical},
	}
	for _, tc := range cases {
		alert := engine.DetectShortage(shortBalance("u1", tc.shortage), nil)
		if alert == nil {
			t.Fatalf("shortage %v: expected an alert", tc.shortage)
		}
		if alert.Severity != tc.want {
			t.Errorf("shortage %v: severity %s, want %s", tc.shortage, alert.Severity, tc.want)
		}
	}
}

// =============================================================================
// STREAKS AND ESCALATION
// =============================================================================

func TestDetectShortageEscalation(t *testing.T) {
	// GIVEN: varying trailing streaks of short weeks
	// THEN: escalation and action-required follow the streak length
	cases := []struct {
		name       string
		history    []engine.WeeklyBalance
		streak     int
		escalation engine.EscalationLevel
		action     bool
	}{
		{"first short week", nil, 1, engine.EscalationLow, false},
		{"second consecutive", weekHistory("u1", true), 2, engine.EscalationMedium, true},
		{"third consecutive", weekHistory("u1", true, true), 3, engine.EscalationHigh, true},
		{"long streak", weekHistory("u1", true, true, true, true, true), 6, engine.EscalationHigh, true},
	}
	for _, tc := range cases {
		alert := engine.DetectShortage(shortBalance("u1", 4), tc.history)
		if alert == nil {
			t.Fatalf("%s: expected an alert", tc.name)
		}
		if alert.ConsecutiveWeeksShort != tc.streak {
			t.Errorf("%s: streak %d, want %d", tc.name, alert.ConsecutiveWeeksShort, tc.streak)
		}
		if alert.EscalationLevel != tc.escalation {
			t.Errorf("%s: escalation %s, want %s", tc.name, alert.EscalationLevel, tc.escalation)
		}
		if alert.ActionRequired != tc.action {
			t.Errorf("%s: action %v, want %v", tc.name, alert.ActionRequired, tc.action)
		}
	}
}

func TestDetectShortageStreakBrokenByGoodWeek(t *testing.T) {
	// GIVEN: history [short, good, short] oldest first
	// THEN: only the trailing short week counts toward the streak
	history := weekHistory("u1", true, false, true)

	alert := engine.DetectShortage(shortBalance("u1", 4), history)
	if alert == nil {
		t.Fatal("expected an alert")
	}
	if alert.ConsecutiveWeeksShort != 2 {
		t.Errorf("streak %d, want 2 (good week breaks the run)", alert.ConsecutiveWeeksShort)
	}
}

func TestDetectShortageIncompleteHistory(t *testing.T) {
	// GIVEN: a new hire with a single week of history
	// THEN: detection works, the streak reflecting what is available
	alert := engine.DetectShortage(shortBalance("new", 9), weekHistory("new", true))
	if alert == nil {
		t.Fatal("expected an alert")
	}
	if alert.ConsecutiveWeeksShort != 2 {
		t.Errorf("streak %d, want 2", alert.ConsecutiveWeeksShort)
	}
	if alert.Severity != engine.SeverityCritical {
		t.Errorf("severity %s, want CRITICAL", alert.Severity)
	}
}

// =============================================================================
// BATCH DETECTION
// =============================================================================

func TestDetectShortagesAcrossUsers(t *testing.T) {
	// GIVEN: one short and one healthy user
	balances := []engine.TimeBalance{
		shortBalance("short-user", 4),
		shortBalance("ok-user", 0),
	}
	history := map[engine.UserID][]engine.WeeklyBalance{
		"short-user": weekHistory("short-user", true),
	}

	alerts := engine.DetectShortages(balances, history)
	if len(alerts) != 1 {
		t.Fatalf("expected 1 alert, got %d", len(alerts))
	}
	if alerts[0].UserID != "short-user" {
		t.Errorf("alert for %s, want short-user", alerts[0].UserID)
	}
}
