package api_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/urenwerk/balance-engine/api"
	"github.com/urenwerk/balance-engine/engine"
	"github.com/urenwerk/balance-engine/factory"
	"github.com/urenwerk/balance-engine/store/memory"
)

func newTestScanner(t *testing.T) (*api.WeeklyScanner, *memory.Store) {
	t.Helper()
	store := memory.New()
	scanner := api.NewWeeklyScanner(store, factory.DefaultPolicySet(), testLoc)
	scanner.Now = func() time.Time { return testNow }
	return scanner, store
}

func TestWeeklyScanPersistsSummariesAndAlerts(t *testing.T) {
	// GIVEN: a short last-completed week (Mon 1 - Sun 7 June) and a healthy one
	scanner, store := newTestScanner(t)
	seedShift(t, store, "short-1", "short-user",
		time.Date(2026, time.June, 1, 9, 0, 0, 0, testLoc), 4*time.Hour, engine.WorkRegular)
	for day := 1; day <= 5; day++ {
		in := time.Date(2026, time.June, day, 8, 0, 0, 0, testLoc)
		out := in.Add(8*time.Hour + 30*time.Minute)
		require.NoError(t, store.CreateEntry(context.Background(), engine.RawTimeEntry{
			ID: engine.EntryID(fmt.Sprintf("ok-%d", day)), UserID: "ok-user",
			ClockIn: in, ClockOut: &out, TotalBreakMinutes: 30,
			WorkType: engine.WorkRegular,
		}))
	}

	// WHEN: the scan runs on Wednesday the 10th
	alerts, err := scanner.RunNow(context.Background())
	require.NoError(t, err)

	// THEN: only the short user alerts, marked as notified
	require.Len(t, alerts, 1)
	assert.Equal(t, engine.UserID("short-user"), alerts[0].UserID)
	assert.Equal(t, engine.SeverityCritical, alerts[0].Severity)
	assert.True(t, alerts[0].AutoNotificationSent)

	// AND: both users got a persisted weekly summary for the scanned week
	weekStart := time.Date(2026, time.June, 1, 0, 0, 0, 0, testLoc)
	for _, user := range []engine.UserID{"short-user", "ok-user"} {
		history, err := store.WeeklyBalances(context.Background(), user, weekStart.AddDate(0, 0, 7), 12)
		require.NoError(t, err)
		require.Len(t, history, 1, "summary missing for %s", user)
		assert.True(t, history[0].WeekStart.Equal(weekStart))
	}
}

func TestWeeklyScanIsRerunnable(t *testing.T) {
	// GIVEN: a completed scan
	scanner, store := newTestScanner(t)
	seedShift(t, store, "e1", "emp-1",
		time.Date(2026, time.June, 1, 9, 0, 0, 0, testLoc), 4*time.Hour, engine.WorkRegular)

	_, err := scanner.RunNow(context.Background())
	require.NoError(t, err)

	// WHEN: the same scan runs again
	_, err = scanner.RunNow(context.Background())
	require.NoError(t, err)

	// THEN: the weekly summary is upserted, not duplicated
	history, err := store.WeeklyBalances(context.Background(),
		"emp-1", time.Date(2026, time.June, 8, 0, 0, 0, 0, testLoc), 12)
	require.NoError(t, err)
	assert.Len(t, history, 1)
}

func TestWeeklyScanStreakGrowsAcrossWeeks(t *testing.T) {
	// GIVEN: a stored short week preceding the scanned one
	scanner, store := newTestScanner(t)
	require.NoError(t, store.SaveWeeklyBalance(context.Background(), engine.WeeklyBalance{
		UserID:        "emp-1",
		WeekStart:     time.Date(2026, time.May, 25, 0, 0, 0, 0, testLoc),
		ExpectedHours: engine.HoursFromInt(40),
		ActualHours:   engine.HoursFromInt(32),
		ShortageHours: engine.HoursFromInt(8),
	}))
	seedShift(t, store, "e1", "emp-1",
		time.Date(2026, time.June, 1, 9, 0, 0, 0, testLoc), 4*time.Hour, engine.WorkRegular)

	alerts, err := scanner.RunNow(context.Background())
	require.NoError(t, err)

	require.Len(t, alerts, 1)
	assert.Equal(t, 2, alerts[0].ConsecutiveWeeksShort)
	assert.Equal(t, engine.EscalationMedium, alerts[0].EscalationLevel)
}
