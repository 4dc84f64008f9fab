/*
scheduler.go - Automated weekly shortage scan

PURPOSE:
  Periodically aggregates the last completed week for every active user,
  persists the weekly summary (the history that feeds streak detection), and
  raises shortage alerts.

DESIGN:
  - Cron-driven (5-field expression, e.g. "0 7 * * 1" for Monday 07:00)
  - Scans the week BEFORE the run time, so only completed weeks enter history
  - Persisting the summary is an upsert; re-running a scan is harmless
  - Alerts are logged and marked notified; delivery beyond the log is the
    notification gateway's concern

USAGE:
  scanner := NewWeeklyScanner(store, policies, loc)
  scanner.Start("0 7 * * 1")
  // ... later
  scanner.Stop()

SEE ALSO:
  - engine/shortage.go: Detection rules
  - handlers.go: ListAlerts (on-demand view of the current week)
*/
package api

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/urenwerk/balance-engine/engine"
	"github.com/urenwerk/balance-engine/factory"
)

// WeeklyScanner runs the recurring shortage scan.
type WeeklyScanner struct {
	Store        engine.TxStore
	Policies     *factory.PolicySet
	HistoryWeeks int
	Location     *time.Location

	// Now is overridable for tests.
	Now func() time.Time

	mu   sync.Mutex
	stop chan struct{}
	wg   sync.WaitGroup
}

// NewWeeklyScanner creates a scanner with the default 12-week history window.
func NewWeeklyScanner(store engine.TxStore, policies *factory.PolicySet, loc *time.Location) *WeeklyScanner {
	if loc == nil {
		loc = time.Local
	}
	return &WeeklyScanner{
		Store:        store,
		Policies:     policies,
		HistoryWeeks: 12,
		Location:     loc,
		Now:          time.Now,
	}
}

// Start schedules the scan. The schedule is a standard 5-field cron
// expression (minute hour day-of-month month day-of-week). An empty schedule
// disables the scan.
func (ws *WeeklyScanner) Start(schedule string) {
	if schedule == "" {
		log.Println("[Scheduler] Weekly scan disabled (no schedule)")
		return
	}

	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	sched, err := parser.Parse(schedule)
	if err != nil {
		log.Printf("[Scheduler] Invalid schedule %q: %v - weekly scan disabled", schedule, err)
		return
	}

	ws.mu.Lock()
	defer ws.mu.Unlock()
	if ws.stop != nil {
		return // already running
	}
	ws.stop = make(chan struct{})
	ws.wg.Add(1)

	go ws.run(sched)
	log.Printf("[Scheduler] Weekly scan scheduled (cron: %s)", schedule)
}

// Stop halts the scheduler and waits for an in-flight scan to finish.
func (ws *WeeklyScanner) Stop() {
	ws.mu.Lock()
	defer ws.mu.Unlock()
	if ws.stop == nil {
		return
	}
	close(ws.stop)
	ws.wg.Wait()
	ws.stop = nil
	log.Println("[Scheduler] Stopped")
}

func (ws *WeeklyScanner) run(sched cron.Schedule) {
	defer ws.wg.Done()
	for {
		now := ws.Now().In(ws.Location)
		next := sched.Next(now)
		timer := time.NewTimer(next.Sub(now))

		select {
		case <-timer.C:
			if _, err := ws.RunNow(context.Background()); err != nil {
				log.Printf("[Scheduler] Weekly scan failed: %v", err)
			}
		case <-ws.stop:
			timer.Stop()
			return
		}
	}
}

// RunNow scans the last completed week for all active users, persists the
// weekly summaries, and returns the shortage alerts.
func (ws *WeeklyScanner) RunNow(ctx context.Context) ([]engine.ShortageAlert, error) {
	now := ws.Now().In(ws.Location)
	currentWeek := engine.WeekOf(now)
	week := engine.Period{
		Start: currentWeek.Start.AddDate(0, 0, -7),
		End:   currentWeek.Start,
	}
	policy := ws.Policies.Resolve(engine.ContractFulltime)

	log.Printf("[Scheduler] Scanning week %s", week)

	users, err := ws.Store.ActiveUsers(ctx)
	if err != nil {
		return nil, err
	}

	var alerts []engine.ShortageAlert
	for _, userID := range users {
		entries, err := ws.Store.EntriesInRange(ctx, userID, week.Start, week.End)
		if err != nil {
			log.Printf("[Scheduler] Error loading entries for %s: %v", userID, err)
			continue
		}
		balance := engine.AggregateBalance(userID, engine.ClassifyAll(entries, policy), policy, week)

		// History is read before this week's summary is saved so the streak
		// does not count the scanned week twice.
		history, err := ws.Store.WeeklyBalances(ctx, userID, week.Start, ws.HistoryWeeks)
		if err != nil {
			log.Printf("[Scheduler] Error loading history for %s: %v", userID, err)
			continue
		}
		if err := ws.Store.SaveWeeklyBalance(ctx, balance.WeeklySummary()); err != nil {
			log.Printf("[Scheduler] Error saving summary for %s: %v", userID, err)
			continue
		}

		if alert := engine.DetectShortage(balance, history); alert != nil {
			alert.AutoNotificationSent = true
			log.Printf("[Scheduler] Shortage: %s short %s (%s, streak %d, escalation %s)",
				alert.UserID, alert.ShortageHours.Format(), alert.Severity,
				alert.ConsecutiveWeeksShort, alert.EscalationLevel)
			alerts = append(alerts, *alert)
		}
	}

	log.Printf("[Scheduler] Scan complete: %d users, %d alerts", len(users), len(alerts))
	return alerts, nil
}
