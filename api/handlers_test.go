package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/urenwerk/balance-engine/api"
	"github.com/urenwerk/balance-engine/engine"
	"github.com/urenwerk/balance-engine/factory"
	"github.com/urenwerk/balance-engine/store/memory"
)

// =============================================================================
// TEST SETUP
// =============================================================================

var testLoc = func() *time.Location {
	loc, err := time.LoadLocation("Europe/Amsterdam")
	if err != nil {
		panic(err)
	}
	return loc
}()

// testNow is a Wednesday; the surrounding ISO week is Mon 8 - Sun 14 June 2026.
var testNow = time.Date(2026, time.June, 10, 12, 0, 0, 0, testLoc)

func newTestServer(t *testing.T) (*httptest.Server, *memory.Store) {
	t.Helper()
	store := memory.New()
	h := api.NewHandler(store, factory.DefaultPolicySet(), testLoc)
	h.Now = func() time.Time { return testNow }
	h.Requests.Now = h.Now

	srv := httptest.NewServer(api.NewRouter(h, []string{"*"}))
	t.Cleanup(srv.Close)
	return srv, store
}

func doJSON(t *testing.T, method, url string, body any) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, url, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

// seedShift stores a closed entry directly.
func seedShift(t *testing.T, store *memory.Store, id, user string, clockIn time.Time, gross time.Duration, workType engine.WorkType) {
	t.Helper()
	out := clockIn.Add(gross)
	require.NoError(t, store.CreateEntry(context.Background(), engine.RawTimeEntry{
		ID:       engine.EntryID(id),
		UserID:   engine.UserID(user),
		ClockIn:  clockIn,
		ClockOut: &out,
		WorkType: workType,
	}))
}

// =============================================================================
// CLOCK FLOW
// =============================================================================

func TestClockInClockOutFlow(t *testing.T) {
	srv, _ := newTestServer(t)

	// GIVEN: a clock-in
	resp := doJSON(t, "POST", srv.URL+"/api/entries", api.ClockInRequest{
		UserID:  "emp-1",
		ClockIn: "2026-06-08T09:00:00+02:00",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	entry := decode[api.EntryDTO](t, resp)
	assert.Equal(t, "emp-1", entry.UserID)
	assert.Nil(t, entry.ClockOut)

	// WHEN: clocking out with 30 minutes of breaks
	resp = doJSON(t, "POST", srv.URL+"/api/entries/"+entry.ID+"/clockout", api.ClockOutRequest{
		ClockOut:          "2026-06-08T17:30:00+02:00",
		TotalBreakMinutes: 30,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	closed := decode[api.EntryDTO](t, resp)
	require.NotNil(t, closed.ClockOut)
	assert.Equal(t, 30, closed.TotalBreakMinutes)

	// THEN: a second clock-out is a conflict
	resp = doJSON(t, "POST", srv.URL+"/api/entries/"+entry.ID+"/clockout", api.ClockOutRequest{})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestClockOutUnknownEntry(t *testing.T) {
	srv, _ := newTestServer(t)
	resp := doJSON(t, "POST", srv.URL+"/api/entries/nope/clockout", api.ClockOutRequest{})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestClockInRejectsCompensationUsedTag(t *testing.T) {
	srv, _ := newTestServer(t)
	resp := doJSON(t, "POST", srv.URL+"/api/entries", api.ClockInRequest{
		UserID:   "emp-1",
		WorkType: "compensation_used",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestApproveEntry(t *testing.T) {
	srv, store := newTestServer(t)
	seedShift(t, store, "e1", "emp-1", testNow.Add(-3*time.Hour), 2*time.Hour, engine.WorkRegular)

	resp := doJSON(t, "POST", srv.URL+"/api/entries/e1/approve", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	entry := decode[api.EntryDTO](t, resp)
	assert.True(t, entry.Approved)
}

// =============================================================================
// BALANCE AND LEDGER
// =============================================================================

func TestGetBalance(t *testing.T) {
	srv, store := newTestServer(t)

	// GIVEN: a 37.5h week (five 8h shifts with 30m logged breaks)
	for day := 8; day <= 12; day++ {
		in := time.Date(2026, time.June, day, 9, 0, 0, 0, testLoc)
		out := in.Add(8 * time.Hour)
		require.NoError(t, store.CreateEntry(context.Background(), engine.RawTimeEntry{
			ID: engine.EntryID(fmt.Sprintf("e%d", day)), UserID: "emp-1",
			ClockIn: in, ClockOut: &out, TotalBreakMinutes: 30,
			WorkType: engine.WorkRegular,
		}))
	}

	resp := doJSON(t, "GET", srv.URL+"/api/users/emp-1/balance?from=2026-06-08&to=2026-06-15", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	b := decode[api.BalanceDTO](t, resp)

	assert.Equal(t, 40.0, b.Expected.Hours)
	assert.Equal(t, 37.5, b.Actual.Hours)
	assert.Equal(t, 2.5, b.Shortage.Hours)
	assert.Equal(t, "2u 30m", b.Shortage.Display)
	require.NotNil(t, b.ProductivityPct)
	assert.Equal(t, 94, *b.ProductivityPct)
}

func TestGetBalanceDefaultsToCurrentWeek(t *testing.T) {
	srv, _ := newTestServer(t)
	resp := doJSON(t, "GET", srv.URL+"/api/users/emp-1/balance", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	b := decode[api.BalanceDTO](t, resp)
	assert.Equal(t, "2026-06-08", b.PeriodStart)
}

func TestGetBalanceRejectsBackwardPeriod(t *testing.T) {
	srv, _ := newTestServer(t)
	resp := doJSON(t, "GET", srv.URL+"/api/users/emp-1/balance?from=2026-06-15&to=2026-06-08", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestGetLedger(t *testing.T) {
	srv, store := newTestServer(t)
	// 4h tagged overtime -> 6h banked at 1.5
	seedShift(t, store, "ot1", "emp-1",
		time.Date(2026, time.June, 2, 18, 0, 0, 0, testLoc), 4*time.Hour, engine.WorkOvertime)

	resp := doJSON(t, "GET", srv.URL+"/api/users/emp-1/ledger", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	ledger := decode[api.LedgerDTO](t, resp)

	assert.Equal(t, 6.0, ledger.Earned.Hours)
	assert.Equal(t, 6.0, ledger.Available.Hours)
	assert.Equal(t, 6.0, ledger.MaxUsableHours.Hours)
	assert.True(t, ledger.CanUse)
}

// =============================================================================
// COMPENSATION REQUESTS
// =============================================================================

func TestSubmitRequestInsufficientBalance(t *testing.T) {
	srv, _ := newTestServer(t)

	// GIVEN: no banked hours at all
	resp := doJSON(t, "POST", srv.URL+"/api/users/emp-1/requests", api.SubmitRequestDTO{
		Date:  "2026-06-15",
		Hours: 4,
	})

	// THEN: 422 with the shortfall in the payload
	require.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	errResp := decode[api.ErrorResponse](t, resp)
	assert.Contains(t, errResp.Error, "Insufficient")
}

func TestRequestApprovalFlow(t *testing.T) {
	srv, store := newTestServer(t)
	// Bank 12h: two 4h overtime shifts
	seedShift(t, store, "ot1", "emp-1",
		time.Date(2026, time.June, 2, 18, 0, 0, 0, testLoc), 4*time.Hour, engine.WorkOvertime)
	seedShift(t, store, "ot2", "emp-1",
		time.Date(2026, time.June, 3, 18, 0, 0, 0, testLoc), 4*time.Hour, engine.WorkOvertime)

	// GIVEN: a submitted 4h request (manual approval policy)
	resp := doJSON(t, "POST", srv.URL+"/api/users/emp-1/requests", api.SubmitRequestDTO{
		Date:   "2026-06-15",
		Hours:  4,
		Reason: "vrije middag",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	req := decode[api.RequestDTO](t, resp)
	assert.Equal(t, "pending", req.Status)
	assert.Equal(t, 8.0, req.RemainingBalance.Hours)

	// AND: it shows up in the pending queue
	resp = doJSON(t, "GET", srv.URL+"/api/requests/pending", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	pending := decode[[]api.RequestDTO](t, resp)
	require.Len(t, pending, 1)

	// WHEN: approving it
	resp = doJSON(t, "POST", srv.URL+"/api/requests/"+req.ID+"/approve",
		map[string]string{"approved_by": "manager-1"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	approved := decode[api.RequestDTO](t, resp)
	assert.Equal(t, "approved", approved.Status)

	// THEN: re-approval conflicts
	resp = doJSON(t, "POST", srv.URL+"/api/requests/"+req.ID+"/approve", nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	// AND: rejecting a settled request conflicts too
	resp = doJSON(t, "POST", srv.URL+"/api/requests/"+req.ID+"/reject",
		api.RejectRequestDTO{Reason: "te laat"})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	// AND: the ledger reflects the usage
	resp = doJSON(t, "GET", srv.URL+"/api/users/emp-1/ledger", nil)
	ledger := decode[api.LedgerDTO](t, resp)
	assert.Equal(t, 4.0, ledger.Used.Hours)
	assert.Equal(t, 8.0, ledger.Available.Hours)
}

func TestBulkRequest(t *testing.T) {
	srv, store := newTestServer(t)
	for i := 0; i < 4; i++ {
		seedShift(t, store, fmt.Sprintf("ot%d", i), "emp-1",
			time.Date(2026, time.June, 1+i, 18, 0, 0, 0, testLoc), 4*time.Hour, engine.WorkOvertime)
	}

	// GIVEN: 24h banked, WHEN: requesting 3 days of 8h
	resp := doJSON(t, "POST", srv.URL+"/api/users/emp-1/requests/bulk", api.SubmitBulkRequestDTO{
		Dates:       []string{"2026-06-15", "2026-06-16", "2026-06-17"},
		HoursPerDay: 8,
		Reason:      "vakantie",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	result := decode[api.BulkResultDTO](t, resp)
	assert.Len(t, result.Requests, 3)
	assert.Equal(t, 24.0, result.TotalHours.Hours)
	assert.Equal(t, 0.0, result.RemainingBalance.Hours)
}

func TestBulkRequestOverdrawFailsWhole(t *testing.T) {
	srv, store := newTestServer(t)
	seedShift(t, store, "ot1", "emp-1",
		time.Date(2026, time.June, 2, 18, 0, 0, 0, testLoc), 4*time.Hour, engine.WorkOvertime)

	// GIVEN: 6h banked, WHEN: requesting 2 days of 4h
	resp := doJSON(t, "POST", srv.URL+"/api/users/emp-1/requests/bulk", api.SubmitBulkRequestDTO{
		Dates:       []string{"2026-06-15", "2026-06-16"},
		HoursPerDay: 4,
	})
	require.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)

	// THEN: nothing is left pending
	resp = doJSON(t, "GET", srv.URL+"/api/requests/pending", nil)
	pending := decode[[]api.RequestDTO](t, resp)
	assert.Empty(t, pending)
}

func TestApproveRejectsMalformedBody(t *testing.T) {
	// GIVEN: an approve call whose body is present but not JSON
	srv, _ := newTestServer(t)
	req, err := http.NewRequest("POST", srv.URL+"/api/requests/whatever/approve", strings.NewReader("{not json"))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	// THEN: rejected up front - only an absent body may be omitted
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestRejectRequiresReason(t *testing.T) {
	srv, _ := newTestServer(t)
	resp := doJSON(t, "POST", srv.URL+"/api/requests/whatever/reject", api.RejectRequestDTO{})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

// =============================================================================
// REPORTING
// =============================================================================

func TestListAlerts(t *testing.T) {
	srv, store := newTestServer(t)

	// GIVEN: a user far short in the last completed week (one 4h shift
	// against 40h, Mon 1 - Sun 7 June)
	seedShift(t, store, "e1", "emp-1",
		time.Date(2026, time.June, 1, 9, 0, 0, 0, testLoc), 4*time.Hour, engine.WorkRegular)
	// AND: a short week already in history
	require.NoError(t, store.SaveWeeklyBalance(context.Background(), engine.WeeklyBalance{
		UserID:        "emp-1",
		WeekStart:     time.Date(2026, time.May, 25, 0, 0, 0, 0, testLoc),
		ExpectedHours: engine.HoursFromInt(40),
		ActualHours:   engine.HoursFromInt(30),
		ShortageHours: engine.HoursFromInt(10),
	}))

	resp := doJSON(t, "GET", srv.URL+"/api/alerts", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	alerts := decode[[]api.AlertDTO](t, resp)

	require.Len(t, alerts, 1)
	assert.Equal(t, "emp-1", alerts[0].UserID)
	assert.Equal(t, "CRITICAL", alerts[0].Severity)
	assert.Equal(t, 2, alerts[0].ConsecutiveWeeksShort)
	assert.Equal(t, "MEDIUM", alerts[0].EscalationLevel)
	assert.True(t, alerts[0].ActionRequired)
}

func TestListAlertsIgnoreWeekInProgress(t *testing.T) {
	srv, store := newTestServer(t)

	// GIVEN: an employee who completed last week in full (5 x 8h net)
	for day := 1; day <= 5; day++ {
		seedShift(t, store, fmt.Sprintf("full-%d", day), "emp-1",
			time.Date(2026, time.June, day, 8, 30, 0, 0, testLoc), 8*time.Hour+30*time.Minute, engine.WorkRegular)
	}
	// AND: an on-track start of the week in progress - 8h gross on Monday and
	// Tuesday, queried on Wednesday
	seedShift(t, store, "wip-1", "emp-1",
		time.Date(2026, time.June, 8, 9, 0, 0, 0, testLoc), 8*time.Hour, engine.WorkRegular)
	seedShift(t, store, "wip-2", "emp-1",
		time.Date(2026, time.June, 9, 9, 0, 0, 0, testLoc), 8*time.Hour, engine.WorkRegular)

	resp := doJSON(t, "GET", srv.URL+"/api/alerts", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	alerts := decode[[]api.AlertDTO](t, resp)

	// THEN: the partial week never counts against them
	assert.Empty(t, alerts)
}

func TestListPolicies(t *testing.T) {
	srv, _ := newTestServer(t)
	resp := doJSON(t, "GET", srv.URL+"/api/policies", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	policies := decode[[]api.PolicyDTO](t, resp)
	require.NotEmpty(t, policies)
	assert.Equal(t, "fulltime", policies[0].ContractType)
}

func TestExportBalancesCSV(t *testing.T) {
	srv, store := newTestServer(t)
	seedShift(t, store, "e1", "emp-1",
		time.Date(2026, time.June, 8, 9, 0, 0, 0, testLoc), 4*time.Hour, engine.WorkRegular)

	resp := doJSON(t, "GET", srv.URL+"/api/export/balances.csv?month=6&year=2026", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/csv")
	assert.Contains(t, resp.Header.Get("Content-Disposition"), "urenbalans-2026-06.csv")

	var buf bytes.Buffer
	_, err := buf.ReadFrom(resp.Body)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0], "Medewerker,"))
	assert.True(t, strings.HasPrefix(lines[1], "emp-1,"))
}

func TestExportBalancesCSVValidation(t *testing.T) {
	srv, _ := newTestServer(t)
	resp := doJSON(t, "GET", srv.URL+"/api/export/balances.csv?month=13&year=2026", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
