/*
handlers.go - HTTP API handlers for the time-balance engine

PURPOSE:
  Exposes the balance engine via REST API. Handles HTTP request/response,
  JSON serialization, and delegates to domain logic.

ENDPOINTS:
  Entries:
    POST   /api/entries                  Clock in
    POST   /api/entries/{id}/clockout    Clock out
    POST   /api/entries/{id}/approve     Administrative sign-off
    GET    /api/users/{id}/entries       Entries in a date range

  Balances:
    GET    /api/users/{id}/balance       Time balance over a period
    GET    /api/users/{id}/ledger        Compensation ledger view

  Requests:
    POST   /api/users/{id}/requests      Single-day usage request
    POST   /api/users/{id}/requests/bulk Multi-day usage request (atomic)
    GET    /api/requests/pending         Pending requests, oldest first
    POST   /api/requests/{id}/approve    Approve (terminal)
    POST   /api/requests/{id}/reject     Reject (terminal)

  Reporting:
    GET    /api/alerts                   Shortage alerts, last completed week
    GET    /api/export/balances.csv      CSV export for payroll
    GET    /api/policies                 Configured labor policies

CONTRACT TYPE:
  The clock has no user registry; the caller states the contract type per
  request (?contract_type=parttime). Unknown types resolve to the fulltime
  policy.

ERROR HANDLING:
  Domain errors map to HTTP status:
  - 400: Malformed input (bad JSON, bad dates)
  - 404: Unknown entry or request
  - 409: State-machine conflict (re-approval, double clock-out)
  - 422: Valid input the rules reject (insufficient balance)
  - 500: Internal errors
*/
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/urenwerk/balance-engine/engine"
	"github.com/urenwerk/balance-engine/factory"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store    engine.TxStore
	Policies *factory.PolicySet
	Requests *engine.RequestService

	// HistoryWeeks bounds the weekly history feeding streak detection.
	HistoryWeeks int

	// Location is the company timezone, used when the caller omits times.
	Location *time.Location

	// Now is overridable for tests.
	Now func() time.Time
}

// NewHandler creates a handler with the given store and policy set.
func NewHandler(store engine.TxStore, policies *factory.PolicySet, loc *time.Location) *Handler {
	if loc == nil {
		loc = time.Local
	}
	return &Handler{
		Store:        store,
		Policies:     policies,
		Requests:     engine.NewRequestService(store),
		HistoryWeeks: 12,
		Location:     loc,
		Now:          time.Now,
	}
}

func (h *Handler) now() time.Time { return h.Now().In(h.Location) }

// policyFor resolves the labor policy from the contract_type query parameter.
func (h *Handler) policyFor(r *http.Request) engine.LaborPolicy {
	ct := engine.ContractType(r.URL.Query().Get("contract_type"))
	return h.Policies.Resolve(ct)
}

// =============================================================================
// ENTRY HANDLERS
// =============================================================================

// ClockIn opens a new time entry.
// POST /api/entries
func (h *Handler) ClockIn(w http.ResponseWriter, r *http.Request) {
	var req ClockInRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.UserID == "" {
		writeError(w, http.StatusBadRequest, "user_id is required", nil)
		return
	}

	clockIn := h.now()
	if req.ClockIn != "" {
		t, err := time.Parse(time.RFC3339, req.ClockIn)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid clock_in (use RFC3339)", err)
			return
		}
		clockIn = t.In(h.Location)
	}

	workType := engine.WorkType(req.WorkType)
	switch workType {
	case "", engine.WorkRegular:
		workType = engine.WorkRegular
	case engine.WorkOvertime:
	default:
		// compensation_used entries are minted by request approval, not by
		// the clock.
		writeError(w, http.StatusBadRequest, fmt.Sprintf("Unknown work_type %q", req.WorkType), nil)
		return
	}

	now := h.now()
	entry := engine.RawTimeEntry{
		ID:        engine.EntryID(fmt.Sprintf("entry-%d", now.UnixNano())),
		UserID:    engine.UserID(req.UserID),
		ClockIn:   clockIn,
		WorkType:  workType,
		Holiday:   req.Holiday,
		Location:  req.Location,
		Notes:     req.Notes,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := h.Store.CreateEntry(r.Context(), entry); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to create entry", err)
		return
	}
	writeJSON(w, http.StatusCreated, toEntryDTO(entry))
}

// ClockOut closes an entry. A second clock-out is a conflict.
// POST /api/entries/{id}/clockout
func (h *Handler) ClockOut(w http.ResponseWriter, r *http.Request) {
	id := engine.EntryID(chi.URLParam(r, "id"))

	var req ClockOutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	clockOut := h.now()
	if req.ClockOut != "" {
		t, err := time.Parse(time.RFC3339, req.ClockOut)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid clock_out (use RFC3339)", err)
			return
		}
		clockOut = t.In(h.Location)
	}
	if req.TotalBreakMinutes < 0 {
		writeError(w, http.StatusBadRequest, "total_break_minutes must be non-negative", nil)
		return
	}

	ctx := r.Context()
	if err := h.Store.CloseEntry(ctx, id, clockOut, req.TotalBreakMinutes); err != nil {
		writeDomainError(w, err)
		return
	}

	entry, err := h.Store.EntryByID(ctx, id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toEntryDTO(*entry))
}

// ApproveEntry records the administrative sign-off on an entry.
// POST /api/entries/{id}/approve
func (h *Handler) ApproveEntry(w http.ResponseWriter, r *http.Request) {
	id := engine.EntryID(chi.URLParam(r, "id"))
	ctx := r.Context()

	if err := h.Store.ApproveEntry(ctx, id); err != nil {
		writeDomainError(w, err)
		return
	}
	entry, err := h.Store.EntryByID(ctx, id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toEntryDTO(*entry))
}

// ListEntries returns a user's entries within [from, to).
// GET /api/users/{id}/entries?from=YYYY-MM-DD&to=YYYY-MM-DD
func (h *Handler) ListEntries(w http.ResponseWriter, r *http.Request) {
	userID := engine.UserID(chi.URLParam(r, "id"))
	period, err := h.parsePeriod(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid period", err)
		return
	}

	entries, err := h.Store.EntriesInRange(r.Context(), userID, period.Start, period.End)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list entries", err)
		return
	}
	dtos := make([]EntryDTO, len(entries))
	for i, e := range entries {
		dtos[i] = toEntryDTO(e)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// BALANCE HANDLERS
// =============================================================================

// GetBalance computes the time balance for a user over a period.
// GET /api/users/{id}/balance?from=YYYY-MM-DD&to=YYYY-MM-DD&contract_type=fulltime
func (h *Handler) GetBalance(w http.ResponseWriter, r *http.Request) {
	userID := engine.UserID(chi.URLParam(r, "id"))
	policy := h.policyFor(r)

	period, err := h.parsePeriod(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid period", err)
		return
	}

	entries, err := h.Store.EntriesInRange(r.Context(), userID, period.Start, period.End)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load entries", err)
		return
	}

	balance := engine.AggregateBalance(userID, engine.ClassifyAll(entries, policy), policy, period)
	writeJSON(w, http.StatusOK, toBalanceDTO(balance))
}

// GetLedger returns the compensation ledger view for a user.
// GET /api/users/{id}/ledger?contract_type=fulltime
func (h *Handler) GetLedger(w http.ResponseWriter, r *http.Request) {
	userID := engine.UserID(chi.URLParam(r, "id"))
	policy := h.policyFor(r)

	summary, err := h.Requests.Ledger(r.Context(), userID, policy)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to compute ledger", err)
		return
	}
	writeJSON(w, http.StatusOK, toLedgerDTO(summary))
}

// =============================================================================
// REQUEST HANDLERS
// =============================================================================

// SubmitRequest records a single-day compensation usage request.
// POST /api/users/{id}/requests
func (h *Handler) SubmitRequest(w http.ResponseWriter, r *http.Request) {
	userID := engine.UserID(chi.URLParam(r, "id"))
	policy := h.policyFor(r)

	var req SubmitRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	date, err := time.ParseInLocation("2006-01-02", req.Date, h.Location)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date (use YYYY-MM-DD)", err)
		return
	}

	created, err := h.Requests.Create(r.Context(), policy, userID, date, engine.NewHours(req.Hours), req.Reason)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toRequestDTO(*created))
}

// SubmitBulkRequest records a multi-day usage request as one atomic unit.
// POST /api/users/{id}/requests/bulk
func (h *Handler) SubmitBulkRequest(w http.ResponseWriter, r *http.Request) {
	userID := engine.UserID(chi.URLParam(r, "id"))
	policy := h.policyFor(r)

	var req SubmitBulkRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	dates := make([]time.Time, 0, len(req.Dates))
	for _, d := range req.Dates {
		date, err := time.ParseInLocation("2006-01-02", d, h.Location)
		if err != nil {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("Invalid date %q (use YYYY-MM-DD)", d), err)
			return
		}
		dates = append(dates, date)
	}

	result, err := h.Requests.CreateBulk(r.Context(), policy, userID, dates, engine.NewHours(req.HoursPerDay), req.Reason)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, BulkResultDTO{
		Requests:         toRequestDTOs(result.Requests),
		TotalHours:       toHoursDTO(result.TotalHours),
		RemainingBalance: toHoursDTO(result.RemainingBalance),
	})
}

// ListPendingRequests returns all pending requests, oldest first.
// GET /api/requests/pending
func (h *Handler) ListPendingRequests(w http.ResponseWriter, r *http.Request) {
	pending, err := h.Store.PendingRequests(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list requests", err)
		return
	}
	writeJSON(w, http.StatusOK, toRequestDTOs(pending))
}

// ApproveRequest approves a pending request and materializes the usage entry.
// POST /api/requests/{id}/approve
func (h *Handler) ApproveRequest(w http.ResponseWriter, r *http.Request) {
	id := engine.RequestID(chi.URLParam(r, "id"))

	var body struct {
		ApprovedBy string `json:"approved_by"`
	}
	// An empty body is fine; malformed JSON is not.
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if body.ApprovedBy == "" {
		body.ApprovedBy = "admin"
	}

	approved, err := h.Requests.Approve(r.Context(), id, body.ApprovedBy)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toRequestDTO(*approved))
}

// RejectRequest rejects a pending request, releasing its hold.
// POST /api/requests/{id}/reject
func (h *Handler) RejectRequest(w http.ResponseWriter, r *http.Request) {
	id := engine.RequestID(chi.URLParam(r, "id"))

	var body RejectRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if body.Reason == "" {
		writeError(w, http.StatusBadRequest, "reason is required", nil)
		return
	}

	rejected, err := h.Requests.Reject(r.Context(), id, "admin", body.Reason)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toRequestDTO(*rejected))
}

// =============================================================================
// REPORTING HANDLERS
// =============================================================================

// ListAlerts computes shortage alerts for all active users over the last
// completed week, against the stored weekly history. The week in progress is
// never scanned: mid-week it would flag every on-track employee as short.
// GET /api/alerts?contract_type=fulltime
func (h *Handler) ListAlerts(w http.ResponseWriter, r *http.Request) {
	policy := h.policyFor(r)
	currentWeek := engine.WeekOf(h.now())
	week := engine.Period{Start: currentWeek.Start.AddDate(0, 0, -7), End: currentWeek.Start}

	alerts, err := h.scanWeek(r, week, policy)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to compute alerts", err)
		return
	}
	dtos := make([]AlertDTO, len(alerts))
	for i, a := range alerts {
		dtos[i] = toAlertDTO(a)
	}
	writeJSON(w, http.StatusOK, dtos)
}

func (h *Handler) scanWeek(r *http.Request, week engine.Period, policy engine.LaborPolicy) ([]engine.ShortageAlert, error) {
	ctx := r.Context()
	users, err := h.Store.ActiveUsers(ctx)
	if err != nil {
		return nil, err
	}

	balances := make([]engine.TimeBalance, 0, len(users))
	history := make(map[engine.UserID][]engine.WeeklyBalance, len(users))
	for _, userID := range users {
		entries, err := h.Store.EntriesInRange(ctx, userID, week.Start, week.End)
		if err != nil {
			return nil, err
		}
		balances = append(balances, engine.AggregateBalance(userID, engine.ClassifyAll(entries, policy), policy, week))

		hist, err := h.Store.WeeklyBalances(ctx, userID, week.Start, h.HistoryWeeks)
		if err != nil {
			return nil, err
		}
		history[userID] = hist
	}
	return engine.DetectShortages(balances, history), nil
}

// ListPolicies returns the configured labor policies.
// GET /api/policies
func (h *Handler) ListPolicies(w http.ResponseWriter, r *http.Request) {
	all := h.Policies.All()
	dtos := make([]PolicyDTO, 0, len(all))
	for _, ct := range []engine.ContractType{engine.ContractFulltime, engine.ContractParttime, engine.ContractNulUren} {
		if p, ok := all[ct]; ok {
			dtos = append(dtos, toPolicyDTO(p))
		}
	}
	writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// SHARED HELPERS
// =============================================================================

// parsePeriod reads from/to date query parameters. Defaults to the current
// ISO week when both are absent.
func (h *Handler) parsePeriod(r *http.Request) (engine.Period, error) {
	fromStr := r.URL.Query().Get("from")
	toStr := r.URL.Query().Get("to")
	if fromStr == "" && toStr == "" {
		return engine.WeekOf(h.now()), nil
	}

	from, err := time.ParseInLocation("2006-01-02", fromStr, h.Location)
	if err != nil {
		return engine.Period{}, fmt.Errorf("invalid from date: %w", err)
	}
	to, err := time.ParseInLocation("2006-01-02", toStr, h.Location)
	if err != nil {
		return engine.Period{}, fmt.Errorf("invalid to date: %w", err)
	}
	return engine.NewPeriod(from, to)
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

// writeDomainError maps engine errors to HTTP status codes.
func writeDomainError(w http.ResponseWriter, err error) {
	var ibe *engine.InsufficientBalanceError
	switch {
	case errors.As(err, &ibe):
		writeJSON(w, http.StatusUnprocessableEntity, ErrorResponse{
			Error: "Insufficient compensation balance",
			Details: map[string]any{
				"available": toHoursDTO(ibe.Available),
				"requested": toHoursDTO(ibe.Requested),
				"shortfall": toHoursDTO(ibe.Shortfall),
			},
		})
	case engine.IsNotFound(err):
		writeError(w, http.StatusNotFound, "Not found", err)
	case engine.IsConflict(err):
		writeError(w, http.StatusConflict, "Conflict", err)
	case engine.IsClientError(err):
		writeError(w, http.StatusBadRequest, "Invalid request", err)
	default:
		writeError(w, http.StatusInternalServerError, "Internal error", err)
	}
}
