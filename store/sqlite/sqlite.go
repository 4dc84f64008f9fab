/*
Package sqlite provides the SQLite-backed implementation of the storage
interfaces.

KEY TABLES:
  time_entries:          raw clock sessions (clock-out and approval are the
                         only mutations; rows are never deleted)
  compensation_requests: usage requests with their approval state
  weekly_balances:       per-user per-week summaries for streak detection

CONCURRENCY:
  Opened with WAL so readers don't block. WithTx wraps a SQL transaction;
  compensation request validation and the resulting writes commit as one
  unit, which closes the check-then-act window between two concurrent
  requests for the same user.

USAGE:
  store, err := sqlite.New("./data/urenwerk.db")   // or ":memory:"
  defer store.Close()
*/
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/urenwerk/balance-engine/engine"
)

// Store implements engine.TxStore using SQLite.
type Store struct {
	db *sql.DB
}

var _ engine.TxStore = (*Store)(nil)

// New opens (and migrates) a store at the given path. Use ":memory:" for an
// in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// A single connection keeps in-memory databases coherent and serializes
	// writers, which SQLite requires anyway.
	db.SetMaxOpenConns(1)

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return s, nil
}

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS time_entries (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		clock_in TEXT NOT NULL,
		clock_out TEXT,
		total_break_minutes INTEGER NOT NULL DEFAULT 0,
		work_type TEXT NOT NULL DEFAULT 'regular',
		approved INTEGER NOT NULL DEFAULT 0,
		holiday INTEGER NOT NULL DEFAULT 0,
		location TEXT,
		notes TEXT,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_entries_user_clock_in
		ON time_entries(user_id, clock_in);

	CREATE TABLE IF NOT EXISTS compensation_requests (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		date TEXT NOT NULL,
		hours TEXT NOT NULL,
		type TEXT,
		status TEXT NOT NULL,
		requires_approval INTEGER NOT NULL,
		remaining_balance TEXT NOT NULL,
		approved_by TEXT,
		approved_at TEXT,
		rejection_reason TEXT,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_requests_user_status
		ON compensation_requests(user_id, status);
	CREATE INDEX IF NOT EXISTS idx_requests_status
		ON compensation_requests(status, created_at);

	CREATE TABLE IF NOT EXISTS weekly_balances (
		user_id TEXT NOT NULL,
		week_start TEXT NOT NULL,
		expected_hours TEXT NOT NULL,
		actual_hours TEXT NOT NULL,
		shortage_hours TEXT NOT NULL,
		PRIMARY KEY (user_id, week_start)
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// QUERYABLE - shared by *sql.DB and *sql.Tx
// =============================================================================

type queryable interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// view implements engine.Store over either the database or a transaction.
type view struct {
	q queryable
}

var _ engine.Store = (*view)(nil)

func (s *Store) view() *view { return &view{q: s.db} }

// =============================================================================
// STORE METHODS - delegate to the database-backed view
// =============================================================================

func (s *Store) CreateEntry(ctx context.Context, e engine.RawTimeEntry) error {
	return s.view().CreateEntry(ctx, e)
}
func (s *Store) CloseEntry(ctx context.Context, id engine.EntryID, at time.Time, breakMinutes int) error {
	return s.view().CloseEntry(ctx, id, at, breakMinutes)
}
func (s *Store) ApproveEntry(ctx context.Context, id engine.EntryID) error {
	return s.view().ApproveEntry(ctx, id)
}
func (s *Store) EntryByID(ctx context.Context, id engine.EntryID) (*engine.RawTimeEntry, error) {
	return s.view().EntryByID(ctx, id)
}
func (s *Store) EntriesInRange(ctx context.Context, userID engine.UserID, from, to time.Time) ([]engine.RawTimeEntry, error) {
	return s.view().EntriesInRange(ctx, userID, from, to)
}
func (s *Store) RecentEntries(ctx context.Context, userID engine.UserID, limit int) ([]engine.RawTimeEntry, error) {
	return s.view().RecentEntries(ctx, userID, limit)
}
func (s *Store) ActiveUsers(ctx context.Context) ([]engine.UserID, error) {
	return s.view().ActiveUsers(ctx)
}
func (s *Store) SaveRequest(ctx context.Context, r engine.CompensationRequest) error {
	return s.view().SaveRequest(ctx, r)
}
func (s *Store) UpdateRequest(ctx context.Context, r engine.CompensationRequest) error {
	return s.view().UpdateRequest(ctx, r)
}
func (s *Store) RequestByID(ctx context.Context, id engine.RequestID) (*engine.CompensationRequest, error) {
	return s.view().RequestByID(ctx, id)
}
func (s *Store) PendingRequests(ctx context.Context) ([]engine.CompensationRequest, error) {
	return s.view().PendingRequests(ctx)
}
func (s *Store) PendingHours(ctx context.Context, userID engine.UserID) (engine.Hours, error) {
	return s.view().PendingHours(ctx, userID)
}
func (s *Store) SaveWeeklyBalance(ctx context.Context, wb engine.WeeklyBalance) error {
	return s.view().SaveWeeklyBalance(ctx, wb)
}
func (s *Store) WeeklyBalances(ctx context.Context, userID engine.UserID, before time.Time, weeks int) ([]engine.WeeklyBalance, error) {
	return s.view().WeeklyBalances(ctx, userID, before, weeks)
}

// WithTx runs fn inside a SQL transaction. Rolled back on error, committed
// otherwise.
func (s *Store) WithTx(ctx context.Context, fn func(engine.Store) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if err := fn(&view{q: tx}); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return errors.Join(err, rbErr)
		}
		return err
	}
	return tx.Commit()
}

// =============================================================================
// ENTRY STORE
// =============================================================================

func (v *view) CreateEntry(ctx context.Context, e engine.RawTimeEntry) error {
	var clockOut any
	if e.ClockOut != nil {
		clockOut = e.ClockOut.Format(time.RFC3339)
	}
	createdAt := e.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	updatedAt := e.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = createdAt
	}
	_, err := v.q.ExecContext(ctx, `
		INSERT INTO time_entries
			(id, user_id, clock_in, clock_out, total_break_minutes, work_type,
			 approved, holiday, location, notes, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		string(e.ID), string(e.UserID), e.ClockIn.Format(time.RFC3339), clockOut,
		e.TotalBreakMinutes, string(e.WorkType), boolToInt(e.Approved),
		boolToInt(e.Holiday), e.Location, e.Notes,
		createdAt.Format(time.RFC3339), updatedAt.Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("insert entry: %w", err)
	}
	return nil
}

func (v *view) CloseEntry(ctx context.Context, id engine.EntryID, at time.Time, breakMinutes int) error {
	// Conditional update so two concurrent clock-outs cannot both succeed.
	res, err := v.q.ExecContext(ctx,
		`UPDATE time_entries SET clock_out = ?, total_break_minutes = ?, updated_at = ?
		 WHERE id = ? AND clock_out IS NULL`,
		at.Format(time.RFC3339), breakMinutes, at.Format(time.RFC3339), string(id))
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n > 0 {
		return nil
	}
	// Zero rows: the entry is unknown or already closed.
	if _, err := v.EntryByID(ctx, id); err != nil {
		return err
	}
	return engine.ErrEntryClosed
}

func (v *view) ApproveEntry(ctx context.Context, id engine.EntryID) error {
	res, err := v.q.ExecContext(ctx,
		`UPDATE time_entries SET approved = 1, updated_at = ? WHERE id = ?`,
		time.Now().Format(time.RFC3339), string(id))
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return engine.ErrEntryNotFound
	}
	return nil
}

const entryColumns = `id, user_id, clock_in, clock_out, total_break_minutes,
	work_type, approved, holiday, location, notes, created_at, updated_at`

func (v *view) EntryByID(ctx context.Context, id engine.EntryID) (*engine.RawTimeEntry, error) {
	row := v.q.QueryRowContext(ctx,
		`SELECT `+entryColumns+` FROM time_entries WHERE id = ?`, string(id))
	e, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, engine.ErrEntryNotFound
	}
	if err != nil {
		return nil, err
	}
	return e, nil
}

func (v *view) EntriesInRange(ctx context.Context, userID engine.UserID, from, to time.Time) ([]engine.RawTimeEntry, error) {
	rows, err := v.q.QueryContext(ctx,
		`SELECT `+entryColumns+` FROM time_entries
		 WHERE user_id = ? AND clock_in >= ? AND clock_in < ?
		 ORDER BY clock_in ASC`,
		string(userID), from.Format(time.RFC3339), to.Format(time.RFC3339))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanEntries(rows)
}

func (v *view) RecentEntries(ctx context.Context, userID engine.UserID, limit int) ([]engine.RawTimeEntry, error) {
	if limit <= 0 {
		limit = engine.DefaultLookbackEntries
	}
	// Fetch newest first, then reverse: the ledger replays oldest first.
	rows, err := v.q.QueryContext(ctx,
		`SELECT `+entryColumns+` FROM time_entries
		 WHERE user_id = ? ORDER BY clock_in DESC LIMIT ?`,
		string(userID), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	entries, err := scanEntries(rows)
	if err != nil {
		return nil, err
	}
	for i, j := 0, len(entries)-1; i < j; i, j = i+1, j-1 {
		entries[i], entries[j] = entries[j], entries[i]
	}
	return entries, nil
}

func (v *view) ActiveUsers(ctx context.Context) ([]engine.UserID, error) {
	rows, err := v.q.QueryContext(ctx,
		`SELECT DISTINCT user_id FROM time_entries ORDER BY user_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var users []engine.UserID
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		users = append(users, engine.UserID(id))
	}
	return users, rows.Err()
}

// =============================================================================
// REQUEST STORE
// =============================================================================

func (v *view) SaveRequest(ctx context.Context, r engine.CompensationRequest) error {
	_, err := v.q.ExecContext(ctx, `
		INSERT INTO compensation_requests
			(id, user_id, date, hours, type, status, requires_approval,
			 remaining_balance, approved_by, approved_at, rejection_reason,
			 created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		string(r.ID), string(r.UserID), r.Date.Format(time.RFC3339),
		r.Hours.Value.String(), r.Type, string(r.Status),
		boolToInt(r.RequiresApproval), r.RemainingBalance.Value.String(),
		nullStr(r.ApprovedBy), nullTime(r.ApprovedAt), nullStr(r.RejectionReason),
		r.CreatedAt.Format(time.RFC3339), r.UpdatedAt.Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("insert request: %w", err)
	}
	return nil
}

func (v *view) UpdateRequest(ctx context.Context, r engine.CompensationRequest) error {
	res, err := v.q.ExecContext(ctx, `
		UPDATE compensation_requests
		SET status = ?, requires_approval = ?, remaining_balance = ?,
		    approved_by = ?, approved_at = ?, rejection_reason = ?, updated_at = ?
		WHERE id = ?`,
		string(r.Status), boolToInt(r.RequiresApproval),
		r.RemainingBalance.Value.String(), nullStr(r.ApprovedBy),
		nullTime(r.ApprovedAt), nullStr(r.RejectionReason),
		r.UpdatedAt.Format(time.RFC3339), string(r.ID))
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return engine.ErrRequestNotFound
	}
	return nil
}

const requestColumns = `id, user_id, date, hours, type, status,
	requires_approval, remaining_balance, approved_by, approved_at,
	rejection_reason, created_at, updated_at`

func (v *view) RequestByID(ctx context.Context, id engine.RequestID) (*engine.CompensationRequest, error) {
	row := v.q.QueryRowContext(ctx,
		`SELECT `+requestColumns+` FROM compensation_requests WHERE id = ?`, string(id))
	r, err := scanRequest(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, engine.ErrRequestNotFound
	}
	if err != nil {
		return nil, err
	}
	return r, nil
}

func (v *view) PendingRequests(ctx context.Context) ([]engine.CompensationRequest, error) {
	rows, err := v.q.QueryContext(ctx,
		`SELECT `+requestColumns+` FROM compensation_requests
		 WHERE status = ? ORDER BY created_at ASC`, string(engine.StatusPending))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []engine.CompensationRequest
	for rows.Next() {
		r, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *r)
	}
	return out, rows.Err()
}

func (v *view) PendingHours(ctx context.Context, userID engine.UserID) (engine.Hours, error) {
	rows, err := v.q.QueryContext(ctx,
		`SELECT hours FROM compensation_requests WHERE user_id = ? AND status = ?`,
		string(userID), string(engine.StatusPending))
	if err != nil {
		return engine.Hours{}, err
	}
	defer rows.Close()

	total := engine.ZeroHours()
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return engine.Hours{}, err
		}
		h, err := parseHours(raw)
		if err != nil {
			return engine.Hours{}, err
		}
		total = total.Add(h)
	}
	return total, rows.Err()
}

// =============================================================================
// HISTORY STORE
// =============================================================================

func (v *view) SaveWeeklyBalance(ctx context.Context, wb engine.WeeklyBalance) error {
	_, err := v.q.ExecContext(ctx, `
		INSERT INTO weekly_balances
			(user_id, week_start, expected_hours, actual_hours, shortage_hours)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (user_id, week_start) DO UPDATE SET
			expected_hours = excluded.expected_hours,
			actual_hours = excluded.actual_hours,
			shortage_hours = excluded.shortage_hours`,
		string(wb.UserID), wb.WeekStart.Format(time.RFC3339),
		wb.ExpectedHours.Value.String(), wb.ActualHours.Value.String(),
		wb.ShortageHours.Value.String())
	return err
}

func (v *view) WeeklyBalances(ctx context.Context, userID engine.UserID, before time.Time, weeks int) ([]engine.WeeklyBalance, error) {
	rows, err := v.q.QueryContext(ctx, `
		SELECT user_id, week_start, expected_hours, actual_hours, shortage_hours
		FROM weekly_balances
		WHERE user_id = ? AND week_start < ?
		ORDER BY week_start DESC LIMIT ?`,
		string(userID), before.Format(time.RFC3339), weeks)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []engine.WeeklyBalance
	for rows.Next() {
		var (
			uid, weekStart             string
			expected, actual, shortage string
		)
		if err := rows.Scan(&uid, &weekStart, &expected, &actual, &shortage); err != nil {
			return nil, err
		}
		ws, err := time.Parse(time.RFC3339, weekStart)
		if err != nil {
			return nil, fmt.Errorf("corrupt week_start %q: %w", weekStart, err)
		}
		wb := engine.WeeklyBalance{UserID: engine.UserID(uid), WeekStart: ws}
		if wb.ExpectedHours, err = parseHours(expected); err != nil {
			return nil, err
		}
		if wb.ActualHours, err = parseHours(actual); err != nil {
			return nil, err
		}
		if wb.ShortageHours, err = parseHours(shortage); err != nil {
			return nil, err
		}
		out = append(out, wb)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	// Query returns newest first for the LIMIT; callers expect oldest first.
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}

// =============================================================================
// SCAN HELPERS
// =============================================================================

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntry(row rowScanner) (*engine.RawTimeEntry, error) {
	var (
		id, userID, clockIn, workType   string
		clockOut, location, notes       sql.NullString
		createdAt, updatedAt            string
		breakMinutes, approved, holiday int
	)
	if err := row.Scan(&id, &userID, &clockIn, &clockOut, &breakMinutes,
		&workType, &approved, &holiday, &location, &notes, &createdAt, &updatedAt); err != nil {
		return nil, err
	}

	e := engine.RawTimeEntry{
		ID:                engine.EntryID(id),
		UserID:            engine.UserID(userID),
		TotalBreakMinutes: breakMinutes,
		WorkType:          engine.WorkType(workType),
		Approved:          approved != 0,
		Holiday:           holiday != 0,
		Location:          location.String,
		Notes:             notes.String,
	}
	var err error
	if e.ClockIn, err = time.Parse(time.RFC3339, clockIn); err != nil {
		return nil, fmt.Errorf("corrupt clock_in %q: %w", clockIn, err)
	}
	if clockOut.Valid {
		out, err := time.Parse(time.RFC3339, clockOut.String)
		if err != nil {
			return nil, fmt.Errorf("corrupt clock_out %q: %w", clockOut.String, err)
		}
		e.ClockOut = &out
	}
	if e.CreatedAt, err = time.Parse(time.RFC3339, createdAt); err != nil {
		return nil, err
	}
	if e.UpdatedAt, err = time.Parse(time.RFC3339, updatedAt); err != nil {
		return nil, err
	}
	return &e, nil
}

func scanEntries(rows *sql.Rows) ([]engine.RawTimeEntry, error) {
	var out []engine.RawTimeEntry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *e)
	}
	return out, rows.Err()
}

func scanRequest(row rowScanner) (*engine.CompensationRequest, error) {
	var (
		id, userID, date, hours, status string
		reqType                         sql.NullString
		requiresApproval                int
		remaining                       string
		approvedBy, approvedAt, reason  sql.NullString
		createdAt, updatedAt            string
	)
	if err := row.Scan(&id, &userID, &date, &hours, &reqType, &status,
		&requiresApproval, &remaining, &approvedBy, &approvedAt, &reason,
		&createdAt, &updatedAt); err != nil {
		return nil, err
	}

	r := engine.CompensationRequest{
		ID:               engine.RequestID(id),
		UserID:           engine.UserID(userID),
		Type:             reqType.String,
		Status:           engine.RequestStatus(status),
		RequiresApproval: requiresApproval != 0,
	}
	var err error
	if r.Date, err = time.Parse(time.RFC3339, date); err != nil {
		return nil, fmt.Errorf("corrupt date %q: %w", date, err)
	}
	if r.Hours, err = parseHours(hours); err != nil {
		return nil, err
	}
	if r.RemainingBalance, err = parseHours(remaining); err != nil {
		return nil, err
	}
	if approvedBy.Valid {
		r.ApprovedBy = &approvedBy.String
	}
	if approvedAt.Valid {
		at, err := time.Parse(time.RFC3339, approvedAt.String)
		if err != nil {
			return nil, fmt.Errorf("corrupt approved_at %q: %w", approvedAt.String, err)
		}
		r.ApprovedAt = &at
	}
	if reason.Valid {
		r.RejectionReason = &reason.String
	}
	if r.CreatedAt, err = time.Parse(time.RFC3339, createdAt); err != nil {
		return nil, err
	}
	if r.UpdatedAt, err = time.Parse(time.RFC3339, updatedAt); err != nil {
		return nil, err
	}
	return &r, nil
}

func parseHours(raw string) (engine.Hours, error) {
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return engine.Hours{}, fmt.Errorf("corrupt hours value %q: %w", raw, err)
	}
	return engine.Hours{Value: d}, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func nullStr(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}

func nullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.Format(time.RFC3339)
}
