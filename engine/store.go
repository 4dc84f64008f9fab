/*
store.go - Persistence interfaces consumed by the engine

PURPOSE:
  The engine computes; collaborators persist. These interfaces define what
  the computation needs from storage: raw entries, compensation requests,
  and the per-week balance summaries feeding streak detection.

ENTRY MUTATIONS:
  Entries are created on clock-in, mutated exactly once on clock-out, and
  once more by the approval sign-off. They are never deleted.

ATOMICITY:
  Compensation request creation is a check-then-act sequence: the balance
  read during validation must be consistent with what gets committed. TxStore
  provides the per-user serialization point. No cross-user locking exists -
  balances are independent per user.

IMPLEMENTATIONS:
  - store/sqlite: production store (WAL, SQL transactions)
  - store/memory: in-memory store for tests and development
*/
package engine

import (
	"context"
	"time"
)

// =============================================================================
// ENTRY STORE
// =============================================================================

// EntryStore persists raw clock sessions.
type EntryStore interface {
	// CreateEntry records a clock-in.
	CreateEntry(ctx context.Context, e RawTimeEntry) error

	// CloseEntry records the clock-out and the manually logged break time.
	// Fails with ErrEntryClosed when the session was already closed,
	// ErrEntryNotFound when it does not exist.
	CloseEntry(ctx context.Context, id EntryID, at time.Time, breakMinutes int) error

	// ApproveEntry records the administrative sign-off.
	ApproveEntry(ctx context.Context, id EntryID) error

	// EntryByID returns one entry or ErrEntryNotFound.
	EntryByID(ctx context.Context, id EntryID) (*RawTimeEntry, error)

	// EntriesInRange returns a user's entries with clock-in within
	// [from, to), ordered by clock-in ascending.
	EntriesInRange(ctx context.Context, userID UserID, from, to time.Time) ([]RawTimeEntry, error)

	// RecentEntries returns up to limit most recent entries for a user,
	// ordered by clock-in ascending (the ledger replays oldest first).
	RecentEntries(ctx context.Context, userID UserID, limit int) ([]RawTimeEntry, error)

	// ActiveUsers lists users having at least one entry, for the weekly scan.
	ActiveUsers(ctx context.Context) ([]UserID, error)
}

// =============================================================================
// REQUEST STORE
// =============================================================================

// RequestStore persists compensation usage requests.
type RequestStore interface {
	SaveRequest(ctx context.Context, r CompensationRequest) error

	// UpdateRequest rewrites a request after a state transition.
	UpdateRequest(ctx context.Context, r CompensationRequest) error

	// RequestByID returns one request or ErrRequestNotFound.
	RequestByID(ctx context.Context, id RequestID) (*CompensationRequest, error)

	// PendingRequests returns all pending requests, oldest first.
	PendingRequests(ctx context.Context) ([]CompensationRequest, error)

	// PendingHours sums the hours held by a user's pending requests.
	PendingHours(ctx context.Context, userID UserID) (Hours, error)
}

// =============================================================================
// HISTORY STORE
// =============================================================================

// HistoryStore persists weekly balance summaries for streak detection.
type HistoryStore interface {
	// SaveWeeklyBalance upserts the summary for (user, week start).
	SaveWeeklyBalance(ctx context.Context, wb WeeklyBalance) error

	// WeeklyBalances returns up to weeks summaries before the given week
	// start, ordered oldest to newest. Fewer weeks than asked is not an
	// error; the streak count reflects what is available.
	WeeklyBalances(ctx context.Context, userID UserID, before time.Time, weeks int) ([]WeeklyBalance, error)
}

// =============================================================================
// COMBINED STORE
// =============================================================================

// Store bundles all persistence concerns.
type Store interface {
	EntryStore
	RequestStore
	HistoryStore
}

// TxStore adds the atomic unit required for request creation: fn runs against
// a view whose reads and writes commit together or not at all.
type TxStore interface {
	Store

	WithTx(ctx context.Context, fn func(Store) error) error
}
