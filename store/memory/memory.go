// Package memory provides an in-memory Store implementation for tests and
// development. WithTx is simulated with a snapshot and rollback on error.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/urenwerk/balance-engine/engine"
)

// =============================================================================
// MEMORY STORE
// =============================================================================

type Store struct {
	// txMu serializes WithTx calls so two concurrent request validations
	// cannot interleave between check and commit.
	txMu     sync.Mutex
	mu       sync.RWMutex
	entries  map[engine.EntryID]engine.RawTimeEntry
	requests map[engine.RequestID]engine.CompensationRequest
	weekly   map[engine.UserID][]engine.WeeklyBalance
}

func New() *Store {
	return &Store{
		entries:  make(map[engine.EntryID]engine.RawTimeEntry),
		requests: make(map[engine.RequestID]engine.CompensationRequest),
		weekly:   make(map[engine.UserID][]engine.WeeklyBalance),
	}
}

var _ engine.TxStore = (*Store)(nil)

// =============================================================================
// ENTRY STORE
// =============================================================================

func (s *Store) CreateEntry(_ context.Context, e engine.RawTimeEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[e.ID] = e
	return nil
}

func (s *Store) CloseEntry(_ context.Context, id engine.EntryID, at time.Time, breakMinutes int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[id]
	if !ok {
		return engine.ErrEntryNotFound
	}
	if e.ClockOut != nil {
		return engine.ErrEntryClosed
	}
	out := at
	e.ClockOut = &out
	e.TotalBreakMinutes = breakMinutes
	e.UpdatedAt = at
	s.entries[id] = e
	return nil
}

func (s *Store) ApproveEntry(_ context.Context, id engine.EntryID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[id]
	if !ok {
		return engine.ErrEntryNotFound
	}
	e.Approved = true
	e.UpdatedAt = time.Now()
	s.entries[id] = e
	return nil
}

func (s *Store) EntryByID(_ context.Context, id engine.EntryID) (*engine.RawTimeEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[id]
	if !ok {
		return nil, engine.ErrEntryNotFound
	}
	return &e, nil
}

func (s *Store) EntriesInRange(_ context.Context, userID engine.UserID, from, to time.Time) ([]engine.RawTimeEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []engine.RawTimeEntry
	for _, e := range s.entries {
		if e.UserID == userID && !e.ClockIn.Before(from) && e.ClockIn.Before(to) {
			out = append(out, e)
		}
	}
	sortByClockIn(out)
	return out, nil
}

func (s *Store) RecentEntries(_ context.Context, userID engine.UserID, limit int) ([]engine.RawTimeEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []engine.RawTimeEntry
	for _, e := range s.entries {
		if e.UserID == userID {
			out = append(out, e)
		}
	}
	sortByClockIn(out)
	if limit > 0 && len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out, nil
}

func (s *Store) ActiveUsers(_ context.Context) ([]engine.UserID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	seen := make(map[engine.UserID]bool)
	var out []engine.UserID
	for _, e := range s.entries {
		if !seen[e.UserID] {
			seen[e.UserID] = true
			out = append(out, e.UserID)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, nil
}

func sortByClockIn(entries []engine.RawTimeEntry) {
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].ClockIn.Equal(entries[j].ClockIn) {
			return entries[i].ID < entries[j].ID
		}
		return entries[i].ClockIn.Before(entries[j].ClockIn)
	})
}

// =============================================================================
// REQUEST STORE
// =============================================================================

func (s *Store) SaveRequest(_ context.Context, r engine.CompensationRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests[r.ID] = r
	return nil
}

func (s *Store) UpdateRequest(_ context.Context, r engine.CompensationRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.requests[r.ID]; !ok {
		return engine.ErrRequestNotFound
	}
	s.requests[r.ID] = r
	return nil
}

func (s *Store) RequestByID(_ context.Context, id engine.RequestID) (*engine.CompensationRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.requests[id]
	if !ok {
		return nil, engine.ErrRequestNotFound
	}
	return &r, nil
}

func (s *Store) PendingRequests(_ context.Context) ([]engine.CompensationRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []engine.CompensationRequest
	for _, r := range s.requests {
		if r.Status == engine.StatusPending {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *Store) PendingHours(_ context.Context, userID engine.UserID) (engine.Hours, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	total := engine.ZeroHours()
	for _, r := range s.requests {
		if r.UserID == userID && r.Status == engine.StatusPending {
			total = total.Add(r.Hours)
		}
	}
	return total, nil
}

// =============================================================================
// HISTORY STORE
// =============================================================================

func (s *Store) SaveWeeklyBalance(_ context.Context, wb engine.WeeklyBalance) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	list := s.weekly[wb.UserID]
	for i, existing := range list {
		if existing.WeekStart.Equal(wb.WeekStart) {
			list[i] = wb
			return nil
		}
	}
	s.weekly[wb.UserID] = append(list, wb)
	return nil
}

func (s *Store) WeeklyBalances(_ context.Context, userID engine.UserID, before time.Time, weeks int) ([]engine.WeeklyBalance, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []engine.WeeklyBalance
	for _, wb := range s.weekly[userID] {
		if wb.WeekStart.Before(before) {
			out = append(out, wb)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].WeekStart.Before(out[j].WeekStart) })
	if weeks > 0 && len(out) > weeks {
		out = out[len(out)-weeks:]
	}
	return out, nil
}

// =============================================================================
// TRANSACTIONS - snapshot + rollback on error
// =============================================================================

// WithTx executes fn serialized against other transactions. On error the
// pre-transaction state is restored.
func (s *Store) WithTx(ctx context.Context, fn func(engine.Store) error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()

	s.mu.Lock()
	snap := s.snapshotLocked()
	s.mu.Unlock()

	if err := fn(&txView{parent: s}); err != nil {
		s.mu.Lock()
		s.restoreLocked(snap)
		s.mu.Unlock()
		return err
	}
	return nil
}

type snapshot struct {
	entries  map[engine.EntryID]engine.RawTimeEntry
	requests map[engine.RequestID]engine.CompensationRequest
	weekly   map[engine.UserID][]engine.WeeklyBalance
}

func (s *Store) snapshotLocked() snapshot {
	snap := snapshot{
		entries:  make(map[engine.EntryID]engine.RawTimeEntry, len(s.entries)),
		requests: make(map[engine.RequestID]engine.CompensationRequest, len(s.requests)),
		weekly:   make(map[engine.UserID][]engine.WeeklyBalance, len(s.weekly)),
	}
	for k, v := range s.entries {
		snap.entries[k] = v
	}
	for k, v := range s.requests {
		snap.requests[k] = v
	}
	for k, v := range s.weekly {
		snap.weekly[k] = append([]engine.WeeklyBalance{}, v...)
	}
	return snap
}

func (s *Store) restoreLocked(snap snapshot) {
	s.entries = snap.entries
	s.requests = snap.requests
	s.weekly = snap.weekly
}

// txView delegates to the parent store; rollback is handled by WithTx.
type txView struct {
	parent *Store
}

var _ engine.Store = (*txView)(nil)

func (t *txView) CreateEntry(ctx context.Context, e engine.RawTimeEntry) error {
	return t.parent.CreateEntry(ctx, e)
}
func (t *txView) CloseEntry(ctx context.Context, id engine.EntryID, at time.Time, breakMinutes int) error {
	return t.parent.CloseEntry(ctx, id, at, breakMinutes)
}
func (t *txView) ApproveEntry(ctx context.Context, id engine.EntryID) error {
	return t.parent.ApproveEntry(ctx, id)
}
func (t *txView) EntryByID(ctx context.Context, id engine.EntryID) (*engine.RawTimeEntry, error) {
	return t.parent.EntryByID(ctx, id)
}
func (t *txView) EntriesInRange(ctx context.Context, userID engine.UserID, from, to time.Time) ([]engine.RawTimeEntry, error) {
	return t.parent.EntriesInRange(ctx, userID, from, to)
}
func (t *txView) RecentEntries(ctx context.Context, userID engine.UserID, limit int) ([]engine.RawTimeEntry, error) {
	return t.parent.RecentEntries(ctx, userID, limit)
}
func (t *txView) ActiveUsers(ctx context.Context) ([]engine.UserID, error) {
	return t.parent.ActiveUsers(ctx)
}
func (t *txView) SaveRequest(ctx context.Context, r engine.CompensationRequest) error {
	return t.parent.SaveRequest(ctx, r)
}
func (t *txView) UpdateRequest(ctx context.Context, r engine.CompensationRequest) error {
	return t.parent.UpdateRequest(ctx, r)
}
func (t *txView) RequestByID(ctx context.Context, id engine.RequestID) (*engine.CompensationRequest, error) {
	return t.parent.RequestByID(ctx, id)
}
func (t *txView) PendingRequests(ctx context.Context) ([]engine.CompensationRequest, error) {
	return t.parent.PendingRequests(ctx)
}
func (t *txView) PendingHours(ctx context.Context, userID engine.UserID) (engine.Hours, error) {
	return t.parent.PendingHours(ctx, userID)
}
func (t *txView) SaveWeeklyBalance(ctx context.Context, wb engine.WeeklyBalance) error {
	return t.parent.SaveWeeklyBalance(ctx, wb)
}
func (t *txView) WeeklyBalances(ctx context.Context, userID engine.UserID, before time.Time, weeks int) ([]engine.WeeklyBalance, error) {
	return t.parent.WeeklyBalances(ctx, userID, before, weeks)
}
