/*
request.go - Compensation request lifecycle

PURPOSE:
  Mediates usage of banked compensation time: validates single-day and bulk
  requests against the current ledger balance, and drives the
  pending -> approved / pending -> rejected state machine.

REQUEST FLOW:
  submit -> validate against (balance - pending holds) -> pending request
  approve -> usage entry materialized in the entry store (terminal)
  reject  -> hold released (terminal)

ATOMICITY:
  Validation and persistence run inside a single store transaction per call,
  so two concurrent requests for the same user cannot both validate against
  the same stale balance and jointly overdraw it. Bulk requests are
  all-or-nothing: the whole batch is rejected when the aggregate exceeds the
  balance.

AUTO-APPROVAL:
  Manual approval is the default. Only when the policy explicitly enables
  auto-approval do requests at or below the threshold self-approve.
*/
package engine

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"
)

// requestSeq disambiguates IDs minted within the same nanosecond (bulk
// requests mint one per date).
var requestSeq atomic.Uint64

// systemApprover is recorded on auto-approved requests.
const systemApprover = "system"

// RequestService orchestrates the compensation request lifecycle. It holds
// no mutable state; the policy is passed per call so concurrent requests for
// different users need no coordination.
type RequestService struct {
	Store TxStore

	// Lookback bounds the ledger scan. Zero means DefaultLookbackEntries.
	Lookback int

	// Now is overridable for tests.
	Now func() time.Time
}

func NewRequestService(store TxStore) *RequestService {
	return &RequestService{Store: store, Lookback: DefaultLookbackEntries, Now: time.Now}
}

func (rs *RequestService) lookback() int {
	if rs.Lookback > 0 {
		return rs.Lookback
	}
	return DefaultLookbackEntries
}

// =============================================================================
// LEDGER VIEW
// =============================================================================

// Ledger computes the current compensation summary for a user, including
// pending holds.
func (rs *RequestService) Ledger(ctx context.Context, userID UserID, policy LaborPolicy) (LedgerSummary, error) {
	return rs.summarize(ctx, rs.Store, userID, policy)
}

func (rs *RequestService) summarize(ctx context.Context, store Store, userID UserID, policy LaborPolicy) (LedgerSummary, error) {
	entries, err := store.RecentEntries(ctx, userID, rs.lookback())
	if err != nil {
		return LedgerSummary{}, fmt.Errorf("load entries: %w", err)
	}
	pending, err := store.PendingHours(ctx, userID)
	if err != nil {
		return LedgerSummary{}, fmt.Errorf("load pending holds: %w", err)
	}
	return SummarizeLedger(userID, ClassifyAll(entries, policy), policy, pending), nil
}

// =============================================================================
// SINGLE-DAY REQUEST
// =============================================================================

// Create validates and records a single-day usage request. A request cannot
// exceed one nominal workday regardless of banked surplus; bulk requests are
// the mechanism for multi-day usage.
func (rs *RequestService) Create(ctx context.Context, policy LaborPolicy, userID UserID, date time.Time, hours Hours, reason string) (*CompensationRequest, error) {
	if !hours.IsPositive() {
		return nil, fmt.Errorf("%w: hours must be positive", ErrInvalidRequest)
	}

	var created *CompensationRequest
	err := rs.Store.WithTx(ctx, func(store Store) error {
		summary, err := rs.summarize(ctx, store, userID, policy)
		if err != nil {
			return err
		}

		max := summary.MaxUsableHours()
		if hours.GreaterThan(max) {
			return &InsufficientBalanceError{
				UserID:    userID,
				Available: max,
				Requested: hours,
				Shortfall: hours.Sub(max),
			}
		}

		req := rs.newRequest(userID, date, hours, reason, policy)
		req.RemainingBalance = summary.Available().Sub(hours)
		if err := store.SaveRequest(ctx, *req); err != nil {
			return err
		}
		if !req.RequiresApproval {
			if err := rs.settle(ctx, store, req, systemApprover); err != nil {
				return err
			}
		}
		created = req
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// =============================================================================
// BULK REQUEST
// =============================================================================

// BulkResult reports the outcome of a multi-day request.
type BulkResult struct {
	Requests         []CompensationRequest
	TotalHours       Hours
	RemainingBalance Hours
}

// CreateBulk validates a multi-day request as a unit and records one request
// per date, all sharing the same reason. Either every per-date record is
// produced or none is.
func (rs *RequestService) CreateBulk(ctx context.Context, policy LaborPolicy, userID UserID, dates []time.Time, hoursPerDay Hours, reason string) (*BulkResult, error) {
	if len(dates) == 0 {
		return nil, fmt.Errorf("%w: no dates given", ErrInvalidRequest)
	}
	if !hoursPerDay.IsPositive() || hoursPerDay.GreaterThan(MaxSingleRequestHours) {
		return nil, fmt.Errorf("%w: hours per day must be in (0, %s]", ErrInvalidRequest, MaxSingleRequestHours.Value)
	}

	total := hoursPerDay.Mul(HoursFromInt(len(dates)).Value)

	var result *BulkResult
	err := rs.Store.WithTx(ctx, func(store Store) error {
		summary, err := rs.summarize(ctx, store, userID, policy)
		if err != nil {
			return err
		}

		available := summary.Available()
		if total.GreaterThan(available) {
			return &InsufficientBalanceError{
				UserID:    userID,
				Available: available,
				Requested: total,
				Shortfall: total.Sub(available),
			}
		}

		remaining := available.Sub(total)
		requests := make([]CompensationRequest, 0, len(dates))
		for _, date := range dates {
			req := rs.newRequest(userID, date, hoursPerDay, reason, policy)
			req.RemainingBalance = remaining
			if err := store.SaveRequest(ctx, *req); err != nil {
				return err
			}
			if !req.RequiresApproval {
				if err := rs.settle(ctx, store, req, systemApprover); err != nil {
					return err
				}
			}
			requests = append(requests, *req)
		}

		result = &BulkResult{Requests: requests, TotalHours: total, RemainingBalance: remaining}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// =============================================================================
// APPROVAL
// =============================================================================

// Approve transitions a pending request to approved and materializes the
// usage entry. Re-approving is an error, the existing state stays untouched.
func (rs *RequestService) Approve(ctx context.Context, id RequestID, approverID string) (*CompensationRequest, error) {
	var approved *CompensationRequest
	err := rs.Store.WithTx(ctx, func(store Store) error {
		req, err := store.RequestByID(ctx, id)
		if err != nil {
			return err
		}
		switch req.Status {
		case StatusApproved:
			return ErrAlreadyApproved
		case StatusRejected:
			return ErrRequestSettled
		}
		if err := rs.settle(ctx, store, req, approverID); err != nil {
			return err
		}
		approved = req
		return nil
	})
	if err != nil {
		return nil, err
	}
	return approved, nil
}

// Reject transitions a pending request to rejected, releasing its hold.
func (rs *RequestService) Reject(ctx context.Context, id RequestID, rejecterID, reason string) (*CompensationRequest, error) {
	var rejected *CompensationRequest
	err := rs.Store.WithTx(ctx, func(store Store) error {
		req, err := store.RequestByID(ctx, id)
		if err != nil {
			return err
		}
		switch req.Status {
		case StatusApproved:
			return ErrAlreadyApproved
		case StatusRejected:
			return ErrRequestSettled
		}

		now := rs.Now()
		req.Status = StatusRejected
		req.RejectionReason = &reason
		req.ApprovedBy = &rejecterID
		req.UpdatedAt = now
		if err := store.UpdateRequest(ctx, *req); err != nil {
			return err
		}
		rejected = req
		return nil
	})
	if err != nil {
		return nil, err
	}
	return rejected, nil
}

// settle marks the request approved and writes the compensation-usage entry
// that the ledger's "used" side is computed from.
func (rs *RequestService) settle(ctx context.Context, store Store, req *CompensationRequest, approverID string) error {
	now := rs.Now()
	req.Status = StatusApproved
	req.ApprovedBy = &approverID
	req.ApprovedAt = &now
	req.UpdatedAt = now
	if err := store.UpdateRequest(ctx, *req); err != nil {
		return err
	}

	clockIn := time.Date(req.Date.Year(), req.Date.Month(), req.Date.Day(), 9, 0, 0, 0, req.Date.Location())
	clockOut := clockIn.Add(time.Duration(req.Hours.Float64() * float64(time.Hour)))
	usage := RawTimeEntry{
		ID:        EntryID(fmt.Sprintf("%s-usage", req.ID)),
		UserID:    req.UserID,
		ClockIn:   clockIn,
		ClockOut:  &clockOut,
		WorkType:  WorkCompensationUsed,
		Approved:  true,
		Notes:     req.Type,
		CreatedAt: now,
		UpdatedAt: now,
	}
	return store.CreateEntry(ctx, usage)
}

func (rs *RequestService) newRequest(userID UserID, date time.Time, hours Hours, reason string, policy LaborPolicy) *CompensationRequest {
	now := rs.Now()
	autoApprove := policy.AutoApprovalEnabled && !hours.GreaterThan(policy.AutoApprovalThreshold)
	return &CompensationRequest{
		ID:               RequestID(fmt.Sprintf("req-%d-%d", now.UnixNano(), requestSeq.Add(1))),
		UserID:           userID,
		Date:             date,
		Hours:            hours,
		Type:             reason,
		Status:           StatusPending,
		RequiresApproval: !autoApprove,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
}
