/*
lifecycle.go - Request state machine

PURPOSE:
  Owns every status transition of a leave request and keeps each one
  paired with its ledger adjustment inside a single transaction:

    create           pending   + Reserve
    approve          approved  + Commit
    reject           rejected  + Release
    cancel(pending)  cancelled + Release
    cancel(approved) cancelled + Revert

  The status update itself is guarded (UPDATE ... WHERE status = from),
  so when two actors race on the same request exactly one wins and the
  loser observes an IllegalTransitionError.

SEE ALSO:
  - store.go: TransitionRequest guard contract
  - validator.go: re-run inside the create transaction
*/
package leave

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ApproverAuthority decides whether an actor may decide a request.
type ApproverAuthority interface {
	// CanDecide reports whether approverID may approve or reject a
	// request belonging to employeeID.
	CanDecide(ctx context.Context, approverID, employeeID string) (bool, error)
}

// StateMachine drives request transitions against a transactional
// store.
type StateMachine struct {
	Store     TxStore
	Validator *Validator
	Authority ApproverAuthority

	Now   func() time.Time
	NewID func() string
}

func NewStateMachine(store TxStore, v *Validator, auth ApproverAuthority) *StateMachine {
	return &StateMachine{
		Store:     store,
		Validator: v,
		Authority: auth,
		Now:       time.Now,
		NewID:     uuid.NewString,
	}
}

// =============================================================================
// CREATE
// =============================================================================

// Create validates the input, inserts the request as pending and
// reserves its working days, all in one transaction. A failed reserve
// rolls the insert back so no pending request without a matching
// pending quantity can exist.
func (m *StateMachine) Create(ctx context.Context, in RequestInput) (*LeaveRequest, error) {
	res, err := m.Validator.Validate(ctx, in)
	if err != nil {
		return nil, err
	}
	if !res.OK() {
		return nil, res
	}

	now := m.Now()
	req := LeaveRequest{
		ID:          m.NewID(),
		EmployeeID:  in.EmployeeID,
		LeaveTypeID: in.LeaveTypeID,
		StartDate:   in.StartDate,
		EndDate:     in.EndDate,
		DaysCount:   res.WorkingDays,
		Status:      StatusPending,
		Reason:      strings.TrimSpace(in.Reason),
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	err = m.Store.WithTx(ctx, func(tx Store) error {
		if err := tx.InsertRequest(ctx, req); err != nil {
			return err
		}
		return NewLedger(tx).Reserve(ctx, req.Key(), req.Days(), req.ID)
	})
	if err != nil {
		return nil, err
	}
	return &req, nil
}

// =============================================================================
// APPROVE / REJECT
// =============================================================================

// Approve moves a pending request to approved and commits its days
// (pending -> used). Self-approval is refused regardless of role.
func (m *StateMachine) Approve(ctx context.Context, requestID, approverID, comment string) (*LeaveRequest, error) {
	req, err := m.Store.GetRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if approverID == req.EmployeeID {
		return nil, fmt.Errorf("%w: cannot approve your own request", ErrUnauthorized)
	}
	ok, err := m.Authority.CanDecide(ctx, approverID, req.EmployeeID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s may not decide requests for %s", ErrUnauthorized, approverID, req.EmployeeID)
	}

	now := m.Now()
	patch := RequestPatch{ApproverID: approverID, ApproverComment: comment, DecidedAt: &now, UpdatedAt: now}
	err = m.Store.WithTx(ctx, func(tx Store) error {
		if err := tx.TransitionRequest(ctx, req.ID, StatusPending, StatusApproved, patch); err != nil {
			return err
		}
		return NewLedger(tx).Commit(ctx, req.Key(), req.Days(), req.ID)
	})
	if err != nil {
		return nil, err
	}
	return m.Store.GetRequest(ctx, requestID)
}

// Reject moves a pending request to rejected and releases its reserved
// days. A rejection reason is mandatory.
func (m *StateMachine) Reject(ctx context.Context, requestID, approverID, reason string) (*LeaveRequest, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, fmt.Errorf("%w: a rejection reason is required", ErrValidation)
	}
	req, err := m.Store.GetRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if approverID == req.EmployeeID {
		return nil, fmt.Errorf("%w: cannot reject your own request", ErrUnauthorized)
	}
	ok, err := m.Authority.CanDecide(ctx, approverID, req.EmployeeID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s may not decide requests for %s", ErrUnauthorized, approverID, req.EmployeeID)
	}

	now := m.Now()
	patch := RequestPatch{ApproverID: approverID, RejectionReason: reason, DecidedAt: &now, UpdatedAt: now}
	err = m.Store.WithTx(ctx, func(tx Store) error {
		if err := tx.TransitionRequest(ctx, req.ID, StatusPending, StatusRejected, patch); err != nil {
			return err
		}
		return NewLedger(tx).Release(ctx, req.Key(), req.Days(), req.ID)
	})
	if err != nil {
		return nil, err
	}
	return m.Store.GetRequest(ctx, requestID)
}

// =============================================================================
// CANCEL
// =============================================================================

// Cancel retires a pending or approved request. The owning employee
// may always cancel their own; otherwise the actor needs an HR or
// admin role. The ledger side depends on where the request was:
// pending releases the reservation, approved reverts the used days.
func (m *StateMachine) Cancel(ctx context.Context, requestID string, actor Employee) (*LeaveRequest, error) {
	req, err := m.Store.GetRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if actor.ID != req.EmployeeID && !actor.Role.CanActForOthers() {
		return nil, fmt.Errorf("%w: %s may not cancel requests for %s", ErrUnauthorized, actor.ID, req.EmployeeID)
	}

	from := req.Status
	if from != StatusPending && from != StatusApproved {
		return nil, &IllegalTransitionError{RequestID: req.ID, From: from, Action: "cancel"}
	}

	now := m.Now()
	patch := RequestPatch{CancelledBy: actor.ID, UpdatedAt: now}
	err = m.Store.WithTx(ctx, func(tx Store) error {
		if err := tx.TransitionRequest(ctx, req.ID, from, StatusCancelled, patch); err != nil {
			return err
		}
		ledger := NewLedger(tx)
		if from == StatusApproved {
			return ledger.Revert(ctx, req.Key(), req.Days(), req.ID)
		}
		return ledger.Release(ctx, req.Key(), req.Days(), req.ID)
	})
	if err != nil {
		return nil, err
	}
	return m.Store.GetRequest(ctx, requestID)
}
