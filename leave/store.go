/*
store.go - Persistence interfaces for the engine

PURPOSE:
  Defines the interface between the domain logic and the database. The
  four balance primitives are the load-bearing part of the contract:
  each must be a single atomic read-check-write against one ledger row,
  so that the available >= 0 invariant holds under concurrent writers.

ATOMICITY:
  TxStore.WithTx runs a function against a transaction-scoped Store.
  The state machine uses it to pair every status mutation with its
  ledger adjustment: both commit together or not at all.

IMPLEMENTATIONS:
  - store/sqlite: production store (conditional UPDATEs implement the
    compare-and-swap; WithTx maps to a database transaction)

SEE ALSO:
  - ledger.go: Ledger wrapper over BalanceStore
  - lifecycle.go: StateMachine over TxStore
*/
package leave

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// ENTITY STORES
// =============================================================================

type EmployeeStore interface {
	SaveEmployee(ctx context.Context, emp Employee) error
	GetEmployee(ctx context.Context, id string) (*Employee, error)
	ListEmployees(ctx context.Context) ([]Employee, error)
}

type LeaveTypeStore interface {
	SaveLeaveType(ctx context.Context, lt LeaveType) error
	GetLeaveType(ctx context.Context, id string) (*LeaveType, error)
	ListLeaveTypes(ctx context.Context) ([]LeaveType, error)
}

// =============================================================================
// REQUEST STORE
// =============================================================================

// RequestPatch carries the fields a transition writes alongside the
// status change.
type RequestPatch struct {
	ApproverID      string
	ApproverComment string
	RejectionReason string
	CancelledBy     string
	DecidedAt       *time.Time
	UpdatedAt       time.Time
}

type RequestStore interface {
	InsertRequest(ctx context.Context, r LeaveRequest) error
	GetRequest(ctx context.Context, id string) (*LeaveRequest, error)
	ListRequestsByEmployee(ctx context.Context, employeeID string) ([]LeaveRequest, error)
	ListRequestsByStatus(ctx context.Context, status RequestStatus) ([]LeaveRequest, error)

	// ListOverlapping returns the employee's pending/approved requests
	// whose date range intersects [start, end].
	ListOverlapping(ctx context.Context, employeeID string, start, end Date) ([]LeaveRequest, error)

	// TransitionRequest atomically moves a request from one status to
	// another. The update is guarded on the expected current status;
	// when a concurrent transition won the race, the guard fails and
	// an IllegalTransitionError (wrapping ErrIllegalTransition) is
	// returned with the status actually observed.
	TransitionRequest(ctx context.Context, id string, from, to RequestStatus, patch RequestPatch) error
}

// =============================================================================
// BALANCE STORE - The ledger row and its four primitives
// =============================================================================

// LedgerOp names the legal mutations of a balance row.
type LedgerOp string

const (
	OpReserve   LedgerOp = "reserve"   // request submitted: pending += d
	OpCommit    LedgerOp = "commit"    // request approved: pending -= d, used += d
	OpRelease   LedgerOp = "release"   // rejected / cancelled-from-pending: pending -= d
	OpRevert    LedgerOp = "revert"    // cancelled-from-approved: used -= d
	OpAllocate  LedgerOp = "allocate"  // accrual engine wrote Allocated
	OpCarryover LedgerOp = "carryover" // year rollover wrote Carryover
)

// LedgerEntry is the immutable audit record written with every balance
// mutation, in the same transaction as the mutation itself.
type LedgerEntry struct {
	ID          string
	EmployeeID  string
	LeaveTypeID string
	Year        int
	Op          LedgerOp
	Days        decimal.Decimal
	ReferenceID string // request id, or rollover marker
	CreatedAt   time.Time
}

type BalanceStore interface {
	GetBalance(ctx context.Context, key BalanceKey) (*Balance, error)
	ListBalances(ctx context.Context, employeeID string, year int) ([]Balance, error)

	// PutBalance creates or replaces a ledger row with the given
	// Allocated/Carryover values (Used/Pending preserved if the row
	// exists). Used by provisioning and year rollover only.
	PutBalance(ctx context.Context, b Balance, ref string) error

	// Reserve increments Pending by days iff the derived available
	// quantity stays >= 0. The check and the write are one atomic
	// operation relative to other writers of the same row; on a
	// shortage it fails with an InsufficientBalanceError.
	Reserve(ctx context.Context, key BalanceKey, days decimal.Decimal, ref string) error

	// Commit moves days from Pending to Used (approval).
	Commit(ctx context.Context, key BalanceKey, days decimal.Decimal, ref string) error

	// Release decrements Pending (rejection, cancel-from-pending).
	Release(ctx context.Context, key BalanceKey, days decimal.Decimal, ref string) error

	// Revert decrements Used (cancel-from-approved).
	Revert(ctx context.Context, key BalanceKey, days decimal.Decimal, ref string) error

	LedgerEntries(ctx context.Context, key BalanceKey) ([]LedgerEntry, error)
}

// =============================================================================
// COMBINED / TRANSACTIONAL STORE
// =============================================================================

// Store bundles every persistence concern the engine touches.
type Store interface {
	EmployeeStore
	LeaveTypeStore
	RequestStore
	BalanceStore
}

// TxStore adds transactional composition. WithTx executes fn against a
// transaction-scoped Store; if fn returns an error the transaction is
// rolled back, otherwise committed.
type TxStore interface {
	Store
	WithTx(ctx context.Context, fn func(Store) error) error
}
