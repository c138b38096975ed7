/*
Package leave implements the leave lifecycle and balance accounting engine.

PURPOSE:
  This package contains the domain types and algorithms for managing
  per-employee leave: working-day counting, accrual of allocated days,
  the per-(employee, leave type, year) balance ledger, request validation,
  and the request lifecycle state machine.

KEY CONCEPTS IN THIS FILE (types.go):
  - Employee: the requesting entity, with role and hire date
  - LeaveType: a leave category with allocation and accrual configuration
  - Balance: the authoritative ledger row (allocated/used/pending/carryover)
  - LeaveRequest: a request with its fixed status lifecycle

DESIGN PRINCIPLES:
  1. Precision: day quantities use decimal.Decimal (monthly accrual of
     20/12 days must not drift)
  2. Derived availability: Available() is always recomputed from the four
     stored columns, never stored itself
  3. Named mutations: balances change only through the four ledger
     primitives (reserve/commit/release/revert), never by field writes

SEE ALSO:
  - ledger.go: Balance mutation primitives
  - lifecycle.go: Request status transitions
  - accrual.go: How Allocated/Carryover get their values
*/
package leave

import (
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// EMPLOYEE
// =============================================================================

type Role string

const (
	RoleEmployee Role = "employee"
	RoleManager  Role = "manager"
	RoleHR       Role = "hr"
	RoleAdmin    Role = "admin"
)

// CanActForOthers reports whether the role may act on requests it does
// not own (cancel on behalf of the requester).
func (r Role) CanActForOthers() bool {
	return r == RoleHR || r == RoleAdmin
}

type Employee struct {
	ID        string
	Name      string
	Email     string
	Role      Role
	ManagerID string // back-reference up the reporting chain, may be empty
	HireDate  Date
	CreatedAt time.Time
}

// =============================================================================
// LEAVE TYPE
// =============================================================================

type LeaveType struct {
	ID                    string
	Code                  string // e.g., "pto", "sick"
	Name                  string
	DefaultAllocationDays decimal.Decimal
	MaxCarryoverDays      decimal.Decimal
	// MaxRequestDays caps a single request. Zero means the engine
	// default (30 days).
	MaxRequestDays   int
	Accrual          AccrualRule
	RequiresApproval bool
	Active           bool
	CreatedAt        time.Time
}

// DefaultMaxRequestDays is the hard cap applied when a leave type does
// not configure its own.
const DefaultMaxRequestDays = 30

func (lt LeaveType) RequestCap() int {
	if lt.MaxRequestDays > 0 {
		return lt.MaxRequestDays
	}
	return DefaultMaxRequestDays
}

// =============================================================================
// BALANCE - The ledger row
// =============================================================================

// BalanceKey identifies one ledger row.
type BalanceKey struct {
	EmployeeID  string
	LeaveTypeID string
	Year        int
}

// Balance is the authoritative day-count ledger for one employee, leave
// type and year. All four stored quantities are >= 0 at all times.
type Balance struct {
	EmployeeID  string
	LeaveTypeID string
	Year        int

	Allocated decimal.Decimal
	Used      decimal.Decimal
	Pending   decimal.Decimal
	Carryover decimal.Decimal

	UpdatedAt time.Time
}

func (b Balance) Key() BalanceKey {
	return BalanceKey{EmployeeID: b.EmployeeID, LeaveTypeID: b.LeaveTypeID, Year: b.Year}
}

// Available is the derived quantity: allocated + carryover - used - pending.
// It is recomputed on every read and never stored, so it cannot drift.
func (b Balance) Available() decimal.Decimal {
	return b.Allocated.Add(b.Carryover).Sub(b.Used).Sub(b.Pending)
}

// =============================================================================
// LEAVE REQUEST
// =============================================================================

type RequestStatus string

const (
	StatusPending   RequestStatus = "pending"
	StatusApproved  RequestStatus = "approved"
	StatusRejected  RequestStatus = "rejected"
	StatusCancelled RequestStatus = "cancelled"
)

// Terminal reports whether no further transition is legal from the status.
// Approved is NOT terminal: an approved request can still be cancelled.
func (s RequestStatus) Terminal() bool {
	return s == StatusRejected || s == StatusCancelled
}

type LeaveRequest struct {
	ID          string
	EmployeeID  string
	LeaveTypeID string
	StartDate   Date
	EndDate     Date

	// DaysCount is the working-day count computed at creation time. It
	// is the exact quantity moved through the ledger on every
	// transition of this request.
	DaysCount int

	Status RequestStatus
	Reason string

	// ApproverID is set exclusively by the state machine, on approval
	// or rejection.
	ApproverID      string
	ApproverComment string
	RejectionReason string
	CancelledBy     string

	CreatedAt time.Time
	UpdatedAt time.Time
	DecidedAt *time.Time
}

// Days returns the request's working-day count as a decimal, the unit
// the ledger operates in.
func (r LeaveRequest) Days() decimal.Decimal {
	return decimal.NewFromInt(int64(r.DaysCount))
}

// Overlaps reports whether the request's date range intersects [start, end].
func (r LeaveRequest) Overlaps(start, end Date) bool {
	return !r.EndDate.Before(start) && !r.StartDate.After(end)
}

// Key returns the ledger row this request draws from: the balance of
// its start year.
func (r LeaveRequest) Key() BalanceKey {
	return BalanceKey{EmployeeID: r.EmployeeID, LeaveTypeID: r.LeaveTypeID, Year: r.StartDate.Year()}
}
