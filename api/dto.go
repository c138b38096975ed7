/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the internal domain model from the external API contract, allowing:
  - Field renaming without breaking clients
  - API-specific validation
  - Version evolution

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

VALIDATION:
  Validation is done in handlers and the domain validator, not in DTOs.
  DTOs are pure data carriers.

SEE ALSO:
  - handlers.go: Uses these types
  - leave/validator.go: ValidationResult serialized into responses
*/
package api

import (
	"time"

	"github.com/peopleops/leave-engine/leave"
	"github.com/peopleops/leave-engine/notify"
)

// =============================================================================
// EMPLOYEE
// =============================================================================

type EmployeeDTO struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	Role      string `json:"role"`
	ManagerID string `json:"managerId,omitempty"`
	HireDate  string `json:"hireDate"`
	CreatedAt string `json:"createdAt"`
}

type CreateEmployeeRequest struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	Role      string `json:"role"`
	ManagerID string `json:"managerId"`
	HireDate  string `json:"hireDate"`
}

func toEmployeeDTO(e leave.Employee) EmployeeDTO {
	return EmployeeDTO{
		ID:        e.ID,
		Name:      e.Name,
		Email:     e.Email,
		Role:      string(e.Role),
		ManagerID: e.ManagerID,
		HireDate:  e.HireDate.String(),
		CreatedAt: e.CreatedAt.Format(time.RFC3339),
	}
}

// =============================================================================
// LEAVE TYPE
// =============================================================================

type LeaveTypeDTO struct {
	ID                    string           `json:"id"`
	Code                  string           `json:"code"`
	Name                  string           `json:"name"`
	DefaultAllocationDays string           `json:"defaultAllocationDays"`
	MaxCarryoverDays      string           `json:"maxCarryoverDays"`
	MaxRequestDays        int              `json:"maxRequestDays"`
	Accrual               leave.AccrualRule `json:"accrual"`
	RequiresApproval      bool             `json:"requiresApproval"`
	Active                bool             `json:"active"`
}

type CreateLeaveTypeRequest struct {
	ID                    string           `json:"id"`
	Code                  string           `json:"code"`
	Name                  string           `json:"name"`
	DefaultAllocationDays string           `json:"defaultAllocationDays"`
	MaxCarryoverDays      string           `json:"maxCarryoverDays"`
	MaxRequestDays        int              `json:"maxRequestDays"`
	Accrual               leave.AccrualRule `json:"accrual"`
	RequiresApproval      *bool            `json:"requiresApproval"`
	Active                *bool            `json:"active"`
}

func toLeaveTypeDTO(lt leave.LeaveType) LeaveTypeDTO {
	return LeaveTypeDTO{
		ID:                    lt.ID,
		Code:                  lt.Code,
		Name:                  lt.Name,
		DefaultAllocationDays: lt.DefaultAllocationDays.String(),
		MaxCarryoverDays:      lt.MaxCarryoverDays.String(),
		MaxRequestDays:        lt.MaxRequestDays,
		Accrual:               lt.Accrual,
		RequiresApproval:      lt.RequiresApproval,
		Active:                lt.Active,
	}
}

// =============================================================================
// BALANCE
// =============================================================================

type BalanceDTO struct {
	EmployeeID  string `json:"employeeId"`
	LeaveTypeID string `json:"leaveTypeId"`
	Year        int    `json:"year"`
	Allocated   string `json:"allocated"`
	Used        string `json:"used"`
	Pending     string `json:"pending"`
	Carryover   string `json:"carryover"`
	Available   string `json:"available"`
}

func toBalanceDTO(b leave.Balance) BalanceDTO {
	return BalanceDTO{
		EmployeeID:  b.EmployeeID,
		LeaveTypeID: b.LeaveTypeID,
		Year:        b.Year,
		Allocated:   b.Allocated.String(),
		Used:        b.Used.String(),
		Pending:     b.Pending.String(),
		Carryover:   b.Carryover.String(),
		Available:   b.Available().String(),
	}
}

type LedgerEntryDTO struct {
	ID          string `json:"id"`
	Op          string `json:"op"`
	Days        string `json:"days"`
	ReferenceID string `json:"referenceId,omitempty"`
	CreatedAt   string `json:"createdAt"`
}

// =============================================================================
// REQUEST
// =============================================================================

type RequestDTO struct {
	ID              string `json:"id"`
	EmployeeID      string `json:"employeeId"`
	LeaveTypeID     string `json:"leaveTypeId"`
	StartDate       string `json:"startDate"`
	EndDate         string `json:"endDate"`
	DaysCount       int    `json:"daysCount"`
	Status          string `json:"status"`
	Reason          string `json:"reason,omitempty"`
	ApproverID      string `json:"approverId,omitempty"`
	ApproverComment string `json:"approverComment,omitempty"`
	RejectionReason string `json:"rejectionReason,omitempty"`
	CancelledBy     string `json:"cancelledBy,omitempty"`
	CreatedAt       string `json:"createdAt"`
	DecidedAt       string `json:"decidedAt,omitempty"`
}

type SubmitRequestRequest struct {
	EmployeeID  string `json:"employeeId"`
	LeaveTypeID string `json:"leaveTypeId"`
	StartDate   string `json:"startDate"`
	EndDate     string `json:"endDate"`
	Reason      string `json:"reason"`
}

type DecideRequestRequest struct {
	ApproverID string `json:"approverId"`
	Comment    string `json:"comment"`
	Reason     string `json:"reason"`
}

type CancelRequestRequest struct {
	ActorID string `json:"actorId"`
}

func toRequestDTO(r leave.LeaveRequest) RequestDTO {
	dto := RequestDTO{
		ID:              r.ID,
		EmployeeID:      r.EmployeeID,
		LeaveTypeID:     r.LeaveTypeID,
		StartDate:       r.StartDate.String(),
		EndDate:         r.EndDate.String(),
		DaysCount:       r.DaysCount,
		Status:          string(r.Status),
		Reason:          r.Reason,
		ApproverID:      r.ApproverID,
		ApproverComment: r.ApproverComment,
		RejectionReason: r.RejectionReason,
		CancelledBy:     r.CancelledBy,
		CreatedAt:       r.CreatedAt.Format(time.RFC3339),
	}
	if r.DecidedAt != nil {
		dto.DecidedAt = r.DecidedAt.Format(time.RFC3339)
	}
	return dto
}

// =============================================================================
// HOLIDAYS
// =============================================================================

type HolidayDTO struct {
	ID          string `json:"id"`
	CountryCode string `json:"countryCode"`
	Date        string `json:"date"`
	Name        string `json:"name"`
	Recurring   bool   `json:"recurring"`
}

type CreateHolidayRequest struct {
	CountryCode string `json:"countryCode"`
	Date        string `json:"date"`
	Name        string `json:"name"`
	Recurring   bool   `json:"recurring"`
}

// =============================================================================
// NOTIFIERS
// =============================================================================

type NotifierDTO struct {
	ID                string `json:"id"`
	EmployeeID        string `json:"employeeId"`
	DocumentID        string `json:"documentId,omitempty"`
	Subject           string `json:"subject"`
	Message           string `json:"message,omitempty"`
	Frequency         string `json:"frequency"`
	TargetExpiry      string `json:"targetExpiry,omitempty"`
	AdvanceNoticeDays int    `json:"advanceNoticeDays,omitempty"`
	Status            string `json:"status"`
	Attempts          int    `json:"attempts"`
	LastSent          string `json:"lastSent,omitempty"`
	NextDue           string `json:"nextDue,omitempty"`
}

type CreateNotifierRequest struct {
	EmployeeID        string `json:"employeeId"`
	DocumentID        string `json:"documentId"`
	Subject           string `json:"subject"`
	Message           string `json:"message"`
	Frequency         string `json:"frequency"`
	CustomIntervalSec int64  `json:"customIntervalSec"`
	TargetExpiry      string `json:"targetExpiry"`
	AdvanceNoticeDays int    `json:"advanceNoticeDays"`
	FirstDue          string `json:"firstDue"`
}

func toNotifierDTO(n notify.DocumentNotifier) NotifierDTO {
	dto := NotifierDTO{
		ID:                n.ID,
		EmployeeID:        n.EmployeeID,
		DocumentID:        n.DocumentID,
		Subject:           n.Subject,
		Message:           n.Message,
		Frequency:         string(n.Frequency),
		AdvanceNoticeDays: n.AdvanceNoticeDays,
		Status:            string(n.Status),
		Attempts:          n.Attempts,
	}
	if !n.TargetExpiry.IsZero() {
		dto.TargetExpiry = n.TargetExpiry.Format(time.RFC3339)
	}
	if n.LastSent != nil {
		dto.LastSent = n.LastSent.Format(time.RFC3339)
	}
	if !n.NextDue.IsZero() {
		dto.NextDue = n.NextDue.Format(time.RFC3339)
	}
	return dto
}

// =============================================================================
// MISC
// =============================================================================

type RolloverRequest struct {
	Year int `json:"year"`
}

type RolloverResponse struct {
	Year    int `json:"year"`
	Created int `json:"created"`
}

// ErrorResponse is the uniform error body.
type ErrorResponse struct {
	Error   string                  `json:"error"`
	Details string                  `json:"details,omitempty"`
	Issues  []leave.ValidationIssue `json:"issues,omitempty"`
}
