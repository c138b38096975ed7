/*
validator.go - Request validation rules

PURPOSE:
  Evaluates every rule against a prospective leave request and collects
  the full set of findings, so a caller sees all problems at once
  instead of fixing them one request at a time.

RULES:
  end_before_start      end date precedes start date
  start_in_past         start date already passed (same-day allowed
                        before the cutover hour)
  no_working_days       the range contains zero working days
  exceeds_max_days      working-day count above the type's cap
  overlapping_request   intersects a pending/approved request
  insufficient_balance  working-day count above available balance
  short_notice          (warning) starts within the notice window

SEE ALSO:
  - calendar.go: working-day arithmetic
  - lifecycle.go: re-runs validation inside the create transaction
*/
package leave

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// RESULT TYPES
// =============================================================================

type IssueSeverity string

const (
	SeverityError   IssueSeverity = "error"
	SeverityWarning IssueSeverity = "warning"
)

type ValidationIssue struct {
	Rule     string        `json:"rule"`
	Severity IssueSeverity `json:"severity"`
	Message  string        `json:"message"`
}

// ValidationResult carries every finding plus the working-day count
// and available balance computed along the way, so callers don't
// recount or refetch.
type ValidationResult struct {
	Issues           []ValidationIssue `json:"issues"`
	WorkingDays      int               `json:"workingDays"`
	AvailableBalance decimal.Decimal   `json:"availableBalance"`
}

// OK reports whether the request may proceed. Warnings alone do not
// block.
func (r *ValidationResult) OK() bool {
	for _, is := range r.Issues {
		if is.Severity == SeverityError {
			return false
		}
	}
	return true
}

func (r *ValidationResult) addError(rule, format string, args ...any) {
	r.Issues = append(r.Issues, ValidationIssue{Rule: rule, Severity: SeverityError, Message: fmt.Sprintf(format, args...)})
}

func (r *ValidationResult) addWarning(rule, format string, args ...any) {
	r.Issues = append(r.Issues, ValidationIssue{Rule: rule, Severity: SeverityWarning, Message: fmt.Sprintf(format, args...)})
}

// Error implements error so a failed result can travel through error
// returns; only results with at least one error-severity issue should
// be returned as errors.
func (r *ValidationResult) Error() string {
	for _, is := range r.Issues {
		if is.Severity == SeverityError {
			return fmt.Sprintf("validation failed: %s", is.Message)
		}
	}
	return "validation failed"
}

func (r *ValidationResult) Unwrap() error { return ErrValidation }

// =============================================================================
// VALIDATOR
// =============================================================================

// RequestInput is the raw material of a validation pass.
type RequestInput struct {
	EmployeeID  string
	LeaveTypeID string
	StartDate   Date
	EndDate     Date
	Reason      string

	// ExcludeRequestID skips one request in the overlap scan, for
	// re-validating an existing request against its siblings.
	ExcludeRequestID string
}

const (
	// DefaultCutoverHour is the local hour after which a same-day
	// start counts as in the past.
	DefaultCutoverHour = 14

	// ShortNoticeDays is the advance-notice window below which a
	// warning is raised.
	ShortNoticeDays = 7
)

type Validator struct {
	Types    LeaveTypeStore
	Requests RequestStore
	Balances BalanceStore
	Calendar HolidayCalendar

	Country     string
	CutoverHour int
	Now         func() time.Time
}

func NewValidator(store Store, cal HolidayCalendar, country string) *Validator {
	return &Validator{
		Types:       store,
		Requests:    store,
		Balances:    store,
		Calendar:    cal,
		Country:     country,
		CutoverHour: DefaultCutoverHour,
		Now:         time.Now,
	}
}

// Validate runs every rule and returns the collected findings. Rules
// that depend on the leave type are skipped when the type itself is
// invalid; everything else always runs.
func (v *Validator) Validate(ctx context.Context, in RequestInput) (*ValidationResult, error) {
	res := &ValidationResult{}
	now := v.Now()
	today := DateOf(now)

	// Date ordering.
	if in.EndDate.Before(in.StartDate) {
		res.addError("end_before_start", "end date %s precedes start date %s", in.EndDate, in.StartDate)
	}

	// Past start. A request starting today is allowed until the
	// cutover hour.
	if in.StartDate.Before(today) {
		res.addError("start_in_past", "start date %s has already passed", in.StartDate)
	} else if in.StartDate.Equal(today) && now.Hour() >= v.CutoverHour {
		res.addError("start_in_past", "same-day requests close at %02d:00", v.CutoverHour)
	}

	// Leave type lookup gates the type-dependent rules.
	lt, err := v.Types.GetLeaveType(ctx, in.LeaveTypeID)
	if err != nil {
		if IsNotFound(err) {
			res.addError("unknown_leave_type", "leave type %s does not exist", in.LeaveTypeID)
			lt = nil
		} else {
			return nil, err
		}
	}
	if lt != nil && !lt.Active {
		res.addError("inactive_leave_type", "leave type %s is not active", lt.Code)
	}

	// Working-day arithmetic only makes sense on an ordered range.
	working := 0
	if !in.EndDate.Before(in.StartDate) {
		working = CountWorkingDays(in.StartDate, in.EndDate, v.Calendar, v.Country)
		res.WorkingDays = working
		if working == 0 {
			res.addError("no_working_days", "the range %s to %s contains no working days", in.StartDate, in.EndDate)
		}
		if lt != nil && working > lt.RequestCap() {
			res.addError("exceeds_max_days", "%d working days exceeds the %d-day limit for %s", working, lt.RequestCap(), lt.Code)
		}
	}

	// Overlap with the employee's pending/approved requests.
	overlaps, err := v.Requests.ListOverlapping(ctx, in.EmployeeID, in.StartDate, in.EndDate)
	if err != nil {
		return nil, err
	}
	for _, o := range overlaps {
		if o.ID == in.ExcludeRequestID {
			continue
		}
		res.addError("overlapping_request", "overlaps %s request %s (%s to %s)", o.Status, o.ID, o.StartDate, o.EndDate)
		break
	}

	// Balance check against the start year's ledger row. A missing
	// row means zero available.
	if lt != nil {
		key := BalanceKey{EmployeeID: in.EmployeeID, LeaveTypeID: lt.ID, Year: in.StartDate.Year()}
		available := decimal.Zero
		b, err := v.Balances.GetBalance(ctx, key)
		switch {
		case err == nil:
			available = b.Available()
		case IsNotFound(err):
		default:
			return nil, err
		}
		res.AvailableBalance = available
		if working > 0 {
			requested := decimal.NewFromInt(int64(working))
			if requested.GreaterThan(available) {
				res.addError("insufficient_balance", "%s days requested but only %s available for %s in %d", requested, available, lt.Code, key.Year)
			}
		}
	}

	// Short notice is advisory only.
	if !in.StartDate.Before(today) {
		if DaysBetween(today, in.StartDate) < ShortNoticeDays {
			res.addWarning("short_notice", "starts within %d days; approval may be tight", ShortNoticeDays)
		}
	}

	return res, nil
}
