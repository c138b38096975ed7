/*
accrual.go - Allocation and carryover computation

PURPOSE:
  Computes how many days an employee is allocated for a leave type and
  year, and how much of a prior year's remainder carries over. These are
  the only two writers of the Allocated and Carryover ledger columns.

PRORATION:
  Annual rules with ProrateFirstYear give a mid-year hire
  floor(default/12 * monthsRemaining) for the hire year. A June 15 hire
  with 20 days/year gets floor(20/12 * 7) = 11 days.

  Monthly and per-pay-period rules prorate naturally: only periods on or
  after the hire month count.

CLAMPING:
  All outputs are non-negative. Caps clamp, they never raise errors -
  misconfiguration is caught earlier by AccrualRule.Validate.

SEE ALSO:
  - rules.go: the validated rule input
  - ledger.go: Provision writes the computed values into the ledger row
*/
package leave

import (
	"github.com/shopspring/decimal"
)

var (
	twelve = decimal.NewFromInt(12)
)

// PayPeriodsPerYear is the biweekly pay-period count used by
// per_pay_period accrual.
const PayPeriodsPerYear = 26

// =============================================================================
// ACCRUAL ENGINE
// =============================================================================

type AccrualEngine struct{}

func NewAccrualEngine() *AccrualEngine {
	return &AccrualEngine{}
}

// AllocatedDays computes the employee's allocation for the leave type in
// the given year. The result is deterministic for the whole year: a
// monthly accruer's full-year entitlement is rate * months, not a
// point-in-time snapshot.
func (e *AccrualEngine) AllocatedDays(lt LeaveType, emp Employee, year int) decimal.Decimal {
	if year < emp.HireDate.Year() {
		return decimal.Zero
	}

	switch lt.Accrual.Kind {
	case AccrualMonthly:
		months := decimal.NewFromInt(int64(e.periodsInYear(emp, year, 12)))
		return e.clamp(lt.Accrual.Rate.Mul(months), lt.Accrual.MaxAccrualCap)

	case AccrualPerPayPeriod:
		periods := decimal.NewFromInt(int64(e.periodsInYear(emp, year, PayPeriodsPerYear)))
		return e.clamp(lt.Accrual.Rate.Mul(periods), lt.Accrual.MaxAccrualCap)

	default: // annual
		allocation := lt.DefaultAllocationDays
		if year == emp.HireDate.Year() && lt.Accrual.ProrateFirstYear {
			monthsRemaining := decimal.NewFromInt(int64(13 - int(emp.HireDate.Month())))
			allocation = allocation.Div(twelve).Mul(monthsRemaining).Floor()
		}
		return e.clamp(allocation, lt.Accrual.MaxAccrualCap)
	}
}

// periodsInYear counts the accrual periods the employee participates in
// during the year: all of them, or - in the hire year - the share of the
// year from the hire month onward.
func (e *AccrualEngine) periodsInYear(emp Employee, year, perYear int) int {
	if year > emp.HireDate.Year() {
		return perYear
	}
	monthsRemaining := 13 - int(emp.HireDate.Month())
	if perYear == 12 {
		return monthsRemaining
	}
	return perYear * monthsRemaining / 12
}

func (e *AccrualEngine) clamp(v decimal.Decimal, limit *decimal.Decimal) decimal.Decimal {
	if v.IsNegative() {
		return decimal.Zero
	}
	if limit != nil && v.GreaterThan(*limit) {
		return *limit
	}
	return v
}

// CarryoverDays computes the year-rollover carryover:
// min(priorYearAvailable, maxCarryoverDays), never negative.
func (e *AccrualEngine) CarryoverDays(lt LeaveType, priorAvailable decimal.Decimal) decimal.Decimal {
	if priorAvailable.IsNegative() {
		return decimal.Zero
	}
	if priorAvailable.GreaterThan(lt.MaxCarryoverDays) {
		return lt.MaxCarryoverDays
	}
	return priorAvailable
}
