package leave_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/peopleops/leave-engine/leave"
)

func annualType(days int64) leave.LeaveType {
	return leave.LeaveType{
		ID:                    "pto",
		Code:                  "pto",
		DefaultAllocationDays: decimal.NewFromInt(days),
		MaxCarryoverDays:      decimal.NewFromInt(5),
		Accrual:               leave.AccrualRule{Kind: leave.AccrualAnnual},
	}
}

func hiredOn(year int, month time.Month) leave.Employee {
	return leave.Employee{ID: "emp-1", HireDate: leave.NewDate(year, month, 15)}
}

// =============================================================================
// ANNUAL ALLOCATION
// =============================================================================

func TestAllocatedDays_Annual_FullYear(t *testing.T) {
	engine := leave.NewAccrualEngine()

	got := engine.AllocatedDays(annualType(20), hiredOn(2020, time.January), 2025)
	assert.True(t, got.Equal(decimal.NewFromInt(20)), "got %s", got)
}

func TestAllocatedDays_Annual_HireYearProrated(t *testing.T) {
	// GIVEN: 20 days/year, prorated, hired in June
	// WHEN: Computing the hire year's allocation
	// THEN: floor(20/12 * 7) = 11 (June through December count)

	lt := annualType(20)
	lt.Accrual.ProrateFirstYear = true
	engine := leave.NewAccrualEngine()

	got := engine.AllocatedDays(lt, hiredOn(2025, time.June), 2025)
	assert.True(t, got.Equal(decimal.NewFromInt(11)), "got %s", got)
}

func TestAllocatedDays_Annual_HireYearNotProratedByDefault(t *testing.T) {
	engine := leave.NewAccrualEngine()

	got := engine.AllocatedDays(annualType(20), hiredOn(2025, time.June), 2025)
	assert.True(t, got.Equal(decimal.NewFromInt(20)), "got %s", got)
}

func TestAllocatedDays_YearBeforeHire_Zero(t *testing.T) {
	engine := leave.NewAccrualEngine()

	got := engine.AllocatedDays(annualType(20), hiredOn(2025, time.June), 2024)
	assert.True(t, got.IsZero(), "got %s", got)
}

func TestAllocatedDays_Annual_DecemberHireProrated(t *testing.T) {
	// floor(20/12 * 1) = 1
	lt := annualType(20)
	lt.Accrual.ProrateFirstYear = true
	engine := leave.NewAccrualEngine()

	got := engine.AllocatedDays(lt, hiredOn(2025, time.December), 2025)
	assert.True(t, got.Equal(decimal.NewFromInt(1)), "got %s", got)
}

// =============================================================================
// MONTHLY / PER-PAY-PERIOD ALLOCATION
// =============================================================================

func TestAllocatedDays_Monthly_FullYear(t *testing.T) {
	// 1.25 days/month over 12 months: exactly 15, no float drift.
	lt := annualType(0)
	lt.Accrual = leave.AccrualRule{Kind: leave.AccrualMonthly, Rate: decimal.RequireFromString("1.25")}
	engine := leave.NewAccrualEngine()

	got := engine.AllocatedDays(lt, hiredOn(2020, time.January), 2025)
	assert.True(t, got.Equal(decimal.NewFromInt(15)), "got %s", got)
}

func TestAllocatedDays_Monthly_HireYearCountsFromHireMonth(t *testing.T) {
	// Hired in October: October, November, December accrue.
	lt := annualType(0)
	lt.Accrual = leave.AccrualRule{Kind: leave.AccrualMonthly, Rate: decimal.NewFromInt(2)}
	engine := leave.NewAccrualEngine()

	got := engine.AllocatedDays(lt, hiredOn(2025, time.October), 2025)
	assert.True(t, got.Equal(decimal.NewFromInt(6)), "got %s", got)
}

func TestAllocatedDays_Monthly_CapClamps(t *testing.T) {
	cap := decimal.NewFromInt(10)
	lt := annualType(0)
	lt.Accrual = leave.AccrualRule{Kind: leave.AccrualMonthly, Rate: decimal.NewFromInt(2), MaxAccrualCap: &cap}
	engine := leave.NewAccrualEngine()

	got := engine.AllocatedDays(lt, hiredOn(2020, time.January), 2025)
	assert.True(t, got.Equal(cap), "got %s", got)
}

func TestAllocatedDays_PerPayPeriod_FullYear(t *testing.T) {
	// 0.5 days per biweekly period, 26 periods: 13 days.
	lt := annualType(0)
	lt.Accrual = leave.AccrualRule{Kind: leave.AccrualPerPayPeriod, Rate: decimal.RequireFromString("0.5")}
	engine := leave.NewAccrualEngine()

	got := engine.AllocatedDays(lt, hiredOn(2020, time.January), 2025)
	assert.True(t, got.Equal(decimal.NewFromInt(13)), "got %s", got)
}

// =============================================================================
// CARRYOVER
// =============================================================================

func TestCarryoverDays_ClampedToMax(t *testing.T) {
	engine := leave.NewAccrualEngine()
	lt := annualType(20) // max carryover 5

	got := engine.CarryoverDays(lt, decimal.NewFromInt(8))
	assert.True(t, got.Equal(decimal.NewFromInt(5)), "got %s", got)
}

func TestCarryoverDays_BelowMaxPassesThrough(t *testing.T) {
	engine := leave.NewAccrualEngine()

	got := engine.CarryoverDays(annualType(20), decimal.RequireFromString("2.5"))
	assert.True(t, got.Equal(decimal.RequireFromString("2.5")), "got %s", got)
}

func TestCarryoverDays_NegativeAvailable_Zero(t *testing.T) {
	engine := leave.NewAccrualEngine()

	got := engine.CarryoverDays(annualType(20), decimal.NewFromInt(-3))
	assert.True(t, got.IsZero(), "got %s", got)
}

// =============================================================================
// ACCRUAL RULE VALIDATION
// =============================================================================

func TestAccrualRule_Validate(t *testing.T) {
	assert.NoError(t, leave.AccrualRule{Kind: leave.AccrualAnnual}.Validate())
	assert.NoError(t, leave.AccrualRule{Kind: leave.AccrualMonthly, Rate: decimal.NewFromInt(1)}.Validate())

	assert.Error(t, leave.AccrualRule{Kind: leave.AccrualMonthly}.Validate(), "zero rate")
	assert.Error(t, leave.AccrualRule{Kind: "quarterly"}.Validate(), "unknown kind")

	negative := decimal.NewFromInt(-1)
	assert.Error(t, leave.AccrualRule{Kind: leave.AccrualAnnual, MaxAccrualCap: &negative}.Validate())
}

func TestParseAccrualRule_RejectsBadConfigAtLoadTime(t *testing.T) {
	_, err := leave.ParseAccrualRule([]byte(`{"kind":"monthly","rate":"0"}`))
	assert.Error(t, err)

	r, err := leave.ParseAccrualRule([]byte(`{"kind":"monthly","rate":"1.25"}`))
	assert.NoError(t, err)
	assert.Equal(t, leave.AccrualMonthly, r.Kind)
}
