package leave_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/peopleops/leave-engine/leave"
)

// =============================================================================
// TEST SETUP
// =============================================================================

// fixedCalendar is an in-memory HolidayCalendar for unit tests.
type fixedCalendar struct {
	holidays []leave.Holiday
}

func (c *fixedCalendar) IsHoliday(countryCode string, d leave.Date) bool {
	for _, h := range c.holidays {
		if (h.CountryCode == countryCode || h.CountryCode == "") && h.Matches(d) {
			return true
		}
	}
	return false
}

func (c *fixedCalendar) Holidays(countryCode string, year int) []leave.Holiday {
	var out []leave.Holiday
	for _, h := range c.holidays {
		if h.CountryCode == countryCode || h.CountryCode == "" {
			out = append(out, h)
		}
	}
	return out
}

// =============================================================================
// WORKING DAY COUNTING
// =============================================================================

func TestCountWorkingDays_FullWeek(t *testing.T) {
	// GIVEN: Monday through Sunday, no holidays
	// WHEN: Counting working days
	// THEN: Exactly the five weekdays count

	mon := leave.NewDate(2025, time.March, 3)
	sun := leave.NewDate(2025, time.March, 9)

	got := leave.CountWorkingDays(mon, sun, leave.NoHolidays{}, "US")
	assert.Equal(t, 5, got)
}

func TestCountWorkingDays_WeekendOnly(t *testing.T) {
	sat := leave.NewDate(2025, time.March, 8)
	sun := leave.NewDate(2025, time.March, 9)

	got := leave.CountWorkingDays(sat, sun, leave.NoHolidays{}, "US")
	assert.Equal(t, 0, got)
}

func TestCountWorkingDays_SingleDayInclusive(t *testing.T) {
	// The range is inclusive on both ends: one weekday counts as 1.
	wed := leave.NewDate(2025, time.March, 5)

	assert.Equal(t, 1, leave.CountWorkingDays(wed, wed, leave.NoHolidays{}, "US"))
}

func TestCountWorkingDays_EndBeforeStart(t *testing.T) {
	start := leave.NewDate(2025, time.March, 10)
	end := leave.NewDate(2025, time.March, 3)

	assert.Equal(t, 0, leave.CountWorkingDays(start, end, leave.NoHolidays{}, "US"))
}

func TestCountWorkingDays_SkipsHolidays(t *testing.T) {
	// GIVEN: July 4th 2025 is a Friday holiday
	// WHEN: Counting Mon Jun 30 .. Fri Jul 4
	// THEN: 4 working days, the holiday does not count

	cal := &fixedCalendar{holidays: []leave.Holiday{
		{CountryCode: "US", Date: leave.NewDate(2025, time.July, 4), Name: "Independence Day"},
	}}

	start := leave.NewDate(2025, time.June, 30)
	end := leave.NewDate(2025, time.July, 4)

	assert.Equal(t, 4, leave.CountWorkingDays(start, end, cal, "US"))
}

func TestCountWorkingDays_HolidayOnWeekendNotDoubleCounted(t *testing.T) {
	// A holiday falling on a Saturday changes nothing: the day was
	// already excluded.
	cal := &fixedCalendar{holidays: []leave.Holiday{
		{CountryCode: "US", Date: leave.NewDate(2025, time.March, 8), Name: "Some Saturday"},
	}}

	mon := leave.NewDate(2025, time.March, 3)
	sun := leave.NewDate(2025, time.March, 9)

	assert.Equal(t, 5, leave.CountWorkingDays(mon, sun, cal, "US"))
}

func TestCountWorkingDays_OtherCountryHolidayIgnored(t *testing.T) {
	cal := &fixedCalendar{holidays: []leave.Holiday{
		{CountryCode: "FR", Date: leave.NewDate(2025, time.July, 14), Name: "Bastille Day"},
	}}

	d := leave.NewDate(2025, time.July, 14) // a Monday

	assert.Equal(t, 1, leave.CountWorkingDays(d, d, cal, "US"))
	assert.Equal(t, 0, leave.CountWorkingDays(d, d, cal, "FR"))
}

func TestHoliday_RecurringMatchesEveryYear(t *testing.T) {
	xmas := leave.Holiday{
		CountryCode: "US",
		Date:        leave.NewDate(2020, time.December, 25),
		Name:        "Christmas Day",
		Recurring:   true,
	}

	assert.True(t, xmas.Matches(leave.NewDate(2025, time.December, 25)))
	assert.True(t, xmas.Matches(leave.NewDate(2031, time.December, 25)))
	assert.False(t, xmas.Matches(leave.NewDate(2025, time.December, 24)))
}

func TestHoliday_NonRecurringMatchesExactDate(t *testing.T) {
	oneOff := leave.Holiday{
		CountryCode: "US",
		Date:        leave.NewDate(2025, time.June, 11),
		Name:        "Company Day",
	}

	assert.True(t, oneOff.Matches(leave.NewDate(2025, time.June, 11)))
	assert.False(t, oneOff.Matches(leave.NewDate(2026, time.June, 11)))
}

func TestIsWorkingDay(t *testing.T) {
	assert.True(t, leave.IsWorkingDay(leave.NewDate(2025, time.March, 5), leave.NoHolidays{}, "US"))
	assert.False(t, leave.IsWorkingDay(leave.NewDate(2025, time.March, 8), leave.NoHolidays{}, "US"))
}

// =============================================================================
// DATE ARITHMETIC
// =============================================================================

func TestDate_ParseAndString_RoundTrip(t *testing.T) {
	d, err := leave.ParseDate("2025-03-05")
	assert.NoError(t, err)
	assert.Equal(t, "2025-03-05", d.String())
}

func TestDaysBetween(t *testing.T) {
	a := leave.NewDate(2025, time.March, 1)
	b := leave.NewDate(2025, time.March, 8)

	assert.Equal(t, 7, leave.DaysBetween(a, b))
	assert.Equal(t, -7, leave.DaysBetween(b, a))
	assert.Equal(t, 0, leave.DaysBetween(a, a))
}
