/*
calendar.go - Working-day counting against a holiday calendar

PURPOSE:
  Answers "how many working days does this request actually consume?".
  A working day is a calendar day that is neither a weekend nor a listed
  public holiday for the configured country.

CONTRACT:
  CountWorkingDays(start, end, cal, country) iterates the INCLUSIVE range
  and is a pure function: same inputs always produce the same output, so
  results are safely memoizable per (range, holiday-set version).

  start > end is the caller's mistake, not an error condition here: the
  count is 0 and the request validator reports the ordering violation
  separately.

SEE ALSO:
  - validator.go: Uses the count for rule 3 ("no working days in range")
  - store/sqlite: HolidayCalendar implementation backed by the holidays table
*/
package leave

// =============================================================================
// HOLIDAY CALENDAR
// =============================================================================

// Holiday is a public holiday excluded from working-day counts.
type Holiday struct {
	ID          string
	CountryCode string
	Date        Date
	Name        string
	// Recurring holidays match their month/day in every year
	// (e.g., Christmas Day).
	Recurring bool
}

// Matches reports whether the holiday falls on the given date.
func (h Holiday) Matches(d Date) bool {
	if h.Recurring {
		return h.Date.Month() == d.Month() && h.Date.Day() == d.Day()
	}
	return h.Date.Equal(d)
}

// HolidayCalendar provides holiday lookup for a country.
type HolidayCalendar interface {
	// IsHoliday checks if a date is a public holiday for the country.
	IsHoliday(countryCode string, d Date) bool

	// Holidays returns all holidays for a country in a given year,
	// with recurring holidays projected into that year.
	Holidays(countryCode string, year int) []Holiday
}

// NoHolidays is a no-op calendar for when no holiday set is configured.
type NoHolidays struct{}

func (NoHolidays) IsHoliday(string, Date) bool     { return false }
func (NoHolidays) Holidays(string, int) []Holiday  { return nil }

// =============================================================================
// WORKING DAY CALCULATOR
// =============================================================================

// CountWorkingDays counts the working days in [start, end], excluding
// weekends and holidays. Returns 0 when end is before start.
func CountWorkingDays(start, end Date, cal HolidayCalendar, countryCode string) int {
	if end.Before(start) {
		return 0
	}
	if cal == nil {
		cal = NoHolidays{}
	}

	count := 0
	for d := start; d.BeforeOrEqual(end); d = d.AddDays(1) {
		if d.IsWeekend() {
			continue
		}
		if cal.IsHoliday(countryCode, d) {
			continue
		}
		count++
	}
	return count
}

// IsWorkingDay reports whether a single date is a working day.
func IsWorkingDay(d Date, cal HolidayCalendar, countryCode string) bool {
	return CountWorkingDays(d, d, cal, countryCode) == 1
}
