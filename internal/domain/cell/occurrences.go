package cell

import "time"

// DateFormat is the canonical YYYY-MM-DD format for meeting dates.
const DateFormat = "2006-01-02"

// ExpectedDates returns the calendar dates within the given month on which a
// cell with the given weekday, frequency and creation date is expected to
// meet, in ascending order.
//
// Dates before the creation day are never expected. For biweekly cells the
// week parity is anchored at the creation date: a candidate is included only
// when a whole-even number of weeks has elapsed since creation. Monthly cells
// meet on the first matching weekday of the month only; richer monthly rules
// ("third Wednesday") are deliberately not modelled.
//
// PRE: weekday in 0..6, frequency is a known value
// POST: Returns ascending dates at midnight UTC; an empty result is valid
func ExpectedDates(weekday int, frequency string, createdAt time.Time, year int, month time.Month) []time.Time {
	created := time.Date(createdAt.Year(), createdAt.Month(), createdAt.Day(), 0, 0, 0, 0, time.UTC)

	var dates []time.Time
	day := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	for day.Month() == month {
		if int(day.Weekday()) == weekday && !day.Before(created) {
			switch frequency {
			case FrequencyBiweekly:
				weeks := int(day.Sub(created).Hours()/24) / 7
				if weeks%2 == 0 {
					dates = append(dates, day)
				}
			case FrequencyMonthly:
				dates = append(dates, day)
				return dates // first matching weekday only
			default:
				dates = append(dates, day)
			}
		}
		day = day.AddDate(0, 0, 1)
	}
	return dates
}

// ExpectedDates returns the cell's expected meeting dates for the month.
// POST: delegates to the package-level generator with the cell's parameters
func (c *Cell) ExpectedDates(year int, month time.Month) []time.Time {
	return ExpectedDates(c.Weekday, c.Frequency, c.CreatedAt, year, month)
}

// IsExpectedDate returns true if the given date is one of the cell's expected
// meeting dates for the date's own month.
// PRE: date is a calendar date
// POST: no fields are mutated
func (c *Cell) IsExpectedDate(date time.Time) bool {
	for _, d := range c.ExpectedDates(date.Year(), date.Month()) {
		if d.Year() == date.Year() && d.Month() == date.Month() && d.Day() == date.Day() {
			return true
		}
	}
	return false
}
