// Package marketcal holds the small amount of calendar arithmetic the
// analytics need: Actual/365 day counts and the standard monthly options
// expiration schedule for US equity options.
package marketcal

import "time"

// hoursPerYear is the Actual/365 day-count basis.
const hoursPerYear = 24 * 365

// midnightUTC normalizes a timestamp to its calendar date.
func midnightUTC(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DaysToExpiry returns the whole calendar days from asOf to expiry.
// Zero means expiry day, negative means the date is already past.
func DaysToExpiry(asOf, expiry time.Time) int {
	return int(midnightUTC(expiry).Sub(midnightUTC(asOf)).Hours() / 24)
}

// YearFraction returns the Actual/365 year fraction between asOf and
// expiry, measured in whole calendar days.
func YearFraction(asOf, expiry time.Time) float64 {
	return midnightUTC(expiry).Sub(midnightUTC(asOf)).Hours() / hoursPerYear
}

// thirdFriday returns the third Friday of the given month.
func thirdFriday(year int, month time.Month) time.Time {
	first := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	firstFriday := first
	for firstFriday.Weekday() != time.Friday {
		firstFriday = firstFriday.AddDate(0, 0, 1)
	}
	return firstFriday.AddDate(0, 0, 14)
}

// NextMonthlyExpiration returns the next standard monthly options
// expiration (third Friday) strictly after asOf. If asOf falls on the
// third Friday the following month's expiration is returned, matching how
// brokers roll the front month on expiration day.
func NextMonthlyExpiration(asOf time.Time) time.Time {
	day := midnightUTC(asOf)
	exp := thirdFriday(day.Year(), day.Month())
	if !exp.After(day) {
		next := day.AddDate(0, 1, -day.Day()+1) // first of next month
		exp = thirdFriday(next.Year(), next.Month())
	}
	return exp
}
