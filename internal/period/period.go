// Package period maps transaction dates to accounting periods. A period is
// an inclusive first-day/last-day month range; spreading a lump-sum payment
// over the months it actually covers is an operator decision, so every
// helper here is a pure calendar computation.
package period

import "time"

const isoDate = "2006-01-02"

// Range is an inclusive accounting-period bound pair.
type Range struct {
	From time.Time
	To   time.Time
}

// FromISO returns the lower bound as an ISO date, empty for a zero range.
func (r Range) FromISO() string {
	if r.From.IsZero() {
		return ""
	}
	return r.From.Format(isoDate)
}

// ToISO returns the upper bound as an ISO date, empty for a zero range.
func (r Range) ToISO() string {
	if r.To.IsZero() {
		return ""
	}
	return r.To.Format(isoDate)
}

// ForMonth returns the calendar month of t: its first through last day.
func ForMonth(t time.Time) Range {
	from := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
	return Range{From: from, To: from.AddDate(0, 1, -1)}
}

// PreviousMonth returns the month immediately before t's month.
func PreviousMonth(t time.Time) Range {
	return ForMonth(time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, -1, 0))
}

// PreviousQuarter returns the three months immediately preceding t's month.
func PreviousQuarter(t time.Time) Range {
	first := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
	return Range{From: first.AddDate(0, -3, 0), To: first.AddDate(0, 0, -1)}
}

// Forward returns a span of months months starting at t's month.
func Forward(t time.Time, months int) Range {
	if months < 1 {
		months = 1
	}
	from := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
	return Range{From: from, To: from.AddDate(0, months, -1)}
}

// Explicit returns the range spanning the given month pair, inclusive.
func Explicit(fromYear int, fromMonth time.Month, toYear int, toMonth time.Month) Range {
	from := time.Date(fromYear, fromMonth, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(toYear, toMonth, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 1, -1)
	return Range{From: from, To: to}
}

// Default returns the month range of an ISO transaction date. The second
// return is false when the date does not parse (unparsable source dates
// pass through normalization verbatim).
func Default(dateISO string) (Range, bool) {
	t, err := time.Parse(isoDate, dateISO)
	if err != nil {
		return Range{}, false
	}
	return ForMonth(t), true
}
