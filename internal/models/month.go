package models

import "time"

// Month identifies a single calendar month column in the rendered horizon.
type Month struct {
	Year  int        `json:"year"`
	Month time.Month `json:"month"`
}

// MonthOf returns the Month containing t.
func MonthOf(t time.Time) Month {
	return Month{Year: t.Year(), Month: t.Month()}
}

// Next returns the following calendar month.
func (m Month) Next() Month {
	if m.Month == time.December {
		return Month{Year: m.Year + 1, Month: time.January}
	}
	return Month{Year: m.Year, Month: m.Month + 1}
}

// Before reports whether m precedes other.
func (m Month) Before(other Month) bool {
	if m.Year != other.Year {
		return m.Year < other.Year
	}
	return m.Month < other.Month
}

// After reports whether m follows other.
func (m Month) After(other Month) bool {
	return other.Before(m)
}

// Label renders the month as it appears in the workbook header, e.g.
// "Jan 2026".
func (m Month) Label() string {
	return time.Date(m.Year, m.Month, 1, 0, 0, 0, 0, time.UTC).Format("Jan 2006")
}

// Horizon returns n consecutive months starting at the month containing
// start.
func Horizon(start time.Time, n int) []Month {
	months := make([]Month, 0, n)
	m := MonthOf(start)
	for i := 0; i < n; i++ {
		months = append(months, m)
		m = m.Next()
	}
	return months
}
