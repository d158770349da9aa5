package models

import "time"

// Pay schedule frequencies. Payroll bucketing always follows the client's
// declared schedule, never detection.
const (
	PayFrequencyMonthly     = "monthly"
	PayFrequencySemimonthly = "semimonthly"
	PayFrequencyBiweekly    = "biweekly"
)

// PaySchedule is the client-declared payroll calendar.
type PaySchedule struct {
	Frequency string `json:"frequency" yaml:"frequency"`
	// PayDays are days of month for monthly/semimonthly schedules
	// (0 means last day of month). Ignored for biweekly.
	PayDays []int `json:"pay_days" yaml:"pay_days"`
	// Anchor is a known past pay date for biweekly schedules.
	Anchor time.Time `json:"anchor" yaml:"anchor"`
}

// RunsInMonth returns the number of pay runs the schedule produces in the
// given month. An undeclared schedule produces none: payroll timing is
// never invented.
func (s PaySchedule) RunsInMonth(m Month) int {
	switch s.Frequency {
	case PayFrequencyMonthly:
		return 1
	case PayFrequencySemimonthly:
		if len(s.PayDays) > 0 {
			return len(s.PayDays)
		}
		return 2
	case PayFrequencyBiweekly:
		if s.Anchor.IsZero() {
			return 2
		}
		first := time.Date(m.Year, m.Month, 1, 0, 0, 0, 0, time.UTC)
		last := first.AddDate(0, 1, -1)
		runs := 0
		for d := s.Anchor; !d.After(last); d = d.AddDate(0, 0, 14) {
			if !d.Before(first) {
				runs++
			}
		}
		return runs
	default:
		return 0
	}
}
