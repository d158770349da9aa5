// Package bucketer maps each recurrence group onto the horizon's month
// columns. Inflows shift by the counterparty's learned DSO, outflows sit on
// their due date minus any pay-policy offset, and payroll follows the
// client's declared schedule exclusively. Values landing outside the horizon
// clamp to the nearest boundary and are flagged, never dropped.
package bucketer

import (
	"time"

	"github.com/finleaf/cashflow-forecast/internal/models"
	"go.uber.org/zap"
)

// Options configures a bucketing pass.
type Options struct {
	// Horizon is the ordered list of rendered month columns.
	Horizon []models.Month
	// DSO supplies learned payment lags for inflow counterparties. Nil
	// means a fresh book (global prior for everyone).
	DSO *DSOBook
	// PayPolicyOffsetDays shifts outflow targets earlier than the due
	// date (e.g. 3 = pay three days before due). Zero means pay on due.
	PayPolicyOffsetDays int
	// PaySchedule is the client's declared payroll calendar.
	PaySchedule models.PaySchedule
}

// Bucketer projects recurrence groups onto month columns.
type Bucketer struct {
	logger *zap.Logger
}

// New creates a Bucketer.
func New(logger *zap.Logger) *Bucketer {
	return &Bucketer{logger: logger}
}

// Bucket converts every group into one BucketedValue with per-month
// amounts. Recurring groups project their representative amount forward
// month by month; major/variable groups land once, on their projected
// settlement date.
func (b *Bucketer) Bucket(groups []models.RecurrenceGroup, opts Options) []models.BucketedValue {
	if len(opts.Horizon) == 0 {
		return nil
	}
	dso := opts.DSO
	if dso == nil {
		dso = NewDSOBook()
	}

	values := make([]models.BucketedValue, 0, len(groups))
	for _, g := range groups {
		var v models.BucketedValue
		switch {
		case g.Category == models.CategoryPayroll:
			v = b.bucketPayroll(g, opts)
		case g.Pattern == models.PatternRecurring:
			v = b.bucketRecurring(g, opts, dso)
		default:
			v = b.bucketMajor(g, opts, dso)
		}
		values = append(values, v)
	}

	b.logger.Debug("bucketing complete",
		zap.Int("groups", len(groups)),
		zap.Int("months", len(opts.Horizon)))
	return values
}

// bucketRecurring projects the run-rate into every horizon month the
// group's settlement cadence reaches: successive monthly occurrences from
// the last observed one, each shifted to its expected cash date.
func (b *Bucketer) bucketRecurring(g models.RecurrenceGroup, opts Options, dso *DSOBook) models.BucketedValue {
	v := newValue(g)
	last := lastOccurrence(g)
	if last.IsZero() {
		return v
	}
	horizonEnd := opts.Horizon[len(opts.Horizon)-1]

	// Successors keep the observed day of month, clamped to shorter
	// months. Calendar-normalizing date arithmetic would skip February for
	// a 31st-of-month cadence and double the next month instead.
	day := last.Day()
	month := models.MonthOf(last)
	for {
		month = month.Next()
		occurrence := dayInMonth(month, day)
		target := b.settlementDate(g, occurrence, opts, dso)
		m := models.MonthOf(target)
		if m.After(horizonEnd) {
			break
		}
		clamped, out := clampMonth(m, opts.Horizon)
		if out {
			v.OutOfHorizon = true
		}
		v.Amounts[clamped] += g.RepresentativeAmount
	}

	// A settlement still pending from the final observed occurrence also
	// belongs in the forecast.
	pending := b.settlementDate(g, last, opts, dso)
	if m := models.MonthOf(pending); !m.Before(opts.Horizon[0]) && !m.After(horizonEnd) {
		v.Amounts[m] += g.RepresentativeAmount
	}
	return v
}

// bucketMajor places a one-off group on the month its recorded transaction
// is expected to settle.
func (b *Bucketer) bucketMajor(g models.RecurrenceGroup, opts Options, dso *DSOBook) models.BucketedValue {
	v := newValue(g)
	target := b.settlementDate(g, lastOccurrence(g), opts, dso)
	m, out := clampMonth(models.MonthOf(target), opts.Horizon)
	if out {
		v.OutOfHorizon = true
	}
	v.Amounts[m] += g.RepresentativeAmount
	return v
}

// bucketPayroll spreads the per-run amount across the declared schedule.
// Payroll timing is never inferred from transaction history.
func (b *Bucketer) bucketPayroll(g models.RecurrenceGroup, opts Options) models.BucketedValue {
	v := newValue(g)
	for _, m := range opts.Horizon {
		runs := opts.PaySchedule.RunsInMonth(m)
		if runs > 0 {
			v.Amounts[m] += g.RepresentativeAmount * int64(runs)
		}
	}
	return v
}

// settlementDate converts an occurrence date into the date cash actually
// moves: invoice date + learned DSO for inflows, due date minus the pay
// policy offset for outflows.
func (b *Bucketer) settlementDate(g models.RecurrenceGroup, occurrence time.Time, opts Options, dso *DSOBook) time.Time {
	switch g.Category {
	case models.CategoryInflow:
		return occurrence.AddDate(0, 0, dso.Days(g.VendorNormalized))
	case models.CategoryOutflow:
		return occurrence.AddDate(0, 0, -opts.PayPolicyOffsetDays)
	default:
		return occurrence
	}
}

func newValue(g models.RecurrenceGroup) models.BucketedValue {
	return models.BucketedValue{
		Category:         g.Category,
		GroupKey:         g.GroupKey,
		VendorNormalized: g.VendorNormalized,
		Pattern:          g.Pattern,
		Representative:   g.RepresentativeAmount,
		Amounts:          make(map[models.Month]int64),
	}
}

// dayInMonth places a day-of-month inside m, clamping to the month's last
// day when the month is shorter.
func dayInMonth(m models.Month, day int) time.Time {
	first := time.Date(m.Year, m.Month, 1, 0, 0, 0, 0, time.UTC)
	if last := first.AddDate(0, 1, -1).Day(); day > last {
		day = last
	}
	return time.Date(m.Year, m.Month, day, 0, 0, 0, 0, time.UTC)
}

func lastOccurrence(g models.RecurrenceGroup) time.Time {
	if len(g.Occurrences) == 0 {
		return time.Time{}
	}
	return g.Occurrences[len(g.Occurrences)-1].Date
}

// clampMonth snaps an out-of-horizon month to the nearest boundary. The
// second return reports whether clamping happened.
func clampMonth(m models.Month, horizon []models.Month) (models.Month, bool) {
	first, last := horizon[0], horizon[len(horizon)-1]
	if m.Before(first) {
		return first, true
	}
	if m.After(last) {
		return last, true
	}
	return m, false
}
