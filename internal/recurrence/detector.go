// Package recurrence scans classified transaction history for repetition
// and magnitude patterns. Groups keyed by (vendor_normalized, gl_range) are
// split into recurring run-rate items and major/variable one-offs, with a
// representative amount each that the forecast carries forward.
package recurrence

import (
	"sort"
	"time"

	"github.com/finleaf/cashflow-forecast/internal/models"
	"go.uber.org/zap"
)

// Options tunes detection. Zero values fall back to the defaults below.
type Options struct {
	// Window is the trailing detection window ending at AsOf.
	Window time.Duration
	// AsOf anchors the window; zero means the latest transaction date.
	AsOf time.Time
	// MagnitudeThreshold (minor units, absolute) splits recurring-sized
	// groups from major ones. Zero means learn it from the median of
	// recurring groups.
	MagnitudeThreshold int64
}

// Default detection parameters.
const (
	DefaultWindow = 90 * 24 * time.Hour

	// varianceBand is the symmetric tolerance around the group mean: a
	// group is recurring only when (max-min) <= varianceBand * mean.
	varianceBand = 0.10

	// minRecurringCount is the occurrence floor for the variance rule.
	minRecurringCount = 3
)

// Detector groups transactions and assigns recurrence patterns.
type Detector struct {
	logger *zap.Logger
}

// New creates a Detector.
func New(logger *zap.Logger) *Detector {
	return &Detector{logger: logger}
}

// Detect groups the classified inflow/outflow/payroll transactions by
// (vendor_normalized, gl_range) within the trailing window and computes each
// group's pattern and representative amount. Unclassified transactions are
// ignored here; they are surfaced separately for manual review.
func (d *Detector) Detect(txs []models.Transaction, results []models.ClassificationResult, opts Options) []models.RecurrenceGroup {
	window := opts.Window
	if window <= 0 {
		window = DefaultWindow
	}
	asOf := opts.AsOf
	if asOf.IsZero() {
		for _, tx := range txs {
			if tx.Date.After(asOf) {
				asOf = tx.Date
			}
		}
	}
	cutoff := asOf.Add(-window)

	byID := make(map[string]models.ClassificationResult, len(results))
	for _, r := range results {
		byID[r.TransactionID] = r
	}

	grouped := make(map[string]*models.RecurrenceGroup)
	for _, tx := range txs {
		r, ok := byID[tx.ID]
		if !ok || r.Category == models.CategoryUnclassified {
			continue
		}
		if tx.Date.Before(cutoff) || tx.Date.After(asOf) {
			continue
		}
		key := tx.VendorNormalized + "|" + r.GLRangeMatched
		g, ok := grouped[key]
		if !ok {
			g = &models.RecurrenceGroup{
				GroupKey:         key,
				VendorNormalized: tx.VendorNormalized,
				GLRange:          r.GLRangeMatched,
				Category:         r.Category,
			}
			grouped[key] = g
		}
		g.Occurrences = append(g.Occurrences, tx)
	}

	groups := make([]models.RecurrenceGroup, 0, len(grouped))
	for _, g := range grouped {
		sort.Slice(g.Occurrences, func(i, j int) bool {
			if !g.Occurrences[i].Date.Equal(g.Occurrences[j].Date) {
				return g.Occurrences[i].Date.Before(g.Occurrences[j].Date)
			}
			return g.Occurrences[i].ID < g.Occurrences[j].ID
		})
		groups = append(groups, *g)
	}
	// deterministic output order
	sort.Slice(groups, func(i, j int) bool { return groups[i].GroupKey < groups[j].GroupKey })

	threshold := opts.MagnitudeThreshold
	if threshold <= 0 {
		threshold = learnThreshold(groups)
	}

	for i := range groups {
		classifyGroup(&groups[i], threshold)
	}

	d.logger.Debug("recurrence detection complete",
		zap.Int("groups", len(groups)),
		zap.Int64("magnitude_threshold", threshold),
		zap.Time("window_start", cutoff),
		zap.Time("as_of", asOf))
	return groups
}

// classifyGroup applies the pattern rules to a single group.
//
// A group is recurring when it has at least minRecurringCount occurrences
// whose spread stays inside the variance band around the mean. Otherwise the
// magnitude threshold decides: at or above threshold the group is
// major/variable; below threshold it is recurring only if it repeated at
// least twice inside the window. A single occurrence is never recurring.
func classifyGroup(g *models.RecurrenceGroup, threshold int64) {
	min, max, mean := amountStats(g.Occurrences)
	if mean != 0 {
		g.VarianceRatio = float64(max-min) / float64(mean)
	}

	withinBand := mean != 0 && float64(max-min) <= varianceBand*float64(mean)
	switch {
	case len(g.Occurrences) >= minRecurringCount && withinBand:
		g.Pattern = models.PatternRecurring
	case max >= threshold:
		g.Pattern = models.PatternMajorVariable
	case len(g.Occurrences) >= 2:
		g.Pattern = models.PatternRecurring
	default:
		g.Pattern = models.PatternMajorVariable
	}

	// Recurring groups carry their typical run-rate; major/variable groups
	// must not under-represent an irregular large amount.
	if g.Pattern == models.PatternRecurring {
		g.RepresentativeAmount = signedAmount(g.Occurrences, mean)
	} else {
		g.RepresentativeAmount = largestOccurrence(g.Occurrences)
	}
}

// amountStats returns min, max and mean of the absolute occurrence amounts.
func amountStats(occ []models.Transaction) (min, max, mean int64) {
	if len(occ) == 0 {
		return 0, 0, 0
	}
	var sum int64
	min = abs(occ[0].Amount)
	for _, tx := range occ {
		a := abs(tx.Amount)
		if a < min {
			min = a
		}
		if a > max {
			max = a
		}
		sum += a
	}
	return min, max, sum / int64(len(occ))
}

// signedAmount restores the group's cash direction onto a magnitude.
func signedAmount(occ []models.Transaction, magnitude int64) int64 {
	if len(occ) > 0 && occ[0].Amount < 0 {
		return -magnitude
	}
	return magnitude
}

// largestOccurrence returns the signed amount of the largest-magnitude
// occurrence.
func largestOccurrence(occ []models.Transaction) int64 {
	var best int64
	for _, tx := range occ {
		if abs(tx.Amount) > abs(best) {
			best = tx.Amount
		}
	}
	return best
}

// learnThreshold derives the magnitude split from the median absolute mean
// of groups already satisfying the variance rule. Falls back to the median
// across all groups when no group qualifies, and to 1 when there are no
// groups at all (so any amount counts as major).
func learnThreshold(groups []models.RecurrenceGroup) int64 {
	var means []int64
	for _, g := range groups {
		lo, hi, mean := amountStats(g.Occurrences)
		if len(g.Occurrences) >= minRecurringCount && mean != 0 &&
			float64(hi-lo) <= varianceBand*float64(mean) {
			means = append(means, mean)
		}
	}
	if len(means) == 0 {
		for _, g := range groups {
			_, _, mean := amountStats(g.Occurrences)
			if mean > 0 {
				means = append(means, mean)
			}
		}
	}
	if len(means) == 0 {
		return 1
	}
	sort.Slice(means, func(i, j int) bool { return means[i] < means[j] })
	return means[len(means)/2]
}

func abs(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}
