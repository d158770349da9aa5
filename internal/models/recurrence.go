package models

// Recurrence patterns. Recurring groups render into a category's run-rate
// rows; major/variable groups render as one-off lines.
const (
	PatternRecurring     = "recurring"
	PatternMajorVariable = "major_variable"
)

// RecurrenceGroup is a set of same-vendor, same-GL-range transactions
// observed inside the detection window, with the pattern verdict and the
// amount the forecast should carry forward for the group.
type RecurrenceGroup struct {
	GroupKey             string        `json:"group_key"` // vendor_normalized + "|" + gl_range
	VendorNormalized     string        `json:"vendor_normalized"`
	GLRange              string        `json:"gl_range"`
	Category             string        `json:"category"`
	Occurrences          []Transaction `json:"occurrences"` // ordered by date ascending
	Pattern              string        `json:"pattern"`
	RepresentativeAmount int64         `json:"representative_amount"`
	VarianceRatio        float64       `json:"variance_ratio"`
}
