package models

// BucketedValue is one row-candidate for the rendered forecast: a recurrence
// group (or standalone transaction) with its per-month amounts across the
// horizon.
type BucketedValue struct {
	Category         string          `json:"category"`
	GroupKey         string          `json:"group_key"`
	VendorNormalized string          `json:"vendor_normalized"`
	Pattern          string          `json:"pattern"`
	Representative   int64           `json:"representative_amount"`
	Amounts          map[Month]int64 `json:"-"` // target month column -> amount, minor units
	OutOfHorizon     bool            `json:"out_of_horizon"`
}
