package models

// RenderReport accompanies every rendered workbook. It carries the
// conditions that are data, not errors: unclassified transactions awaiting
// manual review, per-category detail truncation, and values clamped to the
// horizon boundary.
type RenderReport struct {
	RenderID         string         `json:"render_id"`
	ClientID         string         `json:"client_id"`
	TransactionCount int            `json:"transaction_count"`
	Unclassified     []string       `json:"unclassified"`      // transaction IDs for manual review
	OverflowByKey    map[string]int `json:"overflow_by_key"`   // "section/category" -> dropped detail rows
	OutOfHorizonKeys []string       `json:"out_of_horizon"`    // group keys clamped to a horizon boundary
	SemiAutoKeys     []string       `json:"semi_auto_keys"`    // groups placed in semi-auto categories
	ClassifiedByCat  map[string]int `json:"classified_by_category"`
}
