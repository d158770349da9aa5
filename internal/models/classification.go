package models

// Cash-flow categories. Every transaction classifies into exactly one.
const (
	CategoryInflow       = "inflow"
	CategoryOutflow      = "outflow"
	CategoryPayroll      = "payroll"
	CategoryUnclassified = "unclassified"
)

// Rule sources, ordered from highest to lowest priority.
const (
	RuleSourcePolicyRule          = "policy_rule"
	RuleSourceVendorNormalization = "vendor_normalization"
	RuleSourceGLDefault           = "gl_default"
)

// ClassificationResult records how a single transaction was assigned to a
// cash-flow category. Confidence and RuleSource always reflect the
// highest-priority rule that matched.
type ClassificationResult struct {
	TransactionID  string  `json:"transaction_id"`
	Category       string  `json:"category"`
	GLRangeMatched string  `json:"gl_range_matched"`
	Confidence     float64 `json:"confidence"`
	RuleSource     string  `json:"rule_source"`
}

// AllCategories returns the closed set of cash-flow categories.
func AllCategories() []string {
	return []string{CategoryInflow, CategoryOutflow, CategoryPayroll, CategoryUnclassified}
}
