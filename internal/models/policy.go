package models

// PolicyRule is a top-ranked suggestion from the external rule engine, keyed
// by vendor and description substring patterns. Rules are supplied per
// render call and evaluated ahead of every other classification source.
type PolicyRule struct {
	RuleID             string   `json:"rule_id"`
	VendorPatterns     []string `json:"vendor_patterns"`
	DescriptionPattern string   `json:"description_pattern"`
	Category           string   `json:"category"`
	GLRange            string   `json:"gl_range"`
	Confidence         float64  `json:"confidence"`
	Priority           int      `json:"priority"` // lower = evaluated first
}
