package models

// ClientSettings is the per-client configuration document supplied alongside
// the transaction snapshot: an industry-specific chart of accounts, the
// declared payroll calendar, and the rule engine's current suggestions. Every
// field is optional; zero values fall back to the universal chart, no payroll
// projection, and no policy rules.
type ClientSettings struct {
	Chart       ChartOfAccounts `json:"chart"`
	PaySchedule PaySchedule     `json:"pay_schedule"`
	PolicyRules []PolicyRule    `json:"policy_rules"`
	// PayPolicyOffsetDays overrides the service-wide bill-pay offset when
	// positive.
	PayPolicyOffsetDays int `json:"pay_policy_offset_days"`
}
