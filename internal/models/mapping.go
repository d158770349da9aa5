package models

import "time"

// LearnedMapping is a per-client vendor-to-GL-account override recorded from
// an accountant correction. The classification pipeline reads these as an
// immutable snapshot; only the correction workflow writes them.
type LearnedMapping struct {
	ClientID          string    `json:"client_id"`
	VendorNormalized  string    `json:"vendor_normalized"`
	GLAccountOverride string    `json:"gl_account_override"`
	Confidence        float64   `json:"confidence"`
	LastCorrectedAt   time.Time `json:"last_corrected_at"`
}

// Correction is one append-only audit-log entry behind a LearnedMapping.
type Correction struct {
	ID               string    `json:"id"`
	ClientID         string    `json:"client_id"`
	VendorNormalized string    `json:"vendor_normalized"`
	GLAccount        string    `json:"gl_account"`
	CorrectedAt      time.Time `json:"corrected_at"`
}
