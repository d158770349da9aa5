package models

import "time"

// Transaction is a single ledger transaction as fetched from the client's
// accounting system. Transactions are immutable once fetched; every pipeline
// stage consumes them by value and never mutates them.
type Transaction struct {
	ID               string    `json:"id"`
	Date             time.Time `json:"date"`
	Amount           int64     `json:"amount"` // signed, minor units (cents)
	VendorRaw        string    `json:"vendor_raw"`
	VendorNormalized string    `json:"vendor_normalized"`
	GLAccount        string    `json:"gl_account"`
	Type             string    `json:"type"`
	SourceRef        string    `json:"source_ref"`
}

// Transaction type constants as reported by ledger integrations.
const (
	TxTypeInvoice = "INVOICE"
	TxTypeBill    = "BILL"
	TxTypePayment = "PAYMENT"
	TxTypePayroll = "PAYROLL"
	TxTypeJournal = "JOURNAL"
)
