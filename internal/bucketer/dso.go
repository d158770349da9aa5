package bucketer

import "time"

// DSO learning defaults: the global prior applies until a counterparty has
// minObservations paid invoices, and the running average covers at most
// maxObservations of the most recent ones.
const (
	DefaultGlobalPriorDays = 30
	DefaultMaxObservations = 10
	DefaultMinObservations = 5
)

// DSOBook tracks days-sales-outstanding per counterparty: the learned lag
// between invoice date and actual payment date. It is built strictly before
// a render from the client's paid-invoice history and read-only afterwards.
type DSOBook struct {
	priorDays int
	maxObs    int
	minObs    int
	lags      map[string][]int // per counterparty, most recent last
}

// NewDSOBook creates a book with the default prior and observation limits.
func NewDSOBook() *DSOBook {
	return &DSOBook{
		priorDays: DefaultGlobalPriorDays,
		maxObs:    DefaultMaxObservations,
		minObs:    DefaultMinObservations,
		lags:      make(map[string][]int),
	}
}

// Observe records one paid invoice for the counterparty. Observations
// beyond the per-counterparty cap evict the oldest. Payments recorded
// before their invoice date are ignored.
func (b *DSOBook) Observe(counterparty string, invoiceDate, paymentDate time.Time) {
	if paymentDate.Before(invoiceDate) {
		return
	}
	days := int(paymentDate.Sub(invoiceDate).Hours() / 24)
	lags := append(b.lags[counterparty], days)
	if len(lags) > b.maxObs {
		lags = lags[len(lags)-b.maxObs:]
	}
	b.lags[counterparty] = lags
}

// Days returns the learned DSO for the counterparty, or the global prior
// until enough observations exist.
func (b *DSOBook) Days(counterparty string) int {
	lags := b.lags[counterparty]
	if len(lags) < b.minObs {
		return b.priorDays
	}
	sum := 0
	for _, d := range lags {
		sum += d
	}
	return sum / len(lags)
}

// Observations returns how many paid invoices the book holds for the
// counterparty.
func (b *DSOBook) Observations(counterparty string) int {
	return len(b.lags[counterparty])
}
