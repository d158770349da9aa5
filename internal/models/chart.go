package models

import (
	"fmt"
	"strconv"
	"strings"
)

// GLBand is a numeric general-ledger account-number band that universally
// denotes a cash-flow category across business types (e.g. 4000-4999 is
// revenue regardless of industry).
type GLBand struct {
	Start    int    `json:"start" yaml:"start"`
	End      int    `json:"end" yaml:"end"`
	Category string `json:"category" yaml:"category"`
}

// Label renders the band in "start-end" form, used as GLRangeMatched and as
// half of a recurrence group key.
func (b GLBand) Label() string {
	return fmt.Sprintf("%d-%d", b.Start, b.End)
}

// Contains reports whether the account number falls inside the band.
func (b GLBand) Contains(account int) bool {
	return account >= b.Start && account <= b.End
}

// ChartOfAccounts describes the GL-band structure for a client's industry.
// It is a per-render input, never mutated by the pipeline.
type ChartOfAccounts struct {
	Name  string   `json:"name" yaml:"name"`
	Bands []GLBand `json:"bands" yaml:"bands"`
}

// DefaultChart returns the universal band layout used when a client has no
// industry-specific chart configured.
func DefaultChart() ChartOfAccounts {
	return ChartOfAccounts{
		Name: "universal",
		Bands: []GLBand{
			{Start: 4000, End: 4999, Category: CategoryInflow},
			{Start: 5000, End: 5999, Category: CategoryOutflow},
			{Start: 6000, End: 6499, Category: CategoryOutflow},
			{Start: 6500, End: 6599, Category: CategoryPayroll},
			{Start: 6600, End: 7999, Category: CategoryOutflow},
		},
	}
}

// BandFor resolves an account number to its band. The second return is false
// when the account falls outside every configured band, which is a normal
// condition (the transaction classifies as unclassified), not an error.
func (c ChartOfAccounts) BandFor(account int) (GLBand, bool) {
	for _, b := range c.Bands {
		if b.Contains(account) {
			return b, true
		}
	}
	return GLBand{}, false
}

// ParseGLAccount extracts the leading numeric account code from a GL account
// string such as "4010" or "4010 - Program Revenue". Returns false when no
// leading digits exist.
func ParseGLAccount(s string) (int, bool) {
	s = strings.TrimSpace(s)
	end := 0
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == 0 {
		return 0, false
	}
	n, err := strconv.Atoi(s[:end])
	if err != nil {
		return 0, false
	}
	return n, true
}
