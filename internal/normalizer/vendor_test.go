package normalizer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		expected string
	}{
		{
			name:     "case folds and strips punctuation",
			raw:      "ACME Corp.",
			expected: "acme",
		},
		{
			name:     "removes full legal suffix word",
			raw:      "Acme Corporation",
			expected: "acme",
		},
		{
			name:     "collapses whitespace",
			raw:      "  Blue   Ridge\tConsulting, LLC ",
			expected: "blue ridge consulting",
		},
		{
			name:     "strips stacked suffixes",
			raw:      "Northwind Trading Co., Ltd.",
			expected: "northwind trading",
		},
		{
			name:     "keeps digits",
			raw:      "7-Eleven #2214",
			expected: "7 eleven 2214",
		},
		{
			name:     "ampersand becomes separator",
			raw:      "Smith & Jones LLP",
			expected: "smith jones",
		},
		{
			name:     "never strips the whole name",
			raw:      "LLC",
			expected: "llc",
		},
		{
			name:     "empty input yields sentinel",
			raw:      "",
			expected: UnknownVendor,
		},
		{
			name:     "whitespace-only input yields sentinel",
			raw:      "   \t ",
			expected: UnknownVendor,
		},
		{
			name:     "punctuation-only input yields sentinel",
			raw:      "...!!",
			expected: UnknownVendor,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Normalize(tt.raw))
		})
	}
}

func TestNormalizeDeterministic(t *testing.T) {
	raw := "Gulf Coast Staffing, Inc."
	first := Normalize(raw)
	for i := 0; i < 100; i++ {
		assert.Equal(t, first, Normalize(raw))
	}
}
