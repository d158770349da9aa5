package renderer

import (
	"bytes"
	"fmt"
	"testing"
	"time"

	"github.com/finleaf/cashflow-forecast/internal/archetype"
	"github.com/finleaf/cashflow-forecast/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

func testMonths() []models.Month {
	return models.Horizon(time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC), 6)
}

// testConfig mirrors the end-to-end scenario: recurring inflows with a
// budget of 3 rows and major inflows with 13.
func testConfig() archetype.Config {
	cfg := archetype.Config{
		Archetype:                "test",
		Horizon:                  6,
		BeginningCashRow:         4,
		BeginningCashSeedFormula: "0",
		Sections: []archetype.Section{
			{
				Key:      "inflows",
				Label:    "Cash Inflows",
				StartRow: 6,
				Categories: []archetype.Category{
					{Key: "recurring", Label: "Recurring Revenue", RowBudget: 3, Type: archetype.CategoryTypeAuto},
					{Key: "major", Label: "Major / Variable Revenue", RowBudget: 13, Type: archetype.CategoryTypeSemiAuto},
				},
				GuardRow:             25,
				TotalRow:             26,
				TotalFormulaTemplate: "SUM({col}{first}:{col}{last})",
			},
			{
				Key:      "outflows",
				Label:    "Cash Outflows",
				StartRow: 28,
				Categories: []archetype.Category{
					{Key: "recurring", Label: "Recurring Expenses", RowBudget: 5, Type: archetype.CategoryTypeAuto},
					{Key: "other", Label: "Other (manual)", RowBudget: 2, Type: archetype.CategoryTypeManual},
				},
				GuardRow:             38,
				TotalRow:             39,
				TotalFormulaTemplate: "SUM({col}{first}:{col}{last})",
			},
		},
		CashMetrics: []archetype.CashMetric{
			{Key: "net_cash_flow", Row: 41, FormulaTemplate: "{col}26+{col}39"},
			{Key: "ending_cash", Row: 42, FormulaTemplate: "{col}4+{col}41"},
		},
	}
	return cfg
}

func bucketed(vendor string, representative int64, amounts map[models.Month]int64) models.BucketedValue {
	return models.BucketedValue{
		Category:         models.CategoryInflow,
		GroupKey:         vendor + "|4000-4999",
		VendorNormalized: vendor,
		Pattern:          models.PatternRecurring,
		Representative:   representative,
		Amounts:          amounts,
	}
}

func spread(amount int64, months []models.Month) map[models.Month]int64 {
	out := make(map[models.Month]int64, len(months))
	for _, m := range months {
		out[m] = amount
	}
	return out
}

func TestRenderEndToEndScenario(t *testing.T) {
	r := New(zap.NewNop())
	months := testMonths()
	cfg := testConfig()
	require.NoError(t, cfg.Validate())

	data := map[string]map[string][]models.BucketedValue{
		"inflows": {
			"recurring": {
				bucketed("alpha retainer", 200000, spread(200000, months)),
				bucketed("beta retainer", 100000, spread(100000, months)),
			},
			"major": func() []models.BucketedValue {
				var vs []models.BucketedValue
				for i := 0; i < 7; i++ {
					vendor := fmt.Sprintf("grantor %c", 'a'+i)
					vs = append(vs, bucketed(vendor, int64(700000-i*10000), map[models.Month]int64{months[i%len(months)]: int64(700000 - i*10000)}))
				}
				return vs
			}(),
		},
	}

	out, stats, err := r.Render(cfg, data, months)
	require.NoError(t, err)
	require.NotEmpty(t, out)
	assert.Empty(t, stats.OverflowByKey)

	f, err := excelize.OpenReader(bytes.NewReader(out))
	require.NoError(t, err)
	defer f.Close()

	// Recurring category: label at row 7, 2 data rows, 1 blank pad.
	label, _ := f.GetCellValue(PrimarySheet, "A7")
	assert.Equal(t, "Recurring Revenue", label)
	v8, _ := f.GetCellValue(PrimarySheet, "A8")
	assert.Equal(t, "alpha retainer", v8)
	v9, _ := f.GetCellValue(PrimarySheet, "A9")
	assert.Equal(t, "beta retainer", v9)
	v10, _ := f.GetCellValue(PrimarySheet, "A10")
	assert.Empty(t, v10, "underflow row must stay blank")

	// Major category: label at row 11, 7 data rows, 6 blanks through 24.
	label11, _ := f.GetCellValue(PrimarySheet, "A11")
	assert.Equal(t, "Major / Variable Revenue", label11)
	v12, _ := f.GetCellValue(PrimarySheet, "A12")
	assert.Equal(t, "grantor a", v12) // largest representative first
	v18, _ := f.GetCellValue(PrimarySheet, "A18")
	assert.Equal(t, "grantor g", v18)
	v19, _ := f.GetCellValue(PrimarySheet, "A19")
	assert.Empty(t, v19)

	// Guard marker and full fixed-range total regardless of fill level.
	guard, _ := f.GetCellValue(PrimarySheet, "A25")
	assert.Contains(t, guard, "do not insert")
	formula, err := f.GetCellFormula(PrimarySheet, "B26")
	require.NoError(t, err)
	assert.Equal(t, "SUM(B6:B24)", formula)

	// Amounts land in dollars in the month columns.
	b8, _ := f.GetCellValue(PrimarySheet, "B8")
	assert.Equal(t, "2000", b8)
}

func TestRenderOverflowTruncatesDeterministically(t *testing.T) {
	r := New(zap.NewNop())
	months := testMonths()
	cfg := testConfig()

	var groups []models.BucketedValue
	for i := 0; i < 5; i++ {
		vendor := fmt.Sprintf("vendor %c", 'e'-i) // e, d, c, b, a
		groups = append(groups, bucketed(vendor, int64((i+1)*100000), spread(int64((i+1)*100000), months)))
	}
	data := map[string]map[string][]models.BucketedValue{
		"inflows": {"recurring": groups},
	}

	out, stats, err := r.Render(cfg, data, months)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.OverflowByKey["inflows/recurring"])

	f, err := excelize.OpenReader(bytes.NewReader(out))
	require.NoError(t, err)
	defer f.Close()

	// Highest representative amounts first: vendor a (500k), b (400k),
	// c (300k); d and e are truncated.
	v8, _ := f.GetCellValue(PrimarySheet, "A8")
	assert.Equal(t, "vendor a", v8)
	v9, _ := f.GetCellValue(PrimarySheet, "A9")
	assert.Equal(t, "vendor b", v9)
	v10, _ := f.GetCellValue(PrimarySheet, "A10")
	assert.Equal(t, "vendor c", v10)

	// The total formula still spans the fixed range, so the truncated
	// amounts would be lost from itemization only, never from the total.
	formula, _ := f.GetCellFormula(PrimarySheet, "B26")
	assert.Equal(t, "SUM(B6:B24)", formula)
}

func TestRenderTieBreakByVendor(t *testing.T) {
	groups := []models.BucketedValue{
		{VendorNormalized: "zeta", Representative: 100000},
		{VendorNormalized: "alpha", Representative: 100000},
		{VendorNormalized: "midway", Representative: 200000},
	}
	ordered := orderGroups(groups)
	assert.Equal(t, "midway", ordered[0].VendorNormalized)
	assert.Equal(t, "alpha", ordered[1].VendorNormalized)
	assert.Equal(t, "zeta", ordered[2].VendorNormalized)
}

func TestRenderManualCategoryGetsNoValues(t *testing.T) {
	r := New(zap.NewNop())
	months := testMonths()
	cfg := testConfig()

	data := map[string]map[string][]models.BucketedValue{
		"outflows": {
			"other": {bucketed("should not render", -100000, spread(-100000, months))},
		},
	}

	out, _, err := r.Render(cfg, data, months)
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(out))
	require.NoError(t, err)
	defer f.Close()

	// Manual category label at row 35 (after recurring's 1+5 rows), its
	// two budget rows stay blank.
	label, _ := f.GetCellValue(PrimarySheet, "A35")
	assert.Equal(t, "Other (manual)", label)
	for _, cell := range []string{"A36", "A37", "B36", "B37"} {
		v, _ := f.GetCellValue(PrimarySheet, cell)
		assert.Empty(t, v, "cell %s", cell)
	}
}

func TestRenderFormulaRowsNeverHoldLiterals(t *testing.T) {
	r := New(zap.NewNop())
	months := testMonths()
	cfg := testConfig()

	data := map[string]map[string][]models.BucketedValue{
		"inflows": {"recurring": {bucketed("acme", 100000, spread(100000, months))}},
	}
	out, _, err := r.Render(cfg, data, months)
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(out))
	require.NoError(t, err)
	defer f.Close()

	for col := 0; col < len(months); col++ {
		colName, _ := excelize.ColumnNumberToName(2 + col)
		for _, row := range []int{4, 26, 39, 41, 42} {
			cell := fmt.Sprintf("%s%d", colName, row)
			formula, err := f.GetCellFormula(PrimarySheet, cell)
			require.NoError(t, err)
			assert.NotEmpty(t, formula, "cell %s must hold a formula, not a literal", cell)
		}
	}
}

func TestRenderSetValueRefusesFormulaOwnedRow(t *testing.T) {
	r := New(zap.NewNop())
	f := excelize.NewFile()
	defer f.Close()

	owned := map[int]bool{26: true}
	err := r.setValue(f, "Sheet1", 26, 2, 100000, owned)
	require.Error(t, err)

	var violation *FormulaRegionViolation
	require.ErrorAs(t, err, &violation)
	assert.Equal(t, 26, violation.Row)
	assert.Equal(t, "B26", violation.Cell)
}

func TestRenderIdempotent(t *testing.T) {
	r := New(zap.NewNop())
	months := testMonths()
	cfg := testConfig()
	data := map[string]map[string][]models.BucketedValue{
		"inflows": {"recurring": {bucketed("acme", 100000, spread(100000, months))}},
	}

	first, _, err := r.Render(cfg, data, months)
	require.NoError(t, err)
	second, _, err := r.Render(cfg, data, months)
	require.NoError(t, err)
	assert.True(t, bytes.Equal(first, second), "identical inputs must produce identical workbooks")
}

func TestRenderHiddenReferenceSheet(t *testing.T) {
	r := New(zap.NewNop())
	months := testMonths()
	cfg := testConfig()
	data := map[string]map[string][]models.BucketedValue{
		"inflows": {"recurring": {bucketed("acme", 100000, spread(100000, months))}},
	}

	out, _, err := r.Render(cfg, data, months)
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(out))
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{PrimarySheet, ReferenceSheet}, f.GetSheetList())
	visible, err := f.GetSheetVisible(ReferenceSheet)
	require.NoError(t, err)
	assert.False(t, visible)

	// Structural copy: same cells on both sheets.
	for _, cell := range []string{"A7", "A8", "B8", "A25"} {
		primary, _ := f.GetCellValue(PrimarySheet, cell)
		ref, _ := f.GetCellValue(ReferenceSheet, cell)
		assert.Equal(t, primary, ref, "cell %s", cell)
	}
}

func TestRenderHorizonMismatch(t *testing.T) {
	r := New(zap.NewNop())
	cfg := testConfig()
	_, _, err := r.Render(cfg, nil, models.Horizon(time.Now(), 3))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "horizon mismatch")
}
