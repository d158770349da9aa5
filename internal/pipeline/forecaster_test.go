package pipeline

import (
	"bytes"
	"fmt"
	"testing"
	"time"

	"github.com/finleaf/cashflow-forecast/internal/archetype"
	"github.com/finleaf/cashflow-forecast/internal/models"
	"github.com/finleaf/cashflow-forecast/internal/renderer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

var testAsOf = time.Date(2026, 3, 31, 0, 0, 0, 0, time.UTC)

func loadArchetype(t *testing.T, name string) archetype.Config {
	t.Helper()
	cfg, err := archetype.Load(fmt.Sprintf("../../configs/archetypes/%s.yaml", name))
	require.NoError(t, err)
	return cfg
}

// scenarioTransactions builds the end-to-end fixture: two recurring inflow
// groups, seven major inflow groups, a recurring payroll group and one
// unclassifiable transaction.
func scenarioTransactions() []models.Transaction {
	var txs []models.Transaction
	add := func(id, vendor, account string, amount int64, monthsAgo int) {
		txs = append(txs, models.Transaction{
			ID:        id,
			Date:      testAsOf.AddDate(0, -monthsAgo, 0),
			Amount:    amount,
			VendorRaw: vendor,
			GLAccount: account,
		})
	}

	for i := 0; i < 3; i++ {
		add(fmt.Sprintf("alpha-%d", i), "Alpha Retainer LLC", "4010", 100000, 2-i)
		add(fmt.Sprintf("beta-%d", i), "Beta Retainer Inc", "4020", 50000, 2-i)
	}
	for i := 0; i < 7; i++ {
		add(fmt.Sprintf("grant-%d", i), fmt.Sprintf("Grantor %c Foundation", 'A'+i), "4900", int64(1000000+i*50000), i%3)
	}
	for i := 0; i < 3; i++ {
		add(fmt.Sprintf("payroll-%d", i), "Gusto", "6510", -400000, 2-i)
	}
	add("mystery-1", "Unknown Holdings", "9900", -75000, 1)
	return txs
}

func TestRenderEndToEndNonprofit(t *testing.T) {
	f := New(zap.NewNop())
	cfg := loadArchetype(t, "nonprofit")

	workbook, report, err := f.Render(Request{
		ClientID:     "client-1",
		Transactions: scenarioTransactions(),
		PaySchedule: models.PaySchedule{
			Frequency: models.PayFrequencySemimonthly,
			PayDays:   []int{15, 0},
		},
		Archetype: cfg,
		AsOf:      testAsOf,
	})
	require.NoError(t, err)
	require.NotEmpty(t, workbook)

	// Every transaction classified, exactly one unclassified.
	assert.Equal(t, 17, report.TransactionCount)
	assert.Equal(t, []string{"mystery-1"}, report.Unclassified)
	assert.Equal(t, 13, report.ClassifiedByCat[models.CategoryInflow])
	assert.Equal(t, 3, report.ClassifiedByCat[models.CategoryPayroll])
	assert.Empty(t, report.OverflowByKey)

	wb, err := excelize.OpenReader(bytes.NewReader(workbook))
	require.NoError(t, err)
	defer wb.Close()

	// Recurring inflows (budget 3): 2 data rows then 1 blank pad.
	a8, _ := wb.GetCellValue(renderer.PrimarySheet, "A8")
	assert.Equal(t, "alpha retainer", a8)
	a9, _ := wb.GetCellValue(renderer.PrimarySheet, "A9")
	assert.Equal(t, "beta retainer", a9)
	a10, _ := wb.GetCellValue(renderer.PrimarySheet, "A10")
	assert.Empty(t, a10)

	// Major inflows (budget 13): 7 data rows then 6 blanks.
	a12, _ := wb.GetCellValue(renderer.PrimarySheet, "A12")
	assert.NotEmpty(t, a12)
	a18, _ := wb.GetCellValue(renderer.PrimarySheet, "A18")
	assert.NotEmpty(t, a18)
	for row := 19; row <= 24; row++ {
		v, _ := wb.GetCellValue(renderer.PrimarySheet, fmt.Sprintf("A%d", row))
		assert.Empty(t, v, "row %d should be padding", row)
	}

	// Section totals are formulas over the full fixed range.
	formula, err := wb.GetCellFormula(renderer.PrimarySheet, "B26")
	require.NoError(t, err)
	assert.Equal(t, "SUM(B6:B24)", formula)

	// Payroll follows the declared semimonthly schedule: two runs of
	// $4000 in every horizon month, first column included. Row 49 is the
	// category label; detail rows start at 50.
	b50, _ := wb.GetCellValue(renderer.PrimarySheet, "B50")
	assert.Equal(t, "-8000", b50)
}

func TestRenderIdempotentWorkbook(t *testing.T) {
	f := New(zap.NewNop())
	cfg := loadArchetype(t, "nonprofit")
	req := Request{
		ClientID:     "client-1",
		Transactions: scenarioTransactions(),
		Archetype:    cfg,
		AsOf:         testAsOf,
	}

	first, _, err := f.Render(req)
	require.NoError(t, err)
	second, _, err := f.Render(req)
	require.NoError(t, err)
	assert.True(t, bytes.Equal(first, second))
}

func TestRenderConfigAgnosticism(t *testing.T) {
	f := New(zap.NewNop())
	txs := scenarioTransactions()

	_, nonprofitReport, err := f.Render(Request{
		ClientID: "client-1", Transactions: txs,
		Archetype: loadArchetype(t, "nonprofit"), AsOf: testAsOf,
	})
	require.NoError(t, err)

	_, agencyReport, err := f.Render(Request{
		ClientID: "client-1", Transactions: txs,
		Archetype: loadArchetype(t, "agency"), AsOf: testAsOf,
	})
	require.NoError(t, err)

	// Swapping the archetype changes layout, never classification or
	// recurrence results.
	assert.Equal(t, nonprofitReport.ClassifiedByCat, agencyReport.ClassifiedByCat)
	assert.Equal(t, nonprofitReport.Unclassified, agencyReport.Unclassified)
}

func TestRenderRejectsInvalidConfig(t *testing.T) {
	f := New(zap.NewNop())
	cfg := loadArchetype(t, "nonprofit")
	cfg.Sections[0].GuardRow++ // break the row arithmetic

	_, _, err := f.Render(Request{
		ClientID:     "client-1",
		Transactions: scenarioTransactions(),
		Archetype:    cfg,
		AsOf:         testAsOf,
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid archetype config")
}

func TestRenderLearnedMappingChangesCategory(t *testing.T) {
	f := New(zap.NewNop())
	cfg := loadArchetype(t, "nonprofit")

	txs := scenarioTransactions()
	base := Request{ClientID: "client-1", Transactions: txs, Archetype: cfg, AsOf: testAsOf}
	_, before, err := f.Render(base)
	require.NoError(t, err)

	corrected := base
	corrected.Mappings = map[string]models.LearnedMapping{
		"unknown holdings": {
			ClientID:          "client-1",
			VendorNormalized:  "unknown holdings",
			GLAccountOverride: "6200",
			Confidence:        0.9,
			LastCorrectedAt:   testAsOf.AddDate(0, 0, -5),
		},
	}
	_, after, err := f.Render(corrected)
	require.NoError(t, err)

	assert.Contains(t, before.Unclassified, "mystery-1")
	assert.Empty(t, after.Unclassified)
	assert.Equal(t, before.ClassifiedByCat[models.CategoryOutflow]+1,
		after.ClassifiedByCat[models.CategoryOutflow])
}

func TestComposeSections(t *testing.T) {
	values := []models.BucketedValue{
		{Category: models.CategoryInflow, Pattern: models.PatternRecurring, GroupKey: "a"},
		{Category: models.CategoryInflow, Pattern: models.PatternMajorVariable, GroupKey: "b"},
		{Category: models.CategoryOutflow, Pattern: models.PatternRecurring, GroupKey: "c"},
		{Category: models.CategoryPayroll, Pattern: models.PatternRecurring, GroupKey: "d"},
	}
	data := composeSections(values)
	assert.Len(t, data[SectionInflows][CategoryKeyRecurring], 1)
	assert.Len(t, data[SectionInflows][CategoryKeyMajor], 1)
	assert.Len(t, data[SectionOutflows][CategoryKeyRecurring], 1)
	assert.Len(t, data[SectionPayroll][CategoryKeyPayroll], 1)
}

func TestBuildDSOBookPairsPayments(t *testing.T) {
	var txs []models.Transaction
	for i := 0; i < 5; i++ {
		invoiceID := fmt.Sprintf("inv-%d", i)
		issued := testAsOf.AddDate(0, 0, -120+i*10)
		txs = append(txs,
			models.Transaction{
				ID: invoiceID, Type: models.TxTypeInvoice, Date: issued,
				VendorNormalized: "acme", Amount: 100000, GLAccount: "4010",
			},
			models.Transaction{
				ID: fmt.Sprintf("pay-%d", i), Type: models.TxTypePayment,
				Date: issued.AddDate(0, 0, 42), SourceRef: invoiceID,
				VendorNormalized: "acme", Amount: 100000, GLAccount: "4010",
			},
		)
	}

	book := buildDSOBook(txs)
	assert.Equal(t, 5, book.Observations("acme"))
	assert.Equal(t, 42, book.Days("acme"))
}
