// Package pipeline wires the five pure stages into the render operation:
// normalize -> classify -> detect recurrence -> bucket -> render. The whole
// pipeline is a pure function of its inputs; transaction fetch and
// correction persistence happen strictly outside it, so rendering many
// clients in parallel needs no locking.
package pipeline

import (
	"fmt"
	"sort"
	"time"

	"github.com/finleaf/cashflow-forecast/internal/archetype"
	"github.com/finleaf/cashflow-forecast/internal/bucketer"
	"github.com/finleaf/cashflow-forecast/internal/classifier"
	"github.com/finleaf/cashflow-forecast/internal/models"
	"github.com/finleaf/cashflow-forecast/internal/normalizer"
	"github.com/finleaf/cashflow-forecast/internal/recurrence"
	"github.com/finleaf/cashflow-forecast/internal/renderer"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Section and category keys the pipeline feeds the renderer. Archetype
// documents address their sections and categories with the same keys.
const (
	SectionInflows  = "inflows"
	SectionOutflows = "outflows"
	SectionPayroll  = "payroll"

	CategoryKeyRecurring = "recurring"
	CategoryKeyMajor     = "major"
	CategoryKeyPayroll   = "payroll"
)

// Request carries everything one render needs. All fields are read-only
// snapshots; the pipeline never mutates them.
type Request struct {
	ClientID     string
	Transactions []models.Transaction
	Chart        models.ChartOfAccounts
	Mappings     map[string]models.LearnedMapping
	PolicyRules  []models.PolicyRule
	PaySchedule  models.PaySchedule
	Archetype    archetype.Config

	// AsOf anchors the detection window and the horizon start. Zero
	// means the latest transaction date.
	AsOf time.Time
	// DetectionWindow overrides the trailing recurrence window.
	DetectionWindow time.Duration
	// MagnitudeThreshold overrides the learned recurring/major split.
	MagnitudeThreshold int64
	// PayPolicyOffsetDays shifts outflow settlement ahead of due dates.
	PayPolicyOffsetDays int
}

// Forecaster runs the full pipeline for one client per call.
type Forecaster struct {
	classifier *classifier.GLClassifier
	detector   *recurrence.Detector
	bucketer   *bucketer.Bucketer
	renderer   *renderer.Renderer
	logger     *zap.Logger
}

// New creates a Forecaster with the standard stage implementations.
func New(logger *zap.Logger) *Forecaster {
	return &Forecaster{
		classifier: classifier.New(logger),
		detector:   recurrence.New(logger),
		bucketer:   bucketer.New(logger),
		renderer:   renderer.New(logger),
		logger:     logger,
	}
}

// Render produces the workbook bytes and the render report for one client.
func (f *Forecaster) Render(req Request) ([]byte, models.RenderReport, error) {
	report := models.RenderReport{
		RenderID:         uuid.NewString(),
		ClientID:         req.ClientID,
		TransactionCount: len(req.Transactions),
		OverflowByKey:    map[string]int{},
		ClassifiedByCat:  map[string]int{},
	}

	if err := req.Archetype.Validate(); err != nil {
		return nil, report, fmt.Errorf("invalid archetype config: %w", err)
	}

	txs := normalizeAll(req.Transactions)
	asOf := req.AsOf
	if asOf.IsZero() {
		for _, tx := range txs {
			if tx.Date.After(asOf) {
				asOf = tx.Date
			}
		}
	}
	if asOf.IsZero() {
		asOf = time.Now().UTC()
	}

	chart := req.Chart
	if len(chart.Bands) == 0 {
		chart = models.DefaultChart()
	}

	results := f.classifier.ClassifyAll(txs, classifier.Inputs{
		Chart:       chart,
		PolicyRules: req.PolicyRules,
		Mappings:    req.Mappings,
		AsOf:        asOf,
	})
	for _, r := range results {
		report.ClassifiedByCat[r.Category]++
		if r.Category == models.CategoryUnclassified {
			report.Unclassified = append(report.Unclassified, r.TransactionID)
		}
	}

	groups := f.detector.Detect(txs, results, recurrence.Options{
		Window:             req.DetectionWindow,
		AsOf:               asOf,
		MagnitudeThreshold: req.MagnitudeThreshold,
	})

	months := models.Horizon(asOf, req.Archetype.Horizon)
	values := f.bucketer.Bucket(groups, bucketer.Options{
		Horizon:             months,
		DSO:                 buildDSOBook(txs),
		PayPolicyOffsetDays: req.PayPolicyOffsetDays,
		PaySchedule:         req.PaySchedule,
	})
	for _, v := range values {
		if v.OutOfHorizon {
			report.OutOfHorizonKeys = append(report.OutOfHorizonKeys, v.GroupKey)
		}
	}
	sort.Strings(report.OutOfHorizonKeys)

	workbook, stats, err := f.renderer.Render(req.Archetype, composeSections(values), months)
	if err != nil {
		return nil, report, err
	}
	report.OverflowByKey = stats.OverflowByKey
	report.SemiAutoKeys = stats.SemiAutoKeys

	f.logger.Info("forecast rendered",
		zap.String("client_id", req.ClientID),
		zap.String("render_id", report.RenderID),
		zap.String("archetype", req.Archetype.Archetype),
		zap.Int("transactions", len(txs)),
		zap.Int("groups", len(groups)),
		zap.Int("unclassified", len(report.Unclassified)))
	return workbook, report, nil
}

// normalizeAll fills VendorNormalized on a fresh copy of the input, leaving
// the caller's slice untouched.
func normalizeAll(txs []models.Transaction) []models.Transaction {
	out := make([]models.Transaction, len(txs))
	copy(out, txs)
	for i := range out {
		if out[i].VendorNormalized == "" {
			out[i].VendorNormalized = normalizer.Normalize(out[i].VendorRaw)
		}
	}
	return out
}

// buildDSOBook pairs each payment with the invoice its SourceRef points at
// and records the lag, giving the bucketer learned DSO per counterparty.
func buildDSOBook(txs []models.Transaction) *bucketer.DSOBook {
	invoices := make(map[string]models.Transaction)
	for _, tx := range txs {
		if tx.Type == models.TxTypeInvoice {
			invoices[tx.ID] = tx
		}
	}

	// Pair in date order so the book's recency cap keeps the latest lags.
	payments := make([]models.Transaction, 0)
	for _, tx := range txs {
		if tx.Type == models.TxTypePayment && tx.SourceRef != "" {
			payments = append(payments, tx)
		}
	}
	sort.Slice(payments, func(i, j int) bool {
		if !payments[i].Date.Equal(payments[j].Date) {
			return payments[i].Date.Before(payments[j].Date)
		}
		return payments[i].ID < payments[j].ID
	})

	book := bucketer.NewDSOBook()
	for _, payment := range payments {
		invoice, ok := invoices[payment.SourceRef]
		if !ok {
			continue
		}
		book.Observe(invoice.VendorNormalized, invoice.Date, payment.Date)
	}
	return book
}

// composeSections arranges bucketed values into the renderer's
// section/category map: cash-flow category picks the section, recurrence
// pattern picks the category block.
func composeSections(values []models.BucketedValue) map[string]map[string][]models.BucketedValue {
	data := map[string]map[string][]models.BucketedValue{
		SectionInflows:  {},
		SectionOutflows: {},
		SectionPayroll:  {},
	}
	for _, v := range values {
		var section, category string
		switch v.Category {
		case models.CategoryInflow:
			section = SectionInflows
		case models.CategoryOutflow:
			section = SectionOutflows
		case models.CategoryPayroll:
			section, category = SectionPayroll, CategoryKeyPayroll
		default:
			continue
		}
		if category == "" {
			if v.Pattern == models.PatternRecurring {
				category = CategoryKeyRecurring
			} else {
				category = CategoryKeyMajor
			}
		}
		data[section][category] = append(data[section][category], v)
	}
	return data
}
