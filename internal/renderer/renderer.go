// Package renderer is the layout engine: it places classified, bucketed
// values into the archetype's declared rows and columns, producing the
// output workbook. Detail rows obey the rolling-window policy (fixed row
// budget, deterministic truncation, blank padding) and total, guard,
// beginning-cash and cash-metric rows are exclusively formula-owned: the
// renderer never writes a literal total.
package renderer

import (
	"bytes"
	"fmt"
	"sort"
	"strings"

	"github.com/finleaf/cashflow-forecast/internal/archetype"
	"github.com/finleaf/cashflow-forecast/internal/models"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

// Sheet names: the primary sheet plus the hidden structural copy used by
// downstream summary formulas.
const (
	PrimarySheet   = "Forecast"
	ReferenceSheet = "Forecast Ref"
)

// labelColumn holds section headers, category labels and vendor names.
// Month columns start immediately to its right.
const labelColumn = 1

// Stats records the per-render conditions the caller surfaces to the
// client: truncated detail rows and semi-auto placements needing review.
type Stats struct {
	// OverflowByKey counts groups dropped from explicit detail rows,
	// keyed "section/category". Dropped amounts stay inside the section
	// total because the total formula spans the fixed row range.
	OverflowByKey map[string]int
	// SemiAutoKeys lists group keys placed into semi-auto categories.
	SemiAutoKeys []string
}

// Renderer builds workbooks from an archetype layout and bucketed values.
type Renderer struct {
	logger *zap.Logger
}

// New creates a Renderer.
func New(logger *zap.Logger) *Renderer {
	return &Renderer{logger: logger}
}

// Render produces the workbook bytes for one client. data maps
// section key -> category key -> bucketed groups; months is the horizon in
// column order. The render is a pure function of its inputs: identical
// inputs yield identical bytes.
func (r *Renderer) Render(cfg archetype.Config, data map[string]map[string][]models.BucketedValue, months []models.Month) ([]byte, *Stats, error) {
	if len(months) != cfg.Horizon {
		return nil, nil, fmt.Errorf("horizon mismatch: config declares %d months, got %d columns", cfg.Horizon, len(months))
	}

	f := excelize.NewFile()
	defer f.Close()

	stats := &Stats{OverflowByKey: make(map[string]int)}

	// Primary sheet replaces the default one so the workbook has exactly
	// the two sheets this engine owns.
	if err := f.SetSheetName("Sheet1", PrimarySheet); err != nil {
		return nil, nil, fmt.Errorf("failed to name primary sheet: %w", err)
	}
	if err := r.renderSheet(f, PrimarySheet, cfg, data, months, stats); err != nil {
		return nil, nil, err
	}

	// The hidden reference sheet is a structural copy, not a live link:
	// the same render routine runs again so the bytes match cell for
	// cell. Stats are only collected once.
	if _, err := f.NewSheet(ReferenceSheet); err != nil {
		return nil, nil, fmt.Errorf("failed to create reference sheet: %w", err)
	}
	if err := r.renderSheet(f, ReferenceSheet, cfg, data, months, nil); err != nil {
		return nil, nil, err
	}
	if err := f.SetSheetVisible(ReferenceSheet, false); err != nil {
		return nil, nil, fmt.Errorf("failed to hide reference sheet: %w", err)
	}

	// Fixed document properties keep identical inputs byte-identical.
	if err := f.SetDocProps(&excelize.DocProperties{
		Creator:        "cashflow-forecast",
		Created:        "2000-01-01T00:00:00Z",
		Modified:       "2000-01-01T00:00:00Z",
		LastModifiedBy: "cashflow-forecast",
	}); err != nil {
		r.logger.Warn("failed to set document properties", zap.Error(err))
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, nil, fmt.Errorf("failed to serialize workbook: %w", err)
	}

	r.logger.Info("workbook rendered",
		zap.String("archetype", cfg.Archetype),
		zap.Int("months", len(months)),
		zap.Int("bytes", buf.Len()))
	return buf.Bytes(), stats, nil
}

// renderSheet walks the layout once for a single sheet. stats may be nil
// (the reference sheet pass).
func (r *Renderer) renderSheet(f *excelize.File, sheet string, cfg archetype.Config, data map[string]map[string][]models.BucketedValue, months []models.Month, stats *Stats) error {
	owned := cfg.FormulaOwnedRows()
	for _, s := range cfg.Sections {
		owned[s.GuardRow] = true
	}

	// Month header and beginning cash.
	r.setLabel(f, sheet, 1, labelColumn, "")
	for i, m := range months {
		r.setLabel(f, sheet, 1, monthColumn(i), m.Label())
	}
	r.setLabel(f, sheet, cfg.BeginningCashRow, labelColumn, "Beginning Cash")
	if err := r.writeBeginningCash(f, sheet, cfg, months); err != nil {
		return err
	}

	for _, section := range cfg.Sections {
		if err := r.renderSection(f, sheet, section, data[section.Key], months, owned, stats); err != nil {
			return err
		}
	}

	for _, metric := range cfg.CashMetrics {
		r.setLabel(f, sheet, metric.Row, labelColumn, metricLabel(metric.Key))
		for i := range months {
			formula := expandTemplate(metric.FormulaTemplate, columnName(monthColumn(i)), 0, 0)
			if err := r.setFormula(f, sheet, metric.Row, monthColumn(i), formula); err != nil {
				return err
			}
		}
	}
	return nil
}

// renderSection writes one section: header, categories with their
// rolling-window detail rows, the guard marker and the total formula row.
func (r *Renderer) renderSection(f *excelize.File, sheet string, section archetype.Section, byCategory map[string][]models.BucketedValue, months []models.Month, owned map[int]bool, stats *Stats) error {
	cursor := section.StartRow
	r.setLabel(f, sheet, cursor, labelColumn, section.Label)
	cursor++

	for _, cat := range section.Categories {
		r.setLabel(f, sheet, cursor, labelColumn, cat.Label)
		r.tagCategory(f, sheet, cursor, cat)
		cursor++

		groups := orderGroups(byCategory[cat.Key])
		written := 0
		if cat.Type != archetype.CategoryTypeManual {
			for _, g := range groups {
				if written == cat.RowBudget {
					break
				}
				if err := r.writeDetailRow(f, sheet, cursor, g, months, owned); err != nil {
					return err
				}
				if stats != nil && cat.Type == archetype.CategoryTypeSemiAuto {
					stats.SemiAutoKeys = append(stats.SemiAutoKeys, g.GroupKey)
				}
				cursor++
				written++
			}
		}

		// Overflow: remaining groups stay out of explicit rows; their
		// amounts survive only inside the fixed-range total.
		if dropped := len(groups) - written; dropped > 0 && cat.Type != archetype.CategoryTypeManual && stats != nil {
			key := section.Key + "/" + cat.Key
			stats.OverflowByKey[key] = dropped
			r.logger.Warn("detail rows truncated",
				zap.String("category", key),
				zap.Int("row_budget", cat.RowBudget),
				zap.Int("dropped", dropped))
		}

		// Underflow: pad blank rows so row positions stay stable across
		// renders of the same config with different data.
		cursor += cat.RowBudget - written
	}

	if cursor != section.GuardRow {
		return fmt.Errorf("section %q: cursor ended at row %d, guard_row is %d", section.Key, cursor, section.GuardRow)
	}
	r.setLabel(f, sheet, section.GuardRow, labelColumn, "— do not insert rows below —")

	r.setLabel(f, sheet, section.TotalRow, labelColumn, section.Label+" Total")
	for i := range months {
		formula := expandTemplate(section.TotalFormulaTemplate, columnName(monthColumn(i)), section.StartRow, section.GuardRow-1)
		if err := r.setFormula(f, sheet, section.TotalRow, monthColumn(i), formula); err != nil {
			return err
		}
	}
	return nil
}

// writeDetailRow writes one group's vendor label and per-month amounts.
func (r *Renderer) writeDetailRow(f *excelize.File, sheet string, row int, g models.BucketedValue, months []models.Month, owned map[int]bool) error {
	label := g.VendorNormalized
	if g.OutOfHorizon {
		label += " *"
	}
	r.setLabel(f, sheet, row, labelColumn, label)
	for i, m := range months {
		amount, ok := g.Amounts[m]
		if !ok {
			continue
		}
		if err := r.setValue(f, sheet, row, monthColumn(i), amount, owned); err != nil {
			return err
		}
	}
	return nil
}

// writeBeginningCash seeds the first month column and rolls subsequent
// columns forward from the seed formula. The row is formula-owned after
// the seed.
func (r *Renderer) writeBeginningCash(f *excelize.File, sheet string, cfg archetype.Config, months []models.Month) error {
	seed := cfg.BeginningCashSeedFormula
	if seed == "" {
		seed = "0"
	}
	for i := range months {
		col := columnName(monthColumn(i))
		formula := strings.ReplaceAll(seed, "{col}", col)
		if i > 0 {
			formula = strings.ReplaceAll(formula, "{prevcol}", columnName(monthColumn(i-1)))
		} else {
			formula = strings.ReplaceAll(formula, "{prevcol}", col)
		}
		if err := r.setFormula(f, sheet, cfg.BeginningCashRow, monthColumn(i), formula); err != nil {
			return err
		}
	}
	return nil
}

// setValue writes a literal amount, refusing formula-owned rows. A refusal
// is a defect in the caller, so it fails the render rather than silently
// overwriting a formula.
func (r *Renderer) setValue(f *excelize.File, sheet string, row, col int, amount int64, owned map[int]bool) error {
	cell := cellName(row, col)
	if owned[row] {
		return &FormulaRegionViolation{Sheet: sheet, Cell: cell, Row: row}
	}
	if err := f.SetCellValue(sheet, cell, float64(amount)/100); err != nil {
		return fmt.Errorf("failed to set cell %s: %w", cell, err)
	}
	return nil
}

// setFormula writes a formula string. Formula rows never receive literals.
func (r *Renderer) setFormula(f *excelize.File, sheet string, row, col int, formula string) error {
	cell := cellName(row, col)
	if err := f.SetCellFormula(sheet, cell, formula); err != nil {
		return fmt.Errorf("failed to set formula at %s: %w", cell, err)
	}
	return nil
}

// setLabel writes inert text. Label failures degrade the sheet cosmetically
// but never the data, so they log instead of failing the render.
func (r *Renderer) setLabel(f *excelize.File, sheet string, row, col int, label string) {
	if label == "" {
		return
	}
	if err := f.SetCellStr(sheet, cellName(row, col), label); err != nil {
		r.logger.Warn("failed to set label",
			zap.String("sheet", sheet),
			zap.String("cell", cellName(row, col)),
			zap.Error(err))
	}
}

// tagCategory applies the category's configured fill color to its label
// cell. Best effort: styling never fails a render.
func (r *Renderer) tagCategory(f *excelize.File, sheet string, row int, cat archetype.Category) {
	if cat.Color == "" {
		return
	}
	styleID, err := f.NewStyle(&excelize.Style{
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{cat.Color}},
		Font: &excelize.Font{Bold: true},
	})
	if err != nil {
		r.logger.Warn("failed to build category style", zap.String("category", cat.Key), zap.Error(err))
		return
	}
	cell := cellName(row, labelColumn)
	if err := f.SetCellStyle(sheet, cell, cell, styleID); err != nil {
		r.logger.Warn("failed to apply category style", zap.String("cell", cell), zap.Error(err))
	}
}

// orderGroups sorts detail candidates by descending representative
// magnitude, ties broken by vendor ascending, so truncation is
// deterministic.
func orderGroups(groups []models.BucketedValue) []models.BucketedValue {
	ordered := make([]models.BucketedValue, len(groups))
	copy(ordered, groups)
	sort.SliceStable(ordered, func(i, j int) bool {
		ai, aj := abs(ordered[i].Representative), abs(ordered[j].Representative)
		if ai != aj {
			return ai > aj
		}
		return ordered[i].VendorNormalized < ordered[j].VendorNormalized
	})
	return ordered
}

// expandTemplate substitutes the layout placeholders into a formula
// template: {col} is the month column letter, {first}/{last} the section's
// detail row range.
func expandTemplate(template, col string, first, last int) string {
	out := strings.ReplaceAll(template, "{col}", col)
	out = strings.ReplaceAll(out, "{first}", fmt.Sprintf("%d", first))
	out = strings.ReplaceAll(out, "{last}", fmt.Sprintf("%d", last))
	return out
}

func monthColumn(i int) int { return labelColumn + 1 + i }

func columnName(col int) string {
	name, _ := excelize.ColumnNumberToName(col)
	return name
}

func cellName(row, col int) string {
	cell, _ := excelize.CoordinatesToCellName(col, row)
	return cell
}

func metricLabel(key string) string {
	words := strings.Split(key, "_")
	for i, w := range words {
		if w != "" {
			words[i] = strings.ToUpper(w[:1]) + w[1:]
		}
	}
	return strings.Join(words, " ")
}

func abs(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}
