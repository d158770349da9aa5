package archetype

import (
	"fmt"
	"regexp"

	"go.uber.org/multierr"
)

// ValidationResult is the outcome of validate_config as exposed to
// collaborators.
type ValidationResult struct {
	Valid    bool     `json:"valid"`
	Problems []string `json:"problems,omitempty"`
}

// literalRowRef finds literal row numbers in a formula template, e.g. the
// "12" in "{col}12". Placeholder references ({first}, {last}) carry no
// literal row and are always in range.
var literalRowRef = regexp.MustCompile(`\{col\}(\d+)`)

// Validate checks the whole document and returns a single aggregated error
// naming every offending section and category. A config is never partially
// applied: any violation fails the load as a whole.
func (c Config) Validate() error {
	var err error

	if c.Archetype == "" {
		err = multierr.Append(err, fmt.Errorf("archetype name is required"))
	}
	if c.Horizon < 1 {
		err = multierr.Append(err, fmt.Errorf("horizon must be at least 1 month, got %d", c.Horizon))
	}
	if c.BeginningCashRow < 2 {
		err = multierr.Append(err, fmt.Errorf("beginning_cash_row must be at least 2 (row 1 holds the month header), got %d", c.BeginningCashRow))
	}

	prevTotal := c.BeginningCashRow
	seenSections := make(map[string]bool)
	for _, s := range c.Sections {
		err = multierr.Append(err, c.validateSection(s, prevTotal, seenSections))
		prevTotal = s.TotalRow
	}

	seenMetrics := make(map[string]bool)
	for _, m := range c.CashMetrics {
		if m.Key == "" {
			err = multierr.Append(err, fmt.Errorf("cash metric with empty key"))
			continue
		}
		if seenMetrics[m.Key] {
			err = multierr.Append(err, fmt.Errorf("cash metric %q: duplicate key", m.Key))
		}
		seenMetrics[m.Key] = true
		if m.FormulaTemplate == "" {
			err = multierr.Append(err, fmt.Errorf("cash metric %q: formula_template is required", m.Key))
		}
		for _, s := range c.Sections {
			if m.Row >= s.StartRow && m.Row <= s.TotalRow {
				err = multierr.Append(err, fmt.Errorf("cash metric %q: row %d falls inside section %q", m.Key, m.Row, s.Key))
			}
		}
	}

	return err
}

// validateSection checks one section's row arithmetic, category types and
// total formula references.
func (c Config) validateSection(s Section, prevTotal int, seen map[string]bool) error {
	var err error

	if s.Key == "" {
		return fmt.Errorf("section with empty key at start_row %d", s.StartRow)
	}
	if seen[s.Key] {
		err = multierr.Append(err, fmt.Errorf("section %q: duplicate key", s.Key))
	}
	seen[s.Key] = true

	if s.StartRow <= prevTotal {
		err = multierr.Append(err, fmt.Errorf("section %q: start_row %d must exceed the prior section's total_row %d", s.Key, s.StartRow, prevTotal))
	}
	if len(s.Categories) == 0 {
		err = multierr.Append(err, fmt.Errorf("section %q: at least one category is required", s.Key))
	}

	seenCats := make(map[string]bool)
	for _, cat := range s.Categories {
		if cat.Key == "" {
			err = multierr.Append(err, fmt.Errorf("section %q: category with empty key", s.Key))
			continue
		}
		if seenCats[cat.Key] {
			err = multierr.Append(err, fmt.Errorf("section %q, category %q: duplicate key", s.Key, cat.Key))
		}
		seenCats[cat.Key] = true
		if cat.RowBudget < 1 {
			err = multierr.Append(err, fmt.Errorf("section %q, category %q: row_budget must be at least 1, got %d", s.Key, cat.Key, cat.RowBudget))
		}
		switch cat.Type {
		case CategoryTypeAuto, CategoryTypeSemiAuto, CategoryTypeManual:
		default:
			err = multierr.Append(err, fmt.Errorf("section %q, category %q: unknown type %q", s.Key, cat.Key, cat.Type))
		}
	}

	if expected := s.ExpectedGuardRow(); s.GuardRow != expected {
		err = multierr.Append(err, fmt.Errorf("section %q: guard_row %d does not match row arithmetic (expected %d)", s.Key, s.GuardRow, expected))
	}
	if s.TotalRow != s.GuardRow+1 {
		err = multierr.Append(err, fmt.Errorf("section %q: total_row %d must immediately follow guard_row %d", s.Key, s.TotalRow, s.GuardRow))
	}
	if s.TotalFormulaTemplate == "" {
		err = multierr.Append(err, fmt.Errorf("section %q: total_formula_template is required", s.Key))
	}
	for _, match := range literalRowRef.FindAllStringSubmatch(s.TotalFormulaTemplate, -1) {
		row := 0
		fmt.Sscanf(match[1], "%d", &row)
		if row < s.StartRow || row > s.TotalRow {
			err = multierr.Append(err, fmt.Errorf("section %q: total_formula_template references row %d outside the section [%d, %d]", s.Key, row, s.StartRow, s.TotalRow))
		}
	}

	return err
}

// CheckConfig runs validation and flattens the aggregated error into a
// ValidationResult for API consumers.
func CheckConfig(c Config) ValidationResult {
	err := c.Validate()
	if err == nil {
		return ValidationResult{Valid: true}
	}
	errs := multierr.Errors(err)
	problems := make([]string, 0, len(errs))
	for _, e := range errs {
		problems = append(problems, e.Error())
	}
	return ValidationResult{Valid: false, Problems: problems}
}
