// Package archetype loads and validates the declarative spreadsheet layout
// documents. An archetype (nonprofit, agency, ...) is expressed entirely as
// configuration; there is no per-archetype code branching anywhere in the
// renderer.
package archetype

// Category types. The renderer reads these as data: auto and semi-auto
// categories are value targets, manual categories render labels and padding
// only.
const (
	CategoryTypeAuto     = "auto"
	CategoryTypeSemiAuto = "semi-auto"
	CategoryTypeManual   = "manual"
)

// Category is one labelled block of detail rows inside a section.
type Category struct {
	Key       string `yaml:"key"`
	Label     string `yaml:"label"`
	RowBudget int    `yaml:"row_budget"`
	Type      string `yaml:"type"`
	Color     string `yaml:"color"`
}

// Section is a contiguous block of the sheet: header, categories, guard row
// and total row.
type Section struct {
	Key                  string     `yaml:"key"`
	Label                string     `yaml:"label"`
	StartRow             int        `yaml:"start_row"`
	Categories           []Category `yaml:"categories"`
	GuardRow             int        `yaml:"guard_row"`
	TotalRow             int        `yaml:"total_row"`
	TotalFormulaTemplate string     `yaml:"total_formula_template"`
}

// CashMetric is a formula-owned summary row outside any section.
type CashMetric struct {
	Key             string `yaml:"key"`
	Row             int    `yaml:"row"`
	FormulaTemplate string `yaml:"formula_template"`
}

// Config is a full archetype layout document. Loaded once per render call
// and treated as read-only.
type Config struct {
	Archetype                string       `yaml:"archetype"`
	Horizon                  int          `yaml:"horizon"`
	BeginningCashRow         int          `yaml:"beginning_cash_row"`
	BeginningCashSeedFormula string       `yaml:"beginning_cash_seed_formula"`
	Sections                 []Section    `yaml:"sections"`
	CashMetrics              []CashMetric `yaml:"cash_metrics"`
}

// CategoryRows returns the number of rows a section's categories occupy:
// one label row plus the row budget, per category.
func (s Section) CategoryRows() int {
	total := 0
	for _, c := range s.Categories {
		total += c.RowBudget + 1
	}
	return total
}

// ExpectedGuardRow is the row the guard marker must sit on: the section
// header occupies StartRow, the categories the next CategoryRows() rows, and
// the guard row follows immediately so the total formula range
// [StartRow, GuardRow-1] covers every detail row.
func (s Section) ExpectedGuardRow() int {
	return s.StartRow + s.CategoryRows() + 1
}

// FormulaOwnedRows lists every row the renderer must never write a literal
// value into.
func (c Config) FormulaOwnedRows() map[int]bool {
	rows := make(map[int]bool)
	for _, s := range c.Sections {
		rows[s.TotalRow] = true
	}
	for _, m := range c.CashMetrics {
		rows[m.Row] = true
	}
	if c.BeginningCashRow > 0 {
		rows[c.BeginningCashRow] = true
	}
	return rows
}
