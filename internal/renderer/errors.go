package renderer

import "fmt"

// FormulaRegionViolation reports an attempt to write a literal value into a
// formula-owned row. This is a programming error in whatever composed the
// layout or the data, never a data condition, and always fails the render.
type FormulaRegionViolation struct {
	Sheet string
	Cell  string
	Row   int
}

func (e *FormulaRegionViolation) Error() string {
	return fmt.Sprintf("formula region violation: attempted value write to %s!%s (row %d is formula-owned)", e.Sheet, e.Cell, e.Row)
}
