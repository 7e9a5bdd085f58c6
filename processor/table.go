package processor

import (
	"fmt"
	"math"
	"strings"
)

// Table is the frame every pipeline stage exchanges: an ordered list of
// column names plus rows of cells. A cell is a string, a float64, or nil
// when the value is missing. The zero separator between stages is JSON, so
// cell types survive a round trip unchanged (numbers come back as float64).
type Table struct {
	Columns []string        `json:"columns"`
	Rows    [][]interface{} `json:"rows"`
}

// NewTable creates an empty table with the given column names.
func NewTable(columns ...string) *Table {
	return &Table{Columns: append([]string{}, columns...)}
}

// AppendRow adds one row. The cell count must match the column count.
func (t *Table) AppendRow(cells ...interface{}) error {
	if len(cells) != len(t.Columns) {
		return fmt.Errorf("row has %d cells, table has %d columns", len(cells), len(t.Columns))
	}
	t.Rows = append(t.Rows, append([]interface{}{}, cells...))
	return nil
}

// NumRows returns the number of rows in the table.
func (t *Table) NumRows() int {
	return len(t.Rows)
}

// ColumnIndex returns the position of a column, or -1 if absent.
func (t *Table) ColumnIndex(name string) int {
	for i, col := range t.Columns {
		if col == name {
			return i
		}
	}
	return -1
}

// HasColumn reports whether the table contains the named column.
func (t *Table) HasColumn(name string) bool {
	return t.ColumnIndex(name) >= 0
}

// Cell returns the value at (row, column name), or nil if the column is
// absent.
func (t *Table) Cell(row int, column string) interface{} {
	idx := t.ColumnIndex(column)
	if idx < 0 || row < 0 || row >= len(t.Rows) {
		return nil
	}
	return t.Rows[row][idx]
}

// SetCell assigns the value at (row, column name).
func (t *Table) SetCell(row int, column string, value interface{}) error {
	idx := t.ColumnIndex(column)
	if idx < 0 {
		return fmt.Errorf("no column %q in table", column)
	}
	if row < 0 || row >= len(t.Rows) {
		return fmt.Errorf("row %d out of range", row)
	}
	t.Rows[row][idx] = value
	return nil
}

// Copy returns a deep copy. Stages that mutate a table they received from
// an upstream stage work on a copy so the upstream value stays intact.
func (t *Table) Copy() *Table {
	out := NewTable(t.Columns...)
	out.Rows = make([][]interface{}, len(t.Rows))
	for i, row := range t.Rows {
		out.Rows[i] = append([]interface{}{}, row...)
	}
	return out
}

// RenameColumn renames a single column in place.
func (t *Table) RenameColumn(from, to string) error {
	idx := t.ColumnIndex(from)
	if idx < 0 {
		return fmt.Errorf("no column %q in table", from)
	}
	t.Columns[idx] = to
	return nil
}

// DropColumns removes the named columns and their cells. Names not present
// in the table are ignored.
func (t *Table) DropColumns(names ...string) {
	drop := make(map[string]bool, len(names))
	for _, n := range names {
		drop[n] = true
	}

	keep := make([]int, 0, len(t.Columns))
	for i, col := range t.Columns {
		if !drop[col] {
			keep = append(keep, i)
		}
	}
	if len(keep) == len(t.Columns) {
		return
	}

	cols := make([]string, len(keep))
	for i, idx := range keep {
		cols[i] = t.Columns[idx]
	}
	for r, row := range t.Rows {
		newRow := make([]interface{}, len(keep))
		for i, idx := range keep {
			newRow[i] = row[idx]
		}
		t.Rows[r] = newRow
	}
	t.Columns = cols
}

// AppendTable appends another table's rows. Column names and order must
// match exactly.
func (t *Table) AppendTable(other *Table) error {
	if len(t.Columns) != len(other.Columns) {
		return fmt.Errorf("cannot append table with %d columns to table with %d", len(other.Columns), len(t.Columns))
	}
	for i, col := range t.Columns {
		if other.Columns[i] != col {
			return fmt.Errorf("column mismatch at position %d: %q vs %q", i, col, other.Columns[i])
		}
	}
	for _, row := range other.Rows {
		t.Rows = append(t.Rows, append([]interface{}{}, row...))
	}
	return nil
}

// IsMissing reports whether a cell value counts as missing: nil, an empty
// or whitespace-only string, the "-" placeholder the exchange pages use, or
// a NaN float.
func IsMissing(v interface{}) bool {
	switch val := v.(type) {
	case nil:
		return true
	case string:
		trimmed := strings.TrimSpace(val)
		return trimmed == "" || trimmed == "-"
	case float64:
		return math.IsNaN(val)
	default:
		return false
	}
}

// CellString renders a cell as a string for parsing, with missing values
// mapped to "".
func CellString(v interface{}) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	default:
		return fmt.Sprintf("%v", val)
	}
}
