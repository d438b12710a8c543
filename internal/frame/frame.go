// Package frame provides a minimal string-valued table for CSV snapshots.
//
// Source files arrive with arbitrary column sets and loose typing, so cells
// are kept as strings at load time and coerced to numbers or timestamps by
// the stage that consumes them. A Frame is never mutated by a consumer:
// stages clone before adding columns.
package frame

import (
	"fmt"
)

// Frame is a header plus row-major cells. Rows are padded or truncated to
// the header width at construction, so Value never indexes out of range.
type Frame struct {
	cols  []string
	index map[string]int
	rows  [][]string
}

// New creates an empty Frame with the given columns.
func New(cols []string) *Frame {
	f := &Frame{
		cols:  append([]string(nil), cols...),
		index: make(map[string]int, len(cols)),
	}
	for i, c := range f.cols {
		f.index[c] = i
	}
	return f
}

// FromRecords builds a Frame from CSV records where the first record is the
// header. Short rows are padded with empty cells; long rows are truncated.
func FromRecords(records [][]string) (*Frame, error) {
	if len(records) == 0 {
		return nil, fmt.Errorf("frame: no header record")
	}
	f := New(records[0])
	width := len(f.cols)
	f.rows = make([][]string, 0, len(records)-1)
	for _, rec := range records[1:] {
		row := make([]string, width)
		copy(row, rec)
		f.rows = append(f.rows, row)
	}
	return f, nil
}

// Columns returns the column names in order.
func (f *Frame) Columns() []string {
	return append([]string(nil), f.cols...)
}

// Has reports whether the named column exists.
func (f *Frame) Has(col string) bool {
	_, ok := f.index[col]
	return ok
}

// Len returns the number of rows.
func (f *Frame) Len() int {
	return len(f.rows)
}

// Value returns the cell at (row, col), or "" when the column is unknown.
func (f *Frame) Value(row int, col string) string {
	i, ok := f.index[col]
	if !ok {
		return ""
	}
	return f.rows[row][i]
}

// Column returns a copy of the named column's values, or nil when unknown.
func (f *Frame) Column(col string) []string {
	i, ok := f.index[col]
	if !ok {
		return nil
	}
	out := make([]string, len(f.rows))
	for r, row := range f.rows {
		out[r] = row[i]
	}
	return out
}

// AddRow appends a row, padded or truncated to the header width.
func (f *Frame) AddRow(cells ...string) {
	row := make([]string, len(f.cols))
	copy(row, cells)
	f.rows = append(f.rows, row)
}

// SetColumn adds a column, or overwrites it when it already exists. The
// values slice must match the row count.
func (f *Frame) SetColumn(col string, values []string) error {
	if len(values) != len(f.rows) {
		return fmt.Errorf("frame: column %q has %d values for %d rows", col, len(values), len(f.rows))
	}
	if i, ok := f.index[col]; ok {
		for r := range f.rows {
			f.rows[r][i] = values[r]
		}
		return nil
	}
	f.index[col] = len(f.cols)
	f.cols = append(f.cols, col)
	for r := range f.rows {
		f.rows[r] = append(f.rows[r], values[r])
	}
	return nil
}

// Clone returns a deep copy. Stages that add canonical columns operate on a
// clone so the caller's Frame is never mutated.
func (f *Frame) Clone() *Frame {
	out := New(f.cols)
	out.rows = make([][]string, len(f.rows))
	for r, row := range f.rows {
		out.rows[r] = append([]string(nil), row...)
	}
	return out
}
