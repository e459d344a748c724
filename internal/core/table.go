package core

import (
	"fmt"
	"time"
)

// Table is a flat set of rows with source-defined columns.
type Table struct {
	Name    string    `json:"name,omitempty"` // table the rows were read from
	Columns []string  `json:"columns"`
	Rows    [][]Value `json:"rows"`
}

// Empty mirrors a dataframe's notion of empty: no rows or no columns.
func (t Table) Empty() bool {
	return len(t.Columns) == 0 || len(t.Rows) == 0
}

// Index returns the position of col, or -1.
func (t Table) Index(col string) int {
	for i, c := range t.Columns {
		if c == col {
			return i
		}
	}
	return -1
}

// HasColumns reports whether every named column exists.
func (t Table) HasColumns(cols ...string) bool {
	for _, c := range cols {
		if t.Index(c) < 0 {
			return false
		}
	}
	return true
}

// Column returns the cells of col in row order.
func (t Table) Column(col string) ([]Value, error) {
	idx := t.Index(col)
	if idx < 0 {
		return nil, fmt.Errorf("%w: %s", ErrMissingColumn, col)
	}
	out := make([]Value, len(t.Rows))
	for i, row := range t.Rows {
		out[i] = cell(row, idx)
	}
	return out, nil
}

// FilterDay keeps the rows whose col falls on the calendar day of day.
// Rows whose col cannot be read as a date are dropped.
func (t Table) FilterDay(col string, day time.Time) (Table, error) {
	idx := t.Index(col)
	if idx < 0 {
		return Table{}, fmt.Errorf("%w: %s", ErrMissingColumn, col)
	}
	y, m, d := day.Date()
	out := Table{Name: t.Name, Columns: t.Columns, Rows: make([][]Value, 0, len(t.Rows))}
	for _, row := range t.Rows {
		ts, ok := cell(row, idx).Time()
		if !ok {
			continue
		}
		ry, rm, rd := ts.Date()
		if ry == y && rm == m && rd == d {
			out.Rows = append(out.Rows, row)
		}
	}
	return out, nil
}

// Records converts rows into column-keyed maps of plain values.
func (t Table) Records() []map[string]any {
	out := make([]map[string]any, 0, len(t.Rows))
	for _, row := range t.Rows {
		rec := make(map[string]any, len(t.Columns))
		for i, c := range t.Columns {
			rec[c] = cell(row, i).Interface()
		}
		out = append(out, rec)
	}
	return out
}

// cell tolerates ragged rows.
func cell(row []Value, idx int) Value {
	if idx < len(row) {
		return row[idx]
	}
	return NullValue()
}
