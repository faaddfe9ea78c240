// Package table is a small column-oriented table of nullable cells.
//
// Cells hold nil (null), int64, float64, string, bool, time.Time or nested
// JSON values (map[string]any, []any). Every operation returns a new Table;
// column value slices are never modified once a column is part of a table.
package table

import "fmt"

// Column is a named slice of cells
type Column struct {
	Name   string
	Values []any
}

// NewColumn creates a column with the given name and values
func NewColumn(name string, values []any) *Column {
	return &Column{Name: name, Values: values}
}

// Len returns the number of cells in the column
func (c *Column) Len() int {
	return len(c.Values)
}

// Map returns a new column named name whose cells are fn applied to each cell of c
func (c *Column) Map(name string, fn func(v any) any) *Column {
	out := make([]any, len(c.Values))
	for i, v := range c.Values {
		out[i] = fn(v)
	}
	return NewColumn(name, out)
}

// Table is an ordered set of equal-length columns
type Table struct {
	cols  []*Column
	index map[string]int
	rows  int
}

// New creates an empty table with the given number of rows and no columns
func New(rows int) *Table {
	return &Table{index: map[string]int{}, rows: rows}
}

// FromColumns builds a table from columns that must all share the same length
func FromColumns(cols ...*Column) (*Table, error) {
	rows := 0
	if len(cols) > 0 {
		rows = cols[0].Len()
	}
	t := New(rows)
	for _, c := range cols {
		if c.Len() != rows {
			return nil, fmt.Errorf("column %q has %d values, want %d", c.Name, c.Len(), rows)
		}
		if _, dup := t.index[c.Name]; dup {
			return nil, fmt.Errorf("duplicate column %q", c.Name)
		}
		t.index[c.Name] = len(t.cols)
		t.cols = append(t.cols, c)
	}
	return t, nil
}

// Len returns the number of rows
func (t *Table) Len() int {
	return t.rows
}

// Width returns the number of columns
func (t *Table) Width() int {
	return len(t.cols)
}

// Names returns the column names in order
func (t *Table) Names() []string {
	names := make([]string, len(t.cols))
	for i, c := range t.cols {
		names[i] = c.Name
	}
	return names
}

// Columns returns the columns in order. Callers must not modify them.
func (t *Table) Columns() []*Column {
	out := make([]*Column, len(t.cols))
	copy(out, t.cols)
	return out
}

// Has reports whether the table has a column named name
func (t *Table) Has(name string) bool {
	_, ok := t.index[name]
	return ok
}

// Column returns the named column
func (t *Table) Column(name string) (*Column, bool) {
	i, ok := t.index[name]
	if !ok {
		return nil, false
	}
	return t.cols[i], true
}

// With returns a table with col added at the end, or replacing the column of the
// same name in place. It panics if col has the wrong length.
func (t *Table) With(col *Column) *Table {
	if col.Len() != t.rows {
		panic(fmt.Sprintf("table: column %q has %d values, want %d", col.Name, col.Len(), t.rows))
	}
	out := t.clone()
	if i, ok := out.index[col.Name]; ok {
		out.cols[i] = col
		return out
	}
	out.index[col.Name] = len(out.cols)
	out.cols = append(out.cols, col)
	return out
}

// Drop returns a table without the named columns. Names that do not exist are ignored.
func (t *Table) Drop(names ...string) *Table {
	drop := make(map[string]bool, len(names))
	for _, n := range names {
		drop[n] = true
	}
	out := New(t.rows)
	for _, c := range t.cols {
		if drop[c.Name] {
			continue
		}
		out.index[c.Name] = len(out.cols)
		out.cols = append(out.cols, c)
	}
	return out
}

// Select returns a table holding only the named columns, in the given order.
// Names that do not exist are ignored.
func (t *Table) Select(names ...string) *Table {
	out := New(t.rows)
	for _, n := range names {
		c, ok := t.Column(n)
		if !ok {
			continue
		}
		if _, dup := out.index[n]; dup {
			continue
		}
		out.index[n] = len(out.cols)
		out.cols = append(out.cols, c)
	}
	return out
}

// Filter returns a table with only the rows for which keep returns true
func (t *Table) Filter(keep func(row int) bool) *Table {
	var rows []int
	for i := 0; i < t.rows; i++ {
		if keep(i) {
			rows = append(rows, i)
		}
	}
	out := New(len(rows))
	for _, c := range t.cols {
		vals := make([]any, len(rows))
		for j, r := range rows {
			vals[j] = c.Values[r]
		}
		out.index[c.Name] = len(out.cols)
		out.cols = append(out.cols, NewColumn(c.Name, vals))
	}
	return out
}

// Value returns the cell at row in the named column, or nil when the column is absent
func (t *Table) Value(name string, row int) any {
	c, ok := t.Column(name)
	if !ok {
		return nil
	}
	return c.Values[row]
}

func (t *Table) clone() *Table {
	out := &Table{
		cols:  make([]*Column, len(t.cols)),
		index: make(map[string]int, len(t.index)),
		rows:  t.rows,
	}
	copy(out.cols, t.cols)
	for k, v := range t.index {
		out.index[k] = v
	}
	return out
}
