package interchange

import (
	"fmt"
	"sort"
)

// Column is a single named column of a Table. Exactly one of Str and Num is
// non-nil: metadata columns hold strings (empty string for missing), data
// columns hold float64 with NaN for missing.
type Column struct {
	Name string
	Str  []string
	Num  []float64
}

// IsData reports whether the column holds numeric data values.
func (c *Column) IsData() bool { return c.Num != nil }

// Len returns the number of rows in the column.
func (c *Column) Len() int {
	if c.Num != nil {
		return len(c.Num)
	}
	return len(c.Str)
}

// Table is an in-memory tabular buffer with ordered, named columns. The
// ingestion pipeline mutates a Table in place stage by stage; the final
// normalized table carries a Metadata record.
type Table struct {
	cols []*Column
	meta *Metadata
}

// NewTable returns an empty table.
func NewTable() *Table { return &Table{} }

// NumRows returns the number of rows. An empty table has zero rows.
func (t *Table) NumRows() int {
	if len(t.cols) == 0 {
		return 0
	}
	return t.cols[0].Len()
}

// NumColumns returns the number of columns.
func (t *Table) NumColumns() int { return len(t.cols) }

// ColumnNames returns the column names in table order.
func (t *Table) ColumnNames() []string {
	names := make([]string, len(t.cols))
	for i, c := range t.cols {
		names[i] = c.Name
	}
	return names
}

// Column returns the named column, or nil if it does not exist.
func (t *Table) Column(name string) *Column {
	for _, c := range t.cols {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// HasColumn reports whether the named column exists.
func (t *Table) HasColumn(name string) bool { return t.Column(name) != nil }

// AddColumn appends a column to the table. The column length must match the
// table's row count unless the table is empty, and the name must be unused.
func (t *Table) AddColumn(c *Column) error {
	if t.HasColumn(c.Name) {
		return fmt.Errorf("column %q already exists", c.Name)
	}
	if len(t.cols) > 0 && c.Len() != t.NumRows() {
		return fmt.Errorf("column %q has %d rows, table has %d", c.Name, c.Len(), t.NumRows())
	}
	t.cols = append(t.cols, c)
	return nil
}

// AddConstColumn appends a metadata column holding the same value in every
// row.
func (t *Table) AddConstColumn(name, value string) error {
	vals := make([]string, t.NumRows())
	for i := range vals {
		vals[i] = value
	}
	return t.AddColumn(&Column{Name: name, Str: vals})
}

// Rename changes a column's name.
func (t *Table) Rename(old, new string) error {
	if old == new {
		return nil
	}
	c := t.Column(old)
	if c == nil {
		return fmt.Errorf("column %q does not exist", old)
	}
	if t.HasColumn(new) {
		return fmt.Errorf("cannot rename %q to %q: column already exists", old, new)
	}
	c.Name = new
	return nil
}

// Drop removes the named columns. Unknown names are ignored.
func (t *Table) Drop(names ...string) {
	drop := make(map[string]bool, len(names))
	for _, n := range names {
		drop[n] = true
	}
	kept := t.cols[:0]
	for _, c := range t.cols {
		if !drop[c.Name] {
			kept = append(kept, c)
		}
	}
	t.cols = kept
}

// KeepRows retains only the rows for which keep is true, re-indexing the
// remaining rows contiguously. keep must have one entry per row.
func (t *Table) KeepRows(keep []bool) {
	n := 0
	for _, k := range keep {
		if k {
			n++
		}
	}
	for _, c := range t.cols {
		if c.Num != nil {
			out := make([]float64, 0, n)
			for i, k := range keep {
				if k {
					out = append(out, c.Num[i])
				}
			}
			c.Num = out
		} else {
			out := make([]string, 0, n)
			for i, k := range keep {
				if k {
					out = append(out, c.Str[i])
				}
			}
			c.Str = out
		}
	}
}

// Reorder rearranges the columns into the given order, which must name every
// column exactly once.
func (t *Table) Reorder(order []string) error {
	if len(order) != len(t.cols) {
		return fmt.Errorf("reorder lists %d columns, table has %d", len(order), len(t.cols))
	}
	cols := make([]*Column, 0, len(order))
	for _, name := range order {
		c := t.Column(name)
		if c == nil {
			return fmt.Errorf("column %q does not exist", name)
		}
		cols = append(cols, c)
	}
	t.cols = cols
	return nil
}

// SortRows sorts the rows ascending by the values of the named metadata
// columns, compared in the given order. The sort is stable.
func (t *Table) SortRows(by []string) error {
	keys := make([]*Column, 0, len(by))
	for _, name := range by {
		c := t.Column(name)
		if c == nil {
			return fmt.Errorf("column %q does not exist", name)
		}
		if c.IsData() {
			return fmt.Errorf("cannot sort rows by data column %q", name)
		}
		keys = append(keys, c)
	}

	perm := make([]int, t.NumRows())
	for i := range perm {
		perm[i] = i
	}
	sort.SliceStable(perm, func(a, b int) bool {
		for _, c := range keys {
			if c.Str[perm[a]] != c.Str[perm[b]] {
				return c.Str[perm[a]] < c.Str[perm[b]]
			}
		}
		return false
	})

	for _, c := range t.cols {
		if c.Num != nil {
			out := make([]float64, len(c.Num))
			for i, j := range perm {
				out[i] = c.Num[j]
			}
			c.Num = out
		} else {
			out := make([]string, len(c.Str))
			for i, j := range perm {
				out[i] = c.Str[j]
			}
			c.Str = out
		}
	}
	return nil
}

// SetMeta attaches the metadata record. The pipeline calls this once, at the
// end of a conversion.
func (t *Table) SetMeta(m *Metadata) { t.meta = m }

// Meta returns the attached metadata record, or nil if none is attached.
func (t *Table) Meta() *Metadata { return t.meta }
