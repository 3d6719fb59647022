package interchange

import (
	"fmt"
	"sort"
	"strings"
)

// SortColumnsAndRows brings a table into canonical order. dimensions names
// the metadata columns; every other column is treated as a time column.
//
// Columns are ordered by ColumnOrder, where an order entry collects the
// columns equal to it or qualified with a terminology ("<entry> (..."), in
// alphabetical order. Dimension columns matching no entry follow
// alphabetically, then the time columns in ascending order. Rows are sorted
// ascending by the full ordered dimension tuple. Applying the function twice
// yields the same table as applying it once.
//
// It returns the dimension columns in their sorted order.
func SortColumnsAndRows(t *Table, dimensions []string) ([]string, error) {
	dimSet := make(map[string]bool, len(dimensions))
	for _, d := range dimensions {
		if !t.HasColumn(d) {
			return nil, fmt.Errorf("dimension column %q does not exist", d)
		}
		dimSet[d] = true
	}

	var timeCols []string
	for _, name := range t.ColumnNames() {
		if !dimSet[name] {
			timeCols = append(timeCols, name)
		}
	}
	sort.Strings(timeCols)

	remaining := make(map[string]bool, len(dimensions))
	for _, d := range dimensions {
		remaining[d] = true
	}

	var colsSorted []string
	for _, entry := range ColumnOrder {
		var matches []string
		for d := range remaining {
			if d == entry || strings.HasPrefix(d, entry+" (") {
				matches = append(matches, d)
			}
		}
		sort.Strings(matches)
		for _, m := range matches {
			delete(remaining, m)
		}
		colsSorted = append(colsSorted, matches...)
	}
	var rest []string
	for d := range remaining {
		rest = append(rest, d)
	}
	sort.Strings(rest)
	colsSorted = append(colsSorted, rest...)

	if err := t.Reorder(append(append([]string{}, colsSorted...), timeCols...)); err != nil {
		return nil, err
	}
	if err := t.SortRows(colsSorted); err != nil {
		return nil, err
	}
	return colsSorted, nil
}
