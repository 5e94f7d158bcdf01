package catalog

import (
	"fmt"
	"sort"
	"strings"
)

// Cell is one table cell: display text plus an optional link target.
type Cell struct {
	Text string
	URL  string
}

// Table is an ordered, immutable base of rows with derived sorted/filtered
// views. Filtering and sorting never touch the base rows, so views can be
// re-evaluated without re-querying the source.
type Table struct {
	Name    string
	Slug    string
	Columns []string
	rows    [][]Cell
}

// NewTable creates a table with the given columns.
func NewTable(name, slug string, columns ...string) *Table {
	return &Table{Name: name, Slug: slug, Columns: columns}
}

// Append adds a row. The number of cells must match the columns.
func (t *Table) Append(cells ...Cell) error {
	if len(cells) != len(t.Columns) {
		return fmt.Errorf("row has %d cells, table %s has %d columns", len(cells), t.Name, len(t.Columns))
	}
	t.rows = append(t.rows, cells)
	return nil
}

// Len returns the number of rows.
func (t *Table) Len() int {
	return len(t.rows)
}

// Rows returns a copy of the row slice (cells shared, rows not).
func (t *Table) Rows() [][]Cell {
	out := make([][]Cell, len(t.rows))
	copy(out, t.rows)
	return out
}

func (t *Table) columnIndex(column string) (int, error) {
	for i, c := range t.Columns {
		if strings.EqualFold(c, column) {
			return i, nil
		}
	}
	return 0, fmt.Errorf("table %s has no column %q", t.Name, column)
}

// SortedBy returns a new view sorted by the named column. The sort is stable
// so equal keys keep their source order.
func (t *Table) SortedBy(column string, descending bool) (*Table, error) {
	idx, err := t.columnIndex(column)
	if err != nil {
		return nil, err
	}
	view := &Table{Name: t.Name, Slug: t.Slug, Columns: t.Columns, rows: t.Rows()}
	sort.SliceStable(view.rows, func(i, j int) bool {
		a, b := view.rows[i][idx].Text, view.rows[j][idx].Text
		if descending {
			return b < a
		}
		return a < b
	})
	return view, nil
}

// Filtered returns a new view retaining rows that match every column filter
// (logical AND). Filters are case-insensitive substring matches keyed by
// column name; an empty filter map returns all rows.
func (t *Table) Filtered(filters map[string]string) (*Table, error) {
	indexed := make(map[int]string, len(filters))
	for column, needle := range filters {
		if needle == "" {
			continue
		}
		idx, err := t.columnIndex(column)
		if err != nil {
			return nil, err
		}
		indexed[idx] = strings.ToLower(needle)
	}

	view := &Table{Name: t.Name, Slug: t.Slug, Columns: t.Columns}
	for _, row := range t.rows {
		matched := true
		for idx, needle := range indexed {
			if !strings.Contains(strings.ToLower(row[idx].Text), needle) {
				matched = false
				break
			}
		}
		if matched {
			view.rows = append(view.rows, row)
		}
	}
	return view, nil
}
