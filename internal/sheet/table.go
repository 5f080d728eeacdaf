package sheet

import "strings"

// Row maps a trimmed column name to its cell. Missing columns read as Empty.
type Row map[string]Cell

// Get returns the cell for column, Empty when absent.
func (r Row) Get(column string) Cell {
	if r == nil {
		return Empty()
	}
	return r[column]
}

// Table is a parsed sheet: one header row followed by data rows.
type Table struct {
	Columns []string
	Rows    []Row
}

// NewTable builds a table from a header and positional rows; header names are trimmed.
// When two headers trim to the same name the first one wins.
func NewTable(header []string, rows [][]Cell) *Table {
	columns := make([]string, 0, len(header))
	index := make([]int, len(header))
	seen := make(map[string]struct{}, len(header))
	for i, h := range header {
		name := strings.TrimSpace(h)
		index[i] = -1
		if name == "" {
			continue
		}
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		index[i] = len(columns)
		columns = append(columns, name)
	}

	t := &Table{Columns: columns, Rows: make([]Row, 0, len(rows))}
	for _, cells := range rows {
		row := make(Row, len(columns))
		for i, cell := range cells {
			if i >= len(index) || index[i] < 0 {
				continue
			}
			row[columns[index[i]]] = cell
		}
		t.Rows = append(t.Rows, row)
	}
	return t
}

// HasColumn reports whether the table has the named column.
func (t *Table) HasColumn(name string) bool {
	for _, c := range t.Columns {
		if c == name {
			return true
		}
	}
	return false
}

// NullCounts counts empty cells per column.
func (t *Table) NullCounts() map[string]int {
	counts := make(map[string]int, len(t.Columns))
	for _, col := range t.Columns {
		counts[col] = 0
	}
	for _, row := range t.Rows {
		for _, col := range t.Columns {
			if row.Get(col).IsEmpty() {
				counts[col]++
			}
		}
	}
	return counts
}
