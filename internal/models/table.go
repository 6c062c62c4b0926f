// Package models defines the tabular records and domain entities shared by the cleaning pipeline.
package models

import (
	"errors"
	"fmt"
	"sort"
)

// ErrMissingColumn is returned when a rule references a column the table does not have.
var ErrMissingColumn = errors.New("missing column")

// Record is one row keyed by column name. Values are always strings.
type Record map[string]string

// Clone returns a shallow copy of the record.
func (r Record) Clone() Record {
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}

	return out
}

// Table is an ordered set of columns plus the records holding them.
type Table struct {
	Columns []string
	Records []Record
}

// NewTable creates an empty table with the given columns.
func NewTable(columns ...string) *Table {
	cols := make([]string, len(columns))
	copy(cols, columns)

	return &Table{Columns: cols}
}

// Len returns the number of records.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}

	return len(t.Records)
}

// HasColumn reports whether the table defines column.
func (t *Table) HasColumn(column string) bool {
	for _, c := range t.Columns {
		if c == column {
			return true
		}
	}

	return false
}

// Require returns ErrMissingColumn naming every absent column.
func (t *Table) Require(columns ...string) error {
	var missing []string

	for _, c := range columns {
		if !t.HasColumn(c) {
			missing = append(missing, c)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("%w: %q", ErrMissingColumn, missing)
	}

	return nil
}

// AddColumn appends a column if absent and fills it with value on every record
// that does not already carry it.
func (t *Table) AddColumn(column, value string) {
	if !t.HasColumn(column) {
		t.Columns = append(t.Columns, column)
	}

	for _, rec := range t.Records {
		if _, ok := rec[column]; !ok {
			rec[column] = value
		}
	}
}

// SetColumn sets column to value on every record, adding the column if needed.
func (t *Table) SetColumn(column, value string) {
	if !t.HasColumn(column) {
		t.Columns = append(t.Columns, column)
	}

	for _, rec := range t.Records {
		rec[column] = value
	}
}

// Filter keeps the records for which keep returns true.
func (t *Table) Filter(keep func(Record) bool) {
	out := t.Records[:0]

	for _, rec := range t.Records {
		if keep(rec) {
			out = append(out, rec)
		}
	}

	t.Records = out
}

// Reindex sets the column list to columns, dropping other fields and filling
// absent ones with fill.
func (t *Table) Reindex(columns []string, fill string) {
	cols := make([]string, len(columns))
	copy(cols, columns)

	for i, rec := range t.Records {
		next := make(Record, len(cols))
		for _, c := range cols {
			if v, ok := rec[c]; ok {
				next[c] = v
			} else {
				next[c] = fill
			}
		}

		t.Records[i] = next
	}

	t.Columns = cols
}

// Rename renames columns according to mapping. Unknown source names are ignored.
func (t *Table) Rename(mapping map[string]string) {
	if len(mapping) == 0 {
		return
	}

	for i, c := range t.Columns {
		if to, ok := mapping[c]; ok {
			t.Columns[i] = to
		}
	}

	for _, rec := range t.Records {
		moved := make(map[string]string, len(mapping))

		for from, to := range mapping {
			if v, ok := rec[from]; ok {
				moved[to] = v
				delete(rec, from)
			}
		}

		for k, v := range moved {
			rec[k] = v
		}
	}

	t.Columns = dedupeColumns(t.Columns)
}

// DropColumn removes column from the table.
func (t *Table) DropColumn(column string) {
	out := t.Columns[:0]

	for _, c := range t.Columns {
		if c != column {
			out = append(out, c)
		}
	}

	t.Columns = out

	for _, rec := range t.Records {
		delete(rec, column)
	}
}

// SortBy stable-sorts records by column. Values compare as strings.
func (t *Table) SortBy(column string, descending bool) {
	sort.SliceStable(t.Records, func(i, j int) bool {
		a, b := t.Records[i][column], t.Records[j][column]
		if descending {
			return a > b
		}

		return a < b
	})
}

// Concat appends the records of other, merging column lists.
func (t *Table) Concat(other *Table) {
	if other == nil {
		return
	}

	for _, c := range other.Columns {
		if !t.HasColumn(c) {
			t.Columns = append(t.Columns, c)
		}
	}

	t.Records = append(t.Records, other.Records...)
}

// Rows renders the records as string slices in column order.
func (t *Table) Rows() [][]string {
	rows := make([][]string, 0, len(t.Records))

	for _, rec := range t.Records {
		row := make([]string, len(t.Columns))
		for i, c := range t.Columns {
			row[i] = rec[c]
		}

		rows = append(rows, row)
	}

	return rows
}

// Clone deep-copies the table.
func (t *Table) Clone() *Table {
	out := NewTable(t.Columns...)
	out.Records = make([]Record, len(t.Records))

	for i, rec := range t.Records {
		out.Records[i] = rec.Clone()
	}

	return out
}

func dedupeColumns(cols []string) []string {
	seen := make(map[string]bool, len(cols))
	out := cols[:0]

	for _, c := range cols {
		if seen[c] {
			continue
		}

		seen[c] = true
		out = append(out, c)
	}

	return out
}
