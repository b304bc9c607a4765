package output

import (
	"errors"
	"fmt"

	"pipedream/internal/value"
)

// ErrInconsistentRecord marks a record whose shape breaks the engine
// contract. It is raised as a panic, never returned to users.
var ErrInconsistentRecord = errors.New("inconsistent record")

// Table is a list of records normalized to a header and rectangular rows.
// Every row has exactly len(Header()) cells; a column a record did not have
// holds Nothing. Synthesize is the only constructor.
type Table struct {
	header []string
	rows   [][]value.Value
}

// Synthesize builds a Table from records. The header is the union of all
// record columns in first-seen order; rows keep input order.
//
// Every element must be a record. Anything else is a broken invariant of the
// caller and panics with ErrInconsistentRecord.
func Synthesize(records []value.Value) *Table {
	t := &Table{header: []string{}, rows: make([][]value.Value, 0, len(records))}
	index := make(map[string]int)

	type parts struct {
		cols []string
		vals []value.Value
	}
	split := make([]parts, len(records))

	for i, rec := range records {
		cols, vals := recordParts(i, rec)
		split[i] = parts{cols, vals}
		for _, c := range cols {
			if _, ok := index[c]; !ok {
				index[c] = len(t.header)
				t.header = append(t.header, c)
			}
		}
	}

	for _, p := range split {
		// Zero value of value.Value is Nothing, so unset cells are filled.
		row := make([]value.Value, len(t.header))
		for j, c := range p.cols {
			row[index[c]] = p.vals[j]
		}
		t.rows = append(t.rows, row)
	}

	return t
}

func recordParts(i int, rec value.Value) ([]string, []value.Value) {
	if !rec.IsRecord() {
		panic(fmt.Errorf("%w: element %d is a %s", ErrInconsistentRecord, i, rec.Kind()))
	}
	cols, vals := rec.Columns(), rec.Values()
	if len(cols) != len(vals) {
		panic(fmt.Errorf("%w: element %d has %d columns and %d values",
			ErrInconsistentRecord, i, len(cols), len(vals)))
	}
	return cols, vals
}

// Header returns the column names.
func (t *Table) Header() []string {
	return append([]string{}, t.header...)
}

// Width is the number of columns.
func (t *Table) Width() int { return len(t.header) }

// Len is the number of rows.
func (t *Table) Len() int { return len(t.rows) }

// Row returns a copy of row i.
func (t *Table) Row(i int) []value.Value {
	return append([]value.Value{}, t.rows[i]...)
}

// Rows returns a copy of all rows.
func (t *Table) Rows() [][]value.Value {
	out := make([][]value.Value, len(t.rows))
	for i := range t.rows {
		out[i] = t.Row(i)
	}
	return out
}

// Equal reports whether both tables have the same header and cells.
func (t *Table) Equal(o *Table) bool {
	if t == nil || o == nil {
		return t == o
	}
	if len(t.header) != len(o.header) || len(t.rows) != len(o.rows) {
		return false
	}
	for i := range t.header {
		if t.header[i] != o.header[i] {
			return false
		}
	}
	for i := range t.rows {
		if !valuesEqual(t.rows[i], o.rows[i]) {
			return false
		}
	}
	return true
}
