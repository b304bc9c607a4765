package output

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pipedream/internal/value"
)

func rec(kv ...any) value.Value {
	var cols []string
	var vals []value.Value
	for i := 0; i < len(kv); i += 2 {
		cols = append(cols, kv[i].(string))
		vals = append(vals, value.Scalar(kv[i+1]))
	}
	return value.MustRecord(cols, vals)
}

func TestSynthesize(t *testing.T) {
	tests := []struct {
		name       string
		records    []value.Value
		wantHeader []string
		wantRows   [][]value.Value
	}{
		{
			name:       "first seen column order with missing cells",
			records:    []value.Value{rec("a", 1, "b", 2), rec("b", 3, "c", 4)},
			wantHeader: []string{"a", "b", "c"},
			wantRows: [][]value.Value{
				{value.Scalar(1), value.Scalar(2), value.Nothing()},
				{value.Nothing(), value.Scalar(3), value.Scalar(4)},
			},
		},
		{
			name:       "no records",
			records:    nil,
			wantHeader: []string{},
			wantRows:   [][]value.Value{},
		},
		{
			name:       "zero column record alone",
			records:    []value.Value{rec()},
			wantHeader: []string{},
			wantRows:   [][]value.Value{{}},
		},
		{
			name:       "zero column record among others",
			records:    []value.Value{rec("x", 1), rec()},
			wantHeader: []string{"x"},
			wantRows: [][]value.Value{
				{value.Scalar(1)},
				{value.Nothing()},
			},
		},
		{
			name:       "columns in different order per record",
			records:    []value.Value{rec("name", "a", "size", 1), rec("size", 2, "name", "b")},
			wantHeader: []string{"name", "size"},
			wantRows: [][]value.Value{
				{value.Scalar("a"), value.Scalar(1)},
				{value.Scalar("b"), value.Scalar(2)},
			},
		},
		{
			name:       "nested values kept as cells",
			records:    []value.Value{value.MustRecord([]string{"l"}, []value.Value{value.List(value.Scalar(1))})},
			wantHeader: []string{"l"},
			wantRows:   [][]value.Value{{value.List(value.Scalar(1))}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			table := Synthesize(tt.records)

			if diff := cmp.Diff(tt.wantHeader, table.Header()); diff != "" {
				t.Errorf("header mismatch (-want +got):\n%s", diff)
			}
			require.Equal(t, len(tt.wantRows), table.Len())
			for i, want := range tt.wantRows {
				if diff := cmp.Diff(want, table.Row(i)); diff != "" {
					t.Errorf("row %d mismatch (-want +got):\n%s", i, diff)
				}
			}
			assertRectangular(t, table)
		})
	}
}

func assertRectangular(t *testing.T, table *Table) {
	t.Helper()
	seen := map[string]bool{}
	for _, h := range table.Header() {
		assert.False(t, seen[h], "duplicate header %q", h)
		seen[h] = true
	}
	for i, row := range table.Rows() {
		assert.Len(t, row, table.Width(), "row %d", i)
	}
}

func TestSynthesizeIsDeterministic(t *testing.T) {
	records := []value.Value{rec("z", 1, "y", 2), rec("x", 3), rec("y", 4, "w", 5)}
	first := Synthesize(records)
	for i := 0; i < 20; i++ {
		assert.True(t, first.Equal(Synthesize(records)))
	}
	assert.Equal(t, []string{"z", "y", "x", "w"}, first.Header())
}

func TestSynthesizeRejectsNonRecords(t *testing.T) {
	defer func() {
		r := recover()
		require.NotNil(t, r)
		err, ok := r.(error)
		require.True(t, ok)
		assert.True(t, errors.Is(err, ErrInconsistentRecord))
	}()
	Synthesize([]value.Value{rec("a", 1), value.Scalar(2)})
}

func TestTableAccessorsCopy(t *testing.T) {
	table := Synthesize([]value.Value{rec("a", 1)})

	h := table.Header()
	h[0] = "mutated"
	row := table.Row(0)
	row[0] = value.Scalar("mutated")

	assert.Equal(t, []string{"a"}, table.Header())
	assert.True(t, table.Row(0)[0].Equal(value.Scalar(1)))
}
