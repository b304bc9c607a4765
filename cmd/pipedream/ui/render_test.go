package ui

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"pipedream/internal/output"
	"pipedream/internal/value"
)

func rec(kv ...any) value.Value {
	cols := make([]string, 0, len(kv)/2)
	vals := make([]value.Value, 0, len(kv)/2)
	for i := 0; i < len(kv); i += 2 {
		cols = append(cols, kv[i].(string))
		vals = append(vals, value.Scalar(kv[i+1]))
	}
	return value.MustRecord(cols, vals)
}

func TestRenderer_Output(t *testing.T) {
	r := NewRenderer(DefaultStyles(), "")

	tests := []struct {
		name string
		in   output.Output
		want []string
	}{
		{"empty", output.Empty{}, []string{"Nothing"}},
		{"scalar", output.Value{V: value.Scalar(3)}, []string{"3"}},
		{"error value", output.Value{V: value.Error("bad input")}, []string{"bad input"}},
		{
			"record with nested list",
			output.Value{V: value.MustRecord(
				[]string{"name", "tags"},
				[]value.Value{value.Scalar("x"), value.List(value.Scalar(1), value.Scalar(2))},
			)},
			[]string{"name", "tags", "x", "List 2 rows"},
		},
		{
			"list",
			output.List{Values: []value.Value{value.Scalar("one"), rec("a", 1)}},
			[]string{"one", "a", "1"},
		},
		{
			"table",
			output.Synthesize([]value.Value{rec("a", 1, "b", 2), rec("b", 3, "c", rec("x", 1))}),
			[]string{"a", "b", "c", "1", "3", "Nothing", "Record 1 rows"},
		},
		{"raw", output.Raw{Bytes: []byte("hi\xff")}, []string{"hi�"}},
		{
			"raw failure",
			output.Raw{Err: &output.StreamError{Err: errors.New("boom")}},
			[]string{"Error reading raw stream: boom"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := r.Output(tt.in)
			for _, w := range tt.want {
				assert.Contains(t, got, w)
			}
		})
	}
}

func TestRenderer_Placeholder(t *testing.T) {
	r := NewRenderer(DefaultStyles(), "∅")
	assert.Contains(t, r.Output(output.Empty{}), "∅")
	assert.NotContains(t, r.Output(output.Empty{}), "Nothing")
}

func TestRenderer_TableIsAligned(t *testing.T) {
	r := NewRenderer(NewStyles(LightTheme()), "")
	tbl := output.Synthesize([]value.Value{rec("name", "a"), rec("name", "longer-name")})

	lines := strings.Split(r.Output(tbl), "\n")
	assert.Len(t, lines, 4) // header, divider, two rows
	assert.Equal(t, len([]rune(lines[2])), len([]rune(lines[3])))
}

func TestRenderer_Errors(t *testing.T) {
	r := NewRenderer(DefaultStyles(), "")
	assert.Contains(t, r.Error(errors.New("failed to parse command: x")), "Error: failed to parse command: x")
	assert.Contains(t, r.InitError(errors.New("I/O error: y")), "Error initialising shell: I/O error: y")
}

func TestRawCause(t *testing.T) {
	cause := errors.New("boom")
	wrapped := fmt.Errorf("drain: %w", &output.StreamError{Err: cause})

	assert.Equal(t, cause, rawCause(&output.StreamError{Err: cause}))
	assert.Equal(t, cause, rawCause(wrapped))
	assert.Equal(t, cause, rawCause(cause))

	r := NewRenderer(DefaultStyles(), "")
	assert.Contains(t, r.Output(output.Raw{Err: wrapped}), "Error reading raw stream: boom")
}

func TestSummary(t *testing.T) {
	s, ok := Summary(rec("a", 1, "b", 2))
	assert.True(t, ok)
	assert.Equal(t, "Record 2 rows", s)

	s, ok = Summary(value.List())
	assert.True(t, ok)
	assert.Equal(t, "List 0 rows", s)

	_, ok = Summary(value.Scalar(1))
	assert.False(t, ok)
}

func TestThemeByName(t *testing.T) {
	assert.False(t, ThemeByName("light").IsDark)
	assert.True(t, ThemeByName("dark").IsDark)
	assert.True(t, ThemeByName("unknown").IsDark)
}

func TestSimpleTable(t *testing.T) {
	table := NewSimpleTable([]string{"Col1", "Col2"})
	table.AddRow("Row1Col1", "Row1Col2")
	table.AddRow("short")

	view := table.View(DefaultStyles())
	assert.Contains(t, view, "Col1")
	assert.Contains(t, view, "Row1Col2")
	assert.Contains(t, view, "short")
	assert.Equal(t, 4, strings.Count(view, "\n"))
}
