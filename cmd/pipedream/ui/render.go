package ui

import (
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"pipedream/internal/output"
	"pipedream/internal/value"
)

// Renderer turns classified output into styled terminal text. It only lays
// out what the classifier decided; it never builds tables of its own.
type Renderer struct {
	styles      Styles
	placeholder string
}

// NewRenderer creates a renderer. placeholder is shown for absent values.
func NewRenderer(styles Styles, placeholder string) *Renderer {
	if placeholder == "" {
		placeholder = "Nothing"
	}
	return &Renderer{styles: styles, placeholder: placeholder}
}

// Styles returns the styles in use.
func (r *Renderer) Styles() Styles { return r.styles }

// Output renders one evaluation result.
func (r *Renderer) Output(o output.Output) string {
	switch o := o.(type) {
	case output.Empty:
		return r.nothing()
	case output.Value:
		return r.Value(o.V)
	case output.List:
		lines := make([]string, len(o.Values))
		for i, v := range o.Values {
			lines[i] = r.Value(v)
		}
		return lipgloss.JoinVertical(lipgloss.Left, lines...)
	case *output.Table:
		return r.table(o)
	case output.Raw:
		if !o.OK() {
			return r.styles.Error.Render(fmt.Sprintf("Error reading raw stream: %v", rawCause(o.Err)))
		}
		return LossyText(o.Bytes)
	default:
		return r.styles.Error.Render(fmt.Sprintf("unrenderable output %T", o))
	}
}

// Error renders an evaluation failure.
func (r *Renderer) Error(err error) string {
	return r.styles.Error.Render("Error: " + err.Error())
}

// InitError renders a failure to start the shell session.
func (r *Renderer) InitError(err error) string {
	return r.styles.Error.Render("Error initialising shell: " + err.Error())
}

// Value renders a single value in full. Records become a key column beside
// a value column; nested structures inside them are summarized.
func (r *Renderer) Value(v value.Value) string {
	switch v.Kind() {
	case value.KindNothing:
		return r.nothing()
	case value.KindError:
		return r.styles.Error.Render(v.ErrorMessage())
	case value.KindRecord:
		keys := make([]string, 0, v.Len())
		for _, c := range v.Columns() {
			keys = append(keys, r.styles.Emphasis.Render(c))
		}
		cells := make([]string, 0, v.Len())
		for _, c := range v.Values() {
			cells = append(cells, r.cell(c))
		}
		keyCol := lipgloss.NewStyle().Align(lipgloss.Right).Render(strings.Join(keys, "\n"))
		valCol := lipgloss.NewStyle().PaddingLeft(2).Render(strings.Join(cells, "\n"))
		return lipgloss.JoinHorizontal(lipgloss.Top, keyCol, valCol)
	case value.KindList:
		elems := v.Elements()
		lines := make([]string, len(elems))
		for i, e := range elems {
			lines[i] = r.cell(e)
		}
		return strings.Join(lines, "\n")
	default:
		return v.String()
	}
}

// cell renders a value that sits inside a record or table.
func (r *Renderer) cell(v value.Value) string {
	if s, ok := Summary(v); ok {
		return s
	}
	return r.Value(v)
}

func (r *Renderer) table(t *output.Table) string {
	st := NewSimpleTable(t.Header())
	for _, row := range t.Rows() {
		cells := make([]string, len(row))
		for i, c := range row {
			cells[i] = r.cell(c)
		}
		st.AddRow(cells...)
	}
	return strings.TrimRight(st.View(r.styles), "\n")
}

func (r *Renderer) nothing() string {
	return r.styles.Shadow.Render(r.placeholder)
}

// Summary describes nested records and lists by size, as they appear inside
// a cell. It reports false for every other kind.
func Summary(v value.Value) (string, bool) {
	switch v.Kind() {
	case value.KindRecord:
		return fmt.Sprintf("Record %d rows", v.Len()), true
	case value.KindList:
		return fmt.Sprintf("List %d rows", v.Len()), true
	}
	return "", false
}

// LossyText decodes raw bytes as UTF-8, replacing invalid sequences.
func LossyText(b []byte) string {
	return strings.ToValidUTF8(string(b), "�")
}

// rawCause drops the StreamError wrapper so messages read
// "Error reading raw stream: <cause>".
func rawCause(err error) error {
	var se *output.StreamError
	if errors.As(err, &se) && se.Err != nil {
		return se.Err
	}
	return err
}
