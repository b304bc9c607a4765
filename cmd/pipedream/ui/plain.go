package ui

import (
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"
	jsoniter "github.com/json-iterator/go"

	"pipedream/internal/output"
	"pipedream/internal/value"
)

// Plain writes o as uncolored text suitable for pipes and scripts.
func Plain(w io.Writer, o output.Output, placeholder string) error {
	if placeholder == "" {
		placeholder = "Nothing"
	}
	p := plain{placeholder: placeholder}

	var text string
	switch o := o.(type) {
	case output.Empty:
		text = placeholder
	case output.Value:
		text = p.value(o.V)
	case output.List:
		lines := make([]string, len(o.Values))
		for i, v := range o.Values {
			lines[i] = p.value(v)
		}
		text = strings.Join(lines, "\n")
	case *output.Table:
		text = p.table(o)
	case output.Raw:
		if !o.OK() {
			text = fmt.Sprintf("Error reading raw stream: %v", rawCause(o.Err))
		} else {
			// raw text keeps its own line endings
			_, err := io.WriteString(w, LossyText(o.Bytes))
			return err
		}
	default:
		return fmt.Errorf("unsupported output %T", o)
	}
	_, err := fmt.Fprintln(w, text)
	return err
}

type plain struct {
	placeholder string
}

func (p plain) value(v value.Value) string {
	switch v.Kind() {
	case value.KindNothing:
		return p.placeholder
	case value.KindError:
		return "Error: " + v.ErrorMessage()
	case value.KindRecord:
		tw := table.NewWriter()
		tw.SetStyle(table.StyleLight)
		cols, vals := v.Columns(), v.Values()
		for i := range cols {
			tw.AppendRow(table.Row{cols[i], p.cell(vals[i])})
		}
		return tw.Render()
	case value.KindList:
		elems := v.Elements()
		lines := make([]string, len(elems))
		for i, e := range elems {
			lines[i] = p.cell(e)
		}
		return strings.Join(lines, "\n")
	default:
		return v.String()
	}
}

func (p plain) cell(v value.Value) string {
	if s, ok := Summary(v); ok {
		return s
	}
	return p.value(v)
}

func (p plain) table(t *output.Table) string {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleLight)

	header := make(table.Row, 0, t.Width())
	for _, h := range t.Header() {
		header = append(header, h)
	}
	tw.AppendHeader(header)

	for _, row := range t.Rows() {
		r := make(table.Row, len(row))
		for i, c := range row {
			r[i] = p.cell(c)
		}
		tw.AppendRow(r)
	}
	tw.SetCaption("%s rows", humanize.Comma(int64(t.Len())))
	return tw.Render()
}

// JSON writes o as a single JSON document. Record columns keep their order.
func JSON(w io.Writer, o output.Output) error {
	stream := jsoniter.NewStream(jsoniter.ConfigCompatibleWithStandardLibrary, w, 512)

	stream.WriteObjectStart()
	stream.WriteObjectField("kind")
	stream.WriteString(output.Name(o))

	switch o := o.(type) {
	case output.Value:
		stream.WriteMore()
		stream.WriteObjectField("value")
		writeValue(stream, o.V)
	case output.List:
		stream.WriteMore()
		stream.WriteObjectField("values")
		writeValues(stream, o.Values)
	case *output.Table:
		stream.WriteMore()
		stream.WriteObjectField("header")
		stream.WriteVal(nonNil(o.Header()))
		stream.WriteMore()
		stream.WriteObjectField("rows")
		stream.WriteArrayStart()
		for i, row := range o.Rows() {
			if i > 0 {
				stream.WriteMore()
			}
			writeValues(stream, row)
		}
		stream.WriteArrayEnd()
	case output.Raw:
		stream.WriteMore()
		if !o.OK() {
			stream.WriteObjectField("error")
			stream.WriteString(rawCause(o.Err).Error())
			break
		}
		stream.WriteObjectField("size")
		stream.WriteString(humanize.Bytes(uint64(len(o.Bytes))))
		stream.WriteMore()
		stream.WriteObjectField("text")
		stream.WriteString(LossyText(o.Bytes))
	}
	stream.WriteObjectEnd()
	stream.WriteRaw("\n")

	if stream.Error != nil {
		return stream.Error
	}
	return stream.Flush()
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func writeValues(stream *jsoniter.Stream, vals []value.Value) {
	stream.WriteArrayStart()
	for i, v := range vals {
		if i > 0 {
			stream.WriteMore()
		}
		writeValue(stream, v)
	}
	stream.WriteArrayEnd()
}

func writeValue(stream *jsoniter.Stream, v value.Value) {
	switch v.Kind() {
	case value.KindNothing:
		stream.WriteNil()
	case value.KindError:
		stream.WriteObjectStart()
		stream.WriteObjectField("error")
		stream.WriteString(v.ErrorMessage())
		stream.WriteObjectEnd()
	case value.KindRecord:
		stream.WriteObjectStart()
		cols, vals := v.Columns(), v.Values()
		for i := range cols {
			if i > 0 {
				stream.WriteMore()
			}
			stream.WriteObjectField(cols[i])
			writeValue(stream, vals[i])
		}
		stream.WriteObjectEnd()
	case value.KindList:
		writeValues(stream, v.Elements())
	default:
		switch s := v.Interface().(type) {
		case string, bool, int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
			stream.WriteVal(s)
		case float64:
			writeFloat(stream, s, v)
		case float32:
			writeFloat(stream, float64(s), v)
		default:
			// times, durations, byte slices and anything else use the display form
			stream.WriteString(v.String())
		}
	}
}

// writeFloat falls back to the display form for values JSON cannot carry.
func writeFloat(stream *jsoniter.Stream, f float64, v value.Value) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		stream.WriteString(v.String())
		return
	}
	stream.WriteFloat64(f)
}
