package output

import (
	"io"

	"pipedream/internal/logging"
	"pipedream/internal/pipeline"
	"pipedream/internal/value"
)

// Classify materializes data and maps it to exactly one Output. It never
// fails: a byte stream that breaks while draining becomes a Raw carrying a
// *StreamError.
//
// A list at the top level, either a List-valued single result or a drained
// ListStream, is flattened once and checked for records. Lists nested inside
// it are left alone.
func Classify(data pipeline.Data) Output {
	timer := logging.StartTimer(logging.CategoryOutput, "classify")
	defer timer.Stop()

	var out Output
	switch d := data.(type) {
	case nil, pipeline.Empty:
		out = Empty{}
	case pipeline.Value:
		if d.V.IsList() {
			out = FromValues(d.V.Elements())
		} else {
			out = Value{V: d.V}
		}
	case pipeline.ListStream:
		var vals []value.Value
		if d.Seq != nil {
			for v := range d.Seq {
				vals = append(vals, v)
			}
		}
		out = FromValues(vals)
	case pipeline.ByteStream:
		out = drain(d.R)
	default:
		logging.OutputWarn("unknown pipeline data %T, treating as empty", data)
		out = Empty{}
	}

	logging.OutputDebug("classified %T as %s", data, Name(out))
	return out
}

// FromValues applies the list rule: a list made only of records becomes a
// Table, anything else stays a List. An empty list is an empty Table.
func FromValues(vals []value.Value) Output {
	for _, v := range vals {
		if !v.IsRecord() {
			return List{Values: vals}
		}
	}
	return Synthesize(vals)
}

func drain(r io.Reader) Raw {
	if r == nil {
		return Raw{Bytes: []byte{}}
	}
	if c, ok := r.(io.Closer); ok {
		defer c.Close()
	}
	b, err := io.ReadAll(r)
	if err != nil {
		logging.OutputWarn("byte stream failed after %d bytes: %v", len(b), err)
		return Raw{Err: &StreamError{Err: err}}
	}
	return Raw{Bytes: b}
}
