// Package output normalizes raw evaluation results into a small display model.
//
// Classify turns any pipeline.Data into exactly one Output variant. Lazy
// sequences and byte streams are drained completely before classification, and
// a list made entirely of records is synthesized into a rectangular Table.
// Renderers switch on the concrete Output type and must not reinterpret it.
package output

import (
	"fmt"

	"pipedream/internal/value"
)

// Output is one of Empty, Value, List, *Table or Raw.
type Output interface {
	isOutput()
}

// Empty means the evaluation produced no result.
type Empty struct{}

// Value is a single non-list result.
type Value struct {
	V value.Value
}

// List is a list whose elements are not uniformly records.
type List struct {
	Values []value.Value
}

// Raw is a fully drained byte stream. Exactly one of Bytes and Err is
// meaningful: when Err is set the bytes read before the failure are dropped.
type Raw struct {
	Bytes []byte
	Err   error
}

func (Empty) isOutput()  {}
func (Value) isOutput()  {}
func (List) isOutput()   {}
func (*Table) isOutput() {}
func (Raw) isOutput()    {}

// OK reports whether the stream drained without error.
func (r Raw) OK() bool { return r.Err == nil }

// StreamError is the failure that stopped a byte stream from draining.
type StreamError struct {
	Err error
}

func (e *StreamError) Error() string {
	return fmt.Sprintf("stream failed: %v", e.Err)
}

func (e *StreamError) Unwrap() error { return e.Err }

// Name is the variant name, used in logs and JSON output.
func Name(o Output) string {
	switch o.(type) {
	case Empty:
		return "empty"
	case Value:
		return "value"
	case List:
		return "list"
	case *Table:
		return "table"
	case Raw:
		return "raw"
	default:
		return "unknown"
	}
}

// Equal reports whether two outputs hold the same variant and content.
func Equal(a, b Output) bool {
	switch x := a.(type) {
	case Empty:
		_, ok := b.(Empty)
		return ok
	case Value:
		y, ok := b.(Value)
		return ok && x.V.Equal(y.V)
	case List:
		y, ok := b.(List)
		return ok && valuesEqual(x.Values, y.Values)
	case *Table:
		y, ok := b.(*Table)
		return ok && x.Equal(y)
	case Raw:
		y, ok := b.(Raw)
		if !ok || (x.Err == nil) != (y.Err == nil) {
			return false
		}
		if x.Err != nil {
			return x.Err.Error() == y.Err.Error()
		}
		return string(x.Bytes) == string(y.Bytes)
	}
	return false
}

func valuesEqual(a, b []value.Value) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !a[i].Equal(b[i]) {
			return false
		}
	}
	return true
}
