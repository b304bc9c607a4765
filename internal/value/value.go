// Package value provides the structured value model shared by the shell
// session, the output classifier and the renderers.
//
// A Value is one of a closed set of shapes: Nothing, Error, Scalar, Record or
// List. Engine results are translated into this set at the session boundary so
// that every consumer can switch on Kind instead of probing dynamic types.
// Values are immutable; every accessor that returns a slice returns a copy.
package value

import (
	"bytes"
	"fmt"
	"math"
	"reflect"
	"strings"
	"time"
)

// Kind identifies which shape a Value holds.
type Kind int

const (
	KindNothing Kind = iota // absent value
	KindError               // error carried as data
	KindScalar              // string, number, bool, time, bytes...
	KindRecord              // ordered column -> value mapping
	KindList                // ordered sequence of values
)

func (k Kind) String() string {
	switch k {
	case KindNothing:
		return "nothing"
	case KindError:
		return "error"
	case KindScalar:
		return "scalar"
	case KindRecord:
		return "record"
	case KindList:
		return "list"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Value is a structured value. The zero Value is Nothing.
type Value struct {
	kind   Kind
	msg    string   // KindError
	scalar any      // KindScalar
	cols   []string // KindRecord
	vals   []Value  // KindRecord values, KindList elements
}

// Nothing returns the absent value.
func Nothing() Value {
	return Value{}
}

// Error returns an error value carrying msg.
func Error(msg string) Value {
	return Value{kind: KindError, msg: msg}
}

// FromError returns an error value for err, or Nothing when err is nil.
func FromError(err error) Value {
	if err == nil {
		return Nothing()
	}
	return Error(err.Error())
}

// Scalar wraps a Go scalar. A nil scalar is Nothing and a Value is returned
// unchanged.
func Scalar(v any) Value {
	switch x := v.(type) {
	case nil:
		return Nothing()
	case Value:
		return x
	case []byte:
		return Value{kind: KindScalar, scalar: bytes.Clone(x)}
	}
	return Value{kind: KindScalar, scalar: v}
}

// Record builds a keyed record. Columns must be unique and match vals one to
// one; the column order is preserved.
func Record(cols []string, vals []Value) (Value, error) {
	if len(cols) != len(vals) {
		return Value{}, fmt.Errorf("record has %d columns but %d values", len(cols), len(vals))
	}
	seen := make(map[string]struct{}, len(cols))
	for _, c := range cols {
		if _, dup := seen[c]; dup {
			return Value{}, fmt.Errorf("duplicate record column %q", c)
		}
		seen[c] = struct{}{}
	}
	return Value{
		kind: KindRecord,
		cols: append([]string(nil), cols...),
		vals: append([]Value(nil), vals...),
	}, nil
}

// MustRecord is like Record but panics on invalid input. Intended for
// literals and tests.
func MustRecord(cols []string, vals []Value) Value {
	v, err := Record(cols, vals)
	if err != nil {
		panic(err)
	}
	return v
}

// List builds a list value from elems.
func List(elems ...Value) Value {
	return Value{kind: KindList, vals: append([]Value{}, elems...)}
}

// Kind reports the shape of v.
func (v Value) Kind() Kind { return v.kind }

// IsNothing reports whether v is the absent value. Renderers use it to show a
// placeholder that is distinct from an empty string.
func (v Value) IsNothing() bool { return v.kind == KindNothing }

func (v Value) IsRecord() bool { return v.kind == KindRecord }

func (v Value) IsList() bool { return v.kind == KindList }

// ErrorMessage returns the message of an error value.
func (v Value) ErrorMessage() string { return v.msg }

// Interface returns the wrapped Go scalar, or nil for non-scalars.
func (v Value) Interface() any {
	if b, ok := v.scalar.([]byte); ok {
		return bytes.Clone(b)
	}
	return v.scalar
}

// Columns returns the record's column names in order.
func (v Value) Columns() []string {
	if v.kind != KindRecord {
		return nil
	}
	return append([]string(nil), v.cols...)
}

// Values returns the record's values in column order.
func (v Value) Values() []Value {
	if v.kind != KindRecord {
		return nil
	}
	return append([]Value(nil), v.vals...)
}

// Elements returns the list's elements.
func (v Value) Elements() []Value {
	if v.kind != KindList {
		return nil
	}
	return append([]Value{}, v.vals...)
}

// Len is the number of record columns or list elements.
func (v Value) Len() int {
	if v.kind == KindRecord || v.kind == KindList {
		return len(v.vals)
	}
	return 0
}

// Get looks up a record column.
func (v Value) Get(col string) (Value, bool) {
	if v.kind != KindRecord {
		return Value{}, false
	}
	for i, c := range v.cols {
		if c == col {
			return v.vals[i], true
		}
	}
	return Value{}, false
}

// Clone returns a deep copy of v.
func (v Value) Clone() Value {
	out := Value{kind: v.kind, msg: v.msg, scalar: v.scalar}
	if b, ok := v.scalar.([]byte); ok {
		out.scalar = bytes.Clone(b)
	}
	if v.cols != nil {
		out.cols = append([]string(nil), v.cols...)
	}
	if v.vals != nil {
		out.vals = make([]Value, len(v.vals))
		for i, e := range v.vals {
			out.vals[i] = e.Clone()
		}
	}
	return out
}

// Equal reports whether v and o hold the same shape and content.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindNothing:
		return true
	case KindError:
		return v.msg == o.msg
	case KindScalar:
		return scalarEqual(v.scalar, o.scalar)
	case KindRecord:
		if len(v.cols) != len(o.cols) {
			return false
		}
		for i := range v.cols {
			if v.cols[i] != o.cols[i] || !v.vals[i].Equal(o.vals[i]) {
				return false
			}
		}
		return true
	case KindList:
		if len(v.vals) != len(o.vals) {
			return false
		}
		for i := range v.vals {
			if !v.vals[i].Equal(o.vals[i]) {
				return false
			}
		}
		return true
	}
	return false
}

func scalarEqual(a, b any) bool {
	switch x := a.(type) {
	case []byte:
		y, ok := b.([]byte)
		return ok && bytes.Equal(x, y)
	case time.Time:
		y, ok := b.(time.Time)
		return ok && x.Equal(y)
	}

	// NaN equals NaN here so that equal inputs always give equal values.
	ra, rb := reflect.ValueOf(a), reflect.ValueOf(b)
	if ra.IsValid() && rb.IsValid() && ra.Type() == rb.Type() {
		switch ra.Kind() {
		case reflect.Float32, reflect.Float64:
			return floatEqual(ra.Float(), rb.Float())
		case reflect.Complex64, reflect.Complex128:
			x, y := ra.Complex(), rb.Complex()
			return floatEqual(real(x), real(y)) && floatEqual(imag(x), imag(y))
		}
	}
	return reflect.DeepEqual(a, b)
}

func floatEqual(x, y float64) bool {
	return x == y || (math.IsNaN(x) && math.IsNaN(y))
}

// String renders v for humans. Nothing renders as the empty string; callers
// that need a placeholder should check IsNothing first.
func (v Value) String() string {
	switch v.kind {
	case KindNothing:
		return ""
	case KindError:
		return v.msg
	case KindScalar:
		return FormatScalar(v.scalar)
	case KindRecord:
		var sb strings.Builder
		sb.WriteByte('{')
		for i, c := range v.cols {
			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(c)
			sb.WriteString(": ")
			sb.WriteString(v.vals[i].String())
		}
		sb.WriteByte('}')
		return sb.String()
	case KindList:
		parts := make([]string, len(v.vals))
		for i, e := range v.vals {
			parts[i] = e.String()
		}
		return "[" + strings.Join(parts, ", ") + "]"
	}
	return ""
}

// GoString keeps %#v output readable in test failures.
func (v Value) GoString() string {
	return fmt.Sprintf("value.%s(%s)", v.kind, v.String())
}
