package shell

import (
	"fmt"
	"io"
	"os"
	"reflect"
	"time"

	"github.com/facette/natsort"

	"pipedream/internal/pipeline"
	"pipedream/internal/value"
)

var (
	valueType    = reflect.TypeOf(value.Value{})
	errorType    = reflect.TypeOf((*error)(nil)).Elem()
	readerType   = reflect.TypeOf((*io.Reader)(nil)).Elem()
	timeType     = reflect.TypeOf(time.Time{})
	durationType = reflect.TypeOf(time.Duration(0))
)

// maxDepth bounds how deeply nested a converted value may be.
const maxDepth = 256

// toPipeline maps an interpreter result onto the raw pipeline shapes.
// Channels and readers stay lazy; everything else becomes a single value.
// Only readers for which owned reports true are closed after draining.
func toPipeline(rv reflect.Value, owned func(io.Reader) bool) pipeline.Data {
	if !rv.IsValid() {
		return pipeline.Empty{}
	}
	rv = unwrapInterface(rv)
	if !rv.IsValid() {
		return pipeline.Value{V: value.Nothing()}
	}

	if rv.Type() != valueType && rv.CanInterface() && rv.Type().Implements(readerType) {
		if isNilable(rv) && rv.IsNil() {
			return pipeline.Value{V: value.Nothing()}
		}
		r := rv.Interface().(io.Reader)
		if f, ok := r.(*os.File); ok && isStdio(f) {
			// the terminal owns these
			return pipeline.Value{V: value.Scalar(f.Name())}
		}
		if owned == nil || !owned(r) {
			r = struct{ io.Reader }{r}
		}
		return pipeline.ByteStream{R: r}
	}
	if rv.Kind() == reflect.Chan && rv.Type().ChanDir()&reflect.RecvDir != 0 && !rv.IsNil() {
		return pipeline.FromChannel(rv, toValue)
	}
	return pipeline.Value{V: toValue(rv)}
}

func isStdio(f *os.File) bool {
	return f == os.Stdin || f == os.Stdout || f == os.Stderr
}

// toValue converts an arbitrary reflected value into the structured value
// model. Structs and maps become records, slices and arrays become lists.
// A value that refers back to itself converts to an error value at the
// point where the cycle closes.
func toValue(rv reflect.Value) value.Value {
	c := converter{active: make(map[visit]bool)}
	return c.convert(rv)
}

// visit identifies a reference on the current conversion path. The type is
// part of the key since a struct and its first field share an address.
type visit struct {
	ptr uintptr
	typ reflect.Type
	len int
}

type converter struct {
	active map[visit]bool
	depth  int
}

func (c *converter) convert(rv reflect.Value) value.Value {
	rv = unwrapInterface(rv)
	if !rv.IsValid() {
		return value.Nothing()
	}
	t := rv.Type()

	if t == valueType && rv.CanInterface() {
		return rv.Interface().(value.Value)
	}
	if isNilable(rv) && rv.IsNil() {
		return value.Nothing()
	}
	if t.Implements(errorType) && rv.CanInterface() {
		return value.FromError(rv.Interface().(error))
	}

	switch t {
	case timeType, durationType:
		if rv.CanInterface() {
			return value.Scalar(rv.Interface())
		}
		if t == durationType {
			return value.Scalar(time.Duration(rv.Int()))
		}
	}

	switch rv.Kind() {
	case reflect.Bool:
		return value.Scalar(rv.Bool())
	case reflect.String:
		return value.Scalar(rv.String())
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		if rv.CanInterface() {
			return value.Scalar(rv.Interface())
		}
		return value.Scalar(rv.Int())
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		if rv.CanInterface() {
			return value.Scalar(rv.Interface())
		}
		return value.Scalar(rv.Uint())
	case reflect.Float32, reflect.Float64:
		if rv.CanInterface() {
			return value.Scalar(rv.Interface())
		}
		return value.Scalar(rv.Float())
	case reflect.Complex64, reflect.Complex128:
		return value.Scalar(rv.Complex())
	case reflect.Slice:
		if t.Elem().Kind() == reflect.Uint8 {
			return value.Scalar(rv.Bytes())
		}
	case reflect.Pointer, reflect.Struct, reflect.Map, reflect.Array:
	default:
		// funcs, channels nested in structures, unsafe pointers
		return value.Scalar(fmt.Sprint(rv))
	}
	return c.nested(rv)
}

// nested converts the composite kinds, guarding against cycles and runaway
// depth.
func (c *converter) nested(rv reflect.Value) value.Value {
	if c.depth >= maxDepth {
		return value.Error(fmt.Sprintf("value nested deeper than %d levels", maxDepth))
	}
	c.depth++
	defer func() { c.depth-- }()

	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice:
		v := visit{ptr: rv.Pointer(), typ: rv.Type()}
		if rv.Kind() == reflect.Slice {
			v.len = rv.Len()
		}
		if c.active[v] {
			return value.Error(fmt.Sprintf("cycle: %s refers back to itself", rv.Type()))
		}
		c.active[v] = true
		defer delete(c.active, v)
	}

	switch rv.Kind() {
	case reflect.Pointer:
		return c.convert(rv.Elem())
	case reflect.Struct:
		return c.structRecord(rv)
	case reflect.Map:
		return c.mapRecord(rv)
	default:
		return c.listValue(rv)
	}
}

func (c *converter) structRecord(rv reflect.Value) value.Value {
	t := rv.Type()
	cols := make([]string, 0, t.NumField())
	vals := make([]value.Value, 0, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		cols = append(cols, t.Field(i).Name)
		vals = append(vals, c.convert(rv.Field(i)))
	}
	rec, err := value.Record(cols, vals)
	if err != nil {
		// embedded fields can collide on name
		return value.FromError(err)
	}
	return rec
}

type mapEntry struct {
	key, val reflect.Value
}

// mapRecord orders keys naturally so "item2" sorts before "item10". Keys
// that print the same (1 and "1" in a map[any]int) get their type appended
// so neither entry is lost.
func (c *converter) mapRecord(rv reflect.Value) value.Value {
	byName := make(map[string][]mapEntry, rv.Len())
	iter := rv.MapRange()
	for iter.Next() {
		name := fmt.Sprint(iter.Key())
		byName[name] = append(byName[name], mapEntry{iter.Key(), iter.Value()})
	}

	entries := make(map[string]reflect.Value, rv.Len())
	for name, group := range byName {
		if len(group) == 1 {
			entries[name] = group[0].val
		}
	}
	for name, group := range byName {
		if len(group) == 1 {
			continue
		}
		for _, e := range group {
			n := fmt.Sprintf("%s (%s)", name, keyType(e.key))
			for i := 2; ; i++ {
				if _, taken := entries[n]; !taken {
					break
				}
				n = fmt.Sprintf("%s (%s #%d)", name, keyType(e.key), i)
			}
			entries[n] = e.val
		}
	}

	names := make([]string, 0, len(entries))
	for name := range entries {
		names = append(names, name)
	}
	natsort.Sort(names)

	vals := make([]value.Value, len(names))
	for i, name := range names {
		vals[i] = c.convert(entries[name])
	}
	return value.MustRecord(names, vals)
}

func keyType(k reflect.Value) string {
	k = unwrapInterface(k)
	if !k.IsValid() {
		return "nil"
	}
	return k.Type().String()
}

func (c *converter) listValue(rv reflect.Value) value.Value {
	elems := make([]value.Value, rv.Len())
	for i := range elems {
		elems[i] = c.convert(rv.Index(i))
	}
	return value.List(elems...)
}

func unwrapInterface(rv reflect.Value) reflect.Value {
	for rv.IsValid() && rv.Kind() == reflect.Interface {
		if rv.IsNil() {
			return reflect.Value{}
		}
		rv = rv.Elem()
	}
	return rv
}

func isNilable(rv reflect.Value) bool {
	switch rv.Kind() {
	case reflect.Chan, reflect.Func, reflect.Interface, reflect.Map, reflect.Pointer, reflect.Slice:
		return true
	}
	return false
}
