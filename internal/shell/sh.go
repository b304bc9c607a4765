package shell

import (
	"context"
	"fmt"
	"io"
	"reflect"

	"github.com/traefik/yaegi/interp"

	"pipedream/internal/tactile"
	"pipedream/internal/value"
)

// shPackage is the import path of the built-in helper package. Lines use it
// as `import "pipedream/sh"` and call sh.Rec, sh.List, sh.Env, sh.Cwd and
// sh.Exec.
const shPackage = "pipedream/sh"

// exports binds the sh helpers to this session's environment and executor.
func (s *Session) exports() interp.Exports {
	return interp.Exports{
		shPackage + "/sh": {
			"Value": reflect.ValueOf((*value.Value)(nil)),
			"Rec":   reflect.ValueOf(Rec),
			"List":  reflect.ValueOf(List),
			"Env":   reflect.ValueOf(s.Getenv),
			"Cwd":   reflect.ValueOf(s.Cwd),
			"Exec":  reflect.ValueOf(s.execBinary),
		},
	}
}

// Rec builds a record from alternating column names and values:
// Rec("name", "a", "size", 3). Malformed arguments produce an error value.
func Rec(kv ...any) value.Value {
	if len(kv)%2 != 0 {
		return value.Error(fmt.Sprintf("sh.Rec: odd number of arguments (%d)", len(kv)))
	}
	cols := make([]string, 0, len(kv)/2)
	vals := make([]value.Value, 0, len(kv)/2)
	for i := 0; i < len(kv); i += 2 {
		cols = append(cols, fmt.Sprint(kv[i]))
		vals = append(vals, toValue(reflect.ValueOf(kv[i+1])))
	}
	rec, err := value.Record(cols, vals)
	if err != nil {
		return value.Error("sh.Rec: " + err.Error())
	}
	return rec
}

// List builds a list value, converting each element.
func List(elems ...any) value.Value {
	vals := make([]value.Value, len(elems))
	for i, e := range elems {
		vals[i] = toValue(reflect.ValueOf(e))
	}
	return value.List(vals...)
}

// execBinary streams the stdout of bin. A start failure is reported by the
// first Read so the call stays usable as a single expression.
func (s *Session) execBinary(bin string, args ...string) io.ReadCloser {
	r, err := s.stream(bin, args)
	if err != nil {
		return failedStream{err: err}
	}
	return r
}

func (s *Session) stream(bin string, args []string) (io.ReadCloser, error) {
	if !s.cfg.AllowExec {
		return nil, fmt.Errorf("command execution is disabled")
	}
	r, err := s.exec.Stream(context.Background(), tactile.Command{
		Binary:           bin,
		Arguments:        args,
		WorkingDirectory: s.cwd,
		Environment:      s.Environ(),
		RequestID:        s.requestID,
	})
	if err != nil {
		return nil, err
	}
	if reflect.ValueOf(r).Comparable() {
		s.streams[r] = struct{}{}
	}
	return r, nil
}

// ownsStream reports whether r was started by this session, and forgets it:
// the caller that drains r is responsible for closing it.
func (s *Session) ownsStream(r io.Reader) bool {
	rc, ok := r.(io.ReadCloser)
	if !ok || !reflect.ValueOf(rc).Comparable() {
		return false
	}
	if _, ok := s.streams[rc]; !ok {
		return false
	}
	delete(s.streams, rc)
	return true
}

type failedStream struct{ err error }

func (f failedStream) Read([]byte) (int, error) { return 0, f.err }
func (f failedStream) Close() error             { return nil }
