package shell

import "fmt"

// ErrorKind classifies why a line could not be evaluated.
type ErrorKind int

const (
	// KindParse means the line is not valid Go source.
	KindParse ErrorKind = iota
	// KindEval covers type errors, runtime panics and failed command starts.
	KindEval
	// KindIO means the session environment could not be set up.
	KindIO
)

func (k ErrorKind) String() string {
	switch k {
	case KindParse:
		return "parse"
	case KindEval:
		return "eval"
	case KindIO:
		return "io"
	default:
		return "unknown"
	}
}

// EvalError is returned by New and Session.Evaluate.
type EvalError struct {
	Kind ErrorKind
	Line string // empty for start-up failures
	Err  error
}

func (e *EvalError) Error() string {
	switch e.Kind {
	case KindParse:
		return fmt.Sprintf("failed to parse command: %v", e.Err)
	case KindIO:
		return fmt.Sprintf("I/O error: %v", e.Err)
	default:
		return fmt.Sprintf("failed to evaluate command: %v", e.Err)
	}
}

func (e *EvalError) Unwrap() error { return e.Err }

func ioError(err error) *EvalError {
	return &EvalError{Kind: KindIO, Err: err}
}
