package tactile

import (
	"context"
	"io"
)

// Executor is the interface for command execution.
type Executor interface {
	// Stream starts cmd and returns its standard output. Closing the reader
	// releases the process's stdout; the process is always waited for.
	Stream(ctx context.Context, cmd Command) (io.ReadCloser, error)

	// Validate checks if a command can be executed by this executor.
	Validate(cmd Command) error
}
