// Package tactile runs external programs on behalf of the shell session and
// exposes their standard output as a byte stream.
//
// The stream is what the output classifier drains: bytes arrive as the
// process writes them, and if the process cannot be waited for or exits
// non-zero, the final Read returns an *ExitError instead of io.EOF.
package tactile

import (
	"fmt"
	"strings"
	"time"
)

// Command represents a command to be executed.
type Command struct {
	// Binary is the executable to run (e.g., "ls", "git", "sh").
	Binary string `json:"binary"`

	// Arguments are the command-line arguments.
	Arguments []string `json:"arguments"`

	// WorkingDirectory is the directory to execute in.
	// If empty, uses the executor's default working directory.
	WorkingDirectory string `json:"working_directory,omitempty"`

	// Environment is the caller's environment in KEY=VALUE format. The
	// executor's allowed variables are looked up here instead of in the
	// host environment when it is set.
	Environment []string `json:"environment,omitempty"`

	// RequestID links this execution to one shell evaluation.
	RequestID string `json:"request_id,omitempty"`
}

// CommandString returns the full command as a string (for display/logging).
func (c Command) CommandString() string {
	if len(c.Arguments) == 0 {
		return c.Binary
	}
	return c.Binary + " " + strings.Join(c.Arguments, " ")
}

// ExitError is returned from the stream's final Read when the process failed.
type ExitError struct {
	Command  string
	ExitCode int    // -1 when the process did not exit normally
	Stderr   string // tail of standard error
	Err      error
}

func (e *ExitError) Error() string {
	msg := fmt.Sprintf("%s exited with code %d", e.Command, e.ExitCode)
	if e.ExitCode < 0 && e.Err != nil {
		msg = fmt.Sprintf("%s failed: %v", e.Command, e.Err)
	}
	if s := strings.TrimSpace(e.Stderr); s != "" {
		msg += ": " + s
	}
	return msg
}

func (e *ExitError) Unwrap() error { return e.Err }

// AuditEventType categorizes execution events.
type AuditEventType string

const (
	AuditEventStart    AuditEventType = "start"
	AuditEventComplete AuditEventType = "complete"
	AuditEventError    AuditEventType = "error"
)

// AuditEvent describes one step of a command's lifecycle.
type AuditEvent struct {
	Type      AuditEventType `json:"type"`
	Timestamp time.Time      `json:"timestamp"`
	Command   Command        `json:"command"`
	ExitCode  int            `json:"exit_code"`
	Duration  time.Duration  `json:"duration,omitempty"`
	Error     string         `json:"error,omitempty"`
}

// ExecutorConfig holds executor-wide defaults.
type ExecutorConfig struct {
	// AllowedBinaries restricts what can run; empty allows everything.
	AllowedBinaries []string `json:"allowed_binaries,omitempty"`

	// AllowedEnvironment lists the variables passed to children.
	AllowedEnvironment []string `json:"allowed_environment,omitempty"`

	// WorkingDirectory is the default working directory.
	WorkingDirectory string `json:"working_directory,omitempty"`

	// MaxStderrBytes bounds how much stderr is kept for error messages.
	MaxStderrBytes int64 `json:"max_stderr_bytes"`
}

// DefaultExecutorConfig returns the default executor configuration.
func DefaultExecutorConfig() ExecutorConfig {
	return ExecutorConfig{
		AllowedEnvironment: []string{"PATH", "HOME", "USER", "LANG", "TERM"},
		WorkingDirectory:   ".",
		MaxStderrBytes:     64 * 1024,
	}
}

// Merge fills unset command fields from the config.
func (c ExecutorConfig) Merge(cmd Command) Command {
	if cmd.WorkingDirectory == "" {
		cmd.WorkingDirectory = c.WorkingDirectory
	}
	return cmd
}

// IsAllowed reports whether binary may run under this config.
func (c ExecutorConfig) IsAllowed(binary string) bool {
	if len(c.AllowedBinaries) == 0 {
		return true
	}
	for _, b := range c.AllowedBinaries {
		if b == binary {
			return true
		}
	}
	return false
}
