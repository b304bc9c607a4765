package tactile

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"

	"pipedream/internal/logging"
)

// DirectExecutor executes commands directly on the host using os/exec.
type DirectExecutor struct {
	mu     sync.RWMutex
	config ExecutorConfig

	// auditCallback is called for execution events
	auditCallback func(AuditEvent)
}

// NewDirectExecutorWithConfig creates a new direct executor with custom config.
func NewDirectExecutorWithConfig(config ExecutorConfig) *DirectExecutor {
	if config.MaxStderrBytes <= 0 {
		config.MaxStderrBytes = DefaultExecutorConfig().MaxStderrBytes
	}
	logging.TactileDebug("Creating DirectExecutor: allowed=%v dir=%s",
		config.AllowedBinaries, config.WorkingDirectory)
	return &DirectExecutor{config: config}
}

// SetAuditCallback sets the callback for audit events.
func (e *DirectExecutor) SetAuditCallback(callback func(AuditEvent)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.auditCallback = callback
}

func (e *DirectExecutor) emitAudit(event AuditEvent) {
	e.mu.RLock()
	callback := e.auditCallback
	e.mu.RUnlock()

	if callback != nil {
		callback(event)
	}
}

// Validate checks if a command can be executed.
func (e *DirectExecutor) Validate(cmd Command) error {
	if cmd.Binary == "" {
		return fmt.Errorf("binary is required")
	}
	e.mu.RLock()
	allowed := e.config.IsAllowed(cmd.Binary)
	e.mu.RUnlock()
	if !allowed {
		return fmt.Errorf("binary not allowed: %s", cmd.Binary)
	}
	return nil
}

// Stream starts cmd and returns a reader over its standard output.
//
// A failure to start is returned directly. Anything that goes wrong after
// the start (non-zero exit, signal, broken pipe) surfaces as an *ExitError
// from the reader once the output written so far has been consumed.
func (e *DirectExecutor) Stream(ctx context.Context, cmd Command) (io.ReadCloser, error) {
	if err := e.Validate(cmd); err != nil {
		logging.TactileWarn("Command validation failed: %s - %v", cmd.CommandString(), err)
		return nil, err
	}

	e.mu.RLock()
	cfg := e.config
	e.mu.RUnlock()
	cmd = cfg.Merge(cmd)

	logging.TactileDebug("Streaming: %s (dir=%s, request=%s)", cmd.CommandString(), cmd.WorkingDirectory, cmd.RequestID)

	execCmd := exec.CommandContext(ctx, cmd.Binary, cmd.Arguments...)
	execCmd.Dir = cmd.WorkingDirectory
	execCmd.Env = buildEnvironment(cfg.AllowedEnvironment, cmd.Environment)

	pr, pw := io.Pipe()
	var stderrBuf bytes.Buffer
	execCmd.Stdout = pw
	execCmd.Stderr = &limitedWriter{w: &stderrBuf, max: cfg.MaxStderrBytes}

	started := time.Now()
	if err := execCmd.Start(); err != nil {
		pw.Close()
		pr.Close()
		logging.TactileError("Command failed to start: %s - %v", cmd.Binary, err)
		e.emitAudit(AuditEvent{
			Type:      AuditEventError,
			Timestamp: time.Now(),
			Command:   cmd,
			ExitCode:  -1,
			Error:     err.Error(),
		})
		return nil, fmt.Errorf("failed to start %s: %w", cmd.Binary, err)
	}

	e.emitAudit(AuditEvent{Type: AuditEventStart, Timestamp: started, Command: cmd})

	go func() {
		err := execCmd.Wait()
		duration := time.Since(started)
		if err == nil {
			logging.Tactile("Command completed: %s -> exit=0, duration=%s", cmd.Binary, duration)
			e.emitAudit(AuditEvent{
				Type:      AuditEventComplete,
				Timestamp: time.Now(),
				Command:   cmd,
				Duration:  duration,
			})
			pw.Close()
			return
		}

		code := -1
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			code = exitErr.ExitCode()
		}
		streamErr := &ExitError{
			Command:  cmd.CommandString(),
			ExitCode: code,
			Stderr:   stderrBuf.String(),
			Err:      err,
		}
		logging.TactileWarn("Command failed: %v", streamErr)
		e.emitAudit(AuditEvent{
			Type:      AuditEventError,
			Timestamp: time.Now(),
			Command:   cmd,
			ExitCode:  code,
			Duration:  duration,
			Error:     streamErr.Error(),
		})
		pw.CloseWithError(streamErr)
	}()

	return pr, nil
}

// buildEnvironment passes the allowed variables to the child. They are taken
// from source when the command carries an environment, otherwise from the
// host.
func buildEnvironment(allowed, source []string) []string {
	lookup := os.LookupEnv
	if source != nil {
		vars := make(map[string]string, len(source))
		for _, kv := range source {
			if k, v, ok := strings.Cut(kv, "="); ok {
				vars[k] = v
			}
		}
		lookup = func(key string) (string, bool) {
			v, ok := vars[key]
			return v, ok
		}
	}

	env := make([]string, 0, len(allowed))
	for _, key := range allowed {
		if val, ok := lookup(key); ok {
			env = append(env, key+"="+val)
		}
	}
	return env
}

// limitedWriter is an io.Writer that limits total bytes written.
type limitedWriter struct {
	w         io.Writer
	max       int64
	written   int64
	truncated bool
	discarded int64
}

func (lw *limitedWriter) Write(p []byte) (int, error) {
	n := len(p)

	if lw.written >= lw.max {
		lw.truncated = true
		lw.discarded += int64(n)
		return n, nil
	}

	remaining := lw.max - lw.written
	if int64(n) > remaining {
		lw.truncated = true
		lw.discarded += int64(n) - remaining
		written, err := lw.w.Write(p[:remaining])
		lw.written += int64(written)
		return n, err // report full length to avoid short write errors
	}

	written, err := lw.w.Write(p)
	lw.written += int64(written)
	return written, err
}
