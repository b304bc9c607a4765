// Package shell owns the embedded Go interpreter and turns one input line into
// a raw pipeline result.
//
// A Session is single-threaded: Evaluate must not be called concurrently.
// Results that are lazy (channels, readers, external commands) are returned
// unconsumed; draining them is the caller's job.
package shell

import (
	"errors"
	"fmt"
	"go/scanner"
	"io"
	"os"
	"reflect"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/traefik/yaegi/interp"
	"github.com/traefik/yaegi/stdlib"

	"pipedream/internal/config"
	"pipedream/internal/logging"
	"pipedream/internal/pipeline"
	"pipedream/internal/tactile"
)

// Session is one interpreter plus the environment it was started with.
type Session struct {
	interp *interp.Interpreter
	cfg    config.ShellConfig
	shell  string
	exec   tactile.Executor

	env map[string]string
	cwd string

	id    string
	audit *logging.AuditLogger

	// requestID tags the evaluation in progress
	requestID string

	// streams started by sh.Exec that have not been handed out yet
	streams map[io.ReadCloser]struct{}
}

// Option customizes a Session.
type Option func(*sessionOptions)

type sessionOptions struct {
	environ  []string
	executor tactile.Executor
}

// WithEnviron replaces os.Environ as the imported environment.
func WithEnviron(environ []string) Option {
	return func(o *sessionOptions) { o.environ = environ }
}

// WithExecutor replaces the default host executor used for !cmd and sh.Exec.
func WithExecutor(e tactile.Executor) Option {
	return func(o *sessionOptions) { o.executor = e }
}

// New starts a session. Failures are *EvalError values of kind KindIO, or
// KindParse/KindEval when a prelude import is rejected.
func New(cfg config.ShellConfig, exe config.ExecutionConfig, opts ...Option) (*Session, error) {
	timer := logging.StartTimer(logging.CategorySession, "session start")

	o := sessionOptions{environ: os.Environ()}
	for _, opt := range opts {
		opt(&o)
	}

	s, err := start(cfg, exe, o)
	if err != nil {
		timer.Stop()
		logging.Audit().SessionError(err)
		return nil, err
	}
	s.audit.SessionStart(s.cwd, timer.Stop().Milliseconds())
	return s, nil
}

func start(cfg config.ShellConfig, exe config.ExecutionConfig, o sessionOptions) (*Session, error) {
	env, err := importEnviron(o.environ)
	if err != nil {
		logging.SessionError("Environment import failed: %v", err)
		return nil, ioError(err)
	}

	cwd, err := workingDirectory(cfg.WorkingDirectory, env)
	if err != nil {
		logging.SessionError("Working directory lookup failed: %v", err)
		return nil, ioError(err)
	}
	env["PWD"] = cwd

	id := uuid.NewString()
	s := &Session{
		cfg:     cfg,
		shell:   exe.ShellBinary,
		env:     env,
		cwd:     cwd,
		exec:    o.executor,
		id:      id,
		audit:   logging.AuditWithSession(id, logging.CategorySession),
		streams: make(map[io.ReadCloser]struct{}),
	}
	if s.exec == nil {
		direct := tactile.NewDirectExecutorWithConfig(tactile.ExecutorConfig{
			AllowedBinaries:    exe.AllowedBinaries,
			AllowedEnvironment: exe.AllowedEnvVars,
			WorkingDirectory:   cwd,
		})
		direct.SetAuditCallback(s.auditCommand)
		s.exec = direct
	}

	s.interp = interp.New(interp.Options{
		Env:          s.Environ(),
		Unrestricted: cfg.Unrestricted,
	})
	if err := s.interp.Use(stdlib.Symbols); err != nil {
		return nil, ioError(fmt.Errorf("failed to load stdlib: %w", err))
	}
	if err := s.interp.Use(s.exports()); err != nil {
		return nil, ioError(fmt.Errorf("failed to load %s: %w", shPackage, err))
	}

	for _, pkg := range cfg.Prelude {
		line := fmt.Sprintf("import %q", pkg)
		if _, err := s.eval(line); err != nil {
			logging.SessionError("Prelude import %s failed: %v", pkg, err)
			return nil, &EvalError{Kind: errorKind(err), Line: line, Err: err}
		}
	}

	logging.Session("Session %s started: cwd=%s vars=%d prelude=%v unrestricted=%v",
		id, cwd, len(env), cfg.Prelude, cfg.Unrestricted)
	return s, nil
}

// Evaluate runs one line. Blank lines yield pipeline.Empty; lines starting
// with '!' run through the configured shell binary and yield a ByteStream.
func (s *Session) Evaluate(line string) (pipeline.Data, error) {
	s.requestID = uuid.NewString()
	log := logging.WithRequestID(logging.CategoryShell, s.requestID)
	timer := logging.StartTimer(logging.CategoryShell, "evaluate")

	data, err := s.evaluate(line)
	elapsed := timer.StopWithThreshold(time.Second)
	if err != nil {
		log.Warn("Evaluation failed: %v", err)
	} else {
		log.Debug("Result shape: %s", shapeName(data))
	}
	s.audit.Eval(s.requestID, line, shapeName(data), elapsed.Milliseconds(), err)
	return data, err
}

func (s *Session) evaluate(line string) (pipeline.Data, error) {
	src := strings.TrimSpace(line)
	if src == "" {
		return pipeline.Empty{}, nil
	}
	logging.ShellDebug("Evaluating: %s", src)

	if cmd, ok := strings.CutPrefix(src, "!"); ok {
		return s.runCommand(line, strings.TrimSpace(cmd))
	}

	rv, err := s.eval(src)
	if err != nil {
		return nil, &EvalError{Kind: errorKind(err), Line: line, Err: err}
	}
	return toPipeline(rv, s.ownsStream), nil
}

func (s *Session) runCommand(line, cmd string) (pipeline.Data, error) {
	if cmd == "" {
		return nil, &EvalError{Kind: KindParse, Line: line, Err: errors.New("empty command after '!'")}
	}
	r, err := s.stream(s.shell, []string{"-c", cmd})
	if err != nil {
		logging.ShellWarn("Command %q failed to start: %v", cmd, err)
		return nil, &EvalError{Kind: KindEval, Line: line, Err: err}
	}
	s.ownsStream(r)
	return pipeline.ByteStream{R: r}, nil
}

// eval converts runtime panics in interpreted code into errors.
func (s *Session) eval(src string) (rv reflect.Value, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return s.interp.Eval(src)
}

// Getenv returns the session's value of name.
func (s *Session) Getenv(name string) string {
	return s.env[name]
}

// Cwd returns the session's working directory.
func (s *Session) Cwd() string {
	return s.cwd
}

// Environ returns the session environment as KEY=VALUE pairs.
func (s *Session) Environ() []string {
	out := make([]string, 0, len(s.env))
	for k, v := range s.env {
		out = append(out, k+"="+v)
	}
	return out
}

func (s *Session) auditCommand(e tactile.AuditEvent) {
	kind := logging.AuditCommandStart
	switch e.Type {
	case tactile.AuditEventComplete:
		kind = logging.AuditCommandComplete
	case tactile.AuditEventError:
		kind = logging.AuditCommandError
	}
	s.audit.Command(kind, e.Command.RequestID, e.Command.CommandString(), e.ExitCode, e.Duration.Milliseconds(), e.Error)
}

// ID returns the session's unique identifier.
func (s *Session) ID() string { return s.id }

func shapeName(data pipeline.Data) string {
	switch data.(type) {
	case nil:
		return "none"
	case pipeline.Empty:
		return "empty"
	case pipeline.Value:
		return "value"
	case pipeline.ListStream:
		return "list_stream"
	case pipeline.ByteStream:
		return "byte_stream"
	default:
		return "unknown"
	}
}

func errorKind(err error) ErrorKind {
	var list scanner.ErrorList
	var single *scanner.Error
	if errors.As(err, &list) || errors.As(err, &single) {
		return KindParse
	}
	return KindEval
}

// importEnviron rejects variables that are not valid UTF-8 rather than
// passing mangled names or values to interpreted code.
func importEnviron(environ []string) (map[string]string, error) {
	env := make(map[string]string, len(environ))
	for _, kv := range environ {
		if !utf8.ValidString(kv) {
			name, _, _ := strings.Cut(kv, "=")
			return nil, fmt.Errorf("environment variable %q is not valid UTF-8", strings.ToValidUTF8(name, "?"))
		}
		k, v, ok := strings.Cut(kv, "=")
		if !ok || k == "" {
			continue
		}
		env[k] = v
	}
	return env, nil
}

func workingDirectory(override string, env map[string]string) (string, error) {
	if override != "" {
		return override, nil
	}
	if pwd := env["PWD"]; pwd != "" {
		return pwd, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("no PWD and no home directory: %w", err)
	}
	return home, nil
}
