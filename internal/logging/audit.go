package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	jsoniter "github.com/json-iterator/go"
)

// =============================================================================
// AUDIT EVENTS
// =============================================================================

// AuditEventType defines the type of audit event
type AuditEventType string

const (
	// Session lifecycle
	AuditSessionStart AuditEventType = "session_start"
	AuditSessionError AuditEventType = "session_error"

	// One evaluated line
	AuditEvalComplete AuditEventType = "eval_complete"
	AuditEvalError    AuditEventType = "eval_error"

	// External commands
	AuditCommandStart    AuditEventType = "command_start"
	AuditCommandComplete AuditEventType = "command_complete"
	AuditCommandError    AuditEventType = "command_error"
)

// AuditEvent is one JSON line in the audit log.
type AuditEvent struct {
	Timestamp  int64                  `json:"ts"`                // Unix milliseconds
	EventType  AuditEventType         `json:"event"`             // What happened
	Category   string                 `json:"cat,omitempty"`     // Log category
	SessionID  string                 `json:"session,omitempty"` // Session correlation
	RequestID  string                 `json:"req,omitempty"`     // Evaluation correlation
	Target     string                 `json:"target,omitempty"`  // Line or command
	Success    bool                   `json:"success"`           // Operation succeeded
	DurationMs int64                  `json:"dur_ms,omitempty"`  // Duration in milliseconds
	Error      string                 `json:"error,omitempty"`   // Error message if failed
	Fields     map[string]interface{} `json:"fields,omitempty"`  // Additional structured fields
}

// =============================================================================
// AUDIT LOGGER
// =============================================================================

var (
	auditFile *os.File
	auditMu   sync.Mutex
)

// AuditLogger writes audit events tagged with a session.
type AuditLogger struct {
	sessionID string
	category  Category
}

// InitAudit opens the audit log. It is a no-op unless debug mode is on.
func InitAudit() error {
	if !IsDebugMode() {
		return nil
	}

	auditMu.Lock()
	defer auditMu.Unlock()

	if auditFile != nil {
		return nil // Already initialized
	}

	optsMu.RLock()
	dir := logsDir
	optsMu.RUnlock()

	date := time.Now().Format("2006-01-02")
	file, err := os.OpenFile(filepath.Join(dir, fmt.Sprintf("%s_audit.log", date)), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("failed to create audit log: %w", err)
	}
	auditFile = file
	return nil
}

// CloseAudit closes the audit log file
func CloseAudit() {
	auditMu.Lock()
	defer auditMu.Unlock()

	if auditFile != nil {
		auditFile.Close()
		auditFile = nil
	}
}

// Audit returns an unscoped audit logger.
func Audit() *AuditLogger {
	return &AuditLogger{}
}

// AuditWithSession creates an audit logger scoped to a session
func AuditWithSession(sessionID string, category Category) *AuditLogger {
	return &AuditLogger{sessionID: sessionID, category: category}
}

// Log writes an audit event
func (a *AuditLogger) Log(event AuditEvent) {
	if !IsDebugMode() {
		return
	}

	if event.Timestamp == 0 {
		event.Timestamp = time.Now().UnixMilli()
	}
	if event.SessionID == "" {
		event.SessionID = a.sessionID
	}
	if event.Category == "" && a.category != "" {
		event.Category = string(a.category)
	}

	data, err := jsoniter.Marshal(event)
	if err != nil {
		return
	}

	auditMu.Lock()
	defer auditMu.Unlock()
	if auditFile != nil {
		auditFile.Write(append(data, '\n'))
	}
}

// SessionStart records a session coming up.
func (a *AuditLogger) SessionStart(cwd string, durationMs int64) {
	a.Log(AuditEvent{
		EventType:  AuditSessionStart,
		Target:     cwd,
		Success:    true,
		DurationMs: durationMs,
	})
}

// SessionError records a session that failed to start.
func (a *AuditLogger) SessionError(err error) {
	a.Log(AuditEvent{EventType: AuditSessionError, Error: err.Error()})
}

// Eval records one evaluated line and the shape it produced.
func (a *AuditLogger) Eval(requestID, line, shape string, durationMs int64, err error) {
	event := AuditEvent{
		EventType:  AuditEvalComplete,
		RequestID:  requestID,
		Target:     line,
		Success:    err == nil,
		DurationMs: durationMs,
	}
	if err != nil {
		event.EventType = AuditEvalError
		event.Error = err.Error()
	} else {
		event.Fields = map[string]interface{}{"shape": shape}
	}
	a.Log(event)
}

// Command records a step of an external command's lifecycle.
func (a *AuditLogger) Command(eventType AuditEventType, requestID, command string, exitCode int, durationMs int64, errMsg string) {
	a.Log(AuditEvent{
		EventType:  eventType,
		RequestID:  requestID,
		Target:     command,
		Success:    errMsg == "",
		DurationMs: durationMs,
		Error:      errMsg,
		Fields:     map[string]interface{}{"exit_code": exitCode},
	})
}
