// Package logging: audit logging. Audit events are structured, one JSON
// object per line, separate from the category log files, intended for
// after-the-fact review of safety decisions and action execution rather
// than for live debugging.
package logging

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// AuditEventType names the kind of audited event.
type AuditEventType string

const (
	AuditSafetyAllow    AuditEventType = "safety_allow"
	AuditSafetyRedact   AuditEventType = "safety_redact"
	AuditSafetyDeny     AuditEventType = "safety_deny"
	AuditCaptureStored  AuditEventType = "capture_stored"
	AuditCaptureSkipped AuditEventType = "capture_skipped"
	AuditDeduplicated   AuditEventType = "deduplicated"
	AuditTaskCreated    AuditEventType = "task_created"
	AuditTaskTransition AuditEventType = "task_transition"
	AuditHandlerExec    AuditEventType = "handler_exec"
	AuditConfirmation   AuditEventType = "confirmation"
)

// AuditEvent is one structured audit record.
type AuditEvent struct {
	Timestamp  int64                  `json:"ts"`
	EventType  AuditEventType         `json:"event"`
	Category   string                 `json:"cat"`
	SessionID  string                 `json:"session,omitempty"`
	Target     string                 `json:"target,omitempty"`
	Action     string                 `json:"action,omitempty"`
	Success    bool                   `json:"success"`
	DurationMs int64                  `json:"dur_ms,omitempty"`
	Error      string                 `json:"error,omitempty"`
	Message    string                 `json:"msg,omitempty"`
	Fields     map[string]interface{} `json:"fields,omitempty"`
}

var (
	auditFile *os.File
	auditMu   sync.Mutex
)

// InitAudit opens the audit log file under the logging directory. Must be
// called after Initialize.
func InitAudit() error {
	auditMu.Lock()
	defer auditMu.Unlock()

	if auditFile != nil || logsDir == "" {
		return nil
	}

	date := time.Now().Format("2006-01-02")
	auditPath := filepath.Join(logsDir, fmt.Sprintf("%s_audit.log", date))

	file, err := os.OpenFile(auditPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("failed to create audit log: %w", err)
	}
	auditFile = file
	return nil
}

// CloseAudit closes the audit log file.
func CloseAudit() {
	auditMu.Lock()
	defer auditMu.Unlock()
	if auditFile != nil {
		auditFile.Close()
		auditFile = nil
	}
}

// AuditLogger is a thin handle scoped to an optional session.
type AuditLogger struct {
	sessionID string
}

// Audit returns the unscoped audit logger.
func Audit() *AuditLogger { return &AuditLogger{} }

// AuditWithSession scopes audit events to a chat session id.
func AuditWithSession(sessionID string) *AuditLogger {
	return &AuditLogger{sessionID: sessionID}
}

// Log writes one audit event as a JSON line. No-op if InitAudit was never called.
func (a *AuditLogger) Log(event AuditEvent) {
	auditMu.Lock()
	defer auditMu.Unlock()
	if auditFile == nil {
		return
	}

	if event.Timestamp == 0 {
		event.Timestamp = time.Now().UnixMilli()
	}
	if event.SessionID == "" {
		event.SessionID = a.sessionID
	}

	data, err := json.Marshal(event)
	if err != nil {
		return
	}
	auditFile.Write(data)
	auditFile.Write([]byte("\n"))
}

// SafetyCheck records a safety-gate decision.
func (a *AuditLogger) SafetyCheck(captureID string, eventType AuditEventType, redactedCount int, reason string) {
	a.Log(AuditEvent{
		EventType: eventType,
		Category:  string(CategorySafety),
		Target:    captureID,
		Success:   eventType != AuditSafetyDeny,
		Message:   reason,
		Fields:    map[string]interface{}{"redacted_count": redactedCount},
	})
}

// CaptureOutcome records a pipeline ingestion outcome.
func (a *AuditLogger) CaptureOutcome(captureID string, eventType AuditEventType, detail string) {
	a.Log(AuditEvent{
		EventType: eventType,
		Category:  string(CategoryPipeline),
		Target:    captureID,
		Success:   true,
		Message:   detail,
	})
}

// TaskTransition records a task-store status change.
func (a *AuditLogger) TaskTransition(taskID, from, to string, ok bool, errMsg string) {
	a.Log(AuditEvent{
		EventType: AuditTaskTransition,
		Category:  string(CategoryAction),
		Target:    taskID,
		Action:    fmt.Sprintf("%s->%s", from, to),
		Success:   ok,
		Error:     errMsg,
	})
}

// HandlerExecution records an action handler's execution attempt.
func (a *AuditLogger) HandlerExecution(taskID string, actionType string, durationMs int64, success bool, errMsg string) {
	a.Log(AuditEvent{
		EventType:  AuditHandlerExec,
		Category:   string(CategoryAction),
		Target:     taskID,
		Action:     actionType,
		DurationMs: durationMs,
		Success:    success,
		Error:      errMsg,
	})
}
