// Package audit provides append-only structured logging of security-relevant
// operations. Events are written as JSON Lines, one self-contained object per
// line, serialized through an internal lock so that concurrent export workers
// can emit events safely.
//
// The Logger is injected explicitly into every component that needs it; there
// is no package-level instance, so tests can supply an isolated sink.
package audit

import (
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/notekiln/notekiln/internal/logging"
	"github.com/notekiln/notekiln/internal/validation"
)

// EventType is the fixed vocabulary of auditable operations.
type EventType string

const (
	EventPathValidation EventType = "path-validation"
	EventExportAttempt  EventType = "export-attempt"
	EventTemplateRender EventType = "template-render"
	EventFileWrite      EventType = "file-write"
)

// Event is one audit log line. Detail values are sanitized of absolute
// local paths before the event is constructed.
type Event struct {
	Timestamp time.Time         `json:"timestamp"`
	EventType EventType         `json:"event_type"`
	Success   bool              `json:"success"`
	Detail    map[string]string `json:"detail"`
}

// Logger appends audit events to an optional file sink and mirrors them to
// the structured logger. Safe for concurrent use.
type Logger struct {
	enabled bool
	log     logging.Logger

	mu   sync.Mutex
	sink io.Writer
	file *os.File
}

// New creates an audit logger. When enabled and logFile is non-empty,
// events are appended to it, creating parent directories as needed. A
// disabled logger never touches the filesystem.
func New(enabled bool, logFile string, log logging.Logger) (*Logger, error) {
	a := &Logger{
		enabled: enabled,
		log:     log.WithComponent("audit"),
	}

	if enabled && logFile != "" {
		if err := os.MkdirAll(filepath.Dir(logFile), 0o755); err != nil {
			return nil, err
		}
		f, err := os.OpenFile(logFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, err
		}
		a.file = f
		a.sink = f
	}

	return a, nil
}

// NewWithSink creates an enabled audit logger writing to w. Intended for
// tests that need to inspect emitted events.
func NewWithSink(w io.Writer, log logging.Logger) *Logger {
	return &Logger{enabled: true, log: log.WithComponent("audit"), sink: w}
}

// NewDisabled creates a logger that drops all events.
func NewDisabled(log logging.Logger) *Logger {
	return &Logger{enabled: false, log: log.WithComponent("audit")}
}

// Enabled reports whether events are being recorded.
func (a *Logger) Enabled() bool {
	return a.enabled
}

// Close releases the file sink, if any.
func (a *Logger) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.file != nil {
		err := a.file.Close()
		a.file = nil
		a.sink = nil
		return err
	}
	return nil
}

// Record emits one audit event. Detail values are sanitized before being
// written; the write happens immediately, with no batching.
func (a *Logger) Record(eventType EventType, success bool, detail map[string]string) {
	if !a.enabled {
		return
	}

	sanitized := make(map[string]string, len(detail))
	for k, v := range detail {
		sanitized[k] = validation.SanitizeMessage(v)
	}

	event := Event{
		Timestamp: time.Now().UTC(),
		EventType: eventType,
		Success:   success,
		Detail:    sanitized,
	}

	a.log.Debug(context.Background(), "audit event",
		"event_type", string(eventType),
		"success", success,
	)

	a.mu.Lock()
	defer a.mu.Unlock()
	if a.sink == nil {
		return
	}

	line, err := json.Marshal(event)
	if err != nil {
		a.log.Error(context.Background(), err, "failed to marshal audit event")
		return
	}
	if _, err := a.sink.Write(append(line, '\n')); err != nil {
		a.log.Error(context.Background(), err, "failed to write audit event")
	}
}

// RecordPathValidation records the outcome of a path validation check.
func (a *Logger) RecordPathValidation(path, validationType string, success bool, reason string) {
	a.Record(EventPathValidation, success, map[string]string{
		"path":            filepath.Base(path),
		"validation_type": validationType,
		"reason":          reason,
	})
}

// RecordExportAttempt records one converter invocation, successful or not.
func (a *Logger) RecordExportAttempt(sourcePath, outputPath string, success bool, detail string) {
	a.Record(EventExportAttempt, success, map[string]string{
		"source": filepath.Base(sourcePath),
		"output": filepath.Base(outputPath),
		"detail": detail,
	})
}

// RecordTemplateRender records a summary-template rendering attempt.
func (a *Logger) RecordTemplateRender(templatePath string, success bool, detail string) {
	a.Record(EventTemplateRender, success, map[string]string{
		"template": filepath.Base(templatePath),
		"detail":   detail,
	})
}

// RecordFileWrite records a write of a produced artifact.
func (a *Logger) RecordFileWrite(path string, success bool, detail string) {
	a.Record(EventFileWrite, success, map[string]string{
		"file":   filepath.Base(path),
		"detail": detail,
	})
}
