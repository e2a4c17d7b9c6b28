// Package logging writes the JSON-lines audit trail shared by xorcrackctl and
// xorcrackd.
package logging

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/RowanDark/xorcrack/internal/redact"
)

// EventType classifies audit events.
type EventType string

const (
	EventOperationExecuted EventType = "operation_executed"
	EventKeyRecovered      EventType = "key_recovered"
	EventRPCCall           EventType = "rpc_call"
	EventRPCDenied         EventType = "rpc_denied"
	EventServerLifecycle   EventType = "server_lifecycle"
	EventSelfUpdate        EventType = "self_update"
)

// Decision records the outcome of the audited action.
type Decision string

const (
	DecisionInfo  Decision = "info"
	DecisionAllow Decision = "allow"
	DecisionDeny  Decision = "deny"
)

// AuditEvent is one line of the audit log.
type AuditEvent struct {
	ID        string         `json:"id"`
	Timestamp time.Time      `json:"timestamp"`
	Component string         `json:"component"`
	EventType EventType      `json:"event_type"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	Decision  Decision       `json:"decision,omitempty"`
	Reason    string         `json:"reason,omitempty"`
}

type Option func(*options) error

type options struct {
	writers []io.Writer
	closers []io.Closer
	stdout  bool
	now     func() time.Time
	newID   func() string
}

// WithWriter adds w as an event sink.
func WithWriter(w io.Writer) Option {
	return func(o *options) error {
		if w == nil {
			return errors.New("writer cannot be nil")
		}
		o.writers = append(o.writers, w)
		return nil
	}
}

// WithFile appends events to path, creating it with mode 0600.
func WithFile(path string) Option {
	return func(o *options) error {
		if strings.TrimSpace(path) == "" {
			return errors.New("file path cannot be empty")
		}
		f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
		if err != nil {
			return fmt.Errorf("open audit log: %w", err)
		}
		o.writers = append(o.writers, f)
		o.closers = append(o.closers, f)
		return nil
	}
}

// WithoutStdout stops the logger from mirroring events to stdout.
func WithoutStdout() Option {
	return func(o *options) error {
		o.stdout = false
		return nil
	}
}

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) Option {
	return func(o *options) error {
		if now == nil {
			return errors.New("clock cannot be nil")
		}
		o.now = now
		return nil
	}
}

// core is shared by a logger and every logger derived from it.
type core struct {
	mu      sync.Mutex
	encoder *json.Encoder
	closers []io.Closer
	now     func() time.Time
	newID   func() string
}

// AuditLogger writes redacted audit events as JSON lines. Loggers derived
// with WithComponent share the writers and lock of their parent.
type AuditLogger struct {
	component string
	core      *core
	owner     bool
}

// NewAuditLogger builds a logger for component. Events go to stdout unless
// WithoutStdout is given.
func NewAuditLogger(component string, opts ...Option) (*AuditLogger, error) {
	o := &options{stdout: true, now: time.Now, newID: uuid.NewString}
	for _, opt := range opts {
		if err := opt(o); err != nil {
			for _, c := range o.closers {
				_ = c.Close()
			}
			return nil, err
		}
	}

	writers := o.writers
	if o.stdout {
		writers = append([]io.Writer{os.Stdout}, writers...)
	}
	if len(writers) == 0 {
		return nil, errors.New("no writers configured for audit logger")
	}

	enc := json.NewEncoder(io.MultiWriter(writers...))
	enc.SetEscapeHTML(false)
	return &AuditLogger{
		component: component,
		core:      &core{encoder: enc, closers: o.closers, now: o.now, newID: o.newID},
		owner:     true,
	}, nil
}

// MustNewAuditLogger is NewAuditLogger for program start-up; it panics on
// error.
func MustNewAuditLogger(component string, opts ...Option) *AuditLogger {
	logger, err := NewAuditLogger(component, opts...)
	if err != nil {
		panic(err)
	}
	return logger
}

// Close releases files opened by WithFile. Derived loggers do not own them.
func (l *AuditLogger) Close() error {
	if l == nil || !l.owner || l.core == nil {
		return nil
	}
	l.core.mu.Lock()
	defer l.core.mu.Unlock()

	var errs []error
	for _, c := range l.core.closers {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	l.core.closers = nil
	return errors.Join(errs...)
}

// Emit stamps, redacts and writes one event. A nil logger discards events.
func (l *AuditLogger) Emit(event AuditEvent) error {
	if l == nil {
		return nil
	}
	if l.core == nil {
		return errors.New("nil audit logger core")
	}

	if event.ID == "" {
		event.ID = l.core.newID()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = l.core.now()
	}
	event.Timestamp = event.Timestamp.UTC()
	if event.Component == "" {
		event.Component = l.component
	}
	if event.Decision == "" {
		event.Decision = DecisionInfo
	}
	event.Reason = redact.String(event.Reason)
	event.Metadata = redact.Map(event.Metadata)

	l.core.mu.Lock()
	defer l.core.mu.Unlock()
	return l.core.encoder.Encode(event)
}

// WithComponent returns a logger that tags events with component.
func (l *AuditLogger) WithComponent(component string) *AuditLogger {
	if l == nil || l.core == nil {
		return nil
	}
	return &AuditLogger{component: component, core: l.core}
}
