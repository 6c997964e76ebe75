package logger

import (
	"context"
	"log/slog"
	"time"
)

// Audit event types
const (
	EventLogin        = "login"
	EventSignOut      = "signout"
	EventAccessDenied = "access_denied"
	EventTaskDeleted  = "task_deleted"
)

// AuditEvent represents a security audit event
type AuditEvent struct {
	EventType     string
	UserID        string
	Provider      string
	IPAddress     string
	Success       bool
	FailureReason string
	Metadata      map[string]string
}

// AuditLogger writes audit records through slog
type AuditLogger struct {
	logger *slog.Logger
	now    func() time.Time
}

// NewAuditLogger creates a new audit logger
func NewAuditLogger(logger *slog.Logger) *AuditLogger {
	return &AuditLogger{
		logger: logger,
		now:    time.Now,
	}
}

// LogAuthAttempt logs sign-in results. Failures are logged at warn level.
func (al *AuditLogger) LogAuthAttempt(ctx context.Context, event AuditEvent) {
	if al == nil {
		return
	}

	attrs := al.baseAttrs("auth", event.EventType)
	attrs = append(attrs, slog.Bool("success", event.Success))

	if event.UserID != "" {
		attrs = append(attrs, slog.String("user_id", event.UserID))
	}
	if event.Provider != "" {
		attrs = append(attrs, slog.String("provider", event.Provider))
	}
	if event.IPAddress != "" {
		attrs = append(attrs, slog.String("ip_address", event.IPAddress))
	}
	if event.FailureReason != "" {
		attrs = append(attrs, slog.String("failure_reason", event.FailureReason))
	}
	for key, val := range event.Metadata {
		attrs = append(attrs, slog.String(key, val))
	}

	level := slog.LevelInfo
	if !event.Success {
		level = slog.LevelWarn
	}
	al.logger.LogAttrs(ctx, level, "audit", attrs...)
}

// LogAccessDenied records a role check that rejected an authenticated user
func (al *AuditLogger) LogAccessDenied(ctx context.Context, userID, role, operation string) {
	if al == nil {
		return
	}

	attrs := al.baseAttrs("authorization", EventAccessDenied)
	attrs = append(attrs,
		slog.String("user_id", userID),
		slog.String("role", role),
		slog.String("operation", operation),
	)
	al.logger.LogAttrs(ctx, slog.LevelWarn, "audit", attrs...)
}

// LogAccountAction logs general account actions
func (al *AuditLogger) LogAccountAction(ctx context.Context, eventType, userID string, metadata map[string]string) {
	if al == nil {
		return
	}

	attrs := al.baseAttrs("account", eventType)
	attrs = append(attrs, slog.String("user_id", userID))
	for key, val := range metadata {
		attrs = append(attrs, slog.String(key, val))
	}

	al.logger.LogAttrs(ctx, slog.LevelInfo, "audit", attrs...)
}

func (al *AuditLogger) baseAttrs(auditType, eventType string) []slog.Attr {
	return []slog.Attr{
		slog.String("audit_type", auditType),
		slog.String("event_type", eventType),
		slog.String("timestamp", al.now().UTC().Format(time.RFC3339)),
	}
}
