package logging

import (
	"context"
	"log/slog"
)

// AuditEvent describes a security-relevant action such as storing or
// clearing a credential. Token values must never be placed in an event.
type AuditEvent struct {
	// Action names what happened, e.g. "credential_stored".
	Action string
	// Outcome is "success" or "failure".
	Outcome string
	// SessionID correlates events of one device flow. Pass it through
	// TruncateSessionID first.
	SessionID string
	// Target is the resource the action applies to.
	Target string
	// Error holds the failure reason, if any.
	Error string
}

// Audit logs an audit event at INFO level with an [AUDIT] prefix so log
// aggregation can filter on it.
func Audit(event AuditEvent) {
	attrs := []slog.Attr{
		slog.String("subsystem", "Audit"),
		slog.String("action", event.Action),
		slog.String("outcome", event.Outcome),
	}
	if event.SessionID != "" {
		attrs = append(attrs, slog.String("session_id", event.SessionID))
	}
	if event.Target != "" {
		attrs = append(attrs, slog.String("target", event.Target))
	}
	if event.Error != "" {
		attrs = append(attrs, slog.String("error", event.Error))
	}

	Logger().LogAttrs(context.Background(), slog.LevelInfo, "[AUDIT] "+event.Action, attrs...)
}

// TruncateSessionID shortens an identifier to its first 8 characters.
func TruncateSessionID(id string) string {
	if len(id) <= 8 {
		return id
	}
	return id[:8] + "..."
}
