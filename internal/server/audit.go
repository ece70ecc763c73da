package server

import (
	"context"
	"time"

	"go.uber.org/zap/zapcore"
)

// AuditLogEntry records one handled request. Bodies are not kept: documents
// carry secrets.
type AuditLogEntry struct {
	Timestamp    time.Time
	Handler      string
	Method       string
	Path         string
	StatusCode   int
	UserID       string
	BoxID        string
	InvitationID string
	Duration     time.Duration
}

func (e AuditLogEntry) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	enc.AddTime("timestamp", e.Timestamp)
	enc.AddString("handler", e.Handler)
	enc.AddString("method", e.Method)
	enc.AddString("path", e.Path)
	enc.AddInt("status_code", e.StatusCode)
	if e.UserID != "" {
		enc.AddString("user_id", e.UserID)
	}
	if e.BoxID != "" {
		enc.AddString("box_id", e.BoxID)
	}
	if e.InvitationID != "" {
		enc.AddString("invitation_id", e.InvitationID)
	}
	enc.AddDuration("duration", e.Duration)
	return nil
}

type auditKey struct{}

func auditEntryFrom(ctx context.Context) *AuditLogEntry {
	e, _ := ctx.Value(auditKey{}).(*AuditLogEntry)
	return e
}
