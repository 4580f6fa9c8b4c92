package store

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/kishoreafk/Nit-Faculty-Managment-sub000/generic"
)

// LogAudit writes each entry as one structured log line. It keeps nothing in
// memory and is the fallback sink when no stream is configured.
type LogAudit struct {
	Logger zerolog.Logger
}

var _ generic.AuditLog = LogAudit{}

func NewLogAudit(logger zerolog.Logger) LogAudit {
	return LogAudit{Logger: logger.With().Str("component", "audit").Logger()}
}

func (l LogAudit) Append(_ context.Context, e generic.AuditEntry) error {
	ev := l.Logger.Info().
		Str("action", string(e.Action)).
		Int64("actor_id", int64(e.ActorID)).
		Str("actor_role", e.ActorRole)
	if e.ID != "" {
		ev = ev.Str("audit_id", e.ID)
	}
	if !e.Timestamp.IsZero() {
		ev = ev.Time("at", e.Timestamp)
	}
	if e.FacultyID != 0 {
		ev = ev.Int64("faculty_id", int64(e.FacultyID))
	}
	if e.LeaveTypeID != 0 {
		ev = ev.Int64("leave_type_id", int64(e.LeaveTypeID))
	}
	if e.Year != 0 {
		ev = ev.Int("year", int(e.Year))
	}
	if e.Reference != "" {
		ev = ev.Str("reference", e.Reference)
	}
	if e.Reason != "" {
		ev = ev.Str("reason", e.Reason)
	}
	if e.Before != nil {
		ev = ev.Interface("before", e.Before)
	}
	if e.After != nil {
		ev = ev.Interface("after", e.After)
	}
	ev.Msg("audit")
	return nil
}
