// Package auditstream ships audit entries to a Redis stream.
//
// Each entry becomes one XADD with a small set of indexable fields and the
// full record as JSON under "payload". Downstream consumers (reporting,
// notifications) read the stream with consumer groups; this package only
// writes and offers a tail read for diagnostics.
package auditstream

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/kishoreafk/Nit-Faculty-Managment-sub000/generic"
)

// DefaultStream is used when no stream name is configured.
const DefaultStream = "leave:audit"

// Sink implements generic.AuditLog on top of XADD.
type Sink struct {
	rdb    redis.Cmdable
	stream string
	maxLen int64
}

// Option configures a Sink.
type Option func(*Sink)

// WithMaxLen trims the stream to roughly n entries.
func WithMaxLen(n int64) Option {
	return func(s *Sink) { s.maxLen = n }
}

func New(rdb redis.Cmdable, stream string, opts ...Option) *Sink {
	if stream == "" {
		stream = DefaultStream
	}
	s := &Sink{rdb: rdb, stream: stream}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Connect parses a redis:// URL and verifies the server answers.
func Connect(ctx context.Context, url string) (*redis.Client, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	rdb := redis.NewClient(opt)
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return rdb, nil
}

// record is the JSON form of an audit entry.
type record struct {
	ID          string         `json:"id"`
	Timestamp   time.Time      `json:"timestamp"`
	ActorID     int64          `json:"actor_id"`
	ActorRole   string         `json:"actor_role"`
	Action      string         `json:"action"`
	FacultyID   int64          `json:"faculty_id,omitempty"`
	LeaveTypeID int64          `json:"leave_type_id,omitempty"`
	Year        int            `json:"year,omitempty"`
	Reference   string         `json:"reference,omitempty"`
	Reason      string         `json:"reason,omitempty"`
	Before      map[string]any `json:"before,omitempty"`
	After       map[string]any `json:"after,omitempty"`
}

func toRecord(e generic.AuditEntry) record {
	return record{
		ID:          e.ID,
		Timestamp:   e.Timestamp.UTC(),
		ActorID:     int64(e.ActorID),
		ActorRole:   e.ActorRole,
		Action:      string(e.Action),
		FacultyID:   int64(e.FacultyID),
		LeaveTypeID: int64(e.LeaveTypeID),
		Year:        int(e.Year),
		Reference:   e.Reference,
		Reason:      e.Reason,
		Before:      e.Before,
		After:       e.After,
	}
}

func (r record) entry() generic.AuditEntry {
	return generic.AuditEntry{
		ID:          r.ID,
		Timestamp:   r.Timestamp,
		ActorID:     generic.ActorID(r.ActorID),
		ActorRole:   r.ActorRole,
		Action:      generic.AuditAction(r.Action),
		FacultyID:   generic.FacultyID(r.FacultyID),
		LeaveTypeID: generic.LeaveTypeID(r.LeaveTypeID),
		Year:        generic.FiscalYear(r.Year),
		Reference:   r.Reference,
		Reason:      r.Reason,
		Before:      r.Before,
		After:       r.After,
	}
}

// Append writes entry to the stream.
func (s *Sink) Append(ctx context.Context, entry generic.AuditEntry) error {
	payload, err := json.Marshal(toRecord(entry))
	if err != nil {
		return fmt.Errorf("failed to encode audit entry: %w", err)
	}

	args := &redis.XAddArgs{
		Stream: s.stream,
		Values: map[string]any{
			"action":     string(entry.Action),
			"faculty_id": strconv.FormatInt(int64(entry.FacultyID), 10),
			"actor_id":   strconv.FormatInt(int64(entry.ActorID), 10),
			"payload":    string(payload),
		},
	}
	if s.maxLen > 0 {
		args.MaxLen = s.maxLen
		args.Approx = true
	}
	if err := s.rdb.XAdd(ctx, args).Err(); err != nil {
		return fmt.Errorf("xadd %s: %w", s.stream, err)
	}
	return nil
}

// Recent returns up to n entries, newest first.
func (s *Sink) Recent(ctx context.Context, n int64) ([]generic.AuditEntry, error) {
	msgs, err := s.rdb.XRevRangeN(ctx, s.stream, "+", "-", n).Result()
	if err != nil {
		return nil, fmt.Errorf("xrevrange %s: %w", s.stream, err)
	}

	out := make([]generic.AuditEntry, 0, len(msgs))
	for _, m := range msgs {
		raw, ok := m.Values["payload"].(string)
		if !ok {
			continue
		}
		var r record
		if err := json.Unmarshal([]byte(raw), &r); err != nil {
			return nil, fmt.Errorf("decode stream message %s: %w", m.ID, err)
		}
		out = append(out, r.entry())
	}
	return out, nil
}
