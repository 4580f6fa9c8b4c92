package auditstream

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kishoreafk/Nit-Faculty-Managment-sub000/generic"
)

func setupSink(t *testing.T, opts ...Option) (*Sink, *miniredis.Miniredis) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		rdb.Close()
		mr.Close()
	})
	return New(rdb, "", opts...), mr
}

func TestSink_AppendAndRecent(t *testing.T) {
	// GIVEN: an empty stream
	// WHEN: two entries are appended
	// THEN: they read back newest first with their snapshots intact

	sink, _ := setupSink(t)
	ctx := context.Background()
	at := time.Date(2025, time.June, 1, 9, 0, 0, 0, time.UTC)

	require.NoError(t, sink.Append(ctx, generic.AuditEntry{
		ID:        "a1",
		Timestamp: at,
		ActorID:   7,
		ActorRole: "faculty",
		Action:    generic.AuditLeaveApplied,
		FacultyID: 7,
		Year:      2025,
		Reference: "application:1",
		After:     map[string]any{"reserved": "3.00"},
	}))
	require.NoError(t, sink.Append(ctx, generic.AuditEntry{
		ID:        "a2",
		Timestamp: at.Add(time.Minute),
		ActorID:   9,
		ActorRole: "hod",
		Action:    generic.AuditLeaveApproved,
		FacultyID: 7,
		Reason:    "ok",
	}))

	entries, err := sink.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	assert.Equal(t, "a2", entries[0].ID)
	assert.Equal(t, generic.AuditLeaveApproved, entries[0].Action)
	assert.Equal(t, "ok", entries[0].Reason)

	assert.Equal(t, "a1", entries[1].ID)
	assert.Equal(t, generic.FacultyID(7), entries[1].FacultyID)
	assert.Equal(t, generic.FiscalYear(2025), entries[1].Year)
	assert.Equal(t, "3.00", entries[1].After["reserved"])
	assert.True(t, at.Equal(entries[1].Timestamp))
}

func TestSink_IndexFields(t *testing.T) {
	sink, mr := setupSink(t)
	ctx := context.Background()

	require.NoError(t, sink.Append(ctx, generic.AuditEntry{ID: "x", ActorID: 3, Action: generic.AuditBalanceOverride, FacultyID: 12}))

	stream, err := mr.Stream(DefaultStream)
	require.NoError(t, err)
	require.Len(t, stream, 1)

	values := map[string]string{}
	for i := 0; i+1 < len(stream[0].Values); i += 2 {
		values[stream[0].Values[i]] = stream[0].Values[i+1]
	}
	assert.Equal(t, "balance_override", values["action"])
	assert.Equal(t, "12", values["faculty_id"])
	assert.Equal(t, "3", values["actor_id"])
	assert.Contains(t, values["payload"], `"id":"x"`)
}

func TestSink_UnreachableServer(t *testing.T) {
	sink, mr := setupSink(t)
	mr.Close()

	err := sink.Append(context.Background(), generic.AuditEntry{ID: "x", Action: generic.AuditLeaveApplied})
	assert.Error(t, err)
}

func TestConnect_InvalidURL(t *testing.T) {
	_, err := Connect(context.Background(), "not-a-url")
	assert.Error(t, err)
}
