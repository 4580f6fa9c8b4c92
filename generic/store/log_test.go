package store

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kishoreafk/Nit-Faculty-Managment-sub000/generic"
)

func TestLogAudit_WritesOneLinePerEntry(t *testing.T) {
	var buf bytes.Buffer
	sink := NewLogAudit(zerolog.New(&buf))

	// WHEN: an override is audited
	err := sink.Append(context.Background(), generic.AuditEntry{
		ID:          "e1",
		ActorID:     2,
		ActorRole:   "admin",
		Action:      generic.AuditBalanceOverride,
		FacultyID:   7,
		LeaveTypeID: 3,
		Year:        2025,
		Reason:      "transferred from previous institution",
		Before:      map[string]any{"balance": "10.00"},
		After:       map[string]any{"balance": "15.00"},
	})
	require.NoError(t, err)

	// THEN: the line carries the action and both snapshots
	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "audit", line["message"])
	assert.Equal(t, "audit", line["component"])
	assert.Equal(t, "balance_override", line["action"])
	assert.Equal(t, float64(7), line["faculty_id"])
	assert.Equal(t, "transferred from previous institution", line["reason"])
	assert.Equal(t, map[string]any{"balance": "10.00"}, line["before"])
	assert.Equal(t, map[string]any{"balance": "15.00"}, line["after"])
	assert.NotContains(t, line, "reference")
}
