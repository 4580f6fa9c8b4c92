package api

import (
	"context"
	"net/http"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kishoreafk/Nit-Faculty-Managment-sub000/generic"
)

// =============================================================================
// BALANCES
// =============================================================================

func TestMyBalances(t *testing.T) {
	ts := newTestServer(t)
	d := ts.department(t)
	ts.applyCL(t, d.arjun, "2025-06-10", 2, 0)

	// WHEN: Arjun reads his balances for the current year
	rec := ts.do(t, http.MethodGet, "/api/leave/balances", asFaculty(d.arjun), nil)

	// THEN: the CL row shows the reservation
	require.Equal(t, http.StatusOK, rec.Code)
	rows := decodeAs[[]BalanceDTO](t, rec)
	require.Len(t, rows, 1)
	assert.Equal(t, "CL", rows[0].LeaveTypeCode)
	assert.Equal(t, "Casual Leave", rows[0].LeaveTypeName)
	assert.Equal(t, 2025, rows[0].Year)
	assert.Equal(t, "12.00", rows[0].Balance.String())
	assert.Equal(t, "2.00", rows[0].Reserved.String())
	assert.Equal(t, "10.00", rows[0].Available.String())

	// Other years are empty, not missing.
	rec = ts.do(t, http.MethodGet, "/api/leave/balances?year=2024", asFaculty(d.arjun), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decodeAs[[]BalanceDTO](t, rec))

	assert.Equal(t, http.StatusBadRequest, ts.do(t, http.MethodGet, "/api/leave/balances?year=next", asFaculty(d.arjun), nil).Code)
}

// =============================================================================
// OVERRIDE
// =============================================================================

func TestOverrideBalance(t *testing.T) {
	ts := newTestServer(t)
	d := ts.department(t)
	ts.applyCL(t, d.arjun, "2025-06-10", 2, 0)
	admin := asAdmin(d.hod)

	body := func(newBalance float64, reason string) map[string]any {
		return map[string]any{
			"faculty_id":    d.arjun.ID,
			"leave_type_id": ts.types["CL"].ID,
			"year":          2025,
			"new_balance":   newBalance,
			"reason":        reason,
		}
	}

	t.Run("admin only", func(t *testing.T) {
		rec := ts.do(t, http.MethodPut, "/api/admin/leave/balances", asHOD(d.hod), body(20, "Transferred from sister institute"))
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("reason must be meaningful", func(t *testing.T) {
		rec := ts.do(t, http.MethodPut, "/api/admin/leave/balances", admin, body(20, "   fix   "))
		require.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "min", decodeAs[ErrorResponse](t, rec).Fields["reason"])
	})

	t.Run("negative balance", func(t *testing.T) {
		rec := ts.do(t, http.MethodPut, "/api/admin/leave/balances", admin, body(-1, "Correcting an import error"))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("below reserved is an integrity fault", func(t *testing.T) {
		rec := ts.do(t, http.MethodPut, "/api/admin/leave/balances", admin, body(1, "Correcting an import error"))
		assert.Equal(t, http.StatusInternalServerError, rec.Code)

		bal := ts.balance(t, generic.BalanceKey{FacultyID: d.arjun.ID, LeaveTypeID: ts.types["CL"].ID, Year: 2025})
		assert.Equal(t, "12.00", bal.Balance.String())
	})

	t.Run("unknown faculty", func(t *testing.T) {
		b := body(5, "Correcting an import error")
		b["faculty_id"] = 999
		assert.Equal(t, http.StatusNotFound, ts.do(t, http.MethodPut, "/api/admin/leave/balances", admin, b).Code)
	})

	t.Run("applies and audits", func(t *testing.T) {
		rec := ts.do(t, http.MethodPut, "/api/admin/leave/balances", admin, body(20, "Transferred from sister institute"))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		resp := decodeAs[BalanceDTO](t, rec)
		assert.Equal(t, "20.00", resp.Balance.String())
		assert.Equal(t, "2.00", resp.Reserved.String())
		assert.Equal(t, "18.00", resp.Available.String())

		entries, err := ts.audit.Query(context.Background(), generic.AuditFilter{
			Actions: []generic.AuditAction{generic.AuditBalanceOverride},
		})
		require.NoError(t, err)
		require.Len(t, entries, 1)
		assert.Equal(t, "Transferred from sister institute", entries[0].Reason)
		assert.Equal(t, generic.ActorID(d.hod.ID), entries[0].ActorID)
	})
}

// =============================================================================
// BATCHES
// =============================================================================

func TestBatchEndpoints(t *testing.T) {
	ts := newTestServer(t)
	d := ts.department(t)
	admin := asAdmin(d.hod)

	// WHEN: the May accrual runs twice
	rec := ts.do(t, http.MethodPost, "/api/admin/leave/accrual/monthly", admin, map[string]any{"year": 2025, "month": 5})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	first := decodeAs[BatchRunDTO](t, rec)

	rec = ts.do(t, http.MethodPost, "/api/admin/leave/accrual/monthly", admin, map[string]any{"year": 2025, "month": 5})
	require.Equal(t, http.StatusOK, rec.Code)
	second := decodeAs[BatchRunDTO](t, rec)

	// THEN: every faculty member is credited EL once
	assert.Equal(t, string(generic.BatchMonthlyAccrual), first.Kind)
	assert.Equal(t, "2025-05", first.PeriodKey)
	assert.Equal(t, 3, first.Processed)
	assert.Empty(t, first.Failures)
	assert.Equal(t, 0, second.Processed)
	assert.Equal(t, 3, second.Skipped)

	rec = ts.do(t, http.MethodGet, "/api/admin/leave/faculty/"+strconv.FormatInt(int64(d.arjun.ID), 10)+"/accruals", admin, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	history := decodeAs[[]AccrualDTO](t, rec)
	require.Len(t, history, 1)
	assert.Equal(t, "2025-05", history[0].PeriodKey)
	assert.Equal(t, "2.50", history[0].Amount.String())
	assert.Equal(t, "2025-05-31", history[0].AccrualDate)

	// AND: carry-forward moves the credited EL into 2026
	rec = ts.do(t, http.MethodPost, "/api/admin/leave/carry-forward", admin, map[string]any{"from_year": 2025})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	carry := decodeAs[BatchRunDTO](t, rec)
	assert.Equal(t, "2025->2026", carry.PeriodKey)

	next := ts.balance(t, generic.BalanceKey{FacultyID: d.arjun.ID, LeaveTypeID: ts.types["EL"].ID, Year: 2026})
	assert.Equal(t, "2.50", next.Balance.String())

	// Runs are listed newest first.
	rec = ts.do(t, http.MethodGet, "/api/admin/leave/batch-runs?limit=2", admin, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	runs := decodeAs[[]BatchRunDTO](t, rec)
	require.Len(t, runs, 2)
	assert.Equal(t, string(generic.BatchCarryForward), runs[0].Kind)

	assert.Equal(t, http.StatusBadRequest, ts.do(t, http.MethodGet, "/api/admin/leave/batch-runs?limit=some", admin, nil).Code)
}

func TestBatchEndpoints_InvalidInput(t *testing.T) {
	ts := newTestServer(t)
	admin := Identity{ID: 1, Role: "admin"}

	tests := []struct {
		name string
		path string
		body map[string]any
	}{
		{"month out of range", "/api/admin/leave/accrual/monthly", map[string]any{"year": 2025, "month": 13}},
		{"missing year", "/api/admin/leave/accrual/yearly", map[string]any{}},
		{"missing from_year", "/api/admin/leave/carry-forward", map[string]any{"year": 2025}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, http.StatusBadRequest, ts.do(t, http.MethodPost, tt.path, admin, tt.body).Code)
		})
	}
}
