/*
scenarios_test.go - Tests for the demo scenarios

Each scenario must load from an empty database, go through the engine
without refusals, and leave the database in the shape its description
promises.
*/
package api

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kishoreafk/Nit-Faculty-Managment-sub000/generic"
)

var scenarioAdmin = Identity{ID: 1, Role: "admin"}

func TestScenario_AllScenariosLoadWithoutError(t *testing.T) {
	for _, s := range scenarios {
		t.Run(s.ID, func(t *testing.T) {
			ts := newTestServer(t)
			require.NoError(t, ts.handler.Seed(context.Background(), s.ID))
		})
	}
}

func TestScenario_Endpoints(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodGet, "/api/scenarios/", scenarioAdmin, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decodeAs[[]ScenarioDTO](t, rec), len(scenarios))

	// Nothing loaded yet.
	rec = ts.do(t, http.MethodGet, "/api/scenarios/current", scenarioAdmin, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "null", string(trimNewline(rec.Body.Bytes())))

	rec = ts.do(t, http.MethodPost, "/api/scenarios/load", scenarioAdmin, map[string]any{"scenario_id": "department"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "department", decodeAs[map[string]string](t, rec)["scenario"])

	rec = ts.do(t, http.MethodGet, "/api/scenarios/current", scenarioAdmin, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "department", decodeAs[ScenarioDTO](t, rec).ID)

	assert.Equal(t, http.StatusBadRequest, ts.do(t, http.MethodPost, "/api/scenarios/load", scenarioAdmin,
		map[string]any{"scenario_id": "nonexistent"}).Code)
	assert.Equal(t, http.StatusBadRequest, ts.do(t, http.MethodPost, "/api/scenarios/load", scenarioAdmin,
		map[string]any{}).Code)
	assert.Equal(t, http.StatusForbidden, ts.do(t, http.MethodPost, "/api/scenarios/load", Identity{ID: 1, Role: "hod"},
		map[string]any{"scenario_id": "department"}).Code)
}

func TestScenario_DisabledRoutes(t *testing.T) {
	ts := newTestServer(t)
	router := NewRouter(ts.handler, RouterOptions{})
	ts.router = router

	rec := ts.do(t, http.MethodGet, "/api/scenarios/", scenarioAdmin, nil)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestScenario_Department(t *testing.T) {
	ts := newTestServer(t)
	ctx := context.Background()
	require.NoError(t, ts.handler.Seed(ctx, "department"))

	faculty, err := ts.store.ListActiveFaculty(ctx)
	require.NoError(t, err)
	require.Len(t, faculty, 5)

	byName := make(map[string]generic.Faculty)
	for _, f := range faculty {
		byName[f.Name] = f
	}

	// The probationer gets no earned leave; the newest joiner no maternity leave.
	codes := func(name string) []string {
		views, err := ts.handler.Engine.Balances(ctx, byName[name].ID, 2025)
		require.NoError(t, err)
		out := make([]string, len(views))
		for i, v := range views {
			out[i] = v.LeaveTypeCode
		}
		return out
	}
	assert.ElementsMatch(t, []string{"CL", "EL", "ML", "MAT"}, codes("Dr. Meera Iyer"))
	assert.ElementsMatch(t, []string{"CL", "EL", "ML"}, codes("Dr. Arjun Nair"))
	assert.ElementsMatch(t, []string{"CL", "ML"}, codes("Rahul Das"))
	assert.ElementsMatch(t, []string{"CL", "ML"}, codes("Sneha Pillai"))
}

func TestScenario_PendingReviews(t *testing.T) {
	ts := newTestServer(t)
	require.NoError(t, ts.handler.Seed(context.Background(), "pending-reviews"))

	rec := ts.do(t, http.MethodGet, "/api/admin/leave/pending", Identity{ID: 1, Role: "hod"}, nil)

	require.Equal(t, http.StatusOK, rec.Code)
	queue := decodeAs[[]PendingDTO](t, rec)
	require.Len(t, queue, 2)

	unresolved := 0
	for _, p := range queue {
		unresolved += p.UnresolvedAdjustments
	}
	assert.Equal(t, 1, unresolved)
}

func TestScenario_YearEndCarryForward(t *testing.T) {
	ts := newTestServer(t)
	ctx := context.Background()
	require.NoError(t, ts.handler.Seed(ctx, "year-end"))

	report, err := ts.handler.Engine.RunCarryForward(ctx, 2025)
	require.NoError(t, err)
	assert.Empty(t, report.Failures)

	faculty, err := ts.store.ListActiveFaculty(ctx)
	require.NoError(t, err)
	var arjun generic.Faculty
	for _, f := range faculty {
		if f.Name == "Dr. Arjun Nair" {
			arjun = f
		}
	}
	require.NotZero(t, arjun.ID)
	el, err := ts.store.GetLeaveTypeByCode(ctx, "EL")
	require.NoError(t, err)

	// 45 days with 3 pending: 42 available, capped at 30.
	next := ts.balance(t, generic.BalanceKey{FacultyID: arjun.ID, LeaveTypeID: el.ID, Year: 2026})
	assert.Equal(t, "30.00", next.Balance.String())

	old := ts.balance(t, generic.BalanceKey{FacultyID: arjun.ID, LeaveTypeID: el.ID, Year: 2025})
	assert.Equal(t, "15.00", old.Balance.String())
	assert.Equal(t, "3.00", old.Reserved.String())
}

func trimNewline(b []byte) []byte {
	for len(b) > 0 && (b[len(b)-1] == '\n' || b[len(b)-1] == '\r') {
		b = b[:len(b)-1]
	}
	return b
}
