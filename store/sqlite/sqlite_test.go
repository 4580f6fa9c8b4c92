package sqlite

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kishoreafk/Nit-Faculty-Managment-sub000/generic"
)

func newTestStore(t *testing.T) *Store {
	store, err := New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func seed(t *testing.T, store *Store) (generic.Faculty, generic.LeaveType) {
	ctx := context.Background()
	f := generic.Faculty{
		Name:        "Asha Rao",
		Email:       "asha@example.edu",
		Gender:      "female",
		JoiningDate: generic.NewDate(2020, time.July, 1),
		Category:    "teaching",
		Active:      true,
	}
	require.NoError(t, store.SaveFaculty(ctx, &f))

	max := generic.NewDays(300)
	carryCap := generic.NewDays(30)
	lt := generic.LeaveType{
		Code: "EL",
		Name: "Earned Leave",
		Accrual: generic.AccrualRule{
			Frequency:  generic.FreqMonthly,
			Rate:       generic.NewDays(2.5),
			MaxBalance: &max,
		},
		CarryForward: generic.CarryForwardRule{Enabled: true, Cap: &carryCap},
		Categories:   []string{"teaching"},
	}
	require.NoError(t, store.SaveLeaveType(ctx, &lt))
	return f, lt
}

func TestParseDialect(t *testing.T) {
	for in, want := range map[string]Dialect{
		"":           DialectSQLite,
		"sqlite":     DialectSQLite,
		"SQLITE3":    DialectSQLite,
		"postgres":   DialectPostgres,
		"postgresql": DialectPostgres,
	} {
		got, err := ParseDialect(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseDialect("mysql")
	assert.Error(t, err)
}

func TestRebind(t *testing.T) {
	q := `SELECT * FROM t WHERE a = ? AND b = ?`
	assert.Equal(t, q, DialectSQLite.rebind(q))
	assert.Equal(t, `SELECT * FROM t WHERE a = $1 AND b = $2`, DialectPostgres.rebind(q))
	assert.Equal(t, "", DialectSQLite.forUpdate())
	assert.Equal(t, " FOR UPDATE", DialectPostgres.forUpdate())
}

func TestLeaveType_RoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	_, lt := seed(t, store)

	got, err := store.GetLeaveType(ctx, lt.ID)
	require.NoError(t, err)
	assert.Equal(t, "EL", got.Code)
	assert.Equal(t, generic.FreqMonthly, got.Accrual.Frequency)
	assert.True(t, got.Accrual.Rate.Equal(generic.NewDays(2.5)))
	require.NotNil(t, got.Accrual.MaxBalance)
	assert.True(t, got.Accrual.MaxBalance.Equal(generic.NewDays(300)))
	require.NotNil(t, got.CarryForward.Cap)
	assert.True(t, got.CarryForward.Cap.Equal(generic.NewDays(30)))
	assert.Equal(t, []string{"teaching"}, got.Categories)

	// Upsert by code keeps the id.
	lt.Name = "Earned Leave (revised)"
	lt.ID = 0
	require.NoError(t, store.SaveLeaveType(ctx, &lt))
	assert.Equal(t, got.ID, lt.ID)

	byCode, err := store.GetLeaveTypeByCode(ctx, "EL")
	require.NoError(t, err)
	assert.Equal(t, "Earned Leave (revised)", byCode.Name)

	_, err = store.GetLeaveTypeByCode(ctx, "NOPE")
	assert.ErrorIs(t, err, generic.ErrNotFound)
}

func TestGetFaculty_NotFound(t *testing.T) {
	store := newTestStore(t)

	_, err := store.GetFaculty(context.Background(), 42)
	var nf *generic.NotFoundError
	assert.ErrorAs(t, err, &nf)
	assert.True(t, generic.IsNotFound(err))
}

func TestBalance_EnsureIsIdempotent(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	f, lt := seed(t, store)
	key := generic.BalanceKey{FacultyID: f.ID, LeaveTypeID: lt.ID, Year: 2025}

	missing, err := store.GetBalance(ctx, key)
	require.NoError(t, err)
	assert.Nil(t, missing)

	err = store.WithTx(ctx, func(tx generic.Tx) error {
		if err := tx.EnsureBalance(ctx, generic.LeaveBalance{Key: key, Balance: generic.NewDays(10)}); err != nil {
			return err
		}
		// Second call must not overwrite the opening balance.
		return tx.EnsureBalance(ctx, generic.LeaveBalance{Key: key, Balance: generic.NewDays(99)})
	})
	require.NoError(t, err)

	got, err := store.GetBalance(ctx, key)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.True(t, got.Balance.Equal(generic.NewDays(10)))
	assert.True(t, got.Reserved.IsZero())
}

func TestWithTx_RollsBackOnError(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	f, lt := seed(t, store)
	key := generic.BalanceKey{FacultyID: f.ID, LeaveTypeID: lt.ID, Year: 2025}

	sentinel := errors.New("boom")
	err := store.WithTx(ctx, func(tx generic.Tx) error {
		if err := tx.EnsureBalance(ctx, generic.LeaveBalance{Key: key, Balance: generic.NewDays(10)}); err != nil {
			return err
		}
		return sentinel
	})
	assert.ErrorIs(t, err, sentinel)

	got, err := store.GetBalance(ctx, key)
	require.NoError(t, err)
	assert.Nil(t, got, "insert should have been rolled back")
}

func TestSaveBalance_RejectsInvariantViolation(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	f, lt := seed(t, store)
	key := generic.BalanceKey{FacultyID: f.ID, LeaveTypeID: lt.ID, Year: 2025}

	err := store.WithTx(ctx, func(tx generic.Tx) error {
		if err := tx.EnsureBalance(ctx, generic.LeaveBalance{Key: key, Balance: generic.NewDays(2)}); err != nil {
			return err
		}
		return tx.SaveBalance(ctx, generic.LeaveBalance{Key: key, Balance: generic.NewDays(2), Reserved: generic.NewDays(3)})
	})
	assert.True(t, generic.IsIntegrity(err))
}

func TestApplications_OverlapIsInclusive(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	f, lt := seed(t, store)

	app := generic.LeaveApplication{
		FacultyID:   f.ID,
		LeaveTypeID: lt.ID,
		BalanceYear: 2025,
		StartDate:   generic.NewDate(2025, time.March, 10),
		EndDate:     generic.NewDate(2025, time.March, 12),
		TotalDays:   generic.NewDays(3),
		Status:      generic.StatusPending,
	}
	require.NoError(t, store.WithTx(ctx, func(tx generic.Tx) error {
		return tx.InsertApplication(ctx, &app)
	}))
	require.NotZero(t, app.ID)

	cases := []struct {
		name  string
		p     generic.Period
		wants bool
	}{
		{"touching start", generic.Period{Start: generic.NewDate(2025, time.March, 5), End: generic.NewDate(2025, time.March, 10)}, true},
		{"touching end", generic.Period{Start: generic.NewDate(2025, time.March, 12), End: generic.NewDate(2025, time.March, 14)}, true},
		{"inside", generic.Period{Start: generic.NewDate(2025, time.March, 11), End: generic.NewDate(2025, time.March, 11)}, true},
		{"before", generic.Period{Start: generic.NewDate(2025, time.March, 1), End: generic.NewDate(2025, time.March, 9)}, false},
		{"after", generic.Period{Start: generic.NewDate(2025, time.March, 13), End: generic.NewDate(2025, time.March, 20)}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var got bool
			err := store.WithTx(ctx, func(tx generic.Tx) error {
				var err error
				got, err = tx.HasOverlap(ctx, f.ID, tc.p)
				return err
			})
			require.NoError(t, err)
			assert.Equal(t, tc.wants, got)
		})
	}

	// A withdrawn application no longer blocks.
	now := time.Now()
	app.Status = generic.StatusDeleted
	app.DeletedAt = &now
	require.NoError(t, store.WithTx(ctx, func(tx generic.Tx) error {
		return tx.UpdateApplication(ctx, app)
	}))
	require.NoError(t, store.WithTx(ctx, func(tx generic.Tx) error {
		overlap, err := tx.HasOverlap(ctx, f.ID, app.Period())
		assert.False(t, overlap)
		return err
	}))

	got, err := store.GetApplication(ctx, app.ID)
	require.NoError(t, err)
	assert.Equal(t, generic.StatusDeleted, got.Status)
	assert.NotNil(t, got.DeletedAt)
}

func TestSumPendingReservations(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	f, lt := seed(t, store)
	key := generic.BalanceKey{FacultyID: f.ID, LeaveTypeID: lt.ID, Year: 2025}

	insert := func(day int, total float64, status generic.ApplicationStatus) {
		app := generic.LeaveApplication{
			FacultyID: f.ID, LeaveTypeID: lt.ID, BalanceYear: 2025,
			StartDate: generic.NewDate(2025, time.May, day),
			EndDate:   generic.NewDate(2025, time.May, day),
			TotalDays: generic.NewDays(total),
			Status:    status,
		}
		require.NoError(t, store.WithTx(ctx, func(tx generic.Tx) error {
			return tx.InsertApplication(ctx, &app)
		}))
	}
	insert(1, 1.5, generic.StatusPending)
	insert(2, 0.5, generic.StatusPending)
	insert(3, 4, generic.StatusApproved)

	var total generic.Days
	require.NoError(t, store.WithTx(ctx, func(tx generic.Tx) error {
		var err error
		total, err = tx.SumPendingReservations(ctx, key)
		return err
	}))
	assert.Equal(t, "2.00", total.String())
}

func TestAppendAccrual_DuplicatePeriod(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	f, lt := seed(t, store)
	key := generic.BalanceKey{FacultyID: f.ID, LeaveTypeID: lt.ID, Year: 2025}

	entry := generic.AccrualEntry{
		FacultyID:   f.ID,
		LeaveTypeID: lt.ID,
		Year:        2025,
		Kind:        generic.AccrualMonthly,
		PeriodKey:   generic.MonthlyPeriodKey(2025, time.March),
		Amount:      generic.NewDays(2.5),
		AccrualDate: generic.NewDate(2025, time.March, 31),
	}
	require.NoError(t, store.WithTx(ctx, func(tx generic.Tx) error { return tx.AppendAccrual(ctx, entry) }))

	err := store.WithTx(ctx, func(tx generic.Tx) error { return tx.AppendAccrual(ctx, entry) })
	assert.ErrorIs(t, err, generic.ErrDuplicateAccrual)

	has, err := store.HasAccrual(ctx, key, generic.AccrualMonthly, "2025-03")
	require.NoError(t, err)
	assert.True(t, has)

	entries, err := store.ListAccruals(ctx, f.ID)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "2.50", entries[0].Amount.String())
}

func TestAdjustments_ListAndCount(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	f, lt := seed(t, store)

	alt := generic.Faculty{Name: "Ravi", JoiningDate: generic.NewDate(2018, time.January, 1), Active: true}
	require.NoError(t, store.SaveFaculty(ctx, &alt))

	app := generic.LeaveApplication{
		FacultyID: f.ID, LeaveTypeID: lt.ID, BalanceYear: 2025,
		StartDate: generic.NewDate(2025, time.June, 2),
		EndDate:   generic.NewDate(2025, time.June, 2),
		TotalDays: generic.NewDays(1),
		Status:    generic.StatusPending,
	}
	adj := generic.LeaveAdjustment{
		AdjustmentDate:     generic.NewDate(2025, time.June, 2),
		Period:             "P3",
		SubjectCode:        "CS301",
		AlternateFacultyID: alt.ID,
	}
	require.NoError(t, store.WithTx(ctx, func(tx generic.Tx) error {
		if err := tx.InsertApplication(ctx, &app); err != nil {
			return err
		}
		adj.ApplicationID = app.ID
		return tx.InsertAdjustment(ctx, &adj)
	}))

	n, err := store.CountUnresolvedAdjustments(ctx, app.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	pending, err := store.ListAdjustmentsByAlternate(ctx, alt.ID, generic.AdjustmentPending)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "CS301", pending[0].SubjectCode)

	now := time.Now()
	adj.Status = generic.AdjustmentConfirmed
	adj.ConfirmedAt = &now
	require.NoError(t, store.WithTx(ctx, func(tx generic.Tx) error { return tx.UpdateAdjustment(ctx, adj) }))

	n, err = store.CountUnresolvedAdjustments(ctx, app.ID)
	require.NoError(t, err)
	assert.Zero(t, n)

	all, err := store.ListAdjustmentsByAlternate(ctx, alt.ID, "")
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, generic.AdjustmentConfirmed, all[0].Status)
}

func TestBatchRuns(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	run := generic.BatchRun{
		Kind:      generic.BatchMonthlyAccrual,
		Year:      2025,
		PeriodKey: "2025-03",
		Processed: 4,
		Skipped:   1,
		Failures:  []generic.RowFailure{{FacultyID: 3, LeaveTypeID: 1, Error: "integrity", Integrity: true}},
		StartedAt: time.Now().Add(-time.Second),
	}
	run.CompletedAt = time.Now()
	require.NoError(t, store.SaveBatchRun(ctx, &run))
	assert.NotZero(t, run.ID)

	runs, err := store.ListBatchRuns(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, 4, runs[0].Processed)
	require.Len(t, runs[0].Failures, 1)
	assert.True(t, runs[0].Failures[0].Integrity)
}

func TestReset(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	seed(t, store)

	require.NoError(t, store.Reset(ctx))

	types, err := store.ListLeaveTypes(ctx)
	require.NoError(t, err)
	assert.Empty(t, types)
}
