package api

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kishoreafk/Nit-Faculty-Managment-sub000/generic"
)

func TestPeriodFor(t *testing.T) {
	tests := []struct {
		name  string
		kind  generic.BatchKind
		now   time.Time
		year  generic.FiscalYear
		month time.Month
	}{
		{"monthly credits the month that ended", generic.BatchMonthlyAccrual, time.Date(2025, time.June, 1, 0, 5, 0, 0, time.UTC), 2025, time.May},
		{"monthly in January credits December", generic.BatchMonthlyAccrual, time.Date(2026, time.January, 1, 0, 5, 0, 0, time.UTC), 2025, time.December},
		{"yearly uses the year that started", generic.BatchYearlyAccrual, time.Date(2026, time.January, 1, 0, 10, 0, 0, time.UTC), 2026, 0},
		{"carry-forward closes the previous year", generic.BatchCarryForward, time.Date(2026, time.January, 1, 0, 30, 0, 0, time.UTC), 2025, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			year, month := PeriodFor(tt.kind, tt.now)
			assert.Equal(t, tt.year, year)
			assert.Equal(t, tt.month, month)
		})
	}
}

func TestScheduler_Trigger(t *testing.T) {
	ts := newTestServer(t)
	ts.department(t)
	s := NewScheduler(ts.handler.Engine, ScheduleSpecs{}, zerolog.Nop())

	// GIVEN: the clock reads June 1st, 2025
	// WHEN: the monthly batch is triggered
	report, err := s.Trigger(context.Background(), generic.BatchMonthlyAccrual)

	// THEN: May is credited
	require.NoError(t, err)
	assert.Equal(t, "2025-05", report.PeriodKey)
	assert.Equal(t, 3, report.Processed)

	report, err = s.Trigger(context.Background(), generic.BatchCarryForward)
	require.NoError(t, err)
	assert.Equal(t, "2024->2025", report.PeriodKey)

	_, err = s.Trigger(context.Background(), generic.BatchKind("weekly"))
	assert.True(t, generic.IsClientError(err))
}

func TestScheduler_StartRejectsInvalidSchedule(t *testing.T) {
	ts := newTestServer(t)
	s := NewScheduler(ts.handler.Engine, ScheduleSpecs{MonthlyAccrual: "every full moon"}, zerolog.Nop())

	err := s.Start()

	require.Error(t, err)
	assert.Contains(t, err.Error(), "every full moon")
}

func TestScheduler_StartStop(t *testing.T) {
	ts := newTestServer(t)
	s := NewScheduler(ts.handler.Engine, ScheduleSpecs{
		MonthlyAccrual: "5 0 1 * *",
		YearlyAccrual:  "10 0 1 1 *",
	}, zerolog.Nop())

	require.NoError(t, s.Start())
	assert.Len(t, s.cron.Entries(), 2)
	s.Stop()

	// Stopping a scheduler that never started is a no-op.
	NewScheduler(ts.handler.Engine, ScheduleSpecs{}, zerolog.Nop()).Stop()
}
