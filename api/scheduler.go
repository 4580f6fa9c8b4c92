/*
scheduler.go - Cron-driven accrual and carry-forward

PURPOSE:
  Runs the three batches on their schedules. This is the only place that
  derives the fiscal year (and month) from the clock; the engine always
  receives them as arguments.

DEFAULT SCHEDULE (five-field cron, server time zone):
  5 0 1 * *     monthly accrual for the month that just ended
  10 0 1 1 *    yearly accrual for the year that just started
  30 0 1 1 *    carry-forward from the year that just ended

  On January 1st the December accrual runs before the carry-forward, so
  the December credit is part of what carries over.

DESIGN:
  - robfig/cron with SkipIfStillRunning: a slow batch is never stacked
  - Batches are serialized by a mutex, whether fired by cron or Trigger
  - Re-running a period is harmless (accrual history makes rows skip)

USAGE:
  s := NewScheduler(engine, ScheduleSpecs{...}, logger)
  if err := s.Start(); err != nil { ... }
  defer s.Stop()

SEE ALSO:
  - timeoff/accrual.go: the batches
  - handlers.go: manual batch endpoints
*/
package api

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/kishoreafk/Nit-Faculty-Managment-sub000/generic"
	"github.com/kishoreafk/Nit-Faculty-Managment-sub000/timeoff"
)

// ScheduleSpecs holds one cron expression per batch. Empty disables it.
type ScheduleSpecs struct {
	MonthlyAccrual string
	YearlyAccrual  string
	CarryForward   string
}

// BatchTimeout bounds one scheduled run.
const BatchTimeout = 30 * time.Minute

// Scheduler fires batches on cron schedules.
type Scheduler struct {
	Engine *timeoff.Engine
	Specs  ScheduleSpecs
	Logger zerolog.Logger

	cron *cron.Cron
	mu   sync.Mutex
}

func NewScheduler(engine *timeoff.Engine, specs ScheduleSpecs, logger zerolog.Logger) *Scheduler {
	return &Scheduler{
		Engine: engine,
		Specs:  specs,
		Logger: logger.With().Str("component", "scheduler").Logger(),
	}
}

// Start registers every non-empty schedule and starts the cron loop.
func (s *Scheduler) Start() error {
	logger := cronLogger{s.Logger}
	c := cron.New(cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)), cron.WithLogger(logger))

	jobs := []struct {
		expr string
		kind generic.BatchKind
	}{
		{s.Specs.MonthlyAccrual, generic.BatchMonthlyAccrual},
		{s.Specs.YearlyAccrual, generic.BatchYearlyAccrual},
		{s.Specs.CarryForward, generic.BatchCarryForward},
	}
	for _, job := range jobs {
		if job.expr == "" {
			continue
		}
		kind := job.kind
		if _, err := c.AddFunc(job.expr, func() { s.fire(kind) }); err != nil {
			return fmt.Errorf("invalid schedule %q for %s: %w", job.expr, kind, err)
		}
		s.Logger.Info().Str("batch", string(kind)).Str("schedule", job.expr).Msg("batch scheduled")
	}

	s.cron = c
	c.Start()
	return nil
}

// Stop waits for a running batch to finish.
func (s *Scheduler) Stop() {
	if s.cron == nil {
		return
	}
	<-s.cron.Stop().Done()
	s.Logger.Info().Msg("scheduler stopped")
}

func (s *Scheduler) fire(kind generic.BatchKind) {
	ctx, cancel := context.WithTimeout(context.Background(), BatchTimeout)
	defer cancel()

	if _, err := s.Trigger(ctx, kind); err != nil {
		s.Logger.Error().Err(err).Str("batch", string(kind)).Msg("scheduled batch failed")
	}
}

// Trigger runs one batch for the period the clock points at.
func (s *Scheduler) Trigger(ctx context.Context, kind generic.BatchKind) (timeoff.BatchReport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	year, month := PeriodFor(kind, s.now())
	switch kind {
	case generic.BatchMonthlyAccrual:
		return s.Engine.RunMonthlyAccrual(ctx, year, month)
	case generic.BatchYearlyAccrual:
		return s.Engine.RunYearlyAccrual(ctx, year)
	case generic.BatchCarryForward:
		return s.Engine.RunCarryForward(ctx, year)
	}
	return timeoff.BatchReport{}, &generic.ValidationError{Field: "kind", Message: "unknown batch " + string(kind)}
}

func (s *Scheduler) now() time.Time {
	if s.Engine.Clock != nil {
		return s.Engine.Clock()
	}
	return time.Now()
}

// PeriodFor maps a firing time to batch arguments:
//
//	monthly accrual  -> the previous calendar month
//	yearly accrual   -> the current year
//	carry-forward    -> the previous year (source year)
func PeriodFor(kind generic.BatchKind, now time.Time) (generic.FiscalYear, time.Month) {
	switch kind {
	case generic.BatchMonthlyAccrual:
		first := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
		prev := first.AddDate(0, 0, -1)
		return generic.FiscalYear(prev.Year()), prev.Month()
	case generic.BatchCarryForward:
		return generic.FiscalYear(now.Year() - 1), 0
	default:
		return generic.FiscalYear(now.Year()), 0
	}
}

// cronLogger adapts zerolog to cron.Logger.
type cronLogger struct {
	log zerolog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.log.Debug().Fields(keysAndValues).Msg(msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.log.Error().Err(err).Fields(keysAndValues).Msg(msg)
}
