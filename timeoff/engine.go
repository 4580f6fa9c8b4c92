/*
engine.go - Leave engine entry point

PURPOSE:
  Engine is the only writer of balance rows. Every mutating operation runs
  inside Store.WithTx, locks the (faculty, leave type, year) balance row
  first, and re-reads whatever it decides on under that lock.

OPERATIONS:
  Apply              reserve days for a new PENDING application
  Review             approve (settle) or reject (release)
  Withdraw           owner cancels a PENDING application (release)
  ConfirmAdjustment  named alternate confirms or declines class coverage
  RunMonthlyAccrual, RunYearlyAccrual, RunCarryForward   batches
  OverrideBalance    administrative correction with mandatory reason
  EnsureBalance      open a balance row (onboarding)

AUDIT:
  Entries are emitted after commit. A failing sink is logged and never
  undoes a committed mutation.

TIME:
  The fiscal year is always an explicit argument. Clock is consulted only
  for timestamps (reviewed_at, deleted_at) and the default as-of date.

SEE ALSO:
  - request.go: Apply, Review, Withdraw
  - accrual.go: batches
  - generic/store.go: locking contract
*/
package timeoff

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/kishoreafk/Nit-Faculty-Managment-sub000/generic"
)

// Actor roles recorded in audit entries.
const (
	RoleFaculty = "faculty"
	RoleHOD     = "hod"
	RoleAdmin   = "admin"
	RoleSystem  = "system"
)

// Engine wires the store, the audit sink and a clock.
type Engine struct {
	Store  generic.TxStore
	Audit  generic.AuditLog // optional
	Clock  func() time.Time
	Logger zerolog.Logger
}

// NewEngine returns an engine using the wall clock.
func NewEngine(store generic.TxStore, audit generic.AuditLog, logger zerolog.Logger) *Engine {
	return &Engine{
		Store:  store,
		Audit:  audit,
		Clock:  time.Now,
		Logger: logger.With().Str("component", "engine").Logger(),
	}
}

func (e *Engine) now() time.Time {
	if e.Clock == nil {
		return time.Now()
	}
	return e.Clock()
}

func (e *Engine) today() generic.Date {
	return generic.DateOf(e.now())
}

// emit hands entries to the audit sink. Called after commit only.
func (e *Engine) emit(ctx context.Context, entries ...generic.AuditEntry) {
	if e.Audit == nil {
		return
	}
	for _, entry := range entries {
		if entry.ID == "" {
			entry.ID = uuid.NewString()
		}
		if entry.Timestamp.IsZero() {
			entry.Timestamp = e.now()
		}
		if err := e.Audit.Append(ctx, entry); err != nil {
			e.Logger.Warn().Err(err).
				Str("action", string(entry.Action)).
				Str("reference", entry.Reference).
				Msg("audit append failed")
		}
	}
}

// logFailure logs an operation error at the level its category warrants.
func (e *Engine) logFailure(op string, err error) {
	switch {
	case generic.IsIntegrity(err):
		e.Logger.Error().Err(err).Bool("integrity", true).Str("op", op).Msg("integrity fault")
	case generic.IsConflict(err):
		e.Logger.Warn().Err(err).Str("op", op).Msg("state conflict")
	case generic.IsClientError(err), generic.IsNotFound(err), generic.IsForbidden(err):
		e.Logger.Debug().Err(err).Str("op", op).Msg("request refused")
	default:
		e.Logger.Error().Err(err).Str("op", op).Msg("operation failed")
	}
}
