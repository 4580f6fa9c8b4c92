/*
accrual.go - Accrual and carry-forward batches

PURPOSE:
  Credits balance rows on a schedule and moves unused days into the next
  year. Driven by the scheduler (api/scheduler.go) or an admin endpoint;
  the year and month are always explicit arguments.

BATCHES:
  RunMonthlyAccrual(year, month):
    For every active faculty member and every monthly leave type granted to
    their category: balance += rate, never above max_balance. Excess is
    dropped. History: MONTHLY / "YYYY-MM".

  RunYearlyAccrual(year):
    Same for yearly types. History: YEARLY / "YYYY".

  RunCarryForward(fromYear):
    For every carry-forward type: lock (fromYear) then (fromYear+1), reset
    the expiring row's reserved to the sum of its still-PENDING applications,
    carry min(available, cap) across. History: CARRY_FORWARD / "YYYY->YYYY+1".

ROW ISOLATION:
  Each (faculty, type) row is its own transaction. A failing row is recorded
  in the report and skipped; the batch goes on. An integrity fault (reserved
  would exceed balance) is logged at error level with integrity=true.

RESUMABILITY:
  accrual_history is unique per (faculty, type, kind, period key). A re-run
  skips rows that already carry an entry, so a crashed batch is simply run
  again.

EXAMPLE:
  Earned leave, 2.5/month, max 300, balance 299:
    March run credits 1.00 (capped), history "2025-03" amount 1.00
    Re-running March: row skipped

  Carry-forward cap 5, 2025 balance 12, nothing pending:
    2025: 12 -> 7,  2026: +5

SEE ALSO:
  - generic/ledger.go: AccrualEntry, BatchRun
  - generic/balance.go: CapCredit
*/
package timeoff

import (
	"context"
	"errors"
	"time"

	"github.com/kishoreafk/Nit-Faculty-Managment-sub000/generic"
)

// rowFunc processes one (faculty, leave type) pair inside its own
// transaction. It returns the audit entry for a processed row, or nil when
// the row was skipped.
type rowFunc func(ctx context.Context, f generic.Faculty, lt generic.LeaveType) (*generic.AuditEntry, error)

// =============================================================================
// MONTHLY / YEARLY ACCRUAL
// =============================================================================

// RunMonthlyAccrual credits every monthly leave type for the given month.
func (e *Engine) RunMonthlyAccrual(ctx context.Context, year generic.FiscalYear, month time.Month) (BatchReport, error) {
	if year <= 0 {
		return BatchReport{}, &generic.ValidationError{Field: "year", Message: "is required"}
	}
	if month < time.January || month > time.December {
		return BatchReport{}, &generic.ValidationError{Field: "month", Message: "must be between 1 and 12"}
	}
	periodKey := generic.MonthlyPeriodKey(year, month)
	accrualDate := generic.EndOfMonth(year, month)

	return e.runBatch(ctx, generic.BatchMonthlyAccrual, year, periodKey,
		func(lt generic.LeaveType) bool { return lt.Accrual.Frequency == generic.FreqMonthly },
		e.accrueRow(year, generic.AccrualMonthly, periodKey, accrualDate))
}

// RunYearlyAccrual credits every yearly leave type for the given year.
func (e *Engine) RunYearlyAccrual(ctx context.Context, year generic.FiscalYear) (BatchReport, error) {
	if year <= 0 {
		return BatchReport{}, &generic.ValidationError{Field: "year", Message: "is required"}
	}
	periodKey := generic.YearlyPeriodKey(year)

	return e.runBatch(ctx, generic.BatchYearlyAccrual, year, periodKey,
		func(lt generic.LeaveType) bool { return lt.Accrual.Frequency == generic.FreqYearly },
		e.accrueRow(year, generic.AccrualYearly, periodKey, generic.StartOfYear(year)))
}

func (e *Engine) accrueRow(year generic.FiscalYear, kind generic.AccrualKind, periodKey string, accrualDate generic.Date) rowFunc {
	return func(ctx context.Context, f generic.Faculty, lt generic.LeaveType) (*generic.AuditEntry, error) {
		key := generic.BalanceKey{FacultyID: f.ID, LeaveTypeID: lt.ID, Year: year}

		var entry *generic.AuditEntry
		err := e.Store.WithTx(ctx, func(tx generic.Tx) error {
			done, err := tx.HasAccrual(ctx, key, kind, periodKey)
			if err != nil || done {
				return err
			}

			bal, err := lockOrOpen(ctx, tx, key)
			if err != nil {
				return err
			}

			credit := generic.CapCredit(bal.Balance, lt.Accrual.Rate, lt.Accrual.MaxBalance)
			next, err := bal.Credit(credit)
			if err != nil {
				return err
			}
			if err := tx.SaveBalance(ctx, next); err != nil {
				return err
			}
			if err := tx.AppendAccrual(ctx, generic.AccrualEntry{
				FacultyID:   f.ID,
				LeaveTypeID: lt.ID,
				Year:        year,
				Kind:        kind,
				PeriodKey:   periodKey,
				Amount:      credit,
				AccrualDate: accrualDate,
				CreatedAt:   e.now(),
			}); err != nil {
				return err
			}

			entry = &generic.AuditEntry{
				ActorID:     generic.SystemActor,
				ActorRole:   RoleSystem,
				Action:      generic.AuditAccrualCredited,
				FacultyID:   f.ID,
				LeaveTypeID: lt.ID,
				Year:        year,
				Reference:   string(kind) + ":" + periodKey,
				Before:      bal.Snapshot(),
				After:       next.Snapshot(),
			}
			return nil
		})
		return entry, err
	}
}

// =============================================================================
// CARRY-FORWARD
// =============================================================================

// RunCarryForward moves unused days of fromYear into fromYear+1 for every
// leave type with carry-forward enabled.
func (e *Engine) RunCarryForward(ctx context.Context, fromYear generic.FiscalYear) (BatchReport, error) {
	if fromYear <= 0 {
		return BatchReport{}, &generic.ValidationError{Field: "year", Message: "is required"}
	}
	periodKey := generic.CarryForwardPeriodKey(fromYear)
	toYear := fromYear.Next()

	row := func(ctx context.Context, f generic.Faculty, lt generic.LeaveType) (*generic.AuditEntry, error) {
		fromKey := generic.BalanceKey{FacultyID: f.ID, LeaveTypeID: lt.ID, Year: fromYear}
		toKey := fromKey.NextYear()

		var entry *generic.AuditEntry
		err := e.Store.WithTx(ctx, func(tx generic.Tx) error {
			done, err := tx.HasAccrual(ctx, fromKey, generic.AccrualCarryForward, periodKey)
			if err != nil || done {
				return err
			}

			// Ascending year: expiring row first.
			old, err := tx.LockBalance(ctx, fromKey)
			if err != nil || old == nil {
				return err
			}
			next, err := lockOrOpen(ctx, tx, toKey)
			if err != nil {
				return err
			}

			pending, err := tx.SumPendingReservations(ctx, fromKey)
			if err != nil {
				return err
			}
			expiring := *old
			expiring.Reserved = pending
			if err := expiring.CheckInvariant("carry_forward"); err != nil {
				return err
			}

			carry := lt.CarryForward.CarryAmount(expiring.Available())
			if expiring, err = expiring.Debit(carry); err != nil {
				return err
			}
			credited, err := next.Credit(carry)
			if err != nil {
				return err
			}

			if err := tx.SaveBalance(ctx, expiring); err != nil {
				return err
			}
			if err := tx.SaveBalance(ctx, credited); err != nil {
				return err
			}
			if err := tx.AppendAccrual(ctx, generic.AccrualEntry{
				FacultyID:   f.ID,
				LeaveTypeID: lt.ID,
				Year:        toYear,
				Kind:        generic.AccrualCarryForward,
				PeriodKey:   periodKey,
				Amount:      carry,
				AccrualDate: generic.StartOfYear(toYear),
				CreatedAt:   e.now(),
			}); err != nil {
				return err
			}

			entry = &generic.AuditEntry{
				ActorID:     generic.SystemActor,
				ActorRole:   RoleSystem,
				Action:      generic.AuditCarryForward,
				FacultyID:   f.ID,
				LeaveTypeID: lt.ID,
				Year:        toYear,
				Reference:   string(generic.AccrualCarryForward) + ":" + periodKey,
				Before: map[string]any{
					"from": old.Snapshot(),
					"to":   next.Snapshot(),
				},
				After: map[string]any{
					"from":    expiring.Snapshot(),
					"to":      credited.Snapshot(),
					"carried": carry.String(),
				},
			}
			return nil
		})
		return entry, err
	}

	return e.runBatch(ctx, generic.BatchCarryForward, fromYear, periodKey,
		func(lt generic.LeaveType) bool { return lt.CarryForward.Enabled },
		row)
}

// =============================================================================
// BATCH DRIVER
// =============================================================================

// runBatch iterates active faculty x selected leave types. Cancellation is
// checked between rows; a cancelled batch still records what it did.
func (e *Engine) runBatch(
	ctx context.Context,
	kind generic.BatchKind,
	year generic.FiscalYear,
	periodKey string,
	selects func(generic.LeaveType) bool,
	process rowFunc,
) (BatchReport, error) {
	log := e.Logger.With().Str("batch", string(kind)).Str("period", periodKey).Logger()
	report := BatchReport{Kind: kind, Year: year, PeriodKey: periodKey, StartedAt: e.now()}

	faculty, err := e.Store.ListActiveFaculty(ctx)
	if err != nil {
		return report, err
	}
	types, err := e.Store.ListLeaveTypes(ctx)
	if err != nil {
		return report, err
	}

	var (
		entries   []generic.AuditEntry
		cancelled error
	)
rows:
	for _, f := range faculty {
		for _, lt := range types {
			if !selects(lt) || !lt.AppliesTo(f.Category) {
				continue
			}
			if err := ctx.Err(); err != nil {
				cancelled = err
				break rows
			}

			entry, err := process(ctx, f, lt)
			switch {
			case errors.Is(err, generic.ErrDuplicateAccrual):
				// A concurrent run got there first.
				report.Skipped++
			case err != nil:
				integrity := generic.IsIntegrity(err)
				report.Failures = append(report.Failures, generic.RowFailure{
					FacultyID:   f.ID,
					LeaveTypeID: lt.ID,
					Error:       err.Error(),
					Integrity:   integrity,
				})
				ev := log.Warn()
				if integrity {
					ev = log.Error().Bool("integrity", true)
				}
				ev.Err(err).Int64("faculty_id", int64(f.ID)).Int64("leave_type_id", int64(lt.ID)).Msg("batch row skipped")
			case entry == nil:
				report.Skipped++
			default:
				report.Processed++
				entries = append(entries, *entry)
			}
		}
	}

	report.CompletedAt = e.now()
	if err := e.Store.SaveBatchRun(context.WithoutCancel(ctx), &report); err != nil {
		log.Error().Err(err).Msg("failed to record batch run")
	}
	e.emit(context.WithoutCancel(ctx), entries...)

	log.Info().
		Int("processed", report.Processed).
		Int("skipped", report.Skipped).
		Int("failed", len(report.Failures)).
		Bool("cancelled", cancelled != nil).
		Msg("batch finished")
	return report, cancelled
}

// lockOrOpen locks key, creating a zero row first when it does not exist.
func lockOrOpen(ctx context.Context, tx generic.Tx, key generic.BalanceKey) (generic.LeaveBalance, error) {
	bal, err := tx.LockBalance(ctx, key)
	if err != nil {
		return generic.LeaveBalance{}, err
	}
	if bal != nil {
		return *bal, nil
	}
	if err := tx.EnsureBalance(ctx, generic.LeaveBalance{Key: key}); err != nil {
		return generic.LeaveBalance{}, err
	}
	bal, err = tx.LockBalance(ctx, key)
	if err != nil {
		return generic.LeaveBalance{}, err
	}
	if bal == nil {
		return generic.LeaveBalance{}, &generic.NotFoundError{Kind: "balance", ID: int64(key.FacultyID)}
	}
	return *bal, nil
}
