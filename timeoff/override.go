package timeoff

import (
	"context"
	"strings"

	"github.com/kishoreafk/Nit-Faculty-Managment-sub000/generic"
)

// OverrideBalance sets a balance row to an absolute value.
// The reason is mandatory and the new balance may not drop below what is
// already reserved: that would be an integrity fault, not a correction.
// A missing row is opened at zero first.
func (e *Engine) OverrideBalance(ctx context.Context, in OverrideInput) (generic.LeaveBalance, error) {
	reason := strings.TrimSpace(in.Reason)
	if reason == "" {
		return generic.LeaveBalance{}, &generic.ValidationError{Field: "reason", Message: "an override reason is required"}
	}
	if in.Year <= 0 {
		return generic.LeaveBalance{}, &generic.ValidationError{Field: "year", Message: "is required"}
	}
	if !in.NewBalance.HasCentPrecision() {
		return generic.LeaveBalance{}, &generic.ValidationError{Field: "new_balance", Message: "must have at most two decimal places"}
	}
	key := in.balanceKey()

	var before, after generic.LeaveBalance
	err := e.Store.WithTx(ctx, func(tx generic.Tx) error {
		if _, err := tx.GetLeaveType(ctx, in.LeaveTypeID); err != nil {
			return err
		}
		if _, err := tx.GetFaculty(ctx, in.FacultyID); err != nil {
			return err
		}

		bal, err := lockOrOpen(ctx, tx, key)
		if err != nil {
			return err
		}
		before = bal
		if after, err = bal.SetBalance(in.NewBalance); err != nil {
			return err
		}
		return tx.SaveBalance(ctx, after)
	})
	if err != nil {
		e.logFailure("override", err)
		return generic.LeaveBalance{}, err
	}

	e.Logger.Info().
		Str("key", key.String()).
		Str("from", before.Balance.String()).
		Str("to", after.Balance.String()).
		Int64("actor_id", int64(in.ActorID)).
		Msg("balance overridden")

	e.emit(ctx, generic.AuditEntry{
		ActorID:     in.ActorID,
		ActorRole:   RoleAdmin,
		Action:      generic.AuditBalanceOverride,
		FacultyID:   in.FacultyID,
		LeaveTypeID: in.LeaveTypeID,
		Year:        in.Year,
		Reference:   "balance:" + key.String(),
		Reason:      reason,
		Before:      before.Snapshot(),
		After:       after.Snapshot(),
	})
	return after, nil
}

// EnsureBalance opens a balance row with an opening amount if it does not
// exist yet. Returns false when the row was already there (left untouched).
func (e *Engine) EnsureBalance(ctx context.Context, key generic.BalanceKey, opening generic.Days, actor generic.ActorID) (bool, error) {
	if opening.IsNegative() {
		return false, &generic.ValidationError{Field: "opening", Message: "must not be negative"}
	}

	created := false
	var opened generic.LeaveBalance
	err := e.Store.WithTx(ctx, func(tx generic.Tx) error {
		existing, err := tx.LockBalance(ctx, key)
		if err != nil || existing != nil {
			return err
		}
		opened = generic.LeaveBalance{Key: key, Balance: opening}
		if err := tx.EnsureBalance(ctx, opened); err != nil {
			return err
		}
		created = true
		return nil
	})
	if err != nil {
		e.logFailure("ensure_balance", err)
		return false, err
	}
	if !created {
		return false, nil
	}

	e.emit(ctx, generic.AuditEntry{
		ActorID:     actor,
		ActorRole:   RoleAdmin,
		Action:      generic.AuditBalanceOpened,
		FacultyID:   key.FacultyID,
		LeaveTypeID: key.LeaveTypeID,
		Year:        key.Year,
		Reference:   "balance:" + key.String(),
		After:       opened.Snapshot(),
	})
	return true, nil
}
