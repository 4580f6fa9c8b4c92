package timeoff

import (
	"context"
	"strconv"
	"strings"

	"github.com/kishoreafk/Nit-Faculty-Managment-sub000/generic"
)

// ConfirmAdjustment records the named alternate's answer to a coverage
// request. Exactly once per adjustment: a second answer is a state conflict,
// anyone else is forbidden.
func (e *Engine) ConfirmAdjustment(ctx context.Context, in ConfirmInput) (generic.LeaveAdjustment, error) {
	if !in.Decision.IsDecision() {
		return generic.LeaveAdjustment{}, &generic.ValidationError{Field: "status", Message: "must be CONFIRMED or DECLINED"}
	}

	var adj generic.LeaveAdjustment
	err := e.Store.WithTx(ctx, func(tx generic.Tx) error {
		locked, err := tx.LockAdjustment(ctx, in.AdjustmentID)
		if err != nil {
			return err
		}
		if err := locked.CheckConfirmable(in.AlternateID); err != nil {
			return err
		}

		now := e.now()
		locked.Status = in.Decision
		locked.Remarks = strings.TrimSpace(in.Remarks)
		locked.ConfirmedAt = &now
		adj = *locked
		return tx.UpdateAdjustment(ctx, adj)
	})
	if err != nil {
		e.logFailure("confirm_adjustment", err)
		return generic.LeaveAdjustment{}, err
	}

	action := generic.AuditAdjustmentConfirmed
	if adj.Status == generic.AdjustmentDeclined {
		action = generic.AuditAdjustmentDeclined
	}
	e.Logger.Info().
		Int64("adjustment_id", int64(adj.ID)).
		Int64("application_id", int64(adj.ApplicationID)).
		Str("status", string(adj.Status)).
		Msg("adjustment answered")

	e.emit(ctx, generic.AuditEntry{
		ActorID:   generic.ActorID(in.AlternateID),
		ActorRole: RoleFaculty,
		Action:    action,
		FacultyID: in.AlternateID,
		Reference: "adjustment:" + strconv.FormatInt(int64(adj.ID), 10),
		Reason:    adj.Remarks,
		After: map[string]any{
			"application_id": int64(adj.ApplicationID),
			"status":         string(adj.Status),
		},
	})
	return adj, nil
}
