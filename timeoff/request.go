package timeoff

import (
	"context"
	"strconv"

	"github.com/kishoreafk/Nit-Faculty-Managment-sub000/generic"
)

// =============================================================================
// APPLY - Reserve days for a new application
// =============================================================================

// Apply submits a leave application.
// This is TRANSACTIONAL:
//   - Locks the (faculty, type, year) balance row (missing row = zero balance)
//   - Evaluates eligibility
//   - Rejects overlap with any PENDING/APPROVED application of any type
//   - Checks availability
//   - Inserts the PENDING application and its adjustments, reserves the days
//
// A policy refusal is not an error: it comes back as the result code and
// nothing is written. Errors are validation, not-found, integrity and system
// faults.
func (e *Engine) Apply(ctx context.Context, in ApplyInput) (ApplyResult, error) {
	if err := in.Validate(); err != nil {
		return ApplyResult{}, err
	}

	asOf := in.AppliedOn
	if asOf.IsZero() {
		asOf = e.today()
	}
	key := in.balanceKey()

	var (
		result ApplyResult
		before generic.LeaveBalance
		after  generic.LeaveBalance
		app    generic.LeaveApplication
	)
	err := e.Store.WithTx(ctx, func(tx generic.Tx) error {
		lt, err := tx.GetLeaveType(ctx, in.LeaveTypeID)
		if err != nil {
			return err
		}

		// 1. Lock the balance row before anything that depends on it.
		locked, err := tx.LockBalance(ctx, key)
		if err != nil {
			return err
		}
		bal := generic.LeaveBalance{Key: key}
		if locked != nil {
			bal = *locked
		}

		// The faculty row serializes this applicant's requests across types,
		// which keeps the overlap check race free.
		faculty, err := tx.LockFaculty(ctx, in.FacultyID)
		if err != nil {
			return err
		}

		// 2. Eligibility.
		if code := Evaluate(*faculty, *lt, asOf); code != generic.EligibilityOK {
			return &generic.RejectionError{Code: code, Detail: lt.Code}
		}

		// 3. Overlap, inclusive on both ends.
		period := generic.Period{Start: in.StartDate, End: in.EndDate}
		overlap, err := tx.HasOverlap(ctx, in.FacultyID, period)
		if err != nil {
			return err
		}
		if overlap {
			return &generic.RejectionError{Code: generic.ResultOverlappingLeave, Detail: period.String()}
		}

		// 4. Availability.
		if bal.Available().LessThan(in.TotalDays) {
			return &generic.RejectionError{
				Code:   generic.ResultInsufficientBalance,
				Detail: "available " + bal.Available().String() + ", requested " + in.TotalDays.String(),
			}
		}

		// 5. Reserve and record. A missing row has zero availability, so the
		// row exists by now.
		before = bal
		after, err = bal.Reserve(in.TotalDays)
		if err != nil {
			return err
		}
		if err := tx.SaveBalance(ctx, after); err != nil {
			return err
		}

		app = generic.LeaveApplication{
			FacultyID:    in.FacultyID,
			LeaveTypeID:  in.LeaveTypeID,
			BalanceYear:  in.Year,
			StartDate:    in.StartDate,
			EndDate:      in.EndDate,
			TotalDays:    in.TotalDays,
			Status:       generic.StatusPending,
			Category:     in.Category,
			IsDuringExam: in.IsDuringExam,
			Contact:      in.Contact,
			Remarks:      in.Remarks,
			CreatedAt:    e.now(),
		}
		if err := tx.InsertApplication(ctx, &app); err != nil {
			return err
		}

		for _, a := range in.Adjustments {
			if _, err := tx.GetFaculty(ctx, a.AlternateFacultyID); err != nil {
				if generic.IsNotFound(err) {
					return &generic.ValidationError{Field: "adjustments", Message: "alternate faculty " +
						strconv.FormatInt(int64(a.AlternateFacultyID), 10) + " does not exist"}
				}
				return err
			}
			adj := generic.LeaveAdjustment{
				ApplicationID:      app.ID,
				AdjustmentDate:     a.AdjustmentDate,
				Period:             a.Period,
				SubjectCode:        a.SubjectCode,
				ClassSection:       a.ClassSection,
				RoomNo:             a.RoomNo,
				AlternateFacultyID: a.AlternateFacultyID,
				Status:             generic.AdjustmentPending,
			}
			if err := tx.InsertAdjustment(ctx, &adj); err != nil {
				return err
			}
		}

		result = ApplyResult{Code: generic.ResultSuccess, ApplicationID: app.ID, Available: after.Available()}
		return nil
	})

	if code, ok := generic.RejectionCode(err); ok {
		e.Logger.Info().
			Int64("faculty_id", int64(in.FacultyID)).
			Int64("leave_type_id", int64(in.LeaveTypeID)).
			Str("code", string(code)).
			Msg("leave application refused")
		return ApplyResult{Code: code}, nil
	}
	if err != nil {
		e.logFailure("apply", err)
		return ApplyResult{}, err
	}

	e.Logger.Info().
		Int64("application_id", int64(app.ID)).
		Int64("faculty_id", int64(in.FacultyID)).
		Str("days", in.TotalDays.String()).
		Msg("leave reserved")

	e.emit(ctx, generic.AuditEntry{
		ActorID:     generic.ActorID(in.FacultyID),
		ActorRole:   RoleFaculty,
		Action:      generic.AuditLeaveApplied,
		FacultyID:   in.FacultyID,
		LeaveTypeID: in.LeaveTypeID,
		Year:        in.Year,
		Reference:   applicationRef(app.ID),
		Before:      before.Snapshot(),
		After:       after.Snapshot(),
	})
	return result, nil
}

// =============================================================================
// REVIEW - Approve (settle) or reject (release)
// =============================================================================

// Review records a reviewer's decision on a PENDING application.
// This is TRANSACTIONAL:
//   - Validates the reason and decision before any lock
//   - Locks the balance row, then re-reads the application under the lock
//   - Fails with a state conflict unless the application is still PENDING
//   - Approve: balance -= days, reserved -= days
//   - Reject:  reserved -= days
//
// Unresolved adjustments never block the decision; their count is reported.
func (e *Engine) Review(ctx context.Context, in ReviewInput) (ReviewResult, error) {
	in, err := in.Validate()
	if err != nil {
		return ReviewResult{}, err
	}
	role := in.ReviewerRole
	if role == "" {
		role = RoleHOD
	}

	var (
		result ReviewResult
		before generic.LeaveBalance
	)
	err = e.Store.WithTx(ctx, func(tx generic.Tx) error {
		// Unlocked read to learn which balance row to lock.
		peek, err := tx.GetApplication(ctx, in.ApplicationID)
		if err != nil {
			return err
		}
		if generic.ActorID(peek.FacultyID) == in.ReviewerID {
			return &generic.ForbiddenError{Reason: "reviewers cannot decide their own application"}
		}

		locked, err := tx.LockBalance(ctx, peek.BalanceKey())
		if err != nil {
			return err
		}

		app, err := tx.LockApplication(ctx, in.ApplicationID)
		if err != nil {
			return err
		}
		if !generic.CanTransition(app.Status, in.Decision) {
			return &generic.StateConflictError{Kind: "application", ID: int64(app.ID), Current: string(app.Status)}
		}
		if locked == nil {
			return &generic.IntegrityError{Key: app.BalanceKey(), Operation: "review (missing balance row)"}
		}
		before = *locked

		var next generic.LeaveBalance
		if in.Decision == generic.StatusApproved {
			next, err = locked.Settle(app.TotalDays)
		} else {
			next, err = locked.Release(app.TotalDays)
		}
		if err != nil {
			return err
		}
		if err := tx.SaveBalance(ctx, next); err != nil {
			return err
		}

		now := e.now()
		reviewer := in.ReviewerID
		reason := in.Reason
		app.Status = in.Decision
		app.ReviewerID = &reviewer
		app.ReviewReason = &reason
		app.ReviewedAt = &now
		if err := tx.UpdateApplication(ctx, *app); err != nil {
			return err
		}

		unresolved, err := tx.CountUnresolvedAdjustments(ctx, app.ID)
		if err != nil {
			return err
		}

		result = ReviewResult{Application: *app, Balance: next, UnresolvedAdjustments: unresolved}
		return nil
	})
	if err != nil {
		e.logFailure("review", err)
		return ReviewResult{}, err
	}

	app := result.Application
	action := generic.AuditLeaveApproved
	if app.Status == generic.StatusRejected {
		action = generic.AuditLeaveRejected
	}
	e.Logger.Info().
		Int64("application_id", int64(app.ID)).
		Str("status", string(app.Status)).
		Int64("reviewer_id", int64(in.ReviewerID)).
		Int("unresolved_adjustments", result.UnresolvedAdjustments).
		Msg("leave reviewed")

	e.emit(ctx, generic.AuditEntry{
		ActorID:     in.ReviewerID,
		ActorRole:   role,
		Action:      action,
		FacultyID:   app.FacultyID,
		LeaveTypeID: app.LeaveTypeID,
		Year:        app.BalanceYear,
		Reference:   applicationRef(app.ID),
		Reason:      in.Reason,
		Before:      before.Snapshot(),
		After:       result.Balance.Snapshot(),
	})
	return result, nil
}

// =============================================================================
// WITHDRAW - Owner cancels a PENDING application
// =============================================================================

// Withdraw soft-deletes a PENDING application and releases its reservation.
// Only the applicant may withdraw. Approved and rejected applications are
// final: withdrawing them is a state conflict.
func (e *Engine) Withdraw(ctx context.Context, applicationID generic.ApplicationID, requesterID generic.FacultyID) error {
	var (
		app    generic.LeaveApplication
		before generic.LeaveBalance
		after  generic.LeaveBalance
	)
	err := e.Store.WithTx(ctx, func(tx generic.Tx) error {
		peek, err := tx.GetApplication(ctx, applicationID)
		if err != nil {
			return err
		}
		if peek.FacultyID != requesterID {
			return &generic.ForbiddenError{Reason: "only the applicant may withdraw an application"}
		}

		locked, err := tx.LockBalance(ctx, peek.BalanceKey())
		if err != nil {
			return err
		}
		current, err := tx.LockApplication(ctx, applicationID)
		if err != nil {
			return err
		}
		if !generic.CanTransition(current.Status, generic.StatusDeleted) {
			return &generic.StateConflictError{Kind: "application", ID: int64(current.ID), Current: string(current.Status)}
		}
		if locked == nil {
			return &generic.IntegrityError{Key: current.BalanceKey(), Operation: "withdraw (missing balance row)"}
		}

		before = *locked
		after, err = locked.Release(current.TotalDays)
		if err != nil {
			return err
		}
		if err := tx.SaveBalance(ctx, after); err != nil {
			return err
		}

		now := e.now()
		current.Status = generic.StatusDeleted
		current.DeletedAt = &now
		app = *current
		return tx.UpdateApplication(ctx, app)
	})
	if err != nil {
		e.logFailure("withdraw", err)
		return err
	}

	e.Logger.Info().Int64("application_id", int64(app.ID)).Msg("leave withdrawn")
	e.emit(ctx, generic.AuditEntry{
		ActorID:     generic.ActorID(requesterID),
		ActorRole:   RoleFaculty,
		Action:      generic.AuditLeaveWithdrawn,
		FacultyID:   app.FacultyID,
		LeaveTypeID: app.LeaveTypeID,
		Year:        app.BalanceYear,
		Reference:   applicationRef(app.ID),
		Before:      before.Snapshot(),
		After:       after.Snapshot(),
	})
	return nil
}

func applicationRef(id generic.ApplicationID) string {
	return "application:" + strconv.FormatInt(int64(id), 10)
}
