// Package timeoff implements the faculty leave lifecycle on top of the generic
// balance model: apply (reserve), review (settle or release), withdraw,
// class-coverage adjustments, accrual and carry-forward batches, and
// administrative overrides.
package timeoff

import (
	"strings"

	"github.com/kishoreafk/Nit-Faculty-Managment-sub000/generic"
)

// =============================================================================
// APPLY
// =============================================================================

// ApplyInput is a leave request as submitted by the faculty member.
// TotalDays is computed by the caller (working days, half days) and is
// trusted as long as it is a positive multiple of 0.5.
type ApplyInput struct {
	FacultyID    generic.FacultyID
	LeaveTypeID  generic.LeaveTypeID
	Year         generic.FiscalYear
	StartDate    generic.Date
	EndDate      generic.Date
	TotalDays    generic.Days
	Category     string
	IsDuringExam bool
	Contact      string
	Remarks      string

	// AppliedOn is the as-of date for service-length rules. Zero means today.
	AppliedOn generic.Date

	Adjustments []AdjustmentInput
}

// AdjustmentInput names an alternate faculty member covering one class.
type AdjustmentInput struct {
	AdjustmentDate     generic.Date
	Period             string
	SubjectCode        string
	ClassSection       string
	RoomNo             string
	AlternateFacultyID generic.FacultyID
}

// Validate runs every check that needs no lock.
func (in ApplyInput) Validate() error {
	if in.FacultyID == 0 {
		return &generic.ValidationError{Field: "faculty_id", Message: "is required"}
	}
	if in.LeaveTypeID == 0 {
		return &generic.ValidationError{Field: "leave_type_id", Message: "is required"}
	}
	if in.Year <= 0 {
		return &generic.ValidationError{Field: "year", Message: "is required"}
	}
	period := generic.Period{Start: in.StartDate, End: in.EndDate}
	if err := period.Validate(); err != nil {
		return err
	}
	// A request spanning New Year may draw on either year's row, nothing else.
	if in.Year < in.StartDate.FiscalYear() || in.Year > in.EndDate.FiscalYear() {
		return &generic.ValidationError{Field: "year", Message: "must be the year of the start or end date"}
	}
	if !in.TotalDays.IsPositive() {
		return &generic.ValidationError{Field: "total_days", Message: "must be positive"}
	}
	if !in.TotalDays.HasCentPrecision() {
		return &generic.ValidationError{Field: "total_days", Message: "must have at most two decimal places"}
	}
	if !in.TotalDays.IsHalfDayMultiple() {
		return &generic.ValidationError{Field: "total_days", Message: "must be a multiple of 0.5"}
	}
	for _, adj := range in.Adjustments {
		if adj.AlternateFacultyID == 0 {
			return &generic.ValidationError{Field: "adjustments", Message: "alternate faculty is required"}
		}
		if adj.AlternateFacultyID == in.FacultyID {
			return &generic.ValidationError{Field: "adjustments", Message: "applicant cannot cover their own class"}
		}
		if adj.AdjustmentDate.IsZero() {
			return &generic.ValidationError{Field: "adjustments", Message: "adjustment date is required"}
		}
		if !period.Contains(adj.AdjustmentDate) {
			return &generic.ValidationError{Field: "adjustments", Message: "adjustment date must fall within the leave"}
		}
	}
	return nil
}

func (in ApplyInput) balanceKey() generic.BalanceKey {
	return generic.BalanceKey{FacultyID: in.FacultyID, LeaveTypeID: in.LeaveTypeID, Year: in.Year}
}

// ApplyResult is returned for every request that reached the policy checks.
// Code is SUCCESS or the first rule that refused it.
type ApplyResult struct {
	Code          generic.ResultCode
	ApplicationID generic.ApplicationID
	Available     generic.Days // after the reservation on success
}

// Succeeded reports whether the request was reserved.
func (r ApplyResult) Succeeded() bool { return r.Code == generic.ResultSuccess }

// =============================================================================
// REVIEW
// =============================================================================

type ReviewInput struct {
	ApplicationID generic.ApplicationID
	ReviewerID    generic.ActorID
	ReviewerRole  string
	Decision      generic.ApplicationStatus
	Reason        string
}

// Validate returns a copy with the reason trimmed.
func (in ReviewInput) Validate() (ReviewInput, error) {
	in.Reason = strings.TrimSpace(in.Reason)
	if in.Reason == "" {
		return in, &generic.ValidationError{Field: "reason", Message: "a review reason is required"}
	}
	if !in.Decision.IsReviewDecision() {
		return in, &generic.ValidationError{Field: "decision", Message: "must be APPROVED or REJECTED"}
	}
	return in, nil
}

type ReviewResult struct {
	Application generic.LeaveApplication
	Balance     generic.LeaveBalance

	// UnresolvedAdjustments counts PENDING adjustments at decision time.
	// Advisory only.
	UnresolvedAdjustments int
}

// =============================================================================
// ADJUSTMENTS
// =============================================================================

type ConfirmInput struct {
	AdjustmentID generic.AdjustmentID
	AlternateID  generic.FacultyID
	Decision     generic.AdjustmentStatus
	Remarks      string
}

// =============================================================================
// OVERRIDE
// =============================================================================

type OverrideInput struct {
	FacultyID   generic.FacultyID
	LeaveTypeID generic.LeaveTypeID
	Year        generic.FiscalYear
	NewBalance  generic.Days
	Reason      string
	ActorID     generic.ActorID
}

func (in OverrideInput) balanceKey() generic.BalanceKey {
	return generic.BalanceKey{FacultyID: in.FacultyID, LeaveTypeID: in.LeaveTypeID, Year: in.Year}
}

// =============================================================================
// BATCHES
// =============================================================================

// BatchReport summarises one batch invocation. It is also persisted.
type BatchReport = generic.BatchRun

// =============================================================================
// READ MODELS
// =============================================================================

// BalanceView is a balance row joined with its leave type for display.
type BalanceView struct {
	generic.LeaveBalance
	LeaveTypeCode string
	LeaveTypeName string
}

// PendingView is a review queue entry.
type PendingView struct {
	generic.LeaveApplication
	FacultyName           string
	LeaveTypeCode         string
	UnresolvedAdjustments int
}
