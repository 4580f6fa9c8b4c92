/*
request.go - Leave application lifecycle

PURPOSE:
  Models a leave application and the class-coverage adjustments attached to
  it, together with the status machines both follow.

APPLICATION STATUS MACHINE:

	PENDING ──► APPROVED   (reviewer; balance -= days, reserved -= days)
	   │
	   ├──────► REJECTED   (reviewer; reserved -= days)
	   │
	   └──────► DELETED    (owner withdraws; reserved -= days)

  APPROVED, REJECTED and DELETED are terminal. Applications are never hard
  deleted; DELETED is a soft mark with deleted_at.

ADJUSTMENT STATUS MACHINE:

	PENDING ──► CONFIRMED | DECLINED   (named alternate only, exactly once)

  Adjustments are advisory: unresolved ones never block a review.

SEE ALSO:
  - balance.go: the balance mutation each transition applies
  - timeoff/engine.go: the operations
*/
package generic

import (
	"fmt"
	"strings"
	"time"
)

// =============================================================================
// APPLICATION STATUS
// =============================================================================

type ApplicationStatus string

const (
	StatusPending  ApplicationStatus = "PENDING"
	StatusApproved ApplicationStatus = "APPROVED"
	StatusRejected ApplicationStatus = "REJECTED"
	StatusDeleted  ApplicationStatus = "DELETED"
)

// applicationTransitions lists every allowed (from -> to) pair.
var applicationTransitions = map[ApplicationStatus][]ApplicationStatus{
	StatusPending: {StatusApproved, StatusRejected, StatusDeleted},
}

// CanTransition reports whether an application may move from -> to.
func CanTransition(from, to ApplicationStatus) bool {
	for _, s := range applicationTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// IsReviewDecision reports whether s is a decision a reviewer may take.
func (s ApplicationStatus) IsReviewDecision() bool {
	return s == StatusApproved || s == StatusRejected
}

// ParseApplicationStatus converts a raw string, case-insensitively.
func ParseApplicationStatus(s string) (ApplicationStatus, error) {
	st := ApplicationStatus(strings.ToUpper(strings.TrimSpace(s)))
	switch st {
	case StatusPending, StatusApproved, StatusRejected, StatusDeleted:
		return st, nil
	}
	return "", fmt.Errorf("unknown application status %q", s)
}

// =============================================================================
// LEAVE APPLICATION
// =============================================================================

type LeaveApplication struct {
	ID          ApplicationID
	FacultyID   FacultyID
	LeaveTypeID LeaveTypeID

	// BalanceYear is the year whose balance row holds the reservation.
	BalanceYear FiscalYear

	StartDate    Date
	EndDate      Date
	TotalDays    Days
	Status       ApplicationStatus
	Category     string
	IsDuringExam bool
	Contact      string
	Remarks      string

	ReviewerID   *ActorID
	ReviewReason *string
	ReviewedAt   *time.Time

	CreatedAt time.Time
	DeletedAt *time.Time
}

func (a LeaveApplication) Period() Period {
	return Period{Start: a.StartDate, End: a.EndDate}
}

func (a LeaveApplication) BalanceKey() BalanceKey {
	return BalanceKey{FacultyID: a.FacultyID, LeaveTypeID: a.LeaveTypeID, Year: a.BalanceYear}
}

// =============================================================================
// ADJUSTMENTS - Class coverage by an alternate faculty member
// =============================================================================

type AdjustmentStatus string

const (
	AdjustmentPending   AdjustmentStatus = "PENDING"
	AdjustmentConfirmed AdjustmentStatus = "CONFIRMED"
	AdjustmentDeclined  AdjustmentStatus = "DECLINED"
)

// IsDecision reports whether s is a decision the alternate may take.
func (s AdjustmentStatus) IsDecision() bool {
	return s == AdjustmentConfirmed || s == AdjustmentDeclined
}

// ParseAdjustmentStatus converts a raw string, case-insensitively.
func ParseAdjustmentStatus(s string) (AdjustmentStatus, error) {
	st := AdjustmentStatus(strings.ToUpper(strings.TrimSpace(s)))
	switch st {
	case AdjustmentPending, AdjustmentConfirmed, AdjustmentDeclined:
		return st, nil
	}
	return "", fmt.Errorf("unknown adjustment status %q", s)
}

type LeaveAdjustment struct {
	ID                 AdjustmentID
	ApplicationID      ApplicationID
	AdjustmentDate     Date
	Period             string // timetable period, e.g. "P3"
	SubjectCode        string
	ClassSection       string
	RoomNo             string
	AlternateFacultyID FacultyID
	Status             AdjustmentStatus
	Remarks            string
	ConfirmedAt        *time.Time
}

// CheckConfirmable enforces: only the named alternate, only while PENDING.
func (a LeaveAdjustment) CheckConfirmable(caller FacultyID) error {
	if a.AlternateFacultyID != caller {
		return &ForbiddenError{Reason: "only the named alternate faculty may respond to this adjustment"}
	}
	if a.Status != AdjustmentPending {
		return &StateConflictError{Kind: "adjustment", ID: int64(a.ID), Current: string(a.Status)}
	}
	return nil
}
