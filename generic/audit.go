package generic

import (
	"context"
	"time"
)

// =============================================================================
// AUDIT LOG - Separate from the balance rows, tracks who did what when
// =============================================================================

// AuditEntry records one mutation: actor, action, before/after snapshot and
// reason. The engine emits entries; storing them is the sink's business.
type AuditEntry struct {
	ID          string
	Timestamp   time.Time
	ActorID     ActorID
	ActorRole   string
	Action      AuditAction
	FacultyID   FacultyID
	LeaveTypeID LeaveTypeID
	Year        FiscalYear
	Reference   string // application or adjustment id, batch period key
	Reason      string
	Before      map[string]any
	After       map[string]any
}

type AuditAction string

const (
	AuditLeaveApplied        AuditAction = "leave_applied"
	AuditLeaveApproved       AuditAction = "leave_approved"
	AuditLeaveRejected       AuditAction = "leave_rejected"
	AuditLeaveWithdrawn      AuditAction = "leave_withdrawn"
	AuditAdjustmentConfirmed AuditAction = "adjustment_confirmed"
	AuditAdjustmentDeclined  AuditAction = "adjustment_declined"
	AuditAccrualCredited     AuditAction = "accrual_credited"
	AuditCarryForward        AuditAction = "carry_forward"
	AuditBalanceOverride     AuditAction = "balance_override"
	AuditBalanceOpened       AuditAction = "balance_opened"
)

// AuditLog receives audit entries. Append-only.
type AuditLog interface {
	Append(ctx context.Context, entry AuditEntry) error
}

// AuditFilter narrows queries on sinks that support them.
type AuditFilter struct {
	FacultyID *FacultyID
	ActorID   *ActorID
	Actions   []AuditAction
}

// Matches reports whether e passes every set criterion.
func (f AuditFilter) Matches(e AuditEntry) bool {
	if f.FacultyID != nil && e.FacultyID != *f.FacultyID {
		return false
	}
	if f.ActorID != nil && e.ActorID != *f.ActorID {
		return false
	}
	if len(f.Actions) > 0 {
		found := false
		for _, a := range f.Actions {
			if a == e.Action {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}
