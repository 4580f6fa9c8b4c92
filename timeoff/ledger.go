/*
ledger.go - Read side of the leave engine

PURPOSE:
  Unlocked, advisory reads for display: balance sheets, the review queue
  and a faculty member's leave calendar. Nothing here takes a row lock;
  figures may be stale by the time the caller acts on them, which is why
  every mutating operation re-reads under its lock.

QUERIES:
  Balances(faculty, year)      balance rows joined with leave type names
  PendingQueue()               PENDING applications with adjustment counts
  DaysOff(faculty, from, to)   live (PENDING/APPROVED) leave in a range
  IsOnLeave(faculty, day)      convenience over DaysOff

SEE ALSO:
  - request.go: the locked write paths
*/
package timeoff

import (
	"context"
	"fmt"

	"github.com/kishoreafk/Nit-Faculty-Managment-sub000/generic"
)

// Balances lists a faculty member's balance rows for year.
func (e *Engine) Balances(ctx context.Context, facultyID generic.FacultyID, year generic.FiscalYear) ([]BalanceView, error) {
	rows, err := e.Store.ListBalances(ctx, facultyID, year)
	if err != nil {
		return nil, err
	}
	types, err := e.leaveTypesByID(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]BalanceView, 0, len(rows))
	for _, b := range rows {
		v := BalanceView{LeaveBalance: b}
		if lt, ok := types[b.Key.LeaveTypeID]; ok {
			v.LeaveTypeCode = lt.Code
			v.LeaveTypeName = lt.Name
		}
		out = append(out, v)
	}
	return out, nil
}

// PendingQueue lists applications awaiting review, oldest leave first.
func (e *Engine) PendingQueue(ctx context.Context) ([]PendingView, error) {
	apps, err := e.Store.ListApplicationsByStatus(ctx, generic.StatusPending)
	if err != nil {
		return nil, err
	}
	types, err := e.leaveTypesByID(ctx)
	if err != nil {
		return nil, err
	}

	names := map[generic.FacultyID]string{}
	out := make([]PendingView, 0, len(apps))
	for _, a := range apps {
		v := PendingView{LeaveApplication: a}
		if lt, ok := types[a.LeaveTypeID]; ok {
			v.LeaveTypeCode = lt.Code
		}
		name, ok := names[a.FacultyID]
		if !ok {
			f, err := e.Store.GetFaculty(ctx, a.FacultyID)
			if err != nil {
				return nil, err
			}
			name = f.Name
			names[a.FacultyID] = name
		}
		v.FacultyName = name

		if v.UnresolvedAdjustments, err = e.Store.CountUnresolvedAdjustments(ctx, a.ID); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// DaysOff returns the live applications of a faculty member intersecting
// [from, to].
func (e *Engine) DaysOff(ctx context.Context, facultyID generic.FacultyID, from, to generic.Date) ([]generic.LeaveApplication, error) {
	window := generic.Period{Start: from, End: to}
	if err := window.Validate(); err != nil {
		return nil, err
	}
	apps, err := e.Store.ListApplicationsByFaculty(ctx, facultyID)
	if err != nil {
		return nil, fmt.Errorf("failed to list applications for faculty %d: %w", facultyID, err)
	}

	var out []generic.LeaveApplication
	for _, a := range apps {
		if a.Status != generic.StatusPending && a.Status != generic.StatusApproved {
			continue
		}
		if a.Period().Overlaps(window) {
			out = append(out, a)
		}
	}
	return out, nil
}

// IsOnLeave reports whether day is covered by a live application.
func (e *Engine) IsOnLeave(ctx context.Context, facultyID generic.FacultyID, day generic.Date) (bool, error) {
	apps, err := e.DaysOff(ctx, facultyID, day, day)
	if err != nil {
		return false, err
	}
	return len(apps) > 0, nil
}

func (e *Engine) leaveTypesByID(ctx context.Context) (map[generic.LeaveTypeID]generic.LeaveType, error) {
	types, err := e.Store.ListLeaveTypes(ctx)
	if err != nil {
		return nil, err
	}
	byID := make(map[generic.LeaveTypeID]generic.LeaveType, len(types))
	for _, lt := range types {
		byID[lt.ID] = lt
	}
	return byID, nil
}
