/*
ledger.go - Append-only accrual history

PURPOSE:
  Every balance credit made by a batch (monthly accrual, yearly accrual,
  carry-forward) is recorded here. The balance row holds the running figure;
  the history explains how it got there.

CRITICAL INVARIANTS:
  1. APPEND-ONLY: No Update, No Delete.
  2. ONE ENTRY PER PERIOD: (faculty, type, kind, period key) is unique.
     A batch that crashed half way is re-run; rows that already carry an
     entry for the period are skipped, the rest are processed.

EXAMPLE FLOW:
  March accrual for faculty 7, earned leave:
    AccrualEntry{Kind: MONTHLY, PeriodKey: "2025-03", Amount: 2.50}
  Year-end carry-forward 2025 -> 2026 capped at 5:
    AccrualEntry{Kind: CARRY_FORWARD, PeriodKey: "2025->2026", Year: 2026, Amount: 5.00}

SEE ALSO:
  - accrual.go: period keys
  - timeoff/batch.go: writers
*/
package generic

import "time"

// AccrualEntry is one write-once history row.
type AccrualEntry struct {
	ID          int64
	FacultyID   FacultyID
	LeaveTypeID LeaveTypeID
	Year        FiscalYear
	Kind        AccrualKind
	PeriodKey   string
	Amount      Days
	AccrualDate Date
	CreatedAt   time.Time
}

// =============================================================================
// BATCH RUN - Summary of one batch invocation
// =============================================================================

type BatchKind string

const (
	BatchMonthlyAccrual BatchKind = "MONTHLY_ACCRUAL"
	BatchYearlyAccrual  BatchKind = "YEARLY_ACCRUAL"
	BatchCarryForward   BatchKind = "CARRY_FORWARD"
)

// RowFailure records one faculty/type row a batch could not process.
type RowFailure struct {
	FacultyID   FacultyID   `json:"faculty_id"`
	LeaveTypeID LeaveTypeID `json:"leave_type_id"`
	Error       string      `json:"error"`
	Integrity   bool        `json:"integrity"`
}

// BatchRun is persisted after every batch invocation.
type BatchRun struct {
	ID          int64
	Kind        BatchKind
	Year        FiscalYear
	PeriodKey   string
	Processed   int
	Skipped     int
	Failures    []RowFailure
	StartedAt   time.Time
	CompletedAt time.Time
}
