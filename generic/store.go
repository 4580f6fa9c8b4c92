/*
store.go - Persistence interfaces

PURPOSE:
  Defines the boundary between the engine and the database. The engine only
  ever mutates a balance row through a Tx obtained from TxStore.WithTx, after
  locking it with LockBalance.

KEY INTERFACES:
  Reader:  unlocked reads (display, batch iteration, lookups)
  Tx:      the transactional surface: row locks and writes
  TxStore: Reader + WithTx + administrative upserts
  AuditLog: append-only sink for audit records (external)

LOCKING CONTRACT:
  LockBalance / LockFaculty / LockApplication / LockAdjustment acquire an
  exclusive lock on the row held until WithTx returns. Order: balance row,
  then faculty row, then application row. Carry-forward locks two balance
  rows, ascending year.

ATOMICITY:
  If fn returns an error, WithTx rolls back and returns that error unchanged
  (so errors.As works on the caller's side). A cancelled context rolls back.

IMPLEMENTATIONS:
  - store/sqlite: SQLite (dev, tests) and PostgreSQL (production)

SEE ALSO:
  - timeoff/engine.go: the only writer of balance rows
*/
package generic

import "context"

// =============================================================================
// READER - Unlocked queries
// =============================================================================

type Reader interface {
	GetFaculty(ctx context.Context, id FacultyID) (*Faculty, error)
	ListActiveFaculty(ctx context.Context) ([]Faculty, error)

	GetLeaveType(ctx context.Context, id LeaveTypeID) (*LeaveType, error)
	ListLeaveTypes(ctx context.Context) ([]LeaveType, error)

	// GetBalance returns nil when the row does not exist.
	GetBalance(ctx context.Context, key BalanceKey) (*LeaveBalance, error)
	ListBalances(ctx context.Context, facultyID FacultyID, year FiscalYear) ([]LeaveBalance, error)

	GetApplication(ctx context.Context, id ApplicationID) (*LeaveApplication, error)
	ListApplicationsByFaculty(ctx context.Context, facultyID FacultyID) ([]LeaveApplication, error)
	ListApplicationsByStatus(ctx context.Context, status ApplicationStatus) ([]LeaveApplication, error)

	GetAdjustment(ctx context.Context, id AdjustmentID) (*LeaveAdjustment, error)
	ListAdjustments(ctx context.Context, applicationID ApplicationID) ([]LeaveAdjustment, error)
	ListAdjustmentsByAlternate(ctx context.Context, facultyID FacultyID, status AdjustmentStatus) ([]LeaveAdjustment, error)
	CountUnresolvedAdjustments(ctx context.Context, applicationID ApplicationID) (int, error)

	HasAccrual(ctx context.Context, key BalanceKey, kind AccrualKind, periodKey string) (bool, error)
	ListAccruals(ctx context.Context, facultyID FacultyID) ([]AccrualEntry, error)
}

// =============================================================================
// TX - Transactional surface
// =============================================================================

type Tx interface {
	Reader

	// LockBalance locks and returns the row, or nil if it does not exist.
	LockBalance(ctx context.Context, key BalanceKey) (*LeaveBalance, error)
	// EnsureBalance inserts a zero (or opening) row if absent. Idempotent.
	EnsureBalance(ctx context.Context, b LeaveBalance) error
	SaveBalance(ctx context.Context, b LeaveBalance) error

	// LockFaculty serializes applications of one faculty member across leave
	// types. Taken after the balance row.
	LockFaculty(ctx context.Context, id FacultyID) (*Faculty, error)

	LockApplication(ctx context.Context, id ApplicationID) (*LeaveApplication, error)
	// HasOverlap checks PENDING and APPROVED applications of any type.
	HasOverlap(ctx context.Context, facultyID FacultyID, period Period) (bool, error)
	InsertApplication(ctx context.Context, app *LeaveApplication) error
	UpdateApplication(ctx context.Context, app LeaveApplication) error
	// SumPendingReservations totals PENDING applications reserving against key.
	SumPendingReservations(ctx context.Context, key BalanceKey) (Days, error)

	LockAdjustment(ctx context.Context, id AdjustmentID) (*LeaveAdjustment, error)
	InsertAdjustment(ctx context.Context, adj *LeaveAdjustment) error
	UpdateAdjustment(ctx context.Context, adj LeaveAdjustment) error

	// AppendAccrual returns ErrDuplicateAccrual on a repeated period key.
	AppendAccrual(ctx context.Context, e AccrualEntry) error
}

// =============================================================================
// TRANSACTIONAL STORE
// =============================================================================

type TxStore interface {
	Reader

	// WithTx executes fn within a transaction.
	// If fn returns error, transaction is rolled back.
	// If fn returns nil, transaction is committed.
	WithTx(ctx context.Context, fn func(Tx) error) error

	SaveFaculty(ctx context.Context, f *Faculty) error
	SaveLeaveType(ctx context.Context, lt *LeaveType) error
	GetLeaveTypeByCode(ctx context.Context, code string) (*LeaveType, error)

	SaveBatchRun(ctx context.Context, run *BatchRun) error
	ListBatchRuns(ctx context.Context, limit int) ([]BatchRun, error)
}
