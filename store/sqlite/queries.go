package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/kishoreafk/Nit-Faculty-Managment-sub000/generic"
)

// queryer is satisfied by both *sql.DB and *sql.Tx.
type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type rowScanner interface {
	Scan(dest ...any) error
}

// reader implements generic.Reader over a queryer.
type reader struct {
	q       queryer
	dialect Dialect
}

var _ generic.Reader = reader{}

func (r reader) queryRow(ctx context.Context, query string, args ...any) *sql.Row {
	return r.q.QueryRowContext(ctx, r.dialect.rebind(query), args...)
}

func (r reader) query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return r.q.QueryContext(ctx, r.dialect.rebind(query), args...)
}

func (r reader) exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return r.q.ExecContext(ctx, r.dialect.rebind(query), args...)
}

// =============================================================================
// FACULTY
// =============================================================================

const facultyColumns = `id, name, email, gender, joining_date, is_probation, category, active`

func scanFaculty(row rowScanner) (*generic.Faculty, error) {
	var (
		f       generic.Faculty
		joining string
	)
	if err := row.Scan(&f.ID, &f.Name, &f.Email, &f.Gender, &joining, &f.IsProbation, &f.Category, &f.Active); err != nil {
		return nil, err
	}
	d, err := generic.ParseDate(joining)
	if err != nil {
		return nil, fmt.Errorf("faculty %d: %w", f.ID, err)
	}
	f.JoiningDate = d
	return &f, nil
}

func (r reader) GetFaculty(ctx context.Context, id generic.FacultyID) (*generic.Faculty, error) {
	return r.getFaculty(ctx, id, "")
}

func (r reader) getFaculty(ctx context.Context, id generic.FacultyID, suffix string) (*generic.Faculty, error) {
	f, err := scanFaculty(r.queryRow(ctx, `SELECT `+facultyColumns+` FROM faculty WHERE id = ?`+suffix, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &generic.NotFoundError{Kind: "faculty", ID: int64(id)}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get faculty %d: %w", id, err)
	}
	return f, nil
}

func (r reader) ListActiveFaculty(ctx context.Context) ([]generic.Faculty, error) {
	rows, err := r.query(ctx, `SELECT `+facultyColumns+` FROM faculty WHERE active = ? ORDER BY id`, true)
	if err != nil {
		return nil, fmt.Errorf("failed to list faculty: %w", err)
	}
	defer rows.Close()

	var out []generic.Faculty
	for rows.Next() {
		f, err := scanFaculty(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *f)
	}
	return out, rows.Err()
}

// =============================================================================
// LEAVE TYPES
// =============================================================================

const leaveTypeColumns = `id, code, name, unavailable_during_probation, probation_months,
	min_service_months, gender, accrual_frequency, accrual_rate, max_balance,
	carry_forward, carry_forward_cap, categories_json`

func scanLeaveType(row rowScanner) (*generic.LeaveType, error) {
	var (
		lt         generic.LeaveType
		frequency  string
		maxBalance sql.NullString
		carryCap   sql.NullString
		categories string
	)
	err := row.Scan(&lt.ID, &lt.Code, &lt.Name,
		&lt.Eligibility.UnavailableDuringProbation, &lt.Eligibility.ProbationMonths,
		&lt.Eligibility.MinServiceMonths, &lt.Eligibility.Gender,
		&frequency, &lt.Accrual.Rate, &maxBalance,
		&lt.CarryForward.Enabled, &carryCap, &categories)
	if err != nil {
		return nil, err
	}
	if lt.Accrual.Frequency, err = generic.ParseAccrualFrequency(frequency); err != nil {
		return nil, err
	}
	if lt.Accrual.MaxBalance, err = parseNullDays(maxBalance); err != nil {
		return nil, err
	}
	if lt.CarryForward.Cap, err = parseNullDays(carryCap); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(categories), &lt.Categories); err != nil {
		return nil, fmt.Errorf("leave type %s categories: %w", lt.Code, err)
	}
	return &lt, nil
}

func (r reader) GetLeaveType(ctx context.Context, id generic.LeaveTypeID) (*generic.LeaveType, error) {
	lt, err := scanLeaveType(r.queryRow(ctx, `SELECT `+leaveTypeColumns+` FROM leave_types WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &generic.NotFoundError{Kind: "leave type", ID: int64(id)}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get leave type %d: %w", id, err)
	}
	return lt, nil
}

func (r reader) GetLeaveTypeByCode(ctx context.Context, code string) (*generic.LeaveType, error) {
	lt, err := scanLeaveType(r.queryRow(ctx, `SELECT `+leaveTypeColumns+` FROM leave_types WHERE code = ?`, code))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("leave type %q: %w", code, generic.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get leave type %q: %w", code, err)
	}
	return lt, nil
}

func (r reader) ListLeaveTypes(ctx context.Context) ([]generic.LeaveType, error) {
	rows, err := r.query(ctx, `SELECT `+leaveTypeColumns+` FROM leave_types ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list leave types: %w", err)
	}
	defer rows.Close()

	var out []generic.LeaveType
	for rows.Next() {
		lt, err := scanLeaveType(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *lt)
	}
	return out, rows.Err()
}

// =============================================================================
// BALANCES
// =============================================================================

const balanceColumns = `faculty_id, leave_type_id, year, balance, reserved, updated_at`

func scanBalance(row rowScanner) (*generic.LeaveBalance, error) {
	var (
		b         generic.LeaveBalance
		year      int
		updatedAt string
	)
	if err := row.Scan(&b.Key.FacultyID, &b.Key.LeaveTypeID, &year, &b.Balance, &b.Reserved, &updatedAt); err != nil {
		return nil, err
	}
	b.Key.Year = generic.FiscalYear(year)
	b.UpdatedAt = parseTime(updatedAt)
	return &b, nil
}

func (r reader) GetBalance(ctx context.Context, key generic.BalanceKey) (*generic.LeaveBalance, error) {
	return r.getBalance(ctx, key, "")
}

func (r reader) getBalance(ctx context.Context, key generic.BalanceKey, suffix string) (*generic.LeaveBalance, error) {
	query := `SELECT ` + balanceColumns + ` FROM leave_balances
		WHERE faculty_id = ? AND leave_type_id = ? AND year = ?` + suffix
	b, err := scanBalance(r.queryRow(ctx, query, key.FacultyID, key.LeaveTypeID, int(key.Year)))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get balance %s: %w", key, err)
	}
	return b, nil
}

func (r reader) ListBalances(ctx context.Context, facultyID generic.FacultyID, year generic.FiscalYear) ([]generic.LeaveBalance, error) {
	query := `SELECT ` + balanceColumns + ` FROM leave_balances
		WHERE faculty_id = ? AND year = ?
		ORDER BY leave_type_id`
	rows, err := r.query(ctx, query, facultyID, int(year))
	if err != nil {
		return nil, fmt.Errorf("failed to list balances: %w", err)
	}
	defer rows.Close()

	var out []generic.LeaveBalance
	for rows.Next() {
		b, err := scanBalance(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *b)
	}
	return out, rows.Err()
}

// =============================================================================
// APPLICATIONS
// =============================================================================

const applicationColumns = `id, faculty_id, leave_type_id, balance_year, start_date, end_date,
	total_days, status, leave_category, is_during_exam, contact_during_leave, remarks,
	reviewer_id, review_reason, reviewed_at, created_at, deleted_at`

func scanApplication(row rowScanner) (*generic.LeaveApplication, error) {
	var (
		a            generic.LeaveApplication
		year         int
		start, end   string
		status       string
		reviewerID   sql.NullInt64
		reviewReason sql.NullString
		reviewedAt   sql.NullString
		createdAt    string
		deletedAt    sql.NullString
	)
	err := row.Scan(&a.ID, &a.FacultyID, &a.LeaveTypeID, &year, &start, &end,
		&a.TotalDays, &status, &a.Category, &a.IsDuringExam, &a.Contact, &a.Remarks,
		&reviewerID, &reviewReason, &reviewedAt, &createdAt, &deletedAt)
	if err != nil {
		return nil, err
	}
	a.BalanceYear = generic.FiscalYear(year)
	if a.StartDate, err = generic.ParseDate(start); err != nil {
		return nil, err
	}
	if a.EndDate, err = generic.ParseDate(end); err != nil {
		return nil, err
	}
	a.Status = generic.ApplicationStatus(status)
	if reviewerID.Valid {
		id := generic.ActorID(reviewerID.Int64)
		a.ReviewerID = &id
	}
	if reviewReason.Valid {
		reason := reviewReason.String
		a.ReviewReason = &reason
	}
	a.ReviewedAt = parseNullTime(reviewedAt)
	a.CreatedAt = parseTime(createdAt)
	a.DeletedAt = parseNullTime(deletedAt)
	return &a, nil
}

func (r reader) GetApplication(ctx context.Context, id generic.ApplicationID) (*generic.LeaveApplication, error) {
	return r.getApplication(ctx, id, "")
}

func (r reader) getApplication(ctx context.Context, id generic.ApplicationID, suffix string) (*generic.LeaveApplication, error) {
	a, err := scanApplication(r.queryRow(ctx, `SELECT `+applicationColumns+` FROM leave_applications WHERE id = ?`+suffix, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &generic.NotFoundError{Kind: "application", ID: int64(id)}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get application %d: %w", id, err)
	}
	return a, nil
}

func (r reader) listApplications(ctx context.Context, where string, args ...any) ([]generic.LeaveApplication, error) {
	rows, err := r.query(ctx, `SELECT `+applicationColumns+` FROM leave_applications WHERE `+where+` ORDER BY start_date, id`, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list applications: %w", err)
	}
	defer rows.Close()

	var out []generic.LeaveApplication
	for rows.Next() {
		a, err := scanApplication(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *a)
	}
	return out, rows.Err()
}

func (r reader) ListApplicationsByFaculty(ctx context.Context, facultyID generic.FacultyID) ([]generic.LeaveApplication, error) {
	return r.listApplications(ctx, `faculty_id = ?`, facultyID)
}

func (r reader) ListApplicationsByStatus(ctx context.Context, status generic.ApplicationStatus) ([]generic.LeaveApplication, error) {
	return r.listApplications(ctx, `status = ?`, string(status))
}

// =============================================================================
// ADJUSTMENTS
// =============================================================================

const adjustmentColumns = `id, application_id, adjustment_date, period, subject_code, class_section,
	room_no, alternate_faculty_id, confirmation_status, remarks, confirmed_at`

func scanAdjustment(row rowScanner) (*generic.LeaveAdjustment, error) {
	var (
		a           generic.LeaveAdjustment
		date        string
		status      string
		confirmedAt sql.NullString
	)
	err := row.Scan(&a.ID, &a.ApplicationID, &date, &a.Period, &a.SubjectCode, &a.ClassSection,
		&a.RoomNo, &a.AlternateFacultyID, &status, &a.Remarks, &confirmedAt)
	if err != nil {
		return nil, err
	}
	if a.AdjustmentDate, err = generic.ParseDate(date); err != nil {
		return nil, err
	}
	a.Status = generic.AdjustmentStatus(status)
	a.ConfirmedAt = parseNullTime(confirmedAt)
	return &a, nil
}

func (r reader) GetAdjustment(ctx context.Context, id generic.AdjustmentID) (*generic.LeaveAdjustment, error) {
	return r.getAdjustment(ctx, id, "")
}

func (r reader) getAdjustment(ctx context.Context, id generic.AdjustmentID, suffix string) (*generic.LeaveAdjustment, error) {
	a, err := scanAdjustment(r.queryRow(ctx, `SELECT `+adjustmentColumns+` FROM leave_adjustments WHERE id = ?`+suffix, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &generic.NotFoundError{Kind: "adjustment", ID: int64(id)}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get adjustment %d: %w", id, err)
	}
	return a, nil
}

func (r reader) listAdjustments(ctx context.Context, where string, args ...any) ([]generic.LeaveAdjustment, error) {
	rows, err := r.query(ctx, `SELECT `+adjustmentColumns+` FROM leave_adjustments WHERE `+where+` ORDER BY adjustment_date, id`, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list adjustments: %w", err)
	}
	defer rows.Close()

	var out []generic.LeaveAdjustment
	for rows.Next() {
		a, err := scanAdjustment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *a)
	}
	return out, rows.Err()
}

func (r reader) ListAdjustments(ctx context.Context, applicationID generic.ApplicationID) ([]generic.LeaveAdjustment, error) {
	return r.listAdjustments(ctx, `application_id = ?`, applicationID)
}

// ListAdjustmentsByAlternate lists adjustments naming facultyID. An empty
// status lists all of them.
func (r reader) ListAdjustmentsByAlternate(ctx context.Context, facultyID generic.FacultyID, status generic.AdjustmentStatus) ([]generic.LeaveAdjustment, error) {
	if status == "" {
		return r.listAdjustments(ctx, `alternate_faculty_id = ?`, facultyID)
	}
	return r.listAdjustments(ctx, `alternate_faculty_id = ? AND confirmation_status = ?`, facultyID, string(status))
}

func (r reader) CountUnresolvedAdjustments(ctx context.Context, applicationID generic.ApplicationID) (int, error) {
	var n int
	err := r.queryRow(ctx, `SELECT COUNT(*) FROM leave_adjustments WHERE application_id = ? AND confirmation_status = ?`,
		applicationID, string(generic.AdjustmentPending)).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count adjustments: %w", err)
	}
	return n, nil
}

// =============================================================================
// ACCRUAL HISTORY
// =============================================================================

func (r reader) HasAccrual(ctx context.Context, key generic.BalanceKey, kind generic.AccrualKind, periodKey string) (bool, error) {
	var n int
	err := r.queryRow(ctx, `
		SELECT COUNT(*) FROM accrual_history
		WHERE faculty_id = ? AND leave_type_id = ? AND kind = ? AND period_key = ?
	`, key.FacultyID, key.LeaveTypeID, string(kind), periodKey).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("failed to check accrual history: %w", err)
	}
	return n > 0, nil
}

func (r reader) ListAccruals(ctx context.Context, facultyID generic.FacultyID) ([]generic.AccrualEntry, error) {
	rows, err := r.query(ctx, `
		SELECT id, faculty_id, leave_type_id, year, kind, period_key, amount, accrual_date, created_at
		FROM accrual_history
		WHERE faculty_id = ?
		ORDER BY id
	`, facultyID)
	if err != nil {
		return nil, fmt.Errorf("failed to list accruals: %w", err)
	}
	defer rows.Close()

	var out []generic.AccrualEntry
	for rows.Next() {
		var (
			e                   generic.AccrualEntry
			year                int
			kind, date, created string
		)
		if err := rows.Scan(&e.ID, &e.FacultyID, &e.LeaveTypeID, &year, &kind, &e.PeriodKey,
			&e.Amount, &date, &created); err != nil {
			return nil, err
		}
		e.Year = generic.FiscalYear(year)
		e.Kind = generic.AccrualKind(kind)
		if e.AccrualDate, err = generic.ParseDate(date); err != nil {
			return nil, err
		}
		e.CreatedAt = parseTime(created)
		out = append(out, e)
	}
	return out, rows.Err()
}

// =============================================================================
// TRANSACTION STORE
// =============================================================================

// txStore implements generic.Tx.
type txStore struct {
	reader
}

var _ generic.Tx = (*txStore)(nil)

func (t *txStore) LockBalance(ctx context.Context, key generic.BalanceKey) (*generic.LeaveBalance, error) {
	return t.getBalance(ctx, key, t.dialect.forUpdate())
}

func (t *txStore) EnsureBalance(ctx context.Context, b generic.LeaveBalance) error {
	_, err := t.exec(ctx, `
		INSERT INTO leave_balances (faculty_id, leave_type_id, year, balance, reserved, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (faculty_id, leave_type_id, year) DO NOTHING
	`, b.Key.FacultyID, b.Key.LeaveTypeID, int(b.Key.Year), b.Balance, b.Reserved, formatTime(time.Now()))
	if err != nil {
		return fmt.Errorf("failed to ensure balance %s: %w", b.Key, err)
	}
	return nil
}

// SaveBalance writes the row. The row must exist and be locked by this tx.
func (t *txStore) SaveBalance(ctx context.Context, b generic.LeaveBalance) error {
	if err := b.CheckInvariant("save"); err != nil {
		return err
	}
	res, err := t.exec(ctx, `
		UPDATE leave_balances SET balance = ?, reserved = ?, updated_at = ?
		WHERE faculty_id = ? AND leave_type_id = ? AND year = ?
	`, b.Balance, b.Reserved, formatTime(time.Now()), b.Key.FacultyID, b.Key.LeaveTypeID, int(b.Key.Year))
	if err != nil {
		return fmt.Errorf("failed to save balance %s: %w", b.Key, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("balance %s: %w", b.Key, generic.ErrNotFound)
	}
	return nil
}

func (t *txStore) LockFaculty(ctx context.Context, id generic.FacultyID) (*generic.Faculty, error) {
	return t.getFaculty(ctx, id, t.dialect.forUpdate())
}

func (t *txStore) LockApplication(ctx context.Context, id generic.ApplicationID) (*generic.LeaveApplication, error) {
	return t.getApplication(ctx, id, t.dialect.forUpdate())
}

// HasOverlap checks live applications of every type; both ends inclusive.
func (t *txStore) HasOverlap(ctx context.Context, facultyID generic.FacultyID, period generic.Period) (bool, error) {
	var n int
	err := t.queryRow(ctx, `
		SELECT COUNT(*) FROM leave_applications
		WHERE faculty_id = ?
		  AND status IN (?, ?)
		  AND start_date <= ?
		  AND end_date >= ?
	`, facultyID, string(generic.StatusPending), string(generic.StatusApproved),
		period.End.String(), period.Start.String()).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("failed to check overlap: %w", err)
	}
	return n > 0, nil
}

func (t *txStore) InsertApplication(ctx context.Context, a *generic.LeaveApplication) error {
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now()
	}
	var id int64
	err := t.queryRow(ctx, `
		INSERT INTO leave_applications (faculty_id, leave_type_id, balance_year, start_date, end_date,
			total_days, status, leave_category, is_during_exam, contact_during_leave, remarks, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING id
	`, a.FacultyID, a.LeaveTypeID, int(a.BalanceYear), a.StartDate.String(), a.EndDate.String(),
		a.TotalDays, string(a.Status), a.Category, a.IsDuringExam, a.Contact, a.Remarks,
		formatTime(a.CreatedAt)).Scan(&id)
	if err != nil {
		return fmt.Errorf("failed to insert application: %w", err)
	}
	a.ID = generic.ApplicationID(id)
	return nil
}

// UpdateApplication writes the mutable review/withdraw fields.
func (t *txStore) UpdateApplication(ctx context.Context, a generic.LeaveApplication) error {
	var reviewer sql.NullInt64
	if a.ReviewerID != nil {
		reviewer = sql.NullInt64{Int64: int64(*a.ReviewerID), Valid: true}
	}
	var reason sql.NullString
	if a.ReviewReason != nil {
		reason = sql.NullString{String: *a.ReviewReason, Valid: true}
	}
	res, err := t.exec(ctx, `
		UPDATE leave_applications
		SET status = ?, reviewer_id = ?, review_reason = ?, reviewed_at = ?, deleted_at = ?
		WHERE id = ?
	`, string(a.Status), reviewer, reason, nullTime(a.ReviewedAt), nullTime(a.DeletedAt), a.ID)
	if err != nil {
		return fmt.Errorf("failed to update application %d: %w", a.ID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return &generic.NotFoundError{Kind: "application", ID: int64(a.ID)}
	}
	return nil
}

// SumPendingReservations adds up in Go so the total is exact on both dialects.
func (t *txStore) SumPendingReservations(ctx context.Context, key generic.BalanceKey) (generic.Days, error) {
	rows, err := t.query(ctx, `
		SELECT total_days FROM leave_applications
		WHERE faculty_id = ? AND leave_type_id = ? AND balance_year = ? AND status = ?
	`, key.FacultyID, key.LeaveTypeID, int(key.Year), string(generic.StatusPending))
	if err != nil {
		return generic.ZeroDays(), fmt.Errorf("failed to sum reservations: %w", err)
	}
	defer rows.Close()

	total := generic.ZeroDays()
	for rows.Next() {
		var d generic.Days
		if err := rows.Scan(&d); err != nil {
			return generic.ZeroDays(), err
		}
		total = total.Add(d)
	}
	return total, rows.Err()
}

func (t *txStore) LockAdjustment(ctx context.Context, id generic.AdjustmentID) (*generic.LeaveAdjustment, error) {
	return t.getAdjustment(ctx, id, t.dialect.forUpdate())
}

func (t *txStore) InsertAdjustment(ctx context.Context, a *generic.LeaveAdjustment) error {
	if a.Status == "" {
		a.Status = generic.AdjustmentPending
	}
	var id int64
	err := t.queryRow(ctx, `
		INSERT INTO leave_adjustments (application_id, adjustment_date, period, subject_code,
			class_section, room_no, alternate_faculty_id, confirmation_status, remarks)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING id
	`, a.ApplicationID, a.AdjustmentDate.String(), a.Period, a.SubjectCode,
		a.ClassSection, a.RoomNo, a.AlternateFacultyID, string(a.Status), a.Remarks).Scan(&id)
	if err != nil {
		return fmt.Errorf("failed to insert adjustment: %w", err)
	}
	a.ID = generic.AdjustmentID(id)
	return nil
}

func (t *txStore) UpdateAdjustment(ctx context.Context, a generic.LeaveAdjustment) error {
	res, err := t.exec(ctx, `
		UPDATE leave_adjustments SET confirmation_status = ?, remarks = ?, confirmed_at = ?
		WHERE id = ?
	`, string(a.Status), a.Remarks, nullTime(a.ConfirmedAt), a.ID)
	if err != nil {
		return fmt.Errorf("failed to update adjustment %d: %w", a.ID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return &generic.NotFoundError{Kind: "adjustment", ID: int64(a.ID)}
	}
	return nil
}

func (t *txStore) AppendAccrual(ctx context.Context, e generic.AccrualEntry) error {
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}
	_, err := t.exec(ctx, `
		INSERT INTO accrual_history (faculty_id, leave_type_id, year, kind, period_key, amount, accrual_date, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, e.FacultyID, e.LeaveTypeID, int(e.Year), string(e.Kind), e.PeriodKey, e.Amount,
		e.AccrualDate.String(), formatTime(e.CreatedAt))
	if err != nil {
		if isUniqueConstraintError(err) {
			return generic.ErrDuplicateAccrual
		}
		return fmt.Errorf("failed to append accrual: %w", err)
	}
	return nil
}
