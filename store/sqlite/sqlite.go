/*
Package sqlite provides the database/sql implementation of generic.TxStore.

PURPOSE:
  Implements all persistence interfaces (Reader, Tx, TxStore) over
  database/sql. The same statements run on SQLite (development, tests) and
  PostgreSQL (production); only a handful of dialect differences apply.

DIALECTS:
  sqlite3:  github.com/mattn/go-sqlite3. One connection, BEGIN IMMEDIATE,
            and a store-level writer mutex: every WithTx holds the database
            write lock for its whole duration, which subsumes row locks.
  postgres: github.com/lib/pq. Placeholders are rebound to $n and the Lock*
            methods append FOR UPDATE, so only the touched rows serialize.

KEY TABLES:
  faculty:            employment facts
  leave_types:        per-type policy (eligibility, accrual, carry-forward)
  leave_balances:     (faculty_id, leave_type_id, year) -> balance, reserved
  leave_applications: requests with status and review fields (soft delete)
  leave_adjustments:  class coverage records per application
  accrual_history:    append-only batch credits, unique per period key
  batch_runs:         one summary row per batch invocation

STORAGE FORMATS:
  Day counts are fixed-point text on SQLite and NUMERIC(10,2) on Postgres.
  Dates are YYYY-MM-DD text and timestamps RFC3339 text on both, so range
  comparisons are lexicographic and identical across dialects.

USAGE:
  store, err := sqlite.New("./data/leave.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

  err = store.WithTx(ctx, func(tx generic.Tx) error {
      bal, err := tx.LockBalance(ctx, key)
      ...
  })

MIGRATION:
  Schema is auto-migrated on Open(). For production, use a proper
  migration tool with versioned migrations.

SEE ALSO:
  - generic/store.go: Interface definitions
  - queries.go: Reader and Tx statements
*/
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"

	"github.com/kishoreafk/Nit-Faculty-Managment-sub000/generic"
)

// =============================================================================
// DIALECT
// =============================================================================

type Dialect string

const (
	DialectSQLite   Dialect = "sqlite3"
	DialectPostgres Dialect = "postgres"
)

// ParseDialect maps a driver name from configuration.
func ParseDialect(s string) (Dialect, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "sqlite", "sqlite3":
		return DialectSQLite, nil
	case "postgres", "postgresql", "pq":
		return DialectPostgres, nil
	}
	return "", fmt.Errorf("unsupported database driver %q", s)
}

// rebind converts ? placeholders to $1..$n for Postgres.
func (d Dialect) rebind(query string) string {
	if d != DialectPostgres {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 16)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// forUpdate is the row-lock suffix. SQLite relies on the writer lock.
func (d Dialect) forUpdate() string {
	if d == DialectPostgres {
		return " FOR UPDATE"
	}
	return ""
}

// =============================================================================
// STORE
// =============================================================================

// Store implements generic.TxStore.
type Store struct {
	reader
	db      *sql.DB
	dialect Dialect
	log     zerolog.Logger

	// mu serializes write transactions on SQLite. Unused on Postgres.
	mu sync.Mutex
}

var _ generic.TxStore = (*Store)(nil)

// New creates a SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	return Open(DialectSQLite, dbPath, zerolog.Nop())
}

// Open connects to the database for dialect and migrates the schema.
func Open(dialect Dialect, dsn string, logger zerolog.Logger) (*Store, error) {
	var (
		db  *sql.DB
		err error
	)
	switch dialect {
	case DialectSQLite:
		sep := "?"
		if strings.Contains(dsn, "?") {
			sep = "&"
		}
		db, err = sql.Open("sqlite3", dsn+sep+"_foreign_keys=on&_journal_mode=WAL&_busy_timeout=5000&_txlock=immediate")
		if err == nil {
			// One connection: ":memory:" databases are per-connection, and
			// SQLite has a single writer anyway.
			db.SetMaxOpenConns(1)
		}
	case DialectPostgres:
		db, err = sql.Open("postgres", dsn)
	default:
		return nil, fmt.Errorf("unsupported dialect %q", dialect)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{
		reader:  reader{q: db, dialect: dialect},
		db:      db,
		dialect: dialect,
		log:     logger.With().Str("component", "store").Str("dialect", string(dialect)).Logger(),
	}
	if err := store.migrate(context.Background()); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks connectivity (health endpoint).
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Dialect reports which database the store talks to.
func (s *Store) Dialect() Dialect {
	return s.dialect
}

func (s *Store) lockWriter() func() {
	if s.dialect != DialectSQLite {
		return func() {}
	}
	s.mu.Lock()
	return s.mu.Unlock
}

// migrate creates the database schema.
func (s *Store) migrate(ctx context.Context) error {
	pk := "INTEGER PRIMARY KEY AUTOINCREMENT"
	dec := "TEXT"
	balanceCheck := ""
	if s.dialect == DialectPostgres {
		pk = "BIGSERIAL PRIMARY KEY"
		dec = "NUMERIC(10,2)"
		balanceCheck = ",\n\t\tCHECK (reserved >= 0 AND reserved <= balance)"
	}

	schema := `
	-- Faculty (employment facts)
	CREATE TABLE IF NOT EXISTS faculty (
		id {{PK}},
		name TEXT NOT NULL,
		email TEXT NOT NULL DEFAULT '',
		gender TEXT NOT NULL DEFAULT '',
		joining_date TEXT NOT NULL,
		is_probation BOOLEAN NOT NULL DEFAULT FALSE,
		category TEXT NOT NULL DEFAULT '',
		active BOOLEAN NOT NULL DEFAULT TRUE,
		created_at TEXT NOT NULL
	);

	-- Leave types and their policy
	CREATE TABLE IF NOT EXISTS leave_types (
		id {{PK}},
		code TEXT NOT NULL UNIQUE,
		name TEXT NOT NULL,
		unavailable_during_probation BOOLEAN NOT NULL DEFAULT FALSE,
		probation_months INTEGER NOT NULL DEFAULT 0,
		min_service_months INTEGER NOT NULL DEFAULT 0,
		gender TEXT NOT NULL DEFAULT '',
		accrual_frequency TEXT NOT NULL DEFAULT 'none',
		accrual_rate {{DEC}} NOT NULL DEFAULT 0,
		max_balance {{DEC}},
		carry_forward BOOLEAN NOT NULL DEFAULT FALSE,
		carry_forward_cap {{DEC}},
		categories_json TEXT NOT NULL DEFAULT '[]',
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	-- Balance rows: the only contended resource
	CREATE TABLE IF NOT EXISTS leave_balances (
		faculty_id BIGINT NOT NULL REFERENCES faculty(id),
		leave_type_id BIGINT NOT NULL REFERENCES leave_types(id),
		year INTEGER NOT NULL,
		balance {{DEC}} NOT NULL DEFAULT 0,
		reserved {{DEC}} NOT NULL DEFAULT 0,
		updated_at TEXT NOT NULL,
		PRIMARY KEY (faculty_id, leave_type_id, year){{BALANCE_CHECK}}
	);

	-- Applications (never hard-deleted)
	CREATE TABLE IF NOT EXISTS leave_applications (
		id {{PK}},
		faculty_id BIGINT NOT NULL REFERENCES faculty(id),
		leave_type_id BIGINT NOT NULL REFERENCES leave_types(id),
		balance_year INTEGER NOT NULL,
		start_date TEXT NOT NULL,
		end_date TEXT NOT NULL,
		total_days {{DEC}} NOT NULL,
		status TEXT NOT NULL DEFAULT 'PENDING',
		leave_category TEXT NOT NULL DEFAULT '',
		is_during_exam BOOLEAN NOT NULL DEFAULT FALSE,
		contact_during_leave TEXT NOT NULL DEFAULT '',
		remarks TEXT NOT NULL DEFAULT '',
		reviewer_id BIGINT,
		review_reason TEXT,
		reviewed_at TEXT,
		created_at TEXT NOT NULL,
		deleted_at TEXT
	);

	-- Overlap checks scan a faculty member's live applications
	CREATE INDEX IF NOT EXISTS idx_applications_faculty_status
		ON leave_applications(faculty_id, status, start_date, end_date);
	CREATE INDEX IF NOT EXISTS idx_applications_status
		ON leave_applications(status);
	CREATE INDEX IF NOT EXISTS idx_applications_balance
		ON leave_applications(faculty_id, leave_type_id, balance_year, status);

	-- Class coverage adjustments
	CREATE TABLE IF NOT EXISTS leave_adjustments (
		id {{PK}},
		application_id BIGINT NOT NULL REFERENCES leave_applications(id),
		adjustment_date TEXT NOT NULL,
		period TEXT NOT NULL DEFAULT '',
		subject_code TEXT NOT NULL DEFAULT '',
		class_section TEXT NOT NULL DEFAULT '',
		room_no TEXT NOT NULL DEFAULT '',
		alternate_faculty_id BIGINT NOT NULL REFERENCES faculty(id),
		confirmation_status TEXT NOT NULL DEFAULT 'PENDING',
		remarks TEXT NOT NULL DEFAULT '',
		confirmed_at TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_adjustments_application
		ON leave_adjustments(application_id);
	CREATE INDEX IF NOT EXISTS idx_adjustments_alternate
		ON leave_adjustments(alternate_faculty_id, confirmation_status);

	-- Accrual history (append-only, one entry per period)
	CREATE TABLE IF NOT EXISTS accrual_history (
		id {{PK}},
		faculty_id BIGINT NOT NULL,
		leave_type_id BIGINT NOT NULL,
		year INTEGER NOT NULL,
		kind TEXT NOT NULL,
		period_key TEXT NOT NULL,
		amount {{DEC}} NOT NULL,
		accrual_date TEXT NOT NULL,
		created_at TEXT NOT NULL,
		UNIQUE (faculty_id, leave_type_id, kind, period_key)
	);

	CREATE INDEX IF NOT EXISTS idx_accrual_history_faculty
		ON accrual_history(faculty_id, year);

	-- Batch runs
	CREATE TABLE IF NOT EXISTS batch_runs (
		id {{PK}},
		kind TEXT NOT NULL,
		year INTEGER NOT NULL,
		period_key TEXT NOT NULL,
		processed INTEGER NOT NULL DEFAULT 0,
		skipped INTEGER NOT NULL DEFAULT 0,
		failed INTEGER NOT NULL DEFAULT 0,
		failures_json TEXT NOT NULL DEFAULT '[]',
		started_at TEXT NOT NULL,
		completed_at TEXT NOT NULL
	);
	`
	schema = strings.NewReplacer(
		"{{PK}}", pk,
		"{{DEC}}", dec,
		"{{BALANCE_CHECK}}", balanceCheck,
	).Replace(schema)

	_, err := s.db.ExecContext(ctx, schema)
	return err
}

// =============================================================================
// TRANSACTIONS
// =============================================================================

// WithTx executes fn within a database transaction. fn's error is returned
// unwrapped so callers can match it with errors.As.
func (s *Store) WithTx(ctx context.Context, fn func(generic.Tx) error) error {
	unlock := s.lockWriter()
	defer unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	committed := false
	defer func() {
		if !committed {
			if rbErr := sqlTx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
				s.log.Error().Err(rbErr).Msg("rollback failed")
			}
		}
	}()

	if err := fn(&txStore{reader: reader{q: sqlTx, dialect: s.dialect}}); err != nil {
		return err
	}

	if err := sqlTx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	committed = true
	return nil
}

// =============================================================================
// ADMINISTRATIVE WRITES (outside the engine's locked paths)
// =============================================================================

// SaveFaculty inserts (ID == 0) or upserts a faculty record.
func (s *Store) SaveFaculty(ctx context.Context, f *generic.Faculty) error {
	unlock := s.lockWriter()
	defer unlock()

	now := formatTime(time.Now())
	if f.ID == 0 {
		query := `
			INSERT INTO faculty (name, email, gender, joining_date, is_probation, category, active, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
			RETURNING id
		`
		var id int64
		err := s.db.QueryRowContext(ctx, s.dialect.rebind(query),
			f.Name, f.Email, f.Gender, f.JoiningDate.String(), f.IsProbation, f.Category, f.Active, now,
		).Scan(&id)
		if err != nil {
			return fmt.Errorf("failed to insert faculty: %w", err)
		}
		f.ID = generic.FacultyID(id)
		return nil
	}

	query := `
		INSERT INTO faculty (id, name, email, gender, joining_date, is_probation, category, active, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			name = excluded.name,
			email = excluded.email,
			gender = excluded.gender,
			joining_date = excluded.joining_date,
			is_probation = excluded.is_probation,
			category = excluded.category,
			active = excluded.active
	`
	_, err := s.db.ExecContext(ctx, s.dialect.rebind(query),
		f.ID, f.Name, f.Email, f.Gender, f.JoiningDate.String(), f.IsProbation, f.Category, f.Active, now,
	)
	if err != nil {
		return fmt.Errorf("failed to save faculty: %w", err)
	}
	return nil
}

// SaveLeaveType upserts a leave type by code and sets lt.ID.
func (s *Store) SaveLeaveType(ctx context.Context, lt *generic.LeaveType) error {
	unlock := s.lockWriter()
	defer unlock()

	categories, err := json.Marshal(nonNilStrings(lt.Categories))
	if err != nil {
		return fmt.Errorf("failed to encode categories: %w", err)
	}
	now := formatTime(time.Now())

	query := `
		INSERT INTO leave_types (code, name, unavailable_during_probation, probation_months,
			min_service_months, gender, accrual_frequency, accrual_rate, max_balance,
			carry_forward, carry_forward_cap, categories_json, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (code) DO UPDATE SET
			name = excluded.name,
			unavailable_during_probation = excluded.unavailable_during_probation,
			probation_months = excluded.probation_months,
			min_service_months = excluded.min_service_months,
			gender = excluded.gender,
			accrual_frequency = excluded.accrual_frequency,
			accrual_rate = excluded.accrual_rate,
			max_balance = excluded.max_balance,
			carry_forward = excluded.carry_forward,
			carry_forward_cap = excluded.carry_forward_cap,
			categories_json = excluded.categories_json,
			updated_at = excluded.updated_at
		RETURNING id
	`
	var id int64
	err = s.db.QueryRowContext(ctx, s.dialect.rebind(query),
		lt.Code, lt.Name,
		lt.Eligibility.UnavailableDuringProbation, lt.Eligibility.ProbationMonths,
		lt.Eligibility.MinServiceMonths, lt.Eligibility.Gender,
		string(lt.Accrual.Frequency), lt.Accrual.Rate, nullDays(lt.Accrual.MaxBalance),
		lt.CarryForward.Enabled, nullDays(lt.CarryForward.Cap),
		string(categories), now, now,
	).Scan(&id)
	if err != nil {
		return fmt.Errorf("failed to save leave type %s: %w", lt.Code, err)
	}
	lt.ID = generic.LeaveTypeID(id)
	return nil
}

// SaveBatchRun records a batch summary and sets run.ID.
func (s *Store) SaveBatchRun(ctx context.Context, run *generic.BatchRun) error {
	unlock := s.lockWriter()
	defer unlock()

	failures, err := json.Marshal(nonNilFailures(run.Failures))
	if err != nil {
		return fmt.Errorf("failed to encode failures: %w", err)
	}
	query := `
		INSERT INTO batch_runs (kind, year, period_key, processed, skipped, failed, failures_json, started_at, completed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING id
	`
	var id int64
	err = s.db.QueryRowContext(ctx, s.dialect.rebind(query),
		string(run.Kind), int(run.Year), run.PeriodKey, run.Processed, run.Skipped, len(run.Failures),
		string(failures), formatTime(run.StartedAt), formatTime(run.CompletedAt),
	).Scan(&id)
	if err != nil {
		return fmt.Errorf("failed to save batch run: %w", err)
	}
	run.ID = id
	return nil
}

// ListBatchRuns returns the most recent runs first.
func (s *Store) ListBatchRuns(ctx context.Context, limit int) ([]generic.BatchRun, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `
		SELECT id, kind, year, period_key, processed, skipped, failures_json, started_at, completed_at
		FROM batch_runs
		ORDER BY id DESC
		LIMIT ?
	`
	rows, err := s.db.QueryContext(ctx, s.dialect.rebind(query), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list batch runs: %w", err)
	}
	defer rows.Close()

	var runs []generic.BatchRun
	for rows.Next() {
		var (
			run                  generic.BatchRun
			kind, failures       string
			year                 int
			startedAt, completed string
		)
		if err := rows.Scan(&run.ID, &kind, &year, &run.PeriodKey, &run.Processed, &run.Skipped,
			&failures, &startedAt, &completed); err != nil {
			return nil, err
		}
		run.Kind = generic.BatchKind(kind)
		run.Year = generic.FiscalYear(year)
		if err := json.Unmarshal([]byte(failures), &run.Failures); err != nil {
			return nil, fmt.Errorf("failed to decode failures of run %d: %w", run.ID, err)
		}
		run.StartedAt = parseTime(startedAt)
		run.CompletedAt = parseTime(completed)
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// Reset deletes all rows (demo scenarios, tests).
func (s *Store) Reset(ctx context.Context) error {
	unlock := s.lockWriter()
	defer unlock()

	for _, table := range []string{
		"leave_adjustments", "leave_applications", "accrual_history",
		"leave_balances", "batch_runs", "leave_types", "faculty",
	} {
		if _, err := s.db.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("failed to reset %s: %w", table, err)
		}
	}
	return nil
}

// =============================================================================
// HELPERS
// =============================================================================

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) time.Time {
	t, _ := time.Parse(time.RFC3339Nano, s)
	return t
}

func parseNullTime(ns sql.NullString) *time.Time {
	if !ns.Valid || ns.String == "" {
		return nil
	}
	t := parseTime(ns.String)
	return &t
}

func nullTime(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: formatTime(*t), Valid: true}
}

func nullDays(d *generic.Days) any {
	if d == nil {
		return nil
	}
	return *d
}

func parseNullDays(ns sql.NullString) (*generic.Days, error) {
	if !ns.Valid || ns.String == "" {
		return nil, nil
	}
	d, err := generic.ParseDays(ns.String)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func nonNilStrings(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func nonNilFailures(f []generic.RowFailure) []generic.RowFailure {
	if f == nil {
		return []generic.RowFailure{}
	}
	return f
}

func isUniqueConstraintError(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	return false
}
