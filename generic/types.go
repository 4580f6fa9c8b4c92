/*
Package generic provides the core types and invariants of the leave engine.

PURPOSE:
  This package holds the data model shared by the engine (timeoff), the
  persistence layer (store/sqlite) and the HTTP boundary (api). It contains no
  I/O: only types, arithmetic and the rules every mutation must respect.

KEY CONCEPTS IN THIS FILE (types.go):
  - Days: a decimal count of leave days (never float64)
  - Identifiers: FacultyID, LeaveTypeID, ApplicationID, AdjustmentID, ActorID
  - FiscalYear: the explicit year every balance row is keyed by
  - Faculty: the employment record consumed by eligibility and batches

DESIGN PRINCIPLES:
  1. Precision: Days wraps decimal.Decimal, rounded to two places by arithmetic;
     parsed input keeps its digits so validation can refuse finer values
  2. Type Safety: distinct ID types prevent mixing faculty and application IDs
  3. Determinism: no function here reads the wall clock

USAGE:
  total := generic.NewDays(2.5)
  if !total.IsHalfDayMultiple() {
      // reject before any lock is taken
  }

SEE ALSO:
  - balance.go: LeaveBalance and the reserved <= balance invariant
  - request.go: LeaveApplication and its status machine
  - errors.go: error taxonomy
*/
package generic

import (
	"database/sql/driver"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// =============================================================================
// DAYS - Decimal quantity of leave
// =============================================================================

// Days is a number of leave days. Stored and compared as a decimal with two
// fractional digits; requests are further restricted to half-day multiples.
type Days struct {
	Amount decimal.Decimal
}

var half = decimal.NewFromFloat(0.5)

func NewDays(v float64) Days                 { return Days{Amount: decimal.NewFromFloat(v).Round(2)} }
func NewDaysFromInt(v int64) Days            { return Days{Amount: decimal.NewFromInt(v)} }
func DaysFromDecimal(d decimal.Decimal) Days { return Days{Amount: d.Round(2)} }
func ZeroDays() Days                         { return Days{Amount: decimal.Zero} }

// ParseDays parses a decimal string such as "1.5". The value is not rounded.
func ParseDays(s string) (Days, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return Days{}, fmt.Errorf("invalid day count %q: %w", s, err)
	}
	return Days{Amount: d}, nil
}

// MustParseDays is ParseDays for constants and tests.
func MustParseDays(s string) Days {
	d, err := ParseDays(s)
	if err != nil {
		panic(err)
	}
	return d
}

func (d Days) Add(o Days) Days         { return DaysFromDecimal(d.Amount.Add(o.Amount)) }
func (d Days) Sub(o Days) Days         { return DaysFromDecimal(d.Amount.Sub(o.Amount)) }
func (d Days) Neg() Days               { return Days{Amount: d.Amount.Neg()} }
func (d Days) IsZero() bool            { return d.Amount.IsZero() }
func (d Days) IsNegative() bool        { return d.Amount.IsNegative() }
func (d Days) IsPositive() bool        { return d.Amount.IsPositive() }
func (d Days) Equal(o Days) bool       { return d.Amount.Equal(o.Amount) }
func (d Days) GreaterThan(o Days) bool { return d.Amount.GreaterThan(o.Amount) }
func (d Days) LessThan(o Days) bool    { return d.Amount.LessThan(o.Amount) }
func (d Days) String() string          { return d.Amount.StringFixed(2) }

func (d Days) Min(o Days) Days {
	if d.LessThan(o) {
		return d
	}
	return o
}

func (d Days) Max(o Days) Days {
	if d.GreaterThan(o) {
		return d
	}
	return o
}

func (d Days) Float64() float64 {
	f, _ := d.Amount.Float64()
	return f
}

// HasCentPrecision reports whether d needs no more than two fractional digits.
func (d Days) HasCentPrecision() bool {
	return d.Amount.Equal(d.Amount.Round(2))
}

// IsHalfDayMultiple reports whether d is a whole number of half days.
func (d Days) IsHalfDayMultiple() bool {
	return d.Amount.Mod(half).IsZero()
}

// MarshalJSON renders days as a JSON number.
func (d Days) MarshalJSON() ([]byte, error) {
	return []byte(d.Amount.StringFixed(2)), nil
}

// UnmarshalJSON accepts either a JSON number or a quoted decimal string.
// Digits beyond the second place are kept for HasCentPrecision to refuse.
func (d *Days) UnmarshalJSON(b []byte) error {
	var v decimal.Decimal
	if err := v.UnmarshalJSON(b); err != nil {
		return err
	}
	*d = Days{Amount: v}
	return nil
}

// Scan implements sql.Scanner.
func (d *Days) Scan(src any) error {
	var v decimal.Decimal
	if err := v.Scan(src); err != nil {
		return err
	}
	*d = DaysFromDecimal(v)
	return nil
}

// Value implements driver.Valuer. Days are persisted as fixed-point text.
func (d Days) Value() (driver.Value, error) {
	return d.Amount.StringFixed(2), nil
}

// =============================================================================
// IDENTIFIERS
// =============================================================================

type FacultyID int64
type LeaveTypeID int64
type ApplicationID int64
type AdjustmentID int64

// ActorID identifies whoever performed a mutation: a faculty member, an HOD,
// an administrator, or the batch scheduler (SystemActor).
type ActorID int64

// SystemActor is recorded for scheduler-driven batch mutations.
const SystemActor ActorID = 0

// FiscalYear keys balance rows. It is always passed explicitly.
type FiscalYear int

func (y FiscalYear) Next() FiscalYear { return y + 1 }

// =============================================================================
// FACULTY - Employment record
// =============================================================================

// Faculty carries the employment facts the eligibility evaluator and the
// accrual batches depend on.
type Faculty struct {
	ID          FacultyID
	Name        string
	Email       string
	Gender      string
	JoiningDate Date
	IsProbation bool
	Category    string
	Active      bool
}

// ServiceMonths returns whole months of service completed on asOf.
func (f Faculty) ServiceMonths(asOf Date) int {
	return MonthsBetween(f.JoiningDate, asOf)
}
