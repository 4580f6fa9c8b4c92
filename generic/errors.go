/*
errors.go - Centralized error types for the leave engine

PURPOSE:
  All error types in one place for consistency and discoverability.
  Callers classify with errors.Is / errors.As, never by message.

ERROR CATEGORIES:
  1. Policy rejections - eligibility, overlap, balance. Expected and user
     facing; surfaced as a ResultCode, never logged as system errors.
  2. State conflicts - the request or adjustment is no longer PENDING.
     Indicates a race (or a stale screen), not an invalid request.
  3. Validation errors - missing reason, malformed dates. Raised before
     any lock is taken.
  4. Integrity faults - a mutation would break 0 <= reserved <= balance.
     Fatal to the single transaction, never clamped, logged for review.

RETRIES:
  Nothing here is retried automatically. All retries are caller-initiated.

SEE ALSO:
  - balance.go: raises IntegrityError
  - timeoff/engine.go: maps RejectionError to ApplyResult codes
*/
package generic

import (
	"errors"
	"fmt"
)

// =============================================================================
// RESULT CODES - Outcome of Apply
// =============================================================================

type ResultCode string

const (
	ResultSuccess             ResultCode = "SUCCESS"
	ResultInsufficientBalance ResultCode = "INSUFFICIENT_BALANCE"
	ResultProbationPeriod     ResultCode = "PROBATION_PERIOD"
	ResultMinServiceNotMet    ResultCode = "MIN_SERVICE_NOT_MET"
	ResultGenderNotEligible   ResultCode = "GENDER_NOT_ELIGIBLE"
	ResultOverlappingLeave    ResultCode = "OVERLAPPING_LEAVE"
)

// EligibilityOK is the evaluator's pass result. It never leaves the engine as
// an Apply result; a passing request continues to the overlap check.
const EligibilityOK ResultCode = "OK"

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrPolicyRejected marks an expected refusal carrying a ResultCode.
	ErrPolicyRejected = errors.New("policy rejected")

	// ErrAlreadyProcessed is returned when a request or adjustment has left
	// PENDING before the caller's action acquired the lock.
	ErrAlreadyProcessed = errors.New("already processed")

	// ErrValidation is returned for malformed input, before any lock.
	ErrValidation = errors.New("validation failed")

	// ErrIntegrity is returned when a mutation would violate reserved <= balance.
	ErrIntegrity = errors.New("balance integrity violation")

	// ErrNotFound is returned when a referenced row doesn't exist.
	ErrNotFound = errors.New("not found")

	// ErrForbidden is returned when the caller is not the owner or the named alternate.
	ErrForbidden = errors.New("forbidden")

	// ErrDuplicateAccrual is returned by the store when an accrual history
	// entry for the same period already exists.
	ErrDuplicateAccrual = errors.New("accrual already recorded for period")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// RejectionError carries a policy rejection out of a transaction so the
// transaction rolls back. The engine converts it to a result code.
type RejectionError struct {
	Code   ResultCode
	Detail string
}

func (e *RejectionError) Error() string {
	if e.Detail == "" {
		return string(e.Code)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Detail)
}

func (e *RejectionError) Unwrap() error { return ErrPolicyRejected }

// StateConflictError reports an action on something no longer PENDING.
type StateConflictError struct {
	Kind    string // "application" or "adjustment"
	ID      int64
	Current string
}

func (e *StateConflictError) Error() string {
	return fmt.Sprintf("%s %d already processed (status %s)", e.Kind, e.ID, e.Current)
}

func (e *StateConflictError) Unwrap() error { return ErrAlreadyProcessed }

// ValidationError describes invalid input.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// IntegrityError describes a would-be violation of 0 <= reserved <= balance.
type IntegrityError struct {
	Key       BalanceKey
	Operation string
	Balance   Days
	Reserved  Days
}

func (e *IntegrityError) Error() string {
	return fmt.Sprintf("integrity violation on %s during %s: balance %s, reserved %s",
		e.Key, e.Operation, e.Balance, e.Reserved)
}

func (e *IntegrityError) Unwrap() error { return ErrIntegrity }

// NotFoundError names the missing row.
type NotFoundError struct {
	Kind string
	ID   int64
}

func (e *NotFoundError) Error() string { return fmt.Sprintf("%s %d not found", e.Kind, e.ID) }

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// ForbiddenError names the rule the caller failed.
type ForbiddenError struct {
	Reason string
}

func (e *ForbiddenError) Error() string { return "forbidden: " + e.Reason }

func (e *ForbiddenError) Unwrap() error { return ErrForbidden }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError returns true if the error is due to invalid client input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrValidation) || errors.Is(err, ErrPolicyRejected)
}

// IsConflict returns true for state conflicts (lost races).
func IsConflict(err error) bool {
	return errors.Is(err, ErrAlreadyProcessed)
}

// IsNotFound returns true if the error indicates a missing row.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsForbidden returns true when the caller may not act on the row.
func IsForbidden(err error) bool {
	return errors.Is(err, ErrForbidden)
}

// IsIntegrity returns true for data-integrity faults that warrant investigation.
func IsIntegrity(err error) bool {
	return errors.Is(err, ErrIntegrity)
}

// RejectionCode extracts the result code from a policy rejection.
func RejectionCode(err error) (ResultCode, bool) {
	var rej *RejectionError
	if errors.As(err, &rej) {
		return rej.Code, true
	}
	return "", false
}
