/*
balance.go - Balance row and availability

PURPOSE:
  A LeaveBalance is the single contended resource of the engine: one row
  per (faculty, leave type, year). Every mutating operation locks it, reads
  it, derives the next state with the methods below, and writes it back.

BALANCE COMPONENTS:
  Balance:   days credited for the year (accrual, carry-forward, override,
             minus approved consumption)
  Reserved:  days provisionally withheld by PENDING applications
  Available: Balance - Reserved (derived, never stored)

INVARIANT:
  0 <= Reserved <= Balance after every successful mutation. The transition
  methods return an IntegrityError instead of a clamped value; the caller
  rolls the transaction back.

TRANSITIONS:
  Reserve(d)  apply         Reserved += d
  Release(d)  reject/withdraw Reserved -= d
  Settle(d)   approve       Balance -= d, Reserved -= d
  Credit(d)   accrual       Balance += d (capped by the caller)
  SetBalance  override      Balance = v

SEE ALSO:
  - timeoff/engine.go: the operations that drive these transitions
  - store/sqlite/sqlite.go: row locking
*/
package generic

import (
	"fmt"
	"time"
)

// =============================================================================
// BALANCE KEY
// =============================================================================

// BalanceKey identifies a balance row.
type BalanceKey struct {
	FacultyID   FacultyID
	LeaveTypeID LeaveTypeID
	Year        FiscalYear
}

func (k BalanceKey) String() string {
	return fmt.Sprintf("faculty=%d type=%d year=%d", k.FacultyID, k.LeaveTypeID, k.Year)
}

// NextYear returns the key of the same faculty/type one year later.
func (k BalanceKey) NextYear() BalanceKey {
	return BalanceKey{FacultyID: k.FacultyID, LeaveTypeID: k.LeaveTypeID, Year: k.Year.Next()}
}

// =============================================================================
// LEAVE BALANCE
// =============================================================================

type LeaveBalance struct {
	Key       BalanceKey
	Balance   Days
	Reserved  Days
	UpdatedAt time.Time
}

// Available is the amount a new request may legally consume.
func (b LeaveBalance) Available() Days {
	return b.Balance.Sub(b.Reserved)
}

// CheckInvariant verifies 0 <= Reserved <= Balance.
func (b LeaveBalance) CheckInvariant(operation string) error {
	if b.Reserved.IsNegative() || b.Reserved.GreaterThan(b.Balance) {
		return &IntegrityError{Key: b.Key, Operation: operation, Balance: b.Balance, Reserved: b.Reserved}
	}
	return nil
}

// Reserve withholds d days for a new PENDING application.
func (b LeaveBalance) Reserve(d Days) (LeaveBalance, error) {
	next := b
	next.Reserved = b.Reserved.Add(d)
	return next, next.CheckInvariant("reserve")
}

// Release returns d reserved days (rejection or withdrawal).
func (b LeaveBalance) Release(d Days) (LeaveBalance, error) {
	next := b
	next.Reserved = b.Reserved.Sub(d)
	return next, next.CheckInvariant("release")
}

// Settle converts d reserved days into consumption (approval).
func (b LeaveBalance) Settle(d Days) (LeaveBalance, error) {
	next := b
	next.Balance = b.Balance.Sub(d)
	next.Reserved = b.Reserved.Sub(d)
	return next, next.CheckInvariant("settle")
}

// Credit adds d days to the balance.
func (b LeaveBalance) Credit(d Days) (LeaveBalance, error) {
	next := b
	next.Balance = b.Balance.Add(d)
	return next, next.CheckInvariant("credit")
}

// Debit removes d days from the balance (carry-forward out of the expiring year).
func (b LeaveBalance) Debit(d Days) (LeaveBalance, error) {
	next := b
	next.Balance = b.Balance.Sub(d)
	return next, next.CheckInvariant("debit")
}

// SetBalance overwrites the balance (administrative override).
func (b LeaveBalance) SetBalance(v Days) (LeaveBalance, error) {
	next := b
	next.Balance = v
	if v.IsNegative() {
		return next, &IntegrityError{Key: b.Key, Operation: "override", Balance: v, Reserved: b.Reserved}
	}
	return next, next.CheckInvariant("override")
}

// Snapshot is the audit representation of a balance row.
func (b LeaveBalance) Snapshot() map[string]any {
	return map[string]any{
		"balance":   b.Balance.String(),
		"reserved":  b.Reserved.String(),
		"available": b.Available().String(),
	}
}

// CapCredit returns how much of `rate` may be credited without taking
// balance above max. Excess is dropped, not banked.
func CapCredit(balance, rate Days, max *Days) Days {
	if max == nil {
		return rate
	}
	room := max.Sub(balance)
	if !room.IsPositive() {
		return ZeroDays()
	}
	return rate.Min(room)
}
