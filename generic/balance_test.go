package generic

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func days(v float64) Days { return NewDays(v) }

func daysPtr(v float64) *Days {
	d := NewDays(v)
	return &d
}

// =============================================================================
// BALANCE ARITHMETIC
// =============================================================================

func TestLeaveBalance_ReserveSettleRelease(t *testing.T) {
	// GIVEN: 10 days, nothing reserved
	b := LeaveBalance{Key: BalanceKey{FacultyID: 1, LeaveTypeID: 2, Year: 2025}, Balance: days(10)}

	// WHEN: 3 days are reserved
	b, err := b.Reserve(days(3))
	require.NoError(t, err)

	// THEN: availability drops, balance does not
	assert.Equal(t, "10.00", b.Balance.String())
	assert.Equal(t, "7.00", b.Available().String())

	// WHEN: the reservation is settled
	settled, err := b.Settle(days(3))
	require.NoError(t, err)
	assert.Equal(t, "7.00", settled.Balance.String())
	assert.True(t, settled.Reserved.IsZero())

	// OR: released
	released, err := b.Release(days(3))
	require.NoError(t, err)
	assert.Equal(t, "10.00", released.Balance.String())
	assert.True(t, released.Reserved.IsZero())
}

func TestLeaveBalance_InvariantViolations(t *testing.T) {
	b := LeaveBalance{Balance: days(5), Reserved: days(2)}

	tests := []struct {
		name string
		op   func() (LeaveBalance, error)
	}{
		{"reserve beyond balance", func() (LeaveBalance, error) { return b.Reserve(days(4)) }},
		{"release more than reserved", func() (LeaveBalance, error) { return b.Release(days(3)) }},
		{"debit into the reservation", func() (LeaveBalance, error) { return b.Debit(days(4)) }},
		{"override below reserved", func() (LeaveBalance, error) { return b.SetBalance(days(1)) }},
		{"negative override", func() (LeaveBalance, error) { return b.SetBalance(days(-1)) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.op()

			require.Error(t, err)
			assert.True(t, IsIntegrity(err))
			var ie *IntegrityError
			require.True(t, errors.As(err, &ie))
		})
	}
}

func TestCapCredit(t *testing.T) {
	tests := []struct {
		name    string
		balance float64
		rate    float64
		max     *Days
		want    string
	}{
		{"no cap", 500, 2.5, nil, "2.50"},
		{"room for all", 100, 2.5, daysPtr(300), "2.50"},
		{"partial", 299, 2.5, daysPtr(300), "1.00"},
		{"at cap", 300, 2.5, daysPtr(300), "0.00"},
		{"above cap after override", 310, 2.5, daysPtr(300), "0.00"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CapCredit(days(tt.balance), days(tt.rate), tt.max).String())
		})
	}
}

func TestCarryAmount(t *testing.T) {
	capped := CarryForwardRule{Enabled: true, Cap: daysPtr(5)}
	uncapped := CarryForwardRule{Enabled: true}

	assert.Equal(t, "5.00", capped.CarryAmount(days(12)).String())
	assert.Equal(t, "3.50", capped.CarryAmount(days(3.5)).String())
	assert.Equal(t, "12.00", uncapped.CarryAmount(days(12)).String())
	assert.Equal(t, "0.00", uncapped.CarryAmount(days(-1)).String())
}

// =============================================================================
// DAYS
// =============================================================================

func TestDays_JSON(t *testing.T) {
	out, err := json.Marshal(struct {
		Total Days `json:"total"`
	}{days(2.5)})
	require.NoError(t, err)
	assert.JSONEq(t, `{"total": 2.50}`, string(out))

	for _, raw := range []string{`1.5`, `"1.5"`} {
		var d Days
		require.NoError(t, json.Unmarshal([]byte(raw), &d), raw)
		assert.Equal(t, "1.50", d.String())
	}

	var d Days
	assert.Error(t, json.Unmarshal([]byte(`"one"`), &d))

	// Request input is not rounded: finer values stay visible to validation.
	for _, raw := range []string{`1.004`, `0.501`, `"2.499"`} {
		var d Days
		require.NoError(t, json.Unmarshal([]byte(raw), &d), raw)
		assert.False(t, d.HasCentPrecision(), raw)
		assert.False(t, d.IsHalfDayMultiple(), raw)
	}
	assert.True(t, MustParseDays("1.50").HasCentPrecision())
	assert.True(t, MustParseDays("1.500").HasCentPrecision())
	assert.Equal(t, "1.00", MustParseDays("0.996").Add(ZeroDays()).String())
}

func TestDays_HalfDayMultiple(t *testing.T) {
	for _, v := range []string{"0.5", "1", "2.5", "10"} {
		assert.True(t, MustParseDays(v).IsHalfDayMultiple(), v)
	}
	for _, v := range []string{"0.25", "1.3", "2.75"} {
		assert.False(t, MustParseDays(v).IsHalfDayMultiple(), v)
	}
}

// =============================================================================
// DATES AND PERIODS
// =============================================================================

func TestMonthsBetween(t *testing.T) {
	joined := NewDate(2024, time.March, 15)

	assert.Equal(t, 0, MonthsBetween(joined, NewDate(2024, time.April, 14)))
	assert.Equal(t, 1, MonthsBetween(joined, NewDate(2024, time.April, 15)))
	assert.Equal(t, 11, MonthsBetween(joined, NewDate(2025, time.March, 14)))
	assert.Equal(t, 12, MonthsBetween(joined, NewDate(2025, time.March, 15)))
	assert.Equal(t, 0, MonthsBetween(joined, NewDate(2023, time.January, 1)))
}

func TestPeriod_OverlapsInclusive(t *testing.T) {
	june := Period{Start: NewDate(2025, time.June, 10), End: NewDate(2025, time.June, 12)}

	assert.True(t, june.Overlaps(Period{Start: NewDate(2025, time.June, 12), End: NewDate(2025, time.June, 14)}))
	assert.True(t, june.Overlaps(Period{Start: NewDate(2025, time.June, 1), End: NewDate(2025, time.June, 10)}))
	assert.False(t, june.Overlaps(Period{Start: NewDate(2025, time.June, 13), End: NewDate(2025, time.June, 14)}))

	assert.True(t, june.Contains(NewDate(2025, time.June, 10)))
	assert.True(t, june.Contains(NewDate(2025, time.June, 12)))
	assert.False(t, june.Contains(NewDate(2025, time.June, 13)))

	assert.Error(t, Period{Start: NewDate(2025, time.June, 12), End: NewDate(2025, time.June, 10)}.Validate())
	assert.Error(t, Period{End: NewDate(2025, time.June, 10)}.Validate())
}

func TestPeriodKeys(t *testing.T) {
	assert.Equal(t, "2025-03", MonthlyPeriodKey(2025, time.March))
	assert.Equal(t, "2025", YearlyPeriodKey(2025))
	assert.Equal(t, "2025->2026", CarryForwardPeriodKey(2025))
	assert.Equal(t, "2025-12-31", EndOfMonth(2025, time.December).String())
	assert.Equal(t, "2024-02-29", EndOfMonth(2024, time.February).String())
}

// =============================================================================
// STATES AND ERRORS
// =============================================================================

func TestApplicationTransitions(t *testing.T) {
	assert.True(t, CanTransition(StatusPending, StatusApproved))
	assert.True(t, CanTransition(StatusPending, StatusRejected))
	assert.True(t, CanTransition(StatusPending, StatusDeleted))
	assert.False(t, CanTransition(StatusApproved, StatusDeleted))
	assert.False(t, CanTransition(StatusRejected, StatusApproved))
	assert.False(t, CanTransition(StatusDeleted, StatusDeleted))

	s, err := ParseApplicationStatus(" approved ")
	require.NoError(t, err)
	assert.Equal(t, StatusApproved, s)
	_, err = ParseApplicationStatus("cancelled")
	assert.Error(t, err)
}

func TestAdjustment_CheckConfirmable(t *testing.T) {
	adj := LeaveAdjustment{ID: 4, AlternateFacultyID: 9, Status: AdjustmentPending}

	assert.NoError(t, adj.CheckConfirmable(9))
	assert.True(t, IsForbidden(adj.CheckConfirmable(8)))

	adj.Status = AdjustmentConfirmed
	assert.True(t, IsConflict(adj.CheckConfirmable(9)))
}

func TestErrorClassification(t *testing.T) {
	wrapped := fmt.Errorf("apply: %w", &RejectionError{Code: ResultOverlappingLeave})

	code, ok := RejectionCode(wrapped)
	require.True(t, ok)
	assert.Equal(t, ResultOverlappingLeave, code)
	assert.True(t, IsClientError(wrapped))

	assert.True(t, IsClientError(&ValidationError{Field: "reason", Message: "is required"}))
	assert.True(t, IsNotFound(fmt.Errorf("lookup: %w", &NotFoundError{Kind: "faculty", ID: 3})))
	assert.True(t, IsConflict(&StateConflictError{Kind: "application", ID: 1, Current: "APPROVED"}))
	assert.False(t, IsIntegrity(&StateConflictError{Kind: "application", ID: 1}))

	_, ok = RejectionCode(&ValidationError{Field: "x"})
	assert.False(t, ok)
}
