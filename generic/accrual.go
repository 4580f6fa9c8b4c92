package generic

import (
	"fmt"
	"time"
)

// =============================================================================
// ACCRUAL CONFIGURATION TYPES
// =============================================================================

type AccrualFrequency string

const (
	FreqNone    AccrualFrequency = "none"
	FreqMonthly AccrualFrequency = "monthly"
	FreqYearly  AccrualFrequency = "yearly"
)

// ParseAccrualFrequency maps configuration strings to a frequency.
func ParseAccrualFrequency(s string) (AccrualFrequency, error) {
	switch AccrualFrequency(s) {
	case "", FreqNone:
		return FreqNone, nil
	case FreqMonthly, FreqYearly:
		return AccrualFrequency(s), nil
	}
	return "", fmt.Errorf("unknown accrual frequency %q", s)
}

// AccrualKind tags an accrual history entry.
type AccrualKind string

const (
	AccrualMonthly      AccrualKind = "MONTHLY"
	AccrualYearly       AccrualKind = "YEARLY"
	AccrualCarryForward AccrualKind = "CARRY_FORWARD"
)

// Period keys make each batch idempotent per row.
func MonthlyPeriodKey(year FiscalYear, month time.Month) string {
	return fmt.Sprintf("%04d-%02d", int(year), int(month))
}

func YearlyPeriodKey(year FiscalYear) string {
	return fmt.Sprintf("%04d", int(year))
}

func CarryForwardPeriodKey(from FiscalYear) string {
	return fmt.Sprintf("%04d->%04d", int(from), int(from.Next()))
}
