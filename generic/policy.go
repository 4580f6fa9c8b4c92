package generic

import "strings"

// =============================================================================
// LEAVE TYPE - Per-type policy
// =============================================================================

// LeaveType defines one kind of leave together with every rule the engine
// applies to it. No rule is keyed on a leave type's name.
//
// Examples:
//   - Casual leave: 12 days/year upfront, no carry-forward
//   - Earned leave: 2.5 days/month, max 300, carry-forward capped at 30
//   - Maternity leave: female only, 6 months minimum service
type LeaveType struct {
	ID           LeaveTypeID
	Code         string
	Name         string
	Eligibility  EligibilityRules
	Accrual      AccrualRule
	CarryForward CarryForwardRule

	// Categories restricts the type to these faculty categories (empty = all).
	Categories []string
}

// EligibilityRules parameterize the eligibility evaluator.
type EligibilityRules struct {
	// UnavailableDuringProbation blocks the type while the faculty member is
	// flagged on probation or has served fewer than ProbationMonths.
	UnavailableDuringProbation bool
	ProbationMonths            int

	// MinServiceMonths is the tenure required before the type may be used.
	MinServiceMonths int

	// Gender restricts the type to one recorded gender ("" = any).
	Gender string
}

// AccrualRule describes how the batch credits balance.
type AccrualRule struct {
	Frequency  AccrualFrequency
	Rate       Days  // days per accrual event
	MaxBalance *Days // nil = uncapped
}

// CarryForwardRule describes the year-end transfer.
type CarryForwardRule struct {
	Enabled bool
	Cap     *Days // nil = carry everything available
}

// AppliesTo reports whether a faculty category is granted this leave type.
func (lt LeaveType) AppliesTo(category string) bool {
	if len(lt.Categories) == 0 {
		return true
	}
	for _, c := range lt.Categories {
		if strings.EqualFold(c, category) {
			return true
		}
	}
	return false
}

// CarryAmount is min(available, cap), never negative.
func (r CarryForwardRule) CarryAmount(available Days) Days {
	if !available.IsPositive() {
		return ZeroDays()
	}
	if r.Cap != nil {
		return available.Min(*r.Cap)
	}
	return available
}
