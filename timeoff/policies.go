/*
policies.go - Eligibility evaluation and pre-built leave types

PURPOSE:
  Evaluate decides whether a faculty member may use a leave type at all,
  before balance or overlap are looked at. It is a pure function of the
  employment record, the leave type's rules and an as-of date.

EVALUATION ORDER (first failure wins):
  1. Probation       -> PROBATION_PERIOD
  2. Minimum service -> MIN_SERVICE_NOT_MET
  3. Gender          -> GENDER_NOT_ELIGIBLE

PRE-BUILT LEAVE TYPES:
  CasualLeave:    12 days/year granted upfront, no carry-forward
  EarnedLeave:    monthly accrual, capped balance, capped carry-forward
  MedicalLeave:   yearly grant, uncapped carry-forward
  MaternityLeave: gender and service restricted, unavailable on probation

  These are starting points for seeding and tests. Deployments describe
  their catalog in YAML (see factory/).

SEE ALSO:
  - generic/policy.go: EligibilityRules
  - factory/catalog.go: YAML catalog
*/
package timeoff

import (
	"strings"

	"github.com/kishoreafk/Nit-Faculty-Managment-sub000/generic"
)

// =============================================================================
// ELIGIBILITY
// =============================================================================

// Evaluate returns EligibilityOK or the first rule the faculty member fails.
func Evaluate(f generic.Faculty, lt generic.LeaveType, asOf generic.Date) generic.ResultCode {
	rules := lt.Eligibility
	service := f.ServiceMonths(asOf)

	if rules.UnavailableDuringProbation {
		if f.IsProbation || service < rules.ProbationMonths {
			return generic.ResultProbationPeriod
		}
	}

	if service < rules.MinServiceMonths {
		return generic.ResultMinServiceNotMet
	}

	if rules.Gender != "" && !strings.EqualFold(strings.TrimSpace(f.Gender), rules.Gender) {
		return generic.ResultGenderNotEligible
	}

	return generic.EligibilityOK
}

// =============================================================================
// PRE-BUILT LEAVE TYPES
// =============================================================================

// CasualLeave grants annualDays on January 1st. Unused days lapse.
func CasualLeave(annualDays float64) generic.LeaveType {
	return generic.LeaveType{
		Code: "CL",
		Name: "Casual Leave",
		Accrual: generic.AccrualRule{
			Frequency:  generic.FreqYearly,
			Rate:       generic.NewDays(annualDays),
			MaxBalance: daysPtr(annualDays),
		},
	}
}

// EarnedLeave accrues monthlyDays per month up to maxBalance and carries at
// most carryCap days into the next year.
func EarnedLeave(monthlyDays, maxBalance, carryCap float64) generic.LeaveType {
	return generic.LeaveType{
		Code: "EL",
		Name: "Earned Leave",
		Eligibility: generic.EligibilityRules{
			UnavailableDuringProbation: true,
			ProbationMonths:            12,
		},
		Accrual: generic.AccrualRule{
			Frequency:  generic.FreqMonthly,
			Rate:       generic.NewDays(monthlyDays),
			MaxBalance: daysPtr(maxBalance),
		},
		CarryForward: generic.CarryForwardRule{Enabled: true, Cap: daysPtr(carryCap)},
	}
}

// MedicalLeave grants annualDays every year and carries everything.
func MedicalLeave(annualDays float64) generic.LeaveType {
	return generic.LeaveType{
		Code: "ML",
		Name: "Medical Leave",
		Accrual: generic.AccrualRule{
			Frequency: generic.FreqYearly,
			Rate:      generic.NewDays(annualDays),
		},
		CarryForward: generic.CarryForwardRule{Enabled: true},
	}
}

// MaternityLeave is granted by override or onboarding, not by accrual.
func MaternityLeave(minServiceMonths int) generic.LeaveType {
	return generic.LeaveType{
		Code: "MAT",
		Name: "Maternity Leave",
		Eligibility: generic.EligibilityRules{
			UnavailableDuringProbation: true,
			MinServiceMonths:           minServiceMonths,
			Gender:                     "female",
		},
	}
}

// DefaultCatalog is used when no catalog file is configured.
func DefaultCatalog() []generic.LeaveType {
	return []generic.LeaveType{
		CasualLeave(12),
		EarnedLeave(2.5, 300, 30),
		MedicalLeave(10),
		MaternityLeave(6),
	}
}

func daysPtr(v float64) *generic.Days {
	d := generic.NewDays(v)
	return &d
}
