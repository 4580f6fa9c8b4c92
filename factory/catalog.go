/*
Package factory loads the leave-type catalog from configuration.

PURPOSE:
  Converts YAML (or JSON) leave-type definitions into generic.LeaveType
  values and upserts them into the store at start-up. This lets a
  department change accrual rates, caps or eligibility rules without a
  code change; rows are matched on code, so editing a file and restarting
  updates the existing types in place.

YAML SCHEMA:
  leave_types:
    - code: EL
      name: Earned Leave
      categories: [teaching]
      eligibility:
        unavailable_during_probation: true
        probation_months: 12
        min_service_months: 0
        gender: ""
      accrual:
        frequency: monthly      # none | monthly | yearly
        rate: 2.5
        max_balance: 300        # omit for uncapped
      carry_forward:
        enabled: true
        cap: 30                 # omit to carry everything

  JSON uses the same field names.

USAGE:
  types, err := factory.LoadFile("leave_types.yaml")
  saved, err := factory.Apply(ctx, store, types)

  // No file configured:
  saved, err := factory.Apply(ctx, store, timeoff.DefaultCatalog())

SEE ALSO:
  - generic/policy.go: LeaveType definition
  - timeoff/policies.go: pre-built types and the default catalog
*/
package factory

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/kishoreafk/Nit-Faculty-Managment-sub000/generic"
)

// =============================================================================
// SCHEMA TYPES
// =============================================================================

// CatalogDoc is the file representation of a catalog.
type CatalogDoc struct {
	LeaveTypes []LeaveTypeDoc `yaml:"leave_types" json:"leave_types"`
}

// LeaveTypeDoc is the file representation of one leave type.
type LeaveTypeDoc struct {
	Code         string           `yaml:"code" json:"code"`
	Name         string           `yaml:"name" json:"name"`
	Categories   []string         `yaml:"categories,omitempty" json:"categories,omitempty"`
	Eligibility  EligibilityDoc   `yaml:"eligibility,omitempty" json:"eligibility,omitempty"`
	Accrual      *AccrualDoc      `yaml:"accrual,omitempty" json:"accrual,omitempty"`
	CarryForward *CarryForwardDoc `yaml:"carry_forward,omitempty" json:"carry_forward,omitempty"`
}

type EligibilityDoc struct {
	UnavailableDuringProbation bool   `yaml:"unavailable_during_probation,omitempty" json:"unavailable_during_probation,omitempty"`
	ProbationMonths            int    `yaml:"probation_months,omitempty" json:"probation_months,omitempty"`
	MinServiceMonths           int    `yaml:"min_service_months,omitempty" json:"min_service_months,omitempty"`
	Gender                     string `yaml:"gender,omitempty" json:"gender,omitempty"`
}

type AccrualDoc struct {
	Frequency  string   `yaml:"frequency" json:"frequency"`
	Rate       float64  `yaml:"rate" json:"rate"`
	MaxBalance *float64 `yaml:"max_balance,omitempty" json:"max_balance,omitempty"`
}

type CarryForwardDoc struct {
	Enabled bool     `yaml:"enabled" json:"enabled"`
	Cap     *float64 `yaml:"cap,omitempty" json:"cap,omitempty"`
}

// Format selects the decoder.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
)

// =============================================================================
// LOADING
// =============================================================================

// LoadFile reads a catalog file; the extension picks the format.
func LoadFile(path string) ([]generic.LeaveType, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog: %w", err)
	}
	format := FormatYAML
	if strings.EqualFold(filepath.Ext(path), ".json") {
		format = FormatJSON
	}
	return Parse(data, format)
}

// Parse decodes and validates a catalog.
func Parse(data []byte, format Format) ([]generic.LeaveType, error) {
	var doc CatalogDoc
	switch format {
	case FormatJSON:
		if err := json.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("failed to parse catalog JSON: %w", err)
		}
	case FormatYAML, "":
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("failed to parse catalog YAML: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported catalog format %q", format)
	}
	return FromDoc(doc)
}

// FromDoc converts a decoded catalog, rejecting duplicate codes.
func FromDoc(doc CatalogDoc) ([]generic.LeaveType, error) {
	if len(doc.LeaveTypes) == 0 {
		return nil, fmt.Errorf("catalog defines no leave types")
	}

	seen := make(map[string]bool, len(doc.LeaveTypes))
	out := make([]generic.LeaveType, 0, len(doc.LeaveTypes))
	for i, s := range doc.LeaveTypes {
		lt, err := s.toLeaveType()
		if err != nil {
			return nil, fmt.Errorf("leave_types[%d]: %w", i, err)
		}
		if seen[lt.Code] {
			return nil, fmt.Errorf("leave_types[%d]: duplicate code %q", i, lt.Code)
		}
		seen[lt.Code] = true
		out = append(out, lt)
	}
	return out, nil
}

func (s LeaveTypeDoc) toLeaveType() (generic.LeaveType, error) {
	lt := generic.LeaveType{
		Code: strings.ToUpper(strings.TrimSpace(s.Code)),
		Name: strings.TrimSpace(s.Name),
		Eligibility: generic.EligibilityRules{
			UnavailableDuringProbation: s.Eligibility.UnavailableDuringProbation,
			ProbationMonths:            s.Eligibility.ProbationMonths,
			MinServiceMonths:           s.Eligibility.MinServiceMonths,
			Gender:                     strings.ToLower(strings.TrimSpace(s.Eligibility.Gender)),
		},
		Accrual: generic.AccrualRule{Frequency: generic.FreqNone, Rate: generic.ZeroDays()},
	}
	if lt.Code == "" {
		return lt, fmt.Errorf("code is required")
	}
	if lt.Name == "" {
		lt.Name = lt.Code
	}
	if s.Eligibility.ProbationMonths < 0 || s.Eligibility.MinServiceMonths < 0 {
		return lt, fmt.Errorf("%s: service months must not be negative", lt.Code)
	}
	for _, c := range s.Categories {
		if c = strings.TrimSpace(c); c != "" {
			lt.Categories = append(lt.Categories, c)
		}
	}

	if s.Accrual != nil {
		freq, err := generic.ParseAccrualFrequency(strings.ToLower(strings.TrimSpace(s.Accrual.Frequency)))
		if err != nil {
			return lt, fmt.Errorf("%s: %w", lt.Code, err)
		}
		if s.Accrual.Rate < 0 {
			return lt, fmt.Errorf("%s: accrual rate must not be negative", lt.Code)
		}
		if freq != generic.FreqNone && s.Accrual.Rate == 0 {
			return lt, fmt.Errorf("%s: %s accrual needs a rate", lt.Code, freq)
		}
		lt.Accrual.Frequency = freq
		lt.Accrual.Rate = generic.NewDays(s.Accrual.Rate)
		if lt.Accrual.MaxBalance, err = optionalDays(s.Accrual.MaxBalance); err != nil {
			return lt, fmt.Errorf("%s: max_balance %w", lt.Code, err)
		}
	}

	if s.CarryForward != nil && s.CarryForward.Enabled {
		carryCap, err := optionalDays(s.CarryForward.Cap)
		if err != nil {
			return lt, fmt.Errorf("%s: carry_forward cap %w", lt.Code, err)
		}
		lt.CarryForward = generic.CarryForwardRule{Enabled: true, Cap: carryCap}
	}
	return lt, nil
}

func optionalDays(v *float64) (*generic.Days, error) {
	if v == nil {
		return nil, nil
	}
	if *v < 0 {
		return nil, fmt.Errorf("must not be negative")
	}
	d := generic.NewDays(*v)
	return &d, nil
}

// =============================================================================
// APPLYING
// =============================================================================

// Saver is the store surface Apply needs.
type Saver interface {
	SaveLeaveType(ctx context.Context, lt *generic.LeaveType) error
}

// Apply upserts every type by code and returns them with their ids.
func Apply(ctx context.Context, store Saver, types []generic.LeaveType) ([]generic.LeaveType, error) {
	saved := make([]generic.LeaveType, 0, len(types))
	for _, lt := range types {
		lt := lt
		if err := store.SaveLeaveType(ctx, &lt); err != nil {
			return saved, fmt.Errorf("failed to save leave type %s: %w", lt.Code, err)
		}
		saved = append(saved, lt)
	}
	return saved, nil
}
