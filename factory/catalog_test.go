package factory

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kishoreafk/Nit-Faculty-Managment-sub000/generic"
	"github.com/kishoreafk/Nit-Faculty-Managment-sub000/store/sqlite"
)

const catalogYAML = `
leave_types:
  - code: el
    name: Earned Leave
    categories: [teaching]
    eligibility:
      unavailable_during_probation: true
      probation_months: 12
    accrual:
      frequency: monthly
      rate: 2.5
      max_balance: 300
    carry_forward:
      enabled: true
      cap: 30
  - code: MAT
    name: Maternity Leave
    eligibility:
      min_service_months: 6
      gender: " Female "
  - code: ML
    name: Medical Leave
    accrual:
      frequency: yearly
      rate: 10
    carry_forward:
      enabled: true
`

func TestParse_YAML(t *testing.T) {
	types, err := Parse([]byte(catalogYAML), FormatYAML)
	require.NoError(t, err)
	require.Len(t, types, 3)

	el := types[0]
	assert.Equal(t, "EL", el.Code, "codes are upper-cased")
	assert.Equal(t, []string{"teaching"}, el.Categories)
	assert.True(t, el.Eligibility.UnavailableDuringProbation)
	assert.Equal(t, 12, el.Eligibility.ProbationMonths)
	assert.Equal(t, generic.FreqMonthly, el.Accrual.Frequency)
	assert.Equal(t, "2.50", el.Accrual.Rate.String())
	require.NotNil(t, el.Accrual.MaxBalance)
	assert.Equal(t, "300.00", el.Accrual.MaxBalance.String())
	assert.True(t, el.CarryForward.Enabled)
	require.NotNil(t, el.CarryForward.Cap)
	assert.Equal(t, "30.00", el.CarryForward.Cap.String())

	mat := types[1]
	assert.Equal(t, "female", mat.Eligibility.Gender)
	assert.Equal(t, 6, mat.Eligibility.MinServiceMonths)
	assert.Equal(t, generic.FreqNone, mat.Accrual.Frequency)
	assert.False(t, mat.CarryForward.Enabled)

	ml := types[2]
	assert.Nil(t, ml.Accrual.MaxBalance, "uncapped")
	assert.True(t, ml.CarryForward.Enabled)
	assert.Nil(t, ml.CarryForward.Cap, "carries everything")
}

func TestParse_JSON(t *testing.T) {
	data := `{"leave_types":[{"code":"CL","name":"Casual Leave","accrual":{"frequency":"yearly","rate":12,"max_balance":12}}]}`

	types, err := Parse([]byte(data), FormatJSON)
	require.NoError(t, err)
	require.Len(t, types, 1)
	assert.Equal(t, "CL", types[0].Code)
	assert.Equal(t, generic.FreqYearly, types[0].Accrual.Frequency)
}

func TestParse_Rejects(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"empty catalog", `leave_types: []`},
		{"missing code", "leave_types:\n  - name: Nameless\n"},
		{"duplicate code", "leave_types:\n  - code: CL\n  - code: cl\n"},
		{"unknown frequency", "leave_types:\n  - code: CL\n    accrual: {frequency: weekly, rate: 1}\n"},
		{"frequency without rate", "leave_types:\n  - code: CL\n    accrual: {frequency: monthly}\n"},
		{"negative cap", "leave_types:\n  - code: CL\n    carry_forward: {enabled: true, cap: -1}\n"},
		{"negative service", "leave_types:\n  - code: CL\n    eligibility: {min_service_months: -2}\n"},
		{"malformed", "leave_types: [\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml), FormatYAML)
			assert.Error(t, err)
		})
	}

	_, err := Parse([]byte(catalogYAML), Format("toml"))
	assert.Error(t, err)
}

func TestLoadFileAndApply(t *testing.T) {
	// GIVEN: a catalog file and an empty store
	// WHEN: it is loaded and applied twice
	// THEN: types are upserted by code, ids are stable

	path := filepath.Join(t.TempDir(), "leave_types.yaml")
	require.NoError(t, os.WriteFile(path, []byte(catalogYAML), 0o600))

	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	defer store.Close()
	ctx := context.Background()

	types, err := LoadFile(path)
	require.NoError(t, err)

	first, err := Apply(ctx, store, types)
	require.NoError(t, err)
	require.Len(t, first, 3)
	for _, lt := range first {
		assert.NotZero(t, lt.ID)
	}

	types[0].Name = "Earned Leave (revised)"
	second, err := Apply(ctx, store, types)
	require.NoError(t, err)
	assert.Equal(t, first[0].ID, second[0].ID)

	stored, err := store.GetLeaveTypeByCode(ctx, "EL")
	require.NoError(t, err)
	assert.Equal(t, "Earned Leave (revised)", stored.Name)

	all, err := store.ListLeaveTypes(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestLoadFile_Missing(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
