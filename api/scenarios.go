/*
scenarios.go - Demo scenario loaders for development and demonstrations

PURPOSE:

	Populates the database with a small department so the API can be
	exercised without an HR import. Every scenario starts from an empty
	database and goes through the engine (EnsureBalance, Apply), so the
	seeded rows obey the same invariants as real ones.

AVAILABLE SCENARIOS:

	department:       HOD + four faculty, default catalog, opening balances
	pending-reviews:  department + PENDING applications with class coverage
	year-end:         department with unused balances, ready for carry-forward

HOW SCENARIOS WORK:
 1. Reset database (clear all data)
 2. Upsert the default leave-type catalog via factory.Apply
 3. Create faculty
 4. Open current-year balances through the engine
 5. Optionally file applications

USAGE VIA API:

	POST /api/scenarios/load
	{"scenario_id": "pending-reviews"}

	or at start-up: SEED_DEMO=pending-reviews

NOTE:

	Scenarios reset the database. The routes are not mounted in production.

SEE ALSO:
  - timeoff/policies.go: DefaultCatalog
  - server.go: RouterOptions.EnableScenarios
*/
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/kishoreafk/Nit-Faculty-Managment-sub000/factory"
	"github.com/kishoreafk/Nit-Faculty-Managment-sub000/generic"
	"github.com/kishoreafk/Nit-Faculty-Managment-sub000/timeoff"
)

// =============================================================================
// SCENARIO DEFINITIONS
// =============================================================================

var scenarios = []ScenarioDTO{
	{
		ID:          "department",
		Name:        "Department",
		Description: "HOD and four faculty with opening balances for the current year",
	},
	{
		ID:          "pending-reviews",
		Name:        "Pending Reviews",
		Description: "Department with PENDING applications, one with class coverage awaiting confirmation",
	},
	{
		ID:          "year-end",
		Name:        "Year End",
		Description: "Department with unused earned and medical leave, ready for carry-forward",
	},
}

// seedActor is recorded as the actor of seeded balance rows.
const seedActor generic.ActorID = 1

// ListScenarios returns available scenarios.
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, scenarios)
}

// GetCurrentScenario returns the currently loaded scenario, if any.
func (h *Handler) GetCurrentScenario(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	current := h.currentScenario
	h.mu.Unlock()

	for _, s := range scenarios {
		if s.ID == current {
			writeJSON(w, http.StatusOK, s)
			return
		}
	}
	writeJSON(w, http.StatusOK, nil)
}

// LoadScenario resets the database and loads a predefined scenario.
func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	var req LoadScenarioRequest
	if !h.decode(w, r, &req) {
		return
	}
	if !knownScenario(req.ScenarioID) {
		writeError(w, http.StatusBadRequest, "Unknown scenario", nil)
		return
	}

	if err := h.Seed(r.Context(), req.ScenarioID); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load scenario", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "loaded", "scenario": req.ScenarioID})
}

func knownScenario(id string) bool {
	for _, s := range scenarios {
		if s.ID == id {
			return true
		}
	}
	return false
}

// Seed resets the database and loads scenario id.
func (h *Handler) Seed(ctx context.Context, id string) error {
	if !knownScenario(id) {
		return fmt.Errorf("unknown scenario %q", id)
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if err := h.Store.Reset(ctx); err != nil {
		return err
	}
	h.currentScenario = ""

	d, err := h.seedDepartment(ctx)
	if err != nil {
		return err
	}

	switch id {
	case "pending-reviews":
		err = h.seedPendingReviews(ctx, d)
	case "year-end":
		err = h.seedYearEnd(ctx, d)
	}
	if err != nil {
		return err
	}

	h.currentScenario = id
	h.Logger.Info().Str("scenario", id).Msg("scenario loaded")
	return nil
}

// =============================================================================
// SCENARIO LOADERS
// =============================================================================

// department is what every scenario builds on.
type department struct {
	year    generic.FiscalYear
	types   map[string]generic.LeaveType
	faculty map[string]generic.Faculty
}

func (h *Handler) seedDepartment(ctx context.Context) (*department, error) {
	now := h.now()
	year := generic.FiscalYear(now.Year())
	today := generic.DateOf(now)

	saved, err := factory.Apply(ctx, h.Store, timeoff.DefaultCatalog())
	if err != nil {
		return nil, err
	}
	d := &department{
		year:    year,
		types:   make(map[string]generic.LeaveType, len(saved)),
		faculty: make(map[string]generic.Faculty),
	}
	for _, lt := range saved {
		d.types[lt.Code] = lt
	}

	people := []generic.Faculty{
		{Name: "Dr. Meera Iyer", Email: "meera.iyer@example.edu", Gender: "female", JoiningDate: today.AddMonths(-240)},
		{Name: "Dr. Arjun Nair", Email: "arjun.nair@example.edu", Gender: "male", JoiningDate: today.AddMonths(-96)},
		{Name: "Dr. Kavya Menon", Email: "kavya.menon@example.edu", Gender: "female", JoiningDate: today.AddMonths(-40)},
		{Name: "Rahul Das", Email: "rahul.das@example.edu", Gender: "male", JoiningDate: today.AddMonths(-4), IsProbation: true},
		{Name: "Sneha Pillai", Email: "sneha.pillai@example.edu", Gender: "female", JoiningDate: today.AddMonths(-2)},
	}
	for i := range people {
		f := people[i]
		f.Category = "teaching"
		f.Active = true
		if err := h.Store.SaveFaculty(ctx, &f); err != nil {
			return nil, err
		}
		d.faculty[f.Name] = f
	}

	opening := map[string]float64{"CL": 12, "EL": 30, "ML": 10, "MAT": 180}
	for _, f := range d.faculty {
		for code, amount := range opening {
			lt := d.types[code]
			if timeoff.Evaluate(f, lt, today) != generic.EligibilityOK {
				continue
			}
			key := generic.BalanceKey{FacultyID: f.ID, LeaveTypeID: lt.ID, Year: year}
			if _, err := h.Engine.EnsureBalance(ctx, key, generic.NewDays(amount), seedActor); err != nil {
				return nil, err
			}
		}
	}
	return d, nil
}

func (h *Handler) seedPendingReviews(ctx context.Context, d *department) error {
	arjun := d.faculty["Dr. Arjun Nair"]
	kavya := d.faculty["Dr. Kavya Menon"]
	start := generic.DateOf(h.now()).AddDays(14)
	// Both requests draw on this year's rows, so keep them before New Year.
	if latest := generic.EndOfYear(d.year).AddDays(-9); start.After(latest) {
		start = latest
	}

	requests := []timeoff.ApplyInput{
		{
			FacultyID:   arjun.ID,
			LeaveTypeID: d.types["CL"].ID,
			Year:        d.year,
			StartDate:   start,
			EndDate:     start.AddDays(1),
			TotalDays:   generic.NewDays(2),
			Category:    "personal",
			Contact:     "+91 98470 00001",
			Adjustments: []timeoff.AdjustmentInput{{
				AdjustmentDate:     start,
				Period:             "P3",
				SubjectCode:        "CS301",
				ClassSection:       "III-A",
				RoomNo:             "LH-2",
				AlternateFacultyID: kavya.ID,
			}},
		},
		{
			FacultyID:   kavya.ID,
			LeaveTypeID: d.types["ML"].ID,
			Year:        d.year,
			StartDate:   start.AddDays(7),
			EndDate:     start.AddDays(9),
			TotalDays:   generic.NewDays(3),
			Category:    "medical",
		},
	}
	for _, in := range requests {
		res, err := h.Engine.Apply(ctx, in)
		if err != nil {
			return err
		}
		if !res.Succeeded() {
			return fmt.Errorf("seed application for faculty %d refused: %s", in.FacultyID, res.Code)
		}
	}
	return nil
}

func (h *Handler) seedYearEnd(ctx context.Context, d *department) error {
	el := d.types["EL"]
	arjun := d.faculty["Dr. Arjun Nair"]

	// A balance above the carry-forward cap, with one application still
	// pending across the year boundary.
	if _, err := h.Engine.OverrideBalance(ctx, timeoff.OverrideInput{
		FacultyID:   arjun.ID,
		LeaveTypeID: el.ID,
		Year:        d.year,
		NewBalance:  generic.NewDays(45),
		Reason:      "demo: unused earned leave at year end",
		ActorID:     seedActor,
	}); err != nil {
		return err
	}

	end := generic.EndOfYear(d.year)
	res, err := h.Engine.Apply(ctx, timeoff.ApplyInput{
		FacultyID:   arjun.ID,
		LeaveTypeID: el.ID,
		Year:        d.year,
		StartDate:   end.AddDays(-2),
		EndDate:     end,
		TotalDays:   generic.NewDays(3),
		AppliedOn:   generic.DateOf(h.now()),
	})
	if err != nil {
		return err
	}
	if !res.Succeeded() {
		return fmt.Errorf("seed year-end application refused: %s", res.Code)
	}
	return nil
}

// seedTimeout bounds start-up seeding.
const seedTimeout = time.Minute

// SeedOnStartup loads id with a bounded context; used by cmd/server.
func (h *Handler) SeedOnStartup(id string) error {
	ctx, cancel := context.WithTimeout(context.Background(), seedTimeout)
	defer cancel()
	return h.Seed(ctx, id)
}
