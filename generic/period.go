package generic

// =============================================================================
// PERIOD - Inclusive date range of a leave request
// =============================================================================

// Period is a closed date range [Start, End]. Both ends are leave days.
//
// Examples:
//   - Single day:   2025-03-10 .. 2025-03-10
//   - Week off:     2025-03-10 .. 2025-03-14
type Period struct {
	Start Date
	End   Date
}

// Validate fails when either bound is missing or End precedes Start.
func (p Period) Validate() error {
	if p.Start.IsZero() || p.End.IsZero() {
		return &ValidationError{Field: "dates", Message: "start and end dates are required"}
	}
	if p.End.Before(p.Start) {
		return &ValidationError{Field: "end_date", Message: "end date is before start date"}
	}
	return nil
}

// Contains returns true if d is within [Start, End].
func (p Period) Contains(d Date) bool {
	return d.AfterOrEqual(p.Start) && d.BeforeOrEqual(p.End)
}

// Overlaps is inclusive on both ends: ranges sharing a single day overlap.
func (p Period) Overlaps(o Period) bool {
	return p.Start.BeforeOrEqual(o.End) && o.Start.BeforeOrEqual(p.End)
}

// String returns a string representation of the period.
func (p Period) String() string {
	return "[" + p.Start.String() + ", " + p.End.String() + "]"
}
