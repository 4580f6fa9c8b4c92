/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the engine's types from the external contract: ids are plain numbers,
  dates are "YYYY-MM-DD" strings, day amounts are JSON numbers with two
  decimals.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients
  - *Response: Complex response wrappers

VALIDATION:
  Request types carry go-playground/validator tags for shape checks
  (required, ranges, date layout). Business rules (half-day multiples,
  reserved <= balance) stay in the engine.

SEE ALSO:
  - handlers.go: Uses these types
  - timeoff/types.go: engine inputs
*/
package api

import (
	"time"

	"github.com/kishoreafk/Nit-Faculty-Managment-sub000/generic"
	"github.com/kishoreafk/Nit-Faculty-Managment-sub000/timeoff"
)

// =============================================================================
// REQUESTS
// =============================================================================

// ApplyRequest is the body of POST /api/leave/applications.
// Year defaults to the start date's year.
type ApplyRequest struct {
	LeaveTypeID  int64               `json:"leave_type_id" validate:"required,gt=0"`
	Year         int                 `json:"year" validate:"omitempty,gt=0"`
	StartDate    string              `json:"start_date" validate:"required,datetime=2006-01-02"`
	EndDate      string              `json:"end_date" validate:"required,datetime=2006-01-02"`
	TotalDays    generic.Days        `json:"total_days"`
	Category     string              `json:"leave_category" validate:"max=50"`
	IsDuringExam bool                `json:"is_during_exam"`
	Contact      string              `json:"contact_during_leave" validate:"max=255"`
	Remarks      string              `json:"remarks" validate:"max=1000"`
	Adjustments  []AdjustmentRequest `json:"adjustments" validate:"dive"`
}

// AdjustmentRequest names the alternate for one class.
type AdjustmentRequest struct {
	Date               string `json:"adjustment_date" validate:"required,datetime=2006-01-02"`
	Period             string `json:"period" validate:"max=20"`
	SubjectCode        string `json:"subject_code" validate:"max=20"`
	ClassSection       string `json:"class_section" validate:"max=20"`
	RoomNo             string `json:"room_no" validate:"max=20"`
	AlternateFacultyID int64  `json:"alternate_faculty_id" validate:"required,gt=0"`
}

type ReviewRequest struct {
	Decision string `json:"decision" validate:"required,oneof=APPROVED REJECTED approved rejected"`
	Reason   string `json:"reason" validate:"required"`
}

type ConfirmAdjustmentRequest struct {
	Decision string `json:"decision" validate:"required,oneof=CONFIRMED DECLINED confirmed declined"`
	Remarks  string `json:"remarks" validate:"max=500"`
}

// OverrideRequest is the body of PUT /api/admin/leave/balances.
type OverrideRequest struct {
	FacultyID   int64        `json:"faculty_id" validate:"required,gt=0"`
	LeaveTypeID int64        `json:"leave_type_id" validate:"required,gt=0"`
	Year        int          `json:"year" validate:"required,gt=0"`
	NewBalance  generic.Days `json:"new_balance"`
	Reason      string       `json:"reason" validate:"required,min=10"`
}

type MonthlyAccrualRequest struct {
	Year  int `json:"year" validate:"required,gt=0"`
	Month int `json:"month" validate:"required,min=1,max=12"`
}

type YearlyAccrualRequest struct {
	Year int `json:"year" validate:"required,gt=0"`
}

type CarryForwardRequest struct {
	FromYear int `json:"from_year" validate:"required,gt=0"`
}

type LoadScenarioRequest struct {
	ScenarioID string `json:"scenario_id" validate:"required"`
}

// =============================================================================
// RESPONSES
// =============================================================================

// ApplyResponse is returned with 201 on SUCCESS.
type ApplyResponse struct {
	Code          generic.ResultCode `json:"code"`
	ApplicationID int64              `json:"application_id"`
	Available     generic.Days       `json:"available"`
}

// RejectionResponse is returned with 422 when a policy rule refused the request.
type RejectionResponse struct {
	Code    generic.ResultCode `json:"code"`
	Message string             `json:"message"`
}

type ApplicationDTO struct {
	ID           int64           `json:"id"`
	FacultyID    int64           `json:"faculty_id"`
	LeaveTypeID  int64           `json:"leave_type_id"`
	Year         int             `json:"year"`
	StartDate    string          `json:"start_date"`
	EndDate      string          `json:"end_date"`
	TotalDays    generic.Days    `json:"total_days"`
	Status       string          `json:"status"`
	Category     string          `json:"leave_category,omitempty"`
	IsDuringExam bool            `json:"is_during_exam"`
	Contact      string          `json:"contact_during_leave,omitempty"`
	Remarks      string          `json:"remarks,omitempty"`
	ReviewerID   *int64          `json:"reviewer_id,omitempty"`
	ReviewReason *string         `json:"review_reason,omitempty"`
	ReviewedAt   *string         `json:"reviewed_at,omitempty"`
	CreatedAt    string          `json:"created_at"`
	DeletedAt    *string         `json:"deleted_at,omitempty"`
	Adjustments  []AdjustmentDTO `json:"adjustments,omitempty"`
}

type AdjustmentDTO struct {
	ID                 int64   `json:"id"`
	ApplicationID      int64   `json:"application_id"`
	Date               string  `json:"adjustment_date"`
	Period             string  `json:"period,omitempty"`
	SubjectCode        string  `json:"subject_code,omitempty"`
	ClassSection       string  `json:"class_section,omitempty"`
	RoomNo             string  `json:"room_no,omitempty"`
	AlternateFacultyID int64   `json:"alternate_faculty_id"`
	Status             string  `json:"status"`
	Remarks            string  `json:"remarks,omitempty"`
	ConfirmedAt        *string `json:"confirmed_at,omitempty"`
}

type BalanceDTO struct {
	FacultyID     int64        `json:"faculty_id"`
	LeaveTypeID   int64        `json:"leave_type_id"`
	LeaveTypeCode string       `json:"leave_type_code,omitempty"`
	LeaveTypeName string       `json:"leave_type_name,omitempty"`
	Year          int          `json:"year"`
	Balance       generic.Days `json:"balance"`
	Reserved      generic.Days `json:"reserved"`
	Available     generic.Days `json:"available"`
}

type PendingDTO struct {
	ApplicationDTO
	FacultyName           string `json:"faculty_name"`
	LeaveTypeCode         string `json:"leave_type_code"`
	UnresolvedAdjustments int    `json:"unresolved_adjustments"`
}

type ReviewResponse struct {
	Application           ApplicationDTO `json:"application"`
	Balance               BalanceDTO     `json:"balance"`
	UnresolvedAdjustments int            `json:"unresolved_adjustments"`
}

type LeaveTypeDTO struct {
	ID                         int64         `json:"id"`
	Code                       string        `json:"code"`
	Name                       string        `json:"name"`
	Categories                 []string      `json:"categories,omitempty"`
	UnavailableDuringProbation bool          `json:"unavailable_during_probation"`
	ProbationMonths            int           `json:"probation_months,omitempty"`
	MinServiceMonths           int           `json:"min_service_months,omitempty"`
	Gender                     string        `json:"gender,omitempty"`
	AccrualFrequency           string        `json:"accrual_frequency"`
	AccrualRate                generic.Days  `json:"accrual_rate"`
	MaxBalance                 *generic.Days `json:"max_balance,omitempty"`
	CarryForward               bool          `json:"carry_forward"`
	CarryForwardCap            *generic.Days `json:"carry_forward_cap,omitempty"`
}

type BatchRunDTO struct {
	ID          int64                `json:"id"`
	Kind        string               `json:"kind"`
	Year        int                  `json:"year"`
	PeriodKey   string               `json:"period_key"`
	Processed   int                  `json:"processed"`
	Skipped     int                  `json:"skipped"`
	Failures    []generic.RowFailure `json:"failures"`
	StartedAt   string               `json:"started_at"`
	CompletedAt string               `json:"completed_at"`
}

type AccrualDTO struct {
	LeaveTypeID int64        `json:"leave_type_id"`
	Year        int          `json:"year"`
	Kind        string       `json:"kind"`
	PeriodKey   string       `json:"period_key"`
	Amount      generic.Days `json:"amount"`
	AccrualDate string       `json:"accrual_date"`
}

type OnLeaveDTO struct {
	FacultyID int64  `json:"faculty_id"`
	Date      string `json:"date"`
	OnLeave   bool   `json:"on_leave"`
}

type AuditEntryDTO struct {
	ID          string         `json:"id"`
	Timestamp   string         `json:"timestamp"`
	ActorID     int64          `json:"actor_id"`
	ActorRole   string         `json:"actor_role"`
	Action      string         `json:"action"`
	FacultyID   int64          `json:"faculty_id,omitempty"`
	LeaveTypeID int64          `json:"leave_type_id,omitempty"`
	Year        int            `json:"year,omitempty"`
	Reference   string         `json:"reference,omitempty"`
	Reason      string         `json:"reason,omitempty"`
	Before      map[string]any `json:"before,omitempty"`
	After       map[string]any `json:"after,omitempty"`
}

type ScenarioDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// ErrorResponse is the body of every non-2xx response except 422.
type ErrorResponse struct {
	Error   string            `json:"error"`
	Details string            `json:"details,omitempty"`
	Fields  map[string]string `json:"fields,omitempty"`
}

// =============================================================================
// CONVERSIONS
// =============================================================================

func formatTimestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func optionalTimestamp(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := formatTimestamp(*t)
	return &s
}

func toApplicationDTO(a generic.LeaveApplication) ApplicationDTO {
	dto := ApplicationDTO{
		ID:           int64(a.ID),
		FacultyID:    int64(a.FacultyID),
		LeaveTypeID:  int64(a.LeaveTypeID),
		Year:         int(a.BalanceYear),
		StartDate:    a.StartDate.String(),
		EndDate:      a.EndDate.String(),
		TotalDays:    a.TotalDays,
		Status:       string(a.Status),
		Category:     a.Category,
		IsDuringExam: a.IsDuringExam,
		Contact:      a.Contact,
		Remarks:      a.Remarks,
		ReviewReason: a.ReviewReason,
		ReviewedAt:   optionalTimestamp(a.ReviewedAt),
		CreatedAt:    formatTimestamp(a.CreatedAt),
		DeletedAt:    optionalTimestamp(a.DeletedAt),
	}
	if a.ReviewerID != nil {
		id := int64(*a.ReviewerID)
		dto.ReviewerID = &id
	}
	return dto
}

func toApplicationDTOs(apps []generic.LeaveApplication) []ApplicationDTO {
	dtos := make([]ApplicationDTO, len(apps))
	for i, a := range apps {
		dtos[i] = toApplicationDTO(a)
	}
	return dtos
}

func toAdjustmentDTO(a generic.LeaveAdjustment) AdjustmentDTO {
	return AdjustmentDTO{
		ID:                 int64(a.ID),
		ApplicationID:      int64(a.ApplicationID),
		Date:               a.AdjustmentDate.String(),
		Period:             a.Period,
		SubjectCode:        a.SubjectCode,
		ClassSection:       a.ClassSection,
		RoomNo:             a.RoomNo,
		AlternateFacultyID: int64(a.AlternateFacultyID),
		Status:             string(a.Status),
		Remarks:            a.Remarks,
		ConfirmedAt:        optionalTimestamp(a.ConfirmedAt),
	}
}

func toAdjustmentDTOs(adjs []generic.LeaveAdjustment) []AdjustmentDTO {
	dtos := make([]AdjustmentDTO, len(adjs))
	for i, a := range adjs {
		dtos[i] = toAdjustmentDTO(a)
	}
	return dtos
}

func toBalanceDTO(b generic.LeaveBalance) BalanceDTO {
	return BalanceDTO{
		FacultyID:   int64(b.Key.FacultyID),
		LeaveTypeID: int64(b.Key.LeaveTypeID),
		Year:        int(b.Key.Year),
		Balance:     b.Balance,
		Reserved:    b.Reserved,
		Available:   b.Available(),
	}
}

func toBalanceViewDTO(v timeoff.BalanceView) BalanceDTO {
	dto := toBalanceDTO(v.LeaveBalance)
	dto.LeaveTypeCode = v.LeaveTypeCode
	dto.LeaveTypeName = v.LeaveTypeName
	return dto
}

func toPendingDTO(v timeoff.PendingView) PendingDTO {
	return PendingDTO{
		ApplicationDTO:        toApplicationDTO(v.LeaveApplication),
		FacultyName:           v.FacultyName,
		LeaveTypeCode:         v.LeaveTypeCode,
		UnresolvedAdjustments: v.UnresolvedAdjustments,
	}
}

func toLeaveTypeDTO(lt generic.LeaveType) LeaveTypeDTO {
	return LeaveTypeDTO{
		ID:                         int64(lt.ID),
		Code:                       lt.Code,
		Name:                       lt.Name,
		Categories:                 lt.Categories,
		UnavailableDuringProbation: lt.Eligibility.UnavailableDuringProbation,
		ProbationMonths:            lt.Eligibility.ProbationMonths,
		MinServiceMonths:           lt.Eligibility.MinServiceMonths,
		Gender:                     lt.Eligibility.Gender,
		AccrualFrequency:           string(lt.Accrual.Frequency),
		AccrualRate:                lt.Accrual.Rate,
		MaxBalance:                 lt.Accrual.MaxBalance,
		CarryForward:               lt.CarryForward.Enabled,
		CarryForwardCap:            lt.CarryForward.Cap,
	}
}

func toBatchRunDTO(run generic.BatchRun) BatchRunDTO {
	failures := run.Failures
	if failures == nil {
		failures = []generic.RowFailure{}
	}
	return BatchRunDTO{
		ID:          run.ID,
		Kind:        string(run.Kind),
		Year:        int(run.Year),
		PeriodKey:   run.PeriodKey,
		Processed:   run.Processed,
		Skipped:     run.Skipped,
		Failures:    failures,
		StartedAt:   formatTimestamp(run.StartedAt),
		CompletedAt: formatTimestamp(run.CompletedAt),
	}
}

func toAccrualDTO(e generic.AccrualEntry) AccrualDTO {
	return AccrualDTO{
		LeaveTypeID: int64(e.LeaveTypeID),
		Year:        int(e.Year),
		Kind:        string(e.Kind),
		PeriodKey:   e.PeriodKey,
		Amount:      e.Amount,
		AccrualDate: e.AccrualDate.String(),
	}
}

func toAuditEntryDTO(e generic.AuditEntry) AuditEntryDTO {
	return AuditEntryDTO{
		ID:          e.ID,
		Timestamp:   formatTimestamp(e.Timestamp),
		ActorID:     int64(e.ActorID),
		ActorRole:   e.ActorRole,
		Action:      string(e.Action),
		FacultyID:   int64(e.FacultyID),
		LeaveTypeID: int64(e.LeaveTypeID),
		Year:        int(e.Year),
		Reference:   e.Reference,
		Reason:      e.Reason,
		Before:      e.Before,
		After:       e.After,
	}
}
