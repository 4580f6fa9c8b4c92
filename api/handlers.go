/*
handlers.go - HTTP API handlers for the leave engine

PURPOSE:
  Exposes the leave engine via REST API. Handles HTTP request/response,
  JSON serialization, and delegates to timeoff.Engine. No balance
  arithmetic happens here.

ENDPOINTS:
  Faculty:
    GET    /api/leave/types                      Leave type catalog
    GET    /api/leave/balances?year=             Caller's balances
    POST   /api/leave/applications               Apply (reserve)
    GET    /api/leave/applications/mine          Caller's applications
    GET    /api/leave/applications/{id}          One application (owner or reviewer)
    DELETE /api/leave/applications/{id}          Withdraw (owner, PENDING only)
    GET    /api/leave/adjustments/mine?status=   Classes the caller was asked to cover
    POST   /api/leave/adjustments/{id}/confirm   Confirm or decline coverage

  Reviewers (hod, admin):
    GET    /api/admin/leave/pending              Review queue
    POST   /api/admin/leave/applications/{id}/review
    GET    /api/admin/leave/faculty/{id}/days-off?from=&to=
    GET    /api/admin/leave/faculty/{id}/on-leave?date=

  Admin:
    POST   /api/admin/leave/accrual/monthly      {year, month}
    POST   /api/admin/leave/accrual/yearly       {year}
    POST   /api/admin/leave/carry-forward        {from_year}
    PUT    /api/admin/leave/balances             Override with reason
    GET    /api/admin/leave/batch-runs?limit=
    GET    /api/admin/leave/faculty/{id}/accruals
    GET    /api/admin/leave/audit?limit=         Recent audit stream entries

ERROR HANDLING:
  - 201/200: success
  - 422: policy rejection, body {code, message}
  - 400: validation errors, invalid input
  - 401: missing identity
  - 403: forbidden (not the owner, not the named alternate, wrong role)
  - 404: resource not found
  - 409: state conflict (already reviewed, already answered)
  - 500: integrity faults and internal errors

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
*/
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"reflect"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/kishoreafk/Nit-Faculty-Managment-sub000/generic"
	"github.com/kishoreafk/Nit-Faculty-Managment-sub000/store/sqlite"
	"github.com/kishoreafk/Nit-Faculty-Managment-sub000/timeoff"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// AuditReader is the read side of an audit sink that keeps entries.
type AuditReader interface {
	Recent(ctx context.Context, n int64) ([]generic.AuditEntry, error)
}

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Engine *timeoff.Engine
	Store  *sqlite.Store
	Logger zerolog.Logger

	// Audit is nil when no stream is configured.
	Audit AuditReader

	validate *validator.Validate

	// Track currently loaded scenario
	mu              sync.Mutex
	currentScenario string
}

// NewHandler creates a new handler. engine.Store must be store.
func NewHandler(engine *timeoff.Engine, store *sqlite.Store, logger zerolog.Logger) *Handler {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return &Handler{
		Engine:   engine,
		Store:    store,
		Logger:   logger.With().Str("component", "api").Logger(),
		validate: v,
	}
}

func (h *Handler) now() time.Time {
	if h.Engine.Clock != nil {
		return h.Engine.Clock()
	}
	return time.Now()
}

// Health pings the database.
// GET /healthz
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := h.Store.Ping(ctx); err != nil {
		writeError(w, http.StatusServiceUnavailable, "Database unavailable", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// =============================================================================
// CATALOG AND BALANCES
// =============================================================================

// ListLeaveTypes returns the catalog.
// GET /api/leave/types
func (h *Handler) ListLeaveTypes(w http.ResponseWriter, r *http.Request) {
	types, err := h.Store.ListLeaveTypes(r.Context())
	if err != nil {
		h.writeEngineError(w, err)
		return
	}
	dtos := make([]LeaveTypeDTO, len(types))
	for i, lt := range types {
		dtos[i] = toLeaveTypeDTO(lt)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// MyBalances returns the caller's balance rows for a year (default: current).
// GET /api/leave/balances?year=2025
func (h *Handler) MyBalances(w http.ResponseWriter, r *http.Request) {
	who := identityFrom(r.Context())

	year := generic.FiscalYear(h.now().Year())
	if raw := r.URL.Query().Get("year"); raw != "" {
		y, err := strconv.Atoi(raw)
		if err != nil || y <= 0 {
			writeError(w, http.StatusBadRequest, "Invalid year", err)
			return
		}
		year = generic.FiscalYear(y)
	}

	views, err := h.Engine.Balances(r.Context(), who.ID, year)
	if err != nil {
		h.writeEngineError(w, err)
		return
	}
	dtos := make([]BalanceDTO, len(views))
	for i, v := range views {
		dtos[i] = toBalanceViewDTO(v)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// APPLICATIONS
// =============================================================================

// Apply reserves days for a new application. The applicant is the caller.
// POST /api/leave/applications
func (h *Handler) Apply(w http.ResponseWriter, r *http.Request) {
	who := identityFrom(r.Context())

	var req ApplyRequest
	if !h.decode(w, r, &req) {
		return
	}

	start, err := generic.ParseDate(req.StartDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid start_date", err)
		return
	}
	end, err := generic.ParseDate(req.EndDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid end_date", err)
		return
	}

	in := timeoff.ApplyInput{
		FacultyID:    who.ID,
		LeaveTypeID:  generic.LeaveTypeID(req.LeaveTypeID),
		Year:         generic.FiscalYear(req.Year),
		StartDate:    start,
		EndDate:      end,
		TotalDays:    req.TotalDays,
		Category:     strings.TrimSpace(req.Category),
		IsDuringExam: req.IsDuringExam,
		Contact:      strings.TrimSpace(req.Contact),
		Remarks:      strings.TrimSpace(req.Remarks),
	}
	if in.Year == 0 {
		in.Year = start.FiscalYear()
	}
	for _, a := range req.Adjustments {
		day, err := generic.ParseDate(a.Date)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid adjustment_date", err)
			return
		}
		in.Adjustments = append(in.Adjustments, timeoff.AdjustmentInput{
			AdjustmentDate:     day,
			Period:             a.Period,
			SubjectCode:        a.SubjectCode,
			ClassSection:       a.ClassSection,
			RoomNo:             a.RoomNo,
			AlternateFacultyID: generic.FacultyID(a.AlternateFacultyID),
		})
	}

	res, err := h.Engine.Apply(r.Context(), in)
	if err != nil {
		h.writeEngineError(w, err)
		return
	}
	if !res.Succeeded() {
		writeJSON(w, http.StatusUnprocessableEntity, RejectionResponse{
			Code:    res.Code,
			Message: rejectionMessage(res.Code),
		})
		return
	}

	writeJSON(w, http.StatusCreated, ApplyResponse{
		Code:          res.Code,
		ApplicationID: int64(res.ApplicationID),
		Available:     res.Available,
	})
}

// MyApplications lists the caller's applications, withdrawn ones included.
// GET /api/leave/applications/mine
func (h *Handler) MyApplications(w http.ResponseWriter, r *http.Request) {
	who := identityFrom(r.Context())

	apps, err := h.Store.ListApplicationsByFaculty(r.Context(), who.ID)
	if err != nil {
		h.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toApplicationDTOs(apps))
}

// GetApplication returns one application with its adjustments.
// Visible to the applicant and to reviewers.
// GET /api/leave/applications/{id}
func (h *Handler) GetApplication(w http.ResponseWriter, r *http.Request) {
	who := identityFrom(r.Context())
	id, ok := idParam(w, r)
	if !ok {
		return
	}

	app, err := h.Store.GetApplication(r.Context(), generic.ApplicationID(id))
	if err != nil {
		h.writeEngineError(w, err)
		return
	}
	if app.FacultyID != who.ID && !who.isReviewer() {
		writeError(w, http.StatusForbidden, "Not your application", nil)
		return
	}

	adjs, err := h.Store.ListAdjustments(r.Context(), app.ID)
	if err != nil {
		h.writeEngineError(w, err)
		return
	}
	dto := toApplicationDTO(*app)
	dto.Adjustments = toAdjustmentDTOs(adjs)
	writeJSON(w, http.StatusOK, dto)
}

// Withdraw cancels a PENDING application of the caller.
// DELETE /api/leave/applications/{id}
func (h *Handler) Withdraw(w http.ResponseWriter, r *http.Request) {
	who := identityFrom(r.Context())
	id, ok := idParam(w, r)
	if !ok {
		return
	}

	if err := h.Engine.Withdraw(r.Context(), generic.ApplicationID(id), who.ID); err != nil {
		h.writeEngineError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// ADJUSTMENTS
// =============================================================================

// MyAdjustments lists coverage requests naming the caller.
// GET /api/leave/adjustments/mine?status=PENDING
func (h *Handler) MyAdjustments(w http.ResponseWriter, r *http.Request) {
	who := identityFrom(r.Context())

	var status generic.AdjustmentStatus
	if raw := r.URL.Query().Get("status"); raw != "" {
		s, err := generic.ParseAdjustmentStatus(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid status", err)
			return
		}
		status = s
	}

	adjs, err := h.Store.ListAdjustmentsByAlternate(r.Context(), who.ID, status)
	if err != nil {
		h.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toAdjustmentDTOs(adjs))
}

// ConfirmAdjustment records the caller's answer as the named alternate.
// POST /api/leave/adjustments/{id}/confirm
func (h *Handler) ConfirmAdjustment(w http.ResponseWriter, r *http.Request) {
	who := identityFrom(r.Context())
	id, ok := idParam(w, r)
	if !ok {
		return
	}

	var req ConfirmAdjustmentRequest
	if !h.decode(w, r, &req) {
		return
	}
	decision, err := generic.ParseAdjustmentStatus(req.Decision)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid decision", err)
		return
	}

	adj, err := h.Engine.ConfirmAdjustment(r.Context(), timeoff.ConfirmInput{
		AdjustmentID: generic.AdjustmentID(id),
		AlternateID:  who.ID,
		Decision:     decision,
		Remarks:      req.Remarks,
	})
	if err != nil {
		h.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toAdjustmentDTO(adj))
}

// =============================================================================
// REVIEW
// =============================================================================

// PendingQueue lists applications awaiting review.
// GET /api/admin/leave/pending
func (h *Handler) PendingQueue(w http.ResponseWriter, r *http.Request) {
	views, err := h.Engine.PendingQueue(r.Context())
	if err != nil {
		h.writeEngineError(w, err)
		return
	}
	dtos := make([]PendingDTO, len(views))
	for i, v := range views {
		dtos[i] = toPendingDTO(v)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// Review approves or rejects a PENDING application.
// POST /api/admin/leave/applications/{id}/review
func (h *Handler) Review(w http.ResponseWriter, r *http.Request) {
	who := identityFrom(r.Context())
	id, ok := idParam(w, r)
	if !ok {
		return
	}

	var req ReviewRequest
	if !h.decode(w, r, &req) {
		return
	}
	decision, err := generic.ParseApplicationStatus(req.Decision)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid decision", err)
		return
	}

	res, err := h.Engine.Review(r.Context(), timeoff.ReviewInput{
		ApplicationID: generic.ApplicationID(id),
		ReviewerID:    generic.ActorID(who.ID),
		ReviewerRole:  who.Role,
		Decision:      decision,
		Reason:        req.Reason,
	})
	if err != nil {
		h.writeEngineError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, ReviewResponse{
		Application:           toApplicationDTO(res.Application),
		Balance:               toBalanceDTO(res.Balance),
		UnresolvedAdjustments: res.UnresolvedAdjustments,
	})
}

// =============================================================================
// ADMIN: BATCHES AND OVERRIDES
// =============================================================================

// RunMonthlyAccrual credits monthly leave types for one month.
// POST /api/admin/leave/accrual/monthly
func (h *Handler) RunMonthlyAccrual(w http.ResponseWriter, r *http.Request) {
	var req MonthlyAccrualRequest
	if !h.decode(w, r, &req) {
		return
	}
	report, err := h.Engine.RunMonthlyAccrual(r.Context(), generic.FiscalYear(req.Year), time.Month(req.Month))
	h.writeBatch(w, report, err)
}

// RunYearlyAccrual credits yearly leave types.
// POST /api/admin/leave/accrual/yearly
func (h *Handler) RunYearlyAccrual(w http.ResponseWriter, r *http.Request) {
	var req YearlyAccrualRequest
	if !h.decode(w, r, &req) {
		return
	}
	report, err := h.Engine.RunYearlyAccrual(r.Context(), generic.FiscalYear(req.Year))
	h.writeBatch(w, report, err)
}

// RunCarryForward moves unused days of from_year into the next year.
// POST /api/admin/leave/carry-forward
func (h *Handler) RunCarryForward(w http.ResponseWriter, r *http.Request) {
	var req CarryForwardRequest
	if !h.decode(w, r, &req) {
		return
	}
	report, err := h.Engine.RunCarryForward(r.Context(), generic.FiscalYear(req.FromYear))
	h.writeBatch(w, report, err)
}

func (h *Handler) writeBatch(w http.ResponseWriter, report timeoff.BatchReport, err error) {
	if err != nil {
		h.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toBatchRunDTO(report))
}

// OverrideBalance sets a balance row with a mandatory reason.
// PUT /api/admin/leave/balances
func (h *Handler) OverrideBalance(w http.ResponseWriter, r *http.Request) {
	who := identityFrom(r.Context())

	var req OverrideRequest
	if !h.decodeWith(w, r, &req, func() { req.Reason = strings.TrimSpace(req.Reason) }) {
		return
	}
	if req.NewBalance.IsNegative() {
		writeError(w, http.StatusBadRequest, "new_balance must not be negative", nil)
		return
	}

	bal, err := h.Engine.OverrideBalance(r.Context(), timeoff.OverrideInput{
		FacultyID:   generic.FacultyID(req.FacultyID),
		LeaveTypeID: generic.LeaveTypeID(req.LeaveTypeID),
		Year:        generic.FiscalYear(req.Year),
		NewBalance:  req.NewBalance,
		Reason:      req.Reason,
		ActorID:     generic.ActorID(who.ID),
	})
	if err != nil {
		h.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toBalanceDTO(bal))
}

// ListBatchRuns returns recent batch runs, newest first.
// GET /api/admin/leave/batch-runs?limit=20
func (h *Handler) ListBatchRuns(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "Invalid limit", err)
			return
		}
		limit = n
	}

	runs, err := h.Store.ListBatchRuns(r.Context(), limit)
	if err != nil {
		h.writeEngineError(w, err)
		return
	}
	dtos := make([]BatchRunDTO, len(runs))
	for i, run := range runs {
		dtos[i] = toBatchRunDTO(run)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// ListAccruals returns a faculty member's accrual history.
// GET /api/admin/leave/faculty/{id}/accruals
func (h *Handler) ListAccruals(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	entries, err := h.Store.ListAccruals(r.Context(), generic.FacultyID(id))
	if err != nil {
		h.writeEngineError(w, err)
		return
	}
	dtos := make([]AccrualDTO, len(entries))
	for i, e := range entries {
		dtos[i] = toAccrualDTO(e)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// DaysOff lists a faculty member's live applications intersecting a window.
// GET /api/admin/leave/faculty/{id}/days-off?from=2025-06-01&to=2025-06-30
func (h *Handler) DaysOff(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	from, err := generic.ParseDate(r.URL.Query().Get("from"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid from", err)
		return
	}
	to, err := generic.ParseDate(r.URL.Query().Get("to"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid to", err)
		return
	}

	apps, err := h.Engine.DaysOff(r.Context(), generic.FacultyID(id), from, to)
	if err != nil {
		h.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toApplicationDTOs(apps))
}

// OnLeave reports whether a faculty member is away on a date (default: today).
// GET /api/admin/leave/faculty/{id}/on-leave?date=2025-06-10
func (h *Handler) OnLeave(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	day := generic.DateOf(h.now())
	if raw := r.URL.Query().Get("date"); raw != "" {
		d, err := generic.ParseDate(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid date", err)
			return
		}
		day = d
	}

	away, err := h.Engine.IsOnLeave(r.Context(), generic.FacultyID(id), day)
	if err != nil {
		h.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, OnLeaveDTO{FacultyID: id, Date: day.String(), OnLeave: away})
}

// RecentAudit returns the newest audit entries from the stream.
// GET /api/admin/leave/audit?limit=50
func (h *Handler) RecentAudit(w http.ResponseWriter, r *http.Request) {
	if h.Audit == nil {
		writeError(w, http.StatusNotFound, "Audit stream not configured", nil)
		return
	}
	limit := int64(50)
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "Invalid limit", err)
			return
		}
		limit = n
	}

	entries, err := h.Audit.Recent(r.Context(), limit)
	if err != nil {
		h.writeEngineError(w, err)
		return
	}
	dtos := make([]AuditEntryDTO, len(entries))
	for i, e := range entries {
		dtos[i] = toAuditEntryDTO(e)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// HELPERS
// =============================================================================

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	return h.decodeWith(w, r, dst, nil)
}

// decodeWith parses the body, runs normalize, then validates.
func (h *Handler) decodeWith(w http.ResponseWriter, r *http.Request, dst any, normalize func()) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return false
	}
	if normalize != nil {
		normalize()
	}
	if err := h.validate.Struct(dst); err != nil {
		writeValidationError(w, err)
		return false
	}
	return true
}

func idParam(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "Invalid id", err)
		return 0, false
	}
	return id, true
}

// writeEngineError maps engine and store errors to HTTP statuses.
func (h *Handler) writeEngineError(w http.ResponseWriter, err error) {
	switch {
	case generic.IsClientError(err):
		writeError(w, http.StatusBadRequest, "Invalid request", err)
	case generic.IsForbidden(err):
		writeError(w, http.StatusForbidden, "Forbidden", err)
	case generic.IsNotFound(err):
		writeError(w, http.StatusNotFound, "Not found", err)
	case generic.IsConflict(err):
		writeError(w, http.StatusConflict, "Already processed", err)
	case generic.IsIntegrity(err):
		h.Logger.Error().Err(err).Bool("integrity", true).Msg("integrity fault surfaced to client")
		writeError(w, http.StatusInternalServerError, "Balance integrity fault", nil)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		writeError(w, http.StatusServiceUnavailable, "Request cancelled", err)
	default:
		h.Logger.Error().Err(err).Msg("request failed")
		writeError(w, http.StatusInternalServerError, "Internal error", nil)
	}
}

func writeValidationError(w http.ResponseWriter, err error) {
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		writeError(w, http.StatusBadRequest, "Invalid input", err)
		return
	}
	fields := make(map[string]string, len(ve))
	for _, fe := range ve {
		fields[fe.Field()] = fe.Tag()
	}
	writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "Validation failed", Fields: fields})
}

func rejectionMessage(code generic.ResultCode) string {
	switch code {
	case generic.ResultInsufficientBalance:
		return "Not enough available balance for this request"
	case generic.ResultProbationPeriod:
		return "This leave type is not available during probation"
	case generic.ResultMinServiceNotMet:
		return "Minimum service period for this leave type not met"
	case generic.ResultGenderNotEligible:
		return "This leave type is restricted to another gender"
	case generic.ResultOverlappingLeave:
		return "Dates overlap an existing pending or approved application"
	default:
		return string(code)
	}
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}
