/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. RequestID:  Unique ID per request for tracing
  2. RealIP:     Client address behind a proxy
  3. Logger:     zerolog request log (method, path, status, duration, id)
  4. Recoverer:  Panic recovery (500 instead of crash)
  5. CORS:       Cross-origin requests for the frontend

IDENTITY:
  Authentication happens upstream (gateway or session service). The caller
  arrives here as two headers:
    X-User-ID    faculty id (positive integer)
    X-User-Role  faculty | hod | admin   (default faculty)
  Missing or malformed identity is a 401. Role checks are per route group.

ROUTE GROUPS:
  /healthz                      Liveness + database ping
  /api/leave/*                  Faculty self-service
  /api/admin/leave/*            Reviewers (hod, admin) and admin-only batches
  /api/scenarios/*              Demo data (disabled in production)

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	"github.com/kishoreafk/Nit-Faculty-Managment-sub000/generic"
	"github.com/kishoreafk/Nit-Faculty-Managment-sub000/timeoff"
)

// RouterOptions tune the router for the environment.
type RouterOptions struct {
	AllowedOrigins  []string
	EnableScenarios bool
}

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler, opts RouterOptions) *chi.Mux {
	r := chi.NewRouter()

	origins := opts.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"http://localhost:5173", "http://localhost:8080"}
	}

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(h.Logger))
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", headerUserID, headerUserRole},
		AllowCredentials: true,
	}))

	r.Get("/healthz", h.Health)

	r.Route("/api", func(r chi.Router) {
		r.Use(identify)

		// Faculty self-service
		r.Route("/leave", func(r chi.Router) {
			r.Get("/types", h.ListLeaveTypes)
			r.Get("/balances", h.MyBalances)

			r.Route("/applications", func(r chi.Router) {
				r.Post("/", h.Apply)
				r.Get("/mine", h.MyApplications)
				r.Get("/{id}", h.GetApplication)
				r.Delete("/{id}", h.Withdraw)
			})

			r.Route("/adjustments", func(r chi.Router) {
				r.Get("/mine", h.MyAdjustments)
				r.Post("/{id}/confirm", h.ConfirmAdjustment)
			})
		})

		// Reviewers and administrators
		r.Route("/admin/leave", func(r chi.Router) {
			r.Group(func(r chi.Router) {
				r.Use(requireRole(timeoff.RoleHOD, timeoff.RoleAdmin))
				r.Get("/pending", h.PendingQueue)
				r.Post("/applications/{id}/review", h.Review)
				r.Get("/faculty/{id}/days-off", h.DaysOff)
				r.Get("/faculty/{id}/on-leave", h.OnLeave)
			})

			r.Group(func(r chi.Router) {
				r.Use(requireRole(timeoff.RoleAdmin))
				r.Post("/accrual/monthly", h.RunMonthlyAccrual)
				r.Post("/accrual/yearly", h.RunYearlyAccrual)
				r.Post("/carry-forward", h.RunCarryForward)
				r.Put("/balances", h.OverrideBalance)
				r.Get("/batch-runs", h.ListBatchRuns)
				r.Get("/faculty/{id}/accruals", h.ListAccruals)
				r.Get("/audit", h.RecentAudit)
			})
		})

		if opts.EnableScenarios {
			r.Route("/scenarios", func(r chi.Router) {
				r.Use(requireRole(timeoff.RoleAdmin))
				r.Get("/", h.ListScenarios)
				r.Get("/current", h.GetCurrentScenario)
				r.Post("/load", h.LoadScenario)
			})
		}
	})

	return r
}

// =============================================================================
// IDENTITY
// =============================================================================

const (
	headerUserID   = "X-User-ID"
	headerUserRole = "X-User-Role"
)

// Identity is the authenticated caller.
type Identity struct {
	ID   generic.FacultyID
	Role string
}

func (i Identity) isReviewer() bool {
	return i.Role == timeoff.RoleHOD || i.Role == timeoff.RoleAdmin
}

type identityKey struct{}

// identify resolves the caller from the gateway headers.
func identify(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := strings.TrimSpace(r.Header.Get(headerUserID))
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			writeError(w, http.StatusUnauthorized, "Missing or invalid "+headerUserID, nil)
			return
		}

		role := strings.ToLower(strings.TrimSpace(r.Header.Get(headerUserRole)))
		switch role {
		case "":
			role = timeoff.RoleFaculty
		case timeoff.RoleFaculty, timeoff.RoleHOD, timeoff.RoleAdmin:
		default:
			writeError(w, http.StatusUnauthorized, "Unknown role "+role, nil)
			return
		}

		ctx := context.WithValue(r.Context(), identityKey{}, Identity{ID: generic.FacultyID(id), Role: role})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// requireRole rejects callers whose role is not listed.
func requireRole(roles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			who := identityFrom(r.Context())
			for _, role := range roles {
				if who.Role == role {
					next.ServeHTTP(w, r)
					return
				}
			}
			writeError(w, http.StatusForbidden, "Insufficient role", nil)
		})
	}
}

func identityFrom(ctx context.Context) Identity {
	who, _ := ctx.Value(identityKey{}).(Identity)
	return who
}

// =============================================================================
// REQUEST LOGGING
// =============================================================================

func requestLogger(logger zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			defer func() {
				status := ww.Status()
				if status == 0 {
					status = http.StatusOK
				}
				ev := logger.Info()
				if status >= http.StatusInternalServerError {
					ev = logger.Error()
				}
				ev.Str("method", r.Method).
					Str("path", r.URL.Path).
					Int("status", status).
					Int("bytes", ww.BytesWritten()).
					Dur("duration", time.Since(start)).
					Str("request_id", middleware.GetReqID(r.Context())).
					Msg("request")
			}()

			next.ServeHTTP(ww, r)
		})
	}
}
