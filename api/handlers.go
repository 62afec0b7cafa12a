/*
handlers.go - HTTP handlers over the entitlement engine

PURPOSE:
  Lets a host web application call the library operations over REST.
  Handlers decode and validate JSON, call the staff and request services
  and map domain errors to status codes. No business rule lives here.

ENDPOINTS:
  Staff:
    GET    /api/staff                   List profiles
    POST   /api/staff                   Create profile
    GET    /api/staff/{id}              Get profile
    PUT    /api/staff/{id}              Update profile
    PUT    /api/staff/{id}/supervisor   Set or clear supervisor
    GET    /api/staff/{id}/summary      Balances (?year=&month=)
    GET    /api/staff/{id}/ledgers      Ledgers of one staff member
    PUT    /api/staff/{id}/ledgers      Override allowance or carry-over

  Roles:
    GET    /api/roles                   List roles
    POST   /api/roles                   Create role

  Requests:
    GET    /api/leave                   List (?staff_id=&status=&leave_type=&year=)
    POST   /api/leave                   Submit or edit
    GET    /api/leave/{id}              Get
    POST   /api/leave/{id}/review       Approve or reject
    GET    /api/overtime                List (?staff_id=&status=&year=)
    POST   /api/overtime                Submit or edit
    GET    /api/overtime/{id}           Get
    POST   /api/overtime/{id}/review    Approve or reject

  Calendar and admin:
    GET    /api/free-days               Free days (?year=)
    POST   /api/free-days/bootstrap     Materialize the configured template
    POST   /api/admin/open-year         Create missing ledgers for a year

ERROR HANDLING:
  - 400: validation errors (field map in "fields"), malformed input
  - 404: unknown staff, role, ledger or request
  - 409: duplicate ledger, free day or role
  - 500: everything else

SECURITY NOTE:
  No authentication. The host application is expected to guard the mount.

SEE ALSO:
  - dto.go: request/response bodies
  - server.go: router and middleware
*/
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/warp/hr-engine/calendar"
	"github.com/warp/hr-engine/leave"
	"github.com/warp/hr-engine/staff"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Staff    *staff.Service
	Engine   *leave.Engine
	Requests *leave.RequestService
	Store    leave.Store

	// FreeDayTemplate feeds POST /api/free-days/bootstrap.
	FreeDayTemplate []calendar.RecurringDay
	// DefaultHour places bare leave dates on the clock.
	DefaultHour int

	validate *validator.Validate
	log      *zap.Logger
	now      func() time.Time
}

// NewHandler builds a handler. The validator reports JSON field names.
func NewHandler(staffSvc *staff.Service, requests *leave.RequestService, log *zap.Logger) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{
		Staff:       staffSvc,
		Engine:      requests.Engine,
		Requests:    requests,
		Store:       requests.Store,
		DefaultHour: 7,
		validate:    newValidator(),
		log:         log,
		now:         time.Now,
	}
}

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// =============================================================================
// STAFF HANDLERS
// =============================================================================

// ListStaff returns all profiles.
func (h *Handler) ListStaff(w http.ResponseWriter, r *http.Request) {
	profiles, err := h.Staff.List(r.Context())
	if err != nil {
		h.writeDomainError(w, "Failed to list staff", err)
		return
	}
	writeJSON(w, http.StatusOK, profiles)
}

// CreateStaff stores a new profile.
func (h *Handler) CreateStaff(w http.ResponseWriter, r *http.Request) {
	p := staff.NewProfile("", "")
	if !h.decode(w, r, &p) {
		return
	}
	created, err := h.Staff.Create(r.Context(), p)
	if err != nil {
		h.writeDomainError(w, "Failed to create staff profile", err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

// GetStaff returns one profile.
func (h *Handler) GetStaff(w http.ResponseWriter, r *http.Request) {
	p, err := h.Staff.Get(r.Context(), staffID(r))
	if err != nil {
		h.writeDomainError(w, "Failed to get staff profile", err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// UpdateStaff replaces a profile. The path id wins over the body.
func (h *Handler) UpdateStaff(w http.ResponseWriter, r *http.Request) {
	var p staff.Profile
	if !h.decode(w, r, &p) {
		return
	}
	p.ID = staffID(r)
	updated, err := h.Staff.Update(r.Context(), p)
	if err != nil {
		h.writeDomainError(w, "Failed to update staff profile", err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

// SetSupervisor moves a profile in the supervisor tree.
func (h *Handler) SetSupervisor(w http.ResponseWriter, r *http.Request) {
	var req SupervisorRequest
	if !h.decode(w, r, &req) {
		return
	}
	p, err := h.Staff.AssignSupervisor(r.Context(), staffID(r), staff.ID(req.SupervisorID))
	if err != nil {
		h.writeDomainError(w, "Failed to assign supervisor", err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// GetSummary returns the balances of every category plus approved overtime.
func (h *Handler) GetSummary(w http.ResponseWriter, r *http.Request) {
	now := h.now().In(h.Engine.Rules().Location())
	year, ok := intQuery(w, r, "year", now.Year())
	if !ok {
		return
	}
	month, ok := intQuery(w, r, "month", int(now.Month()))
	if !ok {
		return
	}

	id := staffID(r)
	entitlements, err := h.Engine.Summary(r.Context(), id, year, month)
	if err != nil {
		h.writeDomainError(w, "Failed to compute balances", err)
		return
	}
	overtime, err := h.Engine.ApprovedOvertime(r.Context(), id, year)
	if err != nil {
		h.writeDomainError(w, "Failed to sum overtime", err)
		return
	}
	writeJSON(w, http.StatusOK, SummaryDTO{
		StaffID:         id,
		Year:            year,
		Month:           leave.ClampMonth(month),
		Entitlements:    entitlements,
		OvertimeMinutes: int64(overtime / time.Minute),
	})
}

// ListLedgers returns the ledgers of one staff member.
func (h *Handler) ListLedgers(w http.ResponseWriter, r *http.Request) {
	id := staffID(r)
	if _, err := h.Staff.Get(r.Context(), id); err != nil {
		h.writeDomainError(w, "Failed to list ledgers", err)
		return
	}
	ledgers, err := h.Store.ListLedgers(r.Context(), id)
	if err != nil {
		h.writeDomainError(w, "Failed to list ledgers", err)
		return
	}
	if ledgers == nil {
		ledgers = []leave.AnnualLeave{}
	}
	writeJSON(w, http.StatusOK, ledgers)
}

// OverrideLedger adjusts a ledger by hand, creating it first when missing.
func (h *Handler) OverrideLedger(w http.ResponseWriter, r *http.Request) {
	var req LedgerOverrideRequest
	if !h.decode(w, r, &req) {
		return
	}
	l, err := h.Engine.OverrideLedger(r.Context(), staffID(r), req.Year, leave.Category(req.Category), req.AllowedDays, req.CarriedOverDays)
	if err != nil {
		h.writeDomainError(w, "Failed to override ledger", err)
		return
	}
	writeJSON(w, http.StatusOK, l)
}

// =============================================================================
// ROLE HANDLERS
// =============================================================================

func (h *Handler) ListRoles(w http.ResponseWriter, r *http.Request) {
	roles, err := h.Staff.ListRoles(r.Context())
	if err != nil {
		h.writeDomainError(w, "Failed to list roles", err)
		return
	}
	writeJSON(w, http.StatusOK, roles)
}

func (h *Handler) CreateRole(w http.ResponseWriter, r *http.Request) {
	var role staff.Role
	if !h.decode(w, r, &role) {
		return
	}
	created, err := h.Staff.CreateRole(r.Context(), role)
	if err != nil {
		h.writeDomainError(w, "Failed to create role", err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

// =============================================================================
// LEAVE HANDLERS
// =============================================================================

// ListLeave filters leave requests. year selects requests touching that
// year in the configured zone.
func (h *Handler) ListLeave(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := leave.LeaveFilter{
		StaffID:  staff.ID(q.Get("staff_id")),
		Category: leave.Category(q.Get("leave_type")),
		Status:   leave.Status(q.Get("status")),
	}
	year, ok := intQuery(w, r, "year", 0)
	if !ok {
		return
	}
	if year != 0 {
		loc := h.Engine.Rules().Location()
		f.From = calendar.StartOfYear(year, loc)
		f.To = calendar.StartOfYear(year+1, loc)
	}

	reqs, err := h.Store.LeaveRequests(r.Context(), f)
	if err != nil {
		h.writeDomainError(w, "Failed to list leave requests", err)
		return
	}
	if reqs == nil {
		reqs = []leave.LeaveRequest{}
	}
	writeJSON(w, http.StatusOK, reqs)
}

// SubmitLeave creates or edits a leave request.
func (h *Handler) SubmitLeave(w http.ResponseWriter, r *http.Request) {
	var req LeaveSubmitRequest
	if !h.decode(w, r, &req) {
		return
	}
	lr, err := req.toDomain(h.Engine.Rules().Location(), h.DefaultHour)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid leave request", err)
		return
	}
	saved, err := h.Requests.SubmitLeave(r.Context(), lr)
	if err != nil {
		h.writeDomainError(w, "Leave request rejected", err)
		return
	}
	writeJSON(w, http.StatusCreated, saved)
}

func (h *Handler) GetLeave(w http.ResponseWriter, r *http.Request) {
	lr, err := h.Store.GetLeaveRequest(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeDomainError(w, "Failed to get leave request", err)
		return
	}
	writeJSON(w, http.StatusOK, lr)
}

// ReviewLeave approves or rejects a pending leave request.
func (h *Handler) ReviewLeave(w http.ResponseWriter, r *http.Request) {
	var req ReviewRequest
	if !h.decode(w, r, &req) {
		return
	}
	lr, err := h.Requests.ReviewLeave(r.Context(), chi.URLParam(r, "id"), leave.Status(req.Status), req.Comments)
	if err != nil {
		h.writeDomainError(w, "Failed to review leave request", err)
		return
	}
	writeJSON(w, http.StatusOK, lr)
}

// =============================================================================
// OVERTIME HANDLERS
// =============================================================================

func (h *Handler) ListOverTime(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	year, ok := intQuery(w, r, "year", 0)
	if !ok {
		return
	}
	reqs, err := h.Store.OverTimeRequests(r.Context(), leave.OverTimeFilter{
		StaffID: staff.ID(q.Get("staff_id")),
		Status:  leave.Status(q.Get("status")),
		Year:    year,
	})
	if err != nil {
		h.writeDomainError(w, "Failed to list overtime requests", err)
		return
	}
	if reqs == nil {
		reqs = []leave.OverTimeRequest{}
	}
	writeJSON(w, http.StatusOK, reqs)
}

func (h *Handler) SubmitOverTime(w http.ResponseWriter, r *http.Request) {
	var req OverTimeSubmitRequest
	if !h.decode(w, r, &req) {
		return
	}
	ot, err := req.toDomain()
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid overtime request", err)
		return
	}
	saved, err := h.Requests.SubmitOverTime(r.Context(), ot)
	if err != nil {
		h.writeDomainError(w, "Overtime request rejected", err)
		return
	}
	writeJSON(w, http.StatusCreated, saved)
}

func (h *Handler) GetOverTime(w http.ResponseWriter, r *http.Request) {
	ot, err := h.Store.GetOverTimeRequest(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeDomainError(w, "Failed to get overtime request", err)
		return
	}
	writeJSON(w, http.StatusOK, ot)
}

func (h *Handler) ReviewOverTime(w http.ResponseWriter, r *http.Request) {
	var req ReviewRequest
	if !h.decode(w, r, &req) {
		return
	}
	ot, err := h.Requests.ReviewOverTime(r.Context(), chi.URLParam(r, "id"), leave.Status(req.Status), req.Comments)
	if err != nil {
		h.writeDomainError(w, "Failed to review overtime request", err)
		return
	}
	writeJSON(w, http.StatusOK, ot)
}

// =============================================================================
// FREE DAYS AND ADMIN
// =============================================================================

// ListFreeDays returns the free days of one year, the current one by default.
func (h *Handler) ListFreeDays(w http.ResponseWriter, r *http.Request) {
	year, ok := intQuery(w, r, "year", h.now().In(h.Engine.Rules().Location()).Year())
	if !ok {
		return
	}
	cal, err := h.Engine.Calendar(r.Context(), year, year)
	if err != nil {
		h.writeDomainError(w, "Failed to list free days", err)
		return
	}
	writeJSON(w, http.StatusOK, cal.FreeDays())
}

// BootstrapFreeDays stores the configured template for a run of years.
func (h *Handler) BootstrapFreeDays(w http.ResponseWriter, r *http.Request) {
	var req FreeDayBootstrapRequest
	if !h.decode(w, r, &req) {
		return
	}
	if len(h.FreeDayTemplate) == 0 {
		writeError(w, http.StatusBadRequest, "No free day template configured", nil)
		return
	}
	days, err := h.Requests.CreateFreeDays(r.Context(), h.FreeDayTemplate, req.StartYear, req.Years)
	if err != nil {
		h.writeDomainError(w, "Failed to create free days", err)
		return
	}
	writeJSON(w, http.StatusCreated, days)
}

// OpenYear creates the missing ledgers of a year.
func (h *Handler) OpenYear(w http.ResponseWriter, r *http.Request) {
	var req OpenYearRequest
	if !h.decode(w, r, &req) {
		return
	}
	created, err := h.Requests.OpenYear(r.Context(), req.Year)
	if err != nil {
		h.writeDomainError(w, "Failed to open year", err)
		return
	}
	h.log.Info("year opened", zap.Int("year", req.Year), zap.Int("created", created))
	writeJSON(w, http.StatusOK, OpenYearDTO{Year: req.Year, Created: created})
}

// =============================================================================
// HELPERS
// =============================================================================

func staffID(r *http.Request) staff.ID {
	return staff.ID(chi.URLParam(r, "id"))
}

// decode reads the body into dst and runs struct validation. It writes the
// 400 itself and reports false on failure.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return false
	}
	if err := h.validate.StructCtx(r.Context(), dst); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			fields := make(map[string][]string, len(verrs))
			for _, fe := range verrs {
				fields[fe.Field()] = append(fields[fe.Field()], fe.Tag())
			}
			writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "Invalid request body", Fields: fields})
			return false
		}
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return false
	}
	return true
}

func intQuery(w http.ResponseWriter, r *http.Request, key string, fallback int) (int, bool) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid "+key, err)
		return 0, false
	}
	return n, true
}

func (h *Handler) writeDomainError(w http.ResponseWriter, message string, err error) {
	var verr *leave.ValidationError
	switch {
	case errors.As(err, &verr):
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: message, Details: verr.Error(), Fields: verr.Fields})
	case leave.IsClientError(err):
		writeError(w, http.StatusBadRequest, message, err)
	case leave.IsNotFound(err):
		writeError(w, http.StatusNotFound, message, err)
	case leave.IsConflict(err):
		writeError(w, http.StatusConflict, message, err)
	default:
		h.log.Error(message, zap.Error(err))
		writeError(w, http.StatusInternalServerError, message, err)
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
