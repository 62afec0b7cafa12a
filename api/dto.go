/*
dto.go - Request and response bodies for the HTTP adapter

PURPOSE:
  Decouples the JSON contract from the domain types. Request bodies carry
  validator tags; handlers run them through validator/v10 before anything
  reaches the request service.

NAMING CONVENTION:
  - *Request: request bodies from clients
  - *DTO: response types returned to clients

TIMESTAMPS:
  Leave start and end accept RFC 3339 or a bare date (2006-01-02). A bare
  date is placed at the configured default hour in the configured zone.

SEE ALSO:
  - handlers.go: uses these types
  - leave/types.go: domain request types
*/
package api

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/warp/hr-engine/calendar"
	"github.com/warp/hr-engine/leave"
	"github.com/warp/hr-engine/staff"
)

// =============================================================================
// STAFF
// =============================================================================

// SupervisorRequest sets or clears a supervisor.
type SupervisorRequest struct {
	SupervisorID string `json:"supervisor_id"`
}

// =============================================================================
// LEAVE AND OVERTIME
// =============================================================================

// LeaveSubmitRequest creates or edits a leave request.
type LeaveSubmitRequest struct {
	ID       string `json:"id"`
	StaffID  string `json:"staff_id" validate:"required"`
	Category string `json:"leave_type" validate:"omitempty,oneof=REGULAR SICK"`
	Start    string `json:"start" validate:"required"`
	End      string `json:"end" validate:"required"`
	Status   string `json:"status" validate:"omitempty,oneof=PENDING APPROVED REJECTED"`
	Reason   string `json:"reason"`
	Comments string `json:"comments"`
}

// OverTimeSubmitRequest creates or edits an overtime request.
type OverTimeSubmitRequest struct {
	ID       string `json:"id"`
	StaffID  string `json:"staff_id" validate:"required"`
	Date     string `json:"date" validate:"required"`
	Start    string `json:"start" validate:"required"`
	End      string `json:"end" validate:"required"`
	Status   string `json:"status" validate:"omitempty,oneof=PENDING APPROVED REJECTED"`
	Reason   string `json:"reason"`
	Comments string `json:"comments"`
}

// ReviewRequest records a decision on a pending request.
type ReviewRequest struct {
	Status   string `json:"status" validate:"required,oneof=APPROVED REJECTED"`
	Comments string `json:"comments"`
}

// =============================================================================
// LEDGERS, FREE DAYS, ROLLOVER
// =============================================================================

// LedgerOverrideRequest replaces the allowance or carry-over of one ledger.
// Omitted amounts stay as they are.
type LedgerOverrideRequest struct {
	Year            int              `json:"year" validate:"required,gte=1900,lte=9999"`
	Category        string           `json:"leave_type" validate:"required,oneof=REGULAR SICK"`
	AllowedDays     *decimal.Decimal `json:"allowed_days"`
	CarriedOverDays *decimal.Decimal `json:"carried_over_days"`
}

// FreeDayBootstrapRequest materializes the configured template.
type FreeDayBootstrapRequest struct {
	StartYear int `json:"start_year" validate:"required,gte=1900,lte=9999"`
	Years     int `json:"years" validate:"omitempty,gte=1,lte=50"`
}

// OpenYearRequest opens ledgers for a year.
type OpenYearRequest struct {
	Year int `json:"year" validate:"required,gte=1900,lte=9999"`
}

// OpenYearDTO reports an OpenYear run.
type OpenYearDTO struct {
	Year    int `json:"year"`
	Created int `json:"created"`
}

// SummaryDTO is the balance view of one staff member.
type SummaryDTO struct {
	StaffID         staff.ID            `json:"staff_id"`
	Year            int                 `json:"year"`
	Month           int                 `json:"month"`
	Entitlements    []leave.Entitlement `json:"entitlements"`
	OvertimeMinutes int64               `json:"overtime_minutes"`
}

// ErrorResponse is the body of every non-2xx reply.
type ErrorResponse struct {
	Error   string              `json:"error"`
	Details string              `json:"details,omitempty"`
	Fields  map[string][]string `json:"fields,omitempty"`
}

// =============================================================================
// CONVERSIONS
// =============================================================================

func (r LeaveSubmitRequest) toDomain(loc *time.Location, defaultHour int) (leave.LeaveRequest, error) {
	start, err := parseMoment(r.Start, loc, defaultHour)
	if err != nil {
		return leave.LeaveRequest{}, fmt.Errorf("start: %w", err)
	}
	end, err := parseMoment(r.End, loc, defaultHour)
	if err != nil {
		return leave.LeaveRequest{}, fmt.Errorf("end: %w", err)
	}
	category := leave.Category(r.Category)
	if category == "" {
		category = leave.Regular
	}
	return leave.LeaveRequest{
		ID:       r.ID,
		StaffID:  staff.ID(r.StaffID),
		Category: category,
		Start:    start,
		End:      end,
		Status:   leave.Status(r.Status),
		Reason:   r.Reason,
		Comments: r.Comments,
	}, nil
}

func (r OverTimeSubmitRequest) toDomain() (leave.OverTimeRequest, error) {
	d, err := calendar.ParseDate(r.Date)
	if err != nil {
		return leave.OverTimeRequest{}, fmt.Errorf("date: %w", err)
	}
	start, err := calendar.ParseTimeOfDay(r.Start)
	if err != nil {
		return leave.OverTimeRequest{}, fmt.Errorf("start: %w", err)
	}
	end, err := calendar.ParseTimeOfDay(r.End)
	if err != nil {
		return leave.OverTimeRequest{}, fmt.Errorf("end: %w", err)
	}
	return leave.OverTimeRequest{
		ID:       r.ID,
		StaffID:  staff.ID(r.StaffID),
		Date:     d,
		Start:    start,
		End:      end,
		Status:   leave.Status(r.Status),
		Reason:   r.Reason,
		Comments: r.Comments,
	}, nil
}

// parseMoment reads RFC 3339, or a bare date at defaultHour in loc.
func parseMoment(s string, loc *time.Location, defaultHour int) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	d, err := calendar.ParseDate(s)
	if err != nil {
		return time.Time{}, fmt.Errorf("want RFC 3339 or YYYY-MM-DD, got %q", s)
	}
	return time.Date(d.Year, d.Month, d.Day, defaultHour, 0, 0, 0, loc), nil
}
