package leave

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/hr-engine/calendar"
	"github.com/warp/hr-engine/staff"
)

// =============================================================================
// CATEGORY - closed set of leave categories
// =============================================================================

// Category is a leave category.
type Category string

const (
	Regular Category = "REGULAR"
	Sick    Category = "SICK"
)

type categoryRule struct {
	allowance   func(staff.Profile) int
	carriesOver bool
	noun        string
}

var categoryRules = map[Category]categoryRule{
	Regular: {
		allowance:   func(p staff.Profile) int { return p.LeaveDays },
		carriesOver: true,
		noun:        "leave days",
	},
	Sick: {
		allowance:   func(p staff.Profile) int { return p.SickDays },
		carriesOver: false,
		noun:        "sick days",
	},
}

// Categories lists every category in a stable order.
func Categories() []Category { return []Category{Regular, Sick} }

// ParseCategory accepts the canonical names.
func ParseCategory(s string) (Category, error) {
	c := Category(s)
	if !c.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownCategory, s)
	}
	return c, nil
}

func (c Category) Valid() bool {
	_, ok := categoryRules[c]
	return ok
}

// CarriesOver reports whether unused days move into the next year.
func (c Category) CarriesOver() bool { return categoryRules[c].carriesOver }

// DefaultAllowance is the profile field the ledger copies for this category.
func (c Category) DefaultAllowance(p staff.Profile) decimal.Decimal {
	rule, ok := categoryRules[c]
	if !ok {
		return decimal.Zero
	}
	return decimal.NewFromInt(int64(rule.allowance(p)))
}

func (c Category) noun() string {
	if rule, ok := categoryRules[c]; ok {
		return rule.noun
	}
	return "days"
}

// =============================================================================
// STATUS
// =============================================================================

// Status is the review state of a request.
type Status string

const (
	Pending  Status = "PENDING"
	Approved Status = "APPROVED"
	Rejected Status = "REJECTED"
)

func (s Status) Valid() bool {
	switch s {
	case Pending, Approved, Rejected:
		return true
	}
	return false
}

// Display is the human form used in messages.
func (s Status) Display() string {
	switch s {
	case Pending:
		return "Pending"
	case Approved:
		return "Approved"
	case Rejected:
		return "Rejected"
	}
	return string(s)
}

// =============================================================================
// REQUESTS
// =============================================================================

// LeaveRequest asks for leave between two timestamps of the same year.
type LeaveRequest struct {
	ID       string    `json:"id"`
	StaffID  staff.ID  `json:"staff_id"`
	Category Category  `json:"leave_type"`
	Start    time.Time `json:"start"`
	End      time.Time `json:"end"`
	Status   Status    `json:"status"`
	Reason   string    `json:"reason"`
	Comments string    `json:"comments,omitempty"`

	// ReviewRequestedAt is stamped the first time reviewers are assigned.
	ReviewRequestedAt *time.Time `json:"review_requested_at,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

// OverTimeRequest asks for overtime on one date. No cross-midnight slots.
type OverTimeRequest struct {
	ID       string             `json:"id"`
	StaffID  staff.ID           `json:"staff_id"`
	Date     calendar.Date      `json:"date"`
	Start    calendar.TimeOfDay `json:"start"`
	End      calendar.TimeOfDay `json:"end"`
	Status   Status             `json:"status"`
	Reason   string             `json:"reason"`
	Comments string             `json:"comments,omitempty"`

	ReviewRequestedAt *time.Time `json:"review_requested_at,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

// Duration is the length of the slot.
func (o OverTimeRequest) Duration() time.Duration { return o.End.Sub(o.Start) }

// =============================================================================
// FILTERS
// =============================================================================

// LeaveFilter selects leave requests. Zero fields do not filter.
// From/To keep requests whose [Start, End] intersects [From, To).
type LeaveFilter struct {
	StaffID  staff.ID
	Category Category
	Status   Status
	From     time.Time
	To       time.Time
}

// Match applies the filter in memory.
func (f LeaveFilter) Match(r LeaveRequest) bool {
	if f.StaffID != "" && r.StaffID != f.StaffID {
		return false
	}
	if f.Category != "" && r.Category != f.Category {
		return false
	}
	if f.Status != "" && r.Status != f.Status {
		return false
	}
	if !f.To.IsZero() && !r.Start.Before(f.To) {
		return false
	}
	if !f.From.IsZero() && r.End.Before(f.From) {
		return false
	}
	return true
}

// OverTimeFilter selects overtime requests. Zero fields do not filter.
type OverTimeFilter struct {
	StaffID staff.ID
	Status  Status
	Date    calendar.Date
	Year    int
}

func (f OverTimeFilter) Match(r OverTimeRequest) bool {
	if f.StaffID != "" && r.StaffID != f.StaffID {
		return false
	}
	if f.Status != "" && r.Status != f.Status {
		return false
	}
	if !f.Date.IsZero() && r.Date != f.Date {
		return false
	}
	if f.Year != 0 && r.Date.Year != f.Year {
		return false
	}
	return true
}
