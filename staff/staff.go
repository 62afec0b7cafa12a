/*
Package staff holds employee profiles, roles and the supervisor tree.

PURPOSE:
  A Profile carries the default leave and sick allowances the entitlement
  ledger copies from, the overtime flag, employment dates and a link to the
  supervisor. Supervisors form a tree; a write that would create a loop is
  rejected before it reaches the store.

SEE ALSO:
  - hierarchy.go: tree checks
  - service.go: create, update, assign supervisor
  - leave/: entitlement ledger reading these profiles
*/
package staff

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/warp/hr-engine/calendar"
)

// Default allowances applied when a profile is created without one.
const (
	DefaultLeaveDays = 21
	DefaultSickDays  = 10
)

var (
	ErrNotFound        = errors.New("staff profile not found")
	ErrRoleNotFound    = errors.New("role not found")
	ErrDuplicateRole   = errors.New("role name already exists")
	ErrSupervisorCycle = errors.New("supervisor assignment would create a cycle")
)

// ID identifies a staff profile.
type ID string

// Sex values.
type Sex string

const (
	SexNotKnown Sex = "not-known"
	SexMale     Sex = "male"
	SexFemale   Sex = "female"
)

// Role is a job title.
type Role struct {
	ID          string `json:"id"`
	Name        string `json:"name" validate:"required,max=255"`
	Description string `json:"description"`
}

// Profile is one employee.
type Profile struct {
	ID        ID     `json:"id"`
	UserID    string `json:"user_id"`
	FirstName string `json:"first_name" validate:"required"`
	LastName  string `json:"last_name"`
	Email     string `json:"email" validate:"omitempty,email"`

	RoleID   string         `json:"role_id,omitempty"`
	Sex      Sex            `json:"sex" validate:"omitempty,oneof=not-known male female"`
	Phone    string         `json:"phone,omitempty"`
	Address  string         `json:"address,omitempty"`
	Birthday *calendar.Date `json:"birthday,omitempty"`

	LeaveDays       int  `json:"leave_days" validate:"gte=0"`
	SickDays        int  `json:"sick_days" validate:"gte=0"`
	OvertimeAllowed bool `json:"overtime_allowed"`

	StartDate *calendar.Date `json:"start_date,omitempty"`
	EndDate   *calendar.Date `json:"end_date,omitempty"`

	SupervisorID ID                `json:"supervisor_id,omitempty"`
	Groups       []string          `json:"groups,omitempty"`
	Data         map[string]string `json:"data,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Name is the display name.
func (p Profile) Name() string {
	return strings.TrimSpace(p.FirstName + " " + p.LastName)
}

// InGroup reports membership of a named group.
func (p Profile) InGroup(group string) bool {
	for _, g := range p.Groups {
		if g == group {
			return true
		}
	}
	return false
}

// ActiveIn reports whether employment overlaps the given year.
func (p Profile) ActiveIn(year int) bool {
	if p.StartDate != nil && p.StartDate.Year > year {
		return false
	}
	if p.EndDate != nil && p.EndDate.Year < year {
		return false
	}
	return true
}

// Reader is the read side the rest of the module depends on.
type Reader interface {
	GetStaff(ctx context.Context, id ID) (*Profile, error)
	ListStaff(ctx context.Context) ([]Profile, error)
	ListStaffInGroup(ctx context.Context, group string) ([]Profile, error)
}

// Store persists profiles and roles. GetStaff and GetRole return
// ErrNotFound / ErrRoleNotFound on a miss.
type Store interface {
	Reader
	SaveStaff(ctx context.Context, p Profile) error
	SaveRole(ctx context.Context, r Role) error
	GetRole(ctx context.Context, id string) (*Role, error)
	ListRoles(ctx context.Context) ([]Role, error)
}
