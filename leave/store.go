package leave

import (
	"context"

	"github.com/warp/hr-engine/calendar"
	"github.com/warp/hr-engine/staff"
)

// =============================================================================
// PERSISTENCE
// =============================================================================

// FreeDayStore reads and creates free days.
type FreeDayStore interface {
	// FreeDays returns free days whose year is within [fromYear, toYear].
	FreeDays(ctx context.Context, fromYear, toYear int) ([]calendar.FreeDay, error)

	// CreateFreeDay returns calendar.ErrDuplicateFreeDay when the date exists.
	CreateFreeDay(ctx context.Context, fd calendar.FreeDay) error
}

// LedgerStore persists AnnualLeave rows.
type LedgerStore interface {
	// GetLedger returns ErrLedgerNotFound on a miss.
	GetLedger(ctx context.Context, staffID staff.ID, year int, category Category) (*AnnualLeave, error)

	// CreateLedger returns ErrDuplicateLedger when the key exists.
	CreateLedger(ctx context.Context, l AnnualLeave) error

	// UpdateLedger returns ErrLedgerNotFound when the row does not exist.
	UpdateLedger(ctx context.Context, l AnnualLeave) error

	ListLedgers(ctx context.Context, staffID staff.ID) ([]AnnualLeave, error)
}

// RequestStore persists leave and overtime requests. Saves are upserts by ID.
type RequestStore interface {
	SaveLeaveRequest(ctx context.Context, r LeaveRequest) error
	GetLeaveRequest(ctx context.Context, id string) (*LeaveRequest, error)
	LeaveRequests(ctx context.Context, f LeaveFilter) ([]LeaveRequest, error)

	SaveOverTimeRequest(ctx context.Context, r OverTimeRequest) error
	GetOverTimeRequest(ctx context.Context, id string) (*OverTimeRequest, error)
	OverTimeRequests(ctx context.Context, f OverTimeFilter) ([]OverTimeRequest, error)
}

// Store is everything the engine reads and writes.
type Store interface {
	staff.Reader
	FreeDayStore
	LedgerStore
	RequestStore
}

// =============================================================================
// COLLABORATORS
// =============================================================================

// Subject identifies the request a notification or review concerns.
type Subject struct {
	Kind    string // "leave" or "overtime"
	ID      string
	StaffID staff.ID
	Status  Status
}

// Recipient is who a notification is addressed to.
type Recipient struct {
	StaffID staff.ID
	Name    string
	Email   string
}

// Notification is a fire-and-forget message.
type Notification struct {
	Recipient Recipient
	Subject   string
	Body      string
	Related   Subject
}

// Notifier delivers notifications. Errors are logged by the caller, never propagated.
type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}

// Router picks reviewers for a newly pending request.
type Router interface {
	AssignReviewers(ctx context.Context, s Subject) ([]Recipient, error)
}

// Recorder observes engine outcomes. metrics.Collector implements it.
type Recorder interface {
	RequestSubmitted(kind, outcome string)
	ValidationFailed(kind, field string)
	LedgerCreated(category string)
	NotificationFailed()
}

type nopRecorder struct{}

func (nopRecorder) RequestSubmitted(string, string) {}
func (nopRecorder) ValidationFailed(string, string) {}
func (nopRecorder) LedgerCreated(string)            {}
func (nopRecorder) NotificationFailed()             {}

type nopNotifier struct{}

func (nopNotifier) Notify(context.Context, Notification) error { return nil }

type nopRouter struct{}

func (nopRouter) AssignReviewers(context.Context, Subject) ([]Recipient, error) { return nil, nil }
