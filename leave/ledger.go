/*
Package leave is the leave and overtime entitlement engine.

PURPOSE:
  Keeps one AnnualLeave ledger per (staff, year, category), derives the
  days taken from approved requests on demand, carries unused regular
  leave into the next year and validates leave and overtime requests
  against all of it.

BALANCE:
  available(month) = allowed * month / 12 + carried_over - taken

  month is clamped to [1,12]. The result may be negative.
  "taken" is never stored; it is recomputed from APPROVED leave requests
  through the calendar day counter, restricted to the ledger year.

CARRY OVER:
  REGULAR: min(previous year available(12), MaxCarryOver), not floored.
  SICK:    always zero.
  No previous ledger: zero.

USAGE:
  engine := leave.NewEngine(store, rules, policy, leave.WithLogger(log))
  ledger, err := engine.GetOrCreateLedger(ctx, staffID, 2017, leave.Regular)
  available, err := engine.AvailableDays(ctx, *ledger, 6)

SEE ALSO:
  - carryover.go, bootstrap.go: ledger creation
  - validate.go: request validation rules
  - request.go: submit and review lifecycle
  - calendar/calendar.go: day counter
*/
package leave

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/warp/hr-engine/calendar"
	"github.com/warp/hr-engine/staff"
)

var monthsPerYear = decimal.NewFromInt(12)

// =============================================================================
// POLICY
// =============================================================================

// Policy holds the entitlement settings read once at startup.
type Policy struct {
	MaxCarryOver       decimal.Decimal
	AllowOversubscribe bool
}

// DefaultPolicy carries at most 10 days and allows oversubscription.
func DefaultPolicy() Policy {
	return Policy{MaxCarryOver: decimal.NewFromInt(10), AllowOversubscribe: true}
}

// =============================================================================
// ANNUAL LEAVE LEDGER
// =============================================================================

// AnnualLeave is the entitlement of one staff member for one year and category.
type AnnualLeave struct {
	ID              string          `json:"id"`
	StaffID         staff.ID        `json:"staff_id"`
	Year            int             `json:"year"`
	Category        Category        `json:"leave_type"`
	AllowedDays     decimal.Decimal `json:"allowed_days"`
	CarriedOverDays decimal.Decimal `json:"carried_over_days"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// Accrued is the part of AllowedDays earned by the end of month.
func (l AnnualLeave) Accrued(month int) decimal.Decimal {
	m := decimal.NewFromInt(int64(ClampMonth(month)))
	return l.AllowedDays.Mul(m).Div(monthsPerYear)
}

// Balance is Accrued(month) + CarriedOverDays - taken.
func (l AnnualLeave) Balance(month int, taken decimal.Decimal) decimal.Decimal {
	return l.Accrued(month).Add(l.CarriedOverDays).Sub(taken)
}

// ClampMonth pins month into [1,12].
func ClampMonth(month int) int {
	switch {
	case month < 1:
		return 1
	case month > 12:
		return 12
	}
	return month
}

// Entitlement is a computed view of one ledger.
type Entitlement struct {
	Category        Category        `json:"leave_type"`
	Year            int             `json:"year"`
	AsOfMonth       int             `json:"as_of_month"`
	AllowedDays     decimal.Decimal `json:"allowed_days"`
	CarriedOverDays decimal.Decimal `json:"carried_over_days"`
	TakenDays       decimal.Decimal `json:"taken_days"`
	AvailableDays   decimal.Decimal `json:"available_days"`
	HasLedger       bool            `json:"has_ledger"`
}

// =============================================================================
// ENGINE
// =============================================================================

// Engine computes entitlements over a Store. It holds no mutable state.
type Engine struct {
	store    Store
	rules    calendar.Rules
	policy   Policy
	log      *zap.Logger
	recorder Recorder
	now      func() time.Time
}

// Option configures an Engine.
type Option func(*Engine)

func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.log = l
		}
	}
}

func WithRecorder(r Recorder) Option {
	return func(e *Engine) {
		if r != nil {
			e.recorder = r
		}
	}
}

// WithClock overrides time.Now for created/updated stamps.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// NewEngine builds an Engine. rules must come from calendar.NewRules.
func NewEngine(store Store, rules calendar.Rules, policy Policy, opts ...Option) *Engine {
	e := &Engine{
		store:    store,
		rules:    rules,
		policy:   policy,
		log:      zap.NewNop(),
		recorder: nopRecorder{},
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Engine) Rules() calendar.Rules { return e.rules }
func (e *Engine) Policy() Policy        { return e.policy }

// Calendar loads the free days of [fromYear, toYear].
func (e *Engine) Calendar(ctx context.Context, fromYear, toYear int) (*calendar.Calendar, error) {
	days, err := e.store.FreeDays(ctx, fromYear, toYear)
	if err != nil {
		return nil, fmt.Errorf("load free days %d-%d: %w", fromYear, toYear, err)
	}
	return calendar.New(e.rules, days), nil
}

// CountableDays counts [start, end] against the stored free days.
func (e *Engine) CountableDays(ctx context.Context, start, end time.Time, yearLo, yearHi int) (decimal.Decimal, error) {
	cal, err := e.Calendar(ctx, yearLo, yearHi)
	if err != nil {
		return decimal.Zero, err
	}
	return cal.CountableDays(start, end, yearLo, yearHi)
}

// CumulativeTaken sums the countable days of approved requests in the
// ledger's category, counting only days inside the ledger year.
func (e *Engine) CumulativeTaken(ctx context.Context, l AnnualLeave) (decimal.Decimal, error) {
	return e.taken(ctx, l.StaffID, l.Year, l.Category)
}

// AvailableDays is the ledger balance at the end of month.
func (e *Engine) AvailableDays(ctx context.Context, l AnnualLeave, month int) (decimal.Decimal, error) {
	taken, err := e.CumulativeTaken(ctx, l)
	if err != nil {
		return decimal.Zero, err
	}
	return l.Balance(month, taken), nil
}

// ApprovedDays is the number of approved days in year, ledger or not.
func (e *Engine) ApprovedDays(ctx context.Context, staffID staff.ID, year int, category Category) (decimal.Decimal, error) {
	if !category.Valid() {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrUnknownCategory, category)
	}
	return e.taken(ctx, staffID, year, category)
}

// RemainingDays is the balance of an existing ledger. A missing ledger
// reads as zero entitlement instead of an error.
func (e *Engine) RemainingDays(ctx context.Context, staffID staff.ID, year int, category Category, month int) (decimal.Decimal, error) {
	l, err := e.store.GetLedger(ctx, staffID, year, category)
	if errors.Is(err, ErrLedgerNotFound) {
		return decimal.Zero, nil
	}
	if err != nil {
		return decimal.Zero, err
	}
	return e.AvailableDays(ctx, *l, month)
}

// Summary reports every category for one staff member and year.
func (e *Engine) Summary(ctx context.Context, staffID staff.ID, year, month int) ([]Entitlement, error) {
	if _, err := e.store.GetStaff(ctx, staffID); err != nil {
		return nil, err
	}
	out := make([]Entitlement, 0, len(Categories()))
	for _, c := range Categories() {
		taken, err := e.taken(ctx, staffID, year, c)
		if err != nil {
			return nil, err
		}
		ent := Entitlement{
			Category:        c,
			Year:            year,
			AsOfMonth:       ClampMonth(month),
			AllowedDays:     decimal.Zero,
			CarriedOverDays: decimal.Zero,
			TakenDays:       taken,
			AvailableDays:   decimal.Zero,
		}
		l, err := e.store.GetLedger(ctx, staffID, year, c)
		switch {
		case err == nil:
			ent.HasLedger = true
			ent.AllowedDays = l.AllowedDays
			ent.CarriedOverDays = l.CarriedOverDays
			ent.AvailableDays = l.Balance(month, taken)
		case !errors.Is(err, ErrLedgerNotFound):
			return nil, err
		}
		out = append(out, ent)
	}
	return out, nil
}

// ApprovedOvertime sums approved overtime durations in year.
func (e *Engine) ApprovedOvertime(ctx context.Context, staffID staff.ID, year int) (time.Duration, error) {
	reqs, err := e.store.OverTimeRequests(ctx, OverTimeFilter{StaffID: staffID, Status: Approved, Year: year})
	if err != nil {
		return 0, err
	}
	var total time.Duration
	for _, r := range reqs {
		total += r.Duration()
	}
	return total, nil
}

func (e *Engine) taken(ctx context.Context, staffID staff.ID, year int, category Category) (decimal.Decimal, error) {
	loc := e.rules.Location()
	reqs, err := e.store.LeaveRequests(ctx, LeaveFilter{
		StaffID:  staffID,
		Category: category,
		Status:   Approved,
		From:     calendar.StartOfYear(year, loc),
		To:       calendar.EndOfYear(year, loc),
	})
	if err != nil {
		return decimal.Zero, fmt.Errorf("load approved leave: %w", err)
	}
	if len(reqs) == 0 {
		return decimal.Zero, nil
	}

	cal, err := e.Calendar(ctx, year, year)
	if err != nil {
		return decimal.Zero, err
	}
	total := decimal.Zero
	for _, r := range reqs {
		days, err := cal.CountableDays(r.Start, r.End, year, year)
		if err != nil {
			return decimal.Zero, fmt.Errorf("count leave %s: %w", r.ID, err)
		}
		total = total.Add(days)
	}
	return total, nil
}
