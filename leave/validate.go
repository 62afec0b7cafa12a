package leave

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/warp/hr-engine/calendar"
)

// Input field names used as ValidationError keys.
const (
	FieldStaff    = "staff"
	FieldCategory = "leave_type"
	FieldStatus   = "status"
	FieldDate     = "date"
	FieldStart    = "start"
	FieldEnd      = "end"
)

const (
	msgRequired         = "This field is required."
	msgInvalidCategory  = "Select a valid leave type."
	msgInvalidStatus    = "Select a valid status."
	msgLeaveEndOrder    = "end must be greater than or equal to start"
	msgOvertimeEndOrder = "end must be greater than start"
	msgCrossYear        = "start and end must be in the same year"
	msgRangeTooLong     = "the requested period is too long"
	msgLeaveOverlap     = "you cannot have overlapping leave days"
	msgOvertimeOverlap  = "you cannot have overlapping overtime hours"
)

func notEnoughDays(c Category, available decimal.Decimal) string {
	noun := c.noun()
	return fmt.Sprintf("Not enough %s. Available %s are %s", noun, noun, available.StringFixed(2))
}

// ValidateLeave checks a leave request as it would be saved. It returns a
// *ValidationError for user-correctable problems and a plain error when the
// store fails. Nothing is written.
func (e *Engine) ValidateLeave(ctx context.Context, r LeaveRequest) error {
	verr := &ValidationError{}

	if r.StaffID == "" {
		verr.Add(FieldStaff, msgRequired)
	}
	if !r.Category.Valid() {
		verr.Add(FieldCategory, msgInvalidCategory)
	}
	if !r.Status.Valid() {
		verr.Add(FieldStatus, msgInvalidStatus)
	}
	if r.Start.IsZero() {
		verr.Add(FieldStart, msgRequired)
	}
	if r.End.IsZero() {
		verr.Add(FieldEnd, msgRequired)
	}
	if !verr.Empty() {
		return verr
	}

	if _, err := e.store.GetStaff(ctx, r.StaffID); err != nil {
		return err
	}

	if r.End.Before(r.Start) {
		verr.Add(FieldEnd, msgLeaveEndOrder)
		return verr
	}

	loc := e.rules.Location()
	start := r.Start.In(loc)
	year := start.Year()
	if r.End.In(loc).Year() != year {
		verr.Add(FieldEnd, msgCrossYear)
		return verr
	}

	if !e.policy.AllowOversubscribe {
		if err := e.checkBalance(ctx, r, year, int(start.Month()), verr); err != nil {
			return err
		}
	}

	if r.Status != Rejected {
		overlaps, err := e.leaveOverlaps(ctx, r)
		if err != nil {
			return err
		}
		if overlaps {
			verr.Add(FieldStart, msgLeaveOverlap)
			verr.Add(FieldEnd, msgLeaveOverlap)
		}
	}

	return verr.Err()
}

func (e *Engine) checkBalance(ctx context.Context, r LeaveRequest, year, month int, verr *ValidationError) error {
	cost, err := e.CountableDays(ctx, r.Start, r.End, year, year)
	if errors.Is(err, calendar.ErrRangeTooLong) {
		verr.Add(FieldEnd, msgRangeTooLong)
		return nil
	}
	if err != nil {
		return err
	}

	ledger, _, err := e.ledgerFor(ctx, r.StaffID, year, r.Category)
	if err != nil {
		return err
	}
	available, err := e.AvailableDays(ctx, *ledger, month)
	if err != nil {
		return err
	}

	if cost.GreaterThan(available) {
		msg := notEnoughDays(r.Category, available)
		verr.Add(FieldStart, msg)
		verr.Add(FieldEnd, msg)
	}
	return nil
}

// leaveOverlaps reports an approved request of the same staff and category
// lying entirely inside [r.Start, r.End]. Partial overlaps are not detected.
func (e *Engine) leaveOverlaps(ctx context.Context, r LeaveRequest) (bool, error) {
	existing, err := e.store.LeaveRequests(ctx, LeaveFilter{
		StaffID:  r.StaffID,
		Category: r.Category,
		Status:   Approved,
	})
	if err != nil {
		return false, err
	}
	for _, x := range existing {
		if x.ID == r.ID {
			continue
		}
		if !x.Start.Before(r.Start) && !x.End.After(r.End) {
			return true, nil
		}
	}
	return false, nil
}

// ValidateOverTime checks an overtime request as it would be saved.
func (e *Engine) ValidateOverTime(ctx context.Context, r OverTimeRequest) error {
	verr := &ValidationError{}

	if r.StaffID == "" {
		verr.Add(FieldStaff, msgRequired)
	}
	if r.Date.IsZero() {
		verr.Add(FieldDate, msgRequired)
	}
	if !r.Status.Valid() {
		verr.Add(FieldStatus, msgInvalidStatus)
	}
	if !verr.Empty() {
		return verr
	}

	if _, err := e.store.GetStaff(ctx, r.StaffID); err != nil {
		return err
	}

	if r.End <= r.Start {
		verr.Add(FieldEnd, msgOvertimeEndOrder)
		return verr
	}

	if r.Status != Rejected {
		overlaps, err := e.overtimeOverlaps(ctx, r)
		if err != nil {
			return err
		}
		if overlaps {
			verr.Add(FieldStart, msgOvertimeOverlap)
			verr.Add(FieldEnd, msgOvertimeOverlap)
		}
	}

	return verr.Err()
}

// overtimeOverlaps applies the same containment rule on one date.
func (e *Engine) overtimeOverlaps(ctx context.Context, r OverTimeRequest) (bool, error) {
	existing, err := e.store.OverTimeRequests(ctx, OverTimeFilter{
		StaffID: r.StaffID,
		Status:  Approved,
		Date:    r.Date,
	})
	if err != nil {
		return false, err
	}
	for _, x := range existing {
		if x.ID == r.ID {
			continue
		}
		if x.Start >= r.Start && x.End <= r.End {
			return true, nil
		}
	}
	return false, nil
}
