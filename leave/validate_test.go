package leave_test

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/hr-engine/calendar"
	"github.com/warp/hr-engine/leave"
	"github.com/warp/hr-engine/staff"
)

func validationError(t *testing.T, err error) *leave.ValidationError {
	t.Helper()
	require.ErrorIs(t, err, leave.ErrValidation)
	var verr *leave.ValidationError
	require.True(t, errors.As(err, &verr))
	return verr
}

func leaveRequest(staffID staff.ID, start, end time.Time) leave.LeaveRequest {
	return leave.LeaveRequest{
		StaffID:  staffID,
		Category: leave.Regular,
		Start:    start,
		End:      end,
		Status:   leave.Pending,
	}
}

// =============================================================================
// LEAVE
// =============================================================================

func TestValidateLeave_NotEnoughDays(t *testing.T) {
	// GIVEN: available 21 in June (42 allowed * 6 / 12), oversubscription off
	// WHEN: Applying for 25 weekdays from 2017-06-05 to 2017-07-07
	// THEN: Rejected on start and end with the available balance
	f := newFixture(t, policy(10, false))
	f.addStaff(t, "alice", 42)

	err := f.engine.ValidateLeave(f.ctx, leaveRequest("alice", day(2017, 6, 5), day(2017, 7, 7)))
	verr := validationError(t, err)

	want := "Not enough leave days. Available leave days are 21.00"
	assert.Equal(t, []string{want}, verr.Fields[leave.FieldStart])
	assert.Equal(t, []string{want}, verr.Fields[leave.FieldEnd])

	_, err = f.store.GetLedger(f.ctx, "alice", 2017, leave.Regular)
	require.ErrorIs(t, err, leave.ErrLedgerNotFound, "validation must not persist a ledger")
}

func TestValidateLeave_SickMessageNoun(t *testing.T) {
	f := newFixture(t, policy(10, false))
	f.addStaff(t, "alice", 21)

	r := leaveRequest("alice", day(2017, 1, 2), day(2017, 1, 6))
	r.Category = leave.Sick
	verr := validationError(t, f.engine.ValidateLeave(f.ctx, r))

	// 10 sick days * 1 / 12
	assert.Contains(t, verr.Fields[leave.FieldStart], "Not enough sick days. Available sick days are 0.83")
}

func TestValidateLeave_OversubscribeAllowed(t *testing.T) {
	f := newFixture(t, policy(10, true))
	f.addStaff(t, "alice", 21)

	err := f.engine.ValidateLeave(f.ctx, leaveRequest("alice", day(2017, 6, 5), day(2017, 7, 7)))
	require.NoError(t, err)
}

func TestValidateLeave_EnoughDays(t *testing.T) {
	f := newFixture(t, policy(10, false))
	f.addStaff(t, "alice", 21)

	// 10.5 available in June, 5 requested
	err := f.engine.ValidateLeave(f.ctx, leaveRequest("alice", day(2017, 6, 5), day(2017, 6, 9)))
	require.NoError(t, err)
}

func TestValidateLeave_EndBeforeStart(t *testing.T) {
	f := newFixture(t, leave.DefaultPolicy())
	f.addStaff(t, "alice", 21)

	verr := validationError(t, f.engine.ValidateLeave(f.ctx, leaveRequest("alice", day(2017, 6, 9), day(2017, 6, 5))))
	assert.True(t, verr.Has(leave.FieldEnd))
	assert.False(t, verr.Has(leave.FieldStart))
}

func TestValidateLeave_SameInstantAllowed(t *testing.T) {
	f := newFixture(t, leave.DefaultPolicy())
	f.addStaff(t, "alice", 21)

	require.NoError(t, f.engine.ValidateLeave(f.ctx, leaveRequest("alice", day(2017, 6, 5), day(2017, 6, 5))))
}

func TestValidateLeave_CrossYear(t *testing.T) {
	f := newFixture(t, leave.DefaultPolicy())
	f.addStaff(t, "alice", 21)

	verr := validationError(t, f.engine.ValidateLeave(f.ctx, leaveRequest("alice", day(2017, 12, 28), day(2018, 1, 3))))
	assert.Equal(t, []string{"start and end must be in the same year"}, verr.Fields[leave.FieldEnd])
}

func TestValidateLeave_CrossYearJudgedInConfiguredZone(t *testing.T) {
	// GIVEN: A UTC+3 zone
	// WHEN: End is 2017-12-31 22:00 UTC, which is 2018-01-01 locally
	// THEN: Cross year
	eat := time.FixedZone("EAT", 3*60*60)
	f := newFixture(t, leave.DefaultPolicy())
	f.engine = leave.NewEngine(f.store, calendar.MustRules(eat, calendar.DefaultWeekdayValues()), leave.DefaultPolicy())
	f.addStaff(t, "alice", 21)

	r := leaveRequest("alice",
		time.Date(2017, 12, 29, 7, 0, 0, 0, time.UTC),
		time.Date(2017, 12, 31, 22, 0, 0, 0, time.UTC))
	verr := validationError(t, f.engine.ValidateLeave(f.ctx, r))
	assert.True(t, verr.Has(leave.FieldEnd))
}

func TestValidateLeave_RequiredFields(t *testing.T) {
	f := newFixture(t, leave.DefaultPolicy())

	verr := validationError(t, f.engine.ValidateLeave(f.ctx, leave.LeaveRequest{Status: leave.Pending}))
	for _, field := range []string{leave.FieldStaff, leave.FieldCategory, leave.FieldStart, leave.FieldEnd} {
		assert.True(t, verr.Has(field), field)
	}
}

func TestValidateLeave_UnknownStaff(t *testing.T) {
	f := newFixture(t, leave.DefaultPolicy())

	err := f.engine.ValidateLeave(f.ctx, leaveRequest("ghost", day(2017, 6, 5), day(2017, 6, 9)))
	require.ErrorIs(t, err, staff.ErrNotFound)
	assert.True(t, leave.IsNotFound(err))
}

// =============================================================================
// LEAVE OVERLAP - literal containment rule
// =============================================================================

func TestValidateLeave_ContainsApproved(t *testing.T) {
	// GIVEN: Approved 2017-06-06..07
	// WHEN: Requesting 2017-06-05..09, which contains it
	// THEN: Overlap on start and end
	f := newFixture(t, leave.DefaultPolicy())
	f.addStaff(t, "alice", 21)
	f.approve(t, "existing", "alice", day(2017, 6, 6), day(2017, 6, 7))

	verr := validationError(t, f.engine.ValidateLeave(f.ctx, leaveRequest("alice", day(2017, 6, 5), day(2017, 6, 9))))
	assert.Equal(t, []string{"you cannot have overlapping leave days"}, verr.Fields[leave.FieldStart])
	assert.Equal(t, []string{"you cannot have overlapping leave days"}, verr.Fields[leave.FieldEnd])
}

func TestValidateLeave_IdenticalRangeOverlaps(t *testing.T) {
	f := newFixture(t, leave.DefaultPolicy())
	f.addStaff(t, "alice", 21)
	f.approve(t, "existing", "alice", day(2017, 6, 5), day(2017, 6, 9))

	err := f.engine.ValidateLeave(f.ctx, leaveRequest("alice", day(2017, 6, 5), day(2017, 6, 9)))
	assert.True(t, validationError(t, err).Has(leave.FieldStart))
}

func TestValidateLeave_PartialOverlapNotDetected(t *testing.T) {
	// Only containment of an approved range is flagged. A request inside
	// or straddling an approved range passes.
	f := newFixture(t, leave.DefaultPolicy())
	f.addStaff(t, "alice", 21)
	f.approve(t, "existing", "alice", day(2017, 6, 5), day(2017, 6, 9))

	require.NoError(t, f.engine.ValidateLeave(f.ctx, leaveRequest("alice", day(2017, 6, 6), day(2017, 6, 7))))
	require.NoError(t, f.engine.ValidateLeave(f.ctx, leaveRequest("alice", day(2017, 6, 8), day(2017, 6, 13))))
}

func TestValidateLeave_OverlapScope(t *testing.T) {
	f := newFixture(t, leave.DefaultPolicy())
	f.addStaff(t, "alice", 21)
	f.addStaff(t, "bob", 21)
	f.approve(t, "existing", "alice", day(2017, 6, 6), day(2017, 6, 7))

	// Another staff member
	require.NoError(t, f.engine.ValidateLeave(f.ctx, leaveRequest("bob", day(2017, 6, 5), day(2017, 6, 9))))

	// Another category
	sick := leaveRequest("alice", day(2017, 6, 5), day(2017, 6, 9))
	sick.Category = leave.Sick
	require.NoError(t, f.engine.ValidateLeave(f.ctx, sick))

	// Rejected requests are exempt
	rejected := leaveRequest("alice", day(2017, 6, 5), day(2017, 6, 9))
	rejected.Status = leave.Rejected
	require.NoError(t, f.engine.ValidateLeave(f.ctx, rejected))

	// The request itself is excluded when edited
	self := leaveRequest("alice", day(2017, 6, 6), day(2017, 6, 7))
	self.ID = "existing"
	self.Status = leave.Approved
	require.NoError(t, f.engine.ValidateLeave(f.ctx, self))
}

// =============================================================================
// OVERTIME
// =============================================================================

func overtime(staffID staff.ID, d calendar.Date, start, end calendar.TimeOfDay) leave.OverTimeRequest {
	return leave.OverTimeRequest{StaffID: staffID, Date: d, Start: start, End: end, Status: leave.Pending}
}

func TestValidateOverTime_EndMustFollowStart(t *testing.T) {
	f := newFixture(t, leave.DefaultPolicy())
	f.addStaff(t, "alice", 21)
	d := calendar.NewDate(2017, time.June, 5)

	verr := validationError(t, f.engine.ValidateOverTime(f.ctx, overtime("alice", d, calendar.Clock(17, 0), calendar.Clock(17, 0))))
	assert.Equal(t, []string{"end must be greater than start"}, verr.Fields[leave.FieldEnd])

	verr = validationError(t, f.engine.ValidateOverTime(f.ctx, overtime("alice", d, calendar.Clock(18, 0), calendar.Clock(17, 0))))
	assert.True(t, verr.Has(leave.FieldEnd))
}

func TestValidateOverTime_OverlapOnSameDateOnly(t *testing.T) {
	f := newFixture(t, leave.DefaultPolicy())
	f.addStaff(t, "alice", 21)
	monday := calendar.NewDate(2017, time.June, 5)

	existing := overtime("alice", monday, calendar.Clock(16, 0), calendar.Clock(17, 0))
	existing.ID = "existing"
	existing.Status = leave.Approved
	require.NoError(t, f.store.SaveOverTimeRequest(f.ctx, existing))

	// Contains the approved slot
	verr := validationError(t, f.engine.ValidateOverTime(f.ctx, overtime("alice", monday, calendar.Clock(15, 0), calendar.Clock(18, 0))))
	assert.Equal(t, []string{"you cannot have overlapping overtime hours"}, verr.Fields[leave.FieldStart])

	// Inside the approved slot
	require.NoError(t, f.engine.ValidateOverTime(f.ctx, overtime("alice", monday, calendar.Clock(16, 15), calendar.Clock(16, 45))))

	// Next day
	require.NoError(t, f.engine.ValidateOverTime(f.ctx, overtime("alice", monday.AddDays(1), calendar.Clock(16, 0), calendar.Clock(17, 0))))
}

func TestValidateOverTime_RequiredFields(t *testing.T) {
	f := newFixture(t, leave.DefaultPolicy())

	verr := validationError(t, f.engine.ValidateOverTime(f.ctx, leave.OverTimeRequest{Status: leave.Pending}))
	assert.True(t, verr.Has(leave.FieldStaff))
	assert.True(t, verr.Has(leave.FieldDate))
}

func TestValidationError_Message(t *testing.T) {
	verr := &leave.ValidationError{}
	assert.NoError(t, verr.Err())

	verr.Add(leave.FieldStart, "b")
	verr.Add(leave.FieldEnd, "a")
	assert.Equal(t, "validation failed: end: a, start: b", verr.Error())
	assert.True(t, leave.IsClientError(verr))
}
