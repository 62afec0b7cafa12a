package sqlstore_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/hr-engine/calendar"
	"github.com/warp/hr-engine/leave"
	"github.com/warp/hr-engine/staff"
	"github.com/warp/hr-engine/store/sqlstore"
)

func openStore(t *testing.T) *sqlstore.Store {
	t.Helper()
	store, err := sqlstore.Open(sqlstore.DriverSQLite, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func saveAlice(t *testing.T, store *sqlstore.Store) staff.Profile {
	t.Helper()
	p := staff.NewProfile("Alice", "Smith")
	p.ID = "alice"
	p.Email = "alice@example.com"
	p.Groups = []string{"engineering", "hr-admins"}
	p.Data = map[string]string{"badge": "42"}
	start := calendar.NewDate(2015, time.February, 2)
	p.StartDate = &start
	p.CreatedAt = time.Date(2017, 1, 1, 9, 0, 0, 0, time.UTC)
	p.UpdatedAt = p.CreatedAt
	require.NoError(t, store.SaveStaff(context.Background(), p))
	return p
}

func TestOpen_UnsupportedDriver(t *testing.T) {
	_, err := sqlstore.Open("mysql", "dsn")
	require.Error(t, err)
}

func TestStaff_RoundTrip(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()
	want := saveAlice(t, store)

	got, err := store.GetStaff(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, want.FirstName, got.FirstName)
	assert.Equal(t, want.Groups, got.Groups)
	assert.Equal(t, want.Data, got.Data)
	require.NotNil(t, got.StartDate)
	assert.Equal(t, *want.StartDate, *got.StartDate)
	assert.Nil(t, got.EndDate)
	assert.True(t, want.CreatedAt.Equal(got.CreatedAt))
	assert.Equal(t, staff.DefaultLeaveDays, got.LeaveDays)

	admins, err := store.ListStaffInGroup(ctx, "hr-admins")
	require.NoError(t, err)
	require.Len(t, admins, 1)

	_, err = store.GetStaff(ctx, "ghost")
	require.ErrorIs(t, err, staff.ErrNotFound)
}

func TestStaff_SaveUpdatesInPlace(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()
	p := saveAlice(t, store)

	p.LeaveDays = 30
	p.SupervisorID = "boss"
	require.NoError(t, store.SaveStaff(ctx, p))

	all, err := store.ListStaff(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, 30, all[0].LeaveDays)
	assert.Equal(t, staff.ID("boss"), all[0].SupervisorID)
}

func TestRoles(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	require.NoError(t, store.SaveRole(ctx, staff.Role{ID: "r1", Name: "Engineer"}))
	err := store.SaveRole(ctx, staff.Role{ID: "r2", Name: "Engineer"})
	require.ErrorIs(t, err, staff.ErrDuplicateRole)

	role, err := store.GetRole(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, "Engineer", role.Name)

	_, err = store.GetRole(ctx, "r2")
	require.ErrorIs(t, err, staff.ErrRoleNotFound)
}

func TestFreeDays(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	for i, d := range calendar.Materialize([]calendar.RecurringDay{{Day: 25, Month: time.December}, {Day: 1, Month: time.January}}, 2017, 2) {
		d.ID = string(rune('a' + i))
		require.NoError(t, store.CreateFreeDay(ctx, d))
	}

	days, err := store.FreeDays(ctx, 2017, 2017)
	require.NoError(t, err)
	require.Len(t, days, 2)
	assert.Equal(t, calendar.NewDate(2017, time.January, 1), days[0].Date)
	assert.Equal(t, "Monday 25 December 2017", days[1].Name)

	err = store.CreateFreeDay(ctx, calendar.FreeDay{ID: "x", Name: "again", Date: calendar.NewDate(2017, time.January, 1)})
	require.ErrorIs(t, err, calendar.ErrDuplicateFreeDay)
}

func TestLedgers(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	l := leave.AnnualLeave{
		ID:              "l1",
		StaffID:         "alice",
		Year:            2017,
		Category:        leave.Regular,
		AllowedDays:     decimal.RequireFromString("21"),
		CarriedOverDays: decimal.RequireFromString("-2.5"),
		CreatedAt:       time.Now(),
		UpdatedAt:       time.Now(),
	}
	require.NoError(t, store.CreateLedger(ctx, l))

	dup := l
	dup.ID = "l2"
	require.ErrorIs(t, store.CreateLedger(ctx, dup), leave.ErrDuplicateLedger)

	got, err := store.GetLedger(ctx, "alice", 2017, leave.Regular)
	require.NoError(t, err)
	assert.True(t, got.CarriedOverDays.Equal(decimal.RequireFromString("-2.5")))

	got.AllowedDays = decimal.RequireFromString("25")
	require.NoError(t, store.UpdateLedger(ctx, *got))
	all, err := store.ListLedgers(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.True(t, all[0].AllowedDays.Equal(decimal.RequireFromString("25")))

	missing := l
	missing.Year = 2030
	require.ErrorIs(t, store.UpdateLedger(ctx, missing), leave.ErrLedgerNotFound)

	_, err = store.GetLedger(ctx, "alice", 2017, leave.Sick)
	require.ErrorIs(t, err, leave.ErrLedgerNotFound)
}

func TestLeaveRequests_Filter(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()
	at := func(y int, m time.Month, d int) time.Time { return time.Date(y, m, d, 7, 0, 0, 0, time.UTC) }

	stamp := at(2017, 1, 2)
	for _, r := range []leave.LeaveRequest{
		{ID: "dec", StaffID: "alice", Category: leave.Regular, Start: at(2016, 12, 28), End: at(2016, 12, 30), Status: leave.Approved},
		{ID: "jun", StaffID: "alice", Category: leave.Regular, Start: at(2017, 6, 5), End: at(2017, 6, 9), Status: leave.Approved, ReviewRequestedAt: &stamp},
		{ID: "sick", StaffID: "alice", Category: leave.Sick, Start: at(2017, 6, 12), End: at(2017, 6, 12), Status: leave.Approved},
		{ID: "pending", StaffID: "alice", Category: leave.Regular, Start: at(2017, 7, 3), End: at(2017, 7, 4), Status: leave.Pending},
	} {
		require.NoError(t, store.SaveLeaveRequest(ctx, r))
	}

	got, err := store.LeaveRequests(ctx, leave.LeaveFilter{
		StaffID:  "alice",
		Category: leave.Regular,
		Status:   leave.Approved,
		From:     calendar.StartOfYear(2017, time.UTC),
		To:       calendar.EndOfYear(2017, time.UTC),
	})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "jun", got[0].ID)
	require.NotNil(t, got[0].ReviewRequestedAt)
	assert.True(t, stamp.Equal(*got[0].ReviewRequestedAt))
	assert.True(t, at(2017, 6, 5).Equal(got[0].Start))

	all, err := store.LeaveRequests(ctx, leave.LeaveFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 4)
	assert.Equal(t, "dec", all[0].ID)

	one, err := store.GetLeaveRequest(ctx, "pending")
	require.NoError(t, err)
	assert.Nil(t, one.ReviewRequestedAt)

	_, err = store.GetLeaveRequest(ctx, "nope")
	require.ErrorIs(t, err, leave.ErrRequestNotFound)
}

func TestOverTimeRequests_Filter(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	monday := calendar.NewDate(2017, time.June, 5)
	for _, r := range []leave.OverTimeRequest{
		{ID: "a", StaffID: "alice", Date: monday, Start: calendar.Clock(16, 0), End: calendar.Clock(17, 0), Status: leave.Approved},
		{ID: "b", StaffID: "alice", Date: monday, Start: calendar.Clock(18, 0), End: calendar.Clock(19, 30), Status: leave.Pending},
		{ID: "c", StaffID: "alice", Date: calendar.NewDate(2016, time.June, 6), Start: calendar.Clock(8, 0), End: calendar.Clock(9, 0), Status: leave.Approved},
	} {
		require.NoError(t, store.SaveOverTimeRequest(ctx, r))
	}

	sameDay, err := store.OverTimeRequests(ctx, leave.OverTimeFilter{StaffID: "alice", Date: monday})
	require.NoError(t, err)
	require.Len(t, sameDay, 2)
	assert.Equal(t, calendar.Clock(16, 0), sameDay[0].Start)
	assert.Equal(t, 90*time.Minute, sameDay[1].Duration())

	approved2017, err := store.OverTimeRequests(ctx, leave.OverTimeFilter{StaffID: "alice", Status: leave.Approved, Year: 2017})
	require.NoError(t, err)
	require.Len(t, approved2017, 1)
	assert.Equal(t, "a", approved2017[0].ID)
}

func TestEngineOverSQL_CarryOver(t *testing.T) {
	// GIVEN: A 2016 ledger of 21 with 12 approved days
	// WHEN: Bootstrapping 2017 through the engine on SQLite
	// THEN: 9 days carried over
	store := openStore(t)
	ctx := context.Background()
	saveAlice(t, store)

	engine := leave.NewEngine(store, calendar.MustRules(time.UTC, calendar.DefaultWeekdayValues()), leave.DefaultPolicy())
	_, err := engine.GetOrCreateLedger(ctx, "alice", 2016, leave.Regular)
	require.NoError(t, err)
	require.NoError(t, store.SaveLeaveRequest(ctx, leave.LeaveRequest{
		ID:       "june",
		StaffID:  "alice",
		Category: leave.Regular,
		Start:    time.Date(2016, 6, 6, 7, 0, 0, 0, time.UTC),
		End:      time.Date(2016, 6, 21, 16, 0, 0, 0, time.UTC),
		Status:   leave.Approved,
	}))

	ledger, err := engine.GetOrCreateLedger(ctx, "alice", 2017, leave.Regular)
	require.NoError(t, err)
	assert.True(t, ledger.CarriedOverDays.Equal(decimal.NewFromInt(9)), "got %s", ledger.CarriedOverDays)

	_, err = store.GetLedger(ctx, "alice", 2017, leave.Regular)
	require.NoError(t, err)
}
