package calendar_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/hr-engine/calendar"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func at(year int, month time.Month, day, hour int) time.Time {
	return time.Date(year, month, day, hour, 0, 0, 0, time.UTC)
}

func newCalendar(t *testing.T, values calendar.WeekdayValues, free ...calendar.Date) *calendar.Calendar {
	t.Helper()
	rules, err := calendar.NewRules(time.UTC, values, 0)
	require.NoError(t, err)

	var days []calendar.FreeDay
	for _, d := range free {
		days = append(days, calendar.FreeDay{Name: d.String(), Date: d})
	}
	return calendar.New(rules, days)
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

// =============================================================================
// WEEKDAY TABLE
// =============================================================================

func TestWeekdayValues_MissingDay_Rejected(t *testing.T) {
	values := calendar.DefaultWeekdayValues()
	delete(values, 3)

	_, err := calendar.NewRules(time.UTC, values, 0)
	require.ErrorIs(t, err, calendar.ErrMissingWeekday)
}

func TestWeekdayValues_OutOfRange_Rejected(t *testing.T) {
	values := calendar.DefaultWeekdayValues()
	values[6] = dec("1.5")

	_, err := calendar.NewRules(time.UTC, values, 0)
	require.ErrorIs(t, err, calendar.ErrWeekdayValueRange)
}

func TestNewRules_CopiesTable(t *testing.T) {
	values := calendar.DefaultWeekdayValues()
	rules, err := calendar.NewRules(time.UTC, values, 0)
	require.NoError(t, err)

	values[1] = decimal.Zero
	monday := calendar.NewDate(2017, time.June, 5)
	assert.True(t, rules.Value(monday).Equal(decimal.NewFromInt(1)))
}

// =============================================================================
// COUNTABLE DAYS
// =============================================================================

func TestCountableDays_WeekdaysOnly(t *testing.T) {
	// GIVEN: Mon-Fri worth 1, weekend worth 0
	// WHEN: Counting Monday 2017-06-05 to Saturday 2017-06-10
	// THEN: Five days
	cal := newCalendar(t, calendar.DefaultWeekdayValues())

	days, err := cal.CountableDays(at(2017, 6, 5, 7), at(2017, 6, 10, 7), 2017, 2017)
	require.NoError(t, err)
	assert.True(t, days.Equal(dec("5")), "got %s", days)
}

func TestCountableDays_HalfDaySaturday(t *testing.T) {
	// GIVEN: Saturday worth half a day
	// WHEN: Counting Monday 2017-06-05 to Saturday 2017-06-10
	// THEN: Five and a half days
	values := calendar.DefaultWeekdayValues()
	values[6] = dec("0.5")
	cal := newCalendar(t, values)

	days, err := cal.CountableDays(at(2017, 6, 5, 7), at(2017, 6, 10, 7), 2017, 2017)
	require.NoError(t, err)
	assert.True(t, days.Equal(dec("5.5")), "got %s", days)
}

func TestCountableDays_SingleDay(t *testing.T) {
	cal := newCalendar(t, calendar.DefaultWeekdayValues())

	for day := 5; day <= 11; day++ {
		d := calendar.NewDate(2017, time.June, day)
		got, err := cal.CountableDays(at(2017, 6, day, 7), at(2017, 6, day, 16), 2017, 2017)
		require.NoError(t, err)
		assert.True(t, got.Equal(cal.Rules().Value(d)), "%s: got %s", d, got)
	}
}

func TestCountableDays_FreeDayCountsZero(t *testing.T) {
	// GIVEN: Wednesday 2017-06-07 is a free day
	// WHEN: Counting the week
	// THEN: It is excluded even though Wednesday is worth 1
	wednesday := calendar.NewDate(2017, time.June, 7)
	cal := newCalendar(t, calendar.DefaultWeekdayValues(), wednesday)

	single, err := cal.CountableDays(at(2017, 6, 7, 0), at(2017, 6, 7, 0), 2017, 2017)
	require.NoError(t, err)
	assert.True(t, single.IsZero())

	week, err := cal.CountableDays(at(2017, 6, 5, 7), at(2017, 6, 11, 7), 2017, 2017)
	require.NoError(t, err)
	assert.True(t, week.Equal(dec("4")), "got %s", week)
}

func TestCountableDays_FreeDayNeverIncreasesCount(t *testing.T) {
	values := calendar.DefaultWeekdayValues()
	values[6] = dec("0.5")
	start, end := at(2017, 6, 1, 0), at(2017, 6, 30, 0)

	plain := newCalendar(t, values)
	before, err := plain.CountableDays(start, end, 2017, 2017)
	require.NoError(t, err)

	for day := 1; day <= 30; day++ {
		d := calendar.NewDate(2017, time.June, day)
		withFree := newCalendar(t, values, d)
		after, err := withFree.CountableDays(start, end, 2017, 2017)
		require.NoError(t, err)

		assert.True(t, after.LessThanOrEqual(before), "%s", d)
		assert.True(t, before.Sub(after).Equal(plain.DayValue(d)), "%s", d)
	}
}

func TestCountableDays_Additive(t *testing.T) {
	values := calendar.DefaultWeekdayValues()
	values[6] = dec("0.5")
	cal := newCalendar(t, values, calendar.NewDate(2017, time.March, 15))

	start := calendar.NewDate(2017, time.March, 1)
	end := calendar.NewDate(2017, time.April, 30)

	whole, err := cal.CountableDays(start.Time(), end.Time(), 2017, 2017)
	require.NoError(t, err)

	for split := start; split.Before(end); split = split.AddDays(1) {
		left, err := cal.CountableDays(start.Time(), split.Time(), 2017, 2017)
		require.NoError(t, err)
		right, err := cal.CountableDays(split.AddDays(1).Time(), end.Time(), 2017, 2017)
		require.NoError(t, err)

		assert.True(t, whole.Equal(left.Add(right)), "split at %s", split)
	}
}

func TestCountableDays_YearBoundsFilterPerDay(t *testing.T) {
	// GIVEN: A range from Thursday 2015-12-31 to Friday 2016-01-08
	// WHEN: Counting with bounds pinned to one year
	// THEN: Only that year's days contribute
	cal := newCalendar(t, calendar.DefaultWeekdayValues())
	start, end := at(2015, 12, 31, 0), at(2016, 1, 8, 0)

	in2015, err := cal.CountableDays(start, end, 2015, 2015)
	require.NoError(t, err)
	in2016, err := cal.CountableDays(start, end, 2016, 2016)
	require.NoError(t, err)
	both, err := cal.CountableDays(start, end, 2015, 2016)
	require.NoError(t, err)

	assert.True(t, in2015.Equal(dec("1")), "got %s", in2015)
	assert.True(t, in2016.Equal(dec("6")), "got %s", in2016)
	assert.True(t, both.Equal(in2015.Add(in2016)))
}

func TestCountableDays_NormalizesToConfiguredZone(t *testing.T) {
	// GIVEN: A zone three hours ahead of UTC
	// WHEN: A timestamp is late Sunday in UTC but early Monday locally
	// THEN: It counts as Monday
	eat := time.FixedZone("EAT", 3*3600)
	rules, err := calendar.NewRules(eat, calendar.DefaultWeekdayValues(), 0)
	require.NoError(t, err)
	cal := calendar.New(rules, nil)

	sundayNightUTC := time.Date(2017, time.June, 4, 22, 0, 0, 0, time.UTC)
	days, err := cal.CountableDays(sundayNightUTC, sundayNightUTC, 2017, 2017)
	require.NoError(t, err)
	assert.True(t, days.Equal(dec("1")), "got %s", days)

	utcCal := newCalendar(t, calendar.DefaultWeekdayValues())
	days, err = utcCal.CountableDays(sundayNightUTC, sundayNightUTC, 2017, 2017)
	require.NoError(t, err)
	assert.True(t, days.IsZero())
}

func TestCountableDays_EndBeforeStartCountsNothing(t *testing.T) {
	cal := newCalendar(t, calendar.DefaultWeekdayValues())

	days, err := cal.CountableDays(at(2017, 6, 9, 0), at(2017, 6, 5, 0), 2017, 2017)
	require.NoError(t, err)
	assert.True(t, days.IsZero())
}

func TestCountableDays_SpanLimit(t *testing.T) {
	rules, err := calendar.NewRules(time.UTC, calendar.DefaultWeekdayValues(), 31)
	require.NoError(t, err)
	cal := calendar.New(rules, nil)

	_, err = cal.CountableDays(at(2017, 1, 1, 0), at(2017, 1, 31, 0), 2017, 2017)
	require.NoError(t, err)

	_, err = cal.CountableDays(at(2017, 1, 1, 0), at(2017, 2, 1, 0), 2017, 2017)
	require.ErrorIs(t, err, calendar.ErrRangeTooLong)
}

func TestCountableDays_Deterministic(t *testing.T) {
	cal := newCalendar(t, calendar.DefaultWeekdayValues(), calendar.NewDate(2017, time.December, 25))

	first, err := cal.CountableDays(at(2017, 12, 1, 0), at(2017, 12, 31, 0), 2017, 2017)
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		again, err := cal.CountableDays(at(2017, 12, 1, 0), at(2017, 12, 31, 0), 2017, 2017)
		require.NoError(t, err)
		assert.True(t, first.Equal(again))
	}
}
