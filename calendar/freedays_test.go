package calendar_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/hr-engine/calendar"
)

func TestParseRecurringDays(t *testing.T) {
	days, err := calendar.ParseRecurringDays("1/1, 25/12 ,26/12,")
	require.NoError(t, err)
	assert.Equal(t, []calendar.RecurringDay{
		{Day: 1, Month: time.January},
		{Day: 25, Month: time.December},
		{Day: 26, Month: time.December},
	}, days)

	_, err = calendar.ParseRecurringDays("12-25")
	assert.Error(t, err)
	_, err = calendar.ParseRecurringDays("1/13")
	assert.Error(t, err)
}

func TestParseRecurringDays_RepeatedDayKeptOnce(t *testing.T) {
	days, err := calendar.ParseRecurringDays("1/1, 25/12, 01/1")
	require.NoError(t, err)
	assert.Equal(t, []calendar.RecurringDay{
		{Day: 1, Month: time.January},
		{Day: 25, Month: time.December},
	}, days)
}

func TestMaterialize_NamesAndYears(t *testing.T) {
	template := []calendar.RecurringDay{{Day: 1, Month: time.January}}

	days := calendar.Materialize(template, 2018, 3)
	require.Len(t, days, 3)
	assert.Equal(t, "Monday 01 January 2018", days[0].Name)
	assert.Equal(t, calendar.NewDate(2018, time.January, 1), days[0].Date)
	assert.Equal(t, 2020, days[2].Date.Year)
}

func TestMaterialize_SkipsMissingLeapDay(t *testing.T) {
	template := []calendar.RecurringDay{{Day: 29, Month: time.February}}

	days := calendar.Materialize(template, 2019, 2)
	require.Len(t, days, 1)
	assert.Equal(t, calendar.NewDate(2020, time.February, 29), days[0].Date)
}

func TestMaterialize_DefaultYears(t *testing.T) {
	template := []calendar.RecurringDay{{Day: 25, Month: time.December}}

	days := calendar.Materialize(template, 2020, 0)
	assert.Len(t, days, calendar.DefaultBootstrapYears)
}

func TestDate_TextAndScan(t *testing.T) {
	d := calendar.MustParseDate("2017-06-05")
	assert.Equal(t, 1, d.ISOWeekday())
	assert.Equal(t, 7, d.AddDays(6).ISOWeekday())

	var scanned calendar.Date
	require.NoError(t, scanned.Scan("2017-06-05"))
	assert.Equal(t, d, scanned)

	require.NoError(t, scanned.Scan(time.Date(2018, 2, 3, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, calendar.NewDate(2018, time.February, 3), scanned)
}

func TestTimeOfDay_Parse(t *testing.T) {
	start, err := calendar.ParseTimeOfDay("16:00")
	require.NoError(t, err)
	end, err := calendar.ParseTimeOfDay("17:30:00")
	require.NoError(t, err)

	assert.Equal(t, calendar.Clock(16, 0), start)
	assert.Equal(t, 90*time.Minute, end.Sub(start))
	assert.Equal(t, "17:30:00", end.String())

	_, err = calendar.ParseTimeOfDay("25:00")
	assert.Error(t, err)
}
