/*
Package calendar counts leave days.

PURPOSE:
  Holds the free-day set and the per-weekday value table, and turns a
  timestamp range into a fractional number of countable leave days.

COUNTING RULES:
  1. Both timestamps are moved into the configured zone, then truncated
     to their calendar day.
  2. Every day from start to end is visited, both ends included.
  3. A day outside [yearLo, yearHi] contributes nothing.
  4. A free day contributes nothing, whatever its weekday.
  5. Any other day contributes the value of its ISO weekday.

  Sums are decimal.Decimal so repeated aggregation never drifts.

USAGE:
  rules, err := calendar.NewRules(loc, calendar.DefaultWeekdayValues(), 0)
  cal := calendar.New(rules, freeDays)
  days, err := cal.CountableDays(start, end, 2017, 2017)

SEE ALSO:
  - freedays.go: recurring holiday template
  - leave/ledger.go: cumulative taken and available days
*/
package calendar

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// DefaultMaxSpanDays bounds a single counted range.
const DefaultMaxSpanDays = 3660

var (
	// ErrMissingWeekday is returned when the value table lacks an ISO weekday.
	ErrMissingWeekday = errors.New("weekday value missing")

	// ErrWeekdayValueRange is returned when a weekday value is outside [0,1].
	ErrWeekdayValueRange = errors.New("weekday value outside [0,1]")

	// ErrRangeTooLong is returned when a range exceeds the configured span limit.
	ErrRangeTooLong = errors.New("date range exceeds span limit")

	// ErrDuplicateFreeDay is returned by stores when a date is already a free day.
	ErrDuplicateFreeDay = errors.New("free day already exists for date")
)

// =============================================================================
// WEEKDAY VALUES
// =============================================================================

// WeekdayValues maps ISO weekday (1=Monday..7=Sunday) to the fraction of a
// leave day it is worth.
type WeekdayValues map[int]decimal.Decimal

// DefaultWeekdayValues counts Monday to Friday as full days and the weekend as nothing.
func DefaultWeekdayValues() WeekdayValues {
	one := decimal.NewFromInt(1)
	return WeekdayValues{
		1: one, 2: one, 3: one, 4: one, 5: one,
		6: decimal.Zero,
		7: decimal.Zero,
	}
}

// Validate requires all seven weekdays with values in [0,1].
func (w WeekdayValues) Validate() error {
	one := decimal.NewFromInt(1)
	for wd := 1; wd <= 7; wd++ {
		v, ok := w[wd]
		if !ok {
			return fmt.Errorf("%w: %d", ErrMissingWeekday, wd)
		}
		if v.IsNegative() || v.GreaterThan(one) {
			return fmt.Errorf("%w: weekday %d is %s", ErrWeekdayValueRange, wd, v)
		}
	}
	return nil
}

// Clone returns an independent copy.
func (w WeekdayValues) Clone() WeekdayValues {
	out := make(WeekdayValues, len(w))
	for k, v := range w {
		out[k] = v
	}
	return out
}

// =============================================================================
// RULES - process-wide counting configuration
// =============================================================================

// Rules is the immutable counting configuration built once at startup.
type Rules struct {
	loc         *time.Location
	values      WeekdayValues
	maxSpanDays int
}

// NewRules validates the weekday table. maxSpanDays <= 0 selects DefaultMaxSpanDays.
func NewRules(loc *time.Location, values WeekdayValues, maxSpanDays int) (Rules, error) {
	if loc == nil {
		loc = time.UTC
	}
	if err := values.Validate(); err != nil {
		return Rules{}, err
	}
	if maxSpanDays <= 0 {
		maxSpanDays = DefaultMaxSpanDays
	}
	return Rules{loc: loc, values: values.Clone(), maxSpanDays: maxSpanDays}, nil
}

// MustRules panics on invalid input. Intended for tests.
func MustRules(loc *time.Location, values WeekdayValues) Rules {
	r, err := NewRules(loc, values, 0)
	if err != nil {
		panic(err)
	}
	return r
}

func (r Rules) Location() *time.Location {
	if r.loc == nil {
		return time.UTC
	}
	return r.loc
}

func (r Rules) MaxSpanDays() int { return r.maxSpanDays }

// Value returns the weekday value of d.
func (r Rules) Value(d Date) decimal.Decimal {
	return r.values[d.ISOWeekday()]
}

// DateOf moves t into the configured zone and returns its calendar day.
func (r Rules) DateOf(t time.Time) Date { return DateIn(t, r.Location()) }

// =============================================================================
// FREE DAYS
// =============================================================================

// FreeDay is a named date that never counts as a leave day.
type FreeDay struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Date Date   `json:"date"`
}

// =============================================================================
// CALENDAR
// =============================================================================

// Calendar is a read-only lookup over Rules and a set of free days.
type Calendar struct {
	rules Rules
	free  map[Date]FreeDay
}

// New builds a calendar. Later duplicates of a date replace earlier ones.
func New(rules Rules, freeDays []FreeDay) *Calendar {
	free := make(map[Date]FreeDay, len(freeDays))
	for _, fd := range freeDays {
		free[fd.Date] = fd
	}
	return &Calendar{rules: rules, free: free}
}

func (c *Calendar) Rules() Rules { return c.rules }

// IsFreeDay reports whether d is a designated free day.
func (c *Calendar) IsFreeDay(d Date) bool {
	_, ok := c.free[d]
	return ok
}

// FreeDays returns the free days sorted by date.
func (c *Calendar) FreeDays() []FreeDay {
	out := make([]FreeDay, 0, len(c.free))
	for _, fd := range c.free {
		out = append(out, fd)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out
}

// DayValue is what a single day contributes, ignoring year bounds.
func (c *Calendar) DayValue(d Date) decimal.Decimal {
	if c.IsFreeDay(d) {
		return decimal.Zero
	}
	return c.rules.Value(d)
}

// CountableDays sums the value of every day from start to end inclusive,
// skipping days outside [yearLo, yearHi] and free days. An end before start
// counts nothing.
func (c *Calendar) CountableDays(start, end time.Time, yearLo, yearHi int) (decimal.Decimal, error) {
	from := c.rules.DateOf(start)
	to := c.rules.DateOf(end)

	span := DaysBetween(from, to)
	if span < 0 {
		return decimal.Zero, nil
	}
	if max := c.rules.MaxSpanDays(); max > 0 && span+1 > max {
		return decimal.Zero, fmt.Errorf("%w: %d days from %s to %s (limit %d)",
			ErrRangeTooLong, span+1, from, to, max)
	}

	total := decimal.Zero
	for d := from; !d.After(to); d = d.AddDays(1) {
		if d.Year < yearLo || d.Year > yearHi {
			continue
		}
		total = total.Add(c.DayValue(d))
	}
	return total, nil
}
