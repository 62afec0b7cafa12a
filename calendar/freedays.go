package calendar

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// DefaultBootstrapYears is how many years Materialize covers when none is given.
const DefaultBootstrapYears = 11

// freeDayNameLayout renders names like "Monday 01 January 2018".
const freeDayNameLayout = "Monday 02 January 2006"

// RecurringDay is a holiday that falls on the same day and month every year.
type RecurringDay struct {
	Day   int        `json:"day"`
	Month time.Month `json:"month"`
}

// ParseRecurringDays parses a comma separated list of "day/month" tokens.
// Repeated days are kept once, in first-seen order.
func ParseRecurringDays(s string) ([]RecurringDay, error) {
	var out []RecurringDay
	seen := make(map[RecurringDay]bool)
	for _, tok := range strings.Split(s, ",") {
		tok = strings.TrimSpace(tok)
		if tok == "" {
			continue
		}
		parts := strings.Split(tok, "/")
		if len(parts) != 2 {
			return nil, fmt.Errorf("free day %q: want day/month", tok)
		}
		day, err := strconv.Atoi(strings.TrimSpace(parts[0]))
		if err != nil {
			return nil, fmt.Errorf("free day %q: %w", tok, err)
		}
		month, err := strconv.Atoi(strings.TrimSpace(parts[1]))
		if err != nil {
			return nil, fmt.Errorf("free day %q: %w", tok, err)
		}
		if month < 1 || month > 12 || day < 1 || day > 31 {
			return nil, fmt.Errorf("free day %q: out of range", tok)
		}
		rd := RecurringDay{Day: day, Month: time.Month(month)}
		if seen[rd] {
			continue
		}
		seen[rd] = true
		out = append(out, rd)
	}
	return out, nil
}

// Materialize expands the template into concrete free days for years
// startYear..startYear+years-1. Days that do not exist in a given year
// (29 February outside leap years) are skipped. IDs are left empty.
func Materialize(template []RecurringDay, startYear, years int) []FreeDay {
	if years <= 0 {
		years = DefaultBootstrapYears
	}
	out := make([]FreeDay, 0, len(template)*years)
	for year := startYear; year < startYear+years; year++ {
		for _, rd := range template {
			if !validDate(year, rd.Month, rd.Day) {
				continue
			}
			d := Date{Year: year, Month: rd.Month, Day: rd.Day}
			out = append(out, FreeDay{Name: d.Time().Format(freeDayNameLayout), Date: d})
		}
	}
	return out
}
