// Package calendar computes the teaching dates of a semester: every civil
// date in a window that is neither an excluded weekday nor a holiday.
package calendar

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"shomokh-report-engine/internal/config"
)

const DateLayout = "2006-01-02"

// TeachingDates returns every date in [start, end], ascending, whose weekday
// is not excluded and which is not a holiday. Every input is read as a civil
// date: its own year/month/day is used and never shifted through UTC. The
// result is expressed in start's location. start after end yields an empty
// slice.
func TeachingDates(start, end time.Time, excluded map[time.Weekday]bool, holidays []time.Time) []time.Time {
	loc := start.Location()
	first := civil(start, loc)
	last := civil(end, loc)
	if first.After(last) {
		return []time.Time{}
	}

	off := make(map[string]struct{}, len(holidays))
	for _, h := range holidays {
		off[Key(h)] = struct{}{}
	}

	dates := make([]time.Time, 0, int(last.Sub(first).Hours()/24)+1)
	for d := first; !d.After(last); d = d.AddDate(0, 0, 1) {
		if excluded[d.Weekday()] {
			continue
		}
		if _, ok := off[Key(d)]; ok {
			continue
		}
		dates = append(dates, d)
	}
	return dates
}

// Key is the civil-date identity of t in its own location.
func Key(t time.Time) string {
	return t.Format(DateLayout)
}

func civil(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}

// Range is an inclusive civil-date window. A zero bound is open.
type Range struct {
	From time.Time
	To   time.Time
}

// Contains reports whether d falls inside the range, comparing civil dates.
func (r Range) Contains(d time.Time) bool {
	k := Key(d)
	if !r.From.IsZero() && k < Key(r.From) {
		return false
	}
	if !r.To.IsZero() && k > Key(r.To) {
		return false
	}
	return true
}

func (r Range) IsZero() bool {
	return r.From.IsZero() && r.To.IsZero()
}

// Calendar is one semester's teaching calendar. It is an immutable value; a
// process may hold several for different cohorts.
type Calendar struct {
	Location         *time.Location
	ExcludedWeekdays map[time.Weekday]bool
	Holidays         []time.Time
	SemesterStart    time.Time
	SemesterEnd      time.Time
}

// New builds a Calendar from its configuration section.
func New(cfg config.CalendarConfig) (*Calendar, error) {
	loc := time.UTC
	if cfg.Timezone != "" {
		l, err := time.LoadLocation(cfg.Timezone)
		if err != nil {
			return nil, fmt.Errorf("invalid calendar timezone: %w", err)
		}
		loc = l
	}

	cal := &Calendar{
		Location:         loc,
		ExcludedWeekdays: make(map[time.Weekday]bool, len(cfg.ExcludedWeekdays)),
	}

	for _, name := range cfg.ExcludedWeekdays {
		wd, err := ParseWeekday(name)
		if err != nil {
			return nil, err
		}
		cal.ExcludedWeekdays[wd] = true
	}

	for _, h := range cfg.Holidays {
		d, err := time.ParseInLocation(DateLayout, strings.TrimSpace(h), loc)
		if err != nil {
			return nil, fmt.Errorf("invalid holiday %q: %w", h, err)
		}
		cal.Holidays = append(cal.Holidays, d)
	}
	sort.Slice(cal.Holidays, func(i, j int) bool { return cal.Holidays[i].Before(cal.Holidays[j]) })

	if cfg.SemesterStart != "" {
		d, err := time.ParseInLocation(DateLayout, cfg.SemesterStart, loc)
		if err != nil {
			return nil, fmt.Errorf("invalid semester start: %w", err)
		}
		cal.SemesterStart = d
	}
	if cfg.SemesterEnd != "" {
		d, err := time.ParseInLocation(DateLayout, cfg.SemesterEnd, loc)
		if err != nil {
			return nil, fmt.Errorf("invalid semester end: %w", err)
		}
		cal.SemesterEnd = d
	}

	return cal, nil
}

// ParseWeekday accepts full or three-letter English weekday names.
func ParseWeekday(name string) (time.Weekday, error) {
	n := strings.ToLower(strings.TrimSpace(name))
	for wd := time.Sunday; wd <= time.Saturday; wd++ {
		full := strings.ToLower(wd.String())
		if n == full || n == full[:3] {
			return wd, nil
		}
	}
	return time.Sunday, fmt.Errorf("invalid weekday %q", name)
}

// Date returns the civil date y-m-d in the calendar's location.
func (c *Calendar) Date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, c.location())
}

// ParseDate parses a 2006-01-02 date in the calendar's location.
func (c *Calendar) ParseDate(s string) (time.Time, error) {
	return time.ParseInLocation(DateLayout, strings.TrimSpace(s), c.location())
}

// Dates returns the teaching dates in [from, to], expressed in the
// calendar's location.
func (c *Calendar) Dates(from, to time.Time) []time.Time {
	loc := c.location()
	return TeachingDates(civil(from, loc), civil(to, loc), c.ExcludedWeekdays, c.Holidays)
}

// SemesterDates returns every teaching date of the configured semester.
func (c *Calendar) SemesterDates() []time.Time {
	if c.SemesterStart.IsZero() || c.SemesterEnd.IsZero() {
		return []time.Time{}
	}
	return c.Dates(c.SemesterStart, c.SemesterEnd)
}

// Bound fills the open ends of r with the semester bounds.
func (c *Calendar) Bound(r Range) Range {
	if r.From.IsZero() {
		r.From = c.SemesterStart
	}
	if r.To.IsZero() {
		r.To = c.SemesterEnd
	}
	return r
}

// RangeDates returns the teaching dates within r, with open ends bounded by
// the semester. An unbounded range yields no dates.
func (c *Calendar) RangeDates(r Range) []time.Time {
	r = c.Bound(r)
	if r.From.IsZero() || r.To.IsZero() {
		return []time.Time{}
	}
	return c.Dates(r.From, r.To)
}

// Count returns the number of teaching dates in [from, to].
func (c *Calendar) Count(from, to time.Time) int {
	return len(c.Dates(from, to))
}

// IsTeachingDate reports whether d is a teaching date. When a semester is
// configured, dates outside it are not teaching dates.
func (c *Calendar) IsTeachingDate(d time.Time) bool {
	loc := c.location()
	day := civil(d, loc)
	if !c.SemesterStart.IsZero() && day.Before(civil(c.SemesterStart, loc)) {
		return false
	}
	if !c.SemesterEnd.IsZero() && day.After(civil(c.SemesterEnd, loc)) {
		return false
	}
	return len(c.Dates(day, day)) == 1
}

func (c *Calendar) location() *time.Location {
	if c.Location == nil {
		return time.UTC
	}
	return c.Location
}
