package timecalc

import (
	"fmt"
	"strings"
	"time"
)

// Clock is a time of day with minute precision.
type Clock struct {
	Hour   int
	Minute int
}

// ParseClock parses "HH:MM".
func ParseClock(s string) (Clock, error) {
	t, err := time.Parse("15:04", strings.TrimSpace(s))
	if err != nil {
		return Clock{}, fmt.Errorf("invalid time of day %q (want HH:MM): %w", s, err)
	}
	return Clock{Hour: t.Hour(), Minute: t.Minute()}, nil
}

func (c Clock) String() string {
	return fmt.Sprintf("%02d:%02d", c.Hour, c.Minute)
}

func (c Clock) minutes() int {
	return c.Hour*60 + c.Minute
}

// on returns the instant at which c occurs on day's date.
func (c Clock) on(day time.Time) time.Time {
	return time.Date(day.Year(), day.Month(), day.Day(), c.Hour, c.Minute, 0, 0, day.Location())
}

// Defaults used when no calendar is configured.
var (
	DefaultWorkStart = Clock{Hour: 7, Minute: 12}
	DefaultWorkEnd   = Clock{Hour: 17, Minute: 30}
	DefaultWeekdays  = []time.Weekday{time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday}
)

// Calendar defines business time: a daily window on qualifying weekdays.
// A Calendar is immutable once built.
type Calendar struct {
	start    Clock
	end      Clock
	weekdays [7]bool
	loc      *time.Location
}

// NewCalendar builds a Calendar. end must be later than start and at least one
// weekday must qualify. A nil loc means time.Local.
func NewCalendar(start, end Clock, weekdays []time.Weekday, loc *time.Location) (*Calendar, error) {
	if end.minutes() <= start.minutes() {
		return nil, fmt.Errorf("workday end %s must be after start %s", end, start)
	}
	if len(weekdays) == 0 {
		return nil, fmt.Errorf("at least one working weekday is required")
	}
	if loc == nil {
		loc = time.Local
	}
	c := &Calendar{start: start, end: end, loc: loc}
	for _, wd := range weekdays {
		if wd < time.Sunday || wd > time.Saturday {
			return nil, fmt.Errorf("invalid weekday %d", wd)
		}
		c.weekdays[wd] = true
	}
	return c, nil
}

// DefaultCalendar returns the 07:12–17:30 Monday to Friday calendar in local time.
func DefaultCalendar() *Calendar {
	c, _ := NewCalendar(DefaultWorkStart, DefaultWorkEnd, DefaultWeekdays, time.Local)
	return c
}

// Location returns the calendar's wall-clock location.
func (c *Calendar) Location() *time.Location { return c.loc }

// WorkStart returns the daily window open.
func (c *Calendar) WorkStart() Clock { return c.start }

// WorkEnd returns the daily window close.
func (c *Calendar) WorkEnd() Clock { return c.end }

// Weekdays returns the qualifying weekdays, Sunday first.
func (c *Calendar) Weekdays() []time.Weekday {
	var out []time.Weekday
	for wd, ok := range c.weekdays {
		if ok {
			out = append(out, time.Weekday(wd))
		}
	}
	return out
}

// IsWorkday reports whether t's weekday qualifies, in the calendar's location.
func (c *Calendar) IsWorkday(t time.Time) bool {
	return c.weekdays[t.In(c.loc).Weekday()]
}

// Parse parses raw in the calendar's location. See ParseTimestamp.
func (c *Calendar) Parse(raw string) (time.Time, error) {
	return ParseTimestamp(raw, c.loc)
}

// ElapsedBusinessHours returns the business hours between start and end.
// Zero instants or end <= start yield 0.
func (c *Calendar) ElapsedBusinessHours(start, end time.Time) float64 {
	if start.IsZero() || end.IsZero() || !end.After(start) {
		return 0
	}
	start = start.In(c.loc)
	end = end.In(c.loc)

	var total time.Duration
	last := StartOfDay(end)
	for day := StartOfDay(start); !day.After(last); day = NextDay(day) {
		if !c.weekdays[day.Weekday()] {
			continue
		}
		open := c.start.on(day)
		closing := c.end.on(day)
		if SameDay(start, day) && start.After(open) {
			open = start
		}
		if SameDay(end, day) && end.Before(closing) {
			closing = end
		}
		if open.Before(closing) {
			total += closing.Sub(open)
		}
	}
	return total.Hours()
}

// ElapsedBusinessHoursRaw parses both timestamps and returns the business
// hours between them. Unparseable input yields 0.
func (c *Calendar) ElapsedBusinessHoursRaw(startRaw, endRaw string) float64 {
	start, err := c.Parse(startRaw)
	if err != nil {
		return 0
	}
	end, err := c.Parse(endRaw)
	if err != nil {
		return 0
	}
	return c.ElapsedBusinessHours(start, end)
}
