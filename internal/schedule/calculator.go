package schedule

import (
	"fmt"
	"strings"
	"time"
)

// Calculator converts date/time phrases extracted from a command into
// absolute millisecond timestamps. It does not check that the result lies
// in the future; the layer that persists a scheduled transfer does that.
type Calculator struct {
	now func() time.Time
	loc *time.Location
}

// Option mutates a Calculator.
type Option func(*Calculator)

// WithClock overrides the wall clock, used by tests.
func WithClock(now func() time.Time) Option {
	return func(c *Calculator) {
		if now != nil {
			c.now = now
		}
	}
}

// WithLocation sets the timezone that relative phrases resolve in.
func WithLocation(loc *time.Location) Option {
	return func(c *Calculator) {
		if loc != nil {
			c.loc = loc
		}
	}
}

// NewCalculator builds a Calculator resolving against local time.
func NewCalculator(opts ...Option) *Calculator {
	c := &Calculator{now: time.Now, loc: time.Local}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c
}

// ResolveRelative computes the timestamp for "today" or "tomorrow" at the
// given clock time.
func (c *Calculator) ResolveRelative(day string, hour, minute int, meridiem string) (int64, error) {
	base := c.now().In(c.loc)
	switch strings.ToLower(strings.TrimSpace(day)) {
	case "today":
	case "tomorrow":
		base = base.AddDate(0, 0, 1)
	default:
		return 0, fmt.Errorf("unsupported relative day %q", day)
	}
	return c.at(base, hour, minute, meridiem)
}

// ResolveDate computes the timestamp for an explicit YYYY-MM-DD date at the
// given clock time.
func (c *Calculator) ResolveDate(date string, hour, minute int, meridiem string) (int64, error) {
	parsed, err := time.ParseInLocation("2006-01-02", strings.TrimSpace(date), c.loc)
	if err != nil {
		return 0, fmt.Errorf("parse date %q: %w", date, err)
	}
	return c.at(parsed, hour, minute, meridiem)
}

func (c *Calculator) at(day time.Time, hour, minute int, meridiem string) (int64, error) {
	hour24, err := to24Hour(hour, meridiem)
	if err != nil {
		return 0, err
	}
	if minute < 0 || minute > 59 {
		return 0, fmt.Errorf("minute %d out of range", minute)
	}
	resolved := time.Date(day.Year(), day.Month(), day.Day(), hour24, minute, 0, 0, c.loc)
	return resolved.UnixMilli(), nil
}

// to24Hour applies the am/pm marker when present. Without a marker the hour
// is taken as already being on a 24-hour clock.
func to24Hour(hour int, meridiem string) (int, error) {
	meridiem = strings.ToLower(strings.TrimSpace(meridiem))
	switch meridiem {
	case "":
		if hour < 0 || hour > 23 {
			return 0, fmt.Errorf("hour %d out of range", hour)
		}
		return hour, nil
	case "am", "pm":
		if hour < 1 || hour > 12 {
			return 0, fmt.Errorf("hour %d out of range for %s", hour, meridiem)
		}
		if meridiem == "pm" && hour != 12 {
			return hour + 12, nil
		}
		if meridiem == "am" && hour == 12 {
			return 0, nil
		}
		return hour, nil
	default:
		return 0, fmt.Errorf("unsupported meridiem %q", meridiem)
	}
}
