package models

import "time"

// TimeWindow is a half-open [Start, End) time range.
type TimeWindow struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Overlaps reports whether two half-open windows share any instant.
// Back-to-back windows (w.End == other.Start) do not overlap.
func (w TimeWindow) Overlaps(other TimeWindow) bool {
	return w.Start.Before(other.End) && w.End.After(other.Start)
}

// Calendar holds availability windows and blackout periods for a
// timezone-aware scheduling domain.
//
// A calendar with no availability windows is treated as always available
// except during blackouts. This is a deliberate default: the stricter
// "never available" reading would silently make every problem that omits
// explicit windows infeasible.
type Calendar struct {
	ID                  string         `json:"id"`
	Timezone            *time.Location `json:"-"`
	TimezoneName        string         `json:"timezone"`
	TimeslotGranularity time.Duration  `json:"timeslot_granularity"`
	AvailabilityWindows []TimeWindow   `json:"availability_windows,omitempty"`
	BlackoutPeriods     []TimeWindow   `json:"blackout_periods,omitempty"`
}

// Location resolves the calendar's timezone, defaulting to UTC.
func (c *Calendar) Location() *time.Location {
	if c.Timezone != nil {
		return c.Timezone
	}
	if c.TimezoneName != "" {
		if loc, err := time.LoadLocation(c.TimezoneName); err == nil {
			c.Timezone = loc
			return loc
		}
	}
	return time.UTC
}

// IsAvailable reports whether [start, end) lies entirely within at least one
// availability window and intersects no blackout period. Both instants are
// projected into the calendar's timezone before comparison so day-boundary
// rules are evaluated in local time.
func (c *Calendar) IsAvailable(start, end time.Time) bool {
	loc := c.Location()
	start = start.In(loc)
	end = end.In(loc)

	if len(c.AvailabilityWindows) > 0 {
		inWindow := false
		for _, w := range c.AvailabilityWindows {
			if !start.Before(w.Start) && !end.After(w.End) {
				inWindow = true
				break
			}
		}
		if !inWindow {
			return false
		}
	}

	candidate := TimeWindow{Start: start, End: end}
	for _, b := range c.BlackoutPeriods {
		if candidate.Overlaps(b) {
			return false
		}
	}
	return true
}

// granularityAnchor is the canonical epoch from which timeslot alignment is
// measured: the Unix epoch.
var granularityAnchor = time.Unix(0, 0).UTC()

// IsAligned reports whether t sits on an exact granularity multiple from the
// anchor epoch.
func (c *Calendar) IsAligned(t time.Time) bool {
	if c.TimeslotGranularity <= 0 {
		return true
	}
	return t.Sub(granularityAnchor)%c.TimeslotGranularity == 0
}

// AlignUp returns the earliest granularity-aligned instant not before t.
func (c *Calendar) AlignUp(t time.Time) time.Time {
	if c.TimeslotGranularity <= 0 {
		return t
	}
	offset := t.Sub(granularityAnchor) % c.TimeslotGranularity
	if offset == 0 {
		return t
	}
	if offset < 0 {
		return t.Add(-offset)
	}
	return t.Add(c.TimeslotGranularity - offset)
}

// Validate checks calendar invariants.
func (c *Calendar) Validate() []ValidationError {
	var errs []ValidationError
	if c.ID == "" {
		errs = append(errs, newValidationError("calendar.id", "non-empty identifier", c.ID))
	}
	if c.TimeslotGranularity <= 0 {
		errs = append(errs, newValidationError(
			"calendar."+c.ID+".timeslot_granularity", "positive duration", c.TimeslotGranularity))
	}
	if c.Timezone == nil && c.TimezoneName != "" {
		if _, err := time.LoadLocation(c.TimezoneName); err != nil {
			errs = append(errs, newValidationError(
				"calendar."+c.ID+".timezone", "valid IANA timezone name", c.TimezoneName))
		}
	}
	for i, w := range c.AvailabilityWindows {
		if !w.Start.Before(w.End) {
			errs = append(errs, newValidationError(
				"calendar."+c.ID+".availability_windows", "window start < end",
				map[string]interface{}{"index": i, "start": w.Start, "end": w.End}))
		}
	}
	for i, b := range c.BlackoutPeriods {
		if !b.Start.Before(b.End) {
			errs = append(errs, newValidationError(
				"calendar."+c.ID+".blackout_periods", "blackout start < end",
				map[string]interface{}{"index": i, "start": b.Start, "end": b.End}))
		}
	}
	return errs
}
