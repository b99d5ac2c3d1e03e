// Package constraints implements the hard scheduling rules. Every
// constraint carries a stable type tag used in diagnostics and wire
// payloads, and reports rule breaches as Violation values rather than
// errors: a violation is routine pruning data for the solver.
package constraints

import (
	"fmt"
	"time"

	"github.com/campussched/campussched-api/internal/models"
)

const (
	TypeNoOverlap                = "hard.no_overlap"
	TypeWithinDateRange          = "hard.within_date_range"
	TypeBlackoutDates            = "hard.blackout_dates"
	TypeMaxPerDay                = "hard.max_per_day"
	TypeMinGapBetweenOccurrences = "hard.min_gap_between_occurrences"
	TypeAttributeMatch           = "hard.attribute_match"
)

// NoOverlap rejects candidates that would push any bound resource past its
// concurrency capacity. A resource with capacity N tolerates up to N
// simultaneous bookings; back-to-back bookings never conflict.
type NoOverlap struct{}

func (NoOverlap) Type() string { return TypeNoOverlap }

func (c NoOverlap) Check(candidate *models.Assignment, _ []*models.Assignment, ctx *models.ConstraintContext) *models.Violation {
	for _, resID := range candidate.ResourceIDs() {
		res := ctx.Resource(resID)
		if res == nil {
			continue
		}
		occ := ctx.OccupancyFor(resID)
		if occ == nil {
			continue
		}
		if peak := occ.ConcurrentWith(candidate.StartTime, candidate.EndTime); peak > res.ConcurrencyCapacity {
			return &models.Violation{
				ConstraintType: c.Type(),
				RequestID:      candidate.RequestID,
				ResourceID:     resID,
				Message: fmt.Sprintf("resource %q would hold %d concurrent bookings, capacity is %d",
					resID, peak, res.ConcurrencyCapacity),
			}
		}
	}
	return nil
}

func (NoOverlap) Explain(v models.Violation) string {
	return fmt.Sprintf("request %q cannot book resource %q in this slot: %s",
		v.RequestID, v.ResourceID, v.Message)
}

// WithinDateRange keeps every occurrence inside the request's
// [earliest_date, latest_date] window.
type WithinDateRange struct{}

func (WithinDateRange) Type() string { return TypeWithinDateRange }

func (c WithinDateRange) Check(candidate *models.Assignment, _ []*models.Assignment, ctx *models.ConstraintContext) *models.Violation {
	req := ctx.Request(candidate.RequestID)
	if req == nil {
		return nil
	}
	if candidate.StartTime.Before(req.EarliestDate) || candidate.EndTime.After(req.LatestDate) {
		return &models.Violation{
			ConstraintType: c.Type(),
			RequestID:      candidate.RequestID,
			Message: fmt.Sprintf("slot [%s, %s) falls outside the allowed range [%s, %s]",
				candidate.StartTime.Format(time.RFC3339), candidate.EndTime.Format(time.RFC3339),
				req.EarliestDate.Format(time.RFC3339), req.LatestDate.Format(time.RFC3339)),
		}
	}
	return nil
}

func (WithinDateRange) Explain(v models.Violation) string {
	return fmt.Sprintf("request %q: %s", v.RequestID, v.Message)
}

// BlackoutDates rejects candidates intersecting a blackout period of the
// institutional calendar or of any bound resource's calendar. Availability
// windows are enforced separately through Calendar.IsAvailable during
// candidate enumeration; this constraint guards blackouts only, so that a
// diagnostics re-check can attribute the block precisely.
type BlackoutDates struct{}

func (BlackoutDates) Type() string { return TypeBlackoutDates }

func (c BlackoutDates) Check(candidate *models.Assignment, _ []*models.Assignment, ctx *models.ConstraintContext) *models.Violation {
	window := candidate.Window()

	if inst := ctx.InstitutionalCalendar(); inst != nil {
		if v := blackoutHit(c.Type(), candidate, "", inst, window); v != nil {
			return v
		}
	}
	for _, resID := range candidate.ResourceIDs() {
		res := ctx.Resource(resID)
		if res == nil || res.AvailabilityCalendarID == "" {
			continue
		}
		cal := ctx.Calendar(res.AvailabilityCalendarID)
		if cal == nil {
			continue
		}
		if v := blackoutHit(c.Type(), candidate, resID, cal, window); v != nil {
			return v
		}
	}
	return nil
}

func blackoutHit(constraintType string, candidate *models.Assignment, resourceID string, cal *models.Calendar, window models.TimeWindow) *models.Violation {
	loc := cal.Location()
	local := models.TimeWindow{Start: window.Start.In(loc), End: window.End.In(loc)}
	for _, b := range cal.BlackoutPeriods {
		if local.Overlaps(b) {
			return &models.Violation{
				ConstraintType: constraintType,
				RequestID:      candidate.RequestID,
				ResourceID:     resourceID,
				Message: fmt.Sprintf("slot intersects blackout [%s, %s) on calendar %q",
					b.Start.Format(time.RFC3339), b.End.Format(time.RFC3339), cal.ID),
			}
		}
	}
	return nil
}

func (BlackoutDates) Explain(v models.Violation) string {
	if v.ResourceID != "" {
		return fmt.Sprintf("request %q via resource %q: %s", v.RequestID, v.ResourceID, v.Message)
	}
	return fmt.Sprintf("request %q: %s", v.RequestID, v.Message)
}

// MaxPerDay caps how many assignments may bind one resource per local
// calendar day, regardless of which request or cohort books it. The day
// boundary is taken in that resource's calendar timezone, falling back to
// the institutional calendar's, so late-evening sessions count toward the
// local day they occur on.
type MaxPerDay struct {
	ResourceID  string
	MaxSessions int
}

func (MaxPerDay) Type() string { return TypeMaxPerDay }

func (c MaxPerDay) Check(candidate *models.Assignment, solution []*models.Assignment, ctx *models.ConstraintContext) *models.Violation {
	if c.MaxSessions <= 0 || !candidate.Binds(c.ResourceID) {
		return nil
	}
	loc := c.location(ctx)
	day := localDay(candidate.StartTime, loc)

	count := 1 // the candidate itself
	for _, a := range solution {
		if a.Binds(c.ResourceID) && localDay(a.StartTime, loc) == day {
			count++
		}
	}
	if count > c.MaxSessions {
		return &models.Violation{
			ConstraintType: c.Type(),
			RequestID:      candidate.RequestID,
			ResourceID:     c.ResourceID,
			Message: fmt.Sprintf("resource %q would hold %d sessions on %s, limit is %d",
				c.ResourceID, count, day, c.MaxSessions),
		}
	}
	return nil
}

func (c MaxPerDay) location(ctx *models.ConstraintContext) *time.Location {
	if res := ctx.Resource(c.ResourceID); res != nil && res.AvailabilityCalendarID != "" {
		if cal := ctx.Calendar(res.AvailabilityCalendarID); cal != nil {
			return cal.Location()
		}
	}
	if inst := ctx.InstitutionalCalendar(); inst != nil {
		return inst.Location()
	}
	return time.UTC
}

func localDay(t time.Time, loc *time.Location) string {
	return t.In(loc).Format("2006-01-02")
}

func (MaxPerDay) Explain(v models.Violation) string {
	return fmt.Sprintf("request %q: %s", v.RequestID, v.Message)
}

// MinGapBetweenOccurrences enforces a minimum rest gap between occurrences
// of the same request. The gap is measured end to start in either
// direction. An empty RequestID applies the rule to every request;
// otherwise only the named request is constrained.
type MinGapBetweenOccurrences struct {
	RequestID string
	MinGap    time.Duration
}

func (MinGapBetweenOccurrences) Type() string { return TypeMinGapBetweenOccurrences }

func (c MinGapBetweenOccurrences) Check(candidate *models.Assignment, solution []*models.Assignment, _ *models.ConstraintContext) *models.Violation {
	if c.MinGap <= 0 {
		return nil
	}
	if c.RequestID != "" && candidate.RequestID != c.RequestID {
		return nil
	}
	for _, a := range solution {
		if a.RequestID != candidate.RequestID || a.OccurrenceIndex == candidate.OccurrenceIndex {
			continue
		}
		var gap time.Duration
		switch {
		case !candidate.StartTime.Before(a.EndTime):
			gap = candidate.StartTime.Sub(a.EndTime)
		case !a.StartTime.Before(candidate.EndTime):
			gap = a.StartTime.Sub(candidate.EndTime)
		default:
			gap = 0 // overlapping occurrences have no gap at all
		}
		if gap < c.MinGap {
			return &models.Violation{
				ConstraintType: c.Type(),
				RequestID:      candidate.RequestID,
				Message: fmt.Sprintf("occurrence %d would sit %s from occurrence %d, minimum gap is %s",
					candidate.OccurrenceIndex, gap, a.OccurrenceIndex, c.MinGap),
			}
		}
	}
	return nil
}

func (MinGapBetweenOccurrences) Explain(v models.Violation) string {
	return fmt.Sprintf("request %q: %s", v.RequestID, v.Message)
}

// AttributeMatch requires every bound resource to carry the request's
// required attributes. The solver only proposes qualified resources, so
// this mostly guards locked assignments and diagnostics re-checks.
type AttributeMatch struct{}

func (AttributeMatch) Type() string { return TypeAttributeMatch }

func (c AttributeMatch) Check(candidate *models.Assignment, _ []*models.Assignment, ctx *models.ConstraintContext) *models.Violation {
	req := ctx.Request(candidate.RequestID)
	if req == nil || len(req.RequiredAttributes) == 0 {
		return nil
	}
	for _, resID := range candidate.ResourceIDs() {
		res := ctx.Resource(resID)
		if res == nil {
			continue
		}
		if !res.CanSatisfy(req.RequiredAttributes) {
			return &models.Violation{
				ConstraintType: c.Type(),
				RequestID:      candidate.RequestID,
				ResourceID:     resID,
				Message:        fmt.Sprintf("resource %q does not carry the required attributes", resID),
			}
		}
	}
	return nil
}

func (AttributeMatch) Explain(v models.Violation) string {
	return fmt.Sprintf("request %q: %s", v.RequestID, v.Message)
}

// Defaults returns the rules that apply to every problem regardless of
// caller configuration.
func Defaults() []models.Constraint {
	return []models.Constraint{
		NoOverlap{},
		WithinDateRange{},
		BlackoutDates{},
		AttributeMatch{},
	}
}
