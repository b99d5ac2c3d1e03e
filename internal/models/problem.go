package models

import "sort"

// Problem aggregates the complete scheduling scenario: entities,
// constraints, objectives, and any pre-existing locked assignments. It is
// built once, canonicalized once, and treated as read-only input for the
// duration of one solve call.
type Problem struct {
	Requests                []SessionRequest `json:"requests"`
	Resources               []Resource       `json:"resources"`
	Calendars               []Calendar       `json:"calendars"`
	Constraints             []Constraint     `json:"-"`
	Objectives              []Objective      `json:"-"`
	LockedAssignments       []Assignment     `json:"locked_assignments,omitempty"`
	InstitutionalCalendarID string           `json:"institutional_calendar_id,omitempty"`

	// Indices is populated by Canonicalize.
	Indices *ProblemIndices `json:"-"`
}

// ProblemIndices holds the lookup structures built during canonicalization.
// Occupancy interval sets live in an arena indexed by a dense resource
// index resolved once, so the hot constraint-checking loop avoids repeated
// string-keyed map lookups.
type ProblemIndices struct {
	ResourceLookup map[string]*Resource
	CalendarLookup map[string]*Calendar
	RequestLookup  map[string]*SessionRequest

	ResourcesByType map[string][]*Resource

	// QualifiedResources maps request ID to the sorted IDs of resources
	// whose attributes satisfy the request's requirements.
	QualifiedResources map[string][]string

	resourceIndex map[string]int
	occupied      []*IntervalSet
	locked        []*IntervalSet
}

// OccupancyFor returns the occupancy interval set for a resource, nil for
// unknown resources.
func (idx *ProblemIndices) OccupancyFor(resourceID string) *IntervalSet {
	i, ok := idx.resourceIndex[resourceID]
	if !ok {
		return nil
	}
	return idx.occupied[i]
}

// LockedIntervalsFor returns the locked-only interval set for a resource.
func (idx *ProblemIndices) LockedIntervalsFor(resourceID string) *IntervalSet {
	i, ok := idx.resourceIndex[resourceID]
	if !ok {
		return nil
	}
	return idx.locked[i]
}

// ResourceIndex resolves a resource ID to its dense arena index.
func (idx *ProblemIndices) ResourceIndex(resourceID string) (int, bool) {
	i, ok := idx.resourceIndex[resourceID]
	return i, ok
}

// OccupancySnapshot clones every occupancy set into a fresh arena for a
// solve attempt to mutate freely.
func (idx *ProblemIndices) OccupancySnapshot() []*IntervalSet {
	out := make([]*IntervalSet, len(idx.occupied))
	for i, set := range idx.occupied {
		out[i] = set.Snapshot()
	}
	return out
}

// Validate checks every invariant across the problem: per-entity rules,
// identifier uniqueness, referential integrity, and locked-assignment
// consistency. All violations are collected in one pass.
func (p *Problem) Validate() []ValidationError {
	var errs []ValidationError

	seenRequests := make(map[string]bool, len(p.Requests))
	for i := range p.Requests {
		req := &p.Requests[i]
		errs = append(errs, req.Validate()...)
		if req.ID != "" && seenRequests[req.ID] {
			errs = append(errs, newValidationError(
				"requests", "unique request identifiers", req.ID))
		}
		seenRequests[req.ID] = true
	}

	calendarIDs := make(map[string]bool, len(p.Calendars))
	for i := range p.Calendars {
		cal := &p.Calendars[i]
		errs = append(errs, cal.Validate()...)
		if cal.ID != "" && calendarIDs[cal.ID] {
			errs = append(errs, newValidationError(
				"calendars", "unique calendar identifiers", cal.ID))
		}
		calendarIDs[cal.ID] = true
	}

	resourceIDs := make(map[string]bool, len(p.Resources))
	for i := range p.Resources {
		res := &p.Resources[i]
		errs = append(errs, res.Validate()...)
		if res.ID != "" && resourceIDs[res.ID] {
			errs = append(errs, newValidationError(
				"resources", "unique resource identifiers", res.ID))
		}
		resourceIDs[res.ID] = true
		if res.AvailabilityCalendarID != "" && !calendarIDs[res.AvailabilityCalendarID] {
			errs = append(errs, newValidationError(
				"resource."+res.ID+".availability_calendar_id",
				"reference to an existing calendar", res.AvailabilityCalendarID))
		}
	}

	if p.InstitutionalCalendarID != "" && !calendarIDs[p.InstitutionalCalendarID] {
		errs = append(errs, newValidationError(
			"institutional_calendar_id", "reference to an existing calendar",
			p.InstitutionalCalendarID))
	}

	requestByID := make(map[string]*SessionRequest, len(p.Requests))
	for i := range p.Requests {
		requestByID[p.Requests[i].ID] = &p.Requests[i]
	}
	for i := range p.LockedAssignments {
		locked := &p.LockedAssignments[i]
		errs = append(errs, locked.Validate()...)
		req, ok := requestByID[locked.RequestID]
		if !ok {
			errs = append(errs, newValidationError(
				"locked_assignments", "reference to an existing request", locked.RequestID))
			continue
		}
		if locked.OccurrenceIndex >= req.NumberOfOccurrences {
			errs = append(errs, newValidationError(
				"locked_assignment."+locked.RequestID+".occurrence_index",
				"index < request.number_of_occurrences", locked.OccurrenceIndex))
		}
		if !locked.StartTime.IsZero() && !locked.EndTime.IsZero() &&
			locked.EndTime.Sub(locked.StartTime) != req.Duration {
			errs = append(errs, newValidationError(
				"locked_assignment."+locked.RequestID+".duration",
				"end_time - start_time == request.duration",
				locked.EndTime.Sub(locked.StartTime)))
		}
		for _, resID := range locked.ResourceIDs() {
			if !resourceIDs[resID] {
				errs = append(errs, newValidationError(
					"locked_assignment."+locked.RequestID+".assigned_resources",
					"reference to an existing resource", resID))
			}
		}
	}

	return errs
}

// Canonicalize returns a new Problem with every collection sorted by a
// stable key and lookup indices built. Two problems with identical content
// but different input ordering canonicalize identically, so solver runs
// with the same seed reproduce bit-identical output regardless of how the
// caller assembled the lists. Canonicalize is idempotent.
func (p *Problem) Canonicalize() *Problem {
	out := &Problem{
		Requests:                append([]SessionRequest(nil), p.Requests...),
		Resources:               append([]Resource(nil), p.Resources...),
		Calendars:               append([]Calendar(nil), p.Calendars...),
		Constraints:             append([]Constraint(nil), p.Constraints...),
		Objectives:              append([]Objective(nil), p.Objectives...),
		LockedAssignments:       append([]Assignment(nil), p.LockedAssignments...),
		InstitutionalCalendarID: p.InstitutionalCalendarID,
	}

	sort.SliceStable(out.Requests, func(i, j int) bool { return out.Requests[i].ID < out.Requests[j].ID })
	sort.SliceStable(out.Resources, func(i, j int) bool { return out.Resources[i].ID < out.Resources[j].ID })
	sort.SliceStable(out.Calendars, func(i, j int) bool { return out.Calendars[i].ID < out.Calendars[j].ID })
	sort.SliceStable(out.LockedAssignments, func(i, j int) bool {
		a, b := out.LockedAssignments[i], out.LockedAssignments[j]
		if a.RequestID != b.RequestID {
			return a.RequestID < b.RequestID
		}
		return a.OccurrenceIndex < b.OccurrenceIndex
	})

	out.Indices = out.buildIndices()
	return out
}

func (p *Problem) buildIndices() *ProblemIndices {
	idx := &ProblemIndices{
		ResourceLookup:     make(map[string]*Resource, len(p.Resources)),
		CalendarLookup:     make(map[string]*Calendar, len(p.Calendars)),
		RequestLookup:      make(map[string]*SessionRequest, len(p.Requests)),
		ResourcesByType:    make(map[string][]*Resource),
		QualifiedResources: make(map[string][]string, len(p.Requests)),
		resourceIndex:      make(map[string]int, len(p.Resources)),
		occupied:           make([]*IntervalSet, len(p.Resources)),
		locked:             make([]*IntervalSet, len(p.Resources)),
	}

	for i := range p.Resources {
		res := &p.Resources[i]
		idx.ResourceLookup[res.ID] = res
		idx.ResourcesByType[res.ResourceType] = append(idx.ResourcesByType[res.ResourceType], res)
		idx.resourceIndex[res.ID] = i
		idx.occupied[i] = &IntervalSet{}
		idx.locked[i] = &IntervalSet{}
	}
	for i := range p.Calendars {
		cal := &p.Calendars[i]
		idx.CalendarLookup[cal.ID] = cal
	}
	for i := range p.Requests {
		req := &p.Requests[i]
		idx.RequestLookup[req.ID] = req

		var qualified []string
		for j := range p.Resources {
			if p.Resources[j].CanSatisfy(req.RequiredAttributes) {
				qualified = append(qualified, p.Resources[j].ID)
			}
		}
		idx.QualifiedResources[req.ID] = qualified
	}

	for i := range p.LockedAssignments {
		locked := &p.LockedAssignments[i]
		iv := BookedInterval{
			Start:           locked.StartTime,
			End:             locked.EndTime,
			RequestID:       locked.RequestID,
			OccurrenceIndex: locked.OccurrenceIndex,
			Locked:          true,
		}
		for _, resID := range locked.ResourceIDs() {
			if at, ok := idx.resourceIndex[resID]; ok {
				idx.occupied[at].Insert(iv)
				idx.locked[at].Insert(iv)
			}
		}
	}

	return idx
}

// InstitutionalCalendar returns the designated problem-wide calendar, nil
// when none is set.
func (p *Problem) InstitutionalCalendar() *Calendar {
	if p.InstitutionalCalendarID == "" || p.Indices == nil {
		return nil
	}
	return p.Indices.CalendarLookup[p.InstitutionalCalendarID]
}

// Context builds a ConstraintContext over the canonical indices.
func (p *Problem) Context() *ConstraintContext {
	return &ConstraintContext{Problem: p, Indices: p.Indices}
}
