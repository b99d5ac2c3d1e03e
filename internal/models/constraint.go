package models

// Violation carries structured detail about a failed constraint check.
type Violation struct {
	ConstraintType string `json:"constraint_type"`
	RequestID      string `json:"request_id"`
	ResourceID     string `json:"resource_id,omitempty"`
	Message        string `json:"message"`
}

// ConstraintContext exposes the canonical problem data plus the live
// occupancy state of the current solve attempt to constraint checks.
type ConstraintContext struct {
	Problem *Problem
	Indices *ProblemIndices

	// Occupancy resolves the live interval set for a resource. During a
	// solve it reflects committed plus locked assignments; outside a solve
	// it falls back to the canonical locked-only index.
	Occupancy func(resourceID string) *IntervalSet
}

// OccupancyFor returns the interval set tracking a resource's bookings.
func (c *ConstraintContext) OccupancyFor(resourceID string) *IntervalSet {
	if c.Occupancy != nil {
		if set := c.Occupancy(resourceID); set != nil {
			return set
		}
	}
	if c.Indices != nil {
		return c.Indices.OccupancyFor(resourceID)
	}
	return nil
}

// Resource looks up a resource by identifier.
func (c *ConstraintContext) Resource(id string) *Resource {
	if c.Indices == nil {
		return nil
	}
	return c.Indices.ResourceLookup[id]
}

// Calendar looks up a calendar by identifier.
func (c *ConstraintContext) Calendar(id string) *Calendar {
	if c.Indices == nil {
		return nil
	}
	return c.Indices.CalendarLookup[id]
}

// Request looks up a session request by identifier.
func (c *ConstraintContext) Request(id string) *SessionRequest {
	if c.Indices == nil {
		return nil
	}
	return c.Indices.RequestLookup[id]
}

// InstitutionalCalendar returns the problem-wide calendar, if designated.
func (c *ConstraintContext) InstitutionalCalendar() *Calendar {
	if c.Problem == nil || c.Problem.InstitutionalCalendarID == "" {
		return nil
	}
	return c.Calendar(c.Problem.InstitutionalCalendarID)
}

// Constraint is a hard rule checked against every candidate assignment.
// Check returns nil when the candidate is acceptable. Violations are
// routine control-flow data for the solver, never errors.
type Constraint interface {
	// Check examines a tentatively-added assignment against the partial
	// solution committed so far.
	Check(candidate *Assignment, solution []*Assignment, ctx *ConstraintContext) *Violation

	// Explain renders a violation into prose for diagnostics.
	Explain(v Violation) string

	// Type returns the stable constraint type tag, e.g. "hard.no_overlap".
	Type() string
}

// Objective is a soft scoring function over a full solution. Score must
// stay within [0, 1] for any solution, including the empty one.
type Objective interface {
	Score(solution []*Assignment, ctx *ConstraintContext) float64
	Weight() float64
	Type() string
}

// CompositeScore sums weight x score across objectives. The sum is
// deliberately NOT divided by the total weight: with weights summing above
// one the composite is unbounded above, and callers choosing weights own
// that trade-off.
func CompositeScore(objectives []Objective, solution []*Assignment, ctx *ConstraintContext) float64 {
	var total float64
	for _, obj := range objectives {
		total += obj.Weight() * obj.Score(solution, ctx)
	}
	return total
}
