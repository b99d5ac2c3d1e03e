package solver

import (
	"context"
	"math/rand"
	"sort"
	"time"

	"github.com/campussched/campussched-api/internal/models"
)

// maxResourceAlternatives caps how many resource combinations are tried per
// time slot before moving to the next slot.
const maxResourceAlternatives = 4

type heuristicBackend struct{}

func (*heuristicBackend) Name() string    { return BackendHeuristic }
func (*heuristicBackend) Available() bool { return true }

func (b *heuristicBackend) Solve(ctx context.Context, problem *models.Problem, opts Options) (*models.Result, error) {
	st := newSearchState(problem, opts)
	st.run(ctx)
	st.improve(ctx)
	return st.result(), nil
}

// occurrence identifies one yet-unplaced occurrence of a request.
type occurrence struct {
	requestID string
	index     int
}

// frame is one committed choice point: the assignment placed plus the
// generator that can resume producing alternatives for it.
type frame struct {
	occ        occurrence
	gen        *candidateGen
	assignment *models.Assignment
}

type searchState struct {
	problem *models.Problem
	opts    Options
	rng     *rand.Rand

	arena []*models.IntervalSet
	cctx  *models.ConstraintContext

	// solution holds locked assignments first, then placements in commit
	// order. Undo always removes from the tail, past the locked prefix.
	solution     []*models.Assignment
	lockedPrefix int

	frames         []*frame
	backtracksLeft int
	cancelled      bool

	tally *violationTally
}

func newSearchState(problem *models.Problem, opts Options) *searchState {
	st := &searchState{
		problem:        problem,
		opts:           opts,
		rng:            rand.New(rand.NewSource(*opts.Seed)),
		arena:          problem.Indices.OccupancySnapshot(),
		backtracksLeft: opts.BacktrackBudget,
		tally:          newViolationTally(),
	}
	st.cctx = &models.ConstraintContext{
		Problem: problem,
		Indices: problem.Indices,
		Occupancy: func(resourceID string) *models.IntervalSet {
			if i, ok := problem.Indices.ResourceIndex(resourceID); ok {
				return st.arena[i]
			}
			return nil
		},
	}
	for i := range problem.LockedAssignments {
		locked := problem.LockedAssignments[i]
		st.solution = append(st.solution, &locked)
	}
	st.lockedPrefix = len(st.solution)
	return st
}

// buildPlan orders the work hardest-first: requests with more occurrences
// and longer durations get first pick of the open slots, with the ID as the
// deterministic tie-break. Occurrences already covered by a locked
// assignment are skipped.
func (st *searchState) buildPlan() []occurrence {
	lockedOccs := make(map[occurrence]bool, len(st.problem.LockedAssignments))
	for i := range st.problem.LockedAssignments {
		a := &st.problem.LockedAssignments[i]
		lockedOccs[occurrence{a.RequestID, a.OccurrenceIndex}] = true
	}

	requests := make([]*models.SessionRequest, 0, len(st.problem.Requests))
	for i := range st.problem.Requests {
		requests = append(requests, &st.problem.Requests[i])
	}
	sort.SliceStable(requests, func(i, j int) bool {
		a, b := requests[i], requests[j]
		if a.NumberOfOccurrences != b.NumberOfOccurrences {
			return a.NumberOfOccurrences > b.NumberOfOccurrences
		}
		if a.Duration != b.Duration {
			return a.Duration > b.Duration
		}
		return a.ID < b.ID
	})

	var plan []occurrence
	for _, req := range requests {
		for k := 0; k < req.NumberOfOccurrences; k++ {
			occ := occurrence{req.ID, k}
			if !lockedOccs[occ] {
				plan = append(plan, occ)
			}
		}
	}
	return plan
}

func (st *searchState) run(ctx context.Context) {
	plan := st.buildPlan()
	failed := make(map[occurrence]bool)

	for i := 0; i < len(plan); {
		if ctx.Err() != nil {
			st.cancelled = true
			return
		}
		occ := plan[i]
		if failed[occ] {
			i++
			continue
		}

		gen := st.newCandidateGen(occ)
		if placed := st.advance(gen); placed != nil {
			st.commit(&frame{occ: occ, gen: gen, assignment: placed})
			i++
			continue
		}

		// Dead end. Undo the most recent choice and resume its generator;
		// the freed capacity may unblock the current occurrence.
		if st.backtracksLeft > 0 && len(st.frames) > 0 {
			st.backtracksLeft--
			popped := st.pop()
			if alt := st.advance(popped.gen); alt != nil {
				popped.assignment = alt
				st.commit(popped)
			} else {
				failed[popped.occ] = true
			}
			continue
		}

		failed[occ] = true
		i++
	}
}

// advance pulls candidates from the generator until one passes every
// constraint. Rejections feed the violation tally for diagnostics.
func (st *searchState) advance(gen *candidateGen) *models.Assignment {
	for {
		cand := gen.next()
		if cand == nil {
			return nil
		}
		if v := st.check(cand); v != nil {
			st.tally.add(v)
			continue
		}
		return cand
	}
}

func (st *searchState) check(cand *models.Assignment) *models.Violation {
	for _, c := range st.problem.Constraints {
		if v := c.Check(cand, st.solution, st.cctx); v != nil {
			return v
		}
	}
	return nil
}

func (st *searchState) commit(f *frame) {
	st.bookIntervals(f.assignment)
	st.solution = append(st.solution, f.assignment)
	st.frames = append(st.frames, f)
}

func (st *searchState) pop() *frame {
	f := st.frames[len(st.frames)-1]
	st.frames = st.frames[:len(st.frames)-1]
	st.unbook(f.assignment)
	st.solution = st.solution[:len(st.solution)-1]
	return f
}

func (st *searchState) bookIntervals(a *models.Assignment) {
	iv := models.BookedInterval{
		Start:           a.StartTime,
		End:             a.EndTime,
		RequestID:       a.RequestID,
		OccurrenceIndex: a.OccurrenceIndex,
	}
	for _, resID := range a.ResourceIDs() {
		if i, ok := st.problem.Indices.ResourceIndex(resID); ok {
			st.arena[i].Insert(iv)
		}
	}
}

func (st *searchState) unbook(a *models.Assignment) {
	for _, resID := range a.ResourceIDs() {
		if i, ok := st.problem.Indices.ResourceIndex(resID); ok {
			st.arena[i].Remove(a.RequestID, a.OccurrenceIndex)
		}
	}
}

func (st *searchState) result() *models.Result {
	assignments := make([]models.Assignment, 0, len(st.solution))
	for _, a := range st.solution {
		assignments = append(assignments, *a)
	}
	sort.SliceStable(assignments, func(i, j int) bool {
		if !assignments[i].StartTime.Equal(assignments[j].StartTime) {
			return assignments[i].StartTime.Before(assignments[j].StartTime)
		}
		if assignments[i].RequestID != assignments[j].RequestID {
			return assignments[i].RequestID < assignments[j].RequestID
		}
		return assignments[i].OccurrenceIndex < assignments[j].OccurrenceIndex
	})

	placedPerRequest := make(map[string]int, len(st.problem.Requests))
	for _, a := range st.solution {
		placedPerRequest[a.RequestID]++
	}
	var unscheduled []string
	for i := range st.problem.Requests {
		req := &st.problem.Requests[i]
		if placedPerRequest[req.ID] < req.NumberOfOccurrences {
			unscheduled = append(unscheduled, req.ID)
		}
	}
	sort.Strings(unscheduled)

	res := &models.Result{
		Assignments:         assignments,
		UnscheduledRequests: unscheduled,
		ObjectiveScore:      models.CompositeScore(st.problem.Objectives, st.solution, st.cctx),
		Backend:             BackendHeuristic,
	}
	// Locked assignments arrive with the input, so only placements made by
	// this solve count toward partial progress.
	newPlacements := len(st.solution) - st.lockedPrefix
	switch {
	case len(unscheduled) == 0:
		res.Status = models.StatusFeasible
	case newPlacements == 0:
		res.Status = models.StatusInfeasible
	default:
		res.Status = models.StatusPartial
	}
	if st.cancelled {
		res.Notes = append(res.Notes, "solve cancelled before completing; schedule is partial")
	}
	if len(unscheduled) > 0 {
		res.Diagnostics = st.diagnose(unscheduled)
	}
	return res
}

// candidateGen lazily enumerates (slot, resource combination) candidates
// for one occurrence, in deterministic order: slots ascend from the
// earliest aligned start, resource combinations rank by efficiency.
type candidateGen struct {
	st  *searchState
	req *models.SessionRequest
	occ occurrence

	granularity time.Duration
	cursor      time.Time
	latestStart time.Time
	slot        time.Time
	pending     []map[string][]string
	exhausted   bool
}

func (st *searchState) newCandidateGen(occ occurrence) *candidateGen {
	req := st.problem.Indices.RequestLookup[occ.requestID]
	g := &candidateGen{st: st, req: req, occ: occ}

	gran := time.Hour
	if inst := st.problem.InstitutionalCalendar(); inst != nil && inst.TimeslotGranularity > 0 {
		gran = inst.TimeslotGranularity
	}
	g.granularity = gran

	align := &models.Calendar{TimeslotGranularity: gran}
	g.cursor = align.AlignUp(req.EarliestDate)
	g.latestStart = req.LatestDate.Add(-req.Duration)
	return g
}

func (g *candidateGen) next() *models.Assignment {
	for {
		if len(g.pending) > 0 {
			combo := g.pending[0]
			g.pending = g.pending[1:]
			return &models.Assignment{
				RequestID:         g.req.ID,
				OccurrenceIndex:   g.occ.index,
				StartTime:         g.slot,
				EndTime:           g.slot.Add(g.req.Duration),
				AssignedResources: combo,
				CohortID:          g.req.CohortID,
			}
		}
		if g.exhausted || g.cursor.After(g.latestStart) {
			g.exhausted = true
			return nil
		}

		g.slot = g.cursor
		g.cursor = g.cursor.Add(g.granularity)
		slotEnd := g.slot.Add(g.req.Duration)

		if inst := g.st.problem.InstitutionalCalendar(); inst != nil && !inst.IsAvailable(g.slot, slotEnd) {
			continue
		}
		g.pending = g.st.combosFor(g.req, g.slot, slotEnd)
	}
}

// combosFor ranks qualified resources for each required type and returns up
// to maxResourceAlternatives combinations for the slot. Ranking prefers
// lightly booked resources, then tighter capacity, with a seeded random
// tie-break so equivalent resources rotate between runs with different
// seeds but stay fixed for one seed.
func (st *searchState) combosFor(req *models.SessionRequest, start, end time.Time) []map[string][]string {
	qualified := st.problem.Indices.QualifiedResources[req.ID]
	if len(qualified) == 0 {
		return nil
	}
	qualifiedSet := make(map[string]bool, len(qualified))
	for _, id := range qualified {
		qualifiedSet[id] = true
	}

	type need struct {
		resType string
		count   int
	}
	var needs []need
	if len(req.RequiredResourceTypes) == 0 {
		needs = []need{{resType: "", count: 1}}
	} else {
		for resType, count := range req.RequiredResourceTypes {
			needs = append(needs, need{resType, count})
		}
		sort.Slice(needs, func(i, j int) bool { return needs[i].resType < needs[j].resType })
	}

	ranked := make(map[string][]*models.Resource, len(needs))
	maxWindows := maxResourceAlternatives
	for _, n := range needs {
		var pool []*models.Resource
		if n.resType == "" {
			for _, id := range qualified {
				pool = append(pool, st.problem.Indices.ResourceLookup[id])
			}
		} else {
			for _, res := range st.problem.Indices.ResourcesByType[n.resType] {
				if qualifiedSet[res.ID] {
					pool = append(pool, res)
				}
			}
		}
		pool = st.rankAvailable(pool, start, end)
		if len(pool) < n.count {
			return nil
		}
		ranked[n.resType] = pool
		if w := len(pool) - n.count + 1; w < maxWindows {
			maxWindows = w
		}
	}

	combos := make([]map[string][]string, 0, maxWindows)
	for w := 0; w < maxWindows; w++ {
		combo := make(map[string][]string, len(needs))
		for _, n := range needs {
			pool := ranked[n.resType]
			ids := make([]string, 0, n.count)
			for _, res := range pool[w : w+n.count] {
				ids = append(ids, res.ID)
			}
			key := n.resType
			if key == "" {
				key = pool[w].ResourceType
			}
			combo[key] = append(combo[key], ids...)
		}
		combos = append(combos, combo)
	}
	return combos
}

// rankAvailable drops resources whose calendar rejects the slot and orders
// the rest by efficiency.
func (st *searchState) rankAvailable(pool []*models.Resource, start, end time.Time) []*models.Resource {
	type scored struct {
		res      *models.Resource
		load     int
		capacity int
		tie      int64
	}
	out := make([]scored, 0, len(pool))
	for _, res := range pool {
		if res.AvailabilityCalendarID != "" {
			if cal := st.problem.Indices.CalendarLookup[res.AvailabilityCalendarID]; cal != nil && !cal.IsAvailable(start, end) {
				continue
			}
		}
		load := 0
		if i, ok := st.problem.Indices.ResourceIndex(res.ID); ok {
			load = st.arena[i].Len()
		}
		out = append(out, scored{res: res, load: load, capacity: res.ConcurrencyCapacity, tie: st.rng.Int63()})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].load != out[j].load {
			return out[i].load < out[j].load
		}
		if out[i].capacity != out[j].capacity {
			return out[i].capacity < out[j].capacity
		}
		return out[i].tie < out[j].tie
	})
	ordered := make([]*models.Resource, len(out))
	for i, s := range out {
		ordered[i] = s.res
	}
	return ordered
}
