package solver

import (
	"context"

	"github.com/campussched/campussched-api/internal/models"
)

// improveEpsilon guards against accepting moves whose gain is float noise.
const improveEpsilon = 1e-9

// maxRelocationCandidates bounds how many feasible alternative placements
// are scored per relocation attempt.
const maxRelocationCandidates = 10

// improve runs a bounded relocation pass over the constructed schedule.
// One assignment at a time is tentatively moved to the best of a handful
// of alternative placements; the move sticks only when the composite
// objective score strictly improves. Assignments are never unscheduled and
// locked assignments are never touched.
func (st *searchState) improve(ctx context.Context) {
	budget := st.opts.LocalSearchBudget
	if budget <= 0 || len(st.solution) == st.lockedPrefix {
		return
	}

	for budget > 0 {
		improved := false
		for i := st.lockedPrefix; i < len(st.solution) && budget > 0; i++ {
			if ctx.Err() != nil {
				return
			}
			budget--
			if st.relocate(i) {
				improved = true
			}
		}
		if !improved {
			return
		}
	}
}

// relocate tries to move the assignment at solution index i. Returns true
// when a strictly better placement was committed.
func (st *searchState) relocate(i int) bool {
	current := st.solution[i]
	base := models.CompositeScore(st.problem.Objectives, st.solution, st.cctx)

	// Free the current placement so alternatives can reuse its capacity.
	st.unbook(current)
	rest := st.withoutIndex(i)

	gen := st.newCandidateGen(occurrence{current.RequestID, current.OccurrenceIndex})
	var best *models.Assignment
	bestScore := base
	seen := 0
	for seen < maxRelocationCandidates {
		cand := gen.next()
		if cand == nil {
			break
		}
		if cand.StartTime.Equal(current.StartTime) && cand.Equal(current) {
			continue
		}
		if v := st.checkAgainst(cand, rest); v != nil {
			continue
		}
		seen++

		st.solution[i] = cand
		st.bookIntervals(cand)
		score := models.CompositeScore(st.problem.Objectives, st.solution, st.cctx)
		st.unbook(cand)
		st.solution[i] = current

		if score > bestScore+improveEpsilon {
			best, bestScore = cand, score
		}
	}

	if best != nil {
		st.solution[i] = best
		st.bookIntervals(best)
		return true
	}
	st.bookIntervals(current)
	return false
}

func (st *searchState) withoutIndex(i int) []*models.Assignment {
	rest := make([]*models.Assignment, 0, len(st.solution)-1)
	rest = append(rest, st.solution[:i]...)
	rest = append(rest, st.solution[i+1:]...)
	return rest
}

func (st *searchState) checkAgainst(cand *models.Assignment, solution []*models.Assignment) *models.Violation {
	for _, c := range st.problem.Constraints {
		if v := c.Check(cand, solution, st.cctx); v != nil {
			return v
		}
	}
	return nil
}
