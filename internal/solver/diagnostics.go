package solver

import (
	"sort"

	"github.com/campussched/campussched-api/internal/models"
)

// maxReasonsPerRequest caps the distinct explanations kept per request.
const maxReasonsPerRequest = 3

// maxTopConflicts caps the ranked conflict list in the report.
const maxTopConflicts = 5

type conflictKey struct {
	constraintType string
	resourceID     string
}

// violationTally accumulates constraint violations seen while searching and
// during the diagnostics re-check.
type violationTally struct {
	counts  map[string]int
	blocked map[conflictKey]map[string]bool
}

func newViolationTally() *violationTally {
	return &violationTally{
		counts:  make(map[string]int),
		blocked: make(map[conflictKey]map[string]bool),
	}
}

func (t *violationTally) add(v *models.Violation) {
	t.counts[v.ConstraintType]++
	key := conflictKey{v.ConstraintType, v.ResourceID}
	if t.blocked[key] == nil {
		t.blocked[key] = make(map[string]bool)
	}
	t.blocked[key][v.RequestID] = true
}

// diagnose re-checks a bounded sample of candidate slots for each
// unscheduled request against every constraint, so the report names the
// actual blockers instead of just the first one the search tripped over.
func (st *searchState) diagnose(unscheduled []string) *models.InfeasibilityReport {
	explanations := make([]models.RequestExplanation, 0, len(unscheduled))
	explainers := make(map[string]models.Constraint, len(st.problem.Constraints))
	for _, c := range st.problem.Constraints {
		explainers[c.Type()] = c
	}

	placed := make(map[string]int, len(st.solution))
	for _, a := range st.solution {
		placed[a.RequestID]++
	}

	for _, requestID := range unscheduled {
		req := st.problem.Indices.RequestLookup[requestID]
		if req == nil {
			continue
		}

		reasons := make([]string, 0, maxReasonsPerRequest)
		seenReasons := make(map[string]bool)
		addReason := func(r string) {
			if len(reasons) < maxReasonsPerRequest && !seenReasons[r] {
				seenReasons[r] = true
				reasons = append(reasons, r)
			}
		}

		if len(st.problem.Indices.QualifiedResources[requestID]) == 0 {
			st.tally.add(&models.Violation{
				ConstraintType: "hard.attribute_match",
				RequestID:      requestID,
				Message:        "no resource carries the required attributes",
			})
			addReason("no resource carries the required attributes")
		} else {
			st.sampleCandidates(req, explainers, addReason)
		}
		if len(reasons) == 0 {
			addReason("no candidate slot fits inside the request's date range")
		}

		explanations = append(explanations, models.RequestExplanation{
			RequestID:        requestID,
			OccurrencesShort: req.NumberOfOccurrences - placed[requestID],
			Reasons:          reasons,
		})
	}

	return &models.InfeasibilityReport{
		UnscheduledRequests:        unscheduled,
		ViolatedConstraintsSummary: st.tally.summary(),
		TopConflicts:               st.tally.topConflicts(),
		PerRequestExplanations:     explanations,
	}
}

// sampleCandidates spreads up to DiagnosticSamples sample slots evenly
// across the request's date range and records every constraint each
// sampled slot violates.
func (st *searchState) sampleCandidates(req *models.SessionRequest, explainers map[string]models.Constraint, addReason func(string)) {
	gen := st.newCandidateGen(occurrence{req.ID, 0})

	span := req.LatestDate.Add(-req.Duration).Sub(req.EarliestDate)
	stride := 1
	if span > 0 && gen.granularity > 0 {
		totalSlots := int(span/gen.granularity) + 1
		if totalSlots > st.opts.DiagnosticSamples {
			stride = totalSlots / st.opts.DiagnosticSamples
		}
	}

	sampled := 0
	slotIdx := 0
	for sampled < st.opts.DiagnosticSamples {
		cand := gen.next()
		if cand == nil {
			break
		}
		if slotIdx%stride != 0 {
			slotIdx++
			continue
		}
		slotIdx++
		sampled++

		for _, c := range st.problem.Constraints {
			if v := c.Check(cand, st.solution, st.cctx); v != nil {
				st.tally.add(v)
				if explainer, ok := explainers[v.ConstraintType]; ok {
					addReason(explainer.Explain(*v))
				} else {
					addReason(v.Message)
				}
			}
		}
	}
}

func (t *violationTally) summary() map[string]int {
	out := make(map[string]int, len(t.counts))
	for k, v := range t.counts {
		out[k] = v
	}
	return out
}

// topConflicts ranks contended (constraint, resource) pairs by how many
// distinct requests they blocked.
func (t *violationTally) topConflicts() []models.ConflictEntry {
	entries := make([]models.ConflictEntry, 0, len(t.blocked))
	for key, requests := range t.blocked {
		ids := make([]string, 0, len(requests))
		for id := range requests {
			ids = append(ids, id)
		}
		sort.Strings(ids)
		entries = append(entries, models.ConflictEntry{
			ConstraintType:  key.constraintType,
			ResourceID:      key.resourceID,
			BlockedRequests: ids,
		})
	}
	sort.Slice(entries, func(i, j int) bool {
		if len(entries[i].BlockedRequests) != len(entries[j].BlockedRequests) {
			return len(entries[i].BlockedRequests) > len(entries[j].BlockedRequests)
		}
		if entries[i].ConstraintType != entries[j].ConstraintType {
			return entries[i].ConstraintType < entries[j].ConstraintType
		}
		return entries[i].ResourceID < entries[j].ResourceID
	})
	if len(entries) > maxTopConflicts {
		entries = entries[:maxTopConflicts]
	}
	return entries
}
