package models

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// Status summarizes the outcome of a solve.
type Status string

const (
	// StatusFeasible means every occurrence of every request was scheduled.
	StatusFeasible Status = "feasible"
	// StatusPartial means some occurrences were scheduled and the rest are
	// reported in UnscheduledRequests.
	StatusPartial Status = "partial"
	// StatusInfeasible means no occurrence could be scheduled.
	StatusInfeasible Status = "infeasible"
)

// Result is the outcome of one solve call. A partial schedule is a valid
// result; unplaced work is surfaced through UnscheduledRequests and
// Diagnostics rather than an error.
type Result struct {
	Status              Status               `json:"status"`
	Assignments         []Assignment         `json:"assignments"`
	UnscheduledRequests []string             `json:"unscheduled_requests,omitempty"`
	ObjectiveScore      float64              `json:"objective_score"`
	Backend             string               `json:"backend"`
	SeedUsed            int64                `json:"seed_used"`
	SolveTime           time.Duration        `json:"solve_time"`
	Diagnostics         *InfeasibilityReport `json:"diagnostics,omitempty"`
	Notes               []string             `json:"notes,omitempty"`
}

// RecordHeaders is the column order of Result.ToRecords. Exporters rely on
// it so CSV and PDF stay in sync with a single schema definition.
var RecordHeaders = []string{
	"start_time", "end_time", "request_id", "cohort_id",
	"resource_ids", "backend", "objective_score",
}

// ToRecords flattens the schedule into string rows keyed by RecordHeaders,
// one row per assignment, ordered by start time then request ID. Times are
// RFC 3339 in UTC; resource IDs are sorted and semicolon-joined.
func (r *Result) ToRecords() []map[string]string {
	assignments := append([]Assignment(nil), r.Assignments...)
	sort.SliceStable(assignments, func(i, j int) bool {
		if !assignments[i].StartTime.Equal(assignments[j].StartTime) {
			return assignments[i].StartTime.Before(assignments[j].StartTime)
		}
		if assignments[i].RequestID != assignments[j].RequestID {
			return assignments[i].RequestID < assignments[j].RequestID
		}
		return assignments[i].OccurrenceIndex < assignments[j].OccurrenceIndex
	})

	score := fmt.Sprintf("%.4f", r.ObjectiveScore)
	records := make([]map[string]string, 0, len(assignments))
	for i := range assignments {
		a := &assignments[i]
		records = append(records, map[string]string{
			"start_time":      a.StartTime.UTC().Format(time.RFC3339),
			"end_time":        a.EndTime.UTC().Format(time.RFC3339),
			"request_id":      a.RequestID,
			"cohort_id":       a.CohortID,
			"resource_ids":    strings.Join(a.ResourceIDs(), ";"),
			"backend":         r.Backend,
			"objective_score": score,
		})
	}
	return records
}

// ScheduledCount returns how many occurrences were placed.
func (r *Result) ScheduledCount() int {
	return len(r.Assignments)
}

// ConflictEntry names one contended resource or constraint and the requests
// it blocked.
type ConflictEntry struct {
	ConstraintType  string   `json:"constraint_type"`
	ResourceID      string   `json:"resource_id,omitempty"`
	BlockedRequests []string `json:"blocked_requests"`
}

// RequestExplanation summarizes why one request could not be fully placed.
type RequestExplanation struct {
	RequestID        string   `json:"request_id"`
	OccurrencesShort int      `json:"occurrences_short"`
	Reasons          []string `json:"reasons"`
}

// InfeasibilityReport explains why requests went unscheduled. It is built
// from a bounded re-check of candidate slots, so it names the dominant
// blockers rather than enumerating every conflict.
type InfeasibilityReport struct {
	UnscheduledRequests        []string             `json:"unscheduled_requests"`
	ViolatedConstraintsSummary map[string]int       `json:"violated_constraints_summary"`
	TopConflicts               []ConflictEntry      `json:"top_conflicts"`
	PerRequestExplanations     []RequestExplanation `json:"per_request_explanations"`
}

// Summary renders the report as a short human-readable paragraph.
func (rep *InfeasibilityReport) Summary() string {
	if rep == nil || len(rep.UnscheduledRequests) == 0 {
		return "all requests scheduled"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%d request(s) could not be fully scheduled: %s.",
		len(rep.UnscheduledRequests), strings.Join(rep.UnscheduledRequests, ", "))

	if len(rep.ViolatedConstraintsSummary) > 0 {
		types := make([]string, 0, len(rep.ViolatedConstraintsSummary))
		for t := range rep.ViolatedConstraintsSummary {
			types = append(types, t)
		}
		sort.Slice(types, func(i, j int) bool {
			if rep.ViolatedConstraintsSummary[types[i]] != rep.ViolatedConstraintsSummary[types[j]] {
				return rep.ViolatedConstraintsSummary[types[i]] > rep.ViolatedConstraintsSummary[types[j]]
			}
			return types[i] < types[j]
		})
		parts := make([]string, 0, len(types))
		for _, t := range types {
			parts = append(parts, fmt.Sprintf("%s (%d)", t, rep.ViolatedConstraintsSummary[t]))
		}
		fmt.Fprintf(&b, " Dominant blockers: %s.", strings.Join(parts, ", "))
	}
	return b.String()
}

// Recommendations proposes concrete next steps based on which constraint
// types dominated the blocked candidates.
func (rep *InfeasibilityReport) Recommendations() []string {
	if rep == nil || len(rep.UnscheduledRequests) == 0 {
		return nil
	}
	var recs []string
	seen := make(map[string]bool)
	add := func(s string) {
		if !seen[s] {
			seen[s] = true
			recs = append(recs, s)
		}
	}

	for constraintType := range rep.ViolatedConstraintsSummary {
		switch constraintType {
		case "hard.no_overlap":
			add("add resources of the contended types or raise concurrency capacity on existing ones")
		case "hard.within_date_range":
			add("widen the earliest/latest date range of the affected requests")
		case "hard.blackout_dates":
			add("review blackout periods overlapping the requested date ranges")
		case "hard.max_per_day":
			add("raise the per-day session limit or extend the scheduling horizon")
		case "hard.min_gap_between_occurrences":
			add("shorten the minimum gap between occurrences or extend the date range")
		case "hard.attribute_match":
			add("relax required attributes or add resources carrying the required attributes")
		}
	}
	for _, c := range rep.TopConflicts {
		if c.ResourceID != "" && len(c.BlockedRequests) > 1 {
			add(fmt.Sprintf("resource %q blocks %d requests; adding a similar resource would relieve the most contention",
				c.ResourceID, len(c.BlockedRequests)))
		}
	}
	sort.Strings(recs)
	return recs
}
