package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResultToRecords(t *testing.T) {
	start := time.Date(2026, 3, 2, 14, 0, 0, 0, time.UTC)
	res := &Result{
		Status:         StatusFeasible,
		Backend:        "heuristic",
		ObjectiveScore: 0.73219,
		Assignments: []Assignment{
			{
				RequestID:       "req-b",
				OccurrenceIndex: 0,
				StartTime:       start.Add(2 * time.Hour),
				EndTime:         start.Add(3 * time.Hour),
				CohortID:        "cohort-1",
				AssignedResources: map[string][]string{
					"room": {"room-2"}, "instructor": {"inst-1"},
				},
			},
			{
				RequestID:         "req-a",
				OccurrenceIndex:   0,
				StartTime:         start,
				EndTime:           start.Add(time.Hour),
				CohortID:          "cohort-2",
				AssignedResources: map[string][]string{"room": {"room-1"}},
			},
		},
	}

	records := res.ToRecords()
	require.Len(t, records, 2)

	// Rows come back sorted by start time.
	assert.Equal(t, "req-a", records[0]["request_id"])
	assert.Equal(t, "2026-03-02T14:00:00Z", records[0]["start_time"])
	assert.Equal(t, "2026-03-02T15:00:00Z", records[0]["end_time"])
	assert.Equal(t, "room-1", records[0]["resource_ids"])

	assert.Equal(t, "req-b", records[1]["request_id"])
	assert.Equal(t, "inst-1;room-2", records[1]["resource_ids"], "sorted and semicolon-joined")
	assert.Equal(t, "heuristic", records[1]["backend"])
	assert.Equal(t, "0.7322", records[1]["objective_score"])

	for _, rec := range records {
		for _, h := range RecordHeaders {
			_, ok := rec[h]
			assert.True(t, ok, "record missing header %q", h)
		}
	}
}

func TestInfeasibilityReportSummary(t *testing.T) {
	var nilReport *InfeasibilityReport
	assert.Equal(t, "all requests scheduled", nilReport.Summary())

	rep := &InfeasibilityReport{
		UnscheduledRequests: []string{"req-a", "req-b"},
		ViolatedConstraintsSummary: map[string]int{
			"hard.no_overlap":     12,
			"hard.blackout_dates": 3,
		},
	}
	summary := rep.Summary()
	assert.Contains(t, summary, "2 request(s)")
	assert.Contains(t, summary, "req-a, req-b")
	assert.Contains(t, summary, "hard.no_overlap (12)")
}

func TestInfeasibilityReportRecommendations(t *testing.T) {
	rep := &InfeasibilityReport{
		UnscheduledRequests: []string{"req-a"},
		ViolatedConstraintsSummary: map[string]int{
			"hard.no_overlap":      8,
			"hard.attribute_match": 2,
		},
		TopConflicts: []ConflictEntry{
			{ConstraintType: "hard.no_overlap", ResourceID: "room-1", BlockedRequests: []string{"req-a", "req-b"}},
		},
	}

	recs := rep.Recommendations()
	require.NotEmpty(t, recs)
	joined := ""
	for _, r := range recs {
		joined += r + "\n"
	}
	assert.Contains(t, joined, "concurrency capacity")
	assert.Contains(t, joined, "required attributes")
	assert.Contains(t, joined, `resource "room-1"`)

	assert.Nil(t, (&InfeasibilityReport{}).Recommendations())
}
