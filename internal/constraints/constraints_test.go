package constraints

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campussched/campussched-api/internal/models"
)

func testContext(t *testing.T, mutate func(*models.Problem)) *models.ConstraintContext {
	t.Helper()
	termStart := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	termEnd := time.Date(2026, 3, 13, 23, 0, 0, 0, time.UTC)

	p := &models.Problem{
		Requests: []models.SessionRequest{
			{
				ID:                  "req-1",
				Duration:            time.Hour,
				NumberOfOccurrences: 3,
				EarliestDate:        termStart,
				LatestDate:          termEnd,
				CohortID:            "cohort-1",
				RequiredAttributes:  map[string]interface{}{"has_projector": true},
			},
		},
		Resources: []models.Resource{
			{ID: "room-1", ResourceType: "room", ConcurrencyCapacity: 1, AvailabilityCalendarID: "campus",
				Attributes: map[string]interface{}{"has_projector": true}},
			{ID: "room-2", ResourceType: "room", ConcurrencyCapacity: 2, AvailabilityCalendarID: "campus"},
		},
		Calendars: []models.Calendar{
			{
				ID:                  "campus",
				TimeslotGranularity: 30 * time.Minute,
				BlackoutPeriods: []models.TimeWindow{
					{Start: time.Date(2026, 3, 4, 0, 0, 0, 0, time.UTC), End: time.Date(2026, 3, 5, 0, 0, 0, 0, time.UTC)},
				},
			},
		},
		InstitutionalCalendarID: "campus",
	}
	if mutate != nil {
		mutate(p)
	}
	require.Empty(t, p.Validate())
	return p.Canonicalize().Context()
}

func candidateAt(start time.Time, resources ...string) *models.Assignment {
	return &models.Assignment{
		RequestID:         "req-1",
		OccurrenceIndex:   0,
		StartTime:         start,
		EndTime:           start.Add(time.Hour),
		CohortID:          "cohort-1",
		AssignedResources: map[string][]string{"room": resources},
	}
}

func TestNoOverlapRespectsCapacity(t *testing.T) {
	start := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	ctx := testContext(t, func(p *models.Problem) {
		p.LockedAssignments = []models.Assignment{
			{RequestID: "req-1", OccurrenceIndex: 1, StartTime: start, EndTime: start.Add(time.Hour),
				AssignedResources: map[string][]string{"room": {"room-1", "room-2"}}},
		}
	})

	c := NoOverlap{}
	// room-1 capacity 1 is exhausted by the locked booking.
	v := c.Check(candidateAt(start.Add(30*time.Minute), "room-1"), nil, ctx)
	require.NotNil(t, v)
	assert.Equal(t, TypeNoOverlap, v.ConstraintType)
	assert.Equal(t, "room-1", v.ResourceID)
	assert.Contains(t, c.Explain(*v), "room-1")

	// room-2 capacity 2 still has headroom.
	assert.Nil(t, c.Check(candidateAt(start.Add(30*time.Minute), "room-2"), nil, ctx))

	// Back-to-back on room-1 is fine.
	assert.Nil(t, c.Check(candidateAt(start.Add(time.Hour), "room-1"), nil, ctx))
}

func TestWithinDateRange(t *testing.T) {
	ctx := testContext(t, nil)
	c := WithinDateRange{}

	inside := candidateAt(time.Date(2026, 3, 3, 9, 0, 0, 0, time.UTC), "room-1")
	assert.Nil(t, c.Check(inside, nil, ctx))

	early := candidateAt(time.Date(2026, 2, 27, 9, 0, 0, 0, time.UTC), "room-1")
	v := c.Check(early, nil, ctx)
	require.NotNil(t, v)
	assert.Equal(t, TypeWithinDateRange, v.ConstraintType)

	late := candidateAt(time.Date(2026, 3, 13, 22, 30, 0, 0, time.UTC), "room-1")
	assert.NotNil(t, c.Check(late, nil, ctx), "end spills past latest_date")
}

func TestBlackoutDates(t *testing.T) {
	ctx := testContext(t, nil)
	c := BlackoutDates{}

	blocked := candidateAt(time.Date(2026, 3, 4, 10, 0, 0, 0, time.UTC), "room-1")
	v := c.Check(blocked, nil, ctx)
	require.NotNil(t, v)
	assert.Equal(t, TypeBlackoutDates, v.ConstraintType)

	// Ending exactly at blackout start is allowed.
	touching := candidateAt(time.Date(2026, 3, 3, 23, 0, 0, 0, time.UTC), "room-1")
	assert.Nil(t, c.Check(touching, nil, ctx))
}

func TestMaxPerDayCountsLocalCalendarDays(t *testing.T) {
	ctx := testContext(t, func(p *models.Problem) {
		p.Calendars[0].TimezoneName = "America/New_York"
	})
	c := MaxPerDay{ResourceID: "room-1", MaxSessions: 2}

	day := time.Date(2026, 3, 3, 0, 0, 0, 0, time.UTC)
	solution := []*models.Assignment{
		candidateAt(day.Add(14*time.Hour), "room-1"),
		candidateAt(day.Add(16*time.Hour), "room-1"),
	}

	v := c.Check(candidateAt(day.Add(18*time.Hour), "room-1"), solution, ctx)
	require.NotNil(t, v)
	assert.Equal(t, TypeMaxPerDay, v.ConstraintType)
	assert.Equal(t, "room-1", v.ResourceID)

	// 03:00 UTC the next day is still 22:00 the previous day in New York,
	// so it lands on the same local day and stays blocked.
	v = c.Check(candidateAt(day.Add(27*time.Hour), "room-1"), solution, ctx)
	assert.NotNil(t, v)

	// 14:00 UTC the next day is a fresh local day.
	assert.Nil(t, c.Check(candidateAt(day.Add(38*time.Hour), "room-1"), solution, ctx))

	// Other resources are outside this rule's scope.
	assert.Nil(t, c.Check(candidateAt(day.Add(18*time.Hour), "room-2"), solution, ctx))
}

func TestMaxPerDayScopesToResourceNotCohort(t *testing.T) {
	ctx := testContext(t, func(p *models.Problem) {
		p.Requests = append(p.Requests, models.SessionRequest{
			ID:                  "req-2",
			Duration:            time.Hour,
			NumberOfOccurrences: 1,
			EarliestDate:        p.Requests[0].EarliestDate,
			LatestDate:          p.Requests[0].LatestDate,
			CohortID:            "cohort-2",
		})
	})
	c := MaxPerDay{ResourceID: "room-1", MaxSessions: 1}

	start := time.Date(2026, 3, 3, 9, 0, 0, 0, time.UTC)
	existing := candidateAt(start, "room-1") // req-1, cohort-1

	// A different request from a different cohort still counts against the
	// same room's daily cap.
	other := &models.Assignment{
		RequestID:         "req-2",
		OccurrenceIndex:   0,
		StartTime:         start.Add(2 * time.Hour),
		EndTime:           start.Add(3 * time.Hour),
		CohortID:          "cohort-2",
		AssignedResources: map[string][]string{"room": {"room-1"}},
	}
	v := c.Check(other, []*models.Assignment{existing}, ctx)
	require.NotNil(t, v)
	assert.Equal(t, "room-1", v.ResourceID)
	assert.Equal(t, "req-2", v.RequestID)
}

func TestMinGapBetweenOccurrences(t *testing.T) {
	c := MinGapBetweenOccurrences{MinGap: 24 * time.Hour}
	ctx := testContext(t, nil)

	first := candidateAt(time.Date(2026, 3, 3, 9, 0, 0, 0, time.UTC))
	first.OccurrenceIndex = 0
	solution := []*models.Assignment{first}

	second := candidateAt(time.Date(2026, 3, 3, 15, 0, 0, 0, time.UTC))
	second.OccurrenceIndex = 1
	v := c.Check(second, solution, ctx)
	require.NotNil(t, v)
	assert.Equal(t, TypeMinGapBetweenOccurrences, v.ConstraintType)

	farEnough := candidateAt(time.Date(2026, 3, 4, 10, 0, 0, 0, time.UTC))
	farEnough.OccurrenceIndex = 1
	assert.Nil(t, c.Check(farEnough, solution, ctx))

	// Gap also applies looking backward in time.
	before := candidateAt(time.Date(2026, 3, 3, 6, 0, 0, 0, time.UTC))
	before.OccurrenceIndex = 2
	assert.NotNil(t, c.Check(before, solution, ctx))

	// A rule scoped to another request leaves this one alone.
	scoped := MinGapBetweenOccurrences{RequestID: "req-other", MinGap: 24 * time.Hour}
	assert.Nil(t, scoped.Check(second, solution, ctx))
}

func TestAttributeMatch(t *testing.T) {
	ctx := testContext(t, nil)
	c := AttributeMatch{}

	start := time.Date(2026, 3, 3, 9, 0, 0, 0, time.UTC)
	assert.Nil(t, c.Check(candidateAt(start, "room-1"), nil, ctx))

	v := c.Check(candidateAt(start, "room-2"), nil, ctx)
	require.NotNil(t, v)
	assert.Equal(t, TypeAttributeMatch, v.ConstraintType)
	assert.Equal(t, "room-2", v.ResourceID)
}

func TestBuildFromSpecs(t *testing.T) {
	built, err := BuildAll([]Spec{
		{Type: TypeNoOverlap},
		{Type: TypeMaxPerDay, Params: map[string]interface{}{"resource_id": "room-1", "max_sessions": float64(3)}},
		{Type: TypeMinGapBetweenOccurrences, Params: map[string]interface{}{"min_gap": "48h"}},
		{Type: TypeMinGapBetweenOccurrences, Params: map[string]interface{}{"min_gap": float64(3600), "request_id": "req-1"}},
	})
	require.NoError(t, err)
	require.Len(t, built, 4)
	assert.Equal(t, MaxPerDay{ResourceID: "room-1", MaxSessions: 3}, built[1])
	assert.Equal(t, MinGapBetweenOccurrences{MinGap: 48 * time.Hour}, built[2])
	assert.Equal(t, MinGapBetweenOccurrences{RequestID: "req-1", MinGap: time.Hour}, built[3])

	_, err = Build(Spec{Type: "hard.unknown"})
	assert.Error(t, err)

	_, err = Build(Spec{Type: TypeMaxPerDay, Params: map[string]interface{}{"max_sessions": float64(3)}})
	assert.Error(t, err, "resource_id is required")

	_, err = Build(Spec{Type: TypeMaxPerDay, Params: map[string]interface{}{"resource_id": "room-1", "max_sessions": 0}})
	assert.Error(t, err)

	_, err = Build(Spec{Type: TypeMinGapBetweenOccurrences})
	assert.Error(t, err)
}
