package objectives

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campussched/campussched-api/internal/models"
)

func objectiveContext(t *testing.T) *models.ConstraintContext {
	t.Helper()
	p := &models.Problem{
		Requests: []models.SessionRequest{
			{
				ID:                  "req-1",
				Duration:            time.Hour,
				NumberOfOccurrences: 4,
				EarliestDate:        time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC),
				LatestDate:          time.Date(2026, 3, 30, 0, 0, 0, 0, time.UTC),
			},
		},
		Resources: []models.Resource{
			{ID: "inst-1", ResourceType: "instructor", ConcurrencyCapacity: 1},
			{ID: "inst-2", ResourceType: "instructor", ConcurrencyCapacity: 1},
			{ID: "room-1", ResourceType: "room", ConcurrencyCapacity: 1},
		},
		Calendars: []models.Calendar{
			{ID: "campus", TimeslotGranularity: time.Hour, TimezoneName: "America/New_York"},
		},
		InstitutionalCalendarID: "campus",
	}
	require.Empty(t, p.Validate())
	return p.Canonicalize().Context()
}

func assignmentAt(start time.Time, occ int, instructor string) *models.Assignment {
	a := &models.Assignment{
		RequestID:         "req-1",
		OccurrenceIndex:   occ,
		StartTime:         start,
		EndTime:           start.Add(time.Hour),
		AssignedResources: map[string][]string{},
	}
	if instructor != "" {
		a.AssignedResources["instructor"] = []string{instructor}
	}
	return a
}

func TestAllObjectivesScoreEmptySolutionInRange(t *testing.T) {
	ctx := objectiveContext(t)
	for _, obj := range Defaults() {
		score := obj.Score(nil, ctx)
		assert.GreaterOrEqual(t, score, 0.0, obj.Type())
		assert.LessOrEqual(t, score, 1.0, obj.Type())
	}
}

func TestSpreadEvenlyAcrossTerm(t *testing.T) {
	ctx := objectiveContext(t)
	obj := SpreadEvenlyAcrossTerm{W: 1}
	termStart := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)

	// Four occurrences at week intervals sit close to the ideal split.
	even := []*models.Assignment{
		assignmentAt(termStart.Add(3*24*time.Hour+12*time.Hour), 0, ""),
		assignmentAt(termStart.Add(10*24*time.Hour+12*time.Hour), 1, ""),
		assignmentAt(termStart.Add(17*24*time.Hour+12*time.Hour), 2, ""),
		assignmentAt(termStart.Add(24*24*time.Hour+12*time.Hour), 3, ""),
	}
	// All four crammed into the first two days.
	clustered := []*models.Assignment{
		assignmentAt(termStart.Add(9*time.Hour), 0, ""),
		assignmentAt(termStart.Add(11*time.Hour), 1, ""),
		assignmentAt(termStart.Add(33*time.Hour), 2, ""),
		assignmentAt(termStart.Add(35*time.Hour), 3, ""),
	}

	evenScore := obj.Score(even, ctx)
	clusteredScore := obj.Score(clustered, ctx)
	assert.Greater(t, evenScore, clusteredScore)
	assert.InDelta(t, 1.0, evenScore, 0.05)
	for _, s := range []float64{evenScore, clusteredScore} {
		assert.GreaterOrEqual(t, s, 0.0)
		assert.LessOrEqual(t, s, 1.0)
	}
}

func TestMinimizeEveningSessionsUsesLocalTime(t *testing.T) {
	ctx := objectiveContext(t)
	obj := MinimizeEveningSessions{W: 1}

	// 15:00 UTC is 10:00 in New York: daytime.
	day := assignmentAt(time.Date(2026, 3, 3, 15, 0, 0, 0, time.UTC), 0, "")
	// 23:00 UTC is 18:00 in New York: evening.
	evening := assignmentAt(time.Date(2026, 3, 3, 23, 0, 0, 0, time.UTC), 1, "")

	assert.Equal(t, 1.0, obj.Score([]*models.Assignment{day}, ctx))
	assert.Equal(t, 0.0, obj.Score([]*models.Assignment{evening}, ctx))
	assert.Equal(t, 0.5, obj.Score([]*models.Assignment{day, evening}, ctx))
}

func TestMinimizeEveningSessionsConfigurableThreshold(t *testing.T) {
	ctx := objectiveContext(t)

	// 23:00 UTC is 18:00 in New York: evening under the default threshold,
	// daytime once the threshold moves to 20:00.
	session := assignmentAt(time.Date(2026, 3, 3, 23, 0, 0, 0, time.UTC), 0, "")
	relaxed := MinimizeEveningSessions{W: 1, Threshold: 20 * time.Hour}
	assert.Equal(t, 1.0, relaxed.Score([]*models.Assignment{session}, ctx))

	strict := MinimizeEveningSessions{W: 1, Threshold: 12 * time.Hour}
	assert.Equal(t, 0.0, strict.Score([]*models.Assignment{session}, ctx))
}

func TestBalanceInstructorLoad(t *testing.T) {
	ctx := objectiveContext(t)
	obj := BalanceInstructorLoad{W: 1}
	start := time.Date(2026, 3, 3, 10, 0, 0, 0, time.UTC)

	balanced := []*models.Assignment{
		assignmentAt(start, 0, "inst-1"),
		assignmentAt(start.Add(2*time.Hour), 1, "inst-2"),
	}
	lopsided := []*models.Assignment{
		assignmentAt(start, 0, "inst-1"),
		assignmentAt(start.Add(2*time.Hour), 1, "inst-1"),
	}

	assert.Equal(t, 1.0, obj.Score(balanced, ctx))
	assert.Greater(t, obj.Score(balanced, ctx), obj.Score(lopsided, ctx))
	assert.Equal(t, 1.0, obj.Score(nil, ctx))
}

func TestCompositeScoreWeightsSum(t *testing.T) {
	ctx := objectiveContext(t)
	objs := []models.Objective{
		MinimizeEveningSessions{W: 2},
		BalanceInstructorLoad{W: 1},
	}
	solution := []*models.Assignment{
		assignmentAt(time.Date(2026, 3, 3, 15, 0, 0, 0, time.UTC), 0, "inst-1"),
		assignmentAt(time.Date(2026, 3, 4, 15, 0, 0, 0, time.UTC), 1, "inst-2"),
	}
	score := models.CompositeScore(objs, solution, ctx)
	assert.Equal(t, 3.0, score, "unnormalized weighted sum")
}

func TestBuildObjectiveSpecs(t *testing.T) {
	built, err := BuildAll([]Spec{
		{Type: TypeSpreadEvenlyAcrossTerm, Weight: 0.5},
		{Type: TypeMinimizeEveningSessions},
		{Type: TypeMinimizeEveningSessions, Params: map[string]interface{}{"evening_threshold": "19:30"}},
		{Type: TypeMinimizeEveningSessions, Params: map[string]interface{}{"evening_threshold": float64(18)}},
		{Type: TypeBalanceInstructorLoad, Params: map[string]interface{}{"resource_type": "room"}},
	})
	require.NoError(t, err)
	require.Len(t, built, 5)
	assert.Equal(t, 0.5, built[0].Weight())
	assert.Equal(t, 1.0, built[1].Weight(), "zero weight defaults to 1")
	assert.Equal(t, MinimizeEveningSessions{W: 1, Threshold: 19*time.Hour + 30*time.Minute}, built[2])
	assert.Equal(t, MinimizeEveningSessions{W: 1, Threshold: 18 * time.Hour}, built[3])
	assert.Equal(t, BalanceInstructorLoad{W: 1, ResourceType: "room"}, built[4])

	_, err = Build(Spec{Type: "soft.unknown"})
	assert.Error(t, err)
	_, err = Build(Spec{Type: TypeSpreadEvenlyAcrossTerm, Weight: -1})
	assert.Error(t, err)
	_, err = Build(Spec{Type: TypeMinimizeEveningSessions, Params: map[string]interface{}{"evening_threshold": "late"}})
	assert.Error(t, err)
}
