package dto

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campussched/campussched-api/internal/constraints"
	"github.com/campussched/campussched-api/internal/objectives"
)

func TestDurationUnmarshal(t *testing.T) {
	var d Duration
	require.NoError(t, json.Unmarshal([]byte(`"1h30m"`), &d))
	assert.Equal(t, 90*time.Minute, time.Duration(d))

	require.NoError(t, json.Unmarshal([]byte(`3600`), &d))
	assert.Equal(t, time.Hour, time.Duration(d))

	assert.Error(t, json.Unmarshal([]byte(`"ninety minutes"`), &d))
	assert.Error(t, json.Unmarshal([]byte(`true`), &d))

	raw, err := json.Marshal(Duration(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, `"1h0m0s"`, string(raw))
}

func TestProblemToModel(t *testing.T) {
	day := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	payload := Problem{
		Requests: []SessionRequest{{
			ID:                  "req-a",
			Duration:            Duration(time.Hour),
			NumberOfOccurrences: 2,
			EarliestDate:        day,
			LatestDate:          day.Add(7 * 24 * time.Hour),
			Modality:            "in_person",
		}},
		Resources: []Resource{
			{ID: "room-1", ResourceType: "room"}, // capacity omitted
		},
		Calendars: []Calendar{{
			ID:                  "campus",
			Timezone:            "America/New_York",
			TimeslotGranularity: Duration(30 * time.Minute),
		}},
		Constraints: []constraints.Spec{
			{Type: constraints.TypeMaxPerDay, Params: map[string]interface{}{"resource_id": "room-1", "max_sessions": float64(2)}},
		},
		Objectives: []objectives.Spec{
			{Type: objectives.TypeMinimizeEveningSessions, Weight: 0.5},
		},
		InstitutionalCalendarID: "campus",
	}

	problem, err := payload.ToModel()
	require.NoError(t, err)
	assert.Equal(t, 1, problem.Resources[0].ConcurrencyCapacity, "capacity defaults to 1")
	assert.Equal(t, time.Hour, problem.Requests[0].Duration)
	require.Len(t, problem.Constraints, 1)
	assert.Equal(t, constraints.TypeMaxPerDay, problem.Constraints[0].Type())
	require.Len(t, problem.Objectives, 1)
	assert.Equal(t, 0.5, problem.Objectives[0].Weight())
}

func TestProblemToModelRejectsInvalid(t *testing.T) {
	payload := Problem{
		Requests: []SessionRequest{{
			ID:                  "req-a",
			Duration:            Duration(time.Hour),
			NumberOfOccurrences: 1,
			EarliestDate:        time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC),
			LatestDate:          time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC), // inverted
		}},
		Resources: []Resource{{ID: "room-1", ResourceType: "room"}},
	}
	_, err := payload.ToModel()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid problem")

	payload.Requests[0].LatestDate = time.Date(2026, 3, 16, 0, 0, 0, 0, time.UTC)
	payload.Constraints = []constraints.Spec{{Type: "hard.unknown"}}
	_, err = payload.ToModel()
	assert.Error(t, err)
}
