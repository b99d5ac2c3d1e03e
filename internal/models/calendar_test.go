package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTimeWindowOverlaps(t *testing.T) {
	base := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	w := TimeWindow{Start: base, End: base.Add(time.Hour)}

	assert.True(t, w.Overlaps(TimeWindow{Start: base.Add(30 * time.Minute), End: base.Add(90 * time.Minute)}))
	assert.True(t, w.Overlaps(TimeWindow{Start: base.Add(-30 * time.Minute), End: base.Add(30 * time.Minute)}))

	// Back-to-back windows share an endpoint but no instant.
	assert.False(t, w.Overlaps(TimeWindow{Start: base.Add(time.Hour), End: base.Add(2 * time.Hour)}))
	assert.False(t, w.Overlaps(TimeWindow{Start: base.Add(-time.Hour), End: base}))
}

func TestCalendarIsAvailable(t *testing.T) {
	loc, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)

	dayStart := time.Date(2026, 3, 2, 8, 0, 0, 0, loc)
	cal := &Calendar{
		ID:                  "campus",
		Timezone:            loc,
		TimeslotGranularity: 30 * time.Minute,
		AvailabilityWindows: []TimeWindow{
			{Start: dayStart, End: dayStart.Add(10 * time.Hour)},
		},
		BlackoutPeriods: []TimeWindow{
			{Start: dayStart.Add(4 * time.Hour), End: dayStart.Add(5 * time.Hour)},
		},
	}

	assert.True(t, cal.IsAvailable(dayStart.Add(time.Hour), dayStart.Add(2*time.Hour)))
	assert.False(t, cal.IsAvailable(dayStart.Add(-time.Hour), dayStart.Add(time.Hour)), "starts before the window")
	assert.False(t, cal.IsAvailable(dayStart.Add(4*time.Hour+30*time.Minute), dayStart.Add(5*time.Hour+30*time.Minute)), "intersects blackout")

	// Ending exactly when the blackout starts is allowed: half-open ranges.
	assert.True(t, cal.IsAvailable(dayStart.Add(3*time.Hour), dayStart.Add(4*time.Hour)))
}

func TestCalendarNoWindowsAlwaysAvailableExceptBlackouts(t *testing.T) {
	day := time.Date(2026, 6, 15, 0, 0, 0, 0, time.UTC)
	cal := &Calendar{
		ID:                  "open",
		TimeslotGranularity: time.Hour,
		BlackoutPeriods: []TimeWindow{
			{Start: day.Add(12 * time.Hour), End: day.Add(13 * time.Hour)},
		},
	}

	assert.True(t, cal.IsAvailable(day.Add(2*time.Hour), day.Add(3*time.Hour)))
	assert.True(t, cal.IsAvailable(day.Add(22*time.Hour), day.Add(23*time.Hour)))
	assert.False(t, cal.IsAvailable(day.Add(12*time.Hour+15*time.Minute), day.Add(12*time.Hour+45*time.Minute)))
}

func TestCalendarAlignment(t *testing.T) {
	cal := &Calendar{ID: "campus", TimeslotGranularity: 30 * time.Minute}

	aligned := time.Date(2026, 3, 2, 9, 30, 0, 0, time.UTC)
	assert.True(t, cal.IsAligned(aligned))
	assert.False(t, cal.IsAligned(aligned.Add(10*time.Minute)))

	assert.Equal(t, aligned, cal.AlignUp(aligned))
	assert.Equal(t, aligned.Add(30*time.Minute), cal.AlignUp(aligned.Add(time.Minute)))
}

func TestCalendarLocationDefaultsToUTC(t *testing.T) {
	cal := &Calendar{ID: "bare", TimeslotGranularity: time.Hour}
	assert.Equal(t, time.UTC, cal.Location())

	named := &Calendar{ID: "ny", TimezoneName: "America/New_York", TimeslotGranularity: time.Hour}
	assert.Equal(t, "America/New_York", named.Location().String())
}

func TestCalendarValidate(t *testing.T) {
	bad := &Calendar{
		TimezoneName: "Mars/Olympus_Mons",
		AvailabilityWindows: []TimeWindow{
			{Start: time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC), End: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)},
		},
	}
	errs := bad.Validate()
	fields := make([]string, len(errs))
	for i, e := range errs {
		fields[i] = e.Field
	}
	assert.Contains(t, fields, "calendar.id")
	assert.Contains(t, fields, "calendar..timeslot_granularity")
	assert.Contains(t, fields, "calendar..timezone")
	assert.Contains(t, fields, "calendar..availability_windows")
}
