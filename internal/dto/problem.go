// Package dto defines the wire payloads and their mapping onto the domain
// model. Binding tags handle structural validation; domain invariants are
// re-checked by Problem.Validate after mapping.
package dto

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/campussched/campussched-api/internal/constraints"
	"github.com/campussched/campussched-api/internal/models"
	"github.com/campussched/campussched-api/internal/objectives"
	"github.com/campussched/campussched-api/pkg/errors"
)

// Duration accepts either a Go duration string ("1h30m") or a number of
// seconds, which is how JSON clients tend to spell durations.
type Duration time.Duration

func (d *Duration) UnmarshalJSON(raw []byte) error {
	var asString string
	if err := json.Unmarshal(raw, &asString); err == nil {
		parsed, err := time.ParseDuration(asString)
		if err != nil {
			return fmt.Errorf("invalid duration %q: %w", asString, err)
		}
		*d = Duration(parsed)
		return nil
	}
	var seconds float64
	if err := json.Unmarshal(raw, &seconds); err != nil {
		return fmt.Errorf("duration must be a string or seconds: %s", string(raw))
	}
	*d = Duration(seconds * float64(time.Second))
	return nil
}

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

// TimeWindow is a half-open [start, end) range on the wire.
type TimeWindow struct {
	Start time.Time `json:"start" binding:"required"`
	End   time.Time `json:"end" binding:"required"`
}

// Calendar mirrors models.Calendar on the wire.
type Calendar struct {
	ID                  string       `json:"id" binding:"required"`
	Timezone            string       `json:"timezone,omitempty" binding:"omitempty,iana_tz"`
	TimeslotGranularity Duration     `json:"timeslot_granularity" binding:"required"`
	AvailabilityWindows []TimeWindow `json:"availability_windows,omitempty" binding:"omitempty,dive"`
	BlackoutPeriods     []TimeWindow `json:"blackout_periods,omitempty" binding:"omitempty,dive"`
}

// Resource mirrors models.Resource on the wire.
type Resource struct {
	ID                     string                 `json:"id" binding:"required"`
	ResourceType           string                 `json:"resource_type" binding:"required"`
	ConcurrencyCapacity    int                    `json:"concurrency_capacity" binding:"omitempty,min=1"`
	Attributes             map[string]interface{} `json:"attributes,omitempty"`
	AvailabilityCalendarID string                 `json:"availability_calendar_id,omitempty"`
}

// SessionRequest mirrors models.SessionRequest on the wire.
type SessionRequest struct {
	ID                    string                 `json:"id" binding:"required"`
	Duration              Duration               `json:"duration" binding:"required"`
	NumberOfOccurrences   int                    `json:"number_of_occurrences" binding:"required,min=1"`
	EarliestDate          time.Time              `json:"earliest_date" binding:"required"`
	LatestDate            time.Time              `json:"latest_date" binding:"required"`
	CohortID              string                 `json:"cohort_id,omitempty"`
	Modality              string                 `json:"modality,omitempty" binding:"omitempty,oneof=online in_person hybrid"`
	RequiredAttributes    map[string]interface{} `json:"required_attributes,omitempty"`
	RequiredResourceTypes map[string]int         `json:"required_resource_types,omitempty"`
}

// Assignment mirrors models.Assignment on the wire, used for locked input.
type Assignment struct {
	RequestID         string              `json:"request_id" binding:"required"`
	OccurrenceIndex   int                 `json:"occurrence_index" binding:"min=0"`
	StartTime         time.Time           `json:"start_time" binding:"required"`
	EndTime           time.Time           `json:"end_time" binding:"required"`
	AssignedResources map[string][]string `json:"assigned_resources" binding:"required"`
	CohortID          string              `json:"cohort_id,omitempty"`
}

// Problem is the complete scheduling scenario on the wire.
type Problem struct {
	Requests                []SessionRequest   `json:"requests" binding:"required,min=1,dive"`
	Resources               []Resource         `json:"resources" binding:"required,min=1,dive"`
	Calendars               []Calendar         `json:"calendars,omitempty" binding:"omitempty,dive"`
	Constraints             []constraints.Spec `json:"constraints,omitempty" binding:"omitempty,dive"`
	Objectives              []objectives.Spec  `json:"objectives,omitempty" binding:"omitempty,dive"`
	LockedAssignments       []Assignment       `json:"locked_assignments,omitempty" binding:"omitempty,dive"`
	InstitutionalCalendarID string             `json:"institutional_calendar_id,omitempty"`
}

// ToModel maps the wire problem onto the domain model, instantiating the
// requested constraints and objectives.
func (p *Problem) ToModel() (*models.Problem, error) {
	out := &models.Problem{
		InstitutionalCalendarID: p.InstitutionalCalendarID,
	}

	for _, r := range p.Requests {
		out.Requests = append(out.Requests, models.SessionRequest{
			ID:                    r.ID,
			Duration:              time.Duration(r.Duration),
			NumberOfOccurrences:   r.NumberOfOccurrences,
			EarliestDate:          r.EarliestDate,
			LatestDate:            r.LatestDate,
			CohortID:              r.CohortID,
			Modality:              models.Modality(r.Modality),
			RequiredAttributes:    r.RequiredAttributes,
			RequiredResourceTypes: r.RequiredResourceTypes,
		})
	}
	for _, r := range p.Resources {
		capacity := r.ConcurrencyCapacity
		if capacity == 0 {
			capacity = 1
		}
		out.Resources = append(out.Resources, models.Resource{
			ID:                     r.ID,
			ResourceType:           r.ResourceType,
			ConcurrencyCapacity:    capacity,
			Attributes:             r.Attributes,
			AvailabilityCalendarID: r.AvailabilityCalendarID,
		})
	}
	for _, c := range p.Calendars {
		cal := models.Calendar{
			ID:                  c.ID,
			TimezoneName:        c.Timezone,
			TimeslotGranularity: time.Duration(c.TimeslotGranularity),
		}
		for _, w := range c.AvailabilityWindows {
			cal.AvailabilityWindows = append(cal.AvailabilityWindows, models.TimeWindow{Start: w.Start, End: w.End})
		}
		for _, b := range c.BlackoutPeriods {
			cal.BlackoutPeriods = append(cal.BlackoutPeriods, models.TimeWindow{Start: b.Start, End: b.End})
		}
		out.Calendars = append(out.Calendars, cal)
	}
	for _, a := range p.LockedAssignments {
		out.LockedAssignments = append(out.LockedAssignments, models.Assignment{
			RequestID:         a.RequestID,
			OccurrenceIndex:   a.OccurrenceIndex,
			StartTime:         a.StartTime,
			EndTime:           a.EndTime,
			AssignedResources: a.AssignedResources,
			CohortID:          a.CohortID,
		})
	}

	built, err := constraints.BuildAll(p.Constraints)
	if err != nil {
		return nil, err
	}
	out.Constraints = built

	objs, err := objectives.BuildAll(p.Objectives)
	if err != nil {
		return nil, err
	}
	out.Objectives = objs

	if errs := out.Validate(); len(errs) > 0 {
		return nil, errors.Wrap(models.ValidationErrors(errs),
			errors.ErrValidation.Code, errors.ErrValidation.Status, "invalid problem")
	}
	return out, nil
}
