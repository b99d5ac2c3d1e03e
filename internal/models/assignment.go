package models

import (
	"sort"
	"time"
)

// Assignment places one occurrence of a SessionRequest into a concrete time
// range with bound resources. Assignments are never mutated once created;
// rescheduling produces a replacement.
type Assignment struct {
	RequestID       string    `json:"request_id"`
	OccurrenceIndex int       `json:"occurrence_index"`
	StartTime       time.Time `json:"start_time"`
	EndTime         time.Time `json:"end_time"`

	// AssignedResources maps resource_type to the bound resource
	// identifiers, supporting multiple resources of the same type.
	AssignedResources map[string][]string `json:"assigned_resources"`
	CohortID          string              `json:"cohort_id,omitempty"`
}

// Window returns the assignment's half-open time range.
func (a *Assignment) Window() TimeWindow {
	return TimeWindow{Start: a.StartTime, End: a.EndTime}
}

// Overlaps reports half-open interval overlap with another assignment.
func (a *Assignment) Overlaps(other *Assignment) bool {
	return a.StartTime.Before(other.EndTime) && a.EndTime.After(other.StartTime)
}

// Binds reports whether the assignment uses the given resource.
func (a *Assignment) Binds(resourceID string) bool {
	for _, ids := range a.AssignedResources {
		for _, id := range ids {
			if id == resourceID {
				return true
			}
		}
	}
	return false
}

// ResourceIDs returns all bound resource identifiers, sorted for
// deterministic iteration.
func (a *Assignment) ResourceIDs() []string {
	var ids []string
	for _, group := range a.AssignedResources {
		ids = append(ids, group...)
	}
	sort.Strings(ids)
	return ids
}

// Equal reports field-level equality, used to verify lock preservation.
func (a *Assignment) Equal(other *Assignment) bool {
	if a.RequestID != other.RequestID ||
		a.OccurrenceIndex != other.OccurrenceIndex ||
		!a.StartTime.Equal(other.StartTime) ||
		!a.EndTime.Equal(other.EndTime) ||
		a.CohortID != other.CohortID ||
		len(a.AssignedResources) != len(other.AssignedResources) {
		return false
	}
	for resType, ids := range a.AssignedResources {
		otherIDs, ok := other.AssignedResources[resType]
		if !ok || len(ids) != len(otherIDs) {
			return false
		}
		for i := range ids {
			if ids[i] != otherIDs[i] {
				return false
			}
		}
	}
	return true
}

// Validate checks assignment invariants in isolation. Cross-entity checks
// (resource references, duration match) live in Problem.Validate.
func (a *Assignment) Validate() []ValidationError {
	var errs []ValidationError
	if a.RequestID == "" {
		errs = append(errs, newValidationError("assignment.request_id", "non-empty identifier", a.RequestID))
	}
	if a.OccurrenceIndex < 0 {
		errs = append(errs, newValidationError(
			"assignment."+a.RequestID+".occurrence_index", "integer >= 0", a.OccurrenceIndex))
	}
	if a.StartTime.IsZero() || a.EndTime.IsZero() {
		errs = append(errs, newValidationError(
			"assignment."+a.RequestID+".times",
			"timezone-aware instants (RFC 3339 with offset)", "zero time"))
	} else if !a.StartTime.Before(a.EndTime) {
		errs = append(errs, newValidationError(
			"assignment."+a.RequestID+".times", "start_time < end_time",
			a.StartTime.String()+" >= "+a.EndTime.String()))
	}
	return errs
}
