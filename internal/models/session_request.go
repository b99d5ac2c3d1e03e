package models

import "time"

// Modality describes how a session is delivered.
type Modality string

const (
	ModalityOnline   Modality = "online"
	ModalityInPerson Modality = "in_person"
	ModalityHybrid   Modality = "hybrid"
)

func (m Modality) valid() bool {
	switch m {
	case ModalityOnline, ModalityInPerson, ModalityHybrid:
		return true
	}
	return false
}

// SessionRequest is a demand to schedule N occurrences of an activity.
// It is immutable once handed to the solver; occurrences are realized as
// separate Assignment values.
type SessionRequest struct {
	ID                  string                 `json:"id"`
	Duration            time.Duration          `json:"duration"`
	NumberOfOccurrences int                    `json:"number_of_occurrences"`
	EarliestDate        time.Time              `json:"earliest_date"`
	LatestDate          time.Time              `json:"latest_date"`
	CohortID            string                 `json:"cohort_id,omitempty"`
	Modality            Modality               `json:"modality"`
	RequiredAttributes  map[string]interface{} `json:"required_attributes,omitempty"`

	// RequiredResourceTypes maps resource_type to how many resources of
	// that type each occurrence needs. Empty means one resource of any
	// qualifying type.
	RequiredResourceTypes map[string]int `json:"required_resource_types,omitempty"`
}

// Validate checks request invariants, collecting every violation so the
// caller can correct them in one pass.
func (r *SessionRequest) Validate() []ValidationError {
	var errs []ValidationError

	if r.ID == "" {
		errs = append(errs, newValidationError("request.id", "non-empty identifier", r.ID))
	}
	if r.EarliestDate.IsZero() {
		errs = append(errs, newValidationError(
			"request."+r.ID+".earliest_date",
			"timezone-aware instant (RFC 3339 with offset)", "zero time"))
	}
	if r.LatestDate.IsZero() {
		errs = append(errs, newValidationError(
			"request."+r.ID+".latest_date",
			"timezone-aware instant (RFC 3339 with offset)", "zero time"))
	}
	if !r.EarliestDate.IsZero() && !r.LatestDate.IsZero() && r.EarliestDate.After(r.LatestDate) {
		errs = append(errs, newValidationError(
			"request."+r.ID+".date_range", "earliest_date <= latest_date",
			r.EarliestDate.String()+" > "+r.LatestDate.String()))
	}
	if r.Duration <= 0 {
		errs = append(errs, newValidationError(
			"request."+r.ID+".duration", "positive duration", r.Duration))
	}
	if r.NumberOfOccurrences <= 0 {
		errs = append(errs, newValidationError(
			"request."+r.ID+".number_of_occurrences", "positive integer", r.NumberOfOccurrences))
	}
	if r.Modality != "" && !r.Modality.valid() {
		errs = append(errs, newValidationError(
			"request."+r.ID+".modality", "one of online|in_person|hybrid", string(r.Modality)))
	}
	for resType, count := range r.RequiredResourceTypes {
		if count <= 0 {
			errs = append(errs, newValidationError(
				"request."+r.ID+".required_resource_types."+resType, "positive count", count))
		}
	}
	return errs
}
