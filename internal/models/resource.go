package models

// Resource is a bookable entity: a room, an instructor, an online slot.
type Resource struct {
	ID                     string                 `json:"id"`
	ResourceType           string                 `json:"resource_type"`
	ConcurrencyCapacity    int                    `json:"concurrency_capacity"`
	Attributes             map[string]interface{} `json:"attributes,omitempty"`
	AvailabilityCalendarID string                 `json:"availability_calendar_id,omitempty"`
}

// CanSatisfy reports whether every requirement key is present on the
// resource with an equal value. Boolean requirement flags accept any truthy
// attribute value. Requirement keys absent from the resource fail the match.
//
// Called once per (request, resource) pair during index construction and
// again inside the AttributeMatch constraint, so it allocates nothing.
func (r *Resource) CanSatisfy(requirements map[string]interface{}) bool {
	for key, want := range requirements {
		got, ok := r.Attributes[key]
		if !ok {
			return false
		}
		if flag, isBool := want.(bool); isBool && flag {
			if !truthy(got) {
				return false
			}
			continue
		}
		if !scalarEqual(want, got) {
			return false
		}
	}
	return true
}

// Validate checks resource invariants.
func (r *Resource) Validate() []ValidationError {
	var errs []ValidationError
	if r.ID == "" {
		errs = append(errs, newValidationError("resource.id", "non-empty identifier", r.ID))
	}
	if r.ResourceType == "" {
		errs = append(errs, newValidationError(
			"resource."+r.ID+".resource_type", "non-empty type tag", r.ResourceType))
	}
	if r.ConcurrencyCapacity < 1 {
		errs = append(errs, newValidationError(
			"resource."+r.ID+".concurrency_capacity", "integer >= 1", r.ConcurrencyCapacity))
	}
	return errs
}

func truthy(v interface{}) bool {
	switch val := v.(type) {
	case bool:
		return val
	case string:
		return val != ""
	case int:
		return val != 0
	case int64:
		return val != 0
	case float64:
		return val != 0
	default:
		return v != nil
	}
}

// scalarEqual compares attribute values, tolerating the int/float64 split
// that JSON decoding introduces.
func scalarEqual(a, b interface{}) bool {
	if af, ok := toFloat(a); ok {
		if bf, ok := toFloat(b); ok {
			return af == bf
		}
		return false
	}
	return a == b
}

func toFloat(v interface{}) (float64, bool) {
	switch val := v.(type) {
	case int:
		return float64(val), true
	case int32:
		return float64(val), true
	case int64:
		return float64(val), true
	case float32:
		return float64(val), true
	case float64:
		return val, true
	default:
		return 0, false
	}
}
