package constraints

import (
	"fmt"
	"time"

	"github.com/campussched/campussched-api/internal/models"
	"github.com/campussched/campussched-api/pkg/errors"
)

// Spec is the wire-level description of one constraint: a type tag plus
// type-specific parameters.
type Spec struct {
	Type   string                 `json:"type" binding:"required"`
	Params map[string]interface{} `json:"params,omitempty"`
}

// Build instantiates a constraint from its wire spec.
func Build(spec Spec) (models.Constraint, error) {
	switch spec.Type {
	case TypeNoOverlap:
		return NoOverlap{}, nil
	case TypeWithinDateRange:
		return WithinDateRange{}, nil
	case TypeBlackoutDates:
		return BlackoutDates{}, nil
	case TypeAttributeMatch:
		return AttributeMatch{}, nil
	case TypeMaxPerDay:
		resourceID, err := stringParam(spec.Params, "resource_id")
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrValidation.Code, errors.ErrValidation.Status,
				spec.Type+": invalid params")
		}
		max, err := intParam(spec.Params, "max_sessions")
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrValidation.Code, errors.ErrValidation.Status,
				spec.Type+": invalid params")
		}
		if max < 1 {
			return nil, errors.New(errors.ErrValidation.Code, errors.ErrValidation.Status,
				spec.Type+": max_sessions must be >= 1")
		}
		return MaxPerDay{ResourceID: resourceID, MaxSessions: max}, nil
	case TypeMinGapBetweenOccurrences:
		gap, err := durationParam(spec.Params, "min_gap")
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrValidation.Code, errors.ErrValidation.Status,
				spec.Type+": invalid params")
		}
		if gap <= 0 {
			return nil, errors.New(errors.ErrValidation.Code, errors.ErrValidation.Status,
				spec.Type+": min_gap must be positive")
		}
		requestID := ""
		if raw, ok := spec.Params["request_id"]; ok {
			s, isString := raw.(string)
			if !isString {
				return nil, errors.New(errors.ErrValidation.Code, errors.ErrValidation.Status,
					spec.Type+": request_id must be a string")
			}
			requestID = s
		}
		return MinGapBetweenOccurrences{RequestID: requestID, MinGap: gap}, nil
	default:
		return nil, errors.New(errors.ErrValidation.Code, errors.ErrValidation.Status,
			fmt.Sprintf("unknown constraint type %q", spec.Type))
	}
}

// BuildAll instantiates every spec, failing on the first invalid one.
func BuildAll(specs []Spec) ([]models.Constraint, error) {
	out := make([]models.Constraint, 0, len(specs))
	for _, s := range specs {
		c, err := Build(s)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

func stringParam(params map[string]interface{}, key string) (string, error) {
	v, ok := params[key]
	if !ok {
		return "", fmt.Errorf("missing parameter %q", key)
	}
	s, ok := v.(string)
	if !ok || s == "" {
		return "", fmt.Errorf("parameter %q: expected non-empty string, got %v", key, v)
	}
	return s, nil
}

func intParam(params map[string]interface{}, key string) (int, error) {
	v, ok := params[key]
	if !ok {
		return 0, fmt.Errorf("missing parameter %q", key)
	}
	switch val := v.(type) {
	case int:
		return val, nil
	case int64:
		return int(val), nil
	case float64:
		return int(val), nil
	default:
		return 0, fmt.Errorf("parameter %q: expected integer, got %T", key, v)
	}
}

// durationParam accepts either a Go duration string ("48h") or a number of
// seconds, matching how JSON clients tend to spell durations.
func durationParam(params map[string]interface{}, key string) (time.Duration, error) {
	v, ok := params[key]
	if !ok {
		return 0, fmt.Errorf("missing parameter %q", key)
	}
	switch val := v.(type) {
	case string:
		d, err := time.ParseDuration(val)
		if err != nil {
			return 0, fmt.Errorf("parameter %q: %w", key, err)
		}
		return d, nil
	case float64:
		return time.Duration(val * float64(time.Second)), nil
	case int:
		return time.Duration(val) * time.Second, nil
	case int64:
		return time.Duration(val) * time.Second, nil
	default:
		return 0, fmt.Errorf("parameter %q: expected duration string or seconds, got %T", key, v)
	}
}
