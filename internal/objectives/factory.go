package objectives

import (
	"fmt"
	"time"

	"github.com/campussched/campussched-api/internal/models"
	"github.com/campussched/campussched-api/pkg/errors"
)

// Spec is the wire-level description of one objective.
type Spec struct {
	Type   string                 `json:"type" binding:"required"`
	Weight float64                `json:"weight"`
	Params map[string]interface{} `json:"params,omitempty"`
}

// Build instantiates an objective from its wire spec. A zero weight is
// treated as 1 so callers can omit it.
func Build(spec Spec) (models.Objective, error) {
	weight := spec.Weight
	if weight == 0 {
		weight = 1
	}
	if weight < 0 {
		return nil, errors.New(errors.ErrValidation.Code, errors.ErrValidation.Status,
			spec.Type+": weight must be non-negative")
	}

	switch spec.Type {
	case TypeSpreadEvenlyAcrossTerm:
		return SpreadEvenlyAcrossTerm{W: weight}, nil
	case TypeMinimizeEveningSessions:
		threshold := time.Duration(0)
		if raw, ok := spec.Params["evening_threshold"]; ok {
			parsed, err := timeOfDayParam(raw)
			if err != nil {
				return nil, errors.Wrap(err, errors.ErrValidation.Code, errors.ErrValidation.Status,
					spec.Type+": invalid params")
			}
			threshold = parsed
		}
		return MinimizeEveningSessions{W: weight, Threshold: threshold}, nil
	case TypeBalanceInstructorLoad:
		resType := ""
		if raw, ok := spec.Params["resource_type"]; ok {
			s, isString := raw.(string)
			if !isString {
				return nil, errors.New(errors.ErrValidation.Code, errors.ErrValidation.Status,
					spec.Type+": resource_type must be a string")
			}
			resType = s
		}
		return BalanceInstructorLoad{W: weight, ResourceType: resType}, nil
	default:
		return nil, errors.New(errors.ErrValidation.Code, errors.ErrValidation.Status,
			fmt.Sprintf("unknown objective type %q", spec.Type))
	}
}

// timeOfDayParam accepts an "HH:MM" string or a numeric hour and returns
// the offset from local midnight.
func timeOfDayParam(v interface{}) (time.Duration, error) {
	switch val := v.(type) {
	case string:
		parsed, err := time.Parse("15:04", val)
		if err != nil {
			return 0, fmt.Errorf("evening_threshold: expected HH:MM, got %q", val)
		}
		return time.Duration(parsed.Hour())*time.Hour + time.Duration(parsed.Minute())*time.Minute, nil
	case float64:
		if val < 0 || val >= 24 {
			return 0, fmt.Errorf("evening_threshold: hour %v out of range", val)
		}
		return time.Duration(val * float64(time.Hour)), nil
	default:
		return 0, fmt.Errorf("evening_threshold: expected HH:MM string or hour, got %T", v)
	}
}

// BuildAll instantiates every spec, failing on the first invalid one.
func BuildAll(specs []Spec) ([]models.Objective, error) {
	out := make([]models.Objective, 0, len(specs))
	for _, s := range specs {
		o, err := Build(s)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, nil
}
