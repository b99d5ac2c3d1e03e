// Package objectives implements the soft scoring functions. Each objective
// maps any solution to [0, 1], higher is better, and carries a caller-chosen
// weight for the composite sum.
package objectives

import (
	"sort"
	"time"

	"github.com/campussched/campussched-api/internal/models"
)

const (
	TypeSpreadEvenlyAcrossTerm  = "soft.spread_evenly_across_term"
	TypeMinimizeEveningSessions = "soft.minimize_evening_sessions"
	TypeBalanceInstructorLoad   = "soft.balance_instructor_load"

	// defaultEveningThreshold is the local time of day from which a session
	// counts as evening when no threshold is configured.
	defaultEveningThreshold = 17 * time.Hour
)

// SpreadEvenlyAcrossTerm rewards solutions whose occurrences of each
// request land at evenly spaced positions across the request's date range.
type SpreadEvenlyAcrossTerm struct {
	W float64
}

func (SpreadEvenlyAcrossTerm) Type() string      { return TypeSpreadEvenlyAcrossTerm }
func (o SpreadEvenlyAcrossTerm) Weight() float64 { return o.W }

func (o SpreadEvenlyAcrossTerm) Score(solution []*models.Assignment, ctx *models.ConstraintContext) float64 {
	byRequest := make(map[string][]*models.Assignment)
	for _, a := range solution {
		byRequest[a.RequestID] = append(byRequest[a.RequestID], a)
	}
	if len(byRequest) == 0 {
		return 1.0
	}
	// Deterministic iteration keeps float accumulation order stable.
	requestIDs := make([]string, 0, len(byRequest))
	for id := range byRequest {
		requestIDs = append(requestIDs, id)
	}
	sort.Strings(requestIDs)

	var total float64
	var scored int
	for _, requestID := range requestIDs {
		group := byRequest[requestID]
		req := ctx.Request(requestID)
		if req == nil {
			continue
		}
		span := req.LatestDate.Sub(req.EarliestDate)
		if span <= 0 || len(group) < 2 {
			total++
			scored++
			continue
		}
		positions := make([]float64, len(group))
		for i, a := range group {
			positions[i] = float64(a.StartTime.Sub(req.EarliestDate)) / float64(span)
		}
		sort.Float64s(positions)

		// Ideal positions split the range into equal segments with one
		// occurrence centered in each.
		n := len(positions)
		var deviation float64
		for i, pos := range positions {
			ideal := (float64(i) + 0.5) / float64(n)
			deviation += abs(pos - ideal)
		}
		total += clamp01(1 - deviation/float64(n))
		scored++
	}
	if scored == 0 {
		return 1.0
	}
	return total / float64(scored)
}

// MinimizeEveningSessions penalizes sessions starting at or after the
// evening threshold in the institutional calendar's local time.
type MinimizeEveningSessions struct {
	W float64

	// Threshold is the local time of day, as an offset from midnight, from
	// which a session counts as evening. Zero means the 17:00 default.
	Threshold time.Duration
}

func (MinimizeEveningSessions) Type() string      { return TypeMinimizeEveningSessions }
func (o MinimizeEveningSessions) Weight() float64 { return o.W }

func (o MinimizeEveningSessions) Score(solution []*models.Assignment, ctx *models.ConstraintContext) float64 {
	if len(solution) == 0 {
		return 1.0
	}
	threshold := o.Threshold
	if threshold <= 0 {
		threshold = defaultEveningThreshold
	}
	loc := time.UTC
	if inst := ctx.InstitutionalCalendar(); inst != nil {
		loc = inst.Location()
	}
	evening := 0
	for _, a := range solution {
		local := a.StartTime.In(loc)
		sinceMidnight := time.Duration(local.Hour())*time.Hour + time.Duration(local.Minute())*time.Minute
		if sinceMidnight >= threshold {
			evening++
		}
	}
	return 1 - float64(evening)/float64(len(solution))
}

// BalanceInstructorLoad rewards solutions where sessions are spread evenly
// across instructor resources rather than piled onto one.
type BalanceInstructorLoad struct {
	W float64

	// ResourceType selects which resource kind counts as load-bearing.
	// Defaults to "instructor".
	ResourceType string
}

func (BalanceInstructorLoad) Type() string      { return TypeBalanceInstructorLoad }
func (o BalanceInstructorLoad) Weight() float64 { return o.W }

func (o BalanceInstructorLoad) Score(solution []*models.Assignment, ctx *models.ConstraintContext) float64 {
	resType := o.ResourceType
	if resType == "" {
		resType = "instructor"
	}
	pool := ctx.Indices.ResourcesByType[resType]
	if len(pool) < 2 || len(solution) == 0 {
		return 1.0
	}

	loads := make(map[string]int, len(pool))
	for _, res := range pool {
		loads[res.ID] = 0
	}
	var total int
	for _, a := range solution {
		for _, ids := range a.AssignedResources {
			for _, id := range ids {
				if _, ok := loads[id]; ok {
					loads[id]++
					total++
				}
			}
		}
	}
	if total == 0 {
		return 1.0
	}

	min, max := -1, 0
	for _, load := range loads {
		if min < 0 || load < min {
			min = load
		}
		if load > max {
			max = load
		}
	}
	return clamp01(1 - float64(max-min)/float64(total))
}

func abs(f float64) float64 {
	if f < 0 {
		return -f
	}
	return f
}

func clamp01(f float64) float64 {
	if f < 0 {
		return 0
	}
	if f > 1 {
		return 1
	}
	return f
}

// Defaults returns the standard objective mix with unit weights.
func Defaults() []models.Objective {
	return []models.Objective{
		SpreadEvenlyAcrossTerm{W: 1},
		MinimizeEveningSessions{W: 1},
		BalanceInstructorLoad{W: 1},
	}
}
