package dto

import (
	"time"

	"github.com/campussched/campussched-api/internal/models"
)

// SolveRequest submits a problem for solving. An omitted seed lets the
// solver pick one; Result.SeedUsed reports the seed either way.
type SolveRequest struct {
	Problem  Problem `json:"problem" binding:"required"`
	Backend  string  `json:"backend,omitempty" binding:"omitempty,oneof=auto heuristic exact"`
	Seed     *int64  `json:"seed,omitempty"`
	Fallback bool    `json:"fallback,omitempty"`
}

// SolveResponse wraps a stored solve outcome.
type SolveResponse struct {
	ProposalID string         `json:"proposal_id"`
	Result     *models.Result `json:"result"`
}

// ValidateResponse reports the outcome of a validation-only call.
type ValidateResponse struct {
	Valid  bool                     `json:"valid"`
	Errors []models.ValidationError `json:"errors,omitempty"`
}

// DiagnosticsResponse renders the infeasibility report with its prose
// summary and recommendations alongside the raw data.
type DiagnosticsResponse struct {
	Report          *models.InfeasibilityReport `json:"report"`
	Summary         string                      `json:"summary"`
	Recommendations []string                    `json:"recommendations,omitempty"`
}

// ProposalSummary lists a stored proposal without its full assignment set.
type ProposalSummary struct {
	ProposalID     string        `json:"proposal_id"`
	Status         models.Status `json:"status"`
	Lifecycle      string        `json:"lifecycle"`
	Backend        string        `json:"backend"`
	ObjectiveScore float64       `json:"objective_score"`
	Scheduled      int           `json:"scheduled"`
	Unscheduled    int           `json:"unscheduled"`
	CreatedAt      time.Time     `json:"created_at"`
}
