// Package solver turns a validated scheduling problem into a schedule. The
// heuristic backend is always available; the exact backend is an optional
// integration point that reports itself unavailable unless an external MILP
// toolchain is wired in.
package solver

import (
	"context"
	stderrors "errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/campussched/campussched-api/internal/constraints"
	"github.com/campussched/campussched-api/internal/models"
	"github.com/campussched/campussched-api/internal/objectives"
	"github.com/campussched/campussched-api/pkg/errors"
)

// Backend names accepted in Options.Backend.
const (
	BackendAuto      = "auto"
	BackendHeuristic = "heuristic"
	BackendExact     = "exact"
)

// Options tunes one solve call. The zero value is usable: auto backend,
// seed 0, default budgets.
type Options struct {
	// Backend selects the solving strategy: auto, heuristic, or exact.
	Backend string

	// Seed drives every tie-break in the heuristic. Identical seed and
	// canonical problem reproduce bit-identical results. Nil means the
	// solver picks one; the value actually used is reported in
	// Result.SeedUsed either way.
	Seed *int64

	// BacktrackBudget bounds how many times the heuristic may undo a
	// committed occurrence to try alternatives.
	BacktrackBudget int

	// LocalSearchBudget bounds post-construction relocation attempts.
	LocalSearchBudget int

	// DiagnosticSamples bounds how many candidate slots per unscheduled
	// request the infeasibility analysis re-checks.
	DiagnosticSamples int

	// Fallback retries on the heuristic when the chosen backend fails
	// with a BackendError.
	Fallback bool

	Logger *zap.Logger
}

func (o Options) withDefaults() Options {
	if o.Backend == "" {
		o.Backend = BackendAuto
	}
	if o.Seed == nil {
		seed := time.Now().UnixNano()
		o.Seed = &seed
	}
	if o.BacktrackBudget <= 0 {
		o.BacktrackBudget = 100
	}
	if o.LocalSearchBudget <= 0 {
		o.LocalSearchBudget = 50
	}
	if o.DiagnosticSamples <= 0 {
		o.DiagnosticSamples = 25
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	return o
}

// Backend is one solving strategy.
type Backend interface {
	Name() string
	Available() bool
	Solve(ctx context.Context, problem *models.Problem, opts Options) (*models.Result, error)
}

// BackendError marks failures of the solving machinery itself, as opposed
// to infeasible problems, which are ordinary results.
type BackendError struct {
	Backend string
	Reason  string
	Err     error
}

func (e *BackendError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("backend %q: %s: %v", e.Backend, e.Reason, e.Err)
	}
	return fmt.Sprintf("backend %q: %s", e.Backend, e.Reason)
}

func (e *BackendError) Unwrap() error { return e.Err }

// Solve validates and canonicalizes the problem, picks a backend, and runs
// it. Infeasibility is never an error: partial and infeasible outcomes come
// back as a Result carrying diagnostics.
func Solve(ctx context.Context, problem *models.Problem, opts Options) (*models.Result, error) {
	opts = opts.withDefaults()

	if errs := problem.Validate(); len(errs) > 0 {
		return nil, errors.Wrap(models.ValidationErrors(errs),
			errors.ErrValidation.Code, errors.ErrValidation.Status, "invalid problem")
	}

	canon := problem.Canonicalize()
	if len(canon.Constraints) == 0 {
		canon.Constraints = constraints.Defaults()
	}
	if len(canon.Objectives) == 0 {
		canon.Objectives = objectives.Defaults()
	}

	backend, err := pick(opts.Backend)
	if err != nil {
		return nil, err
	}

	opts.Logger.Info("solve started",
		zap.String("backend", backend.Name()),
		zap.Int64("seed", *opts.Seed),
		zap.Int("requests", len(canon.Requests)),
		zap.Int("resources", len(canon.Resources)))

	started := time.Now()
	result, err := backend.Solve(ctx, canon, opts)
	if err != nil {
		var be *BackendError
		if opts.Fallback && stderrors.As(err, &be) && backend.Name() != BackendHeuristic {
			opts.Logger.Warn("backend failed, falling back to heuristic",
				zap.String("backend", backend.Name()), zap.Error(err))
			result, err = (&heuristicBackend{}).Solve(ctx, canon, opts)
			if err != nil {
				return nil, err
			}
			result.Notes = append(result.Notes,
				fmt.Sprintf("backend %q failed (%s); heuristic fallback used", be.Backend, be.Reason))
		} else {
			return nil, err
		}
	}

	result.SolveTime = time.Since(started)
	result.SeedUsed = *opts.Seed

	opts.Logger.Info("solve finished",
		zap.String("status", string(result.Status)),
		zap.Int("scheduled", result.ScheduledCount()),
		zap.Int("unscheduled", len(result.UnscheduledRequests)),
		zap.Float64("objective_score", result.ObjectiveScore),
		zap.Duration("solve_time", result.SolveTime))
	return result, nil
}

func pick(name string) (Backend, error) {
	exact := &exactBackend{}
	switch name {
	case BackendAuto:
		if exact.Available() {
			return exact, nil
		}
		return &heuristicBackend{}, nil
	case BackendHeuristic:
		return &heuristicBackend{}, nil
	case BackendExact:
		return exact, nil
	default:
		return nil, errors.New(errors.ErrValidation.Code, errors.ErrValidation.Status,
			fmt.Sprintf("unknown backend %q", name))
	}
}

// exactBackend is the integration seam for a MILP-based solver. Shipping
// builds have no MILP toolchain linked, so it reports unavailable and
// solving through it yields a BackendError that the fallback path can
// convert into a heuristic run.
type exactBackend struct{}

func (*exactBackend) Name() string    { return BackendExact }
func (*exactBackend) Available() bool { return false }

func (b *exactBackend) Solve(context.Context, *models.Problem, Options) (*models.Result, error) {
	return nil, &BackendError{
		Backend: b.Name(),
		Reason:  "no MILP solver linked into this build",
	}
}
