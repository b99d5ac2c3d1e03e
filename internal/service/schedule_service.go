// Package service orchestrates solving, proposal storage, and exports.
package service

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/campussched/campussched-api/internal/dto"
	"github.com/campussched/campussched-api/internal/models"
	"github.com/campussched/campussched-api/internal/repository"
	"github.com/campussched/campussched-api/internal/solver"
	"github.com/campussched/campussched-api/pkg/config"
	"github.com/campussched/campussched-api/pkg/errors"
	"github.com/campussched/campussched-api/pkg/export"
)

// ProposalStore is the persistence seam for solve outcomes.
type ProposalStore interface {
	Insert(ctx context.Context, result *models.Result, seed int64) (*repository.ProposalRecord, error)
	FindByID(ctx context.Context, id string) (*repository.ProposalRecord, error)
	ListRecent(ctx context.Context, limit int) ([]repository.ProposalRecord, error)
	Publish(ctx context.Context, id string) error
	Delete(ctx context.Context, id string) error
}

// ScheduleService runs the solve workflow end to end: payload mapping,
// result caching, solving, proposal storage, and exports.
type ScheduleService struct {
	cfg     config.SolverConfig
	export  config.ExportConfig
	log     *zap.Logger
	store   ProposalStore
	redis   *redis.Client
	metrics *MetricsService

	csv *export.CSVExporter
	pdf *export.PDFExporter
}

// NewScheduleService wires the service. store may be nil, in which case
// proposals are kept in memory; redis may be nil, disabling the result
// cache; metrics may be nil.
func NewScheduleService(cfg config.SolverConfig, exportCfg config.ExportConfig, log *zap.Logger, store ProposalStore, redisClient *redis.Client, metrics *MetricsService) *ScheduleService {
	if log == nil {
		log = zap.NewNop()
	}
	if store == nil {
		store = newMemoryStore(cfg.ProposalTTL)
	}
	return &ScheduleService{
		cfg:     cfg,
		export:  exportCfg,
		log:     log,
		store:   store,
		redis:   redisClient,
		metrics: metrics,
		csv:     export.NewCSVExporter(),
		pdf:     export.NewPDFExporter(),
	}
}

// Validate maps and validates a problem without solving it. Structural
// mapping failures come back as the error; domain invariant breaches come
// back in the response body.
func (s *ScheduleService) Validate(payload dto.Problem) *dto.ValidateResponse {
	_, err := payload.ToModel()
	if err == nil {
		return &dto.ValidateResponse{Valid: true}
	}
	var verrs models.ValidationErrors
	if stderrors.As(err, &verrs) {
		return &dto.ValidateResponse{Valid: false, Errors: verrs}
	}
	return &dto.ValidateResponse{
		Valid: false,
		Errors: []models.ValidationError{{
			Field:          "problem",
			ExpectedFormat: "well-formed problem payload",
			ActualValue:    err.Error(),
		}},
	}
}

// Solve runs the full workflow for one request.
func (s *ScheduleService) Solve(ctx context.Context, req dto.SolveRequest) (*dto.SolveResponse, error) {
	problem, err := req.Problem.ToModel()
	if err != nil {
		return nil, err
	}

	// Unseeded solves may legitimately differ between runs, so only
	// explicitly seeded requests share the result cache.
	var cacheKey string
	if req.Seed != nil {
		cacheKey = s.cacheKey(req)
		if cached := s.cachedResponse(ctx, cacheKey); cached != nil {
			return cached, nil
		}
	}

	solveCtx := ctx
	if s.cfg.SolveTimeout > 0 {
		var cancel context.CancelFunc
		solveCtx, cancel = context.WithTimeout(ctx, s.cfg.SolveTimeout)
		defer cancel()
	}

	started := time.Now()
	result, err := solver.Solve(solveCtx, problem, solver.Options{
		Backend:           s.backendFor(req),
		Seed:              req.Seed,
		BacktrackBudget:   s.cfg.BacktrackBudget,
		LocalSearchBudget: s.cfg.LocalSearchBudget,
		DiagnosticSamples: s.cfg.DiagnosticSamples,
		Fallback:          req.Fallback,
		Logger:            s.log,
	})
	if err != nil {
		var be *solver.BackendError
		if stderrors.As(err, &be) {
			return nil, errors.Wrap(err, errors.ErrBackend.Code, errors.ErrBackend.Status,
				"solver backend failed")
		}
		return nil, err
	}
	if s.metrics != nil {
		s.metrics.ObserveSolve(result.Backend, result.Status, time.Since(started), len(result.UnscheduledRequests))
	}

	record, err := s.store.Insert(ctx, result, result.SeedUsed)
	if err != nil {
		// The schedule is still valid; losing the stored copy only breaks
		// later retrieval, so report and return the live result.
		s.log.Error("store proposal failed", zap.Error(err))
		return &dto.SolveResponse{ProposalID: "", Result: result}, nil
	}

	resp := &dto.SolveResponse{ProposalID: record.ID, Result: result}
	s.cacheResponse(ctx, cacheKey, resp)
	return resp, nil
}

// GetProposal loads a stored solve outcome.
func (s *ScheduleService) GetProposal(ctx context.Context, id string) (*dto.SolveResponse, error) {
	record, err := s.store.FindByID(ctx, id)
	if err != nil {
		if stderrors.Is(err, sql.ErrNoRows) {
			return nil, errors.Clone(errors.ErrNotFound, fmt.Sprintf("proposal %q not found", id))
		}
		return nil, err
	}
	result, err := record.Result()
	if err != nil {
		return nil, err
	}
	return &dto.SolveResponse{ProposalID: record.ID, Result: result}, nil
}

// ListProposals returns summaries of recent proposals.
func (s *ScheduleService) ListProposals(ctx context.Context, limit int) ([]dto.ProposalSummary, error) {
	records, err := s.store.ListRecent(ctx, limit)
	if err != nil {
		return nil, err
	}
	summaries := make([]dto.ProposalSummary, 0, len(records))
	for i := range records {
		r := &records[i]
		summaries = append(summaries, dto.ProposalSummary{
			ProposalID:     r.ID,
			Status:         models.Status(r.Status),
			Lifecycle:      r.Lifecycle,
			Backend:        r.Backend,
			ObjectiveScore: r.ObjectiveScore,
			Scheduled:      r.Scheduled,
			Unscheduled:    r.Unscheduled,
			CreatedAt:      r.CreatedAt,
		})
	}
	return summaries, nil
}

// PublishProposal marks a draft proposal as the schedule of record.
func (s *ScheduleService) PublishProposal(ctx context.Context, id string) error {
	err := s.store.Publish(ctx, id)
	switch {
	case err == nil:
		return nil
	case stderrors.Is(err, sql.ErrNoRows):
		return errors.Clone(errors.ErrNotFound, fmt.Sprintf("proposal %q not found", id))
	case stderrors.Is(err, repository.ErrAlreadyPublished):
		return errors.Clone(errors.ErrConflict, fmt.Sprintf("proposal %q is already published", id))
	default:
		return err
	}
}

// DeleteProposal removes a stored proposal.
func (s *ScheduleService) DeleteProposal(ctx context.Context, id string) error {
	err := s.store.Delete(ctx, id)
	if stderrors.Is(err, sql.ErrNoRows) {
		return errors.Clone(errors.ErrNotFound, fmt.Sprintf("proposal %q not found", id))
	}
	return err
}

// Diagnostics renders the infeasibility report for a stored proposal.
func (s *ScheduleService) Diagnostics(ctx context.Context, id string) (*dto.DiagnosticsResponse, error) {
	resp, err := s.GetProposal(ctx, id)
	if err != nil {
		return nil, err
	}
	report := resp.Result.Diagnostics
	return &dto.DiagnosticsResponse{
		Report:          report,
		Summary:         report.Summary(),
		Recommendations: report.Recommendations(),
	}, nil
}

// Export renders a stored proposal's schedule in the requested format and
// returns content, content type, and a download filename.
func (s *ScheduleService) Export(ctx context.Context, id, format string) ([]byte, string, string, error) {
	if !s.export.Enabled {
		return nil, "", "", errors.Clone(errors.ErrMissingDependency, "schedule export is disabled")
	}
	resp, err := s.GetProposal(ctx, id)
	if err != nil {
		return nil, "", "", err
	}
	data := export.FromRecords(models.RecordHeaders, resp.Result.ToRecords())

	switch format {
	case "csv", "":
		raw, err := s.csv.Render(data)
		if err != nil {
			return nil, "", "", err
		}
		return raw, "text/csv", "schedule-" + id + ".csv", nil
	case "pdf":
		raw, err := s.pdf.Render(data, s.export.PDFTitle)
		if err != nil {
			return nil, "", "", err
		}
		return raw, "application/pdf", "schedule-" + id + ".pdf", nil
	default:
		return nil, "", "", errors.New(errors.ErrValidation.Code, errors.ErrValidation.Status,
			fmt.Sprintf("unsupported export format %q", format))
	}
}

func (s *ScheduleService) backendFor(req dto.SolveRequest) string {
	if req.Backend != "" {
		return req.Backend
	}
	if s.cfg.Backend != "" {
		return s.cfg.Backend
	}
	return solver.BackendAuto
}

// cacheKey hashes the full solve request so identical payloads with the
// same seed and backend share a cache slot.
func (s *ScheduleService) cacheKey(req dto.SolveRequest) string {
	raw, err := json.Marshal(req)
	if err != nil {
		return ""
	}
	sum := sha256.Sum256(raw)
	return "solve:result:" + hex.EncodeToString(sum[:])
}

func (s *ScheduleService) cachedResponse(ctx context.Context, key string) *dto.SolveResponse {
	if s.redis == nil || key == "" {
		return nil
	}
	raw, err := s.redis.Get(ctx, key).Result()
	if err != nil {
		if s.metrics != nil {
			s.metrics.CacheMiss()
		}
		if !stderrors.Is(err, redis.Nil) {
			s.log.Warn("result cache read failed", zap.Error(err))
		}
		return nil
	}
	var resp dto.SolveResponse
	if err := json.Unmarshal([]byte(raw), &resp); err != nil {
		s.log.Warn("result cache payload corrupt", zap.Error(err))
		return nil
	}
	if s.metrics != nil {
		s.metrics.CacheHit()
	}
	return &resp
}

func (s *ScheduleService) cacheResponse(ctx context.Context, key string, resp *dto.SolveResponse) {
	if s.redis == nil || key == "" {
		return
	}
	raw, err := json.Marshal(resp)
	if err != nil {
		return
	}
	if err := s.redis.Set(ctx, key, raw, s.cfg.ResultCacheTTL).Err(); err != nil {
		s.log.Warn("result cache write failed", zap.Error(err))
	}
}

// memoryStore keeps proposals in process memory, used when no database is
// configured. Entries expire after ttl on read.
type memoryStore struct {
	mu      sync.RWMutex
	ttl     time.Duration
	entries map[string]repository.ProposalRecord
}

func newMemoryStore(ttl time.Duration) *memoryStore {
	return &memoryStore{ttl: ttl, entries: make(map[string]repository.ProposalRecord)}
}

func (m *memoryStore) Insert(_ context.Context, result *models.Result, seed int64) (*repository.ProposalRecord, error) {
	payload, err := json.Marshal(result)
	if err != nil {
		return nil, err
	}
	record := repository.ProposalRecord{
		ID:             uuid.NewString(),
		Status:         string(result.Status),
		Lifecycle:      repository.LifecycleDraft,
		Backend:        result.Backend,
		Seed:           seed,
		ObjectiveScore: result.ObjectiveScore,
		Scheduled:      result.ScheduledCount(),
		Unscheduled:    len(result.UnscheduledRequests),
		Payload:        payload,
		CreatedAt:      time.Now().UTC(),
	}
	m.mu.Lock()
	m.entries[record.ID] = record
	m.mu.Unlock()
	return &record, nil
}

func (m *memoryStore) FindByID(_ context.Context, id string) (*repository.ProposalRecord, error) {
	m.mu.RLock()
	record, ok := m.entries[id]
	m.mu.RUnlock()
	if !ok || m.expired(record) {
		return nil, sql.ErrNoRows
	}
	return &record, nil
}

func (m *memoryStore) ListRecent(_ context.Context, limit int) ([]repository.ProposalRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	m.mu.RLock()
	records := make([]repository.ProposalRecord, 0, len(m.entries))
	for _, r := range m.entries {
		if !m.expired(r) {
			records = append(records, r)
		}
	}
	m.mu.RUnlock()
	sort.Slice(records, func(i, j int) bool { return records[i].CreatedAt.After(records[j].CreatedAt) })
	if len(records) > limit {
		records = records[:limit]
	}
	return records, nil
}

func (m *memoryStore) Publish(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	record, ok := m.entries[id]
	if !ok || m.expired(record) {
		return sql.ErrNoRows
	}
	if record.Lifecycle == repository.LifecyclePublished {
		return repository.ErrAlreadyPublished
	}
	record.Lifecycle = repository.LifecyclePublished
	m.entries[id] = record
	return nil
}

func (m *memoryStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.entries[id]; !ok {
		return sql.ErrNoRows
	}
	delete(m.entries, id)
	return nil
}

func (m *memoryStore) expired(r repository.ProposalRecord) bool {
	return m.ttl > 0 && time.Since(r.CreatedAt) > m.ttl
}
