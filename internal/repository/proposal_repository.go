// Package repository persists solve proposals in PostgreSQL.
package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/types"

	"github.com/campussched/campussched-api/internal/models"
)

// Proposal lifecycle states. Every solve outcome starts as a draft;
// publishing marks it as the schedule of record.
const (
	LifecycleDraft     = "draft"
	LifecyclePublished = "published"
)

// ErrAlreadyPublished is returned when publishing a proposal that has
// already been published.
var ErrAlreadyPublished = errors.New("proposal already published")

// ProposalRecord is the stored form of one solve outcome. The full result,
// assignments included, lives in the JSON payload; the scalar columns exist
// for listing and filtering.
type ProposalRecord struct {
	ID             string         `db:"id"`
	Status         string         `db:"status"`
	Lifecycle      string         `db:"lifecycle"`
	Backend        string         `db:"backend"`
	Seed           int64          `db:"seed"`
	ObjectiveScore float64        `db:"objective_score"`
	Scheduled      int            `db:"scheduled"`
	Unscheduled    int            `db:"unscheduled"`
	Payload        types.JSONText `db:"payload"`
	CreatedAt      time.Time      `db:"created_at"`
}

// Result decodes the stored payload.
func (r *ProposalRecord) Result() (*models.Result, error) {
	var out models.Result
	if err := json.Unmarshal(r.Payload, &out); err != nil {
		return nil, fmt.Errorf("decode proposal payload: %w", err)
	}
	return &out, nil
}

// ProposalRepository stores and retrieves solve proposals.
type ProposalRepository struct {
	db *sqlx.DB
}

// NewProposalRepository constructs the repository.
func NewProposalRepository(db *sqlx.DB) *ProposalRepository {
	return &ProposalRepository{db: db}
}

// Insert stores a solve result under a fresh proposal ID and returns the
// record.
func (r *ProposalRepository) Insert(ctx context.Context, result *models.Result, seed int64) (*ProposalRecord, error) {
	payload, err := json.Marshal(result)
	if err != nil {
		return nil, fmt.Errorf("encode proposal payload: %w", err)
	}
	record := &ProposalRecord{
		ID:             uuid.NewString(),
		Status:         string(result.Status),
		Lifecycle:      LifecycleDraft,
		Backend:        result.Backend,
		Seed:           seed,
		ObjectiveScore: result.ObjectiveScore,
		Scheduled:      result.ScheduledCount(),
		Unscheduled:    len(result.UnscheduledRequests),
		Payload:        types.JSONText(payload),
		CreatedAt:      time.Now().UTC(),
	}

	const query = `
INSERT INTO proposals (id, status, lifecycle, backend, seed, objective_score, scheduled, unscheduled, payload, created_at)
VALUES (:id, :status, :lifecycle, :backend, :seed, :objective_score, :scheduled, :unscheduled, :payload, :created_at)`
	if _, err := sqlx.NamedExecContext(ctx, r.db, query, record); err != nil {
		return nil, fmt.Errorf("insert proposal: %w", err)
	}
	return record, nil
}

// FindByID loads one proposal. Returns sql.ErrNoRows for unknown IDs.
func (r *ProposalRepository) FindByID(ctx context.Context, id string) (*ProposalRecord, error) {
	const query = `SELECT id, status, lifecycle, backend, seed, objective_score, scheduled, unscheduled, payload, created_at
FROM proposals WHERE id = $1`
	var record ProposalRecord
	if err := r.db.GetContext(ctx, &record, query, id); err != nil {
		return nil, err
	}
	return &record, nil
}

// ListRecent returns the newest proposals, capped at limit.
func (r *ProposalRepository) ListRecent(ctx context.Context, limit int) ([]ProposalRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	const query = `SELECT id, status, lifecycle, backend, seed, objective_score, scheduled, unscheduled, payload, created_at
FROM proposals ORDER BY created_at DESC LIMIT $1`
	var records []ProposalRecord
	if err := r.db.SelectContext(ctx, &records, query, limit); err != nil {
		return nil, fmt.Errorf("list proposals: %w", err)
	}
	return records, nil
}

// Publish transitions a draft proposal to published. Returns sql.ErrNoRows
// for unknown IDs and ErrAlreadyPublished when the transition already
// happened.
func (r *ProposalRepository) Publish(ctx context.Context, id string) error {
	const query = `UPDATE proposals SET lifecycle = $1 WHERE id = $2 AND lifecycle = $3`
	res, err := r.db.ExecContext(ctx, query, LifecyclePublished, id, LifecycleDraft)
	if err != nil {
		return fmt.Errorf("publish proposal: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("publish proposal: %w", err)
	}
	if affected == 0 {
		if _, err := r.FindByID(ctx, id); err != nil {
			return err
		}
		return ErrAlreadyPublished
	}
	return nil
}

// Delete removes a proposal. Returns sql.ErrNoRows when nothing matched.
func (r *ProposalRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM proposals WHERE id = $1`
	res, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete proposal: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete proposal: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
