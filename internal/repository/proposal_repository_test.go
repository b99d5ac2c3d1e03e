package repository

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campussched/campussched-api/internal/models"
)

func newMockRepo(t *testing.T) (*ProposalRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewProposalRepository(sqlx.NewDb(db, "postgres")), mock
}

func sampleResult() *models.Result {
	start := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	return &models.Result{
		Status:         models.StatusFeasible,
		Backend:        "heuristic",
		ObjectiveScore: 0.9,
		Assignments: []models.Assignment{
			{
				RequestID:         "req-a",
				OccurrenceIndex:   0,
				StartTime:         start,
				EndTime:           start.Add(time.Hour),
				AssignedResources: map[string][]string{"room": {"room-1"}},
			},
		},
	}
}

func TestProposalRepositoryInsert(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectExec(`INSERT INTO proposals`).
		WillReturnResult(sqlmock.NewResult(1, 1))

	record, err := repo.Insert(context.Background(), sampleResult(), 42)
	require.NoError(t, err)
	assert.NotEmpty(t, record.ID)
	assert.Equal(t, "feasible", record.Status)
	assert.Equal(t, LifecycleDraft, record.Lifecycle)
	assert.Equal(t, int64(42), record.Seed)
	assert.Equal(t, 1, record.Scheduled)

	decoded, err := record.Result()
	require.NoError(t, err)
	assert.Equal(t, models.StatusFeasible, decoded.Status)
	require.Len(t, decoded.Assignments, 1)
	assert.Equal(t, "req-a", decoded.Assignments[0].RequestID)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProposalRepositoryFindByID(t *testing.T) {
	repo, mock := newMockRepo(t)

	rows := sqlmock.NewRows([]string{
		"id", "status", "lifecycle", "backend", "seed", "objective_score",
		"scheduled", "unscheduled", "payload", "created_at",
	}).AddRow("p-1", "partial", "draft", "heuristic", int64(7), 0.5, 3, 1,
		[]byte(`{"status":"partial","assignments":[],"objective_score":0.5,"backend":"heuristic","seed_used":7,"solve_time":0}`),
		time.Now().UTC())

	mock.ExpectQuery(`SELECT .+ FROM proposals WHERE id = \$1`).
		WithArgs("p-1").
		WillReturnRows(rows)

	record, err := repo.FindByID(context.Background(), "p-1")
	require.NoError(t, err)
	assert.Equal(t, "p-1", record.ID)
	assert.Equal(t, LifecycleDraft, record.Lifecycle)

	result, err := record.Result()
	require.NoError(t, err)
	assert.Equal(t, models.StatusPartial, result.Status)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProposalRepositoryPublish(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectExec(`UPDATE proposals SET lifecycle = \$1 WHERE id = \$2 AND lifecycle = \$3`).
		WithArgs(LifecyclePublished, "p-1", LifecycleDraft).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Publish(context.Background(), "p-1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProposalRepositoryPublishAlreadyPublished(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectExec(`UPDATE proposals SET lifecycle = \$1 WHERE id = \$2 AND lifecycle = \$3`).
		WithArgs(LifecyclePublished, "p-1", LifecycleDraft).
		WillReturnResult(sqlmock.NewResult(0, 0))

	rows := sqlmock.NewRows([]string{
		"id", "status", "lifecycle", "backend", "seed", "objective_score",
		"scheduled", "unscheduled", "payload", "created_at",
	}).AddRow("p-1", "feasible", "published", "heuristic", int64(0), 1.0, 1, 0,
		[]byte(`{"status":"feasible","assignments":[],"objective_score":1,"backend":"heuristic","seed_used":0,"solve_time":0}`),
		time.Now().UTC())
	mock.ExpectQuery(`SELECT .+ FROM proposals WHERE id = \$1`).
		WithArgs("p-1").
		WillReturnRows(rows)

	err := repo.Publish(context.Background(), "p-1")
	assert.ErrorIs(t, err, ErrAlreadyPublished)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProposalRepositoryDeleteMissing(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectExec(`DELETE FROM proposals WHERE id = \$1`).
		WithArgs("ghost").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Delete(context.Background(), "ghost")
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}
