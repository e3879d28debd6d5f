package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"

	sqlcgen "github.com/gokatarajesh/dmv-trainer/internal/db/sqlc"
)

type resultStore interface {
	InsertAttemptResult(ctx context.Context, arg sqlcgen.InsertAttemptResultParams) (sqlcgen.AttemptResult, error)
	InsertAttemptCategoryResult(ctx context.Context, arg sqlcgen.InsertAttemptCategoryResultParams) error
	ListRecentAttemptResults(ctx context.Context, arg sqlcgen.ListRecentAttemptResultsParams) ([]sqlcgen.AttemptResult, error)
	RebuildCategoryProgress(ctx context.Context, learnerID pgtype.UUID) (int64, error)
	ListCategoryProgress(ctx context.Context, learnerID pgtype.UUID) ([]sqlcgen.CategoryProgress, error)
}

// ResultRepository contains DB helpers for finished attempts and per-category progress.
type ResultRepository struct {
	store resultStore
}

// NewResultRepository constructs a new result repository.
func NewResultRepository(store resultStore) *ResultRepository {
	return &ResultRepository{store: store}
}

// Create persists a finished attempt together with its per-category breakdown.
// Each new category row also advances the learner's lifetime counters; rows
// that already exist are skipped, so a retried Create is safe.
func (r *ResultRepository) Create(ctx context.Context, params sqlcgen.InsertAttemptResultParams, categories []sqlcgen.InsertAttemptCategoryResultParams) (sqlcgen.AttemptResult, error) {
	row, err := r.store.InsertAttemptResult(ctx, params)
	if err != nil {
		return sqlcgen.AttemptResult{}, fmt.Errorf("insert attempt result: %w", err)
	}
	for _, c := range categories {
		c.ResultID = row.ResultID
		c.LearnerID = row.LearnerID
		if err := r.store.InsertAttemptCategoryResult(ctx, c); err != nil {
			return row, fmt.Errorf("insert category result %s: %w", c.Category, err)
		}
	}
	return row, nil
}

// ListRecent returns the learner's latest finished attempts, newest first.
func (r *ResultRepository) ListRecent(ctx context.Context, learnerID uuid.UUID, limit int32) ([]sqlcgen.AttemptResult, error) {
	return r.store.ListRecentAttemptResults(ctx, sqlcgen.ListRecentAttemptResultsParams{
		LearnerID: PGUUID(learnerID),
		Limit:     limit,
	})
}

// RebuildProgress recomputes a learner's lifetime counters from their stored
// per-attempt rows and returns the number of categories written.
func (r *ResultRepository) RebuildProgress(ctx context.Context, learnerID uuid.UUID) (int64, error) {
	return r.store.RebuildCategoryProgress(ctx, PGUUID(learnerID))
}

// ListProgress returns the persisted lifetime counters of a learner.
func (r *ResultRepository) ListProgress(ctx context.Context, learnerID uuid.UUID) ([]sqlcgen.CategoryProgress, error) {
	return r.store.ListCategoryProgress(ctx, PGUUID(learnerID))
}

// PGUUID converts a uuid into its pgtype form.
func PGUUID(id uuid.UUID) pgtype.UUID {
	return pgtype.UUID{Bytes: id, Valid: true}
}
