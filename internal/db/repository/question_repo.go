package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	sqlcgen "github.com/gokatarajesh/dmv-trainer/internal/db/sqlc"
)

// QuestionStore is the sqlc query surface for the question bank.
type QuestionStore interface {
	ListQuestions(ctx context.Context) ([]sqlcgen.Question, error)
	CountQuestions(ctx context.Context) (int64, error)
	UpsertQuestion(ctx context.Context, arg sqlcgen.UpsertQuestionParams) error
	DeleteQuestionsNotIn(ctx context.Context, keepIds []string) (int64, error)
}

// TxFunc runs fn against a store whose statements share one transaction. The
// transaction commits only when fn returns nil.
type TxFunc func(ctx context.Context, fn func(QuestionStore) error) error

// PgxTx binds queries to a transaction begun on db (a *pgxpool.Pool).
func PgxTx(db interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}, queries *sqlcgen.Queries) TxFunc {
	return func(ctx context.Context, fn func(QuestionStore) error) error {
		return pgx.BeginFunc(ctx, db, func(tx pgx.Tx) error {
			return fn(queries.WithTx(tx))
		})
	}
}

// ErrNoTx is returned by writes that need a transaction the repository lacks.
var ErrNoTx = errors.New("question repository has no transaction support")

// QuestionRepository wraps sqlc queries for the curated question bank.
type QuestionRepository struct {
	store QuestionStore
	inTx  TxFunc
}

// NewQuestionRepository reads through store. inTx may be nil for read-only use.
func NewQuestionRepository(store QuestionStore, inTx TxFunc) *QuestionRepository {
	return &QuestionRepository{store: store, inTx: inTx}
}

// ListAll returns every bank question ordered by id.
func (r *QuestionRepository) ListAll(ctx context.Context) ([]sqlcgen.Question, error) {
	return r.store.ListQuestions(ctx)
}

// Count returns the number of stored questions.
func (r *QuestionRepository) Count(ctx context.Context) (int64, error) {
	return r.store.CountQuestions(ctx)
}

// ReplaceAll makes params the whole bank in one transaction: every question
// is upserted and ids missing from params are deleted. It returns how many
// were deleted.
func (r *QuestionRepository) ReplaceAll(ctx context.Context, params []sqlcgen.UpsertQuestionParams) (int64, error) {
	if r.inTx == nil {
		return 0, ErrNoTx
	}
	var removed int64
	err := r.inTx(ctx, func(store QuestionStore) error {
		ids := make([]string, 0, len(params))
		for _, p := range params {
			if err := store.UpsertQuestion(ctx, p); err != nil {
				return fmt.Errorf("upsert question %s: %w", p.QuestionID, err)
			}
			ids = append(ids, p.QuestionID)
		}
		n, err := store.DeleteQuestionsNotIn(ctx, ids)
		if err != nil {
			return fmt.Errorf("delete stale questions: %w", err)
		}
		removed = n
		return nil
	})
	if err != nil {
		return 0, err
	}
	return removed, nil
}
