package progress

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/rs/zerolog"

	"github.com/gokatarajesh/dmv-trainer/internal/attempt"
	"github.com/gokatarajesh/dmv-trainer/internal/attempt/scoring"
	"github.com/gokatarajesh/dmv-trainer/internal/db/repository"
	sqlcgen "github.com/gokatarajesh/dmv-trainer/internal/db/sqlc"
	"github.com/gokatarajesh/dmv-trainer/internal/question"
)

// ResultStore persists finished attempts and lifetime counters.
type ResultStore interface {
	Create(ctx context.Context, params sqlcgen.InsertAttemptResultParams, categories []sqlcgen.InsertAttemptCategoryResultParams) (sqlcgen.AttemptResult, error)
	ListRecent(ctx context.Context, learnerID uuid.UUID, limit int32) ([]sqlcgen.AttemptResult, error)
	RebuildProgress(ctx context.Context, learnerID uuid.UUID) (int64, error)
	ListProgress(ctx context.Context, learnerID uuid.UUID) ([]sqlcgen.CategoryProgress, error)
}

var _ ResultStore = (*repository.ResultRepository)(nil)

// Summary is a learner's lifetime view.
type Summary struct {
	Weaknesses []scoring.Weakness `json:"weaknesses"`
	Recent     []RecentResult     `json:"recent"`
	Source     string             `json:"source"`
}

// ServiceOptions configures progress service behavior.
type ServiceOptions struct {
	RecentLimit int
}

// Service records finished attempts and answers lifetime queries. Postgres
// owns the lifetime totals; Redis only caches them.
type Service struct {
	aggregates  Aggregates
	results     ResultStore
	recentLimit int
	logger      zerolog.Logger
}

var (
	_ attempt.ResultRecorder = (*Service)(nil)
	_ attempt.WeaknessSource = (*Service)(nil)
)

// NewService constructs a progress service. aggregates may be nil in which
// case every read goes to Postgres.
func NewService(aggregates Aggregates, results ResultStore, opts ServiceOptions, logger zerolog.Logger) *Service {
	limit := opts.RecentLimit
	if limit <= 0 {
		limit = 10
	}
	return &Service{
		aggregates:  aggregates,
		results:     results,
		recentLimit: limit,
		logger:      logger.With().Str("component", "progress").Logger(),
	}
}

// Record stores a finished attempt. Rows are keyed by attempt id so a retry
// after a partial failure neither duplicates them nor counts them twice. A
// failed Redis update is only logged since Postgres still has the row.
func (s *Service) Record(ctx context.Context, learnerID uuid.UUID, a *attempt.Attempt, report scoring.Report) error {
	counts := make([]CategoryCount, 0, len(report.Weaknesses))
	for _, w := range report.Weaknesses {
		counts = append(counts, CategoryCount{Category: w.Category, Missed: w.Missed, Total: w.Total})
	}

	recent := RecentResult{
		AttemptID:          a.ID,
		Mode:               string(a.Mode),
		SelectedDifficulty: a.SelectedDifficulty,
		CategoryDrill:      a.CategoryDrill,
		Total:              report.Result.Total,
		Correct:            report.Result.Correct,
		Percentage:         report.Result.Percentage,
		Passed:             report.Result.Passed,
		CompletedAt:        time.Now().UTC(),
	}

	params, categories := toResultParams(learnerID, recent, a.ConfidenceMode, counts)
	if _, err := s.results.Create(ctx, params, categories); err != nil {
		return fmt.Errorf("persist attempt result: %w", err)
	}

	if s.aggregates == nil {
		return nil
	}
	added, err := s.aggregates.Add(ctx, learnerID, counts, recent)
	if err != nil {
		s.logger.Warn().Err(err).Str("learner_id", learnerID.String()).Msg("progress cache update failed")
		return nil
	}
	if !added {
		s.logger.Debug().Str("attempt_id", a.ID.String()).Msg("attempt already counted in cache")
	}
	return nil
}

// Weaknesses returns lifetime category totals ranked like a single attempt,
// and where they were read from.
func (s *Service) Weaknesses(ctx context.Context, learnerID uuid.UUID) ([]scoring.Weakness, string, error) {
	if s.aggregates != nil {
		counts, ok, err := s.aggregates.Totals(ctx, learnerID)
		if err != nil {
			s.logger.Warn().Err(err).Str("learner_id", learnerID.String()).Msg("redis progress fetch failed")
		}
		if err == nil && ok {
			return rank(counts), "redis", nil
		}
	}

	counts, err := s.loadTotals(ctx, learnerID)
	if err != nil {
		return nil, "postgres", err
	}
	return rank(counts), "postgres", nil
}

// Recent returns the latest finished attempts, newest first.
func (s *Service) Recent(ctx context.Context, learnerID uuid.UUID, limit int) ([]RecentResult, error) {
	if limit <= 0 || limit > s.recentLimit {
		limit = s.recentLimit
	}
	if s.aggregates != nil {
		recent, ok, err := s.aggregates.Recent(ctx, learnerID, limit)
		if err != nil {
			s.logger.Warn().Err(err).Str("learner_id", learnerID.String()).Msg("redis recent fetch failed")
		}
		if err == nil && ok {
			return recent, nil
		}
	}

	rows, err := s.results.ListRecent(ctx, learnerID, int32(s.recentLimit))
	if err != nil {
		return nil, fmt.Errorf("list recent results: %w", err)
	}
	out := make([]RecentResult, 0, len(rows))
	for _, row := range rows {
		out = append(out, fromResultRow(row))
	}
	if s.aggregates != nil {
		if err := s.aggregates.StoreRecent(ctx, learnerID, out); err != nil {
			s.logger.Warn().Err(err).Str("learner_id", learnerID.String()).Msg("recent cache fill failed")
		}
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Summary combines weaknesses and recent results.
func (s *Service) Summary(ctx context.Context, learnerID uuid.UUID, limit int) (Summary, error) {
	weaknesses, source, err := s.Weaknesses(ctx, learnerID)
	if err != nil {
		return Summary{}, err
	}
	recent, err := s.Recent(ctx, learnerID, limit)
	if err != nil {
		return Summary{}, err
	}
	return Summary{Weaknesses: weaknesses, Recent: recent, Source: source}, nil
}

// loadTotals reads category_progress and refills the cache from it.
func (s *Service) loadTotals(ctx context.Context, learnerID uuid.UUID) ([]CategoryCount, error) {
	rows, err := s.results.ListProgress(ctx, learnerID)
	if err != nil {
		return nil, fmt.Errorf("list category progress: %w", err)
	}
	counts := fromProgressRows(rows)
	if s.aggregates != nil {
		if err := s.aggregates.StoreTotals(ctx, learnerID, counts); err != nil {
			s.logger.Warn().Err(err).Str("learner_id", learnerID.String()).Msg("progress cache fill failed")
		}
	}
	return counts, nil
}

// reconcile recomputes category_progress from stored attempt rows and
// replaces the cached totals, repairing a fill that raced a concurrent Record.
func (s *Service) reconcile(ctx context.Context, learnerID uuid.UUID) (int, error) {
	n, err := s.results.RebuildProgress(ctx, learnerID)
	if err != nil {
		return 0, fmt.Errorf("rebuild category progress: %w", err)
	}
	if _, err := s.loadTotals(ctx, learnerID); err != nil {
		return 0, err
	}
	return int(n), nil
}

func rank(counts []CategoryCount) []scoring.Weakness {
	entries := make([]scoring.WeaknessResult, 0, len(counts))
	for _, c := range counts {
		entries = append(entries, scoring.WeaknessResult{Category: c.Category, Missed: c.Missed, Total: c.Total})
	}
	ranked := scoring.RankTotals(entries)

	out := make([]scoring.Weakness, 0, len(ranked))
	for _, w := range ranked {
		out = append(out, scoring.Weakness{
			WeaknessResult: w,
			Label:          w.Category.Label(),
			Bullets:        scoring.Bullets(w.Category),
		})
	}
	return out
}

func toResultParams(learnerID uuid.UUID, r RecentResult, confidence bool, counts []CategoryCount) (sqlcgen.InsertAttemptResultParams, []sqlcgen.InsertAttemptCategoryResultParams) {
	params := sqlcgen.InsertAttemptResultParams{
		ResultID:           repository.PGUUID(r.AttemptID),
		LearnerID:          repository.PGUUID(learnerID),
		Mode:               r.Mode,
		SelectedDifficulty: string(r.SelectedDifficulty),
		ConfidenceMode:     confidence,
		Total:              int32(r.Total),
		Correct:            int32(r.Correct),
		Percentage:         r.Percentage,
		Passed:             r.Passed,
	}
	if r.CategoryDrill != nil {
		params.CategoryDrill = pgtype.Text{String: string(*r.CategoryDrill), Valid: true}
	}

	categories := make([]sqlcgen.InsertAttemptCategoryResultParams, 0, len(counts))
	for _, c := range counts {
		categories = append(categories, sqlcgen.InsertAttemptCategoryResultParams{
			Category: string(c.Category),
			Missed:   int32(c.Missed),
			Total:    int32(c.Total),
		})
	}
	return params, categories
}

// fromProgressRows orders persisted rows by handbook category order.
func fromProgressRows(rows []sqlcgen.CategoryProgress) []CategoryCount {
	byCategory := make(map[question.Category]sqlcgen.CategoryProgress, len(rows))
	for _, row := range rows {
		byCategory[question.Category(row.Category)] = row
	}
	counts := make([]CategoryCount, 0, len(rows))
	for _, c := range question.Categories {
		row, ok := byCategory[c]
		if !ok || row.Total == 0 {
			continue
		}
		counts = append(counts, CategoryCount{Category: c, Missed: int(row.Missed), Total: int(row.Total)})
	}
	return counts
}

func fromResultRow(row sqlcgen.AttemptResult) RecentResult {
	r := RecentResult{
		AttemptID:          uuid.UUID(row.ResultID.Bytes),
		Mode:               row.Mode,
		SelectedDifficulty: question.SelectedDifficulty(row.SelectedDifficulty),
		Total:              int(row.Total),
		Correct:            int(row.Correct),
		Percentage:         row.Percentage,
		Passed:             row.Passed,
		CompletedAt:        row.CompletedAt.Time,
	}
	if row.CategoryDrill.Valid {
		c := question.Category(row.CategoryDrill.String)
		r.CategoryDrill = &c
	}
	return r
}
