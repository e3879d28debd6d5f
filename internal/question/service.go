package question

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/gokatarajesh/dmv-trainer/internal/db/repository"
	sqlcgen "github.com/gokatarajesh/dmv-trainer/internal/db/sqlc"
)

// ErrEmptyBank is returned when no source could supply any question.
var ErrEmptyBank = errors.New("question bank is empty")

// BankCache defines cache behavior (implemented by Redis-backed Cache).
type BankCache interface {
	Get(ctx context.Context) ([]Question, error)
	Set(ctx context.Context, qs []Question) error
	Invalidate(ctx context.Context) error
}

// Service serves the question bank: cache first, then Postgres, then an
// optional JSON file.
type Service struct {
	repo     *repository.QuestionRepository
	cache    BankCache
	bankFile string
	logger   zerolog.Logger
}

type ServiceOptions struct {
	// BankFile is read when Postgres holds no questions.
	BankFile string
}

func NewService(repo *repository.QuestionRepository, cache BankCache, opts ServiceOptions, logger zerolog.Logger) *Service {
	return &Service{
		repo:     repo,
		cache:    cache,
		bankFile: opts.BankFile,
		logger:   logger.With().Str("component", "question_service").Logger(),
	}
}

// Bank returns the full question bank in stable id order. The result is
// shared read-only data; callers must not mutate it.
func (s *Service) Bank(ctx context.Context) ([]Question, error) {
	if s.cache != nil {
		if cached, err := s.cache.Get(ctx); err == nil && len(cached) > 0 {
			return cached, nil
		} else if err != nil {
			s.logger.Warn().Err(err).Msg("bank cache read failed")
		}
	}

	qs, err := s.fetchCurated(ctx)
	if err != nil {
		return nil, err
	}
	if len(qs) == 0 && s.bankFile != "" {
		qs, err = LoadFile(s.bankFile)
		if err != nil {
			return nil, err
		}
		s.logger.Info().Str("file", s.bankFile).Int("questions", len(qs)).Msg("bank loaded from file")
	}
	if len(qs) == 0 {
		return nil, ErrEmptyBank
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, qs); err != nil {
			s.logger.Warn().Err(err).Msg("bank cache write failed")
		}
	}
	return qs, nil
}

// Stats summarises the current bank.
func (s *Service) Stats(ctx context.Context) (Stats, error) {
	qs, err := s.Bank(ctx)
	if err != nil {
		return Stats{}, err
	}
	return Summarize(qs), nil
}

// Import validates qs and makes it the whole curated bank in one
// transaction, then drops the cached bank.
func (s *Service) Import(ctx context.Context, qs []Question) error {
	if err := Validate(qs); err != nil {
		return err
	}
	if s.repo == nil {
		return errors.New("question repository unavailable")
	}
	params := make([]sqlcgen.UpsertQuestionParams, 0, len(qs))
	for _, q := range qs {
		params = append(params, toParams(q))
	}
	removed, err := s.repo.ReplaceAll(ctx, params)
	if err != nil {
		return fmt.Errorf("replace question bank: %w", err)
	}
	if s.cache != nil {
		if err := s.cache.Invalidate(ctx); err != nil {
			s.logger.Warn().Err(err).Msg("bank cache invalidate failed")
		}
	}
	s.logger.Info().Int("questions", len(qs)).Int64("removed", removed).Msg("question bank imported")
	return nil
}

func (s *Service) fetchCurated(ctx context.Context) ([]Question, error) {
	if s.repo == nil {
		return nil, nil
	}
	rows, err := s.repo.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("list questions: %w", err)
	}
	qs := make([]Question, 0, len(rows))
	for _, row := range rows {
		qs = append(qs, toDomain(row))
	}
	return qs, nil
}

func toDomain(row sqlcgen.Question) Question {
	return Question{
		ID:          row.QuestionID,
		Prompt:      row.Prompt,
		Choices:     row.Choices,
		AnswerIndex: int(row.AnswerIndex),
		Category:    Category(row.Category),
		Difficulty:  Difficulty(row.Difficulty),
		Rationale:   row.Rationale,
		HandbookRef: row.HandbookRef,
	}
}

func toParams(q Question) sqlcgen.UpsertQuestionParams {
	return sqlcgen.UpsertQuestionParams{
		QuestionID:  q.ID,
		Prompt:      q.Prompt,
		Choices:     q.Choices,
		AnswerIndex: int32(q.AnswerIndex),
		Category:    string(q.Category),
		Difficulty:  string(q.Difficulty),
		Rationale:   q.Rationale,
		HandbookRef: q.HandbookRef,
	}
}
