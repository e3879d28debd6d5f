package attempt

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/gokatarajesh/dmv-trainer/internal/attempt/scoring"
	"github.com/gokatarajesh/dmv-trainer/internal/metrics"
	"github.com/gokatarajesh/dmv-trainer/internal/question"
)

// ErrInvalidMode is returned for a start request with an unknown mode.
var ErrInvalidMode = errors.New("unknown attempt mode")

// ErrNoWeakArea is returned for a weak-area drill when the learner has no
// recorded results to rank.
var ErrNoWeakArea = errors.New("no recorded results to pick a weak area from")

// BankProvider supplies the current question bank.
type BankProvider interface {
	Bank(ctx context.Context) ([]question.Question, error)
}

// ResultRecorder stores finished attempts.
type ResultRecorder interface {
	Record(ctx context.Context, learnerID uuid.UUID, a *Attempt, report scoring.Report) error
}

// WeaknessSource ranks a learner's lifetime category results, weakest first.
type WeaknessSource interface {
	Weaknesses(ctx context.Context, learnerID uuid.UUID) ([]scoring.Weakness, string, error)
}

// StartRequest carries the options chosen on the home screen.
type StartRequest struct {
	Mode           Mode
	Difficulty     question.SelectedDifficulty
	ConfidenceMode bool
	Category       *question.Category
	// Weakest drills the learner's weakest category; Category is ignored.
	Weakest bool
}

// AnswerOutcome is the feedback returned after answering.
type AnswerOutcome struct {
	Record       AnswerRecord
	CorrectIndex int
	// Rationale and HandbookRef are only filled in practice mode.
	Rationale   string
	HandbookRef string
	IsLast      bool
}

// NextOutcome is the result of advancing. Report is set once the last
// question has been passed.
type NextOutcome struct {
	Session *Session
	Report  *scoring.Report
}

// ServiceOptions configures attempt sizes and collaborators.
type ServiceOptions struct {
	FullSize  int
	DrillSize int
	RNG       RNG
	Engine    *scoring.Engine
	Metrics   *metrics.Collectors
	Now       func() time.Time
	// Weaknesses backs weak-area drills. Without it they fail with ErrNoWeakArea.
	Weaknesses WeaknessSource
}

// Service drives one learner's attempt from start to report.
type Service struct {
	bank       BankProvider
	store      Store
	recorder   ResultRecorder
	weaknesses WeaknessSource
	fullSize   int
	drillSize  int
	rng        RNG
	engine     *scoring.Engine
	metrics    *metrics.Collectors
	now        func() time.Time
	logger     zerolog.Logger
}

// NewService constructs the attempt workflow service. recorder may be nil.
func NewService(bank BankProvider, store Store, recorder ResultRecorder, opts ServiceOptions, logger zerolog.Logger) *Service {
	if opts.FullSize <= 0 {
		opts.FullSize = FullTestSize
	}
	if opts.DrillSize <= 0 {
		opts.DrillSize = DrillSize
	}
	if opts.RNG == nil {
		opts.RNG = DefaultRNG
	}
	if opts.Engine == nil {
		opts.Engine = scoring.NewEngine(scoring.DefaultScoringConfig())
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Service{
		bank:       bank,
		store:      store,
		recorder:   recorder,
		weaknesses: opts.Weaknesses,
		fullSize:   opts.FullSize,
		drillSize:  opts.DrillSize,
		rng:        opts.RNG,
		engine:     opts.Engine,
		metrics:    opts.Metrics,
		now:        opts.Now,
		logger:     logger.With().Str("component", "attempt").Logger(),
	}
}

// Start builds a new attempt and saves it in the learner's slot, replacing
// any attempt already there. A *PoolError leaves the slot untouched.
func (s *Service) Start(ctx context.Context, learnerID uuid.UUID, req StartRequest) (*Session, error) {
	if req.Mode == "" {
		req.Mode = ModePractice
	}
	if !req.Mode.Valid() {
		return nil, ErrInvalidMode
	}
	if req.Difficulty == "" {
		req.Difficulty = question.Mix
	}
	if req.Weakest {
		category, err := s.weakestCategory(ctx, learnerID)
		if err != nil {
			return nil, err
		}
		req.Category = &category
	}

	bank, err := s.bank.Bank(ctx)
	if err != nil {
		return nil, fmt.Errorf("load bank: %w", err)
	}

	total, kind := s.fullSize, "full"
	if req.Category != nil {
		total, kind = s.drillSize, "drill"
	}

	sel, err := Build(bank, BuildRequest{
		Total:          total,
		ConfidenceMode: req.ConfidenceMode,
		Difficulty:     req.Difficulty,
		Category:       req.Category,
	}, s.rng)
	if err != nil {
		var poolErr *PoolError
		if errors.As(err, &poolErr) {
			s.metrics.BuildFailed(poolErr.Pool)
			s.logger.Info().
				Str("learner_id", learnerID.String()).
				Str("pool", poolErr.Pool).
				Int("need", poolErr.Need).
				Int("have", poolErr.Have).
				Msg("attempt pool insufficient")
		}
		return nil, err
	}

	a := &Attempt{
		ID:                 uuid.New(),
		Mode:               req.Mode,
		ConfidenceMode:     sel.EffectiveConfidenceMode,
		SelectedDifficulty: req.Difficulty,
		Questions:          sel.Questions,
		TotalQuestions:     total,
		CategoryDrill:      req.Category,
		StartedAt:          s.now().UTC(),
	}
	session := newSession(a)

	unlock, err := s.store.Lock(ctx, learnerID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	if err := s.store.Save(ctx, learnerID, session); err != nil {
		return nil, fmt.Errorf("save attempt: %w", err)
	}

	s.metrics.AttemptBuilt(kind, sel.EffectiveConfidenceMode)
	s.logger.Info().
		Str("learner_id", learnerID.String()).
		Str("attempt_id", a.ID.String()).
		Str("mode", string(a.Mode)).
		Str("difficulty", string(a.SelectedDifficulty)).
		Bool("confidence_mode", a.ConfidenceMode).
		Int("questions", len(a.Questions)).
		Msg("attempt started")
	return session, nil
}

// Current restores the learner's in-progress attempt. Unreadable slot data
// is removed and reported as ErrNoSavedAttempt.
func (s *Service) Current(ctx context.Context, learnerID uuid.UUID) (*Session, error) {
	return s.load(ctx, learnerID)
}

// Answer records choice for the current question.
func (s *Service) Answer(ctx context.Context, learnerID uuid.UUID, choice int) (AnswerOutcome, error) {
	unlock, err := s.store.Lock(ctx, learnerID)
	if err != nil {
		return AnswerOutcome{}, err
	}
	defer unlock()

	session, err := s.load(ctx, learnerID)
	if err != nil {
		return AnswerOutcome{}, err
	}
	q, _ := session.CurrentQuestion()

	record, err := session.Answer(choice)
	if err != nil {
		return AnswerOutcome{}, err
	}
	if err := s.store.Save(ctx, learnerID, session); err != nil {
		return AnswerOutcome{}, fmt.Errorf("save attempt: %w", err)
	}
	s.metrics.AnswerRecorded(record.Correct)

	out := AnswerOutcome{
		Record:       record,
		CorrectIndex: q.AnswerIndex,
		IsLast:       session.CurrentIndex == len(session.Attempt.Questions)-1,
	}
	if session.Attempt.Mode == ModePractice {
		out.Rationale = q.Rationale
		out.HandbookRef = q.HandbookRef
	}
	return out, nil
}

// Next moves past the answered current question. Passing the last question
// finishes the attempt: its report is recorded and the slot is cleared.
// When recording fails the slot is kept so the learner can retry.
func (s *Service) Next(ctx context.Context, learnerID uuid.UUID) (NextOutcome, error) {
	unlock, err := s.store.Lock(ctx, learnerID)
	if err != nil {
		return NextOutcome{}, err
	}
	defer unlock()

	session, err := s.load(ctx, learnerID)
	if err != nil {
		return NextOutcome{}, err
	}

	finished, err := session.Advance()
	if err != nil {
		return NextOutcome{}, err
	}
	if !finished {
		if err := s.store.Save(ctx, learnerID, session); err != nil {
			return NextOutcome{}, fmt.Errorf("save attempt: %w", err)
		}
		return NextOutcome{Session: session}, nil
	}

	report, err := s.finish(ctx, learnerID, session)
	if err != nil {
		return NextOutcome{}, err
	}
	return NextOutcome{Session: session, Report: &report}, nil
}

// Report scores the in-progress attempt as it stands.
func (s *Service) Report(ctx context.Context, learnerID uuid.UUID) (scoring.Report, error) {
	session, err := s.load(ctx, learnerID)
	if err != nil {
		return scoring.Report{}, err
	}
	return s.engine.BuildReport(session.Attempt.Questions, session.Answers), nil
}

// Discard clears the learner's slot.
func (s *Service) Discard(ctx context.Context, learnerID uuid.UUID) error {
	unlock, err := s.store.Lock(ctx, learnerID)
	if err != nil {
		return err
	}
	defer unlock()

	if err := s.store.Clear(ctx, learnerID); err != nil {
		return fmt.Errorf("clear attempt: %w", err)
	}
	s.logger.Info().Str("learner_id", learnerID.String()).Msg("attempt discarded")
	return nil
}

func (s *Service) finish(ctx context.Context, learnerID uuid.UUID, session *Session) (scoring.Report, error) {
	a := session.Attempt
	report := s.engine.BuildReport(a.Questions, session.Answers)

	if s.recorder != nil {
		if err := s.recorder.Record(ctx, learnerID, a, report); err != nil {
			return scoring.Report{}, fmt.Errorf("record attempt: %w", err)
		}
	}
	if err := s.store.Clear(ctx, learnerID); err != nil {
		// a finished slot no longer restores, so Next cannot record it twice
		s.logger.Warn().Err(err).Str("learner_id", learnerID.String()).Msg("failed to clear finished attempt")
		if saveErr := s.store.Save(ctx, learnerID, session); saveErr != nil {
			s.logger.Error().Err(saveErr).Str("learner_id", learnerID.String()).Msg("failed to mark attempt finished")
		}
	}

	s.metrics.AttemptFinished(string(a.Mode), report.Result.Passed, report.Result.Percentage)
	s.logger.Info().
		Str("learner_id", learnerID.String()).
		Str("attempt_id", a.ID.String()).
		Int("correct", report.Result.Correct).
		Int("total", report.Result.Total).
		Bool("passed", report.Result.Passed).
		Msg("attempt finished")
	return report, nil
}

// weakestCategory picks the first ranked category with a miss, or the top
// ranked one when nothing has been missed yet.
func (s *Service) weakestCategory(ctx context.Context, learnerID uuid.UUID) (question.Category, error) {
	if s.weaknesses == nil {
		return "", ErrNoWeakArea
	}
	ranked, _, err := s.weaknesses.Weaknesses(ctx, learnerID)
	if err != nil {
		return "", fmt.Errorf("rank weaknesses: %w", err)
	}
	if len(ranked) == 0 {
		return "", ErrNoWeakArea
	}
	pick := ranked[0].Category
	for _, w := range ranked {
		if w.Missed > 0 {
			pick = w.Category
			break
		}
	}
	s.logger.Debug().Str("learner_id", learnerID.String()).Str("category", string(pick)).Msg("weak area selected")
	return pick, nil
}

func (s *Service) load(ctx context.Context, learnerID uuid.UUID) (*Session, error) {
	session, err := s.store.Load(ctx, learnerID)
	if errors.Is(err, ErrCorruptSlot) {
		s.logger.Warn().Err(err).Str("learner_id", learnerID.String()).Msg("discarding unreadable attempt slot")
		if clearErr := s.store.Clear(ctx, learnerID); clearErr != nil {
			s.logger.Warn().Err(clearErr).Msg("failed to clear attempt slot")
		}
		return nil, ErrNoSavedAttempt
	}
	return session, err
}
