package attempt

import (
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/gokatarajesh/dmv-trainer/internal/attempt/scoring"
	"github.com/gokatarajesh/dmv-trainer/internal/question"
)

// Mode governs whether the rationale is shown right after answering.
type Mode string

const (
	ModePractice Mode = "practice"
	ModeExam     Mode = "exam"
)

// Valid reports whether m is a known mode.
func (m Mode) Valid() bool {
	return m == ModePractice || m == ModeExam
}

// Stage of the persisted slot.
type Stage string

const (
	StageTesting  Stage = "testing"
	StageFinished Stage = "finished"
)

var (
	ErrNoSavedAttempt  = errors.New("no saved attempt")
	ErrCorruptSlot     = errors.New("saved attempt is corrupt")
	ErrAlreadyAnswered = errors.New("question already answered")
	ErrNotAnswered     = errors.New("current question not answered")
	ErrInvalidChoice   = errors.New("choice index out of range")
	ErrAttemptFinished = errors.New("attempt already finished")
)

// AnswerRecord is shared with the scorer.
type AnswerRecord = scoring.AnswerRecord

// Attempt is one test-taking session. Questions are fixed once built.
type Attempt struct {
	ID                 uuid.UUID                   `json:"id"`
	Mode               Mode                        `json:"mode"`
	ConfidenceMode     bool                        `json:"confidenceMode"`
	SelectedDifficulty question.SelectedDifficulty `json:"selectedDifficulty"`
	Questions          []question.Question         `json:"questions"`
	TotalQuestions     int                         `json:"totalQuestions"`
	CategoryDrill      *question.Category          `json:"categoryDrill,omitempty"`
	StartedAt          time.Time                   `json:"startedAt"`
}

// Session is the resumable state kept in a learner's single attempt slot.
type Session struct {
	Stage        Stage          `json:"stage"`
	Attempt      *Attempt       `json:"attempt"`
	Answers      []AnswerRecord `json:"answers"`
	CurrentIndex int            `json:"currentIndex"`
}

func newSession(a *Attempt) *Session {
	return &Session{
		Stage:   StageTesting,
		Attempt: a,
		Answers: []AnswerRecord{},
	}
}

// CurrentQuestion returns the question at CurrentIndex.
func (s *Session) CurrentQuestion() (question.Question, bool) {
	if s.Attempt == nil || s.CurrentIndex < 0 || s.CurrentIndex >= len(s.Attempt.Questions) {
		return question.Question{}, false
	}
	return s.Attempt.Questions[s.CurrentIndex], true
}

// AnswerFor looks up the answer given to questionID.
func (s *Session) AnswerFor(questionID string) (AnswerRecord, bool) {
	for _, a := range s.Answers {
		if a.QuestionID == questionID {
			return a, true
		}
	}
	return AnswerRecord{}, false
}

// Answer appends the answer to the current question. Each question accepts
// exactly one answer; correctness is fixed here.
func (s *Session) Answer(choice int) (AnswerRecord, error) {
	if s.Stage != StageTesting {
		return AnswerRecord{}, ErrAttemptFinished
	}
	q, ok := s.CurrentQuestion()
	if !ok {
		return AnswerRecord{}, ErrCorruptSlot
	}
	if choice < 0 || choice >= len(q.Choices) {
		return AnswerRecord{}, ErrInvalidChoice
	}
	if _, answered := s.AnswerFor(q.ID); answered {
		return AnswerRecord{}, ErrAlreadyAnswered
	}
	record := AnswerRecord{QuestionID: q.ID, SelectedIndex: choice, Correct: q.IsCorrect(choice)}
	s.Answers = append(s.Answers, record)
	return record, nil
}

// Advance moves to the next question. It reports true when the current
// question was the last one and the attempt is now finished.
func (s *Session) Advance() (bool, error) {
	if s.Stage != StageTesting {
		return false, ErrAttemptFinished
	}
	q, ok := s.CurrentQuestion()
	if !ok {
		return false, ErrCorruptSlot
	}
	if _, answered := s.AnswerFor(q.ID); !answered {
		return false, ErrNotAnswered
	}
	if s.CurrentIndex >= len(s.Attempt.Questions)-1 {
		s.Stage = StageFinished
		return true, nil
	}
	s.CurrentIndex++
	return false, nil
}

// normalize repairs a restored session and rejects shapes that cannot be
// resumed. A missing difficulty means mix, and the effective confidence mode
// is derived again from the restored difficulty.
func (s *Session) normalize() error {
	if s.Stage != StageTesting || s.Attempt == nil || len(s.Attempt.Questions) == 0 {
		return ErrCorruptSlot
	}
	if s.CurrentIndex < 0 || s.CurrentIndex >= len(s.Attempt.Questions) {
		return ErrCorruptSlot
	}
	if s.Attempt.SelectedDifficulty == "" {
		s.Attempt.SelectedDifficulty = question.Mix
	}
	if !s.Attempt.SelectedDifficulty.Valid() || !s.Attempt.Mode.Valid() {
		return ErrCorruptSlot
	}
	s.Attempt.ConfidenceMode = EffectiveConfidenceMode(s.Attempt.ConfidenceMode, s.Attempt.SelectedDifficulty)
	if s.Answers == nil {
		s.Answers = []AnswerRecord{}
	}
	return nil
}
