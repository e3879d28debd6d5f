package attempt

import (
	"errors"
	"fmt"

	"github.com/gokatarajesh/dmv-trainer/internal/question"
)

// InsufficientPoolMessage is shown to the test-taker when a filter leaves
// too few questions.
const InsufficientPoolMessage = "Not enough questions in this difficulty. Please choose Mix or regenerate the bank."

// ErrPoolInsufficient is wrapped by every PoolError.
var ErrPoolInsufficient = errors.New("question pool insufficient")

// PoolError reports which pool could not supply the requested count.
type PoolError struct {
	// Pool is the difficulty bucket for ramped builds, or the selected
	// difficulty filter for flat builds.
	Pool string
	Need int
	Have int
}

func (e *PoolError) Error() string {
	return fmt.Sprintf("%s: %s pool needs %d questions, has %d", ErrPoolInsufficient, e.Pool, e.Need, e.Have)
}

func (e *PoolError) Unwrap() error { return ErrPoolInsufficient }

// Message is the fixed user-facing text for this failure.
func (e *PoolError) Message() string { return InsufficientPoolMessage }

// BuildRequest describes the attempt to assemble.
type BuildRequest struct {
	Total          int
	ConfidenceMode bool
	Difficulty     question.SelectedDifficulty
	Category       *question.Category
}

// Selection is a successfully built question list.
type Selection struct {
	Questions               []question.Question
	EffectiveConfidenceMode bool
	// Ramp is set when the questions are block ordered.
	Ramp *Ramp
}

// EffectiveConfidenceMode reports whether ramp sampling applies. Ramping only
// makes sense while difficulty is mixed; a pinned difficulty silently turns
// it off.
func EffectiveConfidenceMode(requested bool, d question.SelectedDifficulty) bool {
	return requested && normalizeDifficulty(d) == question.Mix
}

// Build selects the questions of a new attempt from bank. It returns either
// exactly req.Total questions or a *PoolError, never a partial list.
func Build(bank []question.Question, req BuildRequest, rng RNG) (Selection, error) {
	if rng == nil {
		rng = DefaultRNG
	}
	difficulty := normalizeDifficulty(req.Difficulty)

	pool := bank
	if req.Category != nil {
		pool = question.FilterByCategory(pool, *req.Category)
	}
	pool = question.FilterByDifficulty(pool, difficulty)

	if EffectiveConfidenceMode(req.ConfidenceMode, difficulty) {
		return buildRamped(pool, req.Total, rng)
	}

	picked, ok := Sample(pool, req.Total, rng)
	if !ok {
		return Selection{}, &PoolError{Pool: string(difficulty), Need: req.Total, Have: len(pool)}
	}
	return Selection{Questions: picked}, nil
}

func buildRamped(pool []question.Question, total int, rng RNG) (Selection, error) {
	ramp := RampFor(total)
	selected := make([]question.Question, 0, max(total, 0))
	for _, d := range question.Difficulties {
		bucket := question.FilterByDifficulty(pool, question.SelectedDifficulty(d))
		picked, ok := Sample(bucket, ramp.Count(d), rng)
		if !ok {
			return Selection{}, &PoolError{Pool: string(d), Need: ramp.Count(d), Have: len(bucket)}
		}
		selected = append(selected, picked...)
	}
	return Selection{Questions: selected, EffectiveConfidenceMode: true, Ramp: &ramp}, nil
}

func normalizeDifficulty(d question.SelectedDifficulty) question.SelectedDifficulty {
	if d == "" {
		return question.Mix
	}
	return d
}
