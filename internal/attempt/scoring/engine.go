package scoring

import (
	"github.com/gokatarajesh/dmv-trainer/internal/question"
)

// ScoringConfig holds configurable scoring constants (defaults match the DMV rules).
type ScoringConfig struct {
	PassPercent int // default: 90, minimum share of correct answers needed to pass
}

// DefaultScoringConfig returns production defaults.
func DefaultScoringConfig() ScoringConfig {
	return ScoringConfig{PassPercent: 90}
}

// Engine scores finished attempts.
type Engine struct {
	config ScoringConfig
}

// NewEngine creates a scoring engine with the provided config.
func NewEngine(config ScoringConfig) *Engine {
	if config.PassPercent <= 0 || config.PassPercent > 100 {
		config.PassPercent = DefaultScoringConfig().PassPercent
	}
	return &Engine{config: config}
}

var defaultEngine = NewEngine(DefaultScoringConfig())

// AnswerRecord is one answered question. Correct is computed once when the
// answer is given and never recomputed.
type AnswerRecord struct {
	QuestionID    string `json:"questionId"`
	SelectedIndex int    `json:"selectedIndex"`
	Correct       bool   `json:"correct"`
}

// Result is the pass/fail summary of an attempt.
type Result struct {
	Total          int     `json:"total"`
	Correct        int     `json:"correct"`
	Wrong          int     `json:"wrong"`
	Percentage     float64 `json:"percentage"`
	Passed         bool    `json:"passed"`
	PassingCorrect int     `json:"passingCorrect"`
}

// PassingCorrect is the minimum number of correct answers needed to pass a
// test of total questions, rounded up.
func (e *Engine) PassingCorrect(total int) int {
	if total <= 0 {
		return 0
	}
	return (total*e.config.PassPercent + 99) / 100
}

// Score reduces answers to a Result. Wrong assumes every question was
// answered exactly once. An empty question list yields a zero Result.
func (e *Engine) Score(questions []question.Question, answers []AnswerRecord) Result {
	total := len(questions)
	if total == 0 {
		return Result{}
	}

	correct := 0
	for _, a := range answers {
		if a.Correct {
			correct++
		}
	}

	passing := e.PassingCorrect(total)
	return Result{
		Total:          total,
		Correct:        correct,
		Wrong:          total - correct,
		Percentage:     float64(correct) * 100 / float64(total),
		Passed:         correct >= passing,
		PassingCorrect: passing,
	}
}

// Score scores with the default 90% pass threshold.
func Score(questions []question.Question, answers []AnswerRecord) Result {
	return defaultEngine.Score(questions, answers)
}

func answerIndex(answers []AnswerRecord) map[string]AnswerRecord {
	byID := make(map[string]AnswerRecord, len(answers))
	for _, a := range answers {
		byID[a.QuestionID] = a
	}
	return byID
}
