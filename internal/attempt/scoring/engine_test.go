package scoring

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/gokatarajesh/dmv-trainer/internal/question"
)

func makeQuestions(n int, c question.Category) []question.Question {
	qs := make([]question.Question, n)
	for i := range qs {
		qs[i] = question.Question{
			ID:          fmt.Sprintf("%s-%02d", c, i),
			Choices:     []string{"a", "b", "c", "d"},
			AnswerIndex: 0,
			Category:    c,
			Difficulty:  question.DifficultyMedium,
		}
	}
	return qs
}

func answerAll(qs []question.Question, correct int) []AnswerRecord {
	answers := make([]AnswerRecord, len(qs))
	for i, q := range qs {
		ok := i < correct
		sel := 0
		if !ok {
			sel = 1
		}
		answers[i] = AnswerRecord{QuestionID: q.ID, SelectedIndex: sel, Correct: ok}
	}
	return answers
}

func TestPassingCorrect(t *testing.T) {
	e := NewEngine(DefaultScoringConfig())
	tests := []struct {
		total int
		want  int
	}{
		{40, 36},
		{10, 9},
		{1, 1},
		{20, 18},
		{25, 23},
		{0, 0},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, e.PassingCorrect(tt.total), "total=%d", tt.total)
	}
}

func TestScoreBoundary(t *testing.T) {
	qs := makeQuestions(40, question.CategoryParking)

	pass := Score(qs, answerAll(qs, 36))
	assert.Equal(t, Result{Total: 40, Correct: 36, Wrong: 4, Percentage: 90, Passed: true, PassingCorrect: 36}, pass)

	fail := Score(qs, answerAll(qs, 35))
	assert.False(t, fail.Passed)
	assert.Equal(t, 5, fail.Wrong)
	assert.InDelta(t, 87.5, fail.Percentage, 1e-9)
}

func TestScoreDrill(t *testing.T) {
	qs := makeQuestions(10, question.CategoryParking)
	assert.True(t, Score(qs, answerAll(qs, 9)).Passed)
	assert.False(t, Score(qs, answerAll(qs, 8)).Passed)
}

func TestScoreUnansweredNeverCorrect(t *testing.T) {
	qs := makeQuestions(10, question.CategoryParking)
	answers := answerAll(qs[:5], 5)

	got := Score(qs, answers)
	assert.Equal(t, 5, got.Correct)
	assert.Equal(t, 5, got.Wrong, "wrong assumes full completion")
	assert.False(t, got.Passed)
}

func TestScoreEmptyAttempt(t *testing.T) {
	assert.Equal(t, Result{}, Score(nil, nil))
}

func TestEngineCustomThreshold(t *testing.T) {
	e := NewEngine(ScoringConfig{PassPercent: 80})
	qs := makeQuestions(10, question.CategoryParking)
	assert.Equal(t, 8, e.PassingCorrect(10))
	assert.True(t, e.Score(qs, answerAll(qs, 8)).Passed)

	assert.Equal(t, 36, NewEngine(ScoringConfig{}).PassingCorrect(40), "zero config falls back to defaults")
}
