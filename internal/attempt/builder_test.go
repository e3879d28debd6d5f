package attempt

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gokatarajesh/dmv-trainer/internal/question"
)

func difficultyOf(q question.Question) question.Difficulty { return q.Difficulty }

func TestBuildMixedNoRamp(t *testing.T) {
	bank := uniformBank(5)
	sel, err := Build(bank, BuildRequest{Total: 40, Difficulty: question.Mix}, SeededRNG(1))
	require.NoError(t, err)

	assert.Len(t, sel.Questions, 40)
	assert.NoError(t, assertDistinct(sel.Questions))
	assert.False(t, sel.EffectiveConfidenceMode)
	assert.Nil(t, sel.Ramp)
}

func TestBuildEmptyDifficultyMeansMix(t *testing.T) {
	sel, err := Build(uniformBank(2), BuildRequest{Total: 40, ConfidenceMode: true}, SeededRNG(2))
	require.NoError(t, err)
	assert.True(t, sel.EffectiveConfidenceMode)
}

func TestBuildRampBlockOrder(t *testing.T) {
	// 45 per difficulty across the categories.
	var bank []question.Question
	for _, d := range question.Difficulties {
		for i, c := range question.Categories {
			n := 4
			if i < 5 {
				n = 5
			}
			bank = append(bank, bankOf(c, d, n)...)
		}
	}
	require.Len(t, question.FilterByDifficulty(bank, "hard"), 45)

	for seed := uint64(0); seed < 20; seed++ {
		sel, err := Build(bank, BuildRequest{Total: 40, ConfidenceMode: true, Difficulty: question.Mix}, SeededRNG(seed))
		require.NoError(t, err)
		require.Len(t, sel.Questions, 40)
		require.NotNil(t, sel.Ramp)
		assert.True(t, sel.EffectiveConfidenceMode)
		assert.NoError(t, assertDistinct(sel.Questions))

		for i, q := range sel.Questions {
			switch {
			case i < 12:
				assert.Equal(t, question.DifficultyEasy, q.Difficulty, "position %d", i)
			case i < 28:
				assert.Equal(t, question.DifficultyMedium, q.Difficulty, "position %d", i)
			default:
				assert.Equal(t, question.DifficultyHard, q.Difficulty, "position %d", i)
			}
		}
	}
}

func TestBuildPinnedDifficultyDisablesRamp(t *testing.T) {
	bank := uniformBank(5)
	sel, err := Build(bank, BuildRequest{Total: 40, ConfidenceMode: true, Difficulty: "hard"}, SeededRNG(4))
	require.NoError(t, err)

	assert.False(t, sel.EffectiveConfidenceMode)
	assert.Nil(t, sel.Ramp)
	assert.Equal(t, map[question.Difficulty]int{question.DifficultyHard: 40}, countBy(sel.Questions, difficultyOf))
}

func TestBuildPinnedDifficultyInsufficient(t *testing.T) {
	bank := append(uniformBank(0), bankOf(question.CategoryParking, question.DifficultyHard, 10)...)
	bank = append(bank, bankOf(question.CategoryParking, question.DifficultyEasy, 100)...)

	sel, err := Build(bank, BuildRequest{Total: 40, Difficulty: "hard"}, SeededRNG(5))
	require.Error(t, err)
	assert.Empty(t, sel.Questions)
	assert.True(t, errors.Is(err, ErrPoolInsufficient))

	var poolErr *PoolError
	require.ErrorAs(t, err, &poolErr)
	assert.Equal(t, "hard", poolErr.Pool)
	assert.Equal(t, 40, poolErr.Need)
	assert.Equal(t, 10, poolErr.Have)
	assert.Equal(t, "Not enough questions in this difficulty. Please choose Mix or regenerate the bank.", poolErr.Message())
}

func TestBuildRampBucketInsufficientIsAtomic(t *testing.T) {
	var bank []question.Question
	bank = append(bank, bankOf(question.CategoryParking, question.DifficultyEasy, 50)...)
	bank = append(bank, bankOf(question.CategoryParking, question.DifficultyMedium, 50)...)
	bank = append(bank, bankOf(question.CategoryParking, question.DifficultyHard, 11)...)

	sel, err := Build(bank, BuildRequest{Total: 40, ConfidenceMode: true, Difficulty: question.Mix}, SeededRNG(6))
	var poolErr *PoolError
	require.ErrorAs(t, err, &poolErr)
	assert.Equal(t, "hard", poolErr.Pool)
	assert.Equal(t, 12, poolErr.Need)
	assert.Equal(t, 11, poolErr.Have)
	assert.Nil(t, sel.Questions)
	assert.Nil(t, sel.Ramp)
}

func TestBuildMixedTotalExceedsBank(t *testing.T) {
	_, err := Build(uniformBank(1), BuildRequest{Total: 40}, SeededRNG(7))
	var poolErr *PoolError
	require.ErrorAs(t, err, &poolErr)
	assert.Equal(t, "mix", poolErr.Pool)
	assert.Equal(t, 30, poolErr.Have)
}

func TestBuildCategoryDrill(t *testing.T) {
	bank := uniformBank(6)
	drill := question.CategorySharingTheRoad

	sel, err := Build(bank, BuildRequest{Total: 10, ConfidenceMode: true, Difficulty: question.Mix, Category: &drill}, SeededRNG(8))
	require.NoError(t, err)
	require.Len(t, sel.Questions, 10)
	for _, q := range sel.Questions {
		assert.Equal(t, drill, q.Category)
	}
	assert.Equal(t, map[question.Difficulty]int{
		question.DifficultyEasy:   3,
		question.DifficultyMedium: 4,
		question.DifficultyHard:   3,
	}, countBy(sel.Questions, difficultyOf))
	assert.Equal(t, question.DifficultyEasy, sel.Questions[0].Difficulty)
	assert.Equal(t, question.DifficultyHard, sel.Questions[9].Difficulty)
}

func TestBuildCategoryDrillTooFewHard(t *testing.T) {
	drill := question.CategoryRightOfWay
	var bank []question.Question
	bank = append(bank, bankOf(drill, question.DifficultyEasy, 10)...)
	bank = append(bank, bankOf(drill, question.DifficultyMedium, 10)...)
	bank = append(bank, bankOf(drill, question.DifficultyHard, 2)...)
	bank = append(bank, bankOf(question.CategoryParking, question.DifficultyHard, 20)...)

	_, err := Build(bank, BuildRequest{Total: 10, ConfidenceMode: true, Difficulty: question.Mix, Category: &drill}, SeededRNG(9))
	var poolErr *PoolError
	require.ErrorAs(t, err, &poolErr)
	assert.Equal(t, "hard", poolErr.Pool)
	assert.Equal(t, 2, poolErr.Have)

	// without the ramp the same drill has enough questions
	sel, err := Build(bank, BuildRequest{Total: 10, Difficulty: question.Mix, Category: &drill}, SeededRNG(9))
	require.NoError(t, err)
	assert.Len(t, sel.Questions, 10)
}

func TestBuildZeroTotal(t *testing.T) {
	sel, err := Build(nil, BuildRequest{Total: 0}, nil)
	require.NoError(t, err)
	assert.Empty(t, sel.Questions)
}

func TestEffectiveConfidenceMode(t *testing.T) {
	assert.True(t, EffectiveConfidenceMode(true, question.Mix))
	assert.True(t, EffectiveConfidenceMode(true, ""))
	assert.False(t, EffectiveConfidenceMode(true, "easy"))
	assert.False(t, EffectiveConfidenceMode(false, question.Mix))
}
