package scoring

import (
	"sort"

	"github.com/gokatarajesh/dmv-trainer/internal/question"
)

// WeaknessResult is the miss rate of one category within an attempt.
type WeaknessResult struct {
	Category question.Category `json:"category"`
	Missed   int               `json:"missed"`
	Total    int               `json:"total"`
	MissRate float64           `json:"missRate"`
}

// RankWeaknesses returns one entry per category present in questions,
// highest miss rate first. Unanswered questions count toward Total only.
func RankWeaknesses(questions []question.Question, answers []AnswerRecord) []WeaknessResult {
	byID := answerIndex(answers)

	var order []question.Category
	stats := make(map[question.Category]*WeaknessResult)
	for _, q := range questions {
		entry, ok := stats[q.Category]
		if !ok {
			entry = &WeaknessResult{Category: q.Category}
			stats[q.Category] = entry
			order = append(order, q.Category)
		}
		entry.Total++
		if a, answered := byID[q.ID]; answered && !a.Correct {
			entry.Missed++
		}
	}

	results := make([]WeaknessResult, 0, len(order))
	for _, c := range order {
		results = append(results, *stats[c])
	}
	return RankTotals(results)
}

// RankTotals fills in MissRate and sorts by miss rate, then missed count,
// both descending. Equal entries keep their input order.
func RankTotals(entries []WeaknessResult) []WeaknessResult {
	ranked := make([]WeaknessResult, len(entries))
	copy(ranked, entries)
	for i := range ranked {
		ranked[i].MissRate = missRate(ranked[i].Missed, ranked[i].Total)
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].MissRate != ranked[j].MissRate {
			return ranked[i].MissRate > ranked[j].MissRate
		}
		return ranked[i].Missed > ranked[j].Missed
	})
	return ranked
}

// MissedQuestions returns the questions answered incorrectly, in attempt
// order. Unanswered questions are excluded.
func MissedQuestions(questions []question.Question, answers []AnswerRecord) []question.Question {
	byID := answerIndex(answers)
	missed := make([]question.Question, 0)
	for _, q := range questions {
		if a, ok := byID[q.ID]; ok && !a.Correct {
			missed = append(missed, q)
		}
	}
	return missed
}

func missRate(missed, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(missed) / float64(total)
}
