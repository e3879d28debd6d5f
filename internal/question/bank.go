package question

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// Bank size limits accepted by Validate.
const (
	MinBankSize = 400
	MaxBankSize = 700
)

const (
	minPromptLen      = 15
	minRationaleLen   = 30
	minHandbookRefLen = 3
)

// ValidationError lists every problem found in a bank.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("question bank validation failed: %d problem(s): %s",
		len(e.Problems), strings.Join(e.Problems, "; "))
}

// Stats summarises a bank by category and difficulty.
type Stats struct {
	Total        int                `json:"total"`
	ByCategory   map[Category]int   `json:"by_category"`
	ByDifficulty map[Difficulty]int `json:"by_difficulty"`
}

// Validate checks the structural rules a bank must satisfy before it is
// imported. It collects all problems rather than stopping at the first.
func Validate(qs []Question) error {
	var problems []string
	if len(qs) < MinBankSize || len(qs) > MaxBankSize {
		problems = append(problems, fmt.Sprintf("question bank size must be %d-%d, found %d", MinBankSize, MaxBankSize, len(qs)))
	}

	seen := make(map[string]struct{}, len(qs))
	for i, q := range qs {
		label := fmt.Sprintf("item %d", i+1)
		if q.ID == "" {
			problems = append(problems, label+": missing id")
		}
		if _, dup := seen[q.ID]; dup {
			problems = append(problems, fmt.Sprintf("%s: duplicate id %s", label, q.ID))
		}
		seen[q.ID] = struct{}{}

		if len(strings.TrimSpace(q.Prompt)) < minPromptLen {
			problems = append(problems, label+": question too short")
		}
		if len(q.Choices) != ChoiceCount {
			problems = append(problems, fmt.Sprintf("%s: choices must be exactly %d strings", label, ChoiceCount))
		}
		for _, c := range q.Choices {
			if strings.TrimSpace(c) == "" {
				problems = append(problems, label+": invalid choice text")
				break
			}
		}
		if q.AnswerIndex < 0 || q.AnswerIndex >= len(q.Choices) {
			problems = append(problems, label+": invalid answerIndex")
		}
		if !q.Category.Valid() {
			problems = append(problems, fmt.Sprintf("%s: invalid category %s", label, q.Category))
		}
		if !q.Difficulty.Valid() {
			problems = append(problems, fmt.Sprintf("%s: invalid difficulty %s", label, q.Difficulty))
		}
		if len(strings.TrimSpace(q.Rationale)) < minRationaleLen {
			problems = append(problems, label+": rationale too short")
		}
		if len(strings.TrimSpace(q.HandbookRef)) < minHandbookRefLen {
			problems = append(problems, label+": invalid handbookRef")
		}
	}

	if len(problems) > 0 {
		return &ValidationError{Problems: problems}
	}
	return nil
}

// Summarize counts questions per category and difficulty.
func Summarize(qs []Question) Stats {
	stats := Stats{
		Total:        len(qs),
		ByCategory:   make(map[Category]int),
		ByDifficulty: make(map[Difficulty]int),
	}
	for _, q := range qs {
		stats.ByCategory[q.Category]++
		stats.ByDifficulty[q.Difficulty]++
	}
	return stats
}

// Decode reads a JSON array of questions.
func Decode(r io.Reader) ([]Question, error) {
	var qs []Question
	if err := json.NewDecoder(r).Decode(&qs); err != nil {
		return nil, fmt.Errorf("decode question bank: %w", err)
	}
	if qs == nil {
		return nil, errors.New("decode question bank: expected a JSON array")
	}
	return qs, nil
}

// LoadFile decodes the bank stored at path.
func LoadFile(path string) ([]Question, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open question bank: %w", err)
	}
	defer f.Close()
	return Decode(f)
}
