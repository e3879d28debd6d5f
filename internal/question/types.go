package question

import (
	"fmt"
	"strings"
	"unicode"
)

// Difficulty of a single bank question.
type Difficulty string

// Difficulty constants for readability.
const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

// Difficulties lists every difficulty in ramp order.
var Difficulties = []Difficulty{DifficultyEasy, DifficultyMedium, DifficultyHard}

// Valid reports whether d is one of the three known difficulties.
func (d Difficulty) Valid() bool {
	switch d {
	case DifficultyEasy, DifficultyMedium, DifficultyHard:
		return true
	default:
		return false
	}
}

// SelectedDifficulty is the difficulty filter requested for an attempt.
// It is a Difficulty or Mix.
type SelectedDifficulty string

// Mix lets every difficulty through the filter.
const Mix SelectedDifficulty = "mix"

// Valid reports whether s is mix or a known difficulty.
func (s SelectedDifficulty) Valid() bool {
	return s == Mix || Difficulty(s).Valid()
}

// Matches reports whether a question of difficulty d passes the filter.
func (s SelectedDifficulty) Matches(d Difficulty) bool {
	return s == Mix || Difficulty(s) == d
}

// Label renders the filter for display ("Mix", "Easy").
func (s SelectedDifficulty) Label() string {
	if s == Mix {
		return "Mix"
	}
	if s == "" {
		return ""
	}
	return strings.ToUpper(string(s[:1])) + string(s[1:])
}

// ParseSelectedDifficulty accepts the wire form of a difficulty filter.
// An empty value means mix.
func ParseSelectedDifficulty(raw string) (SelectedDifficulty, error) {
	if raw == "" {
		return Mix, nil
	}
	s := SelectedDifficulty(strings.ToLower(raw))
	if !s.Valid() {
		return "", fmt.Errorf("unknown difficulty %q", raw)
	}
	return s, nil
}

// Category is one of the ten fixed handbook topics.
type Category string

// Categories of the knowledge test.
const (
	CategoryRightOfWay                 Category = "RightOfWay"
	CategorySignsSignalsMarkings       Category = "SignsSignalsMarkings"
	CategorySpeedAndFollowingDistance  Category = "SpeedAndFollowingDistance"
	CategoryLaneUseAndTurns            Category = "LaneUseAndTurns"
	CategoryParking                    Category = "Parking"
	CategoryFreewayDriving             Category = "FreewayDriving"
	CategorySharingTheRoad             Category = "SharingTheRoad"
	CategoryDistractedImpairedDriving  Category = "DistractedImpairedDriving"
	CategoryHazardsAndDefensiveDriving Category = "HazardsAndDefensiveDriving"
	CategoryLicensingRulesAndSafety    Category = "LicensingRulesAndSafety"
)

// Categories lists every category in handbook order.
var Categories = []Category{
	CategoryRightOfWay,
	CategorySignsSignalsMarkings,
	CategorySpeedAndFollowingDistance,
	CategoryLaneUseAndTurns,
	CategoryParking,
	CategoryFreewayDriving,
	CategorySharingTheRoad,
	CategoryDistractedImpairedDriving,
	CategoryHazardsAndDefensiveDriving,
	CategoryLicensingRulesAndSafety,
}

// Valid reports whether c is one of the ten categories.
func (c Category) Valid() bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

// Label splits the identifier on capitals: "RightOfWay" -> "Right Of Way".
func (c Category) Label() string {
	var b strings.Builder
	for i, r := range string(c) {
		if i > 0 && unicode.IsUpper(r) {
			b.WriteByte(' ')
		}
		b.WriteRune(r)
	}
	return b.String()
}

// ParseCategory validates a category received over the wire.
func ParseCategory(raw string) (Category, error) {
	c := Category(raw)
	if !c.Valid() {
		return "", fmt.Errorf("unknown category %q", raw)
	}
	return c, nil
}

// ChoiceCount is the fixed number of answer choices per question.
const ChoiceCount = 4

// Question is an immutable bank entry.
type Question struct {
	ID          string     `json:"id"`
	Prompt      string     `json:"question"`
	Choices     []string   `json:"choices"`
	AnswerIndex int        `json:"answerIndex"`
	Category    Category   `json:"category"`
	Difficulty  Difficulty `json:"difficulty"`
	Rationale   string     `json:"rationale"`
	HandbookRef string     `json:"handbookRef"`
}

// IsCorrect reports whether choice selects the correct answer.
func (q Question) IsCorrect(choice int) bool {
	return choice == q.AnswerIndex
}

// FilterByCategory returns the questions in category c, preserving order.
func FilterByCategory(qs []Question, c Category) []Question {
	out := make([]Question, 0, len(qs))
	for _, q := range qs {
		if q.Category == c {
			out = append(out, q)
		}
	}
	return out
}

// FilterByDifficulty returns the questions passing the selected filter,
// preserving order. Mix returns a copy of qs.
func FilterByDifficulty(qs []Question, s SelectedDifficulty) []Question {
	out := make([]Question, 0, len(qs))
	for _, q := range qs {
		if s.Matches(q.Difficulty) {
			out = append(out, q)
		}
	}
	return out
}
