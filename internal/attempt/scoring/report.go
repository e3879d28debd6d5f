package scoring

import "github.com/gokatarajesh/dmv-trainer/internal/question"

// Weakness is a ranked category with display label and study tips.
type Weakness struct {
	WeaknessResult
	Label   string   `json:"label"`
	Bullets []string `json:"bullets"`
}

// Report is everything shown once an attempt is over.
type Report struct {
	Result     Result              `json:"result"`
	Weaknesses []Weakness          `json:"weaknesses"`
	Missed     []question.Question `json:"missed"`
}

// BuildReport scores the attempt and ranks its weak categories.
func (e *Engine) BuildReport(questions []question.Question, answers []AnswerRecord) Report {
	ranked := RankWeaknesses(questions, answers)
	weaknesses := make([]Weakness, 0, len(ranked))
	for _, w := range ranked {
		weaknesses = append(weaknesses, Weakness{
			WeaknessResult: w,
			Label:          w.Category.Label(),
			Bullets:        Bullets(w.Category),
		})
	}
	return Report{
		Result:     e.Score(questions, answers),
		Weaknesses: weaknesses,
		Missed:     MissedQuestions(questions, answers),
	}
}
