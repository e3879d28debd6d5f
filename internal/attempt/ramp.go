package attempt

import (
	"fmt"

	"github.com/gokatarajesh/dmv-trainer/internal/question"
)

// Standard attempt sizes.
const (
	FullTestSize = 40
	DrillSize    = 10
)

// Ramp splits an attempt into easy, medium and hard blocks served in that order.
type Ramp struct {
	Easy   int `json:"easy"`
	Medium int `json:"medium"`
	Hard   int `json:"hard"`
}

// RampFor returns the canonical ramp for total. 40 and 10 have fixed ramps;
// other sizes put 30% (rounded down) in easy and hard each and the remainder
// in medium, so the blocks always sum to total.
func RampFor(total int) Ramp {
	switch total {
	case FullTestSize:
		return Ramp{Easy: 12, Medium: 16, Hard: 12}
	case DrillSize:
		return Ramp{Easy: 3, Medium: 4, Hard: 3}
	}
	easy := total * 3 / 10
	hard := total * 3 / 10
	return Ramp{Easy: easy, Medium: total - easy - hard, Hard: hard}
}

// Count returns the block size for d.
func (r Ramp) Count(d question.Difficulty) int {
	switch d {
	case question.DifficultyEasy:
		return r.Easy
	case question.DifficultyMedium:
		return r.Medium
	case question.DifficultyHard:
		return r.Hard
	default:
		panic(fmt.Sprintf("ramp: unknown difficulty %q", d))
	}
}

// Total is the sum of all blocks.
func (r Ramp) Total() int {
	return r.Easy + r.Medium + r.Hard
}
