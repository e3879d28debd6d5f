package scoring

import "github.com/gokatarajesh/dmv-trainer/internal/question"

// Bullets returns the two study tips shown for a weak category.
func Bullets(c question.Category) []string {
	switch c {
	case question.CategoryRightOfWay:
		return []string{"Review yielding order at stops and uncontrolled intersections.", "Practice who must wait during left turns and crosswalk conflicts."}
	case question.CategorySignsSignalsMarkings:
		return []string{"Revisit sign colors and signal meanings.", "Practice lane markings and turn-arrow lane rules."}
	case question.CategorySpeedAndFollowingDistance:
		return []string{"Review safe speed choices for weather and visibility.", "Use 3-second gap basics and increase space in riskier conditions."}
	case question.CategoryLaneUseAndTurns:
		return []string{"Reinforce lane position before and after turns.", "Practice mirror-signal-head-check sequence before lane changes."}
	case question.CategoryParking:
		return []string{"Study curb color restrictions and prohibited parking distances.", "Practice uphill/downhill wheel direction rules."}
	case question.CategoryFreewayDriving:
		return []string{"Review merge strategy using acceleration lanes and gap selection.", "Reinforce missed-exit and shoulder-use rules."}
	case question.CategorySharingTheRoad:
		return []string{"Review how to pass bikes and interact with motorcycles safely.", "Study truck blind spots and pedestrian right-of-way priority."}
	case question.CategoryDistractedImpairedDriving:
		return []string{"Reinforce no-distraction habits before and during trips.", "Review impairment risks from alcohol, drugs, and fatigue."}
	case question.CategoryHazardsAndDefensiveDriving:
		return []string{"Practice hazard scanning and early speed adjustment.", "Review skid, glare, and work-zone response basics."}
	case question.CategoryLicensingRulesAndSafety:
		return []string{"Review restraint, lighting, and carry-document requirements.", "Practice legal expectations during traffic stops."}
	default:
		return nil
	}
}
