package scoring

import "engagement-service/internal/entity"

const (
	HighlyEngaged    = "Highly Engaged"
	Engaged          = "Engaged"
	Neutral          = "Neutral"
	Disengaged       = "Disengaged"
	HighlyDisengaged = "Highly Disengaged"
)

var engagementBands = []struct {
	min   float64
	class entity.EngagementClass
}{
	{80, entity.EngagementClass{Label: HighlyEngaged, Level: 5}},
	{60, entity.EngagementClass{Label: Engaged, Level: 4}},
	{40, entity.EngagementClass{Label: Neutral, Level: 3}},
	{20, entity.EngagementClass{Label: Disengaged, Level: 2}},
}

// EngagementLabels lists every class label from highest to lowest level.
func EngagementLabels() []string {
	return []string{HighlyEngaged, Engaged, Neutral, Disengaged, HighlyDisengaged}
}

func ClassifyEngagement(score float64) entity.EngagementClass {
	score = clamp(score, 0, 100)
	for _, band := range engagementBands {
		if score >= band.min {
			return band.class
		}
	}
	return entity.EngagementClass{Label: HighlyDisengaged, Level: 1}
}
