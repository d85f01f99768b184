package metrics

import (
	"math"

	"engagement-service/internal/entity"
)

const metricPlaces = 4

// Sample is the part of a scored face the batch metrics read.
type Sample struct {
	Engagement    float64
	EyeOpenness   float64
	HeadPose      float64
	Yaw           float64
	Pitch         float64
	IsLive        bool
	LivenessScore float64
	Class         string
}

// BuildConfusionMatrix treats is_live as the actual label and
// engagement > threshold as the predicted label.
func BuildConfusionMatrix(samples []Sample, engagementThreshold float64) entity.ConfusionMatrix {
	var cm entity.ConfusionMatrix
	for _, s := range samples {
		predicted := s.Engagement > engagementThreshold
		switch {
		case predicted && s.IsLive:
			cm.TruePositive++
		case predicted && !s.IsLive:
			cm.FalsePositive++
		case !predicted && s.IsLive:
			cm.FalseNegative++
		default:
			cm.TrueNegative++
		}
	}
	cm.Total = cm.TruePositive + cm.FalsePositive + cm.FalseNegative + cm.TrueNegative
	return cm
}

func ratio(num, den float64) float64 {
	if den == 0 {
		return 0
	}
	return num / den
}

func Classify(cm entity.ConfusionMatrix) entity.ClassificationMetrics {
	tp := float64(cm.TruePositive)
	fp := float64(cm.FalsePositive)
	tn := float64(cm.TrueNegative)
	fn := float64(cm.FalseNegative)

	precision := ratio(tp, tp+fp)
	recall := ratio(tp, tp+fn)

	var mcc float64
	if radicand := (tp + fp) * (tp + fn) * (tn + fp) * (tn + fn); radicand > 0 {
		mcc = (tp*tn - fp*fn) / math.Sqrt(radicand)
	}

	return entity.ClassificationMetrics{
		Accuracy:          Round(ratio(tp+tn, float64(cm.Total)), metricPlaces),
		Precision:         Round(precision, metricPlaces),
		Recall:            Round(recall, metricPlaces),
		F1Score:           Round(ratio(2*precision*recall, precision+recall), metricPlaces),
		Specificity:       Round(ratio(tn, tn+fp), metricPlaces),
		FalsePositiveRate: Round(ratio(fp, fp+tn), metricPlaces),
		FalseNegativeRate: Round(ratio(fn, fn+tp), metricPlaces),
		MCC:               Round(mcc, metricPlaces),
	}
}
