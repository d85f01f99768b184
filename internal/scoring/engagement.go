package scoring

import (
	"math"

	"engagement-service/internal/entity"
)

const (
	closedEAR      = 0.15
	earSpan        = 0.15
	yawWeight      = 2.0
	pitchWeight    = 1.5
	eyeWeight      = 0.5
	headPoseWeight = 0.5
)

func clamp(v, lo, hi float64) float64 {
	return math.Min(math.Max(v, lo), hi)
}

// EyeOpenness maps EAR 0.15..0.30 onto 0..100.
func EyeOpenness(leftEAR, rightEAR float64) float64 {
	avg := (leftEAR + rightEAR) / 2
	return clamp((avg-closedEAR)/earSpan*100, 0, 100)
}

func HeadPoseScore(yaw, pitch float64) float64 {
	return math.Max(0, 100-(math.Abs(yaw)*yawWeight+math.Abs(pitch)*pitchWeight))
}

func ScoreEngagement(leftEAR, rightEAR, yaw, pitch float64) entity.EngagementMetrics {
	eye := EyeOpenness(leftEAR, rightEAR)
	head := HeadPoseScore(yaw, pitch)

	return entity.EngagementMetrics{
		EyeOpenness:     eye,
		HeadPoseScore:   head,
		EngagementScore: eyeWeight*eye + headPoseWeight*head,
		Yaw:             yaw,
		Pitch:           pitch,
		LeftEAR:         leftEAR,
		RightEAR:        rightEAR,
	}
}
