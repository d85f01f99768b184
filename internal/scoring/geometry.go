package scoring

import (
	"math"

	"engagement-service/internal/entity"
)

const earEpsilon = 1e-6

// Face-mesh indices used by the scorers.
const (
	NoseTip  = 1
	Chin     = 152
	LeftEar  = 234
	RightEar = 454
)

var (
	LeftEyeIndices  = [6]int{33, 160, 158, 133, 153, 144}
	RightEyeIndices = [6]int{362, 385, 387, 263, 373, 380}
)

func dist(a, b entity.Point) float64 {
	return math.Hypot(a.X-b.X, a.Y-b.Y)
}

// EyeAspectRatio expects the outer corner, two upper-lid points, the inner
// corner and two lower-lid points, in that order.
func EyeAspectRatio(p1, p2, p3, p4, p5, p6 entity.Point) float64 {
	vertical := dist(p2, p6) + dist(p3, p5)
	return vertical / (2*dist(p1, p4) + earEpsilon)
}

// HeadPose returns yaw and pitch in degrees. The ear pair is the horizontal
// reference, the nose-chin pair the vertical one.
func HeadPose(nose, chin, leftEar, rightEar entity.Point) (yaw, pitch float64) {
	yaw = math.Atan2(rightEar.X-leftEar.X, rightEar.Y-leftEar.Y) * 180 / math.Pi
	pitch = math.Atan2(chin.Y-nose.Y, chin.X-nose.X) * 180 / math.Pi
	return yaw, pitch
}

func eyeRatio(lm entity.LandmarkSet, idx [6]int) float64 {
	return EyeAspectRatio(lm[idx[0]], lm[idx[1]], lm[idx[2]], lm[idx[3]], lm[idx[4]], lm[idx[5]])
}

// minLandmarks is the smallest mesh that covers every index read above.
const minLandmarks = RightEar + 1

// ScoreLandmarks derives engagement from a face mesh. Meshes too small to
// carry the required indices are Unscored.
func ScoreLandmarks(lm entity.LandmarkSet) entity.EngagementResult {
	if len(lm) < minLandmarks {
		return entity.Unscored()
	}

	left := eyeRatio(lm, LeftEyeIndices)
	right := eyeRatio(lm, RightEyeIndices)
	yaw, pitch := HeadPose(lm[NoseTip], lm[Chin], lm[LeftEar], lm[RightEar])

	return entity.Scored(ScoreEngagement(left, right, yaw, pitch))
}
