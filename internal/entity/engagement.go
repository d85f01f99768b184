package entity

type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// LandmarkSet holds face-mesh points normalized to [0,1] relative to the face crop.
type LandmarkSet []Point

type BoundingBox struct {
	X1 int `json:"x1"`
	Y1 int `json:"y1"`
	X2 int `json:"x2"`
	Y2 int `json:"y2"`
}

func (b BoundingBox) Width() int {
	return b.X2 - b.X1
}

func (b BoundingBox) Height() int {
	return b.Y2 - b.Y1
}

func (b BoundingBox) Empty() bool {
	return b.Width() <= 0 || b.Height() <= 0
}

// Clip restricts the box to an image of the given size.
func (b BoundingBox) Clip(width, height int) BoundingBox {
	return BoundingBox{
		X1: max(0, b.X1),
		Y1: max(0, b.Y1),
		X2: min(width, b.X2),
		Y2: min(height, b.Y2),
	}
}

func (b BoundingBox) Array() [4]int {
	return [4]int{b.X1, b.Y1, b.X2, b.Y2}
}

// FaceBox is one face reported by the external detector.
type FaceBox struct {
	BBox       BoundingBox
	Confidence float64
}

type EngagementMetrics struct {
	EyeOpenness     float64 `json:"eye_openness"`
	HeadPoseScore   float64 `json:"head_pose_score"`
	EngagementScore float64 `json:"engagement_score"`
	Yaw             float64 `json:"yaw"`
	Pitch           float64 `json:"pitch"`
	LeftEAR         float64 `json:"left_ear"`
	RightEAR        float64 `json:"right_ear"`
}

// ZeroEngagement is the record used whenever a face could not be scored.
func ZeroEngagement() EngagementMetrics {
	return EngagementMetrics{}
}

// EngagementResult is either Scored (metrics present) or Unscored.
type EngagementResult struct {
	metrics EngagementMetrics
	scored  bool
}

func Scored(m EngagementMetrics) EngagementResult {
	return EngagementResult{metrics: m, scored: true}
}

func Unscored() EngagementResult {
	return EngagementResult{metrics: ZeroEngagement()}
}

func (r EngagementResult) IsScored() bool {
	return r.scored
}

// Metrics returns the scored metrics, or the zero record when unscored.
func (r EngagementResult) Metrics() EngagementMetrics {
	if !r.scored {
		return ZeroEngagement()
	}
	return r.metrics
}

type LivenessMetrics struct {
	IsLive        bool    `json:"is_live"`
	LivenessScore float64 `json:"liveness_score"`
}

type EngagementClass struct {
	Label string `json:"label"`
	Level int    `json:"level"`
}

type DetectionRecord struct {
	FaceID     int
	BBox       BoundingBox
	Confidence float64
	Engagement EngagementResult
	Liveness   LivenessMetrics
	Class      EngagementClass
}
