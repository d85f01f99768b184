package engagement

import (
	"engagement-service/internal/entity"
)

type DetectRequest struct {
	Frame string `json:"frame" validate:"required"`
}

type DetectionDTO struct {
	FaceID            int     `json:"face_id"`
	BBox              [4]int  `json:"bbox"`
	Confidence        float64 `json:"confidence"`
	Engagement        float64 `json:"engagement"`
	EyeOpenness       float64 `json:"eye_openness"`
	HeadPose          float64 `json:"head_pose"`
	IsLive            bool    `json:"is_live"`
	LivenessScore     float64 `json:"liveness_score"`
	OverallEngagement float64 `json:"overall_engagement"`
	Yaw               float64 `json:"yaw"`
	Pitch             float64 `json:"pitch"`
	LeftEAR           float64 `json:"left_ear"`
	RightEAR          float64 `json:"right_ear"`
	EngagementClass   string  `json:"engagement_class"`
	EngagementLevel   int     `json:"engagement_level"`
	LandmarksFound    bool    `json:"landmarks_found"`
}

type DetectResponse struct {
	FacesDetected int            `json:"faces_detected"`
	Detections    []DetectionDTO `json:"detections"`
}

type BatchRequest struct {
	Frames              []string `json:"frames" validate:"required"`
	EngagementThreshold *float64 `json:"engagement_threshold"`
	LivenessThreshold   *float64 `json:"liveness_threshold"`
}

// Thresholds fills the defaults for any threshold the caller left out.
func (r BatchRequest) Thresholds() entity.BatchThresholds {
	t := entity.DefaultThresholds()
	if r.EngagementThreshold != nil {
		t.EngagementThreshold = *r.EngagementThreshold
	}
	if r.LivenessThreshold != nil {
		t.LivenessThreshold = *r.LivenessThreshold
	}
	return t
}

type HealthResponse struct {
	Status          string `json:"status"`
	VisionConnected bool   `json:"vision_connected"`
	CacheEnabled    bool   `json:"cache_enabled"`
}

func NewDetectionDTO(r entity.DetectionRecord) DetectionDTO {
	m := r.Engagement.Metrics()
	return DetectionDTO{
		FaceID:            r.FaceID,
		BBox:              r.BBox.Array(),
		Confidence:        r.Confidence,
		Engagement:        m.EngagementScore,
		EyeOpenness:       m.EyeOpenness,
		HeadPose:          m.HeadPoseScore,
		IsLive:            r.Liveness.IsLive,
		LivenessScore:     r.Liveness.LivenessScore,
		OverallEngagement: m.EngagementScore,
		Yaw:               m.Yaw,
		Pitch:             m.Pitch,
		LeftEAR:           m.LeftEAR,
		RightEAR:          m.RightEAR,
		EngagementClass:   r.Class.Label,
		EngagementLevel:   r.Class.Level,
		LandmarksFound:    r.Engagement.IsScored(),
	}
}

func NewDetectResponse(records []entity.DetectionRecord) *DetectResponse {
	resp := &DetectResponse{
		FacesDetected: len(records),
		Detections:    make([]DetectionDTO, 0, len(records)),
	}
	for _, r := range records {
		resp.Detections = append(resp.Detections, NewDetectionDTO(r))
	}
	return resp
}
