package scoring

import (
	"context"
	"fmt"
	"image"

	"engagement-service/internal/entity"
	"github.com/disintegration/imaging"
)

type Aggregator struct {
	detector  FaceDetector
	extractor LandmarkExtractor
}

func NewAggregator(detector FaceDetector, extractor LandmarkExtractor) *Aggregator {
	return &Aggregator{
		detector:  detector,
		extractor: extractor,
	}
}

// BuildRecord assembles one face record. Unscored engagement yields the zero
// engagement record; liveness is kept as computed.
func BuildRecord(faceID int, face entity.FaceBox, engagement entity.EngagementResult, liveness entity.LivenessMetrics) entity.DetectionRecord {
	return entity.DetectionRecord{
		FaceID:     faceID,
		BBox:       face.BBox,
		Confidence: face.Confidence,
		Engagement: engagement,
		Liveness:   liveness,
		Class:      ClassifyEngagement(engagement.Metrics().EngagementScore),
	}
}

func (a *Aggregator) engagement(ctx context.Context, region image.Image) (entity.EngagementResult, error) {
	// front-camera frames arrive mirrored relative to the mesh model
	mirrored := imaging.FlipH(region)

	landmarks, found, err := a.extractor.Extract(ctx, mirrored)
	if err != nil {
		return entity.Unscored(), fmt.Errorf("extract landmarks: %w", err)
	}
	if !found {
		return entity.Unscored(), nil
	}

	return ScoreLandmarks(landmarks), nil
}

func (a *Aggregator) ScoreFace(ctx context.Context, frame image.Image, faceID int, face entity.FaceBox) (entity.DetectionRecord, error) {
	region, _, ok := CropFace(frame, face.BBox)
	liveness := regionLiveness(region, ok)
	if !ok {
		return BuildRecord(faceID, face, entity.Unscored(), liveness), nil
	}

	engagement, err := a.engagement(ctx, region)
	if err != nil {
		return entity.DetectionRecord{}, err
	}

	return BuildRecord(faceID, face, engagement, liveness), nil
}

// ScoreFrame runs detection and scores every face. face_id is the index in
// detector order and is not stable across frames.
func (a *Aggregator) ScoreFrame(ctx context.Context, frame image.Image) ([]entity.DetectionRecord, error) {
	faces, err := a.detector.Detect(ctx, frame)
	if err != nil {
		return nil, fmt.Errorf("detect faces: %w", err)
	}

	records := make([]entity.DetectionRecord, 0, len(faces))
	for i, face := range faces {
		record, err := a.ScoreFace(ctx, frame, i, face)
		if err != nil {
			return nil, fmt.Errorf("score face %d: %w", i, err)
		}
		records = append(records, record)
	}

	return records, nil
}
