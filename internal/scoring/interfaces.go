package scoring

import (
	"context"
	"image"

	"engagement-service/internal/entity"
)

// FaceDetector locates faces in a full frame. Result order is detector-defined.
type FaceDetector interface {
	Detect(ctx context.Context, frame image.Image) ([]entity.FaceBox, error)
}

// LandmarkExtractor returns a face mesh for a single face region, or false
// when no mesh is found.
type LandmarkExtractor interface {
	Extract(ctx context.Context, region image.Image) (entity.LandmarkSet, bool, error)
}
