package engagementService

import (
	"context"
	"errors"
	"image"

	"engagement-service/internal/api/engagement"
	contextPkg "engagement-service/pkg/context"
	"engagement-service/pkg/log"
	"engagement-service/pkg/response"
	websocketPkg "engagement-service/pkg/websocket"
)

func (s *engagementService) DetectBase64(ctx context.Context, frame string) (*engagement.DetectResponse, error) {
	img, err := s.utils.DecodeBase64Image(frame)
	if err != nil {
		return nil, response.Wrap(engagement.ErrDecodeFailure, err)
	}
	return s.detect(ctx, img)
}

func (s *engagementService) DetectBytes(ctx context.Context, data []byte) (*engagement.DetectResponse, error) {
	img, err := s.utils.DecodeImage(data)
	if err != nil {
		return nil, response.Wrap(engagement.ErrDecodeFailure, err)
	}
	return s.detect(ctx, img)
}

func (s *engagementService) detect(ctx context.Context, img image.Image) (*engagement.DetectResponse, error) {
	records, err := s.aggregator.ScoreFrame(ctx, img)
	if err != nil {
		return nil, classifyVisionError(err)
	}

	s.log.WithFields(log.Fields{
		"request_id":     contextPkg.GetRequestID(ctx),
		"faces_detected": len(records),
		"width":          img.Bounds().Dx(),
		"height":         img.Bounds().Dy(),
	}).Debug("Frame scored")

	return engagement.NewDetectResponse(records), nil
}

func classifyVisionError(err error) error {
	if errors.Is(err, websocketPkg.ErrNotConnected) {
		return response.Wrap(engagement.ErrVisionUnavailable, err)
	}
	return err
}
