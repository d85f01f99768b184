package engagementService

import (
	"context"

	"engagement-service/internal/api/engagement"
	"engagement-service/internal/entity"
	"engagement-service/internal/scoring"
	"engagement-service/pkg/redis"
	"engagement-service/pkg/utils"
	"github.com/sirupsen/logrus"
)

type IEngagementService interface {
	DetectBase64(ctx context.Context, frame string) (*engagement.DetectResponse, error)
	DetectBytes(ctx context.Context, data []byte) (*engagement.DetectResponse, error)
	BatchProcess(ctx context.Context, req engagement.BatchRequest) (*entity.BatchReport, error)
	Health() engagement.HealthResponse
}

// Vision is the external face detector and landmark extractor.
type Vision interface {
	scoring.FaceDetector
	scoring.LandmarkExtractor
	IsConnected() bool
}

type engagementService struct {
	log         *logrus.Logger
	vision      Vision
	aggregator  *scoring.Aggregator
	cache       redis.IReportCache
	utils       utils.IUtils
	concurrency int
}

func NewEngagementService(
	log *logrus.Logger,
	vision Vision,
	cache redis.IReportCache,
	utils utils.IUtils,
	concurrency int,
) IEngagementService {
	if concurrency <= 0 {
		concurrency = 4
	}

	return &engagementService{
		log:         log,
		vision:      vision,
		aggregator:  scoring.NewAggregator(vision, vision),
		cache:       cache,
		utils:       utils,
		concurrency: concurrency,
	}
}

func (s *engagementService) Health() engagement.HealthResponse {
	return engagement.HealthResponse{
		Status:          "ML Services Running",
		VisionConnected: s.vision.IsConnected(),
		CacheEnabled:    s.cache.Enabled(),
	}
}
