package engagementService

import (
	"context"
	"errors"
	"sync/atomic"

	"engagement-service/internal/api/engagement"
	"engagement-service/internal/entity"
	"engagement-service/internal/metrics"
	contextPkg "engagement-service/pkg/context"
	"engagement-service/pkg/log"
	"engagement-service/pkg/redis"
	websocketPkg "engagement-service/pkg/websocket"
	"golang.org/x/sync/errgroup"
)

func (s *engagementService) BatchProcess(ctx context.Context, req engagement.BatchRequest) (*entity.BatchReport, error) {
	requestID := contextPkg.GetRequestID(ctx)
	thresholds := req.Thresholds()
	key := redis.ReportKey(req.Frames, thresholds)

	if cached, err := s.cache.GetReport(ctx, key); err == nil {
		s.log.WithFields(log.Fields{
			"request_id": requestID,
			"frames":     len(req.Frames),
		}).Info("Serving batch report from cache")
		return cached, nil
	} else if !errors.Is(err, redis.ErrMiss) {
		s.log.WithFields(log.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Warn("Report cache lookup failed, recomputing")
	}

	records, skipped, err := s.scoreFrames(ctx, req.Frames)
	if err != nil {
		return nil, err
	}

	report := metrics.Compute(records, thresholds)
	report.FramesReceived = len(req.Frames)
	report.FramesSkipped = skipped

	if err := s.cache.SetReport(ctx, key, &report); err != nil {
		s.log.WithFields(log.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Warn("Failed to cache batch report")
	}

	s.log.WithFields(log.Fields{
		"request_id": requestID,
		"frames":     len(req.Frames),
		"skipped":    skipped,
		"records":    len(records),
	}).Info("Batch processed")

	return &report, nil
}

// scoreFrames scores every frame in parallel. A frame that fails to decode or
// score is skipped; only a lost vision service or a cancelled request aborts
// the batch. Records come back in frame order and only faces with landmarks
// are kept.
func (s *engagementService) scoreFrames(ctx context.Context, frames []string) ([]entity.DetectionRecord, int, error) {
	requestID := contextPkg.GetRequestID(ctx)
	perFrame := make([][]entity.DetectionRecord, len(frames))
	var skipped atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)

	for i, frame := range frames {
		g.Go(func() error {
			img, err := s.utils.DecodeBase64Image(frame)
			if err != nil {
				s.log.WithFields(log.Fields{
					"request_id": requestID,
					"frame":      i,
					"error":      err.Error(),
				}).Warn("Skipping undecodable frame")
				skipped.Add(1)
				return nil
			}

			records, err := s.aggregator.ScoreFrame(gctx, img)
			if err != nil {
				if errors.Is(err, websocketPkg.ErrNotConnected) || gctx.Err() != nil {
					return classifyVisionError(err)
				}
				s.log.WithFields(log.Fields{
					"request_id": requestID,
					"frame":      i,
					"error":      err.Error(),
				}).Warn("Skipping frame that failed to score")
				skipped.Add(1)
				return nil
			}

			perFrame[i] = records
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, 0, err
	}

	var records []entity.DetectionRecord
	for _, frameRecords := range perFrame {
		for _, r := range frameRecords {
			if r.Engagement.IsScored() {
				records = append(records, r)
			}
		}
	}

	return records, int(skipped.Load()), nil
}
