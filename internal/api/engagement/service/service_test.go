package engagementService

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"image/color"
	"io"
	"sync"
	"sync/atomic"
	"testing"

	"engagement-service/internal/api/engagement"
	"engagement-service/internal/entity"
	"engagement-service/internal/scoring"
	"engagement-service/pkg/redis"
	"engagement-service/pkg/utils"
	websocketPkg "engagement-service/pkg/websocket"
	"github.com/disintegration/imaging"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

// openEyedMesh is a frontal face mesh with both eyes at EAR ~0.3.
func openEyedMesh() entity.LandmarkSet {
	lm := make(entity.LandmarkSet, 468)
	setEye := func(idx [6]int, x0, y0 float64) {
		lm[idx[0]] = entity.Point{X: x0, Y: y0}
		lm[idx[1]] = entity.Point{X: x0 + 0.03, Y: y0 - 0.015}
		lm[idx[2]] = entity.Point{X: x0 + 0.07, Y: y0 - 0.015}
		lm[idx[3]] = entity.Point{X: x0 + 0.1, Y: y0}
		lm[idx[4]] = entity.Point{X: x0 + 0.07, Y: y0 + 0.015}
		lm[idx[5]] = entity.Point{X: x0 + 0.03, Y: y0 + 0.015}
	}
	setEye(scoring.LeftEyeIndices, 0.2, 0.4)
	setEye(scoring.RightEyeIndices, 0.6, 0.4)
	lm[scoring.NoseTip] = entity.Point{X: 0.5, Y: 0.5}
	lm[scoring.Chin] = entity.Point{X: 0.6, Y: 0.5}
	lm[scoring.LeftEar] = entity.Point{X: 0.5, Y: 0.2}
	lm[scoring.RightEar] = entity.Point{X: 0.5, Y: 0.8}
	return lm
}

// checkerFrame is a PNG-encoded 40x40 checkerboard with a liveness score of 32.
func checkerFrame(t *testing.T) []byte {
	t.Helper()

	img := image.NewGray(image.Rect(0, 0, 40, 40))
	for y := 0; y < 40; y++ {
		for x := 0; x < 40; x++ {
			v := uint8(100)
			if (x+y)%2 == 1 {
				v = 110
			}
			img.SetGray(x, y, color.Gray{Y: v})
		}
	}

	var buf bytes.Buffer
	require.NoError(t, imaging.Encode(&buf, img, imaging.PNG))
	return buf.Bytes()
}

// fakeVision reports a full-frame face plus a degenerate box for every frame.
type fakeVision struct {
	detectErr  error
	extractErr error
	connected  bool
	detects    atomic.Int32
}

func (f *fakeVision) Detect(_ context.Context, frame image.Image) ([]entity.FaceBox, error) {
	f.detects.Add(1)
	if f.detectErr != nil {
		return nil, f.detectErr
	}
	b := frame.Bounds()
	return []entity.FaceBox{
		{BBox: entity.BoundingBox{X1: 0, Y1: 0, X2: b.Dx(), Y2: b.Dy()}, Confidence: 0.95},
		{BBox: entity.BoundingBox{X1: 5, Y1: 5, X2: 5, Y2: 30}, Confidence: 0.4},
	}, nil
}

func (f *fakeVision) Extract(context.Context, image.Image) (entity.LandmarkSet, bool, error) {
	if f.extractErr != nil {
		return nil, false, f.extractErr
	}
	return openEyedMesh(), true, nil
}

func (f *fakeVision) IsConnected() bool {
	return f.connected
}

type memoryCache struct {
	mu      sync.Mutex
	reports map[string]*entity.BatchReport
	getErr  error
}

func newMemoryCache() *memoryCache {
	return &memoryCache{reports: map[string]*entity.BatchReport{}}
}

func (m *memoryCache) GetReport(_ context.Context, key string) (*entity.BatchReport, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return nil, m.getErr
	}
	r, ok := m.reports[key]
	if !ok {
		return nil, redis.ErrMiss
	}
	return r, nil
}

func (m *memoryCache) SetReport(_ context.Context, key string, report *entity.BatchReport) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reports[key] = report
	return nil
}

func (m *memoryCache) Enabled() bool {
	return true
}

func newTestService(vision *fakeVision, cache redis.IReportCache) IEngagementService {
	return NewEngagementService(quietLogger(), vision, cache, utils.New(), 2)
}

func TestDetectBase64(t *testing.T) {
	t.Parallel()

	frame := base64.StdEncoding.EncodeToString(checkerFrame(t))
	svc := newTestService(&fakeVision{connected: true}, newMemoryCache())

	resp, err := svc.DetectBase64(context.Background(), frame)
	require.NoError(t, err)
	require.Equal(t, 2, resp.FacesDetected)
	require.Len(t, resp.Detections, 2)

	full := resp.Detections[0]
	assert.Equal(t, 0, full.FaceID)
	assert.Equal(t, [4]int{0, 0, 40, 40}, full.BBox)
	assert.True(t, full.LandmarksFound)
	assert.True(t, full.IsLive)
	assert.InDelta(t, 32, full.LivenessScore, 1e-9)
	assert.InDelta(t, 100, full.Engagement, 1e-2)
	assert.Equal(t, full.Engagement, full.OverallEngagement)
	assert.Equal(t, scoring.HighlyEngaged, full.EngagementClass)
	assert.Equal(t, 5, full.EngagementLevel)

	degenerate := resp.Detections[1]
	assert.Equal(t, 1, degenerate.FaceID)
	assert.False(t, degenerate.LandmarksFound)
	assert.False(t, degenerate.IsLive)
	assert.Equal(t, 0.0, degenerate.Engagement)
	assert.Equal(t, scoring.HighlyDisengaged, degenerate.EngagementClass)
}

func TestDetectDecodeFailure(t *testing.T) {
	t.Parallel()

	vision := &fakeVision{connected: true}
	svc := newTestService(vision, newMemoryCache())

	_, err := svc.DetectBase64(context.Background(), "%%% not an image")
	require.Error(t, err)
	assert.ErrorIs(t, err, engagement.ErrDecodeFailure)
	assert.ErrorIs(t, err, utils.ErrInvalidBase64)

	_, err = svc.DetectBytes(context.Background(), []byte("plain text"))
	assert.ErrorIs(t, err, engagement.ErrDecodeFailure)
	assert.Zero(t, vision.detects.Load())
}

func TestDetectVisionUnavailable(t *testing.T) {
	t.Parallel()

	svc := newTestService(&fakeVision{detectErr: fmt.Errorf("%w: dial refused", websocketPkg.ErrNotConnected)}, newMemoryCache())

	_, err := svc.DetectBytes(context.Background(), checkerFrame(t))
	require.Error(t, err)
	assert.ErrorIs(t, err, engagement.ErrVisionUnavailable)
	assert.ErrorIs(t, err, websocketPkg.ErrNotConnected)
}

func TestDetectOtherVisionError(t *testing.T) {
	t.Parallel()

	boom := errors.New("model crashed")
	svc := newTestService(&fakeVision{extractErr: boom}, newMemoryCache())

	_, err := svc.DetectBytes(context.Background(), checkerFrame(t))
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, engagement.ErrVisionUnavailable)
}

func TestBatchProcess(t *testing.T) {
	t.Parallel()

	good := base64.StdEncoding.EncodeToString(checkerFrame(t))
	req := engagement.BatchRequest{Frames: []string{good, "!!! broken !!!", good}}

	cache := newMemoryCache()
	svc := newTestService(&fakeVision{connected: true}, cache)

	report, err := svc.BatchProcess(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, 3, report.FramesReceived)
	assert.Equal(t, 1, report.FramesSkipped)
	assert.Equal(t, 2, report.TotalFramesProcessed)
	assert.Equal(t, entity.ConfusionMatrix{TruePositive: 2, Total: 2}, report.ConfusionMatrix)
	assert.Equal(t, 1.0, report.ClassificationMetrics.Accuracy)
	assert.Equal(t, map[string]int{
		scoring.HighlyEngaged:    2,
		scoring.Engaged:          0,
		scoring.Neutral:          0,
		scoring.Disengaged:       0,
		scoring.HighlyDisengaged: 0,
	}, report.EngagementDistribution)
	assert.Equal(t, 2.0, report.LivenessStats["live_faces_count"])
	assert.Equal(t, 32.0, report.LivenessStats["avg_liveness"])
	assert.Equal(t, entity.DefaultThresholds(), report.ThresholdsUsed)

	cached, err := cache.GetReport(context.Background(), redis.ReportKey(req.Frames, req.Thresholds()))
	require.NoError(t, err)
	assert.Equal(t, report, cached)
}

func TestBatchProcessCustomThresholds(t *testing.T) {
	t.Parallel()

	good := base64.StdEncoding.EncodeToString(checkerFrame(t))
	engagementThreshold, livenessThreshold := 99.9999, 90.0
	req := engagement.BatchRequest{
		Frames:              []string{good},
		EngagementThreshold: &engagementThreshold,
		LivenessThreshold:   &livenessThreshold,
	}

	report, err := newTestService(&fakeVision{}, newMemoryCache()).BatchProcess(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, entity.BatchThresholds{EngagementThreshold: 99.9999, LivenessThreshold: 90}, report.ThresholdsUsed)
	assert.Equal(t, 1, report.ConfusionMatrix.FalseNegative)
}

func TestBatchProcessEmpty(t *testing.T) {
	t.Parallel()

	vision := &fakeVision{}
	report, err := newTestService(vision, newMemoryCache()).BatchProcess(context.Background(), engagement.BatchRequest{Frames: []string{}})
	require.NoError(t, err)

	assert.Zero(t, report.TotalFramesProcessed)
	assert.Zero(t, report.FramesReceived)
	assert.Empty(t, report.EngagementStats)
	assert.Zero(t, vision.detects.Load())
}

func TestBatchProcessSkipsFramesThatFailToScore(t *testing.T) {
	t.Parallel()

	good := base64.StdEncoding.EncodeToString(checkerFrame(t))
	svc := newTestService(&fakeVision{detectErr: errors.New("bad frame")}, newMemoryCache())

	report, err := svc.BatchProcess(context.Background(), engagement.BatchRequest{Frames: []string{good, good}})
	require.NoError(t, err)
	assert.Equal(t, 2, report.FramesSkipped)
	assert.Zero(t, report.TotalFramesProcessed)
}

func TestBatchProcessVisionUnavailable(t *testing.T) {
	t.Parallel()

	good := base64.StdEncoding.EncodeToString(checkerFrame(t))
	svc := newTestService(&fakeVision{detectErr: websocketPkg.ErrNotConnected}, newMemoryCache())

	report, err := svc.BatchProcess(context.Background(), engagement.BatchRequest{Frames: []string{good, good, good}})
	assert.Nil(t, report)
	assert.ErrorIs(t, err, engagement.ErrVisionUnavailable)
}

func TestBatchProcessServesCachedReport(t *testing.T) {
	t.Parallel()

	frames := []string{"a", "b"}
	req := engagement.BatchRequest{Frames: frames}
	stored := &entity.BatchReport{TotalFramesProcessed: 7, FramesReceived: 2}

	cache := newMemoryCache()
	require.NoError(t, cache.SetReport(context.Background(), redis.ReportKey(frames, req.Thresholds()), stored))

	vision := &fakeVision{}
	report, err := newTestService(vision, cache).BatchProcess(context.Background(), req)
	require.NoError(t, err)
	assert.Same(t, stored, report)
	assert.Zero(t, vision.detects.Load())
}

func TestBatchProcessCacheErrorRecomputes(t *testing.T) {
	t.Parallel()

	cache := newMemoryCache()
	cache.getErr = errors.New("redis down")

	good := base64.StdEncoding.EncodeToString(checkerFrame(t))
	vision := &fakeVision{}
	report, err := newTestService(vision, cache).BatchProcess(context.Background(), engagement.BatchRequest{Frames: []string{good}})
	require.NoError(t, err)
	assert.Equal(t, 1, report.TotalFramesProcessed)
	assert.Equal(t, int32(1), vision.detects.Load())
}

func TestHealth(t *testing.T) {
	t.Parallel()

	health := newTestService(&fakeVision{connected: true}, newMemoryCache()).Health()
	assert.Equal(t, engagement.HealthResponse{
		Status:          "ML Services Running",
		VisionConnected: true,
		CacheEnabled:    true,
	}, health)

	health = NewEngagementService(quietLogger(), &fakeVision{}, redis.NewNoop(), utils.New(), 0).Health()
	assert.False(t, health.VisionConnected)
	assert.False(t, health.CacheEnabled)
}
