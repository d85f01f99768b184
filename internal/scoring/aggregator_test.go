package scoring

import (
	"context"
	"errors"
	"image"
	"image/color"
	"sync"
	"testing"

	"engagement-service/internal/entity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeDetector struct {
	faces []entity.FaceBox
	err   error
}

func (f *fakeDetector) Detect(_ context.Context, _ image.Image) ([]entity.FaceBox, error) {
	return f.faces, f.err
}

type fakeExtractor struct {
	mu        sync.Mutex
	landmarks entity.LandmarkSet
	found     bool
	err       error
	regions   []image.Image
}

func (f *fakeExtractor) Extract(_ context.Context, region image.Image) (entity.LandmarkSet, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.regions = append(f.regions, region)
	return f.landmarks, f.found, f.err
}

func attentiveMesh() entity.LandmarkSet {
	return testMesh(pt(0.5, 0.5), pt(0.6, 0.5), pt(0.5, 0.2), pt(0.5, 0.8))
}

func TestAggregatorScoreFrame(t *testing.T) {
	t.Parallel()

	frame := checkerboard(60, 40, 100, 110)

	t.Run("scores every face in detector order", func(t *testing.T) {
		t.Parallel()
		detector := &fakeDetector{faces: []entity.FaceBox{
			{BBox: entity.BoundingBox{X1: 30, Y1: 0, X2: 50, Y2: 20}, Confidence: 0.7},
			{BBox: entity.BoundingBox{X1: 0, Y1: 0, X2: 20, Y2: 20}, Confidence: 0.9},
		}}
		extractor := &fakeExtractor{landmarks: attentiveMesh(), found: true}

		records, err := NewAggregator(detector, extractor).ScoreFrame(context.Background(), frame)
		require.NoError(t, err)
		require.Len(t, records, 2)

		for i, r := range records {
			assert.Equal(t, i, r.FaceID)
			assert.Equal(t, detector.faces[i].BBox, r.BBox)
			assert.Equal(t, detector.faces[i].Confidence, r.Confidence)
			assert.True(t, r.Engagement.IsScored())
			assert.InDelta(t, 100, r.Engagement.Metrics().EngagementScore, 1e-2)
			assert.Equal(t, entity.EngagementClass{Label: HighlyEngaged, Level: 5}, r.Class)
			assert.True(t, r.Liveness.IsLive)
			assert.InDelta(t, 32, r.Liveness.LivenessScore, 1e-9)
		}
		assert.Len(t, extractor.regions, 2)
	})

	t.Run("no faces", func(t *testing.T) {
		t.Parallel()
		records, err := NewAggregator(&fakeDetector{}, &fakeExtractor{}).ScoreFrame(context.Background(), frame)
		require.NoError(t, err)
		assert.Empty(t, records)
	})

	t.Run("missing landmarks keep liveness", func(t *testing.T) {
		t.Parallel()
		detector := &fakeDetector{faces: []entity.FaceBox{
			{BBox: entity.BoundingBox{X1: 10, Y1: 10, X2: 30, Y2: 30}, Confidence: 0.8},
		}}

		records, err := NewAggregator(detector, &fakeExtractor{found: false}).ScoreFrame(context.Background(), frame)
		require.NoError(t, err)
		require.Len(t, records, 1)

		r := records[0]
		assert.False(t, r.Engagement.IsScored())
		assert.Equal(t, entity.ZeroEngagement(), r.Engagement.Metrics())
		assert.Equal(t, entity.EngagementClass{Label: HighlyDisengaged, Level: 1}, r.Class)
		assert.True(t, r.Liveness.IsLive)
		assert.InDelta(t, 32, r.Liveness.LivenessScore, 1e-9)
	})

	t.Run("degenerate box skips extraction", func(t *testing.T) {
		t.Parallel()
		detector := &fakeDetector{faces: []entity.FaceBox{
			{BBox: entity.BoundingBox{X1: 70, Y1: 0, X2: 90, Y2: 20}, Confidence: 0.5},
		}}
		extractor := &fakeExtractor{landmarks: attentiveMesh(), found: true}

		records, err := NewAggregator(detector, extractor).ScoreFrame(context.Background(), frame)
		require.NoError(t, err)
		require.Len(t, records, 1)
		assert.False(t, records[0].Engagement.IsScored())
		assert.Equal(t, entity.LivenessMetrics{}, records[0].Liveness)
		assert.Empty(t, extractor.regions)
	})

	t.Run("detector error is wrapped", func(t *testing.T) {
		t.Parallel()
		boom := errors.New("boom")
		_, err := NewAggregator(&fakeDetector{err: boom}, &fakeExtractor{}).ScoreFrame(context.Background(), frame)
		require.Error(t, err)
		assert.ErrorIs(t, err, boom)
		assert.Contains(t, err.Error(), "detect faces")
	})

	t.Run("extractor error is wrapped with face index", func(t *testing.T) {
		t.Parallel()
		boom := errors.New("mesh unavailable")
		detector := &fakeDetector{faces: []entity.FaceBox{
			{BBox: entity.BoundingBox{X1: 0, Y1: 0, X2: 20, Y2: 20}},
		}}

		_, err := NewAggregator(detector, &fakeExtractor{err: boom}).ScoreFrame(context.Background(), frame)
		require.Error(t, err)
		assert.ErrorIs(t, err, boom)
		assert.Equal(t, "score face 0: extract landmarks: mesh unavailable", err.Error())
	})
}

func TestAggregatorMirrorsRegion(t *testing.T) {
	t.Parallel()

	frame := image.NewNRGBA(image.Rect(0, 0, 10, 4))
	marker := color.NRGBA{R: 255, A: 255}
	frame.SetNRGBA(2, 1, marker)

	extractor := &fakeExtractor{found: false}
	agg := NewAggregator(&fakeDetector{}, extractor)

	_, err := agg.ScoreFace(context.Background(), frame, 0, entity.FaceBox{
		BBox: entity.BoundingBox{X1: 2, Y1: 0, X2: 8, Y2: 4},
	})
	require.NoError(t, err)
	require.Len(t, extractor.regions, 1)

	region := extractor.regions[0]
	require.Equal(t, image.Rect(0, 0, 6, 4), region.Bounds())
	assert.Equal(t, color.NRGBAModel.Convert(marker), color.NRGBAModel.Convert(region.At(5, 1)))
	assert.NotEqual(t, color.NRGBAModel.Convert(marker), color.NRGBAModel.Convert(region.At(0, 1)))
}

func TestBuildRecord(t *testing.T) {
	t.Parallel()

	face := entity.FaceBox{BBox: entity.BoundingBox{X1: 1, Y1: 2, X2: 3, Y2: 4}, Confidence: 0.42}
	liveness := entity.LivenessMetrics{IsLive: true, LivenessScore: 55}

	scored := BuildRecord(3, face, entity.Scored(entity.EngagementMetrics{EngagementScore: 61}), liveness)
	assert.Equal(t, 3, scored.FaceID)
	assert.Equal(t, face.BBox, scored.BBox)
	assert.Equal(t, 0.42, scored.Confidence)
	assert.Equal(t, liveness, scored.Liveness)
	assert.Equal(t, Engaged, scored.Class.Label)

	unscored := BuildRecord(0, face, entity.Unscored(), liveness)
	assert.Equal(t, 0.0, unscored.Engagement.Metrics().EngagementScore)
	assert.Equal(t, HighlyDisengaged, unscored.Class.Label)
	assert.Equal(t, liveness, unscored.Liveness)
}

func TestScoreFaceLivenessMatchesScoreLiveness(t *testing.T) {
	t.Parallel()

	frame := checkerboard(40, 30, 0, 5)
	agg := NewAggregator(&fakeDetector{}, &fakeExtractor{found: false})

	boxes := []entity.BoundingBox{
		{X1: 0, Y1: 0, X2: 40, Y2: 30},
		{X1: -10, Y1: 5, X2: 12, Y2: 25},
		{X1: 20, Y1: 20, X2: 20, Y2: 29},
		{X1: 50, Y1: 0, X2: 60, Y2: 10},
	}
	for _, box := range boxes {
		record, err := agg.ScoreFace(context.Background(), frame, 0, entity.FaceBox{BBox: box})
		require.NoError(t, err)
		assert.Equal(t, ScoreLiveness(frame, box), record.Liveness, "box %v", box.Array())
	}
}
