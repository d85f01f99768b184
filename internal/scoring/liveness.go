package scoring

import (
	"image"

	"engagement-service/internal/entity"
	"github.com/disintegration/imaging"
	"gonum.org/v1/gonum/stat"
)

const (
	sharpnessScale   = 50.0
	liveScoreCutoff  = 20.0
	maxLivenessScore = 100.0
)

// CropFace clips box to the frame and returns the face region, or false when
// nothing is left after clipping.
func CropFace(frame image.Image, box entity.BoundingBox) (*image.NRGBA, entity.BoundingBox, bool) {
	bounds := frame.Bounds()
	clipped := box.Clip(bounds.Dx(), bounds.Dy())
	if clipped.Empty() {
		return nil, clipped, false
	}

	rect := image.Rect(clipped.X1, clipped.Y1, clipped.X2, clipped.Y2).Add(bounds.Min)
	return imaging.Crop(frame, rect), clipped, true
}

// Sharpness is the population variance of the 4-neighbour Laplacian response
// of the grayscale region, with reflect-101 borders.
func Sharpness(region image.Image) float64 {
	gray := imaging.Grayscale(region)
	w, h := gray.Rect.Dx(), gray.Rect.Dy()
	if w*h < 2 {
		return 0
	}

	at := func(x, y int) float64 {
		return float64(gray.Pix[y*gray.Stride+x*4])
	}

	response := make([]float64, 0, w*h)
	for y := 0; y < h; y++ {
		up, down := reflect101(y-1, h), reflect101(y+1, h)
		for x := 0; x < w; x++ {
			left, right := reflect101(x-1, w), reflect101(x+1, w)
			response = append(response,
				at(x, up)+at(x, down)+at(left, y)+at(right, y)-4*at(x, y))
		}
	}

	return stat.PopVariance(response, nil)
}

func reflect101(i, n int) int {
	if n == 1 {
		return 0
	}
	for i < 0 || i >= n {
		if i < 0 {
			i = -i
		} else {
			i = 2*n - 2 - i
		}
	}
	return i
}

func LivenessFromSharpness(sharpness float64) entity.LivenessMetrics {
	score := clamp(sharpness/sharpnessScale, 0, maxLivenessScore)
	return entity.LivenessMetrics{
		IsLive:        score > liveScoreCutoff,
		LivenessScore: score,
	}
}

// ScoreLiveness never fails: a box that is empty after clipping is not live.
func ScoreLiveness(frame image.Image, box entity.BoundingBox) entity.LivenessMetrics {
	region, _, ok := CropFace(frame, box)
	return regionLiveness(region, ok)
}

// regionLiveness scores a region returned by CropFace.
func regionLiveness(region *image.NRGBA, ok bool) entity.LivenessMetrics {
	if !ok {
		return entity.LivenessMetrics{IsLive: false, LivenessScore: 0}
	}
	return LivenessFromSharpness(Sharpness(region))
}
