package features

import (
	"image"
	"image/color"
	"math"
	"testing"

	"github.com/sceneforge/sceneworker/internal/models"
)

func solidImage(w, h int, c color.Color) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	return img
}

// checkerboard alternates black and white pixels, giving maximal texture
// and edge response.
func checkerboard(w, h, cell int) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if ((x/cell)+(y/cell))%2 == 0 {
				img.Set(x, y, color.White)
			} else {
				img.Set(x, y, color.Black)
			}
		}
	}
	return img
}

func TestExtractDimension(t *testing.T) {
	v := Extract(solidImage(32, 32, color.RGBA{R: 200, G: 100, B: 50, A: 255}))
	if len(v) != models.FeatureDims {
		t.Fatalf("vector has %d dims, want %d", len(v), models.FeatureDims)
	}
}

func TestColorHistogramMass(t *testing.T) {
	hist := colorHistogram(solidImage(16, 16, color.RGBA{R: 255, A: 255}))
	if len(hist) != models.ColorDims {
		t.Fatalf("got %d dims, want %d", len(hist), models.ColorDims)
	}
	// Each of the three channel histograms sums to 1.
	for block := 0; block < 3; block++ {
		var sum float64
		for i := 0; i < models.ColorBins; i++ {
			sum += hist[block*models.ColorBins+i]
		}
		if math.Abs(sum-1.0) > 1e-9 {
			t.Errorf("block %d mass = %g, want 1.0", block, sum)
		}
	}
}

func TestRGBToHSV(t *testing.T) {
	tests := []struct {
		r, g, b float64
		h, s, v float64
	}{
		{1, 0, 0, 0, 1, 1},
		{0, 1, 0, 120, 1, 1},
		{0, 0, 1, 240, 1, 1},
		{1, 1, 1, 0, 0, 1},
		{0, 0, 0, 0, 0, 0},
		{0.5, 0.5, 0.5, 0, 0, 0.5},
	}
	for _, tt := range tests {
		h, s, v := rgbToHSV(tt.r, tt.g, tt.b)
		if math.Abs(h-tt.h) > 1e-9 || math.Abs(s-tt.s) > 1e-9 || math.Abs(v-tt.v) > 1e-9 {
			t.Errorf("rgbToHSV(%g,%g,%g) = (%g,%g,%g), want (%g,%g,%g)",
				tt.r, tt.g, tt.b, h, s, v, tt.h, tt.s, tt.v)
		}
	}
}

func TestTextureFeaturesFlatVsBusy(t *testing.T) {
	flat := textureFeatures(solidImage(64, 64, color.Gray{Y: 128}))
	busy := textureFeatures(checkerboard(64, 64, 2))

	if len(flat) != models.TextureDims {
		t.Fatalf("got %d dims, want %d", len(flat), models.TextureDims)
	}
	// A flat frame has zero deviation and gradient; a checkerboard does not.
	if flat[0] != 0 {
		t.Errorf("flat stddev = %g, want 0", flat[0])
	}
	if busy[0] <= flat[0] {
		t.Errorf("busy stddev %g not greater than flat %g", busy[0], flat[0])
	}
	if busy[1] <= flat[1] {
		t.Errorf("busy gradient %g not greater than flat %g", busy[1], flat[1])
	}
}

func TestLBPHistogramMass(t *testing.T) {
	hist := lbpHistogram(toGray(checkerboard(32, 32, 4)))
	if len(hist) != models.LBPBins {
		t.Fatalf("got %d bins, want %d", len(hist), models.LBPBins)
	}
	var sum float64
	for _, v := range hist {
		sum += v
	}
	if math.Abs(sum-1.0) > 1e-9 {
		t.Errorf("histogram mass = %g, want 1.0", sum)
	}
}

func TestEdgeFeaturesFlatVsBusy(t *testing.T) {
	flat := edgeFeatures(solidImage(64, 64, color.Gray{Y: 128}))
	busy := edgeFeatures(checkerboard(64, 64, 4))

	if len(flat) != models.EdgeDims {
		t.Fatalf("got %d dims, want %d", len(flat), models.EdgeDims)
	}
	if flat[0] != 0 {
		t.Errorf("flat edge ratio = %g, want 0", flat[0])
	}
	if busy[0] <= 0 {
		t.Errorf("busy edge ratio = %g, want > 0", busy[0])
	}
	// Ratios stay in [0,1].
	for i, v := range busy {
		if v < 0 || v > 1 {
			t.Errorf("edge feature %d = %g out of [0,1]", i, v)
		}
	}
}

func TestBrightnessFeatures(t *testing.T) {
	bright := brightnessFeatures(solidImage(16, 16, color.White))
	if len(bright) != models.BrightnessDims {
		t.Fatalf("got %d dims, want %d", len(bright), models.BrightnessDims)
	}
	if math.Abs(bright[0]-255) > 1e-6 {
		t.Errorf("white mean = %g, want 255", bright[0])
	}
	if bright[1] != 0 || bright[3] != 0 {
		t.Errorf("solid frame has std %g and range %g, want 0", bright[1], bright[3])
	}

	contrast := brightnessFeatures(checkerboard(16, 16, 2))
	if contrast[1] <= 0 || contrast[3] <= 0 {
		t.Errorf("checkerboard std %g and range %g, want > 0", contrast[1], contrast[3])
	}
}

func TestStandardize(t *testing.T) {
	vectors := []models.FeatureVector{
		{1, 10, 5},
		{2, 20, 5},
		{3, 30, 5},
	}
	Standardize(vectors)

	// Each varying dimension now has zero mean and unit variance.
	for d := 0; d < 2; d++ {
		var mean, variance float64
		for _, v := range vectors {
			mean += v[d]
		}
		mean /= 3
		for _, v := range vectors {
			diff := v[d] - mean
			variance += diff * diff
		}
		variance /= 3
		if math.Abs(mean) > 1e-9 {
			t.Errorf("dim %d mean = %g, want 0", d, mean)
		}
		if math.Abs(variance-1.0) > 1e-9 {
			t.Errorf("dim %d variance = %g, want 1", d, variance)
		}
	}
	// A constant dimension collapses to zero.
	for i, v := range vectors {
		if v[2] != 0 {
			t.Errorf("vector %d constant dim = %g, want 0", i, v[2])
		}
	}
}

func TestStandardizeAllZero(t *testing.T) {
	vectors := []models.FeatureVector{
		models.ZeroFeatureVector(),
		models.ZeroFeatureVector(),
	}
	Standardize(vectors)
	for i, v := range vectors {
		if !v.IsZero() {
			t.Errorf("vector %d not zero after standardizing zero batch", i)
		}
	}
}
