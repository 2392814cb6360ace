package detector

import (
	"image"
	"image/color"
	"math"
	"testing"

	"github.com/sceneforge/sceneworker/internal/models"
)

func TestMapFilterThreshold(t *testing.T) {
	tests := []struct {
		threshold float64
		want      float64
	}{
		{0.0, 0.005},
		{0.2, 0.005},
		{0.3, 0.015},
		{0.4, 0.015},
		{0.5, 0.025},
		{0.6, 0.025},
		{0.7, 0.035},
		{1.0, 0.035},
	}
	for _, tt := range tests {
		if got := mapFilterThreshold(tt.threshold); got != tt.want {
			t.Errorf("mapFilterThreshold(%g) = %g, want %g", tt.threshold, got, tt.want)
		}
	}
}

func TestFilterCuts(t *testing.T) {
	cuts := []cut{
		{time: 1.0, confidence: 0.9},
		{time: 1.5, confidence: 0.8}, // within 1s of previous, dropped
		{time: 2.5, confidence: 0.7},
		{time: 3.4, confidence: 0.6}, // 0.9s gap, dropped
		{time: 5.0, confidence: 0.5},
	}
	kept := filterCuts(cuts, 1.0)
	if len(kept) != 3 {
		t.Fatalf("kept %d cuts, want 3", len(kept))
	}
	wantTimes := []float64{1.0, 2.5, 5.0}
	for i, w := range wantTimes {
		if kept[i].time != w {
			t.Errorf("kept[%d].time = %g, want %g", i, kept[i].time, w)
		}
	}
}

func TestBuildShotsCoverage(t *testing.T) {
	cuts := []cut{
		{time: 3.0, confidence: 0.9, rawScore: 0.45},
		{time: 7.5, confidence: 0.8, rawScore: 0.32},
	}
	shots, degraded := buildShots(cuts, 10.0, models.MethodContent)
	if degraded {
		t.Fatal("unexpected degradation")
	}
	if len(shots) != 3 {
		t.Fatalf("got %d shots, want 3", len(shots))
	}
	if shots[0].StartTime != 0 {
		t.Errorf("first shot starts at %g, want 0", shots[0].StartTime)
	}
	if shots[len(shots)-1].EndTime != 10.0 {
		t.Errorf("last shot ends at %g, want 10", shots[len(shots)-1].EndTime)
	}
	// Opening shot carries full confidence; later shots carry their cut's.
	if shots[0].Confidence != 1.0 {
		t.Errorf("first shot confidence = %g, want 1.0", shots[0].Confidence)
	}
	if shots[1].Confidence != 0.9 || shots[2].Confidence != 0.8 {
		t.Errorf("cut confidences not carried: %g, %g", shots[1].Confidence, shots[2].Confidence)
	}
	// Contiguity.
	for i := 1; i < len(shots); i++ {
		if shots[i].StartTime != shots[i-1].EndTime {
			t.Errorf("gap between shot %d and %d", i-1, i)
		}
	}
}

func TestBuildShotsNoCuts(t *testing.T) {
	shots, degraded := buildShots(nil, 42.0, models.MethodHistogram)
	if !degraded {
		t.Fatal("expected single-scene degradation")
	}
	if len(shots) != 1 {
		t.Fatalf("got %d shots, want 1", len(shots))
	}
	if shots[0].StartTime != 0 || shots[0].EndTime != 42.0 || shots[0].Confidence != 1.0 {
		t.Errorf("synthetic shot = %+v", shots[0])
	}
}

func TestBuildShotsDropsOutOfRangeCuts(t *testing.T) {
	cuts := []cut{
		{time: 0.0, confidence: 0.9},  // at start, no shot before it
		{time: 5.0, confidence: 0.8},
		{time: 10.0, confidence: 0.7}, // at end, would make an empty shot
		{time: 12.0, confidence: 0.6}, // past end
	}
	shots, degraded := buildShots(cuts, 10.0, models.MethodContent)
	if degraded {
		t.Fatal("unexpected degradation")
	}
	if len(shots) != 2 {
		t.Fatalf("got %d shots, want 2", len(shots))
	}
	for _, s := range shots {
		if !s.Valid() {
			t.Errorf("invalid shot %+v", s)
		}
	}
}

func solidImage(w, h int, c color.Color) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	return img
}

func TestMeanAbsDiff(t *testing.T) {
	black := grayValues(solidImage(8, 8, color.Black))
	white := grayValues(solidImage(8, 8, color.White))

	if d := meanAbsDiff(black, black); d != 0 {
		t.Errorf("identical frames diff = %g, want 0", d)
	}
	if d := meanAbsDiff(black, white); math.Abs(d-1.0) > 1e-3 {
		t.Errorf("black/white diff = %g, want ~1.0", d)
	}
}

func TestHistogramCorrelation(t *testing.T) {
	red := rgbHistogram(solidImage(8, 8, color.RGBA{R: 255, A: 255}))
	blue := rgbHistogram(solidImage(8, 8, color.RGBA{B: 255, A: 255}))

	if c := histogramCorrelation(red, red); math.Abs(c-1.0) > 1e-9 {
		t.Errorf("self correlation = %g, want 1.0", c)
	}
	if c := histogramCorrelation(red, blue); c >= 1.0 {
		t.Errorf("red/blue correlation = %g, want < 1.0", c)
	}
}

func TestHistogramCorrelationDegenerate(t *testing.T) {
	flat := make([]float64, 96)
	varying := make([]float64, 96)
	varying[0] = 1.0

	if c := histogramCorrelation(flat, flat); c != 1.0 {
		t.Errorf("flat/flat correlation = %g, want 1.0", c)
	}
	if c := histogramCorrelation(flat, varying); c != 0 {
		t.Errorf("flat/varying correlation = %g, want 0", c)
	}
}

func TestRGBHistogramNormalized(t *testing.T) {
	hist := rgbHistogram(solidImage(4, 4, color.RGBA{R: 10, G: 120, B: 250, A: 255}))
	if len(hist) != 3*histogramBins {
		t.Fatalf("histogram has %d bins, want %d", len(hist), 3*histogramBins)
	}
	var sum float64
	for _, v := range hist {
		sum += v
	}
	// Each channel sums to 1.
	if math.Abs(sum-3.0) > 1e-9 {
		t.Errorf("histogram mass = %g, want 3.0", sum)
	}
}
