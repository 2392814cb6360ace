package detector

import (
	"context"
	"image"
	"math"

	"github.com/rs/zerolog"

	"github.com/sceneforge/sceneworker/internal/ffmpeg"
	"github.com/sceneforge/sceneworker/internal/models"
)

const histogramBins = 32

// histogramDetector marks a cut when the correlation between consecutive
// frames' color histograms drops below 1 - threshold. Low correlation means
// a large change in the frame's color distribution.
type histogramDetector struct {
	exec   *ffmpeg.Executor
	params Params
	logger zerolog.Logger
}

func newHistogramDetector(exec *ffmpeg.Executor, params Params, logger zerolog.Logger) *histogramDetector {
	return &histogramDetector{
		exec:   exec,
		params: params,
		logger: logger.With().Str("component", "detector.histogram").Logger(),
	}
}

func (d *histogramDetector) Method() models.Method {
	return models.MethodHistogram
}

func (d *histogramDetector) Detect(ctx context.Context, videoPath string, duration float64) (*Result, error) {
	dir, frames, err := d.exec.SampleFrames(ctx, videoPath, d.params.DetectionInterval)
	if err != nil {
		return nil, err
	}
	defer d.exec.Cleanup(dir)

	d.logger.Info().
		Int("frames", len(frames)).
		Float64("interval", d.params.DetectionInterval).
		Msg("running histogram correlation detection")

	minCorrelation := 1.0 - d.params.Threshold

	var cuts []cut
	var prev []float64
	for _, f := range frames {
		img, err := ffmpeg.DecodeImageFile(f.Path)
		if err != nil {
			d.logger.Warn().Str("frame", f.Path).Err(err).Msg("skipping undecodable frame")
			continue
		}

		hist := rgbHistogram(img)
		if prev != nil {
			correlation := histogramCorrelation(prev, hist)
			if correlation < minCorrelation {
				confidence := 1.0 - correlation
				if confidence > 1.0 {
					confidence = 1.0
				}
				cuts = append(cuts, cut{time: f.Timestamp, confidence: confidence, rawScore: correlation})
			}
		}
		prev = hist
	}

	cuts = filterCuts(cuts, d.params.MinSceneLength)
	shots, degraded := buildShots(cuts, duration, models.MethodHistogram)

	res := &Result{Shots: shots}
	if degraded {
		res.Degradations = append(res.Degradations, models.DegradationSingleSceneFallback)
	}
	d.logger.Info().Int("shots", len(shots)).Msg("histogram detection complete")
	return res, nil
}

// rgbHistogram builds a normalized 32-bins-per-channel RGB histogram.
func rgbHistogram(img image.Image) []float64 {
	hist := make([]float64, 3*histogramBins)
	bounds := img.Bounds()
	total := float64(bounds.Dx() * bounds.Dy())
	if total == 0 {
		return hist
	}

	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			r, g, b, _ := img.At(x, y).RGBA()
			hist[bin16(r)]++
			hist[histogramBins+bin16(g)]++
			hist[2*histogramBins+bin16(b)]++
		}
	}
	for i := range hist {
		hist[i] /= total
	}
	return hist
}

// bin16 maps a 16-bit channel value onto one of 32 bins.
func bin16(v uint32) int {
	b := int(v >> 11) // 16-bit -> 5-bit
	if b >= histogramBins {
		b = histogramBins - 1
	}
	return b
}

// histogramCorrelation is the Pearson correlation of two histograms. Two
// constant histograms correlate perfectly; one constant against one varying
// does not correlate at all.
func histogramCorrelation(a, b []float64) float64 {
	n := float64(len(a))
	if n == 0 || len(a) != len(b) {
		return 0
	}

	var meanA, meanB float64
	for i := range a {
		meanA += a[i]
		meanB += b[i]
	}
	meanA /= n
	meanB /= n

	var cov, varA, varB float64
	for i := range a {
		da := a[i] - meanA
		db := b[i] - meanB
		cov += da * db
		varA += da * da
		varB += db * db
	}

	if varA == 0 && varB == 0 {
		return 1.0
	}
	if varA == 0 || varB == 0 {
		return 0
	}
	return cov / math.Sqrt(varA*varB)
}
