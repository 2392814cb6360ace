package detector

import (
	"context"
	"image"
	"math"

	"github.com/rs/zerolog"

	"github.com/sceneforge/sceneworker/internal/ffmpeg"
	"github.com/sceneforge/sceneworker/internal/models"
)

// contentDetector marks a cut wherever the mean absolute luminance
// difference between consecutive sampled frames exceeds the threshold.
type contentDetector struct {
	exec   *ffmpeg.Executor
	params Params
	logger zerolog.Logger
}

func newContentDetector(exec *ffmpeg.Executor, params Params, logger zerolog.Logger) *contentDetector {
	return &contentDetector{
		exec:   exec,
		params: params,
		logger: logger.With().Str("component", "detector.content").Logger(),
	}
}

func (d *contentDetector) Method() models.Method {
	return models.MethodContent
}

func (d *contentDetector) Detect(ctx context.Context, videoPath string, duration float64) (*Result, error) {
	dir, frames, err := d.exec.SampleFrames(ctx, videoPath, d.params.DetectionInterval)
	if err != nil {
		return nil, err
	}
	defer d.exec.Cleanup(dir)

	d.logger.Info().
		Int("frames", len(frames)).
		Float64("interval", d.params.DetectionInterval).
		Msg("running luminance diff detection")

	var cuts []cut
	var prev []float64
	for _, f := range frames {
		img, err := ffmpeg.DecodeImageFile(f.Path)
		if err != nil {
			d.logger.Warn().Str("frame", f.Path).Err(err).Msg("skipping undecodable frame")
			continue
		}

		gray := grayValues(img)
		if prev != nil && len(gray) == len(prev) {
			score := meanAbsDiff(prev, gray)
			if score > d.params.Threshold {
				confidence := score / d.params.Threshold
				if confidence > 1.0 {
					confidence = 1.0
				}
				cuts = append(cuts, cut{time: f.Timestamp, confidence: confidence, rawScore: score})
			}
		}
		prev = gray
	}

	cuts = filterCuts(cuts, d.params.MinSceneLength)
	shots, degraded := buildShots(cuts, duration, models.MethodContent)

	res := &Result{Shots: shots}
	if degraded {
		res.Degradations = append(res.Degradations, models.DegradationSingleSceneFallback)
	}
	d.logger.Info().Int("shots", len(shots)).Msg("content detection complete")
	return res, nil
}

// grayValues converts an image to per-pixel luminance in [0,1].
func grayValues(img image.Image) []float64 {
	bounds := img.Bounds()
	values := make([]float64, 0, bounds.Dx()*bounds.Dy())
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			r, g, b, _ := img.At(x, y).RGBA()
			// ITU-R BT.601 luma on 16-bit channel values.
			luma := (0.299*float64(r) + 0.587*float64(g) + 0.114*float64(b)) / 65535.0
			values = append(values, luma)
		}
	}
	return values
}

func meanAbsDiff(a, b []float64) float64 {
	if len(a) == 0 {
		return 0
	}
	var sum float64
	for i := range a {
		sum += math.Abs(a[i] - b[i])
	}
	return sum / float64(len(a))
}
