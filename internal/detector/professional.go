package detector

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/sceneforge/sceneworker/internal/ffmpeg"
	"github.com/sceneforge/sceneworker/internal/models"
)

// sceneScorer is the slice of the ffmpeg executor the scene filter needs.
type sceneScorer interface {
	SceneScores(ctx context.Context, videoPath string, threshold float64) ([]ffmpeg.SceneScore, error)
}

// professionalDetector drives ffmpeg's scene filter. The filter's raw score
// scale is not comparable to the user-facing 0-1 threshold, so the threshold
// is mapped onto a coarse sensitivity table first.
type professionalDetector struct {
	exec     sceneScorer
	params   Params
	fallback Detector
	logger   zerolog.Logger
}

func newProfessionalDetector(exec sceneScorer, params Params, fallback Detector, logger zerolog.Logger) *professionalDetector {
	return &professionalDetector{
		exec:     exec,
		params:   params,
		fallback: fallback,
		logger:   logger.With().Str("component", "detector.professional").Logger(),
	}
}

func (d *professionalDetector) Method() models.Method {
	return models.MethodProfessional
}

// mapFilterThreshold converts the normalized threshold to the scene filter's
// sensitivity scale. Observed filter scores mostly land in 0.001-0.6, so low
// user thresholds map to very sensitive filter settings.
func mapFilterThreshold(threshold float64) float64 {
	switch {
	case threshold <= 0.2:
		return 0.005
	case threshold <= 0.4:
		return 0.015
	case threshold <= 0.6:
		return 0.025
	default:
		return 0.035
	}
}

func (d *professionalDetector) Detect(ctx context.Context, videoPath string, duration float64) (*Result, error) {
	filterThreshold := mapFilterThreshold(d.params.Threshold)
	d.logger.Info().
		Float64("threshold", d.params.Threshold).
		Float64("filter_threshold", filterThreshold).
		Msg("running scene filter")

	cuts, err := d.sceneCuts(ctx, videoPath, filterThreshold)
	if err != nil {
		d.logger.Warn().Err(err).Msg("scene filter failed, falling back to content detection")
		res, ferr := d.fallback.Detect(ctx, videoPath, duration)
		if ferr != nil {
			return nil, ferr
		}
		res.Degradations = append([]models.Degradation{models.DegradationDetectorFallback}, res.Degradations...)
		return res, nil
	}

	// Zero candidates usually means the filter threshold was too high for
	// this footage. Retry once at half sensitivity before giving up.
	if len(cuts) == 0 && filterThreshold > 0.005 {
		halved := filterThreshold / 2
		d.logger.Warn().Float64("filter_threshold", halved).Msg("no boundaries found, retrying at half threshold")
		cuts, err = d.sceneCuts(ctx, videoPath, halved)
		if err != nil {
			d.logger.Warn().Err(err).Msg("retry failed, falling back to content detection")
			res, ferr := d.fallback.Detect(ctx, videoPath, duration)
			if ferr != nil {
				return nil, ferr
			}
			res.Degradations = append([]models.Degradation{models.DegradationDetectorFallback}, res.Degradations...)
			return res, nil
		}
	}

	cuts = filterCuts(cuts, d.params.MinSceneLength)

	// Still nothing after the retry: the filter sees this footage as one
	// continuous take. The frame-diff detector gets the final word before
	// any single-scene degradation.
	if len(cuts) == 0 {
		d.logger.Warn().Err(models.ErrNoBoundaries).Msg("scene filter found no usable cuts, falling back to content detection")
		res, ferr := d.fallback.Detect(ctx, videoPath, duration)
		if ferr != nil {
			return nil, ferr
		}
		res.Degradations = append([]models.Degradation{models.DegradationDetectorFallback}, res.Degradations...)
		return res, nil
	}

	shots, degraded := buildShots(cuts, duration, models.MethodProfessional)

	res := &Result{Shots: shots}
	if degraded {
		res.Degradations = append(res.Degradations, models.DegradationSingleSceneFallback)
	}
	d.logger.Info().Int("shots", len(shots)).Msg("scene filter detection complete")
	return res, nil
}

func (d *professionalDetector) sceneCuts(ctx context.Context, videoPath string, filterThreshold float64) ([]cut, error) {
	scores, err := d.exec.SceneScores(ctx, videoPath, filterThreshold)
	if err != nil {
		return nil, err
	}

	cuts := make([]cut, 0, len(scores))
	for _, s := range scores {
		if s.Score <= filterThreshold {
			continue
		}
		confidence := s.Score / filterThreshold
		if confidence > 1.0 {
			confidence = 1.0
		}
		cuts = append(cuts, cut{time: s.Time, confidence: confidence, rawScore: s.Score})
	}
	return cuts, nil
}
