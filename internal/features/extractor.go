package features

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/sceneforge/sceneworker/internal/ffmpeg"
	"github.com/sceneforge/sceneworker/internal/models"
)

// Extractor computes fingerprints for a batch of shots, one frame per shot
// sampled at the shot's temporal midpoint.
type Extractor struct {
	exec        *ffmpeg.Executor
	concurrency int
	logger      zerolog.Logger
}

// NewExtractor creates a batch extractor with a bounded worker pool.
func NewExtractor(exec *ffmpeg.Executor, concurrency int, logger zerolog.Logger) *Extractor {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Extractor{
		exec:        exec,
		concurrency: concurrency,
		logger:      logger.With().Str("component", "features").Logger(),
	}
}

// ExtractBatch decodes each shot's midpoint frame and computes its
// fingerprint, then z-score standardizes the batch. A shot whose frame
// cannot be decoded gets an all-zero vector instead of failing the batch.
// Workers write into disjoint indices of a pre-sized slice, so no locking
// is needed on the results.
func (e *Extractor) ExtractBatch(ctx context.Context, videoPath string, shots []models.Shot) ([]models.FeatureVector, []models.Degradation, error) {
	if len(shots) == 0 {
		return nil, nil, nil
	}

	e.logger.Info().
		Int("shots", len(shots)).
		Int("concurrency", e.concurrency).
		Msg("extracting shot features")

	vectors := make([]models.FeatureVector, len(shots))
	failed := make([]bool, len(shots))

	semaphore := make(chan struct{}, e.concurrency)
	var wg sync.WaitGroup

	for i, shot := range shots {
		// Honor cancellation between work units; in-flight units finish.
		if ctx.Err() != nil {
			break
		}

		wg.Add(1)
		go func(idx int, s models.Shot) {
			defer wg.Done()
			semaphore <- struct{}{}
			defer func() { <-semaphore }()

			midpoint := (s.StartTime + s.EndTime) / 2
			img, err := e.exec.DecodeFrame(ctx, videoPath, midpoint)
			if err != nil {
				e.logger.Warn().
					Int("shot", idx).
					Float64("timestamp", midpoint).
					Err(err).
					Msg("frame decode failed, using zero vector")
				vectors[idx] = models.ZeroFeatureVector()
				failed[idx] = true
				return
			}
			vectors[idx] = Extract(img)
		}(i, shot)
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	var degradations []models.Degradation
	failures := 0
	for _, f := range failed {
		if f {
			failures++
		}
	}
	if failures > 0 {
		e.logger.Warn().Int("failures", failures).Msg("some shots degraded to zero vectors")
		degradations = append(degradations, models.DegradationZeroVectorFeature)
	}

	Standardize(vectors)
	return vectors, degradations, nil
}
