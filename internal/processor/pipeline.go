// Package processor orchestrates the per-video segmentation pipeline:
// probe, boundary detection, feature extraction, clustering, post-processing
// and optional boundary alignment, in that strict order.
package processor

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/sceneforge/sceneworker/internal/align"
	"github.com/sceneforge/sceneworker/internal/cluster"
	"github.com/sceneforge/sceneworker/internal/config"
	"github.com/sceneforge/sceneworker/internal/detector"
	"github.com/sceneforge/sceneworker/internal/features"
	"github.com/sceneforge/sceneworker/internal/fetch"
	"github.com/sceneforge/sceneworker/internal/ffmpeg"
	"github.com/sceneforge/sceneworker/internal/models"
	"github.com/sceneforge/sceneworker/internal/storage"
)

// Pipeline runs segmentation jobs. Storage and Redis are optional: a nil
// store skips persistence and a nil Redis client skips progress publishing,
// which is how the CLI one-shot commands run it.
type Pipeline struct {
	cfg         *config.Config
	exec        *ffmpeg.Executor
	store       *storage.Store
	redisClient *redis.Client
	logger      zerolog.Logger
}

// New creates a pipeline.
func New(cfg *config.Config, exec *ffmpeg.Executor, store *storage.Store, redisClient *redis.Client, logger zerolog.Logger) *Pipeline {
	return &Pipeline{
		cfg:         cfg,
		exec:        exec,
		store:       store,
		redisClient: redisClient,
		logger:      logger.With().Str("component", "pipeline").Logger(),
	}
}

// Process runs the full pipeline for one job. Only an unreadable video (or
// cancellation) fails the run; every other problem degrades the result and
// is recorded in Degradations.
func (p *Pipeline) Process(ctx context.Context, job *models.JobPayload) (*models.SegmentationResult, error) {
	startTime := time.Now()
	logger := p.logger.With().Str("job_id", job.JobID).Logger()

	params, err := p.cfg.Resolve(job.Options)
	if err != nil {
		return nil, fmt.Errorf("invalid job options: %w", err)
	}

	if p.store != nil {
		if err := p.store.CreateJob(ctx, job); err != nil {
			return nil, fmt.Errorf("failed to store job: %w", err)
		}
		if err := p.store.UpdateJobStatus(ctx, job.JobID, "processing", ""); err != nil {
			return nil, fmt.Errorf("failed to update job status: %w", err)
		}
	}
	p.sendProgress(ctx, job.JobID, 0, "started", "probe", "Probing video")

	videoPath := job.VideoPath
	if fetch.IsRemote(job.VideoPath) {
		fetcher := fetch.New(p.cfg.TempDir, logger)
		local, err := fetcher.Fetch(ctx, job.VideoPath, job.JobID)
		if err != nil {
			err = fmt.Errorf("%w: %v", models.ErrVideoUnreadable, err)
			p.failJob(ctx, job.JobID, err)
			return nil, err
		}
		defer fetcher.Remove(local)
		videoPath = local
	}

	info, err := p.exec.Probe(ctx, videoPath)
	if err != nil {
		p.failJob(ctx, job.JobID, err)
		return nil, err
	}
	logger.Info().
		Float64("duration", info.Duration).
		Str("codec", info.Codec).
		Int("width", info.Width).
		Int("height", info.Height).
		Msg("video probed")
	p.sendProgress(ctx, job.JobID, 10, "processing", "detect", "Detecting shot boundaries")

	var degradations []models.Degradation

	det, err := detector.New(params.Method, p.exec, detector.Params{
		Threshold:         params.Threshold,
		MinSceneLength:    params.MinSceneLength,
		DetectionInterval: params.DetectionInterval,
	}, logger)
	if err != nil {
		p.failJob(ctx, job.JobID, err)
		return nil, err
	}

	detection, err := det.Detect(ctx, videoPath, info.Duration)
	if err != nil {
		p.failJob(ctx, job.JobID, err)
		return nil, fmt.Errorf("boundary detection failed: %w", err)
	}
	degradations = append(degradations, detection.Degradations...)
	shots := detection.Shots

	logger.Info().Int("shots", len(shots)).Msg("boundary detection complete")
	p.sendProgress(ctx, job.JobID, 40, "processing", "features",
		fmt.Sprintf("Extracting features for %d shots", len(shots)))

	extractor := features.NewExtractor(p.exec, p.cfg.Concurrency, logger)
	vectors, featDegradations, err := extractor.ExtractBatch(ctx, videoPath, shots)
	if err != nil {
		p.failJob(ctx, job.JobID, err)
		return nil, fmt.Errorf("feature extraction failed: %w", err)
	}
	degradations = append(degradations, featDegradations...)
	p.sendProgress(ctx, job.JobID, 65, "processing", "cluster", "Clustering shots into scenes")

	clusterer := cluster.NewClusterer(params.SimilarityThreshold, logger)
	scenes, clusterDegradations, err := clusterer.Cluster(shots, vectors, params.MaxClusters)
	if err != nil {
		p.failJob(ctx, job.JobID, err)
		return nil, fmt.Errorf("clustering failed: %w", err)
	}
	degradations = append(degradations, clusterDegradations...)
	p.sendProgress(ctx, job.JobID, 80, "processing", "postprocess", "Repairing scene sequence")

	post := cluster.NewPostProcessor(params.MinClusterDuration, params.MaxGap, params.SplitDiscontinuous, logger)
	scenes = post.Process(scenes)

	result := &models.SegmentationResult{
		JobID:          job.JobID,
		VideoPath:      job.VideoPath,
		Duration:       info.Duration,
		Method:         params.Method,
		ShotCount:      len(shots),
		Scenes:         scenes,
		Degradations:   degradations,
		ProcessingTime: time.Since(startTime).Seconds(),
		StartedAt:      startTime,
		CompletedAt:    time.Now(),
	}

	if p.store != nil {
		if err := p.store.StoreResult(ctx, result); err != nil {
			return nil, fmt.Errorf("failed to store result: %w", err)
		}
	}

	if len(job.Segments) > 0 {
		p.sendProgress(ctx, job.JobID, 90, "processing", "align", "Aligning caller segments")
		aligned := p.AlignSegments(job.Segments, scenes)
		if p.store != nil {
			if err := p.store.StoreAlignedSegments(ctx, job.JobID, aligned); err != nil {
				return nil, fmt.Errorf("failed to store aligned segments: %w", err)
			}
		}
	}

	if p.store != nil {
		if err := p.store.UpdateJobStatus(ctx, job.JobID, "completed", ""); err != nil {
			return nil, fmt.Errorf("failed to update job status: %w", err)
		}
	}
	p.sendProgress(ctx, job.JobID, 100, "completed", "done",
		fmt.Sprintf("Segmented into %d scenes", len(scenes)))

	logger.Info().
		Int("scenes", len(scenes)).
		Float64("processing_time", result.ProcessingTime).
		Bool("degraded", result.Degraded()).
		Msg("segmentation complete")
	return result, nil
}

// AlignSegments snaps caller segments onto the scene boundary set.
func (p *Pipeline) AlignSegments(segments []models.Segment, scenes []models.Scene) []models.AlignedSegment {
	aligner := align.New(p.cfg.Alignment.MaxBoundaryDistance, p.cfg.Alignment.KeyframeInterval, p.logger)
	return aligner.AlignAll(segments, scenes)
}

func (p *Pipeline) failJob(ctx context.Context, jobID string, cause error) {
	p.logger.Error().Str("job_id", jobID).Err(cause).Msg("job failed")
	if p.store != nil {
		if err := p.store.UpdateJobStatus(ctx, jobID, "failed", cause.Error()); err != nil {
			p.logger.Warn().Err(err).Msg("failed to record job failure")
		}
	}
	p.sendProgress(ctx, jobID, 0, "failed", "error", cause.Error())
}

// sendProgress publishes a progress update over Redis pub/sub for any
// listening API or websocket layer. Best effort; a missing client is fine.
func (p *Pipeline) sendProgress(ctx context.Context, jobID string, progress float64, status, stage, message string) {
	if p.redisClient == nil {
		return
	}
	update := models.ProgressUpdate{
		JobID:     jobID,
		Status:    status,
		Progress:  progress,
		Stage:     stage,
		Message:   message,
		Timestamp: time.Now(),
	}
	channel := fmt.Sprintf("sceneworker:progress:%s", jobID)
	if err := p.redisClient.Publish(ctx, channel, update).Err(); err != nil {
		p.logger.Debug().Err(err).Msg("progress publish failed")
	}
}
