// Package queue runs the asynq consumer that pulls segmentation jobs off
// Redis and feeds them to the pipeline.
package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"

	"github.com/sceneforge/sceneworker/internal/logging"
	"github.com/sceneforge/sceneworker/internal/models"
	"github.com/sceneforge/sceneworker/internal/processor"
)

// TaskSegment is the task type for a segmentation job.
const TaskSegment = "sceneworker:segment"

// Consumer consumes segmentation jobs from the Redis queue.
type Consumer struct {
	server   *asynq.Server
	pipeline *processor.Pipeline
	logger   zerolog.Logger
}

// Config holds consumer configuration.
type Config struct {
	RedisURL    string
	Concurrency int
	Pipeline    *processor.Pipeline
	Logger      zerolog.Logger
}

// NewConsumer creates a queue consumer with priority queues and exponential
// retry backoff.
func NewConsumer(cfg *Config) (*Consumer, error) {
	redisOpt, err := asynq.ParseRedisURI(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	logger := cfg.Logger.With().Str("component", "queue").Logger()

	server := asynq.NewServer(
		redisOpt,
		asynq.Config{
			Concurrency: cfg.Concurrency,
			Queues: map[string]int{
				"sceneworker:critical": 6,
				"sceneworker:default":  3,
				"sceneworker:low":      1,
			},
			RetryDelayFunc: func(n int, err error, task *asynq.Task) time.Duration {
				// Exponential backoff: 1min, 2min, 4min.
				return time.Duration(1<<uint(n)) * time.Minute
			},
			ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
				logger.Error().Str("task", task.Type()).Err(err).Msg("task failed")
			}),
		},
	)

	return &Consumer{
		server:   server,
		pipeline: cfg.Pipeline,
		logger:   logger,
	}, nil
}

// Start blocks serving jobs until Stop is called.
func (c *Consumer) Start() error {
	mux := asynq.NewServeMux()
	mux.HandleFunc(TaskSegment, c.handleSegmentTask)

	c.logger.Info().Msg("starting sceneworker consumer")
	if err := c.server.Run(mux); err != nil {
		return fmt.Errorf("failed to start worker: %w", err)
	}
	return nil
}

// Stop shuts the consumer down gracefully, letting in-flight jobs finish.
func (c *Consumer) Stop() {
	c.logger.Info().Msg("shutting down sceneworker consumer")
	c.server.Shutdown()
}

func (c *Consumer) handleSegmentTask(ctx context.Context, task *asynq.Task) error {
	var job models.JobPayload
	if err := json.Unmarshal(task.Payload(), &job); err != nil {
		return fmt.Errorf("failed to unmarshal job payload: %w", err)
	}
	if job.JobID == "" {
		job.JobID = models.NewJobID()
	}

	logger := logging.WithJob("queue", job.JobID)
	logger.Info().Str("video", job.VideoPath).Msg("processing job")

	result, err := c.pipeline.Process(ctx, &job)
	if err != nil {
		// Only unreadable input is truly fatal; retrying it cannot help.
		if models.IsFatal(err) {
			logger.Error().Err(err).Msg("job failed permanently")
			return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
		}
		logger.Error().Err(err).Msg("job failed")
		return err
	}

	logger.Info().
		Int("scenes", len(result.Scenes)).
		Bool("degraded", result.Degraded()).
		Msg("job completed")
	return nil
}

// NewSegmentTask builds an asynq task for a job payload, used by producers.
func NewSegmentTask(job *models.JobPayload) (*asynq.Task, error) {
	payload, err := json.Marshal(job)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal job payload: %w", err)
	}
	return asynq.NewTask(TaskSegment, payload), nil
}
