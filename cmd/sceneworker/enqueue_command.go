package main

import (
	"fmt"

	"github.com/hibiken/asynq"
	"github.com/spf13/cobra"

	"github.com/sceneforge/sceneworker/internal/config"
	"github.com/sceneforge/sceneworker/internal/logging"
	"github.com/sceneforge/sceneworker/internal/models"
	"github.com/sceneforge/sceneworker/internal/queue"
)

func newEnqueueCommand(getConfig func() *config.Config) *cobra.Command {
	var methodFlag string
	var thresholdFlag float64
	var queueFlag string
	var segmentsFlag string

	cmd := &cobra.Command{
		Use:   "enqueue <video>",
		Short: "Enqueue a segmentation job for the worker pool",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := getConfig()
			logger := logging.WithComponent("enqueue")

			job := &models.JobPayload{
				JobID:     models.NewJobID(),
				VideoPath: args[0],
			}
			if methodFlag != "" {
				job.Options.Method = &methodFlag
			}
			if cmd.Flags().Changed("threshold") {
				job.Options.Threshold = &thresholdFlag
			}
			if segmentsFlag != "" {
				segments, err := readSegmentsFile(segmentsFlag)
				if err != nil {
					return err
				}
				job.Segments = segments
			}
			if _, err := cfg.Resolve(job.Options); err != nil {
				return err
			}

			task, err := queue.NewSegmentTask(job)
			if err != nil {
				return err
			}

			opt, err := asynq.ParseRedisURI(cfg.RedisURL)
			if err != nil {
				return fmt.Errorf("invalid redis url: %w", err)
			}
			client := asynq.NewClient(opt)
			defer client.Close()

			info, err := client.EnqueueContext(cmd.Context(), task, asynq.Queue(queueFlag))
			if err != nil {
				return fmt.Errorf("enqueue failed: %w", err)
			}

			logger.Info().
				Str("job_id", job.JobID).
				Str("task_id", info.ID).
				Str("queue", info.Queue).
				Msg("job enqueued")
			fmt.Fprintln(cmd.OutOrStdout(), job.JobID)
			return nil
		},
	}

	cmd.Flags().StringVarP(&methodFlag, "method", "m", "", "Detection method: professional, content or histogram")
	cmd.Flags().Float64VarP(&thresholdFlag, "threshold", "t", 0.3, "Detection threshold in [0,1]")
	cmd.Flags().StringVarP(&queueFlag, "queue", "q", "sceneworker:default", "Target queue name")
	cmd.Flags().StringVar(&segmentsFlag, "segments", "", "JSON file of caller segments to align after segmentation")

	return cmd
}
