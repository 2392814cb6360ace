package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/sceneforge/sceneworker/internal/config"
	"github.com/sceneforge/sceneworker/internal/ffmpeg"
	"github.com/sceneforge/sceneworker/internal/logging"
	"github.com/sceneforge/sceneworker/internal/processor"
	"github.com/sceneforge/sceneworker/internal/queue"
	"github.com/sceneforge/sceneworker/internal/storage"
)

func newWorkerCommand(getConfig func() *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "worker",
		Short: "Run the queue worker, consuming segmentation jobs from Redis",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := getConfig()
			logger := logging.WithComponent("worker")

			exec, err := ffmpeg.New(logger, cfg.TempDir, cfg.Detection.ToolTimeout())
			if err != nil {
				return err
			}

			store, err := storage.New(cfg.PostgresURL)
			if err != nil {
				return fmt.Errorf("storage init failed: %w", err)
			}
			defer store.Close()

			redisOpt, err := redis.ParseURL(cfg.RedisURL)
			if err != nil {
				return fmt.Errorf("invalid redis URL: %w", err)
			}
			redisClient := redis.NewClient(redisOpt)
			defer redisClient.Close()

			pipeline := processor.New(cfg, exec, store, redisClient, logger)

			consumer, err := queue.NewConsumer(&queue.Config{
				RedisURL:    cfg.RedisURL,
				Concurrency: cfg.Concurrency,
				Pipeline:    pipeline,
				Logger:      logger,
			})
			if err != nil {
				return err
			}

			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
			go func() {
				<-sigCh
				consumer.Stop()
			}()

			logger.Info().Int("concurrency", cfg.Concurrency).Msg("worker starting")
			return consumer.Start()
		},
	}
}
