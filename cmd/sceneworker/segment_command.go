package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/sceneforge/sceneworker/internal/config"
	"github.com/sceneforge/sceneworker/internal/ffmpeg"
	"github.com/sceneforge/sceneworker/internal/logging"
	"github.com/sceneforge/sceneworker/internal/models"
	"github.com/sceneforge/sceneworker/internal/processor"
)

func newSegmentCommand(getConfig func() *config.Config) *cobra.Command {
	var methodFlag string
	var thresholdFlag float64
	var maxClustersFlag int
	var segmentsFlag string
	var outputFlag string

	cmd := &cobra.Command{
		Use:   "segment <video>",
		Short: "Segment one video into scenes and print the result as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := getConfig()
			logger := logging.WithComponent("segment")

			exec, err := ffmpeg.New(logger, cfg.TempDir, cfg.Detection.ToolTimeout())
			if err != nil {
				return err
			}

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
			if cmd.Flags().Changed("max-clusters") {
				job.Options.MaxClusters = &maxClustersFlag
			}
			if segmentsFlag != "" {
				segments, err := readSegmentsFile(segmentsFlag)
				if err != nil {
					return err
				}
				job.Segments = segments
			}

			pipeline := processor.New(cfg, exec, nil, nil, logger)
			result, err := pipeline.Process(cmd.Context(), job)
			if err != nil {
				return err
			}

			out := struct {
				*models.SegmentationResult
				AlignedSegments []models.AlignedSegment `json:"alignedSegments,omitempty"`
			}{SegmentationResult: result}

			if len(job.Segments) > 0 {
				out.AlignedSegments = pipeline.AlignSegments(job.Segments, result.Scenes)
			}

			return writeJSON(out, outputFlag)
		},
	}

	cmd.Flags().StringVarP(&methodFlag, "method", "m", "", "Detection method: professional, content or histogram")
	cmd.Flags().Float64VarP(&thresholdFlag, "threshold", "t", 0.3, "Detection threshold in [0,1]")
	cmd.Flags().IntVar(&maxClustersFlag, "max-clusters", 0, "Cap on scene clusters (0 = auto)")
	cmd.Flags().StringVar(&segmentsFlag, "segments", "", "JSON file of caller segments to align")
	cmd.Flags().StringVarP(&outputFlag, "output", "o", "", "Write result to file instead of stdout")

	return cmd
}

func readSegmentsFile(path string) ([]models.Segment, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read segments file: %w", err)
	}
	var segments []models.Segment
	if err := json.Unmarshal(data, &segments); err != nil {
		return nil, fmt.Errorf("parse segments file: %w", err)
	}
	return segments, nil
}

func writeJSON(v any, path string) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')

	if path == "" {
		_, err = os.Stdout.Write(data)
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
