package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/sceneforge/sceneworker/internal/align"
	"github.com/sceneforge/sceneworker/internal/config"
	"github.com/sceneforge/sceneworker/internal/logging"
	"github.com/sceneforge/sceneworker/internal/models"
)

func newAlignCommand(getConfig func() *config.Config) *cobra.Command {
	var scenesFlag string
	var segmentsFlag string
	var outputFlag string

	cmd := &cobra.Command{
		Use:   "align",
		Short: "Align caller segments against a previously computed scene list",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := getConfig()
			logger := logging.WithComponent("align")

			scenes, err := readScenesFile(scenesFlag)
			if err != nil {
				return err
			}
			segments, err := readSegmentsFile(segmentsFlag)
			if err != nil {
				return err
			}

			aligner := align.New(cfg.Alignment.MaxBoundaryDistance, cfg.Alignment.KeyframeInterval, logger)
			aligned := aligner.AlignAll(segments, scenes)

			return writeJSON(aligned, outputFlag)
		},
	}

	cmd.Flags().StringVar(&scenesFlag, "scenes", "", "JSON file with scenes, as emitted by the segment command")
	cmd.Flags().StringVar(&segmentsFlag, "segments", "", "JSON file of caller segments to align")
	cmd.Flags().StringVarP(&outputFlag, "output", "o", "", "Write result to file instead of stdout")
	cmd.MarkFlagRequired("scenes")
	cmd.MarkFlagRequired("segments")

	return cmd
}

// readScenesFile accepts either a full segmentation result or a bare
// scene array, so segment command output can be piped in unchanged.
func readScenesFile(path string) ([]models.Scene, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenes file: %w", err)
	}
	var result models.SegmentationResult
	if err := json.Unmarshal(data, &result); err == nil && len(result.Scenes) > 0 {
		return result.Scenes, nil
	}
	var scenes []models.Scene
	if err := json.Unmarshal(data, &scenes); err != nil {
		return nil, fmt.Errorf("parse scenes file: %w", err)
	}
	if len(scenes) == 0 {
		return nil, fmt.Errorf("%w: %s contains no scenes", models.ErrNoBoundaries, path)
	}
	return scenes, nil
}
