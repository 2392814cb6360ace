package main

import (
	"github.com/spf13/cobra"

	"github.com/sceneforge/sceneworker/internal/config"
	"github.com/sceneforge/sceneworker/internal/logging"
)

func newRootCommand() *cobra.Command {
	var configFlag string
	var verboseFlag bool

	var cfg *config.Config

	rootCmd := &cobra.Command{
		Use:           "sceneworker",
		Short:         "Video scene segmentation worker",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			logging.Init(verboseFlag)
			loaded, err := config.Load(configFlag)
			if err != nil {
				return err
			}
			cfg = loaded
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVarP(&configFlag, "config", "c", "", "Configuration file path")
	rootCmd.PersistentFlags().BoolVarP(&verboseFlag, "verbose", "v", false, "Enable debug logging")

	getConfig := func() *config.Config { return cfg }

	rootCmd.AddCommand(newWorkerCommand(getConfig))
	rootCmd.AddCommand(newSegmentCommand(getConfig))
	rootCmd.AddCommand(newAlignCommand(getConfig))
	rootCmd.AddCommand(newEnqueueCommand(getConfig))

	return rootCmd
}
