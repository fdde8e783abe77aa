package main

import (
	"fmt"

	"reelsapp/reels-api/internal/config"
	"reelsapp/reels-api/internal/logger"

	"github.com/spf13/cobra"
)

// commandContext carries what every subcommand needs once the root has run.
type commandContext struct {
	configDir string
	cfg       config.Config
}

func newRootCommand() *cobra.Command {
	ctx := &commandContext{}

	rootCmd := &cobra.Command{
		Use:           "reels-api",
		Short:         "Reels upload, feed and engagement server",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig(ctx.configDir)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if err := logger.Init(cfg.Log); err != nil {
				return fmt.Errorf("init logger: %w", err)
			}
			ctx.cfg = cfg
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), ctx)
		},
	}

	rootCmd.PersistentFlags().StringVarP(&ctx.configDir, "config-dir", "c", ".", "Directory containing config.yaml")

	rootCmd.AddCommand(newServeCommand(ctx))
	rootCmd.AddCommand(newIndexesCommand(ctx))
	rootCmd.AddCommand(newOrphansCommand(ctx))

	return rootCmd
}
