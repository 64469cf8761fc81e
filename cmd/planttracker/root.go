package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"plant-tracker/internal/config"
)

// NewRootCmd creates the root command for the plant tracker.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "planttracker",
		Short: "Automated growth and health tracking for cultured plants",
		Long: `planttracker analyzes photographs of plants growing in culture dishes.

Each image is processed through a five-stage pipeline: QR identifier
decoding, ruler-based size calibration, tissue segmentation, color
metrics, and a composite health score. Results are stored in SQLite
and served over an HTTP API.`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringP("config", "c", "", "Path to a YAML configuration file")
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")

	cmd.AddCommand(NewAnalyzeCmd())
	cmd.AddCommand(NewBatchCmd())
	cmd.AddCommand(NewServeCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadConfig resolves the effective configuration for a command.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	path, err := cmd.Flags().GetString("config")
	if err != nil {
		return config.Config{}, err
	}
	return config.Load(path)
}

// newLogger builds the process logger, honoring --verbose.
func newLogger(cmd *cobra.Command) *slog.Logger {
	level := slog.LevelInfo
	if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}
