package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"plant-tracker/internal/batch"
	"plant-tracker/internal/store"
	"plant-tracker/internal/tracker"
)

// NewBatchCmd creates the batch command.
func NewBatchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "batch [dir]",
		Short: "Process a directory of images and store the results",
		Long: `Batch analyzes every image in a directory, in filename order, and
persists plants, images, and measurements. Capture times are
synthesized one hour apart so growth rates come out of a fresh
import. The directory defaults to the configured image_dir.`,
		Args: cobra.MaximumNArgs(1),
		RunE: runBatchCmd,
	}

	cmd.Flags().IntP("workers", "w", 1,
		"Concurrent images to process (1 keeps growth baselines in file order)")

	return cmd
}

func runBatchCmd(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	log := newLogger(cmd)

	dir := cfg.ImageDir
	if len(args) == 1 {
		dir = args[0]
	}

	st, err := store.Open(cfg.DatabasePath)
	if err != nil {
		return err
	}
	defer st.Close()

	runner := batch.New(tracker.New(cfg, st, log), log)
	if workers, err := cmd.Flags().GetInt("workers"); err == nil && workers > 0 {
		runner.Workers = workers
	}

	summary, err := runner.Run(dir)
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return fmt.Errorf("encode summary: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(data))
	return nil
}
