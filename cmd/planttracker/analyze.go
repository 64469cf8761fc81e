package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"plant-tracker/internal/pipeline"
)

// NewAnalyzeCmd creates the analyze command.
func NewAnalyzeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "analyze <image>",
		Short: "Analyze a single image without persisting anything",
		Long: `Analyze runs the full pipeline on one image and prints the result
as JSON. Nothing is written to the database; use this to tune
segmentation thresholds or inspect a problem image.`,
		Args: cobra.ExactArgs(1),
		RunE: runAnalyzeCmd,
	}
}

func runAnalyzeCmd(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	log := newLogger(cmd)

	out := pipeline.New(cfg, log).Analyze(args[0], pipeline.Prior{})

	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return fmt.Errorf("encode result: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(data))
	return nil
}
