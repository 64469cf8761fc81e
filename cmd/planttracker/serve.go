package main

import (
	"github.com/spf13/cobra"

	"plant-tracker/internal/server"
	"plant-tracker/internal/store"
	"plant-tracker/internal/tracker"
)

// NewServeCmd creates the serve command.
func NewServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API",
		Long: `Serve starts the HTTP API: plant listings, measurement series,
image files, uploads, and the batch-analysis trigger. The listen
address comes from the configuration (api_host, api_port).`,
		Args: cobra.NoArgs,
		RunE: runServeCmd,
	}
}

func runServeCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	log := newLogger(cmd)

	st, err := store.Open(cfg.DatabasePath)
	if err != nil {
		return err
	}
	defer st.Close()

	tr := tracker.New(cfg, st, log)
	return server.New(cfg, st, tr, log).Run()
}
