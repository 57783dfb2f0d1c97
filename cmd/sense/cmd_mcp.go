package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nvandessel/sense/internal/mcp"
)

func newMCPServerCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mcp-server",
		Short: "Serve stored scores to MCP clients over stdio",
		Long: `Start a Model Context Protocol server on stdin/stdout.

Tools:
  sense_list_scores       headline scores of finished scenarios
  sense_get_score         full record of one scenario
  sense_template_report   per-template mean and standard deviation

Logs go to stderr; stdout carries the protocol.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if err := applyFlags(cmd, cfg); err != nil {
				return err
			}
			logger := newLogger(cmd, cfg)

			server, err := mcp.NewServer(&mcp.Config{
				Name:      "sense",
				Version:   version,
				OutputDir: cfg.Paths.OutputDir,
				Backend:   cfg.Store.Backend,
				Logger:    logger,
			})
			if err != nil {
				return fmt.Errorf("failed to create MCP server: %w", err)
			}
			return server.Run(cmd.Context())
		},
	}
	addStoreFlags(cmd)
	return cmd
}
