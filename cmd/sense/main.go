package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/nvandessel/sense/internal/config"
	"github.com/nvandessel/sense/internal/logging"
)

var version = "0.1.0-dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), shutdownSignals()...)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "sense",
		Short: "SENSE - multi-party social simulation and evaluation",
		Long: `sense simulates goal-driven dialogues between language-model actors
and scores how well each actor reached its social goal and inferred
the private information of the others.

Scenarios come from a JSONL dataset. Each one is turned into a YAML
task file, run as a bounded group chat, and evaluated by interviewing
the participants and a panel of judge models.`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().Bool("json", false, "Output as JSON (for agent consumption)")
	rootCmd.PersistentFlags().String("config", "", "Config file (default ~/.sense/config.yaml)")
	rootCmd.PersistentFlags().String("log-level", "", "Log level: info, debug or trace")

	rootCmd.AddCommand(
		newVersionCmd(),
		newRunCmd(),
		newPrepareCmd(),
		newAssignRolesCmd(),
		newShowCmd(),
		newReportCmd(),
		newMCPServerCmd(),
		newConfigCmd(),
	)
	return rootCmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")
			if jsonOut {
				return writeJSON(cmd.OutOrStdout(), map[string]string{"version": version})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "sense version %s\n", version)
			return nil
		},
	}
}

// loadConfig loads the configuration named by --config and applies
// --log-level.
func loadConfig(cmd *cobra.Command) (*config.SenseConfig, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadFrom(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if level, _ := cmd.Flags().GetString("log-level"); level != "" {
		cfg.Logging.Level = level
	}
	return cfg, nil
}

// newLogger writes operational logs to stderr so stdout stays parseable.
func newLogger(cmd *cobra.Command, cfg *config.SenseConfig) *slog.Logger {
	logger := logging.NewLogger(cfg.Logging.Level, cmd.ErrOrStderr())
	slog.SetDefault(logger)
	return logger
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
