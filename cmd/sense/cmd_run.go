package main

import (
	"fmt"
	"log/slog"
	"math/rand/v2"

	"github.com/spf13/cobra"

	"github.com/nvandessel/sense/internal/batch"
	"github.com/nvandessel/sense/internal/config"
	"github.com/nvandessel/sense/internal/dataset"
	"github.com/nvandessel/sense/internal/llm"
	"github.com/nvandessel/sense/internal/logging"
	"github.com/nvandessel/sense/internal/simulation"
	"github.com/nvandessel/sense/internal/store"
	"github.com/nvandessel/sense/internal/telemetry"
)

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Prepare task files, then simulate and evaluate every scenario",
		Long: `Generate one YAML task file per scenario of the dataset, run every
task on a worker pool and log the per-scenario and template scores.

Scenarios that already have a stored record are not simulated again,
so an interrupted run can be resumed. A failing scenario is logged
and skipped.

Examples:
  sense run --input data/final_data.jsonl --output-dir output/llama
  sense run --skip-prepare --config-dir configs/tasks --workers 8
  sense run --provider mock --max-round 4 --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if err := applyFlags(cmd, cfg); err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid config: %w", err)
			}
			logger := newLogger(cmd, cfg)
			ctx := cmd.Context()

			shutdown, err := telemetry.Setup(ctx, "sense", cfg.Telemetry)
			if err != nil {
				return fmt.Errorf("failed to set up tracing: %w", err)
			}
			defer func() {
				if err := shutdown(ctx); err != nil {
					logger.Warn("flushing traces failed", "error", err)
				}
			}()

			skip, _ := cmd.Flags().GetBool("skip-prepare")
			if !skip {
				n, err := prepareTasks(cfg, logger)
				if err != nil {
					return err
				}
				logger.Info("task files written", "tasks", n, "dir", cfg.Paths.ConfigDir)
			}

			paths, err := dataset.ListTaskFiles(cfg.Paths.ConfigDir)
			if err != nil {
				return err
			}

			rs, err := store.Open(cfg.Store.Backend, cfg.Paths.OutputDir)
			if err != nil {
				return fmt.Errorf("failed to open record store: %w", err)
			}
			defer rs.Close()

			events := logging.NewEventLog(cfg.Paths.OutputDir, cfg.Logging.Level)
			defer events.Close()

			runner := &batch.Runner{
				Sim: &simulation.Runner{
					Store:   rs,
					Factory: llm.NewFactory(logger),
					Env: simulation.Env{
						Logger: logger,
						Events: events,
						Seed:   cfg.GroupChat.Seed,
					},
				},
				Workers: cfg.Batch.TaskWorkers,
				Logger:  logger,
			}
			report, runErr := runner.Run(ctx, batch.FileSources(paths))
			report.Log(logger)

			if jsonOut, _ := cmd.Flags().GetBool("json"); jsonOut {
				if err := writeJSON(cmd.OutOrStdout(), report); err != nil {
					return err
				}
			}
			return runErr
		},
	}

	addTaskFlags(cmd)
	cmd.Flags().String("output-dir", "", "Directory for score records and events")
	cmd.Flags().String("backend", "", "Record store: file or sqlite")
	cmd.Flags().Int("workers", 0, "Scenarios simulated concurrently")
	cmd.Flags().Bool("skip-prepare", false, "Use the existing task files in --config-dir")
	return cmd
}

func newPrepareCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "prepare",
		Short: "Generate YAML task files from the dataset without running them",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if err := applyFlags(cmd, cfg); err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid config: %w", err)
			}
			logger := newLogger(cmd, cfg)

			n, err := prepareTasks(cfg, logger)
			if err != nil {
				return err
			}

			if jsonOut, _ := cmd.Flags().GetBool("json"); jsonOut {
				return writeJSON(cmd.OutOrStdout(), map[string]any{"tasks": n, "dir": cfg.Paths.ConfigDir})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d task files to %s\n", n, cfg.Paths.ConfigDir)
			return nil
		},
	}
	addTaskFlags(cmd)
	return cmd
}

// addTaskFlags registers the flags that shape generated task files.
func addTaskFlags(cmd *cobra.Command) {
	cmd.Flags().String("input", "", "JSONL scenario dataset")
	cmd.Flags().String("config-dir", "", "Directory for the YAML task files")
	cmd.Flags().String("pattern", "", "Model pattern: homo or heter")
	cmd.Flags().String("provider", "", "LLM provider: openai, anthropic or mock")
	cmd.Flags().String("model", "", "Participant model in the homo pattern")
	cmd.Flags().Int("max-round", 0, "Dialogue messages per scenario; 0 means 10 per character")
	cmd.Flags().Uint64("seed", 0, "Seed for speaker selection and option alphabets; 0 is random")
}

// applyFlags copies explicitly set flags over cfg.
func applyFlags(cmd *cobra.Command, cfg *config.SenseConfig) error {
	flags := cmd.Flags()
	var err error
	str := func(name string, dst *string) {
		if err == nil && flags.Changed(name) {
			*dst, err = flags.GetString(name)
		}
	}
	str("input", &cfg.Paths.Input)
	str("config-dir", &cfg.Paths.ConfigDir)
	str("output-dir", &cfg.Paths.OutputDir)
	str("pattern", &cfg.Batch.Pattern)
	str("provider", &cfg.LLM.Provider)
	str("model", &cfg.LLM.Model)
	str("backend", &cfg.Store.Backend)

	if err == nil && flags.Changed("workers") {
		cfg.Batch.TaskWorkers, err = flags.GetInt("workers")
	}
	if err == nil && flags.Changed("max-round") {
		cfg.GroupChat.MaxRound, err = flags.GetInt("max-round")
	}
	if err == nil && flags.Changed("seed") {
		cfg.GroupChat.Seed, err = flags.GetUint64("seed")
	}
	return err
}

// prepareTasks turns the dataset into task files and returns how many
// were written.
func prepareTasks(cfg *config.SenseConfig, logger *slog.Logger) (int, error) {
	samples, err := dataset.ReadJSONL(cfg.Paths.Input)
	if err != nil {
		return 0, err
	}
	templates, err := dataset.LoadPromptTemplates(cfg.Paths.PromptTemplate)
	if err != nil {
		return 0, err
	}
	judges, err := dataset.LoadJudgeConfigs(cfg.Paths.JudgeConfig)
	if err != nil {
		return 0, err
	}

	opts := dataset.BuildOptions{
		Pattern:    cfg.Batch.Pattern,
		Chat:       cfg.GroupChat.Chat(),
		LLM:        cfg.LLM.ClientConfig(),
		Templates:  *templates,
		Judges:     judges,
		OptionMark: cfg.Batch.OptionMark,
	}
	if cfg.GroupChat.Seed != 0 {
		opts.Rand = rand.New(rand.NewPCG(cfg.GroupChat.Seed, 0))
	}

	logger.Info("preparing tasks", "samples", len(samples), "pattern", cfg.Batch.Pattern, "judges", len(judges))
	tasks, err := dataset.BuildTasks(samples, opts)
	if err != nil {
		return 0, err
	}
	if err := dataset.WriteTasks(cfg.Paths.ConfigDir, tasks); err != nil {
		return 0, err
	}
	return len(tasks), nil
}
