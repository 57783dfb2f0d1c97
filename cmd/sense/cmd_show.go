package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nvandessel/sense/internal/batch"
	"github.com/nvandessel/sense/internal/metric"
	"github.com/nvandessel/sense/internal/models"
	"github.com/nvandessel/sense/internal/store"
)

func newShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show <scenario-id>",
		Short: "Print the stored record of a scenario",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rs, err := openStore(cmd)
			if err != nil {
				return err
			}
			defer rs.Close()

			rec, err := rs.Get(cmd.Context(), models.ScenarioID(args[0]))
			if errors.Is(err, store.ErrNotFound) {
				return fmt.Errorf("no record for scenario %s", args[0])
			}
			if err != nil {
				return err
			}

			if jsonOut, _ := cmd.Flags().GetBool("json"); jsonOut {
				return writeJSON(cmd.OutOrStdout(), rec)
			}

			w := cmd.OutOrStdout()
			fmt.Fprintln(w, batch.SceneLine(metric.ScoreOf(rec)))
			if rec.TemplateID != "" {
				fmt.Fprintf(w, "Template: %s\n", rec.TemplateID)
			}
			if rec.RunID != "" {
				fmt.Fprintf(w, "Run: %s\n", rec.RunID)
			}
			fmt.Fprintln(w)
			for _, m := range rec.ChatHistory {
				fmt.Fprintf(w, "%s: %s\n", m.Name, m.Content)
			}
			return nil
		},
	}
	addStoreFlags(cmd)
	return cmd
}

func newReportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Aggregate stored scores per scenario and per template",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rs, err := openStore(cmd)
			if err != nil {
				return err
			}
			defer rs.Close()

			scores, err := store.Scores(cmd.Context(), rs)
			if err != nil {
				return fmt.Errorf("failed to read scores: %w", err)
			}
			report := &batch.Report{
				Scores:    scores,
				Summary:   metric.Summarize(scores),
				Templates: metric.AggregateTemplates(scores),
			}

			if jsonOut, _ := cmd.Flags().GetBool("json"); jsonOut {
				return writeJSON(cmd.OutOrStdout(), report)
			}

			w := cmd.OutOrStdout()
			if verbose, _ := cmd.Flags().GetBool("scenes"); verbose {
				for _, s := range scores {
					fmt.Fprintln(w, batch.SceneLine(s))
				}
			}
			for _, line := range report.SummaryLines() {
				fmt.Fprintln(w, line)
			}
			return nil
		},
	}
	addStoreFlags(cmd)
	cmd.Flags().Bool("scenes", false, "Also print one line per scenario")
	return cmd
}

func addStoreFlags(cmd *cobra.Command) {
	cmd.Flags().String("output-dir", "", "Directory holding the score records")
	cmd.Flags().String("backend", "", "Record store: file or sqlite")
}

// openStore opens the record store named by the config and flags.
func openStore(cmd *cobra.Command) (store.RecordStore, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	if err := applyFlags(cmd, cfg); err != nil {
		return nil, err
	}
	rs, err := store.Open(cfg.Store.Backend, cfg.Paths.OutputDir)
	if err != nil {
		return nil, fmt.Errorf("failed to open record store: %w", err)
	}
	return rs, nil
}
