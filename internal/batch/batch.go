// Package batch runs many scenarios on a bounded worker pool. A failing
// scenario is logged and left out of the report; it never stops the batch.
package batch

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"github.com/nvandessel/sense/internal/dataset"
	"github.com/nvandessel/sense/internal/metric"
	"github.com/nvandessel/sense/internal/models"
	"github.com/nvandessel/sense/internal/simulation"
	"github.com/nvandessel/sense/internal/telemetry"
)

// DefaultWorkers is used when Runner.Workers is below 1.
const DefaultWorkers = 4

// TaskSource names a task and loads it on demand, inside the worker, so
// a malformed task file fails only its own scenario.
type TaskSource struct {
	Name string
	Load func() (*dataset.Task, error)
}

// FileSources returns one source per task file.
func FileSources(paths []string) []TaskSource {
	sources := make([]TaskSource, len(paths))
	for i, p := range paths {
		sources[i] = TaskSource{Name: p, Load: func() (*dataset.Task, error) { return dataset.LoadTask(p) }}
	}
	return sources
}

// TaskSources wraps tasks already in memory.
func TaskSources(tasks []*dataset.Task) []TaskSource {
	sources := make([]TaskSource, len(tasks))
	for i, t := range tasks {
		sources[i] = TaskSource{Name: t.Scene.ID.String(), Load: func() (*dataset.Task, error) { return t, nil }}
	}
	return sources
}

// Runner executes a batch.
type Runner struct {
	Sim     *simulation.Runner
	Workers int

	// RunID is stamped into every new record. Empty generates a UUID.
	RunID string

	Logger *slog.Logger
}

// Report is the outcome of a batch.
type Report struct {
	RunID     string                           `json:"run_id"`
	Records   []*models.ScoreRecord            `json:"-"`
	Scores    []metric.ScenarioScore           `json:"scores"`
	Cached    int                              `json:"cached"`
	Failures  []*models.ScenarioExecutionError `json:"-"`
	Summary   metric.Summary                   `json:"summary"`
	Templates metric.TemplateReport            `json:"templates"`
}

// Run executes every source with at most Workers scenarios in flight.
// Records keep the order of sources. The returned error is non-nil only
// when ctx ends before the batch finishes.
func (r *Runner) Run(ctx context.Context, sources []TaskSource) (report *Report, err error) {
	logger := r.Logger
	if logger == nil {
		logger = slog.Default()
	}
	runID := r.RunID
	if runID == "" {
		runID = uuid.NewString()
	}
	workers := r.Workers
	if workers < 1 {
		workers = DefaultWorkers
	}
	sim := *r.Sim
	sim.Env.RunID = runID
	if sim.Env.Logger == nil {
		sim.Env.Logger = logger
	}

	ctx, span := telemetry.Tracer().Start(ctx, "batch.run")
	span.SetAttributes(
		attribute.String("batch.run_id", runID),
		attribute.Int("batch.tasks", len(sources)),
		attribute.Int("batch.workers", workers),
	)
	defer func() { telemetry.End(span, err) }()

	logger.Info("running simulation and evaluation", "run_id", runID, "tasks", len(sources), "workers", workers)

	results := make([]simulation.Result, len(sources))
	failures := make([]*models.ScenarioExecutionError, len(sources))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, src := range sources {
		g.Go(func() error {
			res, id, err := runOne(gctx, &sim, src)
			if err != nil {
				failures[i] = &models.ScenarioExecutionError{Scenario: id, Err: err}
				logger.Error("scenario failed", "scenario", id, "error", err)
				return nil
			}
			results[i] = res
			logger.Info(SceneLine(metric.ScoreOf(res.Record)))
			return nil
		})
	}
	// Workers never return errors; failures are collected per scenario.
	_ = g.Wait()

	report = &Report{RunID: runID}
	for i := range sources {
		if failures[i] != nil {
			report.Failures = append(report.Failures, failures[i])
			continue
		}
		if results[i].Cached {
			report.Cached++
		}
		report.Records = append(report.Records, results[i].Record)
		report.Scores = append(report.Scores, metric.ScoreOf(results[i].Record))
	}
	report.Summary = metric.Summarize(report.Scores)
	report.Templates = metric.AggregateTemplates(report.Scores)
	span.SetAttributes(
		attribute.Int("batch.completed", len(report.Records)),
		attribute.Int("batch.failed", len(report.Failures)),
	)

	if err := ctx.Err(); err != nil {
		return report, err
	}
	return report, nil
}

// runOne loads and runs one task. A panic anywhere in the scenario is
// turned into an error.
func runOne(ctx context.Context, sim *simulation.Runner, src TaskSource) (res simulation.Result, id string, err error) {
	id = src.Name
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("panic: %v\n%s", p, debug.Stack())
		}
	}()

	if err := ctx.Err(); err != nil {
		return res, id, err
	}
	task, err := src.Load()
	if err != nil {
		return res, id, err
	}
	if task.Scene.ID != "" {
		id = task.Scene.ID.String()
	}
	res, err = sim.RunTask(ctx, task)
	return res, id, err
}
