package simulation

import (
	"context"
	"errors"
	"fmt"

	"github.com/nvandessel/sense/internal/dataset"
	"github.com/nvandessel/sense/internal/models"
	"github.com/nvandessel/sense/internal/store"
)

// Runner simulates tasks and persists their records.
type Runner struct {
	Store   store.RecordStore
	Factory ClientFactory
	Env     Env
}

// Result is the outcome of one task.
type Result struct {
	Record *models.ScoreRecord

	// Cached is true when the record was already stored and nothing ran.
	Cached bool
}

// RunTask returns the stored record of the task's scenario if there is
// one, without building any actor. Otherwise it simulates the task and
// stores the new record.
func (r *Runner) RunTask(ctx context.Context, task *dataset.Task) (Result, error) {
	id := task.Scene.ID
	rec, err := r.Store.Get(ctx, id)
	switch {
	case err == nil:
		r.Env.logger().Debug("record exists, skipping simulation", "scenario", id)
		return Result{Record: rec, Cached: true}, nil
	case !errors.Is(err, store.ErrNotFound):
		return Result{}, fmt.Errorf("checking stored record: %w", err)
	}

	sim, err := FromTask(task, r.Factory, r.Env)
	if err != nil {
		return Result{}, err
	}
	rec, err = sim.Run(ctx)
	if err != nil {
		return Result{}, err
	}
	if err := r.Store.Put(ctx, rec); err != nil {
		return Result{}, fmt.Errorf("storing record: %w", err)
	}
	return Result{Record: rec}, nil
}
