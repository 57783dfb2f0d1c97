// Package simulation runs one scenario end to end: dialogue, a temperature
// barrier, goal and private-info interviews, and scoring.
//
// A Simulation is built from a task file by FromTask and used once:
//
//	sim, err := simulation.FromTask(task, llm.NewFactory(logger), simulation.Env{Logger: logger})
//	if err != nil {
//	    return err
//	}
//	record, err := sim.Run(ctx)
//
// Runner adds persistence: a scenario whose record is already stored is
// not simulated again.
package simulation
