package models

import (
	"errors"
	"fmt"
)

// ErrRepeatSpeaker is returned when a speaker selector picks the previous
// speaker although repeated speakers are forbidden.
var ErrRepeatSpeaker = errors.New("speaker selected twice in a row while repeats are disabled")

// ConfigurationError reports invalid scenario or group chat settings.
// It is fatal to the scenario and raised before any dialogue starts.
type ConfigurationError struct {
	Scenario ScenarioID
	Field    string
	Reason   string
}

func (e *ConfigurationError) Error() string {
	if e.Scenario != "" {
		return fmt.Sprintf("scenario %s: invalid %s: %s", e.Scenario, e.Field, e.Reason)
	}
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// UnknownActorError reports an interview addressed to a name missing from
// the scenario's actor registry.
type UnknownActorError struct {
	Name string
}

func (e *UnknownActorError) Error() string {
	return fmt.Sprintf("unknown actor %q", e.Name)
}

// ScenarioExecutionError wraps any failure of one scenario inside a batch.
type ScenarioExecutionError struct {
	Scenario string // scenario id, or the task source when the id is unknown
	Err      error
}

func (e *ScenarioExecutionError) Error() string {
	return fmt.Sprintf("scenario %s: %v", e.Scenario, e.Err)
}

func (e *ScenarioExecutionError) Unwrap() error { return e.Err }

// IsConfigurationError reports whether err wraps a *ConfigurationError.
func IsConfigurationError(err error) bool {
	var ce *ConfigurationError
	return errors.As(err, &ce)
}
