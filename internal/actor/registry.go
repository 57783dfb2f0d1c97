package actor

import (
	"fmt"

	"github.com/nvandessel/sense/internal/models"
)

// Registry is the per-scenario, immutable set of actors. Participants and
// judges keep their registration order, which fixes dialogue eligibility
// order and the order of judge scores.
type Registry struct {
	participants []*Actor
	judges       []*Actor
	byName       map[string]*Actor
}

// NewRegistry indexes participants and judges. Names must be unique
// across both lists.
func NewRegistry(participants, judges []*Actor) (*Registry, error) {
	r := &Registry{
		participants: participants,
		judges:       judges,
		byName:       make(map[string]*Actor, len(participants)+len(judges)),
	}
	for _, group := range [][]*Actor{participants, judges} {
		for _, a := range group {
			if a.name == "" {
				return nil, &models.ConfigurationError{Field: "agents", Reason: "actor without a name"}
			}
			if _, dup := r.byName[a.name]; dup {
				return nil, &models.ConfigurationError{Field: "agents", Reason: fmt.Sprintf("duplicate actor name %q", a.name)}
			}
			r.byName[a.name] = a
		}
	}
	return r, nil
}

// Participants returns the dialogue actors in registration order.
func (r *Registry) Participants() []*Actor { return r.participants }

// Judges returns the judge actors in registration order.
func (r *Registry) Judges() []*Actor { return r.judges }

// ParticipantNames returns participant names in registration order.
func (r *Registry) ParticipantNames() []string { return names(r.participants) }

// JudgeNames returns judge names in registration order.
func (r *Registry) JudgeNames() []string { return names(r.judges) }

// Lookup finds an actor by name.
func (r *Registry) Lookup(name string) (*Actor, error) {
	a, ok := r.byName[name]
	if !ok {
		return nil, &models.UnknownActorError{Name: name}
	}
	return a, nil
}

// ResetTemperature sets every participant's temperature to t. It returns
// only after all participants are updated, so callers can use it as the
// barrier between dialogue and evaluation.
func (r *Registry) ResetTemperature(t float64) {
	for _, a := range r.participants {
		a.SetTemperature(t)
	}
}

func names(actors []*Actor) []string {
	out := make([]string, len(actors))
	for i, a := range actors {
		out[i] = a.name
	}
	return out
}
