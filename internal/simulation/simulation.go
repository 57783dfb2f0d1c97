package simulation

import (
	"context"
	"fmt"
	"hash/fnv"
	"log/slog"
	"math/rand/v2"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/nvandessel/sense/internal/actor"
	"github.com/nvandessel/sense/internal/chat"
	"github.com/nvandessel/sense/internal/dataset"
	"github.com/nvandessel/sense/internal/evaluation"
	"github.com/nvandessel/sense/internal/llm"
	"github.com/nvandessel/sense/internal/logging"
	"github.com/nvandessel/sense/internal/metric"
	"github.com/nvandessel/sense/internal/models"
	"github.com/nvandessel/sense/internal/telemetry"
)

// ClientFactory builds the reply capability of an actor. *llm.Factory
// implements it.
type ClientFactory interface {
	New(cfg llm.ClientConfig) (llm.Client, error)
}

// Env is the ambient context shared by the simulations of a batch.
type Env struct {
	Logger *slog.Logger
	Events *logging.EventLog

	// Tracer defaults to telemetry.Tracer().
	Tracer trace.Tracer

	// RunID is stamped into every record.
	RunID string

	// Seed makes speaker selection and option alphabets reproducible per
	// scenario. 0 seeds randomly.
	Seed uint64
}

func (e Env) logger() *slog.Logger {
	if e.Logger == nil {
		return slog.Default()
	}
	return e.Logger
}

func (e Env) tracer() trace.Tracer {
	if e.Tracer == nil {
		return telemetry.Tracer()
	}
	return e.Tracer
}

// rand returns the scenario's random source. Each scenario gets its own
// source so concurrent simulations never share one.
func (e Env) rand(id models.ScenarioID) *rand.Rand {
	if e.Seed == 0 {
		return rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	h := fnv.New64a()
	h.Write([]byte(id))
	return rand.New(rand.NewPCG(e.Seed, h.Sum64()))
}

// Simulation is one configured scenario, ready to run once.
type Simulation struct {
	Scenario *models.Scenario
	Registry *actor.Registry
	Chat     *chat.GroupChat

	// EvalTemperature is applied to every participant before evaluation.
	// Nil leaves temperatures unchanged.
	EvalTemperature *float64

	env Env
}

// FromTask builds the actors, registry and group chat of task. Every
// configuration problem surfaces here, before any model is called.
func FromTask(task *dataset.Task, factory ClientFactory, env Env) (*Simulation, error) {
	rng := env.rand(task.Scene.ID)
	if err := task.RenderQuestions(rng); err != nil {
		return nil, err
	}
	scene := task.Scene
	if len(task.Agents) == 0 {
		return nil, &models.ConfigurationError{Scenario: scene.ID, Field: "agents", Reason: "task has no agents"}
	}

	participants := make([]*actor.Actor, 0, len(task.Agents))
	for _, spec := range task.Agents {
		client, err := factory.New(spec.LLM)
		if err != nil {
			return nil, fmt.Errorf("scenario %s: actor %s: %w", scene.ID, spec.Name, err)
		}
		participants = append(participants, actor.New(actor.Config{
			Name:    spec.Name,
			Persona: spec.Persona(&scene),
			Role:    actor.RoleParticipant,
			LLM:     spec.LLM,
		}, client))
	}

	judges := make([]*actor.Actor, 0, len(task.JudgeAgents))
	var judgeClients []llm.Client
	for _, spec := range task.JudgeAgents {
		client, err := factory.New(spec.LLM)
		if err != nil {
			return nil, fmt.Errorf("scenario %s: judge %s: %w", scene.ID, spec.Name, err)
		}
		judgeClients = append(judgeClients, client)
		judges = append(judges, actor.New(actor.Config{
			Name:    spec.Name,
			Persona: spec.PromptTemplate,
			Role:    actor.RoleJudge,
			LLM:     spec.LLM,
		}, client))
	}

	registry, err := actor.NewRegistry(participants, judges)
	if err != nil {
		return nil, withScenario(err, scene.ID)
	}
	if err := scene.Validate(registry.ParticipantNames()); err != nil {
		return nil, err
	}
	if len(judges) == 0 && hasJudgeQuestions(&scene) {
		return nil, &models.ConfigurationError{Scenario: scene.ID, Field: "judge_agents", Reason: "judge questions need at least one judge"}
	}

	// The auto selector asks the first judge's model, else the first
	// participant's.
	selectorLLM := task.Agents[0].LLM
	if len(task.JudgeAgents) > 0 {
		selectorLLM = task.JudgeAgents[0].LLM
	}
	var selectorClient llm.Client
	if strings.EqualFold(task.GroupChat.SpeakerSelectionMethod, chat.MethodAuto) {
		if selectorClient, err = factory.New(selectorLLM); err != nil {
			return nil, fmt.Errorf("scenario %s: speaker selector: %w", scene.ID, err)
		}
	}
	selector, err := chat.NewSelector(task.GroupChat.SpeakerSelectionMethod, rng, selectorClient)
	if err != nil {
		return nil, withScenario(err, scene.ID)
	}
	if auto, ok := selector.(*chat.AutoSelector); ok {
		auto.Model = selectorLLM.Model
	}

	gc := &chat.GroupChat{
		Scenario:           scene.ID,
		Actors:             participants,
		MaxRound:           task.GroupChat.MaxRound,
		Selector:           selector,
		AllowRepeatSpeaker: task.GroupChat.AllowRepeatSpeaker,
		Rand:               rng,
		Logger:             env.logger(),
		Events:             env.Events,
	}
	if err := gc.Validate(); err != nil {
		return nil, err
	}

	sim := &Simulation{Scenario: &scene, Registry: registry, Chat: gc, env: env}
	if len(task.JudgeAgents) > 0 {
		t := task.JudgeAgents[0].LLM.Temperature
		sim.EvalTemperature = &t
	}
	return sim, nil
}

// Run simulates the dialogue, evaluates it and scores it. Evaluation
// starts only after the dialogue has finished and every participant's
// temperature has been reset.
func (s *Simulation) Run(ctx context.Context) (record *models.ScoreRecord, err error) {
	ctx, span := s.env.tracer().Start(ctx, "simulation.run")
	span.SetAttributes(attribute.String("scenario.id", s.Scenario.ID.String()))
	defer func() { telemetry.End(span, err) }()

	logger := s.env.logger().With("scenario", s.Scenario.ID)
	start := time.Now()

	transcript, err := s.Chat.Run(ctx)
	if err != nil {
		return nil, fmt.Errorf("dialogue: %w", err)
	}
	logger.Debug("dialogue complete", "messages", len(transcript), "speakers", transcript.Speakers())

	if s.EvalTemperature != nil {
		s.Registry.ResetTemperature(*s.EvalTemperature)
	}

	iv := &evaluation.Interviewer{
		Registry: s.Registry,
		Scenario: s.Scenario.ID,
		Logger:   logger,
		Events:   s.env.Events,
	}
	goalAnswers, err := (&evaluation.GoalEvaluator{Interviewer: iv}).Evaluate(ctx, s.Scenario, transcript)
	if err != nil {
		return nil, fmt.Errorf("goal evaluation: %w", err)
	}
	infoAnswers, err := (&evaluation.InfoEvaluator{Interviewer: iv}).Evaluate(ctx, s.Scenario, transcript)
	if err != nil {
		return nil, fmt.Errorf("info evaluation: %w", err)
	}

	choice, err := metric.NewChoiceMetric(s.Scenario.MarkStyle)
	if err != nil {
		return nil, err
	}
	actors := s.Registry.ParticipantNames()
	infoResults, infoMetrics := metric.InfoMetric{Choice: choice}.Compute(infoAnswers, s.Scenario.InfoQuestions, actors)

	record = &models.ScoreRecord{
		ScenarioID:  s.Scenario.ID,
		TemplateID:  s.Scenario.TemplateID,
		RunID:       s.env.RunID,
		CreatedAt:   time.Now().UTC(),
		ChatHistory: transcript,
		GoalAnswers: goalAnswers,
		GoalMetrics: metric.GoalMetric{}.Compute(goalAnswers, actors, s.Registry.JudgeNames()),
		InfoAnswers: infoAnswers,
		InfoResults: infoResults,
		InfoMetrics: infoMetrics,
	}
	logger.Debug("scenario evaluated", "duration", time.Since(start))
	return record, nil
}

func hasJudgeQuestions(s *models.Scenario) bool {
	for _, goals := range s.Goals {
		for _, g := range goals {
			if len(g.EvalQuestions[models.DimensionJudge]) > 0 {
				return true
			}
		}
	}
	return false
}

func withScenario(err error, id models.ScenarioID) error {
	if ce, ok := err.(*models.ConfigurationError); ok && ce.Scenario == "" {
		ce.Scenario = id
	}
	return err
}
