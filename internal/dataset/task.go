package dataset

import (
	"fmt"
	"math/rand/v2"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/nvandessel/sense/internal/chat"
	"github.com/nvandessel/sense/internal/llm"
	"github.com/nvandessel/sense/internal/models"
	"github.com/nvandessel/sense/internal/pathutil"
)

// AgentSpec describes one dialogue participant in a task file.
type AgentSpec struct {
	Name           string           `yaml:"name"`
	Profile        string           `yaml:"profile"`
	SocialGoal     []string         `yaml:"social_goal"`
	PrivateInfo    string           `yaml:"private_info"`
	PromptTemplate string           `yaml:"prompt_template"`
	LLM            llm.ClientConfig `yaml:"llm"`
}

// Persona fills the agent's prompt template for scene.
func (a AgentSpec) Persona(scene *models.Scenario) string {
	return FillTemplate(a.PromptTemplate, PersonaVars{
		Name:        a.Name,
		Profile:     a.Profile,
		SocialGoals: a.SocialGoal,
		PrivateInfo: a.PrivateInfo,
		Background:  scene.Background,
		Description: scene.Description,
	}.Map())
}

// JudgeSpec describes one judge in a task file. The prompt template is
// used verbatim as the judge persona.
type JudgeSpec struct {
	Name           string           `yaml:"name"`
	PromptTemplate string           `yaml:"prompt_template"`
	LLM            llm.ClientConfig `yaml:"llm"`
}

// Task is the self-contained configuration of one scenario run.
type Task struct {
	Scene       models.Scenario `yaml:"scene"`
	GroupChat   chat.Config     `yaml:"groupchat"`
	Agents      []AgentSpec     `yaml:"agents"`
	JudgeAgents []JudgeSpec     `yaml:"judge_agents"`

	// Source is the file the task was loaded from, if any.
	Source string `yaml:"-"`
}

// AgentNames returns participant names in task order.
func (t *Task) AgentNames() []string {
	names := make([]string, len(t.Agents))
	for i, a := range t.Agents {
		names[i] = a.Name
	}
	return names
}

// RenderQuestions fills the rendered text of every info question that
// does not have one yet.
func (t *Task) RenderQuestions(rng *rand.Rand) error {
	for _, name := range sortedNames(t.Scene.InfoQuestions) {
		questions := t.Scene.InfoQuestions[name]
		for i := range questions {
			if questions[i].Rendered != "" {
				continue
			}
			rendered, err := RenderQuestion(questions[i], t.Scene.MarkStyle, rng)
			if err != nil {
				return withScenario(err, t.Scene.ID)
			}
			questions[i].Rendered = rendered
		}
	}
	return nil
}

// TaskFile returns the task file of scenario id in dir. Ids that would
// name a file outside dir are rejected.
func TaskFile(dir string, id models.ScenarioID) (string, error) {
	path, err := pathutil.JoinWithin(dir, id.String()+".yaml")
	if err != nil {
		return "", fmt.Errorf("invalid scenario id %q: %w", id, err)
	}
	return path, nil
}

// WriteTasks writes one <scene_id>.yaml per task into dir.
func WriteTasks(dir string, tasks []*Task) error {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	for _, t := range tasks {
		data, err := yaml.Marshal(t)
		if err != nil {
			return fmt.Errorf("failed to marshal task %s: %w", t.Scene.ID, err)
		}
		path, err := TaskFile(dir, t.Scene.ID)
		if err != nil {
			return err
		}
		if err := os.WriteFile(path, data, 0o600); err != nil {
			return fmt.Errorf("failed to write task %s: %w", t.Scene.ID, err)
		}
	}
	return nil
}

// LoadTask reads one task file.
func LoadTask(path string) (*Task, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("task %s not found: %w", path, err)
	}
	var t Task
	if err := yaml.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("failed to parse task %s: %w", path, err)
	}
	t.Source = path
	return &t, nil
}

// ListTaskFiles returns the YAML task files in dir sorted by name.
func ListTaskFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read config directory: %w", err)
	}
	var paths []string
	for _, e := range entries {
		if !e.Type().IsRegular() {
			continue
		}
		switch strings.ToLower(filepath.Ext(e.Name())) {
		case ".yaml", ".yml":
			paths = append(paths, filepath.Join(dir, e.Name()))
		}
	}
	slices.SortFunc(paths, func(a, b string) int {
		return models.CompareScenarioIDs(taskID(a), taskID(b))
	})
	return paths, nil
}

// LoadTasks reads every task file in dir. It stops at the first
// malformed file.
func LoadTasks(dir string) ([]*Task, error) {
	paths, err := ListTaskFiles(dir)
	if err != nil {
		return nil, err
	}
	tasks := make([]*Task, 0, len(paths))
	for _, p := range paths {
		t, err := LoadTask(p)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}
	return tasks, nil
}

func taskID(path string) models.ScenarioID {
	return models.ScenarioID(strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)))
}

func sortedNames[V any](m map[string]V) []string {
	names := make([]string, 0, len(m))
	for k := range m {
		names = append(names, k)
	}
	slices.Sort(names)
	return names
}

func withScenario(err error, id models.ScenarioID) error {
	if ce, ok := err.(*models.ConfigurationError); ok && ce.Scenario == "" {
		ce.Scenario = id
	}
	return err
}
