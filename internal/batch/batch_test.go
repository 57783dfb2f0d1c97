package batch

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/nvandessel/sense/internal/chat"
	"github.com/nvandessel/sense/internal/dataset"
	"github.com/nvandessel/sense/internal/llm"
	"github.com/nvandessel/sense/internal/logging"
	"github.com/nvandessel/sense/internal/metric"
	"github.com/nvandessel/sense/internal/models"
	"github.com/nvandessel/sense/internal/simulation"
	"github.com/nvandessel/sense/internal/store"
)

var mockLLM = llm.ClientConfig{Provider: "mock", Model: "mock-model", Temperature: 0.7}

func newTask(id, template string) *dataset.Task {
	return &dataset.Task{
		Scene: models.Scenario{
			ID:         models.ScenarioID(id),
			TemplateID: template,
			MarkStyle:  models.MarkUpper,
			Goals: map[string][]models.Goal{
				"Alice": {{
					Goal: "Sell the car.",
					EvalQuestions: map[models.Dimension][]models.EvalQuestion{
						models.DimensionSelf:  {{Question: models.NewPrompt("Did you sell the car?"), Target: "Alice"}},
						models.DimensionJudge: {{Question: models.NewPrompt("Did Alice sell the car?")}},
					},
				}},
			},
		},
		GroupChat: chat.Config{MaxRound: 3, SpeakerSelectionMethod: chat.MethodRoundRobin},
		Agents: []dataset.AgentSpec{
			{Name: "Alice", PromptTemplate: "You are ${name}.", LLM: mockLLM},
			{Name: "Bob", PromptTemplate: "You are ${name}.", LLM: mockLLM},
		},
		JudgeAgents: []dataset.JudgeSpec{
			{Name: "judge_mock", PromptTemplate: "Judge.", LLM: mockLLM},
		},
	}
}

func newRunner(t *testing.T, rs store.RecordStore) *Runner {
	t.Helper()
	return &Runner{
		Sim: &simulation.Runner{
			Store:   rs,
			Factory: llm.NewFactory(nil),
			Env:     simulation.Env{Seed: 7},
		},
		Workers: 2,
	}
}

func newStore(t *testing.T) store.RecordStore {
	t.Helper()
	rs, err := store.NewFileStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { rs.Close() })
	return rs
}

func TestRunner_Run(t *testing.T) {
	rs := newStore(t)
	sources := []TaskSource{
		TaskSources([]*dataset.Task{newTask("2", "t1")})[0],
		{Name: "broken.yaml", Load: func() (*dataset.Task, error) { return nil, errors.New("bad yaml") }},
		{Name: "panics", Load: func() (*dataset.Task, error) { panic("boom") }},
		TaskSources([]*dataset.Task{newTask("1", "t1")})[0],
	}

	report, err := newRunner(t, rs).Run(context.Background(), sources)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if report.RunID == "" {
		t.Error("expected a generated run id")
	}
	if len(report.Records) != 2 || report.Records[0].ScenarioID != "2" || report.Records[1].ScenarioID != "1" {
		t.Fatalf("records = %v, want scenarios 2 then 1", report.Records)
	}
	for _, rec := range report.Records {
		if rec.RunID != report.RunID {
			t.Errorf("record %s run id = %q, want %q", rec.ScenarioID, rec.RunID, report.RunID)
		}
	}

	if len(report.Failures) != 2 {
		t.Fatalf("failures = %v, want 2", report.Failures)
	}
	if report.Failures[0].Scenario != "broken.yaml" || !strings.Contains(report.Failures[0].Error(), "bad yaml") {
		t.Errorf("failure 0 = %v", report.Failures[0])
	}
	if report.Failures[1].Scenario != "panics" || !strings.Contains(report.Failures[1].Error(), "panic: boom") {
		t.Errorf("failure 1 = %v", report.Failures[1])
	}

	if s := report.Summary; s.Scenarios != 2 || s.Self == nil || *s.Self != 1 || s.Judges["judge_mock"] != 1 {
		t.Errorf("summary = %+v", s)
	}
	if len(report.Templates.Templates) != 1 || report.Templates.Templates[0].Scenarios != 2 {
		t.Errorf("templates = %+v", report.Templates)
	}

	if ok, _ := rs.Exists(context.Background(), "1"); !ok {
		t.Error("record 1 not stored")
	}
}

func TestRunner_RunUsesStoredRecords(t *testing.T) {
	rs := newStore(t)
	tasks := []*dataset.Task{newTask("1", "a"), newTask("2", "b")}

	first, err := newRunner(t, rs).Run(context.Background(), TaskSources(tasks))
	if err != nil {
		t.Fatal(err)
	}
	if first.Cached != 0 {
		t.Errorf("first run cached = %d, want 0", first.Cached)
	}

	r := newRunner(t, rs)
	r.RunID = "second"
	second, err := r.Run(context.Background(), TaskSources(tasks))
	if err != nil {
		t.Fatal(err)
	}
	if second.Cached != 2 || len(second.Records) != 2 {
		t.Errorf("second run cached = %d records = %d, want 2/2", second.Cached, len(second.Records))
	}
	if second.Records[0].RunID != first.RunID {
		t.Errorf("cached record run id = %q, want original %q", second.Records[0].RunID, first.RunID)
	}
}

func TestRunner_RunCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report, err := newRunner(t, newStore(t)).Run(ctx, TaskSources([]*dataset.Task{newTask("1", "")}))
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Run() error = %v, want context.Canceled", err)
	}
	if report == nil || len(report.Records) != 0 || len(report.Failures) != 1 {
		t.Errorf("report = %+v", report)
	}
}

func TestFileSources(t *testing.T) {
	dir := t.TempDir()
	if err := dataset.WriteTasks(dir, []*dataset.Task{newTask("5", "")}); err != nil {
		t.Fatal(err)
	}
	path, err := dataset.TaskFile(dir, "5")
	if err != nil {
		t.Fatal(err)
	}
	paths := []string{path, filepath.Join(dir, "missing.yaml")}

	report, err := newRunner(t, newStore(t)).Run(context.Background(), FileSources(paths))
	if err != nil {
		t.Fatal(err)
	}
	if len(report.Records) != 1 || report.Records[0].ScenarioID != "5" {
		t.Errorf("records = %v", report.Records)
	}
	if len(report.Failures) != 1 || report.Failures[0].Scenario != paths[1] {
		t.Errorf("failures = %v", report.Failures)
	}
}

func fp(x float64) *float64 { return &x }

func TestSceneLine(t *testing.T) {
	tests := []struct {
		name  string
		score metric.ScenarioScore
		want  string
	}{
		{
			name:  "all dimensions",
			score: metric.ScenarioScore{ScenarioID: "12", Self: fp(1), Others: fp(2.0 / 3), Judges: map[string]float64{"judge_b": 0, "judge_a": 0.5}, Info: fp(0.25)},
			want:  "Scene 12 | goal-self: 1 goal-others: 0.6667 goal-judge: {judge_a: 0.5, judge_b: 0} | info: 0.25",
		},
		{
			name:  "nothing defined",
			score: metric.ScenarioScore{ScenarioID: "3"},
			want:  "Scene 3 | goal-self: NONE goal-others: NONE goal-judge: {} | info: NONE",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SceneLine(tt.score); got != tt.want {
				t.Errorf("SceneLine() =\n%s\nwant\n%s", got, tt.want)
			}
		})
	}
}

func TestTemplateLine(t *testing.T) {
	scores := []metric.ScenarioScore{
		{ScenarioID: "1", TemplateID: "3", Self: fp(1), Judges: map[string]float64{"judge_a": 1}, Info: fp(1)},
		{ScenarioID: "2", TemplateID: "3", Self: fp(1), Judges: map[string]float64{"judge_a": 0}, Info: fp(0)},
		{ScenarioID: "4", TemplateID: "7", Others: fp(0.5)},
	}
	rep := metric.AggregateTemplates(scores)
	want := []string{
		"Template 3 (2 scenarios) | goal-self: mean: 1 std: 0 goal-others: mean: NONE std: NONE goal-judge: mean: {judge_a: 0.5} std: {judge_a: 0.7071} | info: mean: 0.5 std: 0.7071",
		"Template 7 (1 scenarios) | goal-self: mean: NONE std: NONE goal-others: mean: 0.5 std: NONE goal-judge: mean: {} std: {} | info: mean: NONE std: NONE",
	}
	if len(rep.Templates) != len(want) {
		t.Fatalf("templates = %d, want %d", len(rep.Templates), len(want))
	}
	for i, ts := range rep.Templates {
		if got := TemplateLine(ts); got != want[i] {
			t.Errorf("TemplateLine() =\n%s\nwant\n%s", got, want[i])
		}
	}

	lines := (&Report{Templates: rep}).SummaryLines()
	if got := lines[len(lines)-1]; got != want[1] {
		t.Errorf("last summary line = %q", got)
	}
}

func TestReport_Log(t *testing.T) {
	scores := []metric.ScenarioScore{
		{ScenarioID: "1", TemplateID: "a", Self: fp(1)},
		{ScenarioID: "2", TemplateID: "a", Self: fp(0)},
	}
	r := &Report{
		RunID:     "run-1",
		Scores:    scores,
		Failures:  []*models.ScenarioExecutionError{{Scenario: "3", Err: errors.New("x")}},
		Summary:   metric.Summarize(scores),
		Templates: metric.AggregateTemplates(scores),
	}

	var buf bytes.Buffer
	r.Log(logging.NewLogger("info", &buf))
	out := buf.String()

	for _, want := range []string{
		"some scenarios failed",
		"===== Results of Scenarios =====",
		"goal completion at self dim: 0.5",
		"info reasoning: NONE",
		"# of templates: 1",
		"self dim: mean: 0.5 std: 0.7071",
		"Template a (2 scenarios) | goal-self: mean: 0.5 std: 0.7071 goal-others: mean: NONE std: NONE goal-judge: mean: {} std: {} | info: mean: NONE std: NONE",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("log output missing %q:\n%s", want, out)
		}
	}
}
