package store

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/nvandessel/sense/internal/models"
)

func f(x float64) *float64 { return &x }

func testRecord(id, template string) *models.ScoreRecord {
	return &models.ScoreRecord{
		ScenarioID: models.ScenarioID(id),
		TemplateID: template,
		RunID:      "run-1",
		CreatedAt:  time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
		ChatHistory: models.Transcript{
			{Name: "Alice", Role: models.RoleUser, Content: "Hi, there!"},
			{Name: "Bob", Role: models.RoleAssistant, Content: "Hello Alice."},
		},
		GoalAnswers: models.GoalAnswers{
			"Alice": {"sell the car": {models.DimensionSelf: {"Yes"}}},
		},
		GoalMetrics: &models.GoalMetrics{
			Actors:     map[string]*models.ActorGoalMetrics{},
			JudgeNames: []string{"judge_a", "judge_b"},
			Self:       f(1),
			Judges:     map[string]float64{"judge_a": 1, "judge_b": 0},
			JudgeAvg:   f(0.5),
		},
		InfoAnswers: map[string][]string{"Bob": {"(A)"}},
		InfoMetrics: &models.InfoMetrics{Actors: map[string]float64{"Bob": 1}, Avg: 1},
	}
}

func openBackends(t *testing.T) map[string]RecordStore {
	t.Helper()
	stores := make(map[string]RecordStore)
	for _, backend := range []string{BackendFile, BackendSQLite} {
		s, err := Open(backend, t.TempDir())
		if err != nil {
			t.Fatalf("Open(%s) error = %v", backend, err)
		}
		t.Cleanup(func() { s.Close() })
		stores[backend] = s
	}
	return stores
}

func TestRecordStore_Contract(t *testing.T) {
	for backend, s := range openBackends(t) {
		t.Run(backend, func(t *testing.T) {
			ctx := context.Background()

			if _, err := s.Get(ctx, "1"); !errors.Is(err, ErrNotFound) {
				t.Errorf("Get() on empty store error = %v, want ErrNotFound", err)
			}
			if ok, err := s.Exists(ctx, "1"); err != nil || ok {
				t.Errorf("Exists() = %v, %v; want false", ok, err)
			}

			for _, id := range []string{"10", "2", "scene-b", "1"} {
				if err := s.Put(ctx, testRecord(id, "t1")); err != nil {
					t.Fatalf("Put(%s) error = %v", id, err)
				}
			}

			if ok, err := s.Exists(ctx, "2"); err != nil || !ok {
				t.Errorf("Exists(2) = %v, %v; want true", ok, err)
			}

			got, err := s.Get(ctx, "2")
			if err != nil {
				t.Fatalf("Get(2) error = %v", err)
			}
			if got.TemplateID != "t1" || len(got.ChatHistory) != 2 || got.ChatHistory[0].Content != "Hi, there!" {
				t.Errorf("Get(2) = %+v", got)
			}
			if got.GoalMetrics == nil || *got.GoalMetrics.JudgeAvg != 0.5 {
				t.Errorf("GoalMetrics = %+v", got.GoalMetrics)
			}

			recs, err := s.List(ctx)
			if err != nil {
				t.Fatalf("List() error = %v", err)
			}
			var ids []string
			for _, r := range recs {
				ids = append(ids, r.ScenarioID.String())
			}
			want := []string{"1", "2", "10", "scene-b"}
			if len(ids) != len(want) {
				t.Fatalf("List() ids = %v, want %v", ids, want)
			}
			for i := range want {
				if ids[i] != want[i] {
					t.Errorf("List() ids = %v, want %v", ids, want)
					break
				}
			}
		})
	}
}

func TestRecordStore_PutReplaces(t *testing.T) {
	for backend, s := range openBackends(t) {
		t.Run(backend, func(t *testing.T) {
			ctx := context.Background()
			if err := s.Put(ctx, testRecord("5", "old")); err != nil {
				t.Fatal(err)
			}
			if err := s.Put(ctx, testRecord("5", "new")); err != nil {
				t.Fatal(err)
			}
			got, err := s.Get(ctx, "5")
			if err != nil {
				t.Fatal(err)
			}
			if got.TemplateID != "new" {
				t.Errorf("TemplateID = %q, want new", got.TemplateID)
			}
			recs, _ := s.List(ctx)
			if len(recs) != 1 {
				t.Errorf("List() returned %d records, want 1", len(recs))
			}
		})
	}
}

func TestRecordStore_PutWithoutID(t *testing.T) {
	for backend, s := range openBackends(t) {
		t.Run(backend, func(t *testing.T) {
			if err := s.Put(context.Background(), &models.ScoreRecord{}); err == nil {
				t.Error("Put() without scenario id should fail")
			}
		})
	}
}

func TestScores(t *testing.T) {
	for backend, s := range openBackends(t) {
		t.Run(backend, func(t *testing.T) {
			ctx := context.Background()
			noInfo := testRecord("3", "t2")
			noInfo.InfoMetrics = nil
			for _, rec := range []*models.ScoreRecord{testRecord("7", "t1"), noInfo} {
				if err := s.Put(ctx, rec); err != nil {
					t.Fatal(err)
				}
			}

			scores, err := Scores(ctx, s)
			if err != nil {
				t.Fatalf("Scores() error = %v", err)
			}
			if len(scores) != 2 || scores[0].ScenarioID != "3" || scores[1].ScenarioID != "7" {
				t.Fatalf("Scores() = %+v", scores)
			}
			if scores[0].Info != nil {
				t.Errorf("scene 3 Info = %v, want nil", *scores[0].Info)
			}
			if scores[1].Info == nil || *scores[1].Info != 1 {
				t.Errorf("scene 7 Info = %v, want 1", scores[1].Info)
			}
			if scores[1].Self == nil || *scores[1].Self != 1 || scores[1].Others != nil {
				t.Errorf("scene 7 Self/Others = %v/%v", scores[1].Self, scores[1].Others)
			}
			if scores[1].Judges["judge_a"] != 1 || scores[1].Judges["judge_b"] != 0 || len(scores[1].Judges) != 2 {
				t.Errorf("scene 7 Judges = %v", scores[1].Judges)
			}
		})
	}
}

func TestOpen_UnknownBackend(t *testing.T) {
	if _, err := Open("redis", t.TempDir()); err == nil {
		t.Error("Open(redis) should fail")
	}
}

func TestFileStore_LayoutAndTempFiles(t *testing.T) {
	dir := t.TempDir()
	s, err := NewFileStore(dir)
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	if err := s.Put(ctx, testRecord("42", "")); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(filepath.Join(dir, "42.json")); err != nil {
		t.Errorf("expected 42.json: %v", err)
	}

	// Leftover temp files and foreign files are not records
	os.WriteFile(filepath.Join(dir, ".43-123.tmp"), []byte("{"), 0o600)
	os.WriteFile(filepath.Join(dir, "events.jsonl"), []byte("{}\n"), 0o600)

	entries, _ := os.ReadDir(dir)
	for _, e := range entries {
		if filepath.Ext(e.Name()) == ".tmp" && e.Name() != ".43-123.tmp" {
			t.Errorf("Put() left temp file %s", e.Name())
		}
	}

	recs, err := s.List(ctx)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(recs) != 1 || recs[0].ScenarioID != "42" {
		t.Errorf("List() = %v", recs)
	}
}

func TestFileStore_IDFromFileName(t *testing.T) {
	dir := t.TempDir()
	s, _ := NewFileStore(dir)
	os.WriteFile(filepath.Join(dir, "9.json"), []byte(`{"chat_history": []}`), 0o600)

	rec, err := s.Get(context.Background(), "9")
	if err != nil {
		t.Fatal(err)
	}
	if rec.ScenarioID != "9" {
		t.Errorf("ScenarioID = %q, want 9", rec.ScenarioID)
	}
}

func TestFileStore_CorruptRecord(t *testing.T) {
	dir := t.TempDir()
	s, _ := NewFileStore(dir)
	os.WriteFile(filepath.Join(dir, "1.json"), []byte("not json"), 0o600)

	if _, err := s.Get(context.Background(), "1"); err == nil || errors.Is(err, ErrNotFound) {
		t.Errorf("Get() error = %v, want parse error", err)
	}
}

func TestFileStore_RejectsEscapingIDs(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	s, err := NewFileStore(dir)
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()

	for _, id := range []models.ScenarioID{"../secret", "a/b", `a\b`} {
		if _, err := s.Get(ctx, id); err == nil || errors.Is(err, ErrNotFound) {
			t.Errorf("Get(%q) error = %v, want invalid id", id, err)
		}
		if _, err := s.Exists(ctx, id); err == nil {
			t.Errorf("Exists(%q) should fail", id)
		}
		if err := s.Put(ctx, testRecord(id.String(), "")); err == nil {
			t.Errorf("Put(%q) should fail", id)
		}
	}
	if _, err := os.Stat(filepath.Join(filepath.Dir(dir), "secret.json")); err == nil {
		t.Error("Put() wrote outside the output directory")
	}
}
