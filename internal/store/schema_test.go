package store

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
)

func TestInitSchema_FreshAndReopen(t *testing.T) {
	dir := t.TempDir()

	s, err := NewSQLiteStore(dir)
	if err != nil {
		t.Fatalf("NewSQLiteStore() error = %v", err)
	}
	if s.Path() != filepath.Join(dir, DBFile) {
		t.Errorf("Path() = %s", s.Path())
	}
	ctx := context.Background()
	v, err := getSchemaVersion(ctx, s.db)
	if err != nil || v != SchemaVersion {
		t.Errorf("schema version = %d, %v; want %d", v, err, SchemaVersion)
	}
	if err := s.Put(ctx, testRecord("1", "t")); err != nil {
		t.Fatal(err)
	}
	s.Close()

	s, err = NewSQLiteStore(dir)
	if err != nil {
		t.Fatalf("reopen error = %v", err)
	}
	defer s.Close()
	if ok, _ := s.Exists(ctx, "1"); !ok {
		t.Error("record lost after reopen")
	}
	if err := ValidateIntegrity(ctx, s.db); err != nil {
		t.Errorf("ValidateIntegrity() = %v", err)
	}
}

func TestInitSchema_NewerVersionRejected(t *testing.T) {
	dir := t.TempDir()
	s, err := NewSQLiteStore(dir)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := s.db.Exec(`INSERT INTO schema_version (version, applied_at) VALUES (?, datetime('now'))`, SchemaVersion+1); err != nil {
		t.Fatal(err)
	}
	s.Close()

	db, err := sql.Open("sqlite", filepath.Join(dir, DBFile))
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()
	if err := InitSchema(context.Background(), db); err == nil {
		t.Error("InitSchema() should reject a newer schema version")
	}
}

func TestSQLiteStore_JudgeScoresCascade(t *testing.T) {
	s, err := NewSQLiteStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()
	ctx := context.Background()

	rec := testRecord("1", "t")
	if err := s.Put(ctx, rec); err != nil {
		t.Fatal(err)
	}
	rec.GoalMetrics.JudgeNames = []string{"judge_a"}
	rec.GoalMetrics.Judges = map[string]float64{"judge_a": 1}
	if err := s.Put(ctx, rec); err != nil {
		t.Fatal(err)
	}

	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM judge_scores WHERE scenario_id = '1'`).Scan(&n); err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Errorf("judge_scores rows = %d, want 1", n)
	}
}
