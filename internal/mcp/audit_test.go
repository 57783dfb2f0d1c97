package mcp

import (
	"bufio"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func readAudit(t *testing.T, dir string) []AuditEntry {
	t.Helper()
	f, err := os.Open(filepath.Join(dir, AuditFile))
	if err != nil {
		t.Fatalf("opening audit log: %v", err)
	}
	defer f.Close()

	var entries []AuditEntry
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		var e AuditEntry
		if err := json.Unmarshal(sc.Bytes(), &e); err != nil {
			t.Fatalf("parsing %q: %v", sc.Text(), err)
		}
		entries = append(entries, e)
	}
	return entries
}

func TestAuditLogger_Log(t *testing.T) {
	dir := t.TempDir()
	a := NewAuditLogger(dir)
	if a == nil {
		t.Fatal("NewAuditLogger() = nil")
	}
	a.Log(AuditEntry{Timestamp: time.Now(), Tool: "sense_get_score", Status: "success"})
	a.Log(AuditEntry{Timestamp: time.Now(), Tool: "sense_list_scores", Status: "error", Error: "boom"})
	if err := a.Close(); err != nil {
		t.Fatal(err)
	}
	a.Log(AuditEntry{Tool: "after_close"})

	entries := readAudit(t, dir)
	if len(entries) != 2 || entries[0].Tool != "sense_get_score" || entries[1].Error != "boom" {
		t.Errorf("entries = %+v", entries)
	}

	info, err := os.Stat(filepath.Join(dir, AuditFile))
	if err != nil {
		t.Fatal(err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Errorf("permissions = %o, want 0600", perm)
	}
}

func TestAuditLogger_Nil(t *testing.T) {
	if a := NewAuditLogger(""); a != nil {
		t.Fatal("expected nil logger for empty dir")
	}
	var a *AuditLogger
	a.Log(AuditEntry{Tool: "x"})
	if err := a.Close(); err != nil {
		t.Errorf("Close() on nil = %v", err)
	}
}

func TestSanitizeToolParams(t *testing.T) {
	tests := []struct {
		name   string
		params map[string]any
		want   map[string]string
	}{
		{"nil", nil, nil},
		{
			name:   "safe values kept",
			params: map[string]any{"template": "3", "limit": 5},
			want:   map[string]string{"template": "3", "limit": "5", "_param_count": "2"},
		},
		{
			name:   "zero values skipped",
			params: map[string]any{"template": "", "transcript": false, "scenario_id": "12"},
			want:   map[string]string{"scenario_id": "12", "_param_count": "1"},
		},
		{
			name:   "unknown keys dropped but counted",
			params: map[string]any{"api_key": "secret"},
			want:   map[string]string{"_param_count": "1"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := sanitizeToolParams(tt.params)
			if len(got) != len(tt.want) {
				t.Fatalf("sanitizeToolParams() = %v, want %v", got, tt.want)
			}
			for k, v := range tt.want {
				if got[k] != v {
					t.Errorf("%s = %q, want %q", k, got[k], v)
				}
			}
		})
	}
}

func TestAuditTool_RecordsHandlerCalls(t *testing.T) {
	s, dir := setupTestServer(t)
	s.auditTool("sense_get_score", time.Now(), errors.New("scenario not found: 9"), map[string]string{"scenario_id": "9"})
	s.auditLogger.Close()

	entries := readAudit(t, dir)
	if len(entries) != 1 || entries[0].Status != "error" || entries[0].Params["scenario_id"] != "9" {
		t.Errorf("entries = %+v", entries)
	}
}
