package logging

import (
	"bufio"
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  slog.Level
	}{
		{"info", "info", slog.LevelInfo},
		{"debug", "debug", slog.LevelDebug},
		{"trace", "trace", LevelTrace},
		{"uppercase TRACE", "TRACE", LevelTrace},
		{"padded debug", " debug ", slog.LevelDebug},
		{"unknown defaults to info", "verbose", slog.LevelInfo},
		{"empty defaults to info", "", slog.LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ParseLevel(tt.input); got != tt.want {
				t.Errorf("ParseLevel(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestNewLogger_LevelFiltering(t *testing.T) {
	tests := []struct {
		level      string
		logAtTrace bool
		logAtDebug bool
	}{
		{"info", false, false},
		{"debug", false, true},
		{"trace", true, true},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			var buf bytes.Buffer
			logger := NewLogger(tt.level, &buf)

			logger.Log(t.Context(), LevelTrace, "trace message")
			if got := strings.Contains(buf.String(), "trace message"); got != tt.logAtTrace {
				t.Errorf("trace visible = %v, want %v", got, tt.logAtTrace)
			}
			if tt.logAtTrace && !strings.Contains(buf.String(), "level=TRACE") {
				t.Errorf("trace level not labelled: %q", buf.String())
			}

			buf.Reset()
			logger.Debug("debug message")
			if got := strings.Contains(buf.String(), "debug message"); got != tt.logAtDebug {
				t.Errorf("debug visible = %v, want %v", got, tt.logAtDebug)
			}
		})
	}
}

func readEvents(t *testing.T, dir string) []map[string]any {
	t.Helper()
	f, err := os.Open(filepath.Join(dir, EventFile))
	if err != nil {
		t.Fatalf("opening event log: %v", err)
	}
	defer f.Close()

	var events []map[string]any
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		var ev map[string]any
		if err := json.Unmarshal(sc.Bytes(), &ev); err != nil {
			t.Fatalf("parsing event %q: %v", sc.Text(), err)
		}
		events = append(events, ev)
	}
	return events
}

func TestNewEventLog_InfoLevel(t *testing.T) {
	dir := t.TempDir()
	l := NewEventLog(dir, "info")
	if l != nil {
		t.Fatal("expected nil EventLog at info level")
	}

	l.Turn("1", 0, "Alice", "Hi, there!")
	l.Interview("1", "Alice", "self", "q", "Yes")
	if err := l.Close(); err != nil {
		t.Errorf("Close() on nil = %v", err)
	}

	if _, err := os.Stat(filepath.Join(dir, EventFile)); err == nil {
		t.Error("event log should not exist at info level")
	}
}

func TestEventLog_DebugOmitsContent(t *testing.T) {
	dir := t.TempDir()
	l := NewEventLog(dir, "debug")
	if l == nil {
		t.Fatal("expected EventLog at debug level")
	}

	l.Turn("7", 2, "Bob", "secret plan")
	l.Interview("7", "Bob", "judge", "Did Bob win?", "Yes")
	l.Close()

	events := readEvents(t, dir)
	if len(events) != 2 {
		t.Fatalf("got %d events, want 2", len(events))
	}
	if events[0]["event"] != "turn" || events[0]["speaker"] != "Bob" || events[0]["round"] != 2.0 {
		t.Errorf("turn event = %v", events[0])
	}
	if _, ok := events[0]["content"]; ok {
		t.Error("content should be omitted at debug level")
	}
	if _, ok := events[1]["answer"]; ok {
		t.Error("answer should be omitted at debug level")
	}
	if _, ok := events[1]["time"]; !ok {
		t.Error("expected time field")
	}
}

func TestEventLog_TraceIncludesContent(t *testing.T) {
	dir := t.TempDir()
	l := NewEventLog(dir, "trace")
	l.Interview("7", "Alice", "self", "Did you win?", "Yes")
	l.Close()

	events := readEvents(t, dir)
	if len(events) != 1 || events[0]["answer"] != "Yes" || events[0]["question"] != "Did you win?" {
		t.Errorf("events = %v", events)
	}
}

func TestEventLog_DoesNotMutateCallerMap(t *testing.T) {
	l := NewEventLog(t.TempDir(), "debug")
	defer l.Close()

	event := map[string]any{"event": "x"}
	l.Log(event)
	if _, ok := event["time"]; ok {
		t.Error("Log() mutated the caller's map")
	}
}

func TestEventLog_LogAfterClose(t *testing.T) {
	l := NewEventLog(t.TempDir(), "debug")
	l.Close()
	l.Log(map[string]any{"event": "after_close"})
	if err := l.Close(); err != nil {
		t.Errorf("second Close() = %v", err)
	}
}

func TestEventLog_CreatesDirWithPrivateFile(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out", "run")
	l := NewEventLog(dir, "debug")
	if l == nil {
		t.Fatal("expected EventLog when dir needs creation")
	}
	l.Log(map[string]any{"event": "x"})
	l.Close()

	info, err := os.Stat(filepath.Join(dir, EventFile))
	if err != nil {
		t.Fatal(err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Errorf("permissions = %o, want 0600", perm)
	}
}
