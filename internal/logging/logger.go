// Package logging provides leveled logging and event tracing for sense.
// It offers two complementary outputs:
//   - A leveled slog.Logger for stderr (operational output)
//   - An EventLog of JSONL dialogue and interview events (<output_dir>/events.jsonl)
package logging

import (
	"encoding/json"
	"io"
	"log/slog"
	"maps"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// LevelTrace is a custom slog level below Debug. At this level full
// message and answer text is included in events.
const LevelTrace = slog.LevelDebug - 4

// EventFile is the name of the JSONL event log inside the output directory.
const EventFile = "events.jsonl"

// ParseLevel maps a level name to a slog.Level.
// Supported values: "info", "debug", "trace" (case-insensitive).
// Unknown values default to info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "trace":
		return LevelTrace
	default:
		return slog.LevelInfo
	}
}

// NewLogger creates a leveled text logger writing to w.
func NewLogger(level string, w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: ParseLevel(level),
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.LevelKey {
				if lvl, ok := a.Value.Any().(slog.Level); ok && lvl == LevelTrace {
					a.Value = slog.StringValue("TRACE")
				}
			}
			return a
		},
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// EventLog appends structured simulation events to a JSONL file.
// It is safe for concurrent use. A nil EventLog is valid and drops
// every event.
type EventLog struct {
	mu          sync.Mutex
	file        *os.File
	withContent bool
}

// NewEventLog opens dir/events.jsonl for append. At "info" level it
// returns nil and creates nothing. Message text is only recorded at
// "trace" level. A file that cannot be opened also yields nil.
func NewEventLog(dir, level string) *EventLog {
	lvl := ParseLevel(level)
	if lvl >= slog.LevelInfo {
		return nil
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil
	}
	f, err := os.OpenFile(filepath.Join(dir, EventFile), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
	if err != nil {
		return nil
	}
	return &EventLog{file: f, withContent: lvl <= LevelTrace}
}

// Log writes one event. A "time" field is added; the caller's map is
// not mutated.
func (l *EventLog) Log(event map[string]any) {
	if l == nil {
		return
	}
	entry := make(map[string]any, len(event)+1)
	maps.Copy(entry, event)
	entry["time"] = time.Now().UTC().Format(time.RFC3339Nano)

	data, err := json.Marshal(entry)
	if err != nil {
		return
	}
	data = append(data, '\n')

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file != nil {
		_, _ = l.file.Write(data)
	}
}

// Turn records one dialogue message.
func (l *EventLog) Turn(scenario string, round int, speaker, content string) {
	if l == nil {
		return
	}
	ev := map[string]any{
		"event":    "turn",
		"scenario": scenario,
		"round":    round,
		"speaker":  speaker,
		"length":   len(content),
	}
	if l.withContent {
		ev["content"] = content
	}
	l.Log(ev)
}

// Interview records one evaluation question and its answer.
func (l *EventLog) Interview(scenario, actor, dimension, question, answer string) {
	if l == nil {
		return
	}
	ev := map[string]any{
		"event":     "interview",
		"scenario":  scenario,
		"actor":     actor,
		"dimension": dimension,
	}
	if l.withContent {
		ev["question"] = question
		ev["answer"] = answer
	}
	l.Log(ev)
}

// Close closes the underlying file.
func (l *EventLog) Close() error {
	if l == nil {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file == nil {
		return nil
	}
	err := l.file.Close()
	l.file = nil
	return err
}
