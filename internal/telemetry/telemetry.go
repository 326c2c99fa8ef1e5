// Package telemetry writes privacy-preserving JSONL events about agent runs.
package telemetry

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Config controls the event sink.
type Config struct {
	Enabled bool
	// Dir receives events.jsonl; created on first emission.
	Dir string
}

// Sink appends one JSON object per line to {Dir}/events.jsonl.
// A nil or disabled Sink drops every event. Safe for concurrent use.
type Sink struct {
	cfg    Config
	mu     sync.Mutex
	stderr io.Writer
}

// New returns a Sink for cfg.
func New(cfg Config) *Sink {
	if cfg.Dir == "" {
		cfg.Dir = ".tutor"
	}
	return &Sink{cfg: cfg, stderr: os.Stderr}
}

// Enabled reports whether events are written.
func (s *Sink) Enabled() bool {
	return s != nil && s.cfg.Enabled
}

// Path returns the events file location.
func (s *Sink) Path() string {
	if s == nil {
		return ""
	}
	return filepath.Join(s.cfg.Dir, "events.jsonl")
}

// Emit writes a single JSON line when the sink is enabled.
// It augments fields with RFC3339Nano time and the event name.
func (s *Sink) Emit(name string, fields map[string]any) {
	if !s.Enabled() {
		return
	}

	// Make a shallow copy so callers' maps aren't mutated.
	m := make(map[string]any, len(fields)+2)
	for k, v := range fields {
		m[k] = v
	}
	m["time"] = time.Now().UTC().Format(time.RFC3339Nano)
	m["event"] = name

	b, err := json.Marshal(m)
	if err != nil {
		fmt.Fprintf(s.stderr, "telemetry: marshal: %v\n", err)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(s.cfg.Dir, 0o755); err != nil {
		fmt.Fprintf(s.stderr, "telemetry: mkdir %s: %v\n", s.cfg.Dir, err)
		return
	}

	path := s.Path()
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		fmt.Fprintf(s.stderr, "telemetry: open %s: %v\n", path, err)
		return
	}
	defer f.Close()

	if _, err := f.Write(append(b, '\n')); err != nil {
		fmt.Fprintf(s.stderr, "telemetry: write %s: %v\n", path, err)
	}
}
