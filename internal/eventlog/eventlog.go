// Package eventlog records structured call events as JSONL files and fans
// them out to in-process subscribers (the /monitor websocket feed).
// Logging is best-effort everywhere: a failed event write must never fail
// the webhook that produced it.
package eventlog

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Type classifies an event in the call event stream.
type Type string

const (
	EventCallStarted   Type = "call_started"
	EventTranscript    Type = "transcript"
	EventIntent        Type = "intent"
	EventAssistantLine Type = "assistant_line"
	EventBackendError  Type = "backend_error"
	EventCallClosed    Type = "call_closed"
	EventReset         Type = "reset"
	EventDialPlaced    Type = "dial_placed"
)

// Event is a single structured event.
type Event struct {
	Type      Type           `json:"type"`
	Timestamp time.Time      `json:"ts"`
	CallID    string         `json:"call_id,omitempty"`
	Data      map[string]any `json:"data,omitempty"`
}

// Logger writes events to per-call JSONL files under a base directory and
// broadcasts them to subscribers. A nil *Logger is a valid no-op sink.
type Logger struct {
	dir string

	mu     sync.Mutex
	nextID int
	subs   map[int]chan Event
}

// DefaultDir returns the default events directory
// (~/.local/share/salesline/events).
func DefaultDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".local", "share", "salesline", "events"), nil
}

// New creates an event logger writing under dir.
func New(dir string) (*Logger, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create events directory %s: %w", dir, err)
	}
	return &Logger{dir: dir, subs: make(map[int]chan Event)}, nil
}

// Log records one event. The timestamp is filled in when zero. Events with
// a call id land in {call_id}.jsonl, the rest in service.jsonl. Files are
// opened append-only per event; call volume is far below the point where
// that matters, and it leaks no descriptors across long runs.
func (l *Logger) Log(ev Event) {
	if l == nil {
		return
	}
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now()
	}

	name := "service.jsonl"
	if ev.CallID != "" {
		name = ev.CallID + ".jsonl"
	}
	if data, err := json.Marshal(ev); err == nil {
		path := filepath.Join(l.dir, name)
		if f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644); err == nil {
			_, _ = f.Write(append(data, '\n'))
			_ = f.Close()
		}
	}

	l.mu.Lock()
	for _, ch := range l.subs {
		select {
		case ch <- ev:
		default:
			// Slow subscriber: drop rather than stall a call.
		}
	}
	l.mu.Unlock()
}

// Subscribe registers a live event feed. cancel must be called when the
// subscriber goes away.
func (l *Logger) Subscribe() (events <-chan Event, cancel func()) {
	if l == nil {
		ch := make(chan Event)
		return ch, func() {}
	}

	l.mu.Lock()
	id := l.nextID
	l.nextID++
	ch := make(chan Event, 64)
	l.subs[id] = ch
	l.mu.Unlock()

	return ch, func() {
		l.mu.Lock()
		if _, ok := l.subs[id]; ok {
			delete(l.subs, id)
			close(ch)
		}
		l.mu.Unlock()
	}
}
