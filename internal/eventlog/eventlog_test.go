package eventlog

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLog_WritesPerCallJSONL(t *testing.T) {
	dir := t.TempDir()
	l, err := New(dir)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	l.Log(Event{Type: EventCallStarted, CallID: "CA1"})
	l.Log(Event{Type: EventAssistantLine, CallID: "CA1", Data: map[string]any{"text": "hello"}})
	l.Log(Event{Type: EventReset})

	f, err := os.Open(filepath.Join(dir, "CA1.jsonl"))
	if err != nil {
		t.Fatalf("open call log: %v", err)
	}
	defer f.Close()

	var events []Event
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		var ev Event
		if err := json.Unmarshal(sc.Bytes(), &ev); err != nil {
			t.Fatalf("bad JSONL line: %v", err)
		}
		events = append(events, ev)
	}
	if len(events) != 2 {
		t.Fatalf("got %d events in call log, want 2", len(events))
	}
	if events[0].Type != EventCallStarted || events[1].Type != EventAssistantLine {
		t.Errorf("unexpected event order: %v, %v", events[0].Type, events[1].Type)
	}
	if events[0].Timestamp.IsZero() {
		t.Error("timestamp not filled in")
	}

	if _, err := os.Stat(filepath.Join(dir, "service.jsonl")); err != nil {
		t.Errorf("service log missing: %v", err)
	}
}

func TestSubscribe(t *testing.T) {
	l, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	events, cancel := l.Subscribe()
	defer cancel()

	l.Log(Event{Type: EventTranscript, CallID: "CA2", Data: map[string]any{"text": "hi"}})

	select {
	case ev := <-events:
		if ev.Type != EventTranscript || ev.CallID != "CA2" {
			t.Errorf("unexpected event: %+v", ev)
		}
	case <-time.After(time.Second):
		t.Fatal("subscriber never received event")
	}

	cancel()
	// Cancel twice must be safe.
	cancel()
}

func TestNilLoggerIsNoop(t *testing.T) {
	var l *Logger
	l.Log(Event{Type: EventCallStarted, CallID: "CA3"})

	events, cancel := l.Subscribe()
	defer cancel()
	select {
	case <-events:
		t.Error("nil logger delivered an event")
	default:
	}
}
