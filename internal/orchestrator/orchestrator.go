// Package orchestrator drives the per-call conversation state machine.
// Each webhook invocation is stateless; the orchestrator rebuilds context
// from the session store, consults the intent classifier, directs the
// composer, calls the generation backend, and writes back exactly one
// atomic turn update per completed exchange.
package orchestrator

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"

	"github.com/salesline-ai/salesline/internal/compose"
	"github.com/salesline-ai/salesline/internal/eventlog"
	"github.com/salesline-ai/salesline/internal/intent"
	"github.com/salesline-ai/salesline/internal/profile"
	"github.com/salesline-ai/salesline/internal/provider"
	"github.com/salesline-ai/salesline/internal/session"
)

// Fixed lines spoken when the generation backend is unavailable or a call
// is already closed. The caller on the phone always hears a coherent line,
// never a raw error.
const (
	// FallbackReply is spoken mid-conversation when generation fails;
	// the session is left untouched so a redelivered webhook can succeed.
	FallbackReply = "I'm sorry, I couldn't generate a response at this time. Please try again."

	// FallbackClosing is spoken when generation fails on the closing turn.
	FallbackClosing = "Thank you for your time today. If you'd like to try our products, " +
		"we're offering a special 15% discount for new customers. Just visit our website " +
		"or call us back when you're ready. Have a wonderful day!"

	// ClosedAck answers any event arriving after the session closed.
	ClosedAck = "Thanks again for your time today. Goodbye!"
)

// DefaultBackendTimeout bounds one generation round trip. A backend call
// that blows the deadline is handled as a failure, never a partial response.
const DefaultBackendTimeout = 20 * time.Second

// Result is the outbound directive for the webhook adapter.
type Result struct {
	// Speak is the next line to render as speech.
	Speak string

	// ContinueListening is false only when the call must hang up.
	ContinueListening bool
}

// Deps wires the orchestrator's collaborators. Everything is explicit
// construction-time state; the orchestrator reads no ambient configuration.
type Deps struct {
	Store      session.Store
	Classifier intent.Classifier
	Composer   *compose.Composer
	Backend    provider.Completer
	Profiles   profile.Lookup

	// Params are the sampling parameters for every backend call.
	Params provider.Params

	// BackendTimeout bounds each backend call; zero means DefaultBackendTimeout.
	BackendTimeout time.Duration

	// Events receives structured call events; nil disables event logging.
	Events *eventlog.Logger

	// Log defaults to the package-level charmbracelet logger.
	Log *log.Logger
}

// Orchestrator implements the NEW → ACTIVE → CLOSED call state machine.
type Orchestrator struct {
	store      session.Store
	classifier intent.Classifier
	composer   *compose.Composer
	backend    provider.Completer
	profiles   profile.Lookup
	params     provider.Params
	timeout    time.Duration
	events     *eventlog.Logger
	log        *log.Logger
}

// New creates an orchestrator from its dependencies.
func New(d Deps) *Orchestrator {
	timeout := d.BackendTimeout
	if timeout <= 0 {
		timeout = DefaultBackendTimeout
	}
	logger := d.Log
	if logger == nil {
		logger = log.Default()
	}
	return &Orchestrator{
		store:      d.Store,
		classifier: d.Classifier,
		composer:   d.Composer,
		backend:    d.Backend,
		profiles:   d.Profiles,
		params:     d.Params,
		timeout:    timeout,
		events:     d.Events,
		log:        logger,
	}
}

// StartCall handles the "call started" event: it creates the session (lazily,
// idempotently) and returns the personalized introduction.
//
// Replaying start for a call that already has its introduction re-speaks the
// stored line without touching the backend and without duplicating turns.
func (o *Orchestrator) StartCall(ctx context.Context, callID, caller string) (Result, error) {
	unlock := o.store.Lock(callID)
	defer unlock()

	s, created, err := o.store.GetOrCreate(callID, func() (profile.Profile, error) {
		return o.profiles.Lookup(callID, caller)
	})
	if err != nil {
		return Result{}, fmt.Errorf("start call %s: %w", callID, err)
	}
	if s.Closed() {
		return Result{Speak: ClosedAck, ContinueListening: false}, nil
	}
	if intro := s.FirstAssistantText(); intro != "" {
		return Result{Speak: intro, ContinueListening: true}, nil
	}

	if created {
		o.events.Log(eventlog.Event{
			Type:   eventlog.EventCallStarted,
			CallID: callID,
			Data:   map[string]any{"caller": caller},
		})
	}

	intro, err := o.complete(ctx, o.composer.Introduction(s.Profile))
	if err != nil {
		o.logBackendFailure(callID, "introduction", err)
		// No turns written: a replayed start regenerates the introduction.
		fallback := fmt.Sprintf("Hello, this is %s from %s. How can I help you today?",
			o.composer.BotName(), o.composer.Company())
		return Result{Speak: fallback, ContinueListening: true}, nil
	}

	turns := []session.Turn{
		o.composer.Persona(s.Profile),
		{Role: provider.RoleAssistant, Text: intro},
	}
	if err := o.store.ReplaceTurns(callID, turns); err != nil {
		return Result{}, fmt.Errorf("store introduction for %s: %w", callID, err)
	}

	o.events.Log(eventlog.Event{
		Type:   eventlog.EventAssistantLine,
		CallID: callID,
		Data:   map[string]any{"text": intro, "phase": "introduction"},
	})
	return Result{Speak: intro, ContinueListening: true}, nil
}

// HandleTranscript handles one transcribed caller utterance.
func (o *Orchestrator) HandleTranscript(ctx context.Context, callID, transcript string) (Result, error) {
	unlock := o.store.Lock(callID)
	defer unlock()

	s, err := o.store.Get(callID)
	if err != nil {
		return Result{}, fmt.Errorf("transcript for %s: %w", callID, err)
	}
	if s.Closed() {
		return Result{Speak: ClosedAck, ContinueListening: false}, nil
	}

	it := o.classifier.Classify(transcript)
	o.events.Log(eventlog.Event{
		Type:   eventlog.EventTranscript,
		CallID: callID,
		Data:   map[string]any{"text": transcript, "intent": it.String()},
	})

	reply, err := o.complete(ctx, o.composer.Compose(s, transcript, it))

	if it == intent.End {
		if err != nil {
			o.logBackendFailure(callID, "closing", err)
			return Result{Speak: FallbackClosing, ContinueListening: false}, nil
		}
		// The closing line is spoken, not stored: no further turns follow
		// a CLOSED session, so there is nothing for history to inform.
		if err := o.store.Close(callID); err != nil {
			return Result{}, fmt.Errorf("close session %s: %w", callID, err)
		}
		o.events.Log(eventlog.Event{
			Type:   eventlog.EventCallClosed,
			CallID: callID,
			Data:   map[string]any{"reason": "caller ended"},
		})
		return Result{Speak: reply, ContinueListening: false}, nil
	}

	if err != nil {
		o.logBackendFailure(callID, "reply", err)
		return Result{Speak: FallbackReply, ContinueListening: true}, nil
	}

	// One atomic write per completed exchange: prior history with any
	// ephemeral guidance stripped, the caller's turn, the reply.
	turns := stripEphemeral(s.Turns)
	turns = append(turns,
		session.Turn{Role: provider.RoleUser, Text: transcript},
		session.Turn{Role: provider.RoleAssistant, Text: reply},
	)
	if err := o.store.ReplaceTurns(callID, turns); err != nil {
		return Result{}, fmt.Errorf("store turns for %s: %w", callID, err)
	}

	o.events.Log(eventlog.Event{
		Type:   eventlog.EventAssistantLine,
		CallID: callID,
		Data:   map[string]any{"text": reply},
	})
	return Result{Speak: reply, ContinueListening: true}, nil
}

// Hangup closes the session in response to an explicit transport-level
// signal (status callback). Safe for calls that never produced a session.
func (o *Orchestrator) Hangup(callID, reason string) error {
	unlock := o.store.Lock(callID)
	defer unlock()

	if err := o.store.Close(callID); err != nil {
		return fmt.Errorf("hangup %s: %w", callID, err)
	}
	o.events.Log(eventlog.Event{
		Type:   eventlog.EventCallClosed,
		CallID: callID,
		Data:   map[string]any{"reason": reason},
	})
	return nil
}

// ResetAll clears every session (operator reset control).
func (o *Orchestrator) ResetAll() error {
	if err := o.store.ResetAll(); err != nil {
		return err
	}
	o.events.Log(eventlog.Event{Type: eventlog.EventReset})
	o.log.Info("all sessions reset")
	return nil
}

// complete calls the generation backend with the configured timeout.
func (o *Orchestrator) complete(ctx context.Context, msgs []provider.Message) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()
	return o.backend.Complete(ctx, msgs, o.params)
}

func (o *Orchestrator) logBackendFailure(callID, phase string, err error) {
	o.log.Error("generation backend failed", "call", callID, "phase", phase, "err", err)
	o.events.Log(eventlog.Event{
		Type:   eventlog.EventBackendError,
		CallID: callID,
		Data:   map[string]any{"phase": phase, "error": err.Error()},
	})
}

// stripEphemeral drops guidance turns from a history snapshot. Stored
// history is written without guidance in the first place; this keeps the
// invariant even if an older record carried one.
func stripEphemeral(turns []session.Turn) []session.Turn {
	out := make([]session.Turn, 0, len(turns))
	for _, t := range turns {
		if !t.Ephemeral {
			out = append(out, t)
		}
	}
	return out
}
