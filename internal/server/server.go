// Package server is the webhook adapter: it translates Twilio's voice
// webhooks into orchestrator calls and renders the orchestrator's directive
// back into TwiML. All conversation logic lives behind the orchestrator;
// this layer only parses, dispatches, and renders.
package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"

	"github.com/salesline-ai/salesline/internal/eventlog"
	"github.com/salesline-ai/salesline/internal/orchestrator"
	"github.com/salesline-ai/salesline/internal/session"
)

// DefaultVoice is the TTS voice used for every spoken line.
const DefaultVoice = "Polly.Joanna-Neural"

// terminalCallStatuses are Twilio statuses after which no more speech
// events can arrive for the call.
var terminalCallStatuses = map[string]bool{
	"completed": true,
	"busy":      true,
	"failed":    true,
	"no-answer": true,
	"canceled":  true,
}

// Options configure the webhook server.
type Options struct {
	// Voice is the TTS voice name; empty means DefaultVoice.
	Voice string

	// GatherHints are phrases fed to speech recognition so closing lines
	// are transcribed reliably. Joined with commas in the Gather verb.
	GatherHints []string

	// Events feeds the /monitor websocket; nil disables it.
	Events *eventlog.Logger

	// Log defaults to the package-level charmbracelet logger.
	Log *log.Logger
}

// Server handles the Twilio webhook surface.
type Server struct {
	orch     *orchestrator.Orchestrator
	events   *eventlog.Logger
	log      *log.Logger
	voice    string
	hints    string
	upgrader websocket.Upgrader
}

// New creates the webhook server around an orchestrator.
func New(orch *orchestrator.Orchestrator, opts Options) *Server {
	voice := opts.Voice
	if voice == "" {
		voice = DefaultVoice
	}
	logger := opts.Log
	if logger == nil {
		logger = log.Default()
	}
	return &Server{
		orch:   orch,
		events: opts.Events,
		log:    logger,
		voice:  voice,
		hints:  strings.Join(opts.GatherHints, ","),
		// Monitor clients are operator tooling on trusted networks.
		upgrader: websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }},
	}
}

// Handler returns the route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/voice", s.handleVoice)
	mux.HandleFunc("/transcribe", s.handleTranscribe)
	mux.HandleFunc("/call-status", s.handleCallStatus)
	mux.HandleFunc("/monitor", s.handleMonitor)
	mux.HandleFunc("/healthz", s.handleHealthz)

	return mux
}

// handleVoice handles incoming calls and answered outbound calls: it starts
// (or idempotently resumes) the session and speaks the introduction.
func (s *Server) handleVoice(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	callID := r.FormValue("CallSid")
	caller := r.FormValue("From")
	if callID == "" {
		http.Error(w, "missing CallSid", http.StatusBadRequest)
		return
	}
	s.log.Info("call received", "call", callID, "from", caller)

	res, err := s.orch.StartCall(r.Context(), callID, caller)
	if err != nil {
		s.log.Error("start call failed", "call", callID, "err", err)
		http.Error(w, "start call failed", http.StatusInternalServerError)
		return
	}
	s.writeDirective(w, res)
}

// handleTranscribe handles one transcribed caller utterance.
func (s *Server) handleTranscribe(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	callID := r.FormValue("CallSid")
	transcript := r.FormValue("SpeechResult")
	if callID == "" {
		http.Error(w, "missing CallSid", http.StatusBadRequest)
		return
	}
	s.log.Info("transcript", "call", callID, "text", transcript)

	res, err := s.orch.HandleTranscript(r.Context(), callID, transcript)
	if errors.Is(err, session.ErrUnknownSession) {
		// Sequencing error: a transcript webhook for a call that never
		// started. Not retryable, so answer with a client error.
		http.Error(w, "unknown call", http.StatusConflict)
		return
	}
	if err != nil {
		s.log.Error("transcript handling failed", "call", callID, "err", err)
		http.Error(w, "transcript handling failed", http.StatusInternalServerError)
		return
	}
	s.writeDirective(w, res)
}

// handleCallStatus handles Twilio status callbacks; terminal statuses close
// the session so late webhooks get the fixed acknowledgment.
func (s *Server) handleCallStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	callID := r.FormValue("CallSid")
	status := r.FormValue("CallStatus")
	s.log.Info("call status", "call", callID, "status", status)

	if callID != "" && terminalCallStatuses[status] {
		if err := s.orch.Hangup(callID, status); err != nil {
			s.log.Error("close on status failed", "call", callID, "err", err)
		}
	}

	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// writeDirective renders the orchestrator result as TwiML.
func (s *Server) writeDirective(w http.ResponseWriter, res orchestrator.Result) {
	var doc string
	var err error
	if res.ContinueListening {
		doc, err = s.speakAndListen(res.Speak)
	} else {
		doc, err = s.speakAndHangup(res.Speak)
	}
	if err != nil {
		s.log.Error("twiml render failed", "err", err)
		http.Error(w, "render failed", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/xml; charset=utf-8")
	_, _ = w.Write([]byte(doc))
}
