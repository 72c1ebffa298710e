// Package session holds per-call conversation state and its persistence.
// One Session exists per telephony call id; webhook invocations are
// independent request/response cycles, so everything a turn needs must
// round-trip through a Store.
package session

import (
	"time"

	"github.com/salesline-ai/salesline/internal/profile"
	"github.com/salesline-ai/salesline/internal/provider"
)

// State is the session lifecycle state. There is no stored NEW state:
// creation is transient and a session is ACTIVE from its first write.
type State string

const (
	StateActive State = "active"
	StateClosed State = "closed"
)

// Turn is one utterance in the dialogue log.
// Ephemeral marks guidance turns (hesitation handling, closing
// instructions) that are stripped after the response they influenced has
// been produced. Tagging beats content matching: a caller repeating the
// guidance's own wording must never be filtered out of the history.
type Turn struct {
	Role      provider.Role `json:"role"`
	Text      string        `json:"text"`
	Ephemeral bool          `json:"ephemeral,omitempty"`
}

// Session is the full conversational state for one call.
type Session struct {
	CallID    string          `json:"call_id"`
	Profile   profile.Profile `json:"profile"`
	Turns     []Turn          `json:"turns"`
	State     State           `json:"state"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// Clone returns a deep copy. Stores hand out clones so callers can never
// mutate shared state outside the store contract.
func (s *Session) Clone() *Session {
	cp := *s
	cp.Turns = append([]Turn(nil), s.Turns...)
	return &cp
}

// Closed reports whether the session has reached its terminal state.
func (s *Session) Closed() bool { return s.State == StateClosed }

// FirstAssistantText returns the stored introduction line, if any.
// Used to answer a replayed "start" event without a second backend call.
func (s *Session) FirstAssistantText() string {
	for _, t := range s.Turns {
		if t.Role == provider.RoleAssistant {
			return t.Text
		}
	}
	return ""
}

// Messages converts the stored turn log into prompt messages.
func (s *Session) Messages() []provider.Message {
	msgs := make([]provider.Message, 0, len(s.Turns))
	for _, t := range s.Turns {
		msgs = append(msgs, provider.Message{Role: t.Role, Text: t.Text})
	}
	return msgs
}
