// Package intent classifies caller transcripts into conversation intents.
// Phrase-list matching stands in for a real intent model; the Classifier
// interface keeps the orchestrator decoupled from the matching strategy.
package intent

import "strings"

// Intent is the high-level classification of one transcript.
type Intent int

const (
	// Continue: the caller is engaged, keep the conversation going.
	Continue Intent = iota

	// Hesitate: the caller shows doubt (price, timing, uncertainty).
	Hesitate

	// End: the caller is wrapping up; the call must close.
	End
)

func (i Intent) String() string {
	switch i {
	case Hesitate:
		return "hesitate"
	case End:
		return "end"
	default:
		return "continue"
	}
}

// Classifier infers an Intent from raw transcript text.
type Classifier interface {
	Classify(text string) Intent
}

// DefaultClosingPhrases are transcripts fragments that signal the caller
// wants to end the conversation.
var DefaultClosingPhrases = []string{
	"bye", "goodbye", "see you", "talk to you later", "that's all",
	"thank you", "thanks for your help", "end", "quit", "exit",
	"have a good day", "have a nice day", "that's it", "that will be all",
}

// DefaultHesitationPhrases are fragments that signal doubt or reluctance.
var DefaultHesitationPhrases = []string{
	"not sure", "maybe later", "think about it", "too expensive",
	"can't afford", "not ready", "need time", "let me think",
	"not convinced", "don't know", "hesitant", "uncertain",
	"on the fence", "not now", "possibly", "might", "perhaps",
}

// PhraseClassifier matches transcripts against fixed phrase lists.
// Matching is case-insensitive substring matching. A closing match always
// wins over a hesitation match: a call ending while hesitant must still close.
type PhraseClassifier struct {
	closing    []string
	hesitation []string
}

// NewPhraseClassifier builds a classifier from the given phrase lists.
// Empty lists fall back to the defaults.
func NewPhraseClassifier(closing, hesitation []string) *PhraseClassifier {
	if len(closing) == 0 {
		closing = DefaultClosingPhrases
	}
	if len(hesitation) == 0 {
		hesitation = DefaultHesitationPhrases
	}
	return &PhraseClassifier{closing: lowerAll(closing), hesitation: lowerAll(hesitation)}
}

// Classify returns the intent for a transcript. Empty or whitespace-only
// text classifies as Continue.
func (c *PhraseClassifier) Classify(text string) Intent {
	s := strings.ToLower(strings.TrimSpace(text))
	if s == "" {
		return Continue
	}
	if containsAny(s, c.closing) {
		return End
	}
	if containsAny(s, c.hesitation) {
		return Hesitate
	}
	return Continue
}

func containsAny(s string, phrases []string) bool {
	for _, p := range phrases {
		if strings.Contains(s, p) {
			return true
		}
	}
	return false
}

func lowerAll(in []string) []string {
	out := make([]string, len(in))
	for i, s := range in {
		out[i] = strings.ToLower(s)
	}
	return out
}
