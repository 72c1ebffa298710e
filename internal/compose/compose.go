// Package compose builds the prompt message sequences sent to the
// generation backend: the persistent sales persona, the personalized
// introduction, and per-turn prompts with intent-driven guidance.
//
// Guidance turns are ephemeral: the composer marks them, the orchestrator
// strips them once the response they influenced has been produced, so they
// never accumulate in stored history and bias later turns.
package compose

import (
	"fmt"
	"strings"

	"github.com/salesline-ai/salesline/internal/intent"
	"github.com/salesline-ai/salesline/internal/profile"
	"github.com/salesline-ai/salesline/internal/provider"
	"github.com/salesline-ai/salesline/internal/session"
)

// Composer assembles prompts for one configured persona.
type Composer struct {
	botName string
	company string
}

// New creates a composer for the given persona.
func New(botName, company string) *Composer {
	if botName == "" {
		botName = "Alex"
	}
	if company == "" {
		company = "TechInnovate Solutions"
	}
	return &Composer{botName: botName, company: company}
}

// BotName returns the configured bot persona name.
func (c *Composer) BotName() string { return c.botName }

// Company returns the configured company name.
func (c *Composer) Company() string { return c.company }

// Persona returns the persistent system turn that anchors every session.
// It is written once at session creation and never stripped.
func (c *Composer) Persona(p profile.Profile) session.Turn {
	var sb strings.Builder
	fmt.Fprintf(&sb, "You are %s, a friendly and persuasive sales representative for %s. ", c.botName, c.company)
	sb.WriteString("Keep every reply short and conversational — it will be spoken aloud over the phone. ")
	sb.WriteString("Never mention that you are an AI or that this conversation is automated.")

	if ctx := profileContext(p); ctx != "" {
		sb.WriteString("\n\nWhat you know about this customer:\n")
		sb.WriteString(ctx)
	}

	return session.Turn{Role: provider.RoleSystem, Text: sb.String()}
}

// profileContext renders the known profile fields as prompt context.
// Absent fields (empty strings) are skipped entirely.
func profileContext(p profile.Profile) string {
	var lines []string
	add := func(label, v string) {
		if v != "" {
			lines = append(lines, fmt.Sprintf("- %s: %s", label, v))
		}
	}
	add("Name", p.Name)
	add("Last visit", p.LastVisitDate)
	add("Products viewed", p.ProductsViewed)
	add("Previous purchases", p.PreviousPurchases)
	add("Interests", p.Interests)
	add("Age group", p.AgeGroup)
	add("Devices used", p.DeviceUsage)
	return strings.Join(lines, "\n")
}

// Introduction builds the opening prompt for a new call. The prompt is
// assembled from whichever profile fields are present and instructs a warm
// personalized opener ending in an open question. There is no prior user
// turn and no ephemeral guidance on this path.
func (c *Composer) Introduction(p profile.Profile) []provider.Message {
	var sb strings.Builder
	fmt.Fprintf(&sb, "As %s, generate a warm, personalized introduction to start the sales call.", c.botName)
	if p.Name != "" {
		fmt.Fprintf(&sb, " Address %s by name.", p.Name)
	}
	if p.LastVisitDate != "" {
		fmt.Fprintf(&sb, " Mention their last visit on %s.", p.LastVisitDate)
	}
	if p.ProductsViewed != "" {
		fmt.Fprintf(&sb, " Reference their interest in %s.", p.ProductsViewed)
	}
	if p.PreviousPurchases != "" {
		fmt.Fprintf(&sb, " Acknowledge their previous purchase of %s.", p.PreviousPurchases)
	}
	sb.WriteString(" Ask an open-ended question about their needs or interests.")
	sb.WriteString(" Be friendly, conversational, and enthusiastic. Keep it concise (2-3 sentences).")

	persona := c.Persona(p)
	return []provider.Message{
		{Role: persona.Role, Text: persona.Text},
		{Role: provider.RoleUser, Text: sb.String()},
	}
}

// HesitationGuidance returns the ephemeral system turn injected when the
// caller hesitates, parameterized by their recorded interests.
func (c *Composer) HesitationGuidance(p profile.Profile) session.Turn {
	interests := p.Interests
	if interests == "" {
		interests = "technology"
	}
	text := "The customer is showing hesitation. Use flattery and personalization to make them feel special. " +
		"Compliment their taste, insight, or decision-making process. Make them feel valued and understood. " +
		"Focus on how they specifically will benefit from our product in ways that align with their interests and lifestyle. " +
		fmt.Sprintf("Use phrases like 'Someone with your taste would appreciate...' or 'Given your interest in %s, you'd especially enjoy...' to make them feel special.", interests)
	return session.Turn{Role: provider.RoleSystem, Text: text, Ephemeral: true}
}

// ClosingGuidance returns the ephemeral system turn injected when the call
// is ending.
func (c *Composer) ClosingGuidance() session.Turn {
	text := "The conversation is ending. Generate a warm, friendly closing statement that thanks the customer " +
		"for their time, summarizes any commitments or next steps, and includes a clear call to action. " +
		"Mention a special offer or limited-time discount if appropriate to encourage immediate action. " +
		"Keep it concise and personalized."
	return session.Turn{Role: provider.RoleSystem, Text: text, Ephemeral: true}
}

// Compose builds the full ordered prompt for one caller turn.
//
//   - Hesitate: guidance is placed immediately before the new user turn, so
//     the backend sees it as the most recent instruction.
//   - End: closing guidance only — the call is ending, no further user input
//     is solicited, so the transcript is not appended as a user turn.
//   - Continue: the plain user turn, no guidance.
func (c *Composer) Compose(s *session.Session, userText string, it intent.Intent) []provider.Message {
	msgs := s.Messages()

	switch it {
	case intent.Hesitate:
		g := c.HesitationGuidance(s.Profile)
		msgs = append(msgs, provider.Message{Role: g.Role, Text: g.Text})
		msgs = append(msgs, provider.Message{Role: provider.RoleUser, Text: userText})
	case intent.End:
		g := c.ClosingGuidance()
		msgs = append(msgs, provider.Message{Role: g.Role, Text: g.Text})
	default:
		msgs = append(msgs, provider.Message{Role: provider.RoleUser, Text: userText})
	}
	return msgs
}
