package provider

import (
	"context"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	anthropicoption "github.com/anthropics/anthropic-sdk-go/option"
)

// AnthropicCompleter implements Completer using the Anthropic Messages API.
type AnthropicCompleter struct {
	client anthropic.Client
	model  string
}

// NewAnthropicCompleter builds a completer for the Anthropic API.
func NewAnthropicCompleter(apiKey, model string) *AnthropicCompleter {
	if model == "" {
		model = "claude-sonnet-4-20250514"
	}
	return &AnthropicCompleter{
		client: anthropic.NewClient(anthropicoption.WithAPIKey(apiKey)),
		model:  model,
	}
}

func (c *AnthropicCompleter) Name() string { return "anthropic" }

// Complete sends the message sequence and returns the concatenated text blocks.
//
// The Messages API takes system text out of band, so every system message in
// the sequence — the persona and any guidance injected just before the latest
// user turn — is folded into the System block in original order.
func (c *AnthropicCompleter) Complete(ctx context.Context, msgs []Message, p Params) (string, error) {
	model := p.Model
	if model == "" {
		model = c.model
	}
	maxTokens := int64(p.MaxTokens)
	if maxTokens <= 0 {
		maxTokens = 1024
	}

	var system []string
	var turns []anthropic.MessageParam
	for _, m := range msgs {
		switch m.Role {
		case RoleSystem:
			system = append(system, m.Text)
		case RoleAssistant:
			turns = append(turns, anthropic.NewAssistantMessage(anthropic.NewTextBlock(m.Text)))
		default:
			turns = append(turns, anthropic.NewUserMessage(anthropic.NewTextBlock(m.Text)))
		}
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(model),
		Messages:  turns,
		MaxTokens: maxTokens,
	}
	if len(system) > 0 {
		params.System = []anthropic.TextBlockParam{{Text: strings.Join(system, "\n\n")}}
	}
	if p.Temperature > 0 {
		params.Temperature = anthropic.Float(p.Temperature)
	}
	if p.TopP > 0 {
		params.TopP = anthropic.Float(p.TopP)
	}

	resp, err := c.client.Messages.New(ctx, params)
	if err != nil {
		return "", &BackendError{Provider: c.Name(), Err: err}
	}

	var sb strings.Builder
	for _, block := range resp.Content {
		if tb, ok := block.AsAny().(anthropic.TextBlock); ok {
			sb.WriteString(tb.Text)
		}
	}
	if sb.Len() == 0 {
		return "", &BackendError{Provider: c.Name(), Err: fmt.Errorf("empty response (no text blocks)")}
	}
	return sb.String(), nil
}
