package provider

import (
	"context"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// OpenAICompleter implements Completer for OpenAI-compatible APIs
// (OpenAI, Azure model inference, DeepSeek, etc. — anything speaking the
// chat completions protocol behind a base URL).
type OpenAICompleter struct {
	client openai.Client
	model  string
}

// NewOpenAICompleter builds a completer for an OpenAI-compatible endpoint.
// An empty baseURL targets api.openai.com.
func NewOpenAICompleter(apiKey, baseURL, model string) *OpenAICompleter {
	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	if model == "" {
		model = "gpt-4o"
	}
	return &OpenAICompleter{
		client: openai.NewClient(opts...),
		model:  model,
	}
}

func (c *OpenAICompleter) Name() string { return "openai" }

// Complete sends the message sequence and returns the first choice's text.
func (c *OpenAICompleter) Complete(ctx context.Context, msgs []Message, p Params) (string, error) {
	model := p.Model
	if model == "" {
		model = c.model
	}

	params := openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(model),
		Messages: c.buildMessages(msgs),
	}
	if p.Temperature > 0 {
		params.Temperature = openai.Float(p.Temperature)
	}
	if p.TopP > 0 {
		params.TopP = openai.Float(p.TopP)
	}
	if p.MaxTokens > 0 {
		params.MaxTokens = openai.Int(int64(p.MaxTokens))
	}

	resp, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", &BackendError{Provider: c.Name(), Err: err}
	}
	if len(resp.Choices) == 0 {
		return "", &BackendError{Provider: c.Name(), Err: fmt.Errorf("empty response (no choices)")}
	}
	return resp.Choices[0].Message.Content, nil
}

// buildMessages converts unified messages to OpenAI API params.
func (c *OpenAICompleter) buildMessages(msgs []Message) []openai.ChatCompletionMessageParamUnion {
	params := make([]openai.ChatCompletionMessageParamUnion, 0, len(msgs))
	for _, m := range msgs {
		switch m.Role {
		case RoleSystem:
			params = append(params, openai.SystemMessage(m.Text))
		case RoleAssistant:
			params = append(params, openai.AssistantMessage(m.Text))
		default:
			params = append(params, openai.UserMessage(m.Text))
		}
	}
	return params
}
