// Package groq implements the provider gateway for the Groq API. Groq's
// endpoint is OpenAI-compatible, so we reuse the openai-go SDK with a custom
// base URL. This path is text-only: inline parts are dropped when the history
// is projected onto the flattened {role, content} sequence.
package groq

import (
	"context"
	"errors"
	"net/http"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"github.com/monica-chat/monica/internal/log"
	"github.com/monica-chat/monica/internal/message"
	"github.com/monica-chat/monica/internal/provider"
)

// BaseURL is the Groq OpenAI-compatible endpoint.
const BaseURL = "https://api.groq.com/openai/v1"

// Client implements provider.Gateway on top of the OpenAI SDK.
type Client struct {
	client openai.Client
	model  string
}

// New wraps an existing SDK client. Used by tests to inject a custom
// transport.
func New(client openai.Client, model string) *Client {
	return &Client{client: client, model: model}
}

// NewClient creates a Groq gateway authenticated with an API key.
func NewClient(apiKey, model string) *Client {
	client := openai.NewClient(
		option.WithAPIKey(apiKey),
		option.WithBaseURL(BaseURL),
	)
	return New(client, model)
}

// Name returns the gateway name.
func (c *Client) Name() string {
	return "groq"
}

// Generate projects the history onto chat-completion messages, prepends the
// system prompt when present, and returns the first choice's message content.
// An empty reply is success with the sentinel text, not an error.
func (c *Client) Generate(ctx context.Context, history []message.Message, opts provider.GenerateOptions) (string, error) {
	messages := make([]openai.ChatCompletionMessageParamUnion, 0, len(history)+1)

	if opts.SystemPrompt != "" {
		messages = append(messages, openai.SystemMessage(opts.SystemPrompt))
	}

	for _, msg := range history {
		text := msg.Text()
		if msg.Role == message.RoleModel {
			messages = append(messages, openai.AssistantMessage(text))
			continue
		}
		messages = append(messages, openai.UserMessage(text))
	}

	params := openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(c.model),
		Messages: messages,
	}
	if opts.Temperature > 0 {
		params.Temperature = openai.Float(opts.Temperature)
	}
	if opts.MaxTokens > 0 {
		params.MaxTokens = openai.Int(int64(opts.MaxTokens))
	}

	log.LogRequest(c.Name(), c.model, len(history))

	resp, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		gwErr := normalizeErr(err)
		log.LogError(c.Name(), gwErr)
		return "", gwErr
	}

	reply := ""
	if len(resp.Choices) > 0 {
		reply = resp.Choices[0].Message.Content
	}
	if reply == "" {
		reply = provider.NoResponseText
	}

	log.LogResponse(c.Name(), reply)
	return reply, nil
}

// normalizeErr maps SDK errors onto the gateway error taxonomy.
func normalizeErr(err error) error {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		msg := apiErr.Message
		if msg == "" {
			msg = http.StatusText(apiErr.StatusCode)
		}
		return provider.RemoteError(msg, err)
	}
	return provider.TransportError(err)
}

var _ provider.Gateway = (*Client)(nil)
