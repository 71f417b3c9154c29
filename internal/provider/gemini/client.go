// Package gemini implements the provider gateway for the Gemini API using
// the Google GenAI SDK. History is serialized directly: role plus parts,
// with inline payloads preserved.
package gemini

import (
	"context"
	"errors"
	"net/http"

	"google.golang.org/genai"

	"github.com/monica-chat/monica/internal/log"
	"github.com/monica-chat/monica/internal/message"
	"github.com/monica-chat/monica/internal/provider"
)

// Client implements provider.Gateway on top of the Google GenAI SDK.
type Client struct {
	client *genai.Client
	model  string
}

// New wraps an existing SDK client. Used by tests to inject a custom
// transport.
func New(client *genai.Client, model string) *Client {
	return &Client{client: client, model: model}
}

// NewClient creates a Gemini gateway authenticated with an API key.
func NewClient(ctx context.Context, apiKey, model string) (*Client, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, err
	}
	return New(client, model), nil
}

// Name returns the gateway name.
func (c *Client) Name() string {
	return "gemini"
}

// Generate serializes the history into Gemini contents, executes one
// generateContent exchange, and returns the first candidate's first text
// part. An empty or missing reply is success with the sentinel text, not an
// error.
func (c *Client) Generate(ctx context.Context, history []message.Message, opts provider.GenerateOptions) (string, error) {
	contents := make([]*genai.Content, 0, len(history))
	for _, msg := range history {
		parts := make([]*genai.Part, 0, len(msg.Parts))
		for _, p := range msg.Parts {
			if p.Inline != nil {
				parts = append(parts, &genai.Part{
					InlineData: &genai.Blob{
						Data:     p.Inline.Data,
						MIMEType: p.Inline.MIMEType,
					},
				})
				continue
			}
			parts = append(parts, &genai.Part{Text: p.Text})
		}
		contents = append(contents, &genai.Content{
			Role:  string(msg.Role),
			Parts: parts,
		})
	}

	config := &genai.GenerateContentConfig{}
	if opts.SystemPrompt != "" {
		config.SystemInstruction = &genai.Content{
			Parts: []*genai.Part{{Text: opts.SystemPrompt}},
		}
	}
	if opts.MaxTokens > 0 {
		config.MaxOutputTokens = int32(opts.MaxTokens)
	}
	if opts.Temperature > 0 {
		config.Temperature = genai.Ptr(float32(opts.Temperature))
	}

	log.LogRequest(c.Name(), c.model, len(history))

	resp, err := c.client.Models.GenerateContent(ctx, c.model, contents, config)
	if err != nil {
		gwErr := normalizeErr(err)
		log.LogError(c.Name(), gwErr)
		return "", gwErr
	}

	reply := firstText(resp)
	if reply == "" {
		reply = provider.NoResponseText
	}

	log.LogResponse(c.Name(), reply)
	return reply, nil
}

// firstText extracts the first text part of the first candidate.
func firstText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 {
		return ""
	}
	content := resp.Candidates[0].Content
	if content == nil {
		return ""
	}
	for _, part := range content.Parts {
		if part.Text != "" {
			return part.Text
		}
	}
	return ""
}

// normalizeErr maps SDK errors onto the gateway error taxonomy. A non-2xx
// response surfaces the provider's error envelope message when present, else
// the HTTP status text.
func normalizeErr(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		msg := apiErr.Message
		if msg == "" {
			msg = http.StatusText(apiErr.Code)
		}
		return provider.RemoteError(msg, err)
	}
	return provider.TransportError(err)
}

var _ provider.Gateway = (*Client)(nil)
