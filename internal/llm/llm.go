// Package llm wraps the chat-completion backend used for explanation
// generation and entity standardization. The default backend is DeepSeek,
// reached through its OpenAI-compatible API.
package llm

import (
	"context"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/finrag/finrag-go/internal/fault"
)

// Default backend settings for DeepSeek's OpenAI-compatible endpoint.
const (
	defaultBaseURL     = "https://api.deepseek.com"
	defaultModel       = "deepseek-chat"
	defaultTemperature = 0.1
)

// Config holds resolved chat-model settings.
type Config struct {
	// APIKey authenticates to the backend. Required.
	APIKey string
	// BaseURL overrides the API base (default: DeepSeek).
	BaseURL string
	// Model is the chat model name (default: deepseek-chat).
	Model string
	// Temperature controls sampling randomness (default: 0.1).
	Temperature float64
	// MaxTokens bounds the completion length (0 = backend default).
	MaxTokens int
}

// Client is a thin chat-completion client. It is safe for concurrent use.
type Client struct {
	api         openai.Client
	model       string
	temperature float64
	maxTokens   int
}

// New constructs a Client. A missing API key fails here, before any
// network call is made.
func New(cfg *Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fault.New(fault.Validation, "llm: API key is required")
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	model := cfg.Model
	if model == "" {
		model = defaultModel
	}
	temperature := cfg.Temperature
	if temperature == 0 {
		temperature = defaultTemperature
	}

	api := openai.NewClient(
		option.WithAPIKey(cfg.APIKey),
		option.WithBaseURL(baseURL),
	)
	return &Client{
		api:         api,
		model:       model,
		temperature: temperature,
		maxTokens:   cfg.MaxTokens,
	}, nil
}

// Model returns the configured chat model name.
func (c *Client) Model() string { return c.model }

// params assembles the shared request parameters.
func (c *Client) params(system, user string) openai.ChatCompletionNewParams {
	var messages []openai.ChatCompletionMessageParamUnion
	if system != "" {
		messages = append(messages, openai.SystemMessage(system))
	}
	messages = append(messages, openai.UserMessage(user))

	params := openai.ChatCompletionNewParams{
		Messages:    messages,
		Model:       c.model,
		Temperature: openai.Float(c.temperature),
	}
	if c.maxTokens > 0 {
		params.MaxTokens = openai.Int(int64(c.maxTokens))
	}
	return params
}

// Complete runs a single-shot chat completion and returns the full
// response text.
func (c *Client) Complete(ctx context.Context, system, user string) (string, error) {
	resp, err := c.api.Chat.Completions.New(ctx, c.params(system, user))
	if err != nil {
		return "", fault.Wrap(fault.External, err, "llm: chat completion")
	}
	if len(resp.Choices) == 0 {
		return "", fault.New(fault.External, "llm: empty completion response")
	}
	return resp.Choices[0].Message.Content, nil
}

// Stream runs a streaming chat completion, invoking fn once per text
// fragment as it arrives. A non-nil error from fn aborts the stream.
func (c *Client) Stream(ctx context.Context, system, user string, fn func(fragment string) error) error {
	stream := c.api.Chat.Completions.NewStreaming(ctx, c.params(system, user))
	defer stream.Close()

	for stream.Next() {
		chunk := stream.Current()
		if len(chunk.Choices) == 0 {
			continue
		}
		fragment := chunk.Choices[0].Delta.Content
		if fragment == "" {
			continue
		}
		if err := fn(fragment); err != nil {
			return err
		}
	}
	if err := stream.Err(); err != nil {
		return fault.Wrap(fault.External, err, "llm: streaming completion")
	}
	return nil
}
