// Package llm wraps the Anthropic API behind a small Generator
// interface so callers can swap in a stub for tests or run with no LLM
// at all.
package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// DefaultModel is used when Config.Model is empty.
const DefaultModel = "claude-sonnet-4-5"

// Generator produces text from a prompt. Implementations must respect
// the context deadline.
type Generator interface {
	Generate(ctx context.Context, prompt string, maxTokens int64) (string, error)
}

// Config configures the Anthropic client.
type Config struct {
	// APIKey is the Anthropic API key. Empty falls back to the
	// ANTHROPIC_API_KEY environment variable.
	APIKey string

	// Model is the Claude model to use.
	Model string

	// Timeout bounds each call. Defaults to 30 seconds.
	Timeout time.Duration
}

// Client is the Anthropic-backed Generator.
type Client struct {
	client  anthropic.Client
	model   anthropic.Model
	timeout time.Duration
}

// New creates a client from the config.
func New(cfg Config) *Client {
	var opts []option.RequestOption
	if cfg.APIKey != "" {
		opts = append(opts, option.WithAPIKey(cfg.APIKey))
	}
	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		client:  anthropic.NewClient(opts...),
		model:   anthropic.Model(model),
		timeout: timeout,
	}
}

// Generate sends a single-turn prompt and returns the text response.
func (c *Client) Generate(ctx context.Context, prompt string, maxTokens int64) (string, error) {
	if maxTokens <= 0 {
		maxTokens = 1024
	}
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	message, err := c.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:       c.model,
		MaxTokens:   maxTokens,
		Temperature: anthropic.Float(0),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		return "", fmt.Errorf("anthropic api error: %w", err)
	}
	if len(message.Content) == 0 {
		return "", fmt.Errorf("no response from anthropic")
	}
	return message.Content[0].Text, nil
}

// ExtractJSON returns the first balanced JSON array or object embedded
// in text, stripping any prose around it. Returns "" when none is
// found.
func ExtractJSON(text string) string {
	for _, open := range []byte{'[', '{'} {
		start := strings.IndexByte(text, open)
		if start == -1 {
			continue
		}
		var close byte = ']'
		if open == '{' {
			close = '}'
		}
		depth := 0
		inString := false
		escaped := false
		for i := start; i < len(text); i++ {
			ch := text[i]
			if escaped {
				escaped = false
				continue
			}
			switch {
			case ch == '\\' && inString:
				escaped = true
			case ch == '"':
				inString = !inString
			case inString:
			case ch == open:
				depth++
			case ch == close:
				depth--
				if depth == 0 {
					return text[start : i+1]
				}
			}
		}
	}
	return ""
}
