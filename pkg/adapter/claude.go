package adapter

import (
	"context"
	"errors"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/m-mizutani/goerr/v2"

	"github.com/m-mizutani/simplemem/pkg/model"
)

// ClaudeClient implements LLM via the Anthropic API. The Anthropic API
// has no embeddings endpoint, so it never serves as an Embedder.
type ClaudeClient struct {
	client *anthropic.Client
	model  string
}

type ClaudeOption func(*ClaudeClient)

func WithClaudeModel(m string) ClaudeOption {
	return func(c *ClaudeClient) {
		c.model = m
	}
}

func NewClaude(apiKey string, opts ...ClaudeOption) (*ClaudeClient, error) {
	if apiKey == "" {
		return nil, goerr.New("api key is required")
	}

	client := anthropic.NewClient(
		option.WithAPIKey(apiKey),
	)

	c := &ClaudeClient{
		client: &client,
		model:  string(anthropic.ModelClaudeSonnet4_0),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c, nil
}

func (c *ClaudeClient) Complete(ctx context.Context, system, prompt string) (string, error) {
	resp, err := c.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(c.model),
		MaxTokens: 1024,
		System: []anthropic.TextBlockParam{
			{Text: system},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		return "", goerr.Wrap(errors.Join(model.ErrProvider, err), "claude message request failed")
	}

	var sb strings.Builder
	for _, content := range resp.Content {
		if content.Type == "text" {
			sb.WriteString(content.AsText().Text)
		}
	}

	if sb.Len() == 0 {
		return "", goerr.Wrap(model.ErrProvider, "no text content in claude response")
	}

	return sb.String(), nil
}
