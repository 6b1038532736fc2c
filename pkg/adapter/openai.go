package adapter

import (
	"context"
	"errors"
	"strings"

	"github.com/m-mizutani/goerr/v2"
	openai "github.com/sashabaranov/go-openai"

	"github.com/m-mizutani/simplemem/pkg/model"
)

// OpenAIClient implements Embedder and LLM against the OpenAI API, or any
// OpenAI-compatible endpoint such as OpenRouter via a custom base URL.
type OpenAIClient struct {
	client         *openai.Client
	llmModel       string
	embeddingModel string
	dimensions     int
}

type OpenAIOption func(*OpenAIClient)

func WithOpenAILLMModel(m string) OpenAIOption {
	return func(c *OpenAIClient) {
		c.llmModel = m
	}
}

func WithOpenAIEmbeddingModel(m string) OpenAIOption {
	return func(c *OpenAIClient) {
		c.embeddingModel = m
	}
}

// WithOpenAIEmbeddingDimensions overrides the dimension reported for
// schema checks. It must match what the configured embedding model
// actually emits.
func WithOpenAIEmbeddingDimensions(d int) OpenAIOption {
	return func(c *OpenAIClient) {
		c.dimensions = d
	}
}

// NewOpenAI creates a client for the OpenAI API. baseURL may be empty
// (api.openai.com) or point at an OpenAI-compatible gateway; OpenRouter
// keys (sk-or-) only work with the OpenRouter base URL.
func NewOpenAI(apiKey, baseURL string, opts ...OpenAIOption) (*OpenAIClient, error) {
	if apiKey == "" {
		return nil, goerr.New("api key is required")
	}

	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = strings.TrimRight(baseURL, "/")
	}

	c := &OpenAIClient{
		client:         openai.NewClientWithConfig(cfg),
		llmModel:       "gpt-4.1-mini",
		embeddingModel: string(openai.SmallEmbedding3),
		dimensions:     1536,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c, nil
}

func (c *OpenAIClient) Dimensions() int {
	return c.dimensions
}

func (c *OpenAIClient) Embed(ctx context.Context, text string) ([]float32, error) {
	if strings.TrimSpace(text) == "" {
		return nil, goerr.Wrap(model.ErrEmptyInput, "cannot embed empty text")
	}

	resp, err := c.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: []string{text},
		Model: openai.EmbeddingModel(c.embeddingModel),
	})
	if err != nil {
		return nil, goerr.Wrap(errors.Join(model.ErrProvider, err), "embeddings request failed")
	}

	if len(resp.Data) == 0 || len(resp.Data[0].Embedding) == 0 {
		return nil, goerr.Wrap(model.ErrProvider, "empty embeddings response")
	}

	return resp.Data[0].Embedding, nil
}

func (c *OpenAIClient) Complete(ctx context.Context, system, prompt string) (string, error) {
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.llmModel,
		Temperature: completionTemperature,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		return "", goerr.Wrap(errors.Join(model.ErrProvider, err), "chat completion request failed")
	}

	if len(resp.Choices) == 0 {
		return "", goerr.Wrap(model.ErrProvider, "no completion choices returned")
	}

	return resp.Choices[0].Message.Content, nil
}
