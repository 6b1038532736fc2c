package adapter_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/m-mizutani/gt"
	openai "github.com/sashabaranov/go-openai"

	"github.com/m-mizutani/simplemem/pkg/adapter"
	"github.com/m-mizutani/simplemem/pkg/model"
)

func newEmbeddingServer(t *testing.T, vector []float32) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gt.Equal(t, r.URL.Path, "/v1/embeddings")

		var req openai.EmbeddingRequest
		gt.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		resp := openai.EmbeddingResponse{
			Data: []openai.Embedding{
				{Embedding: vector},
			},
		}
		w.Header().Set("Content-Type", "application/json")
		gt.NoError(t, json.NewEncoder(w).Encode(resp))
	}))
}

func TestOpenAIEmbed(t *testing.T) {
	server := newEmbeddingServer(t, []float32{0.1, 0.2, 0.3})
	defer server.Close()

	client, err := adapter.NewOpenAI("test-key", server.URL+"/v1",
		adapter.WithOpenAIEmbeddingDimensions(3))
	gt.NoError(t, err)
	gt.Equal(t, client.Dimensions(), 3)

	vec, err := client.Embed(context.Background(), "the cat sat on the mat")
	gt.NoError(t, err)
	gt.Equal(t, vec, []float32{0.1, 0.2, 0.3})
}

func TestOpenAIEmbedEmptyInput(t *testing.T) {
	called := false
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer server.Close()

	client, err := adapter.NewOpenAI("test-key", server.URL+"/v1")
	gt.NoError(t, err)

	for _, text := range []string{"", "   ", "\n\t"} {
		_, err := client.Embed(context.Background(), text)
		gt.Error(t, err)
		gt.True(t, errors.Is(err, model.ErrEmptyInput))
	}
	gt.False(t, called)
}

func TestOpenAIEmbedProviderError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error": {"message": "rate limited"}}`, http.StatusTooManyRequests)
	}))
	defer server.Close()

	client, err := adapter.NewOpenAI("test-key", server.URL+"/v1")
	gt.NoError(t, err)

	_, err = client.Embed(context.Background(), "some text")
	gt.Error(t, err)
	gt.True(t, errors.Is(err, model.ErrProvider))

	// The API error stays reachable so callers can inspect the status.
	var apiErr *openai.APIError
	gt.True(t, errors.As(err, &apiErr))
	gt.Equal(t, apiErr.HTTPStatusCode, http.StatusTooManyRequests)
}

func TestOpenAIComplete(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gt.Equal(t, r.URL.Path, "/v1/chat/completions")

		var req openai.ChatCompletionRequest
		gt.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		gt.A(t, req.Messages).Length(2)
		gt.Equal(t, req.Messages[0].Role, openai.ChatMessageRoleSystem)
		gt.Equal(t, req.Messages[1].Role, openai.ChatMessageRoleUser)

		resp := openai.ChatCompletionResponse{
			Choices: []openai.ChatCompletionChoice{
				{Message: openai.ChatCompletionMessage{
					Role:    openai.ChatMessageRoleAssistant,
					Content: "Alice prefers tea.",
				}},
			},
		}
		w.Header().Set("Content-Type", "application/json")
		gt.NoError(t, json.NewEncoder(w).Encode(resp))
	}))
	defer server.Close()

	client, err := adapter.NewOpenAI("test-key", server.URL+"/v1")
	gt.NoError(t, err)

	answer, err := client.Complete(context.Background(), "You answer from evidence.", "What does Alice drink?")
	gt.NoError(t, err)
	gt.Equal(t, answer, "Alice prefers tea.")
}

func TestNewOpenAIRequiresKey(t *testing.T) {
	_, err := adapter.NewOpenAI("", "")
	gt.Error(t, err)
}
