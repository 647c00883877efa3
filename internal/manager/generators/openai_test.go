package generators

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/code-sleuth/ike-tube/internal/manager/interfaces"
	"github.com/code-sleuth/ike-tube/internal/manager/models"
	"github.com/code-sleuth/ike-tube/internal/manager/retry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenAIGenerator_Generate(t *testing.T) {
	var captured struct {
		Model    string `json:"model"`
		Messages []struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"messages"`
		MaxCompletionTokens int `json:"max_completion_tokens"`
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&captured))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "chatcmpl-1",
			"object": "chat.completion",
			"model": "gpt-4o-mini",
			"choices": [{"index": 0, "message": {"role": "assistant", "content": "answer"}, "finish_reason": "stop"}],
			"usage": {"prompt_tokens": 80, "completion_tokens": 12, "total_tokens": 92}
		}`))
	}))
	defer server.Close()

	generator, err := NewOpenAIGeneratorWithClient("test-key", "", server.Client(), server.URL)
	require.NoError(t, err)

	generation, err := generator.Generate(context.Background(), interfaces.GenerationRequest{
		System: "system prompt",
		Messages: []models.Message{
			{Role: models.RoleAssistant, Content: "opening"},
			{Role: models.RoleUser, Content: "question"},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, "answer", generation.Text)
	assert.Equal(t, 80, generation.InputTokens)
	assert.Equal(t, 12, generation.OutputTokens)

	assert.Equal(t, "gpt-4o-mini", captured.Model)
	assert.Equal(t, 1024, captured.MaxCompletionTokens)
	require.Len(t, captured.Messages, 3)
	assert.Equal(t, "system", captured.Messages[0].Role)
	assert.Equal(t, "assistant", captured.Messages[1].Role)
	assert.Equal(t, "user", captured.Messages[2].Role)
}

func TestOpenAIGenerator_Errors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"error":{"message":"overloaded","type":"server_error"}}`))
	}))
	defer server.Close()

	generator, err := NewOpenAIGeneratorWithClient("test-key", "gpt-4o", server.Client(), server.URL)
	require.NoError(t, err)

	_, err = generator.Generate(context.Background(), interfaces.GenerationRequest{
		Messages: []models.Message{{Role: models.RoleUser, Content: "hello"}},
	})
	require.Error(t, err)
	assert.True(t, retry.IsTransient(err))

	_, err = NewOpenAIGenerator("", "")
	assert.ErrorIs(t, err, ErrAPIKeyNotSet)
}

func TestOpenAIGenerator_EmptyCompletion(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"x","object":"chat.completion","choices":[]}`))
	}))
	defer server.Close()

	generator, err := NewOpenAIGeneratorWithClient("test-key", "", server.Client(), server.URL)
	require.NoError(t, err)

	_, err = generator.Generate(context.Background(), interfaces.GenerationRequest{
		Messages: []models.Message{{Role: models.RoleUser, Content: "hello"}},
	})
	assert.ErrorIs(t, err, ErrEmptyCompletion)
}
