package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"yeti-ai-go/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChatMessages_Success(t *testing.T) {
	var got chatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"hello from yeti"}}]}`))
	}))
	defer srv.Close()

	c := NewClient(config.LLMConfig{APIKey: "sk-test", BaseURL: srv.URL + "/api/v1/"})
	gen := DefaultGeneration(config.LLMGenerationConfig{Temperature: 0.7, MaxTokens: 2000})

	out, err := c.ChatMessages(context.Background(), "openai/gpt-4-turbo", []Message{
		{Role: "system", Content: "sys"},
		{Role: "user", Content: "hi"},
	}, gen)
	require.NoError(t, err)
	assert.Equal(t, "hello from yeti", out)

	assert.Equal(t, "openai/gpt-4-turbo", got.Model)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, "system", got.Messages[0].Role)
	require.NotNil(t, got.Temperature)
	assert.InDelta(t, 0.7, *got.Temperature, 1e-9)
	require.NotNil(t, got.MaxTokens)
	assert.Equal(t, 2000, *got.MaxTokens)
}

func TestChatMessages_Non200(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"rate limited"}`, http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := NewClient(config.LLMConfig{APIKey: "sk-test", BaseURL: srv.URL})
	_, err := c.ChatMessages(context.Background(), "m", []Message{{Role: "user", Content: "hi"}}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")
	assert.Contains(t, err.Error(), "rate limited")
}

func TestChatMessages_NoChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[]}`))
	}))
	defer srv.Close()

	c := NewClient(config.LLMConfig{APIKey: "sk-test", BaseURL: srv.URL})
	_, err := c.ChatMessages(context.Background(), "m", []Message{{Role: "user", Content: "hi"}}, nil)
	assert.Error(t, err)
}

func TestChatMessages_NotConfigured(t *testing.T) {
	c := NewClient(config.LLMConfig{BaseURL: "http://127.0.0.1:1"})
	assert.False(t, c.Configured())

	_, err := c.ChatMessages(context.Background(), "m", nil, nil)
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestDefaultGeneration_ZeroValues(t *testing.T) {
	assert.Nil(t, DefaultGeneration(config.LLMGenerationConfig{}))
}
