package ai_test

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"gamecontent-server/internal/ai"
	"gamecontent-server/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type chatStub struct {
	lastRequest map[string]any
	status      int
	body        string
}

func (s *chatStub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	_ = json.NewDecoder(r.Body).Decode(&s.lastRequest)
	w.Header().Set("Content-Type", "application/json")
	if s.status != 0 {
		w.WriteHeader(s.status)
	}
	_, _ = w.Write([]byte(s.body))
}

func chatCompletion(content string) string {
	resp := map[string]any{
		"id":      "chatcmpl-1",
		"object":  "chat.completion",
		"created": 1,
		"model":   "llama-3.3-70b-versatile",
		"choices": []map[string]any{{
			"index":         0,
			"message":       map[string]any{"role": "assistant", "content": content},
			"finish_reason": "stop",
		}},
		"usage": map[string]any{"prompt_tokens": 12, "completion_tokens": 7, "total_tokens": 19},
	}
	b, _ := json.Marshal(resp)
	return string(b)
}

func newOpenAITextClient(t *testing.T, stub http.Handler) ai.TextGenerator {
	t.Helper()
	mux := http.NewServeMux()
	mux.Handle("/v1/chat/completions", stub)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	client, err := ai.NewTextGenerator(ai.TextConfig{
		Provider:     ai.ProviderOpenAI,
		BaseURL:      srv.URL + "/v1",
		APIKey:       "gsk_test",
		Model:        "llama-3.3-70b-versatile",
		Timeout:      time.Second,
		Temperature:  0.7,
		MaxTokens:    2000,
		TopP:         0.95,
		SystemPrompt: "system says hi",
	}, zap.NewNop())
	require.NoError(t, err)
	return client
}

func TestOpenAIClientGenerateText(t *testing.T) {
	stub := &chatStub{body: chatCompletion(`{"name":"Ember"}`)}
	client := newOpenAITextClient(t, stub)

	text, err := client.GenerateText(t.Context(), "make a character", models.ContentTypeCharacter)
	require.NoError(t, err)
	assert.Equal(t, `{"name":"Ember"}`, text)

	assert.Equal(t, "llama-3.3-70b-versatile", stub.lastRequest["model"])
	assert.Equal(t, float64(2000), stub.lastRequest["max_tokens"])
	messages := stub.lastRequest["messages"].([]any)
	require.Len(t, messages, 2)
	assert.Equal(t, "system", messages[0].(map[string]any)["role"])
	assert.Equal(t, "system says hi", messages[0].(map[string]any)["content"])
	assert.Equal(t, "make a character", messages[1].(map[string]any)["content"])
}

func TestOpenAIClientMapsVendorErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		want   *models.AppError
	}{
		{"rate limit", http.StatusTooManyRequests, models.ErrRateLimited},
		{"bad key", http.StatusUnauthorized, models.ErrInvalidCredential},
		{"bad request", http.StatusBadRequest, models.ErrInvalidRequest},
		{"overloaded", http.StatusServiceUnavailable, models.ErrUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stub := &chatStub{status: tt.status, body: `{"error":{"message":"vendor internal detail","type":"x","code":"y"}}`}
			client := newOpenAITextClient(t, stub)

			_, err := client.GenerateText(t.Context(), "hi", models.ContentTypeGeneral)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.want), "got %v", err)
			assert.NotContains(t, models.AsAppError(err).Message, "vendor internal detail")
		})
	}
}

func TestOpenAIClientEmptyCompletion(t *testing.T) {
	client := newOpenAITextClient(t, &chatStub{body: chatCompletion("")})

	_, err := client.GenerateText(t.Context(), "hi", models.ContentTypeGeneral)
	require.Error(t, err)
	assert.True(t, errors.Is(err, models.ErrUnknown))
	assert.Equal(t, "vendor returned an empty completion", models.AsAppError(err).Message)
}

func TestOpenAIClientTimeout(t *testing.T) {
	slow := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	})
	mux := http.NewServeMux()
	mux.Handle("/v1/chat/completions", slow)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	client, err := ai.NewTextGenerator(ai.TextConfig{
		Provider: ai.ProviderOpenAI,
		BaseURL:  srv.URL + "/v1",
		APIKey:   "gsk_test",
		Model:    "m",
		Timeout:  30 * time.Millisecond,
	}, zap.NewNop())
	require.NoError(t, err)

	_, err = client.GenerateText(t.Context(), "hi", models.ContentTypeGeneral)
	require.Error(t, err)
	assert.True(t, errors.Is(err, models.ErrTimeout))
}

func TestUnconfiguredTextClient(t *testing.T) {
	client, err := ai.NewTextGenerator(ai.TextConfig{Provider: ai.ProviderOpenAI}, zap.NewNop())
	require.NoError(t, err)

	_, err = client.GenerateText(t.Context(), "hi", models.ContentTypeGeneral)
	require.Error(t, err)
	assert.True(t, errors.Is(err, models.ErrConfiguration))
	assert.False(t, models.AsAppError(err).Retryable())
}

func TestNewTextGeneratorRejectsUnknownProvider(t *testing.T) {
	_, err := ai.NewTextGenerator(ai.TextConfig{Provider: "telepathy"}, zap.NewNop())
	assert.Error(t, err)
}

func TestOllamaClientGenerateText(t *testing.T) {
	var received map[string]any
	mux := http.NewServeMux()
	mux.HandleFunc("/api/chat", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&received)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"model":"llama3","created_at":"2024-01-01T00:00:00Z","message":{"role":"assistant","content":"{\"title\":\"Lost Ring\"}"},"done":true,"done_reason":"stop","prompt_eval_count":20,"eval_count":8}`))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	client, err := ai.NewTextGenerator(ai.TextConfig{
		Provider:     ai.ProviderOllama,
		BaseURL:      srv.URL + "/v1",
		Model:        "llama3",
		Timeout:      time.Second,
		MaxTokens:    500,
		SystemPrompt: "sys",
		JSONMode:     true,
	}, zap.NewNop())
	require.NoError(t, err)

	text, err := client.GenerateText(t.Context(), "a quest", models.ContentTypeQuest)
	require.NoError(t, err)
	assert.Equal(t, `{"title":"Lost Ring"}`, text)
	assert.Equal(t, "llama3", received["model"])
	assert.Equal(t, "json", received["format"])
	assert.Equal(t, false, received["stream"])
}

func TestOllamaClientMapsStatusErrors(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/chat", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{}`))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	client, err := ai.NewTextGenerator(ai.TextConfig{Provider: ai.ProviderOllama, BaseURL: srv.URL, Model: "llama3", Timeout: time.Second}, zap.NewNop())
	require.NoError(t, err)

	_, err = client.GenerateText(t.Context(), "hi", models.ContentTypeGeneral)
	require.Error(t, err)
	assert.True(t, errors.Is(err, models.ErrUnavailable), "got %v", err)
}
