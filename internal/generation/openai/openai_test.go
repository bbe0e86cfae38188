package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"askmynotes/internal/domain"
)

func newTestModel(t *testing.T, handler http.HandlerFunc) *Model {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewWithAPIKey("test-key", Config{BaseURL: server.URL + "/v1/", Model: "test-model"})
}

func TestComplete_SendsConversation(t *testing.T) {
	var body struct {
		Model    string `json:"model"`
		Messages []struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"messages"`
	}
	m := newTestModel(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":      "cmpl-1",
			"object":  "chat.completion",
			"created": 0,
			"model":   "test-model",
			"choices": []map[string]any{{
				"index":         0,
				"finish_reason": "stop",
				"message":       map[string]any{"role": "assistant", "content": `{"answer":"ok"}`},
			}},
		})
	})

	got, err := m.Complete(context.Background(), "system rules",
		[]domain.Message{{Role: domain.RoleUser, Content: "earlier"}, {Role: domain.RoleAssistant, Content: "reply"}},
		"now")
	require.NoError(t, err)
	assert.Equal(t, `{"answer":"ok"}`, got)

	assert.Equal(t, "test-model", body.Model)
	require.Len(t, body.Messages, 4)
	roles := []string{body.Messages[0].Role, body.Messages[1].Role, body.Messages[2].Role, body.Messages[3].Role}
	assert.Equal(t, []string{"system", "user", "assistant", "user"}, roles)
	assert.Equal(t, "now", body.Messages[3].Content)
}

func TestComplete_RateLimitMapsToSentinel(t *testing.T) {
	calls := 0
	m := newTestModel(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"message":"slow down","type":"rate_limit"}}`))
	})

	_, err := m.Complete(context.Background(), "s", nil, "q")
	assert.ErrorIs(t, err, domain.ErrRateLimited)
	assert.Equal(t, 1, calls, "sdk retries must be disabled")
}

func TestComplete_ServerErrorIsProviderError(t *testing.T) {
	m := newTestModel(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":{"message":"boom"}}`))
	})

	_, err := m.Complete(context.Background(), "s", nil, "q")
	assert.ErrorIs(t, err, domain.ErrProvider)
	assert.NotErrorIs(t, err, domain.ErrRateLimited)
}

func TestNew_RequiresKey(t *testing.T) {
	t.Setenv("ASKMYNOTES_TEST_EMPTY_KEY", "")
	_, err := New(Config{APIKeyEnv: "ASKMYNOTES_TEST_EMPTY_KEY"})
	assert.ErrorIs(t, err, domain.ErrInvalidConfig)
}
