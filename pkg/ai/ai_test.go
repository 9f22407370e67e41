package ai_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jamditis/class/pkg/ai"
)

type capturedRequest struct {
	Model          string `json:"model"`
	MaxTokens      int    `json:"max_tokens"`
	ResponseFormat *struct {
		Type string `json:"type"`
	} `json:"response_format"`
	Messages []struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"messages"`
}

func newCompletionServer(t *testing.T, content string, captured *capturedRequest) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/chat/completions", r.URL.Path)
		require.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(captured))

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"id":     "cmpl-1",
			"object": "chat.completion",
			"model":  "served-model",
			"choices": []map[string]interface{}{{
				"index":         0,
				"finish_reason": "stop",
				"message":       map[string]string{"role": "assistant", "content": content},
			}},
			"usage": map[string]int{"prompt_tokens": 11, "completion_tokens": 7, "total_tokens": 18},
		})
	}))
	t.Cleanup(server.Close)
	return server
}

func TestClientCompleteSendsJSONModeForOpenAI(t *testing.T) {
	var captured capturedRequest
	server := newCompletionServer(t, "  {\"ok\":true}  ", &captured)

	client, err := ai.New(ai.Config{Provider: "openai", APIKey: "test-key", BaseURL: server.URL, Model: "gpt-test"})
	require.NoError(t, err)

	completion, err := client.Complete(context.Background(), ai.Prompt{System: "be terse", User: "score this", MaxTokens: 300, JSON: true})
	require.NoError(t, err)
	require.Equal(t, `{"ok":true}`, completion.Content)
	require.Equal(t, "served-model", completion.Model)
	require.Equal(t, 11, completion.PromptTokens)

	require.Equal(t, "gpt-test", captured.Model)
	require.Equal(t, 300, captured.MaxTokens)
	require.NotNil(t, captured.ResponseFormat)
	require.Equal(t, "json_object", captured.ResponseFormat.Type)
	require.Len(t, captured.Messages, 2)
	require.Equal(t, "system", captured.Messages[0].Role)
}

func TestAnthropicClientOmitsResponseFormat(t *testing.T) {
	var captured capturedRequest
	server := newCompletionServer(t, "{}", &captured)

	client, err := ai.New(ai.Config{Provider: "anthropic", APIKey: "test-key", BaseURL: server.URL + "/"})
	require.NoError(t, err)
	require.Equal(t, "claude-3-5-haiku-latest", client.Model())

	_, err = client.Complete(context.Background(), ai.Prompt{User: "hello", JSON: true})
	require.NoError(t, err)
	require.Nil(t, captured.ResponseFormat)
	require.Len(t, captured.Messages, 1)
	require.Equal(t, 2000, captured.MaxTokens)
}

func TestClientCompleteWrapsProviderErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":{"message":"overloaded","type":"server_error"}}`))
	}))
	defer server.Close()

	client, err := ai.NewOpenAIClient(ai.Config{APIKey: "test-key", BaseURL: server.URL})
	require.NoError(t, err)

	_, err = client.Complete(context.Background(), ai.Prompt{User: "hello"})
	require.Error(t, err)
	require.Contains(t, err.Error(), "openai completion")
}

func TestNewValidatesConfig(t *testing.T) {
	_, err := ai.New(ai.Config{Provider: "openai"})
	require.Error(t, err)

	_, err = ai.New(ai.Config{Provider: "anthropic"})
	require.Error(t, err)

	_, err = ai.New(ai.Config{Provider: "llama", APIKey: "x"})
	require.Error(t, err)
}
