package llm

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

func TestNewOpenAIClient_RequiresKey(t *testing.T) {
	_, err := NewOpenAIClient(Config{})
	require.Error(t, err)

	client, err := NewOpenAIClient(Config{APIKey: "sk-test"})
	require.NoError(t, err)
	assert.Equal(t, defaultBaseURL, client.BaseURL)
	assert.Equal(t, 30*time.Second, client.Timeout)
}

func TestOpenAIClient_ChatCompletionWithUsage(t *testing.T) {
	var gotAuth string
	var gotBody []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		gotAuth = r.Header.Get("Authorization")
		gotBody, _ = io.ReadAll(r.Body)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"model": "gpt-4.1-mini-2025",
			"choices": [{"message": {"role": "assistant", "content": "hello"}}],
			"usage": {"prompt_tokens": 12, "completion_tokens": 3, "total_tokens": 15}
		}`))
	}))
	defer srv.Close()

	client, err := NewOpenAIClient(Config{APIKey: "sk-test", BaseURL: srv.URL + "/", Temperature: 0.2})
	require.NoError(t, err)

	resp, err := client.ChatCompletionWithUsage(context.Background(), "gpt-4.1-mini", "say hello", 0)
	require.NoError(t, err)
	assert.Equal(t, "hello", resp.Content)
	require.NotNil(t, resp.Usage)
	assert.Equal(t, 15, resp.Usage.TotalTokens)
	assert.Equal(t, "gpt-4.1-mini-2025", resp.Usage.Model)
	assert.Equal(t, "openai", resp.Usage.Provider)

	assert.Equal(t, "Bearer sk-test", gotAuth)
	assert.Equal(t, "gpt-4.1-mini", gjson.GetBytes(gotBody, "model").String())
	assert.Equal(t, int64(1024), gjson.GetBytes(gotBody, "max_tokens").Int())
	assert.Equal(t, "say hello", gjson.GetBytes(gotBody, "messages.1.content").String())
}

func TestOpenAIClient_Errors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr string
	}{
		{"http error with message", http.StatusUnauthorized, `{"error": {"message": "bad key"}}`, "openai http 401: bad key"},
		{"missing choices", http.StatusOK, `{"choices": []}`, "missing choices"},
		{"invalid json", http.StatusOK, `not json`, "invalid JSON"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			client, err := NewOpenAIClient(Config{APIKey: "sk-test", BaseURL: srv.URL})
			require.NoError(t, err)
			_, err = client.ChatCompletion(context.Background(), "gpt-4.1-mini", "hi", 50)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestOpenAIClient_MissingModel(t *testing.T) {
	client, err := NewOpenAIClient(Config{APIKey: "sk-test"})
	require.NoError(t, err)
	_, err = client.ChatCompletion(context.Background(), " ", "hi", 50)
	assert.EqualError(t, err, "missing model")
}

func TestMockLLMClient(t *testing.T) {
	m := &MockLLMClient{}
	out, err := m.ChatCompletion(context.Background(), "m", "p", 10)
	require.NoError(t, err)
	assert.True(t, gjson.Valid(out))

	m.Error = errors.New("down")
	_, err = m.ChatCompletion(context.Background(), "m", "p", 10)
	assert.EqualError(t, err, "down")
	assert.Equal(t, 2, m.Calls)
}
