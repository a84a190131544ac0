package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"sensetrack/ports"
)

const defaultBaseURL = "https://api.openai.com/v1"

// Config holds LLM client configuration
type Config struct {
	Model       string        // e.g., "gpt-4.1-mini"
	APIKey      string        // OpenAI API key
	BaseURL     string        // Optional override (default: https://api.openai.com/v1)
	Temperature float64       // 0.0-1.0, lower = more deterministic
	MaxTokens   int           // Max tokens in response
	Timeout     time.Duration // Request timeout
}

// NewOpenAIClient creates a client for an OpenAI-compatible chat completions API
func NewOpenAIClient(config Config) (*OpenAIClient, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("missing OpenAI API key")
	}

	baseURL := strings.TrimSpace(config.BaseURL)
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	timeout := config.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &OpenAIClient{
		APIKey:      config.APIKey,
		BaseURL:     baseURL,
		Timeout:     timeout,
		Temperature: config.Temperature,
		httpClient:  &http.Client{Timeout: timeout},
	}, nil
}

// OpenAIClient implements ports.LLMClient for OpenAI
type OpenAIClient struct {
	APIKey      string
	BaseURL     string
	Timeout     time.Duration
	Temperature float64

	httpClient *http.Client
}

var _ ports.LLMClient = (*OpenAIClient)(nil)

func (c *OpenAIClient) ChatCompletion(ctx context.Context, model string, prompt string, maxTokens int) (string, error) {
	resp, err := c.ChatCompletionWithUsage(ctx, model, prompt, maxTokens)
	if err != nil {
		return "", err
	}
	return resp.Content, nil
}

func (c *OpenAIClient) ChatCompletionWithUsage(ctx context.Context, model string, prompt string, maxTokens int) (*ports.LLMResponse, error) {
	if strings.TrimSpace(model) == "" {
		return nil, fmt.Errorf("missing model")
	}
	if maxTokens <= 0 {
		maxTokens = 1024
	}

	// Chat Completions API (kept minimal: one system + one user message)
	type msg struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	}
	type reqBody struct {
		Model       string  `json:"model"`
		Messages    []msg   `json:"messages"`
		Temperature float64 `json:"temperature,omitempty"`
		MaxTokens   int     `json:"max_tokens,omitempty"`
	}
	body := reqBody{
		Model: model,
		Messages: []msg{
			{Role: "system", Content: "You support caregivers of autistic children. Be concrete, kind and brief. Output exactly what the user asks for."},
			{Role: "user", Content: prompt},
		},
		Temperature: c.Temperature,
		MaxTokens:   maxTokens,
	}

	raw, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	client := c.httpClient
	if client == nil {
		client = &http.Client{Timeout: c.Timeout}
	}
	url := strings.TrimRight(c.BaseURL, "/") + "/chat/completions"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.APIKey)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("openai request failed: %w", err)
	}
	defer resp.Body.Close()

	respRaw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := gjson.GetBytes(respRaw, "error.message").String()
		if msg == "" {
			msg = string(respRaw)
		}
		return nil, fmt.Errorf("openai http %d: %s", resp.StatusCode, msg)
	}

	if !gjson.ValidBytes(respRaw) {
		return nil, fmt.Errorf("unmarshal response: invalid JSON")
	}
	content := gjson.GetBytes(respRaw, "choices.0.message.content")
	if !content.Exists() {
		return nil, fmt.Errorf("openai response missing choices")
	}

	out := &ports.LLMResponse{Content: content.String()}
	if usage := gjson.GetBytes(respRaw, "usage"); usage.Exists() {
		out.Usage = &ports.UsageData{
			PromptTokens:     int(usage.Get("prompt_tokens").Int()),
			CompletionTokens: int(usage.Get("completion_tokens").Int()),
			TotalTokens:      int(usage.Get("total_tokens").Int()),
			Model:            gjson.GetBytes(respRaw, "model").String(),
			Provider:         "openai",
		}
		if out.Usage.Model == "" {
			out.Usage.Model = model
		}
	}
	return out, nil
}

// MockLLMClient is a mock LLM client for testing and offline runs
type MockLLMClient struct {
	Response string // Set this for testing
	Error    error  // Set this to simulate errors
	Calls    int
}

var _ ports.LLMClient = (*MockLLMClient)(nil)

func (m *MockLLMClient) ChatCompletion(ctx context.Context, model string, prompt string, maxTokens int) (string, error) {
	resp, err := m.ChatCompletionWithUsage(ctx, model, prompt, maxTokens)
	if err != nil {
		return "", err
	}
	return resp.Content, nil
}

func (m *MockLLMClient) ChatCompletionWithUsage(ctx context.Context, model string, prompt string, maxTokens int) (*ports.LLMResponse, error) {
	m.Calls++
	if m.Error != nil {
		return nil, m.Error
	}
	if m.Response != "" {
		return &ports.LLMResponse{Content: m.Response}, nil
	}
	// Default mock response
	return &ports.LLMResponse{Content: `{
		"summary": "Transitions are getting easier and afternoons are the hardest time of day.",
		"insights": [
			"Give a five minute warning before leaving the playground.",
			"Plan quiet time after lunch on school days."
		]
	}`}, nil
}
