package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"lazycook/backend/internal/config"
)

// GrokClient talks to the xAI chat completions endpoint, which follows the
// OpenAI wire shape.
type GrokClient struct {
	apiKey     string
	baseURL    string
	model      string
	httpClient *http.Client
}

func NewGrokClient(cfg config.Config, httpClient *http.Client) *GrokClient {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &GrokClient{
		apiKey:     strings.TrimSpace(cfg.GrokAPIKey),
		baseURL:    strings.TrimRight(strings.TrimSpace(cfg.GrokBaseURL), "/"),
		model:      cfg.GrokModel,
		httpClient: httpClient,
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type grokAPIRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type grokAPIResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// Complete sends the context as a system message and the prompt as the user
// message, returning the first choice's content.
func (c *GrokClient) Complete(ctx context.Context, systemContext, prompt string) (string, error) {
	if c.apiKey == "" {
		return "", ErrMissingGrokKey
	}
	if strings.TrimSpace(prompt) == "" {
		return "", fmt.Errorf("prompt is required")
	}

	messages := make([]chatMessage, 0, 2)
	if strings.TrimSpace(systemContext) != "" {
		messages = append(messages, chatMessage{Role: "system", Content: systemContext})
	}
	messages = append(messages, chatMessage{Role: "user", Content: prompt})

	payload, err := json.Marshal(grokAPIRequest{
		Model:       c.model,
		Messages:    messages,
		Temperature: 0.7,
	})
	if err != nil {
		return "", fmt.Errorf("marshal grok request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("build grok request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("request grok: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
		return "", fmt.Errorf("grok returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var parsed grokAPIResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("decode grok response: %w", err)
	}
	if parsed.Error != nil && parsed.Error.Message != "" {
		return "", fmt.Errorf("grok error: %s", parsed.Error.Message)
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("grok returned no choices")
	}
	return strings.TrimSpace(parsed.Choices[0].Message.Content), nil
}
