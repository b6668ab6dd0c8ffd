package providers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"
)

const (
	anthropicDefaultBaseURL = "https://api.anthropic.com/v1"
	anthropicVersion        = "2023-06-01"
	anthropicDefaultMaxTok  = 4096
	anthropicMaxAttempts    = 3
)

// AnthropicAdapter talks to the Anthropic messages API. Overloaded upstream
// responses (529 and other 5xx) are retried with exponential backoff, up to
// three attempts.
type AnthropicAdapter struct {
	apiKey  string
	baseURL string
	client  *http.Client

	// backoff base, shortened in tests
	retryBase time.Duration
}

func NewAnthropicAdapter(apiKey, baseURL string) *AnthropicAdapter {
	if baseURL == "" {
		baseURL = anthropicDefaultBaseURL
	}
	return &AnthropicAdapter{
		apiKey:    apiKey,
		baseURL:   baseURL,
		client:    newClient(),
		retryBase: time.Second,
	}
}

func (a *AnthropicAdapter) Chat(ctx context.Context, req *ChatRequest) (*ChatResponse, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}

	// System turns are carried in a dedicated field, not the message list.
	messages := make([]ChatMessage, 0, len(req.Messages))
	for _, msg := range req.Messages {
		if msg.Role == "system" {
			continue
		}
		messages = append(messages, ChatMessage{Role: msg.Role, Content: msg.Content})
	}

	payload := map[string]interface{}{
		"model":      req.Model,
		"messages":   messages,
		"max_tokens": anthropicDefaultMaxTok,
	}
	setIfPresent(payload, "temperature", req.Temperature)
	setIfPresent(payload, "top_p", req.TopP)
	setIfPresent(payload, "max_tokens", req.MaxTokens)
	if system := req.systemMessage(); system != "" {
		payload["system"] = system
	}

	headers := map[string]string{
		"x-api-key":         a.apiKey,
		"anthropic-version": anthropicVersion,
	}

	var body []byte
	var err error
	for attempt := 0; attempt < anthropicMaxAttempts; attempt++ {
		if attempt > 0 {
			backoff := a.retryBase << (attempt - 1)
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return nil, &Error{Kind: KindTimeout, Provider: "anthropic", Message: "request timed out"}
			}
		}

		body, err = postJSON(ctx, a.client, "anthropic", a.baseURL+"/messages", headers, payload)
		if err == nil || !isRetryable(err) {
			break
		}
	}
	if err != nil {
		return nil, err
	}

	var data struct {
		Content []struct {
			Text string `json:"text"`
		} `json:"content"`
		StopReason string `json:"stop_reason"`
		Usage      struct {
			InputTokens  int `json:"input_tokens"`
			OutputTokens int `json:"output_tokens"`
		} `json:"usage"`
	}
	if err := json.Unmarshal(body, &data); err != nil {
		return nil, &Error{Kind: KindServer, Provider: "anthropic", Message: "failed to decode response: " + err.Error()}
	}
	if len(data.Content) == 0 {
		return nil, &Error{Kind: KindServer, Provider: "anthropic", Message: "response contained no content blocks"}
	}

	finishReason := data.StopReason
	if finishReason == "" {
		finishReason = "end_turn"
	}

	return &ChatResponse{
		Content:  data.Content[0].Text,
		Model:    req.Model,
		Provider: "anthropic",
		Usage: TokenUsage{
			PromptTokens:     data.Usage.InputTokens,
			CompletionTokens: data.Usage.OutputTokens,
			TotalTokens:      data.Usage.InputTokens + data.Usage.OutputTokens,
		},
		FinishReason: finishReason,
		CreatedAt:    time.Now(),
	}, nil
}
