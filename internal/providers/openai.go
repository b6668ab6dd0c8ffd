package providers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"
)

const openAIDefaultBaseURL = "https://api.openai.com/v1"

// OpenAIAdapter talks to the OpenAI chat completions API.
type OpenAIAdapter struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

func NewOpenAIAdapter(apiKey, baseURL string) *OpenAIAdapter {
	if baseURL == "" {
		baseURL = openAIDefaultBaseURL
	}
	return &OpenAIAdapter{
		apiKey:  apiKey,
		baseURL: baseURL,
		client:  newClient(),
	}
}

func (a *OpenAIAdapter) Chat(ctx context.Context, req *ChatRequest) (*ChatResponse, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}

	payload := map[string]interface{}{
		"model":    req.Model,
		"messages": req.Messages,
		"stream":   false,
	}
	setIfPresent(payload, "temperature", req.Temperature)
	setIfPresent(payload, "top_p", req.TopP)
	setIfPresent(payload, "max_tokens", req.MaxTokens)
	setIfPresent(payload, "user", req.User)

	headers := map[string]string{
		"Authorization": "Bearer " + a.apiKey,
	}

	body, err := postJSON(ctx, a.client, "openai", a.baseURL+"/chat/completions", headers, payload)
	if err != nil {
		return nil, err
	}

	var data struct {
		Created int64 `json:"created"`
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
			FinishReason string `json:"finish_reason"`
		} `json:"choices"`
		Usage struct {
			PromptTokens     int `json:"prompt_tokens"`
			CompletionTokens int `json:"completion_tokens"`
			TotalTokens      int `json:"total_tokens"`
		} `json:"usage"`
	}
	if err := json.Unmarshal(body, &data); err != nil {
		return nil, &Error{Kind: KindServer, Provider: "openai", Message: "failed to decode response: " + err.Error()}
	}
	if len(data.Choices) == 0 {
		return nil, &Error{Kind: KindServer, Provider: "openai", Message: "response contained no choices"}
	}

	createdAt := time.Now()
	if data.Created > 0 {
		createdAt = time.Unix(data.Created, 0)
	}

	choice := data.Choices[0]
	finishReason := choice.FinishReason
	if finishReason == "" {
		finishReason = "stop"
	}

	return &ChatResponse{
		Content:  choice.Message.Content,
		Model:    req.Model,
		Provider: "openai",
		Usage: TokenUsage{
			PromptTokens:     data.Usage.PromptTokens,
			CompletionTokens: data.Usage.CompletionTokens,
			TotalTokens:      data.Usage.TotalTokens,
		},
		FinishReason: finishReason,
		CreatedAt:    createdAt,
	}, nil
}
