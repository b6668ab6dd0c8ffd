package providers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"
)

const mistralDefaultBaseURL = "https://api.mistral.ai/v1"

// MistralAdapter talks to the Mistral chat completions API, which follows the
// OpenAI request shape.
type MistralAdapter struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

func NewMistralAdapter(apiKey, baseURL string) *MistralAdapter {
	if baseURL == "" {
		baseURL = mistralDefaultBaseURL
	}
	return &MistralAdapter{
		apiKey:  apiKey,
		baseURL: baseURL,
		client:  newClient(),
	}
}

func (a *MistralAdapter) Chat(ctx context.Context, req *ChatRequest) (*ChatResponse, error) {
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

	headers := map[string]string{
		"Authorization": "Bearer " + a.apiKey,
	}

	body, err := postJSON(ctx, a.client, "mistral", a.baseURL+"/chat/completions", headers, payload)
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
		return nil, &Error{Kind: KindServer, Provider: "mistral", Message: "failed to decode response: " + err.Error()}
	}
	if len(data.Choices) == 0 {
		return nil, &Error{Kind: KindServer, Provider: "mistral", Message: "response contained no choices"}
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
		Provider: "mistral",
		Usage: TokenUsage{
			PromptTokens:     data.Usage.PromptTokens,
			CompletionTokens: data.Usage.CompletionTokens,
			TotalTokens:      data.Usage.TotalTokens,
		},
		FinishReason: finishReason,
		CreatedAt:    createdAt,
	}, nil
}
