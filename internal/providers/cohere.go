package providers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"
)

const cohereDefaultBaseURL = "https://api.cohere.ai/v1"

// CohereAdapter talks to the Cohere chat API. Cohere takes a single message
// string plus chat history rather than a message list, so the conversation is
// flattened before dispatch.
type CohereAdapter struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

func NewCohereAdapter(apiKey, baseURL string) *CohereAdapter {
	if baseURL == "" {
		baseURL = cohereDefaultBaseURL
	}
	return &CohereAdapter{
		apiKey:  apiKey,
		baseURL: baseURL,
		client:  newClient(),
	}
}

func (a *CohereAdapter) Chat(ctx context.Context, req *ChatRequest) (*ChatResponse, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}

	// The last user turn becomes the message; everything before it becomes
	// chat_history with Cohere's USER/CHATBOT role names.
	var history []map[string]string
	var message string
	for i, msg := range req.Messages {
		if i == len(req.Messages)-1 && msg.Role == "user" {
			message = msg.Content
			continue
		}
		role := "USER"
		switch msg.Role {
		case "assistant":
			role = "CHATBOT"
		case "system":
			role = "SYSTEM"
		}
		history = append(history, map[string]string{
			"role":    role,
			"message": msg.Content,
		})
	}
	if message == "" {
		var parts []string
		for _, msg := range req.Messages {
			parts = append(parts, msg.Content)
		}
		message = strings.Join(parts, "\n")
		history = nil
	}

	payload := map[string]interface{}{
		"model":   req.Model,
		"message": message,
	}
	if len(history) > 0 {
		payload["chat_history"] = history
	}
	setIfPresent(payload, "temperature", req.Temperature)
	setIfPresent(payload, "p", req.TopP)
	setIfPresent(payload, "max_tokens", req.MaxTokens)

	headers := map[string]string{
		"Authorization": "Bearer " + a.apiKey,
	}

	body, err := postJSON(ctx, a.client, "cohere", a.baseURL+"/chat", headers, payload)
	if err != nil {
		return nil, err
	}

	var data struct {
		Text         string `json:"text"`
		FinishReason string `json:"finish_reason"`
		Meta         struct {
			BilledUnits struct {
				InputTokens  int `json:"input_tokens"`
				OutputTokens int `json:"output_tokens"`
			} `json:"billed_units"`
		} `json:"meta"`
	}
	if err := json.Unmarshal(body, &data); err != nil {
		return nil, &Error{Kind: KindServer, Provider: "cohere", Message: "failed to decode response: " + err.Error()}
	}
	if data.Text == "" {
		return nil, &Error{Kind: KindServer, Provider: "cohere", Message: "response contained no text"}
	}

	finishReason := data.FinishReason
	if finishReason == "" {
		finishReason = "COMPLETE"
	}

	in := data.Meta.BilledUnits.InputTokens
	out := data.Meta.BilledUnits.OutputTokens

	return &ChatResponse{
		Content:  data.Text,
		Model:    req.Model,
		Provider: "cohere",
		Usage: TokenUsage{
			PromptTokens:     in,
			CompletionTokens: out,
			TotalTokens:      in + out,
		},
		FinishReason: finishReason,
		CreatedAt:    time.Now(),
	}, nil
}
