package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

const geminiDefaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"

// GeminiAdapter talks to the Google Generative Language API.
type GeminiAdapter struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

func NewGeminiAdapter(apiKey, baseURL string) *GeminiAdapter {
	if baseURL == "" {
		baseURL = geminiDefaultBaseURL
	}
	return &GeminiAdapter{
		apiKey:  apiKey,
		baseURL: baseURL,
		client:  newClient(),
	}
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Role  string       `json:"role"`
	Parts []geminiPart `json:"parts"`
}

func (a *GeminiAdapter) Chat(ctx context.Context, req *ChatRequest) (*ChatResponse, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}

	// Gemini has no system role; the system prompt is prepended to the first
	// user turn. Assistant turns map to role "model".
	var contents []geminiContent
	system := req.systemMessage()
	for _, msg := range req.Messages {
		if msg.Role == "system" {
			continue
		}
		role := "user"
		if msg.Role != "user" {
			role = "model"
		}
		contents = append(contents, geminiContent{
			Role:  role,
			Parts: []geminiPart{{Text: msg.Content}},
		})
	}
	if system != "" && len(contents) > 0 {
		contents[0].Parts[0].Text = system + "\n\n" + contents[0].Parts[0].Text
	}

	generationConfig := map[string]interface{}{}
	setIfPresent(generationConfig, "temperature", req.Temperature)
	setIfPresent(generationConfig, "topP", req.TopP)
	setIfPresent(generationConfig, "maxOutputTokens", req.MaxTokens)

	payload := map[string]interface{}{
		"contents": contents,
	}
	if len(generationConfig) > 0 {
		payload["generationConfig"] = generationConfig
	}

	url := fmt.Sprintf("%s/models/%s:generateContent?key=%s", a.baseURL, req.Model, a.apiKey)

	body, err := postJSON(ctx, a.client, "gemini", url, nil, payload)
	if err != nil {
		return nil, err
	}

	var data struct {
		Candidates []struct {
			Content struct {
				Parts []geminiPart `json:"parts"`
			} `json:"content"`
			FinishReason string `json:"finishReason"`
		} `json:"candidates"`
		UsageMetadata struct {
			PromptTokenCount     int `json:"promptTokenCount"`
			CandidatesTokenCount int `json:"candidatesTokenCount"`
			TotalTokenCount      int `json:"totalTokenCount"`
		} `json:"usageMetadata"`
	}
	if err := json.Unmarshal(body, &data); err != nil {
		return nil, &Error{Kind: KindServer, Provider: "gemini", Message: "failed to decode response: " + err.Error()}
	}
	if len(data.Candidates) == 0 || len(data.Candidates[0].Content.Parts) == 0 {
		return nil, &Error{Kind: KindServer, Provider: "gemini", Message: "response contained no candidates"}
	}

	candidate := data.Candidates[0]
	finishReason := candidate.FinishReason
	if finishReason == "" {
		finishReason = "STOP"
	}

	return &ChatResponse{
		Content:  candidate.Content.Parts[0].Text,
		Model:    req.Model,
		Provider: "gemini",
		Usage: TokenUsage{
			PromptTokens:     data.UsageMetadata.PromptTokenCount,
			CompletionTokens: data.UsageMetadata.CandidatesTokenCount,
			TotalTokens:      data.UsageMetadata.TotalTokenCount,
		},
		FinishReason: finishReason,
		CreatedAt:    time.Now(),
	}, nil
}
