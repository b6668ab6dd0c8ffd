package providers

import "time"

// ChatMessage is a single turn in the unified chat schema.
type ChatMessage struct {
	Role    string `json:"role" binding:"required"`
	Content string `json:"content" binding:"required"`
	Name    string `json:"name,omitempty"`
}

// ChatRequest is the unified request shape every adapter translates from.
// Optional sampling knobs are pointers so that unset values are omitted from
// provider payloads instead of being sent as zeroes.
type ChatRequest struct {
	Model       string        `json:"model"`
	Messages    []ChatMessage `json:"messages"`
	Temperature *float64      `json:"temperature,omitempty"`
	TopP        *float64      `json:"top_p,omitempty"`
	MaxTokens   *int          `json:"max_tokens,omitempty"`
	Stream      bool          `json:"stream,omitempty"`
	User        string        `json:"user,omitempty"`
}

// TokenUsage is the provider-reported token accounting.
type TokenUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// ChatResponse is the unified response shape every adapter translates to.
type ChatResponse struct {
	Content      string     `json:"content"`
	Model        string     `json:"model"`
	Provider     string     `json:"provider"`
	Usage        TokenUsage `json:"usage"`
	FinishReason string     `json:"finish_reason"`
	CreatedAt    time.Time  `json:"created_at"`
}

func (r *ChatRequest) systemMessage() string {
	for _, msg := range r.Messages {
		if msg.Role == "system" {
			return msg.Content
		}
	}
	return ""
}

func (r *ChatRequest) validate() error {
	if len(r.Messages) == 0 {
		return &Error{Kind: KindInvalidRequest, Message: "messages cannot be empty"}
	}
	if r.Model == "" {
		return &Error{Kind: KindInvalidRequest, Message: "model must be specified"}
	}
	if r.Temperature != nil && (*r.Temperature < 0 || *r.Temperature > 2) {
		return &Error{Kind: KindInvalidRequest, Message: "temperature must be between 0 and 2"}
	}
	if r.TopP != nil && (*r.TopP < 0 || *r.TopP > 1) {
		return &Error{Kind: KindInvalidRequest, Message: "top_p must be between 0 and 1"}
	}
	if r.MaxTokens != nil && *r.MaxTokens < 1 {
		return &Error{Kind: KindInvalidRequest, Message: "max_tokens must be at least 1"}
	}
	return nil
}
