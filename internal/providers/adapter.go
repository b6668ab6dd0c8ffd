package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/sahilhd/unify/internal/utils"
)

const defaultTimeout = 30 * time.Second

// Adapter translates the unified chat schema to one provider's wire format
// and back.
type Adapter interface {
	Chat(ctx context.Context, req *ChatRequest) (*ChatResponse, error)
}

// Factory builds an adapter for a provider given its upstream API key.
type Factory func(apiKey string) Adapter

var factoryMu sync.RWMutex
var factoryRegistry = make(map[string]Factory)

func RegisterFactory(provider string, f Factory) {
	factoryMu.Lock()
	factoryRegistry[provider] = f
	factoryMu.Unlock()
}

// ForProvider returns an adapter for the named provider.
func ForProvider(provider, apiKey string) (Adapter, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("API key not configured for provider: %s", provider)
	}
	factoryMu.RLock()
	f := factoryRegistry[provider]
	factoryMu.RUnlock()
	if f == nil {
		return nil, fmt.Errorf("unsupported provider: %s", provider)
	}
	return f(apiKey), nil
}

func init() {
	RegisterFactory("openai", func(apiKey string) Adapter { return NewOpenAIAdapter(apiKey, "") })
	RegisterFactory("anthropic", func(apiKey string) Adapter { return NewAnthropicAdapter(apiKey, "") })
	RegisterFactory("gemini", func(apiKey string) Adapter { return NewGeminiAdapter(apiKey, "") })
	RegisterFactory("mistral", func(apiKey string) Adapter { return NewMistralAdapter(apiKey, "") })
	RegisterFactory("cohere", func(apiKey string) Adapter { return NewCohereAdapter(apiKey, "") })
}

// postJSON issues a single POST and hands back the decoded body, mapping
// transport failures and non-200 statuses to unified errors.
func postJSON(ctx context.Context, client *http.Client, provider, rawURL string, headers map[string]string, payload map[string]interface{}) ([]byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, &Error{Kind: KindInvalidRequest, Provider: provider, Message: err.Error()}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, rawURL, bytes.NewReader(body))
	if err != nil {
		return nil, &Error{Kind: KindInvalidRequest, Provider: provider, Message: err.Error()}
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		if urlErr, ok := err.(*url.Error); ok && urlErr.Timeout() {
			return nil, &Error{Kind: KindTimeout, Provider: provider, Message: "request timed out"}
		}
		if ctx.Err() == context.DeadlineExceeded {
			return nil, &Error{Kind: KindTimeout, Provider: provider, Message: "request timed out"}
		}
		return nil, &Error{Kind: KindNetwork, Provider: provider, Message: err.Error()}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &Error{Kind: KindNetwork, Provider: provider, Message: err.Error()}
	}

	if resp.StatusCode != http.StatusOK {
		return nil, errorFromStatus(resp.StatusCode, respBody, provider)
	}

	return respBody, nil
}

func newClient() *http.Client {
	return utils.NewHTTPClient(defaultTimeout)
}

// setIfPresent copies optional knobs into a payload map, dropping unset ones.
func setIfPresent(payload map[string]interface{}, key string, value interface{}) {
	switch v := value.(type) {
	case *float64:
		if v != nil {
			payload[key] = *v
		}
	case *int:
		if v != nil {
			payload[key] = *v
		}
	case string:
		if v != "" {
			payload[key] = v
		}
	}
}
