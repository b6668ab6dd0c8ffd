package providers

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// Kind categorizes upstream failures so the gateway can pick a response code
// without inspecting provider-specific payloads.
type Kind int

const (
	KindAuthentication Kind = iota + 1
	KindRateLimit
	KindQuotaExceeded
	KindModelNotFound
	KindInvalidRequest
	KindServer
	KindTimeout
	KindNetwork
)

func (k Kind) String() string {
	switch k {
	case KindAuthentication:
		return "authentication"
	case KindRateLimit:
		return "rate_limit"
	case KindQuotaExceeded:
		return "quota_exceeded"
	case KindModelNotFound:
		return "model_not_found"
	case KindInvalidRequest:
		return "invalid_request"
	case KindServer:
		return "server"
	case KindTimeout:
		return "timeout"
	case KindNetwork:
		return "network"
	}
	return "unknown"
}

// Error is the unified upstream error.
type Error struct {
	Kind       Kind
	Provider   string
	StatusCode int
	Message    string
}

func (e *Error) Error() string {
	if e.Provider != "" {
		return fmt.Sprintf("%s: %s error: %s", e.Provider, e.Kind, e.Message)
	}
	return fmt.Sprintf("%s error: %s", e.Kind, e.Message)
}

// HTTPStatus maps the error kind to the status the gateway should return.
func (e *Error) HTTPStatus() int {
	switch e.Kind {
	case KindAuthentication:
		return http.StatusUnauthorized
	case KindRateLimit:
		return http.StatusTooManyRequests
	case KindQuotaExceeded:
		return http.StatusPaymentRequired
	case KindModelNotFound, KindInvalidRequest:
		return http.StatusBadRequest
	case KindTimeout:
		return http.StatusGatewayTimeout
	case KindNetwork:
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

// errorFromStatus converts an upstream HTTP error into an Error. The message
// is pulled from the conventional {"error": {"message": ...}} envelope when
// present, otherwise the raw body is used.
func errorFromStatus(statusCode int, body []byte, provider string) *Error {
	message := extractErrorMessage(body)

	kind := KindServer
	switch {
	case statusCode == http.StatusUnauthorized:
		kind = KindAuthentication
	case statusCode == http.StatusTooManyRequests:
		kind = KindRateLimit
	case statusCode == http.StatusPaymentRequired || statusCode == http.StatusForbidden:
		kind = KindQuotaExceeded
	case statusCode == http.StatusNotFound:
		kind = KindModelNotFound
	case statusCode == http.StatusBadRequest || statusCode == http.StatusUnprocessableEntity:
		kind = KindInvalidRequest
	}

	return &Error{
		Kind:       kind,
		Provider:   provider,
		StatusCode: statusCode,
		Message:    message,
	}
}

func extractErrorMessage(body []byte) string {
	var envelope struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &envelope); err == nil {
		if envelope.Error.Message != "" {
			return envelope.Error.Message
		}
		if envelope.Message != "" {
			return envelope.Message
		}
	}
	if len(body) > 0 {
		const max = 500
		if len(body) > max {
			return string(body[:max])
		}
		return string(body)
	}
	return "unknown error"
}

// isRetryable reports whether an upstream failure is worth another attempt.
// Only 5xx overload-style responses qualify.
func isRetryable(err error) bool {
	pe, ok := err.(*Error)
	if !ok {
		return false
	}
	return pe.Kind == KindServer && pe.StatusCode >= 500
}
