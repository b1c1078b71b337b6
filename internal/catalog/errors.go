package catalog

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// APIError is returned for responses with a status code above 399. Message
// holds the server-provided reason when the body carried one.
type APIError struct {
	Method  string
	URL     string
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("request failed: %s %s (status: %d): %s", e.Method, e.URL, e.Status, e.Message)
	}
	return fmt.Sprintf("request failed: %s %s (status: %d)", e.Method, e.URL, e.Status)
}

// UserMessage returns the server's message for err when there is one and
// fallback otherwise.
func UserMessage(err error, fallback string) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return fallback
}

// DecodeMessage extracts a human readable message from an error or
// confirmation payload. Recognized shapes are {"message": "..."},
// {"error": "..."} and {"error": {"message": "..."}}. A short plain-text
// body is returned as is.
func DecodeMessage(body []byte) string {
	trimmed := strings.TrimSpace(string(body))
	if trimmed == "" {
		return ""
	}

	var payload struct {
		Message string          `json:"message"`
		Error   json.RawMessage `json:"error"`
	}
	if err := json.Unmarshal([]byte(trimmed), &payload); err != nil {
		if strings.HasPrefix(trimmed, "{") || strings.HasPrefix(trimmed, "[") || len(trimmed) > 500 {
			return ""
		}
		return trimmed
	}
	if payload.Message != "" {
		return payload.Message
	}
	if len(payload.Error) == 0 {
		return ""
	}

	var errString string
	if err := json.Unmarshal(payload.Error, &errString); err == nil {
		return errString
	}
	var errObject struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(payload.Error, &errObject); err == nil {
		return errObject.Message
	}
	return ""
}
