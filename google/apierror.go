package google

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

// APIError is a non-2xx response from a Google API, with the upstream message
// preserved verbatim for logs and user-facing detail.
type APIError struct {
	Service    string
	StatusCode int
	Reason     string
	Message    string
}

func (e *APIError) Error() string {
	if e == nil {
		return "google: api error"
	}
	detail := strings.TrimSpace(e.Message)
	if detail == "" {
		detail = strings.TrimSpace(e.Reason)
	}
	if detail == "" {
		detail = http.StatusText(e.StatusCode)
	}
	return fmt.Sprintf("google: %s api error (%d): %s", e.Service, e.StatusCode, detail)
}

// Unauthorized reports an invalid or expired access token. Callers invalidate
// their cached token and re-resolve on this.
func (e *APIError) Unauthorized() bool {
	return e != nil && e.StatusCode == http.StatusUnauthorized
}

// PermissionDenied covers both missing OAuth scopes and exhausted quota.
func (e *APIError) PermissionDenied() bool {
	return e != nil && e.StatusCode == http.StatusForbidden
}

func (e *APIError) NotFound() bool {
	return e != nil && e.StatusCode == http.StatusNotFound
}

type apiErrorEnvelope struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
		Errors  []struct {
			Reason  string `json:"reason"`
			Message string `json:"message"`
		} `json:"errors"`
	} `json:"error"`
}

// NewAPIError parses Google's standard error envelope out of a failed
// response body, falling back to the raw text when the body is not JSON.
func NewAPIError(service string, statusCode int, body []byte) *APIError {
	apiErr := &APIError{
		Service:    strings.TrimSpace(service),
		StatusCode: statusCode,
	}
	var envelope apiErrorEnvelope
	if err := json.Unmarshal(body, &envelope); err == nil && strings.TrimSpace(envelope.Error.Message) != "" {
		apiErr.Message = strings.TrimSpace(envelope.Error.Message)
		apiErr.Reason = strings.TrimSpace(envelope.Error.Status)
		if apiErr.Reason == "" && len(envelope.Error.Errors) > 0 {
			apiErr.Reason = strings.TrimSpace(envelope.Error.Errors[0].Reason)
		}
		return apiErr
	}
	apiErr.Message = strings.TrimSpace(string(body))
	return apiErr
}
