package httpclient

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// StatusOverloaded is the non-standard status the backend returns when it
// sheds load.
const StatusOverloaded = 529

// ErrNetwork wraps failures where no HTTP response was received.
var ErrNetwork = errors.New("network error")

// APIError is returned for any non-2xx response that is not retried away.
type APIError struct {
	StatusCode int
	Message    string
	Body       []byte
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("api error: status %d", e.StatusCode)
	}
	return fmt.Sprintf("api error: status %d: %s", e.StatusCode, e.Message)
}

// IsUnauthorized reports a 401.
func (e *APIError) IsUnauthorized() bool { return e.StatusCode == http.StatusUnauthorized }

// IsForbidden reports a 403.
func (e *APIError) IsForbidden() bool { return e.StatusCode == http.StatusForbidden }

// IsNotFound reports a 404.
func (e *APIError) IsNotFound() bool { return e.StatusCode == http.StatusNotFound }

// IsOverloaded reports a 529.
func (e *APIError) IsOverloaded() bool { return e.StatusCode == StatusOverloaded }

// IsServerError reports any 5xx.
func (e *APIError) IsServerError() bool { return e.StatusCode >= 500 }

// AsAPIError unwraps err into an *APIError.
func AsAPIError(err error) (*APIError, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}

// StatusOf returns the HTTP status carried by err, or 0.
func StatusOf(err error) int {
	if apiErr, ok := AsAPIError(err); ok {
		return apiErr.StatusCode
	}
	return 0
}

func newAPIError(status int, body []byte) *APIError {
	return &APIError{StatusCode: status, Message: extractMessage(body), Body: body}
}

// extractMessage pulls a human-readable message out of the common error
// envelopes: {"detail": "..."}, {"detail": [{"msg": "..."}]},
// {"message": "..."} and {"error": "..."} or {"error": {"message": "..."}}.
func extractMessage(body []byte) string {
	if len(body) == 0 {
		return ""
	}
	var env struct {
		Detail  json.RawMessage `json:"detail"`
		Message string          `json:"message"`
		Error   json.RawMessage `json:"error"`
	}
	if err := json.Unmarshal(body, &env); err != nil {
		s := strings.TrimSpace(string(body))
		if len(s) > 200 {
			s = s[:200]
		}
		return s
	}
	if msg := rawMessage(env.Detail); msg != "" {
		return msg
	}
	if env.Message != "" {
		return env.Message
	}
	return rawMessage(env.Error)
}

func rawMessage(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if json.Unmarshal(raw, &s) == nil {
		return s
	}
	var obj struct {
		Message string `json:"message"`
		Msg     string `json:"msg"`
	}
	if json.Unmarshal(raw, &obj) == nil {
		if obj.Message != "" {
			return obj.Message
		}
		return obj.Msg
	}
	var list []struct {
		Msg string `json:"msg"`
		Loc []any  `json:"loc"`
	}
	if json.Unmarshal(raw, &list) == nil {
		msgs := make([]string, 0, len(list))
		for _, item := range list {
			if item.Msg != "" {
				msgs = append(msgs, item.Msg)
			}
		}
		return strings.Join(msgs, "; ")
	}
	return ""
}
