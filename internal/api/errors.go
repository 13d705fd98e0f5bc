package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrUnauthorized matches errors for 401 responses. The session has
	// already been cleared when it is returned.
	ErrUnauthorized = errors.New("authentication invalid")

	// ErrNetwork matches errors for calls that got no response at all
	ErrNetwork = errors.New("network error")
)

const networkErrorMessage = "network error: unable to reach server"

// Error is returned for non-2xx responses and transport failures.
// Message is what the user should see.
type Error struct {
	StatusCode int // 0 when no response was received
	Message    string
	Err        error
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether e belongs to one of the package's error classes
func (e *Error) Is(target error) bool {
	switch target {
	case ErrUnauthorized:
		return e.StatusCode == http.StatusUnauthorized
	case ErrNetwork:
		return e.StatusCode == 0
	}
	return false
}

// StatusCode returns the HTTP status carried by err, or 0
func StatusCode(err error) int {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode
	}
	return 0
}

// errorMessage picks the most specific message in an error body: a string
// "detail", the first validation "msg" of a list "detail", then "message",
// then "error".
func errorMessage(status int, body []byte) string {
	var payload struct {
		Detail  json.RawMessage `json:"detail"`
		Message string          `json:"message"`
		Error   string          `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err == nil {
		if len(payload.Detail) > 0 {
			var detail string
			if err := json.Unmarshal(payload.Detail, &detail); err == nil && detail != "" {
				return detail
			}

			var items []struct {
				Msg string `json:"msg"`
			}
			if err := json.Unmarshal(payload.Detail, &items); err == nil && len(items) > 0 && items[0].Msg != "" {
				return items[0].Msg
			}
		}
		if payload.Message != "" {
			return payload.Message
		}
		if payload.Error != "" {
			return payload.Error
		}
	}

	return fmt.Sprintf("request failed with status %d", status)
}
