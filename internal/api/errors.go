package api

import (
	"errors"
	"fmt"
	"strings"
)

// Common errors returned by the client.
var (
	// ErrNetwork indicates the request never produced an HTTP response.
	ErrNetwork = errors.New("network error")

	// ErrInvalidResponse indicates a response body that could not be decoded.
	ErrInvalidResponse = errors.New("invalid response from server")
)

// APIError is a non-2xx response from the backend.
type APIError struct {
	StatusCode int
	Message    string // "error" field of the response body, if any
	Path       string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("API error (status %d) on %s: %s", e.StatusCode, e.Path, e.Message)
	}
	return fmt.Sprintf("API error (status %d) on %s", e.StatusCode, e.Path)
}

// IsAPIError returns true if err carries an *APIError.
func IsAPIError(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr)
}

// IsNotFound returns true if the backend answered 404.
func IsNotFound(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == 404
	}
	return false
}

// ServerMessage returns the backend's error text, or "" if err is not an
// *APIError or the body carried no message.
func ServerMessage(err error) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Message
	}
	return ""
}

// UserMessage converts a client error into the text shown to the user:
// the server's message for API errors (or fallback when it sent none), and
// "Network error: ..." for anything that never produced a usable response.
func UserMessage(err error, fallback string) string {
	if err == nil {
		return ""
	}
	if IsAPIError(err) {
		if msg := ServerMessage(err); msg != "" {
			return msg
		}
		return fallback
	}
	return "Network error: " + networkCause(err)
}

// networkCause strips our sentinel prefixes so the user sees the underlying cause.
func networkCause(err error) string {
	msg := err.Error()
	for _, prefix := range []string{ErrNetwork.Error() + ": ", ErrInvalidResponse.Error() + ": "} {
		msg = strings.TrimPrefix(msg, prefix)
	}
	return msg
}
