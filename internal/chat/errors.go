package chat

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"strings"

	"github.com/sony/gobreaker/v2"
)

var (
	// ErrNoSession is returned by Send before StartSession.
	// Reaching it means the caller skipped the chat setup.
	ErrNoSession = errors.New("chat session not started")

	// ErrMissingAPIKey is returned when the Gemini client has no credential
	ErrMissingAPIKey = errors.New("gemini API key is required")

	ErrRateLimited   = errors.New("rate limited")
	ErrUnauthorized  = errors.New("unauthorized")
	ErrBadRequest    = errors.New("bad request")
	ErrServer        = errors.New("server error")
	ErrNetwork       = errors.New("network error")
	ErrTimeout       = errors.New("request timed out")
	ErrCircuitOpen   = errors.New("circuit open")
	ErrEmptyResponse = errors.New("empty response")
)

// ErrorKind classifies a failed call to the chat API
type ErrorKind int

const (
	KindNetwork ErrorKind = iota
	KindTimeout
	KindRateLimited
	KindUnauthorized
	KindBadRequest
	KindServer
	KindCircuitOpen
	KindParse
	KindEmpty
	KindUnknown
)

// String returns a human-readable name for the error kind
func (k ErrorKind) String() string {
	switch k {
	case KindNetwork:
		return "Network Error"
	case KindTimeout:
		return "Timeout"
	case KindRateLimited:
		return "Rate Limited"
	case KindUnauthorized:
		return "Authentication Error"
	case KindBadRequest:
		return "Bad Request"
	case KindServer:
		return "Server Error"
	case KindCircuitOpen:
		return "Circuit Open"
	case KindParse:
		return "Parse Error"
	case KindEmpty:
		return "Empty Response"
	case KindUnknown:
		return "Unknown Error"
	default:
		return fmt.Sprintf("ErrorKind(%d)", k)
	}
}

// sentinel maps a kind to the error matched by errors.Is
func (k ErrorKind) sentinel() error {
	switch k {
	case KindNetwork:
		return ErrNetwork
	case KindTimeout:
		return ErrTimeout
	case KindRateLimited:
		return ErrRateLimited
	case KindUnauthorized:
		return ErrUnauthorized
	case KindBadRequest:
		return ErrBadRequest
	case KindServer:
		return ErrServer
	case KindCircuitOpen:
		return ErrCircuitOpen
	case KindEmpty:
		return ErrEmptyResponse
	default:
		return nil
	}
}

// APIError describes a failed call to the chat API
type APIError struct {
	Kind       ErrorKind // Category of error
	StatusCode int       // HTTP status code (if applicable)
	Body       string    // Response body excerpt (if applicable)
	Err        error     // Underlying error (if any)
}

// Error implements the error interface
func (e *APIError) Error() string {
	var b strings.Builder
	b.WriteString(e.Kind.String())
	if e.StatusCode != 0 {
		fmt.Fprintf(&b, " (HTTP %d)", e.StatusCode)
	}
	if e.Body != "" {
		fmt.Fprintf(&b, ": %s", e.Body)
	}
	if e.Err != nil {
		fmt.Fprintf(&b, " (caused by: %v)", e.Err)
	}
	return b.String()
}

// Unwrap returns the underlying error for error chain inspection
func (e *APIError) Unwrap() error {
	return e.Err
}

// Is matches the sentinel error for the kind, so callers can write
// errors.Is(err, chat.ErrRateLimited).
func (e *APIError) Is(target error) bool {
	s := e.Kind.sentinel()
	return s != nil && s == target
}

// Retryable reports whether repeating the request may succeed
func (e *APIError) Retryable() bool {
	switch e.Kind {
	case KindNetwork, KindTimeout, KindRateLimited, KindServer, KindCircuitOpen:
		return true
	default:
		return false
	}
}

// maxErrorBody bounds the response excerpt kept on an APIError
const maxErrorBody = 512

// mapHTTPError maps an HTTP status code and response body to an APIError.
func mapHTTPError(statusCode int, body []byte) *APIError {
	excerpt := strings.TrimSpace(string(body))
	if len(excerpt) > maxErrorBody {
		excerpt = excerpt[:maxErrorBody] + "..."
	}

	kind := KindUnknown
	switch {
	case statusCode == http.StatusTooManyRequests:
		kind = KindRateLimited
	case statusCode == http.StatusUnauthorized || statusCode == http.StatusForbidden:
		kind = KindUnauthorized
	case statusCode >= 500:
		kind = KindServer
	case statusCode >= 400:
		kind = KindBadRequest
	}

	return &APIError{
		Kind:       kind,
		StatusCode: statusCode,
		Body:       excerpt,
	}
}

// classifyError wraps a transport-level failure in an APIError.
// Errors that are already APIErrors pass through unchanged.
func classifyError(err error) error {
	if err == nil {
		return nil
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return err
	}

	switch {
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		return &APIError{Kind: KindCircuitOpen, Err: err}
	case errors.Is(err, context.DeadlineExceeded), os.IsTimeout(err):
		return &APIError{Kind: KindTimeout, Err: err}
	case errors.Is(err, context.Canceled):
		// Cancellation is the caller's decision, not an API failure
		return err
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return &APIError{Kind: KindTimeout, Err: err}
		}
		return &APIError{Kind: KindNetwork, Err: err}
	}

	return &APIError{Kind: KindNetwork, Err: err}
}

// IsRetryable checks if an error should be retried
func IsRetryable(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Retryable()
	}
	return false
}

// Hint returns user-friendly troubleshooting advice for an error
func Hint(err error) string {
	if errors.Is(err, ErrMissingAPIKey) {
		return "Set GEMINI_API_KEY (or API_KEY) in the environment or in a .env file."
	}

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return "An unexpected error occurred. Please try again."
	}

	switch apiErr.Kind {
	case KindUnauthorized:
		return strings.Join([]string{
			"The API key was rejected.",
			"Troubleshooting:",
			"  • Check that GEMINI_API_KEY is set to a valid key",
			"  • Make sure the Generative Language API is enabled for the key's project",
		}, "\n")
	case KindRateLimited:
		return "The API rate limit was reached. Wait a moment before sending again."
	case KindServer:
		return fmt.Sprintf("The API returned an error (HTTP %d). Try again shortly.", apiErr.StatusCode)
	case KindCircuitOpen:
		return "Several requests failed in a row. Requests are paused briefly before retrying."
	case KindTimeout:
		return "The API did not respond in time. Check your network connection."
	case KindNetwork:
		return strings.Join([]string{
			"Network communication failed.",
			"Troubleshooting:",
			"  • Check your internet connection",
			"  • Verify any proxy or firewall allows generativelanguage.googleapis.com",
		}, "\n")
	case KindBadRequest:
		return fmt.Sprintf("The API rejected the request (HTTP %d). Check the configured model name.", apiErr.StatusCode)
	default:
		return "An error occurred. Please check the error message for details."
	}
}
