package chat

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"testing"

	"github.com/sony/gobreaker/v2"
)

func TestMapHTTPError(t *testing.T) {
	tests := []struct {
		status    int
		wantKind  ErrorKind
		wantIs    error
		retryable bool
	}{
		{429, KindRateLimited, ErrRateLimited, true},
		{401, KindUnauthorized, ErrUnauthorized, false},
		{403, KindUnauthorized, ErrUnauthorized, false},
		{400, KindBadRequest, ErrBadRequest, false},
		{404, KindBadRequest, ErrBadRequest, false},
		{500, KindServer, ErrServer, true},
		{503, KindServer, ErrServer, true},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprint(tt.status), func(t *testing.T) {
			err := mapHTTPError(tt.status, []byte("body"))
			if err.Kind != tt.wantKind {
				t.Errorf("Kind = %v, want %v", err.Kind, tt.wantKind)
			}
			if !errors.Is(err, tt.wantIs) {
				t.Errorf("errors.Is(%v, %v) = false", err, tt.wantIs)
			}
			if err.Retryable() != tt.retryable {
				t.Errorf("Retryable() = %v, want %v", err.Retryable(), tt.retryable)
			}
		})
	}
}

func TestMapHTTPError_TruncatesBody(t *testing.T) {
	err := mapHTTPError(500, []byte(strings.Repeat("x", 2000)))
	if len(err.Body) != maxErrorBody+3 {
		t.Errorf("len(Body) = %d, want %d", len(err.Body), maxErrorBody+3)
	}
}

func TestAPIError_Error(t *testing.T) {
	err := &APIError{Kind: KindServer, StatusCode: 502, Body: "bad gateway"}
	if got := err.Error(); got != "Server Error (HTTP 502): bad gateway" {
		t.Errorf("Error() = %q", got)
	}

	wrapped := &APIError{Kind: KindNetwork, Err: errors.New("reset")}
	if got := wrapped.Error(); got != "Network Error (caused by: reset)" {
		t.Errorf("Error() = %q", got)
	}
}

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "i/o timeout" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

func TestClassifyError(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		wantIs error
	}{
		{"breaker open", gobreaker.ErrOpenState, ErrCircuitOpen},
		{"half-open request limit", gobreaker.ErrTooManyRequests, ErrCircuitOpen},
		{"deadline", fmt.Errorf("post: %w", context.DeadlineExceeded), ErrTimeout},
		{"net timeout", &net.OpError{Op: "read", Net: "tcp", Err: timeoutErr{}}, ErrTimeout},
		{"net other", &net.OpError{Op: "dial", Net: "tcp", Err: errors.New("refused")}, ErrNetwork},
		{"plain", errors.New("boom"), ErrNetwork},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := classifyError(tt.err); !errors.Is(got, tt.wantIs) {
				t.Errorf("classifyError() = %v, want %v", got, tt.wantIs)
			}
		})
	}
}

func TestClassifyError_PassThrough(t *testing.T) {
	if classifyError(nil) != nil {
		t.Error("classifyError(nil) should be nil")
	}

	if got := classifyError(context.Canceled); got != context.Canceled {
		t.Errorf("classifyError(Canceled) = %v, want unchanged", got)
	}

	orig := &APIError{Kind: KindRateLimited}
	if got := classifyError(fmt.Errorf("wrap: %w", orig)); !errors.Is(got, ErrRateLimited) {
		t.Errorf("classifyError() lost the APIError: %v", got)
	}
}

func TestHint(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"missing key", ErrMissingAPIKey, "GEMINI_API_KEY"},
		{"unauthorized", &APIError{Kind: KindUnauthorized}, "rejected"},
		{"rate", &APIError{Kind: KindRateLimited}, "rate limit"},
		{"server", &APIError{Kind: KindServer, StatusCode: 503}, "503"},
		{"unknown", errors.New("x"), "unexpected"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Hint(tt.err); !strings.Contains(got, tt.want) {
				t.Errorf("Hint() = %q, should contain %q", got, tt.want)
			}
		})
	}
}
