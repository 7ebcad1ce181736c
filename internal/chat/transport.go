package chat

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"
)

// maxResponseBody is the maximum response body size read from the API
const maxResponseBody = 10 * 1024 * 1024 // 10 MB

// Default connection settings
const (
	defaultConnTimeout     = 30 * time.Second
	defaultIdleConnTimeout = 120 * time.Second
	defaultMaxIdleConns    = 10
)

// NewHTTPClient creates an *http.Client with a pooled transport.
// timeout bounds each whole request, including reading a streamed reply.
func NewHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Transport: &http.Transport{
			Proxy: http.ProxyFromEnvironment,
			DialContext: (&net.Dialer{
				Timeout:   defaultConnTimeout,
				KeepAlive: 30 * time.Second,
			}).DialContext,
			TLSHandshakeTimeout: 10 * time.Second,
			MaxIdleConns:        defaultMaxIdleConns,
			MaxIdleConnsPerHost: defaultMaxIdleConns,
			IdleConnTimeout:     defaultIdleConnTimeout,
			ForceAttemptHTTP2:   true,
		},
		Timeout: timeout,
	}
}

func newJSONRequest(ctx context.Context, url string, body []byte, headers map[string]string) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	return req, nil
}

// doJSONRequest performs a JSON POST request and returns the response body.
// Non-200 responses become an *APIError.
func doJSONRequest(ctx context.Context, client *http.Client, url string, body []byte, headers map[string]string) ([]byte, error) {
	req, err := newJSONRequest(ctx, url, body, headers)
	if err != nil {
		return nil, err
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, classifyError(err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return nil, classifyError(fmt.Errorf("read response: %w", err))
	}

	if resp.StatusCode != http.StatusOK {
		return nil, mapHTTPError(resp.StatusCode, extractErrorMessage(respBody))
	}

	return respBody, nil
}

// doStreamRequest performs a JSON POST request for SSE streaming.
// The caller must close the returned body.
func doStreamRequest(ctx context.Context, client *http.Client, url string, body []byte, headers map[string]string) (io.ReadCloser, error) {
	req, err := newJSONRequest(ctx, url, body, headers)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "text/event-stream")

	resp, err := client.Do(req)
	if err != nil {
		return nil, classifyError(err)
	}

	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, mapHTTPError(resp.StatusCode, extractErrorMessage(respBody))
	}

	return resp.Body, nil
}
