package chat

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/muurk/devicechat/internal/logging"
	"github.com/muurk/devicechat/internal/tracing"
	"github.com/sony/gobreaker/v2"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// DefaultBaseURL is the public Gemini REST endpoint
const DefaultBaseURL = "https://generativelanguage.googleapis.com"

// Default circuit breaker settings
const (
	defaultCBMaxFailures uint32 = 3
	defaultCBTimeout            = 30 * time.Second
	defaultCBInterval           = 60 * time.Second
)

// GeminiOptions configures a GeminiClient
type GeminiOptions struct {
	APIKey  string
	BaseURL string

	// Timeout bounds each request. Zero uses 60s.
	Timeout time.Duration

	// RequestsPerMinute enables client-side limiting when positive
	RequestsPerMinute int

	// BreakerFailures is the number of consecutive failures that opens the
	// circuit. Zero uses 3.
	BreakerFailures uint32

	// BreakerTimeout is how long the circuit stays open. Zero uses 30s.
	BreakerTimeout time.Duration

	// HTTPClient overrides the pooled default client
	HTTPClient *http.Client
}

// GeminiClient talks to the Gemini REST API. It is safe for concurrent use
// and shares one circuit breaker and rate limiter across its sessions.
type GeminiClient struct {
	apiKey  string
	baseURL string
	http    *http.Client
	breaker *gobreaker.CircuitBreaker[string]
	limiter *rate.Limiter
}

// NewGeminiClient creates a client. Returns ErrMissingAPIKey when
// opts.APIKey is empty.
func NewGeminiClient(opts GeminiOptions) (*GeminiClient, error) {
	if strings.TrimSpace(opts.APIKey) == "" {
		return nil, ErrMissingAPIKey
	}

	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = NewHTTPClient(timeout)
	}

	maxFailures := opts.BreakerFailures
	if maxFailures == 0 {
		maxFailures = defaultCBMaxFailures
	}
	cbTimeout := opts.BreakerTimeout
	if cbTimeout == 0 {
		cbTimeout = defaultCBTimeout
	}

	breaker := gobreaker.NewCircuitBreaker[string](gobreaker.Settings{
		Name:        "gemini",
		MaxRequests: 1, // one trial request while half-open
		Interval:    defaultCBInterval,
		Timeout:     cbTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Warn("Circuit breaker state change",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
		// Only transport and server-side failures count against the API.
		// Bad requests, rejected keys and cancellations do not.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled) || !IsRetryable(err)
		},
	})

	var limiter *rate.Limiter
	if opts.RequestsPerMinute > 0 {
		limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(opts.RequestsPerMinute)), 1)
	}

	return &GeminiClient{
		apiKey:  opts.APIKey,
		baseURL: baseURL,
		http:    httpClient,
		breaker: breaker,
		limiter: limiter,
	}, nil
}

// NewSession implements Client
func (c *GeminiClient) NewSession(model, systemInstruction string) Session {
	if model == "" {
		model = DefaultModel
	}
	return &geminiSession{
		client: c,
		model:  model,
		system: systemInstruction,
	}
}

// BreakerState returns the circuit breaker state for diagnostics
func (c *GeminiClient) BreakerState() gobreaker.State {
	return c.breaker.State()
}

func (c *GeminiClient) endpoint(model, method string) string {
	if method == "streamGenerateContent" {
		return fmt.Sprintf("%s/v1beta/models/%s:%s?alt=sse", c.baseURL, model, method)
	}
	return fmt.Sprintf("%s/v1beta/models/%s:%s", c.baseURL, model, method)
}

func (c *GeminiClient) headers() map[string]string {
	return map[string]string{"x-goog-api-key": c.apiKey}
}

// execute runs fn through the limiter and the circuit breaker
func (c *GeminiClient) execute(ctx context.Context, fn func() (string, error)) (string, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return "", fmt.Errorf("rate limiter: %w", err)
		}
	}

	reply, err := c.breaker.Execute(fn)
	if err != nil {
		return "", classifyError(err)
	}
	return reply, nil
}

// geminiSession keeps the conversation client-side. Turns are recorded only
// after a successful reply so a failed send can be retried cleanly.
type geminiSession struct {
	client *GeminiClient
	model  string
	system string

	mu      sync.Mutex
	history []geminiContent
}

// Send implements Session
func (s *geminiSession) Send(ctx context.Context, text string) (string, error) {
	return s.exchange(ctx, text, nil)
}

// SendStream implements Session
func (s *geminiSession) SendStream(ctx context.Context, text string, onDelta func(string)) (string, error) {
	if onDelta == nil {
		onDelta = func(string) {}
	}
	return s.exchange(ctx, text, onDelta)
}

func (s *geminiSession) exchange(ctx context.Context, text string, onDelta func(string)) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stream := onDelta != nil
	ctx, span := tracing.StartSpan(ctx, "chat.send",
		trace.WithAttributes(
			tracing.StringAttr("chat.model", s.model),
			tracing.IntAttr("chat.history_turns", len(s.history)),
			tracing.StringAttr("chat.mode", modeName(stream)),
		),
	)
	defer span.End()

	userTurn := geminiContent{Role: "user", Parts: []geminiPart{{Text: text}}}
	req := geminiRequest{
		Contents: append(append([]geminiContent(nil), s.history...), userTurn),
	}
	if s.system != "" {
		req.SystemInstruction = &geminiContent{Parts: []geminiPart{{Text: s.system}}}
	}

	body, err := json.Marshal(req)
	if err != nil {
		tracing.RecordError(span, err)
		return "", fmt.Errorf("marshal request: %w", err)
	}

	start := time.Now()
	reply, err := s.client.execute(ctx, func() (string, error) {
		if stream {
			return s.client.stream(ctx, s.model, body, onDelta)
		}
		return s.client.generate(ctx, s.model, body)
	})
	if err != nil {
		tracing.RecordError(span, err)
		return "", err
	}

	s.history = append(s.history, userTurn, geminiContent{
		Role:  "model",
		Parts: []geminiPart{{Text: reply}},
	})

	span.SetAttributes(tracing.IntAttr("chat.reply_chars", len(reply)))
	tracing.SetOK(span)
	logging.Debug("Chat reply received",
		zap.String("model", s.model),
		zap.Bool("stream", stream),
		zap.Int("chars", len(reply)),
		zap.Duration("elapsed", time.Since(start)),
	)

	return reply, nil
}

func (c *GeminiClient) generate(ctx context.Context, model string, body []byte) (string, error) {
	respBody, err := doJSONRequest(ctx, c.http, c.endpoint(model, "generateContent"), body, c.headers())
	if err != nil {
		return "", err
	}

	var resp geminiResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return "", &APIError{Kind: KindParse, Err: fmt.Errorf("unmarshal response: %w", err)}
	}

	reply := resp.text()
	if reply == "" {
		return "", &APIError{Kind: KindEmpty, Body: resp.blockReason()}
	}
	return reply, nil
}

func (c *GeminiClient) stream(ctx context.Context, model string, body []byte, onDelta func(string)) (string, error) {
	respBody, err := doStreamRequest(ctx, c.http, c.endpoint(model, "streamGenerateContent"), body, c.headers())
	if err != nil {
		return "", err
	}
	defer respBody.Close()

	var (
		reply strings.Builder
		block string
	)
	err = readSSE(ctx, respBody, func(data []byte) error {
		var chunk geminiResponse
		if err := json.Unmarshal(data, &chunk); err != nil {
			// Skip unparseable lines
			return nil
		}
		if r := chunk.blockReason(); r != "" {
			block = r
		}
		if delta := chunk.text(); delta != "" {
			reply.WriteString(delta)
			onDelta(delta)
		}
		return nil
	})
	if err != nil {
		return "", err
	}

	if reply.Len() == 0 {
		return "", &APIError{Kind: KindEmpty, Body: block}
	}
	return reply.String(), nil
}

func modeName(stream bool) string {
	if stream {
		return "stream"
	}
	return "unary"
}

// --- Gemini API wire types ---

type geminiRequest struct {
	Contents          []geminiContent `json:"contents"`
	SystemInstruction *geminiContent  `json:"systemInstruction,omitempty"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text string `json:"text,omitempty"`
}

type geminiResponse struct {
	Candidates     []geminiCandidate     `json:"candidates"`
	PromptFeedback *geminiPromptFeedback `json:"promptFeedback,omitempty"`
}

type geminiCandidate struct {
	Content      geminiContent `json:"content"`
	FinishReason string        `json:"finishReason,omitempty"`
}

type geminiPromptFeedback struct {
	BlockReason string `json:"blockReason,omitempty"`
}

type geminiErrorBody struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

// text concatenates the text parts of the first candidate
func (r geminiResponse) text() string {
	if len(r.Candidates) == 0 {
		return ""
	}
	var b strings.Builder
	for _, p := range r.Candidates[0].Content.Parts {
		b.WriteString(p.Text)
	}
	return b.String()
}

func (r geminiResponse) blockReason() string {
	if r.PromptFeedback != nil {
		return r.PromptFeedback.BlockReason
	}
	return ""
}

// extractErrorMessage pulls "error.message" out of a Gemini error body,
// falling back to the raw body.
func extractErrorMessage(body []byte) []byte {
	var e geminiErrorBody
	if err := json.Unmarshal(body, &e); err == nil && e.Error.Message != "" {
		if e.Error.Status != "" {
			return []byte(e.Error.Status + ": " + e.Error.Message)
		}
		return []byte(e.Error.Message)
	}
	return body
}

// Compile-time interface checks
var (
	_ Client  = (*GeminiClient)(nil)
	_ Session = (*geminiSession)(nil)
)
