package chat

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/muurk/devicechat/internal/device"
	"github.com/muurk/devicechat/internal/logging"
	"github.com/muurk/devicechat/internal/tracing"
	"go.uber.org/zap"
)

// ProxyOptions configures a Proxy
type ProxyOptions struct {
	// Model is the model identifier for new sessions
	Model string

	// Timeout bounds each send when positive
	Timeout time.Duration
}

// Proxy owns at most one live chat session. Remote failures never reach the
// caller: Send and SendStream log the cause and reply with FallbackMessage.
//
// Overlapping sends are safe but their order is undefined; callers are
// expected to issue one send at a time.
type Proxy struct {
	client Client
	opts   ProxyOptions
	logger *zap.Logger

	mu      sync.Mutex
	session Session
}

// NewProxy creates a proxy over client. A nil logger uses the global one.
func NewProxy(client Client, opts ProxyOptions, logger *zap.Logger) *Proxy {
	if opts.Model == "" {
		opts.Model = DefaultModel
	}
	if logger == nil {
		logger = logging.Named("chat")
	}
	return &Proxy{
		client: client,
		opts:   opts,
		logger: logger,
	}
}

// StartSession opens a session describing devices, replacing any previous one.
func (p *Proxy) StartSession(ctx context.Context, devices []device.Device) {
	_, span := tracing.StartSpan(ctx, "chat.start_session")
	defer span.End()

	names := device.JoinNames(devices)
	session := p.client.NewSession(p.opts.Model, SystemInstruction(names))

	p.mu.Lock()
	replaced := p.session != nil
	p.session = session
	p.mu.Unlock()

	span.SetAttributes(
		tracing.StringAttr("chat.model", p.opts.Model),
		tracing.IntAttr("chat.devices", len(devices)),
	)
	p.logger.Info("Chat session started",
		zap.String("model", p.opts.Model),
		zap.String("devices", names),
		zap.Bool("replaced", replaced),
	)
}

// EndSession drops the current session
func (p *Proxy) EndSession() {
	p.mu.Lock()
	had := p.session != nil
	p.session = nil
	p.mu.Unlock()

	if had {
		p.logger.Info("Chat session ended")
	}
}

// Send forwards text and returns the reply, or FallbackMessage if the
// remote call fails. Returns ErrNoSession before StartSession.
func (p *Proxy) Send(ctx context.Context, text string) (string, error) {
	return p.send(ctx, text, nil)
}

// SendStream is Send with incremental delivery: onDelta receives each
// fragment of the reply as it arrives. The returned text is the full reply.
func (p *Proxy) SendStream(ctx context.Context, text string, onDelta func(string)) (string, error) {
	if onDelta == nil {
		onDelta = func(string) {}
	}
	return p.send(ctx, text, onDelta)
}

func (p *Proxy) send(ctx context.Context, text string, onDelta func(string)) (string, error) {
	p.mu.Lock()
	session := p.session
	p.mu.Unlock()

	if session == nil {
		return "", ErrNoSession
	}

	if p.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.opts.Timeout)
		defer cancel()
	}

	start := time.Now()
	var (
		reply string
		err   error
	)
	if onDelta != nil {
		reply, err = session.SendStream(ctx, text, onDelta)
	} else {
		reply, err = session.Send(ctx, text)
	}

	if err != nil {
		if errors.Is(err, context.Canceled) {
			p.logger.Debug("Chat request cancelled", zap.Duration("elapsed", time.Since(start)))
		} else {
			p.logger.Error("Chat request failed",
				zap.String("model", p.opts.Model),
				zap.Duration("elapsed", time.Since(start)),
				zap.Bool("retryable", IsRetryable(err)),
				zap.String("hint", Hint(err)),
				zap.Error(err),
			)
		}
		return FallbackMessage, nil
	}

	return reply, nil
}
