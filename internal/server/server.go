package server

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/muurk/devicechat/internal/config"
	"github.com/muurk/devicechat/internal/discovery"
	"github.com/muurk/devicechat/internal/logging"
	"github.com/muurk/devicechat/internal/version"
	"github.com/muurk/devicechat/internal/wizard"
)

// shutdownTimeout bounds graceful shutdown
const shutdownTimeout = 10 * time.Second

// ControllerFactory builds a fresh wizard for one browser connection
type ControllerFactory func() *wizard.Controller

// Server serves the browser UI: the page, a health endpoint and the
// websocket each browser tab drives its own wizard through.
type Server struct {
	config        config.ServerConfig
	newController ControllerFactory
	tlsConfig     *tls.Config
	upgrader      websocket.Upgrader

	httpServer   *http.Server
	listener     net.Listener
	announcement *discovery.Announcement

	checks map[string]func() string

	wg          sync.WaitGroup
	mu          sync.Mutex
	activeConns map[string]*session
}

// Option configures a Server
type Option func(*Server)

// WithHealthCheck adds a named entry to the /healthz checks. fn is called on
// every request and returns the current state.
func WithHealthCheck(name string, fn func() string) Option {
	return func(s *Server) {
		s.checks[name] = fn
	}
}

// New creates a new Server instance
func New(cfg config.ServerConfig, factory ControllerFactory, opts ...Option) (*Server, error) {
	if factory == nil {
		return nil, errors.New("controller factory is required")
	}

	var tlsConfig *tls.Config
	if cfg.TLSEnabled() {
		var err error
		tlsConfig, err = NewTLSConfig(cfg.CertFile, cfg.KeyFile)
		if err != nil {
			return nil, fmt.Errorf("failed to create TLS config: %w", err)
		}
	}

	s := &Server{
		config:        cfg,
		newController: factory,
		tlsConfig:     tlsConfig,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		checks:      make(map[string]func() string),
		activeConns: make(map[string]*session),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.httpServer = &http.Server{
		Handler:           s.routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s, nil
}

// Handler returns the HTTP handler, for embedding or tests
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Start listens on the configured address and blocks until ctx ends, a
// shutdown signal arrives, or serving fails.
func (s *Server) Start(ctx context.Context) error {
	addr := s.config.Addr()

	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	if s.tlsConfig != nil {
		listener = tls.NewListener(listener, s.tlsConfig)
	}
	s.listener = listener

	logging.Info("Starting devicechat browser UI",
		zap.String("addr", listener.Addr().String()),
		zap.Any("tls_info", GetTLSInfo(s.tlsConfig)),
		zap.String("version", version.Version),
	)

	if s.config.Announce {
		s.announce()
	}

	// Set up signal handling for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	errChan := make(chan error, 1)
	go func() {
		errChan <- s.httpServer.Serve(listener)
	}()

	select {
	case <-sigChan:
		logging.Info("Shutdown signal received, stopping server...")
	case <-ctx.Done():
		logging.Info("Context cancelled, stopping server...")
	case err := <-errChan:
		if !errors.Is(err, http.ErrServerClosed) {
			s.announcement.Shutdown()
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return s.Shutdown(shutdownCtx)
}

// URL returns the address browsers should open, once listening
func (s *Server) URL() string {
	if s.listener == nil {
		return ""
	}
	scheme := "http"
	if s.tlsConfig != nil {
		scheme = "https"
	}
	return fmt.Sprintf("%s://%s/", scheme, s.listener.Addr().String())
}

func (s *Server) announce() {
	port := s.config.Port
	if tcp, ok := s.listener.Addr().(*net.TCPAddr); ok {
		port = tcp.Port
	}

	instance := s.config.InstanceName
	if instance == "" {
		host, _ := os.Hostname()
		instance = "devicechat on " + host
	}

	a, err := discovery.Announce(instance, port, version.Version)
	if err != nil {
		// the UI still works without the announcement
		logging.Warn("mDNS announcement failed", zap.Error(err))
		return
	}
	s.announcement = a
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	logging.Info("Shutting down server...")

	s.announcement.Shutdown()

	// http.Server.Shutdown does not wait for hijacked connections
	s.mu.Lock()
	for addr, sess := range s.activeConns {
		logging.Info("Closing active connection", zap.String("remote_addr", addr))
		sess.cancel()
	}
	s.mu.Unlock()

	err := s.httpServer.Shutdown(ctx)
	if err != nil {
		logging.Error("Error stopping HTTP server", zap.Error(err))
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		logging.Info("All connections closed gracefully")
	case <-ctx.Done():
		logging.Warn("Shutdown timeout, forcing close")
		s.mu.Lock()
		for _, sess := range s.activeConns {
			sess.close()
		}
		s.mu.Unlock()
	}

	logging.Sync()
	return err
}

// GetActiveConnections returns the number of active connections
func (s *Server) GetActiveConnections() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.activeConns)
}

func (s *Server) track(sess *session) {
	s.wg.Add(1)
	s.mu.Lock()
	s.activeConns[sess.remoteAddr] = sess
	s.mu.Unlock()
}

func (s *Server) untrack(sess *session) {
	s.mu.Lock()
	delete(s.activeConns, sess.remoteAddr)
	s.mu.Unlock()
	s.wg.Done()
}
