// Package chattest provides an in-memory chat.Client for tests.
package chattest

import (
	"context"
	"strings"
	"sync"

	"github.com/muurk/devicechat/internal/chat"
)

// Client is a fake chat.Client. Every session answers through Reply.
type Client struct {
	// Reply produces the answer for text. Nil echoes "echo: <text>".
	Reply func(ctx context.Context, text string) (string, error)

	// Chunks splits streamed replies into this many fragments (minimum 1)
	Chunks int

	mu       sync.Mutex
	sessions []*Session
}

// NewSession implements chat.Client
func (c *Client) NewSession(model, systemInstruction string) chat.Session {
	s := &Session{client: c, Model: model, SystemInstruction: systemInstruction}

	c.mu.Lock()
	c.sessions = append(c.sessions, s)
	c.mu.Unlock()
	return s
}

// Sessions returns every session created so far
func (c *Client) Sessions() []*Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]*Session, len(c.sessions))
	copy(out, c.sessions)
	return out
}

// Last returns the most recent session, or nil
func (c *Client) Last() *Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.sessions) == 0 {
		return nil
	}
	return c.sessions[len(c.sessions)-1]
}

// Session records what it was sent
type Session struct {
	client *Client

	Model             string
	SystemInstruction string

	mu   sync.Mutex
	sent []string
}

// Sent returns the texts sent to the session in order
func (s *Session) Sent() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.sent))
	copy(out, s.sent)
	return out
}

// Send implements chat.Session
func (s *Session) Send(ctx context.Context, text string) (string, error) {
	s.mu.Lock()
	s.sent = append(s.sent, text)
	s.mu.Unlock()

	if s.client.Reply == nil {
		return "echo: " + text, nil
	}
	return s.client.Reply(ctx, text)
}

// SendStream implements chat.Session
func (s *Session) SendStream(ctx context.Context, text string, onDelta func(string)) (string, error) {
	reply, err := s.Send(ctx, text)
	if err != nil {
		return "", err
	}
	for _, part := range split(reply, s.client.Chunks) {
		onDelta(part)
	}
	return reply, nil
}

// split cuts s into n roughly equal pieces on rune boundaries
func split(s string, n int) []string {
	runes := []rune(s)
	if n <= 1 || len(runes) <= 1 {
		return []string{s}
	}
	if n > len(runes) {
		n = len(runes)
	}

	size := (len(runes) + n - 1) / n
	var parts []string
	for i := 0; i < len(runes); i += size {
		end := i + size
		if end > len(runes) {
			end = len(runes)
		}
		parts = append(parts, string(runes[i:end]))
	}
	return parts
}

// Join reassembles fragments; handy in assertions
func Join(parts []string) string {
	return strings.Join(parts, "")
}
