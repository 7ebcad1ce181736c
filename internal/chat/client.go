package chat

import "context"

// Client creates chat sessions against a remote model
type Client interface {
	// NewSession opens a conversation with the given model and persona.
	// Creating a session does not contact the remote service.
	NewSession(model, systemInstruction string) Session
}

// Session is one conversation. Implementations keep the history so each
// Send continues the same exchange.
type Session interface {
	// Send forwards text and returns the complete reply
	Send(ctx context.Context, text string) (string, error)

	// SendStream forwards text and calls onDelta with each fragment of the
	// reply as it arrives. Returns the complete reply.
	SendStream(ctx context.Context, text string, onDelta func(string)) (string, error)
}
