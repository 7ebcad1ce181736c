// Package chat connects the wizard's chat room to a hosted language model.
//
// # Proxy
//
// Proxy holds at most one Session. StartSession builds a persona from the
// connected device names and opens a new session, replacing any previous one.
// Send forwards user text and returns the reply. When the remote call fails
// the cause is logged and FallbackMessage is returned instead, so the chat log
// always gains a reply:
//
//	proxy := chat.NewProxy(client, chat.ProxyOptions{Model: chat.DefaultModel}, nil)
//	proxy.StartSession(ctx, reg.List())
//	reply, err := proxy.Send(ctx, "hello") // err is only ErrNoSession
//
// # Gemini Client
//
// GeminiClient implements Client against the Gemini REST API using
// generateContent and streamGenerateContent (server-sent events). Sessions
// keep the conversation history locally and record a turn only once the reply
// has arrived. All sessions of a client share a circuit breaker, which opens
// after repeated transport or server failures, and an optional rate limiter.
//
// # Errors
//
// Failed calls surface as *APIError. Its kind is matched by the sentinel
// errors, for example errors.Is(err, chat.ErrRateLimited). Hint returns
// troubleshooting text, which the proxy attaches to its failure logs.
//
// # Messages
//
// Message and Log model the chat history shown by the front ends. Message IDs
// are random UUIDs prefixed with "user-", "bot-" or "error-"; the greeting
// always uses GreetingID.
package chat
