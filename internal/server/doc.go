// Package server serves the browser front end of the device chat wizard.
//
// Each browser tab that opens /ws gets its own wizard.Controller, built by
// the ControllerFactory passed to New and closed when the socket closes.
//
// # Routes
//
//   - GET /        embedded single-page UI
//   - GET /healthz {"status":"ok","version":{...},"connections":N}
//   - GET /ws      websocket transport
//
// # Websocket Protocol
//
// The browser sends actions as JSON text frames:
//
//	{"action": "toggle", "device_id": "pixel-8-pro"}
//	{"action": "send", "text": "hello"}
//
// The server pushes a full snapshot after every controller change, plus error
// envelopes for malformed or unknown actions:
//
//	{"type": "state", "state": {...}, "timestamp": "..."}
//	{"type": "error", "error": "unknown action \"fly\"", "timestamp": "..."}
//
// Changes are coalesced: a burst of progress ticks may produce a single push
// carrying the latest snapshot.
//
// # Lifecycle
//
// Start blocks until SIGINT/SIGTERM or context cancellation, then shuts down
// within 10 seconds. When server.announce is set, the UI is advertised over
// mDNS for the lifetime of the server. Setting server.cert_file and
// server.key_file switches the listener to HTTPS.
package server
