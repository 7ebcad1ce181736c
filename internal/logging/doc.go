// Package logging provides structured logging for devicechat.
//
// This package wraps zap logger with convenience functions for common logging
// patterns used by the wizard, the chat proxy and the browser UI server.
//
// # Log Levels
//
// The package supports standard log levels:
//   - Debug: Detailed debugging info (websocket frames, scan timing)
//   - Info: Normal operations (screen transitions, connections)
//   - Warn: Non-fatal issues (connection drops, retries)
//   - Error: Failed chat requests, startup failures
//
// # Structured Logging
//
//	logging.Info("Device connected",
//	    zap.String("device_id", "pixel-8-pro"),
//	)
//
// # Specialized Logging
//
//	logging.LogTransition("welcome", "device_scanner", "begin_setup")
//	logging.LogConnection(remoteAddr, "websocket_upgraded")
//	logging.LogWebSocketMessage(remoteAddr, "received", msgType, payload)
//
// # Configuration
//
// Logging is silent unless a level is given, either explicitly or through
// DEVICECHAT_LOG_LEVEL:
//
//	if err := logging.InitializeWithOptions(logging.Options{Level: "debug", File: path}); err != nil {
//	    log.Fatal(err)
//	}
//	defer logging.Sync()
//
// # Thread Safety
//
// All logging functions are safe for concurrent use. Initialization is not and
// should happen once at startup.
package logging
