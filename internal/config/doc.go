// Package config provides configuration management for devicechat.
//
// Settings live in an optional YAML file. Missing keys keep the values from
// Default, so an empty file and no file behave the same.
//
// # Configuration File Location
//
// The configuration file is stored in platform-appropriate locations:
//   - Linux: $XDG_CONFIG_HOME/devicechat/config.yaml or $HOME/.config/devicechat/config.yaml
//   - macOS: $HOME/.config/devicechat/config.yaml
//   - Windows: %LOCALAPPDATA%\devicechat\config.yaml
//
// # Example
//
//	version: 1
//	chat:
//	  model: gemini-2.5-flash
//	  stream: true
//	  timeout: 60s
//	discovery:
//	  scan_delay: 2.5s
//	setup:
//	  tick_interval: 300ms
//	  max_step: 20
//	server:
//	  host: 127.0.0.1
//	  port: 8080
//	  announce: false
//	log:
//	  level: info
//	  file: /tmp/devicechat.log
//	tracing:
//	  enabled: false
//	  exporter: stdout
//
// # Credentials
//
// The Gemini API key is NEVER stored in the file. It is read from
// GEMINI_API_KEY, then API_KEY. A .env file in the working directory is
// loaded first when present:
//
//	_ = config.LoadDotEnv()
//	key, err := config.APIKey()
//	if errors.Is(err, config.ErrMissingAPIKey) {
//	    log.Fatal(err)
//	}
//
// # Thread Safety
//
// Load returns a fresh value on every call. Save is serialised by a mutex.
package config
