package config

import (
	"fmt"
	"time"
)

// Config represents the entire user configuration file.
// Every section is optional; missing values keep their defaults.
type Config struct {
	Version   int             `yaml:"version"`
	Chat      ChatConfig      `yaml:"chat"`
	Discovery DiscoveryConfig `yaml:"discovery"`
	Setup     SetupConfig     `yaml:"setup"`
	Server    ServerConfig    `yaml:"server"`
	Log       LogConfig       `yaml:"log"`
	Tracing   TracingConfig   `yaml:"tracing"`
}

// ChatConfig configures the remote chat completion client.
// The API key is never read from or written to the file.
type ChatConfig struct {
	Model             string        `yaml:"model"`
	BaseURL           string        `yaml:"base_url"`
	Stream            bool          `yaml:"stream"`
	Timeout           time.Duration `yaml:"timeout"`
	RequestsPerMinute int           `yaml:"requests_per_minute"` // 0 disables client-side limiting
}

// DiscoveryConfig configures the simulated scan
type DiscoveryConfig struct {
	ScanDelay time.Duration `yaml:"scan_delay"`
}

// SetupConfig configures the simulated setup progress
type SetupConfig struct {
	TickInterval time.Duration `yaml:"tick_interval"`
	MaxStep      float64       `yaml:"max_step"` // Upper bound (exclusive) of each random increment
}

// ServerConfig configures the browser UI server
type ServerConfig struct {
	Host         string `yaml:"host"`
	Port         int    `yaml:"port"`
	Announce     bool   `yaml:"announce"`                // Advertise via mDNS
	InstanceName string `yaml:"instance_name,omitempty"` // mDNS instance; defaults to "devicechat on <hostname>"

	// Serve HTTPS when both are set
	CertFile string `yaml:"cert_file,omitempty"`
	KeyFile  string `yaml:"key_file,omitempty"`
}

// LogConfig configures zap output
type LogConfig struct {
	Level string `yaml:"level,omitempty"` // Empty means silent unless DEVICECHAT_LOG_LEVEL is set
	File  string `yaml:"file,omitempty"`
}

// TracingConfig configures OpenTelemetry
type TracingConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Exporter string `yaml:"exporter"` // "stdout" or "noop"
}

// Default values
const (
	DefaultModel        = "gemini-2.5-flash"
	DefaultBaseURL      = "https://generativelanguage.googleapis.com"
	DefaultChatTimeout  = 60 * time.Second
	DefaultScanDelay    = 2500 * time.Millisecond
	DefaultTickInterval = 300 * time.Millisecond
	DefaultMaxStep      = 20.0
	DefaultHost         = "127.0.0.1"
	DefaultPort         = 8080
)

// Default returns a Config populated with default values.
func Default() *Config {
	return &Config{
		Version: 1,
		Chat: ChatConfig{
			Model:   DefaultModel,
			BaseURL: DefaultBaseURL,
			Stream:  true,
			Timeout: DefaultChatTimeout,
		},
		Discovery: DiscoveryConfig{
			ScanDelay: DefaultScanDelay,
		},
		Setup: SetupConfig{
			TickInterval: DefaultTickInterval,
			MaxStep:      DefaultMaxStep,
		},
		Server: ServerConfig{
			Host: DefaultHost,
			Port: DefaultPort,
		},
		Tracing: TracingConfig{
			Exporter: "noop",
		},
	}
}

// Validate checks the configuration for values the application cannot use.
func (c *Config) Validate() error {
	if c.Version != 1 {
		return fmt.Errorf("unsupported config version: %d (expected 1)", c.Version)
	}
	if c.Chat.Model == "" {
		return fmt.Errorf("chat.model must not be empty")
	}
	if c.Chat.BaseURL == "" {
		return fmt.Errorf("chat.base_url must not be empty")
	}
	if c.Chat.Timeout <= 0 {
		return fmt.Errorf("chat.timeout must be positive, got %v", c.Chat.Timeout)
	}
	if c.Chat.RequestsPerMinute < 0 {
		return fmt.Errorf("chat.requests_per_minute must not be negative")
	}
	if c.Discovery.ScanDelay < 0 {
		return fmt.Errorf("discovery.scan_delay must not be negative")
	}
	if c.Setup.TickInterval <= 0 {
		return fmt.Errorf("setup.tick_interval must be positive, got %v", c.Setup.TickInterval)
	}
	if c.Setup.MaxStep <= 0 {
		return fmt.Errorf("setup.max_step must be positive, got %v", c.Setup.MaxStep)
	}
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port out of range: %d", c.Server.Port)
	}
	if (c.Server.CertFile == "") != (c.Server.KeyFile == "") {
		return fmt.Errorf("server.cert_file and server.key_file must be set together")
	}

	switch c.Log.Level {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unknown log.level: %q", c.Log.Level)
	}

	switch c.Tracing.Exporter {
	case "", "noop", "stdout":
	default:
		return fmt.Errorf("unsupported tracing.exporter: %q", c.Tracing.Exporter)
	}

	return nil
}

// TLSEnabled reports whether the browser UI should be served over HTTPS
func (s ServerConfig) TLSEnabled() bool {
	return s.CertFile != "" && s.KeyFile != ""
}

// Addr returns the server listen address
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}
