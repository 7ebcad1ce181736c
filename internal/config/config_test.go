package config

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"
)

func TestGetConfigDir(t *testing.T) {
	configDir, err := GetConfigDir()
	if err != nil {
		t.Fatalf("GetConfigDir() error = %v", err)
	}

	if !strings.Contains(configDir, "devicechat") {
		t.Errorf("GetConfigDir() = %v, should contain 'devicechat'", configDir)
	}

	switch runtime.GOOS {
	case "windows":
		if !strings.Contains(configDir, "AppData") && !strings.Contains(configDir, "Local") {
			t.Errorf("Windows config dir should contain 'AppData' or 'Local', got: %v", configDir)
		}
	case "darwin":
		if !strings.Contains(configDir, ".config") {
			t.Errorf("macOS config dir should contain '.config', got: %v", configDir)
		}
	}
}

func TestGetConfigDir_XDG(t *testing.T) {
	if runtime.GOOS == "windows" || runtime.GOOS == "darwin" {
		t.Skip("XDG_CONFIG_HOME only applies on Linux")
	}

	t.Setenv("XDG_CONFIG_HOME", "/tmp/xdg")

	configDir, err := GetConfigDir()
	if err != nil {
		t.Fatalf("GetConfigDir() error = %v", err)
	}
	if configDir != filepath.Join("/tmp/xdg", "devicechat") {
		t.Errorf("GetConfigDir() = %v, want /tmp/xdg/devicechat", configDir)
	}
}

func TestGetConfigPath(t *testing.T) {
	configPath, err := GetConfigPath()
	if err != nil {
		t.Fatalf("GetConfigPath() error = %v", err)
	}

	if filepath.Base(configPath) != "config.yaml" {
		t.Errorf("GetConfigPath() should end with 'config.yaml', got: %v", configPath)
	}
}

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Version != 1 {
		t.Errorf("Default().Version = %v, want 1", cfg.Version)
	}
	if cfg.Chat.Model != "gemini-2.5-flash" {
		t.Errorf("Default().Chat.Model = %v, want gemini-2.5-flash", cfg.Chat.Model)
	}
	if cfg.Discovery.ScanDelay != 2500*time.Millisecond {
		t.Errorf("Default().Discovery.ScanDelay = %v, want 2.5s", cfg.Discovery.ScanDelay)
	}
	if cfg.Setup.TickInterval != 300*time.Millisecond {
		t.Errorf("Default().Setup.TickInterval = %v, want 300ms", cfg.Setup.TickInterval)
	}
	if cfg.Setup.MaxStep != 20 {
		t.Errorf("Default().Setup.MaxStep = %v, want 20", cfg.Setup.MaxStep)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Default().Validate() error = %v", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"bad version", func(c *Config) { c.Version = 2 }},
		{"empty model", func(c *Config) { c.Chat.Model = "" }},
		{"empty base url", func(c *Config) { c.Chat.BaseURL = "" }},
		{"zero timeout", func(c *Config) { c.Chat.Timeout = 0 }},
		{"negative rpm", func(c *Config) { c.Chat.RequestsPerMinute = -1 }},
		{"negative scan delay", func(c *Config) { c.Discovery.ScanDelay = -time.Second }},
		{"zero tick", func(c *Config) { c.Setup.TickInterval = 0 }},
		{"zero step", func(c *Config) { c.Setup.MaxStep = 0 }},
		{"port too high", func(c *Config) { c.Server.Port = 70000 }},
		{"unknown log level", func(c *Config) { c.Log.Level = "loud" }},
		{"unknown exporter", func(c *Config) { c.Tracing.Exporter = "jaeger" }},
		{"cert without key", func(c *Config) { c.Server.CertFile = "cert.pem" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("Validate() error = nil, want error")
			}
		})
	}
}

func TestLoad_MissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Server.Port != DefaultPort {
		t.Errorf("Server.Port = %v, want %v", cfg.Server.Port, DefaultPort)
	}
}

func TestLoad_OverridesKeepDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `version: 1
chat:
  model: gemini-2.5-pro
  stream: false
discovery:
  scan_delay: 100ms
server:
  port: 9090
  announce: true
`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Chat.Model != "gemini-2.5-pro" {
		t.Errorf("Chat.Model = %v, want gemini-2.5-pro", cfg.Chat.Model)
	}
	if cfg.Chat.Stream {
		t.Error("Chat.Stream = true, want false")
	}
	if cfg.Discovery.ScanDelay != 100*time.Millisecond {
		t.Errorf("Discovery.ScanDelay = %v, want 100ms", cfg.Discovery.ScanDelay)
	}
	if cfg.Server.Port != 9090 || !cfg.Server.Announce {
		t.Errorf("Server = %+v", cfg.Server)
	}
	// Untouched keys keep defaults
	if cfg.Chat.BaseURL != DefaultBaseURL {
		t.Errorf("Chat.BaseURL = %v, want %v", cfg.Chat.BaseURL, DefaultBaseURL)
	}
	if cfg.Setup.TickInterval != DefaultTickInterval {
		t.Errorf("Setup.TickInterval = %v, want %v", cfg.Setup.TickInterval, DefaultTickInterval)
	}
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"bad yaml", "version: [1"},
		{"bad version", "version: 7\n"},
		{"bad duration", "setup:\n  tick_interval: soon\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.yaml")
			if err := os.WriteFile(path, []byte(tt.content), 0600); err != nil {
				t.Fatal(err)
			}
			if _, err := Load(path); err == nil {
				t.Error("Load() error = nil, want error")
			}
		})
	}
}

func TestSaveAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg := Default()
	cfg.Server.Port = 9999
	cfg.Log.Level = "debug"

	if err := cfg.Save(path); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Error("temporary file should be removed after Save()")
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if loaded.Server.Port != 9999 {
		t.Errorf("Server.Port = %v, want 9999", loaded.Server.Port)
	}
	if loaded.Log.Level != "debug" {
		t.Errorf("Log.Level = %v, want debug", loaded.Log.Level)
	}
	if loaded.Discovery.ScanDelay != DefaultScanDelay {
		t.Errorf("Discovery.ScanDelay = %v, want %v", loaded.Discovery.ScanDelay, DefaultScanDelay)
	}
}

func TestAPIKey_Precedence(t *testing.T) {
	tests := []struct {
		name     string
		primary  string
		fallback string
		want     string
		wantErr  bool
	}{
		{name: "primary wins", primary: "gem", fallback: "api", want: "gem"},
		{name: "fallback used", primary: "", fallback: "api", want: "api"},
		{name: "whitespace ignored", primary: "  ", fallback: "api", want: "api"},
		{name: "none", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(APIKeyEnvVar, tt.primary)
			t.Setenv(FallbackAPIKeyEnvVar, tt.fallback)

			got, err := APIKey()
			if tt.wantErr {
				if !errors.Is(err, ErrMissingAPIKey) {
					t.Errorf("APIKey() error = %v, want ErrMissingAPIKey", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("APIKey() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("APIKey() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestLoadDotEnv(t *testing.T) {
	t.Setenv(APIKeyEnvVar, "")
	t.Setenv(FallbackAPIKeyEnvVar, "")
	os.Unsetenv(APIKeyEnvVar)
	os.Unsetenv(FallbackAPIKeyEnvVar)

	path := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(path, []byte("GEMINI_API_KEY=from-dotenv\n"), 0600); err != nil {
		t.Fatal(err)
	}

	if err := LoadDotEnv(path, filepath.Join(t.TempDir(), "missing.env")); err != nil {
		t.Fatalf("LoadDotEnv() error = %v", err)
	}

	got, err := APIKey()
	if err != nil {
		t.Fatalf("APIKey() error = %v", err)
	}
	if got != "from-dotenv" {
		t.Errorf("APIKey() = %v, want from-dotenv", got)
	}
}

func TestRedact(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", "(not set)"},
		{"abc", "****"},
		{"AIzaSyExample1234", "********1234"},
	}

	for _, tt := range tests {
		if got := Redact(tt.in); got != tt.want {
			t.Errorf("Redact(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestServerConfig_Addr(t *testing.T) {
	s := ServerConfig{Host: "0.0.0.0", Port: 8080}
	if s.Addr() != "0.0.0.0:8080" {
		t.Errorf("Addr() = %v, want 0.0.0.0:8080", s.Addr())
	}
}

func TestServerConfig_TLSEnabled(t *testing.T) {
	tests := []struct {
		name string
		s    ServerConfig
		want bool
	}{
		{"plain", ServerConfig{}, false},
		{"cert only", ServerConfig{CertFile: "cert.pem"}, false},
		{"both", ServerConfig{CertFile: "cert.pem", KeyFile: "key.pem"}, true},
	}
	for _, tt := range tests {
		if got := tt.s.TLSEnabled(); got != tt.want {
			t.Errorf("%s: TLSEnabled() = %v, want %v", tt.name, got, tt.want)
		}
	}
}
