package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

const (
	// APIKeyEnvVar holds the Gemini API key
	APIKeyEnvVar = "GEMINI_API_KEY"

	// FallbackAPIKeyEnvVar is consulted when APIKeyEnvVar is empty
	FallbackAPIKeyEnvVar = "API_KEY"

	// DotEnvFile is loaded from the working directory when present
	DotEnvFile = ".env"
)

// ErrMissingAPIKey is returned when no credential is configured
var ErrMissingAPIKey = errors.New("missing API key: set " + APIKeyEnvVar + " or " + FallbackAPIKeyEnvVar)

// LoadDotEnv loads variables from the given files (default ".env").
// Missing files are skipped. Variables already present in the environment win.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{DotEnvFile}
	}

	for _, f := range files {
		if _, err := os.Stat(f); errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			return fmt.Errorf("error loading %s file: %w", f, err)
		}
	}
	return nil
}

// APIKey returns the configured credential.
// GEMINI_API_KEY takes precedence over API_KEY.
func APIKey() (string, error) {
	for _, name := range []string{APIKeyEnvVar, FallbackAPIKeyEnvVar} {
		if v := strings.TrimSpace(os.Getenv(name)); v != "" {
			return v, nil
		}
	}
	return "", ErrMissingAPIKey
}

// Redact masks a secret for display, keeping the last four characters
func Redact(secret string) string {
	if secret == "" {
		return "(not set)"
	}
	if len(secret) <= 4 {
		return "****"
	}
	return strings.Repeat("*", 8) + secret[len(secret)-4:]
}
