package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/muurk/devicechat/internal/chat"
	"github.com/muurk/devicechat/internal/config"
	"github.com/muurk/devicechat/internal/discovery"
	"github.com/muurk/devicechat/internal/logging"
	"github.com/muurk/devicechat/internal/setup"
	"github.com/muurk/devicechat/internal/tracing"
	"github.com/muurk/devicechat/internal/wizard"
)

// logFileName is where the TUI logs when no log.file is configured
const logFileName = "devicechat.log"

// appEnv holds what every command needs once configuration is loaded
type appEnv struct {
	cfg           *config.Config
	stopTracing   func(context.Context) error
	client        *chat.GeminiClient
	newController func() *wizard.Controller // nil for commands without chat
}

// prepare loads config, starts logging and tracing. When withChat is set the
// API key is required and a controller factory is built. screenOwned routes
// logs to a file so they do not draw over a full-screen UI.
func prepare(ctx context.Context, withChat, screenOwned bool) (*appEnv, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	if err := initLogging(cfg, screenOwned); err != nil {
		return nil, err
	}

	stop, err := tracing.Setup(ctx, cfg.Tracing)
	if err != nil {
		return nil, fmt.Errorf("failed to set up tracing: %w", err)
	}

	env := &appEnv{cfg: cfg, stopTracing: stop}
	if !withChat {
		return env, nil
	}

	client, err := newChatClient(cfg)
	if err != nil {
		env.Close()
		return nil, err
	}
	env.client = client
	env.newController = controllerFactory(cfg, client)
	return env, nil
}

// Close flushes traces and logs
func (e *appEnv) Close() {
	if e.stopTracing != nil {
		if err := e.stopTracing(context.Background()); err != nil {
			logging.Warn("Failed to flush traces", zap.Error(err))
		}
	}
	logging.Sync()
}

func initLogging(cfg *config.Config, screenOwned bool) error {
	opts := logging.Options{Level: cfg.Log.Level, File: cfg.Log.File}
	if logLevel != "" {
		opts.Level = logLevel
	}

	enabled := opts.Level != "" || os.Getenv(logging.LogLevelEnvVar) != ""
	if screenOwned && enabled && opts.File == "" {
		dir, err := config.GetConfigDir()
		if err != nil {
			return fmt.Errorf("failed to resolve log directory: %w", err)
		}
		if err := os.MkdirAll(dir, 0700); err != nil {
			return fmt.Errorf("failed to create log directory: %w", err)
		}
		opts.File = filepath.Join(dir, logFileName)
	}

	return logging.InitializeWithOptions(opts)
}

func newChatClient(cfg *config.Config) (*chat.GeminiClient, error) {
	if err := config.LoadDotEnv(); err != nil {
		return nil, err
	}
	apiKey, err := config.APIKey()
	if err != nil {
		return nil, err
	}

	logging.Info("Creating Gemini client",
		zap.String("base_url", cfg.Chat.BaseURL),
		zap.String("model", cfg.Chat.Model),
		zap.String("api_key", config.Redact(apiKey)),
	)

	return chat.NewGeminiClient(chat.GeminiOptions{
		APIKey:            apiKey,
		BaseURL:           cfg.Chat.BaseURL,
		Timeout:           cfg.Chat.Timeout,
		RequestsPerMinute: cfg.Chat.RequestsPerMinute,
	})
}

// controllerFactory builds wizards sharing one client. Each wizard gets its
// own proxy since a proxy holds a single session.
func controllerFactory(cfg *config.Config, client chat.Client) func() *wizard.Controller {
	return func() *wizard.Controller {
		proxy := chat.NewProxy(client, chat.ProxyOptions{
			Model:   cfg.Chat.Model,
			Timeout: cfg.Chat.Timeout,
		}, logging.Named("chat"))

		return wizard.NewController(proxy,
			wizard.WithScanner(&discovery.Simulator{Delay: cfg.Discovery.ScanDelay}),
			wizard.WithSetup(setup.NewSimulator(
				setup.WithInterval(cfg.Setup.TickInterval),
				setup.WithMaxStep(cfg.Setup.MaxStep),
			)),
			wizard.WithStreaming(cfg.Chat.Stream),
		)
	}
}
