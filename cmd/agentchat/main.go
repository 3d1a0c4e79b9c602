// File: cmd/agentchat/main.go
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"agentchat/internal/application"
	"agentchat/internal/config"
	"agentchat/internal/infra/logging"
	"agentchat/internal/infra/metrics"
)

// Set with -ldflags "-X main.version=... -X main.commit=...".
var (
	version = "dev"
	commit  = "none"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ---- CLI flags ----
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	mode := flag.String("mode", "", "assistants | chat | responses")
	provider := flag.String("provider", "", "openai | gemini | noop")
	modelName := flag.String("model", "", "model name (default from config)")
	system := flag.String("system", "", "system prompt for chat/responses modes")
	stream := flag.Bool("stream", false, "stream answers in chat/responses modes")
	devMode := flag.Bool("dev", false, "developer mode: debug logs, noop provider when no key is set")
	timeout := flag.Duration("timeout", 0, "give up polling a run after this long (negative: never)")
	pollInterval := flag.Duration("poll-interval", 0, "wait between run status queries")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, *devMode)
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	err = config.Overrides{
		Mode:         *mode,
		Provider:     *provider,
		Model:        *modelName,
		System:       *system,
		Stream:       *stream,
		Timeout:      *timeout,
		PollInterval: *pollInterval,
	}.Apply(cfg)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger := logging.New(cfg.Log, cfg.Runtime.Dev)
	logger.Debug().
		Str("mode", cfg.Chat.Mode).
		Str("provider", cfg.AI.Provider).
		Str("model", cfg.AI.DefaultModel).
		Str("openai_key", logging.Redact(cfg.AI.OpenAIKey, false)).
		Dur("poll_interval", cfg.Chat.PollInterval).
		Dur("poll_timeout", cfg.Chat.PollTimeout).
		Msg("config loaded")
	metrics.SetBuildInfo(version, commit, cfg.Chat.Mode)

	app, err := application.New(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("setup: %v", err)
	}
	start := time.Now()
	if err := app.Run(ctx, os.Stdin, os.Stdout); err != nil {
		log.Fatalf("agentchat: %v", err)
	}
	logger.Debug().Dur("uptime", time.Since(start)).Msg("bye")
}
