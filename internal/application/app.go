// Package application wires config, adapters and use cases into a runnable
// chat client.
package application

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"agentchat/internal/config"
	"agentchat/internal/domain"
	"agentchat/internal/domain/model"
	"agentchat/internal/domain/ports/adapter"
	aiAdapters "agentchat/internal/infra/adapters/ai"
	"agentchat/internal/infra/console"
	httpapi "agentchat/internal/infra/http"
	"agentchat/internal/infra/logging"
	"agentchat/internal/usecase"
)

// App holds everything one conversation needs.
type App struct {
	Config *config.Config
	Chat   usecase.ChatUseCase
	Poller *usecase.JobPoller // nil outside assistants mode

	log       *zerolog.Logger
	metrics   *httpapi.Server
	providers []string
}

// New builds the adapters for the configured mode and provider. No network
// call happens here; the remote session is created by Run or Start.
func New(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) (*App, error) {
	if logger == nil {
		logger = logging.Nop()
	}
	mode := cfg.Mode()
	counter := aiAdapters.NewTokenCounter(cfg.AI.Provider == "noop")

	var (
		strategy  usecase.TurnStrategy
		poller    *usecase.JobPoller
		providers []string
	)
	switch mode {
	case model.ModeAssistants:
		svc, err := NewConversationService(cfg, logger)
		if err != nil {
			return nil, err
		}
		poller = usecase.NewJobPoller(svc, usecase.PollOptions{
			Interval: cfg.Chat.PollInterval,
			Timeout:  cfg.Chat.PollTimeout,
		}, logger)
		strategy = usecase.NewAssistantsStrategy(svc, poller, cfg.Chat.HistoryLimit, logger)
		providers = []string{cfg.AI.Provider}
	default:
		svc, err := NewCompletionService(ctx, cfg)
		if err != nil {
			return nil, err
		}
		cs, err := usecase.NewCompletionStrategy(mode, svc, logger)
		if err != nil {
			return nil, err
		}
		strategy = cs
		providers = svc.Providers()
	}

	chat := usecase.NewChatUseCase(strategy, counter, usecase.ChatOptions{
		Model:            cfg.AI.DefaultModel,
		System:           cfg.Chat.System,
		Stream:           cfg.Chat.Stream,
		MaxContextTokens: cfg.Chat.MaxContextTokens,
	}, logger)

	a := &App{Config: cfg, Chat: chat, Poller: poller, log: logger, providers: providers}
	if cfg.Metrics.Addr != "" {
		a.metrics = httpapi.NewServer(cfg.Metrics.Addr, a.status, logger)
	}
	return a, nil
}

func openAIOptions(cfg *config.Config) aiAdapters.OpenAIOptions {
	return aiAdapters.OpenAIOptions{
		APIKey:          cfg.AI.OpenAIKey,
		BaseURL:         cfg.AI.OpenAIBaseURL,
		DefaultModel:    cfg.AI.DefaultModel,
		MaxRetries:      cfg.AI.MaxRetries,
		RequestTimeout:  cfg.AI.RequestTimeout,
		MaxOutputTokens: cfg.AI.MaxOutputTokens,
	}
}

// NewConversationService returns the server-managed backend for assistants mode.
func NewConversationService(cfg *config.Config, logger *zerolog.Logger) (adapter.ConversationService, error) {
	if cfg.AI.Provider == "noop" {
		return aiAdapters.NewNoopAIAdapter(0), nil
	}
	svc, err := aiAdapters.NewOpenAIAssistantsAdapter(openAIOptions(cfg), adapter.AssistantSpec{
		ID:           cfg.AI.AssistantID,
		Name:         cfg.AI.AssistantName,
		Model:        cfg.AI.DefaultModel,
		Instructions: cfg.AI.AssistantInstructions,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("openai assistants adapter: %w", err)
	}
	return svc, nil
}

// NewCompletionService registers every provider that has credentials and
// routes between them by model name. In responses mode the OpenAI slot uses
// the Responses API instead of Chat Completions.
func NewCompletionService(ctx context.Context, cfg *config.Config) (*aiAdapters.MultiAIAdapter, error) {
	byProvider := map[string]adapter.CompletionService{}

	if cfg.AI.OpenAIKey != "" {
		var (
			svc adapter.CompletionService
			err error
		)
		if cfg.Mode() == model.ModeResponses {
			svc, err = aiAdapters.NewOpenAIResponsesAdapter(openAIOptions(cfg))
		} else {
			svc, err = aiAdapters.NewOpenAIChatAdapter(openAIOptions(cfg))
		}
		if err != nil {
			return nil, fmt.Errorf("openai adapter: %w", err)
		}
		byProvider["openai"] = svc
	}
	if cfg.AI.GeminiKey != "" {
		g, err := aiAdapters.NewGeminiAdapter(ctx, cfg.AI.GeminiKey, cfg.AI.GeminiURL, cfg.AI.DefaultModel, cfg.AI.MaxOutputTokens)
		if err != nil {
			return nil, fmt.Errorf("gemini adapter: %w", err)
		}
		byProvider["gemini"] = g
	}
	if cfg.AI.Provider == "noop" {
		byProvider["noop"] = aiAdapters.NewNoopAIAdapter(0)
	}

	if byProvider[cfg.AI.Provider] == nil {
		return nil, fmt.Errorf("%w: %s has no credentials", domain.ErrNoProvider, cfg.AI.Provider)
	}
	return aiAdapters.NewMultiAIAdapter(cfg.AI.Provider, byProvider, cfg.AI.ModelProviders), nil
}

// Providers lists the providers this app can route turns to.
func (a *App) Providers() []string { return a.providers }

func (a *App) status() map[string]string {
	return map[string]string{
		"mode":      string(a.Chat.Mode()),
		"session":   a.Chat.SessionID(),
		"providers": strings.Join(a.providers, ","),
	}
}

// Start opens the remote session.
func (a *App) Start(ctx context.Context) error {
	return a.Chat.Start(ctx)
}

// Run starts the metrics endpoint when configured, opens the session and
// runs the REPL on in/out until it ends.
func (a *App) Run(ctx context.Context, in io.Reader, out io.Writer) error {
	if a.metrics != nil {
		go func() {
			if err := a.metrics.Start(); err != nil {
				a.log.Error().Err(err).Msg("metrics server stopped")
			}
		}()
		defer func() {
			sctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			_ = a.metrics.Shutdown(sctx)
		}()
	}

	if err := a.Start(ctx); err != nil {
		return err
	}
	repl := console.NewREPL(a.Chat, in, out, console.Options{
		Prompt: a.Config.Chat.Prompt,
		Intro:  a.Config.Intro(),
		Stream: a.Config.Chat.Stream,
	}, a.log)
	return repl.Run(ctx)
}
