package config_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"agentchat/internal/config"
	"agentchat/internal/domain"
	"agentchat/internal/domain/model"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{"OPENAI_API_KEY", "OPENAI_BASE_URL", "GEMINI_API_KEY", "OPENAI_ASSISTANT_ID"} {
		t.Setenv(k, "")
	}
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadConfig_MissingFileUsesDefaults(t *testing.T) {
	clearEnv(t)
	cfg, err := config.LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"), false)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Mode() != model.ModeAssistants {
		t.Fatalf("default mode = %s", cfg.Mode())
	}
	if cfg.Chat.PollInterval != config.DefaultPollInterval || cfg.Chat.PollTimeout != config.DefaultPollTimeout {
		t.Fatalf("poll defaults: %v %v", cfg.Chat.PollInterval, cfg.Chat.PollTimeout)
	}
	if cfg.AI.DefaultModel != config.DefaultModel || cfg.Chat.System != config.DefaultSystemPrompt {
		t.Fatalf("model/system defaults: %q %q", cfg.AI.DefaultModel, cfg.Chat.System)
	}
	if cfg.Log.Level != "warn" || cfg.Chat.Prompt != "You: " {
		t.Fatalf("log/prompt defaults: %q %q", cfg.Log.Level, cfg.Chat.Prompt)
	}
}

func TestLoadConfig_YAMLAndEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("OPENAI_API_KEY", "sk-test-1234567890")
	path := writeConfig(t, `
log:
  level: debug
  format: json
ai:
  default_model: gpt-4.1-mini
  request_timeout: 15s
  model_providers:
    gemini-2.5-pro: gemini
chat:
  mode: Responses
  stream: true
  poll_interval: 250ms
  poll_timeout: -1s
  max_context_tokens: 4000
`)
	cfg, err := config.LoadConfig(path, false)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.AI.OpenAIKey != "sk-test-1234567890" || cfg.AI.Provider != "openai" {
		t.Fatalf("env fallback: key=%q provider=%q", cfg.AI.OpenAIKey, cfg.AI.Provider)
	}
	if cfg.Mode() != model.ModeResponses || !cfg.Chat.Stream {
		t.Fatalf("chat section: %+v", cfg.Chat)
	}
	if cfg.Chat.PollInterval != 250*time.Millisecond || cfg.Chat.PollTimeout != -time.Second {
		t.Fatalf("durations: %v %v", cfg.Chat.PollInterval, cfg.Chat.PollTimeout)
	}
	if cfg.AI.RequestTimeout != 15*time.Second || cfg.AI.ModelProviders["gemini-2.5-pro"] != "gemini" {
		t.Fatalf("ai section: %+v", cfg.AI)
	}
	if cfg.Intro() != "Responses API mode - type 'exit' to quit" {
		t.Fatalf("intro: %q", cfg.Intro())
	}
}

func TestLoadConfig_ProviderGuess(t *testing.T) {
	clearEnv(t)
	cfg, err := config.LoadConfig("", true)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.AI.Provider != "noop" {
		t.Fatalf("dev without keys should pick noop, got %q", cfg.AI.Provider)
	}

	t.Setenv("GEMINI_API_KEY", "g-key")
	cfg, err = config.LoadConfig(writeConfig(t, "chat:\n  mode: chat\n"), false)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.AI.Provider != "gemini" || cfg.AI.DefaultModel != config.DefaultGeminiModel {
		t.Fatalf("gemini guess: provider=%q model=%q", cfg.AI.Provider, cfg.AI.DefaultModel)
	}
}

func TestLoadConfig_Validation(t *testing.T) {
	clearEnv(t)
	cases := []struct {
		name string
		yaml string
	}{
		{"unknown mode", "chat:\n  mode: batch\n"},
		{"unknown provider", "ai:\n  provider: azure\n"},
		{"assistants on gemini", "ai:\n  provider: gemini\nchat:\n  mode: assistants\n"},
		{"negative context budget", "chat:\n  max_context_tokens: -5\n"},
		{"bad yaml", "chat: [\n"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := config.LoadConfig(writeConfig(t, tc.yaml), false); err == nil {
				t.Fatal("expected an error")
			}
		})
	}

	_, err := config.LoadConfig(writeConfig(t, "chat:\n  mode: batch\n"), false)
	if !errors.Is(err, domain.ErrUnsupportedMode) {
		t.Fatalf("expected ErrUnsupportedMode, got %v", err)
	}
}

func TestOverrides_Apply(t *testing.T) {
	clearEnv(t)
	cfg, err := config.LoadConfig("", false)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	err = config.Overrides{
		Mode:         "chat",
		Provider:     "gemini",
		System:       "be terse",
		Stream:       true,
		Timeout:      3 * time.Second,
		PollInterval: 10 * time.Millisecond,
	}.Apply(cfg)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if cfg.Mode() != model.ModeChat || cfg.AI.Provider != "gemini" || cfg.AI.DefaultModel != config.DefaultGeminiModel {
		t.Fatalf("overrides not applied: mode=%s provider=%s model=%s", cfg.Mode(), cfg.AI.Provider, cfg.AI.DefaultModel)
	}
	if cfg.Chat.System != "be terse" || !cfg.Chat.Stream || cfg.Chat.PollTimeout != 3*time.Second || cfg.Chat.PollInterval != 10*time.Millisecond {
		t.Fatalf("chat overrides: %+v", cfg.Chat)
	}

	if err := (config.Overrides{Mode: "assistants"}).Apply(cfg); err == nil {
		t.Fatal("assistants on gemini must fail validation")
	}
}
