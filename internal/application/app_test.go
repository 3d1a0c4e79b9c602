package application_test

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"agentchat/internal/application"
	"agentchat/internal/config"
	"agentchat/internal/domain"
	"agentchat/internal/domain/model"
)

func loadConfig(t *testing.T, yaml string) *config.Config {
	t.Helper()
	for _, k := range []string{"OPENAI_API_KEY", "OPENAI_BASE_URL", "GEMINI_API_KEY", "OPENAI_ASSISTANT_ID"} {
		t.Setenv(k, "")
	}
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(yaml), 0o600); err != nil {
		t.Fatal(err)
	}
	cfg, err := config.LoadConfig(path, false)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	return cfg
}

func TestApp_ChatModeOffline(t *testing.T) {
	cfg := loadConfig(t, "ai:\n  provider: noop\nchat:\n  mode: chat\n  system: be brief\n")
	app, err := application.New(context.Background(), cfg, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if p := app.Providers(); len(p) != 1 || p[0] != "noop" {
		t.Fatalf("providers = %v", p)
	}

	var out bytes.Buffer
	if err := app.Run(context.Background(), strings.NewReader("hi\nexit\n"), &out); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !strings.Contains(out.String(), "Chat Completions mode") || !strings.Contains(out.String(), "Assistant: echo: hi") {
		t.Fatalf("unexpected output:\n%s", out.String())
	}
	h := app.Chat.History()
	if len(h) != 3 || h[0].Role != model.RoleSystem || h[2].Content != "echo: hi" {
		t.Fatalf("unexpected history: %+v", h)
	}
}

func TestApp_AssistantsModeOffline(t *testing.T) {
	cfg := loadConfig(t, "ai:\n  provider: noop\nchat:\n  mode: assistants\n  poll_interval: 1ms\n  poll_timeout: 5s\n")
	app, err := application.New(context.Background(), cfg, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if app.Poller == nil {
		t.Fatal("assistants mode must build a poller")
	}
	if err := app.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	res, err := app.Chat.SendMessage(context.Background(), "ping", nil)
	if err != nil {
		t.Fatalf("SendMessage: %v", err)
	}
	if !res.Completed() || res.Text != "echo: ping" {
		t.Fatalf("unexpected result: %+v", res)
	}
	if res.Job.Queries != 3 {
		t.Fatalf("expected 3 status queries, got %d", res.Job.Queries)
	}
	if app.Chat.SessionID() == "" {
		t.Fatal("expected a remote session id")
	}
}

func TestApp_MissingCredentials(t *testing.T) {
	cfg := loadConfig(t, "ai:\n  provider: gemini\nchat:\n  mode: chat\n")
	_, err := application.New(context.Background(), cfg, nil)
	if !errors.Is(err, domain.ErrNoProvider) {
		t.Fatalf("expected ErrNoProvider, got %v", err)
	}

	cfg = loadConfig(t, "ai:\n  provider: openai\nchat:\n  mode: assistants\n")
	if _, err := application.New(context.Background(), cfg, nil); err == nil {
		t.Fatal("expected an error for assistants mode without an api key")
	}
}

func TestApp_RunScript(t *testing.T) {
	cfg := loadConfig(t, "ai:\n  provider: noop\nchat:\n  mode: responses\n  stream: true\n")
	app, err := application.New(context.Background(), cfg, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	var out bytes.Buffer
	if err := app.RunScript(context.Background(), application.HarnessQuestions[:2], &out); err != nil {
		t.Fatalf("RunScript: %v", err)
	}
	want := "You: how many books there have been written through human history\n" +
		"Assistant: echo: how many books there have been written through human history\n\n" +
		"You: can't you just count them yourself?\n" +
		"Assistant: echo: can't you just count them yourself?\n\n"
	if out.String() != want {
		t.Fatalf("got:\n%s\nwant:\n%s", out.String(), want)
	}
	if n := len(app.Chat.History()); n != 5 {
		t.Fatalf("expected system + 4 entries, got %d", n)
	}
}
