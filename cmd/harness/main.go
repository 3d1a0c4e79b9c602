// File: cmd/harness/main.go
//
// harness sends five fixed questions in one session and prints the dialogue.
// No streaming, no REPL.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"agentchat/internal/application"
	"agentchat/internal/config"
	"agentchat/internal/infra/logging"
)

func main() {
	os.Exit(run())
}

func run() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	mode := flag.String("mode", "assistants", "assistants | chat | responses")
	provider := flag.String("provider", "", "openai | gemini | noop")
	modelName := flag.String("model", "", "model name (default from config)")
	system := flag.String("system", "", "system prompt, or assistant instructions in assistants mode")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, false)
	if err != nil {
		fmt.Println("ERROR:", err)
		return 1
	}
	if err := (config.Overrides{Mode: *mode, Provider: *provider, Model: *modelName, System: *system}).Apply(cfg); err != nil {
		fmt.Println("ERROR:", err)
		return 1
	}
	if *system != "" {
		cfg.AI.AssistantInstructions = *system
	}
	if cfg.AI.Provider == "openai" && cfg.AI.OpenAIKey == "" {
		fmt.Println("WARNING: OPENAI_API_KEY is not set. API calls will fail.")
	}

	app, err := application.New(ctx, cfg, logging.New(cfg.Log, false))
	if err != nil {
		fmt.Println("ERROR:", err)
		return 1
	}
	if err := app.RunScript(ctx, application.HarnessQuestions, os.Stdout); err != nil {
		fmt.Println("ERROR:", err)
		return 1
	}
	return 0
}
