// File: cmd/smoke/main.go
//
// smoke checks the local setup without making any network call.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"runtime"
	"strings"

	"agentchat/internal/application"
	"agentchat/internal/config"
	"agentchat/internal/infra/logging"
)

func main() {
	os.Exit(run())
}

func run() int {
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	flag.Parse()

	fmt.Println("[1/4] Checking Go runtime...")
	fmt.Printf("Go: %s %s/%s\n", runtime.Version(), runtime.GOOS, runtime.GOARCH)

	fmt.Println("[2/4] Loading configuration...")
	cfg, err := config.LoadConfig(*cfgPath, false)
	if err != nil {
		fmt.Println("ERROR:", err)
		return 1
	}
	fmt.Printf("mode=%s provider=%s model=%s\n", cfg.Chat.Mode, cfg.AI.Provider, cfg.AI.DefaultModel)

	fmt.Println("[3/4] Checking API keys...")
	for _, k := range []struct{ name, value string }{
		{"OPENAI_API_KEY", cfg.AI.OpenAIKey},
		{"GEMINI_API_KEY", cfg.AI.GeminiKey},
	} {
		if k.value != "" {
			fmt.Printf("%s: found (length hidden)\n", k.name)
		} else {
			fmt.Printf("WARNING: %s not set.\n", k.name)
		}
	}

	fmt.Println("[4/4] Constructing clients (no network call)...")
	app, err := application.New(context.Background(), cfg, logging.Nop())
	if err != nil {
		fmt.Println("ERROR:", err)
		return 1
	}
	fmt.Printf("Clients constructed successfully. providers=%s\n", strings.Join(app.Providers(), ","))

	fmt.Println("\nSmoke test passed. Your environment looks good.")
	fmt.Println("Next: `go run ./cmd/agentchat` to start the REPL.")
	return 0
}
