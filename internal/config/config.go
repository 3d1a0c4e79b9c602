// File: internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"agentchat/internal/domain/model"
)

const (
	DefaultModel        = "gpt-4o-mini"
	DefaultGeminiModel  = "gemini-2.5-flash"
	DefaultPollInterval = 500 * time.Millisecond
	DefaultPollTimeout  = 120 * time.Second
	DefaultHistoryLimit = 10

	DefaultSystemPrompt = "You are a helpful, general-purpose AI assistant. Be concise but complete."

	DefaultAssistantName         = "Generic AI Agent"
	DefaultAssistantInstructions = `You are a helpful, general-purpose AI assistant.
- Be concise but complete. Use step-by-step reasoning when it improves clarity.
- Ask clarifying questions when requirements are ambiguous.
- Cite assumptions explicitly.
- Prefer safe, ethical, and privacy-preserving behavior.`
)

type RuntimeConfig struct {
	Dev bool
}

type LogConfig struct {
	Level    string `yaml:"level"`    // trace|debug|info|warn|error
	Format   string `yaml:"format"`   // json|console
	Sampling bool   `yaml:"sampling"` // enable sampling in prod
}

type AIConfig struct {
	Provider        string            `yaml:"provider"` // openai | gemini | noop
	OpenAIKey       string            `yaml:"openai_key"`
	OpenAIBaseURL   string            `yaml:"openai_base_url"`
	GeminiKey       string            `yaml:"gemini_key"`
	GeminiURL       string            `yaml:"gemini_url"`
	DefaultModel    string            `yaml:"default_model"`
	ModelProviders  map[string]string `yaml:"model_providers"` // model -> provider
	MaxRetries      int               `yaml:"max_retries"`
	RequestTimeout  time.Duration     `yaml:"request_timeout"`
	MaxOutputTokens int               `yaml:"max_output_tokens"`

	AssistantID           string `yaml:"assistant_id"`
	AssistantName         string `yaml:"assistant_name"`
	AssistantInstructions string `yaml:"assistant_instructions"`
}

type ChatConfig struct {
	Mode             string        `yaml:"mode"` // assistants | chat | responses
	System           string        `yaml:"system"`
	Stream           bool          `yaml:"stream"`
	PollInterval     time.Duration `yaml:"poll_interval"`
	PollTimeout      time.Duration `yaml:"poll_timeout"` // negative disables the timeout
	HistoryLimit     int           `yaml:"history_limit"`
	MaxContextTokens int           `yaml:"max_context_tokens"` // 0 sends the whole transcript
	Intro            string        `yaml:"intro"`
	Prompt           string        `yaml:"prompt"`
}

type MetricsConfig struct {
	Addr string `yaml:"addr"` // e.g. 127.0.0.1:9464; empty disables the endpoint
}

type Config struct {
	Log     LogConfig     `yaml:"log"`
	AI      AIConfig      `yaml:"ai"`
	Chat    ChatConfig    `yaml:"chat"`
	Metrics MetricsConfig `yaml:"metrics"`

	Runtime RuntimeConfig `yaml:"-"`
}

// LoadConfig reads the YAML file at path (a missing file yields defaults),
// loads .env into the process environment, applies environment fallbacks and
// defaults, then validates.
func LoadConfig(path string, dev bool) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	var cfg Config
	if path != "" {
		b, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
			// defaults only
		case err != nil:
			return nil, fmt.Errorf("read config: %w", err)
		default:
			if err := yaml.Unmarshal(b, &cfg); err != nil {
				return nil, fmt.Errorf("parse config: %w", err)
			}
		}
	}
	cfg.Runtime.Dev = dev
	cfg.applyEnv()
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyEnv() {
	if c.AI.OpenAIKey == "" {
		c.AI.OpenAIKey = os.Getenv("OPENAI_API_KEY")
	}
	if c.AI.OpenAIBaseURL == "" {
		c.AI.OpenAIBaseURL = os.Getenv("OPENAI_BASE_URL")
	}
	if c.AI.GeminiKey == "" {
		c.AI.GeminiKey = os.Getenv("GEMINI_API_KEY")
	}
	if c.AI.AssistantID == "" {
		c.AI.AssistantID = os.Getenv("OPENAI_ASSISTANT_ID")
	}
}

func (c *Config) applyDefaults() {
	if c.Log.Level == "" {
		c.Log.Level = "warn"
	}
	if c.Log.Format == "" {
		c.Log.Format = "console"
	}
	if c.AI.Provider == "" {
		c.AI.Provider = c.guessProvider()
	}
	c.AI.Provider = strings.ToLower(c.AI.Provider)
	if c.AI.DefaultModel == "" {
		c.AI.DefaultModel = DefaultModel
		if c.AI.Provider == "gemini" {
			c.AI.DefaultModel = DefaultGeminiModel
		}
	}
	if c.AI.MaxRetries <= 0 {
		c.AI.MaxRetries = 2
	}
	if c.AI.RequestTimeout <= 0 {
		c.AI.RequestTimeout = 60 * time.Second
	}
	if c.AI.AssistantName == "" {
		c.AI.AssistantName = DefaultAssistantName
	}
	if c.AI.AssistantInstructions == "" {
		c.AI.AssistantInstructions = DefaultAssistantInstructions
	}
	if c.Chat.Mode == "" {
		c.Chat.Mode = string(model.ModeAssistants)
	}
	if c.Chat.System == "" {
		c.Chat.System = DefaultSystemPrompt
	}
	if c.Chat.PollInterval <= 0 {
		c.Chat.PollInterval = DefaultPollInterval
	}
	if c.Chat.PollTimeout == 0 {
		c.Chat.PollTimeout = DefaultPollTimeout
	}
	if c.Chat.HistoryLimit <= 0 {
		c.Chat.HistoryLimit = DefaultHistoryLimit
	}
	if c.Chat.Prompt == "" {
		c.Chat.Prompt = "You: "
	}
}

func (c *Config) guessProvider() string {
	switch {
	case c.AI.OpenAIKey != "":
		return "openai"
	case c.AI.GeminiKey != "":
		return "gemini"
	case c.Runtime.Dev:
		return "noop"
	}
	return "openai"
}

// Validate checks values a flag override may also have changed.
func (c *Config) Validate() error {
	mode, err := model.ParseMode(c.Chat.Mode)
	if err != nil {
		return fmt.Errorf("chat.mode: %w", err)
	}
	c.Chat.Mode = string(mode)
	switch c.AI.Provider {
	case "openai", "gemini", "noop":
	default:
		return fmt.Errorf("ai.provider: unknown provider %q", c.AI.Provider)
	}
	if mode == model.ModeAssistants && c.AI.Provider == "gemini" {
		return errors.New("assistants mode requires the openai provider")
	}
	if c.Chat.PollInterval <= 0 {
		return errors.New("chat.poll_interval must be positive")
	}
	if c.Chat.MaxContextTokens < 0 {
		return errors.New("chat.max_context_tokens must not be negative")
	}
	return nil
}

// Mode returns the validated conversation mode.
func (c *Config) Mode() model.Mode {
	m, _ := model.ParseMode(c.Chat.Mode)
	return m
}

// Intro is the banner printed when the REPL starts.
func (c *Config) Intro() string {
	if c.Chat.Intro != "" {
		return c.Chat.Intro
	}
	switch c.Mode() {
	case model.ModeChat:
		return "Chat Completions mode - type 'exit' to quit"
	case model.ModeResponses:
		return "Responses API mode - type 'exit' to quit"
	}
	return "Assistants mode - type 'exit' to quit"
}

// Overrides carries command-line values that win over the file and the
// environment. Zero values leave the loaded setting alone.
type Overrides struct {
	Mode         string
	Provider     string
	Model        string
	System       string
	Stream       bool
	Timeout      time.Duration
	PollInterval time.Duration
}

// Apply copies the set overrides into c and validates the result.
func (o Overrides) Apply(c *Config) error {
	if o.Mode != "" {
		c.Chat.Mode = o.Mode
	}
	if o.Provider != "" {
		c.AI.Provider = strings.ToLower(o.Provider)
		if c.AI.Provider == "gemini" && c.AI.DefaultModel == DefaultModel {
			c.AI.DefaultModel = DefaultGeminiModel
		}
	}
	if o.Model != "" {
		c.AI.DefaultModel = o.Model
	}
	if o.System != "" {
		c.Chat.System = o.System
	}
	if o.Stream {
		c.Chat.Stream = true
	}
	if o.Timeout != 0 {
		c.Chat.PollTimeout = o.Timeout
	}
	if o.PollInterval != 0 {
		c.Chat.PollInterval = o.PollInterval
	}
	return c.Validate()
}
