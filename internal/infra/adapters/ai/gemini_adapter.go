// File: .\internal\infra\adapters\ai\gemini_adapter.go
package ai

import (
	"context"
	"errors"
	"strings"
	"time"

	"google.golang.org/genai"

	"agentchat/internal/domain/model"
	"agentchat/internal/domain/ports/adapter"
)

const providerGemini = "gemini"

var _ adapter.CompletionService = (*GeminiAdapter)(nil)

type GeminiAdapter struct {
	client       *genai.Client
	defaultModel string
	maxOut       int
}

// NewGeminiAdapter creates a Gemini adapter using the official SDK.
func NewGeminiAdapter(ctx context.Context, apiKey, baseUrl, defaultModel string, maxOut int) (*GeminiAdapter, error) {
	if apiKey == "" {
		return nil, errors.New("gemini: empty api key")
	}
	c, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
		HTTPOptions: genai.HTTPOptions{
			BaseURL: baseUrl,
		},
	})
	if err != nil {
		return nil, err
	}
	return &GeminiAdapter{client: c, defaultModel: defaultModel, maxOut: maxOut}, nil
}

func (g *GeminiAdapter) GetModelInfo(name string) (adapter.ModelInfo, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	name = modelOrDefault(name, g.defaultModel)
	m, err := g.client.Models.Get(ctx, name, nil)
	if err != nil {
		// Return minimal info on error so callers aren't blocked.
		return adapter.ModelInfo{Name: name}, nil
	}
	return adapter.ModelInfo{
		Name:        m.Name,
		Description: m.Description,
		MaxTokens:   int(m.InputTokenLimit),
		Supports:    m.SupportedActions,
	}, nil
}

// Complete returns the *genai.GenerateContentResponse as received.
func (g *GeminiAdapter) Complete(ctx context.Context, name string, messages []model.Message) (adapter.Payload, error) {
	contents, cfg, err := g.request(messages)
	if err != nil {
		return nil, err
	}
	start := time.Now()
	resp, err := g.client.Models.GenerateContent(ctx, modelOrDefault(name, g.defaultModel), contents, cfg)
	observe(providerGemini, "generate", start, err)
	if err != nil {
		return nil, err
	}
	return resp, nil
}

func (g *GeminiAdapter) CompleteStream(ctx context.Context, name string, messages []model.Message) (adapter.ChunkStream, error) {
	contents, cfg, err := g.request(messages)
	if err != nil {
		return nil, err
	}
	seq := g.client.Models.GenerateContentStream(ctx, modelOrDefault(name, g.defaultModel), contents, cfg)
	return newSeqChunks(seq, providerGemini, "generate.stream"), nil
}

// --- internal ---

// request splits off the system entry into SystemInstruction; Gemini history
// only knows user and model turns.
func (g *GeminiAdapter) request(messages []model.Message) ([]*genai.Content, *genai.GenerateContentConfig, error) {
	cfg := &genai.GenerateContentConfig{}
	if g.maxOut > 0 {
		cfg.MaxOutputTokens = int32(g.maxOut)
	}
	contents := make([]*genai.Content, 0, len(messages))
	for _, m := range messages {
		switch m.Role {
		case model.RoleSystem:
			cfg.SystemInstruction = genai.NewContentFromText(m.Content, genai.RoleUser)
		case model.RoleAssistant:
			contents = append(contents, genai.NewContentFromText(m.Content, genai.RoleModel))
		default:
			contents = append(contents, genai.NewContentFromText(m.Content, genai.RoleUser))
		}
	}
	if len(contents) == 0 {
		return nil, nil, errors.New("gemini: no messages")
	}
	return contents, cfg, nil
}

func modelOrDefault(name, def string) string {
	if strings.TrimSpace(name) != "" {
		return name
	}
	return def
}
