// File: internal/infra/adapters/ai/multi_adapter.go
package ai

import (
	"context"
	"sort"
	"strings"

	"agentchat/internal/domain"
	"agentchat/internal/domain/model"
	"agentchat/internal/domain/ports/adapter"
)

var _ adapter.CompletionService = (*MultiAIAdapter)(nil)

// MultiAIAdapter routes each call to a provider chosen from the model name.
type MultiAIAdapter struct {
	defaultProvider string // e.g., "openai" or "gemini"
	byProvider      map[string]adapter.CompletionService
	modelToProvider map[string]string // model -> provider ("openai" | "gemini")
}

// NewMultiAIAdapter does not inject any default model; it only knows a default provider.
// Each provider adapter is responsible for its own default model.
func NewMultiAIAdapter(
	defaultProvider string,
	byProvider map[string]adapter.CompletionService,
	modelToProvider map[string]string,
) *MultiAIAdapter {
	return &MultiAIAdapter{
		defaultProvider: strings.ToLower(defaultProvider),
		byProvider:      byProvider,
		modelToProvider: modelToProvider,
	}
}

func (m *MultiAIAdapter) resolveProvider(name string) string {
	if p := m.modelToProvider[name]; p != "" {
		return strings.ToLower(p)
	}
	l := strings.ToLower(name)
	switch {
	case strings.HasPrefix(l, "gemini"):
		return "gemini"
	case strings.HasPrefix(l, "gpt"), strings.HasPrefix(l, "o1"), strings.HasPrefix(l, "o3"), strings.HasPrefix(l, "o4"):
		return "openai"
	default:
		return m.defaultProvider
	}
}

func (m *MultiAIAdapter) pick(name string) adapter.CompletionService {
	prov := m.resolveProvider(name)
	if a := m.byProvider[prov]; a != nil {
		return a
	}
	if a := m.byProvider[m.defaultProvider]; a != nil {
		return a
	}
	// last resort: first available, in a stable order
	keys := make([]string, 0, len(m.byProvider))
	for k := range m.byProvider {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if a := m.byProvider[k]; a != nil {
			return a
		}
	}
	return nil
}

// Providers lists configured provider names.
func (m *MultiAIAdapter) Providers() []string {
	out := make([]string, 0, len(m.byProvider))
	for k, a := range m.byProvider {
		if a != nil {
			out = append(out, k)
		}
	}
	sort.Strings(out)
	return out
}

func (m *MultiAIAdapter) GetModelInfo(name string) (adapter.ModelInfo, error) {
	a := m.pick(name)
	if a == nil {
		return adapter.ModelInfo{Name: name}, nil
	}
	return a.GetModelInfo(name)
}

func (m *MultiAIAdapter) Complete(ctx context.Context, name string, messages []model.Message) (adapter.Payload, error) {
	a := m.pick(name)
	if a == nil {
		return nil, domain.ErrNoProvider
	}
	return a.Complete(ctx, name, messages)
}

func (m *MultiAIAdapter) CompleteStream(ctx context.Context, name string, messages []model.Message) (adapter.ChunkStream, error) {
	a := m.pick(name)
	if a == nil {
		return nil, domain.ErrNoProvider
	}
	return a.CompleteStream(ctx, name, messages)
}
