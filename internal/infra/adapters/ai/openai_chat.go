package ai

import (
	"context"
	"time"

	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/shared"

	"agentchat/internal/domain/model"
	"agentchat/internal/domain/ports/adapter"
)

// Compile-time assurance this adapter satisfies the port
var _ adapter.CompletionService = (*OpenAIChatAdapter)(nil)

// OpenAIChatAdapter implements adapter.CompletionService using the Chat Completions API.
type OpenAIChatAdapter struct {
	client openai.Client
	opts   OpenAIOptions
}

func NewOpenAIChatAdapter(o OpenAIOptions) (*OpenAIChatAdapter, error) {
	c, err := newOpenAIClient(o)
	if err != nil {
		return nil, err
	}
	return &OpenAIChatAdapter{client: c, opts: o}, nil
}

func (o *OpenAIChatAdapter) GetModelInfo(name string) (adapter.ModelInfo, error) {
	return adapter.ModelInfo{
		Name:        o.opts.model(name),
		Description: "OpenAI Chat Completions model",
		Supports:    []string{"text", "stream"},
	}, nil
}

func (o *OpenAIChatAdapter) params(name string, messages []model.Message) openai.ChatCompletionNewParams {
	p := openai.ChatCompletionNewParams{
		Model:    shared.ChatModel(o.opts.model(name)),
		Messages: toChatMessages(messages),
	}
	if o.opts.MaxOutputTokens > 0 {
		p.MaxCompletionTokens = openai.Int(int64(o.opts.MaxOutputTokens))
	}
	return p
}

// Complete returns the *openai.ChatCompletion as received.
func (o *OpenAIChatAdapter) Complete(ctx context.Context, name string, messages []model.Message) (adapter.Payload, error) {
	start := time.Now()
	resp, err := o.client.Chat.Completions.New(ctx, o.params(name, messages), o.opts.callOpts()...)
	observe(providerOpenAI, "chat.complete", start, err)
	if err != nil {
		return nil, err
	}
	return resp, nil
}

// CompleteStream yields openai.ChatCompletionChunk values.
func (o *OpenAIChatAdapter) CompleteStream(ctx context.Context, name string, messages []model.Message) (adapter.ChunkStream, error) {
	s := o.client.Chat.Completions.NewStreaming(ctx, o.params(name, messages))
	if err := s.Err(); err != nil {
		observe(providerOpenAI, "chat.stream", time.Now(), err)
		_ = s.Close()
		return nil, err
	}
	return newSSEChunks(s, "chat.stream"), nil
}

func toChatMessages(msgs []model.Message) []openai.ChatCompletionMessageParamUnion {
	out := make([]openai.ChatCompletionMessageParamUnion, 0, len(msgs))
	for _, m := range msgs {
		switch m.Role {
		case model.RoleSystem:
			out = append(out, openai.SystemMessage(m.Content))
		case model.RoleAssistant:
			out = append(out, openai.AssistantMessage(m.Content))
		default:
			out = append(out, openai.UserMessage(m.Content))
		}
	}
	return out
}
