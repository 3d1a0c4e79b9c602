package ai

import (
	"context"
	"time"

	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/responses"
	"github.com/openai/openai-go/v2/shared"

	"agentchat/internal/domain/model"
	"agentchat/internal/domain/ports/adapter"
)

var _ adapter.CompletionService = (*OpenAIResponsesAdapter)(nil)

// OpenAIResponsesAdapter implements adapter.CompletionService using the
// Responses API. The system entry travels as instructions; the rest of the
// transcript is sent as input items.
type OpenAIResponsesAdapter struct {
	client openai.Client
	opts   OpenAIOptions
}

func NewOpenAIResponsesAdapter(o OpenAIOptions) (*OpenAIResponsesAdapter, error) {
	c, err := newOpenAIClient(o)
	if err != nil {
		return nil, err
	}
	return &OpenAIResponsesAdapter{client: c, opts: o}, nil
}

func (o *OpenAIResponsesAdapter) GetModelInfo(name string) (adapter.ModelInfo, error) {
	return adapter.ModelInfo{
		Name:        o.opts.model(name),
		Description: "OpenAI Responses model",
		Supports:    []string{"text", "stream"},
	}, nil
}

func (o *OpenAIResponsesAdapter) params(name string, messages []model.Message) responses.ResponseNewParams {
	p := responses.ResponseNewParams{Model: shared.ResponsesModel(o.opts.model(name))}
	items := make(responses.ResponseInputParam, 0, len(messages))
	for _, m := range messages {
		switch m.Role {
		case model.RoleSystem:
			p.Instructions = openai.String(m.Content)
		case model.RoleAssistant:
			items = append(items, responses.ResponseInputItemParamOfMessage(m.Content, responses.EasyInputMessageRoleAssistant))
		default:
			items = append(items, responses.ResponseInputItemParamOfMessage(m.Content, responses.EasyInputMessageRoleUser))
		}
	}
	p.Input = responses.ResponseNewParamsInputUnion{OfInputItemList: items}
	if o.opts.MaxOutputTokens > 0 {
		p.MaxOutputTokens = openai.Int(int64(o.opts.MaxOutputTokens))
	}
	return p
}

// Complete returns the *responses.Response as received.
func (o *OpenAIResponsesAdapter) Complete(ctx context.Context, name string, messages []model.Message) (adapter.Payload, error) {
	start := time.Now()
	resp, err := o.client.Responses.New(ctx, o.params(name, messages), o.opts.callOpts()...)
	observe(providerOpenAI, "responses.complete", start, err)
	if err != nil {
		return nil, err
	}
	return resp, nil
}

// CompleteStream yields responses.ResponseStreamEventUnion values.
func (o *OpenAIResponsesAdapter) CompleteStream(ctx context.Context, name string, messages []model.Message) (adapter.ChunkStream, error) {
	s := o.client.Responses.NewStreaming(ctx, o.params(name, messages))
	if err := s.Err(); err != nil {
		observe(providerOpenAI, "responses.stream", time.Now(), err)
		_ = s.Close()
		return nil, err
	}
	return newSSEChunks(s, "responses.stream"), nil
}
