package ai

import (
	"context"
	"fmt"
	"time"

	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/shared"
	"github.com/rs/zerolog"

	"agentchat/internal/domain"
	"agentchat/internal/domain/model"
	"agentchat/internal/domain/ports/adapter"
	"agentchat/internal/infra/logging"
)

// Compile-time assurance this adapter satisfies the port
var _ adapter.ConversationService = (*OpenAIAssistantsAdapter)(nil)

// OpenAIAssistantsAdapter keeps the conversation on the server: one assistant,
// one thread per session, one run per turn.
type OpenAIAssistantsAdapter struct {
	client openai.Client
	opts   OpenAIOptions
	spec   adapter.AssistantSpec
	log    *zerolog.Logger

	assistantID string
}

func NewOpenAIAssistantsAdapter(o OpenAIOptions, spec adapter.AssistantSpec, logger *zerolog.Logger) (*OpenAIAssistantsAdapter, error) {
	c, err := newOpenAIClient(o)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = logging.Nop()
	}
	spec.Model = o.model(spec.Model)
	return &OpenAIAssistantsAdapter{client: c, opts: o, spec: spec, log: logger, assistantID: spec.ID}, nil
}

// EnsureAssistant reuses the configured assistant id or creates a new one.
func (a *OpenAIAssistantsAdapter) EnsureAssistant(ctx context.Context) (string, error) {
	if a.assistantID != "" {
		return a.assistantID, nil
	}
	start := time.Now()
	created, err := a.client.Beta.Assistants.New(ctx, openai.BetaAssistantNewParams{
		Model:        shared.ChatModel(a.spec.Model),
		Name:         openai.String(a.spec.Name),
		Instructions: openai.String(a.spec.Instructions),
	}, a.opts.callOpts()...)
	observe(providerOpenAI, "assistant.create", start, err)
	if err != nil {
		return "", fmt.Errorf("create assistant: %w", err)
	}
	a.assistantID = created.ID
	logging.With(ctx, a.log).Info().
		Str("assistant_id", created.ID).
		Str("model", a.spec.Model).
		Msg("assistant created")
	return a.assistantID, nil
}

func (a *OpenAIAssistantsAdapter) CreateSession(ctx context.Context) (string, error) {
	if _, err := a.EnsureAssistant(ctx); err != nil {
		return "", err
	}
	start := time.Now()
	th, err := a.client.Beta.Threads.New(ctx, openai.BetaThreadNewParams{}, a.opts.callOpts()...)
	observe(providerOpenAI, "thread.create", start, err)
	if err != nil {
		return "", fmt.Errorf("create thread: %w", err)
	}
	return th.ID, nil
}

func (a *OpenAIAssistantsAdapter) SubmitMessage(ctx context.Context, sessionID string, role model.Role, text string) error {
	var r openai.BetaThreadMessageNewParamsRole
	switch role {
	case model.RoleUser:
		r = openai.BetaThreadMessageNewParamsRoleUser
	case model.RoleAssistant:
		r = openai.BetaThreadMessageNewParamsRoleAssistant
	default:
		return fmt.Errorf("%w: role %q cannot be posted to a thread", domain.ErrInvalidArgument, role)
	}
	start := time.Now()
	_, err := a.client.Beta.Threads.Messages.New(ctx, sessionID, openai.BetaThreadMessageNewParams{
		Role:    r,
		Content: openai.BetaThreadMessageNewParamsContentUnion{OfString: openai.String(text)},
	}, a.opts.callOpts()...)
	observe(providerOpenAI, "message.create", start, err)
	return err
}

func (a *OpenAIAssistantsAdapter) SubmitJob(ctx context.Context, sessionID string) (model.JobHandle, error) {
	if a.assistantID == "" {
		return model.JobHandle{}, domain.ErrNoSession
	}
	start := time.Now()
	run, err := a.client.Beta.Threads.Runs.New(ctx, sessionID, openai.BetaThreadRunNewParams{
		AssistantID: a.assistantID,
	}, a.opts.callOpts()...)
	observe(providerOpenAI, "run.create", start, err)
	if err != nil {
		return model.JobHandle{}, err
	}
	return model.JobHandle{SessionID: sessionID, JobID: run.ID}, nil
}

func (a *OpenAIAssistantsAdapter) QueryJob(ctx context.Context, h model.JobHandle) (model.JobStatus, error) {
	start := time.Now()
	run, err := a.client.Beta.Threads.Runs.Get(ctx, h.SessionID, h.JobID, a.opts.callOpts()...)
	observe(providerOpenAI, "run.get", start, err)
	if err != nil {
		return model.JobStatus{}, err
	}
	remote := string(run.Status)
	return model.JobStatus{
		State:     model.ParseJobState(remote),
		Remote:    remote,
		LastError: run.LastError.Message,
		Raw:       run,
	}, nil
}

func (a *OpenAIAssistantsAdapter) ListRecentMessages(ctx context.Context, sessionID string, limit int, order string) (adapter.Payload, error) {
	o := openai.BetaThreadMessageListParamsOrderDesc
	if order == "asc" {
		o = openai.BetaThreadMessageListParamsOrderAsc
	}
	params := openai.BetaThreadMessageListParams{Order: o}
	if limit > 0 {
		params.Limit = openai.Int(int64(limit))
	}
	start := time.Now()
	page, err := a.client.Beta.Threads.Messages.List(ctx, sessionID, params, a.opts.callOpts()...)
	observe(providerOpenAI, "message.list", start, err)
	if err != nil {
		return nil, err
	}
	return page, nil
}
