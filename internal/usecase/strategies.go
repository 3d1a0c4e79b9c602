// File: internal/usecase/strategies.go
package usecase

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"agentchat/internal/config"
	"agentchat/internal/domain"
	"agentchat/internal/domain/model"
	"agentchat/internal/domain/normalize"
	"agentchat/internal/domain/ports/adapter"
	"agentchat/internal/infra/logging"
	"agentchat/internal/infra/metrics"
)

var (
	_ TurnStrategy      = (*AssistantsStrategy)(nil)
	_ StreamingStrategy = (*CompletionStrategy)(nil)
	_ ModelDescriber    = (*CompletionStrategy)(nil)
)

// AssistantsStrategy drives a server-side thread: submit, run, poll, list.
type AssistantsStrategy struct {
	svc          adapter.ConversationService
	poller       *JobPoller
	historyLimit int
	log          *zerolog.Logger

	sessionID string
}

func NewAssistantsStrategy(svc adapter.ConversationService, poller *JobPoller, historyLimit int, logger *zerolog.Logger) *AssistantsStrategy {
	if historyLimit <= 0 {
		historyLimit = config.DefaultHistoryLimit
	}
	if logger == nil {
		logger = logging.Nop()
	}
	return &AssistantsStrategy{svc: svc, poller: poller, historyLimit: historyLimit, log: logger}
}

func (s *AssistantsStrategy) Mode() model.Mode { return model.ModeAssistants }

func (s *AssistantsStrategy) Start(ctx context.Context) (string, error) {
	id, err := s.svc.CreateSession(ctx)
	if err != nil {
		return "", err
	}
	s.sessionID = id
	return id, nil
}

func (s *AssistantsStrategy) Respond(ctx context.Context, turn Turn) (*TurnResult, error) {
	if s.sessionID == "" {
		return nil, domain.ErrNoSession
	}
	if err := s.svc.SubmitMessage(ctx, s.sessionID, model.RoleUser, turn.Text); err != nil {
		return nil, fmt.Errorf("submit message: %w", err)
	}
	// From here on the message lives on the thread, so failures still
	// return a result marked Submitted.
	res := &TurnResult{Submitted: true}
	h, err := s.svc.SubmitJob(ctx, s.sessionID)
	if err != nil {
		return res, fmt.Errorf("start run: %w", err)
	}
	pr, err := s.poller.Poll(ctx, h)
	res.Job = &pr
	if err != nil {
		return res, err
	}
	if !res.Completed() {
		return res, nil
	}
	payload, err := s.svc.ListRecentMessages(ctx, s.sessionID, s.historyLimit, "desc")
	if err != nil {
		return res, fmt.Errorf("list messages: %w", err)
	}
	res.Text, res.Matcher, _ = normalize.Answer.Apply(payload)
	return res, nil
}

// CompletionStrategy resends the client transcript on every turn. It serves
// both chat and responses modes; the mode only selects the CompletionService.
type CompletionStrategy struct {
	mode model.Mode
	svc  adapter.CompletionService
	log  *zerolog.Logger
}

func NewCompletionStrategy(mode model.Mode, svc adapter.CompletionService, logger *zerolog.Logger) (*CompletionStrategy, error) {
	if !mode.ClientManaged() {
		return nil, fmt.Errorf("%w: %s is not a client-managed mode", domain.ErrUnsupportedMode, mode)
	}
	if svc == nil {
		return nil, domain.ErrNoProvider
	}
	if logger == nil {
		logger = logging.Nop()
	}
	return &CompletionStrategy{mode: mode, svc: svc, log: logger}, nil
}

func (s *CompletionStrategy) Mode() model.Mode { return s.mode }

func (s *CompletionStrategy) Start(context.Context) (string, error) { return "", nil }

// ModelInfo describes modelName as the routed provider reports it.
func (s *CompletionStrategy) ModelInfo(modelName string) (adapter.ModelInfo, error) {
	return s.svc.GetModelInfo(modelName)
}

func (s *CompletionStrategy) Respond(ctx context.Context, turn Turn) (*TurnResult, error) {
	payload, err := s.svc.Complete(ctx, turn.Model, turn.Window)
	if err != nil {
		return nil, err
	}
	res := &TurnResult{}
	res.Text, res.Matcher, _ = normalize.Answer.Apply(payload)
	return res, nil
}

// Stream forwards each recognized delta to sink. Chunks no delta matcher
// recognizes are skipped and counted.
func (s *CompletionStrategy) Stream(ctx context.Context, turn Turn, sink StreamSink) (*TurnResult, error) {
	st, err := s.svc.CompleteStream(ctx, turn.Model, turn.Window)
	if err != nil {
		return nil, fmt.Errorf("open stream: %w", err)
	}
	defer st.Close()

	log := logging.With(ctx, s.log)
	var b strings.Builder
	for st.Next() {
		delta, ok := normalize.Delta(st.Current())
		if !ok {
			metrics.IncChunkSkipped(string(s.mode))
			log.Debug().Msg("skipped stream chunk with unrecognized shape")
			continue
		}
		if delta == "" {
			continue
		}
		b.WriteString(delta)
		sink(delta)
	}
	if err := st.Err(); err != nil {
		return nil, fmt.Errorf("stream: %w", err)
	}
	return &TurnResult{Text: b.String(), Matcher: "stream", Streamed: true}, nil
}
