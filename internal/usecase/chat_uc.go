// File: internal/usecase/chat_uc.go
package usecase

import (
	"context"
	"crypto/rand"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"

	"agentchat/internal/domain"
	"agentchat/internal/domain/model"
	"agentchat/internal/domain/ports/adapter"
	"agentchat/internal/infra/logging"
	"agentchat/internal/infra/metrics"
)

// Compile-time check
var _ ChatUseCase = (*chatUC)(nil)

// StreamSink receives visible text deltas while a streamed answer arrives.
type StreamSink func(delta string)

// Turn is what a strategy gets for one user message. Window is the staged
// transcript (user entry included) trimmed to the context budget.
type Turn struct {
	Text   string
	Model  string
	Window []model.Message
}

// TurnResult describes one finished turn.
type TurnResult struct {
	TraceID string
	Text    string
	Matcher string // normalizer matcher that produced Text; "" when nothing matched
	Job     *model.PollResult

	Submitted bool // the user message already lives on the remote session
	Streamed  bool // Text was delivered through the sink
	FellBack  bool // streaming failed and the synchronous call answered

	Latency time.Duration
}

// Completed is false when a job settled in a non-completed state or timed out.
func (r *TurnResult) Completed() bool {
	return r.Job == nil || (!r.Job.TimedOut && r.Job.Last.State == model.JobStateCompleted)
}

// TurnStrategy runs a turn against one remote protocol.
type TurnStrategy interface {
	Mode() model.Mode
	// Start prepares the remote side and returns its session id, if any.
	Start(ctx context.Context) (string, error)
	Respond(ctx context.Context, turn Turn) (*TurnResult, error)
}

// StreamingStrategy is implemented by strategies that can stream an answer.
type StreamingStrategy interface {
	TurnStrategy
	Stream(ctx context.Context, turn Turn, sink StreamSink) (*TurnResult, error)
}

// ModelDescriber is implemented by strategies that can report model limits.
type ModelDescriber interface {
	ModelInfo(modelName string) (adapter.ModelInfo, error)
}

type ChatUseCase interface {
	Start(ctx context.Context) error
	SendMessage(ctx context.Context, text string, sink StreamSink) (*TurnResult, error)
	Mode() model.Mode
	SessionID() string
	History() []model.Message
	TokenCount() int
}

type ChatOptions struct {
	Model            string
	System           string
	Stream           bool
	MaxContextTokens int // 0 takes the model's limit when known, else sends the whole transcript
}

type chatUC struct {
	strategy TurnStrategy
	counter  adapter.TokenCounter
	opts     ChatOptions
	log      *zerolog.Logger

	transcript *model.Transcript
	sessionID  string
}

func NewChatUseCase(strategy TurnStrategy, counter adapter.TokenCounter, opts ChatOptions, logger *zerolog.Logger) *chatUC {
	if logger == nil {
		logger = logging.Nop()
	}
	return &chatUC{strategy: strategy, counter: counter, opts: opts, log: logger}
}

func (c *chatUC) Mode() model.Mode { return c.strategy.Mode() }

func (c *chatUC) SessionID() string { return c.sessionID }

// Start creates the transcript and the remote session. Calling it twice is a no-op.
func (c *chatUC) Start(ctx context.Context) error {
	if c.transcript != nil {
		return nil
	}
	t := model.NewTranscript(ulid.MustNew(ulid.Timestamp(time.Now()), rand.Reader).String())
	if c.Mode().ClientManaged() {
		if err := t.SetSystem(c.opts.System); err != nil {
			return err
		}
	}

	ctx = logging.WithMode(ctx, string(c.Mode()))
	sid, err := c.strategy.Start(ctx)
	if err != nil {
		return fmt.Errorf("start %s session: %w", c.Mode(), err)
	}
	if sid == "" {
		sid = t.ID
	}
	c.transcript, c.sessionID = t, sid
	log := logging.With(logging.WithSessID(ctx, sid), c.log)
	c.resolveBudget(log)
	log.Info().Str("transcript_id", t.ID).Int("context_budget", c.opts.MaxContextTokens).Msg("session started")
	return nil
}

// resolveBudget fills an unset context budget from the model's input limit.
func (c *chatUC) resolveBudget(log *zerolog.Logger) {
	md, ok := c.strategy.(ModelDescriber)
	if c.opts.MaxContextTokens > 0 || !ok {
		return
	}
	info, err := md.ModelInfo(c.opts.Model)
	if err != nil {
		log.Debug().Err(err).Str("model", c.opts.Model).Msg("model info unavailable")
		return
	}
	if info.MaxTokens > 0 {
		c.opts.MaxContextTokens = info.MaxTokens
	}
}

// SendMessage runs one turn. On success both the user and the assistant
// entries are appended; when a job ends in any state but completed only the
// user entry is kept. On error the transcript is unchanged unless the message
// was already submitted to the remote session, in which case the user entry
// is kept as well.
func (c *chatUC) SendMessage(ctx context.Context, text string, sink StreamSink) (*TurnResult, error) {
	if c.transcript == nil {
		return nil, domain.ErrNoSession
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, domain.ErrEmptyMessage
	}

	traceID := uuid.NewString()
	ctx = logging.WithTraceID(ctx, traceID)
	ctx = logging.WithSessID(ctx, c.sessionID)
	ctx = logging.WithMode(ctx, string(c.Mode()))
	log := logging.With(ctx, c.log)
	defer logging.TraceDuration(log, "ChatUC.SendMessage")()

	start := time.Now()
	user := model.Message{Role: model.RoleUser, Content: text, Timestamp: start}
	turn := Turn{Text: text, Model: c.opts.Model, Window: c.window(c.transcript.Staged(user))}
	if c.counter != nil {
		metrics.AddPromptTokens(string(c.Mode()), c.opts.Model, c.counter.CountTokens(c.opts.Model, turn.Window))
	}

	res, err := c.run(ctx, log, turn, sink)
	elapsed := time.Since(start)
	if err != nil {
		if res != nil && res.Submitted {
			_ = c.transcript.Append(model.RoleUser, text)
		}
		metrics.ObserveTurn(string(c.Mode()), "error", elapsed.Seconds())
		log.Warn().Err(err).Bool("submitted", res != nil && res.Submitted).Msg("turn failed")
		return nil, err
	}
	res.TraceID, res.Latency = traceID, elapsed

	_ = c.transcript.Append(model.RoleUser, text)
	result := "ok"
	switch {
	case !res.Completed():
		result = "incomplete"
	default:
		_ = c.transcript.Append(model.RoleAssistant, res.Text)
		if res.Text == "" {
			result = "empty"
		}
	}
	metrics.ObserveTurn(string(c.Mode()), result, elapsed.Seconds())
	metrics.SetTranscriptTokens(c.TokenCount())
	log.Debug().
		Str("result", result).
		Str("matcher", res.Matcher).
		Bool("streamed", res.Streamed).
		Bool("fell_back", res.FellBack).
		Int("entries", c.transcript.Len()).
		Msg("turn finished")
	return res, nil
}

// run streams when enabled and supported; a broken stream falls back to the
// synchronous call exactly once with the same turn.
func (c *chatUC) run(ctx context.Context, log *zerolog.Logger, turn Turn, sink StreamSink) (*TurnResult, error) {
	ss, ok := c.strategy.(StreamingStrategy)
	if !c.opts.Stream || !ok || sink == nil {
		return c.strategy.Respond(ctx, turn)
	}
	res, err := ss.Stream(ctx, turn, sink)
	if err == nil {
		return res, nil
	}
	if ctx.Err() != nil {
		return nil, err
	}
	log.Warn().Err(err).Msg("stream failed; retrying without streaming")
	metrics.IncStreamFallback(string(c.Mode()))
	res, err = c.strategy.Respond(ctx, turn)
	if err != nil {
		return nil, err
	}
	res.FellBack = true
	return res, nil
}

// window keeps the system entry and the newest entries that fit the token
// budget. The newest entry is always kept.
func (c *chatUC) window(staged []model.Message) []model.Message {
	if c.opts.MaxContextTokens <= 0 || c.counter == nil || len(staged) == 0 {
		return staged
	}
	var head []model.Message
	body := staged
	if staged[0].Role == model.RoleSystem {
		head, body = staged[:1], staged[1:]
	}
	budget := c.opts.MaxContextTokens - c.counter.CountTokens(c.opts.Model, head)
	from := len(body)
	for from > 0 {
		cost := c.counter.CountTokens(c.opts.Model, body[from-1:from])
		if from < len(body) && cost > budget {
			break
		}
		budget -= cost
		from--
	}
	out := make([]model.Message, 0, len(head)+len(body)-from)
	out = append(out, head...)
	return append(out, body[from:]...)
}

// History returns a copy of the transcript.
func (c *chatUC) History() []model.Message {
	if c.transcript == nil {
		return nil
	}
	return c.transcript.Staged()
}

// TokenCount estimates the transcript size for the active model.
func (c *chatUC) TokenCount() int {
	if c.transcript == nil || c.counter == nil {
		return 0
	}
	return c.counter.CountTokens(c.opts.Model, c.transcript.Messages)
}
