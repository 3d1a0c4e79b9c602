package ai

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"agentchat/internal/domain"
	"agentchat/internal/domain/model"
	"agentchat/internal/domain/ports/adapter"
)

var (
	_ adapter.CompletionService   = (*NoopAIAdapter)(nil)
	_ adapter.ConversationService = (*NoopAIAdapter)(nil)
)

// NoopAIAdapter answers locally for dev runs and tests. It echoes the last
// user entry and walks every run through queued, in_progress and completed,
// one state per query, so the poller is exercised without a network.
type NoopAIAdapter struct {
	delay time.Duration

	mu      sync.Mutex
	seq     int
	threads map[string][]model.Message
	runs    map[string]int // run id -> queries so far
}

// NewNoopAIAdapter constructs the noop adapter. delay simulates latency per call.
func NewNoopAIAdapter(delay time.Duration) *NoopAIAdapter {
	return &NoopAIAdapter{
		delay:   delay,
		threads: map[string][]model.Message{},
		runs:    map[string]int{},
	}
}

func (a *NoopAIAdapter) pause(ctx context.Context) error {
	if a.delay <= 0 {
		return ctx.Err()
	}
	select {
	case <-time.After(a.delay):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (a *NoopAIAdapter) nextID(prefix string) string {
	a.seq++
	return fmt.Sprintf("%s_noop_%d", prefix, a.seq)
}

func echo(messages []model.Message) string {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == model.RoleUser {
			return "echo: " + messages[i].Content
		}
	}
	return "This is a noop AI response."
}

func (a *NoopAIAdapter) GetModelInfo(name string) (adapter.ModelInfo, error) {
	return adapter.ModelInfo{
		Name:        modelOrDefault(name, "noop-ai-model"),
		Description: "Noop AI model for testing",
		MaxTokens:   1024,
		Supports:    []string{"chat", "stream", "assistants"},
	}, nil
}

// ---- CompletionService ----

func (a *NoopAIAdapter) Complete(ctx context.Context, _ string, messages []model.Message) (adapter.Payload, error) {
	if err := a.pause(ctx); err != nil {
		return nil, err
	}
	return map[string]any{
		"object": "chat.completion",
		"choices": []any{
			map[string]any{"index": 0.0, "message": map[string]any{"role": "assistant", "content": echo(messages)}},
		},
	}, nil
}

func (a *NoopAIAdapter) CompleteStream(ctx context.Context, _ string, messages []model.Message) (adapter.ChunkStream, error) {
	if err := a.pause(ctx); err != nil {
		return nil, err
	}
	words := strings.SplitAfter(echo(messages), " ")
	chunks := make([]adapter.Payload, 0, len(words)+1)
	chunks = append(chunks, map[string]any{"choices": []any{map[string]any{"delta": map[string]any{"role": "assistant"}}}})
	for _, w := range words {
		chunks = append(chunks, map[string]any{"choices": []any{map[string]any{"delta": map[string]any{"content": w}}}})
	}
	return &sliceChunks{chunks: chunks}, nil
}

// ---- ConversationService ----

func (a *NoopAIAdapter) CreateSession(ctx context.Context) (string, error) {
	if err := a.pause(ctx); err != nil {
		return "", err
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	id := a.nextID("thread")
	a.threads[id] = nil
	return id, nil
}

func (a *NoopAIAdapter) SubmitMessage(ctx context.Context, sessionID string, role model.Role, text string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if _, ok := a.threads[sessionID]; !ok {
		return domain.ErrNoSession
	}
	a.threads[sessionID] = append(a.threads[sessionID], model.Message{Role: role, Content: text, Timestamp: time.Now()})
	return nil
}

func (a *NoopAIAdapter) SubmitJob(ctx context.Context, sessionID string) (model.JobHandle, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if _, ok := a.threads[sessionID]; !ok {
		return model.JobHandle{}, domain.ErrNoSession
	}
	id := a.nextID("run")
	a.runs[id] = 0
	return model.JobHandle{SessionID: sessionID, JobID: id}, nil
}

func (a *NoopAIAdapter) QueryJob(ctx context.Context, h model.JobHandle) (model.JobStatus, error) {
	if err := a.pause(ctx); err != nil {
		return model.JobStatus{}, err
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	n, ok := a.runs[h.JobID]
	if !ok {
		return model.JobStatus{}, fmt.Errorf("%w: unknown run %s", domain.ErrInvalidArgument, h.JobID)
	}
	n++
	a.runs[h.JobID] = n

	remote := "completed"
	switch n {
	case 1:
		remote = "queued"
	case 2:
		remote = "in_progress"
	case 3:
		msgs := a.threads[h.SessionID]
		a.threads[h.SessionID] = append(msgs, model.Message{Role: model.RoleAssistant, Content: echo(msgs), Timestamp: time.Now()})
	}
	return model.JobStatus{
		State:  model.ParseJobState(remote),
		Remote: remote,
		Raw:    map[string]any{"id": h.JobID, "thread_id": h.SessionID, "status": remote},
	}, nil
}

func (a *NoopAIAdapter) ListRecentMessages(ctx context.Context, sessionID string, limit int, order string) (adapter.Payload, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	msgs, ok := a.threads[sessionID]
	if !ok {
		return nil, domain.ErrNoSession
	}
	data := make([]any, 0, len(msgs))
	for i := range msgs {
		m := msgs[i]
		if order != "asc" {
			m = msgs[len(msgs)-1-i]
		}
		data = append(data, map[string]any{
			"role": string(m.Role),
			"content": []any{
				map[string]any{"type": "text", "text": map[string]any{"value": m.Content}},
			},
		})
		if limit > 0 && len(data) == limit {
			break
		}
	}
	return map[string]any{"object": "list", "data": data}, nil
}

// sliceChunks replays prepared chunks.
type sliceChunks struct {
	chunks []adapter.Payload
	i      int
}

func (s *sliceChunks) Next() bool {
	if s.i >= len(s.chunks) {
		return false
	}
	s.i++
	return true
}

func (s *sliceChunks) Current() adapter.Payload { return s.chunks[s.i-1] }
func (s *sliceChunks) Err() error               { return nil }
func (s *sliceChunks) Close() error             { return nil }
