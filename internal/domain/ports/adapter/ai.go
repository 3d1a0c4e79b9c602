package adapter

import (
	"context"

	"agentchat/internal/domain/model"
)

// Payload is a response object of unknown shape: a string, a decoded JSON tree,
// raw JSON bytes, or an SDK value exposing RawJSON().
type Payload = any

// ModelInfo describes a model.
type ModelInfo struct {
	Name        string
	Description string
	MaxTokens   int // input token limit; 0 when the provider does not publish it
	Supports    []string
}

// AssistantSpec describes the server-side assistant used in assistants mode.
type AssistantSpec struct {
	ID           string // reuse an existing assistant when set
	Name         string
	Model        string
	Instructions string
}

// ConversationService is the port for server-managed conversations.
type ConversationService interface {
	// CreateSession returns a new session id (thread) bound to the assistant.
	CreateSession(ctx context.Context) (string, error)
	SubmitMessage(ctx context.Context, sessionID string, role model.Role, text string) error
	SubmitJob(ctx context.Context, sessionID string) (model.JobHandle, error)
	QueryJob(ctx context.Context, h model.JobHandle) (model.JobStatus, error)
	// ListRecentMessages returns the raw message list; order is "asc" or "desc".
	ListRecentMessages(ctx context.Context, sessionID string, limit int, order string) (Payload, error)
}

// ChunkStream is a finite, non-restartable sequence of streamed payloads.
type ChunkStream interface {
	Next() bool
	Current() Payload
	Err() error
	Close() error
}

// CompletionService is the port for client-managed transcript modes.
type CompletionService interface {
	Complete(ctx context.Context, modelName string, messages []model.Message) (Payload, error)
	CompleteStream(ctx context.Context, modelName string, messages []model.Message) (ChunkStream, error)
	GetModelInfo(modelName string) (ModelInfo, error)
}

// TokenCounter estimates prompt tokens for a message window.
type TokenCounter interface {
	CountTokens(modelName string, messages []model.Message) int
}
