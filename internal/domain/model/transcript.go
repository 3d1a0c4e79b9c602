package model

import (
	"time"

	"agentchat/internal/domain"
)

type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one transcript entry.
type Message struct {
	Role      Role
	Content   string
	Timestamp time.Time
}

// Transcript is the client-held conversation for a single session.
// Entries are append-only; a system entry may only appear once, as the first entry.
type Transcript struct {
	ID        string
	Messages  []Message
	CreatedAt time.Time
}

func NewTranscript(id string) *Transcript {
	return &Transcript{
		ID:        id,
		Messages:  make([]Message, 0, 8),
		CreatedAt: time.Now(),
	}
}

// SetSystem seeds the system entry. It fails once any entry exists.
func (t *Transcript) SetSystem(content string) error {
	if content == "" {
		return nil
	}
	if len(t.Messages) > 0 {
		return domain.ErrInvalidArgument
	}
	t.Messages = append(t.Messages, Message{Role: RoleSystem, Content: content, Timestamp: time.Now()})
	return nil
}

// Append adds a user or assistant entry.
func (t *Transcript) Append(role Role, content string) error {
	if role != RoleUser && role != RoleAssistant {
		return domain.ErrInvalidArgument
	}
	t.Messages = append(t.Messages, Message{Role: role, Content: content, Timestamp: time.Now()})
	return nil
}

// Staged returns a copy of the entries followed by extra. The transcript is untouched.
func (t *Transcript) Staged(extra ...Message) []Message {
	out := make([]Message, 0, len(t.Messages)+len(extra))
	out = append(out, t.Messages...)
	return append(out, extra...)
}

func (t *Transcript) Len() int { return len(t.Messages) }
