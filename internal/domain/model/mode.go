package model

import (
	"fmt"
	"strings"

	"agentchat/internal/domain"
)

// Mode tags which remote protocol drives a conversation.
type Mode string

const (
	// ModeAssistants keeps the conversation server side (threads and runs).
	ModeAssistants Mode = "assistants"
	// ModeChat resends the client transcript through Chat Completions.
	ModeChat Mode = "chat"
	// ModeResponses resends the client transcript through the Responses API.
	ModeResponses Mode = "responses"
)

func ParseMode(s string) (Mode, error) {
	switch m := Mode(strings.ToLower(strings.TrimSpace(s))); m {
	case ModeAssistants, ModeChat, ModeResponses:
		return m, nil
	case "":
		return ModeAssistants, nil
	}
	return "", fmt.Errorf("%w: %q", domain.ErrUnsupportedMode, s)
}

// ClientManaged reports whether the client owns the transcript sent upstream.
func (m Mode) ClientManaged() bool {
	return m == ModeChat || m == ModeResponses
}
