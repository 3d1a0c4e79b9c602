package ai

import (
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/pkoukk/tiktoken-go"

	"agentchat/internal/domain/model"
	"agentchat/internal/domain/ports/adapter"
)

var _ adapter.TokenCounter = (*TokenCounter)(nil)

// Chat framing overhead, per the OpenAI cookbook accounting.
const (
	tokensPerMessage = 3
	tokensPerReply   = 3
)

// TokenCounter counts with tiktoken and falls back to a chars/4 estimate for
// models tiktoken does not know or when its ranks cannot be loaded.
type TokenCounter struct {
	offline bool
	lookup  func(name string) (*tiktoken.Tiktoken, error)

	mu     sync.Mutex
	encs   map[string]*tiktoken.Tiktoken
	failed map[string]bool
}

// NewTokenCounter returns a counter. offline skips tiktoken entirely, since
// its BPE ranks are downloaded on first use.
func NewTokenCounter(offline bool) *TokenCounter {
	return &TokenCounter{
		offline: offline,
		lookup:  encodingFor,
		encs:    map[string]*tiktoken.Tiktoken{},
		failed:  map[string]bool{},
	}
}

func encodingFor(name string) (*tiktoken.Tiktoken, error) {
	enc, err := tiktoken.EncodingForModel(name)
	if err == nil {
		return enc, nil
	}
	if strings.HasPrefix(strings.ToLower(name), "gemini") {
		return nil, err
	}
	return tiktoken.GetEncoding("cl100k_base")
}

func (c *TokenCounter) encoder(name string) *tiktoken.Tiktoken {
	if c.offline {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if enc, ok := c.encs[name]; ok {
		return enc
	}
	if c.failed[name] {
		return nil
	}
	enc, err := c.lookup(name)
	if err != nil || enc == nil {
		c.failed[name] = true
		return nil
	}
	c.encs[name] = enc
	return enc
}

func (c *TokenCounter) CountTokens(name string, messages []model.Message) int {
	if len(messages) == 0 {
		return 0
	}
	enc := c.encoder(name)
	n := tokensPerReply
	for _, m := range messages {
		n += tokensPerMessage
		if enc != nil {
			n += len(enc.Encode(string(m.Role), nil, nil)) + len(enc.Encode(m.Content, nil, nil))
		} else {
			n += heuristicTokens(string(m.Role)) + heuristicTokens(m.Content)
		}
	}
	return n
}

// heuristicTokens approximates one token per four characters.
func heuristicTokens(s string) int {
	if s == "" {
		return 0
	}
	return (utf8.RuneCountInString(s) + 3) / 4
}
