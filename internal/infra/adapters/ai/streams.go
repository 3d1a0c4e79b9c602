package ai

import (
	"iter"
	"time"

	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/packages/ssestream"

	"agentchat/internal/domain/ports/adapter"
)

// sseChunks adapts an SDK event stream to adapter.ChunkStream. Events are
// handed over as SDK values; the normalizer reads them through RawJSON.
type sseChunks[T any] struct {
	s     *ssestream.Stream[T]
	op    string
	start time.Time
	done  bool
}

var _ adapter.ChunkStream = (*sseChunks[openai.ChatCompletionChunk])(nil)

func newSSEChunks[T any](s *ssestream.Stream[T], op string) *sseChunks[T] {
	return &sseChunks[T]{s: s, op: op, start: time.Now()}
}

func (c *sseChunks[T]) Next() bool {
	if c.done {
		return false
	}
	if c.s.Next() {
		return true
	}
	c.done = true
	observe(providerOpenAI, c.op, c.start, c.s.Err())
	return false
}

func (c *sseChunks[T]) Current() adapter.Payload { return c.s.Current() }

func (c *sseChunks[T]) Err() error { return c.s.Err() }

func (c *sseChunks[T]) Close() error { return c.s.Close() }

// seqChunks adapts a pull-based SDK iterator to adapter.ChunkStream.
type seqChunks[T any] struct {
	next     func() (T, error, bool)
	stop     func()
	cur      T
	err      error
	done     bool
	provider string
	op       string
	start    time.Time
}

func newSeqChunks[T any](seq iter.Seq2[T, error], provider, op string) *seqChunks[T] {
	next, stop := iter.Pull2(seq)
	return &seqChunks[T]{next: next, stop: stop, provider: provider, op: op, start: time.Now()}
}

func (s *seqChunks[T]) Next() bool {
	if s.done {
		return false
	}
	v, err, ok := s.next()
	if !ok || err != nil {
		s.err, s.done = err, true
		observe(s.provider, s.op, s.start, err)
		return false
	}
	s.cur = v
	return true
}

func (s *seqChunks[T]) Current() adapter.Payload { return s.cur }

func (s *seqChunks[T]) Err() error { return s.err }

func (s *seqChunks[T]) Close() error {
	s.done = true
	s.stop()
	return nil
}
