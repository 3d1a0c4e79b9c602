// Package console is the terminal front end: prompt, read a line, print the turn.
package console

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/rs/zerolog"

	"agentchat/internal/domain/model"
	"agentchat/internal/infra/logging"
	"agentchat/internal/usecase"
)

const noAnswer = "<no assistant message>"

const helpText = `Commands:
  /help       show this help
  /history    print the transcript
  /tokens     estimate transcript size in tokens
  exit | quit | :q   leave
`

// Conversation is the part of the chat use case the REPL drives.
type Conversation interface {
	SendMessage(ctx context.Context, text string, sink usecase.StreamSink) (*usecase.TurnResult, error)
	History() []model.Message
	TokenCount() int
}

type Options struct {
	Prompt string
	Intro  string
	Stream bool
}

type REPL struct {
	conv Conversation
	in   io.Reader
	out  io.Writer
	opts Options
	log  *zerolog.Logger
}

func NewREPL(conv Conversation, in io.Reader, out io.Writer, opts Options, logger *zerolog.Logger) *REPL {
	if opts.Prompt == "" {
		opts.Prompt = "You: "
	}
	if logger == nil {
		logger = logging.Nop()
	}
	return &REPL{conv: conv, in: in, out: out, opts: opts, log: logger}
}

// Run reads lines until EOF, an exit command, or ctx cancellation.
// Turn failures are printed and the loop continues.
func (r *REPL) Run(ctx context.Context) error {
	if r.opts.Intro != "" {
		fmt.Fprintln(r.out, r.opts.Intro)
	}
	done := make(chan struct{})
	defer close(done)
	lines, scanErr := r.readLines(ctx, done)
	for {
		fmt.Fprint(r.out, r.opts.Prompt)
		var (
			line string
			ok   bool
		)
		select {
		case <-ctx.Done():
			fmt.Fprintln(r.out)
			return nil
		case line, ok = <-lines:
		}
		if !ok {
			fmt.Fprintln(r.out)
			return <-scanErr
		}

		line = strings.TrimSpace(line)
		switch {
		case line == "":
			continue
		case isExit(line):
			return nil
		case strings.HasPrefix(line, "/"):
			r.command(line)
		default:
			r.turn(ctx, line)
		}
		if ctx.Err() != nil {
			return nil
		}
	}
}

// readLines feeds stdin lines from its own goroutine so a blocked read never
// delays cancellation. The goroutine stops handing out lines once done is
// closed or ctx ends.
func (r *REPL) readLines(ctx context.Context, done <-chan struct{}) (<-chan string, <-chan error) {
	lines := make(chan string)
	errc := make(chan error, 1)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(r.in)
		sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for sc.Scan() {
			select {
			case lines <- sc.Text():
			case <-done:
				errc <- nil
				return
			case <-ctx.Done():
				errc <- nil
				return
			}
		}
		errc <- sc.Err()
	}()
	return lines, errc
}

func isExit(line string) bool {
	switch strings.ToLower(line) {
	case "exit", "quit", ":q":
		return true
	}
	return false
}

func (r *REPL) command(line string) {
	switch strings.Fields(line)[0] {
	case "/help":
		fmt.Fprint(r.out, helpText)
	case "/history":
		h := r.conv.History()
		if len(h) == 0 {
			fmt.Fprintln(r.out, "(empty transcript)")
			return
		}
		for i, m := range h {
			fmt.Fprintf(r.out, "%2d %-9s %s\n", i+1, m.Role+":", m.Content)
		}
	case "/tokens":
		fmt.Fprintf(r.out, "~%d tokens in transcript\n", r.conv.TokenCount())
	default:
		fmt.Fprintln(r.out, "unknown command. /help for help")
	}
}

func (r *REPL) turn(ctx context.Context, line string) {
	started := false
	var sink usecase.StreamSink
	if r.opts.Stream {
		sink = func(delta string) {
			if !started {
				fmt.Fprint(r.out, "Assistant: ")
				started = true
			}
			fmt.Fprint(r.out, delta)
		}
	}

	res, err := r.conv.SendMessage(ctx, line, sink)
	if started {
		fmt.Fprintln(r.out)
	}
	switch {
	case err != nil:
		if ctx.Err() != nil {
			return
		}
		r.log.Debug().Err(err).Msg("turn error")
		fmt.Fprintf(r.out, "[ERROR %v]\n", err)
	case !res.Completed():
		fmt.Fprintf(r.out, "[Run status: %s]\n", res.Job.Outcome())
	case res.Streamed && res.Text != "":
		// already printed through the sink
	case res.Text == "":
		fmt.Fprintln(r.out, "Assistant: "+noAnswer)
	default:
		fmt.Fprintln(r.out, "Assistant: "+res.Text)
	}
}
