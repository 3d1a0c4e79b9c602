package application

import (
	"context"
	"fmt"
	"io"
)

// HarnessQuestions is the fixed dialogue cmd/harness sends. Each question
// builds on the previous answer, so it shows whether context is kept.
var HarnessQuestions = []string{
	"how many books there have been written through human history",
	"can't you just count them yourself?",
	"how many have you read yourself?",
	"which book do you like the most?",
	"which one would you recommend I read?",
}

// RunScript opens a session and sends each question in order without
// streaming, printing a You/Assistant pair per turn. The first failed turn
// stops the script.
func (a *App) RunScript(ctx context.Context, questions []string, out io.Writer) error {
	if err := a.Start(ctx); err != nil {
		return err
	}
	for _, q := range questions {
		res, err := a.Chat.SendMessage(ctx, q, nil)
		if err != nil {
			return fmt.Errorf("turn %q: %w", q, err)
		}
		answer := res.Text
		if !res.Completed() {
			answer = fmt.Sprintf("[Run status: %s]", res.Job.Outcome())
		}
		fmt.Fprintf(out, "You: %s\nAssistant: %s\n\n", q, answer)
	}
	return nil
}
