// File: internal/usecase/job_poller.go
package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"agentchat/internal/config"
	"agentchat/internal/domain/model"
	"agentchat/internal/infra/logging"
	"agentchat/internal/infra/metrics"
)

// JobQuerier is the slice of ConversationService the poller needs.
type JobQuerier interface {
	QueryJob(ctx context.Context, h model.JobHandle) (model.JobStatus, error)
}

// PollOptions bounds one poll. Zero values fall back to defaults;
// a negative Timeout polls until the job settles or ctx ends.
type PollOptions struct {
	Interval time.Duration
	Timeout  time.Duration
}

func (o PollOptions) withDefaults() PollOptions {
	if o.Interval <= 0 {
		o.Interval = config.DefaultPollInterval
	}
	if o.Timeout == 0 {
		o.Timeout = config.DefaultPollTimeout
	}
	return o
}

// JobPoller waits for a remote job to reach a terminal state.
type JobPoller struct {
	svc  JobQuerier
	opts PollOptions
	log  *zerolog.Logger

	now  func() time.Time
	wait func(ctx context.Context, d time.Duration) error
}

func NewJobPoller(svc JobQuerier, opts PollOptions, logger *zerolog.Logger) *JobPoller {
	if logger == nil {
		logger = logging.Nop()
	}
	return &JobPoller{
		svc:  svc,
		opts: opts.withDefaults(),
		log:  logger,
		now:  time.Now,
		wait: sleepCtx,
	}
}

// Poll queries h until it settles, the timeout elapses, or ctx ends.
//
// A terminal first observation returns without waiting. On timeout the last
// observed status is returned with TimedOut set and a nil error. A query error
// or cancellation returns the result gathered so far together with the error;
// the remote job is left running.
func (p *JobPoller) Poll(ctx context.Context, h model.JobHandle) (model.PollResult, error) {
	log := logging.With(ctx, p.log)
	defer logging.TraceDuration(log, "JobPoller.Poll")()

	res := model.PollResult{Handle: h}
	start := p.now()
	for {
		st, err := p.svc.QueryJob(ctx, h)
		res.Queries++
		res.Elapsed = p.now().Sub(start)
		if err != nil {
			return res, fmt.Errorf("query job %s: %w", h.JobID, err)
		}
		st.State = res.Last.State.Advance(st.State)
		res.Last = st
		metrics.IncJobPoll(string(st.State))
		log.Debug().
			Str("job_id", h.JobID).
			Str("remote", st.Remote).
			Str("state", string(st.State)).
			Int("query", res.Queries).
			Dur("elapsed", res.Elapsed).
			Msg("job status")

		if st.State.IsTerminal() {
			p.finish(log, res)
			return res, nil
		}

		d := p.opts.Interval
		if p.opts.Timeout > 0 {
			remaining := p.opts.Timeout - res.Elapsed
			if remaining <= 0 {
				res.TimedOut = true
				p.finish(log, res)
				return res, nil
			}
			if remaining < d {
				d = remaining
			}
		}
		if err := p.wait(ctx, d); err != nil {
			res.Elapsed = p.now().Sub(start)
			log.Debug().Err(err).Str("job_id", h.JobID).Msg("poll cancelled")
			return res, err
		}
	}
}

func (p *JobPoller) finish(log *zerolog.Logger, res model.PollResult) {
	metrics.ObserveJobOutcome(string(res.Outcome()), res.Elapsed.Seconds())
	ev := log.Debug()
	if res.TimedOut {
		ev = log.Warn()
	}
	ev.Str("job_id", res.Handle.JobID).
		Str("outcome", string(res.Outcome())).
		Int("queries", res.Queries).
		Dur("elapsed", res.Elapsed).
		Msg("poll finished")
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
