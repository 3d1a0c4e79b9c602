package model

import (
	"strings"
	"time"
)

// JobState is the client-side view of a remote job lifecycle.
type JobState string

const (
	JobStateQueued    JobState = "queued"
	JobStateRunning   JobState = "running"
	JobStateCompleted JobState = "completed"
	JobStateFailed    JobState = "failed"
	JobStateCancelled JobState = "cancelled"
	JobStateExpired   JobState = "expired"
	// JobStateTimedOut labels a poll that gave up before the job settled.
	JobStateTimedOut JobState = "unknown-timeout"
)

// IsTerminal reports whether no further transition can happen.
func (s JobState) IsTerminal() bool {
	switch s {
	case JobStateCompleted, JobStateFailed, JobStateCancelled, JobStateExpired:
		return true
	}
	return false
}

// rank orders states so observations never regress.
func (s JobState) rank() int {
	switch s {
	case JobStateQueued:
		return 1
	case JobStateRunning:
		return 2
	case JobStateCompleted, JobStateFailed, JobStateCancelled, JobStateExpired:
		return 3
	}
	return 0
}

// Advance returns the later of s and next. A terminal state is never replaced.
func (s JobState) Advance(next JobState) JobState {
	if s.IsTerminal() {
		return s
	}
	if next.rank() < s.rank() {
		return s
	}
	return next
}

// ParseJobState maps a remote run status onto JobState.
// Unknown statuses are treated as still running so the caller keeps polling.
func ParseJobState(remote string) JobState {
	switch strings.ToLower(strings.TrimSpace(remote)) {
	case "queued", "pending":
		return JobStateQueued
	case "in_progress", "running", "processing", "requires_action", "cancelling":
		return JobStateRunning
	case "completed", "succeeded":
		return JobStateCompleted
	case "failed", "incomplete":
		return JobStateFailed
	case "cancelled", "canceled":
		return JobStateCancelled
	case "expired":
		return JobStateExpired
	}
	return JobStateRunning
}

// JobHandle identifies a submitted job. Both ids are issued by the remote service.
type JobHandle struct {
	SessionID string
	JobID     string
}

// JobStatus is one observation returned by the remote service.
type JobStatus struct {
	State     JobState
	Remote    string // status string as the service reported it
	LastError string
	Raw       any
}

// PollResult is what the poller hands back to the caller.
type PollResult struct {
	Handle   JobHandle
	Last     JobStatus
	Queries  int
	Elapsed  time.Duration
	TimedOut bool
}

// Outcome is Last.State, or JobStateTimedOut when the poll gave up.
func (r PollResult) Outcome() JobState {
	if r.TimedOut && !r.Last.State.IsTerminal() {
		return JobStateTimedOut
	}
	return r.Last.State
}
