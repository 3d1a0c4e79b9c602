package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() { register(jobPollsTotal, jobOutcomesTotal, jobPollSeconds) }

var (
	jobPollsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "agentchat_job_polls_total",
			Help: "Job status queries, labeled by the observed state.",
		},
		[]string{"state"},
	)

	jobOutcomesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "agentchat_job_outcomes_total",
			Help: "Finished polls, labeled by outcome (completed, failed, unknown-timeout, ...).",
		},
		[]string{"outcome"},
	)

	jobPollSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "agentchat_job_poll_seconds",
			Help:    "Wall time from first query to poll return.",
			Buckets: prometheus.ExponentialBuckets(0.25, 2, 10),
		},
	)
)

func IncJobPoll(state string) {
	jobPollsTotal.WithLabelValues(norm(state)).Inc()
}

func ObserveJobOutcome(outcome string, seconds float64) {
	jobOutcomesTotal.WithLabelValues(norm(outcome)).Inc()
	jobPollSeconds.Observe(seconds)
}
