package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

func init() {
	register(
		aiCallsTotal,
		aiCallsLatencyMs,
		aiPromptTokens,
	)
}

var (
	aiCallsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "agentchat_ai_calls_total",
			Help: "Remote calls per provider/operation and outcome.",
		},
		[]string{"provider", "op", "success"},
	)

	aiCallsLatencyMs = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "agentchat_ai_calls_latency_ms",
			Help:    "Remote call latency distribution in milliseconds.",
			Buckets: []float64{10, 25, 50, 100, 200, 400, 800, 1600, 3000, 5000, 10000},
		},
		[]string{"provider", "op"},
	)

	aiPromptTokens = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "agentchat_prompt_tokens_total",
			Help: "Estimated prompt tokens sent per mode/model.",
		},
		[]string{"mode", "model"},
	)
)

// ObserveCall records one remote call made by an adapter.
func ObserveCall(provider, op string, latencyMs int64, success bool) {
	aiCallsTotal.WithLabelValues(norm(provider), norm(op), strconv.FormatBool(success)).Inc()
	aiCallsLatencyMs.WithLabelValues(norm(provider), norm(op)).Observe(float64(latencyMs))
}

func AddPromptTokens(mode, model string, n int) {
	if n <= 0 {
		return
	}
	aiPromptTokens.WithLabelValues(norm(mode), norm(model)).Add(float64(n))
}
