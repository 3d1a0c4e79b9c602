package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(
		turnsTotal,
		turnLatencySeconds,
		streamFallbacksTotal,
		streamChunksSkippedTotal,
		transcriptTokens,
	)
}

var (
	turnsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "agentchat_turns_total",
			Help: "Conversation turns by mode and result (ok, error, incomplete, empty).",
		},
		[]string{"mode", "result"},
	)

	turnLatencySeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "agentchat_turn_latency_seconds",
			Help:    "End-to-end turn latency.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"mode"},
	)

	streamFallbacksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "agentchat_stream_fallbacks_total",
			Help: "Streaming turns that fell back to the synchronous call.",
		},
		[]string{"mode"},
	)

	streamChunksSkippedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "agentchat_stream_chunks_skipped_total",
			Help: "Streamed chunks whose shape no delta matcher recognized.",
		},
		[]string{"mode"},
	)

	transcriptTokens = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "agentchat_transcript_tokens",
			Help: "Estimated token size of the client-held transcript.",
		},
	)
)

func ObserveTurn(mode, result string, seconds float64) {
	turnsTotal.WithLabelValues(norm(mode), norm(result)).Inc()
	turnLatencySeconds.WithLabelValues(norm(mode)).Observe(seconds)
}

func IncStreamFallback(mode string) {
	streamFallbacksTotal.WithLabelValues(norm(mode)).Inc()
}

func IncChunkSkipped(mode string) {
	streamChunksSkippedTotal.WithLabelValues(norm(mode)).Inc()
}

func SetTranscriptTokens(n int) {
	transcriptTokens.Set(float64(n))
}
