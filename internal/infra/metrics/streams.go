package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(activeConversations, discoveryErrorsTotal, claimSeconds, runnersStarted)
}

var activeConversations = prometheus.NewGauge(
	prometheus.GaugeOpts{
		Name: "stream_active_conversations",
		Help: "Conversations with pending or undelivered entries at the last discovery tick.",
	},
)

var discoveryErrorsTotal = prometheus.NewCounter(
	prometheus.CounterOpts{
		Name: "stream_discovery_errors_total",
		Help: "Discovery sweeps that failed and were retried.",
	},
)

var claimSeconds = prometheus.NewHistogram(
	prometheus.HistogramOpts{
		Name:    "stream_claim_seconds",
		Help:    "Time spent in claimNext, including block time.",
		Buckets: []float64{0.001, 0.01, 0.1, 0.5, 1, 2.5, 5, 10},
	},
)

var runnersStarted = prometheus.NewCounter(
	prometheus.CounterOpts{
		Name: "stream_runners_started_total",
		Help: "Sequential conversation runners dispatched by the supervisor.",
	},
)

func SetActiveConversations(n int) { activeConversations.Set(float64(n)) }

func IncDiscoveryError() { discoveryErrorsTotal.Inc() }

func ObserveClaim(seconds float64) { claimSeconds.Observe(seconds) }

func IncRunnerStarted() { runnersStarted.Inc() }
