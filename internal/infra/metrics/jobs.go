package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(jobsProcessedTotal, jobRedeliveriesTotal, poisonEntriesTotal,
		jobExecuteSeconds, jobChunks)
}

var jobsProcessedTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "chat_jobs_processed_total",
		Help: "Total chat jobs processed, labeled by outcome.",
	},
	[]string{"outcome"}, // 'completed', 'failed', 'skipped', 'poisoned'
)

var jobRedeliveriesTotal = prometheus.NewCounter(
	prometheus.CounterOpts{
		Name: "chat_job_redeliveries_total",
		Help: "Entries reclaimed after an abandoned claim.",
	},
)

var poisonEntriesTotal = prometheus.NewCounter(
	prometheus.CounterOpts{
		Name: "chat_job_poison_entries_total",
		Help: "Entries dropped after exceeding max delivery attempts.",
	},
)

var jobExecuteSeconds = prometheus.NewHistogram(
	prometheus.HistogramOpts{
		Name:    "chat_job_execute_seconds",
		Help:    "End-to-end job execution latency.",
		Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
	},
)

var jobChunks = prometheus.NewHistogram(
	prometheus.HistogramOpts{
		Name:    "chat_job_chunks",
		Help:    "Chunks emitted per completed job.",
		Buckets: []float64{1, 2, 5, 10, 25, 50, 100, 250, 500},
	},
)

func IncJob(outcome string) {
	jobsProcessedTotal.WithLabelValues(norm(outcome)).Inc()
}

func IncRedelivery() { jobRedeliveriesTotal.Inc() }

func IncPoisonEntry() { poisonEntriesTotal.Inc() }

func ObserveJobExecution(seconds float64, chunks int) {
	jobExecuteSeconds.Observe(seconds)
	jobChunks.Observe(float64(chunks))
}
