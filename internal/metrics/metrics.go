package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Admission metrics
	requestsSubmittedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ewm_requests_submitted_total",
			Help: "Participation requests created, by initial status",
		},
		[]string{"status"},
	)

	requestsDecidedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ewm_requests_decided_total",
			Help: "Participation requests moved out of PENDING, by outcome",
		},
		[]string{"outcome"},
	)

	requestsCanceledTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ewm_requests_canceled_total",
			Help: "Participation requests canceled by their requester",
		},
	)

	// Lifecycle metrics
	eventTransitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ewm_event_transitions_total",
			Help: "Event state transitions, by state action",
		},
		[]string{"action"},
	)

	// Lock contention
	lockRetriesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ewm_event_lock_retries_total",
			Help: "Event lock transactions retried after serialization failure or deadlock",
		},
	)

	lockExhaustedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ewm_event_lock_exhausted_total",
			Help: "Event lock transactions that ran out of retries",
		},
	)

	// Stats collector
	statsHitsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ewm_stats_hits_total",
			Help: "Stats hits by result (sent, dropped, failed)",
		},
		[]string{"result"},
	)

	// Outbox relay
	outboxPublishedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ewm_outbox_messages_total",
			Help: "Outbox messages handled by the relay, by result (sent, retry, dead)",
		},
		[]string{"result"},
	)

	// HTTP
	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ewm_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
		},
		[]string{"method", "route", "status"},
	)
)

func RecordRequestSubmitted(status string) {
	requestsSubmittedTotal.WithLabelValues(status).Inc()
}

// RecordRequestsDecided adds n decisions with the given outcome.
func RecordRequestsDecided(outcome string, n int) {
	if n <= 0 {
		return
	}
	requestsDecidedTotal.WithLabelValues(outcome).Add(float64(n))
}

func RecordRequestCanceled() {
	requestsCanceledTotal.Inc()
}

func RecordEventTransition(action string) {
	eventTransitionsTotal.WithLabelValues(action).Inc()
}

func RecordLockRetry() {
	lockRetriesTotal.Inc()
}

func RecordLockExhausted() {
	lockExhaustedTotal.Inc()
}

func RecordStatsHit(result string) {
	statsHitsTotal.WithLabelValues(result).Inc()
}

func RecordOutboxMessage(result string) {
	outboxPublishedTotal.WithLabelValues(result).Inc()
}

func RecordHTTPRequest(method, route, status string, d time.Duration) {
	httpRequestDuration.WithLabelValues(method, route, status).Observe(d.Seconds())
}

// Handler returns the Prometheus metrics handler
func Handler() http.Handler {
	return promhttp.Handler()
}
