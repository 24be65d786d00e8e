package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Queue metrics
	MessagesEnqueued = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "venuebot_messages_enqueued_total",
			Help: "Total inbound chat messages pushed to the queue",
		},
	)

	MessagesDequeued = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "venuebot_messages_dequeued_total",
			Help: "Total messages removed from the queue by the worker",
		},
	)

	QueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "venuebot_queue_depth",
			Help: "Messages waiting in the queue, sampled by the worker after each dequeue",
		},
	)

	QueueErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "venuebot_queue_errors_total",
			Help: "Total queue operations that failed",
		},
		[]string{"op"}, // "push" or "pop"
	)

	// Router metrics
	MessagesHandled = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "venuebot_messages_handled_total",
			Help: "Total dequeued messages by command kind and outcome",
		},
		[]string{"command", "outcome"},
	)

	MessageDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "venuebot_message_duration_seconds",
			Help:    "Time spent handling one dequeued message",
			Buckets: []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"command"},
	)

	// External call metrics
	VenueRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "venuebot_venue_requests_total",
			Help: "Total venue API calls",
		},
		[]string{"op", "outcome"},
	)

	VenueLatency = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "venuebot_venue_latency_seconds",
			Help:    "Venue API call latency",
			Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10},
		},
	)

	DeliveryFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "venuebot_delivery_failures_total",
			Help: "Total outbound sends that failed",
		},
		[]string{"kind"}, // "text", "location" or "photo"
	)

	RedisLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "venuebot_redis_latency_seconds",
			Help:    "Redis operation latency",
			Buckets: []float64{.0001, .0005, .001, .005, .01, .05, .1},
		},
		[]string{"op"},
	)
)

// Outcome maps an error to the outcome label value.
func Outcome(err error) string {
	if err != nil {
		return "error"
	}

	return "ok"
}
