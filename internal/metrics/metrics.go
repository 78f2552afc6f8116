package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	feedFetch = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "slotlink",
			Name:      "feed_fetch_total",
			Help:      "Count of feed fetch attempts by result.",
		},
		[]string{"result"},
	)

	availabilityRequests = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "slotlink",
			Name:      "availability_requests_total",
			Help:      "Count of availability computations served.",
		},
	)

	requestsSubmitted = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "slotlink",
			Name:      "requests_submitted_total",
			Help:      "Count of slot requests submitted.",
		},
	)

	confirmations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "slotlink",
			Name:      "confirmations_total",
			Help:      "Count of confirmation attempts by outcome.",
		},
		[]string{"outcome"},
	)

	pendingPurged = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "slotlink",
			Name:      "pending_purged_total",
			Help:      "Count of expired pending requests removed by the purge loop.",
		},
	)
)

// Register registers metrics (idempotent).
func Register() {
	once.Do(func() {
		prometheus.MustRegister(feedFetch, availabilityRequests, requestsSubmitted, confirmations, pendingPurged)
	})
}

func IncFeedFetch(result string) {
	feedFetch.WithLabelValues(result).Inc()
}

func IncAvailabilityRequests() {
	availabilityRequests.Inc()
}

func IncRequestsSubmitted() {
	requestsSubmitted.Inc()
}

func IncConfirmation(outcome string) {
	confirmations.WithLabelValues(outcome).Inc()
}

func AddPendingPurged(n int) {
	if n > 0 {
		pendingPurged.Add(float64(n))
	}
}
