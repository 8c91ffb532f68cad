// Package metrics exposes the daemon's Prometheus instruments.
package metrics

import (
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"ReliefAuction/internal/events"
)

var callsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "relief_calls_total",
		Help: "Submitted calls by method and result.",
	},
	[]string{
		"method",
		"result",
	},
)

var eventsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "relief_events_total",
		Help: "Committed engine events by kind.",
	},
	[]string{
		"kind",
	},
)

var feedSubscribers = promauto.NewGauge(
	prometheus.GaugeOpts{
		Name: "relief_feed_subscribers",
		Help: "Indexers connected to the event feed.",
	},
)

// CallAccepted counts a committed call.
func CallAccepted(method string) {
	callsTotal.With(map[string]string{"method": method, "result": "ok"}).Inc()
}

// CallRejected counts a call that was rolled back or failed validation.
func CallRejected(method string) {
	callsTotal.With(map[string]string{"method": method, "result": "rejected"}).Inc()
}

// EventCommitted counts one published event.
func EventCommitted(ev events.Event) {
	eventsTotal.With(map[string]string{"kind": ev.Kind.String()}).Inc()
}

// SubscriberConnected tracks a new feed subscriber.
func SubscriberConnected() {
	feedSubscribers.Inc()
}

// SubscriberDisconnected tracks a closed feed subscriber.
func SubscriberDisconnected() {
	feedSubscribers.Dec()
}

var escrowSource atomic.Pointer[func() float64]

var _ = promauto.NewGaugeFunc(
	prometheus.GaugeOpts{
		Name: "relief_escrow_balance",
		Help: "Reward tokens held in auction custody.",
	},
	func() float64 {
		if fn := escrowSource.Load(); fn != nil {
			return (*fn)()
		}
		return 0
	},
)

// RegisterEscrowGauge sets fn as the source of the escrow balance gauge,
// replacing any previous source.
func RegisterEscrowGauge(fn func() float64) {
	escrowSource.Store(&fn)
}
