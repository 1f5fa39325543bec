package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	EventsProcessedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tracklive_events_processed_total",
		Help: "Total number of webhook events accepted and merged.",
	})

	EventsRejectedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tracklive_events_rejected_total",
		Help: "Total number of webhook events not merged, by reason.",
	},
		[]string{"reason"},
	)

	BroadcastsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tracklive_broadcasts_total",
		Help: "Total number of state updates fanned out to subscribers.",
	})

	BroadcastFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tracklive_broadcast_failures_total",
		Help: "Total number of subscribers dropped on failed delivery.",
	})

	LiveSubscribers = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "tracklive_live_subscribers",
		Help: "Current number of connected live subscribers.",
	})

	TrackedOrders = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "tracklive_tracked_orders",
		Help: "Current number of orders held in the in-memory store.",
	})

	JournalDroppedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tracklive_journal_dropped_total",
		Help: "Total number of journal entries dropped on a full buffer.",
	})

	JournalPublishErrorsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tracklive_journal_publish_errors_total",
		Help: "Total number of failed journal batch publishes.",
	})
)
