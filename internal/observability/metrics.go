package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	BookingsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "autopool", Name: "bookings_created_total",
		Help: "Total bookings created",
	})
	BookingsConfirmed = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "autopool", Name: "bookings_confirmed_total",
		Help: "Total bookings confirmed with a driver",
	})
	BookingsCompleted = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "autopool", Name: "bookings_completed_total",
		Help: "Total bookings completed",
	})
	BookingsCancelled = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "autopool", Name: "bookings_cancelled_total",
		Help: "Total bookings cancelled",
	})

	PoolConfirmations = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "autopool", Name: "pool_confirmations_total",
		Help: "Pool confirmations by trigger",
	}, []string{"trigger"})

	PoolFillLevel = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "autopool", Name: "pool_fill_level_at_confirmation",
		Help:    "Pool fill level observed at confirmation time",
		Buckets: []float64{0.25, 0.5, 0.75, 0.9, 1.0, 1.1},
	})

	StatusSubscriptions = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "autopool", Name: "status_subscriptions",
		Help: "Open status subscriptions",
	})
)
