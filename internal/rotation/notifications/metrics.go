package notifications

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// droppedTotal tracks notifications dropped due to queue overflow.
	droppedTotal prometheus.Counter

	// deliveryTotal tracks per-destination delivery outcomes.
	deliveryTotal *prometheus.CounterVec

	// metricsOnce ensures metrics are only registered once.
	metricsOnce sync.Once

	// metricsRegistered indicates if metrics have been registered.
	metricsRegistered bool
)

// InitMetrics initializes the Prometheus metrics for notifications.
// This should be called once at startup if Prometheus metrics are enabled.
func InitMetrics() {
	metricsOnce.Do(func() {
		droppedTotal = promauto.NewCounter(prometheus.CounterOpts{
			Name: "skylink_notifications_dropped_total",
			Help: "Total number of notification events dropped due to queue overflow",
		})

		deliveryTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "skylink_notification_deliveries_total",
				Help: "Total number of notification delivery attempts by destination and status",
			},
			[]string{"destination", "status"},
		)

		metricsRegistered = true
	})
}

// incrementDroppedCounter increments the dropped-events counter if
// metrics are registered.
func incrementDroppedCounter() {
	if !metricsRegistered || droppedTotal == nil {
		return
	}
	droppedTotal.Inc()
}

// recordDelivery records one delivery attempt outcome.
func recordDelivery(destination, status string) {
	if !metricsRegistered || deliveryTotal == nil {
		return
	}
	deliveryTotal.WithLabelValues(destination, status).Inc()
}
