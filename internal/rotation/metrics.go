package rotation

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ticksTotal        *prometheus.CounterVec
	lastRotationEpoch *prometheus.GaugeVec

	metricsOnce       sync.Once
	metricsRegistered bool
)

// Metrics records rotation tick metrics.
type Metrics struct{}

// NewMetrics creates a Metrics instance. Recording is a no-op until
// InitMetrics has been called.
func NewMetrics() *Metrics {
	return &Metrics{}
}

// InitMetrics initializes all Prometheus metrics.
// This should be called once at startup if Prometheus metrics are enabled.
func InitMetrics() {
	metricsOnce.Do(func() {
		ticksTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "skylink_rotation_ticks_total",
				Help: "Total number of credential rotation ticks by service and outcome",
			},
			[]string{"service", "protocol", "status"},
		)

		lastRotationEpoch = promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "skylink_rotation_last_timestamp_seconds",
				Help: "Unix timestamp of the most recent rotation tick",
			},
			[]string{"service"},
		)

		metricsRegistered = true
	})
}

// RecordTick records one rotation tick outcome.
func (m *Metrics) RecordTick(service, protocol, status string, when int64) {
	if !metricsRegistered || ticksTotal == nil {
		return
	}
	ticksTotal.WithLabelValues(service, protocol, status).Inc()
	lastRotationEpoch.WithLabelValues(service).Set(float64(when))
}
