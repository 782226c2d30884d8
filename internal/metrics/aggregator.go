package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	aggregatorWindowsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "chainaudit7000",
		Subsystem: "aggregator",
		Name:      "windows_total",
		Help:      "Count of processed height windows.",
	}, []string{"measure", "status"})
	aggregatorWindowHeights = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "chainaudit7000",
		Subsystem: "aggregator",
		Name:      "window_heights",
		Help:      "Number of heights processed per window.",
		Buckets:   prometheus.ExponentialBuckets(1, 2, 12), // 1..2048
	}, []string{"measure"})
	aggregatorWindowDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "chainaudit7000",
		Subsystem: "aggregator",
		Name:      "window_duration_seconds",
		Help:      "Duration of processing one height window.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"measure", "status"})
)

// Aggregator tracks metrics for a checkpointed range scan.
type Aggregator struct {
	measure string
}

// NewAggregator constructs a metrics collector for one aggregation measure.
func NewAggregator(measure string) *Aggregator {
	if measure == "" {
		measure = "unknown"
	}
	return &Aggregator{measure: measure}
}

// ObserveWindow records one processed height window.
func (m Aggregator) ObserveWindow(err error, heights int, started time.Time) {
	status := "success"
	if err != nil {
		status = "error"
	}

	aggregatorWindowsTotal.WithLabelValues(m.measure, status).Inc()
	aggregatorWindowDuration.WithLabelValues(m.measure, status).Observe(time.Since(started).Seconds())
	if err == nil {
		aggregatorWindowHeights.WithLabelValues(m.measure).Observe(float64(heights))
	}
}
