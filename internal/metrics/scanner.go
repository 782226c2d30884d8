package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	scannerPagesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "chainaudit7000",
		Subsystem: "scanner",
		Name:      "pages_total",
		Help:      "Count of fetched query pages.",
	}, []string{"kind", "status"})
	scannerPageItems = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "chainaudit7000",
		Subsystem: "scanner",
		Name:      "page_items",
		Help:      "Number of items per fetched page.",
		Buckets:   prometheus.ExponentialBuckets(1, 2, 12), // 1..2048
	}, []string{"kind"})
	scannerPageDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "chainaudit7000",
		Subsystem: "scanner",
		Name:      "page_duration_seconds",
		Help:      "Duration of fetching one query page.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"kind", "status"})
)

// Scanner tracks metrics for one paginated scan kind ("cells" or "transactions").
type Scanner struct {
	kind string
}

// NewScanner constructs a metrics collector for a paginated scan.
func NewScanner(kind string) *Scanner {
	if kind == "" {
		kind = "unknown"
	}
	return &Scanner{kind: kind}
}

// ObservePage records one fetched page.
func (m Scanner) ObservePage(err error, items int, started time.Time) {
	status := "success"
	if err != nil {
		status = "error"
	}

	scannerPagesTotal.WithLabelValues(m.kind, status).Inc()
	scannerPageDuration.WithLabelValues(m.kind, status).Observe(time.Since(started).Seconds())
	if err == nil {
		scannerPageItems.WithLabelValues(m.kind).Observe(float64(items))
	}
}
