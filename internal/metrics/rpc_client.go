// Package metrics collects prometheus metrics for the audit components.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	rpcRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "chainaudit7000",
		Subsystem: "rpc_client",
		Name:      "operations_total",
		Help:      "Count of node RPC operations.",
	}, []string{"operation", "network", "status"})
	rpcRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "chainaudit7000",
		Subsystem: "rpc_client",
		Name:      "operation_duration_seconds",
		Help:      "Duration of node RPC operations, retries included.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"operation", "network", "status"})
	rpcRetriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "chainaudit7000",
		Subsystem: "rpc_client",
		Name:      "retries_total",
		Help:      "Count of retried node RPC attempts.",
	}, []string{"operation", "network"})
)

// RPCClient tracks metrics for RPC calls to the chain node.
type RPCClient struct {
	network string
}

// NewRPCClient constructs a metrics collector for RPC calls.
func NewRPCClient(network string) *RPCClient {
	if network == "" {
		network = "unknown"
	}
	return &RPCClient{network: network}
}

// Observe records a single RPC call outcome and duration.
func (m RPCClient) Observe(operation string, err error, started time.Time) {
	status := "success"
	if err != nil {
		status = "error"
	}

	rpcRequestsTotal.WithLabelValues(operation, m.network, status).Inc()
	rpcRequestDuration.WithLabelValues(operation, m.network, status).Observe(time.Since(started).Seconds())
}

// ObserveRetry records a retried attempt of an RPC call.
func (m RPCClient) ObserveRetry(operation string) {
	rpcRetriesTotal.WithLabelValues(operation, m.network).Inc()
}
