// Package metrics provides the Prometheus registry for the order worker.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry bundles the worker's counters and latency histogram.
type Registry struct {
	reg *prometheus.Registry

	OrdersProcessed   prometheus.Counter
	OrdersInvalid     prometheus.Counter
	OrdersCorrected   prometheus.Counter
	DuplicatesSkipped prometheus.Counter
	ParseFailures     prometheus.Counter
	SchemaViolations  prometheus.Counter
	ReceiveErrors     prometheus.Counter
	ProcessSeconds    prometheus.Histogram
}

// NewRegistry creates and registers all worker metrics.
func NewRegistry() *Registry {
	r := prometheus.NewRegistry()

	processed := prometheus.NewCounter(prometheus.CounterOpts{Name: "orders_processed_total"})
	invalid := prometheus.NewCounter(prometheus.CounterOpts{Name: "orders_invalid_total"})
	corrected := prometheus.NewCounter(prometheus.CounterOpts{Name: "orders_corrected_total"})
	duplicates := prometheus.NewCounter(prometheus.CounterOpts{Name: "orders_duplicate_total"})
	parseFailures := prometheus.NewCounter(prometheus.CounterOpts{Name: "payload_parse_failures_total"})
	schemaViolations := prometheus.NewCounter(prometheus.CounterOpts{Name: "payload_schema_violations_total"})
	receiveErrors := prometheus.NewCounter(prometheus.CounterOpts{Name: "queue_receive_errors_total"})
	processSeconds := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "order_process_seconds",
		Buckets: prometheus.DefBuckets,
	})

	r.MustRegister(processed, invalid, corrected, duplicates, parseFailures, schemaViolations, receiveErrors, processSeconds)

	return &Registry{
		reg:               r,
		OrdersProcessed:   processed,
		OrdersInvalid:     invalid,
		OrdersCorrected:   corrected,
		DuplicatesSkipped: duplicates,
		ParseFailures:     parseFailures,
		SchemaViolations:  schemaViolations,
		ReceiveErrors:     receiveErrors,
		ProcessSeconds:    processSeconds,
	}
}

// Handler serves the registry in Prometheus exposition format.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{})
}
