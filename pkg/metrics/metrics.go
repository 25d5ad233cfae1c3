package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const (
	namespace = "objectstore"

	metricLabelOperation = "operation"
	metricLabelStatus    = "status"
	metricLabelBackend   = "backend"
	metricLabelRoute     = "route"
)

// Metrics is the structure that holds all prometheus metrics
var (
	// OperationCounter counts backend calls per operation
	OperationCounter = newCounterVec(
		"operation_count",
		"Count of backend calls for each operation",
		metricLabelBackend, metricLabelOperation, metricLabelStatus,
	)
	// OperationDuration observes the duration of backend calls per operation
	OperationDuration = newSummaryVec(
		"operation_duration_seconds",
		"Seconds spent in a backend call",
		metricLabelBackend, metricLabelOperation, metricLabelStatus,
	)
	// BytesReadCounter counts bytes served by input files
	BytesReadCounter = newCounterVec(
		"bytes_read_total",
		"Number of bytes read through input files",
	)
	// BytesWrittenCounter counts bytes accepted by output streams
	BytesWrittenCounter = newCounterVec(
		"bytes_written_total",
		"Number of bytes written through output streams",
	)
	// UploadsCompletedCounter counts completed multipart sessions
	UploadsCompletedCounter = newCounterVec(
		"uploads_completed_count",
		"Number of multipart uploads that were completed",
	)
	// UploadsAbortedCounter counts aborted multipart sessions
	UploadsAbortedCounter = newCounterVec(
		"uploads_aborted_count",
		"Number of multipart uploads that were aborted after a failure",
	)
	// OpenHandlesGauge keeps track of the currently open file handles
	OpenHandlesGauge = newGaugeVec(
		"open_handles_total",
		"Total number of currently open input files and output streams",
		"mode",
	)
	// WalkListingsCounter counts the delimiter listings issued by tree walks
	WalkListingsCounter = newCounterVec(
		"walk_listing_count",
		"Number of listing calls issued while walking directory trees",
	)
	// HTTPRequestCounter counts requests served by the http handler
	HTTPRequestCounter = newCounterVec(
		"http_request_count",
		"Count of http requests for each route",
		metricLabelRoute, metricLabelStatus,
	)
)

func newSummaryVec(name, help string, labels ...string) *prometheus.SummaryVec {
	vec := prometheus.NewSummaryVec(
		prometheus.SummaryOpts{
			Namespace: namespace,
			Name:      name,
			Help:      help,
		}, labels)
	prometheus.MustRegister(vec)
	return vec
}

func newCounterVec(name, help string, labels ...string) *prometheus.CounterVec {
	vec := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      name,
			Help:      help,
		}, labels)
	prometheus.MustRegister(vec)
	return vec
}

func newGaugeVec(name, help string, labels ...string) *prometheus.GaugeVec {
	vec := prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      name,
			Help:      help,
		}, labels)
	prometheus.MustRegister(vec)
	return vec
}
