// Package metrics has prometheus collectors of eventlake. All collectors are registered to
// Registry, not to the default registerer.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "eventlake"

// Label values
const (
	ResultOK          = "ok"
	ResultDecodeError = "decode_error"
	ResultRejected    = "rejected"
	ResultFailed      = "failed"

	RouteValid   = "valid"
	RouteInvalid = "invalid"
)

// Registry has all collectors of this package.
var Registry = prometheus.NewRegistry()

var factory = promauto.With(Registry)

var (
	// StreamRecordsRead counts records read from stream by result (ok or decode_error).
	StreamRecordsRead = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "stream_records_read_total",
		Help:      "Number of records read from stream",
	}, []string{"stream", "result"})

	// StreamRecordsWritten counts entries put to stream by result (ok, rejected or failed).
	StreamRecordsWritten = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "stream_records_written_total",
		Help:      "Number of entries put to stream",
	}, []string{"stream", "result"})

	// PipelineRows counts rows routed by batch pipeline.
	PipelineRows = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "pipeline_rows_total",
		Help:      "Number of rows routed by batch pipeline",
	}, []string{"route"})

	// ObjectsWritten counts objects put to S3 by kind.
	ObjectsWritten = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "objects_written_total",
		Help:      "Number of objects written to object store",
	}, []string{"kind"})

	// PartitionsRegistered counts partitions created in catalog.
	PartitionsRegistered = factory.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "partitions_registered_total",
		Help:      "Number of partitions created in catalog",
	})

	// StageDuration observes elapsed seconds of pipeline stages.
	StageDuration = factory.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "pipeline_stage_duration_seconds",
		Help:      "Elapsed time of pipeline stages",
		Buckets:   prometheus.DefBuckets,
	}, []string{"stage"})

	// APIRequests counts requests of producer API by path and status code.
	APIRequests = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "api_requests_total",
		Help:      "Number of producer API requests",
	}, []string{"path", "code"})
)

// Handler returns http.Handler exposing Registry.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}
