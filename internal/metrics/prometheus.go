// Package metrics exports sync run instrumentation to Prometheus.
package metrics

import (
	stderrors "errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/input-output-hk/catalyst-forge-libs/blobsync/errors"
	"github.com/input-output-hk/catalyst-forge-libs/blobsync/synctypes"
)

// DefaultNamespace prefixes every metric when no namespace is given.
const DefaultNamespace = "blobsync"

// PrometheusObserver implements synctypes.Observer on Prometheus collectors.
type PrometheusObserver struct {
	opDuration    *prometheus.HistogramVec
	opErrors      *prometheus.CounterVec
	outcomes      *prometheus.CounterVec
	uploadedBytes prometheus.Counter
	chunkRetries  prometheus.Counter
}

var _ synctypes.Observer = (*PrometheusObserver)(nil)

// NewPrometheusObserver registers the sync collectors with reg. Collectors
// already registered under the same names are reused.
func NewPrometheusObserver(namespace string, reg prometheus.Registerer) (*PrometheusObserver, error) {
	if namespace == "" {
		namespace = DefaultNamespace
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	opDuration, err := register(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "store_operation_duration_seconds",
		Help:      "Latency of object store operations.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"operation"}))
	if err != nil {
		return nil, err
	}
	opErrors, err := register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "store_operation_errors_total",
		Help:      "Failed object store operations by error code.",
	}, []string{"operation", "code"}))
	if err != nil {
		return nil, err
	}
	outcomes, err := register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "file_outcomes_total",
		Help:      "Finalized file outcomes by status.",
	}, []string{"status"}))
	if err != nil {
		return nil, err
	}
	uploadedBytes, err := register(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "uploaded_bytes_total",
		Help:      "Content bytes written to the object store.",
	}))
	if err != nil {
		return nil, err
	}
	chunkRetries, err := register(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "chunk_retries_total",
		Help:      "Chunk and whole-file transfer retries.",
	}))
	if err != nil {
		return nil, err
	}

	return &PrometheusObserver{
		opDuration:    opDuration,
		opErrors:      opErrors,
		outcomes:      outcomes,
		uploadedBytes: uploadedBytes,
		chunkRetries:  chunkRetries,
	}, nil
}

// register registers c, returning the existing collector when an identical
// one is already present.
func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	err := reg.Register(c)
	if err == nil {
		return c, nil
	}
	var are prometheus.AlreadyRegisteredError
	if stderrors.As(err, &are) {
		if existing, ok := are.ExistingCollector.(C); ok {
			return existing, nil
		}
	}
	var zero C
	return zero, fmt.Errorf("register collector: %w", err)
}

// ObserveOperation implements synctypes.Observer.
func (o *PrometheusObserver) ObserveOperation(op string, duration time.Duration, err error) {
	if o == nil {
		return
	}
	o.opDuration.WithLabelValues(op).Observe(duration.Seconds())
	if err != nil {
		o.opErrors.WithLabelValues(op, string(errors.CodeOf(err))).Inc()
	}
}

// ObserveOutcome implements synctypes.Observer.
func (o *PrometheusObserver) ObserveOutcome(out *synctypes.Outcome) {
	if o == nil || out == nil {
		return
	}
	o.outcomes.WithLabelValues(string(out.Status)).Inc()
	switch out.Status {
	case synctypes.StatusUploaded, synctypes.StatusMetadataStale:
		o.uploadedBytes.Add(float64(out.Size))
	}
}

// ObserveChunkRetry implements synctypes.Observer.
func (o *PrometheusObserver) ObserveChunkRetry(string) {
	if o == nil {
		return
	}
	o.chunkRetries.Inc()
}
