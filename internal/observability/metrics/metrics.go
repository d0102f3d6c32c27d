// Package metrics exposes Prometheus collectors for directory operations and
// session lifecycle events.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	obserrors "github.com/target/dirkeeper/internal/observability/errors"
)

// Result label values.
const (
	ResultSuccess = "success"
	ResultError   = "error"
)

const namespace = "dirkeeper"

// Recorder owns a private registry so tests can build as many as they need.
type Recorder struct {
	registry *prometheus.Registry

	directoryOps      *prometheus.CounterVec
	directoryDuration *prometheus.HistogramVec
	sessionsCreated   *prometheus.CounterVec
	sessionChecks     *prometheus.CounterVec
	httpRequests      *prometheus.CounterVec
}

// New builds a Recorder with Go runtime and process collectors registered.
func New() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		directoryOps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "directory",
			Name:      "operations_total",
			Help:      "Directory protocol operations by backend, operation and result.",
		}, []string{"backend", "op", "result", "error_class"}),
		directoryDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "directory",
			Name:      "operation_duration_seconds",
			Help:      "Latency of directory protocol operations.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"backend", "op"}),
		sessionsCreated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "session",
			Name:      "created_total",
			Help:      "Sessions created by backend and login method.",
		}, []string{"auth_type", "method"}),
		sessionChecks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "session",
			Name:      "validations_total",
			Help:      "Session gate decisions.",
		}, []string{"result"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "responses_total",
			Help:      "HTTP responses by method and status code.",
		}, []string{"method", "code"}),
	}
	r.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		r.directoryOps,
		r.directoryDuration,
		r.sessionsCreated,
		r.sessionChecks,
		r.httpRequests,
	)
	return r
}

// ObserveOp records one directory protocol operation.
func (r *Recorder) ObserveOp(backend, op string, err error, elapsed time.Duration) {
	result := ResultSuccess
	if err != nil {
		result = ResultError
	}
	r.directoryOps.WithLabelValues(backend, op, result, obserrors.Classify(err)).Inc()
	r.directoryDuration.WithLabelValues(backend, op).Observe(elapsed.Seconds())
}

// SessionCreated counts a newly minted session.
func (r *Recorder) SessionCreated(authType, method string) {
	r.sessionsCreated.WithLabelValues(authType, method).Inc()
}

// SessionValidated counts one gate decision.
func (r *Recorder) SessionValidated(ok bool) {
	result := ResultSuccess
	if !ok {
		result = ResultError
	}
	r.sessionChecks.WithLabelValues(result).Inc()
}

// ObserveHTTP counts one HTTP response.
func (r *Recorder) ObserveHTTP(method string, status int) {
	r.httpRequests.WithLabelValues(method, strconv.Itoa(status)).Inc()
}

// Handler serves the registry in the Prometheus text format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry.
func (r *Recorder) Registry() *prometheus.Registry { return r.registry }
