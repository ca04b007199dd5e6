// Package metrics exposes Prometheus instrumentation for the API.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/vidtube/backend/internal/storage"
)

// Recorder holds the API collectors on a private registry.
type Recorder struct {
	registry *prometheus.Registry

	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec
	rotations    *prometheus.CounterVec
	mediaOps     *prometheus.CounterVec
}

// New builds a recorder with process and Go runtime collectors attached.
func New() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "vidtube_http_requests_total",
			Help: "Total number of HTTP requests",
		}, []string{"method", "route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "vidtube_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
		rotations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "vidtube_refresh_rotations_total",
			Help: "Refresh token rotations by outcome",
		}, []string{"outcome"}),
		mediaOps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "vidtube_media_operations_total",
			Help: "Object store operations by kind and result",
		}, []string{"operation", "kind", "result"}),
	}

	r.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		r.httpRequests,
		r.httpDuration,
		r.rotations,
		r.mediaOps,
	)
	return r
}

// ObserveRequest records one finished HTTP request.
func (r *Recorder) ObserveRequest(method, route string, status int, elapsed time.Duration) {
	if route == "" {
		route = "unmatched"
	}
	labels := prometheus.Labels{"method": method, "route": route, "status": strconv.Itoa(status)}
	r.httpRequests.With(labels).Inc()
	r.httpDuration.With(labels).Observe(elapsed.Seconds())
}

// ObserveRotation is shaped for auth.WithRotationObserver.
func (r *Recorder) ObserveRotation(outcome string) {
	r.rotations.WithLabelValues(outcome).Inc()
}

// ObserveMedia is shaped for storage.Observer.
func (r *Recorder) ObserveMedia(operation string, kind storage.Kind, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	r.mediaOps.WithLabelValues(operation, string(kind), result).Inc()
}

// Registry returns the underlying registry.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry})
}
