// Package metrics provides Prometheus metrics for the LifeLink service.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Option applies a configuration option to the Recorder.
type Option func(*Recorder)

// WithNamespace sets the namespace for all metrics.
func WithNamespace(namespace string) Option {
	return func(r *Recorder) {
		if namespace != "" {
			r.namespace = namespace
		}
	}
}

// WithRegistry sets the registry metrics are registered on and served from.
func WithRegistry(registry *prometheus.Registry) Option {
	return func(r *Recorder) {
		if registry != nil {
			r.registry = registry
		}
	}
}

// Recorder owns every metric the service exports. A nil *Recorder is valid
// and records nothing.
type Recorder struct {
	namespace string
	registry  *prometheus.Registry

	requestsSubmitted    prometheus.Counter
	notificationsCreated prometheus.Counter
	alertsFailed         *prometheus.CounterVec
	acceptConflicts      prometheus.Counter
	insightFallbacks     *prometheus.CounterVec
	broadcastLatency     prometheus.Histogram
	broadcastMatches     prometheus.Histogram

	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
}

func New(opts ...Option) *Recorder {
	r := &Recorder{namespace: "lifelink"}
	for _, opt := range opts {
		opt(r)
	}
	if r.registry == nil {
		r.registry = prometheus.NewRegistry()
	}
	auto := promauto.With(r.registry)

	r.requestsSubmitted = auto.NewCounter(prometheus.CounterOpts{
		Namespace: r.namespace,
		Name:      "requests_submitted_total",
		Help:      "Emergency requests submitted",
	})
	r.notificationsCreated = auto.NewCounter(prometheus.CounterOpts{
		Namespace: r.namespace,
		Name:      "notifications_created_total",
		Help:      "Donor notifications persisted by broadcasts",
	})
	r.alertsFailed = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: r.namespace,
		Name:      "alerts_failed_total",
		Help:      "Outbound alerts the gateway failed to deliver",
	}, []string{"gateway"})
	r.acceptConflicts = auto.NewCounter(prometheus.CounterOpts{
		Namespace: r.namespace,
		Name:      "accept_conflicts_total",
		Help:      "Donor acceptances that lost the race for a request",
	})
	r.insightFallbacks = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: r.namespace,
		Name:      "insight_fallbacks_total",
		Help:      "AI insight calls answered with static fallback content",
	}, []string{"kind", "reason"})
	r.broadcastLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: r.namespace,
		Name:      "broadcast_duration_seconds",
		Help:      "Time spent fanning out one emergency broadcast",
		Buckets:   prometheus.DefBuckets,
	})
	r.broadcastMatches = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: r.namespace,
		Name:      "broadcast_matched_donors",
		Help:      "Donors notified per broadcast",
		Buckets:   []float64{0, 1, 2, 5, 10, 25, 50, 100},
	})
	r.httpRequests = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: r.namespace,
		Name:      "http_requests_total",
		Help:      "HTTP requests by route and status code",
	}, []string{"method", "route", "code"})
	r.httpRequestDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: r.namespace,
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency by route",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "route"})
	return r
}

// Handler serves the registry in the Prometheus text format.
func (r *Recorder) Handler() http.Handler {
	if r == nil {
		return promhttp.HandlerFor(prometheus.NewRegistry(), promhttp.HandlerOpts{})
	}
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

func (r *Recorder) Registry() *prometheus.Registry {
	if r == nil {
		return nil
	}
	return r.registry
}

func (r *Recorder) RequestSubmitted() {
	if r == nil {
		return
	}
	r.requestsSubmitted.Inc()
}

func (r *Recorder) NotificationsCreated(n int) {
	if r == nil || n <= 0 {
		return
	}
	r.notificationsCreated.Add(float64(n))
}

func (r *Recorder) AlertFailed(gateway string) {
	if r == nil {
		return
	}
	r.alertsFailed.WithLabelValues(gateway).Inc()
}

func (r *Recorder) AcceptConflict() {
	if r == nil {
		return
	}
	r.acceptConflicts.Inc()
}

func (r *Recorder) InsightFallback(kind, reason string) {
	if r == nil {
		return
	}
	r.insightFallbacks.WithLabelValues(kind, reason).Inc()
}

func (r *Recorder) Broadcast(d time.Duration, matched int) {
	if r == nil {
		return
	}
	r.broadcastLatency.Observe(d.Seconds())
	r.broadcastMatches.Observe(float64(matched))
}

func (r *Recorder) HTTPRequest(method, route string, code int, d time.Duration) {
	if r == nil {
		return
	}
	r.httpRequests.WithLabelValues(method, route, strconv.Itoa(code)).Inc()
	r.httpRequestDuration.WithLabelValues(method, route).Observe(d.Seconds())
}
