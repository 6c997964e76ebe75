// Package metrics exposes Prometheus instruments for authentication, task and HTTP activity.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector holds the service's Prometheus instruments
type Collector struct {
	authOutcomes      *prometheus.CounterVec
	taskMutations     *prometheus.CounterVec
	statusTransitions *prometheus.CounterVec
	eventFailures     prometheus.Counter
	sessionsPurged    prometheus.Counter
	httpDuration      *prometheus.HistogramVec
}

// NewCollector creates a Collector and registers it with reg
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		authOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "littlespace_auth_requests_total",
			Help: "Bearer token authentication attempts by outcome",
		}, []string{"outcome"}),
		taskMutations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "littlespace_task_mutations_total",
			Help: "Persisted task mutations by operation",
		}, []string{"operation"}),
		statusTransitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "littlespace_task_status_transitions_total",
			Help: "Task status changes by source and target status",
		}, []string{"from", "to"}),
		eventFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "littlespace_task_event_publish_failures_total",
			Help: "Task events that could not be published",
		}),
		sessionsPurged: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "littlespace_sessions_purged_total",
			Help: "Expired sessions removed by the sweeper",
		}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "littlespace_http_request_duration_seconds",
			Help:    "HTTP request latency by route pattern and status code",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route", "status_code"}),
	}

	reg.MustRegister(
		c.authOutcomes,
		c.taskMutations,
		c.statusTransitions,
		c.eventFailures,
		c.sessionsPurged,
		c.httpDuration,
	)

	return c
}

// RecordAuthentication counts one authentication outcome
func (c *Collector) RecordAuthentication(outcome string) {
	c.authOutcomes.WithLabelValues(outcome).Inc()
}

// RecordTaskMutation counts a persisted create, edit, delete or status update
func (c *Collector) RecordTaskMutation(operation string) {
	c.taskMutations.WithLabelValues(operation).Inc()
}

func (c *Collector) RecordStatusTransition(from, to string) {
	c.statusTransitions.WithLabelValues(from, to).Inc()
}

func (c *Collector) RecordEventPublishFailure() {
	c.eventFailures.Inc()
}

// RecordSessionsPurged adds n removed sessions
func (c *Collector) RecordSessionsPurged(n int64) {
	if n > 0 {
		c.sessionsPurged.Add(float64(n))
	}
}

// ObserveHTTPRequest records the latency of one request
func (c *Collector) ObserveHTTPRequest(method, route string, statusCode int, duration time.Duration) {
	c.httpDuration.WithLabelValues(method, route, strconv.Itoa(statusCode)).Observe(duration.Seconds())
}

// Handler returns the Prometheus scrape handler
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
