// Package metrics exposes Prometheus collectors for HTTP traffic and business events.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the collectors of one process. A nil *Metrics records nothing,
// so services can be built without instrumentation.
type Metrics struct {
	registry         *prometheus.Registry
	requests         *prometheus.CounterVec
	latency          *prometheus.HistogramVec
	messages         *prometheus.CounterVec
	generations      *prometheus.CounterVec
	socialPosts      *prometheus.CounterVec
	workflowRuns     *prometheus.CounterVec
	dispatcherCycles *prometheus.CounterVec
}

// New registers every collector on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	m := &Metrics{
		registry: reg,
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests processed",
		}, []string{"method", "route", "status"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
		messages: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cloudboost_messages_total",
			Help: "Outbound messages by channel and resulting status",
		}, []string{"channel", "status", "simulated"}),
		generations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cloudboost_content_generations_total",
			Help: "Generated content pieces by generator",
		}, []string{"source"}),
		socialPosts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cloudboost_social_publications_total",
			Help: "Per-platform publication attempts by outcome",
		}, []string{"platform", "status"}),
		workflowRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cloudboost_workflow_executions_total",
			Help: "Workflow executions by final status",
		}, []string{"status"}),
		dispatcherCycles: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cloudboost_dispatcher_items_total",
			Help: "Items handled by the background dispatcher",
		}, []string{"kind", "outcome"}),
	}
	reg.MustRegister(m.requests, m.latency, m.messages, m.generations, m.socialPosts, m.workflowRuns, m.dispatcherCycles)
	return m
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// ObserveRequest records one served HTTP request.
func (m *Metrics) ObserveRequest(method, route string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	if route == "" {
		route = "unmatched"
	}
	m.requests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.latency.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

// MessageSent records the outcome of a message delivery.
func (m *Metrics) MessageSent(channel, status string, simulated bool) {
	if m == nil {
		return
	}
	m.messages.WithLabelValues(channel, status, strconv.FormatBool(simulated)).Inc()
}

// ContentGenerated records a generation by source (openai or template).
func (m *Metrics) ContentGenerated(source string) {
	if m == nil {
		return
	}
	m.generations.WithLabelValues(source).Inc()
}

// SocialPublished records a publication attempt on one platform.
func (m *Metrics) SocialPublished(platform, status string) {
	if m == nil {
		return
	}
	m.socialPosts.WithLabelValues(platform, status).Inc()
}

// WorkflowExecuted records a finished workflow execution.
func (m *Metrics) WorkflowExecuted(status string) {
	if m == nil {
		return
	}
	m.workflowRuns.WithLabelValues(status).Inc()
}

// DispatcherHandled records an item processed by the background dispatcher.
func (m *Metrics) DispatcherHandled(kind, outcome string) {
	if m == nil {
		return
	}
	m.dispatcherCycles.WithLabelValues(kind, outcome).Inc()
}
