// Package telemetry exposes Prometheus metrics and OpenTelemetry tracing
// for the conversation core, the scheduler and the gateway.
package telemetry

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/flemzord/bionic/internal/conversation"
	"github.com/flemzord/bionic/internal/cron"
)

const namespace = "bionic"

// Metrics owns a private Prometheus registry. It implements
// conversation.Recorder and cron.Observer.
type Metrics struct {
	registry *prometheus.Registry

	messages        *prometheus.CounterVec
	contextSwitches prometheus.Counter
	threadsCreated  prometheus.Counter
	convsExpired    prometheus.Counter
	threadsExpired  prometheus.Counter
	summaries       *prometheus.CounterVec
	memories        prometheus.Counter
	conversations   prometheus.Gauge

	jobDuration *prometheus.HistogramVec
	jobFailures *prometheus.CounterVec

	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec
}

// Compile-time interface checks.
var (
	_ conversation.Recorder = (*Metrics)(nil)
	_ cron.Observer         = (*Metrics)(nil)
)

// NewMetrics creates and registers every collector, including the Go
// runtime and process collectors.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		messages: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_total",
			Help:      "Messages added to conversations, by conversation kind.",
		}, []string{"kind"}),
		contextSwitches: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "context_switches_total",
			Help:      "Participant contexts replaced after a topic shift.",
		}),
		threadsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "threads_created_total",
			Help:      "Conversation threads opened.",
		}),
		convsExpired: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "conversations_expired_total",
			Help:      "Conversations removed for inactivity.",
		}),
		threadsExpired: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "threads_expired_total",
			Help:      "Threads removed for inactivity.",
		}),
		summaries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "summaries_total",
			Help:      "Summary attempts, by trigger and result.",
		}, []string{"reason", "result"}),
		memories: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "memories_absorbed_total",
			Help:      "Long-term memories extracted from replies.",
		}),
		conversations: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "conversations",
			Help:      "Conversations currently held in memory.",
		}),
		jobDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "cron",
			Name:      "job_duration_seconds",
			Help:      "Duration of scheduled job runs.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"job"}),
		jobFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cron",
			Name:      "job_failures_total",
			Help:      "Scheduled job runs that returned an error.",
		}, []string{"job"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Gateway requests, by method, route and status code.",
		}, []string{"method", "route", "code"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Gateway request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.messages, m.contextSwitches, m.threadsCreated,
		m.convsExpired, m.threadsExpired, m.summaries,
		m.memories, m.conversations,
		m.jobDuration, m.jobFailures,
		m.httpRequests, m.httpDuration,
	)
	return m
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// MessageAdded implements conversation.Recorder.
func (m *Metrics) MessageAdded(group bool) {
	kind := "private"
	if group {
		kind = "group"
	}
	m.messages.WithLabelValues(kind).Inc()
}

// ContextSwitched implements conversation.Recorder.
func (m *Metrics) ContextSwitched() { m.contextSwitches.Inc() }

// ThreadCreated implements conversation.Recorder.
func (m *Metrics) ThreadCreated() { m.threadsCreated.Inc() }

// ConversationsExpired implements conversation.Recorder.
func (m *Metrics) ConversationsExpired(n int) { m.convsExpired.Add(float64(n)) }

// ThreadsExpired implements conversation.Recorder.
func (m *Metrics) ThreadsExpired(n int) { m.threadsExpired.Add(float64(n)) }

// SummaryAttempted implements conversation.Recorder.
func (m *Metrics) SummaryAttempted(reason string, ok bool) {
	result := "ok"
	if !ok {
		result = "error"
	}
	m.summaries.WithLabelValues(reason, result).Inc()
}

// MemoryAbsorbed implements conversation.Recorder.
func (m *Metrics) MemoryAbsorbed() { m.memories.Inc() }

// Conversations implements conversation.Recorder.
func (m *Metrics) Conversations(n int) { m.conversations.Set(float64(n)) }

// JobRan implements cron.Observer.
func (m *Metrics) JobRan(name string, elapsed time.Duration, err error) {
	m.jobDuration.WithLabelValues(name).Observe(elapsed.Seconds())
	if err != nil {
		m.jobFailures.WithLabelValues(name).Inc()
	}
}

// ObserveHTTP records one gateway request. route is the matched pattern,
// not the raw path, to keep label cardinality bounded.
func (m *Metrics) ObserveHTTP(method, route string, status int, elapsed time.Duration) {
	m.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}
