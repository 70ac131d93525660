package metrics

import (
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Upstream call outcomes
const (
	OutcomeSuccess  = "success"
	OutcomeError    = "error"
	OutcomeFallback = "fallback"
)

// Recorder publishes Prometheus metrics for generation, caching and webhooks.
// A nil *Recorder is valid and records nothing.
type Recorder struct {
	gatherer prometheus.Gatherer
	handler  http.Handler

	cacheLookups     *prometheus.CounterVec
	upstreamCalls    *prometheus.CounterVec
	upstreamLatency  *prometheus.HistogramVec
	mediaPlaceholder *prometheus.CounterVec
	webhookEvents    *prometheus.CounterVec
}

// NewRecorder registers the service collectors on reg, or on a fresh registry when reg is nil
func NewRecorder(reg *prometheus.Registry) *Recorder {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}

	reg.MustRegister(
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collectors.NewGoCollector(),
	)

	cacheLookups := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "bedtime",
		Subsystem: "cache",
		Name:      "lookups_total",
		Help:      "Memo cache lookups by resulting entry state.",
	}, []string{"state"})

	upstreamCalls := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "bedtime",
		Subsystem: "upstream",
		Name:      "calls_total",
		Help:      "Calls to hosted generation services.",
	}, []string{"service", "provider", "outcome"})

	upstreamLatency := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "bedtime",
		Subsystem: "upstream",
		Name:      "call_duration_seconds",
		Help:      "Latency of calls to hosted generation services.",
		Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 20, 40},
	}, []string{"service", "provider"})

	mediaPlaceholder := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "bedtime",
		Subsystem: "media",
		Name:      "placeholders_total",
		Help:      "Media references replaced by placeholders after a failed sub-call.",
	}, []string{"kind"})

	webhookEvents := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "bedtime",
		Subsystem: "webhook",
		Name:      "events_total",
		Help:      "Inbound webhook deliveries by source and outcome.",
	}, []string{"source", "type", "outcome"})

	reg.MustRegister(cacheLookups, upstreamCalls, upstreamLatency, mediaPlaceholder, webhookEvents)

	return &Recorder{
		gatherer:         reg,
		handler:          promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
		cacheLookups:     cacheLookups,
		upstreamCalls:    upstreamCalls,
		upstreamLatency:  upstreamLatency,
		mediaPlaceholder: mediaPlaceholder,
		webhookEvents:    webhookEvents,
	}
}

// Handler exposes the registry in the Prometheus text format
func (r *Recorder) Handler() http.Handler {
	if r == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			http.Error(w, "metrics unavailable", http.StatusServiceUnavailable)
		})
	}
	return r.handler
}

// Gatherer returns the underlying registry
func (r *Recorder) Gatherer() prometheus.Gatherer {
	if r == nil {
		return prometheus.NewRegistry()
	}
	return r.gatherer
}

// ObserveCacheLookup counts one memo lookup in the given state (absent, fresh, stale)
func (r *Recorder) ObserveCacheLookup(state string) {
	if r == nil {
		return
	}
	r.cacheLookups.WithLabelValues(normalizeLabel(state)).Inc()
}

// ObserveUpstream records one hosted service call
func (r *Recorder) ObserveUpstream(service, provider, outcome string, duration time.Duration) {
	if r == nil {
		return
	}
	r.upstreamCalls.WithLabelValues(normalizeLabel(service), normalizeLabel(provider), normalizeLabel(outcome)).Inc()
	r.upstreamLatency.WithLabelValues(normalizeLabel(service), normalizeLabel(provider)).Observe(duration.Seconds())
}

// ObservePlaceholder counts a media placeholder substitution
func (r *Recorder) ObservePlaceholder(kind string) {
	if r == nil {
		return
	}
	r.mediaPlaceholder.WithLabelValues(normalizeLabel(kind)).Inc()
}

// ObserveWebhook counts one webhook delivery
func (r *Recorder) ObserveWebhook(source, eventType, outcome string) {
	if r == nil {
		return
	}
	r.webhookEvents.WithLabelValues(normalizeLabel(source), normalizeLabel(eventType), normalizeLabel(outcome)).Inc()
}

func normalizeLabel(value string) string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return "unknown"
	}
	return trimmed
}
