// Package metrics holds the Prometheus collectors exported by the service.
// This is part of the platform layer and contains no business logic.
package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector owns a private registry so tests can build as many as they like.
type Collector struct {
	registry *prometheus.Registry

	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec

	IntakeDecisions     *prometheus.CounterVec
	LeadsCreated        prometheus.Counter
	QuestionnairesDone  prometheus.Counter
	FeedEmissions       *prometheus.CounterVec
	EnrichmentFailures  *prometheus.CounterVec
	ActiveSubscriptions prometheus.Gauge
}

// NewCollector creates and registers every metric under namespace.
func NewCollector(namespace string) *Collector {
	registry := prometheus.NewRegistry()

	c := &Collector{
		registry: registry,
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		}, []string{"method", "route", "status"}),
		HTTPDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		IntakeDecisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "intake_decisions_total",
			Help:      "Intake guard decisions by limiter and outcome",
		}, []string{"limiter", "outcome"}),
		LeadsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "leads_created_total",
			Help:      "Leads persisted after passing the intake guard",
		}),
		QuestionnairesDone: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "questionnaires_completed_total",
			Help:      "Questionnaire sessions completed and scored",
		}),
		FeedEmissions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "lead_feed_emissions_total",
			Help:      "Snapshots delivered to live lead subscribers",
		}, []string{"kind"}),
		EnrichmentFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "lead_enrichment_failures_total",
			Help:      "Lead enrichment lookups that failed and were skipped",
		}, []string{"stage"}),
		ActiveSubscriptions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "lead_feed_subscriptions",
			Help:      "Currently open live lead subscriptions",
		}),
	}

	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		c.HTTPRequests,
		c.HTTPDuration,
		c.IntakeDecisions,
		c.LeadsCreated,
		c.QuestionnairesDone,
		c.FeedEmissions,
		c.EnrichmentFailures,
		c.ActiveSubscriptions,
	)

	return c
}

// Registry exposes the underlying registry.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Middleware records request counts and latency per matched route.
func (c *Collector) Middleware() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		start := time.Now()
		ctx.Next()

		route := ctx.FullPath()
		if route == "" {
			route = "unmatched"
		}
		method := ctx.Request.Method
		c.HTTPRequests.WithLabelValues(method, route, strconv.Itoa(ctx.Writer.Status())).Inc()
		c.HTTPDuration.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
	}
}

// Handler serves the registry in the Prometheus text format.
func (c *Collector) Handler() gin.HandlerFunc {
	h := promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
	return gin.WrapH(h)
}
