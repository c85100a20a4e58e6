package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP surface
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "adpilot_http_requests_total",
		Help: "HTTP requests by method, route and status code",
	}, []string{"method", "path", "status"})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "adpilot_http_request_duration_seconds",
		Help:    "HTTP request latency by method and route",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path"})

	// Model invocation
	ModelRequestsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "adpilot_model_requests_total",
		Help: "Completed generative model calls",
	})

	ModelErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "adpilot_model_errors_total",
		Help: "Model call failures by stage (network, api, read, empty, parse)",
	}, []string{"stage"})

	ModelLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "adpilot_model_latency_seconds",
		Help:    "Generative model call latency",
		Buckets: []float64{0.5, 1, 2, 5, 10, 20, 40, 60, 120},
	})

	ModelRetriesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "adpilot_model_retries_total",
		Help: "Model calls retried after a first failed attempt",
	})

	// Pipeline gates
	RateLimitDeniedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "adpilot_rate_limit_denied_total",
		Help: "Requests denied by the fixed-window rate limiter",
	}, []string{"operation"})

	CreditDeniedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "adpilot_credit_denied_total",
		Help: "Requests denied for insufficient credits",
	}, []string{"operation"})

	PipelineRunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "adpilot_pipeline_runs_total",
		Help: "Pipeline runs by operation and outcome",
	}, []string{"operation", "outcome"})

	ScrapeFallbacksTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "adpilot_scrape_fallbacks_total",
		Help: "Product-page scrapes that fell back to URL-derived info",
	})

	// Stored records
	RecordsStored = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "adpilot_records_stored",
		Help: "Stored result records by type",
	}, []string{"type"})
)
