// Package metrics exposes Prometheus collectors for the ingestion and query pipelines.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "iketube"

// Pipeline stages timed by StageDuration.
const (
	StageAcquire  = "acquire"
	StageChunk    = "chunk"
	StageEmbed    = "embed"
	StageUpsert   = "upsert"
	StageRetrieve = "retrieve"
	StageGenerate = "generate"
)

// Registry holds every collector of this package plus the Go runtime collectors.
var Registry = prometheus.NewRegistry()

var (
	Ingestions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "ingestions_total",
		Help:      "Ingestion attempts by outcome (created, existed, failed, conflict).",
	}, []string{"outcome"})

	ChunksIndexed = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "chunks_indexed_total",
		Help:      "Transcript chunks embedded and upserted.",
	})

	Queries = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "queries_total",
		Help:      "Query turns by outcome (valid, degraded, failed).",
	}, []string{"outcome"})

	GenerationTokens = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "generation_tokens_total",
		Help:      "Tokens consumed by generation calls.",
	}, []string{"direction"})

	StageDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "stage_duration_seconds",
		Help:      "Duration of pipeline stages.",
		Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
	}, []string{"stage"})

	HTTPRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "http_requests_total",
		Help:      "HTTP requests by route and status code.",
	}, []string{"route", "status"})

	RateLimited = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "rate_limited_total",
		Help:      "Requests rejected by the rate limiter.",
	}, []string{"route"})
)

func init() {
	Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		Ingestions,
		ChunksIndexed,
		Queries,
		GenerationTokens,
		StageDuration,
		HTTPRequests,
		RateLimited,
	)
}

// ObserveStage records the time elapsed since start for stage.
func ObserveStage(stage string, start time.Time) {
	StageDuration.WithLabelValues(stage).Observe(time.Since(start).Seconds())
}

// Handler serves Registry in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}
