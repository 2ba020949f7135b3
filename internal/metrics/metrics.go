// Package metrics exposes Prometheus collectors for the search engine, the
// event bus and the HTTP surface.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

const namespace = "equipfind"

// Metrics holds all application metrics on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	// Search metrics
	SearchRequests *prometheus.CounterVec   // labels: operation, outcome
	SearchLatency  *prometheus.HistogramVec // labels: operation
	SearchResults  *prometheus.HistogramVec // labels: operation
	SearchErrors   *prometheus.CounterVec   // labels: operation, code
	CandidatePool  *prometheus.HistogramVec // labels: pool

	// Vocabulary metrics
	VocabularyRebuilds       *prometheus.CounterVec // labels: outcome
	VocabularyRebuildLatency prometheus.Histogram
	VocabularyTerms          prometheus.Gauge

	// Catalog change events seen on the bus
	CatalogChanges *prometheus.CounterVec // labels: reason

	// Bus metrics
	BusEventsPublished *prometheus.CounterVec   // labels: topic
	BusEventLatency    *prometheus.HistogramVec // labels: topic
	BusErrors          *prometheus.CounterVec   // labels: topic

	// HTTP metrics
	HTTPRequests *prometheus.CounterVec   // labels: method, path, status
	HTTPDuration *prometheus.HistogramVec // labels: method, path
}

// New creates a metrics instance with every collector registered, plus the
// Go runtime and process collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),

		SearchRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "search_requests_total",
			Help:      "Total number of engine operations.",
		}, []string{"operation", "outcome"}),
		SearchLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "search_latency_seconds",
			Help:      "Engine operation latency in seconds.",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5},
		}, []string{"operation"}),
		SearchResults: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "search_results",
			Help:      "Number of results per engine operation.",
			Buckets:   []float64{0, 1, 5, 10, 20, 50, 100, 200, 520},
		}, []string{"operation"}),
		SearchErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "search_errors_total",
			Help:      "Total number of failed engine operations by error code.",
		}, []string{"operation", "code"}),
		CandidatePool: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "search_candidates",
			Help:      "Candidate pool size per search.",
			Buckets:   []float64{0, 1, 5, 10, 25, 50, 100, 250, 420, 520},
		}, []string{"pool"}),

		VocabularyRebuilds: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "vocabulary_rebuilds_total",
			Help:      "Total number of vocabulary rebuilds.",
		}, []string{"outcome"}),
		VocabularyRebuildLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "vocabulary_rebuild_seconds",
			Help:      "Vocabulary rebuild latency in seconds.",
			Buckets:   prometheus.DefBuckets,
		}),
		VocabularyTerms: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "vocabulary_terms",
			Help:      "Number of terms in the last successfully built vocabulary.",
		}),

		CatalogChanges: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "catalog_changes_total",
			Help:      "Total number of catalog change events received.",
		}, []string{"reason"}),

		BusEventsPublished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bus_events_published_total",
			Help:      "Total number of events published.",
		}, []string{"topic"}),
		BusEventLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "bus_publish_seconds",
			Help:      "Event publish latency in seconds.",
			Buckets:   []float64{.0005, .001, .005, .01, .05, .1, .5, 1},
		}, []string{"topic"}),
		BusErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bus_errors_total",
			Help:      "Total number of failed publishes.",
		}, []string{"topic"}),

		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests.",
		}, []string{"method", "path", "status"}),
		HTTPDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency in seconds.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "path"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.SearchRequests,
		m.SearchLatency,
		m.SearchResults,
		m.SearchErrors,
		m.CandidatePool,
		m.VocabularyRebuilds,
		m.VocabularyRebuildLatency,
		m.VocabularyTerms,
		m.CatalogChanges,
		m.BusEventsPublished,
		m.BusEventLatency,
		m.BusErrors,
		m.HTTPRequests,
		m.HTTPDuration,
	)
	return m
}

// Registry returns the registry the collectors live on.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// RecordSearch records one engine operation ("search", "suggest" or
// "filters").
func (m *Metrics) RecordSearch(operation string, d time.Duration, results int, err error) {
	m.SearchRequests.WithLabelValues(operation, outcome(err)).Inc()
	m.SearchLatency.WithLabelValues(operation).Observe(d.Seconds())
	if err != nil {
		m.SearchErrors.WithLabelValues(operation, errorCode(err)).Inc()
		return
	}
	m.SearchResults.WithLabelValues(operation).Observe(float64(results))
}

// RecordCandidates records the size of the candidate pool a search ranked.
func (m *Metrics) RecordCandidates(pool string, n int) {
	m.CandidatePool.WithLabelValues(pool).Observe(float64(n))
}

// RecordVocabularyRebuild records one vocabulary rebuild.
func (m *Metrics) RecordVocabularyRebuild(d time.Duration, terms int, err error) {
	m.VocabularyRebuilds.WithLabelValues(outcome(err)).Inc()
	m.VocabularyRebuildLatency.Observe(d.Seconds())
	if err == nil {
		m.VocabularyTerms.Set(float64(terms))
	}
}

// RecordBusPublish records one publish attempt.
func (m *Metrics) RecordBusPublish(topic string, latency time.Duration, err error) {
	m.BusEventLatency.WithLabelValues(topic).Observe(latency.Seconds())
	if err != nil {
		m.BusErrors.WithLabelValues(topic).Inc()
		return
	}
	m.BusEventsPublished.WithLabelValues(topic).Inc()
}

func outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
