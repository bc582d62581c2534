// Package metrics defines the Prometheus collectors used by the ranking
// engine and its caches, and exposes an HTTP handler for scraping.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus collectors. A nil *Metrics is valid and
// records nothing.
type Metrics struct {
	IndexBuildsTotal   *prometheus.CounterVec
	IndexBuildDuration prometheus.Histogram
	RankLatency        prometheus.Histogram
	RankResultsCount   prometheus.Histogram
	RankErrorsTotal    prometheus.Counter
	VocabularySize     *prometheus.GaugeVec
	CacheHitsTotal     *prometheus.CounterVec
	CacheMissesTotal   *prometheus.CounterVec
}

// New creates all collectors and registers them with reg. Passing nil
// registers with the default Prometheus registry.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &Metrics{
		IndexBuildsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "related_index_builds_total",
				Help: "Total per-part index builds by status (built, discarded, error).",
			},
			[]string{"status"},
		),
		IndexBuildDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "related_index_build_duration_seconds",
				Help:    "Time to process the corpus and build every per-part index.",
				Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
			},
		),
		RankLatency: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "related_rank_latency_seconds",
				Help:    "Rank call latency in seconds, excluding index builds.",
				Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
			},
		),
		RankResultsCount: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "related_rank_results_count",
				Help:    "Number of entries returned per rank call.",
				Buckets: []float64{0, 1, 5, 10, 25, 50, 100, 500, 1000},
			},
		),
		RankErrorsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "related_rank_errors_total",
				Help: "Total rank calls that returned an error.",
			},
		),
		VocabularySize: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "related_vocabulary_size",
				Help: "Distinct stems per part index.",
			},
			[]string{"part"},
		),
		CacheHitsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "related_cache_hits_total",
				Help: "Total cache hits by cache name.",
			},
			[]string{"cache"},
		),
		CacheMissesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "related_cache_misses_total",
				Help: "Total cache misses by cache name.",
			},
			[]string{"cache"},
		),
	}

	reg.MustRegister(
		m.IndexBuildsTotal,
		m.IndexBuildDuration,
		m.RankLatency,
		m.RankResultsCount,
		m.RankErrorsTotal,
		m.VocabularySize,
		m.CacheHitsTotal,
		m.CacheMissesTotal,
	)

	return m
}

func (m *Metrics) ObserveBuild(status string, d time.Duration) {
	if m == nil {
		return
	}
	m.IndexBuildsTotal.WithLabelValues(status).Inc()
	if status == "built" {
		m.IndexBuildDuration.Observe(d.Seconds())
	}
}

func (m *Metrics) ObserveRank(d time.Duration, results int, err error) {
	if m == nil {
		return
	}
	if err != nil {
		m.RankErrorsTotal.Inc()
		return
	}
	m.RankLatency.Observe(d.Seconds())
	m.RankResultsCount.Observe(float64(results))
}

func (m *Metrics) SetVocabulary(part int, size int) {
	if m == nil {
		return
	}
	m.VocabularySize.WithLabelValues(strconv.Itoa(part)).Set(float64(size))
}

func (m *Metrics) CacheHit(cache string) {
	if m == nil {
		return
	}
	m.CacheHitsTotal.WithLabelValues(cache).Inc()
}

func (m *Metrics) CacheMiss(cache string) {
	if m == nil {
		return
	}
	m.CacheMissesTotal.WithLabelValues(cache).Inc()
}

// Handler returns the Prometheus scrape HTTP handler for g. Passing nil
// serves the default gatherer.
func Handler(g prometheus.Gatherer) http.Handler {
	if g == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
