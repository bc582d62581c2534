package metrics

import (
	"errors"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.ObserveBuild("built", time.Millisecond)
	m.ObserveRank(time.Millisecond, 3, nil)
	m.SetVocabulary(0, 10)
	m.CacheHit("engine")
	m.CacheMiss("engine")
}

func TestRecording(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.ObserveBuild("built", 20*time.Millisecond)
	m.ObserveBuild("discarded", 0)
	m.ObserveRank(time.Millisecond, 3, nil)
	m.ObserveRank(time.Millisecond, 0, errors.New("boom"))
	m.SetVocabulary(1, 42)
	m.CacheHit("results")
	m.CacheHit("results")
	m.CacheMiss("results")

	if got := testutil.ToFloat64(m.IndexBuildsTotal.WithLabelValues("built")); got != 1 {
		t.Errorf("builds{built} = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.IndexBuildsTotal.WithLabelValues("discarded")); got != 1 {
		t.Errorf("builds{discarded} = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.RankErrorsTotal); got != 1 {
		t.Errorf("rank errors = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.VocabularySize.WithLabelValues("1")); got != 42 {
		t.Errorf("vocabulary{part=1} = %v, want 42", got)
	}
	if got := testutil.ToFloat64(m.CacheHitsTotal.WithLabelValues("results")); got != 2 {
		t.Errorf("cache hits = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.CacheMissesTotal.WithLabelValues("results")); got != 1 {
		t.Errorf("cache misses = %v, want 1", got)
	}
}

func TestHandlerServesRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)
	m.CacheHit("engine")

	rec := httptest.NewRecorder()
	Handler(reg).ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, _ := io.ReadAll(rec.Body)
	if !strings.Contains(string(body), `related_cache_hits_total{cache="engine"} 1`) {
		t.Errorf("scrape output missing cache hit counter:\n%s", body)
	}
}
