package rankcache

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/Adithya-Monish-Kumar-K/related/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/related/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/related/pkg/related"
	"github.com/Adithya-Monish-Kumar-K/related/pkg/resilience"
	"github.com/Adithya-Monish-Kumar-K/related/pkg/stemmer"
)

type note struct {
	Title string
	Body  string
}

func notes() []note {
	return []note{
		{Title: "ruby", Body: "this lorem ipsum blah foo"},
		{Title: "ruby", Body: "this document is about python."},
		{Title: "ruby and node", Body: "this document is about ruby and node."},
		{Title: "examples", Body: "this document is about node. it has node examples"},
	}
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testOptions() related.Options[note] {
	return related.Options[note]{
		Serializer: func(n note) []string { return []string{n.Title, n.Body} },
		Logger:     quietLogger(),
	}
}

type memStore struct {
	mu      sync.Mutex
	data    map[string][]byte
	gets    int
	sets    int
	failGet bool
}

func newMemStore() *memStore {
	return &memStore{data: make(map[string][]byte)}
}

func (s *memStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gets++
	if s.failGet {
		return nil, false, errors.New("connection refused")
	}
	v, ok := s.data[key]
	return v, ok, nil
}

func (s *memStore) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = value
	s.sets++
	return nil
}

func (s *memStore) DeleteByPattern(_ context.Context, pattern string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for k := range s.data {
		if ok, _ := path.Match(pattern, k); ok {
			delete(s.data, k)
			n++
		}
	}
	return n, nil
}

func TestEngineCacheReusesEngineForSameCorpus(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	opts := testOptions()
	opts.Metrics = m
	cache := NewEngineCache(opts)

	docs := notes()
	first, err := cache.Engine(docs)
	if err != nil {
		t.Fatal(err)
	}
	second, err := cache.Engine(docs)
	if err != nil {
		t.Fatal(err)
	}
	if first != second {
		t.Error("same corpus produced a new engine")
	}

	copied := append([]note(nil), docs...)
	third, err := cache.Engine(copied)
	if err != nil {
		t.Fatal(err)
	}
	if third == first {
		t.Error("different backing array reused the engine")
	}
	shorter, err := cache.Engine(copied[:2])
	if err != nil {
		t.Fatal(err)
	}
	if shorter == third {
		t.Error("different length reused the engine")
	}

	if got := testutil.ToFloat64(m.CacheHitsTotal.WithLabelValues("engine")); got != 1 {
		t.Errorf("engine hits = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.CacheMissesTotal.WithLabelValues("engine")); got != 3 {
		t.Errorf("engine misses = %v, want 3", got)
	}
}

func TestClosure(t *testing.T) {
	rank := Closure(testOptions())
	docs := notes()
	entries, err := rank(docs[0], docs)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 3 || entries[0].Index != 1 {
		t.Errorf("unexpected ranking %+v", entries)
	}
	if _, err := rank(docs[0], nil); err == nil {
		t.Error("expected error for empty corpus")
	}
}

func TestClosureMissingSerializer(t *testing.T) {
	rank := Closure(related.Options[note]{Logger: quietLogger()})
	if _, err := rank(note{}, notes()); err == nil {
		t.Error("expected error without serializer")
	}
}

func newResultCache(t *testing.T, store Store, opts ...ResultCacheOption) (*ResultCache[note], *related.Engine[note]) {
	t.Helper()
	engine, err := related.New(notes(), testOptions())
	if err != nil {
		t.Fatal(err)
	}
	opts = append([]ResultCacheOption{WithLogger(quietLogger())}, opts...)
	return NewResultCache(store, engine, time.Minute, opts...), engine
}

func TestResultCacheHitMatchesEngine(t *testing.T) {
	store := newMemStore()
	cache, engine := newResultCache(t, store)
	ctx := context.Background()
	query := engine.Documents()[0]

	fresh, hit, err := cache.Rank(ctx, query)
	if err != nil {
		t.Fatal(err)
	}
	if hit {
		t.Error("first call reported a hit")
	}
	cached, hit, err := cache.Rank(ctx, query)
	if err != nil {
		t.Fatal(err)
	}
	if !hit {
		t.Error("second call missed")
	}
	if !reflect.DeepEqual(fresh, cached) {
		t.Errorf("cached result differs:\n%+v\n%+v", fresh, cached)
	}
	direct, err := engine.Rank(query)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(direct, cached) {
		t.Errorf("cached result differs from engine:\n%+v\n%+v", direct, cached)
	}
	if hits, misses := cache.Stats(); hits != 1 || misses != 2 {
		t.Errorf("stats = %d hits, %d misses; want 1, 2", hits, misses)
	}
}

func TestResultCacheKeyTracksWeightsAndStems(t *testing.T) {
	store := newMemStore()
	cache, engine := newResultCache(t, store)
	query := engine.Documents()[1]

	mustRankCached(t, cache, query, false)
	mustRankCached(t, cache, query, true)

	engine.SetWeights([]float64{5, 1})
	mustRankCached(t, cache, query, false)

	engine.SetStemmer(stemmer.Snowball{})
	// Snowball keeps "this" intact, so corpus stems change.
	mustRankCached(t, cache, query, false)
	mustRankCached(t, cache, query, true)

	if store.sets != 3 {
		t.Errorf("store sets = %d, want 3", store.sets)
	}
}

func mustRankCached(t *testing.T, cache *ResultCache[note], doc note, wantHit bool) {
	t.Helper()
	_, hit, err := cache.Rank(context.Background(), doc)
	if err != nil {
		t.Fatal(err)
	}
	if hit != wantHit {
		t.Fatalf("hit = %v, want %v", hit, wantHit)
	}
}

func TestResultCacheInvalidate(t *testing.T) {
	store := newMemStore()
	cache, engine := newResultCache(t, store, WithNamespace("a"))
	other, _ := newResultCache(t, store, WithNamespace("b"))
	ctx := context.Background()

	for _, doc := range engine.Documents() {
		mustRankCached(t, cache, doc, false)
		mustRankCached(t, other, doc, false)
	}
	if err := cache.Invalidate(ctx); err != nil {
		t.Fatal(err)
	}
	if len(store.data) != 4 {
		t.Errorf("store has %d keys after invalidating namespace a, want 4", len(store.data))
	}
	mustRankCached(t, cache, engine.Documents()[0], false)
	mustRankCached(t, other, engine.Documents()[0], true)
}

func TestResultCacheStoreFailureFallsThrough(t *testing.T) {
	store := newMemStore()
	store.failGet = true
	cache, engine := newResultCache(t, store)
	entries, hit, err := cache.Rank(context.Background(), engine.Documents()[2])
	if err != nil {
		t.Fatal(err)
	}
	if hit || len(entries) != 3 {
		t.Errorf("hit = %v, entries = %d", hit, len(entries))
	}
}

func TestResultCacheBreakerSkipsDeadStore(t *testing.T) {
	store := newMemStore()
	store.failGet = true
	cache, engine := newResultCache(t, store, WithBreaker(resilience.BreakerConfig{
		FailureThreshold: 2,
		Cooldown:         time.Hour,
	}))
	query := engine.Documents()[0]

	// One miss reads the store twice: before and inside the flight.
	mustRankCached(t, cache, query, false)
	if store.gets != 2 {
		t.Fatalf("store gets = %d, want 2", store.gets)
	}
	for i := 0; i < 3; i++ {
		mustRankCached(t, cache, query, false)
	}
	if store.gets != 2 {
		t.Errorf("store gets = %d after breaker opened, want 2", store.gets)
	}
	if store.sets != 0 {
		t.Errorf("store sets = %d, want 0", store.sets)
	}
}

func TestResultCacheCorruptEntry(t *testing.T) {
	store := newMemStore()
	cache, engine := newResultCache(t, store)
	query := engine.Documents()[0]
	mustRankCached(t, cache, query, false)
	for k := range store.data {
		store.data[k] = []byte(`[{"i":99,"a":1,"r":1}]`)
	}
	mustRankCached(t, cache, query, false)
}

func TestResultCacheEngineError(t *testing.T) {
	engine, err := related.New([]note{}, testOptions())
	if err != nil {
		t.Fatal(err)
	}
	cache := NewResultCache(newMemStore(), engine, time.Minute, WithLogger(quietLogger()))
	if _, _, err := cache.Rank(context.Background(), note{}); err == nil {
		t.Error("expected error for empty corpus")
	}
}

func TestNewFromConfigDisabledRanksThroughEngine(t *testing.T) {
	engine, err := related.New(notes(), testOptions())
	if err != nil {
		t.Fatal(err)
	}
	cache, err := NewFromConfig(context.Background(), config.RedisConfig{Enabled: false, Addr: "127.0.0.1:1"}, engine,
		WithLogger(quietLogger()))
	if err != nil {
		t.Fatalf("disabled cache should not connect: %v", err)
	}
	defer cache.Close()
	if cache.Enabled() {
		t.Error("cache reports enabled")
	}

	query := engine.Documents()[2]
	for i := 0; i < 2; i++ {
		entries, hit, err := cache.Rank(context.Background(), query)
		if err != nil {
			t.Fatal(err)
		}
		if hit {
			t.Error("disabled cache reported a hit")
		}
		direct, _ := engine.Rank(query)
		if !reflect.DeepEqual(entries, direct) {
			t.Errorf("entries differ from engine:\n%+v\n%+v", entries, direct)
		}
	}
	if err := cache.Invalidate(context.Background()); err != nil {
		t.Errorf("Invalidate: %v", err)
	}
	if hits, misses := cache.Stats(); hits != 0 || misses != 0 {
		t.Errorf("stats = %d/%d, want 0/0", hits, misses)
	}
}

func TestNewFromConfigUnreachableRedis(t *testing.T) {
	engine, err := related.New(notes(), testOptions())
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	// Nothing listens on port 1.
	_, err = NewFromConfig(ctx, config.RedisConfig{Enabled: true, Addr: "127.0.0.1:1", PoolSize: 1}, engine)
	if err == nil {
		t.Error("expected an error for an unreachable store")
	}
}

func TestNewFromConfigRedis(t *testing.T) {
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		addr = "localhost:6379"
	}
	engine, err := related.New(notes(), testOptions())
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	cfg := config.RedisConfig{Enabled: true, Addr: addr, DB: 15, PoolSize: 2, CacheTTL: time.Minute}
	cache, err := NewFromConfig(ctx, cfg, engine,
		WithNamespace("test-"+time.Now().Format("150405.000000")),
		WithLogger(quietLogger()))
	if err != nil {
		t.Skipf("skipping: redis unavailable: %v", err)
	}
	t.Cleanup(func() {
		cache.Invalidate(context.Background())
		cache.Close()
	})

	query := engine.Documents()[0]
	first, hit, err := cache.Rank(ctx, query)
	if err != nil || hit {
		t.Fatalf("first Rank: hit %v, err %v", hit, err)
	}
	second, hit, err := cache.Rank(ctx, query)
	if err != nil || !hit {
		t.Fatalf("second Rank: hit %v, err %v", hit, err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Errorf("cached ranking differs:\n%+v\n%+v", first, second)
	}
}
