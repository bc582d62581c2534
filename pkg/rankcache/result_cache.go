package rankcache

import (
	"context"
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/zeebo/blake3"
	"golang.org/x/sync/singleflight"

	"github.com/Adithya-Monish-Kumar-K/related/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/related/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/related/pkg/related"
	"github.com/Adithya-Monish-Kumar-K/related/pkg/resilience"
)

const keyPrefix = "related:"

// Store is the byte store behind a ResultCache. *redis.Client from
// pkg/redis satisfies it.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	DeleteByPattern(ctx context.Context, pattern string) (int64, error)
}

type cachedEntry struct {
	Index    int     `json:"i"`
	Absolute float64 `json:"a"`
	Relative float64 `json:"r"`
}

// ResultCache caches the rank results of one engine. Store failures are
// logged and fall through to the engine. Repeated failures open a circuit
// breaker so a dead store is skipped until it recovers.
type ResultCache[D any] struct {
	store     Store
	closer    io.Closer
	breaker   *resilience.Breaker
	engine    *related.Engine[D]
	ttl       time.Duration
	namespace string
	group     singleflight.Group
	logger    *slog.Logger
	metrics   *metrics.Metrics
	hits      atomic.Int64
	misses    atomic.Int64

	fpMu        sync.Mutex
	fpStems     *[][]string
	fingerprint []byte
}

type ResultCacheOption func(*resultCacheOptions)

type resultCacheOptions struct {
	namespace string
	logger    *slog.Logger
	metrics   *metrics.Metrics
	breaker   resilience.BreakerConfig
}

// WithNamespace separates engines that share a store but score
// differently, for example with different IDF functions.
func WithNamespace(ns string) ResultCacheOption {
	return func(o *resultCacheOptions) { o.namespace = ns }
}

func WithLogger(l *slog.Logger) ResultCacheOption {
	return func(o *resultCacheOptions) { o.logger = l }
}

func WithMetrics(m *metrics.Metrics) ResultCacheOption {
	return func(o *resultCacheOptions) { o.metrics = m }
}

func WithBreaker(cfg resilience.BreakerConfig) ResultCacheOption {
	return func(o *resultCacheOptions) { o.breaker = cfg }
}

func NewResultCache[D any](store Store, engine *related.Engine[D], ttl time.Duration, opts ...ResultCacheOption) *ResultCache[D] {
	o := resultCacheOptions{namespace: "default"}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = logger.WithComponent("result-cache")
	}
	return &ResultCache[D]{
		store:     store,
		breaker:   resilience.NewBreaker("result-store:"+o.namespace, o.breaker),
		engine:    engine,
		ttl:       ttl,
		namespace: o.namespace,
		logger:    o.logger,
		metrics:   o.metrics,
	}
}

// Enabled reports whether results are stored at all.
func (c *ResultCache[D]) Enabled() bool {
	return c.store != nil
}

// Close releases the store when the cache opened it itself.
func (c *ResultCache[D]) Close() error {
	if c.closer == nil {
		return nil
	}
	return c.closer.Close()
}

// Rank returns the cached ranking for document, computing and storing it
// on a miss. The boolean reports a cache hit.
func (c *ResultCache[D]) Rank(ctx context.Context, document D) ([]related.ScoreEntry[D], bool, error) {
	if c.store == nil {
		entries, err := c.engine.Rank(document)
		return entries, false, err
	}
	log := logger.FromContext(ctx, c.logger)
	key, err := c.buildKey(document)
	if err != nil {
		return nil, false, err
	}
	if entries, ok := c.get(ctx, log, key); ok {
		return entries, true, nil
	}
	val, err, _ := c.group.Do(key, func() (interface{}, error) {
		if entries, ok := c.get(ctx, log, key); ok {
			return entries, nil
		}
		entries, err := c.engine.Rank(document)
		if err != nil {
			return nil, err
		}
		c.set(ctx, log, key, entries)
		return entries, nil
	})
	if err != nil {
		return nil, false, err
	}
	return val.([]related.ScoreEntry[D]), false, nil
}

// Invalidate deletes every cached result in this cache's namespace.
func (c *ResultCache[D]) Invalidate(ctx context.Context) error {
	if c.store == nil {
		return nil
	}
	pattern := keyPrefix + c.namespace + ":*"
	deleted, err := c.store.DeleteByPattern(ctx, pattern)
	if err != nil {
		return fmt.Errorf("invalidating result cache: %w", err)
	}
	logger.FromContext(ctx, c.logger).Info("result cache invalidated", "keys_deleted", deleted)
	return nil
}

func (c *ResultCache[D]) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}

func (c *ResultCache[D]) get(ctx context.Context, log *slog.Logger, key string) ([]related.ScoreEntry[D], bool) {
	var (
		data []byte
		ok   bool
	)
	err := c.breaker.Do(func() error {
		var err error
		data, ok, err = c.store.Get(ctx, key)
		return err
	})
	switch {
	case errors.Is(err, resilience.ErrOpen):
		log.Debug("cache skipped", "key", key, "error", err)
	case err != nil:
		log.Error("cache get failed", "key", key, "error", err)
	}
	if err != nil || !ok {
		c.miss()
		return nil, false
	}
	var cached []cachedEntry
	if err := json.Unmarshal(data, &cached); err != nil {
		log.Error("cache unmarshal failed", "key", key, "error", err)
		c.miss()
		return nil, false
	}
	documents := c.engine.Documents()
	entries := make([]related.ScoreEntry[D], len(cached))
	for i, ce := range cached {
		if ce.Index < 0 || ce.Index >= len(documents) {
			log.Error("cached entry out of range", "key", key, "index", ce.Index)
			c.miss()
			return nil, false
		}
		entries[i] = related.ScoreEntry[D]{
			Document: documents[ce.Index],
			Index:    ce.Index,
			Absolute: ce.Absolute,
			Relative: ce.Relative,
		}
	}
	c.hits.Add(1)
	c.metrics.CacheHit("results")
	log.Debug("cache hit", "key", key)
	return entries, true
}

func (c *ResultCache[D]) set(ctx context.Context, log *slog.Logger, key string, entries []related.ScoreEntry[D]) {
	cached := make([]cachedEntry, len(entries))
	for i, e := range entries {
		cached[i] = cachedEntry{Index: e.Index, Absolute: e.Absolute, Relative: e.Relative}
	}
	data, err := json.Marshal(cached)
	if err != nil {
		log.Error("cache marshal failed", "key", key, "error", err)
		return
	}
	err = c.breaker.Do(func() error {
		return c.store.Set(ctx, key, data, c.ttl)
	})
	switch {
	case errors.Is(err, resilience.ErrOpen):
		log.Debug("cache write skipped", "key", key)
	case err != nil:
		log.Error("cache set failed", "key", key, "error", err)
	}
}

func (c *ResultCache[D]) miss() {
	c.misses.Add(1)
	c.metrics.CacheMiss("results")
}

// buildKey hashes everything a ranking depends on: the corpus stems, the
// query stems and the effective weights.
func (c *ResultCache[D]) buildKey(document D) (string, error) {
	corpus, err := c.corpusFingerprint()
	if err != nil {
		return "", err
	}
	h := blake3.New()
	h.Write(corpus)
	writeParts(h, c.engine.Process(document))
	var buf [8]byte
	for _, w := range c.engine.Weights() {
		binary.LittleEndian.PutUint64(buf[:], math.Float64bits(w))
		h.Write(buf[:])
	}
	sum := h.Sum(nil)
	return keyPrefix + c.namespace + ":" + hex.EncodeToString(sum[:16]), nil
}

// corpusFingerprint is recomputed only when the engine rebuilds its stems.
func (c *ResultCache[D]) corpusFingerprint() ([]byte, error) {
	if err := c.engine.Prepare(); err != nil {
		return nil, err
	}
	stems := c.engine.Stems()
	c.fpMu.Lock()
	defer c.fpMu.Unlock()
	if len(stems) > 0 && c.fpStems == &stems[0] {
		return c.fingerprint, nil
	}
	h := blake3.New()
	for _, parts := range stems {
		writeParts(h, parts)
		h.Write([]byte{2})
	}
	c.fingerprint = h.Sum(nil)
	if len(stems) > 0 {
		c.fpStems = &stems[0]
	}
	return c.fingerprint, nil
}

func writeParts(h *blake3.Hasher, parts [][]string) {
	for _, stems := range parts {
		for _, s := range stems {
			h.Write([]byte(s))
			h.Write([]byte{0})
		}
		h.Write([]byte{1})
	}
}
