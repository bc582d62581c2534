package rankcache

import (
	"log/slog"
	"sync"

	"github.com/Adithya-Monish-Kumar-K/related/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/related/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/related/pkg/related"
)

// EngineCache recreates its Engine only when the corpus changes. Two
// corpora are the same when they share length and backing array; element
// values are never compared, so a caller that edits documents in place
// must build a new slice to force a rebuild.
type EngineCache[D any] struct {
	opts    related.Options[D]
	mu      sync.Mutex
	engine  *related.Engine[D]
	logger  *slog.Logger
	metrics *metrics.Metrics
}

func NewEngineCache[D any](opts related.Options[D]) *EngineCache[D] {
	log := opts.Logger
	if log == nil {
		log = logger.WithComponent("engine-cache")
	}
	return &EngineCache[D]{
		opts:    opts,
		logger:  log,
		metrics: opts.Metrics,
	}
}

// Closure returns a rank function bound to a fresh EngineCache.
func Closure[D any](opts related.Options[D]) func(document D, documents []D) ([]related.ScoreEntry[D], error) {
	return NewEngineCache(opts).Rank
}

// Engine returns the engine for documents, creating it if documents is
// not the corpus of the current engine.
func (c *EngineCache[D]) Engine(documents []D) (*related.Engine[D], error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.engine != nil && sameCorpus(c.engine.Documents(), documents) {
		c.metrics.CacheHit("engine")
		return c.engine, nil
	}
	c.metrics.CacheMiss("engine")
	engine, err := related.New(documents, c.opts)
	if err != nil {
		return nil, err
	}
	c.logger.Debug("engine created", "documents", len(documents))
	c.engine = engine
	return engine, nil
}

// Rank ranks document against documents.
func (c *EngineCache[D]) Rank(document D, documents []D) ([]related.ScoreEntry[D], error) {
	engine, err := c.Engine(documents)
	if err != nil {
		return nil, err
	}
	return engine.Rank(document)
}

func sameCorpus[D any](a, b []D) bool {
	if len(a) != len(b) {
		return false
	}
	return len(a) == 0 || &a[0] == &b[0]
}
